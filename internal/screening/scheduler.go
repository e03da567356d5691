package screening

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"health-compass/internal/health"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

func priorityFor(frequencyYears int) Priority {
	if frequencyYears <= 2 {
		return PriorityHigh
	}
	return PriorityMedium
}

type Item struct {
	Rule     Rule     `json:"recommendation"`
	NextDue  int      `json:"next_due"`
	Priority Priority `json:"priority"`
}

// Scheduler filters a fixed rule list against a profile. It keeps no
// per-user state.
type Scheduler struct {
	rules []Rule
	now   func() time.Time
}

// NewScheduler uses DefaultRules when no rules are given.
func NewScheduler(rules ...Rule) *Scheduler {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Scheduler{rules: rules, now: time.Now}
}

// Schedule returns the applicable rules, high priority first. Rules with the
// same priority keep declaration order. NextDue is always the current year.
func (s *Scheduler) Schedule(p *health.UserProfile) []Item {
	year := s.now().Year()
	items := make([]Item, 0, len(s.rules))
	for _, r := range s.rules {
		if !r.Applies(p) {
			continue
		}
		items = append(items, Item{Rule: r, NextDue: year, Priority: priorityFor(r.FrequencyYears)})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority == PriorityHigh && items[j].Priority != PriorityHigh
	})
	return items
}

// FormatMessage renders the schedule as chat text.
func FormatMessage(items []Item) string {
	if len(items) == 0 {
		return "🎉 Отлично! По вашим данным все плановые обследования пройдены."
	}
	var b strings.Builder
	b.WriteString("📅 Ваш персональный календарь обследований:\n\n")
	for _, it := range items {
		fmt.Fprintf(&b, "• %s\n", it.Rule.Name)
		fmt.Fprintf(&b, "  📋 %s\n", it.Rule.Description)
		fmt.Fprintf(&b, "  🗓️ Каждые %d %s\n", it.Rule.FrequencyYears, yearsWord(it.Rule.FrequencyYears))
		fmt.Fprintf(&b, "  🚨 %s\n\n", strings.ToUpper(string(it.Priority)))
	}
	b.WriteString("💡 Нажмите на обследование, чтобы найти клинику")
	return b.String()
}

func yearsWord(n int) string {
	switch {
	case n%10 == 1 && n%100 != 11:
		return "год"
	case n%10 >= 2 && n%10 <= 4 && (n%100 < 12 || n%100 > 14):
		return "года"
	}
	return "лет"
}
