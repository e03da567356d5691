package community

import (
	"fmt"
	"strings"
)

type Community struct {
	ConditionID    string   `json:"condition_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	ChatLink       string   `json:"max_chat_link"`
	SuccessStories []string `json:"success_stories,omitempty"`
}

// Directory is a read-only list of support communities keyed by condition id.
type Directory struct {
	list []Community
	byID map[string]int
}

func NewDirectory(list ...Community) *Directory {
	if len(list) == 0 {
		list = defaultCommunities()
	}
	d := &Directory{list: list, byID: make(map[string]int, len(list))}
	for i, c := range list {
		d.byID[c.ConditionID] = i
	}
	return d
}

func defaultCommunities() []Community {
	return []Community{
		{
			ConditionID: "vitiligo",
			Name:        "Витилиго: поддержка и лечение",
			Description: "Сообщество людей с витилиго. Обсуждаем лечение, психологическую поддержку, истории успеха.",
			ChatLink:    "https://max.ru/vitiligo_support",
			SuccessStories: []string{
				"Мария: Нашла эффективную схему лечения после 5 лет поисков",
				"Алексей: Принял свою особенность и помогает другим",
			},
		},
		{
			ConditionID: "diabetes",
			Name:        "Сахарный диабет: жизнь без ограничений",
			Description: "Поддержка, обмен опытом, новости в лечении диабета.",
			ChatLink:    "https://max.ru/diabetes_support",
			SuccessStories: []string{
				"Дмитрий: Сбросил 25 кг и контролирую диабет без лекарств",
				"Ольга: Научилась жить полноценной жизнью с диабетом 1 типа",
			},
		},
		{
			ConditionID: "hypertension",
			Name:        "Гипертония под контролем",
			Description: "Обсуждаем контроль давления, питание, физические нагрузки.",
			ChatLink:    "https://max.ru/hypertension_support",
			SuccessStories: []string{
				"Сергей: Нормализовал давление без таблеток через изменение образа жизни",
			},
		},
		{
			ConditionID: "migraine",
			Name:        "Мигрень и головные боли",
			Description: "Поиск триггеров, эффективные методы лечения, поддержка.",
			ChatLink:    "https://max.ru/migraine_support",
		},
	}
}

func (d *Directory) ForCondition(conditionID string) (Community, bool) {
	i, ok := d.byID[conditionID]
	if !ok {
		return Community{}, false
	}
	return d.list[i], true
}

// All returns the communities in declaration order.
func (d *Directory) All() []Community {
	return append([]Community(nil), d.list...)
}

// FormatMessage renders a community card with at most two success stories.
func (d *Directory) FormatMessage(conditionID string) string {
	c, ok := d.ForCondition(conditionID)
	if !ok {
		return "❌ Сообщество для вашего заболевания пока не создано"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "👥 %s\n\n%s\n\n", c.Name, c.Description)
	if len(c.SuccessStories) > 0 {
		b.WriteString("✨ Истории успеха:\n")
		stories := c.SuccessStories
		if len(stories) > 2 {
			stories = stories[:2]
		}
		for _, s := range stories {
			fmt.Fprintf(&b, "• %s\n", s)
		}
		b.WriteString("\n")
	}
	b.WriteString("💬 Присоединяйтесь к нашему сообществу!")
	return b.String()
}
