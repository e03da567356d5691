package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"health-compass/internal/health"
	"health-compass/internal/screening"
)

// consumeInput handles a free-text reply to a prompt. Invalid input keeps the
// prompt open so the user can try again.
func (b *Bot) consumeInput(ctx context.Context, chatID, userID int64, in pendingInput, text string) error {
	switch in.kind {
	case inputMetric:
		value, err := health.ParseMetricText(in.metricType, text)
		if err != nil {
			return b.send.SendMessage(ctx, chatID, userMessage(err))
		}
		m, err := b.health.AddMetric(ctx, userID, health.MetricInput{MetricType: in.metricType, Value: value})
		if health.IsValidation(err) {
			return b.send.SendMessage(ctx, chatID, userMessage(err))
		}
		if err != nil {
			return err
		}
		b.pending.clear(userID)
		return b.send.SendKeyboard(ctx, chatID,
			fmt.Sprintf("✅ Показатель сохранён: %s %s", metricNames[m.Type], formatMetric(*m)), diaryKeyboard())

	case inputNewProfileAge:
		age, ok := parseAge(text)
		if !ok {
			return b.send.SendMessage(ctx, chatID, "❌ Возраст должен быть числом от 0 до 120")
		}
		p, err := b.health.CreateProfile(ctx, userID, health.ProfileInput{Gender: in.gender, Age: &age})
		if health.IsValidation(err) {
			return b.send.SendMessage(ctx, chatID, userMessage(err))
		}
		if err != nil {
			return err
		}
		b.pending.clear(userID)
		b.log.Info("profile created", "user_id", userID)
		reply := "✅ Профиль создан!\n\n" + screening.FormatMessage(b.scheduler.Schedule(p))
		return b.send.SendKeyboard(ctx, chatID, reply, screeningKeyboard())

	case inputAge:
		age, ok := parseAge(text)
		if !ok {
			return b.send.SendMessage(ctx, chatID, "❌ Возраст должен быть числом от 0 до 120")
		}
		return b.applyUpdate(ctx, chatID, userID, health.ProfileUpdate{Age: &age})

	case inputFamily:
		items := []string{}
		for _, part := range strings.Split(health.SanitizeText(text), ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
		if len(items) == 0 {
			return b.send.SendMessage(ctx, chatID, "❌ Перечислите хотя бы одно заболевание.")
		}
		return b.applyUpdate(ctx, chatID, userID, health.ProfileUpdate{FamilyHistory: &items})

	case inputCondition:
		name := strings.TrimSpace(health.SanitizeText(text))
		if name == "" {
			return b.send.SendMessage(ctx, chatID, "❌ Название не может быть пустым.")
		}
		b.pending.clear(userID)
		return b.saveCondition(ctx, chatID, userID, customConditionID(name), name)

	case inputLocation:
		city := strings.TrimSpace(health.SanitizeText(text))
		if city == "" {
			return b.send.SendMessage(ctx, chatID, "❌ Напишите название города.")
		}
		if _, err := b.health.UpdateProfile(ctx, userID, health.ProfileUpdate{Location: &city}); err != nil {
			if health.IsNotFound(err) {
				b.pending.clear(userID)
				return b.askForProfile(ctx, chatID)
			}
			return err
		}
		b.pending.clear(userID)
		return b.sendNearby(ctx, chatID, city)
	}

	b.pending.clear(userID)
	return nil
}

func (b *Bot) applyUpdate(ctx context.Context, chatID, userID int64, u health.ProfileUpdate) error {
	p, err := b.health.UpdateProfile(ctx, userID, u)
	switch {
	case health.IsValidation(err):
		return b.send.SendMessage(ctx, chatID, userMessage(err))
	case health.IsNotFound(err):
		b.pending.clear(userID)
		return b.askForProfile(ctx, chatID)
	case err != nil:
		return err
	}
	b.pending.clear(userID)
	return b.send.SendKeyboard(ctx, chatID, "✅ Профиль обновлён.\n\n"+profileText(p), profileKeyboard())
}

func parseAge(text string) (int, bool) {
	age, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || age < 0 || age > 120 {
		return 0, false
	}
	return age, true
}

// customConditionID derives a stable id for a condition typed by the user.
func customConditionID(name string) string {
	return "custom_" + strings.ReplaceAll(strings.ToLower(name), " ", "_")
}
