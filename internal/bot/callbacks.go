package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"health-compass/internal/health"
	"health-compass/internal/platform/maxapi"
	"health-compass/internal/report"
	"health-compass/internal/symptom"
)

func (b *Bot) handleCallback(ctx context.Context, c *maxapi.Callback, m *maxapi.Message) error {
	chatID := c.User.UserID
	if m != nil && m.Recipient.ChatID != 0 {
		chatID = m.Recipient.ChatID
	}
	if chatID == 0 {
		return nil
	}
	userID := c.User.UserID
	action := ParseAction(c.Payload)
	b.log.Debug("processing callback", "payload", c.Payload, "user_id", userID)

	switch a := action.(type) {
	case MainMenu:
		return b.start(ctx, chatID, c.User)
	case MyScreenings:
		return b.screenings(ctx, chatID, userID)
	case Symptoms:
		return b.send.SendKeyboard(ctx, chatID, symptomsText, symptomsKeyboard())
	case SymptomBodyPart:
		return b.startTriage(ctx, chatID, userID, a.BodyPart)
	case SymptomAnswer:
		return b.answerTriage(ctx, chatID, userID, a)
	case FindClinic:
		return b.send.SendKeyboard(ctx, chatID, findClinicText, findClinicKeyboard())
	case ClinicType:
		return b.clinic(ctx, chatID, userID, a.Kind)
	case ClinicsNearby:
		return b.clinicsNearby(ctx, chatID, userID)
	case HealthDiary:
		return b.diary(ctx, chatID, userID)
	case AddMetric:
		b.pending.set(userID, pendingInput{kind: inputMetric, metricType: a.MetricType})
		return b.send.SendMessage(ctx, chatID, metricPrompts[a.MetricType])
	case HealthStats:
		return b.stats(ctx, chatID, userID)
	case HealthReport:
		return b.report(ctx, chatID, userID)
	case Communities:
		return b.communitiesFor(ctx, chatID, userID)
	case AllCommunities:
		text, rows := allCommunities(b.communities)
		return b.send.SendKeyboard(ctx, chatID, text, rows)
	case ShowProfile:
		return b.showProfile(ctx, chatID, userID)
	case Help:
		return b.send.SendKeyboard(ctx, chatID, helpText, helpKeyboard())
	case CreateProfile:
		return b.send.SendKeyboard(ctx, chatID, createProfileText, genderKeyboard())
	case ProfileGender:
		b.pending.set(userID, pendingInput{kind: inputNewProfileAge, gender: a.Gender})
		return b.send.SendMessage(ctx, chatID, "🎂 Сколько вам лет? Введите число.")
	case SkipProfile:
		return b.send.SendKeyboard(ctx, chatID, "👌 Профиль можно создать позже в разделе «Профиль».", mainMenuKeyboard())
	case EditProfile:
		return b.withProfile(ctx, chatID, userID, func(*health.UserProfile) error {
			return b.send.SendKeyboard(ctx, chatID, editProfileText, editProfileKeyboard())
		})
	case EditAge:
		return b.withProfile(ctx, chatID, userID, func(*health.UserProfile) error {
			b.pending.set(userID, pendingInput{kind: inputAge})
			return b.send.SendMessage(ctx, chatID, "🎂 Введите ваш возраст числом.")
		})
	case EditRisks:
		return b.withProfile(ctx, chatID, userID, func(p *health.UserProfile) error {
			return b.send.SendKeyboard(ctx, chatID, risksText, risksKeyboard(p))
		})
	case ToggleRisk:
		return b.toggleRisk(ctx, chatID, c, a.Factor)
	case EditFamily:
		return b.withProfile(ctx, chatID, userID, func(*health.UserProfile) error {
			b.pending.set(userID, pendingInput{kind: inputFamily})
			return b.send.SendMessage(ctx, chatID, "👨‍👩‍👧‍👦 Перечислите заболевания близких родственников через запятую.")
		})
	case AddCondition:
		return b.send.SendKeyboard(ctx, chatID, addConditionText, addConditionKeyboard())
	case PickCondition:
		return b.pickCondition(ctx, chatID, c, a.ConditionID)
	default:
		b.log.Warn("unknown callback payload", "payload", c.Payload, "user_id", userID)
		if err := b.send.SendMessage(ctx, chatID, unknownCallbackText); err != nil {
			return err
		}
		return b.start(ctx, chatID, c.User)
	}
}

func (b *Bot) withProfile(ctx context.Context, chatID, userID int64, fn func(*health.UserProfile) error) error {
	p, err := b.profile(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return b.askForProfile(ctx, chatID)
	}
	return fn(p)
}

func (b *Bot) startTriage(ctx context.Context, chatID, userID int64, bodyPart string) error {
	sess, q, err := b.engine.Start(bodyPart, userID)
	if err != nil {
		return err
	}
	if err := b.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("save triage session: %w", err)
	}
	return b.send.SendKeyboard(ctx, chatID, q.Text, questionKeyboard(q))
}

func (b *Bot) answerTriage(ctx context.Context, chatID, userID int64, a SymptomAnswer) error {
	sess, err := b.sessions.Get(ctx, userID)
	if errors.Is(err, symptom.ErrSessionNotFound) {
		return b.send.SendMessage(ctx, chatID, noSessionText)
	}
	if err != nil {
		return err
	}

	option, err := b.engine.Option(sess, a.Question, a.Option)
	if err == nil {
		var step symptom.Step
		step, err = b.engine.Answer(sess, a.Question, option)
		if err == nil {
			return b.advanceTriage(ctx, chatID, sess, step)
		}
	}

	switch {
	case errors.Is(err, symptom.ErrInvalidSessionState), errors.Is(err, symptom.ErrInvalidOption):
		// A button from an earlier question; show the open one again.
		q, cerr := b.engine.Current(sess)
		if cerr != nil {
			if derr := b.sessions.Delete(ctx, userID); derr != nil {
				return derr
			}
			return b.send.SendMessage(ctx, chatID, noSessionText)
		}
		return b.send.SendKeyboard(ctx, chatID, "⚠️ Ответьте, пожалуйста, на текущий вопрос.\n\n"+q.Text, questionKeyboard(q))
	case errors.Is(err, symptom.ErrUnknownBodyPart):
		if derr := b.sessions.Delete(ctx, userID); derr != nil {
			return derr
		}
		return b.send.SendMessage(ctx, chatID, noSessionText)
	}
	return err
}

func (b *Bot) advanceTriage(ctx context.Context, chatID int64, sess *symptom.Session, step symptom.Step) error {
	if step.Terminal() {
		if err := b.sessions.Delete(ctx, sess.UserID); err != nil {
			return fmt.Errorf("drop triage session: %w", err)
		}
		b.log.Info("triage finished", "user_id", sess.UserID, "body_part", sess.BodyPart,
			"recommendation", step.Recommendation.ID, "urgency", step.Recommendation.Urgency)
		return b.send.SendKeyboard(ctx, chatID, recommendationText(step.Recommendation), recommendationKeyboard())
	}
	if err := b.sessions.Put(ctx, sess); err != nil {
		return fmt.Errorf("save triage session: %w", err)
	}
	return b.send.SendKeyboard(ctx, chatID, step.Question.Text, questionKeyboard(*step.Question))
}

func (b *Bot) clinic(ctx context.Context, chatID, userID int64, kind string) error {
	p, err := b.profile(ctx, userID)
	if err != nil {
		return err
	}
	location := ""
	if p != nil {
		location = p.Location
	}
	text := fmt.Sprintf("🏥 %s\n\nОткройте карту, чтобы найти ближайшие учреждения.", clinicTitles[kind])
	return b.send.SendKeyboard(ctx, chatID, text, clinicKeyboard(kind, location))
}

func (b *Bot) clinicsNearby(ctx context.Context, chatID, userID int64) error {
	return b.withProfile(ctx, chatID, userID, func(p *health.UserProfile) error {
		if p.Location == "" {
			b.pending.set(userID, pendingInput{kind: inputLocation})
			return b.send.SendMessage(ctx, chatID, "📍 Напишите ваш город, и я покажу медицинские учреждения рядом.")
		}
		return b.sendNearby(ctx, chatID, p.Location)
	})
}

func (b *Bot) sendNearby(ctx context.Context, chatID int64, location string) error {
	rows := keyboard{
		{maxapi.LinkButton("🗺️ Клиники рядом", clinicSearchURL("клиника", location))},
		{cb("↩️ Назад", payloadFindClinic)},
	}
	return b.send.SendKeyboard(ctx, chatID, fmt.Sprintf("📍 Медицинские учреждения: %s", location), rows)
}

func (b *Bot) diary(ctx context.Context, chatID, userID int64) error {
	return b.withProfile(ctx, chatID, userID, func(*health.UserProfile) error {
		sum, err := b.health.Summary(ctx, userID)
		if err != nil {
			return err
		}
		return b.send.SendKeyboard(ctx, chatID, diaryText(sum), diaryKeyboard())
	})
}

func (b *Bot) stats(ctx context.Context, chatID, userID int64) error {
	var sb strings.Builder
	sb.WriteString("📈 Статистика показателей:\n\n")
	for _, t := range []string{health.MetricPressure, health.MetricPulse, health.MetricTemperature, health.MetricWeight} {
		tr, err := b.health.Trend(ctx, userID, t)
		if err != nil {
			return err
		}
		if tr.Message != "" {
			fmt.Fprintf(&sb, "• %s: %s\n", metricNames[t], strings.ToLower(tr.Message))
			continue
		}
		fmt.Fprintf(&sb, "• %s: тренд %s, среднее %g, последнее %g (%d изм.)\n",
			metricNames[t], tr.Direction, tr.Average, *tr.LatestValue, tr.DataPoints)
	}
	return b.send.SendKeyboard(ctx, chatID, sb.String(), diaryKeyboard())
}

func (b *Bot) report(ctx context.Context, chatID, userID int64) error {
	if b.reports == nil {
		return b.send.SendMessage(ctx, chatID, "📄 Отчёты временно недоступны.")
	}
	return b.withProfile(ctx, chatID, userID, func(p *health.UserProfile) error {
		metrics, err := b.health.Metrics(ctx, userID, "", health.DefaultMetricsLimit)
		if err != nil {
			return err
		}
		err = b.reports.Send(ctx, chatID, p, b.scheduler.Schedule(p), metrics)
		if errors.Is(err, report.ErrFontNotFound) {
			b.log.Error("report font missing", "error", err)
			return b.send.SendMessage(ctx, chatID, "❌ Не удалось сформировать отчёт. Попробуйте позже.")
		}
		return err
	})
}

func (b *Bot) toggleRisk(ctx context.Context, chatID int64, c *maxapi.Callback, f health.RiskFactor) error {
	p, err := b.health.ToggleRiskFactor(ctx, c.User.UserID, f)
	if health.IsNotFound(err) {
		return b.askForProfile(ctx, chatID)
	}
	if err != nil {
		return err
	}
	note := "Убрано: " + riskNames[f]
	if p.HasRiskFactor(f) {
		note = "Добавлено: " + riskNames[f]
	}
	b.ack(ctx, c, note)
	return b.send.SendKeyboard(ctx, chatID, risksText, risksKeyboard(p))
}

func (b *Bot) pickCondition(ctx context.Context, chatID int64, c *maxapi.Callback, id string) error {
	userID := c.User.UserID
	if id == otherCondition {
		return b.withProfile(ctx, chatID, userID, func(*health.UserProfile) error {
			b.pending.set(userID, pendingInput{kind: inputCondition})
			return b.send.SendMessage(ctx, chatID, "📝 Напишите название заболевания.")
		})
	}
	name, ok := conditionName(id)
	if !ok {
		if err := b.send.SendMessage(ctx, chatID, unknownCallbackText); err != nil {
			return err
		}
		return b.start(ctx, chatID, c.User)
	}
	if err := b.saveCondition(ctx, chatID, userID, id, name); err != nil {
		return err
	}
	b.ack(ctx, c, "✅ "+name)
	return nil
}

// saveCondition adds the condition and, when a support community exists for
// it, offers the link.
func (b *Bot) saveCondition(ctx context.Context, chatID, userID int64, id, name string) error {
	_, err := b.health.AddCondition(ctx, userID, health.ConditionInput{ConditionID: id, Name: name})
	if health.IsNotFound(err) {
		return b.askForProfile(ctx, chatID)
	}
	if health.IsValidation(err) {
		return b.send.SendMessage(ctx, chatID, userMessage(err))
	}
	if err != nil {
		return err
	}
	text := fmt.Sprintf("✅ Заболевание «%s» добавлено в профиль.", name)
	rows := profileKeyboard()
	if comm, ok := b.communities.ForCondition(id); ok {
		text += "\n\n" + b.communities.FormatMessage(id)
		rows = append(keyboard{{maxapi.LinkButton("Присоединиться: "+comm.Name, comm.ChatLink)}}, rows...)
	}
	return b.send.SendKeyboard(ctx, chatID, text, rows)
}

// ack answers a button press with a short toast. Failures are only logged.
func (b *Bot) ack(ctx context.Context, c *maxapi.Callback, note string) {
	if c.CallbackID == "" {
		return
	}
	if err := b.send.AnswerCallback(ctx, c.CallbackID, note); err != nil {
		b.log.Warn("answer callback failed", "callback_id", c.CallbackID, "error", err)
	}
}
