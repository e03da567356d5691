package bot

import (
	"context"
	"errors"
	"strings"

	"health-compass/internal/community"
	"health-compass/internal/health"
	"health-compass/internal/platform/logger"
	"health-compass/internal/platform/maxapi"
	"health-compass/internal/screening"
	"health-compass/internal/symptom"
)

// Sender is the outbound part of the chat platform client.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendKeyboard(ctx context.Context, chatID int64, text string, rows [][]maxapi.Button) error
	AnswerCallback(ctx context.Context, callbackID, notification string) error
}

type HealthService interface {
	GetProfile(ctx context.Context, userID int64) (*health.UserProfile, error)
	CreateProfile(ctx context.Context, userID int64, in health.ProfileInput) (*health.UserProfile, error)
	UpdateProfile(ctx context.Context, userID int64, u health.ProfileUpdate) (*health.UserProfile, error)
	AddCondition(ctx context.Context, userID int64, in health.ConditionInput) (*health.UserProfile, error)
	ToggleRiskFactor(ctx context.Context, userID int64, f health.RiskFactor) (*health.UserProfile, error)
	AddMetric(ctx context.Context, userID int64, in health.MetricInput) (*health.HealthMetric, error)
	Metrics(ctx context.Context, userID int64, metricType string, limit int) ([]health.HealthMetric, error)
	Summary(ctx context.Context, userID int64) (*health.Summary, error)
	Trend(ctx context.Context, userID int64, metricType string) (*health.Trend, error)
}

type ReportSender interface {
	Send(ctx context.Context, chatID int64, p *health.UserProfile, schedule []screening.Item, metrics []health.HealthMetric) error
}

type Deps struct {
	Sender      Sender
	Health      HealthService
	Engine      *symptom.Engine
	Sessions    symptom.SessionStore
	Scheduler   *screening.Scheduler
	Communities *community.Directory
	// Reports is optional; without it the report button answers with a notice.
	Reports ReportSender
	Log     *logger.Logger
}

// Bot turns webhook updates into replies. It holds no per-user state except
// pending free-text inputs; triage sessions live in the session store.
type Bot struct {
	send        Sender
	health      HealthService
	engine      *symptom.Engine
	sessions    symptom.SessionStore
	scheduler   *screening.Scheduler
	communities *community.Directory
	reports     ReportSender
	pending     *pendingInputs
	log         *logger.Logger
}

func New(d Deps) *Bot {
	if d.Engine == nil {
		d.Engine = symptom.NewEngine(nil)
	}
	if d.Sessions == nil {
		d.Sessions = symptom.NewMemoryStore()
	}
	if d.Scheduler == nil {
		d.Scheduler = screening.NewScheduler()
	}
	if d.Communities == nil {
		d.Communities = community.NewDirectory()
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return &Bot{
		send:        d.Sender,
		health:      d.Health,
		engine:      d.Engine,
		sessions:    d.Sessions,
		scheduler:   d.Scheduler,
		communities: d.Communities,
		reports:     d.Reports,
		pending:     newPendingInputs(),
		log:         d.Log.With("component", "bot"),
	}
}

// HandleUpdate processes one webhook update. Errors from the chat API are
// returned as is; nothing is retried.
func (b *Bot) HandleUpdate(ctx context.Context, u maxapi.Update) error {
	switch u.UpdateType {
	case maxapi.UpdateMessageCreated:
		if u.Message == nil {
			return nil
		}
		return b.handleMessage(ctx, u.Message)
	case maxapi.UpdateMessageCallback:
		if u.Callback == nil {
			return nil
		}
		return b.handleCallback(ctx, u.Callback, u.Message)
	case maxapi.UpdateBotStarted:
		if u.ChatID == 0 || u.User == nil {
			return nil
		}
		return b.start(ctx, u.ChatID, *u.User)
	case maxapi.UpdateBotStopped:
		if u.User != nil {
			b.log.Info("bot stopped by user", "user_id", u.User.UserID)
			b.pending.clear(u.User.UserID)
			if err := b.sessions.Delete(ctx, u.User.UserID); err != nil {
				b.log.Warn("drop triage session failed", "user_id", u.User.UserID, "error", err)
			}
		}
		return nil
	default:
		b.log.Debug("ignoring update", "update_type", u.UpdateType)
		return nil
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *maxapi.Message) error {
	chatID := m.Recipient.ChatID
	if chatID == 0 {
		return nil
	}
	user := m.Sender
	text := strings.TrimSpace(m.Body.Text)

	if in, ok := b.pending.get(user.UserID); ok {
		if !strings.HasPrefix(text, "/") {
			return b.consumeInput(ctx, chatID, user.UserID, in, text)
		}
		b.pending.clear(user.UserID)
	}

	lower := strings.ToLower(text)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}

	switch {
	case has("/start", "начать"):
		return b.start(ctx, chatID, user)
	case has("здоровье", "health"):
		return b.send.SendKeyboard(ctx, chatID, healthMenuText, healthMenuKeyboard())
	case has("обследование", "скрининг"):
		return b.screenings(ctx, chatID, user.UserID)
	case has("симптом", "болит"):
		return b.send.SendKeyboard(ctx, chatID, symptomsText, symptomsKeyboard())
	case has("клиник", "больниц"):
		return b.send.SendKeyboard(ctx, chatID, findClinicText, findClinicKeyboard())
	case has("сообществ", "поддержк"):
		return b.communitiesFor(ctx, chatID, user.UserID)
	case has("профиль", "profile"):
		return b.showProfile(ctx, chatID, user.UserID)
	case has("помощь", "help"):
		return b.send.SendKeyboard(ctx, chatID, helpText, helpKeyboard())
	default:
		return b.send.SendKeyboard(ctx, chatID, unknownText, unknownKeyboard())
	}
}

// profile returns nil without error when the user has no profile yet.
func (b *Bot) profile(ctx context.Context, userID int64) (*health.UserProfile, error) {
	p, err := b.health.GetProfile(ctx, userID)
	if health.IsNotFound(err) {
		return nil, nil
	}
	return p, err
}

func (b *Bot) start(ctx context.Context, chatID int64, user maxapi.User) error {
	p, err := b.profile(ctx, user.UserID)
	if err != nil {
		return err
	}
	return b.send.SendKeyboard(ctx, chatID, welcomeText(user.FirstName, p != nil), mainMenuKeyboard())
}

func (b *Bot) askForProfile(ctx context.Context, chatID int64) error {
	return b.send.SendKeyboard(ctx, chatID, askProfileText, askProfileKeyboard())
}

func (b *Bot) screenings(ctx context.Context, chatID, userID int64) error {
	p, err := b.profile(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return b.askForProfile(ctx, chatID)
	}
	return b.send.SendKeyboard(ctx, chatID, screening.FormatMessage(b.scheduler.Schedule(p)), screeningKeyboard())
}

func (b *Bot) communitiesFor(ctx context.Context, chatID, userID int64) error {
	p, err := b.profile(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return b.askForProfile(ctx, chatID)
	}
	if len(p.Conditions) == 0 {
		return b.send.SendKeyboard(ctx, chatID, noConditionsText, keyboard{
			{cb("👤 Добавить заболевание", payloadAddCondition)},
		})
	}
	text, rows := communityKeyboard(b.communities, p)
	return b.send.SendKeyboard(ctx, chatID, text, rows)
}

func (b *Bot) showProfile(ctx context.Context, chatID, userID int64) error {
	p, err := b.profile(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return b.send.SendKeyboard(ctx, chatID, noProfileText, noProfileKeyboard())
	}
	return b.send.SendKeyboard(ctx, chatID, profileText(p), profileKeyboard())
}

// userMessage strips the sentinel prefix from validation errors so the
// readable part can be shown in chat.
func userMessage(err error) string {
	if errors.Is(err, health.ErrValidation) {
		return "❌ " + strings.TrimPrefix(err.Error(), health.ErrValidation.Error()+": ")
	}
	return "❌ Не удалось сохранить данные."
}
