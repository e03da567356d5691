package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"health-compass/internal/health"
	"health-compass/internal/platform/maxapi"
	"health-compass/internal/screening"
	"health-compass/internal/symptom"
)

type sentMessage struct {
	chatID int64
	text   string
	rows   [][]maxapi.Button
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []sentMessage
	acks []string
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, chatID int64, text string) error {
	return f.SendKeyboard(context.Background(), chatID, text, nil)
}

func (f *fakeSender) SendKeyboard(_ context.Context, chatID int64, text string, rows [][]maxapi.Button) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, sentMessage{chatID: chatID, text: text, rows: rows})
	return nil
}

func (f *fakeSender) AnswerCallback(_ context.Context, callbackID, notification string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, callbackID+"|"+notification)
	return nil
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		t.Fatalf("nothing was sent")
	}
	return f.msgs[len(f.msgs)-1]
}

func (f *fakeSender) payloads(m sentMessage) []string {
	var out []string
	for _, row := range m.rows {
		for _, b := range row {
			if b.Payload != "" {
				out = append(out, b.Payload)
			} else {
				out = append(out, b.URL)
			}
		}
	}
	return out
}

type fakeReports struct {
	chatID   int64
	schedule []screening.Item
	err      error
}

func (f *fakeReports) Send(_ context.Context, chatID int64, _ *health.UserProfile, schedule []screening.Item, _ []health.HealthMetric) error {
	f.chatID, f.schedule = chatID, schedule
	return f.err
}

type fixture struct {
	bot      *Bot
	sender   *fakeSender
	health   *health.Service
	sessions symptom.SessionStore
	reports  *fakeReports
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sender:   &fakeSender{},
		health:   health.NewService(health.NewMemoryStore()),
		sessions: symptom.NewMemoryStore(),
		reports:  &fakeReports{},
	}
	f.bot = New(Deps{
		Sender:   f.sender,
		Health:   f.health,
		Sessions: f.sessions,
		Reports:  f.reports,
	})
	return f
}

const chatOffset = 900

func callback(userID int64, payload string) maxapi.Update {
	return maxapi.Update{
		UpdateType: maxapi.UpdateMessageCallback,
		Callback: &maxapi.Callback{
			CallbackID: "cb-" + payload,
			Payload:    payload,
			User:       maxapi.User{UserID: userID, FirstName: "Анна"},
		},
		Message: &maxapi.Message{Recipient: maxapi.Recipient{ChatID: chatOffset + userID}},
	}
}

func message(userID int64, text string) maxapi.Update {
	return maxapi.Update{
		UpdateType: maxapi.UpdateMessageCreated,
		Message: &maxapi.Message{
			Sender:    maxapi.User{UserID: userID, FirstName: "Анна"},
			Recipient: maxapi.Recipient{ChatID: chatOffset + userID},
			Body:      maxapi.MessageBody{Text: text},
		},
	}
}

func (f *fixture) handle(t *testing.T, u maxapi.Update) sentMessage {
	t.Helper()
	if err := f.bot.HandleUpdate(context.Background(), u); err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
	return f.sender.last(t)
}

func (f *fixture) createProfile(t *testing.T, userID int64, gender health.Gender, age int) {
	t.Helper()
	if _, err := f.health.CreateProfile(context.Background(), userID, health.ProfileInput{Gender: gender, Age: &age}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
}

func TestBotStartedWelcomesNewAndReturningUsers(t *testing.T) {
	f := newFixture(t)
	started := maxapi.Update{UpdateType: maxapi.UpdateBotStarted, ChatID: 77, User: &maxapi.User{UserID: 7, FirstName: "Олег"}}

	msg := f.handle(t, started)
	if msg.chatID != 77 || !strings.Contains(msg.text, "Добро пожаловать в Health Compass, Олег") {
		t.Fatalf("unexpected welcome: %+v", msg)
	}
	if len(msg.rows) != 4 {
		t.Fatalf("main menu should have 4 rows, got %d", len(msg.rows))
	}

	f.createProfile(t, 7, health.GenderMale, 30)
	msg = f.handle(t, started)
	if !strings.Contains(msg.text, "С возвращением") {
		t.Fatalf("expected returning welcome: %q", msg.text)
	}
}

func TestHeadacheTriageOverCallbacks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := f.handle(t, callback(1, "symptom_head"))
	if msg.text != "Опишите боль?" {
		t.Fatalf("first question: %q", msg.text)
	}
	if got := f.sender.payloads(msg); got[2] != "symptom_answer_0_2" {
		t.Fatalf("option payloads: %v", got)
	}

	for _, p := range []string{"symptom_answer_0_2", "symptom_answer_1_0", "symptom_answer_2_0"} {
		f.handle(t, callback(1, p))
	}
	sess, err := f.sessions.Get(ctx, 1)
	if err != nil || sess.CurrentQuestion != 3 {
		t.Fatalf("session after three answers: %+v, %v", sess, err)
	}

	msg = f.handle(t, callback(1, "symptom_answer_3_0"))
	if !strings.Contains(msg.text, "🚨 Срочность: Высокая") {
		t.Fatalf("expected high urgency recommendation:\n%s", msg.text)
	}
	if _, err := f.sessions.Get(ctx, 1); !errors.Is(err, symptom.ErrSessionNotFound) {
		t.Fatalf("session should be removed after the recommendation, got %v", err)
	}
}

func TestTriageDefaultRecommendation(t *testing.T) {
	f := newFixture(t)
	f.handle(t, callback(2, "symptom_head"))
	for _, p := range []string{"symptom_answer_0_0", "symptom_answer_1_1", "symptom_answer_2_1"} {
		f.handle(t, callback(2, p))
	}
	msg := f.handle(t, callback(2, "symptom_answer_3_1"))
	if !strings.Contains(msg.text, "🚨 Срочность: Средняя") {
		t.Fatalf("expected default recommendation:\n%s", msg.text)
	}
}

func TestSymptomAnswerWithoutSession(t *testing.T) {
	f := newFixture(t)
	msg := f.handle(t, callback(3, "symptom_answer_0_0"))
	if msg.text != noSessionText {
		t.Fatalf("got %q", msg.text)
	}
}

func TestStaleAnswerRepeatsCurrentQuestion(t *testing.T) {
	f := newFixture(t)
	f.handle(t, callback(4, "symptom_back"))
	f.handle(t, callback(4, "symptom_answer_0_1"))

	msg := f.handle(t, callback(4, "symptom_answer_0_2"))
	if !strings.HasPrefix(msg.text, "⚠️") || !strings.Contains(msg.text, "Характер боли?") {
		t.Fatalf("expected the open question again: %q", msg.text)
	}
	sess, _ := f.sessions.Get(context.Background(), 4)
	if sess.CurrentQuestion != 1 || len(sess.Answers) != 1 {
		t.Fatalf("stale answer changed the session: %+v", sess)
	}
}

func TestUnknownCallbackFallsBackToMenu(t *testing.T) {
	f := newFixture(t)
	f.handle(t, callback(5, "set_reminders"))
	if len(f.sender.msgs) != 2 {
		t.Fatalf("expected notice plus menu, got %d messages", len(f.sender.msgs))
	}
	if f.sender.msgs[0].text != unknownCallbackText {
		t.Fatalf("first message: %q", f.sender.msgs[0].text)
	}
	if len(f.sender.msgs[1].rows) != len(mainMenuKeyboard()) {
		t.Fatalf("second message should carry the main menu")
	}
}

func TestTextRouting(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"/start", "Добро пожаловать"},
		{"Помощь", "Справка по Health Compass"},
		{"у меня болит голова", symptomsText},
		{"Где ближайшая больница?", "Поиск медицинских учреждений"},
		{"Здоровье", "навигатор в мире здоровья"},
		{"скрининг", askProfileText},
		{"мой профиль", "Профиль не найден"},
		{"что-то странное", "Я не понял вашу команду"},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			f := newFixture(t)
			msg := f.handle(t, message(6, tc.text))
			if !strings.Contains(msg.text, tc.want) {
				t.Fatalf("reply to %q: %q", tc.text, msg.text)
			}
		})
	}
}

func TestProfileCreationFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handle(t, callback(8, "create_profile"))
	f.handle(t, callback(8, "profile_gender_female"))

	msg := f.handle(t, message(8, "сорок"))
	if !strings.HasPrefix(msg.text, "❌") {
		t.Fatalf("expected an age error, got %q", msg.text)
	}

	msg = f.handle(t, message(8, "45"))
	if !strings.Contains(msg.text, "Профиль создан") || !strings.Contains(msg.text, "Маммография") {
		t.Fatalf("unexpected confirmation:\n%s", msg.text)
	}
	p, err := f.health.GetProfile(ctx, 8)
	if err != nil || p.Age != 45 || p.Gender != health.GenderFemale {
		t.Fatalf("stored profile: %+v, %v", p, err)
	}

	msg = f.handle(t, message(8, "помощь"))
	if !strings.Contains(msg.text, "Справка") {
		t.Fatalf("input should be consumed, got %q", msg.text)
	}
}

func TestMetricInputFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msg := f.handle(t, callback(9, "add_pressure"))
	if !strings.Contains(msg.text, "120/80") {
		t.Fatalf("prompt: %q", msg.text)
	}
	msg = f.handle(t, message(9, "80/120"))
	if !strings.HasPrefix(msg.text, "❌") {
		t.Fatalf("expected validation error, got %q", msg.text)
	}
	msg = f.handle(t, message(9, "125/82"))
	if !strings.Contains(msg.text, "Давление 125/82") {
		t.Fatalf("confirmation: %q", msg.text)
	}
	metrics, _ := f.health.Metrics(ctx, 9, health.MetricPressure, 10)
	if len(metrics) != 1 || metrics[0].Value["systolic"] != 125 {
		t.Fatalf("stored metrics: %+v", metrics)
	}
}

func TestMetricInputRejectsNonFinite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.handle(t, callback(10, "add_pulse"))
	for _, text := range []string{"NaN", "Inf", "-Inf"} {
		msg := f.handle(t, message(10, text))
		if !strings.HasPrefix(msg.text, "❌") {
			t.Fatalf("%q: expected validation error, got %q", text, msg.text)
		}
	}
	msg := f.handle(t, message(10, "72"))
	if strings.HasPrefix(msg.text, "❌") {
		t.Fatalf("valid pulse rejected: %q", msg.text)
	}
	metrics, _ := f.health.Metrics(ctx, 10, health.MetricPulse, 10)
	if len(metrics) != 1 || metrics[0].Value["value"] != 72 {
		t.Fatalf("stored metrics: %+v", metrics)
	}
}

func TestScreeningsRequireProfile(t *testing.T) {
	f := newFixture(t)
	msg := f.handle(t, callback(10, "my_screenings"))
	if msg.text != askProfileText {
		t.Fatalf("expected profile prompt, got %q", msg.text)
	}
	f.createProfile(t, 10, health.GenderMale, 55)
	msg = f.handle(t, callback(10, "my_screenings"))
	if !strings.Contains(msg.text, "Колоноскопия") || !strings.Contains(msg.text, "Анализ ПСА") {
		t.Fatalf("schedule text:\n%s", msg.text)
	}
}

func TestToggleRiskAcknowledges(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, 11, health.GenderMale, 50)

	msg := f.handle(t, callback(11, "risk_smoking"))
	if len(f.sender.acks) != 1 || !strings.HasPrefix(f.sender.acks[0], "cb-risk_smoking|Добавлено") {
		t.Fatalf("acks: %v", f.sender.acks)
	}
	if msg.rows[0][0].Text != "✅ "+riskNames[health.RiskSmoking] {
		t.Fatalf("keyboard should mark smoking: %+v", msg.rows[0])
	}
	p, _ := f.health.GetProfile(context.Background(), 11)
	if !p.HasRiskFactor(health.RiskSmoking) {
		t.Fatalf("smoking not stored")
	}
}

func TestPickConditionOffersCommunity(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, 12, health.GenderFemale, 33)

	msg := f.handle(t, callback(12, "condition_vitiligo"))
	if !strings.Contains(msg.text, "Витилиго: поддержка и лечение") {
		t.Fatalf("community missing:\n%s", msg.text)
	}
	if msg.rows[0][0].URL != "https://max.ru/vitiligo_support" {
		t.Fatalf("first button should link to the community: %+v", msg.rows[0][0])
	}

	msg = f.handle(t, callback(12, "communities"))
	if !strings.Contains(msg.text, "Витилиго") {
		t.Fatalf("suggestions: %q", msg.text)
	}
}

func TestCustomConditionFromText(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, 13, health.GenderMale, 40)

	f.handle(t, callback(13, "condition_other"))
	msg := f.handle(t, message(13, "Бронхиальная астма"))
	if !strings.Contains(msg.text, "«Бронхиальная астма»") {
		t.Fatalf("confirmation: %q", msg.text)
	}
	p, _ := f.health.GetProfile(context.Background(), 13)
	if !p.HasCondition("custom_бронхиальная_астма") {
		t.Fatalf("conditions: %+v", p.Conditions)
	}
}

func TestHealthDiaryAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createProfile(t, 14, health.GenderFemale, 29)
	for _, v := range []float64{60, 61, 62} {
		if _, err := f.health.AddMetric(ctx, 14, health.MetricInput{MetricType: health.MetricWeight, Value: map[string]float64{"value": v}}); err != nil {
			t.Fatalf("AddMetric: %v", err)
		}
	}

	msg := f.handle(t, callback(14, "health_diary"))
	if !strings.Contains(msg.text, "Записей показателей: 3") || !strings.Contains(msg.text, "Вес: 62") {
		t.Fatalf("diary:\n%s", msg.text)
	}
	msg = f.handle(t, callback(14, "health_stats"))
	if !strings.Contains(msg.text, "Вес: тренд стабильный") || !strings.Contains(msg.text, "Пульс: недостаточно данных") {
		t.Fatalf("stats:\n%s", msg.text)
	}
}

func TestHealthReportCallback(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, 15, health.GenderMale, 60)

	if err := f.bot.HandleUpdate(context.Background(), callback(15, "health_report")); err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
	if f.reports.chatID != chatOffset+15 || len(f.reports.schedule) == 0 {
		t.Fatalf("report not sent: %+v", f.reports)
	}
}

func TestClinicsNearbyAsksForCity(t *testing.T) {
	f := newFixture(t)
	f.createProfile(t, 16, health.GenderFemale, 36)

	msg := f.handle(t, callback(16, "clinics_nearby"))
	if !strings.Contains(msg.text, "город") {
		t.Fatalf("prompt: %q", msg.text)
	}
	msg = f.handle(t, message(16, "Казань"))
	if !strings.Contains(msg.rows[0][0].URL, "yandex.ru/maps") {
		t.Fatalf("expected a map link: %+v", msg.rows)
	}
	p, _ := f.health.GetProfile(context.Background(), 16)
	if p.Location != "Казань" {
		t.Fatalf("location not stored: %q", p.Location)
	}
}

func TestSenderErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("max api down")
	if err := f.bot.HandleUpdate(context.Background(), message(17, "помощь")); err == nil {
		t.Fatalf("expected the send error to propagate")
	}
}

func TestBotStoppedDropsState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.handle(t, callback(18, "symptom_chest"))
	f.handle(t, callback(18, "add_pulse"))

	stopped := maxapi.Update{UpdateType: maxapi.UpdateBotStopped, User: &maxapi.User{UserID: 18}}
	if err := f.bot.HandleUpdate(ctx, stopped); err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
	if _, err := f.sessions.Get(ctx, 18); !errors.Is(err, symptom.ErrSessionNotFound) {
		t.Fatalf("session should be gone, got %v", err)
	}
	if _, ok := f.bot.pending.get(18); ok {
		t.Fatalf("pending input should be gone")
	}
}
