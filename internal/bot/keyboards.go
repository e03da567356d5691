package bot

import (
	"fmt"
	"net/url"
	"strings"

	"health-compass/internal/community"
	"health-compass/internal/health"
	"health-compass/internal/platform/maxapi"
	"health-compass/internal/symptom"
)

type keyboard = [][]maxapi.Button

var cb = maxapi.CallbackButton

var backToMenu = []maxapi.Button{cb("↩️ Главное меню", payloadMainMenu)}

func welcomeText(name string, returning bool) string {
	if name == "" {
		name = "друг"
	}
	if returning {
		return fmt.Sprintf("👋 С возвращением в Health Compass, %s!\n\n"+
			"Ваш персональный навигатор в мире здоровья готов помочь.", name)
	}
	return fmt.Sprintf("👋 Добро пожаловать в Health Compass, %s!\n\n"+
		"Я ваш помощник для отслеживания здоровья. Я помогу вам:\n"+
		"• 💉 Создать персональный календарь обследований\n"+
		"• 🤕 Разобраться с симптомами и найти нужного специалиста\n"+
		"• 🏥 Найти клиники и лаборатории рядом с вами\n"+
		"• 👥 Получить поддержку в сообществах по заболеваниям\n\n"+
		"Давайте создадим ваш профиль для персонализированных рекомендаций!", name)
}

func mainMenuKeyboard() keyboard {
	return keyboard{
		{cb("💉 Мои обследования", payloadMyScreenings), cb("🤕 Симптомы", payloadSymptoms)},
		{cb("🏥 Найти клинику", payloadFindClinic), cb("📊 Дневник здоровья", payloadHealthDiary)},
		{cb("👥 Сообщества", payloadCommunities), cb("👤 Профиль", payloadProfile)},
		{cb("ℹ️ Помощь", payloadHelp)},
	}
}

const healthMenuText = "🏥 Health Compass - ваш навигатор в мире здоровья\n\nВыберите раздел:"

func healthMenuKeyboard() keyboard {
	return keyboard{
		{cb("💉 Плановые обследования", payloadMyScreenings), cb("🤕 Анализ симптомов", payloadSymptoms)},
		{cb("🏥 Поиск клиник", payloadFindClinic), cb("📊 Медицинский дневник", payloadHealthDiary)},
		{cb("👥 Сообщества поддержки", payloadCommunities), cb("👤 Управление профилем", payloadProfile)},
	}
}

func screeningKeyboard() keyboard {
	return keyboard{
		{cb("🏥 Найти клинику для обследований", payloadFindClinic)},
		{cb("📄 Отчёт в PDF", payloadHealthReport)},
		{cb("🔄 Обновить профиль", payloadEditProfile)},
	}
}

const symptomsText = "🤕 Где вы чувствуете недомогание?"

func symptomsKeyboard() keyboard {
	return keyboard{
		{cb("Голова", prefixSymptom+"head"), cb("Грудь", prefixSymptom+"chest")},
		{cb("Живот", prefixSymptom+"abdomen"), cb("Спина", prefixSymptom+"back")},
		{cb("Конечности", prefixSymptom+"limbs"), cb("Общее недомогание", prefixSymptom+"general")},
	}
}

// questionKeyboard renders one option per row; payloads carry the question
// and option indexes.
func questionKeyboard(q symptom.Question) keyboard {
	rows := make(keyboard, 0, len(q.Options))
	for i, opt := range q.Options {
		rows = append(rows, []maxapi.Button{cb(opt, symptomAnswerPayload(q.Index, i))})
	}
	return rows
}

func recommendationText(r *symptom.Recommendation) string {
	urgency := "Средняя"
	if r.Urgency == symptom.UrgencyHigh {
		urgency = "Высокая"
	}
	return fmt.Sprintf("🎯 Рекомендации:\n\n%s\n\n👨‍⚕️ Специалисты: %s\n📋 Обследования: %s\n🚨 Срочность: %s",
		r.Message, strings.Join(r.Specialists, ", "), strings.Join(r.Examinations, ", "), urgency)
}

func recommendationKeyboard() keyboard {
	return keyboard{
		{cb("🏥 Найти клинику", payloadFindClinic)},
		{cb("🤕 Новый симптом", payloadSymptoms)},
		backToMenu,
	}
}

const findClinicText = "🏥 Поиск медицинских учреждений\n\nВыберите тип учреждения:"

func findClinicKeyboard() keyboard {
	return keyboard{
		{cb("🩺 Поликлиника", prefixClinic+"polyclinic"), cb("🏥 Больница", prefixClinic+"hospital")},
		{cb("🧪 Лаборатория", prefixClinic+"lab"), cb("📊 Диагностика", prefixClinic+"diagnostic")},
		{cb("📍 Рядом со мной", payloadClinicsNearby)},
	}
}

var clinicQueries = map[string]string{
	"polyclinic": "поликлиника",
	"hospital":   "больница",
	"lab":        "медицинская лаборатория",
	"diagnostic": "диагностический центр",
}

var clinicTitles = map[string]string{
	"polyclinic": "Поликлиники",
	"hospital":   "Больницы",
	"lab":        "Лаборатории",
	"diagnostic": "Диагностические центры",
}

// clinicSearchURL builds a map search link, narrowed to the user's city when
// it is known.
func clinicSearchURL(query, location string) string {
	if location != "" {
		query += " " + location
	}
	return "https://yandex.ru/maps/?text=" + url.QueryEscape(query)
}

func clinicKeyboard(kind, location string) keyboard {
	return keyboard{
		{maxapi.LinkButton("🗺️ Открыть на карте", clinicSearchURL(clinicQueries[kind], location))},
		{cb("↩️ Назад", payloadFindClinic)},
	}
}

func diaryText(s *health.Summary) string {
	var b strings.Builder
	b.WriteString("📊 Ваш дневник здоровья:\n\n")
	fmt.Fprintf(&b, "• Заболевания: %d\n", s.ConditionsCount)
	fmt.Fprintf(&b, "• Записей показателей: %d\n", s.MetricsCount)
	fmt.Fprintf(&b, "• Последнее обновление: %s\n\n", s.LastUpdate.Format("02.01.2006"))
	if len(s.RecentMetrics) > 0 {
		b.WriteString("📈 Последние показатели:\n")
		recent := s.RecentMetrics
		if len(recent) > 3 {
			recent = recent[:3]
		}
		for _, m := range recent {
			fmt.Fprintf(&b, "• %s: %s\n", metricNames[m.Type], formatMetric(m))
		}
	}
	return b.String()
}

func diaryKeyboard() keyboard {
	return keyboard{
		{cb("❤️ Давление", prefixAddMetric+health.MetricPressure), cb("💓 Пульс", prefixAddMetric+health.MetricPulse)},
		{cb("🌡️ Температура", prefixAddMetric+health.MetricTemperature), cb("⚖️ Вес", prefixAddMetric+health.MetricWeight)},
		{cb("📈 Статистика", payloadHealthStats)},
		{cb("↩️ Назад", payloadMainMenu)},
	}
}

var metricNames = map[string]string{
	health.MetricPressure:    "Давление",
	health.MetricPulse:       "Пульс",
	health.MetricTemperature: "Температура",
	health.MetricWeight:      "Вес",
}

var metricPrompts = map[string]string{
	health.MetricPressure:    "❤️ Введите давление в формате 120/80",
	health.MetricPulse:       "💓 Введите пульс (уд/мин)",
	health.MetricTemperature: "🌡️ Введите температуру, например 36,6",
	health.MetricWeight:      "⚖️ Введите вес в кг",
}

func formatMetric(m health.HealthMetric) string {
	if m.Type == health.MetricPressure {
		return fmt.Sprintf("%g/%g", m.Value["systolic"], m.Value["diastolic"])
	}
	return fmt.Sprintf("%g", m.Value["value"])
}

func profileText(p *health.UserProfile) string {
	gender := "Женский"
	if p.Gender == health.GenderMale {
		gender = "Мужской"
	}
	return fmt.Sprintf("👤 Ваш профиль:\n\n"+
		"• Возраст: %d лет\n"+
		"• Пол: %s\n"+
		"• Факторы риска: %d\n"+
		"• Заболевания: %d\n\n"+
		"Обновлено: %s",
		p.Age, gender, len(p.RiskFactors), len(p.Conditions), p.UpdatedAt.Format("02.01.2006 15:04"))
}

func profileKeyboard() keyboard {
	return keyboard{
		{cb("✏️ Редактировать", payloadEditProfile), cb("🩺 Добавить заболевание", payloadAddCondition)},
		{cb("📊 Добавить показатели", payloadAddMetrics), cb("📈 Статистика", payloadHealthStats)},
		{cb("↩️ Назад", payloadMainMenu)},
	}
}

const noProfileText = "👤 Профиль не найден\n\nДавайте создадим ваш персональный профиль для точных рекомендаций!"

func noProfileKeyboard() keyboard {
	return keyboard{
		{cb("📝 Создать профиль", payloadCreateProfile)},
		{cb("↩️ Назад", payloadMainMenu)},
	}
}

const askProfileText = "📝 Для персонализированных рекомендаций нужен ваш профиль.\n\nДавайте создадим его!"

func askProfileKeyboard() keyboard {
	return keyboard{
		{cb("📝 Создать профиль", payloadCreateProfile)},
		{cb("🚫 Пропустить", payloadSkipProfile)},
	}
}

const createProfileText = "📝 Создание профиля\n\nДля персонализированных рекомендаций нужна базовая информация."

func genderKeyboard() keyboard {
	return keyboard{
		{cb("👨 Мужской", prefixGender+string(health.GenderMale))},
		{cb("👩 Женский", prefixGender+string(health.GenderFemale))},
		{cb("↩️ Отмена", payloadMainMenu)},
	}
}

const editProfileText = "✏️ Редактирование профиля\n\nЧто хотите изменить?"

func editProfileKeyboard() keyboard {
	return keyboard{
		{cb("🎂 Возраст", payloadEditAge)},
		{cb("🚬 Факторы риска", payloadEditRisks)},
		{cb("🩺 Заболевания", payloadEditConditions)},
		{cb("👨‍👩‍👧‍👦 Семейная история", payloadEditFamily)},
		{cb("↩️ Назад", payloadProfile)},
	}
}

var riskNames = map[health.RiskFactor]string{
	health.RiskSmoking:       "🚬 Курение",
	health.RiskAlcohol:       "🍷 Алкоголь",
	health.RiskObesity:       "⚖️ Избыточный вес",
	health.RiskSedentary:     "🪑 Малоподвижность",
	health.RiskFamilyHistory: "🧬 Наследственность",
}

const risksText = "🚬 Факторы риска\n\nНажмите, чтобы добавить или убрать:"

// risksKeyboard marks the factors already present in the profile.
func risksKeyboard(p *health.UserProfile) keyboard {
	rows := make(keyboard, 0, len(health.RiskFactors)+1)
	for _, f := range health.RiskFactors {
		label := riskNames[f]
		if p.HasRiskFactor(f) {
			label = "✅ " + label
		}
		rows = append(rows, []maxapi.Button{cb(label, prefixRisk+string(f))})
	}
	return append(rows, []maxapi.Button{cb("↩️ Назад", payloadEditProfile)})
}

const addConditionText = "🩺 Добавление заболевания\n\nВыберите заболевание:"

// otherCondition asks the user to type the condition name.
const otherCondition = "other"

var knownConditions = []struct{ ID, Label, Name string }{
	{"hypertension", "💙 Гипертония", "Гипертония"},
	{"diabetes", "🩸 Диабет", "Сахарный диабет"},
	{"vitiligo", "🎨 Витилиго", "Витилиго"},
	{"migraine", "🌀 Мигрень", "Мигрень"},
}

func conditionName(id string) (string, bool) {
	for _, c := range knownConditions {
		if c.ID == id {
			return c.Name, true
		}
	}
	return "", false
}

func addConditionKeyboard() keyboard {
	rows := make(keyboard, 0, len(knownConditions)+2)
	for _, c := range knownConditions {
		rows = append(rows, []maxapi.Button{cb(c.Label, prefixCondition+c.ID)})
	}
	return append(rows,
		[]maxapi.Button{cb("📝 Другое", prefixCondition+otherCondition)},
		[]maxapi.Button{cb("↩️ Назад", payloadProfile)},
	)
}

const noConditionsText = "👥 У вас нет зарегистрированных заболеваний для подключения к сообществам.\n\n" +
	"Если у вас есть заболевание, добавьте его в профиль для получения поддержки!"

// communityKeyboard offers a join link for every profile condition that has
// a community.
func communityKeyboard(dir *community.Directory, p *health.UserProfile) (string, keyboard) {
	var b strings.Builder
	b.WriteString("👥 Рекомендуемые сообщества поддержки:\n\n")
	rows := keyboard{}
	for _, c := range p.Conditions {
		comm, ok := dir.ForCondition(c.ConditionID)
		if !ok {
			continue
		}
		b.WriteString(dir.FormatMessage(c.ConditionID))
		b.WriteString("\n\n")
		rows = append(rows, []maxapi.Button{maxapi.LinkButton("Присоединиться: "+comm.Name, comm.ChatLink)})
	}
	if len(rows) == 0 {
		b.WriteString("Для ваших заболеваний пока нет отдельных сообществ.\n\n")
	}
	b.WriteString("Присоединяйтесь к сообществам для обмена опытом и поддержки!")
	rows = append(rows, []maxapi.Button{cb("📋 Все сообщества", payloadAllCommunities)})
	return b.String(), rows
}

func allCommunities(dir *community.Directory) (string, keyboard) {
	var b strings.Builder
	b.WriteString("👥 Все сообщества поддержки:\n\n")
	rows := keyboard{}
	for _, c := range dir.All() {
		fmt.Fprintf(&b, "• %s\n  %s\n\n", c.Name, c.Description)
		if c.ChatLink != "" {
			rows = append(rows, []maxapi.Button{maxapi.LinkButton("Присоединиться к "+c.Name, c.ChatLink)})
		}
	}
	rows = append(rows, []maxapi.Button{cb("↩️ Назад", payloadCommunities)})
	return b.String(), rows
}

const helpText = "ℹ️ Справка по Health Compass:\n\n" +
	"Основные команды:\n" +
	"• /start - Главное меню\n" +
	"• \"Здоровье\" - Основное меню\n" +
	"• \"Обследования\" - Персональный календарь\n" +
	"• \"Симптомы\" - Анализ симптомов\n" +
	"• \"Клиники\" - Поиск медицинских учреждений\n" +
	"• \"Сообщества\" - Группы поддержки\n" +
	"• \"Профиль\" - Управление профилем\n" +
	"• \"Помощь\" - Эта справка\n\n" +
	"💡 Используйте кнопки для удобной навигации!"

func helpKeyboard() keyboard {
	return keyboard{
		{cb("💉 Начать с обследований", payloadMyScreenings)},
		{cb("🤕 Проанализировать симптомы", payloadSymptoms)},
		backToMenu,
	}
}

const unknownText = "🤔 Я не понял вашу команду.\n\n" +
	"Используйте кнопки ниже или введите:\n" +
	"• \"Здоровье\" - для основного меню\n" +
	"• \"Обследования\" - для календаря обследований\n" +
	"• \"Симптомы\" - для анализа симптомов\n" +
	"• \"Помощь\" - для справки"

func unknownKeyboard() keyboard {
	return keyboard{
		{cb("💉 Обследования", payloadMyScreenings), cb("🤕 Симптомы", payloadSymptoms)},
		{cb("🏥 Клиники", payloadFindClinic), cb("👤 Профиль", payloadProfile)},
		{cb("ℹ️ Помощь", payloadHelp)},
	}
}

const (
	unknownCallbackText = "❌ Неизвестная команда. Используйте кнопки меню."
	noSessionText       = "❌ Сессия опроса не найдена. Начните заново."
)
