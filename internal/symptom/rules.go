package symptom

import "fmt"

type Urgency string

const (
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// DefaultKey is the mandatory fallback entry of every rule's recommendations.
const DefaultKey = "default"

// QuestionSpec is one step of a body part's questionnaire. Key names the
// answer slot the chosen option is recorded under.
type QuestionSpec struct {
	Key     string
	Text    string
	Options []string
}

type Recommendation struct {
	ID           string   `json:"id"`
	Specialists  []string `json:"specialists"`
	Examinations []string `json:"examinations"`
	Urgency      Urgency  `json:"urgency"`
	Message      string   `json:"message"`
}

// Rule is the questionnaire and recommendation table for one body part.
// Recommendations are keyed by canonical answer string (see AnswersKey).
type Rule struct {
	BodyPart        string
	Title           string
	Questions       []QuestionSpec
	Recommendations map[string]Recommendation
}

// Table maps body part to its rule. It is built once and never mutated.
type Table struct {
	rules map[string]Rule
	order []string
}

// NewTable builds a table from rules, rejecting duplicates, empty
// questionnaires and rules without a default recommendation.
func NewTable(rules ...Rule) (*Table, error) {
	t := &Table{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		if _, dup := t.rules[r.BodyPart]; dup {
			return nil, fmt.Errorf("symptom: duplicate rule for %q", r.BodyPart)
		}
		if len(r.Questions) == 0 {
			return nil, fmt.Errorf("symptom: rule %q has no questions", r.BodyPart)
		}
		if _, ok := r.Recommendations[DefaultKey]; !ok {
			return nil, fmt.Errorf("symptom: rule %q has no default recommendation", r.BodyPart)
		}
		for i, q := range r.Questions {
			if len(q.Options) == 0 {
				return nil, fmt.Errorf("symptom: rule %q question %d has no options", r.BodyPart, i)
			}
		}
		t.rules[r.BodyPart] = r
		t.order = append(t.order, r.BodyPart)
	}
	return t, nil
}

func (t *Table) Rule(bodyPart string) (Rule, bool) {
	r, ok := t.rules[bodyPart]
	return r, ok
}

// BodyParts lists the known body parts in declaration order.
func (t *Table) BodyParts() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// DefaultTable returns the built-in questionnaire set.
func DefaultTable() *Table {
	t, err := NewTable(builtinRules()...)
	if err != nil {
		panic(err)
	}
	return t
}

func builtinRules() []Rule {
	return []Rule{
		{
			BodyPart: "headache",
			Title:    "Голова",
			Questions: []QuestionSpec{
				{Key: "pain_type", Text: "Опишите боль?", Options: []string{"Острая", "Тупая/Ноющая", "Пульсирующая", "Давящая"}},
				{Key: "duration", Text: "Как долго длится?", Options: []string{"Несколько часов", "Несколько дней", "Периодически неделями"}},
				{Key: "nausea", Text: "Есть ли тошнота?", Options: []string{"Да", "Нет"}},
				{Key: "vision_problems", Text: "Нарушено ли зрение?", Options: []string{"Да", "Нет"}},
			},
			Recommendations: map[string]Recommendation{
				DefaultKey: {
					ID:           DefaultKey,
					Specialists:  []string{"Терапевт", "Невролог"},
					Examinations: []string{"Общий анализ крови", "Измерение артериального давления"},
					Urgency:      UrgencyMedium,
					Message:      "Рекомендуем обратиться к специалисту для уточнения диагноза",
				},
				"пульсирующая_несколько_часов_да_да": {
					ID:           "pulsating_nausea_vision",
					Specialists:  []string{"Невролог", "Офтальмолог"},
					Examinations: []string{"МРТ головного мозга", "Осмотр глазного дна", "Общий анализ крови"},
					Urgency:      UrgencyHigh,
					Message:      "⚠️ Возможна мигрень или повышенное внутричерепное давление",
				},
			},
		},
		{
			BodyPart: "chest_pain",
			Title:    "Грудь",
			Questions: []QuestionSpec{
				{Key: "pain_type", Text: "Какая боль?", Options: []string{"Давящая", "Колющая", "Жгучая"}},
				{Key: "on_exertion", Text: "Усиливается при нагрузке?", Options: []string{"Да", "Нет"}},
				{Key: "short_breath", Text: "Есть ли одышка?", Options: []string{"Да", "Нет"}},
			},
			Recommendations: map[string]Recommendation{
				DefaultKey: {
					ID:           DefaultKey,
					Specialists:  []string{"Терапевт", "Кардиолог"},
					Examinations: []string{"ЭКГ", "Общий анализ крови"},
					Urgency:      UrgencyMedium,
					Message:      "Рекомендуем консультацию терапевта и ЭКГ",
				},
				"давящая_да_да": {
					ID:           "pressing_exertion_breath",
					Specialists:  []string{"Кардиолог"},
					Examinations: []string{"ЭКГ", "Тропониновый тест", "ЭхоКГ"},
					Urgency:      UrgencyHigh,
					Message:      "⚠️ Возможна стенокардия. При сильной боли вызовите скорую помощь (103)",
				},
			},
		},
		{
			BodyPart: "abdominal_pain",
			Title:    "Живот",
			Questions: []QuestionSpec{
				{Key: "location", Text: "Где болит?", Options: []string{"Вверху живота", "Внизу живота", "Справа", "Слева"}},
				{Key: "fever", Text: "Есть ли температура?", Options: []string{"Да", "Нет"}},
				{Key: "vomiting", Text: "Есть ли рвота?", Options: []string{"Да", "Нет"}},
			},
			Recommendations: map[string]Recommendation{
				DefaultKey: {
					ID:           DefaultKey,
					Specialists:  []string{"Терапевт", "Гастроэнтеролог"},
					Examinations: []string{"УЗИ брюшной полости", "Общий анализ крови"},
					Urgency:      UrgencyMedium,
					Message:      "Рекомендуем консультацию гастроэнтеролога",
				},
				"справа_да_да": {
					ID:           "right_fever_vomiting",
					Specialists:  []string{"Хирург"},
					Examinations: []string{"УЗИ брюшной полости", "Общий анализ крови"},
					Urgency:      UrgencyHigh,
					Message:      "⚠️ Возможен аппендицит. Срочно обратитесь к хирургу",
				},
			},
		},
		{
			BodyPart: "back_pain",
			Title:    "Спина",
			Questions: []QuestionSpec{
				{Key: "location", Text: "Локализация боли?", Options: []string{"Верх спины", "Поясница", "Копчик"}},
				{Key: "pain_type", Text: "Характер боли?", Options: []string{"Острая", "Ноющая", "Стреляющая"}},
				{Key: "radiates_to_legs", Text: "Отдает в ноги?", Options: []string{"Да", "Нет"}},
			},
			Recommendations: backPainRecommendations(),
		},
		{
			BodyPart: "limb_pain",
			Title:    "Конечности",
			Questions: []QuestionSpec{
				{Key: "location", Text: "Где болит?", Options: []string{"Суставы", "Мышцы", "Кости"}},
				{Key: "swelling", Text: "Есть ли отёк или покраснение?", Options: []string{"Да", "Нет"}},
			},
			Recommendations: map[string]Recommendation{
				DefaultKey: {
					ID:           DefaultKey,
					Specialists:  []string{"Терапевт", "Травматолог-ортопед"},
					Examinations: []string{"Рентген", "Общий анализ крови"},
					Urgency:      UrgencyMedium,
					Message:      "Рекомендуем консультацию специалиста",
				},
				"суставы_да": {
					ID:           "joints_swelling",
					Specialists:  []string{"Ревматолог"},
					Examinations: []string{"Ревмопробы", "С-реактивный белок", "УЗИ суставов"},
					Urgency:      UrgencyHigh,
					Message:      "⚠️ Возможен артрит. Рекомендуем консультацию ревматолога",
				},
			},
		},
		{
			BodyPart: "general_pain",
			Title:    "Общее недомогание",
			Questions: []QuestionSpec{
				{Key: "fever", Text: "Какая температура?", Options: []string{"Нормальная", "До 38", "Выше 38"}},
				{Key: "duration", Text: "Как долго длится?", Options: []string{"1-2 дня", "Больше 3 дней"}},
			},
			Recommendations: map[string]Recommendation{
				DefaultKey: {
					ID:           DefaultKey,
					Specialists:  []string{"Терапевт"},
					Examinations: []string{"Общий анализ крови", "Общий анализ мочи"},
					Urgency:      UrgencyMedium,
					Message:      "Рекомендуем обратиться к терапевту",
				},
				"выше_38_больше_3_дней": {
					ID:           "high_fever_long",
					Specialists:  []string{"Терапевт", "Инфекционист"},
					Examinations: []string{"Общий анализ крови", "С-реактивный белок", "Рентген грудной клетки"},
					Urgency:      UrgencyHigh,
					Message:      "⚠️ Длительная высокая температура требует очного осмотра врача",
				},
			},
		},
	}
}

func backPainRecommendations() map[string]Recommendation {
	shooting := Recommendation{
		ID:           "shooting_legs",
		Specialists:  []string{"Невролог", "Ортопед"},
		Examinations: []string{"МРТ позвоночника", "Консультация невролога"},
		Urgency:      UrgencyHigh,
		Message:      "⚠️ Возможны проблемы с межпозвонковыми дисками",
	}
	return map[string]Recommendation{
		DefaultKey: {
			ID:           DefaultKey,
			Specialists:  []string{"Терапевт", "Ортопед"},
			Examinations: []string{"Рентген позвоночника", "Общий анализ крови"},
			Urgency:      UrgencyMedium,
			Message:      "Рекомендуем консультацию специалиста",
		},
		"верх_спины_стреляющая_да": shooting,
		"поясница_стреляющая_да":   shooting,
		"копчик_стреляющая_да":     shooting,
	}
}
