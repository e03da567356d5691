package health

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("validation failed")

var validate = validator.New(validator.WithRequiredStructEnabled())

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ProfileInput is the payload for creating a profile. Either Age or BirthYear
// must be given; Age wins when both are set.
type ProfileInput struct {
	Gender        Gender           `json:"gender" validate:"required,oneof=male female"`
	Age           *int             `json:"age,omitempty" validate:"omitempty,min=0,max=120"`
	BirthYear     *int             `json:"birth_year,omitempty" validate:"omitempty,min=1900"`
	RiskFactors   []RiskFactor     `json:"risk_factors,omitempty" validate:"dive,oneof=smoking alcohol obesity sedentary family_history"`
	Conditions    []ConditionInput `json:"conditions,omitempty" validate:"dive"`
	FamilyHistory []string         `json:"family_history,omitempty" validate:"dive,required"`
	Location      string           `json:"location,omitempty" validate:"max=200"`
}

type ConditionInput struct {
	ConditionID   string `json:"condition_id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	DiagnosisDate string `json:"diagnosis_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Severity      string `json:"severity,omitempty" validate:"omitempty,oneof=mild moderate severe critical"`
}

type MetricInput struct {
	MetricType string             `json:"metric_type" validate:"required,oneof=pressure pulse temperature weight"`
	Value      map[string]float64 `json:"value" validate:"required"`
	Notes      string             `json:"notes,omitempty" validate:"max=1000"`
}

var fieldMessages = map[string]string{
	"Gender":        "Пол должен быть одним из: male, female",
	"Age":           "Возраст должен быть от 0 до 120 лет",
	"BirthYear":     "Неверный год рождения",
	"RiskFactors":   "Неверный фактор риска",
	"FamilyHistory": "Элементы семейной истории должны быть непустыми строками",
	"ConditionID":   "Отсутствует обязательное поле: condition_id",
	"Name":          "Отсутствует обязательное поле: name",
	"DiagnosisDate": "Неверный формат даты диагноза",
	"Severity":      "Степень тяжести должна быть одним из: mild, moderate, severe, critical",
	"MetricType":    "Неизвестный тип метрики",
	"Value":         "Отсутствует значение метрики",
	"Notes":         "Слишком длинная заметка",
	"Location":      "Слишком длинная локация",
}

// checkStruct runs the tag validation and turns the first failure into a
// readable ErrValidation.
func checkStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].StructField()
		if msg, ok := fieldMessages[field]; ok {
			return invalid("%s", msg)
		}
		return invalid("%s", verrs[0].Error())
	}
	return err
}

// ValidateMetric checks the readings of a metric against physiological ranges.
func ValidateMetric(metricType string, value map[string]float64) error {
	for _, v := range value {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid("Значение должно быть конечным числом")
		}
	}
	switch metricType {
	case MetricPressure:
		sys, okS := value["systolic"]
		dia, okD := value["diastolic"]
		if !okS || !okD {
			return invalid("Для давления требуются systolic и diastolic")
		}
		return validateBloodPressure(sys, dia)
	case MetricPulse:
		v, ok := value["value"]
		if !ok {
			return invalid("Для пульса требуется value")
		}
		if v < 30 {
			return invalid("Пульс слишком низкий")
		}
		if v > 200 {
			return invalid("Пульс слишком высокий")
		}
	case MetricTemperature:
		v, ok := value["value"]
		if !ok {
			return invalid("Для температуры требуется value")
		}
		if v < 35.0 {
			return invalid("Температура слишком низкая")
		}
		if v > 42.0 {
			return invalid("Температура слишком высокая")
		}
	case MetricWeight:
		v, ok := value["value"]
		if !ok {
			return invalid("Для веса требуется value")
		}
		if v <= 0 {
			return invalid("Вес должен быть положительным числом")
		}
		if v > 300 {
			return invalid("Вес слишком большой")
		}
	default:
		return invalid("Неизвестный тип метрики: %s", metricType)
	}
	return nil
}

func validateBloodPressure(systolic, diastolic float64) error {
	switch {
	case systolic < 60:
		return invalid("Систолическое давление слишком низкое")
	case systolic > 250:
		return invalid("Систолическое давление слишком высокое")
	case diastolic < 40:
		return invalid("Диастолическое давление слишком низкое")
	case diastolic > 150:
		return invalid("Диастолическое давление слишком высокое")
	case systolic <= diastolic:
		return invalid("Систолическое давление должно быть выше диастолического")
	}
	return nil
}

var pressurePattern = regexp.MustCompile(`^(\d{2,3})/(\d{2,3})$`)

// ParseMetricText parses a reading typed into the chat: "120/80" for
// pressure, a single number (comma or dot decimal) for everything else.
func ParseMetricText(metricType, text string) (map[string]float64, error) {
	text = strings.TrimSpace(text)
	var value map[string]float64
	if metricType == MetricPressure {
		m := pressurePattern.FindStringSubmatch(text)
		if m == nil {
			return nil, invalid("Введите давление в формате 120/80")
		}
		sys, _ := strconv.Atoi(m[1])
		dia, _ := strconv.Atoi(m[2])
		value = map[string]float64{"systolic": float64(sys), "diastolic": float64(dia)}
	} else {
		v, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
		if err != nil {
			return nil, invalid("Введите число")
		}
		value = map[string]float64{"value": v}
	}
	if err := ValidateMetric(metricType, value); err != nil {
		return nil, err
	}
	return value, nil
}

var unsafeChars = regexp.MustCompile("[<>{}\\[\\]$&|`]")

// SanitizeText strips markup-like characters and caps length at 1000 runes.
func SanitizeText(s string) string {
	s = unsafeChars.ReplaceAllString(s, "")
	r := []rune(s)
	if len(r) > 1000 {
		r = r[:1000]
	}
	return string(r)
}
