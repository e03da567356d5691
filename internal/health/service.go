package health

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateProfile validates in and stores a fresh profile for userID,
// replacing an existing one.
func (s *Service) CreateProfile(ctx context.Context, userID int64, in ProfileInput) (*UserProfile, error) {
	if userID <= 0 {
		return nil, invalid("ID пользователя должен быть положительным числом")
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	now := s.now()
	age, err := resolveAge(in, now)
	if err != nil {
		return nil, err
	}
	conditions, err := toConditions(in.Conditions)
	if err != nil {
		return nil, err
	}

	p := &UserProfile{
		UserID:        userID,
		Gender:        in.Gender,
		Age:           age,
		RiskFactors:   dedupeRiskFactors(in.RiskFactors),
		Conditions:    conditions,
		FamilyHistory: append([]string{}, in.FamilyHistory...),
		Location:      in.Location,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	return s.store.GetProfile(ctx, userID)
}

// UpdateProfile overwrites every field set in u.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, u ProfileUpdate) (*UserProfile, error) {
	if err := validateUpdate(u); err != nil {
		return nil, err
	}
	return s.store.UpdateProfile(ctx, userID, u)
}

func (s *Service) AddCondition(ctx context.Context, userID int64, in ConditionInput) (*UserProfile, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	conds, err := toConditions([]ConditionInput{in})
	if err != nil {
		return nil, err
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.HasCondition(in.ConditionID) {
		return p, nil
	}
	all := append(p.Conditions, conds[0])
	return s.store.UpdateProfile(ctx, userID, ProfileUpdate{Conditions: &all})
}

// ToggleRiskFactor adds f to the profile, or removes it if already present.
func (s *Service) ToggleRiskFactor(ctx context.Context, userID int64, f RiskFactor) (*UserProfile, error) {
	if !validRiskFactor(f) {
		return nil, invalid("Неверный фактор риска: %s", f)
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := make([]RiskFactor, 0, len(p.RiskFactors)+1)
	removed := false
	for _, rf := range p.RiskFactors {
		if rf == f {
			removed = true
			continue
		}
		next = append(next, rf)
	}
	if !removed {
		next = append(next, f)
	}
	return s.store.UpdateProfile(ctx, userID, ProfileUpdate{RiskFactors: &next})
}

func (s *Service) AddMetric(ctx context.Context, userID int64, in MetricInput) (*HealthMetric, error) {
	if userID <= 0 {
		return nil, invalid("ID пользователя должен быть положительным числом")
	}
	if err := checkStruct(in); err != nil {
		return nil, err
	}
	if err := ValidateMetric(in.MetricType, in.Value); err != nil {
		return nil, err
	}
	m := HealthMetric{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      in.MetricType,
		Value:     in.Value,
		Timestamp: s.now(),
		Notes:     SanitizeText(in.Notes),
	}
	if err := s.store.AppendMetric(ctx, m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Service) Metrics(ctx context.Context, userID int64, metricType string, limit int) ([]HealthMetric, error) {
	return s.store.ListMetrics(ctx, userID, metricType, limit)
}

func (s *Service) Summary(ctx context.Context, userID int64) (*Summary, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListMetrics(ctx, userID, "", 5)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Profile:         p,
		RecentMetrics:   recent,
		ConditionsCount: len(p.Conditions),
		MetricsCount:    len(recent),
		LastUpdate:      p.UpdatedAt,
	}, nil
}

const (
	TrendStable     = "стабильный"
	TrendRising     = "растущий"
	TrendDecreasing = "снижающийся"
)

// Trend compares the three newest readings of metricType with the three
// oldest of the last twenty; a change beyond 10% is reported as a direction.
func (s *Service) Trend(ctx context.Context, userID int64, metricType string) (*Trend, error) {
	metrics, err := s.store.ListMetrics(ctx, userID, metricType, 20)
	if err != nil {
		return nil, err
	}
	if len(metrics) < 2 {
		return &Trend{Message: "Недостаточно данных для анализа"}, nil
	}

	key := "value"
	if metricType == MetricPressure {
		key = "systolic"
	}
	values := make([]float64, 0, len(metrics))
	for _, m := range metrics {
		if v, ok := m.Value[key]; ok {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return &Trend{Message: "Нет числовых данных для анализа"}, nil
	}

	direction := TrendStable
	if len(values) >= 3 {
		recent := mean(values[:3])
		older := mean(values[len(values)-3:])
		switch {
		case recent > older*1.1:
			direction = TrendRising
		case recent < older*0.9:
			direction = TrendDecreasing
		}
	}
	latest := values[0]
	return &Trend{
		Average:     math.Round(mean(values)*100) / 100,
		Direction:   direction,
		DataPoints:  len(values),
		LatestValue: &latest,
	}, nil
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func resolveAge(in ProfileInput, now time.Time) (int, error) {
	switch {
	case in.Age != nil:
		return *in.Age, nil
	case in.BirthYear != nil:
		age := now.Year() - *in.BirthYear
		if age < 0 || age > 120 {
			return 0, invalid("Возраст должен быть от 0 до 120 лет")
		}
		return age, nil
	}
	return 0, invalid("Отсутствует обязательное поле: age")
}

func toConditions(in []ConditionInput) ([]MedicalCondition, error) {
	out := make([]MedicalCondition, 0, len(in))
	for _, c := range in {
		mc := MedicalCondition{ConditionID: c.ConditionID, Name: c.Name, Severity: c.Severity}
		if c.DiagnosisDate != "" {
			d, err := time.Parse("2006-01-02", c.DiagnosisDate)
			if err != nil {
				return nil, invalid("Неверный формат даты диагноза")
			}
			mc.DiagnosisDate = &d
		}
		out = append(out, mc)
	}
	return out, nil
}

func validRiskFactor(f RiskFactor) bool {
	for _, rf := range RiskFactors {
		if rf == f {
			return true
		}
	}
	return false
}

func validateUpdate(u ProfileUpdate) error {
	if u.Gender != nil && *u.Gender != GenderMale && *u.Gender != GenderFemale {
		return invalid("%s", fieldMessages["Gender"])
	}
	if u.Age != nil && (*u.Age < 0 || *u.Age > 120) {
		return invalid("%s", fieldMessages["Age"])
	}
	if u.RiskFactors != nil {
		for _, f := range *u.RiskFactors {
			if !validRiskFactor(f) {
				return invalid("Неверный фактор риска: %s", f)
			}
		}
	}
	if u.Conditions != nil {
		for _, c := range *u.Conditions {
			if c.ConditionID == "" || c.Name == "" {
				return invalid("Заболевание должно содержать condition_id и name")
			}
		}
	}
	return nil
}

// IsNotFound reports whether err means the profile does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProfileNotFound)
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
