package health

import (
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

type RiskFactor string

const (
	RiskSmoking       RiskFactor = "smoking"
	RiskAlcohol       RiskFactor = "alcohol"
	RiskObesity       RiskFactor = "obesity"
	RiskSedentary     RiskFactor = "sedentary"
	RiskFamilyHistory RiskFactor = "family_history"
)

// RiskFactors lists every accepted risk factor in display order.
var RiskFactors = []RiskFactor{RiskSmoking, RiskAlcohol, RiskObesity, RiskSedentary, RiskFamilyHistory}

type MedicalCondition struct {
	ConditionID   string     `json:"condition_id"`
	Name          string     `json:"name"`
	DiagnosisDate *time.Time `json:"diagnosis_date,omitempty"`
	Severity      string     `json:"severity,omitempty"`
}

// UserProfile is keyed by the chat platform user id.
type UserProfile struct {
	UserID        int64              `json:"user_id"`
	Gender        Gender             `json:"gender"`
	Age           int                `json:"age"`
	RiskFactors   []RiskFactor       `json:"risk_factors"`
	Conditions    []MedicalCondition `json:"conditions"`
	FamilyHistory []string           `json:"family_history"`
	Location      string             `json:"location,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func (p *UserProfile) HasRiskFactor(f RiskFactor) bool {
	for _, rf := range p.RiskFactors {
		if rf == f {
			return true
		}
	}
	return false
}

func (p *UserProfile) HasCondition(id string) bool {
	for _, c := range p.Conditions {
		if c.ConditionID == id {
			return true
		}
	}
	return false
}

// ProfileUpdate carries the fields to overwrite; nil fields are left as is.
type ProfileUpdate struct {
	Gender        *Gender             `json:"gender,omitempty"`
	Age           *int                `json:"age,omitempty"`
	RiskFactors   *[]RiskFactor       `json:"risk_factors,omitempty"`
	Conditions    *[]MedicalCondition `json:"conditions,omitempty"`
	FamilyHistory *[]string           `json:"family_history,omitempty"`
	Location      *string             `json:"location,omitempty"`
}

// Apply merges u into p. It does not touch timestamps.
func (u ProfileUpdate) Apply(p *UserProfile) {
	if u.Gender != nil {
		p.Gender = *u.Gender
	}
	if u.Age != nil {
		p.Age = *u.Age
	}
	if u.RiskFactors != nil {
		p.RiskFactors = dedupeRiskFactors(*u.RiskFactors)
	}
	if u.Conditions != nil {
		p.Conditions = append([]MedicalCondition{}, (*u.Conditions)...)
	}
	if u.FamilyHistory != nil {
		p.FamilyHistory = append([]string{}, (*u.FamilyHistory)...)
	}
	if u.Location != nil {
		p.Location = *u.Location
	}
}

// Metric types understood by validation and trend analysis.
const (
	MetricPressure    = "pressure"
	MetricPulse       = "pulse"
	MetricTemperature = "temperature"
	MetricWeight      = "weight"
)

// HealthMetric is one diary entry. Value holds named readings, e.g.
// {"systolic":120,"diastolic":80} or {"value":72}.
type HealthMetric struct {
	ID        uuid.UUID          `json:"id"`
	UserID    int64              `json:"user_id"`
	Type      string             `json:"metric_type"`
	Value     map[string]float64 `json:"value"`
	Timestamp time.Time          `json:"timestamp"`
	Notes     string             `json:"notes,omitempty"`
}

type Summary struct {
	Profile         *UserProfile   `json:"profile"`
	RecentMetrics   []HealthMetric `json:"recent_metrics"`
	ConditionsCount int            `json:"conditions_count"`
	MetricsCount    int            `json:"metrics_count"`
	LastUpdate      time.Time      `json:"last_update"`
}

type Trend struct {
	Message     string   `json:"message,omitempty"`
	Average     float64  `json:"average,omitempty"`
	Direction   string   `json:"trend,omitempty"`
	DataPoints  int      `json:"data_points,omitempty"`
	LatestValue *float64 `json:"latest_value,omitempty"`
}

func dedupeRiskFactors(in []RiskFactor) []RiskFactor {
	out := make([]RiskFactor, 0, len(in))
	seen := make(map[RiskFactor]bool, len(in))
	for _, f := range in {
		if seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func cloneProfile(p *UserProfile) *UserProfile {
	c := *p
	c.RiskFactors = append([]RiskFactor{}, p.RiskFactors...)
	c.Conditions = append([]MedicalCondition{}, p.Conditions...)
	c.FamilyHistory = append([]string{}, p.FamilyHistory...)
	return &c
}

func cloneMetric(m HealthMetric) HealthMetric {
	v := make(map[string]float64, len(m.Value))
	for k, x := range m.Value {
		v[k] = x
	}
	m.Value = v
	return m
}
