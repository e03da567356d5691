package screening

import "health-compass/internal/health"

// Rule is one preventive examination. Zero values mean "no restriction":
// EndAge 0 has no upper bound, an empty Gender applies to everyone.
type Rule struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	FrequencyYears      int                 `json:"frequency_years"`
	StartAge            int                 `json:"start_age"`
	EndAge              int                 `json:"end_age,omitempty"`
	Gender              health.Gender       `json:"gender_specific,omitempty"`
	RiskFactorsRequired []health.RiskFactor `json:"risk_factors_required,omitempty"`
	ConditionsRequired  []string            `json:"conditions_required,omitempty"`
}

// DefaultRules returns the built-in examination list in declaration order.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:             "blood_pressure",
			Name:           "Измерение артериального давления",
			Description:    "Контроль артериального давления",
			FrequencyYears: 1,
			StartAge:       18,
		},
		{
			ID:                  "blood_sugar_40",
			Name:                "Анализ крови на сахар",
			Description:         "Контроль уровня глюкозы для выявления диабета",
			FrequencyYears:      3,
			StartAge:            40,
			RiskFactorsRequired: []health.RiskFactor{health.RiskObesity, health.RiskFamilyHistory},
		},
		{
			ID:             "cholesterol_35",
			Name:           "Анализ на холестерин",
			Description:    "Контроль липидного профиля",
			FrequencyYears: 5,
			StartAge:       35,
		},
		{
			ID:             "psa_men_45",
			Name:           "Анализ ПСА",
			Description:    "Скрининг рака простаты",
			FrequencyYears: 2,
			StartAge:       45,
			Gender:         health.GenderMale,
		},
		{
			ID:             "mammography_40",
			Name:           "Маммография",
			Description:    "Скрининг рака молочной железы",
			FrequencyYears: 2,
			StartAge:       40,
			Gender:         health.GenderFemale,
		},
		{
			ID:                  "ct_lungs_smokers",
			Name:                "Низкодозовая КТ легких",
			Description:         "Скрининг рака легких для курильщиков",
			FrequencyYears:      1,
			StartAge:            40,
			RiskFactorsRequired: []health.RiskFactor{health.RiskSmoking},
		},
		{
			ID:             "colonoscopy_50",
			Name:           "Колоноскопия",
			Description:    "Скрининг рака толстой кишки",
			FrequencyYears: 10,
			StartAge:       50,
		},
	}
}

// Applies reports whether the rule is relevant for p.
func (r Rule) Applies(p *health.UserProfile) bool {
	if p.Age < r.StartAge || (r.EndAge > 0 && p.Age > r.EndAge) {
		return false
	}
	if r.Gender != "" && r.Gender != p.Gender {
		return false
	}
	if len(r.RiskFactorsRequired) > 0 && !anyRisk(p, r.RiskFactorsRequired) {
		return false
	}
	if len(r.ConditionsRequired) > 0 && !anyCondition(p, r.ConditionsRequired) {
		return false
	}
	return true
}

func anyRisk(p *health.UserProfile, required []health.RiskFactor) bool {
	for _, f := range required {
		if p.HasRiskFactor(f) {
			return true
		}
	}
	return false
}

func anyCondition(p *health.UserProfile, required []string) bool {
	for _, id := range required {
		if p.HasCondition(id) {
			return true
		}
	}
	return false
}
