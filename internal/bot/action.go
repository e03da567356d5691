package bot

import (
	"strconv"
	"strings"

	"health-compass/internal/health"
)

// Action is a parsed button payload. The set of implementations is closed;
// handlers switch on the concrete type.
type Action interface {
	isAction()
}

type (
	MainMenu        struct{}
	MyScreenings    struct{}
	Symptoms        struct{}
	SymptomBodyPart struct{ BodyPart string }
	SymptomAnswer   struct{ Question, Option int }
	FindClinic      struct{}
	ClinicType      struct{ Kind string }
	ClinicsNearby   struct{}
	HealthDiary     struct{}
	AddMetric       struct{ MetricType string }
	HealthStats     struct{}
	HealthReport    struct{}
	Communities     struct{}
	AllCommunities  struct{}
	ShowProfile     struct{}
	Help            struct{}
	CreateProfile   struct{}
	ProfileGender   struct{ Gender health.Gender }
	SkipProfile     struct{}
	EditProfile     struct{}
	EditAge         struct{}
	EditRisks       struct{}
	ToggleRisk      struct{ Factor health.RiskFactor }
	EditFamily      struct{}
	AddCondition    struct{}
	PickCondition   struct{ ConditionID string }
	// Unknown is any payload that does not parse.
	Unknown struct{ Payload string }
)

func (MainMenu) isAction()        {}
func (MyScreenings) isAction()    {}
func (Symptoms) isAction()        {}
func (SymptomBodyPart) isAction() {}
func (SymptomAnswer) isAction()   {}
func (FindClinic) isAction()      {}
func (ClinicType) isAction()      {}
func (ClinicsNearby) isAction()   {}
func (HealthDiary) isAction()     {}
func (AddMetric) isAction()       {}
func (HealthStats) isAction()     {}
func (HealthReport) isAction()    {}
func (Communities) isAction()     {}
func (AllCommunities) isAction()  {}
func (ShowProfile) isAction()     {}
func (Help) isAction()            {}
func (CreateProfile) isAction()   {}
func (ProfileGender) isAction()   {}
func (SkipProfile) isAction()     {}
func (EditProfile) isAction()     {}
func (EditAge) isAction()         {}
func (EditRisks) isAction()       {}
func (ToggleRisk) isAction()      {}
func (EditFamily) isAction()      {}
func (AddCondition) isAction()    {}
func (PickCondition) isAction()   {}
func (Unknown) isAction()         {}

// Button payloads.
const (
	payloadMainMenu       = "main_menu"
	payloadMyScreenings   = "my_screenings"
	payloadSymptoms       = "symptoms"
	payloadFindClinic     = "find_clinic"
	payloadClinicsNearby  = "clinics_nearby"
	payloadHealthDiary    = "health_diary"
	payloadAddMetrics     = "add_metrics"
	payloadHealthStats    = "health_stats"
	payloadHealthReport   = "health_report"
	payloadCommunities    = "communities"
	payloadAllCommunities = "all_communities"
	payloadProfile        = "profile"
	payloadHelp           = "help"
	payloadCreateProfile  = "create_profile"
	payloadSkipProfile    = "skip_profile"
	payloadEditProfile    = "edit_profile"
	payloadEditAge        = "edit_age"
	payloadEditRisks      = "edit_risks"
	payloadEditConditions = "edit_conditions"
	payloadEditFamily     = "edit_family"
	payloadAddCondition   = "add_condition"

	prefixSymptomAnswer = "symptom_answer_"
	prefixSymptom       = "symptom_"
	prefixClinic        = "clinic_"
	prefixAddMetric     = "add_"
	prefixGender        = "profile_gender_"
	prefixRisk          = "risk_"
	prefixCondition     = "condition_"
)

// symptomBodyParts maps the body-part button suffix to a rule table key.
var symptomBodyParts = map[string]string{
	"head":    "headache",
	"chest":   "chest_pain",
	"abdomen": "abdominal_pain",
	"back":    "back_pain",
	"limbs":   "limb_pain",
	"general": "general_pain",
}

var clinicKinds = map[string]bool{
	"polyclinic": true,
	"hospital":   true,
	"lab":        true,
	"diagnostic": true,
}

var metricTypes = map[string]bool{
	health.MetricPressure:    true,
	health.MetricPulse:       true,
	health.MetricTemperature: true,
	health.MetricWeight:      true,
}

var exact = map[string]Action{
	payloadMainMenu:       MainMenu{},
	payloadMyScreenings:   MyScreenings{},
	payloadSymptoms:       Symptoms{},
	payloadFindClinic:     FindClinic{},
	payloadClinicsNearby:  ClinicsNearby{},
	payloadHealthDiary:    HealthDiary{},
	payloadAddMetrics:     HealthDiary{},
	payloadHealthStats:    HealthStats{},
	payloadHealthReport:   HealthReport{},
	payloadCommunities:    Communities{},
	payloadAllCommunities: AllCommunities{},
	payloadProfile:        ShowProfile{},
	payloadHelp:           Help{},
	payloadCreateProfile:  CreateProfile{},
	payloadSkipProfile:    SkipProfile{},
	payloadEditProfile:    EditProfile{},
	payloadEditAge:        EditAge{},
	payloadEditRisks:      EditRisks{},
	payloadEditConditions: AddCondition{},
	payloadEditFamily:     EditFamily{},
	payloadAddCondition:   AddCondition{},
}

// ParseAction turns a button payload into an Action. symptom_answer_ is
// checked before the shorter symptom_ prefix.
func ParseAction(payload string) Action {
	if a, ok := exact[payload]; ok {
		return a
	}
	switch {
	case strings.HasPrefix(payload, prefixSymptomAnswer):
		parts := strings.Split(strings.TrimPrefix(payload, prefixSymptomAnswer), "_")
		if len(parts) != 2 {
			break
		}
		q, errQ := strconv.Atoi(parts[0])
		o, errO := strconv.Atoi(parts[1])
		if errQ != nil || errO != nil || q < 0 || o < 0 {
			break
		}
		return SymptomAnswer{Question: q, Option: o}
	case strings.HasPrefix(payload, prefixSymptom):
		if bp, ok := symptomBodyParts[strings.TrimPrefix(payload, prefixSymptom)]; ok {
			return SymptomBodyPart{BodyPart: bp}
		}
	case strings.HasPrefix(payload, prefixClinic):
		if kind := strings.TrimPrefix(payload, prefixClinic); clinicKinds[kind] {
			return ClinicType{Kind: kind}
		}
	case strings.HasPrefix(payload, prefixAddMetric):
		if t := strings.TrimPrefix(payload, prefixAddMetric); metricTypes[t] {
			return AddMetric{MetricType: t}
		}
	case strings.HasPrefix(payload, prefixGender):
		switch g := health.Gender(strings.TrimPrefix(payload, prefixGender)); g {
		case health.GenderMale, health.GenderFemale:
			return ProfileGender{Gender: g}
		}
	case strings.HasPrefix(payload, prefixRisk):
		f := health.RiskFactor(strings.TrimPrefix(payload, prefixRisk))
		for _, known := range health.RiskFactors {
			if f == known {
				return ToggleRisk{Factor: f}
			}
		}
	case strings.HasPrefix(payload, prefixCondition):
		if id := strings.TrimPrefix(payload, prefixCondition); id != "" {
			return PickCondition{ConditionID: id}
		}
	}
	return Unknown{Payload: payload}
}

func symptomAnswerPayload(question, option int) string {
	return prefixSymptomAnswer + strconv.Itoa(question) + "_" + strconv.Itoa(option)
}
