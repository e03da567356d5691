package screening

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"health-compass/internal/health"
	"health-compass/internal/platform/logger"
)

func fixedScheduler() *Scheduler {
	s := NewScheduler()
	s.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func ids(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Rule.ID
	}
	return out
}

func TestScheduleFilters(t *testing.T) {
	cases := []struct {
		name    string
		profile health.UserProfile
		want    []string
	}{
		{
			name:    "young adult gets only blood pressure",
			profile: health.UserProfile{Gender: health.GenderMale, Age: 25},
			want:    []string{"blood_pressure"},
		},
		{
			name:    "minor gets nothing",
			profile: health.UserProfile{Gender: health.GenderFemale, Age: 17},
			want:    []string{},
		},
		{
			name:    "woman 42 without risks",
			profile: health.UserProfile{Gender: health.GenderFemale, Age: 42},
			want:    []string{"blood_pressure", "mammography_40", "cholesterol_35"},
		},
		{
			name:    "smoking man 55 with family history",
			profile: health.UserProfile{Gender: health.GenderMale, Age: 55, RiskFactors: []health.RiskFactor{health.RiskSmoking, health.RiskFamilyHistory}},
			want:    []string{"blood_pressure", "psa_men_45", "ct_lungs_smokers", "blood_sugar_40", "cholesterol_35", "colonoscopy_50"},
		},
		{
			name:    "smoker under start age is excluded",
			profile: health.UserProfile{Gender: health.GenderMale, Age: 39, RiskFactors: []health.RiskFactor{health.RiskSmoking}},
			want:    []string{"blood_pressure", "cholesterol_35"},
		},
	}
	s := fixedScheduler()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(s.Schedule(&tc.profile))
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Fatalf("schedule: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestScheduleItemFields(t *testing.T) {
	items := fixedScheduler().Schedule(&health.UserProfile{Gender: health.GenderMale, Age: 50})
	for _, it := range items {
		if it.NextDue != 2025 {
			t.Fatalf("%s: next_due=%d", it.Rule.ID, it.NextDue)
		}
		want := PriorityMedium
		if it.Rule.FrequencyYears <= 2 {
			want = PriorityHigh
		}
		if it.Priority != want {
			t.Fatalf("%s: priority=%s want=%s", it.Rule.ID, it.Priority, want)
		}
	}
}

func TestRuleConditionsAndEndAge(t *testing.T) {
	r := Rule{ID: "derm", StartAge: 18, EndAge: 60, ConditionsRequired: []string{"vitiligo"}}
	p := &health.UserProfile{Age: 30}
	if r.Applies(p) {
		t.Fatalf("rule should require the condition")
	}
	p.Conditions = []health.MedicalCondition{{ConditionID: "vitiligo", Name: "Витилиго"}}
	if !r.Applies(p) {
		t.Fatalf("rule should apply with the condition")
	}
	p.Age = 61
	if r.Applies(p) {
		t.Fatalf("rule should stop applying after end age")
	}
}

func TestFormatMessage(t *testing.T) {
	if msg := FormatMessage(nil); !strings.Contains(msg, "Отлично") {
		t.Fatalf("empty schedule message: %q", msg)
	}
	msg := FormatMessage(fixedScheduler().Schedule(&health.UserProfile{Gender: health.GenderMale, Age: 50}))
	for _, want := range []string{"Колоноскопия", "Каждые 10 лет", "Каждые 1 год", "HIGH", "MEDIUM"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q:\n%s", want, msg)
		}
	}
}

type profileMap map[int64]*health.UserProfile

func (m profileMap) GetProfile(_ context.Context, id int64) (*health.UserProfile, error) {
	p, ok := m[id]
	if !ok {
		return nil, health.ErrProfileNotFound
	}
	return p, nil
}

func TestScheduleHandler(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(fixedScheduler(), profileMap{1: {UserID: 1, Gender: health.GenderFemale, Age: 45}}, logger.Nop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screening-schedule/1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	var body struct {
		Status   string `json:"status"`
		Schedule []Item `json:"schedule"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || len(body.Schedule) != 3 || body.Schedule[1].Rule.ID != "mammography_40" {
		t.Fatalf("unexpected body: %+v", body)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/screening-schedule/2", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing profile: code=%d", rec.Code)
	}
}
