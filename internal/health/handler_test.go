package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"health-compass/internal/platform/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newTestService()
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(svc, logger.Nop()))
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s %s: %v (body=%q)", method, path, err, rec.Body.String())
	}
	return rec, out
}

func TestProfileEndpoints(t *testing.T) {
	h := newTestRouter(t)

	rec, body := doJSON(t, h, http.MethodPost, "/profile?user_id=12", `{"gender":"female","age":44,"risk_factors":["smoking"]}`)
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("create: code=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/profile/12", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: code=%d", rec.Code)
	}
	if body["gender"] != "female" || body["age"].(float64) != 44 {
		t.Fatalf("get: unexpected body %v", body)
	}

	rec, body = doJSON(t, h, http.MethodPatch, "/profile/12", `{"location":"Тверь"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: code=%d body=%v", rec.Code, body)
	}
	profile := body["profile"].(map[string]interface{})
	if profile["location"] != "Тверь" || profile["age"].(float64) != 44 {
		t.Fatalf("patch: unexpected profile %v", profile)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/profile/12/conditions", `{"condition_id":"diabetes","name":"Диабет"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("condition: code=%d", rec.Code)
	}
}

func TestProfileEndpointErrors(t *testing.T) {
	h := newTestRouter(t)
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		code   int
	}{
		{"missing user id", http.MethodPost, "/profile", `{"gender":"male","age":30}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/profile?user_id=1", `{`, http.StatusBadRequest},
		{"bad gender", http.MethodPost, "/profile?user_id=1", `{"gender":"x","age":30}`, http.StatusBadRequest},
		{"unknown profile", http.MethodGet, "/profile/999", "", http.StatusNotFound},
		{"non numeric id", http.MethodGet, "/profile/abc", "", http.StatusBadRequest},
		{"patch unknown", http.MethodPatch, "/profile/5", `{"age":20}`, http.StatusNotFound},
		{"trend without type", http.MethodGet, "/health-trends/1", "", http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/health-metrics/1?limit=zero", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := doJSON(t, h, tc.method, tc.path, tc.body)
			if rec.Code != tc.code {
				t.Fatalf("code: got=%d want=%d body=%v", rec.Code, tc.code, body)
			}
			if body["status"] != "error" || body["detail"] == "" {
				t.Fatalf("unexpected error body %v", body)
			}
		})
	}
}

func TestMetricEndpoints(t *testing.T) {
	h := newTestRouter(t)

	for _, v := range []string{"61", "72", "83"} {
		rec, body := doJSON(t, h, http.MethodPost, "/health-metrics?user_id=3", `{"metric_type":"pulse","value":{"value":`+v+`}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("add metric: code=%d body=%v", rec.Code, body)
		}
	}
	rec, body := doJSON(t, h, http.MethodPost, "/health-metrics?user_id=3", `{"metric_type":"pulse","value":{"value":500}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range metric: code=%d body=%v", rec.Code, body)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/health-metrics/3?limit=2&metric_type=pulse", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: code=%d", rec.Code)
	}
	metrics := body["metrics"].([]interface{})
	if len(metrics) != 2 {
		t.Fatalf("list: got %d metrics", len(metrics))
	}
	first := metrics[0].(map[string]interface{})["value"].(map[string]interface{})
	if first["value"].(float64) != 83 {
		t.Fatalf("list: newest first expected, got %v", first)
	}

	rec, body = doJSON(t, h, http.MethodGet, "/health-trends/3?metric_type=pulse", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("trend: code=%d", rec.Code)
	}
	trend := body["trend"].(map[string]interface{})
	if trend["trend"] != TrendStable || trend["data_points"].(float64) != 3 {
		t.Fatalf("trend: %v", trend)
	}
}
