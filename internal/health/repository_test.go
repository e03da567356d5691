package health

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
)

// openTestDB connects to TEST_DATABASE_URL and applies the schema. Tests
// using it are skipped when the variable is not set.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := NewPostgresStore(db)
	userID := time.Now().UnixNano() % 1_000_000_000
	t.Cleanup(func() {
		db.Exec(`DELETE FROM health_metrics WHERE user_id = $1`, userID)
		db.Exec(`DELETE FROM profiles WHERE user_id = $1`, userID)
	})

	now := time.Now().UTC().Truncate(time.Second)
	p := &UserProfile{UserID: userID, Gender: GenderMale, Age: 52, RiskFactors: []RiskFactor{RiskSmoking}, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateProfile(ctx, p); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	got, err := store.GetProfile(ctx, userID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if got.Age != 52 || !got.HasRiskFactor(RiskSmoking) {
		t.Fatalf("unexpected profile: %+v", got)
	}

	loc := "Самара"
	got, err = store.UpdateProfile(ctx, userID, ProfileUpdate{Location: &loc})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Location != loc || got.Age != 52 {
		t.Fatalf("merge failed: %+v", got)
	}

	for i, v := range []float64{60, 70, 80} {
		m := metricAt(userID, MetricPulse, v, now.Add(time.Duration(i)*time.Minute))
		if err := store.AppendMetric(ctx, m); err != nil {
			t.Fatalf("AppendMetric: %v", err)
		}
	}
	metrics, err := store.ListMetrics(ctx, userID, MetricPulse, 2)
	if err != nil {
		t.Fatalf("ListMetrics: %v", err)
	}
	if len(metrics) != 2 || metrics[0].Value["value"] != 80 {
		t.Fatalf("unexpected metrics: %+v", metrics)
	}

	if _, err := store.GetProfile(ctx, userID+1); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
