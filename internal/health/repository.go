package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type postgresRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore returns a Store backed by the profiles and health_metrics
// tables (see migrations/).
func NewPostgresStore(db *sql.DB) Store {
	return &postgresRepo{db: db, now: time.Now}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *postgresRepo) CreateProfile(ctx context.Context, p *UserProfile) error {
	return r.save(ctx, r.db, p)
}

func (r *postgresRepo) GetProfile(ctx context.Context, userID int64) (*UserProfile, error) {
	return r.load(ctx, r.db, userID, false)
}

func (r *postgresRepo) UpdateProfile(ctx context.Context, userID int64, u ProfileUpdate) (*UserProfile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	p, err := r.load(ctx, tx, userID, true)
	if err != nil {
		return nil, err
	}
	u.Apply(p)
	p.UpdatedAt = r.now()

	if err := r.save(ctx, tx, p); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *postgresRepo) load(ctx context.Context, q querier, userID int64, forUpdate bool) (*UserProfile, error) {
	query := `SELECT user_id, gender, age, risk_factors, conditions, family_history, location, created_at, updated_at
		FROM profiles WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var p UserProfile
	var risksJSON, conditionsJSON, familyJSON []byte
	err := q.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID,
		&p.Gender,
		&p.Age,
		&risksJSON,
		&conditionsJSON,
		&familyJSON,
		&p.Location,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if err := unmarshalColumn(risksJSON, &p.RiskFactors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal risk factors: %w", err)
	}
	if err := unmarshalColumn(conditionsJSON, &p.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	if err := unmarshalColumn(familyJSON, &p.FamilyHistory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal family history: %w", err)
	}
	return &p, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *postgresRepo) save(ctx context.Context, e execer, p *UserProfile) error {
	risksJSON, err := json.Marshal(nonNil(p.RiskFactors))
	if err != nil {
		return err
	}
	conditionsJSON, err := json.Marshal(nonNil(p.Conditions))
	if err != nil {
		return err
	}
	familyJSON, err := json.Marshal(nonNil(p.FamilyHistory))
	if err != nil {
		return err
	}

	query := `
		INSERT INTO profiles (user_id, gender, age, risk_factors, conditions, family_history, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			gender = $2,
			age = $3,
			risk_factors = $4,
			conditions = $5,
			family_history = $6,
			location = $7,
			created_at = $8,
			updated_at = $9
	`
	_, err = e.ExecContext(ctx, query,
		p.UserID, p.Gender, p.Age, risksJSON, conditionsJSON, familyJSON, p.Location, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *postgresRepo) AppendMetric(ctx context.Context, m HealthMetric) error {
	valueJSON, err := json.Marshal(m.Value)
	if err != nil {
		return err
	}
	query := `INSERT INTO health_metrics (id, user_id, metric_type, value, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.ExecContext(ctx, query, m.ID, m.UserID, m.Type, valueJSON, m.Notes, m.Timestamp)
	return err
}

func (r *postgresRepo) ListMetrics(ctx context.Context, userID int64, metricType string, limit int) ([]HealthMetric, error) {
	if limit <= 0 {
		limit = DefaultMetricsLimit
	}
	query := `SELECT id, user_id, metric_type, value, notes, recorded_at FROM health_metrics
		WHERE user_id = $1 AND ($2::text = '' OR metric_type = $2)
		ORDER BY recorded_at DESC, seq DESC
		LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, userID, metricType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HealthMetric{}
	for rows.Next() {
		var m HealthMetric
		var valueJSON []byte
		if err := rows.Scan(&m.ID, &m.UserID, &m.Type, &valueJSON, &m.Notes, &m.Timestamp); err != nil {
			return nil, err
		}
		if err := unmarshalColumn(valueJSON, &m.Value); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metric value: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func unmarshalColumn(b []byte, dst interface{}) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
