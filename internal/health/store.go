package health

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var ErrProfileNotFound = errors.New("profile not found")

// DefaultMetricsLimit applies when ListMetrics is called with limit <= 0.
const DefaultMetricsLimit = 10

// Store persists profiles and the per-user metric diary. Concurrent updates
// of the same user are last-writer-wins.
type Store interface {
	// CreateProfile stores p, replacing any existing profile for p.UserID.
	CreateProfile(ctx context.Context, p *UserProfile) error
	GetProfile(ctx context.Context, userID int64) (*UserProfile, error)
	// UpdateProfile merges u into the stored profile and stamps UpdatedAt.
	UpdateProfile(ctx context.Context, userID int64, u ProfileUpdate) (*UserProfile, error)
	AppendMetric(ctx context.Context, m HealthMetric) error
	// ListMetrics returns up to limit metrics, newest first, optionally
	// restricted to one metric type.
	ListMetrics(ctx context.Context, userID int64, metricType string, limit int) ([]HealthMetric, error)
}

type memoryStore struct {
	mu       sync.RWMutex
	profiles map[int64]*UserProfile
	metrics  map[int64][]HealthMetric
	now      func() time.Time
}

func NewMemoryStore() Store {
	return &memoryStore{
		profiles: make(map[int64]*UserProfile),
		metrics:  make(map[int64][]HealthMetric),
		now:      time.Now,
	}
}

func (m *memoryStore) CreateProfile(_ context.Context, p *UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.UserID] = cloneProfile(p)
	return nil
}

func (m *memoryStore) GetProfile(_ context.Context, userID int64) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneProfile(p), nil
}

func (m *memoryStore) UpdateProfile(_ context.Context, userID int64, u ProfileUpdate) (*UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	u.Apply(p)
	p.UpdatedAt = m.now()
	return cloneProfile(p), nil
}

func (m *memoryStore) AppendMetric(_ context.Context, metric HealthMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metric.UserID] = append(m.metrics[metric.UserID], cloneMetric(metric))
	return nil
}

func (m *memoryStore) ListMetrics(_ context.Context, userID int64, metricType string, limit int) ([]HealthMetric, error) {
	if limit <= 0 {
		limit = DefaultMetricsLimit
	}
	m.mu.RLock()
	all := m.metrics[userID]
	// Walk newest-inserted first so equal timestamps keep that order after
	// the stable sort.
	out := make([]HealthMetric, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if metricType != "" && all[i].Type != metricType {
			continue
		}
		out = append(out, cloneMetric(all[i]))
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
