package bot

import (
	"sync"

	"health-compass/internal/health"
)

type inputKind int

const (
	inputMetric inputKind = iota + 1
	inputNewProfileAge
	inputAge
	inputCondition
	inputFamily
	inputLocation
)

// pendingInput is a free-text answer the bot asked for and expects as the
// user's next message.
type pendingInput struct {
	kind       inputKind
	metricType string
	gender     health.Gender
}

type pendingInputs struct {
	mu     sync.Mutex
	byUser map[int64]pendingInput
}

func newPendingInputs() *pendingInputs {
	return &pendingInputs{byUser: make(map[int64]pendingInput)}
}

func (p *pendingInputs) set(userID int64, in pendingInput) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = in
}

func (p *pendingInputs) get(userID int64) (pendingInput, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	in, ok := p.byUser[userID]
	return in, ok
}

func (p *pendingInputs) clear(userID int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byUser, userID)
}
