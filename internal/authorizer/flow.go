package authorizer

import (
	"sync"

	"github.com/wishyapp/payments/internal/domain/checkout"
	derrors "github.com/wishyapp/payments/internal/domain/errors"
)

// State tracks where a single attempt is in its lifecycle. A flow starts
// at StateSheetPresented because the payment request is handed to the
// device in the same response that creates the flow.
type State int

const (
	StateSheetPresented State = iota
	StateAuthorizing
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateSheetPresented:
		return "sheet_presented"
	case StateAuthorizing:
		return "authorizing"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Flow is the in-memory state machine for one checkout attempt. The
// device reports sheet events out of order under races (a dismissal
// always follows an authorization on some OS versions), so every
// transition is guarded and exactly one terminal outcome wins.
type Flow struct {
	checkoutID string

	mu      sync.Mutex
	state   State
	outcome *checkout.Outcome
}

func NewFlow(checkoutID string) *Flow {
	return &Flow{checkoutID: checkoutID, state: StateSheetPresented}
}

func (f *Flow) CheckoutID() string { return f.checkoutID }

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// BeginAuthorization moves the flow into the authorizing state when the
// device reports a credential. A flow that already resolved (the user
// dismissed first, or a duplicate report raced in) rejects the event.
func (f *Flow) BeginAuthorization() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateSheetPresented:
		f.state = StateAuthorizing
		return nil
	case StateResolved:
		return derrors.ErrFlowResolved
	default:
		return derrors.ErrInvalidStateTransition
	}
}

// Resolve latches the terminal outcome. The first call wins and returns
// true; every later call is dropped and returns false.
func (f *Flow) Resolve(outcome checkout.Outcome) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateResolved {
		return false
	}
	f.state = StateResolved
	f.outcome = &outcome
	return true
}

// Dismiss handles the sheet-dismissed event. If the flow already carries
// an outcome the dismissal is the trailing delegate callback after a
// completed authorization and is dropped. Otherwise the user walked away
// and the flow resolves as a cancellation.
func (f *Flow) Dismiss() (*checkout.Outcome, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateResolved {
		return nil, false
	}
	f.state = StateResolved
	out := checkout.FailureOutcome(f.checkoutID, "payment sheet dismissed", true)
	f.outcome = &out
	return f.outcome, true
}

// Outcome returns the latched outcome, or nil while the flow is live.
func (f *Flow) Outcome() *checkout.Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcome
}

// Manager indexes live flows by checkout id.
type Manager struct {
	mu    sync.RWMutex
	flows map[string]*Flow
}

func NewManager() *Manager {
	return &Manager{flows: make(map[string]*Flow)}
}

func (m *Manager) Register(checkoutID string) (*Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.flows[checkoutID]; ok {
		return nil, derrors.ErrDuplicateAttempt
	}
	f := NewFlow(checkoutID)
	m.flows[checkoutID] = f
	return f, nil
}

func (m *Manager) Get(checkoutID string) (*Flow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.flows[checkoutID]
	if !ok {
		return nil, derrors.ErrFlowNotFound
	}
	return f, nil
}

func (m *Manager) Remove(checkoutID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, checkoutID)
}
