package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/wishyapp/payments/internal/domain/checkout"
)

// --- Attempt Repository Mock ---

// MockAttemptRepository is a mock implementation of checkout.Repository.
type MockAttemptRepository struct {
	mu         sync.Mutex
	attempts   map[uuid.UUID]*checkout.Attempt
	byCheckout map[string]*checkout.Attempt
	byKey      map[string]*checkout.Attempt

	CreateFunc              func(ctx context.Context, a *checkout.Attempt) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*checkout.Attempt, error)
	GetByCheckoutIDFunc     func(ctx context.Context, checkoutID string) (*checkout.Attempt, error)
	GetByIdempotencyKeyFunc func(ctx context.Context, key string) (*checkout.Attempt, error)
	UpdateFunc              func(ctx context.Context, a *checkout.Attempt) error
	ListFunc                func(ctx context.Context, filter checkout.ListFilter) ([]*checkout.Attempt, error)
}

func NewMockAttemptRepository() *MockAttemptRepository {
	return &MockAttemptRepository{
		attempts:   make(map[uuid.UUID]*checkout.Attempt),
		byCheckout: make(map[string]*checkout.Attempt),
		byKey:      make(map[string]*checkout.Attempt),
	}
}

func (m *MockAttemptRepository) Create(ctx context.Context, a *checkout.Attempt) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.ID] = a
	m.byCheckout[a.CheckoutID] = a
	m.byKey[a.IdempotencyKey] = a
	return nil
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*checkout.Attempt, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[id]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (m *MockAttemptRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*checkout.Attempt, error) {
	if m.GetByCheckoutIDFunc != nil {
		return m.GetByCheckoutIDFunc(ctx, checkoutID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byCheckout[checkoutID]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (m *MockAttemptRepository) GetByIdempotencyKey(ctx context.Context, key string) (*checkout.Attempt, error) {
	if m.GetByIdempotencyKeyFunc != nil {
		return m.GetByIdempotencyKeyFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byKey[key]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (m *MockAttemptRepository) Update(ctx context.Context, a *checkout.Attempt) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, a)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[a.ID] = a
	m.byCheckout[a.CheckoutID] = a
	return nil
}

func (m *MockAttemptRepository) List(ctx context.Context, filter checkout.ListFilter) ([]*checkout.Attempt, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*checkout.Attempt, 0, len(m.attempts))
	for _, a := range m.attempts {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.BrandType != nil && a.BrandType != *filter.BrandType {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

// --- Backend Client Mock ---

// MockBackendClient is a mock implementation of service.BackendClient.
type MockBackendClient struct {
	RequestCheckoutFunc func(ctx context.Context, amount decimal.Decimal, brandType int, authToken string) (*checkout.Session, error)
	CheckStatusFunc     func(ctx context.Context, checkoutID string, brandType int, authToken string) (*checkout.StatusResult, error)
}

func NewMockBackendClient() *MockBackendClient {
	return &MockBackendClient{}
}

func (m *MockBackendClient) RequestCheckout(ctx context.Context, amount decimal.Decimal, brandType int, authToken string) (*checkout.Session, error) {
	if m.RequestCheckoutFunc != nil {
		return m.RequestCheckoutFunc(ctx, amount, brandType, authToken)
	}
	return &checkout.Session{
		CheckoutID: uuid.New().String(),
		Amount:     amount,
		BrandType:  brandType,
	}, nil
}

func (m *MockBackendClient) CheckStatus(ctx context.Context, checkoutID string, brandType int, authToken string) (*checkout.StatusResult, error) {
	if m.CheckStatusFunc != nil {
		return m.CheckStatusFunc(ctx, checkoutID, brandType, authToken)
	}
	return &checkout.StatusResult{
		BackendStatus:   true,
		CombinedSuccess: true,
	}, nil
}

// --- Event Publisher Mock ---

// PublishedEvent captures one call to PublishVerificationEvent.
type PublishedEvent struct {
	CheckoutID string
	BrandType  int
	Data       map[string]any
}

// MockEventPublisher records verification events instead of publishing them.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	PublishVerificationEventFunc func(ctx context.Context, checkoutID string, brandType int, data map[string]any) error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) PublishVerificationEvent(ctx context.Context, checkoutID string, brandType int, data map[string]any) error {
	if m.PublishVerificationEventFunc != nil {
		return m.PublishVerificationEventFunc(ctx, checkoutID, brandType, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{CheckoutID: checkoutID, BrandType: brandType, Data: data})
	return nil
}

// Events returns a copy of everything published so far.
func (m *MockEventPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}

// --- Transaction Manager Mock ---

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	WithTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithTransactionFunc != nil {
		return m.WithTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}
