package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/adminauth/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/google/uuid"
)

// MockAccountRepository is an in-memory account store. Any Func field that
// is set replaces the in-memory behavior of that method.
type MockAccountRepository struct {
	FindActiveByEmailFunc       func(ctx context.Context, email string) (*models.Account, error)
	GetByIDFunc                 func(ctx context.Context, id string) (*models.Account, error)
	CreateFunc                  func(ctx context.Context, account *models.Account) (*models.Account, error)
	IncrementFailedAttemptsFunc func(ctx context.Context, id string) (int, error)
	UpdateFailedAttemptsFunc    func(ctx context.Context, id string, attempts int, lockedUntil *time.Time, status *models.AccountStatus) error
	UpdateLoginSuccessFunc      func(ctx context.Context, id string, at time.Time) error
	UpdatePasswordFunc          func(ctx context.Context, id, passwordHash string) error

	mu       sync.Mutex
	accounts map[string]*models.Account
	calls    map[string]int
}

// NewMockAccountRepository seeds the store with copies of accounts
func NewMockAccountRepository(accounts ...*models.Account) *MockAccountRepository {
	m := &MockAccountRepository{
		accounts: make(map[string]*models.Account),
		calls:    make(map[string]int),
	}
	for _, a := range accounts {
		copied := *a
		m.accounts[a.ID] = &copied
	}
	return m
}

func (m *MockAccountRepository) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how often method was invoked
func (m *MockAccountRepository) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods
func (m *MockAccountRepository) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// Account returns a copy of the stored account with id
func (m *MockAccountRepository) Account(id string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil
	}
	copied := *a
	return &copied
}

func (m *MockAccountRepository) FindActiveByEmail(ctx context.Context, email string) (*models.Account, error) {
	m.record("FindActiveByEmail")
	if m.FindActiveByEmailFunc != nil {
		return m.FindActiveByEmailFunc(ctx, email)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if models.NormalizeEmail(a.Email) == email && a.Status == models.AccountStatusActive {
			copied := *a
			return &copied, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	m.record("GetByID")
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}

	if a := m.Account(id); a != nil {
		return a, nil
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	m.record("Create")
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accounts == nil {
		m.accounts = make(map[string]*models.Account)
	}
	for _, a := range m.accounts {
		if models.NormalizeEmail(a.Email) == models.NormalizeEmail(account.Email) {
			return nil, models.ErrConflict
		}
	}
	created := *account
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.accounts[created.ID] = &created
	result := created
	return &result, nil
}

func (m *MockAccountRepository) IncrementFailedAttempts(ctx context.Context, id string) (int, error) {
	m.record("IncrementFailedAttempts")
	if m.IncrementFailedAttemptsFunc != nil {
		return m.IncrementFailedAttemptsFunc(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return 0, models.ErrNotFound
	}
	a.FailedLoginAttempts++
	return a.FailedLoginAttempts, nil
}

func (m *MockAccountRepository) UpdateFailedAttempts(ctx context.Context, id string, attempts int, lockedUntil *time.Time, status *models.AccountStatus) error {
	m.record("UpdateFailedAttempts")
	if m.UpdateFailedAttemptsFunc != nil {
		return m.UpdateFailedAttemptsFunc(ctx, id, attempts, lockedUntil, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	if attempts > a.FailedLoginAttempts {
		a.FailedLoginAttempts = attempts
	}
	a.LockedUntil = lockedUntil
	if status != nil {
		a.Status = *status
	}
	return nil
}

func (m *MockAccountRepository) UpdateLoginSuccess(ctx context.Context, id string, at time.Time) error {
	m.record("UpdateLoginSuccess")
	if m.UpdateLoginSuccessFunc != nil {
		return m.UpdateLoginSuccessFunc(ctx, id, at)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	a.FailedLoginAttempts = 0
	a.LockedUntil = nil
	a.LastLogin = &at
	return nil
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.record("UpdatePassword")
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return models.ErrNotFound
	}
	a.PasswordHash = passwordHash
	return nil
}

// MockSessionStore is an in-memory SessionStore
type MockSessionStore struct {
	CreateFunc   func(ctx context.Context, session *models.Session) error
	IsActiveFunc func(ctx context.Context, tokenID string, now time.Time) (bool, error)

	mu       sync.Mutex
	sessions map[string]models.Session
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]models.Session)}
}

// Session returns the stored record for tokenID
func (m *MockSessionStore) Session(tokenID string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenID]
	return s, ok
}

// Len returns how many sessions were stored
func (m *MockSessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MockSessionStore) Create(ctx context.Context, session *models.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[session.TokenID]; exists {
		return models.ErrConflict
	}
	m.sessions[session.TokenID] = *session
	return nil
}

func (m *MockSessionStore) Deactivate(ctx context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[tokenID]; ok {
		s.IsActive = false
		m.sessions[tokenID] = s
	}
	return nil
}

func (m *MockSessionStore) IsActive(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	if m.IsActiveFunc != nil {
		return m.IsActiveFunc(ctx, tokenID, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tokenID]
	return ok && s.IsValidAt(now), nil
}

func (m *MockSessionStore) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.IsActive && !s.ExpiresAt.After(now) {
			s.IsActive = false
			m.sessions[id] = s
			n++
		}
	}
	return n, nil
}

// MockEventEmitter records emitted events synchronously
type MockEventEmitter struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (m *MockEventEmitter) Emit(ctx context.Context, event models.SecurityEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of everything emitted so far
func (m *MockEventEmitter) Events() []models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SecurityEvent(nil), m.events...)
}

// MockEventStore records appended events. AppendFunc, when set, runs first
// and its error is returned.
type MockEventStore struct {
	AppendFunc func(ctx context.Context, event models.SecurityEvent) error

	mu       sync.Mutex
	appended []models.SecurityEvent
}

func (m *MockEventStore) Append(ctx context.Context, event models.SecurityEvent) error {
	if m.AppendFunc != nil {
		if err := m.AppendFunc(ctx, event); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appended = append(m.appended, event)
	return nil
}

// Appended returns the stored events in append order
func (m *MockEventStore) Appended() []models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SecurityEvent(nil), m.appended...)
}

// MockAlertNotifier records alerted events
type MockAlertNotifier struct {
	NotifyFunc func(ctx context.Context, event models.SecurityEvent) error

	mu       sync.Mutex
	notified []models.SecurityEvent
}

func (m *MockAlertNotifier) Notify(ctx context.Context, event models.SecurityEvent) error {
	m.mu.Lock()
	m.notified = append(m.notified, event)
	m.mu.Unlock()
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, event)
	}
	return nil
}

// Notified returns the alerted events in order
func (m *MockAlertNotifier) Notified() []models.SecurityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.SecurityEvent(nil), m.notified...)
}

// MockSESClient captures SendEmail input
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	LastInput     *ses.SendEmailInput
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.LastInput = params
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("test-message-id")}, nil
}

// MockEventLister returns canned events
type MockEventLister struct {
	ListByAccountFunc func(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error)
}

func (m *MockEventLister) ListByAccount(ctx context.Context, accountID string, limit int) ([]models.SecurityEvent, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit)
	}
	return []models.SecurityEvent{}, nil
}
