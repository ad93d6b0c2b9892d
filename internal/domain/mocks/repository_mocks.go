package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

type sentLogKey struct {
	shipment domain.ShipmentID
	attr     domain.AttributeName
}

// MockSentLogRepository is an in-memory domain.SentLogRepository for testing.
type MockSentLogRepository struct {
	mu        sync.Mutex
	entries   map[sentLogKey]domain.SentLogEntry
	Upserts   []domain.SentLogEntry
	GetErr    error
	UpsertErr error
	ListErr   error
}

// NewMockSentLogRepository returns an empty repository, optionally seeded.
func NewMockSentLogRepository(seed ...domain.SentLogEntry) *MockSentLogRepository {
	m := &MockSentLogRepository{entries: make(map[sentLogKey]domain.SentLogEntry)}
	for _, e := range seed {
		m.entries[sentLogKey{e.ShipmentID, e.Attribute}] = e
	}
	return m
}

func (m *MockSentLogRepository) Get(ctx context.Context, shipment domain.ShipmentID, attr domain.AttributeName) (domain.AttributeValue, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	e, ok := m.entries[sentLogKey{shipment, attr}]
	return e.Value, ok, nil
}

func (m *MockSentLogRepository) Upsert(ctx context.Context, entry domain.SentLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if m.entries == nil {
		m.entries = make(map[sentLogKey]domain.SentLogEntry)
	}
	m.entries[sentLogKey{entry.ShipmentID, entry.Attribute}] = entry
	m.Upserts = append(m.Upserts, entry)
	return nil
}

func (m *MockSentLogRepository) List(ctx context.Context) ([]domain.SentLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]domain.SentLogEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ShipmentID != out[j].ShipmentID {
			return out[i].ShipmentID < out[j].ShipmentID
		}
		return out[i].Attribute < out[j].Attribute
	})
	return out, nil
}

// Value returns the stored value for a key, for assertions.
func (m *MockSentLogRepository) Value(shipment domain.ShipmentID, attr domain.AttributeName) (domain.AttributeValue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sentLogKey{shipment, attr}]
	return e.Value, ok
}

// SentMessage is a message captured by MockSender.
type SentMessage struct {
	To   domain.PhoneDestination
	Body string
}

// MockSender records sends. FailAt is the 1-based call index that fails with
// SendErr; zero means SendErr applies to every call.
type MockSender struct {
	mu      sync.Mutex
	Sent    []SentMessage
	Calls   int
	SendErr error
	FailAt  int
}

func (m *MockSender) Send(ctx context.Context, to domain.PhoneDestination, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.SendErr != nil && (m.FailAt == 0 || m.FailAt == m.Calls) {
		return m.SendErr
	}
	m.Sent = append(m.Sent, SentMessage{To: to, Body: body})
	return nil
}

// MockKeyLocker records lock keys and can fail acquisition.
type MockKeyLocker struct {
	mu       sync.Mutex
	Locked   []string
	Released int
	LockErr  error
}

func (m *MockKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LockErr != nil {
		return nil, m.LockErr
	}
	m.Locked = append(m.Locked, key)
	return func() {
		m.mu.Lock()
		m.Released++
		m.mu.Unlock()
	}, nil
}
