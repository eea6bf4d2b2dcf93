package mocks

import (
	"context"
	"sync"
)

// SentNotification is one notification captured by MockDispatcher.
type SentNotification struct {
	UserID  uint
	Title   string
	Content string
}

// MockDispatcher records notifications instead of delivering them.
type MockDispatcher struct {
	mu   sync.Mutex
	sent []SentNotification
	Err  error
}

// NewMockDispatcher creates a new mock dispatcher.
func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

// Notify records the notification and returns Err.
func (m *MockDispatcher) Notify(_ context.Context, userID uint, title, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, SentNotification{UserID: userID, Title: title, Content: content})
	return m.Err
}

// Sent returns a copy of the recorded notifications.
func (m *MockDispatcher) Sent() []SentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]SentNotification, len(m.sent))
	copy(out, m.sent)
	return out
}

// Count returns the number of recorded notifications.
func (m *MockDispatcher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
