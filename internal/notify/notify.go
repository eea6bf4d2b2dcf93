// Package notify delivers user notifications after ledger changes commit.
//
// Delivery is best-effort: a failed notification is logged and counted but never undoes
// or fails the operation that produced it.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/ecohood/points-ledger/internal/metrics"
	"github.com/ecohood/points-ledger/pkg/logger"
)

// Dispatcher sends a notification to a user.
type Dispatcher interface {
	Notify(ctx context.Context, userID uint, title, content string) error
}

// Notification is one message stored in a user's inbox.
type Notification struct {
	ID        string    `json:"id"`
	UserID    uint      `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Nop discards every notification.
type Nop struct{}

// Notify implements Dispatcher.
func (Nop) Notify(context.Context, uint, string, string) error { return nil }

type channel struct {
	name       string
	dispatcher Dispatcher
}

// Multi fans a notification out to several channels.
type Multi struct {
	channels []channel
	log      *logger.Logger
}

// NewMulti creates an empty fan-out dispatcher.
func NewMulti(log *logger.Logger) *Multi {
	return &Multi{log: log.Component("notify")}
}

// Add registers a named channel.
func (m *Multi) Add(name string, d Dispatcher) *Multi {
	m.channels = append(m.channels, channel{name: name, dispatcher: d})
	return m
}

// Len returns the number of registered channels.
func (m *Multi) Len() int {
	return len(m.channels)
}

// Notify delivers to every channel and joins the errors of the ones that failed.
func (m *Multi) Notify(ctx context.Context, userID uint, title, content string) error {
	var errs []error
	for _, ch := range m.channels {
		if err := ch.dispatcher.Notify(ctx, userID, title, content); err != nil {
			metrics.RecordNotificationFailed(ch.name)
			errs = append(errs, err)
			continue
		}
		metrics.RecordNotificationSent(ch.name)
	}
	return errors.Join(errs...)
}

// Send notifies through d and only logs a failure. Services call it after commit.
func Send(ctx context.Context, d Dispatcher, log *logger.Logger, userID uint, title, content string) {
	if d == nil {
		return
	}
	if err := d.Notify(ctx, userID, title, content); err != nil {
		log.Warn().
			Err(err).
			Uint("user_id", userID).
			Str("title", title).
			Msg("Failed to deliver notification")
	}
}
