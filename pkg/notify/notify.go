// Package notify delivers user notifications such as "your export is
// ready".
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is a notification with an optional link.
type Message struct {
	Text  string `json:"text"`
	Link  string `json:"link,omitempty"`
	Label string `json:"label,omitempty"`
}

// Notifier sends a message to a set of recipients.
type Notifier interface {
	Send(ctx context.Context, msg Message, recipients []string) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier that logs every message.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify.log")}
}

// Send implements Notifier.
func (n *LogNotifier) Send(ctx context.Context, msg Message, recipients []string) error {
	n.logger.InfoContext(ctx, "notification",
		"text", msg.Text,
		"link", msg.Link,
		"recipients", recipients,
	)
	return nil
}

// Notification is a stored message.
type Notification struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient"`
	Message   Message   `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Inbox keeps notifications in memory per recipient, newest last. Each
// recipient keeps at most Capacity entries.
type Inbox struct {
	mu       sync.RWMutex
	entries  map[string][]Notification
	capacity int
}

// DefaultInboxCapacity is the per-recipient limit used when none is given.
const DefaultInboxCapacity = 100

// NewInbox creates an in-memory inbox.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultInboxCapacity
	}
	return &Inbox{
		entries:  make(map[string][]Notification),
		capacity: capacity,
	}
}

// Send implements Notifier.
func (b *Inbox) Send(ctx context.Context, msg Message, recipients []string) error {
	now := time.Now().UTC()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, r := range recipients {
		list := append(b.entries[r], Notification{
			ID:        uuid.NewString(),
			Recipient: r,
			Message:   msg,
			CreatedAt: now,
		})
		if len(list) > b.capacity {
			list = list[len(list)-b.capacity:]
		}
		b.entries[r] = list
	}
	return nil
}

// List returns the notifications of a recipient, oldest first.
func (b *Inbox) List(recipient string) []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.entries[recipient]
	out := make([]Notification, len(list))
	copy(out, list)
	return out
}

// Multi fans a message out to several notifiers and returns the first
// error after trying all of them.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(ctx context.Context, msg Message, recipients []string) error {
	var firstErr error
	for _, n := range m {
		if err := n.Send(ctx, msg, recipients); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
