package testutil

import (
	"context"
	"sync"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/notification"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// CaptureNotifier implements notification.Publisher by recording every
// message so tests can assert on what was sent.
type CaptureNotifier struct {
	mu       sync.Mutex
	messages []*notification.Message

	// PublishErr, when set, makes every Publish fail.
	PublishErr error
}

func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{}
}

func (n *CaptureNotifier) Publish(ctx context.Context, msg *notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.PublishErr != nil {
		return n.PublishErr
	}
	n.messages = append(n.messages, msg)
	return nil
}

// Messages returns a copy of everything published so far.
func (n *CaptureNotifier) Messages() []*notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*notification.Message(nil), n.messages...)
}

// MessagesOfType filters published messages by notification type.
func (n *CaptureNotifier) MessagesOfType(t types.NotificationType) []*notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []*notification.Message
	for _, msg := range n.messages {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}

// MessagesFor filters published messages by recipient.
func (n *CaptureNotifier) MessagesFor(userID string) []*notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []*notification.Message
	for _, msg := range n.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out
}

// Clear drops all recorded messages.
func (n *CaptureNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
}
