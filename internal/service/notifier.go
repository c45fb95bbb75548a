package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/smart-parking/internal/queue"
)

// Notifier delivers a code to a requester.  Delivery is best effort: a
// failure is reported to the caller but never revokes an issued ticket.
type Notifier interface {
	Send(ctx context.Context, to, message string) error
}

// LogNotifier writes messages to the process log instead of sending
// them.  It is the development driver.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, to, message string) error {
	log.Printf("notify: to=%s message=%q", MaskPhone(to), message)
	return nil
}

// QueueNotifier hands messages to the notification queue for an
// out-of-process SMS worker.
type QueueNotifier struct {
	Publisher *Publisher
}

func (n QueueNotifier) Send(ctx context.Context, to, message string) error {
	return n.Publisher.Publish(ctx, queue.NotificationsQueue, queue.Notification{
		To:       to,
		Message:  message,
		QueuedAt: time.Now().UTC().Format(time.RFC3339),
	})
}
