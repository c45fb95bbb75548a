package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery body.  A returned error rejects the
// message without requeueing it.
type Handler func(body []byte) error

// StartConsumer connects to the broker at url, declares queue (durable)
// and feeds every delivery to h.  It reconnects with exponential backoff
// until ctx is cancelled, which is the only way it returns.
func StartConsumer(ctx context.Context, url, queue string, h Handler) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("%s: failed to dial broker: %v; retrying in %s", queue, err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, h)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("%s: consume loop ended: %v; reconnecting", queue, err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, h Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("%s: set QoS failed: %v", queue, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := h(d.Body); err != nil {
				log.Printf("%s: handle message failed: %v", queue, err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// appendLine appends one line to dir/name, creating both as needed.
func appendLine(dir, name, line string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatSlotEvent renders ev as one log line.
func FormatSlotEvent(ev SlotEvent) string {
	switch ev.Action {
	case ActionReset:
		target := ev.Block
		if target == "" {
			target = "*"
		}
		if ev.Slot != "" {
			target += "/" + ev.Slot
		}
		return fmt.Sprintf("[%s] Slots reset | target=%s | freed=%d\n", ev.OccurredAt, target, ev.Freed)
	case ActionReleased:
		return fmt.Sprintf("[%s] Slot released | block=%s | slot=%s | occupant=%s\n",
			ev.OccurredAt, ev.Block, ev.Slot, ev.Occupant)
	}
	line := fmt.Sprintf("[%s] Slot booked | block=%s | slot=%s | occupant=%s", ev.OccurredAt, ev.Block, ev.Slot, ev.Occupant)
	if ev.StaffID != "" {
		line += " | staff=" + ev.StaffID
	}
	if ev.Enhanced {
		line += " | risk=" + ev.RiskLevel
	}
	return line + "\n"
}

// SlotEventLogger returns a Handler appending slot events to
// dir/parking.log.
func SlotEventLogger(dir string) Handler {
	return func(body []byte) error {
		var ev SlotEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.Block == "" && ev.Action != ActionReset {
			return errors.New("slot event without block")
		}
		return appendLine(dir, "parking.log", FormatSlotEvent(ev))
	}
}

// SMSSender delivers one text message.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

// NotificationDeliverer returns a Handler that hands queued notifications
// to sender.
func NotificationDeliverer(sender SMSSender) Handler {
	return func(body []byte) error {
		var n Notification
		if err := json.Unmarshal(body, &n); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if n.To == "" {
			return errors.New("notification without recipient")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sender.Send(ctx, n.To, n.Message)
	}
}
