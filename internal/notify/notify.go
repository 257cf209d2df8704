// Package notify delivers best-effort messages to parties. Nothing here may
// block or fail a booking: callers enqueue and move on.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier sends one message to a party.
type Notifier interface {
	Notify(ctx context.Context, partyID int64, subject, body string) error
}

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("notification dispatcher is stopped")
)

const deliveryTimeout = 10 * time.Second

type message struct {
	id       uuid.UUID
	partyID  int64
	subject  string
	body     string
	enqueued time.Time
}

// Dispatcher is a Notifier that queues messages and hands them to sink from a
// fixed pool of workers. Notify never waits on delivery.
type Dispatcher struct {
	sink    Notifier
	queue   chan message
	workers int
	logger  *zap.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(sink Notifier, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sink:    sink,
		queue:   make(chan message, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Start запускает воркеры. ctx bounds every delivery.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting notification dispatcher",
		zap.Int("workers", d.workers),
		zap.Int("queue_size", cap(d.queue)),
	)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
}

// Stop stops accepting messages, drains what is queued and waits for workers.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("Notification dispatcher stopped")
}

// Notify enqueues the message. A full queue drops it with ErrQueueFull.
func (d *Dispatcher) Notify(_ context.Context, partyID int64, subject, body string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}

	msg := message{
		id:       uuid.New(),
		partyID:  partyID,
		subject:  subject,
		body:     body,
		enqueued: time.Now(),
	}
	select {
	case d.queue <- msg:
		return nil
	default:
		d.logger.Warn("Notification dropped, queue full",
			zap.String("notification_id", msg.id.String()),
			zap.Int64("party_id", partyID),
		)
		return ErrQueueFull
	}
}

func (d *Dispatcher) work(ctx context.Context, n int) {
	defer d.wg.Done()

	for msg := range d.queue {
		deliverCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
		err := d.sink.Notify(deliverCtx, msg.partyID, msg.subject, msg.body)
		cancel()

		if err != nil {
			d.logger.Error("Failed to deliver notification",
				zap.Int("worker", n),
				zap.String("notification_id", msg.id.String()),
				zap.Int64("party_id", msg.partyID),
				zap.Error(err),
			)
			continue
		}

		d.logger.Debug("Notification delivered",
			zap.String("notification_id", msg.id.String()),
			zap.Int64("party_id", msg.partyID),
			zap.Duration("latency", time.Since(msg.enqueued)),
		)
	}
}

// LogNotifier writes messages to the log. Used when no transport is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, partyID int64, subject, body string) error {
	n.logger.Info("Notification",
		zap.Int64("party_id", partyID),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
