// Package notify delivers user notifications asynchronously. Handlers
// enqueue fully composed messages; a worker pool persists each one to the
// notifications table and hands it to a Mailer. Delivery failures are
// logged and swallowed: they are never correctness-critical to order state.
package notify

import (
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Message is one notification addressed to a single user.
type Message struct {
	UserID  int64
	To      string
	Subject string
	Body    string
}

// Mailer delivers a composed message. Implementations must be safe for
// concurrent use by the worker pool.
type Mailer interface {
	Send(to, subject, body string) error
}

// Dispatcher fans messages out through a buffered channel and a fixed pool
// of worker goroutines. Enqueue never blocks the caller.
type Dispatcher struct {
	db     *sql.DB
	mailer Mailer
	log    *zap.Logger

	queue chan Message
	wg    sync.WaitGroup
}

// NewDispatcher starts the worker pool immediately.
func NewDispatcher(db *sql.DB, mailer Mailer, log *zap.Logger, workers, buffer int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}

	d := &Dispatcher{
		db:     db,
		mailer: mailer,
		log:    log,
		queue:  make(chan Message, buffer),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue hands a message to the pool. When the queue is full the message
// is dropped with a warning rather than blocking the request path; the
// return value reports whether it was accepted.
func (d *Dispatcher) Enqueue(msg Message) bool {
	select {
	case d.queue <- msg:
		return true
	default:
		d.log.Warn("notification queue full, dropping message",
			zap.Int64("userID", msg.UserID),
			zap.String("subject", msg.Subject))
		return false
	}
}

// Close stops accepting messages and waits for the workers to drain the
// queue.
func (d *Dispatcher) Close() {
	close(d.queue)
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) deliver(msg Message) {
	_, err := d.db.Exec(
		"INSERT INTO notifications (user_id, subject, message, is_read, created_at) VALUES (?, ?, ?, 0, ?)",
		msg.UserID, msg.Subject, msg.Body, time.Now())
	if err != nil {
		d.log.Error("failed to persist notification",
			zap.Int64("userID", msg.UserID), zap.Error(err))
	}

	if err := d.mailer.Send(msg.To, msg.Subject, msg.Body); err != nil {
		d.log.Error("failed to send notification mail",
			zap.String("to", msg.To), zap.Error(err))
	}
}
