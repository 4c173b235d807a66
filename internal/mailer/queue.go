package mailer

import (
	"log"
	"sync"
	"time"
)

const (
	defaultQueueSize = 256
	deliveryAttempts = 3
)

// Queue is a buffered outbound mail queue with a single background worker.
// Enqueue never blocks and never reports failure to the caller; per-message
// errors are retried with backoff and then logged and dropped, so one bad
// address never affects the rest of a batch.
type Queue struct {
	sender  Sender
	ch      chan Message
	backoff time.Duration

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewQueue creates a queue delivering through sender.
func NewQueue(sender Sender) *Queue {
	return &Queue{
		sender:  sender,
		ch:      make(chan Message, defaultQueueSize),
		backoff: 2 * time.Second,
		done:    make(chan struct{}),
	}
}

// Start launches the delivery worker.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		go q.run()
	})
}

// Enqueue queues a message for delivery. When the buffer is full the message
// is dropped: notifications are best-effort by contract.
func (q *Queue) Enqueue(msg Message) {
	select {
	case q.ch <- msg:
	default:
		log.Printf("mail queue full, dropping message to %s (%q)", msg.To, msg.Subject)
	}
}

// Close stops accepting messages and waits for the worker to drain the queue.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.ch)
		<-q.done
	})
}

func (q *Queue) run() {
	defer close(q.done)

	for msg := range q.ch {
		q.deliver(msg)
	}
}

func (q *Queue) deliver(msg Message) {
	var err error
	for attempt := 1; attempt <= deliveryAttempts; attempt++ {
		if err = q.sender.Send(msg); err == nil {
			return
		}
		if attempt < deliveryAttempts {
			time.Sleep(q.backoff * time.Duration(attempt))
		}
	}

	log.Printf("failed to send email to %s (%q) after %d attempts: %v",
		msg.To, msg.Subject, deliveryAttempts, err)
}
