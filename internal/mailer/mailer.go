// Package mailer delivers notification emails. Request handlers never talk
// SMTP directly: they enqueue onto an in-process outbound queue whose worker
// retries transient failures, so a slow or unreachable relay cannot stall a
// request or fail a mutation that already committed.
package mailer

// Message is one outbound email. HTML is optional; the sender falls back to
// a paragraph-wrapped Text when it is empty.
type Message struct {
	To      string `json:"to" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Text    string `json:"text" binding:"required"`
	HTML    string `json:"html"`
}

// Sender performs a single synchronous delivery.
type Sender interface {
	Send(msg Message) error
}

// Enqueuer accepts messages for eventual best-effort delivery.
type Enqueuer interface {
	Enqueue(msg Message)
}
