package mailer

import "sync"

// Recorder is an Enqueuer and Sender that captures messages instead of
// delivering them. Used in tests to assert which notifications a mutation
// attempted.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Enqueue records the message.
func (r *Recorder) Enqueue(msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

// Send records the message and reports success.
func (r *Recorder) Send(msg Message) error {
	r.Enqueue(msg)
	return nil
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Reset discards recorded messages.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
