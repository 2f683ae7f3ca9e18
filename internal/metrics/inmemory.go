package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered   uint64
	LoginsSucceeded   uint64
	LoginsBadPassword uint64
	LoginsUnknownUser uint64
	MessagesSent      uint64
	MessagesRead      uint64
	AccessDenied      uint64
}

// InMemoryRecorder stores metrics in memory.
type InMemoryRecorder struct {
	usersRegistered   uint64
	loginsSucceeded   uint64
	loginsBadPassword uint64
	loginsUnknownUser uint64
	messagesSent      uint64
	messagesRead      uint64
	accessDenied      uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered:   atomic.LoadUint64(&m.usersRegistered),
		LoginsSucceeded:   atomic.LoadUint64(&m.loginsSucceeded),
		LoginsBadPassword: atomic.LoadUint64(&m.loginsBadPassword),
		LoginsUnknownUser: atomic.LoadUint64(&m.loginsUnknownUser),
		MessagesSent:      atomic.LoadUint64(&m.messagesSent),
		MessagesRead:      atomic.LoadUint64(&m.messagesRead),
		AccessDenied:      atomic.LoadUint64(&m.accessDenied),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin increments the counter for the login outcome.
// Unknown outcomes are ignored.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	switch outcome {
	case LoginSuccess:
		atomic.AddUint64(&m.loginsSucceeded, 1)
	case LoginBadPassword:
		atomic.AddUint64(&m.loginsBadPassword, 1)
	case LoginUnknownUser:
		atomic.AddUint64(&m.loginsUnknownUser, 1)
	}
}

// IncMessageSent increments the sent message counter.
func (m *InMemoryRecorder) IncMessageSent() {
	atomic.AddUint64(&m.messagesSent, 1)
}

// IncMessageRead increments the read acknowledgement counter.
func (m *InMemoryRecorder) IncMessageRead() {
	atomic.AddUint64(&m.messagesRead, 1)
}

// IncAccessDenied increments the policy denial counter.
func (m *InMemoryRecorder) IncAccessDenied(action string) {
	atomic.AddUint64(&m.accessDenied, 1)
}
