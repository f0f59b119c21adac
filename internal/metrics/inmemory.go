package metrics

import (
	"sync/atomic"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UsersRegistered  uint64
	LoginsSucceeded  uint64
	LoginsFailed     uint64
	SessionsEnded    uint64
	MessagesSent     uint64
	MessagesRead     uint64
	MessagesDeleted  uint64
	RateLimitedLogin uint64
	RateLimitedAPI   uint64
}

// InMemoryRecorder stores metrics in memory. It is the test double for
// Recorder: tests assert on Snapshot, while the server uses the Prometheus
// or noop recorder.
type InMemoryRecorder struct {
	usersRegistered  uint64
	loginsSucceeded  uint64
	loginsFailed     uint64
	sessionsEnded    uint64
	messagesSent     uint64
	messagesRead     uint64
	messagesDeleted  uint64
	rateLimitedLogin uint64
	rateLimitedAPI   uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UsersRegistered:  atomic.LoadUint64(&m.usersRegistered),
		LoginsSucceeded:  atomic.LoadUint64(&m.loginsSucceeded),
		LoginsFailed:     atomic.LoadUint64(&m.loginsFailed),
		SessionsEnded:    atomic.LoadUint64(&m.sessionsEnded),
		MessagesSent:     atomic.LoadUint64(&m.messagesSent),
		MessagesRead:     atomic.LoadUint64(&m.messagesRead),
		MessagesDeleted:  atomic.LoadUint64(&m.messagesDeleted),
		RateLimitedLogin: atomic.LoadUint64(&m.rateLimitedLogin),
		RateLimitedAPI:   atomic.LoadUint64(&m.rateLimitedAPI),
	}
}

// IncUserRegistered increments the registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncLogin increments the login counter for status.
func (m *InMemoryRecorder) IncLogin(status string) {
	if status == LoginSucceeded {
		atomic.AddUint64(&m.loginsSucceeded, 1)
		return
	}
	atomic.AddUint64(&m.loginsFailed, 1)
}

// IncSessionEnded increments the logout counter.
func (m *InMemoryRecorder) IncSessionEnded() {
	atomic.AddUint64(&m.sessionsEnded, 1)
}

// IncMessageSent increments the sent counter.
func (m *InMemoryRecorder) IncMessageSent() {
	atomic.AddUint64(&m.messagesSent, 1)
}

// AddMessagesRead adds n to the read counter.
func (m *InMemoryRecorder) AddMessagesRead(n int) {
	if n <= 0 {
		return
	}
	atomic.AddUint64(&m.messagesRead, uint64(n))
}

// IncMessageDeleted increments the deleted counter.
func (m *InMemoryRecorder) IncMessageDeleted() {
	atomic.AddUint64(&m.messagesDeleted, 1)
}

// IncRateLimited increments the rejection counter for scope.
func (m *InMemoryRecorder) IncRateLimited(scope string) {
	switch scope {
	case "login":
		atomic.AddUint64(&m.rateLimitedLogin, 1)
	case "api":
		atomic.AddUint64(&m.rateLimitedAPI, 1)
	}
}
