package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(status string) {}

// IncSessionEnded is a no-op.
func (n *NoopRecorder) IncSessionEnded() {}

// IncMessageSent is a no-op.
func (n *NoopRecorder) IncMessageSent() {}

// AddMessagesRead is a no-op.
func (n *NoopRecorder) AddMessagesRead(count int) {}

// IncMessageDeleted is a no-op.
func (n *NoopRecorder) IncMessageDeleted() {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited(scope string) {}
