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
func (n *NoopRecorder) IncLogin(outcome string) {}

// IncMessageSent is a no-op.
func (n *NoopRecorder) IncMessageSent() {}

// IncMessageRead is a no-op.
func (n *NoopRecorder) IncMessageRead() {}

// IncAccessDenied is a no-op.
func (n *NoopRecorder) IncAccessDenied(action string) {}
