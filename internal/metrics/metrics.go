// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Login outcomes recorded by IncLogin.
const (
	LoginSuccess     = "success"
	LoginBadPassword = "bad_password"
	LoginUnknownUser = "unknown_user"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Identity metrics
	IncUserRegistered()
	IncLogin(outcome string)

	// Message metrics
	IncMessageSent()
	IncMessageRead()

	// Authorization metrics
	IncAccessDenied(action string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
