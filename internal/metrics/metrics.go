// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Login outcome labels.
const (
	LoginSucceeded = "success"
	LoginFailed    = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus or keep them in memory.
type Recorder interface {
	// Identity metrics
	IncUserRegistered()
	IncLogin(status string) // status: "success" or "failed"
	IncSessionEnded()

	// Messaging metrics
	IncMessageSent()
	AddMessagesRead(n int)
	IncMessageDeleted()

	// Rate limiting
	IncRateLimited(scope string) // scope: "login" or "api"
}
