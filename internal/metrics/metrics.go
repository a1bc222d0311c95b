// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Query path
	IncUserCacheHit()
	IncUserCacheMiss()

	// Mutation pipeline
	IncUserCreated()
	IncUserUpdated()
	IncUserDeleted()

	// Change notification outcomes
	IncEventPublished(status string) // status: "success" or "dropped"
	IncEventLogAppend(status string) // status: "success" or "dropped"
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
