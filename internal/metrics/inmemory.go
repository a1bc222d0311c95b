package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	UserCacheHits      uint64
	UserCacheMisses    uint64
	UsersCreated       uint64
	UsersUpdated       uint64
	UsersDeleted       uint64
	EventsPublished    uint64
	EventsDropped      uint64
	EventLogAppends    uint64
	EventLogAppendDrop uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	userCacheHits      atomic.Uint64
	userCacheMisses    atomic.Uint64
	usersCreated       atomic.Uint64
	usersUpdated       atomic.Uint64
	usersDeleted       atomic.Uint64
	eventsPublished    atomic.Uint64
	eventsDropped      atomic.Uint64
	eventLogAppends    atomic.Uint64
	eventLogAppendDrop atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		UserCacheHits:      m.userCacheHits.Load(),
		UserCacheMisses:    m.userCacheMisses.Load(),
		UsersCreated:       m.usersCreated.Load(),
		UsersUpdated:       m.usersUpdated.Load(),
		UsersDeleted:       m.usersDeleted.Load(),
		EventsPublished:    m.eventsPublished.Load(),
		EventsDropped:      m.eventsDropped.Load(),
		EventLogAppends:    m.eventLogAppends.Load(),
		EventLogAppendDrop: m.eventLogAppendDrop.Load(),
	}
}

// IncUserCacheHit increments the cache hit counter.
func (m *InMemoryRecorder) IncUserCacheHit() { m.userCacheHits.Add(1) }

// IncUserCacheMiss increments the cache miss counter.
func (m *InMemoryRecorder) IncUserCacheMiss() { m.userCacheMisses.Add(1) }

// IncUserCreated increments the created counter.
func (m *InMemoryRecorder) IncUserCreated() { m.usersCreated.Add(1) }

// IncUserUpdated increments the updated counter.
func (m *InMemoryRecorder) IncUserUpdated() { m.usersUpdated.Add(1) }

// IncUserDeleted increments the deleted counter.
func (m *InMemoryRecorder) IncUserDeleted() { m.usersDeleted.Add(1) }

// IncEventPublished tracks a publish outcome.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	if status == "success" {
		m.eventsPublished.Add(1)
		return
	}
	m.eventsDropped.Add(1)
}

// IncEventLogAppend tracks an event-log append outcome.
func (m *InMemoryRecorder) IncEventLogAppend(status string) {
	if status == "success" {
		m.eventLogAppends.Add(1)
		return
	}
	m.eventLogAppendDrop.Add(1)
}
