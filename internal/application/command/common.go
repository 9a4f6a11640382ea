// Package command contains write operations (CQRS - Commands).
package command

import (
	"sync"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
)

// IDGenerator returns a fresh unique identifier.
type IDGenerator func() string

// ══════════════════════════════════════════════════════════════════════════════
// PER-SUPPORTEE LOCKS
// ══════════════════════════════════════════════════════════════════════════════

// SupporteeLocks serializes load-transform-save cycles per supportee.
// Different supportees never block each other.
type SupporteeLocks struct {
	mu    sync.Mutex
	locks map[string]*supporteeLock
}

type supporteeLock struct {
	mu   sync.Mutex
	refs int
}

// NewSupporteeLocks creates an empty lock table.
func NewSupporteeLocks() *SupporteeLocks {
	return &SupporteeLocks{locks: make(map[string]*supporteeLock)}
}

// Lock blocks until the supportee's lock is held and returns its release func.
func (l *SupporteeLocks) Lock(supporteeID string) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[supporteeID]
	if !ok {
		entry = &supporteeLock{}
		l.locks[supporteeID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, supporteeID)
		}
		l.mu.Unlock()
	}
}

// size is the number of supportees with a held or awaited lock.
func (l *SupporteeLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// transitionEvents lists what a persisted transition means for collaborators.
func transitionEvents(supporteeID string, tr matching.Transition, now time.Time) []shared.Event {
	events := make([]shared.Event, 0, len(tr.Rejected)+3)

	if tr.Selected != nil {
		events = append(events, shared.NewMatchSelectedEvent(
			supporteeID,
			tr.Selected.MatchID,
			tr.Selected.BuddyID,
			tr.Selected.BuddyName,
			tr.Selected.SubjectID,
			now,
		))
	}
	for _, o := range tr.Rejected {
		events = append(events, shared.NewMatchRejectedEvent(supporteeID, o.MatchID, o.BuddyID, now))
	}
	if tr.CoachSignal {
		events = append(events, shared.NewCoachSignalRaisedEvent(supporteeID, tr.CoachReason, tr.State.MatchNeeded, now))
	}
	if tr.State.MatchNeeded {
		events = append(events, shared.NewMatchRoundNeededEvent(supporteeID, tr.CoachReason, now))
	}

	return events
}

// publishAll publishes events; a failing publish is logged, never returned.
func publishAll(publisher shared.EventPublisher, events []shared.Event, log *logger.Logger) {
	if publisher == nil {
		return
	}
	for _, e := range events {
		if err := publisher.Publish(e); err != nil {
			log.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.SupporteeID(e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}
