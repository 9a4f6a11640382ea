// Package shared contains common domain errors and events used across all
// domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. The aggregate id of every event is the supportee id.
const (
	// Intake events
	EventHelpRequested     EventType = "support.help_requested"
	EventHelpRequestClosed EventType = "support.help_request_closed"
	EventCoachAlertRaised  EventType = "coach.alert_raised"

	// Matching events
	EventMatchesSeeded    EventType = "match.seeded"
	EventMatchSelected    EventType = "match.selected"
	EventMatchRejected    EventType = "match.rejected"
	EventMatchRoundNeeded EventType = "match.round_needed"

	// Coach events
	EventCoachSignalRaised EventType = "coach.signal_raised"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event stamped at the given time.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Intake Events
// ═══════════════════════════════════════════════════════════════════════════

// HelpRequestedEvent is emitted when a supportee submits a help request.
type HelpRequestedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	SubjectID string `json:"subject_id"`
	HelpType  string `json:"help_type"`
}

// Payload implements Event interface.
func (e HelpRequestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"request_id": e.RequestID,
		"subject_id": e.SubjectID,
		"help_type":  e.HelpType,
	}
}

// NewHelpRequestedEvent creates a new HelpRequestedEvent.
func NewHelpRequestedEvent(supporteeID, requestID, subjectID, helpType string, at time.Time) HelpRequestedEvent {
	return HelpRequestedEvent{
		BaseEvent: NewBaseEvent(EventHelpRequested, supporteeID, at),
		RequestID: requestID,
		SubjectID: subjectID,
		HelpType:  helpType,
	}
}

// HelpRequestClosedEvent is emitted when a help request is cancelled or completed.
type HelpRequestClosedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// Payload implements Event interface.
func (e HelpRequestClosedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"request_id": e.RequestID,
		"status":     e.Status,
	}
}

// NewHelpRequestClosedEvent creates a new HelpRequestClosedEvent.
func NewHelpRequestClosedEvent(supporteeID, requestID, status string, at time.Time) HelpRequestClosedEvent {
	return HelpRequestClosedEvent{
		BaseEvent: NewBaseEvent(EventHelpRequestClosed, supporteeID, at),
		RequestID: requestID,
		Status:    status,
	}
}

// CoachAlertRaisedEvent is emitted when a help request carries a low mood check.
type CoachAlertRaisedEvent struct {
	BaseEvent
	RequestID string `json:"request_id"`
	Mood      int    `json:"mood"`
}

// Payload implements Event interface.
func (e CoachAlertRaisedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"request_id": e.RequestID,
		"mood":       e.Mood,
	}
}

// NewCoachAlertRaisedEvent creates a new CoachAlertRaisedEvent.
func NewCoachAlertRaisedEvent(supporteeID, requestID string, mood int, at time.Time) CoachAlertRaisedEvent {
	return CoachAlertRaisedEvent{
		BaseEvent: NewBaseEvent(EventCoachAlertRaised, supporteeID, at),
		RequestID: requestID,
		Mood:      mood,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Matching Events
// ═══════════════════════════════════════════════════════════════════════════

// MatchesSeededEvent is emitted after a shortlist is persisted.
type MatchesSeededEvent struct {
	BaseEvent
	OptionCount int `json:"option_count"`
}

// Payload implements Event interface.
func (e MatchesSeededEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"option_count": e.OptionCount,
	}
}

// NewMatchesSeededEvent creates a new MatchesSeededEvent.
func NewMatchesSeededEvent(supporteeID string, optionCount int, at time.Time) MatchesSeededEvent {
	return MatchesSeededEvent{
		BaseEvent:   NewBaseEvent(EventMatchesSeeded, supporteeID, at),
		OptionCount: optionCount,
	}
}

// MatchSelectedEvent is emitted when a supportee accepts a match option.
// Session scheduling reacts to it.
type MatchSelectedEvent struct {
	BaseEvent
	MatchID   string `json:"match_id"`
	BuddyID   string `json:"buddy_id"`
	BuddyName string `json:"buddy_name"`
	SubjectID string `json:"subject_id"`
}

// Payload implements Event interface.
func (e MatchSelectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"match_id":   e.MatchID,
		"buddy_id":   e.BuddyID,
		"buddy_name": e.BuddyName,
		"subject_id": e.SubjectID,
	}
}

// NewMatchSelectedEvent creates a new MatchSelectedEvent.
func NewMatchSelectedEvent(supporteeID, matchID, buddyID, buddyName, subjectID string, at time.Time) MatchSelectedEvent {
	return MatchSelectedEvent{
		BaseEvent: NewBaseEvent(EventMatchSelected, supporteeID, at),
		MatchID:   matchID,
		BuddyID:   buddyID,
		BuddyName: buddyName,
		SubjectID: subjectID,
	}
}

// MatchRejectedEvent is emitted for every rejected option.
type MatchRejectedEvent struct {
	BaseEvent
	MatchID string `json:"match_id"`
	BuddyID string `json:"buddy_id"`
}

// Payload implements Event interface.
func (e MatchRejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"match_id": e.MatchID,
		"buddy_id": e.BuddyID,
	}
}

// NewMatchRejectedEvent creates a new MatchRejectedEvent.
func NewMatchRejectedEvent(supporteeID, matchID, buddyID string, at time.Time) MatchRejectedEvent {
	return MatchRejectedEvent{
		BaseEvent: NewBaseEvent(EventMatchRejected, supporteeID, at),
		MatchID:   matchID,
		BuddyID:   buddyID,
	}
}

// MatchRoundNeededEvent is emitted whenever the stored state asks for a new match round.
type MatchRoundNeededEvent struct {
	BaseEvent
	Reason string `json:"reason"`
}

// Payload implements Event interface.
func (e MatchRoundNeededEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reason": e.Reason,
	}
}

// NewMatchRoundNeededEvent creates a new MatchRoundNeededEvent.
func NewMatchRoundNeededEvent(supporteeID, reason string, at time.Time) MatchRoundNeededEvent {
	return MatchRoundNeededEvent{
		BaseEvent: NewBaseEvent(EventMatchRoundNeeded, supporteeID, at),
		Reason:    reason,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Coach Events
// ═══════════════════════════════════════════════════════════════════════════

// CoachSignal reasons.
const (
	CoachReasonOptionRejected = "option_rejected"
	CoachReasonAllRejected    = "all_rejected"
	CoachReasonBulkRejected   = "bulk_rejected"
	CoachReasonNoCandidates   = "no_candidates"
)

// CoachSignalRaisedEvent is emitted whenever lastCoachSignalAt is refreshed.
type CoachSignalRaisedEvent struct {
	BaseEvent
	Reason      string `json:"reason"`
	MatchNeeded bool   `json:"match_needed"`
}

// Payload implements Event interface.
func (e CoachSignalRaisedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"reason":       e.Reason,
		"match_needed": e.MatchNeeded,
	}
}

// NewCoachSignalRaisedEvent creates a new CoachSignalRaisedEvent.
func NewCoachSignalRaisedEvent(supporteeID, reason string, matchNeeded bool, at time.Time) CoachSignalRaisedEvent {
	return CoachSignalRaisedEvent{
		BaseEvent:   NewBaseEvent(EventCoachSignalRaised, supporteeID, at),
		Reason:      reason,
		MatchNeeded: matchNeeded,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope serializes an event into an envelope.
func NewEventEnvelope(event Event) (EventEnvelope, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return EventEnvelope{}, err
	}
	return EventEnvelope{
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}, nil
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
