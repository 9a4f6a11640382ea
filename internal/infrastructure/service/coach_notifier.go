// Package service implements the collaborators the matching workflow hands
// work off to: the coach notification channel and session scheduling.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// COACH NOTIFIER
// ══════════════════════════════════════════════════════════════════════════════

// CoachNotificationKind tells a coach why they are being pinged.
type CoachNotificationKind string

const (
	// CoachNotificationSignal - a match was rejected or a new round is needed.
	CoachNotificationSignal CoachNotificationKind = "signal"

	// CoachNotificationLowMood - a help request came in with a low mood check.
	CoachNotificationLowMood CoachNotificationKind = "low_mood"
)

// CoachNotification is one entry of a supportee's coach log.
type CoachNotification struct {
	ID          string                `json:"id"`
	SupporteeID string                `json:"supporteeId"`
	Kind        CoachNotificationKind `json:"kind"`
	Reason      string                `json:"reason,omitempty"`
	MatchNeeded bool                  `json:"matchNeeded"`
	RequestID   string                `json:"requestId,omitempty"`
	Mood        *int                  `json:"mood,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// DefaultCoachLogSize caps stored notifications per supportee.
const DefaultCoachLogSize = 50

// CoachNotifier records coach notifications in a per-supportee log.
// Newest entries come first; the oldest are dropped beyond the cap.
type CoachNotifier struct {
	backend   kv.Store
	namespace string
	clock     timeutil.Clock
	newID     func() string
	maxSize   int
	log       *logger.Logger

	mu sync.Mutex
}

// NewCoachNotifier creates a CoachNotifier. backend may be nil, then
// notifications are only logged.
func NewCoachNotifier(backend kv.Store, namespace string, clock timeutil.Clock, newID func() string, log *logger.Logger) *CoachNotifier {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &CoachNotifier{
		backend:   backend,
		namespace: namespace,
		clock:     clock,
		newID:     newID,
		maxSize:   DefaultCoachLogSize,
		log:       log.With(logger.Component("coach_notifier")),
	}
}

func (n *CoachNotifier) key(supporteeID string) string {
	return kv.Key(n.namespace, kv.PrefixCoachLog, supporteeID)
}

// Notify records a notification and returns it with id and timestamp filled in.
func (n *CoachNotifier) Notify(ctx context.Context, note CoachNotification) (CoachNotification, error) {
	if note.ID == "" && n.newID != nil {
		note.ID = n.newID()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = timeutil.Stamp(n.clock)
	}

	n.log.Warn("coach attention requested",
		logger.SupporteeID(note.SupporteeID),
		logger.String("kind", string(note.Kind)),
		logger.String("reason", note.Reason),
		logger.Bool("match_needed", note.MatchNeeded),
	)

	if n.backend == nil {
		return note, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.load(ctx, note.SupporteeID)
	if err != nil {
		return note, err
	}

	entries = append([]CoachNotification{note}, entries...)
	if len(entries) > n.maxSize {
		entries = entries[:n.maxSize]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return note, fmt.Errorf("coach_notifier: marshal log: %w", err)
	}
	if err := n.backend.Set(ctx, n.key(note.SupporteeID), data); err != nil {
		return note, fmt.Errorf("coach_notifier: store log: %w", err)
	}
	return note, nil
}

// List returns the supportee's coach log, newest first.
func (n *CoachNotifier) List(ctx context.Context, supporteeID string) ([]CoachNotification, error) {
	if n.backend == nil {
		return []CoachNotification{}, nil
	}
	return n.load(ctx, supporteeID)
}

func (n *CoachNotifier) load(ctx context.Context, supporteeID string) ([]CoachNotification, error) {
	data, err := n.backend.Get(ctx, n.key(supporteeID))
	if errors.Is(err, kv.ErrNotFound) {
		return []CoachNotification{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("coach_notifier: load log: %w", err)
	}

	var entries []CoachNotification
	if err := json.Unmarshal(data, &entries); err != nil {
		n.log.Warn("failed to parse coach log, starting fresh",
			logger.SupporteeID(supporteeID),
			logger.Err(err),
		)
		return []CoachNotification{}, nil
	}
	return entries, nil
}
