package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
	"github.com/alem-hub/buddy-match-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// SessionStatusProposed is the only status the scheduler writes; confirming
// a session happens outside this service.
const SessionStatusProposed = "proposed"

// SessionProposal is the pending first session between a supportee and the
// buddy they accepted.
type SessionProposal struct {
	ID            string                     `json:"id"`
	SupporteeID   string                     `json:"supporteeId"`
	MatchID       string                     `json:"matchId"`
	BuddyID       string                     `json:"buddyId"`
	BuddyName     string                     `json:"buddyName"`
	SubjectID     string                     `json:"subjectId"`
	HelpRequestID string                     `json:"helpRequestId,omitempty"`
	Slot          *support.AvailabilityBlock `json:"slot,omitempty"`
	Status        string                     `json:"status"`
	CreatedAt     time.Time                  `json:"createdAt"`
}

// SessionRequest describes an accepted match.
type SessionRequest struct {
	SupporteeID string
	MatchID     string
	BuddyID     string
	BuddyName   string
	SubjectID   string
}

// SessionScheduler stores one session proposal per supportee, built from the
// availability of their newest help request for the matched subject.
type SessionScheduler struct {
	backend   kv.Store
	requests  support.Repository
	namespace string
	clock     timeutil.Clock
	newID     func() string
	log       *logger.Logger
}

// NewSessionScheduler creates a SessionScheduler. requests may be nil, then
// proposals carry no slot.
func NewSessionScheduler(backend kv.Store, requests support.Repository, namespace string, clock timeutil.Clock, newID func() string, log *logger.Logger) *SessionScheduler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionScheduler{
		backend:   backend,
		requests:  requests,
		namespace: namespace,
		clock:     clock,
		newID:     newID,
		log:       log.With(logger.Component("session_scheduler")),
	}
}

func (s *SessionScheduler) key(supporteeID string) string {
	return kv.Key(s.namespace, kv.PrefixSession, supporteeID)
}

// Propose builds and stores a session proposal, replacing any previous one.
func (s *SessionScheduler) Propose(ctx context.Context, req SessionRequest) (*SessionProposal, error) {
	proposal := &SessionProposal{
		SupporteeID: req.SupporteeID,
		MatchID:     req.MatchID,
		BuddyID:     req.BuddyID,
		BuddyName:   req.BuddyName,
		SubjectID:   req.SubjectID,
		Status:      SessionStatusProposed,
		CreatedAt:   timeutil.Stamp(s.clock),
	}
	if s.newID != nil {
		proposal.ID = s.newID()
	}

	if hr := s.findRequest(ctx, req.SupporteeID, req.SubjectID); hr != nil {
		proposal.HelpRequestID = hr.ID
		if len(hr.Availability) > 0 {
			slot := hr.Availability[0]
			proposal.Slot = &slot
		}
	}

	if s.backend != nil {
		data, err := json.Marshal(proposal)
		if err != nil {
			return nil, fmt.Errorf("session_scheduler: marshal proposal: %w", err)
		}
		if err := s.backend.Set(ctx, s.key(req.SupporteeID), data); err != nil {
			return nil, fmt.Errorf("session_scheduler: store proposal: %w", err)
		}
	}

	s.log.Info("session proposed",
		logger.SupporteeID(req.SupporteeID),
		logger.BuddyID(req.BuddyID),
		logger.MatchID(req.MatchID),
		logger.Bool("has_slot", proposal.Slot != nil),
	)
	return proposal, nil
}

// Get returns the stored proposal or nil when there is none.
func (s *SessionScheduler) Get(ctx context.Context, supporteeID string) (*SessionProposal, error) {
	if s.backend == nil {
		return nil, nil
	}

	data, err := s.backend.Get(ctx, s.key(supporteeID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session_scheduler: load proposal: %w", err)
	}

	var proposal SessionProposal
	if err := json.Unmarshal(data, &proposal); err != nil {
		s.log.Warn("failed to parse session proposal", logger.SupporteeID(supporteeID), logger.Err(err))
		return nil, nil
	}
	return &proposal, nil
}

// findRequest picks the newest open request for the subject.
func (s *SessionScheduler) findRequest(ctx context.Context, supporteeID, subjectID string) *support.HelpRequest {
	if s.requests == nil {
		return nil
	}
	requests, err := s.requests.ListBySupportee(ctx, supporteeID)
	if err != nil {
		s.log.Warn("failed to list help requests", logger.SupporteeID(supporteeID), logger.Err(err))
		return nil
	}
	for _, r := range requests {
		if r.SubjectID == subjectID && !r.Status.IsClosed() {
			return r
		}
	}
	return nil
}
