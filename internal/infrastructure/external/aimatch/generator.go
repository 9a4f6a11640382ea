// Package aimatch implements the candidate service: it shortlists buddies from
// the roster for a help request and scores them.
//
// The service stands in for a remote AI matcher, so every call waits a fixed
// latency. The wait honours context cancellation.
package aimatch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/alem-hub/buddy-match-hub/internal/domain/catalog"
	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds candidate service policy.
type Config struct {
	// Latency is the artificial delay of every call.
	Latency time.Duration

	// ConfidenceMin and ConfidenceMax bound the confidence score (inclusive).
	ConfidenceMin int
	ConfidenceMax int

	// LowMoodThreshold: an answered mood below it switches to soft-landing reasons.
	LowMoodThreshold int

	// MaxSuggestions caps the shortlist.
	MaxSuggestions int
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		Latency:          900 * time.Millisecond,
		ConfidenceMin:    70,
		ConfidenceMax:    85,
		LowMoodThreshold: support.DefaultLowMoodThreshold,
		MaxSuggestions:   matching.MaxOptions,
	}
}

// RandomSource yields integers in [0, n). *rand.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.Intn(n) }

// ══════════════════════════════════════════════════════════════════════════════
// GENERATOR
// ══════════════════════════════════════════════════════════════════════════════

// Generator produces candidate suggestions. Safe for concurrent use when the
// RandomSource is.
type Generator struct {
	config Config
	random RandomSource
	roster func() []catalog.Buddy
	log    *logger.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandomSource overrides the random source.
func WithRandomSource(r RandomSource) Option {
	return func(g *Generator) {
		if r != nil {
			g.random = r
		}
	}
}

// WithRoster overrides the buddy roster.
func WithRoster(roster []catalog.Buddy) Option {
	return func(g *Generator) {
		buddies := append([]catalog.Buddy(nil), roster...)
		g.roster = func() []catalog.Buddy { return buddies }
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGenerator creates a Generator. Invalid bounds fall back to DefaultConfig values.
func NewGenerator(cfg Config, opts ...Option) *Generator {
	def := DefaultConfig()
	if cfg.ConfidenceMax < cfg.ConfidenceMin || cfg.ConfidenceMin < 0 || cfg.ConfidenceMax > 100 {
		cfg.ConfidenceMin, cfg.ConfidenceMax = def.ConfidenceMin, def.ConfidenceMax
	}
	if cfg.LowMoodThreshold <= 0 {
		cfg.LowMoodThreshold = def.LowMoodThreshold
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = def.MaxSuggestions
	}
	if cfg.Latency < 0 {
		cfg.Latency = 0
	}

	g := &Generator{
		config: cfg,
		random: globalSource{},
		roster: catalog.Roster,
		log:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logger.Component("aimatch"))
	return g
}

// Generate returns up to MaxSuggestions buddies whose expertise covers the
// request's subject, in roster order. A desired buddy who covers the subject
// is moved to the front. No match yields an empty list and no error.
func (g *Generator) Generate(ctx context.Context, req *support.HelpRequest) ([]matching.Suggestion, error) {
	if req == nil {
		return nil, shared.NewDomainError("aimatch", "Generate", shared.ErrInvalidInput, "help request is required")
	}

	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	lowMood := req.IsLowMood(g.config.LowMoodThreshold)
	subjectLabel := catalog.SubjectLabel(req.SubjectID, req.SubjectID)

	suggestions := make([]matching.Suggestion, 0, g.config.MaxSuggestions)
	for _, buddy := range candidates(g.roster(), req.SubjectID, req.DesiredBuddyID) {
		if len(suggestions) == g.config.MaxSuggestions {
			break
		}
		suggestions = append(suggestions, matching.Suggestion{
			BuddyID:    buddy.ID,
			BuddyName:  buddy.Name,
			Confidence: g.confidence(),
			Reason:     reason(buddy.Name, subjectLabel, lowMood),
		})
	}

	g.log.Debug("candidates generated",
		logger.SupporteeID(req.SupporteeID),
		logger.HelpRequestID(req.ID),
		logger.Int("count", len(suggestions)),
		logger.Bool("low_mood", lowMood),
	)

	return suggestions, nil
}

// candidates filters the roster by subject and puts desiredID first when present.
func candidates(roster []catalog.Buddy, subjectID, desiredID string) []catalog.Buddy {
	out := make([]catalog.Buddy, 0, len(roster))
	for _, buddy := range roster {
		if !buddy.HasExpertise(subjectID) {
			continue
		}
		if desiredID != "" && buddy.ID == desiredID {
			out = append([]catalog.Buddy{buddy}, out...)
			continue
		}
		out = append(out, buddy)
	}
	return out
}

// Result is the outcome of an asynchronous generation.
type Result struct {
	Suggestions []matching.Suggestion
	Err         error
}

// GenerateAsync runs Generate in the background. The channel receives exactly
// one Result and is then closed. Cancel ctx to abandon the call.
func (g *Generator) GenerateAsync(ctx context.Context, req *support.HelpRequest) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		suggestions, err := g.Generate(ctx, req)
		out <- Result{Suggestions: suggestions, Err: err}
	}()
	return out
}

func (g *Generator) wait(ctx context.Context) error {
	if g.config.Latency == 0 {
		if ctx.Err() != nil {
			return shared.WrapError("aimatch", "Generate", shared.ErrCandidateServiceCancelled, "candidate generation cancelled", ctx.Err())
		}
		return nil
	}

	timer := time.NewTimer(g.config.Latency)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return shared.WrapError("aimatch", "Generate", shared.ErrCandidateServiceCancelled, "candidate generation cancelled", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (g *Generator) confidence() int {
	return g.config.ConfidenceMin + g.random.IntN(g.config.ConfidenceMax-g.config.ConfidenceMin+1)
}

func reason(buddyName, subjectLabel string, lowMood bool) string {
	if lowMood {
		return fmt.Sprintf("Soft landing: %s takes it slow and keeps the first session low-pressure.", buddyName)
	}
	return fmt.Sprintf("%s is confident in %s and matches your request.", buddyName, subjectLabel)
}
