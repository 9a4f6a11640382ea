package aimatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/domain/catalog"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
)

type fixedRandom struct {
	n    int
	seen []int
}

func (f *fixedRandom) IntN(n int) int {
	f.seen = append(f.seen, n)
	return f.n % n
}

func instant() Config {
	cfg := DefaultConfig()
	cfg.Latency = 0
	return cfg
}

func request(subjectID string, mood *int) *support.HelpRequest {
	return &support.HelpRequest{
		ID:          "r1",
		SupporteeID: "s1",
		SubjectID:   subjectID,
		HelpType:    support.HelpTypeExplain,
		Mood:        mood,
		Status:      support.StatusPending,
	}
}

func TestGenerate_MathScenario(t *testing.T) {
	rnd := &fixedRandom{n: 7}
	g := NewGenerator(instant(), WithRandomSource(rnd))

	suggestions, err := g.Generate(context.Background(), request("math", nil))
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "buddy1", suggestions[0].BuddyID)
	assert.Equal(t, "Lena Hoffmann", suggestions[0].BuddyName)
	assert.Equal(t, "buddy4", suggestions[1].BuddyID)
	for _, s := range suggestions {
		assert.Equal(t, 77, s.Confidence)
		assert.Contains(t, s.Reason, "Mathematics")
	}
	assert.Equal(t, []int{16, 16}, rnd.seen)
}

func TestGenerate_ConfidenceBounds(t *testing.T) {
	for _, n := range []int{0, 15, 16, 99} {
		g := NewGenerator(instant(), WithRandomSource(&fixedRandom{n: n}))
		suggestions, err := g.Generate(context.Background(), request("math", nil))
		require.NoError(t, err)
		for _, s := range suggestions {
			assert.GreaterOrEqual(t, s.Confidence, 70)
			assert.LessOrEqual(t, s.Confidence, 85)
		}
	}
}

func TestGenerate_NoMatchingBuddy(t *testing.T) {
	g := NewGenerator(instant())

	suggestions, err := g.Generate(context.Background(), request("chess", nil))
	require.NoError(t, err)
	assert.NotNil(t, suggestions)
	assert.Empty(t, suggestions)
}

func TestGenerate_TruncatesInRosterOrder(t *testing.T) {
	roster := []catalog.Buddy{
		{ID: "a", Name: "A", Expertise: []string{"math"}},
		{ID: "b", Name: "B", Expertise: []string{"math"}},
		{ID: "c", Name: "C", Expertise: []string{"physics"}},
		{ID: "d", Name: "D", Expertise: []string{"math"}},
		{ID: "e", Name: "E", Expertise: []string{"math"}},
	}
	g := NewGenerator(instant(), WithRoster(roster))

	suggestions, err := g.Generate(context.Background(), request("math", nil))
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "a", suggestions[0].BuddyID)
	assert.Equal(t, "b", suggestions[1].BuddyID)
	assert.Equal(t, "d", suggestions[2].BuddyID)
}

func TestGenerate_DesiredBuddyFirst(t *testing.T) {
	roster := []catalog.Buddy{
		{ID: "a", Name: "A", Expertise: []string{"math"}},
		{ID: "b", Name: "B", Expertise: []string{"math"}},
		{ID: "c", Name: "C", Expertise: []string{"physics"}},
		{ID: "d", Name: "D", Expertise: []string{"math"}},
		{ID: "e", Name: "E", Expertise: []string{"math"}},
	}
	g := NewGenerator(instant(), WithRoster(roster))

	req := request("math", nil)
	req.DesiredBuddyID = "e"
	suggestions, err := g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	assert.Equal(t, "e", suggestions[0].BuddyID)
	assert.Equal(t, "a", suggestions[1].BuddyID)
	assert.Equal(t, "b", suggestions[2].BuddyID)

	// a desired buddy without the subject is not added
	req.DesiredBuddyID = "c"
	suggestions, err = g.Generate(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, suggestions, 3)
	for _, s := range suggestions {
		assert.NotEqual(t, "c", s.BuddyID)
	}
	assert.Equal(t, "a", suggestions[0].BuddyID)
}

func TestGenerate_LowMoodReason(t *testing.T) {
	g := NewGenerator(instant())
	low, ok := 1, 2

	suggestions, err := g.Generate(context.Background(), request("math", &low))
	require.NoError(t, err)
	assert.Contains(t, suggestions[0].Reason, "Soft landing")

	suggestions, err = g.Generate(context.Background(), request("math", &ok))
	require.NoError(t, err)
	assert.NotContains(t, suggestions[0].Reason, "Soft landing")

	skipped := request("math", nil)
	skipped.MoodSkipped = true
	suggestions, err = g.Generate(context.Background(), skipped)
	require.NoError(t, err)
	assert.NotContains(t, suggestions[0].Reason, "Soft landing")
}

func TestGenerate_Cancelled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Latency = time.Hour
	g := NewGenerator(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, request("math", nil))
	assert.ErrorIs(t, err, shared.ErrCandidateServiceCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerate_WaitsForLatency(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Latency = 20 * time.Millisecond
	g := NewGenerator(cfg)

	start := time.Now()
	_, err := g.Generate(context.Background(), request("math", nil))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestGenerateAsync(t *testing.T) {
	g := NewGenerator(instant())

	res := <-g.GenerateAsync(context.Background(), request("german", nil))
	require.NoError(t, res.Err)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, "buddy2", res.Suggestions[0].BuddyID)

	cfg := DefaultConfig()
	cfg.Latency = time.Hour
	slow := NewGenerator(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	ch := slow.GenerateAsync(ctx, request("german", nil))
	cancel()

	select {
	case res := <-ch:
		assert.ErrorIs(t, res.Err, shared.ErrCandidateServiceCancelled)
	case <-time.After(time.Second):
		t.Fatal("async generation did not observe cancellation")
	}
	_, open := <-ch
	assert.False(t, open)
}

func TestNewGenerator_InvalidBoundsFallBack(t *testing.T) {
	g := NewGenerator(Config{ConfidenceMin: 90, ConfidenceMax: 10})
	assert.Equal(t, 70, g.config.ConfidenceMin)
	assert.Equal(t, 85, g.config.ConfidenceMax)
	assert.Equal(t, 3, g.config.MaxSuggestions)
	assert.Equal(t, time.Duration(0), g.config.Latency)
}
