package matchstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/memory"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleState(n int) matching.State {
	state := matching.DefaultState()
	for i := 0; i < n; i++ {
		state.Options = append(state.Options, matching.Option{
			MatchID:         fmt.Sprintf("match-%d", i+1),
			BuddyID:         fmt.Sprintf("buddy%d", i+1),
			BuddyName:       "Lena Hoffmann",
			ClassLevel:      "Grade 9",
			SubjectID:       "math",
			SubjectLabel:    "Mathematics",
			Reasons:         []string{"Strong in Mathematics"},
			Confidence:      77,
			ProfileInitials: "LH",
			Status:          matching.StatusProposed,
			CreatedAt:       t0,
		})
	}
	return state
}

func TestStore_Key(t *testing.T) {
	assert.Equal(t, "bmh:supportee-matches:s1", NewStore(nil, "bmh", nil).Key("s1"))
	assert.Equal(t, "supportee-matches:s1", NewStore(nil, "", nil).Key("s1"))
}

func TestStore_LoadMissingReturnsDefault(t *testing.T) {
	s := NewStore(memory.NewStore(), "test", nil)

	state, err := s.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, matching.DefaultState(), state)
	assert.NotNil(t, state.Options)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.NewStore(), "test", nil)

	state := sampleState(3)
	responded := t0.Add(time.Minute)
	state.Options[0].Status = matching.StatusSelected
	state.Options[0].PreferenceScore = matching.PreferenceAccepted
	state.Options[0].RespondedAt = &responded
	state.Options[1].SharedTraits = []string{"patient"}
	state.ActiveMatchID = "match-1"
	state.LastCoachSignalAt = &responded

	require.NoError(t, s.Save(ctx, "s1", state))

	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, state, loaded)

	require.NoError(t, s.Save(ctx, "s1", loaded))
	reloaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, loaded, reloaded)
}

func TestStore_EmptySeedRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.NewStore(), "test", nil)

	seeded := matching.Seed(nil, matching.SeedContext{SubjectID: "math"}, t0, func() string { return "unused" })
	require.NoError(t, s.Save(ctx, "s1", seeded))

	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, matching.State{Options: []matching.Option{}, MatchNeeded: true}, loaded)
}

func TestStore_ReasonsAlwaysStoredAsArray(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s := NewStore(backend, "test", nil)

	state := sampleState(1)
	state.Options[0].Reasons = nil
	require.NoError(t, s.Save(ctx, "s1", state))

	raw, err := backend.Get(ctx, s.Key("s1"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"reasons":[]`)

	// documents written elsewhere with null reasons load as empty lists
	require.NoError(t, backend.Set(ctx, s.Key("s2"), []byte(`{"options":[{"matchId":"m1","reasons":null,"status":"proposed"}]}`)))
	loaded, err := s.Load(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, loaded.Options, 1)
	assert.NotNil(t, loaded.Options[0].Reasons)
}

func TestStore_TruncatesOnLoadNotOnSave(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s := NewStore(backend, "test", nil)

	oversized := sampleState(5)
	require.NoError(t, s.Save(ctx, "s1", oversized))

	raw, err := backend.Get(ctx, s.Key("s1"))
	require.NoError(t, err)
	var stored matching.State
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored.Options, 5)

	loaded, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, loaded.Options, matching.MaxOptions)
	assert.NotEqual(t, oversized, loaded)
	assert.Equal(t, oversized.Options[:3], loaded.Options)
}

func TestStore_CorruptPayloadFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s := NewStore(backend, "test", nil)

	for _, payload := range []string{`{not json`, `{"options": "nope"}`, ``, `[]`} {
		require.NoError(t, backend.Set(ctx, s.Key("s1"), []byte(payload)))

		state, err := s.Load(ctx, "s1")
		require.NoError(t, err, payload)
		assert.Equal(t, matching.DefaultState(), state, payload)
	}
}

func TestStore_NullOptionsNormalized(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	s := NewStore(backend, "test", nil)

	require.NoError(t, backend.Set(ctx, s.Key("s1"), []byte(`{"options":null,"matchNeeded":true}`)))

	state, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []matching.Option{}, state.Options)
	assert.True(t, state.MatchNeeded)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.NewStore(), "test", nil)

	require.NoError(t, s.Save(ctx, "s1", sampleState(2)))
	require.NoError(t, s.Clear(ctx, "s1"))

	state, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, matching.DefaultState(), state)
}

func TestStore_NilBackend(t *testing.T) {
	ctx := context.Background()
	s := NewStore(nil, "test", nil)

	require.NoError(t, s.Save(ctx, "s1", sampleState(2)))
	state, err := s.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, matching.DefaultState(), state)
	assert.NoError(t, s.Clear(ctx, "s1"))
}

type failingBackend struct {
	calls int
}

func (f *failingBackend) Get(context.Context, string) ([]byte, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func (f *failingBackend) Set(context.Context, string, []byte) error {
	f.calls++
	return errors.New("connection refused")
}

func (f *failingBackend) Delete(context.Context, string) error {
	f.calls++
	return errors.New("connection refused")
}

var _ kv.Store = (*failingBackend)(nil)

func TestStore_BackendFailures(t *testing.T) {
	ctx := context.Background()

	backend := &failingBackend{}
	s := NewStore(backend, "test", nil)
	_, err := s.Load(ctx, "s1")
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	assert.Equal(t, 1, backend.calls)

	backend = &failingBackend{}
	s = NewStore(backend, "test", nil)
	err = s.Save(ctx, "s1", sampleState(1))
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	assert.Equal(t, 3, backend.calls)
}
