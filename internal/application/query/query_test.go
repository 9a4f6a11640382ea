package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/domain/catalog"
	"github.com/alem-hub/buddy-match-hub/internal/domain/matching"
	"github.com/alem-hub/buddy-match-hub/internal/domain/shared"
	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/helprequests"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/matchstate"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/memory"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGetMatchState_Missing(t *testing.T) {
	h := NewGetMatchStateHandler(matchstate.NewStore(memory.NewStore(), "test", nil))

	dto, err := h.Handle(context.Background(), GetMatchStateQuery{SupporteeID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "s1", dto.SupporteeID)
	assert.Empty(t, dto.Options)
	assert.NotNil(t, dto.Options)
	assert.False(t, dto.MatchNeeded)
	assert.Nil(t, dto.Active)
	assert.Zero(t, dto.PendingCount)
}

func TestGetMatchState_ActiveAndPending(t *testing.T) {
	ctx := context.Background()
	store := matchstate.NewStore(memory.NewStore(), "test", nil)
	responded := t0.Add(time.Minute)

	require.NoError(t, store.Save(ctx, "s1", matching.State{
		Options: []matching.Option{
			{MatchID: "m1", BuddyID: "buddy1", Status: matching.StatusSelected, PreferenceScore: matching.PreferenceAccepted, RespondedAt: &responded, CreatedAt: t0},
			{MatchID: "m2", BuddyID: "buddy4", Status: matching.StatusProposed, CreatedAt: t0},
			{MatchID: "m3", BuddyID: "buddy2", Status: matching.StatusRejected, PreferenceScore: matching.PreferenceRejected, CreatedAt: t0},
		},
		ActiveMatchID: "m1",
	}))

	dto, err := NewGetMatchStateHandler(store).Handle(ctx, GetMatchStateQuery{SupporteeID: "s1"})
	require.NoError(t, err)
	require.NotNil(t, dto.Active)
	assert.Equal(t, "buddy1", dto.Active.BuddyID)
	assert.Equal(t, 1, dto.PendingCount)
	assert.Len(t, dto.Options, 3)
}

func TestGetMatchState_RequiresSupportee(t *testing.T) {
	h := NewGetMatchStateHandler(matchstate.NewStore(memory.NewStore(), "test", nil))

	_, err := h.Handle(context.Background(), GetMatchStateQuery{})
	assert.ErrorIs(t, err, shared.ErrEmptySupporteeID)
}

func TestGetHelpRequests_FilterAndLimit(t *testing.T) {
	ctx := context.Background()
	repo := helprequests.NewRepository(memory.NewStore(), "test", nil)

	for i, id := range []string{"r1", "r2", "r3"} {
		req, err := support.NewHelpRequest(support.NewHelpRequestParams{
			ID:          id,
			SupporteeID: "s1",
			SubjectID:   "math",
			HelpType:    support.HelpTypePractice,
			CreatedAt:   t0.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		if id == "r2" {
			require.NoError(t, req.MarkMatched("buddy1"))
		}
		require.NoError(t, repo.Save(ctx, req))
	}

	h := NewGetHelpRequestsHandler(repo)

	all, err := h.Handle(ctx, GetHelpRequestsQuery{SupporteeID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	require.Len(t, all.Requests, 3)
	assert.Equal(t, "r3", all.Requests[0].ID)

	pending, err := h.Handle(ctx, GetHelpRequestsQuery{SupporteeID: "s1", Status: support.StatusPending, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, pending.Total)
	require.Len(t, pending.Requests, 1)
	assert.Equal(t, "r3", pending.Requests[0].ID)

	_, err = h.Handle(ctx, GetHelpRequestsQuery{SupporteeID: "s1", Limit: -1})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestGetCatalog(t *testing.T) {
	dto := NewGetCatalogHandler().Handle()

	assert.Equal(t, catalog.Subjects(), dto.Subjects)
	assert.Len(t, dto.Buddies, 4)
	assert.Len(t, dto.Days, 7)
	assert.NotEmpty(t, dto.HelpTypes)
	assert.NotEmpty(t, dto.MoodScale)
}
