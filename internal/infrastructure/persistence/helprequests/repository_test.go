package helprequests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/domain/support"
	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/memory"
)

func newRequest(t *testing.T, id, supporteeID string, createdAt time.Time) *support.HelpRequest {
	t.Helper()
	mood := 3
	req, err := support.NewHelpRequest(support.NewHelpRequestParams{
		ID:          id,
		SupporteeID: supporteeID,
		SubjectID:   "math",
		Topic:       "fractions",
		HelpType:    support.HelpTypeExplain,
		Availability: []support.AvailabilityBlock{
			{Day: "monday", From: "16:00", To: "17:30"},
		},
		Mood:      &mood,
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return req
}

func TestRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.NewStore(), "test", nil)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	req := newRequest(t, "r1", "s1", t0)
	require.NoError(t, repo.Save(ctx, req))

	got, err := repo.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, req, got)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, support.ErrHelpRequestNotFound)
}

func TestRepository_ListBySupportee(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(memory.NewStore(), "test", nil)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, newRequest(t, "r1", "s1", t0)))
	require.NoError(t, repo.Save(ctx, newRequest(t, "r2", "s1", t0.Add(time.Hour))))
	require.NoError(t, repo.Save(ctx, newRequest(t, "r3", "s2", t0)))

	// re-saving must not duplicate the index entry
	r1 := newRequest(t, "r1", "s1", t0)
	require.NoError(t, r1.MarkMatched("buddy1"))
	require.NoError(t, repo.Save(ctx, r1))

	list, err := repo.ListBySupportee(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "r2", list[0].ID)
	assert.Equal(t, "r1", list[1].ID)
	assert.Equal(t, support.StatusMatched, list[1].Status)

	empty, err := repo.ListBySupportee(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepository_SkipsCorruptDocuments(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	repo := NewRepository(backend, "test", nil)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, newRequest(t, "r1", "s1", t0)))
	require.NoError(t, repo.Save(ctx, newRequest(t, "r2", "s1", t0)))
	require.NoError(t, backend.Set(ctx, repo.requestKey("r2"), []byte("garbage")))

	list, err := repo.ListBySupportee(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "r1", list[0].ID)
}
