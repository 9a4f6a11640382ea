package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/buddy-match-hub/internal/infrastructure/persistence/kv"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	value := []byte(`{"a":1}`)
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	assert.Equal(t, 0, s.Len())
}
