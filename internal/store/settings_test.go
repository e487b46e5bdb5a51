package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()
	ctx := context.Background()

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, repo.SetAll(ctx, map[string]string{
		"gesture.pitch":    "0.7",
		"expression.smile": "25",
	}))
	require.NoError(t, repo.SetAll(ctx, map[string]string{"gesture.pitch": "0.6"}))

	v, err := repo.Get(ctx, "gesture.pitch")
	require.NoError(t, err)
	assert.Equal(t, "0.6", v)

	all, err = repo.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"gesture.pitch": "0.6", "expression.smile": "25"}, all)

	require.NoError(t, repo.Delete(ctx, "gesture.pitch"))
	_, err = repo.Get(ctx, "gesture.pitch")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "gesture.pitch"), ErrNotFound)
}
