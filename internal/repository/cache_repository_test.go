package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "timetable:verdicts:x", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "timetable:verdicts:x", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "timetable:*"))
	require.NoError(t, repo.Ping(ctx))
	require.NoError(t, repo.Close())
}

func TestCacheRepositoryRefusesForeignKeys(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	assert.Error(t, repo.Get(ctx, "sessions:abc", &dest))
	assert.Error(t, repo.Set(ctx, "verdicts:x", "v", time.Minute))
	assert.Error(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "timetable:verdicts:*"))
}
