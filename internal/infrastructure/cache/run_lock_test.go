package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

func TestLocalRunLock(t *testing.T) {
	lock := NewLocalRunLock()
	ctx := context.Background()

	release, ok, err := lock.TryAcquire(ctx, ingest.SourceWBSales)
	require.NoError(t, err)
	require.True(t, ok)

	// Second acquire on the same connector is rejected.
	_, ok, err = lock.TryAcquire(ctx, ingest.SourceWBSales)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other connectors are independent.
	releaseYM, ok, err := lock.TryAcquire(ctx, ingest.SourceYMOrders)
	require.NoError(t, err)
	assert.True(t, ok)
	releaseYM()

	release()
	release2, ok, err := lock.TryAcquire(ctx, ingest.SourceWBSales)
	require.NoError(t, err)
	assert.True(t, ok)
	release2()
}
