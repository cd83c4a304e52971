package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

func newTestRepository(t *testing.T, cacheTTL time.Duration) *Repository {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir(), false, nil)
	require.NoError(t, err)
	return NewRepository(store, cacheTTL, nil)
}

func TestStoreAndFindByScanID(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	result := sampleResult("scan-repo", "example.com", models.StatusComplete)
	require.NoError(t, repo.Store(ctx, result))

	found, err := repo.FindByScanID(ctx, "scan-repo")
	require.NoError(t, err)
	assert.Equal(t, "scan-repo", found.ScanID)
	assert.Equal(t, "example.com", found.Target)
}

func TestStoreRejectsInvalidResults(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	assert.Error(t, repo.Store(ctx, nil))
	assert.Error(t, repo.Store(ctx, &models.ScanResult{Target: "example.com"}))
	assert.Error(t, repo.Store(ctx, &models.ScanResult{ScanID: "x", Status: models.StatusComplete}))
	assert.Error(t, repo.Store(ctx, &models.ScanResult{
		ScanID: "x", Target: "example.com", Status: models.StatusComplete,
	}), "zero timestamp must be rejected")
}

func TestFindByScanIDFallsBackToDisk(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), false, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(sampleResult("scan-disk", "example.com", models.StatusComplete)))

	// A fresh repository has an empty cache, so this read must hit disk.
	repo := NewRepository(store, time.Hour, nil)
	found, err := repo.FindByScanID(ctx, "scan-disk")
	require.NoError(t, err)
	assert.Equal(t, "scan-disk", found.ScanID)
}

func TestFindByTarget(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	older := sampleResult("scan-t1", "example.com", models.StatusComplete)
	older.Timestamp = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.Store(ctx, older))
	require.NoError(t, repo.Store(ctx, sampleResult("scan-t2", "example.com", models.StatusPartial)))
	require.NoError(t, repo.Store(ctx, sampleResult("scan-t3", "example.org", models.StatusComplete)))

	results, err := repo.FindByTarget(ctx, "example.com")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "scan-t2", results[0].ScanID, "newest result first")
	assert.Equal(t, "scan-t1", results[1].ScanID)
}

func TestFindByStatus(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleResult("scan-s1", "example.com", models.StatusComplete)))
	require.NoError(t, repo.Store(ctx, sampleResult("scan-s2", "example.org", models.StatusPartial)))

	partial, err := repo.FindByStatus(ctx, models.StatusPartial)
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, "scan-s2", partial[0].ScanID)
}

func TestListAll(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleResult("scan-l1", "example.com", models.StatusComplete)))
	require.NoError(t, repo.Store(ctx, sampleResult("scan-l2", "example.org", models.StatusComplete)))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteEvictsCache(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleResult("scan-d", "example.com", models.StatusComplete)))
	require.NoError(t, repo.Delete(ctx, "scan-d"))

	_, err := repo.FindByScanID(ctx, "scan-d")
	assert.Error(t, err)
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.Store(ctx, sampleResult("scan-ctx", "example.com", models.StatusComplete))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepositoryGetStats(t *testing.T) {
	repo := newTestRepository(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleResult("scan-st", "example.com", models.StatusComplete)))

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats["results"])
	assert.Equal(t, 1, stats["cached_results"])
}

func TestCleanupEvictsExpiredCacheEntries(t *testing.T) {
	repo := newTestRepository(t, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, sampleResult("scan-c", "example.com", models.StatusComplete)))
	time.Sleep(5 * time.Millisecond)

	_, err := repo.Cleanup(0)
	require.NoError(t, err)

	// The cache entry expired, but the artifact is still on disk.
	found, err := repo.FindByScanID(ctx, "scan-c")
	require.NoError(t, err)
	assert.Equal(t, "scan-c", found.ScanID)
}
