package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

// Repository fronts LocalStorage with an in-memory cache and query
// helpers. It is safe for concurrent use.
type Repository struct {
	storage  *LocalStorage
	cacheTTL time.Duration
	logger   *logrus.Logger

	mu    sync.RWMutex
	cache map[string]cachedResult
}

type cachedResult struct {
	result  *models.ScanResult
	savedAt time.Time
}

func NewRepository(storage *LocalStorage, cacheTTL time.Duration, logger *logrus.Logger) *Repository {
	if logger == nil {
		logger = logrus.New()
	}
	return &Repository{
		storage:  storage,
		cacheTTL: cacheTTL,
		logger:   logger,
		cache:    make(map[string]cachedResult),
	}
}

func (r *Repository) Store(ctx context.Context, result *models.ScanResult) error {
	if err := validateResult(result); err != nil {
		return fmt.Errorf("invalid result: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.storage.Save(result); err != nil {
		return err
	}

	r.mu.Lock()
	r.cache[result.ScanID] = cachedResult{result: result, savedAt: time.Now()}
	r.mu.Unlock()
	return nil
}

func (r *Repository) FindByScanID(ctx context.Context, scanID string) (*models.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	cached, ok := r.cache[scanID]
	r.mu.RUnlock()
	if ok && (r.cacheTTL <= 0 || time.Since(cached.savedAt) < r.cacheTTL) {
		return cached.result, nil
	}

	return r.storage.Load(scanID)
}

// FindByTarget returns all stored results for a target, newest first.
func (r *Repository) FindByTarget(ctx context.Context, target string) ([]*models.ScanResult, error) {
	return r.query(ctx, func(result *models.ScanResult) bool {
		return result.Target == target
	})
}

func (r *Repository) FindByStatus(ctx context.Context, status models.ScanStatus) ([]*models.ScanResult, error) {
	return r.query(ctx, func(result *models.ScanResult) bool {
		return result.Status == status
	})
}

// ListAll returns every stored result, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]*models.ScanResult, error) {
	return r.query(ctx, func(*models.ScanResult) bool { return true })
}

func (r *Repository) query(ctx context.Context, keep func(*models.ScanResult) bool) ([]*models.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := r.storage.List()
	if err != nil {
		return nil, err
	}

	matched := make([]*models.ScanResult, 0, len(all))
	for _, result := range all {
		if keep(result) {
			matched = append(matched, result)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	return matched, nil
}

func (r *Repository) Delete(ctx context.Context, scanID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.cache, scanID)
	r.mu.Unlock()
	return r.storage.Delete(scanID)
}

// Cleanup evicts expired cache entries and delegates disk cleanup.
func (r *Repository) Cleanup(maxAge time.Duration) (int, error) {
	r.mu.Lock()
	for scanID, cached := range r.cache {
		if r.cacheTTL > 0 && time.Since(cached.savedAt) >= r.cacheTTL {
			delete(r.cache, scanID)
		}
	}
	r.mu.Unlock()
	return r.storage.Cleanup(maxAge)
}

func (r *Repository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats, err := r.storage.Stats()
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	stats["cached_results"] = len(r.cache)
	r.mu.RUnlock()
	return stats, nil
}

func validateResult(result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if result.ScanID == "" {
		return fmt.Errorf("scan ID is required")
	}
	if result.Target == "" {
		return fmt.Errorf("target is required")
	}
	if result.Status == "" {
		return fmt.Errorf("status is required")
	}
	if result.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}
