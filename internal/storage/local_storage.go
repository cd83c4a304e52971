// Package storage persists scan results on local disk, one JSON document
// per scan, with optional gzip compression and age-based cleanup.
package storage

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bl4ck0w1/riskprobe/pkg/models"
)

type LocalStorage struct {
	baseDir  string
	compress bool
	logger   *logrus.Logger
	mu       sync.RWMutex
}

func NewLocalStorage(baseDir string, compress bool, logger *logrus.Logger) (*LocalStorage, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, compress: compress, logger: logger}, nil
}

// Save writes the result atomically. With compression enabled the final
// artifact is <scan_id>.json.gz, otherwise <scan_id>.json.
func (ls *LocalStorage) Save(result *models.ScanResult) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	finalPath := ls.pathFor(result.ScanID)
	tmp, err := os.CreateTemp(ls.baseDir, ".result_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if ls.compress {
		gzw := gzip.NewWriter(tmp)
		if _, err := gzw.Write(data); err != nil {
			return fmt.Errorf("compress result: %w", err)
		}
		if err := gzw.Close(); err != nil {
			return fmt.Errorf("close gzip stream: %w", err)
		}
	} else {
		if _, err := tmp.Write(data); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync result: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close result: %w", err)
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}

	ls.logger.WithFields(logrus.Fields{"scan_id": result.ScanID, "path": finalPath}).Debug("result saved")
	return nil
}

// Load reads one result by scan ID, trying the compressed artifact first.
func (ls *LocalStorage) Load(scanID string) (*models.ScanResult, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	for _, path := range []string{
		filepath.Join(ls.baseDir, scanID+".json.gz"),
		filepath.Join(ls.baseDir, scanID+".json"),
	} {
		result, err := readResultFile(path)
		if err == nil {
			return result, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no result stored for scan %s", scanID)
}

// List loads every stored result.
func (ls *LocalStorage) List() ([]*models.ScanResult, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	entries, err := os.ReadDir(ls.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}

	results := make([]*models.ScanResult, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isResultFile(entry.Name()) {
			continue
		}
		result, err := readResultFile(filepath.Join(ls.baseDir, entry.Name()))
		if err != nil {
			ls.logger.WithFields(logrus.Fields{"file": entry.Name(), "error": err}).Warn("skipping unreadable result")
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

// Delete removes a stored result in both encodings.
func (ls *LocalStorage) Delete(scanID string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	removed := false
	for _, path := range []string{
		filepath.Join(ls.baseDir, scanID+".json.gz"),
		filepath.Join(ls.baseDir, scanID+".json"),
	} {
		err := os.Remove(path)
		if err == nil {
			removed = true
			continue
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", path, err)
		}
	}
	if !removed {
		return fmt.Errorf("no result stored for scan %s", scanID)
	}
	return nil
}

// Cleanup removes results older than maxAge and returns how many were
// deleted.
func (ls *LocalStorage) Cleanup(maxAge time.Duration) (int, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(ls.baseDir)
	if err != nil {
		return 0, fmt.Errorf("read storage directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isResultFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(ls.baseDir, entry.Name())
		if err := os.Remove(path); err != nil {
			ls.logger.WithFields(logrus.Fields{"file": path, "error": err}).Warn("cleanup failed for file")
			continue
		}
		removed++
	}
	if removed > 0 {
		ls.logger.WithField("removed", removed).Info("expired results cleaned up")
	}
	return removed, nil
}

// Stats summarizes disk usage.
func (ls *LocalStorage) Stats() (map[string]interface{}, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	entries, err := os.ReadDir(ls.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read storage directory: %w", err)
	}

	var totalSize int64
	count := 0
	for _, entry := range entries {
		if entry.IsDir() || !isResultFile(entry.Name()) {
			continue
		}
		if info, err := entry.Info(); err == nil {
			totalSize += info.Size()
		}
		count++
	}
	return map[string]interface{}{
		"results":          count,
		"total_size_bytes": totalSize,
		"compression":      ls.compress,
		"directory":        ls.baseDir,
	}, nil
}

func isResultFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".json.gz")
}

func (ls *LocalStorage) pathFor(scanID string) string {
	if ls.compress {
		return filepath.Join(ls.baseDir, scanID+".json.gz")
	}
	return filepath.Join(ls.baseDir, scanID+".json")
}

func readResultFile(path string) (*models.ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer gzr.Close()
		reader = gzr
	}

	var result models.ScanResult
	if err := json.NewDecoder(reader).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &result, nil
}
