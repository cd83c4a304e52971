package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// NewScanID returns a fresh scan identifier.
func NewScanID() string {
	return uuid.NewString()
}

// EnsureDir creates the directory if it does not exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// WriteFileJSON atomically writes v as indented JSON.
func WriteFileJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// TruncateString shortens s to at most n runes.
func TruncateString(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

// HumanDuration renders a duration with second precision.
func HumanDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
