package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var slugUnsafe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Basename builds the on-disk session name, date first so listings sort
// chronologically: "2026-08-26--Weekly-Sync".
func Basename(startedAt time.Time, title string) string {
	slug := slugUnsafe.ReplaceAllString(title, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "Untitled"
	}
	return fmt.Sprintf("%s--%s", startedAt.Format("2006-01-02"), slug)
}

// Save writes the record as indented JSON next to its audio file. The
// write goes through a temp file and rename so readers never see a partial
// record.
func Save(rec *SessionRecord, path string) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename record: %w", err)
	}
	return nil
}

// Load reads a session record from its JSON artifact.
func Load(path string) (*SessionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return &rec, nil
}

// Sweep removes session artifacts (WAV, JSON, sidecar files) older than
// maxAge from dir, using file modification time. It returns the number of
// files removed; individual removal errors abort the sweep.
func Sweep(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read dir: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return removed, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}
