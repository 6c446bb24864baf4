package audio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SidecarPath returns the metadata file written next to a recording.
func SidecarPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + ".capture.json"
}

// SaveSession writes session metadata next to the recording via a temp file
// and rename, so readers never observe a partial document.
func SaveSession(sess AudioSession, path string) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session metadata: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish session metadata: %w", err)
	}
	return nil
}

// LoadSession reads session metadata written by SaveSession.
func LoadSession(path string) (AudioSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AudioSession{}, fmt.Errorf("read session metadata: %w", err)
	}
	var sess AudioSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return AudioSession{}, fmt.Errorf("decode session metadata %s: %w", path, err)
	}
	return sess, nil
}
