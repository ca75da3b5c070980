package session

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FilePersistence implements SessionPersistence with one JSON file per room.
// File names are the hex encoding of the room ID, so any room ID is safe on disk.
type FilePersistence struct {
	dir string
}

// NewFilePersistence creates a file-based snapshot store rooted at dir
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FilePersistence{dir: dir}, nil
}

// Save writes the snapshot atomically through a temporary file
func (fp *FilePersistence) Save(snap Snapshot) error {
	if snap.RoomID == "" {
		return ErrInvalidRoomID
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	path := fp.path(snap.RoomID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot file: %w", err)
	}
	return nil
}

// Load reads a room's snapshot
func (fp *FilePersistence) Load(roomID string) (Snapshot, error) {
	data, err := os.ReadFile(fp.path(roomID))
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, ErrSessionNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	if snap.RoomID != roomID {
		return Snapshot{}, fmt.Errorf("snapshot room %q does not match %q", snap.RoomID, roomID)
	}
	return snap, nil
}

// Delete removes a room's snapshot
func (fp *FilePersistence) Delete(roomID string) error {
	if !fp.Exists(roomID) {
		return ErrSessionNotFound
	}
	if err := os.Remove(fp.path(roomID)); err != nil {
		return fmt.Errorf("failed to remove snapshot file: %w", err)
	}
	return nil
}

// ListAll returns every room ID with a snapshot
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var roomIDs []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		raw, err := hex.DecodeString(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		roomIDs = append(roomIDs, string(raw))
	}
	return roomIDs, nil
}

// Exists checks if a snapshot file exists
func (fp *FilePersistence) Exists(roomID string) bool {
	_, err := os.Stat(fp.path(roomID))
	return err == nil
}

// Prune deletes snapshots not written within maxAge and returns how many it removed
func (fp *FilePersistence) Prune(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(fp.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(fp.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (fp *FilePersistence) path(roomID string) string {
	return filepath.Join(fp.dir, hex.EncodeToString([]byte(roomID))+".json")
}
