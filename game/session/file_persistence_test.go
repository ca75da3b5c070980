package session

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/chess-rooms/game/engine"
)

func TestFilePersistence(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	snap := Snapshot{
		RoomID:    "team/alpha",
		FEN:       "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		MoveCount: 1,
		LastMove:  &AppliedMove{From: 52, To: 36, UCI: "e2e4"},
		CreatedAt: time.Now().Add(-time.Minute).UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	t.Run("Save and Load", func(t *testing.T) {
		if err := persistence.Save(snap); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if !persistence.Exists(snap.RoomID) {
			t.Error("snapshot should exist after save")
		}

		loaded, err := persistence.Load(snap.RoomID)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.FEN != snap.FEN || loaded.MoveCount != 1 || loaded.LastMove.UCI != "e2e4" {
			t.Errorf("loaded snapshot = %+v", loaded)
		}
	})

	t.Run("ListAll decodes room IDs", func(t *testing.T) {
		if err := persistence.Save(Snapshot{RoomID: "plain", FEN: engine.StartingFEN}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		ids, err := persistence.ListAll()
		if err != nil {
			t.Fatalf("ListAll failed: %v", err)
		}
		sort.Strings(ids)
		if len(ids) != 2 || ids[0] != "plain" || ids[1] != "team/alpha" {
			t.Errorf("ListAll = %v", ids)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := persistence.Delete("plain"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if persistence.Exists("plain") {
			t.Error("snapshot should be gone")
		}
		if err := persistence.Delete("plain"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("second Delete error = %v, want ErrSessionNotFound", err)
		}
		if _, err := persistence.Load("plain"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Load error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("Save requires a room", func(t *testing.T) {
		if err := persistence.Save(Snapshot{}); !errors.Is(err, ErrInvalidRoomID) {
			t.Errorf("Save error = %v, want ErrInvalidRoomID", err)
		}
	})
}

func TestFilePersistence_Prune(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}

	for _, id := range []string{"old", "new"} {
		if err := persistence.Save(Snapshot{RoomID: id, FEN: engine.StartingFEN}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(persistence.path("old"), stale, stale); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	removed, err := persistence.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if persistence.Exists("old") || !persistence.Exists("new") {
		t.Error("Prune removed the wrong snapshot")
	}
	if _, err := os.Stat(filepath.Join(dir, "new.json")); err == nil {
		t.Error("file names should be encoded, not raw room IDs")
	}
}

func TestManagerWithPersistence(t *testing.T) {
	dir := t.TempDir()
	persistence, err := NewFilePersistence(dir)
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	rules := engine.NewChessRules()

	manager := NewManagerWithPersistence(rules, persistence, zap.NewNop())
	sess, _, err := manager.GetOrCreate("r1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	t.Run("accepted moves are snapshotted", func(t *testing.T) {
		if persistence.Exists("r1") {
			t.Fatal("a fresh session should not be snapshotted")
		}
		if _, err := sess.ApplyMove("c1", engine.Move{From: 52, To: 36}, nil); err != nil {
			t.Fatalf("ApplyMove failed: %v", err)
		}
		if !persistence.Exists("r1") {
			t.Fatal("snapshot missing after accepted move")
		}
	})

	t.Run("restored after restart", func(t *testing.T) {
		manager.Close()
		manager.Remove("r1")
		if !persistence.Exists("r1") {
			t.Fatal("closed manager should keep snapshots")
		}

		restarted := NewManagerWithPersistence(rules, persistence, zap.NewNop())
		restored, created, err := restarted.GetOrCreate("r1")
		if err != nil {
			t.Fatalf("GetOrCreate failed: %v", err)
		}
		if !created {
			t.Error("restoring counts as creating the live session")
		}
		state := restored.State()
		if state.FEN != sess.State().FEN || state.MoveCount != 1 {
			t.Errorf("restored state = %+v, want %+v", state, sess.State())
		}

		restarted.Remove("r1")
		if persistence.Exists("r1") {
			t.Error("emptied room should delete its snapshot")
		}
	})

	t.Run("finished games are not kept", func(t *testing.T) {
		m := NewManagerWithPersistence(rules, persistence, zap.NewNop())
		game, _, _ := m.GetOrCreate("mate")
		for _, move := range []engine.Move{{From: 53, To: 45}, {From: 12, To: 28}, {From: 54, To: 38}} {
			if _, err := game.ApplyMove("c1", move, nil); err != nil {
				t.Fatalf("ApplyMove failed: %v", err)
			}
		}
		if !persistence.Exists("mate") {
			t.Fatal("ongoing game should be snapshotted")
		}
		if _, err := game.ApplyMove("c1", engine.Move{From: 3, To: 39}, nil); err != nil {
			t.Fatalf("ApplyMove failed: %v", err)
		}
		if persistence.Exists("mate") {
			t.Error("checkmated game should not be persisted")
		}
	})
}

func TestManagerWithPersistence_RepetitionSurvivesRestart(t *testing.T) {
	persistence, err := NewFilePersistence(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create file persistence: %v", err)
	}
	rules := engine.NewChessRules()

	manager := NewManagerWithPersistence(rules, persistence, zap.NewNop())
	sess, _, err := manager.GetOrCreate("r1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	cycle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}
	var played []string
	for round := 0; round < 4; round++ {
		played = append(played, cycle...)
	}
	for _, m := range played[:15] {
		if _, err := sess.ApplyMove("c1", mv(t, m), nil); err != nil {
			t.Fatalf("ApplyMove(%s) failed: %v", m, err)
		}
	}

	snap, err := persistence.Load("r1")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if snap.Line.Start != engine.StartingFEN || len(snap.Line.Moves) != 15 {
		t.Fatalf("snapshot line = %d moves from %q, want 15 from the start", len(snap.Line.Moves), snap.Line.Start)
	}

	manager.Close()
	manager.Remove("r1")

	restarted := NewManagerWithPersistence(rules, persistence, zap.NewNop())
	restored, _, err := restarted.GetOrCreate("r1")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	state, err := restored.ApplyMove("c1", mv(t, played[15]), nil)
	if err != nil {
		t.Fatalf("ApplyMove failed: %v", err)
	}
	if state.Terminal != engine.Draw || state.Method != "fivefold_repetition" {
		t.Errorf("state = %s (%s), want fivefold repetition draw", state.Terminal, state.Method)
	}
	if state.MoveCount != 16 {
		t.Errorf("MoveCount = %d, want 16", state.MoveCount)
	}
	if persistence.Exists("r1") {
		t.Error("drawn game should not be persisted")
	}
}
