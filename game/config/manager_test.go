package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/chess-rooms/game/engine"
)

const endgameFEN = "8/8/8/4k3/8/8/4P3/4K3 w - - 0 1"

func writePreset(t *testing.T, dir, id string, preset any) {
	t.Helper()
	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal preset: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("without directory", func(t *testing.T) {
		manager, err := NewManager("")
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if manager.GetDefault().FEN != engine.StartingFEN {
			t.Errorf("default FEN = %q", manager.GetDefault().FEN)
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := NewManager(filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "endgame", Preset{Name: "King and pawn", Description: "drill", FEN: endgameFEN})
	writePreset(t, dir, "broken", Preset{Name: "Broken", FEN: "not a fen"})
	writePreset(t, dir, "nofen", Preset{Name: "Empty"})
	os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{"), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tests := []struct {
		id      string
		wantFEN string
		wantErr error
	}{
		{"endgame", endgameFEN, nil},
		{"endgame.json", endgameFEN, nil},
		{"standard", engine.StartingFEN, nil},
		{"broken", "", ErrInvalidConfig},
		{"nofen", "", ErrInvalidConfig},
		{"garbage", "", ErrInvalidConfig},
		{"missing", "", ErrConfigNotFound},
		{"../endgame", "", ErrConfigNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			preset, err := manager.LoadConfig(tt.id)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			if preset.FEN != tt.wantFEN {
				t.Errorf("FEN = %q, want %q", preset.FEN, tt.wantFEN)
			}
		})
	}
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "endgame", Preset{Name: "King and pawn", FEN: endgameFEN})
	writePreset(t, dir, "broken", Preset{FEN: "bad"})
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	infos, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d presets, want 2", len(infos))
	}
	if infos[0].ConfigID != StandardPreset || !infos[0].BuiltIn {
		t.Errorf("first preset = %+v, want built-in standard", infos[0])
	}
	if infos[1].ConfigID != "endgame" || infos[1].Filename != "endgame.json" {
		t.Errorf("second preset = %+v", infos[1])
	}
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "endgame", Preset{Name: "King and pawn", FEN: endgameFEN})
	manager, _ := NewManager(dir)

	if err := manager.SetDefault("endgame"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().FEN != endgameFEN {
		t.Errorf("default FEN = %q", manager.GetDefault().FEN)
	}
	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("SetDefault(missing) error = %v", err)
	}
	if manager.GetDefault().FEN != endgameFEN {
		t.Error("failed SetDefault must keep the previous default")
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(dir)

	if err := manager.SaveConfig("drill", &Preset{Name: "Drill", FEN: endgameFEN}); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	manager.RefreshCache()

	preset, err := manager.LoadConfig("drill")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if preset.Name != "Drill" {
		t.Errorf("Name = %q", preset.Name)
	}

	if err := manager.SaveConfig("bad", &Preset{FEN: "x"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("SaveConfig invalid error = %v", err)
	}
	if err := manager.SaveConfig(StandardPreset, &Preset{FEN: endgameFEN}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("overwriting the built-in preset error = %v", err)
	}

	builtIn, _ := NewManager("")
	if err := builtIn.SaveConfig("drill", &Preset{FEN: endgameFEN}); !errors.Is(err, ErrNoConfigDir) {
		t.Errorf("SaveConfig without a directory error = %v, want ErrNoConfigDir", err)
	}
}

func TestPreset_ValidateRejectsUnplayablePositions(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"no kings", "8/8/8/8/8/8/8/8 w - - 0 1"},
		{"no black king", "8/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"pawn on last rank", "P3k3/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"already checkmate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"},
		{"already stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1"},
	}

	dir := t.TempDir()
	manager, _ := NewManager(dir)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Preset{Name: tt.name, FEN: tt.fen}
			err := p.Validate()
			if !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, engine.ErrUnplayablePosition) {
				t.Errorf("Validate error = %v, want ErrInvalidConfig wrapping ErrUnplayablePosition", err)
			}
			if err := manager.SaveConfig("bad", p); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("SaveConfig error = %v, want ErrInvalidConfig", err)
			}

			writePreset(t, dir, "broken", p)
			manager.RefreshCache()
			if _, err := manager.LoadConfig("broken"); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("LoadConfig error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "drill", Preset{Name: "Before", FEN: endgameFEN})
	manager, _ := NewManager(dir)

	if preset, err := manager.LoadConfig("drill"); err != nil || preset.Name != "Before" {
		t.Fatalf("LoadConfig = %v, %v", preset, err)
	}
	writePreset(t, dir, "drill", Preset{Name: "After", FEN: endgameFEN})

	if preset, _ := manager.LoadConfig("drill"); preset.Name != "Before" {
		t.Errorf("cached Name = %q, want Before", preset.Name)
	}
	manager.RefreshCache()
	if preset, _ := manager.LoadConfig("drill"); preset.Name != "After" {
		t.Errorf("refreshed Name = %q, want After", preset.Name)
	}
}

func TestManager_ConcurrentLoads(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "endgame", Preset{Name: "King and pawn", FEN: endgameFEN})
	manager, _ := NewManager(dir)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadConfig("endgame"); err != nil {
				t.Errorf("LoadConfig failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
