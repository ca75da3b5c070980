package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/chess-rooms/game/engine"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrNoConfigDir    = errors.New("no config directory configured")
)

// StandardPreset is the built-in preset name for the normal starting position.
const StandardPreset = "standard"

// Preset is a named starting position loaded from <dir>/<id>.json.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FEN         string `json:"fen"`
}

// PresetInfo describes an available preset.
type PresetInfo struct {
	ConfigID    string `json:"config_id"`
	Filename    string `json:"filename,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	FEN         string `json:"fen"`
	BuiltIn     bool   `json:"built_in,omitempty"`
}

// Validate checks that a game can be played from the preset's position.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.FEN) == "" {
		return fmt.Errorf("%w: missing fen", ErrInvalidConfig)
	}
	if err := engine.ValidateStartPosition(p.FEN); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func standardPreset() *Preset {
	return &Preset{
		Name:        StandardPreset,
		Description: "Standard chess starting position",
		FEN:         engine.StartingFEN,
	}
}

// Manager handles preset loading and caching
type Manager struct {
	configDir     string
	defaultPreset *Preset
	presets       map[string]*Preset
	mu            sync.RWMutex
}

// NewManager creates a preset manager. An empty configDir serves only the
// built-in standard preset; a non-empty one must exist.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	return &Manager{
		configDir:     configDir,
		defaultPreset: standardPreset(),
		presets:       make(map[string]*Preset),
	}, nil
}

// LoadConfig loads a preset by ID
func (m *Manager) LoadConfig(id string) (*Preset, error) {
	id = strings.TrimSuffix(id, ".json")
	if id == StandardPreset {
		return standardPreset(), nil
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, ErrConfigNotFound
	}

	m.mu.RLock()
	if preset, exists := m.presets[id]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	if m.configDir == "" {
		return nil, ErrConfigNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if preset, exists := m.presets[id]; exists {
		return preset, nil
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var preset Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if preset.Name == "" {
		preset.Name = id
	}
	if err := preset.Validate(); err != nil {
		return nil, err
	}

	m.presets[id] = &preset
	return &preset, nil
}

// ListConfigs returns the built-in preset followed by every valid preset file
func (m *Manager) ListConfigs() ([]*PresetInfo, error) {
	std := standardPreset()
	infos := []*PresetInfo{{
		ConfigID:    StandardPreset,
		Name:        std.Name,
		Description: std.Description,
		FEN:         std.FEN,
		BuiltIn:     true,
	}}
	if m.configDir == "" {
		return infos, nil
	}

	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var files []*PresetInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		if id == StandardPreset {
			continue
		}

		preset, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid presets
			continue
		}
		files = append(files, &PresetInfo{
			ConfigID:    id,
			Filename:    entry.Name(),
			Name:        preset.Name,
			Description: preset.Description,
			FEN:         preset.FEN,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ConfigID < files[j].ConfigID })

	return append(infos, files...), nil
}

// GetDefault returns the preset new rooms start from
func (m *Manager) GetDefault() *Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultPreset
}

// SetDefault sets the default preset by ID
func (m *Manager) SetDefault(id string) error {
	preset, err := m.LoadConfig(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultPreset = preset
	return nil
}

// RefreshCache drops cached presets so the next load reads from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets = make(map[string]*Preset)
}

// SaveConfig validates and writes a preset to disk
func (m *Manager) SaveConfig(id string, preset *Preset) error {
	if m.configDir == "" {
		return ErrNoConfigDir
	}
	if id == "" || id == StandardPreset || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: bad preset id %q", ErrInvalidConfig, id)
	}
	if err := preset.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.configDir, id+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.presets[id] = preset
	m.mu.Unlock()
	return nil
}
