package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wricardo/mcp-training/molegame/game/engine"
)

func createTestConfigDir(t *testing.T) string {
	dir, err := os.MkdirTemp("", "config-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	return dir
}

func createValidConfig() *engine.GameConfig {
	return &engine.GameConfig{
		Name:               "Test Config",
		Description:        "Test configuration",
		Rows:               4,
		Columns:            6,
		SimultaneousMoles:  5,
		MoleVisibleSeconds: 2,
		TimerSeconds:       6,
		GridWidth:          800,
		GridHeight:         300,
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.GameConfig) {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	path := filepath.Join(dir, filename)
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func writeRawFile(t *testing.T, dir, filename, content string) {
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", filename, err)
	}
}

const marathonHCL = `
name                 = "Marathon"
description          = "A long round on a wide grid"
rows                 = 5
columns              = 8
simultaneous_moles   = 6
mole_visible_seconds = 1.5
timer_seconds        = 30
tick_millis          = 50
`

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := createTestConfigDir(t)
		defer os.RemoveAll(dir)

		classic := createValidConfig()
		classic.Name = "Classic"
		writeConfigFile(t, dir, "classic", classic)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Classic" {
			t.Errorf("Expected classic as default, got %q", manager.GetDefault().Name)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("missing config files", func(t *testing.T) {
		dir := createTestConfigDir(t)
		defer os.RemoveAll(dir)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("NewManager should succeed even without config files, got error: %v", err)
		}

		// Falls back to the built-in defaults
		if diff := cmp.Diff(engine.DefaultGameConfig(), manager.GetDefault()); diff != "" {
			t.Errorf("Default config mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	easyConfig := createValidConfig()
	easyConfig.Name = "Easy"
	easyConfig.SimultaneousMoles = 2
	writeConfigFile(t, dir, "easy", easyConfig)
	writeRawFile(t, dir, "marathon.hcl", marathonHCL)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if diff := cmp.Diff(easyConfig, config); diff != "" {
			t.Errorf("Config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("easy.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Easy" {
			t.Errorf("Expected config name 'Easy', got '%s'", config.Name)
		}
	})

	t.Run("load HCL config", func(t *testing.T) {
		config, err := manager.LoadConfig("marathon")
		if err != nil {
			t.Fatalf("Failed to load HCL config: %v", err)
		}
		want := &engine.GameConfig{
			Name:               "Marathon",
			Description:        "A long round on a wide grid",
			Rows:               5,
			Columns:            8,
			SimultaneousMoles:  6,
			MoleVisibleSeconds: 1.5,
			TimerSeconds:       30,
			TickMillis:         50,
		}
		if diff := cmp.Diff(want, config); diff != "" {
			t.Errorf("HCL config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("easy")
		config2, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		writeRawFile(t, dir, "invalid.json", `{"name": ""}`)

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("moles filling the grid are rejected", func(t *testing.T) {
		full := createValidConfig()
		full.SimultaneousMoles = full.Rows * full.Columns
		writeConfigFile(t, dir, "full", full)

		_, err := manager.LoadConfig("full")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		writeRawFile(t, dir, "malformed.json", `{"name": "Malformed", invalid json}`)

		_, err := manager.LoadConfig("malformed")
		if err == nil {
			t.Error("Expected error for malformed JSON")
		}
	})

	t.Run("load malformed HCL", func(t *testing.T) {
		writeRawFile(t, dir, "broken.hcl", `name = "Broken"
rows = `)

		_, err := manager.LoadConfig("broken")
		if err == nil {
			t.Error("Expected error for malformed HCL")
		}
	})

	t.Run("HCL missing required attribute", func(t *testing.T) {
		writeRawFile(t, dir, "partial.hcl", `name = "Partial"
rows = 3`)

		_, err := manager.LoadConfig("partial")
		if err == nil {
			t.Error("Expected error for HCL config missing attributes")
		}
	})
}

func TestManager_GetDefault(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	// No classic config: the first valid config is used
	first := createValidConfig()
	first.Name = "Alpha Config"
	writeConfigFile(t, dir, "alpha", first)

	second := createValidConfig()
	second.Name = "Beta Config"
	writeConfigFile(t, dir, "beta", second)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	config := manager.GetDefault()
	if config == nil {
		t.Fatal("Expected default config to be non-nil")
	}
	if config.Name != "Alpha Config" {
		t.Errorf("Expected default config name 'Alpha Config', got '%s'", config.Name)
	}

	if err := manager.SetDefault("beta"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Beta Config" {
		t.Errorf("Expected 'Beta Config' after SetDefault, got %q", manager.GetDefault().Name)
	}

	if err := manager.SetDefault("missing"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_ListConfigs(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	configs := []struct {
		filename string
		name     string
	}{
		{"classic", "Classic"},
		{"easy", "Easy"},
		{"frenzy", "Frenzy"},
	}

	for _, cfg := range configs {
		config := createValidConfig()
		config.Name = cfg.name
		writeConfigFile(t, dir, cfg.filename, config)
	}
	writeRawFile(t, dir, "marathon.hcl", marathonHCL)

	// An HCL file shadowed by the JSON file of the same id
	writeRawFile(t, dir, "easy.hcl", marathonHCL)

	// Ignored: not a config, and an invalid one
	writeRawFile(t, dir, "readme.txt", "readme")
	writeRawFile(t, dir, "broken.json", `{"name": ""}`)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	var got []string
	for _, info := range configList {
		got = append(got, info.ConfigID+":"+info.Format+":"+info.Name)
	}
	want := []string{
		"classic:json:Classic",
		"easy:json:Easy",
		"frenzy:json:Frenzy",
		"marathon:hcl:Marathon",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListConfigs mismatch (-want +got):\n%s", diff)
	}

	marathon := configList[3]
	if marathon.Rows != 5 || marathon.Columns != 8 || marathon.SimultaneousMoles != 6 || marathon.TimerSeconds != 30 {
		t.Errorf("Unexpected marathon summary: %+v", marathon)
	}
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	config := createValidConfig()
	config.Name = "Changeable"
	writeConfigFile(t, dir, "changeable", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	loaded, _ := manager.LoadConfig("changeable")
	if loaded.SimultaneousMoles != 5 {
		t.Errorf("Expected initial 5 moles, got %d", loaded.SimultaneousMoles)
	}

	config.SimultaneousMoles = 3
	writeConfigFile(t, dir, "changeable", config)

	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	reloaded, _ := manager.LoadConfig("changeable")
	if reloaded.SimultaneousMoles != 3 {
		t.Errorf("Expected reloaded 3 moles, got %d", reloaded.SimultaneousMoles)
	}
}

func TestManager_RefreshCache(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if manager.GetDefault().Name != engine.DefaultGameConfig().Name {
		t.Fatalf("Expected built-in default before any files exist")
	}

	classic := createValidConfig()
	classic.Name = "On Disk Classic"
	writeConfigFile(t, dir, "classic", classic)

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.GetDefault().Name != "On Disk Classic" {
		t.Errorf("Expected refreshed default from disk, got %q", manager.GetDefault().Name)
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("valid config", func(t *testing.T) {
		config := createValidConfig()
		config.Name = "Saved"
		if err := manager.SaveConfig("saved", config); err != nil {
			t.Fatalf("SaveConfig failed: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "saved.json"))
		if err != nil {
			t.Fatalf("Expected saved.json on disk: %v", err)
		}
		onDisk, err := DecodeJSON(data)
		if err != nil {
			t.Fatalf("Saved file does not parse: %v", err)
		}
		if diff := cmp.Diff(config, onDisk); diff != "" {
			t.Errorf("Saved config mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("invalid config", func(t *testing.T) {
		config := createValidConfig()
		config.Rows = 0
		if err := manager.SaveConfig("bad", config); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(err) {
			t.Error("Expected invalid config not to be written")
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		if err := manager.SaveConfig("../escape", createValidConfig()); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := createTestConfigDir(t)
	defer os.RemoveAll(dir)

	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = "Config" + string(rune('0'+i))
		writeConfigFile(t, dir, "config"+string(rune('0'+i)), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			configName := "config" + string(rune('0'+((id%5)+1)))
			if _, err := manager.LoadConfig(configName); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}

	if manager.Count() < 5 {
		t.Errorf("Expected at least 5 configs in cache, got %d", manager.Count())
	}
}

func TestDecodeHCL(t *testing.T) {
	config, err := DecodeHCL("inline.hcl", []byte(`
name                 = "Inline"
rows                 = 2
columns              = 2
simultaneous_moles   = 1
mole_visible_seconds = 0.5
timer_seconds        = 3
`))
	if err != nil {
		t.Fatalf("DecodeHCL failed: %v", err)
	}
	if err := engine.ValidateGameConfig(config); err != nil {
		t.Errorf("Expected decoded config to be valid: %v", err)
	}
	if config.Description != "" || config.TickMillis != 0 {
		t.Errorf("Expected optional attributes to stay zero, got %+v", config)
	}
}

// Count returns the number of cached configurations
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
