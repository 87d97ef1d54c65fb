package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestInitialize(t *testing.T) {
	// Reset global state
	globalConfig = nil
	initOnce = *new(sync.Once)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
credentials:
  pool_name: "production"
  keys:
    - "sk-test-1"

selection:
  strategy: "round_robin"
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	err := Initialize(configPath)
	if err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}

	if cfg.Credentials.PoolName != "production" {
		t.Errorf("expected pool name %q, got %q", "production", cfg.Credentials.PoolName)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	// Reset global state
	globalConfig = nil
	initOnce = *new(sync.Once)

	tmpDir := t.TempDir()
	configPath1 := filepath.Join(tmpDir, "config1.yaml")
	configPath2 := filepath.Join(tmpDir, "config2.yaml")

	config1Content := `
credentials:
  pool_name: "first"
  keys:
    - "sk-key-1"
`

	config2Content := `
credentials:
  pool_name: "second"
  keys:
    - "sk-key-2"
`

	if err := os.WriteFile(configPath1, []byte(config1Content), 0644); err != nil {
		t.Fatalf("failed to write config1 file: %v", err)
	}
	if err := os.WriteFile(configPath2, []byte(config2Content), 0644); err != nil {
		t.Fatalf("failed to write config2 file: %v", err)
	}

	// First initialization
	err := Initialize(configPath1)
	if err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	firstConfig := GetConfig()

	// Second initialization should be ignored
	Initialize(configPath2)

	secondConfig := GetConfig()

	// Should still have the first config
	if firstConfig.Credentials.PoolName != secondConfig.Credentials.PoolName {
		t.Error("second Initialize call should be ignored")
	}
	if secondConfig.Credentials.PoolName != "first" {
		t.Errorf("expected pool name %q, got %q", "first", secondConfig.Credentials.PoolName)
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	// Reset global state
	globalConfig = nil

	cfg := GetConfig()
	if cfg != nil {
		t.Error("expected nil config before initialization")
	}
}

func TestSetConfig(t *testing.T) {
	// Reset global state
	globalConfig = nil

	testCfg := NewTestConfig().
		WithPoolName("injected").
		Build()

	SetConfig(testCfg)

	retrievedCfg := GetConfig()
	if retrievedCfg == nil {
		t.Fatal("expected non-nil config after SetConfig")
	}

	if retrievedCfg.Credentials.PoolName != "injected" {
		t.Errorf("expected pool name %q, got %q", "injected", retrievedCfg.Credentials.PoolName)
	}
}

func TestReloadConfig(t *testing.T) {
	// Reset global state
	globalConfig = nil
	initOnce = *new(sync.Once)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	initialContent := `
credentials:
  pool_name: "initial"
  keys:
    - "sk-initial"

retry:
  max_retries: 2
`

	if err := os.WriteFile(configPath, []byte(initialContent), 0644); err != nil {
		t.Fatalf("failed to write initial config file: %v", err)
	}

	// Initialize with initial config
	if err := Initialize(configPath); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	initialCfg := GetConfig()
	if initialCfg.Credentials.PoolName != "initial" {
		t.Error("initial config not loaded correctly")
	}

	// Update the file
	updatedContent := `
credentials:
  pool_name: "updated"
  keys:
    - "sk-updated"

retry:
  max_retries: 5
`

	if err := os.WriteFile(configPath, []byte(updatedContent), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	// Reload config
	if err := ReloadConfig(configPath); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}

	reloadedCfg := GetConfig()
	if reloadedCfg.Credentials.PoolName != "updated" {
		t.Errorf("expected updated pool name %q, got %q", "updated", reloadedCfg.Credentials.PoolName)
	}
	if reloadedCfg.Retry.MaxRetries != 5 {
		t.Errorf("expected updated max retries 5, got %d", reloadedCfg.Retry.MaxRetries)
	}
}

func TestReloadConfig_ValidationFailure(t *testing.T) {
	// Reset global state
	globalConfig = nil
	initOnce = *new(sync.Once)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	validContent := `
credentials:
  pool_name: "stable"
  keys:
    - "sk-valid"
`

	if err := os.WriteFile(configPath, []byte(validContent), 0644); err != nil {
		t.Fatalf("failed to write initial config file: %v", err)
	}

	// Initialize with valid config
	if err := Initialize(configPath); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	originalCfg := GetConfig()

	// Update file with invalid config
	invalidContent := `
credentials:
  pool_name: "broken"
  keys:
    - "sk-valid"

selection:
  strategy: "fastest"
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("failed to write invalid config file: %v", err)
	}

	// Try to reload - should fail
	err := ReloadConfig(configPath)
	if err == nil {
		t.Fatal("expected error when reloading invalid config")
	}

	// Original config should be preserved
	currentCfg := GetConfig()
	if currentCfg.Credentials.PoolName != originalCfg.Credentials.PoolName {
		t.Error("original config should be preserved on reload failure")
	}
}

func TestMustGetConfig(t *testing.T) {
	// Reset global state
	globalConfig = nil
	initOnce = *new(sync.Once)

	// Test panic when not initialized
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic when not initialized")
		}
	}()

	MustGetConfig()
}

func TestMustGetConfig_AfterInitialize(t *testing.T) {
	// Reset global state
	globalConfig = nil
	initOnce = *new(sync.Once)

	SetConfig(MinimalConfig())

	// Should not panic
	cfg := MustGetConfig()
	if cfg == nil {
		t.Error("expected non-nil config from MustGetConfig")
	}
}
