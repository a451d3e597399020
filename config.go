package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// defaultConfigPath is the default filename for persisted configuration.
const defaultConfigPath = "hatdriver.toml"

// Init failure policies.
const (
	PolicyAbort    = "abort"
	PolicyContinue = "continue"
)

// SPIConfig selects the SPI bus shared by the ports.  An empty Bus skips
// opening it.
type SPIConfig struct {
	Bus     string `toml:"bus"`
	SpeedHz int64  `toml:"speed_hz"`
}

// LoopConfig paces the example loop.  RateHz 0 runs iterations back to back.
type LoopConfig struct {
	RateHz    float64 `toml:"rate_hz"`
	Heartbeat int     `toml:"heartbeat"`
}

// StatusConfig configures the optional status HTTP server.  It is disabled
// when Listen is empty.
type StatusConfig struct {
	Listen       string `toml:"listen"`
	CertFile     string `toml:"cert_file"`
	KeyFile      string `toml:"key_file"`
	Username     string `toml:"username"`
	PasswordHash string `toml:"password_hash"`
}

// Config is the top-level structure serialized to hatdriver.toml.
type Config struct {
	// Board is a built-in board id, "hat" or "hat-zero".
	Board string `toml:"board"`
	// Backend selects the chip-select backend: periph, gpiocdev or sim.
	Backend string `toml:"backend"`
	// GPIOChip is the character device used by the gpiocdev backend.
	GPIOChip string `toml:"gpio_chip"`
	// EventLog is the event log file; empty disables it.
	EventLog string `toml:"event_log"`
	Verbose  bool   `toml:"verbose"`
	// OnInitFailure is abort or continue.
	OnInitFailure string       `toml:"on_init_failure"`
	SPI           SPIConfig    `toml:"spi"`
	Loop          LoopConfig   `toml:"loop"`
	Status        StatusConfig `toml:"status"`
}

// DefaultConfig returns the configuration written when no file exists.
func DefaultConfig() Config {
	return Config{
		Board:         "hat",
		Backend:       BackendPeriph,
		GPIOChip:      "gpiochip0",
		EventLog:      "events.log",
		OnInitFailure: PolicyAbort,
		SPI:           SPIConfig{Bus: "SPI0.0", SpeedHz: 1_400_000},
		Loop:          LoopConfig{Heartbeat: 100_000},
		Status:        StatusConfig{Username: "admin"},
	}
}

// Validate checks the values that have a fixed set of choices.
func (c Config) Validate() error {
	var errs []error
	if _, ok := LookupBoard(c.Board); !ok {
		errs = append(errs, fmt.Errorf("unknown board %q (known: %s)", c.Board, strings.Join(BoardIDs(), ", ")))
	}
	known := false
	for _, n := range backendNames {
		if strings.EqualFold(c.Backend, n) {
			known = true
		}
	}
	if !known {
		errs = append(errs, fmt.Errorf("unknown backend %q (known: %s)", c.Backend, strings.Join(backendNames, ", ")))
	}
	switch c.OnInitFailure {
	case PolicyAbort, PolicyContinue:
	default:
		errs = append(errs, fmt.Errorf("on_init_failure must be %q or %q, got %q", PolicyAbort, PolicyContinue, c.OnInitFailure))
	}
	if c.Loop.RateHz < 0 {
		errs = append(errs, fmt.Errorf("loop.rate_hz must not be negative"))
	}
	if c.SPI.Bus != "" && c.SPI.SpeedHz <= 0 {
		errs = append(errs, fmt.Errorf("spi.speed_hz must be positive"))
	}
	if (c.Status.CertFile == "") != (c.Status.KeyFile == "") {
		errs = append(errs, fmt.Errorf("status.cert_file and status.key_file must be set together"))
	}
	return errors.Join(errs...)
}

// ConfigManager wraps the loaded configuration and a mutex for concurrent access.
type ConfigManager struct {
	mu     sync.RWMutex
	path   string
	cfg    Config
	loaded bool
}

// NewConfigManager returns a manager for the file at path, or for
// hatdriver.toml in the working directory when path is empty.
func NewConfigManager(path string) *ConfigManager {
	if path == "" {
		path = defaultConfigPath
	}
	return &ConfigManager{path: path}
}

// Path returns the configuration file path.
func (cm *ConfigManager) Path() string { return cm.path }

// Load reads configuration from disk.  If the file does not exist the
// default configuration is persisted.  Keys missing from an existing file
// keep their default values.
func (cm *ConfigManager) Load() error {
	cm.mu.Lock()
	if cm.loaded {
		cm.mu.Unlock()
		return nil
	}
	data, err := os.ReadFile(cm.path)
	if err != nil {
		if os.IsNotExist(err) {
			cm.cfg = DefaultConfig()
			cm.loaded = true
			// Release the write lock before saving: Save takes a read lock.
			cm.mu.Unlock()
			return cm.Save()
		}
		cm.mu.Unlock()
		return fmt.Errorf("unable to read config: %w", err)
	}
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		cm.mu.Unlock()
		return fmt.Errorf("invalid %s: %w", filepath.Base(cm.path), err)
	}
	cm.cfg = cfg
	cm.loaded = true
	cm.mu.Unlock()
	return nil
}

// Save writes the configuration to disk through a temporary file so a crash
// never leaves a truncated file behind.
func (cm *ConfigManager) Save() error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	data, err := toml.Marshal(cm.cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(cm.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmpPath := cm.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, cm.path)
}

// Get returns a copy of the current configuration.
func (cm *ConfigManager) Get() Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.cfg
}

// Override applies fn to the in-memory configuration without persisting it.
// Command-line flags use this.
func (cm *ConfigManager) Override(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	fn(&cm.cfg)
}

// Update applies fn to the configuration and persists the result.  The
// updater must not capture the pointer beyond the scope of the function.
func (cm *ConfigManager) Update(fn func(*Config) error) error {
	cm.mu.Lock()
	if err := fn(&cm.cfg); err != nil {
		cm.mu.Unlock()
		return err
	}
	cm.mu.Unlock()
	return cm.Save()
}
