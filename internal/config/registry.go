package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	appName    = "upnp-cp"
	configFile = "config.yaml"
)

var (
	// Global registry instance (loaded lazily)
	globalRegistry     *Registry
	globalRegistryOnce sync.Once
	globalRegistryErr  error

	// Mutex for thread-safe file operations
	fileMutex sync.Mutex
)

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/upnp-cp or $HOME/.config/upnp-cp
//   - macOS: $HOME/.config/upnp-cp (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\upnp-cp
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// LoadRegistry loads the registry from the default location.
// Thread-safe - multiple calls will return the same instance.
func LoadRegistry() (*Registry, error) {
	globalRegistryOnce.Do(func() {
		globalRegistry, globalRegistryErr = Load("")
	})
	return globalRegistry, globalRegistryErr
}

// Load reads the registry at path, or at GetConfigPath() when path is empty.
// A missing file yields a new default registry bound to that path.
func Load(path string) (*Registry, error) {
	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		registry := NewRegistry()
		registry.path = path
		return registry, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if registry.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", registry.Version)
	}

	registry.path = path
	registry.applyDefaults()

	if err := registry.ControlPoint.Validate(); err != nil {
		return nil, fmt.Errorf("invalid control_point settings in %s: %w", path, err)
	}

	return &registry, nil
}

// applyDefaults fills in anything an older or hand-edited file left out
func (r *Registry) applyDefaults() {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	defaults := defaultControlPointSettings()
	if r.ControlPoint == nil {
		r.ControlPoint = defaults
		return
	}

	cp := r.ControlPoint
	if cp.SearchTarget == "" {
		cp.SearchTarget = defaults.SearchTarget
	}
	if cp.MaxWaitSeconds == 0 {
		cp.MaxWaitSeconds = defaults.MaxWaitSeconds
	}
	if cp.TTL == 0 {
		cp.TTL = defaults.TTL
	}
	if cp.HTTPTimeoutSeconds == 0 {
		cp.HTTPTimeoutSeconds = defaults.HTTPTimeoutSeconds
	}
	if cp.FetchConcurrency == 0 {
		cp.FetchConcurrency = defaults.FetchConcurrency
	}
	if cp.FriendlyName == "" {
		cp.FriendlyName = defaults.FriendlyName
	}
	if cp.UUID == "" {
		cp.UUID = uuid.NewString()
	}
}

// Validate checks the settings for values no search could run with
func (s *ControlPointSettings) Validate() error {
	if s.MaxWaitSeconds < 0 {
		return fmt.Errorf("max_wait_seconds must not be negative (got %v)", s.MaxWaitSeconds)
	}
	if s.TTL < 0 || s.TTL > 255 {
		return fmt.Errorf("ttl must be between 0 and 255 (got %d)", s.TTL)
	}
	if s.HTTPTimeoutSeconds < 0 {
		return fmt.Errorf("http_timeout_seconds must not be negative (got %d)", s.HTTPTimeoutSeconds)
	}
	if s.FetchConcurrency < 0 {
		return fmt.Errorf("fetch_concurrency must not be negative (got %d)", s.FetchConcurrency)
	}
	if s.UUID != "" {
		if _, err := uuid.Parse(s.UUID); err != nil {
			return fmt.Errorf("uuid %q is not a valid UUID: %w", s.UUID, err)
		}
	}
	return nil
}

// Save saves the registry to disk.
// Performs an atomic write to prevent corruption on crash.
func (r *Registry) Save() error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	configPath := r.path
	if configPath == "" {
		var err error
		configPath, err = GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		r.path = configPath
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# upnp-cp Configuration File
# control_point holds the defaults for searches and action calls;
# command-line flags override them. devices is updated after every search.
#
# Location: ` + configPath + `

`)
	data = append(header, data...)

	// Write to temporary file first (atomic write)
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, configPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
