package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
	"github.com/bankwatch-labs/harvest-cli/internal/extract"
	"github.com/bankwatch-labs/harvest-cli/internal/logger"
)

// reloadDebounce coalesces rapid editor write events into one reload.
const reloadDebounce = 500 * time.Millisecond

// PipelineConfig tunes the ingestion pipeline.
type PipelineConfig struct {
	// Concurrency limits how many document pipelines run at once.
	Concurrency int `toml:"concurrency"`

	// MaxCandidates caps the records any single source may emit.
	MaxCandidates int `toml:"max_candidates"`

	// RequestsPerSecond throttles outbound requests per source.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// RequestTimeoutSeconds is the per-request deadline.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`

	// MaxRetries bounds HTTP retry attempts per request.
	MaxRetries int `toml:"max_retries"`
}

// Config is the full harvest configuration.
type Config struct {
	// Pipeline tunes concurrency and fetch limits.
	Pipeline PipelineConfig `toml:"pipeline"`

	// Rules parameterise document validation.
	Rules domain.ValidationRules `toml:"rules"`

	// Tables hold the keyword tagging configuration.
	// Empty tables fall back to the built-in defaults.
	Tables extract.Tables `toml:"tables"`

	// Sources lists the configured ingestion sources.
	Sources []domain.SourceSpec `toml:"sources"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Pipeline: PipelineConfig{
			Concurrency:           4,
			MaxCandidates:         100,
			RequestsPerSecond:     1.0,
			RequestTimeoutSeconds: 30,
			MaxRetries:            2,
		},
		Rules: domain.ValidationRules{
			MinContentLength: 200,
			MinTitleLength:   10,
		},
		Tables: extract.DefaultTables(),
	}
}

// ConfigStore loads and persists the configuration TOML file.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	config   Config
}

// NewConfigStore creates a config store rooted at configDir.
// If configDir is empty, defaults to ~/.harvest. A missing file yields
// the defaults without error; a malformed file is an error.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".harvest")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	s := &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
		config:   DefaultConfig(),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return s, nil
}

// Path returns the config file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Config returns a snapshot of the current configuration.
func (s *ConfigStore) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Load reads the configuration from disk. Fields absent from the file
// keep their default values.
func (s *ConfigStore) Load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	if len(config.Tables.Sectors) == 0 && len(config.Tables.Regions) == 0 {
		config.Tables = extract.DefaultTables()
	}

	s.mu.Lock()
	s.config = config
	s.mu.Unlock()
	return nil
}

// Save persists the current configuration to disk.
func (s *ConfigStore) Save() error {
	s.mu.RLock()
	data, err := toml.Marshal(s.config)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", s.filePath, err)
	}
	return nil
}

// SetSources replaces the source list and persists immediately.
func (s *ConfigStore) SetSources(sources []domain.SourceSpec) error {
	s.mu.Lock()
	s.config.Sources = sources
	s.mu.Unlock()
	return s.Save()
}

// Watch reloads the configuration whenever the file changes, until the
// context is cancelled. Rapid successive writes (editors tend to write
// twice) are debounced into one reload. Reload failures keep the last
// good configuration.
func (s *ConfigStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	// Watch the directory, not the file: editors replace files by
	// rename, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching config directory: %w", err)
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != s.filePath {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, func() {
					if err := s.Load(); err != nil {
						logger.Warn("Config reload failed, keeping previous: %v", err)
						return
					}
					logger.Info("Config reloaded from %s", s.filePath)
				})

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error: %v", err)
			}
		}
	}()

	return nil
}
