// Package config provides the configuration loader for cascade.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.trai.ch/cascade/internal/core/domain"
	"go.trai.ch/cascade/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	FS     FileSystem
	Logger ports.Logger
}

// NewLoader creates a new Loader reading from the real filesystem.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{FS: NewOSFS(), Logger: logger}
}

// Load discovers cascade.yaml by walking up from cwd and returns the
// resolved configuration. A missing file yields the defaults, rooted at cwd.
func (l *Loader) Load(cwd string) (domain.Config, error) {
	cfg := domain.DefaultConfig()
	cfg.Roots = []string{cwd}
	cfg.SnapshotPath = filepath.Join(cwd, domain.DefaultSnapshotPath())

	configPath, found := l.findConfiguration(cwd)
	if !found {
		l.Logger.Info(fmt.Sprintf("no %s found, using defaults", domain.ConfigFileName))
		return cfg, nil
	}

	raw, err := l.FS.ReadFile(configPath)
	if err != nil {
		return domain.Config{}, errors.Join(domain.ErrConfigReadFailed, err)
	}

	var file File
	if parseErr := yaml.Unmarshal(raw, &file); parseErr != nil {
		return domain.Config{}, errors.Join(domain.ErrConfigParseFailed, parseErr)
	}

	baseDir := filepath.Dir(configPath)
	cfg.Roots = []string{baseDir}
	cfg.SnapshotPath = filepath.Join(baseDir, domain.DefaultSnapshotPath())

	if err := applyFile(&cfg, &file, baseDir); err != nil {
		return domain.Config{}, err
	}
	if err := validate(cfg); err != nil {
		return domain.Config{}, err
	}

	return cfg, nil
}

func (l *Loader) findConfiguration(cwd string) (string, bool) {
	currentDir := cwd
	for {
		configPath := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := l.FS.Stat(configPath); err == nil {
			return configPath, true
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}
	return "", false
}

// applyFile overlays the parsed file onto the defaults. Relative roots and
// snapshot paths are resolved against the config file's directory.
func applyFile(cfg *domain.Config, file *File, baseDir string) error {
	if len(file.Roots) > 0 {
		roots := make([]string, len(file.Roots))
		for i, root := range file.Roots {
			roots[i] = resolvePath(baseDir, root)
		}
		cfg.Roots = roots
	}
	if len(file.Extensions) > 0 {
		cfg.Extensions = file.Extensions
	}
	if len(file.ExcludeDirs) > 0 {
		cfg.ExcludeDirs = append(domain.DefaultExcludeDirs(), file.ExcludeDirs...)
	}
	if file.Snapshot != "" {
		cfg.SnapshotPath = resolvePath(baseDir, file.Snapshot)
	}

	if file.Scoring != nil {
		if file.Scoring.NameWeight != nil {
			cfg.Scoring.NameWeight = *file.Scoring.NameWeight
		}
		if file.Scoring.DocWeight != nil {
			cfg.Scoring.DocWeight = *file.Scoring.DocWeight
		}
	}

	if file.Context != nil {
		if file.Context.MaxFiles != nil {
			cfg.Context.MaxFiles = *file.Context.MaxFiles
		}
		if file.Context.TokenBudget != nil {
			cfg.Context.TokenBudget = *file.Context.TokenBudget
		}
	}

	if file.Executor != nil {
		if file.Executor.Parallelism != nil {
			cfg.Executor.Parallelism = *file.Executor.Parallelism
		}
		if file.Executor.StepTimeout != "" {
			timeout, err := time.ParseDuration(file.Executor.StepTimeout)
			if err != nil {
				return zerr.With(errors.Join(domain.ErrConfigInvalid, err), "field", "executor.stepTimeout")
			}
			cfg.Executor.StepTimeout = timeout
		}
	}

	if file.Backend != nil {
		if file.Backend.BaseURL != "" {
			cfg.Backend.BaseURL = file.Backend.BaseURL
		}
		if file.Backend.Model != "" {
			cfg.Backend.Model = file.Backend.Model
		}
		if file.Backend.APIKeyEnv != "" {
			cfg.Backend.APIKeyEnv = file.Backend.APIKeyEnv
		}
		if file.Backend.Temperature != nil {
			cfg.Backend.Temperature = *file.Backend.Temperature
		}
		if file.Backend.MaxTokens != nil {
			cfg.Backend.MaxTokens = *file.Backend.MaxTokens
		}
		if file.Backend.Timeout != "" {
			timeout, err := time.ParseDuration(file.Backend.Timeout)
			if err != nil {
				return zerr.With(errors.Join(domain.ErrConfigInvalid, err), "field", "backend.timeout")
			}
			cfg.Backend.Timeout = timeout
		}
	}

	return nil
}

func validate(cfg domain.Config) error {
	if cfg.Executor.Parallelism < 1 {
		return invalidField("executor.parallelism", cfg.Executor.Parallelism)
	}
	if cfg.Executor.StepTimeout < 0 {
		return invalidField("executor.stepTimeout", cfg.Executor.StepTimeout.String())
	}
	if cfg.Context.MaxFiles < 1 {
		return invalidField("context.maxFiles", cfg.Context.MaxFiles)
	}
	if cfg.Context.TokenBudget < 1 {
		return invalidField("context.tokenBudget", cfg.Context.TokenBudget)
	}
	if cfg.Scoring.NameWeight < 0 || cfg.Scoring.DocWeight < 0 {
		return zerr.With(domain.ErrConfigInvalid, "field", "scoring")
	}
	if cfg.Backend.BaseURL == "" {
		return zerr.With(domain.ErrConfigInvalid, "field", "backend.baseUrl")
	}
	return nil
}

func invalidField(field string, value any) error {
	err := zerr.With(domain.ErrConfigInvalid, "field", field)
	return zerr.With(err, "value", value)
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(baseDir, path))
}

var _ ports.ConfigLoader = (*Loader)(nil)
