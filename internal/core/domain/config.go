package domain

import "time"

// Config is the resolved cascade configuration.
// It is produced by the config loader and read-only afterwards.
type Config struct {
	Roots       []string
	Extensions  []string
	ExcludeDirs []string

	Scoring  ScoringConfig
	Context  ContextConfig
	Executor ExecutorConfig
	Backend  BackendConfig

	SnapshotPath string
}

// ScoringConfig holds the relevance-scoring weights.
// Declared-name matches are weighted above docstring matches; the exact
// ratio is tunable rather than hard-coded.
type ScoringConfig struct {
	NameWeight float64
	DocWeight  float64
}

// ContextConfig bounds the context builder.
type ContextConfig struct {
	MaxFiles    int
	TokenBudget int
}

// ExecutorConfig bounds the cascade executor.
type ExecutorConfig struct {
	Parallelism int
	StepTimeout time.Duration
}

// BackendConfig describes the LLM completion backend.
type BackendConfig struct {
	BaseURL     string
	Model       string
	APIKeyEnv   string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Default values applied by the loader when the config file omits a field.
const (
	DefaultParallelism = 3
	DefaultStepTimeout = 2 * time.Minute
	DefaultMaxFiles    = 8
	DefaultTokenBudget = 12000
	DefaultNameWeight  = 3.0
	DefaultDocWeight   = 1.0
)

// DefaultConfig returns a Config populated with defaults for everything a
// cascade.yaml may omit.
func DefaultConfig() Config {
	return Config{
		Roots:       []string{"."},
		Extensions:  []string{".go", ".py", ".js", ".ts"},
		ExcludeDirs: DefaultExcludeDirs(),
		Scoring: ScoringConfig{
			NameWeight: DefaultNameWeight,
			DocWeight:  DefaultDocWeight,
		},
		Context: ContextConfig{
			MaxFiles:    DefaultMaxFiles,
			TokenBudget: DefaultTokenBudget,
		},
		Executor: ExecutorConfig{
			Parallelism: DefaultParallelism,
			StepTimeout: DefaultStepTimeout,
		},
		Backend: BackendConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "CASCADE_API_KEY",
			Temperature: 0.2,
			MaxTokens:   4096,
			Timeout:     90 * time.Second,
		},
		SnapshotPath: DefaultSnapshotPath(),
	}
}

// DefaultExcludeDirs returns directory names skipped by the scanner walk.
func DefaultExcludeDirs() []string {
	return []string{
		".git", ".hg", ".svn", ".jj",
		"node_modules", "vendor",
		"__pycache__", ".venv", "venv",
		"build", "dist", "target",
		CascadeDirName,
	}
}
