package config

// File represents the structure of the cascade.yaml configuration file.
// Every field is optional; the loader fills in defaults for omissions.
type File struct {
	Version     string   `yaml:"version"`
	Roots       []string `yaml:"roots"`
	Extensions  []string `yaml:"extensions"`
	ExcludeDirs []string `yaml:"exclude"`

	Scoring  *ScoringDTO  `yaml:"scoring"`
	Context  *ContextDTO  `yaml:"context"`
	Executor *ExecutorDTO `yaml:"executor"`
	Backend  *BackendDTO  `yaml:"backend"`

	Snapshot string `yaml:"snapshot"`
}

// ScoringDTO holds the relevance-scoring weights.
type ScoringDTO struct {
	NameWeight *float64 `yaml:"nameWeight"`
	DocWeight  *float64 `yaml:"docWeight"`
}

// ContextDTO bounds the context builder.
type ContextDTO struct {
	MaxFiles    *int `yaml:"maxFiles"`
	TokenBudget *int `yaml:"tokenBudget"`
}

// ExecutorDTO bounds step execution.
type ExecutorDTO struct {
	Parallelism *int   `yaml:"parallelism"`
	StepTimeout string `yaml:"stepTimeout"`
}

// BackendDTO describes the completion backend.
type BackendDTO struct {
	BaseURL     string   `yaml:"baseUrl"`
	Model       string   `yaml:"model"`
	APIKeyEnv   string   `yaml:"apiKeyEnv"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int     `yaml:"maxTokens"`
	Timeout     string   `yaml:"timeout"`
}
