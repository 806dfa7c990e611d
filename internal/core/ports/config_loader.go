package ports

import "go.trai.ch/cascade/internal/core/domain"

// ConfigLoader loads the cascade configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load discovers cascade.yaml starting from the given working directory
	// (walking up towards the filesystem root) and returns the resolved
	// configuration with defaults applied. A missing file is not an error:
	// the defaults are returned.
	Load(cwd string) (domain.Config, error)
}
