package config

import (
	"fmt"

	"github.com/yndnr/skillgate-go/internal/infra/confloader"
)

// Load reads defaults, the optional YAML file at path and SKILLGATE_*
// environment variables, then verifies the result.
func Load(path string) (*ServerConfig, error) {
	cfg := Default()
	l := confloader.NewLoader(
		confloader.WithDefaults(Default()),
		confloader.WithConfigFile(path),
	)
	if err := l.Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
