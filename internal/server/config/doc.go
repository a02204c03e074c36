// Package config defines the skillgate-server configuration.
//
//   - spec.go: ServerConfig and its sections
//   - default.go: default values
//   - verify.go: validation run before the server starts and on reload
//   - sanitize.go: a copy safe to log
//   - load.go: layered loading through internal/infra/confloader
package config
