// Package confloader loads layered configuration with koanf.
//
// Sources, lowest priority first:
//
//  1. Defaults taken from a struct value (WithDefaults)
//  2. A YAML file
//  3. Environment variables under a prefix (SKILLGATE_ by default)
//
// Environment names are resolved against the keys already known from the
// defaults and the file, so SKILLGATE_RATELIMIT_SWEEP_INTERVAL maps to
// ratelimit.sweep_interval rather than ratelimit.sweep.interval.
//
// Watcher reports writes to watched files so callers can reload.
package confloader
