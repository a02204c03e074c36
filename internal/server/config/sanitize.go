package config

import "strings"

// Sanitize returns a copy of the config with secrets masked, for logging.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	sanitized.Server.TrustedProxies = append([]string(nil), cfg.Server.TrustedProxies...)

	if sanitized.RateLimit.Redis.Password != "" {
		sanitized.RateLimit.Redis.Password = maskSecret(sanitized.RateLimit.Redis.Password)
	}
	return &sanitized
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
