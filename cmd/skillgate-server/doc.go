// Command skillgate-server runs the authenticated MCP gateway.
//
// Usage:
//
//	skillgate-server [-config skillgate.yaml] [-version]
//
// Configuration is read from defaults, then the YAML file, then SKILLGATE_*
// environment variables. Changes to log.level and the ratelimit section are
// applied when the file is rewritten; everything else needs a restart.
package main
