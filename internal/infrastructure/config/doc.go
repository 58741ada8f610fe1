// Package config provides 12-factor configuration for the sysmodule daemon.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Logging: Log level and output format
//   - Diagnostics: HTTP diagnostics listener
//   - Runtime: service manifest, pointer width, static buffer size
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	manifest, err := config.LoadManifest(cfg.Runtime.ManifestPath)
//
// Environment Variables:
//   - LOG_LEVEL, LOG_DEV
//   - DIAG_ADDR, DIAG_ENABLED
//   - MANIFEST_PATH, ADDR_WIDTH, STATIC_BUFFER_SIZE
//
// The manifest is TOML:
//
//	[[service]]
//	name = "echo:u"
//	max_sessions = 4
//	kind = "echo"
//
//	[notifications]
//	subscribe = [0x104, 0x105]
package config
