// Package main is the entry point for the horizon sysmodule daemon.
//
// The daemon boots an emulated kernel, registers the services named in the
// manifest on one server process and runs a single event loop over them:
//
//	client process ──SendSyncRequest──▶ kernel ──ReplyAndReceive──▶ Manager
//	                                                              ├─ services
//	                                                              └─ notifications
//
// A diagnostics HTTP server exposes health, status, a status stream and
// Prometheus metrics.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//   - A TOML or YAML service manifest
//
// Usage:
//
//	# Serve the built-in echo:u service
//	./sysmoduled
//
//	# Custom manifest, debug logs, one self-test pass and exit
//	./sysmoduled -manifest services.toml -dev -selftest -once
//
// Signals:
//   - SIGINT, SIGTERM: deliver the termination notification and exit
package main
