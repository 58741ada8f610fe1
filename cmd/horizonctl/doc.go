// Package main is horizonctl, a command line client for the sysmodule
// daemon's diagnostics server.
//
// Usage:
//
//	horizonctl [-addr http://127.0.0.1:8090] <command>
//
// Commands:
//   - health: exit 0 while the event loop runs, 1 otherwise
//   - status: print the manager and metrics snapshot as JSON
//   - metrics: print the Prometheus exposition text
//   - watch [-n frames]: stream status snapshots, one JSON line each
package main
