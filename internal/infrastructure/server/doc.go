// Package server provides the diagnostics HTTP surface of the sysmodule
// daemon.
//
// Routes:
//   - GET /              service names and the route list
//   - GET /healthz       200 while the event loop runs, 503 otherwise
//   - GET /status        manager status plus metric totals as JSON
//   - GET /status/stream the same payload pushed over a WebSocket
//   - GET /metrics       Prometheus exposition
//
// Middleware: recovery, request metrics, optional CORS for the configured
// origins, and a per-IP rate limit.
//
// Example Usage:
//
//	srv := server.NewServer(cfg.Diagnostics, manager, metrics, registry, log)
//	g.Go(func() error { return srv.Run(ctx) })
package server
