/*
Package monitoring provides Prometheus metrics for the sysmodule runtime.

# Overview

Metrics implements sysmodule.Recorder, so the event loop reports through it
without importing Prometheus:

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	mgr := sysmodule.NewManager(k, services, notifications,
		sysmodule.WithRecorder(metrics))

# Metrics

  - horizon_events_total{kind}
  - horizon_commands_total{service,command,status}
  - horizon_command_duration_seconds{service}
  - horizon_sessions_open{service}
  - horizon_notifications_total{id,handled}
  - horizon_client_calls_total{service,command,status}
  - horizon_http_requests_total{method,path,status}
  - horizon_uptime_seconds

# Client calls

	timer := monitoring.NewTimer(metrics, "echo:u", "Echo")
	resp, err := client.Call(ctx, s, echo.Echo, req)
	timer.Stop(err)

# Metrics Endpoint

The diagnostics server exposes the registry with promhttp:

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
*/
package monitoring
