// Package logging builds the zap loggers used across the runtime.
//
// Two modes:
//   - Production: JSON output for machine parsing, sampled so a client
//     hammering an invalid command cannot flood the sink
//   - Development: colored console output with caller and stack traces
//
// Components take a *zap.Logger; the daemon derives one per component with
// Component, which names it and attaches fixed fields:
//
//	log := logging.NewDefault()
//	mgr := sysmodule.NewManager(k, services, notifications,
//		sysmodule.WithLogger(logging.Component(log, "manager")))
//
// A nil logger anywhere in the runtime means zap.NewNop().
package logging
