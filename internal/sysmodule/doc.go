// Package sysmodule runs a Horizon system module: a privileged server that
// exposes named services to other processes and reacts to system
// notifications.
//
// Components:
//   - Service: a registered named port plus the Router holding its command
//     table. Unregistered on Close.
//   - Session: one accepted client connection, tagged with a ULID for logs.
//   - Router: command id to handler dispatch. Handlers are derived from
//     ipc.Method declarations so the client and server share one schema.
//   - NotificationManager: subscriptions to notification ids with handlers.
//   - Manager: the single-goroutine event loop around ReplyAndReceive.
//
// Event loop:
//
// Every wake-up of ReplyAndReceive yields an (index, status) pair which is
// classified against the wait list [notification semaphore, service ports...,
// sessions...]:
//
//	status SessionClosed, index -1   -> ClosedSession(reply target)
//	status SessionClosed, index i    -> ClosedSession(i-1-S)
//	any other error status           -> fatal, Run returns it
//	index 0                          -> Notification
//	index in [1, 1+S)                -> SessionRequest(index-1)
//	index in [1+S, 1+S+N)            -> ServiceCommand(index-1-S)
//
// Exactly one event is handled per wake-up. A handler error becomes an error
// reply to that client; only a wait failure or a bookkeeping inconsistency
// ends the loop. A Termination notification ends it cleanly.
package sysmodule
