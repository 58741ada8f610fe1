package kernel

import (
	"context"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/result"
)

// ABI constants.
const (
	// CurrentThread is the pseudo-handle for the calling thread.
	CurrentThread uint32 = 0xFFFF8000
	// CurrentProcess is the pseudo-handle for the calling process.
	CurrentProcess uint32 = 0xFFFF8001

	// IndexUnknown is the index ReplyAndReceive reports when the reply
	// target itself was closed (the kernel writes 0xFFFFFFFF).
	IndexUnknown = -1
)

// StatusSessionClosed is ReplyAndReceive's status when a session's remote
// end has gone away.
var StatusSessionClosed = result.SessionClosed

// Closer closes raw handles.
type Closer interface {
	CloseHandle(h uint32) result.Code
}

// Kernel is the set of primitives the runtime consumes.
type Kernel interface {
	Closer

	// RegisterService creates a named port (srv:RegisterService).
	RegisterService(name string, maxSessions int) (uint32, result.Code)
	// UnregisterService removes a named port (srv:UnregisterService).
	UnregisterService(name string) result.Code
	// ConnectToService opens a client session (srv:GetServiceHandle).
	ConnectToService(name string) (uint32, result.Code)

	// AcceptSession turns a pending connection on port into a session.
	AcceptSession(port uint32) (uint32, result.Code)
	// ReplyAndReceive replies with buf to replyTarget (0 for none), then
	// blocks until one of handles signals. It returns the index of the
	// signalled handle and a status; a request delivered to a session is
	// written into buf.
	ReplyAndReceive(buf *ipc.Buffer, handles []uint32, replyTarget uint32) (int, result.Code)
	// SendSyncRequest sends buf on session and blocks until the reply has
	// been written back into buf or ctx is done.
	SendSyncRequest(ctx context.Context, buf *ipc.Buffer, session uint32) result.Code

	// EnableNotifications returns the semaphore signalled on notifications
	// (srv:EnableNotification).
	EnableNotifications() (uint32, result.Code)
	// ReceiveNotification pops one pending notification id.
	ReceiveNotification() (uint32, result.Code)
	// Subscribe registers interest in a notification id.
	Subscribe(id uint32) result.Code
	// Unsubscribe drops interest in a notification id.
	Unsubscribe(id uint32) result.Code
	// PublishNotification delivers id to every subscriber.
	PublishNotification(id uint32) result.Code
}
