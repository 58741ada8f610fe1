package sim

import (
	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/result"
)

// port is the server end of a registered service.
type port struct {
	name       string
	maxSession int
	owner      *Process
	pending    []*session
	open       int
}

type sessionState uint8

const (
	sessionIdle sessionState = iota
	sessionRequested
	sessionProcessing
)

// session connects one client and one server end.
type session struct {
	port       *port
	serverOpen bool
	clientOpen bool
	accepted   bool

	state     sessionState
	client    *Process
	clientBuf *ipc.Buffer
	abandoned bool
	replied   bool
	failure   result.Code
}

// sessionEnd is what a handle table stores for a session. Copies of a
// handle share one sessionEnd; the side closes when the last copy does.
type sessionEnd struct {
	s      *session
	server bool
	refs   int
}

// notifier is the semaphore returned by EnableNotifications.
type notifier struct {
	queue []uint32
}

func (n *notifier) pop() (uint32, bool) {
	if len(n.queue) == 0 {
		return 0, false
	}
	id := n.queue[0]
	n.queue = n.queue[1:]
	return id, true
}
