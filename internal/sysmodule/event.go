package sysmodule

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
)

// ErrBookkeeping reports that a kernel index does not match the manager's
// own view of its wait list.
var ErrBookkeeping = errors.New("sysmodule: bookkeeping inconsistency")

// EventKind is the classification of one ReplyAndReceive wake-up.
type EventKind uint8

const (
	EventNotification EventKind = iota
	EventSessionRequest
	EventServiceCommand
	EventClosedSession
)

func (k EventKind) String() string {
	switch k {
	case EventNotification:
		return "notification"
	case EventSessionRequest:
		return "session_request"
	case EventServiceCommand:
		return "service_command"
	case EventClosedSession:
		return "closed_session"
	default:
		return "unknown"
	}
}

// Event is a classified wake-up. Index is a service index for
// EventSessionRequest and a session index for the session events.
type Event struct {
	Kind  EventKind
	Index int
}

// noTarget marks the absence of a pending reply target.
const noTarget = -1

// classify maps the kernel's (index, status) pair onto an Event. The wait
// list it assumes is [notification, services..., sessions...].
func classify(index int, status result.Code, services, sessions, replyTarget int) (Event, error) {
	if status == result.SessionClosed {
		if index == kernel.IndexUnknown {
			if replyTarget == noTarget {
				return Event{}, fmt.Errorf("%w: reply target closed but none was recorded", ErrBookkeeping)
			}
			return Event{Kind: EventClosedSession, Index: replyTarget}, nil
		}
		session := index - 1 - services
		if session < 0 || session >= sessions {
			return Event{}, fmt.Errorf("%w: closed index %d outside %d sessions", ErrBookkeeping, index, sessions)
		}
		return Event{Kind: EventClosedSession, Index: session}, nil
	}
	if status.IsError() {
		return Event{}, fmt.Errorf("reply and receive: %w", status)
	}

	switch {
	case index == 0:
		return Event{Kind: EventNotification}, nil
	case index > 0 && index < 1+services:
		return Event{Kind: EventSessionRequest, Index: index - 1}, nil
	case index >= 1+services && index < 1+services+sessions:
		return Event{Kind: EventServiceCommand, Index: index - 1 - services}, nil
	default:
		return Event{}, fmt.Errorf("%w: index %d outside wait list of %d", ErrBookkeeping, index, 1+services+sessions)
	}
}
