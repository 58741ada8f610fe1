package sysmodule

import (
	"time"

	"github.com/GriffinCanCode/horizon/internal/result"
)

// Recorder receives loop measurements. internal/infrastructure/monitoring
// provides the Prometheus implementation.
type Recorder interface {
	Event(kind EventKind)
	Command(service, command string, code result.Code, elapsed time.Duration)
	SessionsOpen(service string, open int)
	Notification(id NotificationID, outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) Event(EventKind) {}
func (nopRecorder) Command(string, string, result.Code, time.Duration) {}
func (nopRecorder) SessionsOpen(string, int) {}
func (nopRecorder) Notification(NotificationID, Outcome) {}
