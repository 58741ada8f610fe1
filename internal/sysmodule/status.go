package sysmodule

import (
	"time"

	"github.com/GriffinCanCode/horizon/internal/shared/id"
)

// Status is a point-in-time view of a Manager, safe to read from other
// goroutines.
type Status struct {
	Running     bool            `json:"running"`
	Run         id.RunID        `json:"run,omitempty"`
	Events      uint64          `json:"events"`
	ReplyTarget int             `json:"reply_target"`
	Services    []ServiceStatus `json:"services"`
	Sessions    []SessionStatus `json:"sessions"`
	Updated     time.Time       `json:"updated"`
}

// ServiceStatus describes one registered service.
type ServiceStatus struct {
	Name        string   `json:"name"`
	MaxSessions int      `json:"max_sessions"`
	Open        int      `json:"open"`
	Commands    []string `json:"commands"`
}

// SessionStatus describes one open session.
type SessionStatus struct {
	ID      id.SessionID `json:"id"`
	Service string       `json:"service"`
	Index   int          `json:"index"`
	Opened  time.Time    `json:"opened"`
}

// Status returns the latest snapshot.
func (m *Manager) Status() Status {
	return *m.status.Load()
}

func (m *Manager) publishStatus(running bool) {
	st := &Status{
		Running:     running,
		Run:         m.run,
		Events:      m.events.Load(),
		ReplyTarget: m.replyTarget,
		Services:    make([]ServiceStatus, len(m.services)),
		Sessions:    make([]SessionStatus, len(m.sessions)),
		Updated:     time.Now(),
	}
	for i, svc := range m.services {
		st.Services[i] = ServiceStatus{
			Name:        svc.Name(),
			MaxSessions: svc.MaxSessions(),
			Open:        m.openSessions(i),
			Commands:    svc.Router().Commands(),
		}
	}
	for i, s := range m.sessions {
		st.Sessions[i] = SessionStatus{
			ID:      s.ID(),
			Service: m.services[s.ServiceIndex()].Name(),
			Index:   i,
			Opened:  s.Opened(),
		}
	}
	m.status.Store(st)
}
