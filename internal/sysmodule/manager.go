package sysmodule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/GriffinCanCode/horizon/internal/shared/id"
)

const (
	// DefaultStaticBuffers is how many receive static buffers the manager
	// registers before its first wait.
	DefaultStaticBuffers = 3
	// DefaultStaticBufferSize is the size of each of them.
	DefaultStaticBufferSize = 0x800
)

// SessionObserver is told about changes to the open session set, with
// indexes matching the manager's order.
type SessionObserver interface {
	AcceptSession(service, session int)
	CloseSession(session int)
}

// Manager multiplexes services, sessions and notifications on one
// ReplyAndReceive loop. It is not safe for concurrent use apart from
// Status; run independent Managers for parallelism.
type Manager struct {
	k             kernel.Kernel
	services      []*Service
	sessions      []*Session
	notifications *NotificationManager
	replyTarget   int
	run           id.RunID

	buf         *ipc.Buffer
	staticCount int
	staticSize  int

	log       *zap.Logger
	recorder  Recorder
	observers []SessionObserver
	warn      rate.Sometimes

	events atomic.Uint64
	status atomic.Pointer[Status]
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// WithSessionObserver registers session lifecycle hooks. Observers are
// called in registration order.
func WithSessionObserver(o SessionObserver) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, o)
	}
}

// WithBuffer sets the message buffer. It must belong to the process the
// kernel represents.
func WithBuffer(buf *ipc.Buffer) Option {
	return func(m *Manager) {
		m.buf = buf
	}
}

// WithStaticBuffers sets how many receive static buffers to register and
// their size.
func WithStaticBuffers(count, size int) Option {
	return func(m *Manager) {
		m.staticCount = count
		m.staticSize = size
	}
}

// NewManager creates a manager over already registered services.
func NewManager(k kernel.Kernel, services []*Service, notifications *NotificationManager, opts ...Option) *Manager {
	m := &Manager{
		k:             k,
		services:      services,
		notifications: notifications,
		replyTarget:   noTarget,
		staticCount:   DefaultStaticBuffers,
		staticSize:    DefaultStaticBufferSize,
		log:           zap.NewNop(),
		recorder:      nopRecorder{},
		warn:          rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.buf == nil {
		m.buf = ipc.NewBuffer()
	}
	m.publishStatus(false)
	return m
}

// Run serves until a Termination notification arrives (returns nil), the
// wait primitive fails, or the bookkeeping goes inconsistent. ctx is handed
// to command and notification handlers; the wait itself is not
// interruptible.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.installStaticBuffers(); err != nil {
		return err
	}
	m.run = id.NewRunID()
	log := m.log
	m.log = log.With(zap.Stringer("run", m.run))
	defer func() { m.log = log }()
	m.log.Info("serving", zap.Int("services", len(m.services)))
	m.publishStatus(true)
	defer m.publishStatus(false)

	index, status := m.wait(false)
	for {
		ev, err := classify(index, status, len(m.services), len(m.sessions), m.replyTarget)
		if err != nil {
			m.log.Error("event loop stopped", zap.Int("index", index), zap.Stringer("status", status), zap.Error(err))
			return err
		}
		m.events.Add(1)
		m.recorder.Event(ev.Kind)

		switch ev.Kind {
		case EventClosedSession:
			m.closeSession(ev.Index)
			m.replyTarget = noTarget
			index, status = m.wait(false)

		case EventNotification:
			d, err := m.notifications.Receive(ctx)
			if err != nil {
				m.log.Error("event loop stopped", zap.Error(err))
				return err
			}
			m.recorder.Notification(d.ID, d.Outcome)
			if d.Outcome == OutcomeTermination {
				m.log.Info("termination requested")
				return nil
			}
			if d.Err != nil {
				m.log.Warn("notification handler failed", zap.Stringer("id", d.ID), zap.Error(d.Err))
			} else {
				m.log.Debug("notification", zap.Stringer("id", d.ID), zap.Stringer("outcome", d.Outcome))
			}
			m.replyTarget = noTarget
			index, status = m.wait(false)

		case EventSessionRequest:
			if err := m.acceptSession(ev.Index); err != nil {
				m.log.Error("event loop stopped", zap.Error(err))
				return err
			}
			m.replyTarget = noTarget
			index, status = m.wait(false)

		case EventServiceCommand:
			m.replyTarget = ev.Index
			m.dispatch(ctx, ev.Index)
			index, status = m.wait(true)
		}
		m.publishStatus(true)
	}
}

// Close closes every session, unregisters every service and drops the
// notification subscriptions.
func (m *Manager) Close() {
	for _, s := range m.sessions {
		if err := s.Close(); err != nil {
			m.log.Debug("close session", zap.String("session", string(s.ID())), zap.Error(err))
		}
	}
	m.sessions = nil
	for _, svc := range m.services {
		svc.Close()
	}
	if m.notifications != nil {
		m.notifications.Close()
	}
	m.publishStatus(false)
}

// Sessions returns the open sessions in wait-list order.
func (m *Manager) Sessions() []*Session {
	return append([]*Session(nil), m.sessions...)
}

// waitList builds [notification, services..., sessions...]. classify
// depends on this order.
func (m *Manager) waitList() []uint32 {
	handles := make([]uint32, 0, 1+len(m.services)+len(m.sessions))
	handles = append(handles, m.notifications.Handle())
	for _, svc := range m.services {
		handles = append(handles, svc.Handle())
	}
	for _, s := range m.sessions {
		handles = append(handles, s.Handle())
	}
	return handles
}

// wait blocks for the next event, first replying to the reply target when
// reply is set. Otherwise the buffer carries the no-reply header.
func (m *Manager) wait(reply bool) (int, result.Code) {
	var target uint32
	if reply && m.replyTarget != noTarget {
		target = m.sessions[m.replyTarget].Handle()
	} else {
		// One word always fits.
		_ = m.buf.Load([]uint32{uint32(ipc.NoReplyHeader)})
	}
	return m.k.ReplyAndReceive(m.buf, m.waitList(), target)
}

func (m *Manager) installStaticBuffers() error {
	for id := range m.staticCount {
		if err := m.buf.SetStaticBuffer(id, make([]byte, m.staticSize)); err != nil {
			return fmt.Errorf("static buffer %d: %w", id, err)
		}
	}
	return nil
}

func (m *Manager) acceptSession(service int) error {
	svc := m.services[service]
	s, err := svc.Accept(service)
	if err != nil {
		return err
	}
	m.sessions = append(m.sessions, s)
	index := len(m.sessions) - 1
	for _, o := range m.observers {
		o.AcceptSession(service, index)
	}
	m.recorder.SessionsOpen(svc.Name(), m.openSessions(service))
	m.log.Info("session accepted",
		zap.String("service", svc.Name()),
		zap.String("session", string(s.ID())),
		zap.Int("index", index))
	return nil
}

func (m *Manager) closeSession(index int) {
	s := m.sessions[index]
	m.sessions = append(m.sessions[:index], m.sessions[index+1:]...)
	if err := s.Close(); err != nil {
		m.log.Debug("close session", zap.String("session", string(s.ID())), zap.Error(err))
	}
	for _, o := range m.observers {
		o.CloseSession(index)
	}
	svc := m.services[s.ServiceIndex()]
	m.recorder.SessionsOpen(svc.Name(), m.openSessions(s.ServiceIndex()))
	m.log.Info("session closed",
		zap.String("service", svc.Name()),
		zap.String("session", string(s.ID())),
		zap.Duration("age", time.Since(s.Opened())))
}

func (m *Manager) dispatch(ctx context.Context, index int) {
	s := m.sessions[index]
	svc := m.services[s.ServiceIndex()]
	call := &Call{
		Buffer:       m.buf,
		Kernel:       m.k,
		Session:      s,
		SessionIndex: index,
		Service:      svc,
	}
	header := m.buf.Header()

	start := time.Now()
	command, code := svc.Router().Dispatch(ctx, call)
	m.recorder.Command(svc.Name(), command, code, time.Since(start))

	switch {
	case code == result.InvalidCommand:
		m.warn.Do(func() {
			m.log.Warn("invalid command",
				zap.String("service", svc.Name()),
				zap.String("session", string(s.ID())),
				zap.Stringer("header", header))
		})
	case code.IsError():
		m.log.Debug("command failed",
			zap.String("service", svc.Name()),
			zap.String("command", command),
			zap.Error(code))
	}
}

func (m *Manager) openSessions(service int) int {
	n := 0
	for _, s := range m.sessions {
		if s.ServiceIndex() == service {
			n++
		}
	}
	return n
}
