package sysmodule

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/shared/id"
)

// Service is a registered named port and the command table serving it.
type Service struct {
	name        string
	maxSessions int
	port        *kernel.Handle
	k           kernel.Kernel
	router      *Router
	log         *zap.Logger
}

// Register asks the kernel for a named port. It fails if the name is taken
// or the kernel is out of ports.
func Register(k kernel.Kernel, name string, maxSessions int, router *Router, log *zap.Logger) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if router == nil {
		router = NewRouter()
	}
	raw, code := k.RegisterService(name, maxSessions)
	if err := code.Err(); err != nil {
		return nil, fmt.Errorf("register service %q: %w", name, err)
	}
	log.Info("service registered", zap.String("service", name), zap.Int("max_sessions", maxSessions))
	return &Service{
		name:        name,
		maxSessions: maxSessions,
		port:        kernel.NewHandle(k, raw),
		k:           k,
		router:      router,
		log:         log,
	}, nil
}

// Name returns the registered name.
func (s *Service) Name() string { return s.name }

// MaxSessions returns the session limit passed at registration.
func (s *Service) MaxSessions() int { return s.maxSessions }

// Router returns the command table.
func (s *Service) Router() *Router { return s.router }

// Handle returns the port's raw value for the wait list.
func (s *Service) Handle() uint32 { return s.port.Raw() }

// Accept turns one pending connection into a Session belonging to the
// service at index.
func (s *Service) Accept(index int) (*Session, error) {
	raw, code := s.k.AcceptSession(s.port.Raw())
	if err := code.Err(); err != nil {
		return nil, fmt.Errorf("accept session on %q: %w", s.name, err)
	}
	return &Session{
		handle:  kernel.NewHandle(s.k, raw),
		service: index,
		id:      id.NewSessionID(),
		opened:  time.Now(),
	}, nil
}

// Close unregisters the name and closes the port. Errors are logged and
// discarded.
func (s *Service) Close() {
	if err := s.k.UnregisterService(s.name).Err(); err != nil {
		s.log.Debug("unregister service", zap.String("service", s.name), zap.Error(err))
	}
	if err := s.port.Close(); err != nil {
		s.log.Debug("close port", zap.String("service", s.name), zap.Error(err))
	}
}

// Session is one accepted client connection.
type Session struct {
	handle  *kernel.Handle
	service int
	id      id.SessionID
	opened  time.Time
}

// ID returns the session's log identifier.
func (s *Session) ID() id.SessionID { return s.id }

// ServiceIndex returns the index of the owning service.
func (s *Session) ServiceIndex() int { return s.service }

// Handle returns the raw session handle.
func (s *Session) Handle() uint32 { return s.handle.Raw() }

// Opened returns when the session was accepted.
func (s *Session) Opened() time.Time { return s.opened }

// Close closes the session handle.
func (s *Session) Close() error {
	return s.handle.Close()
}
