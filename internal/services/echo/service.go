package echo

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/GriffinCanCode/horizon/internal/sysmodule"
)

// Service holds per-session call counters kept in the manager's session
// order through the sysmodule.SessionObserver hooks.
type Service struct {
	mu    sync.Mutex
	calls []uint32
	log   *zap.Logger
}

// New creates the service state.
func New(log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{log: log}
}

// AcceptSession implements sysmodule.SessionObserver.
func (s *Service) AcceptSession(_, session int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = slices.Insert(s.calls, session, 0)
}

// CloseSession implements sysmodule.SessionObserver.
func (s *Service) CloseSession(session int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = slices.Delete(s.calls, session, session+1)
}

// Calls returns how many commands the session at index has issued.
func (s *Service) Calls(session int) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session < 0 || session >= len(s.calls) {
		return 0
	}
	return s.calls[session]
}

func (s *Service) touch(c *sysmodule.Call) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.SessionIndex < 0 || c.SessionIndex >= len(s.calls) {
		return 0
	}
	s.calls[c.SessionIndex]++
	return s.calls[c.SessionIndex]
}

// Router builds the command table.
func (s *Service) Router() *sysmodule.Router {
	r := sysmodule.NewRouter()
	sysmodule.Handle(r, Echo, s.echo)
	sysmodule.Handle(r, Sum, s.sum)
	sysmodule.Handle(r, Fill, s.fill)
	sysmodule.Handle(r, Reverse, s.reverse)
	sysmodule.Handle(r, WhoAmI, s.whoAmI)
	sysmodule.Handle(r, Dup, s.dup)
	sysmodule.Handle(r, Fail, s.fail)
	return r
}

func (s *Service) echo(_ context.Context, c *sysmodule.Call, req EchoRequest) (EchoResponse, error) {
	s.touch(c)
	return EchoResponse(req), nil
}

func (s *Service) sum(_ context.Context, c *sysmodule.Call, req SumRequest) (SumResponse, error) {
	s.touch(c)
	var sum uint32
	for _, b := range req.Input.View.Bytes() {
		sum += uint32(b)
	}
	return SumResponse{Sum: sum, Length: uint32(req.Input.View.Len())}, nil
}

func (s *Service) fill(_ context.Context, c *sysmodule.Call, req FillRequest) (FillResponse, error) {
	s.touch(c)
	out := req.Output.View
	if !out.Writable() {
		return FillResponse{}, result.HostInvalidBufferRights
	}
	data := make([]byte, out.Len())
	for i := range data {
		data[i] = req.Pattern
	}
	n, err := out.WriteAt(data, 0)
	if err != nil {
		return FillResponse{}, fmt.Errorf("fill: %w", err)
	}
	return FillResponse{Written: uint32(n)}, nil
}

func (s *Service) reverse(_ context.Context, c *sysmodule.Call, req ReverseRequest) (ReverseResponse, error) {
	s.touch(c)
	if req.Input.ID != StaticIn {
		return ReverseResponse{}, result.InvalidCommand
	}
	data := req.Input.View.Bytes()
	slices.Reverse(data)
	return ReverseResponse{Output: ipc.StaticBuffer{ID: StaticOut, Data: data}}, nil
}

func (s *Service) whoAmI(_ context.Context, c *sysmodule.Call, req WhoAmIRequest) (WhoAmIResponse, error) {
	calls := s.touch(c)
	s.log.Debug("who am i", zap.Uint32("pid", req.Caller.PID), zap.String("session", string(c.Session.ID())))
	return WhoAmIResponse{PID: req.Caller.PID, Calls: calls}, nil
}

// dup hands the received copies back to the caller as a move, so the
// caller ends up with fresh handles to the same objects.
func (s *Service) dup(_ context.Context, c *sysmodule.Call, req DupRequest) (DupResponse, error) {
	s.touch(c)
	handles := req.Handles.Handles
	if len(handles) == 0 {
		return DupResponse{}, result.HostInvalidValue
	}
	return DupResponse{
		Count:   uint32(len(handles)),
		Handles: ipc.HandleList{Handles: handles, Move: true},
	}, nil
}

func (s *Service) fail(_ context.Context, c *sysmodule.Call, req FailRequest) (struct{}, error) {
	s.touch(c)
	if !req.Code.IsError() {
		return struct{}{}, nil
	}
	return struct{}{}, req.Code
}
