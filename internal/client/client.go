// Package client issues point-to-point requests to named services.
//
//	s, err := client.Connect(k, buf, "echo:u")
//	if err != nil { ... }
//	defer s.Close()
//	resp, err := client.Call(ctx, s, echo.Sum, echo.SumRequest{...})
//
// A Session owns its kernel handle and shares the caller's Buffer; like the
// Buffer it must not be used from two goroutines at once.
package client

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel"
)

// Session is an open connection to one named service.
type Session struct {
	name   string
	k      kernel.Kernel
	buf    *ipc.Buffer
	handle *kernel.Handle
}

// Connect opens a session to the service registered as name. buf is the
// calling thread's message buffer.
func Connect(k kernel.Kernel, buf *ipc.Buffer, name string) (*Session, error) {
	raw, code := k.ConnectToService(name)
	if err := code.Err(); err != nil {
		return nil, fmt.Errorf("connect %q: %w", name, err)
	}
	return &Session{
		name:   name,
		k:      k,
		buf:    buf,
		handle: kernel.NewHandle(k, raw),
	}, nil
}

// Name returns the service name.
func (s *Session) Name() string { return s.name }

// Handle returns the raw session handle.
func (s *Session) Handle() uint32 { return s.handle.Raw() }

// Buffer returns the message buffer requests are built in.
func (s *Session) Buffer() *ipc.Buffer { return s.buf }

// Send delivers whatever message is in the buffer and waits for the reply,
// which replaces it.
func (s *Session) Send(ctx context.Context) error {
	if err := s.k.SendSyncRequest(ctx, s.buf, s.handle.Raw()).Err(); err != nil {
		return fmt.Errorf("send to %q: %w", s.name, err)
	}
	return nil
}

// Close closes the session handle.
func (s *Session) Close() error {
	return s.handle.Close()
}

// CallOption adjusts one Call.
type CallOption func(*call)

type call struct {
	statics []staticSlot
}

type staticSlot struct {
	id  int
	dst []byte
}

// ReceiveStatic registers dst as static buffer id for the duration of the
// call, so a static buffer in the reply lands in dst. The slot's previous
// registration is restored afterwards.
func ReceiveStatic(id int, dst []byte) CallOption {
	return func(c *call) {
		c.statics = append(c.statics, staticSlot{id: id, dst: dst})
	}
}

// Call sends req with m and decodes the reply. An error result from the
// service comes back as that result.Code.
func Call[Req, Resp any](ctx context.Context, s *Session, m ipc.Method[Req, Resp], req Req, opts ...CallOption) (Resp, error) {
	var (
		zero Resp
		c    call
	)
	for _, opt := range opts {
		opt(&c)
	}

	for _, slot := range c.statics {
		prev := s.buf.StaticBuffer(slot.id)
		if err := s.buf.SetStaticBuffer(slot.id, slot.dst); err != nil {
			return zero, fmt.Errorf("%s: %w", m.Name, err)
		}
		defer restoreStatic(s.buf, slot.id, prev)
	}

	if err := m.WriteRequest(s.buf, req); err != nil {
		return zero, fmt.Errorf("%s: %w", m.Name, err)
	}
	if err := s.Send(ctx); err != nil {
		return zero, fmt.Errorf("%s: %w", m.Name, err)
	}
	resp, err := m.ReadResponse(s.buf)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", m.Name, err)
	}
	return resp, nil
}

func restoreStatic(buf *ipc.Buffer, id int, prev []byte) {
	if prev == nil {
		buf.ClearStaticBuffer(id)
		return
	}
	// prev was accepted by SetStaticBuffer before.
	_ = buf.SetStaticBuffer(id, prev)
}
