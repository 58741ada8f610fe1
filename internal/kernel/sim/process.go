package sim

import (
	"context"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
)

const firstHandle uint32 = 0x00010001

// Process is one emulated process. It implements kernel.Kernel; its methods
// may be called from any goroutine.
type Process struct {
	e        *Emulator
	pid      uint32
	name     string
	handles  map[uint32]any
	next     uint32
	space    *ipc.AddressSpace
	notifier *notifier
}

var _ kernel.Kernel = (*Process)(nil)

// PID returns the process id.
func (p *Process) PID() uint32 { return p.pid }

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// NewBuffer returns a message buffer in this process's address space.
func (p *Process) NewBuffer() *ipc.Buffer {
	return ipc.NewBuffer(ipc.WithAddressSpace(p.space), ipc.WithAddrWidth(p.e.width))
}

// HandleCount returns the number of open handles.
func (p *Process) HandleCount() int {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()
	return len(p.handles)
}

// Exit closes every handle the process still owns.
func (p *Process) Exit() {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	for raw, obj := range p.handles {
		delete(p.handles, raw)
		p.e.release(obj)
	}
	for _, subs := range p.e.subs {
		delete(subs, p)
	}
	delete(p.e.processes, p.pid)
	p.e.cond.Broadcast()
}

// install adds obj to the handle table. Caller holds e.mu.
func (p *Process) install(obj any) uint32 {
	raw := p.next
	p.next++
	if end, ok := obj.(*sessionEnd); ok {
		end.refs++
	}
	p.handles[raw] = obj
	return raw
}

// release drops one reference to obj. Caller holds e.mu.
func (e *Emulator) release(obj any) {
	end, ok := obj.(*sessionEnd)
	if !ok {
		return
	}
	end.refs--
	if end.refs > 0 {
		return
	}
	s := end.s
	if end.server {
		s.serverOpen = false
		if s.accepted {
			s.port.open--
		}
	} else {
		s.clientOpen = false
		if !s.accepted {
			s.port.removePending(s)
		}
	}
	e.cond.Broadcast()
}

func (pt *port) removePending(s *session) {
	for i, c := range pt.pending {
		if c == s {
			pt.pending = append(pt.pending[:i], pt.pending[i+1:]...)
			return
		}
	}
}

// CloseHandle implements kernel.Kernel.
func (p *Process) CloseHandle(h uint32) result.Code {
	if kernel.IsPseudo(h) {
		return result.Success
	}
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	obj, ok := p.handles[h]
	if !ok {
		return result.InvalidHandle
	}
	delete(p.handles, h)
	p.e.release(obj)
	return result.Success
}

// RegisterService implements kernel.Kernel.
func (p *Process) RegisterService(name string, maxSessions int) (uint32, result.Code) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.e.shutdown {
		return 0, ErrShutdown
	}
	if len(name) == 0 || len(name) > 8 {
		return 0, result.HostInvalidString
	}
	if _, ok := p.e.services[name]; ok {
		return 0, ErrServiceExists
	}
	pt := &port{name: name, maxSession: maxSessions, owner: p}
	p.e.services[name] = pt
	p.e.log.Debug("service registered", zap.String("service", name), zap.Int("max_sessions", maxSessions), zap.Uint32("pid", p.pid))
	return p.install(pt), result.Success
}

// UnregisterService implements kernel.Kernel.
func (p *Process) UnregisterService(name string) result.Code {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	pt, ok := p.e.services[name]
	if !ok || pt.owner != p {
		return ErrServiceNotFound
	}
	delete(p.e.services, name)
	p.e.log.Debug("service unregistered", zap.String("service", name))
	return result.Success
}

// ConnectToService implements kernel.Kernel.
func (p *Process) ConnectToService(name string) (uint32, result.Code) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.e.shutdown {
		return 0, ErrShutdown
	}
	pt, ok := p.e.services[name]
	if !ok {
		return 0, ErrServiceNotFound
	}
	if pt.open+len(pt.pending) >= pt.maxSession {
		return 0, ErrTooManySessions
	}
	s := &session{port: pt, serverOpen: true, clientOpen: true}
	pt.pending = append(pt.pending, s)
	p.e.cond.Broadcast()
	return p.install(&sessionEnd{s: s}), result.Success
}

// AcceptSession implements kernel.Kernel.
func (p *Process) AcceptSession(portHandle uint32) (uint32, result.Code) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	pt, ok := p.handles[portHandle].(*port)
	if !ok {
		return 0, result.InvalidHandle
	}
	if len(pt.pending) == 0 {
		return 0, ErrNoPending
	}
	s := pt.pending[0]
	pt.pending = pt.pending[1:]
	s.accepted = true
	pt.open++
	return p.install(&sessionEnd{s: s, server: true}), result.Success
}

// ReplyAndReceive implements kernel.Kernel.
func (p *Process) ReplyAndReceive(buf *ipc.Buffer, handles []uint32, replyTarget uint32) (int, result.Code) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if replyTarget != 0 {
		if idx, code, done := p.reply(buf, replyTarget); done {
			return idx, code
		}
	}

	for {
		if p.e.shutdown {
			return 0, ErrShutdown
		}
		for i, h := range handles {
			signalled, code := p.poll(buf, h)
			if signalled {
				return i, code
			}
		}
		p.e.cond.Wait()
	}
}

// reply delivers buf to the client waiting on replyTarget. done is set when
// ReplyAndReceive must return immediately with (idx, code).
func (p *Process) reply(buf *ipc.Buffer, target uint32) (idx int, code result.Code, done bool) {
	end, ok := p.handles[target].(*sessionEnd)
	if !ok || !end.server {
		return 0, result.InvalidHandle, true
	}
	s := end.s
	if !s.clientOpen {
		return kernel.IndexUnknown, result.SessionClosed, true
	}
	if s.state != sessionProcessing {
		return 0, ErrNotReplying, true
	}
	s.state = sessionIdle
	s.replied = true
	if !s.abandoned {
		if err := ipc.Transfer(s.clientBuf, buf, translator{from: p, to: s.client}); err != nil {
			// The client's request fails; the server keeps serving.
			s.replied = false
			s.failure = result.FromError(err)
			p.e.log.Debug("reply transfer failed", zap.Error(err))
		}
	}
	s.clientBuf = nil
	s.client = nil
	s.abandoned = false
	p.e.cond.Broadcast()
	return 0, result.Success, false
}

// poll reports whether h is signalled and, for a session with a request,
// receives it into buf.
func (p *Process) poll(buf *ipc.Buffer, h uint32) (bool, result.Code) {
	switch obj := p.handles[h].(type) {
	case *port:
		return len(obj.pending) > 0, result.Success
	case *notifier:
		return len(obj.queue) > 0, result.Success
	case *sessionEnd:
		if !obj.server {
			return false, result.Success
		}
		s := obj.s
		if !s.clientOpen {
			return true, result.SessionClosed
		}
		if s.state != sessionRequested {
			return false, result.Success
		}
		if err := ipc.Transfer(buf, s.clientBuf, translator{from: s.client, to: p}); err != nil {
			// The kernel fails the sender's request and keeps waiting.
			s.state = sessionIdle
			s.replied = false
			s.failure = result.FromError(err)
			s.clientBuf = nil
			p.e.log.Debug("request transfer failed", zap.Error(err))
			p.e.cond.Broadcast()
			return false, result.Success
		}
		s.state = sessionProcessing
		return true, result.Success
	default:
		return true, result.InvalidHandle
	}
}

// SendSyncRequest implements kernel.Kernel.
func (p *Process) SendSyncRequest(ctx context.Context, buf *ipc.Buffer, h uint32) result.Code {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	end, ok := p.handles[h].(*sessionEnd)
	if !ok || end.server {
		return result.InvalidHandle
	}
	s := end.s
	if !s.serverOpen {
		return result.SessionClosed
	}
	if s.state != sessionIdle {
		return ErrSessionBusy
	}

	s.state = sessionRequested
	s.client = p
	s.clientBuf = buf
	s.replied = false
	s.failure = result.Success
	p.e.cond.Broadcast()

	stop := context.AfterFunc(ctx, func() {
		p.e.mu.Lock()
		p.e.cond.Broadcast()
		p.e.mu.Unlock()
	})
	defer stop()

	for {
		switch {
		case s.replied && s.state == sessionIdle:
			s.replied = false
			return result.Success
		case s.state == sessionIdle:
			// The kernel could not deliver the request.
			s.clientBuf = nil
			return s.failure
		case !s.serverOpen:
			s.state = sessionIdle
			s.clientBuf = nil
			return result.SessionClosed
		case p.e.shutdown:
			return ErrShutdown
		case ctx.Err() != nil:
			if s.state == sessionRequested {
				s.state = sessionIdle
				s.clientBuf = nil
			} else {
				s.abandoned = true
			}
			return result.Timeout
		}
		p.e.cond.Wait()
	}
}

// EnableNotifications implements kernel.Kernel.
func (p *Process) EnableNotifications() (uint32, result.Code) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.notifier == nil {
		p.notifier = &notifier{}
	}
	return p.install(p.notifier), result.Success
}

// ReceiveNotification implements kernel.Kernel.
func (p *Process) ReceiveNotification() (uint32, result.Code) {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.notifier == nil {
		return 0, result.New(result.DescriptionNotInitialized, result.LevelPermanent, result.SummaryInvalidState, result.ModuleSrv)
	}
	id, ok := p.notifier.pop()
	if !ok {
		return 0, ErrNoPending
	}
	return id, result.Success
}

// Subscribe implements kernel.Kernel.
func (p *Process) Subscribe(id uint32) result.Code {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	subs, ok := p.e.subs[id]
	if !ok {
		subs = make(map[*Process]struct{})
		p.e.subs[id] = subs
	}
	subs[p] = struct{}{}
	return result.Success
}

// Unsubscribe implements kernel.Kernel.
func (p *Process) Unsubscribe(id uint32) result.Code {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	delete(p.e.subs[id], p)
	return result.Success
}

// PublishNotification implements kernel.Kernel.
func (p *Process) PublishNotification(id uint32) result.Code {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	for sub := range p.e.subs[id] {
		if sub.notifier != nil {
			sub.notifier.queue = append(sub.notifier.queue, id)
		}
	}
	p.e.cond.Broadcast()
	return result.Success
}
