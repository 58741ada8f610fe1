package sim

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waitResult struct {
	index int
	code  result.Code
}

func waitAsync(p *Process, buf *ipc.Buffer, handles []uint32, target uint32) <-chan waitResult {
	ch := make(chan waitResult, 1)
	go func() {
		idx, code := p.ReplyAndReceive(buf, handles, target)
		ch <- waitResult{idx, code}
	}()
	return ch
}

func recv(t *testing.T, ch <-chan waitResult) waitResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("ReplyAndReceive did not return")
		return waitResult{}
	}
}

func TestRegisterAndConnect(t *testing.T) {
	emu := New()
	server := emu.NewProcess("server")
	client := emu.NewProcess("client")

	port, code := server.RegisterService("test", 1)
	require.True(t, code.IsSuccess())

	_, code = server.RegisterService("test", 1)
	assert.Equal(t, ErrServiceExists, code)

	_, code = server.RegisterService("too-long-name", 1)
	assert.True(t, code.IsError())

	_, code = client.ConnectToService("missing")
	assert.Equal(t, ErrServiceNotFound, code)

	session, code := client.ConnectToService("test")
	require.True(t, code.IsSuccess())
	assert.NotZero(t, session)

	_, code = client.ConnectToService("test")
	assert.Equal(t, ErrTooManySessions, code, "max sessions counts pending connections")

	buf := server.NewBuffer()
	r := recv(t, waitAsync(server, buf, []uint32{port}, 0))
	assert.Equal(t, 0, r.index)
	assert.True(t, r.code.IsSuccess())

	accepted, code := server.AcceptSession(port)
	require.True(t, code.IsSuccess())
	assert.NotZero(t, accepted)

	_, code = server.AcceptSession(port)
	assert.Equal(t, ErrNoPending, code)

	assert.Equal(t, []string{"test"}, emu.Services())
	assert.True(t, server.UnregisterService("test").IsSuccess())
	assert.Equal(t, ErrServiceNotFound, server.UnregisterService("test"))
}

func connectPair(t *testing.T, emu *Emulator) (server, client *Process, port, serverSession, clientSession uint32) {
	t.Helper()
	server = emu.NewProcess("server")
	client = emu.NewProcess("client")

	port, code := server.RegisterService("test", 4)
	require.True(t, code.IsSuccess())
	clientSession, code = client.ConnectToService("test")
	require.True(t, code.IsSuccess())
	serverSession, code = server.AcceptSession(port)
	require.True(t, code.IsSuccess())
	return server, client, port, serverSession, clientSession
}

func TestRequestReply(t *testing.T) {
	emu := New()
	server, client, port, ss, cs := connectPair(t, emu)
	sbuf := server.NewBuffer()
	cbuf := client.NewBuffer()

	data := make([]byte, 4)
	require.NoError(t, cbuf.Build(0x1, func(b *ipc.Builder) {
		b.Push(41)
		b.PushWriteBuffer(data)
		b.PushProcessID()
	}))

	done := make(chan result.Code, 1)
	go func() { done <- client.SendSyncRequest(context.Background(), cbuf, cs) }()

	r := recv(t, waitAsync(server, sbuf, []uint32{port, ss}, 0))
	require.Equal(t, 1, r.index)
	require.True(t, r.code.IsSuccess())

	var value uint32
	require.NoError(t, sbuf.Parse(func(p *ipc.Parser) error {
		value = p.Pop()
		w, err := p.PopWriteBuffer()
		if err != nil {
			return err
		}
		if _, err := w.WriteAt([]byte("ok!!"), 0); err != nil {
			return err
		}
		pid, err := p.PopProcessID()
		assert.Equal(t, client.PID(), pid)
		return err
	}))
	require.NoError(t, sbuf.Build(0x1, func(b *ipc.Builder) {
		b.PushResult(result.Success)
		b.Push(value + 1)
	}))

	wait := waitAsync(server, sbuf, []uint32{port, ss}, ss)
	select {
	case code := <-done:
		require.True(t, code.IsSuccess())
	case <-time.After(2 * time.Second):
		t.Fatal("client never got a reply")
	}
	assert.Equal(t, []uint32{uint32(ipc.MakeHeader(0x1, 2, 0)), 0, 42}, cbuf.Words())
	assert.Equal(t, []byte("ok!!"), data)

	require.True(t, client.CloseHandle(cs).IsSuccess())
	r = recv(t, wait)
	assert.Equal(t, 1, r.index)
	assert.Equal(t, result.SessionClosed, r.code)
}

func TestReplyTargetClosed(t *testing.T) {
	emu := New()
	server, client, port, ss, cs := connectPair(t, emu)
	sbuf := server.NewBuffer()
	cbuf := client.NewBuffer()
	require.NoError(t, cbuf.Build(0x2, func(*ipc.Builder) {}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan result.Code, 1)
	go func() { done <- client.SendSyncRequest(ctx, cbuf, cs) }()

	r := recv(t, waitAsync(server, sbuf, []uint32{port, ss}, 0))
	require.Equal(t, 1, r.index)

	cancel()
	assert.Equal(t, result.Timeout, <-done)
	require.True(t, client.CloseHandle(cs).IsSuccess())

	require.NoError(t, sbuf.Build(0x2, func(b *ipc.Builder) { b.PushResult(result.Success) }))
	r = recv(t, waitAsync(server, sbuf, []uint32{port, ss}, ss))
	assert.Equal(t, kernel.IndexUnknown, r.index)
	assert.Equal(t, kernel.StatusSessionClosed, r.code)
}

func TestStaticBufferAndHandleMove(t *testing.T) {
	emu := New()
	server, client, _, ss, cs := connectPair(t, emu)
	defer emu.Shutdown()
	sbuf := server.NewBuffer()
	slot := make([]byte, 0x20)
	require.NoError(t, sbuf.SetStaticBuffer(0, slot))

	// A second session handle the client will hand over.
	extra, code := client.ConnectToService("test")
	require.True(t, code.IsSuccess())

	cbuf := client.NewBuffer()
	require.NoError(t, cbuf.Build(0x3, func(b *ipc.Builder) {
		b.PushStaticBuffer(0, []byte("static"))
		b.PushMoveHandles(extra)
	}))
	go client.SendSyncRequest(context.Background(), cbuf, cs)

	r := recv(t, waitAsync(server, sbuf, []uint32{ss}, 0))
	require.Equal(t, 0, r.index)
	assert.Equal(t, []byte("static"), slot[:6])

	var moved []uint32
	require.NoError(t, sbuf.Parse(func(p *ipc.Parser) error {
		v, err := p.PopStaticBuffer(0)
		if err != nil {
			return err
		}
		assert.Equal(t, 6, v.Len())
		moved, err = p.PopHandles(true)
		return err
	}))
	require.Len(t, moved, 1)
	assert.Equal(t, result.InvalidHandle, client.CloseHandle(extra), "moved handles leave the sender")
	assert.True(t, server.CloseHandle(moved[0]).IsSuccess())
}

func TestFailedTransferKeepsMovedHandles(t *testing.T) {
	emu := New()
	defer emu.Shutdown()
	server, client, _, ss, cs := connectPair(t, emu)
	sbuf := server.NewBuffer()

	extra, code := client.ConnectToService("test")
	require.True(t, code.IsSuccess())

	// The move list comes first; the server registered no static buffer 5.
	cbuf := client.NewBuffer()
	require.NoError(t, cbuf.Build(0x3, func(b *ipc.Builder) {
		b.PushMoveHandles(extra)
		b.PushStaticBuffer(5, []byte("nowhere"))
	}))
	wait := waitAsync(server, sbuf, []uint32{ss}, 0)
	assert.Equal(t, result.InvalidPointer, client.SendSyncRequest(context.Background(), cbuf, cs))
	assert.True(t, client.CloseHandle(extra).IsSuccess(), "the handle stays with the sender")

	require.True(t, client.CloseHandle(cs).IsSuccess())
	r := recv(t, wait)
	assert.Equal(t, result.SessionClosed, r.code)
}

func TestNotifications(t *testing.T) {
	emu := New()
	a := emu.NewProcess("a")
	b := emu.NewProcess("b")

	sem, code := a.EnableNotifications()
	require.True(t, code.IsSuccess())
	_, code = b.EnableNotifications()
	require.True(t, code.IsSuccess())

	require.True(t, a.Subscribe(0x104).IsSuccess())
	require.True(t, b.PublishNotification(0x104).IsSuccess())
	require.True(t, b.PublishNotification(0x105).IsSuccess())

	r := recv(t, waitAsync(a, a.NewBuffer(), []uint32{sem}, 0))
	assert.Equal(t, 0, r.index)

	id, code := a.ReceiveNotification()
	require.True(t, code.IsSuccess())
	assert.Equal(t, uint32(0x104), id)

	_, code = a.ReceiveNotification()
	assert.Equal(t, ErrNoPending, code, "unsubscribed ids are not delivered")

	require.True(t, emu.PublishToProcess(a.PID(), 0x100).IsSuccess())
	id, _ = a.ReceiveNotification()
	assert.Equal(t, uint32(0x100), id)

	require.True(t, a.Unsubscribe(0x104).IsSuccess())
	require.True(t, b.PublishNotification(0x104).IsSuccess())
	_, code = a.ReceiveNotification()
	assert.Equal(t, ErrNoPending, code)
}

func TestShutdownWakesWaiters(t *testing.T) {
	emu := New()
	p := emu.NewProcess("p")
	sem, _ := p.EnableNotifications()

	ch := waitAsync(p, p.NewBuffer(), []uint32{sem}, 0)
	emu.Shutdown()
	assert.Equal(t, ErrShutdown, recv(t, ch).code)
}

func TestProcessExitClosesSessions(t *testing.T) {
	emu := New()
	server, client, _, ss, _ := connectPair(t, emu)

	client.Exit()
	assert.Zero(t, client.HandleCount())

	r := recv(t, waitAsync(server, server.NewBuffer(), []uint32{ss}, 0))
	assert.Equal(t, result.SessionClosed, r.code)
}

func TestInvalidHandleInWaitList(t *testing.T) {
	emu := New()
	p := emu.NewProcess("p")
	r := recv(t, waitAsync(p, p.NewBuffer(), []uint32{0xBAD}, 0))
	assert.Equal(t, result.InvalidHandle, r.code)
}

func TestReplyTransferFailure(t *testing.T) {
	emu := New()
	defer emu.Shutdown()
	server, client, port, ss, cs := connectPair(t, emu)
	sbuf := server.NewBuffer()
	cbuf := client.NewBuffer()
	require.NoError(t, cbuf.Build(0x4, func(*ipc.Builder) {}))

	done := make(chan result.Code, 1)
	go func() { done <- client.SendSyncRequest(context.Background(), cbuf, cs) }()

	r := recv(t, waitAsync(server, sbuf, []uint32{port, ss}, 0))
	require.Equal(t, 1, r.index)

	// The client registered no static buffer 3.
	require.NoError(t, sbuf.Build(0x4, func(b *ipc.Builder) {
		b.PushResult(result.Success)
		b.PushStaticBuffer(3, []byte("lost"))
	}))
	wait := waitAsync(server, sbuf, []uint32{port, ss}, ss)
	assert.Equal(t, result.InvalidPointer, <-done)

	// The server is still waiting, not failed.
	select {
	case r := <-wait:
		t.Fatalf("server woke with %d/%s", r.index, r.code)
	case <-time.After(20 * time.Millisecond):
	}
	require.True(t, client.CloseHandle(cs).IsSuccess())
	r = recv(t, wait)
	assert.Equal(t, 1, r.index)
	assert.Equal(t, result.SessionClosed, r.code)
}
