package sysmodule

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRequest struct {
	Value uint32
}

type pingResponse struct {
	Value uint32
}

var pingMethod = ipc.NewMethod[pingRequest, pingResponse](0x1, "Ping")

type fakeRecorder struct {
	mu       sync.Mutex
	events   []EventKind
	commands []string
	codes    []result.Code
	open     map[string]int
	notified []Outcome
}

func (r *fakeRecorder) Event(kind EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

func (r *fakeRecorder) Command(service, command string, code result.Code, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, service+"."+command)
	r.codes = append(r.codes, code)
}

func (r *fakeRecorder) SessionsOpen(service string, open int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open == nil {
		r.open = make(map[string]int)
	}
	r.open[service] = open
}

func (r *fakeRecorder) Notification(_ NotificationID, outcome Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, outcome)
}

type fakeObserver struct {
	accepted [][2]int
	closed   []int
}

func (o *fakeObserver) AcceptSession(service, session int) {
	o.accepted = append(o.accepted, [2]int{service, session})
}

func (o *fakeObserver) CloseSession(session int) {
	o.closed = append(o.closed, session)
}

func newTestManager(t *testing.T, k *mockKernel, opts ...Option) *Manager {
	t.Helper()
	k.On("RegisterService", "test", 1).Return(portHandle, result.Success).Once()

	router := NewRouter()
	Handle(router, pingMethod, func(_ context.Context, _ *Call, req pingRequest) (pingResponse, error) {
		return pingResponse{Value: req.Value + 1}, nil
	})
	svc, err := Register(k, "test", 1, router, nil)
	require.NoError(t, err)
	n, err := NewNotificationManager(k, nil)
	require.NoError(t, err)
	return NewManager(k, []*Service{svc}, n, opts...)
}

func loadPing(t *testing.T, v uint32) func(*ipc.Buffer) {
	return func(buf *ipc.Buffer) {
		require.NoError(t, pingMethod.WriteRequest(buf, pingRequest{Value: v}))
	}
}

func expectNoReply(t *testing.T) func(*ipc.Buffer) {
	return func(buf *ipc.Buffer) {
		assert.Equal(t, ipc.NoReplyHeader, buf.Header())
	}
}

func expectTermination(k *mockKernel) {
	k.On("ReceiveNotification").Return(uint32(NotificationTermination), result.Success).Once()
}

var (
	idle    = []uint32{notifyHandle, portHandle}
	serving = []uint32{notifyHandle, portHandle, sessionHandle}
)

func TestManagerEndToEnd(t *testing.T) {
	k := newTestKernel(t)
	rec := &fakeRecorder{}
	obs := &fakeObserver{}
	m := newTestManager(t, k, WithRecorder(rec), WithSessionObserver(obs))

	k.On("AcceptSession", portHandle).Return(sessionHandle, result.Success).Once()
	script(k,
		step{
			handles: idle,
			check: func(buf *ipc.Buffer) {
				expectNoReply(t)(buf)
				for id := range DefaultStaticBuffers {
					assert.Len(t, buf.StaticBuffer(id), DefaultStaticBufferSize)
				}
			},
			index:  1,
			status: result.Success,
		},
		step{
			handles: serving,
			check: func(*ipc.Buffer) {
				require.Len(t, m.Sessions(), 1)
				assert.Equal(t, sessionHandle, m.Sessions()[0].Handle())
			},
			load:   loadPing(t, 0xCAFE),
			index:  2,
			status: result.Success,
		},
		step{
			handles: serving,
			target:  sessionHandle,
			check: func(buf *ipc.Buffer) {
				assert.Equal(t, []uint32{uint32(ipc.MakeHeader(0x1, 2, 0)), 0, 0xCAFF}, buf.Words())
			},
			index:  0,
			status: result.Success,
		},
	)
	expectTermination(k)

	require.NoError(t, m.Run(context.Background()))

	k.AssertExpectations(t)
	require.Len(t, m.Sessions(), 1)
	assert.Equal(t, 0, m.Sessions()[0].ServiceIndex())
	k.AssertNotCalled(t, "CloseHandle", sessionHandle)

	assert.Equal(t, []EventKind{EventSessionRequest, EventServiceCommand, EventNotification}, rec.events)
	assert.Equal(t, []string{"test.Ping"}, rec.commands)
	assert.Equal(t, []result.Code{result.Success}, rec.codes)
	assert.Equal(t, 1, rec.open["test"])
	assert.Equal(t, []Outcome{OutcomeTermination}, rec.notified)
	assert.Equal(t, [][2]int{{0, 0}}, obs.accepted)

	st := m.Status()
	assert.False(t, st.Running)
	assert.True(t, strings.HasPrefix(st.Run.String(), "run_"), st.Run)
	assert.Equal(t, uint64(3), st.Events)
	require.Len(t, st.Services, 1)
	assert.Equal(t, ServiceStatus{Name: "test", MaxSessions: 1, Open: 1, Commands: []string{"Ping"}}, st.Services[0])
	require.Len(t, st.Sessions, 1)
	assert.Equal(t, "test", st.Sessions[0].Service)
}

func TestManagerReplyTargetClosed(t *testing.T) {
	k := newTestKernel(t)
	obs := &fakeObserver{}
	m := newTestManager(t, k, WithSessionObserver(obs))

	k.On("AcceptSession", portHandle).Return(sessionHandle, result.Success).Once()
	script(k,
		step{handles: idle, index: 1, status: result.Success},
		step{handles: serving, load: loadPing(t, 1), index: 2, status: result.Success},
		step{handles: serving, target: sessionHandle, index: kernel.IndexUnknown, status: result.SessionClosed},
		step{handles: idle, check: expectNoReply(t), index: 0, status: result.Success},
	)
	expectTermination(k)

	require.NoError(t, m.Run(context.Background()))

	k.AssertExpectations(t)
	k.AssertCalled(t, "CloseHandle", sessionHandle)
	assert.Empty(t, m.Sessions())
	assert.Equal(t, []int{0}, obs.closed)
	assert.Equal(t, noTarget, m.Status().ReplyTarget)
}

func TestManagerSessionClosedByIndex(t *testing.T) {
	k := newTestKernel(t)
	m := newTestManager(t, k)

	k.On("AcceptSession", portHandle).Return(sessionHandle, result.Success).Once()
	script(k,
		step{handles: idle, index: 1, status: result.Success},
		step{handles: serving, index: 2, status: result.SessionClosed},
		step{handles: idle, check: expectNoReply(t), index: 0, status: result.Success},
	)
	expectTermination(k)

	require.NoError(t, m.Run(context.Background()))
	k.AssertExpectations(t)
	k.AssertCalled(t, "CloseHandle", sessionHandle)
	assert.Empty(t, m.Sessions())
}

func TestManagerInvalidCommand(t *testing.T) {
	k := newTestKernel(t)
	rec := &fakeRecorder{}
	m := newTestManager(t, k, WithRecorder(rec))

	k.On("AcceptSession", portHandle).Return(sessionHandle, result.Success).Once()
	script(k,
		step{handles: idle, index: 1, status: result.Success},
		step{
			handles: serving,
			load: func(buf *ipc.Buffer) {
				require.NoError(t, buf.Load([]uint32{uint32(ipc.MakeHeader(0x99, 1, 0)), 7}))
			},
			index:  2,
			status: result.Success,
		},
		step{
			handles: serving,
			target:  sessionHandle,
			check: func(buf *ipc.Buffer) {
				assert.Equal(t, []uint32{0x40, 0xD900182F}, buf.Words())
			},
			index:  0,
			status: result.Success,
		},
	)
	expectTermination(k)

	require.NoError(t, m.Run(context.Background()))
	k.AssertExpectations(t)
	assert.Equal(t, []string{"test.unknown"}, rec.commands)
	assert.Equal(t, []result.Code{result.InvalidCommand}, rec.codes)
}

func TestManagerNotificationHandlerErrorContinues(t *testing.T) {
	k := newTestKernel(t)
	m := newTestManager(t, k)

	k.On("Subscribe", uint32(NotificationFullyAwake)).Return(result.Success)
	calls := 0
	require.NoError(t, m.notifications.Subscribe(NotificationFullyAwake, func(context.Context, NotificationID) error {
		calls++
		return errors.New("not ready")
	}))

	script(k,
		step{handles: idle, index: 0, status: result.Success},
		step{handles: idle, check: expectNoReply(t), index: 0, status: result.Success},
	)
	k.On("ReceiveNotification").Return(uint32(NotificationFullyAwake), result.Success).Once()
	expectTermination(k)

	require.NoError(t, m.Run(context.Background()))
	k.AssertExpectations(t)
	assert.Equal(t, 1, calls)
}

func TestManagerFatal(t *testing.T) {
	tests := []struct {
		name  string
		setup func(k *mockKernel)
		check func(t *testing.T, err error)
	}{
		{
			name: "wait failure",
			setup: func(k *mockKernel) {
				script(k, step{handles: idle, index: 0, status: result.InvalidHandle})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, result.InvalidHandle)
			},
		},
		{
			name: "index outside the wait list",
			setup: func(k *mockKernel) {
				script(k, step{handles: idle, index: 2, status: result.Success})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrBookkeeping)
			},
		},
		{
			name: "closed target without a reply",
			setup: func(k *mockKernel) {
				script(k, step{handles: idle, index: kernel.IndexUnknown, status: result.SessionClosed})
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrBookkeeping)
			},
		},
		{
			name: "accept failure",
			setup: func(k *mockKernel) {
				script(k, step{handles: idle, index: 1, status: result.Success})
				k.On("AcceptSession", portHandle).Return(uint32(0), result.OutOfResource).Once()
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, result.OutOfResource)
			},
		},
		{
			name: "notification receive failure",
			setup: func(k *mockKernel) {
				script(k, step{handles: idle, index: 0, status: result.Success})
				k.On("ReceiveNotification").Return(uint32(0), result.InvalidHandle).Once()
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, result.InvalidHandle)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := newTestKernel(t)
			m := newTestManager(t, k)
			tt.setup(k)

			err := m.Run(context.Background())
			require.Error(t, err)
			tt.check(t, err)
			k.AssertExpectations(t)
		})
	}
}

func TestManagerStaticBufferInstallFailure(t *testing.T) {
	k := newTestKernel(t)
	m := newTestManager(t, k, WithStaticBuffers(ipc.MaxStaticBuffers+1, 0x10))

	require.Error(t, m.Run(context.Background()))
	k.AssertNumberOfCalls(t, "ReplyAndReceive", 0)
}

func TestManagerClose(t *testing.T) {
	k := newTestKernel(t)
	m := newTestManager(t, k)
	k.On("UnregisterService", "test").Return(result.Success).Once()

	k.On("AcceptSession", portHandle).Return(sessionHandle, result.Success).Once()
	script(k, step{handles: idle, index: 1, status: result.Success})
	script(k, step{handles: serving, index: 0, status: result.Success})
	expectTermination(k)
	require.NoError(t, m.Run(context.Background()))

	m.Close()
	assert.Empty(t, m.Sessions())
	k.AssertCalled(t, "CloseHandle", sessionHandle)
	k.AssertCalled(t, "CloseHandle", portHandle)
	k.AssertCalled(t, "CloseHandle", notifyHandle)
	k.AssertExpectations(t)
}
