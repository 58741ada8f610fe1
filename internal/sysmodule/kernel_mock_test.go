package sysmodule

import (
	"context"
	"testing"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/stretchr/testify/mock"
)

type mockKernel struct {
	mock.Mock
}

var _ kernel.Kernel = (*mockKernel)(nil)

func (m *mockKernel) CloseHandle(h uint32) result.Code {
	return m.Called(h).Get(0).(result.Code)
}

func (m *mockKernel) RegisterService(name string, maxSessions int) (uint32, result.Code) {
	args := m.Called(name, maxSessions)
	return args.Get(0).(uint32), args.Get(1).(result.Code)
}

func (m *mockKernel) UnregisterService(name string) result.Code {
	return m.Called(name).Get(0).(result.Code)
}

func (m *mockKernel) ConnectToService(name string) (uint32, result.Code) {
	args := m.Called(name)
	return args.Get(0).(uint32), args.Get(1).(result.Code)
}

func (m *mockKernel) AcceptSession(port uint32) (uint32, result.Code) {
	args := m.Called(port)
	return args.Get(0).(uint32), args.Get(1).(result.Code)
}

func (m *mockKernel) ReplyAndReceive(buf *ipc.Buffer, handles []uint32, replyTarget uint32) (int, result.Code) {
	args := m.Called(buf, handles, replyTarget)
	return args.Int(0), args.Get(1).(result.Code)
}

func (m *mockKernel) SendSyncRequest(ctx context.Context, buf *ipc.Buffer, session uint32) result.Code {
	return m.Called(ctx, buf, session).Get(0).(result.Code)
}

func (m *mockKernel) EnableNotifications() (uint32, result.Code) {
	args := m.Called()
	return args.Get(0).(uint32), args.Get(1).(result.Code)
}

func (m *mockKernel) ReceiveNotification() (uint32, result.Code) {
	args := m.Called()
	return args.Get(0).(uint32), args.Get(1).(result.Code)
}

func (m *mockKernel) Subscribe(id uint32) result.Code {
	return m.Called(id).Get(0).(result.Code)
}

func (m *mockKernel) Unsubscribe(id uint32) result.Code {
	return m.Called(id).Get(0).(result.Code)
}

func (m *mockKernel) PublishNotification(id uint32) result.Code {
	return m.Called(id).Get(0).(result.Code)
}

// step scripts one ReplyAndReceive call: check inspects the outgoing
// buffer, load writes the incoming message.
type step struct {
	handles []uint32
	target  uint32
	check   func(buf *ipc.Buffer)
	load    func(buf *ipc.Buffer)
	index   int
	status  result.Code
}

func script(k *mockKernel, steps ...step) {
	for _, s := range steps {
		k.On("ReplyAndReceive", mock.Anything, s.handles, s.target).
			Run(func(args mock.Arguments) {
				buf := args.Get(0).(*ipc.Buffer)
				if s.check != nil {
					s.check(buf)
				}
				if s.load != nil {
					s.load(buf)
				}
			}).
			Return(s.index, s.status).
			Once()
	}
}

const (
	notifyHandle  uint32 = 0x20
	portHandle    uint32 = 0x10
	sessionHandle uint32 = 0x30
)

func newTestKernel(t *testing.T) *mockKernel {
	t.Helper()
	k := new(mockKernel)
	k.On("EnableNotifications").Return(notifyHandle, result.Success).Maybe()
	k.On("CloseHandle", mock.Anything).Return(result.Success).Maybe()
	return k
}
