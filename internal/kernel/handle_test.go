package kernel

import (
	"testing"

	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCloser struct {
	mock.Mock
}

func (m *mockCloser) CloseHandle(h uint32) result.Code {
	return m.Called(h).Get(0).(result.Code)
}

func TestHandleCloseOnce(t *testing.T) {
	k := new(mockCloser)
	k.On("CloseHandle", uint32(0x1234)).Return(result.Success).Once()

	h := NewHandle(k, 0x1234)
	assert.NoError(t, h.Close())
	assert.NoError(t, h.Close())

	k.AssertExpectations(t)
	k.AssertNumberOfCalls(t, "CloseHandle", 1)
}

func TestHandleCloseError(t *testing.T) {
	k := new(mockCloser)
	k.On("CloseHandle", uint32(0x5)).Return(result.InvalidHandle)

	err := NewHandle(k, 0x5).Close()
	assert.ErrorIs(t, err, result.InvalidHandle)
}

func TestPseudoHandlesNeverClose(t *testing.T) {
	k := new(mockCloser)

	for _, raw := range []uint32{CurrentProcess, CurrentThread} {
		assert.NoError(t, NewHandle(k, raw).Close())
	}
	assert.NoError(t, CurrentProcessHandle().Close())
	assert.NoError(t, CurrentThreadHandle().Close())
	assert.True(t, CurrentProcessHandle().IsPseudo())
	assert.Equal(t, uint32(0xFFFF8000), CurrentThreadHandle().Raw())

	k.AssertNotCalled(t, "CloseHandle", mock.Anything)
}

func TestHandleRelease(t *testing.T) {
	k := new(mockCloser)

	h := NewHandle(k, 0x99)
	assert.Equal(t, uint32(0x99), h.Release())
	assert.NoError(t, h.Close())

	k.AssertNotCalled(t, "CloseHandle", mock.Anything)
}
