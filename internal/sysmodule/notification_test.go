package sysmodule

import (
	"context"
	"errors"
	"testing"

	"github.com/GriffinCanCode/horizon/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAckValue(t *testing.T) {
	tests := []struct {
		id   NotificationID
		want int32
	}{
		{NotificationSleepRequested, 3},
		{NotificationSleepDenied, -1},
		{0x103, 1},
		{NotificationGoingToSleep, 0},
		{NotificationFullyWakingUp, 0},
		{NotificationFullyAwake, -1},
		{NotificationHalfAwake, 2},
		{NotificationTermination, -1},
		{NotificationLaunchApp, -1},
	}

	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, AckValue(tt.id))
		})
	}
}

func TestNotificationSubscribe(t *testing.T) {
	k := newTestKernel(t)
	k.On("Subscribe", uint32(NotificationSleepRequested)).Return(result.Success).Once()

	n, err := NewNotificationManager(k, nil)
	require.NoError(t, err)
	assert.Equal(t, notifyHandle, n.Handle())

	noop := func(context.Context, NotificationID) error { return nil }

	require.NoError(t, n.Subscribe(NotificationSleepRequested, noop))
	assert.ErrorIs(t, n.Subscribe(NotificationSleepRequested, noop), result.AlreadyExists)
	assert.ErrorIs(t, n.Subscribe(NotificationTermination, noop), result.HostInvalidValue)
	assert.Equal(t, []NotificationID{NotificationSleepRequested}, n.Subscriptions())

	k.AssertExpectations(t)
}

func TestNotificationSubscribeKernelFailure(t *testing.T) {
	k := newTestKernel(t)
	k.On("Subscribe", uint32(NotificationFullyAwake)).Return(result.OutOfResource).Once()

	n, err := NewNotificationManager(k, nil)
	require.NoError(t, err)

	err = n.Subscribe(NotificationFullyAwake, func(context.Context, NotificationID) error { return nil })
	assert.ErrorIs(t, err, result.OutOfResource)
	assert.Empty(t, n.Subscriptions())
}

func TestNotificationEnableFailure(t *testing.T) {
	k := new(mockKernel)
	k.On("EnableNotifications").Return(uint32(0), result.OutOfResource)

	_, err := NewNotificationManager(k, nil)
	assert.ErrorIs(t, err, result.OutOfResource)
}

func TestNotificationReceive(t *testing.T) {
	errHandler := errors.New("handler failed")

	k := newTestKernel(t)
	k.On("Subscribe", uint32(NotificationHalfAwake)).Return(result.Success)

	n, err := NewNotificationManager(k, nil)
	require.NoError(t, err)

	var seen []NotificationID
	require.NoError(t, n.Subscribe(NotificationHalfAwake, func(_ context.Context, id NotificationID) error {
		seen = append(seen, id)
		return errHandler
	}))

	tests := []struct {
		name    string
		raw     uint32
		outcome Outcome
		err     error
	}{
		{"subscribed", uint32(NotificationHalfAwake), OutcomeHandled, errHandler},
		{"ignored", uint32(NotificationLaunchApp), OutcomeIgnored, nil},
		{"termination", uint32(NotificationTermination), OutcomeTermination, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k.On("ReceiveNotification").Return(tt.raw, result.Success).Once()

			d, err := n.Receive(context.Background())
			require.NoError(t, err)
			assert.Equal(t, NotificationID(tt.raw), d.ID)
			assert.Equal(t, tt.outcome, d.Outcome)
			assert.Equal(t, tt.err, d.Err)
		})
	}
	assert.Equal(t, []NotificationID{NotificationHalfAwake}, seen)

	k.On("ReceiveNotification").Return(uint32(0), result.InvalidHandle).Once()
	_, err = n.Receive(context.Background())
	assert.ErrorIs(t, err, result.InvalidHandle)
}

func TestNotificationClose(t *testing.T) {
	k := newTestKernel(t)
	k.On("Subscribe", uint32(NotificationSleepRequested)).Return(result.Success)
	k.On("Subscribe", uint32(NotificationFullyAwake)).Return(result.Success)
	k.On("Unsubscribe", uint32(NotificationSleepRequested)).Return(result.Success).Once()
	k.On("Unsubscribe", uint32(NotificationFullyAwake)).Return(result.InvalidHandle).Once()

	n, err := NewNotificationManager(k, nil)
	require.NoError(t, err)
	noop := func(context.Context, NotificationID) error { return nil }
	require.NoError(t, n.Subscribe(NotificationSleepRequested, noop))
	require.NoError(t, n.Subscribe(NotificationFullyAwake, noop))

	n.Close()
	assert.Empty(t, n.Subscriptions())
	k.AssertCalled(t, "CloseHandle", notifyHandle)
	k.AssertNumberOfCalls(t, "Unsubscribe", 2)
}

func TestNotificationUnsubscribe(t *testing.T) {
	k := newTestKernel(t)
	k.On("Subscribe", uint32(NotificationGoingToSleep)).Return(result.Success)
	k.On("Unsubscribe", uint32(NotificationGoingToSleep)).Return(result.Success).Once()

	n, err := NewNotificationManager(k, nil)
	require.NoError(t, err)
	require.NoError(t, n.Subscribe(NotificationGoingToSleep, func(context.Context, NotificationID) error { return nil }))

	n.Unsubscribe(NotificationGoingToSleep)
	n.Unsubscribe(NotificationGoingToSleep)
	assert.Empty(t, n.Subscriptions())
	k.AssertExpectations(t)
}
