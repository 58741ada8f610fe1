package sysmodule

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
)

// NotificationID identifies a system notification.
type NotificationID uint32

const (
	NotificationTermination    NotificationID = 0x100
	NotificationSleepRequested NotificationID = 0x101
	NotificationSleepDenied    NotificationID = 0x102
	NotificationGoingToSleep   NotificationID = 0x104
	NotificationFullyWakingUp  NotificationID = 0x105
	NotificationFullyAwake     NotificationID = 0x106
	NotificationHalfAwake      NotificationID = 0x107
	NotificationLaunchApp      NotificationID = 0x10C
)

func (n NotificationID) String() string {
	switch n {
	case NotificationTermination:
		return "termination"
	case NotificationSleepRequested:
		return "sleep_requested"
	case NotificationSleepDenied:
		return "sleep_denied"
	case NotificationGoingToSleep:
		return "going_to_sleep"
	case NotificationFullyWakingUp:
		return "fully_waking_up"
	case NotificationFullyAwake:
		return "fully_awake"
	case NotificationHalfAwake:
		return "half_awake"
	case NotificationLaunchApp:
		return "launch_app"
	default:
		return fmt.Sprintf("0x%X", uint32(n))
	}
}

var sleepAcks = [...]int32{3, -1, 1, 0, 0, -1, 2}

// AckValue returns the value PTM expects when acknowledging a sleep
// transition notification, or -1 when the id needs no acknowledgement.
func AckValue(id NotificationID) int32 {
	if id < NotificationSleepRequested || id > NotificationHalfAwake {
		return -1
	}
	return sleepAcks[id-NotificationSleepRequested]
}

// NotificationHandler reacts to one delivered notification.
type NotificationHandler func(ctx context.Context, id NotificationID) error

// Outcome says what happened to a received notification.
type Outcome uint8

const (
	// OutcomeIgnored means no subscription matched.
	OutcomeIgnored Outcome = iota
	// OutcomeHandled means a subscription handler ran.
	OutcomeHandled
	// OutcomeTermination means the module was asked to exit.
	OutcomeTermination
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHandled:
		return "handled"
	case OutcomeTermination:
		return "termination"
	default:
		return "ignored"
	}
}

// Delivery is the result of handling one notification.
type Delivery struct {
	ID      NotificationID
	Outcome Outcome
	// Err is the handler's error, if any. It does not stop the loop.
	Err error
}

// Subscription is interest in one notification id with its handler.
type Subscription struct {
	ID      NotificationID
	handler NotificationHandler
}

// NotificationManager owns the notification semaphore and the
// subscriptions of one sysmodule.
type NotificationManager struct {
	k      kernel.Kernel
	handle *kernel.Handle
	subs   []*Subscription
	log    *zap.Logger
}

// NewNotificationManager enables notifications for this process.
func NewNotificationManager(k kernel.Kernel, log *zap.Logger) (*NotificationManager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	raw, code := k.EnableNotifications()
	if err := code.Err(); err != nil {
		return nil, fmt.Errorf("enable notifications: %w", err)
	}
	return &NotificationManager{
		k:      k,
		handle: kernel.NewHandle(k, raw),
		log:    log,
	}, nil
}

// Handle returns the semaphore's raw value for the wait list.
func (n *NotificationManager) Handle() uint32 {
	return n.handle.Raw()
}

// Subscribe registers interest in id. Termination is always handled by the
// Manager and cannot be subscribed to. A second subscription for the same
// id fails with result.AlreadyExists and leaves the first in place.
func (n *NotificationManager) Subscribe(id NotificationID, handler NotificationHandler) error {
	if id == NotificationTermination {
		return fmt.Errorf("subscribe %s: %w", id, result.HostInvalidValue)
	}
	if n.find(id) != nil {
		return fmt.Errorf("subscribe %s: %w", id, result.AlreadyExists)
	}
	if err := n.k.Subscribe(uint32(id)).Err(); err != nil {
		return fmt.Errorf("subscribe %s: %w", id, err)
	}
	n.subs = append(n.subs, &Subscription{ID: id, handler: handler})
	n.log.Debug("notification subscribed", zap.Stringer("id", id))
	return nil
}

// Unsubscribe drops the subscription for id, if any.
func (n *NotificationManager) Unsubscribe(id NotificationID) {
	for i, sub := range n.subs {
		if sub.ID == id {
			n.unsubscribe(sub)
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			return
		}
	}
}

// Subscriptions returns the subscribed ids in subscription order.
func (n *NotificationManager) Subscriptions() []NotificationID {
	ids := make([]NotificationID, len(n.subs))
	for i, sub := range n.subs {
		ids[i] = sub.ID
	}
	return ids
}

// Receive pops one pending notification and dispatches it. The returned
// error is a kernel failure to receive; handler errors are reported in the
// Delivery.
func (n *NotificationManager) Receive(ctx context.Context) (Delivery, error) {
	raw, code := n.k.ReceiveNotification()
	if err := code.Err(); err != nil {
		return Delivery{}, fmt.Errorf("receive notification: %w", err)
	}

	id := NotificationID(raw)
	if id == NotificationTermination {
		return Delivery{ID: id, Outcome: OutcomeTermination}, nil
	}
	sub := n.find(id)
	if sub == nil {
		return Delivery{ID: id, Outcome: OutcomeIgnored}, nil
	}
	return Delivery{ID: id, Outcome: OutcomeHandled, Err: sub.handler(ctx, id)}, nil
}

// Close unsubscribes everything and closes the semaphore. Errors are
// discarded; the module is shutting down.
func (n *NotificationManager) Close() {
	for _, sub := range n.subs {
		n.unsubscribe(sub)
	}
	n.subs = nil
	if err := n.handle.Close(); err != nil {
		n.log.Debug("close notification handle", zap.Error(err))
	}
}

func (n *NotificationManager) unsubscribe(sub *Subscription) {
	if err := n.k.Unsubscribe(uint32(sub.ID)).Err(); err != nil {
		n.log.Debug("unsubscribe", zap.Stringer("id", sub.ID), zap.Error(err))
	}
}

func (n *NotificationManager) find(id NotificationID) *Subscription {
	for _, sub := range n.subs {
		if sub.ID == id {
			return sub
		}
	}
	return nil
}
