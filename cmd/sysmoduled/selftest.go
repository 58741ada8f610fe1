package main

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/client"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel/sim"
	"github.com/GriffinCanCode/horizon/internal/services/echo"
	"github.com/GriffinCanCode/horizon/internal/shared/id"
)

// runSelfTest connects to an echo service from a fresh process and checks
// a plain exchange, a mapped buffer and a static buffer round trip.
func runSelfTest(ctx context.Context, emu *sim.Emulator, service string, metrics *monitoring.Metrics, log *zap.Logger) error {
	app := emu.NewProcess("selftest")
	defer app.Exit()

	s, err := client.Connect(app, app.NewBuffer(), service)
	if err != nil {
		return fmt.Errorf("selftest: %w", err)
	}
	defer s.Close()

	call := func(name string, fn func() error) error {
		cid := id.NewCallID()
		timer := monitoring.NewTimer(metrics, service, name)
		err := fn()
		timer.Stop(err)
		if err != nil {
			log.Error("Self-test call failed", zap.Stringer("call", cid), zap.String("command", name), zap.Error(err))
			return fmt.Errorf("selftest %s.%s: %w", service, name, err)
		}
		log.Debug("Self-test call passed", zap.Stringer("call", cid), zap.String("command", name))
		return nil
	}

	if err := call(echo.Echo.Name, func() error {
		req := echo.EchoRequest{Value: 0x3D5, Wide: 0x1122334455667788}
		resp, err := client.Call(ctx, s, echo.Echo, req)
		if err != nil {
			return err
		}
		if resp.Value != req.Value || resp.Wide != req.Wide {
			return fmt.Errorf("echoed %+v, sent %+v", resp, req)
		}
		return nil
	}); err != nil {
		return err
	}

	if err := call(echo.Sum.Name, func() error {
		data := []byte{1, 2, 3, 4, 5}
		resp, err := client.Call(ctx, s, echo.Sum, echo.SumRequest{Input: ipc.ReadBuffer{Data: data}})
		if err != nil {
			return err
		}
		if resp.Sum != 15 || resp.Length != uint32(len(data)) {
			return fmt.Errorf("sum %d over %d bytes, want 15 over %d", resp.Sum, resp.Length, len(data))
		}
		return nil
	}); err != nil {
		return err
	}

	if err := call(echo.Reverse.Name, func() error {
		out := make([]byte, 16)
		resp, err := client.Call(ctx, s, echo.Reverse,
			echo.ReverseRequest{Input: ipc.StaticBuffer{ID: echo.StaticIn, Data: []byte("horizon")}},
			client.ReceiveStatic(echo.StaticOut, out))
		if err != nil {
			return err
		}
		if got := resp.Output.View.Bytes(); !bytes.Equal(got, []byte("noziroh")) {
			return fmt.Errorf("reversed to %q", got)
		}
		return nil
	}); err != nil {
		return err
	}

	log.Info("Self-test passed", zap.String("service", service))
	return nil
}
