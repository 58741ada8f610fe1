package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/horizon/internal/infrastructure/config"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/horizon/internal/infrastructure/server"
	"github.com/GriffinCanCode/horizon/internal/kernel/sim"
	"github.com/GriffinCanCode/horizon/internal/logging"
	"github.com/GriffinCanCode/horizon/internal/services/echo"
	"github.com/GriffinCanCode/horizon/internal/sysmodule"
)

// processName is the name of the server process on the emulated kernel.
const processName = "sysmodule"

// daemon is one sysmodule process with everything wired around it.
type daemon struct {
	cfg      *config.Config
	manifest *config.Manifest
	log      *zap.Logger

	emu     *sim.Emulator
	proc    *sim.Process
	manager *sysmodule.Manager

	registry *prometheus.Registry
	metrics  *monitoring.Metrics
	diag     *server.Server

	// echoServices are the names of manifest services of kind echo.
	echoServices []string

	closeOnce sync.Once
}

type runOptions struct {
	selftest bool
	once     bool
}

func newDaemon(cfg *config.Config, manifest *config.Manifest, log *zap.Logger) (*daemon, error) {
	if log == nil {
		log = zap.NewNop()
	}
	d := &daemon{
		cfg:      cfg,
		manifest: manifest,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	d.registry.MustRegister(collectors.NewGoCollector())
	d.metrics = monitoring.NewMetrics(d.registry)

	d.emu = sim.New(
		sim.WithAddrWidth(cfg.Runtime.Width()),
		sim.WithLogger(logging.Component(log, "kernel")),
	)
	d.proc = d.emu.NewProcess(processName)

	notifications, err := sysmodule.NewNotificationManager(d.proc, logging.Component(log, "notifications"))
	if err != nil {
		d.emu.Shutdown()
		return nil, err
	}
	for _, raw := range manifest.Notifications.Subscribe {
		nid := sysmodule.NotificationID(raw)
		if err := notifications.Subscribe(nid, d.onNotification); err != nil {
			notifications.Close()
			d.emu.Shutdown()
			return nil, fmt.Errorf("subscribe %s: %w", nid, err)
		}
	}

	opts := []sysmodule.Option{
		sysmodule.WithBuffer(d.proc.NewBuffer()),
		sysmodule.WithStaticBuffers(sysmodule.DefaultStaticBuffers, cfg.Runtime.StaticBufferSize),
		sysmodule.WithLogger(logging.Component(log, "manager")),
		sysmodule.WithRecorder(d.metrics),
	}
	services := make([]*sysmodule.Service, 0, len(manifest.Services))
	fail := func(err error) (*daemon, error) {
		for _, svc := range services {
			svc.Close()
		}
		notifications.Close()
		d.emu.Shutdown()
		return nil, err
	}
	for _, spec := range manifest.Services {
		var router *sysmodule.Router
		switch spec.Kind {
		case echo.Kind:
			// Echo tracks every session index so its counters stay aligned
			// with the manager's session list.
			svc := echo.New(logging.Component(log, spec.Name, zap.String("kind", spec.Kind)))
			router = svc.Router()
			opts = append(opts, sysmodule.WithSessionObserver(svc))
			d.echoServices = append(d.echoServices, spec.Name)
		default:
			return fail(fmt.Errorf("service %q: unknown kind %q", spec.Name, spec.Kind))
		}
		registered, err := sysmodule.Register(d.proc, spec.Name, spec.MaxSessions, router, log)
		if err != nil {
			return fail(err)
		}
		services = append(services, registered)
	}

	d.manager = sysmodule.NewManager(d.proc, services, notifications, opts...)
	if cfg.Diagnostics.Enabled {
		d.diag = server.NewServer(cfg.Diagnostics, d.manager, d.metrics, d.registry,
			logging.Component(log, "diag", zap.String("addr", cfg.Diagnostics.Addr)))
	}

	log.Info("Daemon ready",
		zap.Uint32("pid", d.proc.PID()),
		zap.Strings("services", d.emu.Services()),
		zap.Int("addr_width", cfg.Runtime.AddrWidth),
	)
	return d, nil
}

// run serves until ctx is done or the event loop stops on its own.
func (d *daemon) run(ctx context.Context, opts runOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	loopDone := make(chan struct{})
	g.Go(func() error {
		defer close(loopDone)
		defer cancel()
		return d.manager.Run(gctx)
	})

	// The wait is not interruptible; ask the loop to exit the way the
	// process manager would.
	g.Go(func() error {
		select {
		case <-loopDone:
			return nil
		case <-gctx.Done():
		}
		code := d.emu.PublishToProcess(d.proc.PID(), uint32(sysmodule.NotificationTermination))
		if code.IsError() {
			d.log.Warn("Termination not delivered", zap.Stringer("code", code))
		}
		return nil
	})

	if d.diag != nil {
		g.Go(func() error {
			return d.diag.Run(gctx)
		})
	}

	if opts.selftest {
		g.Go(func() error {
			log := logging.Component(d.log, "selftest")
			for _, name := range d.echoServices {
				if err := runSelfTest(gctx, d.emu, name, d.metrics, log); err != nil {
					return err
				}
			}
			if opts.once {
				cancel()
			}
			return nil
		})
	}

	return g.Wait()
}

func (d *daemon) onNotification(_ context.Context, id sysmodule.NotificationID) error {
	fields := []zap.Field{zap.Stringer("id", id)}
	if ack := sysmodule.AckValue(id); ack >= 0 {
		fields = append(fields, zap.Int32("ack", ack))
	}
	d.log.Info("Notification", fields...)
	return nil
}

// close releases the kernel objects. It is safe to call more than once.
func (d *daemon) close() {
	d.closeOnce.Do(func() {
		d.manager.Close()
		d.emu.Shutdown()
	})
}
