package sim

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/result"
)

// Result codes the emulator reports for conditions the real kernel would
// either block on or panic over.
var (
	// ErrShutdown is returned by every call once the emulator is shut down.
	ErrShutdown = result.New(result.DescriptionCancelRequested, result.LevelPermanent, result.SummaryCanceled, result.ModuleKernel)
	// ErrNoPending is returned by AcceptSession when nobody is connecting.
	ErrNoPending = result.New(result.DescriptionNoData, result.LevelPermanent, result.SummaryWouldBlock, result.ModuleKernel)
	// ErrSessionBusy is returned when a session already has a request in flight.
	ErrSessionBusy = result.New(result.DescriptionBusy, result.LevelTemporary, result.SummaryInvalidState, result.ModuleKernel)
	// ErrNotReplying is returned when replying to a session that has no
	// request being processed.
	ErrNotReplying = result.New(result.DescriptionInvalidCombination, result.LevelPermanent, result.SummaryInvalidState, result.ModuleKernel)
	// ErrTooManySessions is returned when a port is at its session limit.
	ErrTooManySessions = result.New(result.DescriptionOutOfRange, result.LevelPermanent, result.SummaryOutOfResource, result.ModuleSrv)
	// ErrServiceExists is returned when registering a taken name.
	ErrServiceExists = result.New(result.DescriptionAlreadyExists, result.LevelPermanent, result.SummaryWrongArgument, result.ModuleSrv)
	// ErrServiceNotFound is returned for unknown service names.
	ErrServiceNotFound = result.New(result.DescriptionNotFound, result.LevelPermanent, result.SummaryNotFound, result.ModuleSrv)
)

// Emulator is the shared kernel state.
type Emulator struct {
	mu   sync.Mutex
	cond *sync.Cond

	log       *zap.Logger
	width     ipc.AddrWidth
	nextPID   uint32
	processes map[uint32]*Process
	services  map[string]*port
	subs      map[uint32]map[*Process]struct{}
	shutdown  bool
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(e *Emulator) {
		e.log = log
	}
}

// WithAddrWidth sets the pointer width of every process.
func WithAddrWidth(w ipc.AddrWidth) Option {
	return func(e *Emulator) {
		e.width = w
	}
}

// New creates an emulator with no processes.
func New(opts ...Option) *Emulator {
	e := &Emulator{
		log:       zap.NewNop(),
		width:     ipc.Addr32,
		nextPID:   0x20,
		processes: make(map[uint32]*Process),
		services:  make(map[string]*port),
		subs:      make(map[uint32]map[*Process]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// NewProcess creates a process with an empty handle table.
func (e *Emulator) NewProcess(name string) *Process {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &Process{
		e:       e,
		pid:     e.nextPID,
		name:    name,
		handles: make(map[uint32]any),
		next:    firstHandle,
		space:   ipc.NewAddressSpace(),
	}
	e.nextPID++
	e.processes[p.pid] = p
	e.log.Debug("process created", zap.String("name", name), zap.Uint32("pid", p.pid))
	return p
}

// Services returns the registered service names in sorted order.
func (e *Emulator) Services() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.services))
	for name := range e.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// PublishToProcess queues a notification for one process whether or not it
// subscribed. PM uses this path to deliver termination.
func (e *Emulator) PublishToProcess(pid uint32, id uint32) result.Code {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.processes[pid]
	if !ok {
		return result.NotFound
	}
	if p.notifier == nil {
		return result.New(result.DescriptionNotInitialized, result.LevelPermanent, result.SummaryInvalidState, result.ModuleSrv)
	}
	p.notifier.queue = append(p.notifier.queue, id)
	e.cond.Broadcast()
	return result.Success
}

// Shutdown wakes every blocked call and makes all later calls fail with
// ErrShutdown.
func (e *Emulator) Shutdown() {
	e.mu.Lock()
	e.shutdown = true
	e.cond.Broadcast()
	e.mu.Unlock()
}

// translator moves handles and stamps pids for one transfer. It runs with
// e.mu held.
type translator struct {
	from, to *Process
}

func (t translator) ValidateHandles(handles []uint32) error {
	for _, raw := range handles {
		if _, ok := t.from.handles[raw]; !ok {
			return result.InvalidHandle
		}
	}
	return nil
}

func (t translator) TranslateHandles(handles []uint32, move bool) ([]uint32, error) {
	if err := t.ValidateHandles(handles); err != nil {
		return nil, err
	}
	out := make([]uint32, len(handles))
	for i, raw := range handles {
		obj := t.from.handles[raw]
		out[i] = t.to.install(obj)
		if move {
			delete(t.from.handles, raw)
			t.from.e.release(obj)
		}
	}
	return out, nil
}

func (t translator) SenderProcessID() uint32 {
	return t.from.pid
}
