// Package sim is a host emulator of the Horizon IPC kernel.
//
// An Emulator holds the global kernel state: the srv: port registry and the
// notification subscriber lists. Each Process has its own handle table and
// address space and implements kernel.Kernel, so a sysmodule and its clients
// can run as goroutines in one Go process and exchange real command buffers:
//
//	emu := sim.New(sim.WithLogger(log))
//	server := emu.NewProcess("echo")
//	client := emu.NewProcess("app")
//
// Message delivery goes through ipc.Transfer, which maps buffers between
// the two address spaces, copies static buffers into registered receive
// areas, translates handle lists between handle tables and stamps process
// ids, exactly where the real kernel does.
//
// All state is guarded by one mutex; blocked ReplyAndReceive and
// SendSyncRequest calls wait on a condition variable.
package sim
