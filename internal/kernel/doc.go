// Package kernel is the boundary between this runtime and the Horizon
// kernel: the owned Handle type and the Kernel interface listing the system
// calls and srv: requests the service multiplexer and clients consume.
//
// The interface is deliberately narrow. On hardware each method is a thin
// trampoline around an SVC; on a host it is implemented by the emulator in
// internal/kernel/sim, and in unit tests by a testify mock.
package kernel
