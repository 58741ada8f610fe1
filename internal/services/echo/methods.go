// Package echo is a reference service that exercises every descriptor kind
// across a real client/server exchange.
package echo

import (
	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/result"
)

// Kind is the manifest kind that selects this service.
const Kind = "echo"

// Static buffer ids used by Reverse.
const (
	StaticIn  = 0
	StaticOut = 1
)

type EchoRequest struct {
	Value uint32
	Wide  uint64
}

type EchoResponse struct {
	Value uint32
	Wide  uint64
}

type SumRequest struct {
	Input ipc.ReadBuffer
}

type SumResponse struct {
	Sum    uint32
	Length uint32
}

type FillRequest struct {
	Pattern uint8
	Output  ipc.WriteBuffer
}

type FillResponse struct {
	Written uint32
}

type ReverseRequest struct {
	Input ipc.StaticBuffer
}

type ReverseResponse struct {
	Output ipc.StaticBuffer
}

type WhoAmIRequest struct {
	Caller ipc.ProcessID
}

type WhoAmIResponse struct {
	PID   uint32
	Calls uint32
}

type DupRequest struct {
	Handles ipc.HandleList
}

type DupResponse struct {
	Count   uint32
	Handles ipc.HandleList
}

type FailRequest struct {
	Code result.Code
}

// Command declarations shared by the server and its clients.
var (
	Echo    = ipc.NewMethod[EchoRequest, EchoResponse](0x1, "Echo")
	Sum     = ipc.NewMethod[SumRequest, SumResponse](0x2, "Sum")
	Fill    = ipc.NewMethod[FillRequest, FillResponse](0x3, "Fill")
	Reverse = ipc.NewMethod[ReverseRequest, ReverseResponse](0x4, "Reverse")
	WhoAmI  = ipc.NewMethod[WhoAmIRequest, WhoAmIResponse](0x5, "WhoAmI")
	Dup     = ipc.NewMethod[DupRequest, DupResponse](0x6, "Dup")
	Fail    = ipc.NewMethod[FailRequest, struct{}](0x7, "Fail")
)
