package sysmodule

import (
	"context"
	"fmt"
	"sort"

	"github.com/GriffinCanCode/horizon/internal/ipc"
	"github.com/GriffinCanCode/horizon/internal/kernel"
	"github.com/GriffinCanCode/horizon/internal/result"
)

// Call is the context of one dispatched command.
type Call struct {
	// Buffer holds the request on entry and must hold the reply on return.
	Buffer *ipc.Buffer
	// Kernel is available for nested requests. Use Buffer.Preserve, or a
	// separate Buffer, when the request is still needed afterwards.
	Kernel kernel.Kernel
	// Session is the requesting session and SessionIndex its position in
	// the open set.
	Session      *Session
	SessionIndex int
	Service      *Service
}

// RawHandler reads the request from c.Buffer and builds the reply into it.
type RawHandler func(ctx context.Context, c *Call) error

type route struct {
	name  string
	serve func(ctx context.Context, c *Call) result.Code
}

// Router maps command ids to handlers for one service.
type Router struct {
	routes map[uint16]route
}

// NewRouter creates an empty command table.
func NewRouter() *Router {
	return &Router{routes: make(map[uint16]route)}
}

func (r *Router) add(id uint16, name string, serve func(context.Context, *Call) result.Code) {
	if _, dup := r.routes[id]; dup {
		panic(fmt.Sprintf("sysmodule: command 0x%X registered twice", id))
	}
	r.routes[id] = route{name: name, serve: serve}
}

// Handle registers fn for m. The request is decoded with m before fn runs
// and fn's response is encoded with m; a decode failure or an error from fn
// becomes an error reply.
func Handle[Req, Resp any](r *Router, m ipc.Method[Req, Resp], fn func(ctx context.Context, c *Call, req Req) (Resp, error)) {
	r.add(m.ID, m.Name, func(ctx context.Context, c *Call) result.Code {
		req, err := m.ReadRequest(c.Buffer)
		if err != nil {
			return replyError(c.Buffer, m.ID, err)
		}
		resp, err := fn(ctx, c, req)
		if err != nil {
			return replyError(c.Buffer, m.ID, err)
		}
		if err := m.WriteResponse(c.Buffer, resp); err != nil {
			return replyError(c.Buffer, m.ID, err)
		}
		return result.Success
	})
}

// HandleRaw registers a handler that works on the buffer directly.
func (r *Router) HandleRaw(id uint16, name string, fn RawHandler) {
	r.add(id, name, func(ctx context.Context, c *Call) result.Code {
		if err := fn(ctx, c); err != nil {
			return replyError(c.Buffer, id, err)
		}
		return result.Success
	})
}

// Commands returns the registered command names ordered by id.
func (r *Router) Commands() []string {
	ids := make([]int, 0, len(r.routes))
	for id := range r.routes {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.routes[uint16(id)].name
	}
	return names
}

// Dispatch runs the handler for the command in c.Buffer and leaves the
// reply in c.Buffer. It returns the command's name and the result code
// carried by the reply.
func (r *Router) Dispatch(ctx context.Context, c *Call) (string, result.Code) {
	id := c.Buffer.Header().CommandID()
	rt, ok := r.routes[id]
	if !ok {
		// A build of two words cannot fail.
		_ = ipc.WriteInvalidCommand(c.Buffer)
		return "unknown", result.InvalidCommand
	}
	return rt.name, rt.serve(ctx, c)
}

func replyError(buf *ipc.Buffer, id uint16, err error) result.Code {
	code := result.FromError(err)
	if code == result.InvalidCommand {
		_ = ipc.WriteInvalidCommand(buf)
		return code
	}
	_ = ipc.WriteErrorReply(buf, id, code)
	return code
}
