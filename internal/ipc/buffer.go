package ipc

import (
	"fmt"
	"sync/atomic"

	"github.com/GriffinCanCode/horizon/internal/result"
)

const (
	// CommandWords is the size of the command region, header included.
	CommandWords = 64
	// StaticWords is the size of the static staging region: one tag and
	// one pointer per static buffer id, sized for 64-bit pointers.
	StaticWords = (1 + 2) * MaxStaticBuffers
)

const (
	stateIdle uint32 = iota
	stateBuilding
	stateParsing
)

// Buffer is the message area of one thread of execution. It is owned by a
// single goroutine; Build and Parse refuse to overlap on the same Buffer.
type Buffer struct {
	cmd     [CommandWords]uint32
	statics [StaticWords]uint32

	slots     [MaxStaticBuffers][]byte
	slotAddrs [MaxStaticBuffers]uint64

	width     AddrWidth
	space     *AddressSpace
	transient []uint64

	state atomic.Uint32
}

// BufferOption configures a Buffer.
type BufferOption func(*Buffer)

// WithAddrWidth sets the pointer width used for descriptor payloads.
func WithAddrWidth(w AddrWidth) BufferOption {
	return func(b *Buffer) {
		b.width = w
	}
}

// WithAddressSpace shares an address space between buffers of one process.
func WithAddressSpace(s *AddressSpace) BufferOption {
	return func(b *Buffer) {
		b.space = s
	}
}

// NewBuffer creates an empty message area.
func NewBuffer(opts ...BufferOption) *Buffer {
	b := &Buffer{width: Addr32}
	for _, opt := range opts {
		opt(b)
	}
	if b.space == nil {
		b.space = NewAddressSpace()
	}
	return b
}

// Width returns the pointer width.
func (b *Buffer) Width() AddrWidth { return b.width }

// Space returns the address space descriptors are resolved against.
func (b *Buffer) Space() *AddressSpace { return b.space }

// Header returns word 0.
func (b *Buffer) Header() Header { return Header(b.cmd[0]) }

// Word returns command word i.
func (b *Buffer) Word(i int) uint32 { return b.cmd[i] }

// Words returns a copy of the message words covered by the header.
func (b *Buffer) Words() []uint32 {
	n := b.Header().Words()
	if n > CommandWords {
		n = CommandWords
	}
	return append([]uint32(nil), b.cmd[:n]...)
}

// Load overwrites the command region with raw words, as the kernel does when
// it delivers a message. Remaining words are zeroed.
func (b *Buffer) Load(words []uint32) error {
	if len(words) > CommandWords {
		return fmt.Errorf("load %d words: %w", len(words), result.HostOutOfSpace)
	}
	b.assertIdle("Load")
	n := copy(b.cmd[:], words)
	clear(b.cmd[n:])
	return nil
}

// Build composes a message with command id into the buffer, inferring the
// header counts from what fn pushes. It returns the first push error.
func (b *Buffer) Build(id uint16, fn func(*Builder)) error {
	return b.build(id, -1, -1, fn)
}

// BuildCounts is Build with explicit header counts. A mismatch between the
// declared and pushed counts is a programming error.
func (b *Buffer) BuildCounts(id uint16, normal, translate int, fn func(*Builder)) error {
	return b.build(id, normal, translate, fn)
}

func (b *Buffer) build(id uint16, normal, translate int, fn func(*Builder)) error {
	b.enter(stateBuilding, "Build")
	defer b.leave()

	b.releaseTransient()
	bl := &Builder{buf: b, pos: 1}
	fn(bl)
	if bl.err != nil {
		return bl.err
	}
	if normal >= 0 && (bl.normal != normal || bl.translate != translate) {
		misuse("Build", "command 0x%X declared %d/%d words but pushed %d/%d",
			id, normal, translate, bl.normal, bl.translate)
	}
	b.cmd[0] = uint32(MakeHeader(id, bl.normal, bl.translate))
	return nil
}

// Parse runs fn over the current message. It returns fn's error, or the
// first pop error if fn returned nil.
func (b *Buffer) Parse(fn func(*Parser) error) error {
	b.enter(stateParsing, "Parse")
	defer b.leave()

	h := b.Header()
	p := &Parser{buf: b, header: h, pos: 1, normalEnd: 1 + h.Normal(), end: h.Words()}
	if p.end > CommandWords {
		return fmt.Errorf("parse %s: %w", h, result.HostOutOfSpace)
	}
	if err := fn(p); err != nil {
		return err
	}
	return p.err
}

// Snapshot is a saved copy of a Buffer's message, static registrations and
// the mappings its current message refers to.
type Snapshot struct {
	cmd       [CommandWords]uint32
	statics   [StaticWords]uint32
	slots     [MaxStaticBuffers][]byte
	slotAddrs [MaxStaticBuffers]uint64
	transient []uint64
}

// Snapshot saves the buffer so an unrelated exchange can run on it and be
// undone with Restore. The snapshot takes over the mapped buffers of the
// current message; they stay resolvable until the snapshot is restored.
func (b *Buffer) Snapshot() Snapshot {
	b.assertIdle("Snapshot")
	s := Snapshot{
		cmd:       b.cmd,
		statics:   b.statics,
		slots:     b.slots,
		slotAddrs: b.slotAddrs,
		transient: b.transient,
	}
	b.transient = nil
	return s
}

// Restore puts back a Snapshot. Mappings and static buffers registered since
// the snapshot are released, and the saved ones are reinstated at their old
// addresses so the restored message still resolves.
func (b *Buffer) Restore(s Snapshot) {
	b.assertIdle("Restore")
	b.releaseTransient()
	b.transient = s.transient
	for id := range MaxStaticBuffers {
		if b.slotAddrs[id] == s.slotAddrs[id] {
			continue
		}
		b.ClearStaticBuffer(id)
		if s.slots[id] != nil {
			b.space.mapAt(s.slotAddrs[id], s.slots[id], RightsReadWrite)
			b.slots[id] = s.slots[id]
			b.slotAddrs[id] = s.slotAddrs[id]
		}
	}
	b.cmd = s.cmd
	b.statics = s.statics
}

// Preserve snapshots the buffer, runs fn, and restores the snapshot. Use it
// to issue a nested request while a received message is still needed.
func (b *Buffer) Preserve(fn func() error) error {
	s := b.Snapshot()
	defer b.Restore(s)
	return fn()
}

// SetStaticBuffer registers data as the receive area for static buffer id.
// Incoming static descriptors with that id are copied into data.
func (b *Buffer) SetStaticBuffer(id int, data []byte) error {
	if id < 0 || id >= MaxStaticBuffers {
		return fmt.Errorf("static buffer id %d: %w", id, result.HostInvalidValue)
	}
	if len(data) > maxStaticSize {
		return fmt.Errorf("static buffer of %d bytes: %w", len(data), result.HostInvalidSize)
	}
	b.ClearStaticBuffer(id)
	addr := b.space.Map(data, RightsReadWrite)
	d := Descriptor{Kind: KindStaticBuffer, Addr: addr, Size: uint32(len(data)), StaticID: id}
	if _, err := d.Encode(b.statics[b.staticIndex(id):], b.width); err != nil {
		b.space.Unmap(addr)
		return err
	}
	b.slots[id] = data
	b.slotAddrs[id] = addr
	return nil
}

// StaticBuffer returns the receive area registered for id, or nil.
func (b *Buffer) StaticBuffer(id int) []byte {
	if id < 0 || id >= MaxStaticBuffers {
		return nil
	}
	return b.slots[id]
}

// StaticWord returns word i of the static staging region. Each id owns a
// tag word followed by a pointer of the buffer's width.
func (b *Buffer) StaticWord(i int) uint32 { return b.statics[i] }

func (b *Buffer) staticIndex(id int) int {
	return id * (1 + b.width.Words())
}

// ClearStaticBuffer unregisters static buffer id.
func (b *Buffer) ClearStaticBuffer(id int) {
	if b.slots[id] != nil {
		b.space.Unmap(b.slotAddrs[id])
	}
	b.slots[id] = nil
	b.slotAddrs[id] = 0
	i := b.staticIndex(id)
	clear(b.statics[i : i+1+b.width.Words()])
}

// mapTransient maps data for the lifetime of the current exchange.
func (b *Buffer) mapTransient(data []byte, rights Rights) uint64 {
	addr := b.space.Map(data, rights)
	b.transient = append(b.transient, addr)
	return addr
}

func (b *Buffer) releaseTransient() {
	for _, addr := range b.transient {
		b.space.Unmap(addr)
	}
	b.transient = b.transient[:0]
}

func (b *Buffer) enter(state uint32, op string) {
	if !b.state.CompareAndSwap(stateIdle, state) {
		misuse(op, "buffer already has a build or parse in flight")
	}
}

func (b *Buffer) leave() {
	b.state.Store(stateIdle)
}

func (b *Buffer) assertIdle(op string) {
	if b.state.Load() != stateIdle {
		misuse(op, "buffer has a build or parse in flight")
	}
}
