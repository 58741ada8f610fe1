package ipc

import (
	"fmt"
	"io"
	"sync"

	"github.com/GriffinCanCode/horizon/internal/result"
)

const (
	spaceBase = 0x08000000
	pageSize  = 0x1000
)

// AddressSpace is the table of memory regions a process can name by address
// in a descriptor. Regions share their backing slice with whoever mapped
// them, so a write through a View is visible to the owner, the same way a
// kernel mapping aliases physical pages.
type AddressSpace struct {
	mu      sync.Mutex
	next    uint64
	regions map[uint64]mapping
}

type mapping struct {
	data   []byte
	rights Rights
}

// NewAddressSpace creates an empty address space.
func NewAddressSpace() *AddressSpace {
	return &AddressSpace{
		next:    spaceBase,
		regions: make(map[uint64]mapping),
	}
}

// Map makes data addressable and returns its base address. Addresses are
// page aligned and never reused.
func (s *AddressSpace) Map(data []byte, rights Rights) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	addr := s.next
	span := (uint64(len(data)) + pageSize - 1) &^ (pageSize - 1)
	if span == 0 {
		span = pageSize
	}
	s.next += span
	s.regions[addr] = mapping{data: data, rights: rights}
	return addr
}

// mapAt reinstates a region at an address Map handed out earlier.
func (s *AddressSpace) mapAt(addr uint64, data []byte, rights Rights) {
	s.mu.Lock()
	s.regions[addr] = mapping{data: data, rights: rights}
	s.mu.Unlock()
}

// Unmap removes the region starting at addr. Unknown addresses are ignored.
func (s *AddressSpace) Unmap(addr uint64) {
	s.mu.Lock()
	delete(s.regions, addr)
	s.mu.Unlock()
}

// Len returns the number of mapped regions.
func (s *AddressSpace) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regions)
}

// resolve returns the size bytes at addr. The whole range must lie inside a
// single region and that region must grant at least want.
func (s *AddressSpace) resolve(addr uint64, size uint32, want Rights) ([]byte, Rights, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for base, m := range s.regions {
		if addr < base {
			continue
		}
		off := addr - base
		end := off + uint64(size)
		if end > uint64(len(m.data)) {
			continue
		}
		if m.rights&want != want {
			return nil, 0, fmt.Errorf("resolve 0x%X: %w", addr, result.HostInvalidBufferRights)
		}
		return m.data[off:end:end], m.rights, nil
	}
	return nil, 0, fmt.Errorf("resolve 0x%X+%d: %w", addr, size, result.HostInvalidPointer)
}

// View is a bounds-checked window onto a buffer received through a
// descriptor. Views are only produced by the Parser after resolving a
// descriptor against the receiving address space.
type View struct {
	data     []byte
	writable bool
}

// Len returns the size in bytes.
func (v View) Len() int {
	return len(v.data)
}

// Writable reports whether the sender granted write access.
func (v View) Writable() bool {
	return v.writable
}

// Bytes returns a copy of the contents.
func (v View) Bytes() []byte {
	return append([]byte(nil), v.data...)
}

// ReadAt implements io.ReaderAt.
func (v View) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("read at %d: %w", off, result.HostInvalidValue)
	}
	if off >= int64(len(v.data)) {
		return 0, io.EOF
	}
	n := copy(p, v.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Writes that do not fit are rejected whole.
func (v View) WriteAt(p []byte, off int64) (int, error) {
	if !v.writable {
		return 0, fmt.Errorf("write to read-only buffer: %w", result.HostInvalidBufferRights)
	}
	if off < 0 || off+int64(len(p)) > int64(len(v.data)) {
		return 0, fmt.Errorf("write %d bytes at %d into %d: %w", len(p), off, len(v.data), result.HostInvalidSize)
	}
	return copy(v.data[off:], p), nil
}
