package ipc

import (
	"fmt"

	"github.com/GriffinCanCode/horizon/internal/result"
)

// AddrWidth is the pointer size of a process, in bytes.
type AddrWidth int

const (
	Addr32 AddrWidth = 4
	Addr64 AddrWidth = 8
)

// Words returns how many payload words one pointer occupies.
func (w AddrWidth) Words() int {
	if w == Addr64 {
		return 2
	}
	return 1
}

// Kind discriminates Descriptor variants.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindReadBuffer
	KindWriteBuffer
	KindReadWriteBuffer
	KindStaticBuffer
	KindHandleList
	KindProcessID
)

func (k Kind) String() string {
	switch k {
	case KindReadBuffer:
		return "read_buffer"
	case KindWriteBuffer:
		return "write_buffer"
	case KindReadWriteBuffer:
		return "read_write_buffer"
	case KindStaticBuffer:
		return "static_buffer"
	case KindHandleList:
		return "handle_list"
	case KindProcessID:
		return "process_id"
	default:
		return "invalid"
	}
}

// Rights are the access bits of a mapped buffer tag.
type Rights uint32

const (
	RightsRead      Rights = 0x2
	RightsWrite     Rights = 0x4
	RightsReadWrite Rights = 0x6
)

// Writable reports whether the write bit is set.
func (r Rights) Writable() bool {
	return r&RightsWrite != 0
}

// Rights returns the mapped-buffer rights implied by k.
func (k Kind) Rights() Rights {
	switch k {
	case KindReadBuffer:
		return RightsRead
	case KindWriteBuffer:
		return RightsWrite
	case KindReadWriteBuffer:
		return RightsReadWrite
	default:
		return 0
	}
}

const (
	// MaxStaticBuffers is the number of static buffer ids.
	MaxStaticBuffers = 16
	// MaxHandles is the largest handle list a single tag can describe.
	MaxHandles = 64

	maxStaticSize = 1<<18 - 1
	maxMappedSize = 1<<28 - 1

	tagMapped    = 0x8
	tagStatic    = 0x2
	tagMove      = 0x10
	tagProcessID = 0x20
)

// StaticTag builds the tag word of a static buffer descriptor.
func StaticTag(size uint32, id int) uint32 {
	return size<<14 | (uint32(id)&0xF)<<10 | tagStatic
}

// MappedTag builds the tag word of a mapped buffer descriptor.
func MappedTag(size uint32, rights Rights) uint32 {
	return size<<4 | tagMapped | uint32(rights)
}

// HandleListTag builds the tag word for n handles.
func HandleListTag(n int, move bool) uint32 {
	tag := uint32(n-1) << 26
	if move {
		tag |= tagMove
	}
	return tag
}

// ProcessIDTag is the tag word asking the kernel for the sender's process id.
const ProcessIDTag uint32 = tagProcessID

// Descriptor is one translate parameter. Which fields are meaningful depends
// on Kind: Addr/Size for buffers, StaticID for static buffers, Handles/Move
// for handle lists, ProcessID for the process id marker.
type Descriptor struct {
	Kind      Kind
	Addr      uint64
	Size      uint32
	StaticID  int
	Handles   []uint32
	Move      bool
	ProcessID uint32
}

// Words returns the encoded length including the tag word.
func (d Descriptor) Words(width AddrWidth) int {
	switch d.Kind {
	case KindReadBuffer, KindWriteBuffer, KindReadWriteBuffer, KindStaticBuffer:
		return 1 + width.Words()
	case KindHandleList:
		return 1 + len(d.Handles)
	case KindProcessID:
		return 2
	default:
		return 0
	}
}

// Encode writes d into dst and returns the number of words written.
func (d Descriptor) Encode(dst []uint32, width AddrWidth) (int, error) {
	n := d.Words(width)
	if n == 0 {
		return 0, fmt.Errorf("encode %s descriptor: %w", d.Kind, result.HostInvalidDescriptor)
	}
	if len(dst) < n {
		return 0, fmt.Errorf("encode %s descriptor: %w", d.Kind, result.HostOutOfSpace)
	}

	switch d.Kind {
	case KindReadBuffer, KindWriteBuffer, KindReadWriteBuffer:
		if d.Size > maxMappedSize {
			return 0, fmt.Errorf("encode %s descriptor of %d bytes: %w", d.Kind, d.Size, result.HostInvalidSize)
		}
		dst[0] = MappedTag(d.Size, d.Kind.Rights())
	case KindStaticBuffer:
		if d.StaticID < 0 || d.StaticID >= MaxStaticBuffers {
			return 0, fmt.Errorf("encode static buffer id %d: %w", d.StaticID, result.HostInvalidValue)
		}
		if d.Size > maxStaticSize {
			return 0, fmt.Errorf("encode static buffer of %d bytes: %w", d.Size, result.HostInvalidSize)
		}
		dst[0] = StaticTag(d.Size, d.StaticID)
	case KindHandleList:
		if len(d.Handles) == 0 || len(d.Handles) > MaxHandles {
			return 0, fmt.Errorf("encode handle list of %d: %w", len(d.Handles), result.HostInvalidSize)
		}
		dst[0] = HandleListTag(len(d.Handles), d.Move)
		copy(dst[1:], d.Handles)
		return n, nil
	case KindProcessID:
		dst[0] = ProcessIDTag
		dst[1] = d.ProcessID
		return n, nil
	}

	if width == Addr64 {
		dst[1] = uint32(d.Addr)
		dst[2] = uint32(d.Addr >> 32)
	} else {
		if d.Addr > 0xFFFFFFFF {
			return 0, fmt.Errorf("encode pointer 0x%X: %w", d.Addr, result.HostTryFromInt)
		}
		dst[1] = uint32(d.Addr)
	}
	return n, nil
}

// DecodeDescriptor reads one descriptor from src and returns it with the
// number of words consumed. The tag word decides the variant; any tag that
// is not one of the known patterns is rejected.
func DecodeDescriptor(src []uint32, width AddrWidth) (Descriptor, int, error) {
	if len(src) == 0 {
		return Descriptor{}, 0, fmt.Errorf("decode descriptor: %w", result.HostInvalidSize)
	}
	tag := src[0]

	var d Descriptor
	switch {
	case tag&tagMapped != 0:
		if tag&0x1 != 0 {
			return Descriptor{}, 0, fmt.Errorf("decode tag 0x%08X: %w", tag, result.HostInvalidDescriptor)
		}
		switch Rights(tag & 0x6) {
		case RightsRead:
			d.Kind = KindReadBuffer
		case RightsWrite:
			d.Kind = KindWriteBuffer
		case RightsReadWrite:
			d.Kind = KindReadWriteBuffer
		default:
			return Descriptor{}, 0, fmt.Errorf("decode tag 0x%08X: %w", tag, result.HostInvalidBufferRights)
		}
		d.Size = tag >> 4
	case tag&0xE == 0:
		if tag&tagProcessID != 0 {
			if tag != ProcessIDTag {
				return Descriptor{}, 0, fmt.Errorf("decode tag 0x%08X: %w", tag, result.HostInvalidDescriptor)
			}
			if len(src) < 2 {
				return Descriptor{}, 0, fmt.Errorf("decode process id: %w", result.HostInvalidSize)
			}
			d.Kind = KindProcessID
			d.ProcessID = src[1]
			return d, 2, nil
		}
		if tag&0x03FFFFEF != 0 {
			return Descriptor{}, 0, fmt.Errorf("decode tag 0x%08X: %w", tag, result.HostInvalidDescriptor)
		}
		count := int(tag>>26) + 1
		if len(src) < 1+count {
			return Descriptor{}, 0, fmt.Errorf("decode handle list of %d: %w", count, result.HostInvalidSize)
		}
		d.Kind = KindHandleList
		d.Move = tag&tagMove != 0
		d.Handles = append([]uint32(nil), src[1:1+count]...)
		return d, 1 + count, nil
	case tag&0xE == tagStatic:
		if tag&0x3F1 != 0 {
			return Descriptor{}, 0, fmt.Errorf("decode tag 0x%08X: %w", tag, result.HostInvalidDescriptor)
		}
		d.Kind = KindStaticBuffer
		d.StaticID = int(tag>>10) & 0xF
		d.Size = tag >> 14
	default:
		// PXI buffers are kernel-internal and never reach user space.
		return Descriptor{}, 0, fmt.Errorf("decode tag 0x%08X: %w", tag, result.HostInvalidDescriptor)
	}

	n := 1 + width.Words()
	if len(src) < n {
		return Descriptor{}, 0, fmt.Errorf("decode %s pointer: %w", d.Kind, result.HostInvalidSize)
	}
	d.Addr = uint64(src[1])
	if width == Addr64 {
		d.Addr |= uint64(src[2]) << 32
	}
	return d, n, nil
}
