package ipc

import (
	"fmt"

	"github.com/GriffinCanCode/horizon/internal/result"
)

// Translator is the kernel side of a transfer: it owns the handle tables of
// the two processes involved.
type Translator interface {
	// ValidateHandles reports whether every handle names an object in the
	// sender's table. It has no side effects.
	ValidateHandles(handles []uint32) error
	// TranslateHandles installs handles from the sender's table into the
	// receiver's and returns the receiver's values. Moved handles are
	// removed from the sender.
	TranslateHandles(handles []uint32, move bool) ([]uint32, error)
	// SenderProcessID returns the id stamped into process id descriptors.
	SenderProcessID() uint32
}

// pending is a decoded descriptor with its source memory already resolved.
type pending struct {
	d    Descriptor
	data []byte
}

// Transfer copies the message in src into dst the way the kernel does on
// send and reply: normal words are copied verbatim, mapped buffers are
// mapped into dst's address space, static buffers are copied into dst's
// registered receive areas, handles are translated and the process id
// marker is stamped.
//
// Every descriptor is checked before anything is mapped, copied or moved, so
// a failed transfer leaves dst and the sender's handle table untouched.
// Mappings created for a previous message delivered to dst are released once
// the new message is known to be deliverable.
func Transfer(dst, src *Buffer, tr Translator) error {
	h := src.Header()
	if h.Words() > CommandWords {
		return fmt.Errorf("transfer %s: %w", h, result.HostOutOfSpace)
	}
	dst.assertIdle("Transfer")

	descs, err := checkTransfer(dst, src, tr)
	if err != nil {
		return err
	}
	dst.releaseTransient()

	var out [CommandWords]uint32
	pos := 1 + h.Normal()
	copy(out[1:pos], src.cmd[1:pos])

	for _, pd := range descs {
		d := pd.d
		switch d.Kind {
		case KindReadBuffer, KindWriteBuffer, KindReadWriteBuffer:
			d.Addr = dst.mapTransient(pd.data, d.Kind.Rights())
		case KindStaticBuffer:
			copy(dst.slots[d.StaticID], pd.data)
			d.Addr = dst.slotAddrs[d.StaticID]
		case KindHandleList:
			handles, err := tr.TranslateHandles(d.Handles, d.Move)
			if err != nil {
				return err
			}
			d.Handles = handles
		case KindProcessID:
			d.ProcessID = tr.SenderProcessID()
		}

		n, err := d.Encode(out[pos:], dst.width)
		if err != nil {
			return err
		}
		pos += n
	}

	out[0] = uint32(MakeHeader(h.CommandID(), h.Normal(), pos-1-h.Normal()))
	dst.cmd = out
	return nil
}

// checkTransfer decodes the translate parameters of src and validates them
// against dst without side effects.
func checkTransfer(dst, src *Buffer, tr Translator) ([]pending, error) {
	h := src.Header()
	pos := 1 + h.Normal()
	in := src.cmd[pos:h.Words()]

	var (
		descs []pending
		moved map[uint32]struct{}
	)
	for len(in) > 0 {
		d, n, err := DecodeDescriptor(in, src.width)
		if err != nil {
			return nil, err
		}
		in = in[n:]

		pd := pending{d: d}
		switch d.Kind {
		case KindReadBuffer, KindWriteBuffer, KindReadWriteBuffer:
			pd.data, _, err = src.space.resolve(d.Addr, d.Size, d.Kind.Rights())
			if err != nil {
				return nil, err
			}
		case KindStaticBuffer:
			pd.data, _, err = src.space.resolve(d.Addr, d.Size, RightsRead)
			if err != nil {
				return nil, err
			}
			slot := dst.slots[d.StaticID]
			if slot == nil {
				return nil, fmt.Errorf("static buffer %d not registered: %w", d.StaticID, result.InvalidPointer)
			}
			if len(pd.data) > len(slot) {
				return nil, fmt.Errorf("static buffer %d: %d bytes into %d: %w", d.StaticID, len(pd.data), len(slot), result.TooLarge)
			}
		case KindHandleList:
			if err := tr.ValidateHandles(d.Handles); err != nil {
				return nil, err
			}
			// A handle that has already been moved out is gone by the
			// time a later list is translated.
			for _, raw := range d.Handles {
				if _, gone := moved[raw]; gone {
					return nil, fmt.Errorf("handle 0x%X used after move: %w", raw, result.InvalidHandle)
				}
				if d.Move {
					if moved == nil {
						moved = make(map[uint32]struct{})
					}
					moved[raw] = struct{}{}
				}
			}
		}

		pos += d.Words(dst.width)
		if pos > CommandWords {
			return nil, fmt.Errorf("transfer %s into %d-byte pointers: %w", h, dst.width, result.HostOutOfSpace)
		}
		descs = append(descs, pd)
	}
	return descs, nil
}
