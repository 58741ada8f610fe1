package ipc

import (
	"encoding/binary"
	"fmt"

	"github.com/GriffinCanCode/horizon/internal/result"
)

// Parser reads parameters from a Buffer during Parse. Normal pops share a
// sticky error like Builder; descriptor pops also return their error so the
// caller never touches an unchecked View.
type Parser struct {
	buf       *Buffer
	header    Header
	pos       int
	normalEnd int
	end       int
	err       error
}

// Header returns the message header.
func (p *Parser) Header() Header {
	return p.header
}

// Err returns the first pop error.
func (p *Parser) Err() error {
	return p.err
}

// Remaining returns the unread word count.
func (p *Parser) Remaining() int {
	return p.end - p.pos
}

func (p *Parser) fail(err error) error {
	if p.err == nil {
		p.err = err
	}
	return err
}

// ValidateHeader checks the header against an expected id and counts.
func (p *Parser) ValidateHeader(id uint16, normal, translate int) error {
	if p.header != MakeHeader(id, normal, translate) {
		return p.fail(fmt.Errorf("header %s, want %s: %w", p.header, MakeHeader(id, normal, translate), result.InvalidCommand))
	}
	return nil
}

// ValidateStaticBufferID checks that a static descriptor tag names id.
func (p *Parser) ValidateStaticBufferID(tag uint32, id int) error {
	if tag&0x3C0F != uint32(id&0xF)<<10|tagStatic {
		return p.fail(fmt.Errorf("static tag 0x%08X for id %d: %w", tag, id, result.InvalidCommand))
	}
	return nil
}

func (p *Parser) popNormal(op string, n int) []uint32 {
	if p.err != nil {
		return make([]uint32, n)
	}
	if p.pos+n > p.normalEnd {
		p.fail(fmt.Errorf("%s: %d normal words left: %w", op, p.normalEnd-p.pos, result.HostInvalidSize))
		return make([]uint32, n)
	}
	words := p.buf.cmd[p.pos : p.pos+n]
	p.pos += n
	return words
}

// Pop reads one raw word.
func (p *Parser) Pop() uint32 {
	return p.popNormal("Pop", 1)[0]
}

// PopU64 reads a low word then a high word.
func (p *Parser) PopU64() uint64 {
	w := p.popNormal("PopU64", 2)
	return uint64(w[0]) | uint64(w[1])<<32
}

// PopI32 reads a signed word.
func (p *Parser) PopI32() int32 {
	return int32(p.popNormal("PopI32", 1)[0])
}

// PopBool reads a word as a boolean.
func (p *Parser) PopBool() bool {
	return p.popNormal("PopBool", 1)[0] != 0
}

// PopResult reads a result code.
func (p *Parser) PopResult() result.Code {
	return result.Code(p.popNormal("PopResult", 1)[0])
}

// PopStruct decodes a flat copy of a fixed-size value into ptr.
func (p *Parser) PopStruct(ptr any) error {
	size := binary.Size(ptr)
	if size < 0 {
		return p.fail(fmt.Errorf("PopStruct %T: %w", ptr, result.HostTryFromBytes))
	}
	raw := wordsToBytes(p.popNormal("PopStruct", (size+3)/4))
	if p.err != nil {
		return p.err
	}
	if _, err := binary.Decode(raw[:size], binary.LittleEndian, ptr); err != nil {
		return p.fail(fmt.Errorf("PopStruct %T: %w", ptr, result.HostTryFromBytes))
	}
	return nil
}

// PopDescriptor decodes the next translate parameter without resolving it.
func (p *Parser) PopDescriptor() (Descriptor, error) {
	if p.err != nil {
		return Descriptor{}, p.err
	}
	if p.pos < p.normalEnd {
		return Descriptor{}, p.fail(fmt.Errorf("descriptor read inside normal parameters: %w", result.HostInvalidDescriptor))
	}
	if p.pos >= p.end {
		return Descriptor{}, p.fail(fmt.Errorf("no translate parameters left: %w", result.HostInvalidDescriptor))
	}
	d, n, err := DecodeDescriptor(p.buf.cmd[p.pos:p.end], p.buf.width)
	if err != nil {
		return Descriptor{}, p.fail(err)
	}
	p.pos += n
	return d, nil
}

func (p *Parser) expect(kind Kind) (Descriptor, error) {
	d, err := p.PopDescriptor()
	if err != nil {
		return Descriptor{}, err
	}
	if d.Kind != kind {
		return Descriptor{}, p.fail(fmt.Errorf("got %s descriptor, want %s: %w", d.Kind, kind, result.HostInvalidDescriptor))
	}
	return d, nil
}

func (p *Parser) popMapped(kind Kind) (View, error) {
	d, err := p.expect(kind)
	if err != nil {
		return View{}, err
	}
	data, _, err := p.buf.space.resolve(d.Addr, d.Size, kind.Rights())
	if err != nil {
		return View{}, p.fail(err)
	}
	return View{data: data, writable: kind.Rights().Writable()}, nil
}

// PopReadBuffer resolves a read-only buffer.
func (p *Parser) PopReadBuffer() (View, error) {
	return p.popMapped(KindReadBuffer)
}

// PopWriteBuffer resolves a buffer the sender lent for writing.
func (p *Parser) PopWriteBuffer() (View, error) {
	return p.popMapped(KindWriteBuffer)
}

// PopReadWriteBuffer resolves a buffer lent for reading and writing.
func (p *Parser) PopReadWriteBuffer() (View, error) {
	return p.popMapped(KindReadWriteBuffer)
}

// PopStaticBuffer resolves a static buffer that must carry id.
func (p *Parser) PopStaticBuffer(id int) (View, error) {
	d, err := p.expect(KindStaticBuffer)
	if err != nil {
		return View{}, err
	}
	if d.StaticID != id {
		return View{}, p.fail(fmt.Errorf("static buffer id %d, want %d: %w", d.StaticID, id, result.HostInvalidDescriptor))
	}
	data, _, err := p.buf.space.resolve(d.Addr, d.Size, RightsRead)
	if err != nil {
		return View{}, p.fail(err)
	}
	return View{data: data}, nil
}

// PopHandles reads a handle list whose move flag must equal move.
func (p *Parser) PopHandles(move bool) ([]uint32, error) {
	d, err := p.expect(KindHandleList)
	if err != nil {
		return nil, err
	}
	if d.Move != move {
		return nil, p.fail(fmt.Errorf("handle list move=%t, want %t: %w", d.Move, move, result.HostInvalidDescriptor))
	}
	return d.Handles, nil
}

// PopProcessID reads the kernel-stamped process id.
func (p *Parser) PopProcessID() (uint32, error) {
	d, err := p.expect(KindProcessID)
	if err != nil {
		return 0, err
	}
	return d.ProcessID, nil
}
