package ipc

import (
	"encoding/binary"
	"fmt"

	"github.com/GriffinCanCode/horizon/internal/result"
)

// Builder appends parameters to a Buffer during Build. Push errors are
// sticky: after the first failure later pushes are ignored and Build returns
// that error.
type Builder struct {
	buf       *Buffer
	pos       int
	normal    int
	translate int
	described bool
	err       error
}

// Err returns the first push error.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) pushNormal(op string, words ...uint32) {
	if b.described {
		misuse(op, "normal parameter pushed after a descriptor")
	}
	if b.err != nil {
		return
	}
	if b.pos+len(words) > CommandWords {
		b.fail(fmt.Errorf("%s: %w", op, result.HostOutOfSpace))
		return
	}
	copy(b.buf.cmd[b.pos:], words)
	b.pos += len(words)
	b.normal += len(words)
}

// Push appends one raw word.
func (b *Builder) Push(w uint32) {
	b.pushNormal("Push", w)
}

// PushU64 appends v as its low word then its high word.
func (b *Builder) PushU64(v uint64) {
	b.pushNormal("PushU64", uint32(v), uint32(v>>32))
}

// PushI32 appends a signed word.
func (b *Builder) PushI32(v int32) {
	b.pushNormal("PushI32", uint32(v))
}

// PushBool appends 1 or 0.
func (b *Builder) PushBool(v bool) {
	var w uint32
	if v {
		w = 1
	}
	b.pushNormal("PushBool", w)
}

// PushResult appends a result code.
func (b *Builder) PushResult(code result.Code) {
	b.pushNormal("PushResult", code.Raw())
}

// PushStruct appends a flat little-endian copy of a fixed-size value,
// zero-padded to a whole word.
func (b *Builder) PushStruct(v any) {
	if b.described {
		misuse("PushStruct", "normal parameter pushed after a descriptor")
	}
	raw, err := binary.Append(nil, binary.LittleEndian, v)
	if err != nil {
		b.fail(fmt.Errorf("PushStruct %T: %w", v, result.HostTryFromBytes))
		return
	}
	b.pushNormal("PushStruct", bytesToWords(raw)...)
}

func (b *Builder) pushDescriptor(d Descriptor) {
	b.described = true
	if b.err != nil {
		return
	}
	n, err := d.Encode(b.buf.cmd[b.pos:], b.buf.width)
	if err != nil {
		b.fail(err)
		return
	}
	b.pos += n
	b.translate += n
}

func (b *Builder) pushMapped(kind Kind, data []byte) {
	addr := b.buf.mapTransient(data, kind.Rights())
	b.pushDescriptor(Descriptor{Kind: kind, Addr: addr, Size: uint32(len(data))})
}

// PushReadBuffer lends data to the receiver read-only.
func (b *Builder) PushReadBuffer(data []byte) {
	b.pushMapped(KindReadBuffer, data)
}

// PushWriteBuffer lends data to the receiver for writing.
func (b *Builder) PushWriteBuffer(data []byte) {
	b.pushMapped(KindWriteBuffer, data)
}

// PushReadWriteBuffer lends data to the receiver for reading and writing.
func (b *Builder) PushReadWriteBuffer(data []byte) {
	b.pushMapped(KindReadWriteBuffer, data)
}

// PushStaticBuffer sends data to the receiver's static buffer id. The kernel
// copies it, so data may be reused after the exchange.
func (b *Builder) PushStaticBuffer(id int, data []byte) {
	addr := b.buf.mapTransient(data, RightsRead)
	b.pushDescriptor(Descriptor{Kind: KindStaticBuffer, Addr: addr, Size: uint32(len(data)), StaticID: id})
}

// PushHandles copies handles to the receiver. The sender keeps its own.
func (b *Builder) PushHandles(handles ...uint32) {
	b.pushDescriptor(Descriptor{Kind: KindHandleList, Handles: handles})
}

// PushMoveHandles transfers handles to the receiver; the kernel closes them
// on the sender's side.
func (b *Builder) PushMoveHandles(handles ...uint32) {
	b.pushDescriptor(Descriptor{Kind: KindHandleList, Handles: handles, Move: true})
}

// PushProcessID asks the kernel to stamp the sender's process id.
func (b *Builder) PushProcessID() {
	b.pushDescriptor(Descriptor{Kind: KindProcessID})
}

// PushDescriptor appends an already-formed descriptor.
func (b *Builder) PushDescriptor(d Descriptor) {
	b.pushDescriptor(d)
}

func bytesToWords(raw []byte) []uint32 {
	words := make([]uint32, (len(raw)+3)/4)
	for i := range words {
		var chunk [4]byte
		copy(chunk[:], raw[i*4:])
		words[i] = binary.LittleEndian.Uint32(chunk[:])
	}
	return words
}

func wordsToBytes(words []uint32) []byte {
	raw := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(raw[i*4:], w)
	}
	return raw
}
