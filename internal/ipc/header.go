package ipc

import "fmt"

// Header is the first word of every message.
type Header uint32

// NoReplyHeader is written by a server that has nothing to reply with.
const NoReplyHeader Header = 0xFFFF0000

// MakeHeader packs a command id and the normal/translate word counts.
// Counts are truncated to their 6-bit fields.
func MakeHeader(id uint16, normal, translate int) Header {
	return Header(uint32(id)<<16 | (uint32(normal)&0x3F)<<6 | uint32(translate)&0x3F)
}

// CommandID returns the upper 16 bits.
func (h Header) CommandID() uint16 {
	return uint16(h >> 16)
}

// Normal returns the number of normal parameter words.
func (h Header) Normal() int {
	return int(h>>6) & 0x3F
}

// Translate returns the number of translate parameter words.
func (h Header) Translate() int {
	return int(h) & 0x3F
}

// Words returns the total message length including the header word.
func (h Header) Words() int {
	return 1 + h.Normal() + h.Translate()
}

func (h Header) String() string {
	return fmt.Sprintf("0x%08X(id=0x%X normal=%d translate=%d)", uint32(h), h.CommandID(), h.Normal(), h.Translate())
}
