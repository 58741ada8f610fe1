// Package ipc implements the Horizon command buffer protocol.
//
// Every system call and every client/server exchange goes through a fixed
// per-thread message area: a 64-word command region (header word plus
// parameters) and a static staging region describing up to 16 receive
// buffers, one tag word and one pointer each: 32 words for 32-bit
// processes, 48 for 64-bit ones. This package models that area as a caller-owned Buffer so
// the codec is a pure function of its inputs and testable without hardware.
//
// Message layout:
//
//	word 0      header  id<<16 | normal<<6 | translate
//	words 1..N  normal parameters (raw words, 64-bit values low word first,
//	            flat copies of fixed-size values)
//	words N+1.. translate parameters: a tag word followed by a pointer,
//	            handle list, or process id payload
//
// All normal parameters precede all translate parameters. Pushing a normal
// parameter after a descriptor panics with a *ProgrammingError since it can
// only be a caller bug. Only one Build or Parse may be in flight on a Buffer
// at a time; a nested Build on the same Buffer panics the same way.
//
// Descriptor payload pointers are never trusted directly. The Parser resolves
// them against the Buffer's AddressSpace, which only holds regions that were
// mapped by the owner or by a kernel transfer, and hands out bounds-checked
// Views.
//
// Method declares a command once (id, request shape, response shape) and
// derives both the client encode path and the server decode path from it.
package ipc
