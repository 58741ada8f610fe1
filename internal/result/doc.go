// Package result models the packed 32-bit status value returned by every
// fallible Horizon operation.
//
// Bit layout (kernel ABI, see 3dbrew "Error codes"):
//
//	bits  0-9   description
//	bits 10-17  module
//	bits 18-20  reserved
//	bits 21-26  summary
//	bits 27-31  level
//
// A Code is an error exactly when bit 31 is set, which is how the kernel
// itself interprets the value. Success is the all-zero value.
//
// Host-only failures (bad UTF-16, size mismatch, misalignment, embedded NUL,
// malformed descriptors) are drawn from a private range: module ModuleHost,
// which the kernel never assigns, with descriptions starting at 0x300.
//
// Example Usage:
//
//	code := result.New(result.DescriptionNotFound, result.LevelPermanent,
//		result.SummaryNotFound, result.ModuleFS)
//	if err := code.Err(); err != nil {
//		return fmt.Errorf("open archive: %w", err)
//	}
package result
