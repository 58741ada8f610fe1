package result

import (
	"errors"
	"fmt"
)

// Code is a packed Horizon result value.
type Code uint32

// Success is the universal success value.
const Success Code = 0

const (
	descriptionMask = 0x3FF
	moduleShift     = 10
	moduleMask      = 0xFF
	summaryShift    = 21
	summaryMask     = 0x3F
	levelShift      = 27
	levelMask       = 0x1F
)

// New packs the four fields into a Code. Out-of-range field values are masked.
func New(description Description, level Level, summary Summary, module Module) Code {
	return Code(uint32(description)&descriptionMask |
		(uint32(module)&moduleMask)<<moduleShift |
		(uint32(summary)&summaryMask)<<summaryShift |
		(uint32(level)&levelMask)<<levelShift)
}

// Generic builds a permanent error in the common module.
func Generic(description Description, summary Summary) Code {
	return New(description, LevelPermanent, summary, ModuleCommon)
}

// Description returns bits 0-9.
func (c Code) Description() Description {
	return Description(uint32(c) & descriptionMask)
}

// Module returns bits 10-17.
func (c Code) Module() Module {
	return Module((uint32(c) >> moduleShift) & moduleMask)
}

// Summary returns bits 21-26.
func (c Code) Summary() Summary {
	return Summary((uint32(c) >> summaryShift) & summaryMask)
}

// Level returns bits 27-31.
func (c Code) Level() Level {
	return Level((uint32(c) >> levelShift) & levelMask)
}

// IsError reports whether the kernel would treat c as a failure.
func (c Code) IsError() bool {
	return int32(c) < 0
}

// IsSuccess is the negation of IsError.
func (c Code) IsSuccess() bool {
	return !c.IsError()
}

// Raw returns the packed value.
func (c Code) Raw() uint32 {
	return uint32(c)
}

// Err returns nil for non-error codes and c otherwise, so callers can use
// the usual `if err := code.Err(); err != nil` shape.
func (c Code) Err() error {
	if c.IsSuccess() {
		return nil
	}
	return c
}

// Error implements the error interface.
func (c Code) Error() string {
	return fmt.Sprintf("result 0x%08X (%s, %s, %s, %s)",
		uint32(c), c.Level(), c.Summary(), c.Module(), c.Description())
}

// String renders the raw value.
func (c Code) String() string {
	return fmt.Sprintf("0x%08X", uint32(c))
}

// FromError extracts a Code from err. Errors that do not wrap a Code map to
// the host-only InvalidValue code; nil maps to Success.
func FromError(err error) Code {
	if err == nil {
		return Success
	}
	var code Code
	if errors.As(err, &code) {
		return code
	}
	return HostInvalidValue
}
