package result

// Host-only descriptions. Together with ModuleHost these never collide with
// a value the kernel produces.
const (
	DescriptionHostInvalidString Description = 0x300 + iota
	DescriptionHostCheckedAdd
	DescriptionHostTryFromInt
	DescriptionHostTryFromBytes
	DescriptionHostNul
	DescriptionHostOutOfSpace
	DescriptionHostInvalidBufferRights
	DescriptionHostAlignment
	DescriptionHostInvalidSize
	DescriptionHostInvalidValue
	DescriptionHostInvalidPointer
	DescriptionHostInvalidDescriptor
)

var hostDescriptionNames = map[Description]string{
	DescriptionHostInvalidString:       "host_invalid_string",
	DescriptionHostCheckedAdd:          "host_checked_add",
	DescriptionHostTryFromInt:          "host_try_from_int",
	DescriptionHostTryFromBytes:        "host_try_from_bytes",
	DescriptionHostNul:                 "host_nul",
	DescriptionHostOutOfSpace:          "host_out_of_space",
	DescriptionHostInvalidBufferRights: "host_invalid_buffer_rights",
	DescriptionHostAlignment:           "host_alignment",
	DescriptionHostInvalidSize:         "host_invalid_size",
	DescriptionHostInvalidValue:        "host_invalid_value",
	DescriptionHostInvalidPointer:      "host_invalid_pointer",
	DescriptionHostInvalidDescriptor:   "host_invalid_descriptor",
}

func host(d Description) Code {
	return New(d, LevelPermanent, SummaryInvalidArgument, ModuleHost)
}

var (
	HostInvalidString       = host(DescriptionHostInvalidString)
	HostCheckedAdd          = host(DescriptionHostCheckedAdd)
	HostTryFromInt          = host(DescriptionHostTryFromInt)
	HostTryFromBytes        = host(DescriptionHostTryFromBytes)
	HostNul                 = host(DescriptionHostNul)
	HostOutOfSpace          = host(DescriptionHostOutOfSpace)
	HostInvalidBufferRights = host(DescriptionHostInvalidBufferRights)
	HostAlignment           = host(DescriptionHostAlignment)
	HostInvalidSize         = host(DescriptionHostInvalidSize)
	HostInvalidValue        = host(DescriptionHostInvalidValue)
	HostInvalidPointer      = host(DescriptionHostInvalidPointer)
	HostInvalidDescriptor   = host(DescriptionHostInvalidDescriptor)
)

// IsHost reports whether c belongs to the host-only private range.
func (c Code) IsHost() bool {
	return c.Module() == ModuleHost && c.Description() >= DescriptionHostInvalidString
}

// Well-known kernel and OS results.
var (
	// InvalidCommand is the fixed reply for an unrecognized command id (0xD900182F).
	InvalidCommand = New(DescriptionInvalidCommand, LevelPermanent, SummaryWrongArgument, ModuleOS)
	// SessionClosed is what the kernel reports when the remote end of a session is gone (0xC920181A).
	SessionClosed = New(DescriptionSessionClosed, LevelStatus, SummaryCanceled, ModuleOS)

	NotFound       = Generic(DescriptionNotFound, SummaryNotFound)
	AlreadyExists  = Generic(DescriptionAlreadyExists, SummaryNothingHappened)
	OutOfRange     = Generic(DescriptionOutOfRange, SummaryInvalidArgument)
	TooLarge       = Generic(DescriptionTooLarge, SummaryOutOfResource)
	NotImplemented = Generic(DescriptionNotImplemented, SummaryNotSupported)
	InvalidHandle  = New(DescriptionInvalidHandle, LevelPermanent, SummaryInvalidArgument, ModuleOS)
	Timeout        = New(DescriptionTimeout, LevelPermanent, SummaryCanceled, ModuleOS)
	OutOfResource  = New(DescriptionOutOfMemory, LevelPermanent, SummaryOutOfResource, ModuleOS)
	InvalidPointer = New(DescriptionInvalidPointer, LevelPermanent, SummaryInvalidArgument, ModuleOS)
)
