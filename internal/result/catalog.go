package result

import "fmt"

// Level is the severity field.
type Level uint32

const (
	LevelSuccess      Level = 0
	LevelInfo         Level = 1
	LevelStatus       Level = 25
	LevelTemporary    Level = 26
	LevelPermanent    Level = 27
	LevelUsage        Level = 28
	LevelReinitialize Level = 29
	LevelReset        Level = 30
	LevelFatal        Level = 31
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelInfo:
		return "info"
	case LevelStatus:
		return "status"
	case LevelTemporary:
		return "temporary"
	case LevelPermanent:
		return "permanent"
	case LevelUsage:
		return "usage"
	case LevelReinitialize:
		return "reinitialize"
	case LevelReset:
		return "reset"
	case LevelFatal:
		return "fatal"
	default:
		return fmt.Sprintf("level(%d)", uint32(l))
	}
}

// Summary is the category field.
type Summary uint32

const (
	SummarySuccess         Summary = 0
	SummaryNothingHappened Summary = 1
	SummaryWouldBlock      Summary = 2
	SummaryOutOfResource   Summary = 3
	SummaryNotFound        Summary = 4
	SummaryInvalidState    Summary = 5
	SummaryNotSupported    Summary = 6
	SummaryInvalidArgument Summary = 7
	SummaryWrongArgument   Summary = 8
	SummaryCanceled        Summary = 9
	SummaryStatusChanged   Summary = 10
	SummaryInternal        Summary = 11
	SummaryInvalidResult   Summary = 63
)

func (s Summary) String() string {
	switch s {
	case SummarySuccess:
		return "success"
	case SummaryNothingHappened:
		return "nothing_happened"
	case SummaryWouldBlock:
		return "would_block"
	case SummaryOutOfResource:
		return "out_of_resource"
	case SummaryNotFound:
		return "not_found"
	case SummaryInvalidState:
		return "invalid_state"
	case SummaryNotSupported:
		return "not_supported"
	case SummaryInvalidArgument:
		return "invalid_argument"
	case SummaryWrongArgument:
		return "wrong_argument"
	case SummaryCanceled:
		return "canceled"
	case SummaryStatusChanged:
		return "status_changed"
	case SummaryInternal:
		return "internal"
	case SummaryInvalidResult:
		return "invalid_result"
	default:
		return fmt.Sprintf("summary(%d)", uint32(s))
	}
}

// Description is the detail field. Values below 1000 are module specific.
type Description uint32

const (
	DescriptionSuccess            Description = 0
	DescriptionSessionClosed      Description = 26
	DescriptionInvalidCommand     Description = 47
	DescriptionInvalidSection     Description = 1000
	DescriptionTooLarge           Description = 1001
	DescriptionNotAuthorized      Description = 1002
	DescriptionAlreadyDone        Description = 1003
	DescriptionInvalidSize        Description = 1004
	DescriptionInvalidEnumValue   Description = 1005
	DescriptionInvalidCombination Description = 1006
	DescriptionNoData             Description = 1007
	DescriptionBusy               Description = 1008
	DescriptionMisalignedAddress  Description = 1009
	DescriptionMisalignedSize     Description = 1010
	DescriptionOutOfMemory        Description = 1011
	DescriptionNotImplemented     Description = 1012
	DescriptionInvalidAddress     Description = 1013
	DescriptionInvalidPointer     Description = 1014
	DescriptionInvalidHandle      Description = 1015
	DescriptionNotInitialized     Description = 1016
	DescriptionAlreadyInitialized Description = 1017
	DescriptionNotFound           Description = 1018
	DescriptionCancelRequested    Description = 1019
	DescriptionAlreadyExists      Description = 1020
	DescriptionOutOfRange         Description = 1021
	DescriptionTimeout            Description = 1022
	DescriptionInvalidResultValue Description = 1023
)

var descriptionNames = map[Description]string{
	DescriptionSuccess:            "success",
	DescriptionSessionClosed:      "session_closed",
	DescriptionInvalidCommand:     "invalid_command",
	DescriptionInvalidSection:     "invalid_section",
	DescriptionTooLarge:           "too_large",
	DescriptionNotAuthorized:      "not_authorized",
	DescriptionAlreadyDone:        "already_done",
	DescriptionInvalidSize:        "invalid_size",
	DescriptionInvalidEnumValue:   "invalid_enum_value",
	DescriptionInvalidCombination: "invalid_combination",
	DescriptionNoData:             "no_data",
	DescriptionBusy:               "busy",
	DescriptionMisalignedAddress:  "misaligned_address",
	DescriptionMisalignedSize:     "misaligned_size",
	DescriptionOutOfMemory:        "out_of_memory",
	DescriptionNotImplemented:     "not_implemented",
	DescriptionInvalidAddress:     "invalid_address",
	DescriptionInvalidPointer:     "invalid_pointer",
	DescriptionInvalidHandle:      "invalid_handle",
	DescriptionNotInitialized:     "not_initialized",
	DescriptionAlreadyInitialized: "already_initialized",
	DescriptionNotFound:           "not_found",
	DescriptionCancelRequested:    "cancel_requested",
	DescriptionAlreadyExists:      "already_exists",
	DescriptionOutOfRange:         "out_of_range",
	DescriptionTimeout:            "timeout",
	DescriptionInvalidResultValue: "invalid_result_value",
}

func (d Description) String() string {
	if name, ok := descriptionNames[d]; ok {
		return name
	}
	if name, ok := hostDescriptionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("description(%d)", uint32(d))
}

// Module identifies the subsystem that produced a result.
type Module uint32

const (
	ModuleCommon        Module = 0
	ModuleKernel        Module = 1
	ModuleUtil          Module = 2
	ModuleFileServer    Module = 3
	ModuleLoaderServer  Module = 4
	ModuleTcb           Module = 5
	ModuleOS            Module = 6
	ModuleDbg           Module = 7
	ModuleDmnt          Module = 8
	ModulePdn           Module = 9
	ModuleGx            Module = 10
	ModuleI2C           Module = 11
	ModuleGpio          Module = 12
	ModuleDd            Module = 13
	ModuleCodec         Module = 14
	ModuleSpi           Module = 15
	ModulePxi           Module = 16
	ModuleFS            Module = 17
	ModuleDi            Module = 18
	ModuleHid           Module = 19
	ModuleCam           Module = 20
	ModulePi            Module = 21
	ModulePM            Module = 22
	ModulePMLow         Module = 23
	ModuleFsi           Module = 24
	ModuleSrv           Module = 25
	ModuleNdm           Module = 26
	ModuleNwm           Module = 27
	ModuleSoc           Module = 28
	ModuleLdr           Module = 29
	ModuleAcc           Module = 30
	ModuleRomFS         Module = 31
	ModuleAM            Module = 32
	ModuleHio           Module = 33
	ModuleUpdater       Module = 34
	ModuleMic           Module = 35
	ModuleFnd           Module = 36
	ModuleMp            Module = 37
	ModuleMpwl          Module = 38
	ModuleAC            Module = 39
	ModuleHTTP          Module = 40
	ModuleDsp           Module = 41
	ModuleSnd           Module = 42
	ModuleDlp           Module = 43
	ModuleHioLow        Module = 44
	ModuleCsnd          Module = 45
	ModuleSsl           Module = 46
	ModuleAMLow         Module = 47
	ModuleNex           Module = 48
	ModuleFriends       Module = 49
	ModuleRdt           Module = 50
	ModuleApplet        Module = 51
	ModuleNim           Module = 52
	ModulePtm           Module = 53
	ModuleMidi          Module = 54
	ModuleMc            Module = 55
	ModuleSwc           Module = 56
	ModuleFatFS         Module = 57
	ModuleNgc           Module = 58
	ModuleCard          Module = 59
	ModuleCardNor       Module = 60
	ModuleSdmc          Module = 61
	ModuleBoss          Module = 62
	ModuleDbm           Module = 63
	ModuleConfig        Module = 64
	ModulePs            Module = 65
	ModuleCec           Module = 66
	ModuleIr            Module = 67
	ModuleUds           Module = 68
	ModulePl            Module = 69
	ModuleCup           Module = 70
	ModuleGyroscope     Module = 71
	ModuleMcu           Module = 72
	ModuleNs            Module = 73
	ModuleNews          Module = 74
	ModuleRo            Module = 75
	ModuleGd            Module = 76
	ModuleCardSpi       Module = 77
	ModuleEc            Module = 78
	ModuleWebBrowser    Module = 79
	ModuleTest          Module = 80
	ModuleEnc           Module = 81
	ModulePia           Module = 82
	ModuleAct           Module = 83
	ModuleVctl          Module = 84
	ModuleOlv           Module = 85
	ModuleNeia          Module = 86
	ModuleNpns          Module = 87
	ModuleAvd           Module = 90
	ModuleL2b           Module = 91
	ModuleMvd           Module = 92
	ModuleNfc           Module = 93
	ModuleUart          Module = 94
	ModuleSpm           Module = 95
	ModuleQtm           Module = 96
	ModuleNfp           Module = 97
	ModuleHost          Module = 0xC0
	ModuleApplication   Module = 254
	ModuleInvalidResult Module = 255
)

var moduleNames = map[Module]string{
	ModuleCommon: "common", ModuleKernel: "kernel", ModuleUtil: "util",
	ModuleFileServer: "file_server", ModuleLoaderServer: "loader_server", ModuleTcb: "tcb",
	ModuleOS: "os", ModuleDbg: "dbg", ModuleDmnt: "dmnt", ModulePdn: "pdn", ModuleGx: "gx",
	ModuleI2C: "i2c", ModuleGpio: "gpio", ModuleDd: "dd", ModuleCodec: "codec", ModuleSpi: "spi",
	ModulePxi: "pxi", ModuleFS: "fs", ModuleDi: "di", ModuleHid: "hid", ModuleCam: "cam",
	ModulePi: "pi", ModulePM: "pm", ModulePMLow: "pm_low", ModuleFsi: "fsi", ModuleSrv: "srv",
	ModuleNdm: "ndm", ModuleNwm: "nwm", ModuleSoc: "soc", ModuleLdr: "ldr", ModuleAcc: "acc",
	ModuleRomFS: "romfs", ModuleAM: "am", ModuleHio: "hio", ModuleUpdater: "updater",
	ModuleMic: "mic", ModuleFnd: "fnd", ModuleMp: "mp", ModuleMpwl: "mpwl", ModuleAC: "ac",
	ModuleHTTP: "http", ModuleDsp: "dsp", ModuleSnd: "snd", ModuleDlp: "dlp",
	ModuleHioLow: "hio_low", ModuleCsnd: "csnd", ModuleSsl: "ssl", ModuleAMLow: "am_low",
	ModuleNex: "nex", ModuleFriends: "friends", ModuleRdt: "rdt", ModuleApplet: "applet",
	ModuleNim: "nim", ModulePtm: "ptm", ModuleMidi: "midi", ModuleMc: "mc", ModuleSwc: "swc",
	ModuleFatFS: "fatfs", ModuleNgc: "ngc", ModuleCard: "card", ModuleCardNor: "cardnor",
	ModuleSdmc: "sdmc", ModuleBoss: "boss", ModuleDbm: "dbm", ModuleConfig: "config",
	ModulePs: "ps", ModuleCec: "cec", ModuleIr: "ir", ModuleUds: "uds", ModulePl: "pl",
	ModuleCup: "cup", ModuleGyroscope: "gyroscope", ModuleMcu: "mcu", ModuleNs: "ns",
	ModuleNews: "news", ModuleRo: "ro", ModuleGd: "gd", ModuleCardSpi: "card_spi",
	ModuleEc: "ec", ModuleWebBrowser: "web_browser", ModuleTest: "test", ModuleEnc: "enc",
	ModulePia: "pia", ModuleAct: "act", ModuleVctl: "vctl", ModuleOlv: "olv", ModuleNeia: "neia",
	ModuleNpns: "npns", ModuleAvd: "avd", ModuleL2b: "l2b", ModuleMvd: "mvd", ModuleNfc: "nfc",
	ModuleUart: "uart", ModuleSpm: "spm", ModuleQtm: "qtm", ModuleNfp: "nfp",
	ModuleHost: "host", ModuleApplication: "application", ModuleInvalidResult: "invalid_result",
}

func (m Module) String() string {
	if name, ok := moduleNames[m]; ok {
		return name
	}
	return fmt.Sprintf("module(%d)", uint32(m))
}
