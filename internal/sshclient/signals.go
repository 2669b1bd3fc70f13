package sshclient

// Signal ids index the table below. The order is fixed.
const (
	SignalHUP = iota
	SignalINT
	SignalQUIT
	SignalILL
	SignalTRAP
	SignalABRT
	SignalBUS
	SignalFPE
	SignalKILL
	SignalUSR1
	SignalSEGV
	SignalUSR2
	SignalPIPE
	SignalALRM
	SignalTERM
	SignalSTKFLT
	SignalCHLD
	SignalCONT
	SignalSTOP
	SignalTSTP
	SignalTTIN
	SignalTTOU
	SignalURG
	SignalXCPU
	SignalXFSZ
	SignalVTALRM
	SignalPROF
	SignalWINCH
	SignalPOLL
	SignalPWR
	SignalSYS
)

// signalNames are sent without the "SIG" prefix, as RFC 4254 6.9 expects.
var signalNames = [...]string{
	"HUP", "INT", "QUIT", "ILL", "TRAP", "ABRT", "BUS", "FPE",
	"KILL", "USR1", "SEGV", "USR2", "PIPE", "ALRM", "TERM", "STKFLT",
	"CHLD", "CONT", "STOP", "TSTP", "TTIN", "TTOU", "URG", "XCPU",
	"XFSZ", "VTALRM", "PROF", "WINCH", "POLL", "PWR", "SYS",
}

// SignalCount is the number of entries in the signal table.
const SignalCount = len(signalNames)

// SignalName returns the wire name for id.
func SignalName(id int) (string, bool) {
	if id < 0 || id >= len(signalNames) {
		return "", false
	}
	return signalNames[id], true
}

// SignalID looks up a wire name, with or without the "SIG" prefix.
func SignalID(name string) (int, bool) {
	if len(name) > 3 && name[:3] == "SIG" {
		name = name[3:]
	}
	for i, n := range signalNames {
		if n == name {
			return i, true
		}
	}
	return 0, false
}
