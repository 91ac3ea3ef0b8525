// Package lcresult holds the mutable result tables (WRT, ART) and the
// application-wide counters (spec.md §3), plus the saturating-counter
// helper every component that mutates them shares.
package lcresult

import (
	"math"

	"github.com/spacely/limitchecker/internal/lcfield"
	"github.com/spacely/limitchecker/internal/lctable"
)

// WatchResult is the ternary-plus-error outcome of one watchpoint
// evaluation (spec.md §3).
type WatchResult uint8

const (
	WatchStale WatchResult = iota
	WatchFalse
	WatchTrue
	WatchError
)

func (r WatchResult) String() string {
	switch r {
	case WatchStale:
		return "STALE"
	case WatchFalse:
		return "FALSE"
	case WatchTrue:
		return "TRUE"
	case WatchError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ActionResult is the outcome of one actionpoint's RPN evaluation
// (spec.md §3, §4.3).
type ActionResult uint8

const (
	ActionStale ActionResult = iota
	ActionPass
	ActionFail
	ActionError
)

func (r ActionResult) String() string {
	switch r {
	case ActionStale:
		return "STALE"
	case ActionPass:
		return "PASS"
	case ActionFail:
		return "FAIL"
	case ActionError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Transition records a watchpoint's most recent FALSE->TRUE or TRUE->FALSE
// crossing (spec.md §3).
type Transition struct {
	Value      lcfield.Scalar
	Seconds    uint32
	Subseconds uint32
}

// WatchpointResult is one mutable WRT entry (spec.md §3).
type WatchpointResult struct {
	WatchResult       WatchResult
	CountdownToStale  uint16
	EvaluationCount   uint32
	FalseToTrueCount  uint32
	ConsecutiveTrue   uint32
	CumulativeTrue    uint32
	LastFalseToTrue   Transition
	LastTrueToFalse   Transition
}

// ActionpointResult is one mutable ART entry (spec.md §3), plus the
// private rate-limit counters the trigger policy in lcaction needs to
// decide whether an event is actually sent (spec.md §4.4, §9 Open
// Question ii — see DESIGN.md for the resolved policy).
type ActionpointResult struct {
	ActionResult            ActionResult
	CurrentState            lctable.APState
	PassiveAPCount          uint32
	FailToPassCount         uint32
	PassToFailCount         uint32
	ConsecutiveFailCount    uint32
	CumulativeFailCount     uint32
	CumulativeRTSExecCount  uint32
	CumulativeEventMsgsSent uint32

	EventsSincePassToFail  uint32
	PassiveEventsSinceFail uint32
	RecoveryEventsSent     uint32
}

// ApplicationState is the app-wide state and scalar counter set
// (spec.md §3). These are the "six scalar counters" the RESET command
// zeroes (spec.md §4.7).
type ApplicationState struct {
	CurrentLCState     lctable.LCState
	CmdCount           uint32
	CmdErrCount        uint32
	APSampleCount      uint32
	MonitoredMsgCount  uint32
	RTSExecCount       uint32
	PassiveRTSExecCount uint32
}

// Reset zeroes the six scalar counters, including CmdCount itself
// (heritage behavior, spec.md §9 Open Question i). CurrentLCState is left
// untouched: it is app mode, not a counter.
func (a *ApplicationState) Reset() {
	a.CmdCount = 0
	a.CmdErrCount = 0
	a.APSampleCount = 0
	a.MonitoredMsgCount = 0
	a.RTSExecCount = 0
	a.PassiveRTSExecCount = 0
}

// Results is the pair of mutable result tables plus the application
// state, sized to the definition tables at bring-up (spec.md §3
// Lifecycle).
type Results struct {
	Watchpoints []WatchpointResult
	Actionpoints []ActionpointResult
	App         ApplicationState
}

// NewResults initializes WRT to STALE and ART to each AP's DefaultState,
// as required at cold-start bring-up (spec.md §3 Lifecycle).
func NewResults(tables *lctable.Tables) *Results {
	r := &Results{
		Watchpoints:  make([]WatchpointResult, len(tables.Watchpoints)),
		Actionpoints: make([]ActionpointResult, len(tables.Actionpoints)),
	}
	for i := range r.Watchpoints {
		r.Watchpoints[i].WatchResult = WatchStale
	}
	for i, ap := range tables.Actionpoints {
		r.Actionpoints[i].CurrentState = ap.DefaultState
		r.Actionpoints[i].ActionResult = ActionStale
	}
	return r
}

// SatAddU32 adds delta to *counter, saturating at math.MaxUint32 rather
// than wrapping (spec.md §3 Invariants: "Counters are saturating on
// overflow of their declared width").
func SatAddU32(counter *uint32, delta uint32) {
	if math.MaxUint32-*counter < delta {
		*counter = math.MaxUint32
		return
	}
	*counter += delta
}
