// Package lccmd implements the command handler (C): validates and applies
// state-changing commands against the actionpoint/watchpoint result
// tables and the application state (spec.md §4.7).
package lccmd

import (
	"encoding/binary"
	"fmt"

	"github.com/spacely/limitchecker/internal/lcevent"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
)

// Function codes fixed by the mission interface (spec.md §6).
const (
	FuncNoop          uint8 = 0
	FuncReset         uint8 = 1
	FuncSetLCState    uint8 = 2
	FuncSetAPState    uint8 = 3
	FuncSetAPPermOff  uint8 = 4
	FuncResetAPStats  uint8 = 5
	FuncResetWPStats  uint8 = 6
)

// Version is reported by NOOP; stamped at build time for the real
// application, fixed here for determinism.
const Version = "lc-1.0"

// Handler owns the command dispatch table and the mutable state it may
// change (spec.md §4.7).
type Handler struct {
	Tables  *lctable.Tables
	Results *lcresult.Results
	Events  lcevent.Emitter
}

func New(tables *lctable.Tables, results *lcresult.Results, events lcevent.Emitter) *Handler {
	return &Handler{Tables: tables, Results: results, Events: events}
}

// Dispatch decodes payload's function code and routes to the matching
// command, per spec.md §4.7. Every branch verifies its own fixed length
// first; a mismatch bumps CmdErrCount and emits a length error without
// touching any command-specific state.
func (h *Handler) Dispatch(payload []byte) error {
	if len(payload) < 1 {
		return h.lengthError(0, 1)
	}
	fn := payload[0]
	args := payload[1:]

	switch fn {
	case FuncNoop:
		return h.noop(args)
	case FuncReset:
		return h.reset(args)
	case FuncSetLCState:
		return h.setLCState(args)
	case FuncSetAPState:
		return h.setAPState(args)
	case FuncSetAPPermOff:
		return h.setAPPermOff(args)
	case FuncResetAPStats:
		return h.resetAPStats(args)
	case FuncResetWPStats:
		return h.resetWPStats(args)
	default:
		return h.reject(fmt.Sprintf("unknown function code %d", fn))
	}
}

func (h *Handler) lengthError(got, want int) error {
	lcresult.SatAddU32(&h.Results.App.CmdErrCount, 1)
	h.emit(lcevent.Error, fmt.Sprintf("command length %d, want %d", got, want))
	return fmt.Errorf("command length %d, want %d", got, want)
}

func (h *Handler) reject(reason string) error {
	lcresult.SatAddU32(&h.Results.App.CmdErrCount, 1)
	h.emit(lcevent.Error, reason)
	return fmt.Errorf("command rejected: %s", reason)
}

func (h *Handler) emit(sev lcevent.Severity, text string) {
	if h.Events == nil {
		return
	}
	h.Events.Emit(0, sev, text)
}

func (h *Handler) noop(args []byte) error {
	if len(args) != 0 {
		return h.lengthError(len(args), 0)
	}
	lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
	h.emit(lcevent.Info, "lc "+Version)
	return nil
}

// reset zeroes the six scalar counters, CmdCount included (heritage
// behavior, spec.md §9 Open Question i, §4.7).
func (h *Handler) reset(args []byte) error {
	if len(args) != 0 {
		return h.lengthError(len(args), 0)
	}
	h.Results.App.Reset()
	return nil
}

func (h *Handler) setLCState(args []byte) error {
	if len(args) != 1 {
		return h.lengthError(len(args), 1)
	}
	state := lctable.LCState(args[0])
	switch state {
	case lctable.LCActive, lctable.LCPassive, lctable.LCDisabled:
	default:
		return h.reject(fmt.Sprintf("invalid LC state %d", args[0]))
	}
	h.Results.App.CurrentLCState = state
	lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
	return nil
}

func apIndexRange(args []byte) (uint16, uint8, error) {
	if len(args) != 3 {
		return 0, 0, fmt.Errorf("expected 3 bytes, got %d", len(args))
	}
	return binary.BigEndian.Uint16(args[0:2]), args[2], nil
}

// setAPState applies SET_AP_STATE (spec.md §4.7): ap = ALLIndex touches
// every AP whose current state is neither NOT_USED nor PERMOFF, silently
// skipping sticky ones; a single index targeting a sticky AP is the same
// silent no-op rather than a reject, matching §8's testable property that
// state and CmdErrCount are both unchanged for that case (spec.md §9 Open
// Question iii — see DESIGN.md). Success bumps CmdCount exactly once
// regardless of how many APs actually moved.
func (h *Handler) setAPState(args []byte) error {
	ap, newRaw, err := apIndexRange(args)
	if err != nil {
		return h.lengthError(len(args), 3)
	}
	newState := lctable.APState(newRaw)
	switch newState {
	case lctable.StateActive, lctable.StatePassive, lctable.StateDisabled:
	default:
		return h.reject(fmt.Sprintf("invalid target AP state %d", newRaw))
	}

	if ap == lctable.ALLIndex {
		for i := range h.Results.Actionpoints {
			st := h.Results.Actionpoints[i].CurrentState
			if st == lctable.StateNotUsed || st == lctable.StatePermOff {
				continue
			}
			h.Results.Actionpoints[i].CurrentState = newState
		}
		lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
		return nil
	}

	if int(ap) >= len(h.Results.Actionpoints) {
		return h.reject(fmt.Sprintf("ap index %d out of range", ap))
	}
	st := h.Results.Actionpoints[ap].CurrentState
	if st == lctable.StateNotUsed || st == lctable.StatePermOff {
		lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
		return nil
	}
	h.Results.Actionpoints[ap].CurrentState = newState
	lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
	return nil
}

// setAPPermOff applies SET_AP_PERMOFF (spec.md §4.7): ap = ALLIndex is
// invalid outright; a single AP must currently be DISABLED.
func (h *Handler) setAPPermOff(args []byte) error {
	if len(args) != 2 {
		return h.lengthError(len(args), 2)
	}
	ap := binary.BigEndian.Uint16(args)
	if ap == lctable.ALLIndex {
		return h.reject("SET_AP_PERMOFF does not accept ALL_ACTIONPOINTS")
	}
	if int(ap) >= len(h.Results.Actionpoints) {
		return h.reject(fmt.Sprintf("ap index %d out of range", ap))
	}
	if h.Results.Actionpoints[ap].CurrentState != lctable.StateDisabled {
		return h.reject(fmt.Sprintf("ap %d must be DISABLED to go PERMOFF", ap))
	}
	h.Results.Actionpoints[ap].CurrentState = lctable.StatePermOff
	lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
	return nil
}

// resetAPStats applies RESET_AP_STATS: ALLIndex or a single index < N;
// resets only counters, leaving ActionResult and CurrentState untouched.
func (h *Handler) resetAPStats(args []byte) error {
	if len(args) != 2 {
		return h.lengthError(len(args), 2)
	}
	ap := binary.BigEndian.Uint16(args)
	if ap == lctable.ALLIndex {
		for i := range h.Results.Actionpoints {
			resetAPCounters(&h.Results.Actionpoints[i])
		}
		lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
		return nil
	}
	if int(ap) >= len(h.Results.Actionpoints) {
		return h.reject(fmt.Sprintf("ap index %d out of range", ap))
	}
	resetAPCounters(&h.Results.Actionpoints[ap])
	lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
	return nil
}

func resetAPCounters(ar *lcresult.ActionpointResult) {
	ar.PassiveAPCount = 0
	ar.FailToPassCount = 0
	ar.PassToFailCount = 0
	ar.ConsecutiveFailCount = 0
	ar.CumulativeFailCount = 0
	ar.CumulativeRTSExecCount = 0
	ar.CumulativeEventMsgsSent = 0
}

// resetWPStats applies RESET_WP_STATS: ALLIndex or a single index < N;
// resets only counters, leaving WatchResult and transitions untouched.
func (h *Handler) resetWPStats(args []byte) error {
	if len(args) != 2 {
		return h.lengthError(len(args), 2)
	}
	wp := binary.BigEndian.Uint16(args)
	if wp == lctable.ALLIndex {
		for i := range h.Results.Watchpoints {
			resetWPCounters(&h.Results.Watchpoints[i])
		}
		lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
		return nil
	}
	if int(wp) >= len(h.Results.Watchpoints) {
		return h.reject(fmt.Sprintf("wp index %d out of range", wp))
	}
	resetWPCounters(&h.Results.Watchpoints[wp])
	lcresult.SatAddU32(&h.Results.App.CmdCount, 1)
	return nil
}

func resetWPCounters(wr *lcresult.WatchpointResult) {
	wr.EvaluationCount = 0
	wr.FalseToTrueCount = 0
	wr.ConsecutiveTrue = 0
	wr.CumulativeTrue = 0
}
