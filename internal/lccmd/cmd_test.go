package lccmd

import (
	"encoding/binary"
	"testing"

	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
)

func buildHandler(t *testing.T, defaultStates ...lctable.APState) (*Handler, *lctable.Tables, *lcresult.Results) {
	t.Helper()
	wps := []lctable.WatchpointDefinition{{DataType: lctable.U8, Operator: lctable.OpNone}}
	aps := make([]lctable.ActionpointDefinition, len(defaultStates))
	for i, st := range defaultStates {
		aps[i] = lctable.ActionpointDefinition{DefaultState: st, RPNEquation: []lctable.Token{lctable.ConstTrue, lctable.End}}
	}
	tables, err := lctable.Build(wps, aps)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	results := lcresult.NewResults(tables)
	return New(tables, results, nil), tables, results
}

func ap2Payload(fn uint8, ap uint16, state uint8) []byte {
	buf := make([]byte, 4)
	buf[0] = fn
	binary.BigEndian.PutUint16(buf[1:3], ap)
	buf[3] = state
	return buf
}

func ap1Payload(fn uint8, ap uint16) []byte {
	buf := make([]byte, 3)
	buf[0] = fn
	binary.BigEndian.PutUint16(buf[1:3], ap)
	return buf
}

// TestPermoffProtection covers scenario 5: AP2 DISABLED -> PERMOFF via
// SetAPPermOff, then SetAPState(2, ACTIVE) must be rejected and the state
// must remain PERMOFF.
func TestPermoffProtection(t *testing.T) {
	h, _, results := buildHandler(t, lctable.StateNotUsed, lctable.StateNotUsed, lctable.StateDisabled)

	if err := h.Dispatch(ap1Payload(FuncSetAPPermOff, 2)); err != nil {
		t.Fatalf("SetAPPermOff: %v", err)
	}
	if results.Actionpoints[2].CurrentState != lctable.StatePermOff {
		t.Fatalf("state = %v, want PERMOFF", results.Actionpoints[2].CurrentState)
	}
	if results.App.CmdCount != 1 {
		t.Errorf("CmdCount = %d, want 1", results.App.CmdCount)
	}

	err := h.Dispatch(ap2Payload(FuncSetAPState, 2, uint8(lctable.StateActive)))
	if err == nil {
		t.Fatal("expected SetAPState on PERMOFF ap to be rejected")
	}
	if results.Actionpoints[2].CurrentState != lctable.StatePermOff {
		t.Errorf("state = %v, want still PERMOFF", results.Actionpoints[2].CurrentState)
	}
	if results.App.CmdErrCount != 1 {
		t.Errorf("CmdErrCount = %d, want 1", results.App.CmdErrCount)
	}
}

func TestSetAPPermOffRejectsAll(t *testing.T) {
	h, _, results := buildHandler(t, lctable.StateDisabled)
	err := h.Dispatch(ap1Payload(FuncSetAPPermOff, lctable.ALLIndex))
	if err == nil {
		t.Fatal("expected ALL to be rejected for SetAPPermOff")
	}
	if results.App.CmdErrCount != 1 {
		t.Errorf("CmdErrCount = %d, want 1", results.App.CmdErrCount)
	}
}

// TestSetAPStateAllSkipsStickyStates covers the heritage allow-all
// semantics of §8: SetAPState with ap=ALL still bumps CmdCount even when
// every AP is NOT_USED/PERMOFF and none actually changes.
func TestSetAPStateAllSkipsStickyStates(t *testing.T) {
	h, _, results := buildHandler(t, lctable.StateNotUsed, lctable.StatePermOff)
	err := h.Dispatch(ap2Payload(FuncSetAPState, lctable.ALLIndex, uint8(lctable.StateActive)))
	if err != nil {
		t.Fatalf("SetAPState(ALL): %v", err)
	}
	if results.Actionpoints[0].CurrentState != lctable.StateNotUsed {
		t.Errorf("ap0 state = %v, want unchanged NOT_USED", results.Actionpoints[0].CurrentState)
	}
	if results.Actionpoints[1].CurrentState != lctable.StatePermOff {
		t.Errorf("ap1 state = %v, want unchanged PERMOFF", results.Actionpoints[1].CurrentState)
	}
	if results.App.CmdCount != 1 {
		t.Errorf("CmdCount = %d, want 1 (heritage allow-all semantics)", results.App.CmdCount)
	}
	if results.App.CmdErrCount != 0 {
		t.Errorf("CmdErrCount = %d, want 0", results.App.CmdErrCount)
	}
}

// TestSetAPStateSingleStickyIsNoOp covers §8's testable property that a
// single-index SetAPState targeting a NOT_USED/PERMOFF AP leaves state
// and CmdErrCount unchanged, rather than rejecting (spec.md §9 Open
// Question iii — see DESIGN.md).
func TestSetAPStateSingleStickyIsNoOp(t *testing.T) {
	h, _, results := buildHandler(t, lctable.StateNotUsed)
	err := h.Dispatch(ap2Payload(FuncSetAPState, 0, uint8(lctable.StateActive)))
	if err != nil {
		t.Fatalf("SetAPState(single sticky): %v", err)
	}
	if results.Actionpoints[0].CurrentState != lctable.StateNotUsed {
		t.Errorf("ap0 state = %v, want unchanged NOT_USED", results.Actionpoints[0].CurrentState)
	}
	if results.App.CmdErrCount != 0 {
		t.Errorf("CmdErrCount = %d, want 0", results.App.CmdErrCount)
	}
	if results.App.CmdCount != 1 {
		t.Errorf("CmdCount = %d, want 1", results.App.CmdCount)
	}
}

func TestLengthMismatchLeavesStateUntouched(t *testing.T) {
	h, _, results := buildHandler(t, lctable.StateActive)
	before := results.Actionpoints[0].CurrentState
	err := h.Dispatch([]byte{FuncSetAPState, 0, 0})
	if err == nil {
		t.Fatal("expected length error")
	}
	if results.Actionpoints[0].CurrentState != before {
		t.Error("state must not change on a length-mismatched command")
	}
	if results.App.CmdErrCount != 1 {
		t.Errorf("CmdErrCount = %d, want 1", results.App.CmdErrCount)
	}
}

func TestResetZeroesCmdCountHeritage(t *testing.T) {
	h, _, results := buildHandler(t, lctable.StateActive)
	if err := h.Dispatch([]byte{FuncNoop}); err != nil {
		t.Fatalf("noop: %v", err)
	}
	if results.App.CmdCount != 1 {
		t.Fatalf("CmdCount = %d, want 1 before reset", results.App.CmdCount)
	}
	if err := h.Dispatch([]byte{FuncReset}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if results.App.CmdCount != 0 {
		t.Errorf("CmdCount = %d, want 0 after RESET (heritage behavior)", results.App.CmdCount)
	}
}

func TestResetAPStatsPreservesCurrentResultAndState(t *testing.T) {
	h, _, results := buildHandler(t, lctable.StateActive)
	results.Actionpoints[0].CumulativeFailCount = 9
	results.Actionpoints[0].ActionResult = lcresult.ActionFail
	results.Actionpoints[0].CurrentState = lctable.StatePassive

	if err := h.Dispatch(ap1Payload(FuncResetAPStats, 0)); err != nil {
		t.Fatalf("ResetAPStats: %v", err)
	}
	if results.Actionpoints[0].CumulativeFailCount != 0 {
		t.Errorf("CumulativeFailCount = %d, want 0", results.Actionpoints[0].CumulativeFailCount)
	}
	if results.Actionpoints[0].ActionResult != lcresult.ActionFail {
		t.Errorf("ActionResult changed, want preserved FAIL")
	}
	if results.Actionpoints[0].CurrentState != lctable.StatePassive {
		t.Errorf("CurrentState changed, want preserved PASSIVE")
	}
}
