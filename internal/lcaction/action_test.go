package lcaction

import (
	"encoding/binary"
	"testing"

	"github.com/spacely/limitchecker/internal/lcclock"
	"github.com/spacely/limitchecker/internal/lcevent"
	"github.com/spacely/limitchecker/internal/lcfield"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
	"github.com/spacely/limitchecker/internal/lcwatch"
)

type recordingRTS struct {
	requested []uint16
}

func (r *recordingRTS) Request(id uint16) error {
	r.requested = append(r.requested, id)
	return nil
}

func buildSingleWPConfig(t *testing.T, defaultState lctable.APState) (*lctable.Tables, *lcresult.Results) {
	t.Helper()
	wps := []lctable.WatchpointDefinition{{
		DataType:           lctable.U16BE,
		Operator:           lctable.OpGT,
		MessageID:          1,
		Offset:             12,
		BitMask:            0xFFFF,
		ComparisonValue:    lcfield.Scalar{Type: lctable.U16BE, Bits: 100},
		ResultAgeWhenStale: 5,
	}}
	aps := []lctable.ActionpointDefinition{{
		DefaultState:      defaultState,
		RTSId:             7,
		MaxFailsBeforeRTS: 3,
		MaxPassFailEvents: 10,
		MaxPassiveEvents:  10,
		MaxFailPassEvents: 10,
		RPNEquation:       []lctable.Token{lctable.Watchpoint(0), lctable.End},
		EventID:           42,
	}}
	tables, err := lctable.Build(wps, aps)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	results := lcresult.NewResults(tables)
	results.App.CurrentLCState = lctable.LCActive
	return tables, results
}

func feedMessage(t *testing.T, tables *lctable.Tables, results *lcresult.Results, value uint16) {
	t.Helper()
	msg := make([]byte, 16)
	binary.BigEndian.PutUint16(msg[12:], value)
	w := lcwatch.New(nil, lcclock.Fixed{})
	w.Evaluate(&tables.Watchpoints[0], &results.Watchpoints[0], msg)
}

func TestSingleWPTransitionTriggersRTS(t *testing.T) {
	tables, results := buildSingleWPConfig(t, lctable.StateActive)
	rts := &recordingRTS{}
	ev := New(tables, results, nil, rts)

	for i := 0; i < 3; i++ {
		feedMessage(t, tables, results, 150)
		if err := ev.Sample(0, 0, false); err != nil {
			t.Fatalf("Sample: %v", err)
		}
	}

	ap := &results.Actionpoints[0]
	if len(rts.requested) != 1 || rts.requested[0] != 7 {
		t.Fatalf("rts requests = %v, want exactly one request for id 7", rts.requested)
	}
	if ap.CumulativeRTSExecCount != 1 {
		t.Errorf("CumulativeRTSExecCount = %d, want 1", ap.CumulativeRTSExecCount)
	}
	if ap.ConsecutiveFailCount != 3 {
		t.Errorf("ConsecutiveFailCount = %d, want 3", ap.ConsecutiveFailCount)
	}
	if ap.CumulativeFailCount != 3 {
		t.Errorf("CumulativeFailCount = %d, want 3", ap.CumulativeFailCount)
	}
	if ap.CumulativeEventMsgsSent != 1 {
		t.Errorf("CumulativeEventMsgsSent = %d, want 1", ap.CumulativeEventMsgsSent)
	}
}

func TestPassiveSuppression(t *testing.T) {
	tables, results := buildSingleWPConfig(t, lctable.StatePassive)
	rts := &recordingRTS{}
	ev := New(tables, results, nil, rts)

	for i := 0; i < 3; i++ {
		feedMessage(t, tables, results, 150)
		if err := ev.Sample(0, 0, false); err != nil {
			t.Fatalf("Sample: %v", err)
		}
	}

	ap := &results.Actionpoints[0]
	if len(rts.requested) != 0 {
		t.Fatalf("rts requests = %v, want none", rts.requested)
	}
	if ap.PassiveAPCount != 1 {
		t.Errorf("PassiveAPCount = %d, want 1", ap.PassiveAPCount)
	}
	if results.App.PassiveRTSExecCount != 1 {
		t.Errorf("PassiveRTSExecCount = %d, want 1", results.App.PassiveRTSExecCount)
	}
	if ap.CumulativeRTSExecCount != 0 {
		t.Errorf("CumulativeRTSExecCount = %d, want 0", ap.CumulativeRTSExecCount)
	}
}

// Per §4.4 a sample command evaluates actionpoints before it walks the age
// sweep, so a watchpoint that decays to STALE on sample N is only reflected
// in an actionpoint's RPN result on sample N+1, once that AP is sampled
// again against the now-stale watchpoint (see DESIGN.md).
func TestStalenessSweep(t *testing.T) {
	tables, results := buildSingleWPConfig(t, lctable.StateActive)
	ev := New(tables, results, nil, &recordingRTS{})

	feedMessage(t, tables, results, 150)
	for i := 0; i < 5; i++ {
		if err := ev.Sample(0, 0, true); err != nil {
			t.Fatalf("Sample: %v", err)
		}
	}

	wp := &results.Watchpoints[0]
	if wp.WatchResult != lcresult.WatchStale {
		t.Errorf("WatchResult = %v, want STALE", wp.WatchResult)
	}

	if err := ev.Sample(0, 0, true); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	ap := &results.Actionpoints[0]
	if ap.ActionResult != lcresult.ActionStale {
		t.Errorf("ActionResult = %v, want STALE", ap.ActionResult)
	}
	if ap.ConsecutiveFailCount != 5 {
		t.Errorf("ConsecutiveFailCount = %d, want unchanged by the STALE sample", ap.ConsecutiveFailCount)
	}
}

func TestSampleAllIndex(t *testing.T) {
	tables, results := buildSingleWPConfig(t, lctable.StateActive)
	ev := New(tables, results, nil, &recordingRTS{})
	if err := ev.Sample(lctable.ALLIndex, lctable.ALLIndex, false); err != nil {
		t.Fatalf("Sample(ALL, ALL): %v", err)
	}
}

func TestSampleRejectsBadRange(t *testing.T) {
	tables, results := buildSingleWPConfig(t, lctable.StateActive)
	ev := New(tables, results, nil, &recordingRTS{})
	if err := ev.Sample(3, 1, false); err == nil {
		t.Fatal("expected rejection for first > last")
	}
	if err := ev.Sample(0, 5, false); err == nil {
		t.Fatal("expected rejection for last >= N")
	}
}

type countingEmitter struct{ count int }

func (c *countingEmitter) Emit(id uint16, severity lcevent.Severity, text string) {
	c.count++
}

// TestFailureEventRateLimited proves MaxPassFailEvents actually caps
// repeat event emission across a long failing streak, rather than being
// checked against a counter that's always zero (spec.md §9 Open
// Question ii — see DESIGN.md). The RTS request stays capped at exactly
// one regardless of how long the streak runs.
func TestFailureEventRateLimited(t *testing.T) {
	tables, results := buildSingleWPConfig(t, lctable.StateActive)
	tables.Actionpoints[0].MaxPassFailEvents = 2
	rts := &recordingRTS{}
	events := &countingEmitter{}
	ev := New(tables, results, events, rts)

	for i := 0; i < 8; i++ {
		feedMessage(t, tables, results, 150)
		if err := ev.Sample(0, 0, false); err != nil {
			t.Fatalf("Sample: %v", err)
		}
	}

	ap := &results.Actionpoints[0]
	if ap.ConsecutiveFailCount != 8 {
		t.Fatalf("ConsecutiveFailCount = %d, want 8", ap.ConsecutiveFailCount)
	}
	if len(rts.requested) != 1 {
		t.Errorf("rts requests = %v, want exactly one despite the 8-sample streak", rts.requested)
	}
	if events.count != 2 {
		t.Errorf("events emitted = %d, want 2 (capped by MaxPassFailEvents)", events.count)
	}
	if ap.CumulativeEventMsgsSent != 2 {
		t.Errorf("CumulativeEventMsgsSent = %d, want 2", ap.CumulativeEventMsgsSent)
	}
}
