// Package lcdispatch implements the dispatcher (D): demultiplexes inbound
// bus messages by MessageID to the sample command, the housekeeping
// packer, the command handler, or the watchpoint reverse index
// (spec.md §4.5).
package lcdispatch

import (
	"github.com/spacely/limitchecker/internal/lcaction"
	"github.com/spacely/limitchecker/internal/lccmd"
	"github.com/spacely/limitchecker/internal/lchk"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
	"github.com/spacely/limitchecker/internal/lcwatch"
)

// Reserved bus MessageIDs (spec.md §6). The mission interface fixes the
// actual numeric values; these are the defaults New assigns to a
// Dispatcher's *MID fields.
const (
	SampleAPMID uint32 = 0xFFF1
	SendHKMID   uint32 = 0xFFF2
	CmdMID      uint32 = 0xFFF3
)

// Dispatcher owns no state of its own beyond the routing table; it wires
// together the collaborators named in spec.md §4.5.
type Dispatcher struct {
	Tables  *lctable.Tables
	Results *lcresult.Results
	Watch   *lcwatch.Evaluator
	Action  *lcaction.Evaluator
	HK      *lchk.Packer
	Cmd     *lccmd.Handler

	SampleAPMID uint32
	SendHKMID   uint32
	CmdMID      uint32
}

// New builds a Dispatcher with the default reserved MessageIDs; override
// the *MID fields afterward if the mission interface assigns different
// values.
func New(tables *lctable.Tables, results *lcresult.Results, watch *lcwatch.Evaluator, action *lcaction.Evaluator, hk *lchk.Packer, cmd *lccmd.Handler) *Dispatcher {
	return &Dispatcher{
		Tables:      tables,
		Results:     results,
		Watch:       watch,
		Action:      action,
		HK:          hk,
		Cmd:         cmd,
		SampleAPMID: SampleAPMID,
		SendHKMID:   SendHKMID,
		CmdMID:      CmdMID,
	}
}

// SampleRequest is the decoded payload of a SampleAPMID message
// (spec.md §4.4's sample command).
type SampleRequest struct {
	StartIndex int
	EndIndex   int
	UpdateAge  bool
}

// Dispatch routes one inbound message by MessageID (spec.md §4.5). sample
// is only consulted when messageID == d.SampleAPMID; payload is the
// command payload when messageID == d.CmdMID, the telemetry payload for
// any non-reserved ID, and ignored otherwise.
func (d *Dispatcher) Dispatch(messageID uint32, payload []byte, sample SampleRequest) error {
	switch messageID {
	case d.SampleAPMID:
		return d.Action.Sample(sample.StartIndex, sample.EndIndex, sample.UpdateAge)
	case d.SendHKMID:
		return d.HK.BuildAndEmit()
	case d.CmdMID:
		return d.Cmd.Dispatch(payload)
	default:
		return d.dispatchWatchpoints(messageID, payload)
	}
}

// dispatchWatchpoints is the "any other ID" branch of spec.md §4.5: look
// up the watchpoints whose WDT MessageID equals messageID, evaluate each
// in ascending index order, and bump MonitoredMsgCount once for the whole
// message (not once per watchpoint). An ID with no registered watchpoints
// is a silent no-op.
func (d *Dispatcher) dispatchWatchpoints(messageID uint32, payload []byte) error {
	indices, ok := d.Tables.WPIndex[messageID]
	if !ok || len(indices) == 0 {
		return nil
	}
	for _, i := range indices {
		d.Watch.Evaluate(&d.Tables.Watchpoints[i], &d.Results.Watchpoints[i], payload)
	}
	lcresult.SatAddU32(&d.Results.App.MonitoredMsgCount, 1)
	return nil
}
