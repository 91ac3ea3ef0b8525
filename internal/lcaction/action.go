// Package lcaction implements the actionpoint evaluator (A): composes W's
// results through R for one actionpoint, drives its state machine and
// counters, and requests RTS execution when the fail threshold crosses
// (spec.md §4.4).
package lcaction

import (
	"github.com/spacely/limitchecker/internal/lcerr"
	"github.com/spacely/limitchecker/internal/lcevent"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lcrpn"
	"github.com/spacely/limitchecker/internal/lcrts"
	"github.com/spacely/limitchecker/internal/lctable"
)

// Evaluator holds the tables, mutable results, and collaborators A needs to
// sample a range of actionpoints.
type Evaluator struct {
	Tables  *lctable.Tables
	Results *lcresult.Results
	Events  lcevent.Emitter
	RTS     lcrts.Executor
}

func New(tables *lctable.Tables, results *lcresult.Results, events lcevent.Emitter, rts lcrts.Executor) *Evaluator {
	return &Evaluator{Tables: tables, Results: results, Events: events, RTS: rts}
}

// Sample implements the sample command (spec.md §4.4): first and last both
// equal to lctable.ALLIndex mean the whole [0, N) range; otherwise
// first <= last < N is required or the command is rejected outright.
// When updateAge is set, every WRT entry with a nonzero CountdownToStale is
// decremented after sampling, decaying to STALE on reaching zero.
func (e *Evaluator) Sample(first, last int, updateAge bool) error {
	n := len(e.Tables.Actionpoints)
	if first == lctable.ALLIndex && last == lctable.ALLIndex {
		first, last = 0, n-1
	} else if first < 0 || last >= n || first > last {
		return lcerr.New(lcerr.KindInvalidIndex, lcerr.ErrIndexRange)
	}

	for i := first; i <= last; i++ {
		e.sampleOne(i)
	}

	if updateAge {
		e.updateWatchpointAge()
	}
	return nil
}

func (e *Evaluator) sampleOne(i int) {
	def := &e.Tables.Actionpoints[i]
	res := &e.Results.Actionpoints[i]

	switch res.CurrentState {
	case lctable.StateNotUsed, lctable.StateDisabled, lctable.StatePermOff:
		return
	}
	if e.Results.App.CurrentLCState == lctable.LCDisabled {
		return
	}

	prev := res.ActionResult
	result, _ := lcrpn.Evaluate(def.RPNEquation, func(wp int) lcresult.WatchResult {
		return e.Results.Watchpoints[wp].WatchResult
	})
	res.ActionResult = result

	switch result {
	case lcresult.ActionFail:
		lcresult.SatAddU32(&res.CumulativeFailCount, 1)
		if prev == lcresult.ActionPass || prev == lcresult.ActionStale {
			lcresult.SatAddU32(&res.PassToFailCount, 1)
			res.ConsecutiveFailCount = 1
			res.EventsSincePassToFail = 0
			res.PassiveEventsSinceFail = 0
		} else {
			lcresult.SatAddU32(&res.ConsecutiveFailCount, 1)
		}
		e.checkTrigger(def, res)
	case lcresult.ActionPass:
		if prev == lcresult.ActionFail {
			lcresult.SatAddU32(&res.FailToPassCount, 1)
			e.emitRecovery(def, res)
		}
		res.ConsecutiveFailCount = 0
	}

	lcresult.SatAddU32(&e.Results.App.APSampleCount, 1)
}

// checkTrigger runs the trigger decision of spec.md §4.4 step 4. The RTS
// request (or its passive-mode equivalent, PassiveAPCount) still fires
// exactly once per streak, on the sample where ConsecutiveFailCount first
// reaches MaxFailsBeforeRTS — §8's universal invariant depends on that.
// But every FAIL sample from that crossing onward re-runs the event
// notification below it, so MaxPassFailEvents/MaxPassiveEvents actually
// get repeated chances to exhaust their budget within one streak instead
// of being checked once against counters that were just reset to zero
// (spec.md §9 Open Question ii — see DESIGN.md). MaxFailsBeforeRTS == 0
// disables the actionpoint's trigger outright.
func (e *Evaluator) checkTrigger(def *lctable.ActionpointDefinition, res *lcresult.ActionpointResult) {
	if def.MaxFailsBeforeRTS == 0 || res.ConsecutiveFailCount < def.MaxFailsBeforeRTS {
		return
	}
	crossing := res.ConsecutiveFailCount == def.MaxFailsBeforeRTS

	if def.MaxPassFailEvents == 0 || res.EventsSincePassToFail < uint32(def.MaxPassFailEvents) {
		e.emit(def.EventID, def.EventType, def.EventText)
		res.EventsSincePassToFail++
		lcresult.SatAddU32(&res.CumulativeEventMsgsSent, 1)
	}

	appActive := e.Results.App.CurrentLCState == lctable.LCActive
	apActive := res.CurrentState == lctable.StateActive
	if appActive && apActive {
		if crossing {
			if err := e.RTS.Request(def.RTSId); err == nil {
				lcresult.SatAddU32(&res.CumulativeRTSExecCount, 1)
				lcresult.SatAddU32(&e.Results.App.RTSExecCount, 1)
			}
		}
		return
	}

	if e.Results.App.CurrentLCState == lctable.LCPassive || res.CurrentState == lctable.StatePassive {
		if crossing {
			lcresult.SatAddU32(&res.PassiveAPCount, 1)
		}
		if def.MaxPassiveEvents == 0 || res.PassiveEventsSinceFail < uint32(def.MaxPassiveEvents) {
			lcresult.SatAddU32(&e.Results.App.PassiveRTSExecCount, 1)
			res.PassiveEventsSinceFail++
		}
	}
}

// emitRecovery sends a FAIL->PASS recovery event rate-limited by
// MaxFailPassEvents (spec.md §9 Open Question ii — policy documented in
// DESIGN.md).
func (e *Evaluator) emitRecovery(def *lctable.ActionpointDefinition, res *lcresult.ActionpointResult) {
	if def.MaxFailPassEvents != 0 && res.RecoveryEventsSent >= uint32(def.MaxFailPassEvents) {
		return
	}
	e.emit(def.EventID, uint8(lcevent.Info), def.EventText+" recovered")
	res.RecoveryEventsSent++
	lcresult.SatAddU32(&res.CumulativeEventMsgsSent, 1)
}

func (e *Evaluator) emit(id uint16, severity uint8, text string) {
	if e.Events == nil {
		return
	}
	e.Events.Emit(id, lcevent.Severity(severity), text)
}

func (e *Evaluator) updateWatchpointAge() {
	for i := range e.Results.Watchpoints {
		wp := &e.Results.Watchpoints[i]
		if wp.CountdownToStale == 0 {
			continue
		}
		wp.CountdownToStale--
		if wp.CountdownToStale == 0 {
			wp.WatchResult = lcresult.WatchStale
		}
	}
}
