// Package lcwatch implements the watchpoint evaluator (W): for one
// watchpoint entry, decode the field via lcfield, compare it, and update
// the watchpoint-results record (spec.md §4.2).
package lcwatch

import (
	"math"

	"github.com/spacely/limitchecker/internal/lcclock"
	"github.com/spacely/limitchecker/internal/lcerr"
	"github.com/spacely/limitchecker/internal/lcfield"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
)

// Evaluator holds the custom-predicate registry and clock collaborator W
// needs; it carries no per-watchpoint state of its own.
type Evaluator struct {
	Registry *lctable.Registry
	Clock    lcclock.Clock
}

func New(registry *lctable.Registry, clock lcclock.Clock) *Evaluator {
	return &Evaluator{Registry: registry, Clock: clock}
}

// Evaluate runs one watchpoint against msg and updates res in place
// following spec.md §4.2's four-step procedure.
func (e *Evaluator) Evaluate(def *lctable.WatchpointDefinition, res *lcresult.WatchpointResult, msg []byte) {
	prev := res.WatchResult
	lcresult.SatAddU32(&res.EvaluationCount, 1)

	value, err := lcfield.Read(msg, def.Offset, def.DataType)
	if err != nil {
		res.WatchResult = lcresult.WatchError
		res.CountdownToStale = 0
		return
	}

	if !def.DataType.IsFloat() {
		value.Bits &= def.BitMask
	}

	pass, cerr := e.compare(def, value)
	if cerr != nil {
		res.WatchResult = lcresult.WatchError
		res.CountdownToStale = 0
		return
	}

	var newResult lcresult.WatchResult
	if pass {
		newResult = lcresult.WatchTrue
	} else {
		newResult = lcresult.WatchFalse
	}

	seconds, subseconds := e.now()
	switch newResult {
	case lcresult.WatchTrue:
		lcresult.SatAddU32(&res.CumulativeTrue, 1)
		if prev == lcresult.WatchFalse || prev == lcresult.WatchStale {
			lcresult.SatAddU32(&res.FalseToTrueCount, 1)
			res.LastFalseToTrue = lcresult.Transition{Value: value, Seconds: seconds, Subseconds: subseconds}
			res.ConsecutiveTrue = 1
		} else {
			lcresult.SatAddU32(&res.ConsecutiveTrue, 1)
		}
	case lcresult.WatchFalse:
		if prev == lcresult.WatchTrue {
			res.LastTrueToFalse = lcresult.Transition{Value: value, Seconds: seconds, Subseconds: subseconds}
		}
		res.ConsecutiveTrue = 0
	}
	res.CountdownToStale = def.ResultAgeWhenStale
	res.WatchResult = newResult
}

func (e *Evaluator) now() (uint32, uint32) {
	if e.Clock == nil {
		return 0, 0
	}
	return e.Clock.Now()
}

// compare applies def's Operator to value, dispatching to signed,
// unsigned, float, or custom-predicate comparison per spec.md §4.2.
func (e *Evaluator) compare(def *lctable.WatchpointDefinition, value lcfield.Scalar) (bool, error) {
	if def.Operator == lctable.OpCustom {
		if e.Registry == nil {
			return false, lcerr.New(lcerr.KindCustomPredicateFault, lcerr.ErrCustomPredicateNA)
		}
		pred, ok := e.Registry.Lookup(def.CustomPredicateName)
		if !ok {
			return false, lcerr.New(lcerr.KindCustomPredicateFault, lcerr.ErrCustomPredicateNA)
		}
		ok2, err := pred(value, def.CustomArg)
		if err != nil {
			return false, lcerr.New(lcerr.KindCustomPredicateFault, err)
		}
		return ok2, nil
	}

	if def.DataType.IsFloat() {
		a, b := value.Float32(), def.ComparisonValue.Float32()
		if math.IsNaN(float64(a)) || math.IsNaN(float64(b)) {
			return false, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrFloatNaN)
		}
		switch def.Operator {
		case lctable.OpLT:
			return a < b, nil
		case lctable.OpLE:
			return a <= b, nil
		case lctable.OpEQ:
			return a == b, nil
		case lctable.OpNE:
			return a != b, nil
		case lctable.OpGE:
			return a >= b, nil
		case lctable.OpGT:
			return a > b, nil
		default:
			return false, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrOperatorUnknown)
		}
	}

	if def.DataType.IsSigned() {
		a, b := value.Int64(), def.ComparisonValue.Int64()
		return compareOrdered(def.Operator, a, b)
	}

	a, b := uint64(value.Bits), uint64(def.ComparisonValue.Bits)
	return compareOrdered(def.Operator, a, b)
}

func compareOrdered[T int64 | uint64](op lctable.Operator, a, b T) (bool, error) {
	switch op {
	case lctable.OpLT:
		return a < b, nil
	case lctable.OpLE:
		return a <= b, nil
	case lctable.OpEQ:
		return a == b, nil
	case lctable.OpNE:
		return a != b, nil
	case lctable.OpGE:
		return a >= b, nil
	case lctable.OpGT:
		return a > b, nil
	case lctable.OpNone:
		return false, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrOperatorNone)
	default:
		return false, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrOperatorUnknown)
	}
}
