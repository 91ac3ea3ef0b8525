// Package lcrpn implements the RPN evaluator (R): a three-valued postfix
// boolean machine over watchpoint atoms (spec.md §4.3).
package lcrpn

import (
	"github.com/spacely/limitchecker/internal/lcerr"
	"github.com/spacely/limitchecker/internal/lcresult"
	"github.com/spacely/limitchecker/internal/lctable"
)

// Tri is a Kleene three-valued truth value: TriFalse, TriTrue, or
// TriUnknown ("⊥", standing in for STALE atoms mid-evaluation; an ERROR
// atom ends evaluation with ActionError instead).
type Tri int8

const (
	TriFalse   Tri = 0
	TriTrue    Tri = 1
	TriUnknown Tri = -1
)

func fromWatchResult(r lcresult.WatchResult) Tri {
	switch r {
	case lcresult.WatchTrue:
		return TriTrue
	case lcresult.WatchFalse:
		return TriFalse
	default:
		return TriUnknown
	}
}

func not(a Tri) Tri {
	if a == TriUnknown {
		return TriUnknown
	}
	if a == TriTrue {
		return TriFalse
	}
	return TriTrue
}

func and(a, b Tri) Tri {
	if a == TriFalse || b == TriFalse {
		return TriFalse
	}
	if a == TriUnknown || b == TriUnknown {
		return TriUnknown
	}
	return TriTrue
}

func or(a, b Tri) Tri {
	if a == TriTrue || b == TriTrue {
		return TriTrue
	}
	if a == TriUnknown || b == TriUnknown {
		return TriUnknown
	}
	return TriFalse
}

func xor(a, b Tri) Tri {
	if a == TriUnknown || b == TriUnknown {
		return TriUnknown
	}
	if a != b {
		return TriTrue
	}
	return TriFalse
}

func equal(a, b Tri) Tri {
	if a == TriUnknown || b == TriUnknown {
		return TriUnknown
	}
	if a == b {
		return TriTrue
	}
	return TriFalse
}

// WatchLookup resolves a watchpoint index to its current result, as the
// RPN program's atoms reference it.
type WatchLookup func(wpIndex int) lcresult.WatchResult

// Evaluate interprets tokens against lookup, returning the actionpoint
// outcome per spec.md §4.3: PASS when the final value is 0, FAIL when 1,
// STALE for ⊥, ERROR for any malformed or faulted program.
func Evaluate(tokens []lctable.Token, lookup WatchLookup) (lcresult.ActionResult, error) {
	stack := make([]Tri, 0, lctable.MaxRPNEquationSize)

	push := func(v Tri) error {
		if len(stack) >= lctable.MaxRPNEquationSize {
			return lcerr.New(lcerr.KindRPNRuntime, lcerr.ErrRPNOverflow)
		}
		stack = append(stack, v)
		return nil
	}
	pop := func() (Tri, error) {
		if len(stack) == 0 {
			return 0, lcerr.New(lcerr.KindRPNRuntime, lcerr.ErrRPNUnderflow)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}

	sawEnd := false
	for _, tok := range tokens {
		switch tok.Kind {
		case lctable.TokEnd:
			sawEnd = true
		case lctable.TokWatchpoint:
			wr := lookup(tok.WPIndex)
			if wr == lcresult.WatchError {
				return lcresult.ActionError, lcerr.New(lcerr.KindRPNRuntime, lcerr.ErrRPNWatchError)
			}
			if err := push(fromWatchResult(wr)); err != nil {
				return lcresult.ActionError, err
			}
		case lctable.TokConstTrue:
			if err := push(TriTrue); err != nil {
				return lcresult.ActionError, err
			}
		case lctable.TokConstFalse:
			if err := push(TriFalse); err != nil {
				return lcresult.ActionError, err
			}
		case lctable.TokNot:
			a, err := pop()
			if err != nil {
				return lcresult.ActionError, err
			}
			if err := push(not(a)); err != nil {
				return lcresult.ActionError, err
			}
		case lctable.TokAnd, lctable.TokOr, lctable.TokXor, lctable.TokEqual:
			b, err := pop()
			if err != nil {
				return lcresult.ActionError, err
			}
			a, err := pop()
			if err != nil {
				return lcresult.ActionError, err
			}
			var result Tri
			switch tok.Kind {
			case lctable.TokAnd:
				result = and(a, b)
			case lctable.TokOr:
				result = or(a, b)
			case lctable.TokXor:
				result = xor(a, b)
			case lctable.TokEqual:
				result = equal(a, b)
			}
			if err := push(result); err != nil {
				return lcresult.ActionError, err
			}
		default:
			return lcresult.ActionError, lcerr.New(lcerr.KindRPNMalformed, lcerr.ErrRPNBadToken)
		}
		if sawEnd {
			break
		}
	}

	if !sawEnd {
		return lcresult.ActionError, lcerr.New(lcerr.KindRPNMalformed, lcerr.ErrRPNNoEnd)
	}
	if len(stack) != 1 {
		return lcresult.ActionError, lcerr.New(lcerr.KindRPNMalformed, lcerr.ErrRPNLeftover)
	}

	switch stack[0] {
	case TriFalse:
		return lcresult.ActionPass, nil
	case TriTrue:
		return lcresult.ActionFail, nil
	default:
		return lcresult.ActionStale, nil
	}
}
