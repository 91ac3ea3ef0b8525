// Package lctable holds the immutable-after-load definition tables (WDT,
// ADT) described in spec.md §3, plus the shared enumerations their entries
// and the mutable result tables in lcresult both draw on.
package lctable

import "github.com/spacely/limitchecker/internal/lcfield"

// DataType re-exports lcfield's tagged scalar type domain so table
// definitions and the field reader agree on one set of constants.
type DataType = lcfield.DataType

const (
	Undefined = lcfield.Undefined
	U8        = lcfield.U8
	I8        = lcfield.I8
	U16BE     = lcfield.U16BE
	U16LE     = lcfield.U16LE
	I16BE     = lcfield.I16BE
	I16LE     = lcfield.I16LE
	U32BE     = lcfield.U32BE
	U32LE     = lcfield.U32LE
	I32BE     = lcfield.I32BE
	I32LE     = lcfield.I32LE
	F32BE     = lcfield.F32BE
	F32LE     = lcfield.F32LE
)

// Operator is the relational (or custom) comparison a watchpoint applies
// to its decoded, masked value (spec.md §3).
type Operator uint8

const (
	OpNone Operator = iota
	OpLT
	OpLE
	OpEQ
	OpNE
	OpGE
	OpGT
	OpCustom
)

// APState is the domain shared by ActionpointDefinition.DefaultState and
// ActionpointResult.CurrentState (spec.md §3, §4.4).
type APState uint8

const (
	StateNotUsed APState = iota
	StateActive
	StatePassive
	StateDisabled
	StatePermOff
)

func (s APState) String() string {
	switch s {
	case StateNotUsed:
		return "NOT_USED"
	case StateActive:
		return "ACTIVE"
	case StatePassive:
		return "PASSIVE"
	case StateDisabled:
		return "DISABLED"
	case StatePermOff:
		return "PERMOFF"
	default:
		return "UNKNOWN"
	}
}

// LCState is the application-wide monitoring state (spec.md §3).
type LCState uint8

const (
	LCActive LCState = iota
	LCPassive
	LCDisabled
)

func (s LCState) String() string {
	switch s {
	case LCActive:
		return "ACTIVE"
	case LCPassive:
		return "PASSIVE"
	case LCDisabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// ALLIndex is the sentinel StartIndex/EndIndex/ap/wp value meaning "every
// entry", used by the sample command and by SET_AP_STATE/RESET_*_STATS
// (spec.md §4.4, §4.7).
const ALLIndex = 0xFFFF
