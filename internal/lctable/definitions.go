package lctable

import (
	"fmt"
	"sort"

	"github.com/spacely/limitchecker/internal/lcerr"
	"github.com/spacely/limitchecker/internal/lcfield"
)

// WatchpointDefinition is one immutable WDT entry (spec.md §3).
type WatchpointDefinition struct {
	DataType            DataType
	Operator            Operator
	MessageID           uint32
	Offset              int
	BitMask             uint32
	ComparisonValue     lcfield.Scalar
	ResultAgeWhenStale  uint16
	CustomArg           uint32
	CustomPredicateName string // looked up in the Registry when Operator == OpCustom
}

// ActionpointDefinition is one immutable ADT entry (spec.md §3).
type ActionpointDefinition struct {
	DefaultState      APState
	MaxPassiveEvents  uint16
	MaxPassFailEvents uint16
	MaxFailPassEvents uint16
	RTSId             uint16
	MaxFailsBeforeRTS uint32
	RPNEquation       []Token
	EventType         uint8
	EventID           uint16
	EventText         string
}

// Tables is the frozen, read-only pair of definition tables published by
// the table service after validation (spec.md §3, §6). WPIndex is the
// precomputed reverse index the dispatcher uses (spec.md §4.5).
type Tables struct {
	Watchpoints  []WatchpointDefinition
	Actionpoints []ActionpointDefinition
	WPIndex      map[uint32][]int
	WPsInUse     int
}

// Build validates wps/aps and freezes them into a Tables handle, including
// the MessageID -> watchpoint-index reverse index the dispatcher needs
// (spec.md §4.5). Invalid entries fail the whole load (spec.md §6).
func Build(wps []WatchpointDefinition, aps []ActionpointDefinition) (*Tables, error) {
	for i := range wps {
		if err := validateWatchpoint(&wps[i]); err != nil {
			return nil, lcerr.Kindf(lcerr.KindInvalidEnum, "watchpoint %d: %w", i, err)
		}
	}
	for i := range aps {
		if err := validateActionpoint(&aps[i], len(wps)); err != nil {
			return nil, lcerr.Kindf(lcerr.KindInvalidEnum, "actionpoint %d: %w", i, err)
		}
	}

	index := make(map[uint32][]int)
	wpsInUse := 0
	for i, wp := range wps {
		if wp.Operator != OpNone {
			wpsInUse++
		}
		index[wp.MessageID] = append(index[wp.MessageID], i)
	}
	for _, indices := range index {
		sort.Ints(indices)
	}

	return &Tables{Watchpoints: wps, Actionpoints: aps, WPIndex: index, WPsInUse: wpsInUse}, nil
}

func validateWatchpoint(wp *WatchpointDefinition) error {
	if wp.DataType == Undefined {
		return lcerr.ErrUndefinedType
	}
	size := wp.DataType.Size()
	if size == 0 || wp.Offset < 0 || wp.Offset%size != 0 {
		return lcerr.ErrAlignment
	}
	switch wp.Operator {
	case OpNone, OpLT, OpLE, OpEQ, OpNE, OpGE, OpGT:
	case OpCustom:
		if wp.CustomPredicateName == "" {
			return lcerr.ErrCustomPredicateNA
		}
	default:
		return lcerr.ErrOperatorUnknown
	}
	return nil
}

func validateActionpoint(ap *ActionpointDefinition, wpCount int) error {
	switch ap.DefaultState {
	case StateNotUsed, StateActive, StatePassive, StateDisabled, StatePermOff:
	default:
		return fmt.Errorf("default state %d out of range", ap.DefaultState)
	}
	if len(ap.RPNEquation) == 0 || len(ap.RPNEquation) > MaxRPNEquationSize {
		return fmt.Errorf("rpn equation length %d out of range", len(ap.RPNEquation))
	}
	sawEnd := false
	for _, tok := range ap.RPNEquation {
		if tok.Kind == TokEnd {
			sawEnd = true
			break
		}
		if tok.Kind == TokWatchpoint && (tok.WPIndex < 0 || tok.WPIndex >= wpCount) {
			return fmt.Errorf("rpn token references watchpoint %d out of range", tok.WPIndex)
		}
	}
	if !sawEnd {
		return lcerr.ErrRPNNoEnd
	}
	return nil
}
