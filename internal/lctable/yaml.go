// Loading WDT/ADT table images from YAML documents (spec.md §6's table
// service) and the schema version gate that decides whether an image is
// new enough for this binary to load.
package lctable

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/spacely/limitchecker/internal/lcfield"
)

// SchemaVersion is a table image's major.minor.patch, compared the way a
// kernel-version gate compares (major, minor, patch) tuples before
// deciding whether a feature is available.
type SchemaVersion struct {
	Major int `yaml:"major"`
	Minor int `yaml:"minor"`
	Patch int `yaml:"patch"`
}

// Compare returns -1, 0, or 1 as a orders before, equal to, or after b.
func (a SchemaVersion) Compare(b SchemaVersion) int {
	switch {
	case a.Major != b.Major:
		return sign(a.Major - b.Major)
	case a.Minor != b.Minor:
		return sign(a.Minor - b.Minor)
	default:
		return sign(a.Patch - b.Patch)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// MinSchemaVersion is the oldest table-image schema this binary can load.
var MinSchemaVersion = SchemaVersion{Major: 1, Minor: 0, Patch: 0}

// yamlScalar is the wire form of a ComparisonValue: an integer or float
// literal, typed by the watchpoint's data_type and decoded into an
// lcfield.Scalar.
type yamlScalar struct {
	Int   *int64   `yaml:"int,omitempty"`
	Float *float64 `yaml:"float,omitempty"`
}

func (s yamlScalar) toScalar(dt DataType) (scalarValue, error) {
	if dt.IsFloat() {
		if s.Float == nil {
			return scalarValue{}, fmt.Errorf("comparison_value: expected float for %v", dt)
		}
		return scalarValue{dataType: dt, asFloat: *s.Float}, nil
	}
	if s.Int == nil {
		return scalarValue{}, fmt.Errorf("comparison_value: expected int for %v", dt)
	}
	return scalarValue{dataType: dt, asInt: *s.Int}, nil
}

// scalarValue is an intermediate, pre-bit-packed form of a comparison
// constant; toFieldScalar folds it into the lcfield.Scalar representation the
// definition tables store.
type scalarValue struct {
	dataType DataType
	asInt    int64
	asFloat  float64
}

type yamlWatchpoint struct {
	DataType            string     `yaml:"data_type"`
	Operator            string     `yaml:"operator"`
	MessageID           uint32     `yaml:"message_id"`
	Offset              int        `yaml:"offset"`
	BitMask             uint32     `yaml:"bit_mask"`
	ComparisonValue     yamlScalar `yaml:"comparison_value"`
	ResultAgeWhenStale  uint16     `yaml:"result_age_when_stale"`
	CustomArg           uint32     `yaml:"custom_arg"`
	CustomPredicateName string     `yaml:"custom_predicate_name"`
}

type yamlActionpoint struct {
	DefaultState      string   `yaml:"default_state"`
	MaxPassiveEvents  uint16   `yaml:"max_passive_events"`
	MaxPassFailEvents uint16   `yaml:"max_pass_fail_events"`
	MaxFailPassEvents uint16   `yaml:"max_fail_pass_events"`
	RTSId             uint16   `yaml:"rts_id"`
	MaxFailsBeforeRTS uint32   `yaml:"max_fails_before_rts"`
	RPNEquation       []string `yaml:"rpn_equation"`
	EventType         uint8    `yaml:"event_type"`
	EventID           uint16   `yaml:"event_id"`
	EventText         string   `yaml:"event_text"`
}

// Image is the decoded form of one WDT+ADT table image (spec.md §6).
type Image struct {
	Schema       SchemaVersion     `yaml:"schema"`
	Watchpoints  []yamlWatchpoint  `yaml:"watchpoints"`
	Actionpoints []yamlActionpoint `yaml:"actionpoints"`
}

var dataTypeNames = map[string]DataType{
	"u8": U8, "i8": I8,
	"u16be": U16BE, "u16le": U16LE, "i16be": I16BE, "i16le": I16LE,
	"u32be": U32BE, "u32le": U32LE, "i32be": I32BE, "i32le": I32LE,
	"f32be": F32BE, "f32le": F32LE,
}

var operatorNames = map[string]Operator{
	"<": OpLT, "<=": OpLE, "==": OpEQ, "!=": OpNE, ">=": OpGE, ">": OpGT,
	"custom": OpCustom, "none": OpNone,
}

var apStateNames = map[string]APState{
	"NOT_USED": StateNotUsed, "ACTIVE": StateActive, "PASSIVE": StatePassive,
	"DISABLED": StateDisabled, "PERMOFF": StatePermOff,
}

var rpnTokenNames = map[string]TokenKind{
	"TRUE": TokConstTrue, "FALSE": TokConstFalse, "NOT": TokNot,
	"AND": TokAnd, "OR": TokOr, "XOR": TokXor, "EQUAL": TokEqual, "END": TokEnd,
}

// toFieldScalar folds a decoded YAML literal into the 32-bit widened
// representation lcfield.Scalar and the comparator both expect.
func toFieldScalar(sv scalarValue) lcfield.Scalar {
	if sv.dataType.IsFloat() {
		return lcfield.Scalar{Type: sv.dataType, Bits: math.Float32bits(float32(sv.asFloat))}
	}
	if sv.dataType.IsSigned() {
		return lcfield.Scalar{Type: sv.dataType, Bits: uint32(int32(sv.asInt))}
	}
	return lcfield.Scalar{Type: sv.dataType, Bits: uint32(sv.asInt)}
}

// LoadImage decodes raw YAML bytes into validated Tables, enforcing
// MinSchemaVersion before attempting to parse the rest (spec.md §6: the
// table service validates before publishing read-only handles).
func LoadImage(raw []byte) (*Tables, error) {
	var img Image
	if err := yaml.Unmarshal(raw, &img); err != nil {
		return nil, fmt.Errorf("decode table image: %w", err)
	}
	if img.Schema.Compare(MinSchemaVersion) < 0 {
		return nil, fmt.Errorf("table image schema %+v older than minimum %+v", img.Schema, MinSchemaVersion)
	}

	wps := make([]WatchpointDefinition, len(img.Watchpoints))
	for i, w := range img.Watchpoints {
		dt, ok := dataTypeNames[w.DataType]
		if !ok {
			return nil, fmt.Errorf("watchpoint %d: unknown data_type %q", i, w.DataType)
		}
		op, ok := operatorNames[w.Operator]
		if !ok {
			return nil, fmt.Errorf("watchpoint %d: unknown operator %q", i, w.Operator)
		}
		sv, err := w.ComparisonValue.toScalar(dt)
		if err != nil {
			return nil, fmt.Errorf("watchpoint %d: %w", i, err)
		}
		wps[i] = WatchpointDefinition{
			DataType:            dt,
			Operator:            op,
			MessageID:           w.MessageID,
			Offset:              w.Offset,
			BitMask:             w.BitMask,
			ComparisonValue:     toFieldScalar(sv),
			ResultAgeWhenStale:  w.ResultAgeWhenStale,
			CustomArg:           w.CustomArg,
			CustomPredicateName: w.CustomPredicateName,
		}
	}

	aps := make([]ActionpointDefinition, len(img.Actionpoints))
	for i, a := range img.Actionpoints {
		state, ok := apStateNames[a.DefaultState]
		if !ok {
			return nil, fmt.Errorf("actionpoint %d: unknown default_state %q", i, a.DefaultState)
		}
		tokens, err := parseRPN(a.RPNEquation)
		if err != nil {
			return nil, fmt.Errorf("actionpoint %d: %w", i, err)
		}
		aps[i] = ActionpointDefinition{
			DefaultState:      state,
			MaxPassiveEvents:  a.MaxPassiveEvents,
			MaxPassFailEvents: a.MaxPassFailEvents,
			MaxFailPassEvents: a.MaxFailPassEvents,
			RTSId:             a.RTSId,
			MaxFailsBeforeRTS: a.MaxFailsBeforeRTS,
			RPNEquation:       tokens,
			EventType:         a.EventType,
			EventID:           a.EventID,
			EventText:         a.EventText,
		}
	}

	return Build(wps, aps)
}

// parseRPN turns a sequence of textual tokens ("wp:3", "AND", "END", ...)
// into the fixed-opcode Token stream.
func parseRPN(raw []string) ([]Token, error) {
	tokens := make([]Token, 0, len(raw))
	for _, tok := range raw {
		if len(tok) > 3 && tok[:3] == "wp:" {
			var idx int
			if _, err := fmt.Sscanf(tok[3:], "%d", &idx); err != nil {
				return nil, fmt.Errorf("bad watchpoint token %q: %w", tok, err)
			}
			tokens = append(tokens, Watchpoint(idx))
			continue
		}
		kind, ok := rpnTokenNames[tok]
		if !ok {
			return nil, fmt.Errorf("unknown rpn token %q", tok)
		}
		tokens = append(tokens, Token{Kind: kind})
	}
	return tokens, nil
}
