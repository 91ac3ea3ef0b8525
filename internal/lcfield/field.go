// Package lcfield implements the typed-field reader (F): it extracts a
// scalar of one of eight declared types from a byte offset within a
// telemetry message payload (spec.md §4.1).
package lcfield

import (
	"encoding/binary"
	"math"

	"github.com/spacely/limitchecker/internal/lcerr"
)

// DataType identifies a watchpoint's field type, with endianness folded
// into the tag for every multi-byte type per spec.md §3.
type DataType uint8

const (
	Undefined DataType = iota
	U8
	I8
	U16BE
	U16LE
	I16BE
	I16LE
	U32BE
	U32LE
	I32BE
	I32LE
	F32BE
	F32LE
)

// Size returns the encoded width in bytes, or 0 for Undefined.
func (d DataType) Size() int {
	switch d {
	case U8, I8:
		return 1
	case U16BE, U16LE, I16BE, I16LE:
		return 2
	case U32BE, U32LE, I32BE, I32LE, F32BE, F32LE:
		return 4
	default:
		return 0
	}
}

// IsFloat reports whether d is one of the F32 variants.
func (d DataType) IsFloat() bool {
	return d == F32BE || d == F32LE
}

// IsSigned reports whether d's integer comparisons must be signed.
func (d DataType) IsSigned() bool {
	switch d {
	case I8, I16BE, I16LE, I32BE, I32LE:
		return true
	default:
		return false
	}
}

// Scalar is a tagged 32-bit value: Bits holds the two's-complement (for
// signed integer types), zero-extended (for unsigned integer types), or
// IEEE-754 bit pattern (for F32 types) representation, always widened to
// 32 bits as spec.md §4.1 requires.
type Scalar struct {
	Type DataType
	Bits uint32
}

// Int64 interprets Bits as the type's signed or unsigned integer value,
// widened to int64 so unsigned 32-bit values never wrap negative.
func (s Scalar) Int64() int64 {
	if s.Type.IsSigned() {
		return int64(int32(s.Bits))
	}
	return int64(s.Bits)
}

// Float32 reinterprets Bits as an IEEE-754 single-precision float.
func (s Scalar) Float32() float32 {
	return math.Float32frombits(s.Bits)
}

// Read decodes a value of the given type from msg at offset, validating
// bounds and natural alignment before decoding (spec.md §4.1).
func Read(msg []byte, offset int, dataType DataType) (Scalar, error) {
	if dataType == Undefined {
		return Scalar{}, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrUndefinedType)
	}

	size := dataType.Size()
	if offset < 0 || size == 0 || offset+size > len(msg) {
		return Scalar{}, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrBounds)
	}
	if offset%size != 0 {
		return Scalar{}, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrAlignment)
	}

	switch dataType {
	case U8:
		return Scalar{Type: dataType, Bits: uint32(msg[offset])}, nil
	case I8:
		return Scalar{Type: dataType, Bits: uint32(int32(int8(msg[offset])))}, nil
	case U16BE:
		return Scalar{Type: dataType, Bits: uint32(binary.BigEndian.Uint16(msg[offset:]))}, nil
	case U16LE:
		return Scalar{Type: dataType, Bits: uint32(binary.LittleEndian.Uint16(msg[offset:]))}, nil
	case I16BE:
		return Scalar{Type: dataType, Bits: uint32(int32(int16(binary.BigEndian.Uint16(msg[offset:]))))}, nil
	case I16LE:
		return Scalar{Type: dataType, Bits: uint32(int32(int16(binary.LittleEndian.Uint16(msg[offset:]))))}, nil
	case U32BE:
		return Scalar{Type: dataType, Bits: binary.BigEndian.Uint32(msg[offset:])}, nil
	case U32LE:
		return Scalar{Type: dataType, Bits: binary.LittleEndian.Uint32(msg[offset:])}, nil
	case I32BE:
		return Scalar{Type: dataType, Bits: binary.BigEndian.Uint32(msg[offset:])}, nil
	case I32LE:
		return Scalar{Type: dataType, Bits: binary.LittleEndian.Uint32(msg[offset:])}, nil
	case F32BE:
		return Scalar{Type: dataType, Bits: binary.BigEndian.Uint32(msg[offset:])}, nil
	case F32LE:
		return Scalar{Type: dataType, Bits: binary.LittleEndian.Uint32(msg[offset:])}, nil
	default:
		return Scalar{}, lcerr.New(lcerr.KindFieldReadFault, lcerr.ErrUndefinedType)
	}
}
