package lcfield

import (
	"testing"

	"github.com/spacely/limitchecker/internal/lcerr"
)

func TestRead(t *testing.T) {
	msg := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	tests := []struct {
		name    string
		offset  int
		dt      DataType
		want    uint32
		wantErr error
	}{
		{name: "u8", offset: 0, dt: U8, want: 0x01},
		{name: "i8 positive", offset: 0, dt: I8, want: 0x00000001},
		{name: "u16be", offset: 2, dt: U16BE, want: 0x0304},
		{name: "u16le", offset: 2, dt: U16LE, want: 0x0403},
		{name: "u32be", offset: 0, dt: U32BE, want: 0x01020304},
		{name: "u32le", offset: 0, dt: U32LE, want: 0x04030201},
		{name: "misaligned u16", offset: 1, dt: U16BE, wantErr: lcerr.ErrAlignment},
		{name: "out of bounds", offset: 6, dt: U32BE, wantErr: lcerr.ErrBounds},
		{name: "undefined", offset: 0, dt: Undefined, wantErr: lcerr.ErrUndefinedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(msg, tt.offset, tt.dt)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("Read() = %v, want error %v", got, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() unexpected error: %v", err)
			}
			if got.Bits != tt.want {
				t.Errorf("Read() = %#x, want %#x", got.Bits, tt.want)
			}
		})
	}
}

func TestReadI16Negative(t *testing.T) {
	msg := []byte{0xFF, 0xFE}
	got, err := Read(msg, 0, I16BE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != -2 {
		t.Errorf("Int64() = %d, want -2", got.Int64())
	}
}

func TestReadF32RoundTrip(t *testing.T) {
	// 1.5f in IEEE-754 big endian is 0x3FC00000.
	msg := []byte{0x3F, 0xC0, 0x00, 0x00}
	got, err := Read(msg, 0, F32BE)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Float32() != 1.5 {
		t.Errorf("Float32() = %v, want 1.5", got.Float32())
	}
}
