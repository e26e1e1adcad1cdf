package a429

import (
	"errors"
	"math"
	"testing"
)

func TestExtractSignedTwoBit(t *testing.T) {
	tests := []struct {
		raw  uint32
		want int64
	}{
		{raw: 0b00, want: 0},
		{raw: 0b01, want: 1},
		{raw: 0b10, want: -2},
		{raw: 0b11, want: -1},
	}
	for _, tc := range tests {
		if got := ExtractSigned(tc.raw, 1, 2); got != tc.want {
			t.Fatalf("ExtractSigned(%#b) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestExtractSignedTopBitIsNegative(t *testing.T) {
	// bits 11..28 with bit 28 set
	raw := uint32(1) << 27
	if got := ExtractSigned(raw, 11, 28); got >= 0 {
		t.Fatalf("ExtractSigned = %d, want negative", got)
	}
	if got := ExtractUnsigned(raw, 11, 28); got != 1<<17 {
		t.Fatalf("ExtractUnsigned = %d, want %d", got, 1<<17)
	}
}

func TestSignedRoundTripAllWidths(t *testing.T) {
	for width := uint(2); width <= WordBits; width++ {
		for _, lsb := range []uint{1, WordBits - width + 1} {
			msb := lsb + width - 1
			lo, hi := SignedLimits(lsb, msb)
			for _, v := range []int64{lo, lo + 1, -1, 0, 1, hi - 1, hi} {
				raw, err := EncodeSigned(0xA5A5A5A5, lsb, msb, v)
				if err != nil {
					t.Fatalf("EncodeSigned([%d,%d], %d): %v", lsb, msb, v, err)
				}
				if got := ExtractSigned(raw, lsb, msb); got != v {
					t.Fatalf("[%d,%d] round trip = %d, want %d", lsb, msb, got, v)
				}
			}
		}
	}
}

func TestUnsignedRoundTripAllWidths(t *testing.T) {
	for width := uint(1); width <= WordBits; width++ {
		for _, lsb := range []uint{1, WordBits - width + 1} {
			msb := lsb + width - 1
			hi := UnsignedMax(lsb, msb)
			for _, v := range []uint64{0, 1, hi / 2, hi} {
				raw, err := EncodeUnsigned(0, lsb, msb, v)
				if err != nil {
					t.Fatalf("EncodeUnsigned([%d,%d], %d): %v", lsb, msb, v, err)
				}
				if got := ExtractUnsigned(raw, lsb, msb); got != v {
					t.Fatalf("[%d,%d] round trip = %d, want %d", lsb, msb, got, v)
				}
			}
		}
	}
}

func TestInsertLeavesOtherBits(t *testing.T) {
	got := Insert(0xFFFFFFFF, 9, 16, 0)
	if got != 0xFFFF00FF {
		t.Fatalf("Insert = 0x%08X, want 0xFFFF00FF", got)
	}
	got = Insert(0, 9, 16, 0x1AB)
	if got != 0x0000AB00 {
		t.Fatalf("Insert overflow bits = 0x%08X, want 0x0000AB00", got)
	}
}

func TestScaleFactorDecodeEncode(t *testing.T) {
	scale := Ratio{Num: 1, Den: 1000}
	raw, err := EncodeUnsigned(0, 1, 20, 12345)
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}
	got := DecodeScaled(raw, 1, 20, false, scale)
	if math.Abs(got-12.345) > 1e-9 {
		t.Fatalf("DecodeScaled = %v, want 12.345", got)
	}
	raw, err = EncodeScaled(0, 1, 20, false, scale, 12.345)
	if err != nil {
		t.Fatalf("EncodeScaled: %v", err)
	}
	if n := ExtractUnsigned(raw, 1, 20); n != 12345 {
		t.Fatalf("raw integer = %d, want 12345", n)
	}
}

func TestQuantizeRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: 2.5, want: 2},
		{in: 3.5, want: 4},
		{in: -2.5, want: -2},
		{in: 2.4999, want: 2},
	}
	for _, tc := range tests {
		if got := Quantize(tc.in, Unity); got != tc.want {
			t.Fatalf("Quantize(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestEncodeOverflowClamps(t *testing.T) {
	raw, err := EncodeUnsigned(0, 1, 4, 20)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if got := ExtractUnsigned(raw, 1, 4); got != 15 {
		t.Fatalf("clamped = %d, want 15", got)
	}

	raw, err = EncodeSigned(0, 1, 4, -20)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if got := ExtractSigned(raw, 1, 4); got != -8 {
		t.Fatalf("clamped = %d, want -8", got)
	}

	raw, err = EncodeScaled(0, 1, 8, true, Ratio{Num: 1, Den: 2}, math.Inf(1))
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OverflowError, got %v", err)
	}
	if got := DecodeScaled(raw, 1, 8, true, Ratio{Num: 1, Den: 2}); got != 63.5 {
		t.Fatalf("clamped = %v, want 63.5", got)
	}
	if oe.Stored != 63.5 {
		t.Fatalf("Stored = %v, want 63.5", oe.Stored)
	}
}

func TestEncodeScaledRejectsNaN(t *testing.T) {
	raw, err := EncodeScaled(0x1234, 1, 8, false, Unity, math.NaN())
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if raw != 0x1234 {
		t.Fatalf("raw = 0x%X, want untouched 0x1234", raw)
	}
}

func TestEncodeInvalidRange(t *testing.T) {
	if _, err := EncodeUnsigned(0, 0, 4, 1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("lsb 0: expected ErrOutOfRange, got %v", err)
	}
	if _, err := EncodeUnsigned(0, 5, 4, 1); !errors.Is(err, ErrLayout) {
		t.Fatalf("lsb > msb: expected ErrLayout, got %v", err)
	}
	if _, err := EncodeSigned(0, 30, 33, 1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("msb 33: expected ErrOutOfRange, got %v", err)
	}
	if got := ExtractUnsigned(0xFFFFFFFF, 9, 3); got != 0 {
		t.Fatalf("ExtractUnsigned invalid range = %d, want 0", got)
	}
}
