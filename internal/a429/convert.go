package a429

import (
	"fmt"
	"math"
)

// WordBits is the width of an ARINC 429 word.
const WordBits = 32

// Bit positions below are 1-based and inclusive: bit 1 is the least
// significant bit of the raw word, bit 32 the parity position.

func validRange(lsb, msb uint) bool {
	return lsb >= 1 && lsb <= msb && msb <= WordBits
}

func rangeError(lsb, msb uint) error {
	if lsb > msb {
		return fmt.Errorf("%w: lsb %d > msb %d", ErrLayout, lsb, msb)
	}
	return fmt.Errorf("%w: [%d,%d]", ErrOutOfRange, lsb, msb)
}

// FieldMask returns the mask covering bits [lsb, msb] in place, or 0 for an
// invalid range.
func FieldMask(lsb, msb uint) uint32 {
	if !validRange(lsb, msb) {
		return 0
	}
	width := msb - lsb + 1
	return uint32((uint64(1)<<width)-1) << (lsb - 1)
}

// ExtractUnsigned right-aligns bits [lsb, msb] of raw and zero-extends them.
func ExtractUnsigned(raw uint32, lsb, msb uint) uint64 {
	m := FieldMask(lsb, msb)
	if m == 0 {
		return 0
	}
	return uint64((raw & m) >> (lsb - 1))
}

// ExtractSigned right-aligns bits [lsb, msb] of raw and sign-extends from bit
// msb, so a set top bit yields a negative result.
func ExtractSigned(raw uint32, lsb, msb uint) int64 {
	if !validRange(lsb, msb) {
		return 0
	}
	shift := 64 - (msb - lsb + 1)
	return int64(ExtractUnsigned(raw, lsb, msb)<<shift) >> shift
}

// Insert clears bits [lsb, msb] of raw and writes the low bits of v there.
// Bits of v that do not fit are discarded; callers range-check first.
func Insert(raw uint32, lsb, msb uint, v uint64) uint32 {
	m := FieldMask(lsb, msb)
	if m == 0 {
		return raw
	}
	return raw&^m | (uint32(v)<<(lsb-1))&m
}

// UnsignedMax is the largest value an unsigned field of the range holds.
func UnsignedMax(lsb, msb uint) uint64 {
	if !validRange(lsb, msb) {
		return 0
	}
	return uint64(1)<<(msb-lsb+1) - 1
}

// SignedLimits returns the two's complement bounds of a signed field.
func SignedLimits(lsb, msb uint) (lo, hi int64) {
	if !validRange(lsb, msb) {
		return 0, 0
	}
	width := msb - lsb + 1
	lo = -(int64(1) << (width - 1))
	hi = int64(1)<<(width-1) - 1
	return lo, hi
}

// EncodeUnsigned writes v into [lsb, msb]. Values above the field maximum are
// clamped to it; the clamped word is returned together with an
// *OverflowError.
func EncodeUnsigned(raw uint32, lsb, msb uint, v uint64) (uint32, error) {
	if !validRange(lsb, msb) {
		return raw, rangeError(lsb, msb)
	}
	if hi := UnsignedMax(lsb, msb); v > hi {
		return Insert(raw, lsb, msb, hi), &OverflowError{Requested: v, Stored: hi}
	}
	return Insert(raw, lsb, msb, v), nil
}

// EncodeSigned writes v into [lsb, msb] as two's complement, clamping to the
// field bounds the same way EncodeUnsigned does.
func EncodeSigned(raw uint32, lsb, msb uint, v int64) (uint32, error) {
	if !validRange(lsb, msb) {
		return raw, rangeError(lsb, msb)
	}
	lo, hi := SignedLimits(lsb, msb)
	switch {
	case v < lo:
		return Insert(raw, lsb, msb, uint64(lo)), &OverflowError{Requested: v, Stored: lo}
	case v > hi:
		return Insert(raw, lsb, msb, uint64(hi)), &OverflowError{Requested: v, Stored: hi}
	}
	return Insert(raw, lsb, msb, uint64(v)), nil
}

// DecodeScaled extracts [lsb, msb] with the given signedness and multiplies
// the integer by scale in float64.
func DecodeScaled(raw uint32, lsb, msb uint, signed bool, scale Ratio) float64 {
	scale = scale.normalized()
	var n float64
	if signed {
		n = float64(ExtractSigned(raw, lsb, msb))
	} else {
		n = float64(ExtractUnsigned(raw, lsb, msb))
	}
	return n * float64(scale.Num) / float64(scale.Den)
}

// Quantize divides v by scale and rounds half to even. It does not range
// check.
func Quantize(v float64, scale Ratio) float64 {
	scale = scale.normalized()
	return math.RoundToEven(v * float64(scale.Den) / float64(scale.Num))
}

// EncodeScaled quantizes v and writes it into [lsb, msb]. NaN is rejected and
// leaves raw untouched; out of range values, infinities included, are clamped
// and reported with an *OverflowError whose Stored is the physical value kept.
func EncodeScaled(raw uint32, lsb, msb uint, signed bool, scale Ratio, v float64) (uint32, error) {
	if !validRange(lsb, msb) {
		return raw, rangeError(lsb, msb)
	}
	if math.IsNaN(v) {
		return raw, fmt.Errorf("%w: NaN", ErrInvalidValue)
	}
	if err := scale.validate(); err != nil {
		return raw, err
	}
	q := Quantize(v, scale)
	var lo, hi float64
	if signed {
		l, h := SignedLimits(lsb, msb)
		lo, hi = float64(l), float64(h)
	} else {
		lo, hi = 0, float64(UnsignedMax(lsb, msb))
	}
	clamped := q
	if clamped < lo {
		clamped = lo
	} else if clamped > hi {
		clamped = hi
	}
	var out uint32
	if signed {
		out = Insert(raw, lsb, msb, uint64(int64(clamped)))
	} else {
		out = Insert(raw, lsb, msb, uint64(clamped))
	}
	if clamped != q {
		return out, &OverflowError{Requested: v, Stored: DecodeScaled(out, lsb, msb, signed, scale)}
	}
	return out, nil
}

// Ratio is a rational scale factor: physical value = raw integer * Num / Den.
// The zero Ratio means 1/1.
type Ratio struct {
	Num int64
	Den int64
}

// Unity is the identity scale factor.
var Unity = Ratio{Num: 1, Den: 1}

func (r Ratio) normalized() Ratio {
	if r == (Ratio{}) {
		return Unity
	}
	return r
}

func (r Ratio) validate() error {
	r = r.normalized()
	if r.Num == 0 || r.Den == 0 {
		return fmt.Errorf("%w: zero scale factor %d/%d", ErrLayout, r.Num, r.Den)
	}
	return nil
}

// Float returns the ratio as a float64.
func (r Ratio) Float() float64 {
	r = r.normalized()
	if r.Den == 0 {
		return math.NaN()
	}
	return float64(r.Num) / float64(r.Den)
}

func (r Ratio) String() string {
	r = r.normalized()
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}
