package a429

import (
	"fmt"
	"math"
	"math/bits"
	"slices"
)

// Field names shared by the standard word formats.
const (
	NameLabel Name = "label"
	NameSDI   Name = "sdi"
	NameSSM   Name = "ssm"
)

// BNRStatus is the sign/status matrix of BNR words.
type BNRStatus uint8

const (
	BNRFailureWarning BNRStatus = iota
	BNRNoComputedData
	BNRFunctionalTest
	BNRNormal
)

func (s BNRStatus) String() string {
	switch s {
	case BNRFailureWarning:
		return "FW"
	case BNRNoComputedData:
		return "NCD"
	case BNRFunctionalTest:
		return "FT"
	case BNRNormal:
		return "NO"
	default:
		return fmt.Sprintf("BNRStatus(%d)", uint8(s))
	}
}

// BCDStatus is the sign/status matrix of BCD and discrete words.
type BCDStatus uint8

const (
	BCDPlus BCDStatus = iota
	BCDNoComputedData
	BCDFunctionalTest
	BCDMinus
)

func (s BCDStatus) String() string {
	switch s {
	case BCDPlus:
		return "PLUS"
	case BCDNoComputedData:
		return "NCD"
	case BCDFunctionalTest:
		return "FT"
	case BCDMinus:
		return "MINUS"
	default:
		return fmt.Sprintf("BCDStatus(%d)", uint8(s))
	}
}

// Standard fields of the common word formats: label in bits 1-8, SDI in
// 9-10, SSM in 30-31. Bit 32 (parity) belongs to the transport.
var (
	LabelField     = Custom[uint8](NameLabel, 1, 8, OctalLabel{})
	SDIField       = Int[uint8](NameSDI, 9, 10)
	BNRStatusField = Custom[BNRStatus](NameSSM, 30, 31, Discrete[BNRStatus]{LSB: 30, MSB: 31})
	BCDStatusField = Custom[BCDStatus](NameSSM, 30, 31, Discrete[BCDStatus]{LSB: 30, MSB: 31})
)

// OctalLabel maps bits 1-8 to the conventional label number. The label is
// sent most significant bit first, so bit 1 carries the label's top bit.
type OctalLabel struct{}

func (OctalLabel) Get(raw uint32) uint8 {
	return bits.Reverse8(uint8(raw))
}

func (OctalLabel) Set(v uint8, raw uint32) (uint32, error) {
	return raw&^0xFF | uint32(bits.Reverse8(v)), nil
}

// Discrete stores an enumerated code in [LSB, MSB]. When Known is non-empty
// Set rejects codes outside it; Get returns whatever code is present.
type Discrete[T Integer] struct {
	LSB   uint
	MSB   uint
	Known []T
}

func (c Discrete[T]) Get(raw uint32) T {
	return T(ExtractUnsigned(raw, c.LSB, c.MSB))
}

func (c Discrete[T]) Set(v T, raw uint32) (uint32, error) {
	if len(c.Known) > 0 && !slices.Contains(c.Known, v) {
		return raw, fmt.Errorf("%w: code %d not in discrete set", ErrInvalidValue, v)
	}
	if v < 0 || uint64(v) > UnsignedMax(c.LSB, c.MSB) {
		return raw, fmt.Errorf("%w: code %d wider than [%d,%d]", ErrInvalidValue, v, c.LSB, c.MSB)
	}
	return EncodeUnsigned(raw, c.LSB, c.MSB, uint64(v))
}

// BCD packs a non-negative decimal magnitude into [LSB, MSB], four bits per
// digit starting at LSB. The top digit may be narrower than four bits, which
// limits its range. Value = digits * Resolution; the sign lives in the SSM.
type BCD struct {
	LSB        uint
	MSB        uint
	Resolution float64
}

// BCDField declares a BCD field over [lsb, msb].
func BCDField(name Name, lsb, msb uint, resolution float64) Field[float64] {
	return Custom[float64](name, lsb, msb, BCD{LSB: lsb, MSB: msb, Resolution: resolution})
}

func (c BCD) resolution() float64 {
	if c.Resolution == 0 {
		return 1
	}
	return c.Resolution
}

// digitRanges returns each digit's bit range, least significant first.
func (c BCD) digitRanges() [][2]uint {
	var out [][2]uint
	for lo := c.LSB; lo <= c.MSB; lo += 4 {
		hi := lo + 3
		if hi > c.MSB {
			hi = c.MSB
		}
		out = append(out, [2]uint{lo, hi})
	}
	return out
}

func (c BCD) maxCount() uint64 {
	var limit, place uint64 = 0, 1
	for _, r := range c.digitRanges() {
		top := UnsignedMax(r[0], r[1])
		if top > 9 {
			top = 9
		}
		limit += top * place
		place *= 10
	}
	return limit
}

// Get decodes the digits. A nibble above 9 is not BCD and yields NaN.
func (c BCD) Get(raw uint32) float64 {
	var n, place uint64 = 0, 1
	for _, r := range c.digitRanges() {
		digit := ExtractUnsigned(raw, r[0], r[1])
		if digit > 9 {
			return math.NaN()
		}
		n += digit * place
		place *= 10
	}
	return float64(n) * c.resolution()
}

// Set encodes v rounded half to even on Resolution. Negative values store 0
// and values past the top digit's range store the maximum, both reported
// with an *OverflowError.
func (c BCD) Set(v float64, raw uint32) (uint32, error) {
	if math.IsNaN(v) {
		return raw, fmt.Errorf("%w: NaN", ErrInvalidValue)
	}
	q := math.RoundToEven(v / c.resolution())
	limit := c.maxCount()
	var n uint64
	var overflow bool
	switch {
	case q < 0:
		n, overflow = 0, true
	case q > float64(limit):
		n, overflow = limit, true
	default:
		n = uint64(q)
	}
	for _, r := range c.digitRanges() {
		raw = Insert(raw, r[0], r[1], n%10)
		n /= 10
	}
	if overflow {
		return raw, &OverflowError{Requested: v, Stored: c.Get(raw)}
	}
	return raw, nil
}

// BNRField declares a two's complement BNR field over [lsb, msb] whose sign
// is bit msb and whose least significant bit weighs scale.
func BNRField(name Name, lsb, msb uint, scale Ratio) Field[float64] {
	return Scaled[float64](name, lsb, msb, true, scale)
}

// StandardLayout declares a word with the label, SDI and status fields
// around the given data fields. status is BNRStatusField or BCDStatusField,
// or any other definition over bits 30-31.
func StandardLayout(name string, status Def, data ...Def) (*Layout, error) {
	defs := make([]Def, 0, len(data)+3)
	defs = append(defs, LabelField, SDIField)
	defs = append(defs, data...)
	defs = append(defs, status)
	return NewLayout(name, defs...)
}
