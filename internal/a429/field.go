// Package a429 reads and writes typed fields of 32-bit ARINC 429 words.
// A Layout declares where each field lives; a Word holds one raw value and
// converts fields through the layout.
package a429

import (
	"fmt"
	"reflect"
)

// Name identifies a field within one layout.
type Name string

// Kind selects how a descriptor converts between raw bits and its value.
type Kind uint8

const (
	KindBool Kind = iota + 1
	KindInteger
	KindScaled
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindScaled:
		return "scaled"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Integer lists the Go integer types a generic integer field may produce.
type Integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint
}

// Float lists the Go types a scaled field may produce.
type Float interface {
	~float32 | ~float64
}

// Codec replaces the generic bit range conversion for one field. Get reads
// the field from the raw word; Set returns raw with the field replaced.
type Codec[T any] interface {
	Get(raw uint32) T
	Set(v T, raw uint32) (uint32, error)
}

// CodecFuncs adapts a pair of functions to Codec.
type CodecFuncs[T any] struct {
	GetFunc func(raw uint32) T
	SetFunc func(v T, raw uint32) (uint32, error)
}

func (c CodecFuncs[T]) Get(raw uint32) T {
	return c.GetFunc(raw)
}

func (c CodecFuncs[T]) Set(v T, raw uint32) (uint32, error) {
	return c.SetFunc(v, raw)
}

// conversion is the per-descriptor strategy chosen when the descriptor is
// built. Values cross it boxed in their declared Go type.
type conversion interface {
	get(d *Descriptor, raw uint32) any
	set(d *Descriptor, v any, raw uint32) (uint32, error)
}

// Descriptor is the static description of one field. Descriptors are built by
// Flag, Bool, Int, Scaled and Custom and validated when a Layout is made.
type Descriptor struct {
	Name   Name
	LSB    uint
	MSB    uint
	Kind   Kind
	Signed bool
	Scale  Ratio

	typ  reflect.Type
	conv conversion
}

// Width is the number of bits the field spans.
func (d Descriptor) Width() uint {
	if d.MSB < d.LSB {
		return 0
	}
	return d.MSB - d.LSB + 1
}

// Span is msb - lsb, the amount a field charges against the layout's
// capacity. A single bit field spans 0.
func (d Descriptor) Span() uint {
	if d.MSB < d.LSB {
		return 0
	}
	return d.MSB - d.LSB
}

// Mask returns the in-place mask of the field.
func (d Descriptor) Mask() uint32 {
	return FieldMask(d.LSB, d.MSB)
}

// ValueType is the Go type Get returns and Set accepts for this field.
func (d Descriptor) ValueType() reflect.Type {
	return d.typ
}

// Custom reports whether the field supplies its own codec.
func (d Descriptor) Custom() bool {
	return d.Kind == KindCustom
}

// Descriptor lets a Descriptor be passed where a Def is expected.
func (d Descriptor) Descriptor() Descriptor {
	return d
}

// Validate checks the descriptor on its own, without any word or layout.
// Only boolean fields may span a single bit.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return &FieldError{Field: d.Name, Detail: "empty name", Err: ErrLayout}
	}
	if d.conv == nil {
		return &FieldError{Field: d.Name, Detail: "descriptor has no conversion", Err: ErrLayout}
	}
	if d.LSB > d.MSB || (d.LSB == d.MSB && d.Kind != KindBool) {
		return &FieldError{Field: d.Name, Detail: fmt.Sprintf("lsb %d, msb %d", d.LSB, d.MSB), Err: ErrLayout}
	}
	if d.LSB < 1 || d.MSB > WordBits {
		return &FieldError{Field: d.Name, Detail: fmt.Sprintf("[%d,%d] outside 1..%d", d.LSB, d.MSB, WordBits), Err: ErrOutOfRange}
	}
	switch d.Kind {
	case KindInteger:
		if bits := uint(d.typ.Bits()); d.Width() > bits {
			return &FieldError{Field: d.Name, Detail: fmt.Sprintf("%d bit field wider than %s", d.Width(), d.typ), Err: ErrLayout}
		}
	case KindScaled:
		if err := d.Scale.validate(); err != nil {
			return &FieldError{Field: d.Name, Detail: "scale " + d.Scale.String(), Err: err}
		}
	}
	return nil
}

func (d *Descriptor) get(raw uint32) any {
	return d.conv.get(d, raw)
}

func (d *Descriptor) set(v any, raw uint32) (uint32, error) {
	return d.conv.set(d, v, raw)
}

// Def is anything that yields a field descriptor; both Descriptor and Field
// implement it.
type Def interface {
	Descriptor() Descriptor
}

// Field is a typed handle on a descriptor. Get and Set use it to resolve the
// field by name and check the caller's value type against the layout.
type Field[T any] struct {
	desc Descriptor
}

func (f Field[T]) Descriptor() Descriptor {
	return f.desc
}

func (f Field[T]) Name() Name {
	return f.desc.Name
}

// Flag declares a single bit boolean field.
func Flag(name Name, bit uint) Field[bool] {
	return Bool(name, bit, bit)
}

// Bool declares a boolean field that reads true when any of its bits is set
// and writes 1 or 0.
func Bool(name Name, lsb, msb uint) Field[bool] {
	return Field[bool]{desc: Descriptor{
		Name:  name,
		LSB:   lsb,
		MSB:   msb,
		Kind:  KindBool,
		Scale: Unity,
		typ:   reflect.TypeOf((*bool)(nil)).Elem(),
		conv:  boolConversion{},
	}}
}

// Int declares an integer field. Signedness follows T: signed types are
// sign-extended from the field's top bit.
func Int[T Integer](name Name, lsb, msb uint) Field[T] {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	return Field[T]{desc: Descriptor{
		Name:   name,
		LSB:    lsb,
		MSB:    msb,
		Kind:   KindInteger,
		Signed: isSignedKind(typ.Kind()),
		Scale:  Unity,
		typ:    typ,
		conv:   intConversion[T]{},
	}}
}

// Scaled declares a fixed point field: value = raw integer * scale.
func Scaled[T Float](name Name, lsb, msb uint, signed bool, scale Ratio) Field[T] {
	return Field[T]{desc: Descriptor{
		Name:   name,
		LSB:    lsb,
		MSB:    msb,
		Kind:   KindScaled,
		Signed: signed,
		Scale:  scale.normalized(),
		typ:    reflect.TypeOf((*T)(nil)).Elem(),
		conv:   scaledConversion[T]{},
	}}
}

// Custom declares a field converted entirely by codec. The bit range only
// counts toward layout capacity; the generic engine never touches it.
func Custom[T any](name Name, lsb, msb uint, codec Codec[T]) Field[T] {
	d := Descriptor{
		Name:  name,
		LSB:   lsb,
		MSB:   msb,
		Kind:  KindCustom,
		Scale: Unity,
		typ:   reflect.TypeOf((*T)(nil)).Elem(),
	}
	if codec != nil {
		d.conv = customConversion[T]{codec: codec}
	}
	return Field[T]{desc: d}
}

func isSignedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func mismatch(d *Descriptor, v any) error {
	return &FieldError{Field: d.Name, Detail: fmt.Sprintf("got %T, want %s", v, d.typ), Err: ErrTypeMismatch}
}

type boolConversion struct{}

func (boolConversion) get(d *Descriptor, raw uint32) any {
	return raw&d.Mask() != 0
}

func (boolConversion) set(d *Descriptor, v any, raw uint32) (uint32, error) {
	b, ok := v.(bool)
	if !ok {
		return raw, mismatch(d, v)
	}
	if b {
		return Insert(raw, d.LSB, d.MSB, 1), nil
	}
	return Insert(raw, d.LSB, d.MSB, 0), nil
}

type intConversion[T Integer] struct{}

func (intConversion[T]) get(d *Descriptor, raw uint32) any {
	if d.Signed {
		return T(ExtractSigned(raw, d.LSB, d.MSB))
	}
	return T(ExtractUnsigned(raw, d.LSB, d.MSB))
}

func (intConversion[T]) set(d *Descriptor, v any, raw uint32) (uint32, error) {
	tv, ok := v.(T)
	if !ok {
		return raw, mismatch(d, v)
	}
	if d.Signed {
		return EncodeSigned(raw, d.LSB, d.MSB, int64(tv))
	}
	return EncodeUnsigned(raw, d.LSB, d.MSB, uint64(tv))
}

type scaledConversion[T Float] struct{}

func (scaledConversion[T]) get(d *Descriptor, raw uint32) any {
	return T(DecodeScaled(raw, d.LSB, d.MSB, d.Signed, d.Scale))
}

func (scaledConversion[T]) set(d *Descriptor, v any, raw uint32) (uint32, error) {
	tv, ok := v.(T)
	if !ok {
		return raw, mismatch(d, v)
	}
	return EncodeScaled(raw, d.LSB, d.MSB, d.Signed, d.Scale, float64(tv))
}

type customConversion[T any] struct {
	codec Codec[T]
}

func (c customConversion[T]) get(_ *Descriptor, raw uint32) any {
	return c.codec.Get(raw)
}

func (c customConversion[T]) set(d *Descriptor, v any, raw uint32) (uint32, error) {
	tv, ok := v.(T)
	if !ok {
		return raw, mismatch(d, v)
	}
	return c.codec.Set(tv, raw)
}
