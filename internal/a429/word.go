package a429

import (
	"errors"
	"fmt"
)

// Word is one raw ARINC 429 word viewed through a layout. It is a plain value:
// copies are independent and Set only changes the receiver.
type Word struct {
	raw    uint32
	layout *Layout
}

// NewWord is shorthand for l.New(raw).
func NewWord(l *Layout, raw uint32) Word {
	return Word{raw: raw, layout: l}
}

// Raw returns the underlying 32-bit value.
func (w Word) Raw() uint32 {
	return w.raw
}

// SetRaw replaces the underlying value without interpreting it.
func (w *Word) SetRaw(raw uint32) {
	w.raw = raw
}

// Layout returns the layout the word is viewed through.
func (w Word) Layout() *Layout {
	return w.layout
}

// As views the same raw bits through another layout. Nothing is checked: the
// two layouts need not agree.
func (w Word) As(l *Layout) Word {
	return Word{raw: w.raw, layout: l}
}

func (w Word) String() string {
	if w.layout == nil {
		return fmt.Sprintf("0x%08X", w.raw)
	}
	return fmt.Sprintf("%s(0x%08X)", w.layout.name, w.raw)
}

// Value reads the named field as its declared Go type.
func (w Word) Value(name Name) (any, error) {
	d, err := w.layout.field(name)
	if err != nil {
		return nil, err
	}
	return d.get(w.raw), nil
}

// SetValue writes the named field. v must have exactly the field's declared
// type. On overflow the clamped value is stored and an *OverflowError is
// returned; any other error leaves the word unchanged.
func (w *Word) SetValue(name Name, v any) error {
	d, err := w.layout.field(name)
	if err != nil {
		return err
	}
	return w.store(d, v)
}

func (w *Word) store(d *Descriptor, v any) error {
	raw, err := d.set(v, w.raw)
	if err == nil {
		w.raw = raw
		return nil
	}
	var oe *OverflowError
	if errors.As(err, &oe) {
		w.raw = raw
		if oe.Field == "" {
			cp := *oe
			cp.Field = d.Name
			return &cp
		}
		return oe
	}
	if errors.Is(err, ErrOverflow) {
		w.raw = raw
	}
	if fe, ok := err.(*FieldError); ok && fe.Layout == "" && w.layout != nil {
		cp := *fe
		cp.Layout = w.layout.name
		return &cp
	}
	return err
}

// Get reads field f from w. The field is resolved by name in w's layout and
// the layout's declaration must have type T.
func Get[T any](w Word, f Field[T]) (T, error) {
	var zero T
	d, err := w.layout.field(f.desc.Name)
	if err != nil {
		return zero, err
	}
	v, ok := d.get(w.raw).(T)
	if !ok {
		return zero, &FieldError{Layout: w.layout.name, Field: d.Name, Detail: fmt.Sprintf("requested %T, declared %s", zero, d.typ), Err: ErrTypeMismatch}
	}
	return v, nil
}

// Set writes v into field f of w, with SetValue's overflow behaviour.
func Set[T any](w *Word, f Field[T], v T) error {
	d, err := w.layout.field(f.desc.Name)
	if err != nil {
		return err
	}
	return w.store(d, v)
}

// FieldValue is one decoded field.
type FieldValue struct {
	Name  Name
	Value any
}

// Decode reads every field in declaration order.
func (w Word) Decode() []FieldValue {
	if w.layout == nil {
		return nil
	}
	out := make([]FieldValue, 0, len(w.layout.fields))
	for i := range w.layout.fields {
		d := &w.layout.fields[i]
		out = append(out, FieldValue{Name: d.Name, Value: d.get(w.raw)})
	}
	return out
}
