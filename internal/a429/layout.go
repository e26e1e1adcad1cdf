package a429

import (
	"fmt"
	"strings"
)

// Layout is an ordered, validated set of field descriptors: the definition
// of one word type. It is immutable once built and safe to share.
type Layout struct {
	name   string
	fields []Descriptor
	index  map[Name]int
	strict bool
}

// NewLayout validates defs and builds the name index. Each descriptor is
// checked on its own, then the summed field widths are checked against the
// word and every name must resolve to exactly one field.
func NewLayout(name string, defs ...Def) (*Layout, error) {
	return newLayout(name, false, defs)
}

// NewStrictLayout is NewLayout plus a pairwise overlap check.
func NewStrictLayout(name string, defs ...Def) (*Layout, error) {
	return newLayout(name, true, defs)
}

// MustLayout is NewLayout for package level word declarations; a structural
// error there is a programming error and panics.
func MustLayout(name string, defs ...Def) *Layout {
	l, err := NewLayout(name, defs...)
	if err != nil {
		panic(err)
	}
	return l
}

func newLayout(name string, strict bool, defs []Def) (*Layout, error) {
	fields := make([]Descriptor, 0, len(defs))
	for _, def := range defs {
		d := def.Descriptor()
		if err := d.Validate(); err != nil {
			return nil, withLayout(err, name)
		}
		fields = append(fields, d)
	}
	if err := CheckCapacity(fields); err != nil {
		return nil, withLayout(err, name)
	}
	if strict {
		if err := CheckOverlap(fields); err != nil {
			return nil, withLayout(err, name)
		}
	}
	index := make(map[Name]int, len(fields))
	for _, d := range fields {
		if _, seen := index[d.Name]; seen {
			continue
		}
		i, err := lookupIndex(d.Name, fields)
		if err != nil {
			return nil, withLayout(err, name)
		}
		index[d.Name] = i
	}
	return &Layout{name: name, fields: fields, index: index, strict: strict}, nil
}

func withLayout(err error, layout string) error {
	if fe, ok := err.(*FieldError); ok && fe.Layout == "" {
		cp := *fe
		cp.Layout = layout
		return &cp
	}
	return fmt.Errorf("layout %s: %w", layout, err)
}

// CheckCapacity fails with ErrCapacity when the spans (msb - lsb) of fields
// add up to more than WordBits. It does not look for overlap, so aliased
// sub-fields pass as long as the sum fits.
func CheckCapacity(fields []Descriptor) error {
	var total uint
	for _, d := range fields {
		total += d.Span()
	}
	if total > WordBits {
		return fmt.Errorf("%w: spans sum to %d, word holds %d", ErrCapacity, total, WordBits)
	}
	return nil
}

// CheckOverlap fails with ErrOverlap when two fields share a bit.
func CheckOverlap(fields []Descriptor) error {
	var used uint32
	owner := make([]Name, WordBits)
	for _, d := range fields {
		m := d.Mask()
		if clash := used & m; clash != 0 {
			bit := 1
			for clash&1 == 0 {
				clash >>= 1
				bit++
			}
			return &FieldError{Field: d.Name, Detail: fmt.Sprintf("bit %d already used by %s", bit, owner[bit-1]), Err: ErrOverlap}
		}
		used |= m
		for b := d.LSB; b <= d.MSB; b++ {
			owner[b-1] = d.Name
		}
	}
	return nil
}

// Lookup resolves name within fields. A name matching more than one field is
// always an error. A name matching none returns *fallback when one is given,
// ErrNotFound otherwise.
func Lookup(name Name, fields []Descriptor, fallback *Descriptor) (Descriptor, error) {
	i, err := lookupIndex(name, fields)
	if err == nil {
		return fields[i], nil
	}
	if fallback != nil && isNotFound(err) {
		return *fallback, nil
	}
	return Descriptor{}, err
}

func lookupIndex(name Name, fields []Descriptor) (int, error) {
	found := -1
	var at []string
	for i, d := range fields {
		if d.Name != name {
			continue
		}
		if found < 0 {
			found = i
		}
		at = append(at, fmt.Sprintf("[%d,%d]", d.LSB, d.MSB))
	}
	switch {
	case found < 0:
		return -1, &FieldError{Field: name, Err: ErrNotFound}
	case len(at) > 1:
		return -1, &FieldError{Field: name, Detail: "declared at " + strings.Join(at, ", "), Err: ErrAmbiguousName}
	}
	return found, nil
}

func isNotFound(err error) bool {
	fe, ok := err.(*FieldError)
	return ok && fe.Err == ErrNotFound
}

// Name returns the layout's name.
func (l *Layout) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

// Strict reports whether the layout was built with the overlap check.
func (l *Layout) Strict() bool {
	return l != nil && l.strict
}

// Len returns the number of fields.
func (l *Layout) Len() int {
	if l == nil {
		return 0
	}
	return len(l.fields)
}

// Fields returns a copy of the descriptors in declaration order.
func (l *Layout) Fields() []Descriptor {
	if l == nil {
		return nil
	}
	out := make([]Descriptor, len(l.fields))
	copy(out, l.fields)
	return out
}

// UsedBits is the capacity the layout consumes: the summed spans checked
// by CheckCapacity.
func (l *Layout) UsedBits() uint {
	var total uint
	for _, d := range l.Fields() {
		total += d.Span()
	}
	return total
}

// Lookup resolves name through the layout's index, with the same fallback
// rule as the package level Lookup.
func (l *Layout) Lookup(name Name, fallback *Descriptor) (Descriptor, error) {
	d, err := l.field(name)
	if err == nil {
		return *d, nil
	}
	if fallback != nil {
		return *fallback, nil
	}
	return Descriptor{}, err
}

func (l *Layout) field(name Name) (*Descriptor, error) {
	if l == nil {
		return nil, &FieldError{Field: name, Err: ErrNotFound}
	}
	i, ok := l.index[name]
	if !ok {
		return nil, &FieldError{Layout: l.name, Field: name, Err: ErrNotFound}
	}
	return &l.fields[i], nil
}

// New returns a word of this layout holding raw.
func (l *Layout) New(raw uint32) Word {
	return Word{raw: raw, layout: l}
}
