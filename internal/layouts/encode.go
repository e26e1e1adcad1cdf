package layouts

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"example.com/a429kit/internal/a429"
	"example.com/a429kit/internal/common"
)

// Assignment is one textual field write, as given on a command line or in
// a request body.
type Assignment struct {
	Field string
	Value string
}

// ParseAssignment splits "name=value".
func ParseAssignment(s string) (Assignment, error) {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Assignment{}, fmt.Errorf("assignment %q: want name=value", s)
	}
	return Assignment{Field: name, Value: strings.TrimSpace(value)}, nil
}

// OrderedAssignments turns a name/value map into assignments in the
// layout's field order. Names unknown to the layout sort last so that
// Apply reports them.
func OrderedAssignments(l *a429.Layout, set map[string]string) []Assignment {
	pos := make(map[string]int, l.Len())
	for i, d := range l.Fields() {
		pos[string(d.Name)] = i
	}
	out := make([]Assignment, 0, len(set))
	for name, value := range set {
		out = append(out, Assignment{Field: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		pi, oki := pos[out[i].Field]
		pj, okj := pos[out[j].Field]
		if oki != okj {
			return oki
		}
		if pi != pj {
			return pi < pj
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// FieldSets converts assignments to the audit log's form, keeping order.
func FieldSets(set []Assignment) []common.FieldSet {
	out := make([]common.FieldSet, 0, len(set))
	for _, a := range set {
		out = append(out, common.FieldSet{Field: a.Field, Value: a.Value})
	}
	return out
}

// ParseWord reads a raw word written in decimal or with a Go base prefix.
func ParseWord(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("word %q: %w", s, err)
	}
	return uint32(v), nil
}

type EncodeResult struct {
	Word      a429.Word
	Before    uint32
	Overflows []*a429.OverflowError
}

// Apply writes each assignment into a word of layout l starting from base.
// Overflowing values are clamped and collected; any other error stops the
// edit.
func Apply(l *a429.Layout, base uint32, set []Assignment) (EncodeResult, error) {
	res := EncodeResult{Word: l.New(base), Before: base}
	for _, a := range set {
		d, err := l.Lookup(a429.Name(a.Field), nil)
		if err != nil {
			return res, err
		}
		v, err := d.ParseValue(a.Value)
		if err != nil {
			return res, err
		}
		err = res.Word.SetValue(d.Name, v)
		var oe *a429.OverflowError
		switch {
		case err == nil:
		case errors.As(err, &oe):
			res.Overflows = append(res.Overflows, oe)
		default:
			return res, err
		}
	}
	return res, nil
}
