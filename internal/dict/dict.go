package dict

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// A429Entry names one label/SDI pair. Layout optionally selects the catalog
// layout used to decode words carrying that label.
type A429Entry struct {
	Label  uint8
	SDI    uint8
	Name   string
	Layout string
}

type Store struct {
	a429 map[a429Key]A429Entry
}

type a429Key struct {
	label uint8
	sdi   uint8
}

type JSONFile struct {
	A429 []JSONA429Entry `json:"a429"`
}

type JSONA429Entry struct {
	Label  JSONLabel `json:"label"`
	SDI    int       `json:"sdi"`
	Name   string    `json:"name"`
	Layout string    `json:"layout,omitempty"`
}

// JSONLabel accepts a label either as a JSON number or as an octal string
// such as "203".
type JSONLabel int

func (l *JSONLabel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "0o"), 8, 16)
		if err != nil {
			return fmt.Errorf("octal label %q: %w", s, err)
		}
		*l = JSONLabel(v)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = JSONLabel(n)
	return nil
}

func FromJSON(file JSONFile) (*Store, error) {
	store := &Store{
		a429: make(map[a429Key]A429Entry),
	}
	for i, entry := range file.A429 {
		if entry.Label < 0 || entry.Label > 0xFF {
			return nil, fmt.Errorf("a429[%d]: label out of range", i)
		}
		if entry.SDI < 0 || entry.SDI > 0x3 {
			return nil, fmt.Errorf("a429[%d]: sdi out of range", i)
		}
		key := a429Key{label: uint8(entry.Label), sdi: uint8(entry.SDI)}
		if _, exists := store.a429[key]; exists {
			return nil, fmt.Errorf("a429[%d]: duplicate label/sdi", i)
		}
		store.a429[key] = A429Entry{
			Label:  key.label,
			SDI:    key.sdi,
			Name:   strings.TrimSpace(entry.Name),
			Layout: strings.TrimSpace(entry.Layout),
		}
	}
	return store, nil
}

func (s *Store) LookupA429(label uint8, sdi uint8) (A429Entry, bool) {
	if s == nil {
		return A429Entry{}, false
	}
	entry, ok := s.a429[a429Key{label: label, sdi: sdi}]
	return entry, ok
}

func (s *Store) IsEmpty() bool {
	if s == nil {
		return true
	}
	return len(s.a429) == 0
}

// Entries returns every entry ordered by label, then SDI.
func (s *Store) Entries() []A429Entry {
	if s == nil {
		return nil
	}
	out := make([]A429Entry, 0, len(s.a429))
	for _, e := range s.a429 {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].SDI < out[j].SDI
	})
	return out
}
