package dict

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeDict(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadDictionary(t *testing.T) {
	path := writeDict(t, `{"a429": [
		{"label": "203", "sdi": 0, "name": " Pressure Altitude ", "layout": "altitude-203"},
		{"label": 134, "sdi": 1, "name": "Airspeed"}
	]}`)
	store, err := EnsureLoaded(path)
	if err != nil {
		t.Fatalf("EnsureLoaded: %v", err)
	}
	e, ok := store.LookupA429(0o203, 0)
	if !ok || e.Name != "Pressure Altitude" || e.Layout != "altitude-203" {
		t.Fatalf("LookupA429(203, 0) = %+v, %v", e, ok)
	}
	if _, ok := store.LookupA429(0o203, 1); ok {
		t.Fatalf("unexpected entry for sdi 1")
	}
	if e, ok := store.LookupA429(134, 1); !ok || e.Name != "Airspeed" {
		t.Fatalf("LookupA429(134, 1) = %+v, %v", e, ok)
	}
	entries := store.Entries()
	if len(entries) != 2 || entries[0].Label != 0o203 {
		t.Fatalf("Entries = %+v", entries)
	}
	if store.IsEmpty() {
		t.Fatalf("IsEmpty = true")
	}
}

func TestLoadDictionaryErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "label range", body: `{"a429": [{"label": 300, "sdi": 0, "name": "x"}]}`, want: "label out of range"},
		{name: "sdi range", body: `{"a429": [{"label": 1, "sdi": 4, "name": "x"}]}`, want: "sdi out of range"},
		{name: "duplicate", body: `{"a429": [{"label": 1, "sdi": 0, "name": "x"}, {"label": "1", "sdi": 0, "name": "y"}]}`, want: "duplicate"},
		{name: "bad octal", body: `{"a429": [{"label": "9", "sdi": 0, "name": "x"}]}`, want: "octal label"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeDict(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want %q", err, tc.want)
			}
		})
	}
	if _, err := EnsureLoaded(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := EnsureLoaded(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}

func TestNilStore(t *testing.T) {
	var s *Store
	if _, ok := s.LookupA429(1, 0); ok {
		t.Fatalf("nil store lookup succeeded")
	}
	if !s.IsEmpty() || s.Entries() != nil {
		t.Fatalf("nil store not empty")
	}
}
