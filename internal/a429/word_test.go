package a429

import (
	"errors"
	"math"
	"testing"
)

var (
	exampleLabel = Int[uint8]("label", 1, 8)
	exampleValue = Scaled[float64]("value", 11, 28, true, Ratio{Num: 1, Den: 4})
	exampleSSM   = Int[uint8]("ssm", 29, 30)

	exampleLayout = MustLayout("example", exampleLabel, exampleValue, exampleSSM)
)

func TestWordEndToEnd(t *testing.T) {
	w := exampleLayout.New(0)
	if err := Set(&w, exampleLabel, 0o201); err != nil {
		t.Fatalf("Set label: %v", err)
	}
	if err := Set(&w, exampleValue, 100.0); err != nil {
		t.Fatalf("Set value: %v", err)
	}
	if err := Set(&w, exampleSSM, 3); err != nil {
		t.Fatalf("Set ssm: %v", err)
	}

	raw := w.Raw()
	if got := ExtractUnsigned(raw, 11, 28); got != 400 {
		t.Fatalf("value raw integer = %d, want 400", got)
	}

	back := exampleLayout.New(raw)
	label, err := Get(back, exampleLabel)
	if err != nil || label != 0o201 {
		t.Fatalf("label = %o, %v; want 201", label, err)
	}
	value, err := Get(back, exampleValue)
	if err != nil || value != 100.0 {
		t.Fatalf("value = %v, %v; want 100", value, err)
	}
	ssm, err := Get(back, exampleSSM)
	if err != nil || ssm != 3 {
		t.Fatalf("ssm = %d, %v; want 3", ssm, err)
	}
}

func TestWordNegativeScaledValue(t *testing.T) {
	w := exampleLayout.New(0)
	if err := Set(&w, exampleValue, -0.25); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := Get(w, exampleValue)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != -0.25 {
		t.Fatalf("value = %v, want -0.25", got)
	}
	if ssm, _ := Get(w, exampleSSM); ssm != 0 {
		t.Fatalf("sign extension leaked into ssm: %d", ssm)
	}
}

func TestSetDoesNotTouchOtherFields(t *testing.T) {
	a := Int[uint8]("a", 1, 8)
	b := Int[uint8]("b", 9, 16)
	l := MustLayout("ab", a, b)
	w := l.New(0xFFFF_FFFF)
	if err := Set(&w, a, 0x12); err != nil {
		t.Fatalf("Set a: %v", err)
	}
	if got, _ := Get(w, b); got != 0xFF {
		t.Fatalf("b = 0x%X, want 0xFF", got)
	}
	if w.Raw() != 0xFFFF_FF12 {
		t.Fatalf("raw = 0x%08X, want 0xFFFFFF12", w.Raw())
	}
}

func TestWordOverflowClampsAndReports(t *testing.T) {
	w := exampleLayout.New(0)
	err := Set(&w, exampleValue, 1e6)
	var oe *OverflowError
	if !errors.As(err, &oe) {
		t.Fatalf("expected *OverflowError, got %v", err)
	}
	if oe.Field != "value" {
		t.Fatalf("Field = %q, want value", oe.Field)
	}
	got, _ := Get(w, exampleValue)
	if want := float64(1<<17-1) / 4; got != want {
		t.Fatalf("clamped value = %v, want %v", got, want)
	}
}

func TestWordInvalidValueLeavesWord(t *testing.T) {
	w := exampleLayout.New(0xDEAD)
	if err := Set(&w, exampleValue, math.NaN()); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if w.Raw() != 0xDEAD {
		t.Fatalf("raw = 0x%X, want 0xDEAD", w.Raw())
	}
}

func TestWordTypeMismatch(t *testing.T) {
	w := exampleLayout.New(0)
	wrong := Int[uint16]("label", 1, 8)
	if _, err := Get(w, wrong); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("Get: expected ErrTypeMismatch, got %v", err)
	}
	if err := Set(&w, wrong, 5); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("Set: expected ErrTypeMismatch, got %v", err)
	}
	if err := w.SetValue("value", 12); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("SetValue int into float field: expected ErrTypeMismatch, got %v", err)
	}
	if w.Raw() != 0 {
		t.Fatalf("raw = 0x%X after rejected sets, want 0", w.Raw())
	}
}

func TestWordNotFound(t *testing.T) {
	w := exampleLayout.New(0)
	if _, err := w.Value("altitude"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var empty Word
	if _, err := Get(empty, exampleLabel); !errors.Is(err, ErrNotFound) {
		t.Fatalf("nil layout: expected ErrNotFound, got %v", err)
	}
}

func TestWordNamedAccess(t *testing.T) {
	w := exampleLayout.New(0)
	if err := w.SetValue("ssm", uint8(2)); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	v, err := w.Value("ssm")
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got, ok := v.(uint8); !ok || got != 2 {
		t.Fatalf("Value = %#v, want uint8(2)", v)
	}
}

func TestWordIsValue(t *testing.T) {
	w := exampleLayout.New(0)
	cp := w
	if err := Set(&cp, exampleSSM, 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if w.Raw() != 0 {
		t.Fatalf("original changed through copy: 0x%X", w.Raw())
	}
}

func TestWordReinterpret(t *testing.T) {
	other := MustLayout("other", Int[uint32]("all", 1, 32))
	w := exampleLayout.New(0x8123_4567)
	view := w.As(other)
	all, err := Get(view, Int[uint32]("all", 1, 32))
	if err != nil {
		t.Fatalf("Get all: %v", err)
	}
	if all != 0x8123_4567 {
		t.Fatalf("all = 0x%X, want 0x81234567", all)
	}
	back := view.As(exampleLayout)
	if back.Raw() != w.Raw() || back.Layout() != exampleLayout {
		t.Fatalf("reinterpret round trip = %v, want %v", back, w)
	}
}

func TestWordSetRaw(t *testing.T) {
	w := exampleLayout.New(0)
	w.SetRaw(0xFF)
	if got, _ := Get(w, exampleLabel); got != 0xFF {
		t.Fatalf("label = 0x%X, want 0xFF", got)
	}
}

func TestCustomCodecBypassesEngine(t *testing.T) {
	var gets, sets int
	codec := CodecFuncs[uint8]{
		GetFunc: func(raw uint32) uint8 {
			gets++
			return uint8(raw>>8) ^ 0x5A
		},
		SetFunc: func(v uint8, raw uint32) (uint32, error) {
			sets++
			return raw&^0xFF00 | uint32(v^0x5A)<<8, nil
		},
	}
	f := Custom[uint8]("xor", 9, 16, codec)
	l := MustLayout("custom", f)
	w := l.New(0)
	if err := Set(&w, f, 0x0F); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if w.Raw() != 0x5500 {
		t.Fatalf("raw = 0x%X, want 0x5500", w.Raw())
	}
	got, err := Get(w, f)
	if err != nil || got != 0x0F {
		t.Fatalf("Get = 0x%X, %v; want 0x0F", got, err)
	}
	if gets != 1 || sets != 1 {
		t.Fatalf("codec calls = %d gets, %d sets; want 1, 1", gets, sets)
	}
}

func TestWordDecodeOrder(t *testing.T) {
	w := exampleLayout.New(0)
	fields := w.Decode()
	if len(fields) != 3 {
		t.Fatalf("Decode returned %d fields, want 3", len(fields))
	}
	for i, want := range []Name{"label", "value", "ssm"} {
		if fields[i].Name != want {
			t.Fatalf("field %d = %s, want %s", i, fields[i].Name, want)
		}
	}
}
