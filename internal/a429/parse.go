package a429

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ParseValue converts text into a value of the field's declared type, ready
// for Word.SetValue. Integers accept Go prefixes (0x, 0o, 0b); labels are
// usually written in octal.
func (d Descriptor) ParseValue(s string) (any, error) {
	s = strings.TrimSpace(s)
	if d.typ == nil {
		return nil, &FieldError{Field: d.Name, Detail: "descriptor has no value type", Err: ErrLayout}
	}
	v := reflect.New(d.typ).Elem()
	switch d.typ.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, parseError(d, s, err)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 0, d.typ.Bits())
		if err != nil {
			return nil, parseError(d, s, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 0, d.typ.Bits())
		if err != nil {
			return nil, parseError(d, s, err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, d.typ.Bits())
		if err != nil {
			return nil, parseError(d, s, err)
		}
		v.SetFloat(f)
	default:
		return nil, &FieldError{Field: d.Name, Detail: fmt.Sprintf("cannot parse into %s", d.typ), Err: ErrTypeMismatch}
	}
	return v.Interface(), nil
}

func parseError(d Descriptor, s string, err error) error {
	return &FieldError{Field: d.Name, Detail: fmt.Sprintf("parse %q: %v", s, err), Err: ErrInvalidValue}
}
