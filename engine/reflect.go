package engine

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"
)

var scannerType = reflect.TypeFor[sql.Scanner]()

// assign stores a driver value in dst, converting between compatible kinds.
// A nil src zeroes dst.
func assign(dst reflect.Value, src any) error {
	if dst.CanAddr() && reflect.PointerTo(dst.Type()).Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	if src == nil {
		dst.SetZero()
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}

	sv := reflect.ValueOf(src)
	switch {
	case sv.Type().AssignableTo(dst.Type()):
		dst.Set(sv)
		return nil
	case dst.Kind() == reflect.String && sv.Kind() == reflect.Slice && sv.Type().Elem().Kind() == reflect.Uint8:
		dst.SetString(string(sv.Bytes()))
		return nil
	case dst.Kind() == reflect.Slice && dst.Type().Elem().Kind() == reflect.Uint8 && sv.Kind() == reflect.String:
		dst.SetBytes([]byte(sv.String()))
		return nil
	case isNumeric(dst.Kind()) && isNumeric(sv.Kind()):
		dst.Set(sv.Convert(dst.Type()))
		return nil
	case sv.Type().ConvertibleTo(dst.Type()) && sv.Kind() == dst.Kind():
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	if t, ok := src.(time.Time); ok && dst.Kind() == reflect.String {
		dst.SetString(t.Format(time.RFC3339Nano))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, dst.Type())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// identityValue turns a scanned primary key into a comparable map key.
// ok is false for NULL, meaning no row was joined.
func identityValue(v any) (any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []byte:
		return string(val), true
	}
	if !reflect.TypeOf(v).Comparable() {
		return fmt.Sprint(v), true
	}
	return v, true
}
