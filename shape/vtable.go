package shape

import (
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"github.com/davecgh/go-spew/spew"
)

// VTable is the set of basic operations a Shape exposes over a
// reflect.Value of its own type (§3.1 "vtable of basic operations").
// Every field is optional: a nil fn means the operation is unsupported for
// that shape, and callers must treat that as a normal, checkable condition
// rather than panicking. defaultVTable sets every field except
// ParseFromStr.
type VTable struct {
	// Default constructs the type's zero/default value in place.
	Default func() reflect.Value

	// Clone deep-copies src into a freshly allocated value.
	Clone func(src reflect.Value) reflect.Value

	// Equal reports structural equality between two values of this shape.
	Equal func(a, b reflect.Value) bool

	// Hash returns a hash of v. defaultVTable builds it from xxhash over
	// v's %#v rendering, so values equal under Equal hash equal unless
	// they hold pointers below the top level, which render as addresses.
	Hash func(v reflect.Value) uint64

	// Display renders v for end-user facing output.
	Display func(v reflect.Value) string

	// Debug renders v for diagnostic/log output; defaultVTable sets it to a
	// go-spew dump (§4.1). peek.Dump is its one reader.
	Debug func(v reflect.Value) string

	// ParseFromStr parses a string-typed source value into a freshly
	// allocated value of this shape. No shape in this module sets it and
	// no format reads it.
	ParseFromStr func(s string) (reflect.Value, error)
}

// defaultVTable builds the operations derivable purely from reflect.Type,
// with no per-type customization. registry.go calls this once per Shape
// and lets later passes (enum/struct specific construction) override
// individual fields.
func defaultVTable(t reflect.Type) VTable {
	return VTable{
		Default: func() reflect.Value {
			return reflect.New(t).Elem()
		},
		Clone: func(src reflect.Value) reflect.Value {
			dst := reflect.New(t).Elem()
			dst.Set(cloneValue(src))
			return dst
		},
		Equal: func(a, b reflect.Value) bool {
			return reflect.DeepEqual(a.Interface(), b.Interface())
		},
		Hash: func(v reflect.Value) uint64 {
			h := xxhash.New()
			fmt.Fprintf(h, "%#v", v.Interface())
			return h.Sum64()
		},
		Display: func(v reflect.Value) string {
			return fmt.Sprintf("%v", v.Interface())
		},
		Debug: func(v reflect.Value) string {
			return spew.Sdump(v.Interface())
		},
	}
}

// cloneValue deep-copies a reflect.Value without relying on the original's
// addressability, recursing through the composite kinds a Shape's Def can
// describe.
func cloneValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type().Elem())
		out.Elem().Set(cloneValue(v.Elem()))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneValue(iter.Value()))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if !out.Field(i).CanSet() {
				continue
			}
			out.Field(i).Set(cloneValue(v.Field(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(cloneValue(v.Index(i)))
		}
		return out
	default:
		return v
	}
}
