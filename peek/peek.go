// Package peek is the read-side mirror of partial (§4.3): given a fully
// constructed value of known shape.Shape, it lets callers walk fields,
// destructure variants, and iterate lists/maps without knowing the
// concrete Go type. The one behavior unique to this package is
// FieldsForSerialize, the single place flatten/skip/skip_if affect what
// goes out on the wire (§4.3 "the only place flatten affects the wire on
// output").
package peek

import (
	"reflect"

	"github.com/davecgh/go-spew/spew"

	"github.com/facet-rs/facet-sub005/shape"
)

// Peek is a read-only cursor positioned over one reflect.Value and its
// shape.Shape.
type Peek struct {
	Shape *shape.Shape
	Value reflect.Value
}

// Of wraps v (which must be of shape s's Go type) for reading.
func Of(s *shape.Shape, v reflect.Value) Peek {
	return Peek{Shape: s, Value: v}
}

// Field looks up a struct field by its Go name and returns a Peek over it.
func (p Peek) Field(name string) (Peek, bool) {
	for _, f := range p.Shape.Fields {
		if f.Name == name {
			return Peek{Shape: f.Shape(), Value: p.Value.FieldByIndex(f.Index)}, true
		}
	}
	return Peek{}, false
}

// Fields returns every declared field in declaration order, regardless of
// skip/flatten attributes — use FieldsForSerialize for the output-filtered
// view.
func (p Peek) Fields() []FieldPeek {
	out := make([]FieldPeek, 0, len(p.Shape.Fields))
	for _, f := range p.Shape.Fields {
		out = append(out, FieldPeek{
			Name:  f.Attrs.EffectiveName(f.Name),
			Attrs: f.Attrs,
			Peek:  Peek{Shape: f.Shape(), Value: p.Value.FieldByIndex(f.Index)},
		})
	}
	return out
}

// FieldPeek pairs a field's output name and attributes with a Peek over
// its value.
type FieldPeek struct {
	Name  string
	Attrs shape.FieldAttrs
	Peek  Peek
}

// FieldsForSerialize returns the fields that should actually reach the
// wire: skip/skip_serializing fields are dropped, skip_serializing_if
// predicates are evaluated, and flatten fields are inlined so their own
// children appear at this level instead of nested one level deeper (§4.3).
func (p Peek) FieldsForSerialize(predicates map[string]func(reflect.Value) bool) []FieldPeek {
	var out []FieldPeek
	for _, f := range p.Shape.Fields {
		if f.Attrs.Skip || f.Attrs.SkipSerializing {
			continue
		}
		fv := p.Value.FieldByIndex(f.Index)
		if pred, ok := predicates[f.Attrs.SkipSerializeIf]; ok && f.Attrs.SkipSerializeIf != "" && pred(fv) {
			continue
		}

		if f.Attrs.Flatten {
			inner := Peek{Shape: f.Shape(), Value: fv}
			out = append(out, inner.FieldsForSerialize(predicates)...)
			continue
		}

		out = append(out, FieldPeek{
			Name:  f.Attrs.EffectiveName(f.Name),
			Attrs: f.Attrs,
			Peek:  Peek{Shape: f.Shape(), Value: fv},
		})
	}
	return out
}

// ActiveVariant returns the index and name of the enum variant currently
// held by p, determined by walking the registered variant payload types
// against the concrete value stored behind the interface.
func (p Peek) ActiveVariant() (idx int, name string, payload Peek, ok bool) {
	if p.Shape.Def != shape.DefEnum && p.Shape.Def != shape.DefResult {
		return 0, "", Peek{}, false
	}

	if p.Shape.Def == shape.DefResult {
		okField := p.Value.FieldByName("Ok")
		if okField.IsValid() && okField.Bool() {
			v := p.Shape.Variants[0]
			return 0, v.Name, Peek{Shape: v.Fields[0].Shape(), Value: p.Value.FieldByName("Val")}, true
		}
		v := p.Shape.Variants[1]
		return 1, v.Name, Peek{Shape: v.Fields[0].Shape(), Value: p.Value.FieldByName("Cause")}, true
	}

	concrete := p.Value
	if concrete.Kind() == reflect.Interface {
		concrete = concrete.Elem()
	}
	for i, v := range p.Shape.Variants {
		if v.Type == nil || concrete.Type() != v.Type {
			continue
		}
		if v.Kind == shape.StructKindUnit || len(v.Fields) == 0 {
			return i, v.Name, Peek{}, true
		}
		// The payload's own shape (a plain struct, not the enum shape
		// again) is what a caller actually wants to walk fields on — using
		// p.Shape here would make Serialize re-enter serializeEnum forever.
		payloadValue := concrete
		payloadType := v.Type
		if payloadType.Kind() == reflect.Ptr {
			payloadValue = payloadValue.Elem()
			payloadType = payloadType.Elem()
		}
		return i, v.Name, Peek{Shape: shape.OfType(payloadType), Value: payloadValue}, true
	}
	return 0, "", Peek{}, false
}

// ListLen reports how many elements a list/array/slice Peek holds.
func (p Peek) ListLen() int { return p.Value.Len() }

// ListItem returns a Peek over the element at index i.
func (p Peek) ListItem(i int) Peek {
	return Peek{Shape: p.Shape.Inner(), Value: p.Value.Index(i)}
}

// MapKeys returns Peeks over every key in a map value, in Go's
// (unspecified) map iteration order; callers that need determinism sort
// by Display themselves.
func (p Peek) MapKeys() []Peek {
	keys := p.Value.MapKeys()
	out := make([]Peek, len(keys))
	for i, k := range keys {
		out[i] = Peek{Shape: p.Shape.Key(), Value: k}
	}
	return out
}

// MapGet returns a Peek over the value stored at key.
func (p Peek) MapGet(key Peek) Peek {
	return Peek{Shape: p.Shape.Inner(), Value: p.Value.MapIndex(key.Value)}
}

// IsOptionPresent reports whether an Option-shaped Peek holds a value.
func (p Peek) IsOptionPresent() bool {
	return p.Value.FieldByName("Valid").Bool()
}

// OptionValue returns a Peek over an Option's payload; callers must check
// IsOptionPresent first.
func (p Peek) OptionValue() Peek {
	return Peek{Shape: p.Shape.Inner(), Value: p.Value.FieldByName("Value")}
}

// Scalar returns the underlying Go value for a scalar-def Peek.
func (p Peek) Scalar() any { return p.Value.Interface() }

// Dump renders p for diagnostics via the shape's Debug vtable entry,
// falling back to a raw go-spew dump if the shape declares none.
func (p Peek) Dump() string {
	if p.Shape.VTable.Debug != nil {
		return p.Shape.VTable.Debug(p.Value)
	}
	return spew.Sdump(p.Value.Interface())
}
