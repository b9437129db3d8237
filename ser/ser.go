// Package ser is the generic serializer driver described in §4.7: given a
// peek.Peek over a fully-built value and a format-specific Sink, it walks
// the value (struct fields via FieldsForSerialize, list items, map
// entries, enum variants, scalars) and calls the matching Sink method.
// All format-specific concerns — attribute-vs-element placement in XML,
// block-vs-flow in YAML — live entirely in the Sink implementation, never
// here. formats/postcard and formats/xdr do not use Sink; they walk
// peek.Peek themselves.
package ser

import (
	"reflect"

	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

// Sink is the format-specific write side the driver calls into (§6.2).
type Sink interface {
	BeginStruct(s *shape.Shape) error
	FieldKey(name string) error
	EndStruct() error

	BeginSeq(length int) error
	EndSeq() error

	BeginMap(length int) error
	MapKey(p peek.Peek) error
	EndMap() error

	VariantTag(name string) error

	Scalar(p peek.Peek) error

	// RawScalar lets a format-specific proxy contribute a pre-rendered
	// scalar string for a raw-embedded type (§6.2 "raw_scalar").
	RawScalar(s string) error
}

// Predicates maps a skip_serializing_if predicate name to the function it
// refers to; Serialize passes it straight through to
// peek.FieldsForSerialize.
type Predicates map[string]func(reflect.Value) bool

// Serialize drives sink over p, the single generic walk every format
// reuses.
func Serialize(p peek.Peek, sink Sink, preds Predicates) error {
	switch p.Shape.Def {
	case shape.DefStruct:
		return serializeStruct(p, sink, preds)
	case shape.DefList, shape.DefSlice, shape.DefArray, shape.DefSet:
		return serializeList(p, sink, preds)
	case shape.DefMap:
		return serializeMap(p, sink, preds)
	case shape.DefOption:
		return serializeOption(p, sink, preds)
	case shape.DefEnum, shape.DefResult:
		return serializeEnum(p, sink, preds)
	default:
		return sink.Scalar(p)
	}
}

func serializeStruct(p peek.Peek, sink Sink, preds Predicates) error {
	fields := p.FieldsForSerialize(preds)

	if err := sink.BeginStruct(p.Shape); err != nil {
		return err
	}
	for _, f := range fields {
		if err := sink.FieldKey(f.Name); err != nil {
			return err
		}
		if err := Serialize(f.Peek, sink, preds); err != nil {
			return err
		}
	}
	return sink.EndStruct()
}

func serializeList(p peek.Peek, sink Sink, preds Predicates) error {
	n := p.ListLen()
	if err := sink.BeginSeq(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := Serialize(p.ListItem(i), sink, preds); err != nil {
			return err
		}
	}
	return sink.EndSeq()
}

func serializeMap(p peek.Peek, sink Sink, preds Predicates) error {
	keys := p.MapKeys()
	if err := sink.BeginMap(len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		if err := sink.MapKey(k); err != nil {
			return err
		}
		if err := Serialize(p.MapGet(k), sink, preds); err != nil {
			return err
		}
	}
	return sink.EndMap()
}

func serializeOption(p peek.Peek, sink Sink, preds Predicates) error {
	if !p.IsOptionPresent() {
		return sink.Scalar(p)
	}
	return Serialize(p.OptionValue(), sink, preds)
}

func serializeEnum(p peek.Peek, sink Sink, preds Predicates) error {
	_, name, payload, ok := p.ActiveVariant()
	if !ok {
		return sink.Scalar(p)
	}
	if err := sink.VariantTag(name); err != nil {
		return err
	}
	if payload.Shape == nil {
		return nil
	}
	return Serialize(payload, sink, preds)
}
