package shape

import "reflect"

// Option is the idiomatic stand-in for Rust's Option<T> (§3.1 def kind
// "option"), used wherever the spec models explicit presence/absence
// rather than Go's usual nil-pointer convention — mainly struct fields
// that must round-trip a JSON `null` distinctly from a missing key.
type Option[T any] struct {
	Valid bool
	Value T
}

// Some constructs a present Option.
func Some[T any](v T) Option[T] { return Option[T]{Valid: true, Value: v} }

// None constructs an absent Option.
func None[T any]() Option[T] { return Option[T]{} }

func (Option[T]) isFacetOption() {}

type optionMarker interface{ isFacetOption() }

var optionMarkerType = reflect.TypeOf((*optionMarker)(nil)).Elem()

// Result is the idiomatic stand-in for Rust's Result<T, E>, modeled as a
// two-variant enum, Ok(T) / Err(E). Kept as a real type (rather than
// routed through RegisterEnum)
// because both arms are generic and known at every call site.
type Result[T, E any] struct {
	Ok    bool
	Val   T
	Cause E
}

// MakeOk constructs a successful Result.
func MakeOk[T, E any](v T) Result[T, E] { return Result[T, E]{Ok: true, Val: v} }

// MakeErr constructs a failed Result.
func MakeErr[T, E any](e E) Result[T, E] { return Result[T, E]{Cause: e} }

// Unwrap returns the success payload; callers must check Ok first.
func (r Result[T, E]) Unwrap() T { return r.Val }

// UnwrapErr returns the failure payload; callers must check Ok first.
func (r Result[T, E]) UnwrapErr() E { return r.Cause }

func (Result[T, E]) isFacetResult() {}

type resultMarker interface{ isFacetResult() }

var resultMarkerType = reflect.TypeOf((*resultMarker)(nil)).Elem()

// buildOptionOrResult handles the two built-in generic wrapper types before
// falling back to ordinary struct-walking. Reports whether t was one of
// them.
func buildOptionOrResult(s *Shape, t reflect.Type) bool {
	switch {
	case t.Implements(optionMarkerType):
		s.Def = DefOption
		s.Category = CategoryContainer
		if f, ok := t.FieldByName("Value"); ok {
			s.Inner = refFor(f.Type)
		}
		return true

	case t.Implements(resultMarkerType):
		s.Def = DefResult
		s.Category = CategoryUserEnum
		okType, _ := t.FieldByName("Val")
		errType, _ := t.FieldByName("Cause")
		s.Variants = []Variant{
			{
				Name:    "Ok",
				Kind:    StructKindTuple,
				GoIndex: 0,
				Fields: []Field{
					{Name: "0", Shape: refFor(okType.Type), Offset: okType.Offset, Index: append([]int{}, okType.Index...)},
				},
			},
			{
				Name:    "Err",
				Kind:    StructKindTuple,
				GoIndex: 1,
				Fields: []Field{
					{Name: "0", Shape: refFor(errType.Type), Offset: errType.Offset, Index: append([]int{}, errType.Index...)},
				},
			},
		}
		return true

	default:
		return false
	}
}
