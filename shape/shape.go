// Package shape is the reflection-driven registry at the center of the
// framework (§3.1, §4.1). A Shape statically describes one Go type: its
// identity, memory layout, structural kind, fields/variants, and a vtable
// of basic operations. Everything downstream — partial, peek, solver,
// deser, ser, diff — walks a Shape tree instead of a concrete Go type.
//
// Rust's facet generates a Shape per type at compile time via a derive
// macro; Go has no macros, so Of[T] builds the same value the first time a
// type is seen and memoizes it (see registry.go). The resulting Shape is
// still a value that never changes again — it is "lazily resolved" in
// exactly the sense §3.1 describes, just triggered by first use rather than
// a static initializer.
package shape

import "reflect"

// Def names the runtime structural role of a type — the kind dispatched on
// by partial, peek, and the deserializer's per-value dispatch (§4.6).
type Def uint8

const (
	DefInvalid Def = iota
	DefScalar
	DefList
	DefMap
	DefSet
	DefOption
	DefResult
	DefArray
	DefSlice
	DefPointer
	DefStruct
	DefEnum
	DefDynamic
)

func (d Def) String() string {
	switch d {
	case DefScalar:
		return "scalar"
	case DefList:
		return "list"
	case DefMap:
		return "map"
	case DefSet:
		return "set"
	case DefOption:
		return "option"
	case DefResult:
		return "result"
	case DefArray:
		return "array"
	case DefSlice:
		return "slice"
	case DefPointer:
		return "pointer"
	case DefStruct:
		return "struct"
	case DefEnum:
		return "enum"
	case DefDynamic:
		return "dynamic"
	default:
		return "invalid"
	}
}

// Category names the compile-time language category of a type — orthogonal
// to Def (§3.1: "the two tags overlap deliberately").
type Category uint8

const (
	CategoryInvalid Category = iota
	CategoryPrimitive
	CategoryUserStruct
	CategoryUserEnum
	CategoryPointer
	CategoryContainer
	CategoryDynamic
)

// StructKind distinguishes the three struct-like layouts a Shape or Variant
// can have (§3.3).
type StructKind uint8

const (
	StructKindUnit StructKind = iota
	StructKindTuple
	StructKindStruct
)

// Ref is a lazily-resolved pointer to a Shape. Every inner/field/variant
// shape reference in this package is a Ref rather than a direct *Shape —
// this is what breaks static-initialization cycles for recursive types
// (§3.1, §9): a Ref for `*Node` inside `Node.Children []*Node` can be
// called lazily after Node's own Shape has been cached, instead of needing
// Node's Shape to already exist while it is still being built.
type Ref func() *Shape

// Shape is a statically-shaped, lazily-resolved description of one Go
// type. Two Shapes describe the same type iff they are the same pointer
// (§3.1 "shape identity is referential") — registry.go guarantees this by
// caching one Shape per reflect.Type.
type Shape struct {
	// Type is the reflect.Type this Shape describes. Go's reflect package
	// already gives us the "static, value-level description" the spec
	// asks for; Shape adds the facet-specific structure (attributes,
	// tagging discipline, vtable) layered on top of it.
	Type reflect.Type

	Name    string
	PkgPath string

	Size      uintptr
	Align     uintptr
	IsUnsized bool // registry.go never sets it, so it is always false

	Def      Def
	Category Category

	Attrs Attrs
	Doc   []string

	// StructKind applies when Def == DefStruct.
	StructKind StructKind
	Fields     []Field

	// Variants applies when Def == DefEnum (and Result, which is modeled
	// as a two-variant enum: Ok(T) / Err(E)).
	Variants []Variant

	// Inner is the element shape for List/Set/Array/Slice/Option/Pointer,
	// and the value shape for Map.
	Inner Ref
	// Key is the key shape for Map.
	Key Ref

	VTable VTable
}

// Field binds a name to a child shape at a byte offset inside a
// struct/tuple (§3.2).
type Field struct {
	Name     string
	Shape    Ref
	Offset   uintptr
	Index    []int // reflect.Value.FieldByIndex path, supports embedded structs
	Attrs    FieldAttrs
	DocLines []string
}

// Variant is one arm of an enum: a name, an optional explicit discriminant,
// a struct-kind, and its own fields (§3.3).
type Variant struct {
	Name          string
	Discriminant  int64
	HasDiscrim    bool
	Kind          StructKind
	Fields        []Field
	Attrs         Attrs
	IsOther       bool // catch-all variant (§3.3: at most one per enum)
	GoIndex       int  // index into the source Go type's variant list (declaration order)

	// Type is the concrete Go type carrying this variant's payload: the
	// struct type implementing the enum's sealed interface for
	// RegisterEnum-style enums, or nil for a variant with no backing type
	// (partial.SelectVariant then has nothing to construct or assign).
	Type reflect.Type
}

// Absent is the sentinel returned by attribute lookups that find nothing;
// it is never an error (§4.1).
var Absent = struct{}{}
