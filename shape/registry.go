package shape

import (
	"reflect"
	"sync"
)

// registry caches one *Shape per reflect.Type, process-wide. This is what
// makes shape identity referential (§3.1): two calls to Of[T]() for the
// same T always return the same pointer, even across goroutines.
var (
	registryMu sync.Mutex
	registry   = map[reflect.Type]*Shape{}
)

// Of returns the Shape describing T, building and caching it on first use.
// Structurally this plays the role of Rust facet's derive(Facet) macro
// output, just resolved at first call instead of compile time (package
// doc).
func Of[T any]() *Shape {
	var zero T
	return OfType(reflect.TypeOf(zero))
}

// OfType is the non-generic entry point, used when only a reflect.Type is
// in hand (e.g. while walking a parent's fields).
func OfType(t reflect.Type) *Shape {
	registryMu.Lock()
	defer registryMu.Unlock()
	if s, ok := registry[t]; ok {
		return s
	}

	// Reserve the slot before building. build never calls OfType itself:
	// every child shape goes through refFor, which calls OfType lazily,
	// after this function returns. So a recursive type (Node.Children
	// []*Node) finds its own Shape in the cache, holding registryMu through
	// build cannot deadlock, and no goroutine sees a half-built Shape.
	s := &Shape{Type: t}
	registry[t] = s
	build(s, t)
	return s
}

// refFor returns a Ref that resolves elem lazily via the registry, instead
// of eagerly building it inline. This is the mechanism that breaks
// recursive-shape cycles described in shape.go's Ref doc.
func refFor(elem reflect.Type) Ref {
	return func() *Shape {
		return OfType(elem)
	}
}

func build(s *Shape, t reflect.Type) {
	s.Name = t.Name()
	if t.PkgPath() != "" {
		s.PkgPath = t.PkgPath()
	}
	s.Size = t.Size()
	s.Align = uintptr(t.Align())
	s.VTable = defaultVTable(t)

	if t.Kind() == reflect.Struct && buildOptionOrResult(s, t) {
		return
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		s.Def = DefScalar
		s.Category = CategoryPrimitive

	case reflect.Ptr:
		s.Def = DefPointer
		s.Category = CategoryPointer
		s.Inner = refFor(t.Elem())

	case reflect.Slice:
		s.Def = DefSlice
		s.Category = CategoryContainer
		s.Inner = refFor(t.Elem())

	case reflect.Array:
		s.Def = DefArray
		s.Category = CategoryContainer
		s.Inner = refFor(t.Elem())

	case reflect.Map:
		s.Def = DefMap
		s.Category = CategoryContainer
		s.Key = refFor(t.Key())
		s.Inner = refFor(t.Elem())

	case reflect.Struct:
		buildStruct(s, t)

	case reflect.Interface:
		enumRegistryMu.Lock()
		reg, isEnum := enumRegistry[t]
		enumRegistryMu.Unlock()
		if isEnum {
			buildEnum(s, t, reg)
		} else {
			s.Def = DefDynamic
			s.Category = CategoryDynamic
		}

	default:
		// Chan, Func, UnsafePointer: no wire representation. Left as
		// DefInvalid; partial/peek reject these shapes explicitly rather
		// than silently doing the wrong thing.
		s.Def = DefInvalid
		s.Category = CategoryInvalid
	}
}

// structTagRename, when a struct carries it, is read from a synthetic
// field named "_" with a `facet:"rename_all=..."` tag — the idiomatic Go
// substitute for Rust's `#[facet(rename_all = "...")]` container attribute,
// since Go struct tags only attach to fields.
const renameAllSentinelField = "_"

func buildStruct(s *Shape, t reflect.Type) {
	s.Def = DefStruct
	s.Category = CategoryUserStruct
	s.StructKind = StructKindStruct

	renameAll := ""
	if f, ok := t.FieldByName(renameAllSentinelField); ok {
		renameAll = parseFacetTag(f.Tag.Get("facet")).RenameAll
	}

	if t.NumField() == 0 {
		s.StructKind = StructKindUnit
		return
	}

	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Name == renameAllSentinelField || !sf.IsExported() {
			continue
		}

		attrs := parseFacetTag(sf.Tag.Get("facet"))
		if attrs.Skip {
			continue
		}
		if attrs.RenameAll == "" {
			attrs.RenameAll = renameAll
		}

		fields = append(fields, Field{
			Name:   sf.Name,
			Shape:  refFor(sf.Type),
			Offset: sf.Offset,
			Index:  append([]int{}, sf.Index...),
			Attrs:  attrs,
		})
	}
	s.Fields = fields
}
