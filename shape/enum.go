package shape

import (
	"reflect"
	"sync"
)

// EnumVariant describes one arm of a registered enum interface: a name, an
// optional explicit discriminant, and the concrete Go struct type carrying
// its payload (nil for a unit variant).
//
// Go has no sum types, so the idiomatic stand-in the rest of this package
// leans on is the same one the standard library and most of the example
// corpus uses for closed sets of shapes: a sealed interface plus one
// concrete struct per arm (cf. go/ast's Node, or
// _examples/miaomiao1992-dingo's AST node interfaces before they were
// trimmed from this module, see DESIGN.md). RegisterEnum is the explicit,
// call-it-once substitute for the information a derive(Facet) macro would
// have extracted from the Rust enum's variant list automatically.
type EnumVariant struct {
	Name         string
	Type         reflect.Type
	Discriminant int64
	HasDiscrim   bool
	IsOther      bool
}

type enumRegistration struct {
	variants []EnumVariant
}

var (
	enumRegistryMu sync.Mutex
	enumRegistry   = map[reflect.Type]enumRegistration{}
)

// RegisterEnum declares that the given interface type is a closed enum
// with the given variants. It must be called (typically from an init())
// before the first Of/OfType call that reaches this interface type;
// registry.go's OfType consults this table when it encounters an
// interface kind.
func RegisterEnum(iface reflect.Type, variants ...EnumVariant) {
	enumRegistryMu.Lock()
	defer enumRegistryMu.Unlock()
	enumRegistry[iface] = enumRegistration{variants: variants}
}

func buildEnum(s *Shape, t reflect.Type, reg enumRegistration) {
	s.Def = DefEnum
	s.Category = CategoryUserEnum

	variants := make([]Variant, 0, len(reg.variants))
	for goIdx, ev := range reg.variants {
		v := Variant{
			Name:         ev.Name,
			Discriminant: ev.Discriminant,
			HasDiscrim:   ev.HasDiscrim,
			IsOther:      ev.IsOther,
			GoIndex:      goIdx,
		}

		if ev.Type == nil {
			v.Kind = StructKindUnit
			variants = append(variants, v)
			continue
		}
		v.Type = ev.Type

		payload := ev.Type
		for payload.Kind() == reflect.Ptr {
			payload = payload.Elem()
		}

		if payload.Kind() != reflect.Struct || payload.NumField() == 0 {
			v.Kind = StructKindUnit
			variants = append(variants, v)
			continue
		}

		// Unexported fields are skipped. A payload whose exported fields
		// are all embedded (anonymous) reads as a tuple variant
		// (newtype-style); any named exported field makes it a struct
		// variant.
		isTuple := true
		fields := make([]Field, 0, payload.NumField())
		for i := 0; i < payload.NumField(); i++ {
			sf := payload.Field(i)
			if !sf.IsExported() {
				continue
			}
			if !sf.Anonymous {
				isTuple = false
			}
			fields = append(fields, Field{
				Name:   sf.Name,
				Shape:  refFor(sf.Type),
				Offset: sf.Offset,
				Index:  append([]int{}, sf.Index...),
				Attrs:  parseFacetTag(sf.Tag.Get("facet")),
			})
		}

		if isTuple {
			v.Kind = StructKindTuple
		} else {
			v.Kind = StructKindStruct
		}
		v.Fields = fields

		variants = append(variants, v)
	}

	s.Variants = variants
}
