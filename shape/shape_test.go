package shape

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type point struct {
	X int `facet:"x"`
	Y int `facet:"y"`
}

type withFlatten struct {
	Name string
	Pos  point `facet:"flatten"`
}

type node struct {
	Label    string
	Children []*node
}

func TestOfIsCachedByIdentity(t *testing.T) {
	a := Of[point]()
	b := Of[point]()
	require.Same(t, a, b)
}

func TestStructFieldsCarryAttrs(t *testing.T) {
	s := Of[point]()
	require.Equal(t, DefStruct, s.Def)
	require.Len(t, s.Fields, 2)
	require.Equal(t, "x", s.Fields[0].Attrs.EffectiveName(s.Fields[0].Name))
	require.Equal(t, "y", s.Fields[1].Attrs.EffectiveName(s.Fields[1].Name))
}

func TestFlattenAttrPropagates(t *testing.T) {
	s := Of[withFlatten]()
	require.True(t, s.Fields[1].Attrs.Flatten)
}

func TestRecursiveShapeDoesNotLoop(t *testing.T) {
	s := Of[node]()
	require.Equal(t, DefStruct, s.Def)
	childShape := s.Fields[1].Shape() // []*node
	require.Equal(t, DefSlice, childShape.Def)
	elemShape := childShape.Inner() // *node
	require.Equal(t, DefPointer, elemShape.Def)
	require.Same(t, s, elemShape.Inner()) // *node -> node, same cached Shape
}

func TestStructuralHashStableAndCycleSafe(t *testing.T) {
	s := Of[node]()
	h1 := StructuralHash(s)
	h2 := StructuralHash(s)
	require.Equal(t, h1, h2)

	other := Of[point]()
	require.NotEqual(t, StructuralHash(s), StructuralHash(other))
}

func TestOptionShape(t *testing.T) {
	s := Of[Option[int]]()
	require.Equal(t, DefOption, s.Def)
	require.Equal(t, reflect.Int, s.Inner().Type.Kind())
}

func TestResultShape(t *testing.T) {
	s := Of[Result[int, string]]()
	require.Equal(t, DefResult, s.Def)
	require.Len(t, s.Variants, 2)
	require.Equal(t, "Ok", s.Variants[0].Name)
	require.Equal(t, "Err", s.Variants[1].Name)
}

type shirtSize int

const (
	small shirtSize = iota
	medium
	large
)

type sizeEnum interface{ isSizeEnum() }
type smallVariant struct{}
type mediumVariant struct{}
type largeVariant struct{}

func (smallVariant) isSizeEnum()  {}
func (mediumVariant) isSizeEnum() {}
func (largeVariant) isSizeEnum()  {}

func init() {
	RegisterEnum(reflect.TypeOf((*sizeEnum)(nil)).Elem(),
		EnumVariant{Name: "Small", Type: reflect.TypeOf(smallVariant{}), Discriminant: 0, HasDiscrim: true},
		EnumVariant{Name: "Medium", Type: reflect.TypeOf(mediumVariant{}), Discriminant: 1, HasDiscrim: true},
		EnumVariant{Name: "Large", Type: reflect.TypeOf(largeVariant{}), Discriminant: 2, HasDiscrim: true},
	)
}

func TestRegisteredEnum(t *testing.T) {
	s := OfType(reflect.TypeOf((*sizeEnum)(nil)).Elem())
	require.Equal(t, DefEnum, s.Def)
	require.Len(t, s.Variants, 3)
	require.Equal(t, StructKindUnit, s.Variants[0].Kind)
}

func TestParseFacetTagRenameAll(t *testing.T) {
	fa := parseFacetTag("rename_all=snake_case")
	require.Equal(t, "user_id", fa.EffectiveName("UserId"))
}
