package partial

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/shape"
)

type point struct {
	X int
	Y int
}

type withTags struct {
	Name string
	Tags []string
}

func TestBuildSimpleStruct(t *testing.T) {
	s := shape.Of[point]()
	p := New(s)

	require.NoError(t, p.BeginField("X"))
	require.NoError(t, p.Set(1))
	require.NoError(t, p.End())

	require.NoError(t, p.BeginField("Y"))
	require.NoError(t, p.Set(2))
	require.NoError(t, p.End())

	v, err := p.Build()
	require.NoError(t, err)
	require.Equal(t, point{1, 2}, v.Interface())
}

func TestBuildMissingFieldFails(t *testing.T) {
	s := shape.Of[point]()
	p := New(s)
	require.NoError(t, p.BeginField("X"))
	require.NoError(t, p.Set(1))
	require.NoError(t, p.End())

	_, err := p.Build()
	require.Error(t, err)
}

type withOption struct {
	A int
	B shape.Option[int]
}

// TestBuildOmittedOptionFieldSucceeds is the fix for an omitted Option
// field being reported as MissingField: §4.3's completeness rule (c) and
// §7's silent-case (c) both require an absent Option to resolve to None,
// not an error.
func TestBuildOmittedOptionFieldSucceeds(t *testing.T) {
	s := shape.Of[withOption]()
	p := New(s)

	require.NoError(t, p.BeginField("A"))
	require.NoError(t, p.Set(1))
	require.NoError(t, p.End())

	v, err := p.Build()
	require.NoError(t, err)
	require.Equal(t, withOption{A: 1, B: shape.None[int]()}, v.Interface())
}

func TestBuildListField(t *testing.T) {
	s := shape.Of[withTags]()
	p := New(s)

	require.NoError(t, p.BeginField("Name"))
	require.NoError(t, p.Set("svc"))
	require.NoError(t, p.End())

	require.NoError(t, p.BeginField("Tags"))
	for _, tag := range []string{"a", "b"} {
		require.NoError(t, p.BeginListItem())
		require.NoError(t, p.Set(tag))
		require.NoError(t, p.End())
	}
	require.NoError(t, p.End())

	v, err := p.Build()
	require.NoError(t, err)
	require.Equal(t, withTags{Name: "svc", Tags: []string{"a", "b"}}, v.Interface())
}

func TestUnknownFieldErrors(t *testing.T) {
	s := shape.Of[point]()
	p := New(s)
	err := p.BeginField("Z")
	require.Error(t, err)
}

type shapeKind interface{ isShapeKind() }
type circleKind struct{ Radius int }
type squareKind struct{ Side int }

func (circleKind) isShapeKind() {}
func (squareKind) isShapeKind() {}

func init() {
	shape.RegisterEnum(reflect.TypeOf((*shapeKind)(nil)).Elem(),
		shape.EnumVariant{Name: "Circle", Type: reflect.TypeOf(circleKind{})},
		shape.EnumVariant{Name: "Square", Type: reflect.TypeOf(squareKind{})},
	)
}

// TestBuildEnumVariantPayload exercises SelectVariant+BeginNthField+Set+Build
// against a registered interface enum whose active variant carries fields,
// confirming the built value is the concrete payload boxed back into the
// interface slot rather than a discarded/zero result.
func TestBuildEnumVariantPayload(t *testing.T) {
	s := shape.OfType(reflect.TypeOf((*shapeKind)(nil)).Elem())
	p := New(s)

	require.NoError(t, p.SelectVariant(0)) // Circle
	require.NoError(t, p.BeginNthField(0))
	require.NoError(t, p.Set(5))
	require.NoError(t, p.End())

	v, err := p.Build()
	require.NoError(t, err)
	require.Equal(t, circleKind{Radius: 5}, v.Interface())
}

func TestAbandonRunsDrops(t *testing.T) {
	s := shape.Of[point]()
	p := New(s)
	require.NoError(t, p.BeginField("X"))
	require.NoError(t, p.Set(1))
	require.NoError(t, p.End())
	p.Abandon()
}
