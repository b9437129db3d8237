package postcard

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

type simpleStruct struct {
	A uint32
	B string
	C bool
}

func TestSimpleStructMatchesPostcardLayout(t *testing.T) {
	v := simpleStruct{A: 123, B: "hello", C: true}
	s := shape.Of[simpleStruct]()

	got, err := Marshal(peek.Of(s, reflect.ValueOf(v)))
	require.NoError(t, err)

	// postcard: varint(123), varint(5)+"hello", byte(1)
	want := []byte{123, 5, 'h', 'e', 'l', 'l', 'o', 1}
	require.Equal(t, want, got)
}

type i32Struct struct {
	Value int32
}

func TestNegativeIntZigzag(t *testing.T) {
	v := i32Struct{Value: -100000}
	s := shape.Of[i32Struct]()
	got, err := Marshal(peek.Of(s, reflect.ValueOf(v)))
	require.NoError(t, err)

	decoded, err := Unmarshal(got, s)
	require.NoError(t, err)
	require.Equal(t, v, decoded.Interface())
}

type vecStruct struct {
	Values []uint32
}

func TestVecRoundTrip(t *testing.T) {
	v := vecStruct{Values: []uint32{1, 2, 3, 4, 5}}
	s := shape.Of[vecStruct]()
	got, err := Marshal(peek.Of(s, reflect.ValueOf(v)))
	require.NoError(t, err)

	decoded, err := Unmarshal(got, s)
	require.NoError(t, err)
	require.Equal(t, v, decoded.Interface())
}

func TestRoundTripSimpleStruct(t *testing.T) {
	v := simpleStruct{A: 42, B: "world", C: false}
	s := shape.Of[simpleStruct]()

	got, err := Marshal(peek.Of(s, reflect.ValueOf(v)))
	require.NoError(t, err)

	decoded, err := Unmarshal(got, s)
	require.NoError(t, err)
	require.Equal(t, v, decoded.Interface())
}
