package xdr

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

type pairStruct struct {
	S string
	N uint32
}

// TestPairBitExact is §8.2 scenario 4: ("ab", 1u32) encodes to
// 00 00 00 02 61 62 00 00 00 00 00 01 — a 4-byte length, the two string
// bytes, two bytes of zero padding to the next 4-byte boundary, then the
// big-endian u32.
func TestPairBitExact(t *testing.T) {
	v := pairStruct{S: "ab", N: 1}
	s := shape.Of[pairStruct]()

	got, err := Marshal(peek.Of(s, reflect.ValueOf(v)))
	require.NoError(t, err)

	want := []byte{0x00, 0x00, 0x00, 0x02, 0x61, 0x62, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	require.Equal(t, want, got)
}

func TestBoolRoundTripsAsU32(t *testing.T) {
	type boolStruct struct{ B bool }
	v := boolStruct{B: true}
	s := shape.Of[boolStruct]()

	got, err := Marshal(peek.Of(s, reflect.ValueOf(v)))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x01}, got)

	decoded, err := Unmarshal(got, s)
	require.NoError(t, err)
	require.Equal(t, v, decoded.Interface())
}

func TestPairRoundTrip(t *testing.T) {
	v := pairStruct{S: "hello world", N: 424242}
	s := shape.Of[pairStruct]()

	got, err := Marshal(peek.Of(s, reflect.ValueOf(v)))
	require.NoError(t, err)

	decoded, err := Unmarshal(got, s)
	require.NoError(t, err)
	require.Equal(t, v, decoded.Interface())
}

type optStruct struct {
	V shape.Option[uint32]
}

func TestOptionRoundTrip(t *testing.T) {
	s := shape.Of[optStruct]()

	some := optStruct{V: shape.Option[uint32]{Valid: true, Value: 7}}
	got, err := Marshal(peek.Of(s, reflect.ValueOf(some)))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x07}, got)
	decoded, err := Unmarshal(got, s)
	require.NoError(t, err)
	require.Equal(t, some, decoded.Interface())

	none := optStruct{}
	got, err = Marshal(peek.Of(s, reflect.ValueOf(none)))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, got)
	decoded, err = Unmarshal(got, s)
	require.NoError(t, err)
	require.Equal(t, none, decoded.Interface())
}
