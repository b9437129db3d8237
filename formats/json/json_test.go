package json

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/deser"
	"github.com/facet-rs/facet-sub005/fconfig"
	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/ser"
	"github.com/facet-rs/facet-sub005/shape"
)

type svcConfig struct {
	Name string
	Port int
	Tags []string
}

func TestParseThenDeserializeStruct(t *testing.T) {
	src := []byte(`{"Name":"web","Port":8080,"Tags":["a","b"]}`)
	p, err := NewParser(src)
	require.NoError(t, err)

	s := shape.Of[svcConfig]()
	cfg := fconfig.Default().Deser
	v, err := deser.Deserialize(p, s, &cfg)
	require.NoError(t, err)
	require.Equal(t, svcConfig{Name: "web", Port: 8080, Tags: []string{"a", "b"}}, v.Interface())
}

func TestSerializeStructToJSON(t *testing.T) {
	v := svcConfig{Name: "web", Port: 8080, Tags: []string{"a", "b"}}
	s := shape.Of[svcConfig]()
	sink := NewSink()

	err := ser.Serialize(peek.Of(s, reflect.ValueOf(v)), sink, nil)
	require.NoError(t, err)
	require.Equal(t, `{"Name":"web","Port":8080,"Tags":["a","b"]}`, string(sink.Bytes()))
}

func TestRoundTripStruct(t *testing.T) {
	v := svcConfig{Name: "cache", Port: 6379, Tags: []string{"redis"}}
	s := shape.Of[svcConfig]()

	sink := NewSink()
	require.NoError(t, ser.Serialize(peek.Of(s, reflect.ValueOf(v)), sink, nil))

	p, err := NewParser(sink.Bytes())
	require.NoError(t, err)
	cfg := fconfig.Default().Deser
	got, err := deser.Deserialize(p, s, &cfg)
	require.NoError(t, err)
	require.Equal(t, v, got.Interface())
}
