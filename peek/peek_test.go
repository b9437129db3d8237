package peek

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/shape"
)

type inner struct {
	Port int `facet:"port"`
}

type outer struct {
	Name string
	Auth inner  `facet:"flatten"`
	Temp string `facet:"skip_serializing"`
}

func TestFieldsForSerializeInlinesFlatten(t *testing.T) {
	s := shape.Of[outer]()
	v := outer{Name: "svc", Auth: inner{Port: 8080}, Temp: "x"}
	p := Of(s, reflect.ValueOf(v))

	fields := p.FieldsForSerialize(nil)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	require.Equal(t, []string{"Name", "port"}, names)
}

func TestOptionPeek(t *testing.T) {
	s := shape.Of[shape.Option[int]]()
	v := shape.Some(42)
	p := Of(s, reflect.ValueOf(v))
	require.True(t, p.IsOptionPresent())
	require.Equal(t, 42, p.OptionValue().Scalar())
}
