package deser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/fconfig"
	"github.com/facet-rs/facet-sub005/ferrors"
	"github.com/facet-rs/facet-sub005/shape"
)

type point struct {
	X int
	Y int
}

// fakeParser replays a fixed event sequence, used to drive the engine
// without a real wire format.
type fakeParser struct {
	events []ParseEvent
	pos    int
}

func strEvent(s string) ParseEvent { return ParseEvent{Kind: EventFieldKey, Value: ScalarValue{Kind: ScalarStr, Str: s}} }
func intEvent(i int64) ParseEvent {
	return ParseEvent{Kind: EventScalar, Value: ScalarValue{Kind: ScalarI64, I64: i}}
}

func (p *fakeParser) NextEvent() (ParseEvent, error) {
	if p.pos >= len(p.events) {
		return ParseEvent{}, nil
	}
	e := p.events[p.pos]
	p.pos++
	return e, nil
}

func (p *fakeParser) PeekEvent() (ParseEvent, bool, error) {
	if p.pos >= len(p.events) {
		return ParseEvent{}, false, nil
	}
	return p.events[p.pos], true, nil
}

func (p *fakeParser) SkipValue() error {
	p.pos++
	return nil
}
func (p *fakeParser) Hint(h Hint)                         {}
func (p *fakeParser) Span() (Span, bool)                  { return Span{}, false }
func (p *fakeParser) FormatNamespace() (string, bool)     { return "", false }

func TestDeserializeSimpleStruct(t *testing.T) {
	p := &fakeParser{events: []ParseEvent{
		{Kind: EventBeginStruct},
		strEvent("X"),
		intEvent(1),
		strEvent("Y"),
		intEvent(2),
		{Kind: EventEndStruct},
	}}

	s := shape.Of[point]()
	cfg := fconfig.Default().Deser
	v, err := Deserialize(p, s, &cfg)
	require.NoError(t, err)
	require.Equal(t, point{1, 2}, v.Interface())
}

type narrow struct {
	V int8
}

// TestDeserializeRejectsOutOfRangeScalar exercises the numeric tightening
// a wider scalar event must pass before it can populate a narrower field.
func TestDeserializeRejectsOutOfRangeScalar(t *testing.T) {
	p := &fakeParser{events: []ParseEvent{
		{Kind: EventBeginStruct},
		strEvent("V"),
		intEvent(1000),
		{Kind: EventEndStruct},
	}}

	s := shape.Of[narrow]()
	cfg := fconfig.Default().Deser
	_, err := Deserialize(p, s, &cfg)
	require.Error(t, err)

	var ferr *ferrors.Error
	require.True(t, errors.As(err, &ferr))
	require.Equal(t, ferrors.NumberOutOfRange, ferr.Kind)
}

type authInfo struct {
	Port int
}

type serviceWithAuth struct {
	Name string
	Auth authInfo `facet:"flatten"`
}

// TestDeserializeFlattenStructField exercises a flattened struct field
// whose own key ("Port") is interleaved with the outer struct's key
// ("Name") at the same nesting level — the key never matches a direct
// field, so it has to be routed to Auth's own schema instead of skipped.
func TestDeserializeFlattenStructField(t *testing.T) {
	p := &fakeParser{events: []ParseEvent{
		{Kind: EventBeginStruct},
		strEvent("Name"), {Kind: EventScalar, Value: ScalarValue{Kind: ScalarStr, Str: "web"}},
		strEvent("Port"), intEvent(8080),
		{Kind: EventEndStruct},
	}}

	s := shape.Of[serviceWithAuth]()
	cfg := fconfig.Default().Deser
	v, err := Deserialize(p, s, &cfg)
	require.NoError(t, err)
	require.Equal(t, serviceWithAuth{Name: "web", Auth: authInfo{Port: 8080}}, v.Interface())
}
