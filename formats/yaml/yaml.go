// Package yaml adapts the generic deser/ser core to YAML, demonstrating
// that the core is format-agnostic by wiring a real external parser
// library rather than a hand-rolled tokenizer (§1 "Individual per-format
// tokenizers... are out of scope. Each parser is an event source
// satisfying the parser interface").
//
// goccy/go-yaml's top-level Marshal/Unmarshal already do the hard part of
// lexing YAML's indentation-sensitive grammar; this package only bridges
// between its generic Go value representation (map[string]any/[]any/
// scalars) and deser.ParseEvent/ser.Sink, the same bridge a JSON
// implementation would build around encoding/json's Decoder.Token if it
// preferred a decoded-value approach over a raw token stream.
package yaml

import (
	"fmt"
	"sort"

	goyaml "github.com/goccy/go-yaml"

	"github.com/facet-rs/facet-sub005/deser"
	"github.com/facet-rs/facet-sub005/ferrors"
	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

// Parser buffers the whole document as a flat []deser.ParseEvent, same
// strategy as formats/json.Parser: YAML is self-describing, so there is
// no benefit to true streaming for the document sizes this engine targets.
type Parser struct {
	events []deser.ParseEvent
	pos    int
}

// NewParser decodes src into a generic Go value via goccy/go-yaml and
// flattens it into an event stream.
func NewParser(src []byte) (*Parser, error) {
	var v any
	if err := goyaml.Unmarshal(src, &v); err != nil {
		return nil, ferrors.Wrap(ferrors.UnexpectedToken, err, "yaml decode error")
	}
	var events []deser.ParseEvent
	emitValue(v, &events)
	return &Parser{events: events}, nil
}

func emitValue(v any, events *[]deser.ParseEvent) {
	switch val := v.(type) {
	case map[string]any:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventBeginStruct})
		for _, k := range sortedKeys(val) {
			*events = append(*events, deser.ParseEvent{Kind: deser.EventFieldKey, Value: deser.ScalarValue{Kind: deser.ScalarStr, Str: k}})
			emitValue(val[k], events)
		}
		*events = append(*events, deser.ParseEvent{Kind: deser.EventEndStruct})
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, vv := range val {
			m[fmt.Sprintf("%v", k)] = vv
		}
		emitValue(m, events)
	case []any:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventBeginSeq})
		for _, item := range val {
			emitValue(item, events)
		}
		*events = append(*events, deser.ParseEvent{Kind: deser.EventEndSeq})
	case string:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarStr, Str: val}})
	case bool:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarBool, Bool: val}})
	case int:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarI64, I64: int64(val), U64: uint64(val)}})
	case int64:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarI64, I64: val, U64: uint64(val)}})
	case uint64:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarU64, U64: val, I64: int64(val)}})
	case float64:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarF64, F64: val}})
	case nil:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarNull}})
	default:
		*events = append(*events, deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarStr, Str: fmt.Sprintf("%v", val)}})
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (p *Parser) NextEvent() (deser.ParseEvent, error) {
	if p.pos >= len(p.events) {
		return deser.ParseEvent{}, ferrors.New(ferrors.UnexpectedEOF, "no more YAML events")
	}
	e := p.events[p.pos]
	p.pos++
	return e, nil
}

func (p *Parser) PeekEvent() (deser.ParseEvent, bool, error) {
	if p.pos >= len(p.events) {
		return deser.ParseEvent{}, false, nil
	}
	return p.events[p.pos], true, nil
}

func (p *Parser) SkipValue() error {
	evt, err := p.NextEvent()
	if err != nil {
		return err
	}
	switch evt.Kind {
	case deser.EventBeginStruct, deser.EventBeginSeq:
		depth := 1
		for depth > 0 {
			e, err := p.NextEvent()
			if err != nil {
				return err
			}
			switch e.Kind {
			case deser.EventBeginStruct, deser.EventBeginSeq:
				depth++
			case deser.EventEndStruct, deser.EventEndSeq:
				depth--
			}
		}
	}
	return nil
}

func (p *Parser) Hint(h deser.Hint)              {}
func (p *Parser) Span() (deser.Span, bool)        { return deser.Span{}, false }
func (p *Parser) FormatNamespace() (string, bool) { return "yaml", true }

// Sink builds a generic Go value (map[string]any / []any / scalars) as
// ser.Serialize drives it, then hands that value to goccy/go-yaml's
// Marshal for the actual block/flow-style YAML encoding — the YAML
// analogue of formats/json.Sink writing text directly, except here the
// format-specific concerns (block vs flow, quoting) live entirely inside
// the external library rather than in this adapter.
type Sink struct {
	stack []*container
	root  any
}

type container struct {
	isMap      bool
	m          map[string]any
	s          []any
	pendingKey string
}

// NewSink returns an empty Sink ready to be driven by ser.Serialize.
func NewSink() *Sink { return &Sink{} }

// Bytes renders the accumulated value as YAML text.
func (s *Sink) Bytes() ([]byte, error) {
	return goyaml.Marshal(s.root)
}

func (s *Sink) top() *container { return s.stack[len(s.stack)-1] }

func (s *Sink) push(c *container) { s.stack = append(s.stack, c) }

func (s *Sink) pop() *container {
	top := s.top()
	s.stack = s.stack[:len(s.stack)-1]
	return top
}

func (s *Sink) place(v any) {
	if len(s.stack) == 0 {
		s.root = v
		return
	}
	c := s.top()
	if c.isMap {
		c.m[c.pendingKey] = v
	} else {
		c.s = append(c.s, v)
	}
}

func (s *Sink) BeginStruct(sh *shape.Shape) error {
	s.push(&container{isMap: true, m: map[string]any{}})
	return nil
}

func (s *Sink) FieldKey(name string) error {
	s.top().pendingKey = name
	return nil
}

func (s *Sink) EndStruct() error {
	c := s.pop()
	s.place(c.m)
	return nil
}

func (s *Sink) BeginSeq(length int) error {
	s.push(&container{s: make([]any, 0, length)})
	return nil
}

func (s *Sink) EndSeq() error {
	c := s.pop()
	s.place(c.s)
	return nil
}

func (s *Sink) BeginMap(length int) error {
	s.push(&container{isMap: true, m: map[string]any{}})
	return nil
}

func (s *Sink) MapKey(p peek.Peek) error {
	s.top().pendingKey = fmt.Sprintf("%v", p.Scalar())
	return nil
}

func (s *Sink) EndMap() error {
	c := s.pop()
	s.place(c.m)
	return nil
}

func (s *Sink) VariantTag(name string) error {
	s.place(name)
	return nil
}

func (s *Sink) Scalar(p peek.Peek) error {
	s.place(p.Scalar())
	return nil
}

func (s *Sink) RawScalar(str string) error {
	s.place(str)
	return nil
}
