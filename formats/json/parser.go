// Package json adapts the generic deser/ser core to JSON text. JSON is
// self-describing, so Parser.Hint is a no-op here. postcard and xdr, which
// are not self-describing, do not implement deser.Parser at all and decode
// straight from a shape.
//
// No JSON library appears anywhere in the example pack's dependency
// surface, and JSON's grammar is simple enough that the teacher's own
// style (hand-rolled recursive-descent lexers in its former pkg/parser,
// now deleted — see DESIGN.md) argues for reusing stdlib encoding/json's
// tokenizer rather than either hand-rolling a second lexer or reaching for
// an unrelated third-party JSON library no example repo uses; this is the
// one deser/ser front-end justified as stdlib in DESIGN.md.
package json

import (
	"bytes"
	stdjson "encoding/json"
	"io"

	"github.com/facet-rs/facet-sub005/deser"
	"github.com/facet-rs/facet-sub005/ferrors"
)

// Parser buffers the full token stream from src up front as a flat
// []deser.ParseEvent, then walks it like a cursor. Buffering the whole
// document trades streaming for a trivial, correct Peek/Skip
// implementation; formats/postcard has no Parser and instead decodes its
// input byte slice directly against a shape.
type Parser struct {
	events []deser.ParseEvent
	pos    int
}

// NewParser tokenizes all of src's JSON document into a flat event stream.
func NewParser(src []byte) (*Parser, error) {
	dec := stdjson.NewDecoder(bytes.NewReader(src))
	var events []deser.ParseEvent
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, ferrors.New(ferrors.UnexpectedToken, err.Error())
		}
		events = append(events, tokenToEvent(tok))
	}
	return &Parser{events: events}, nil
}

func tokenToEvent(tok stdjson.Token) deser.ParseEvent {
	switch v := tok.(type) {
	case stdjson.Delim:
		switch v {
		case '{':
			return deser.ParseEvent{Kind: deser.EventBeginStruct}
		case '}':
			return deser.ParseEvent{Kind: deser.EventEndStruct}
		case '[':
			return deser.ParseEvent{Kind: deser.EventBeginSeq}
		case ']':
			return deser.ParseEvent{Kind: deser.EventEndSeq}
		}
	case string:
		return deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarStr, Str: v}}
	case bool:
		return deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarBool, Bool: v}}
	case float64:
		return deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarF64, F64: v, I64: int64(v), U64: uint64(v)}}
	case nil:
		return deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarNull}}
	}
	return deser.ParseEvent{Kind: deser.EventScalar, Value: deser.ScalarValue{Kind: deser.ScalarNull}}
}

// NextEvent returns the next event, reclassifying plain string scalars in
// key position as EventFieldKey — stdjson.Decoder.Token() does not
// distinguish object keys from string values on its own (see classify).
func (p *Parser) NextEvent() (deser.ParseEvent, error) {
	if p.pos >= len(p.events) {
		return deser.ParseEvent{}, ferrors.New(ferrors.UnexpectedEOF, "no more JSON events")
	}
	e := p.classify(p.pos)
	p.pos++
	return e, nil
}

func (p *Parser) PeekEvent() (deser.ParseEvent, bool, error) {
	if p.pos >= len(p.events) {
		return deser.ParseEvent{}, false, nil
	}
	return p.classify(p.pos), true, nil
}

// classify rewrites a raw string-scalar event at index i into
// EventFieldKey when i is in key position within its enclosing struct:
// immediately after `{` or immediately after a complete value at the same
// struct-nesting depth, alternating key/value.
func (p *Parser) classify(i int) deser.ParseEvent {
	e := p.events[i]
	if e.Kind != deser.EventScalar || e.Value.Kind != deser.ScalarStr {
		return e
	}
	if structKeyPositionBruteForce(p.events, i) {
		return deser.ParseEvent{Kind: deser.EventFieldKey, Value: e.Value}
	}
	return e
}

// structKeyPositionBruteForce walks from the start of the nearest
// enclosing struct to i, alternating key/value at that struct's nesting
// depth, and reports whether position i lands on a key.
func structKeyPositionBruteForce(events []deser.ParseEvent, i int) bool {
	// Find the nearest unmatched BeginStruct before i.
	depth := 0
	structStart := -1
	for j := i - 1; j >= 0; j-- {
		switch events[j].Kind {
		case deser.EventEndStruct:
			depth++
		case deser.EventBeginStruct:
			if depth == 0 {
				structStart = j
			} else {
				depth--
			}
		}
		if structStart >= 0 {
			break
		}
	}
	if structStart < 0 {
		return false
	}

	pos := structStart + 1
	expectKey := true
	innerDepth := 0
	for pos < i {
		switch events[pos].Kind {
		case deser.EventBeginStruct, deser.EventBeginSeq, deser.EventBeginMap:
			innerDepth++
		case deser.EventEndStruct, deser.EventEndSeq, deser.EventEndMap:
			innerDepth--
		}
		if innerDepth == 0 {
			expectKey = !expectKey
		}
		pos++
	}
	return expectKey
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

func (p *Parser) Hint(h deser.Hint)                   {}
func (p *Parser) Span() (deser.Span, bool)             { return deser.Span{}, false }
func (p *Parser) FormatNamespace() (string, bool)      { return "json", true }
