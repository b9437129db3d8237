package deser

import "github.com/facet-rs/facet-sub005/ferrors"

// bufferParser replays a previously-captured event slice as a Parser, so a
// value already consumed from the live parser (to probe an enum's keys,
// or to defer a flatten field's routing) can be run back through the
// ordinary dispatch machinery exactly as if it had come from the wire the
// first time. Never constructed outside this package — it exists purely
// to satisfy the Parser interface for the second, buffer-backed pass (§9
// "materializes events into a ring buffer").
type bufferParser struct {
	events []ParseEvent
	pos    int
}

func newBufferParser(events []ParseEvent) *bufferParser {
	return &bufferParser{events: events}
}

func (b *bufferParser) NextEvent() (ParseEvent, error) {
	if b.pos >= len(b.events) {
		return ParseEvent{}, ferrors.New(ferrors.UnexpectedEOF, "buffer parser exhausted")
	}
	evt := b.events[b.pos]
	b.pos++
	return evt, nil
}

func (b *bufferParser) PeekEvent() (ParseEvent, bool, error) {
	if b.pos >= len(b.events) {
		return ParseEvent{}, false, nil
	}
	return b.events[b.pos], true, nil
}

func (b *bufferParser) SkipValue() error {
	evt, err := b.NextEvent()
	if err != nil {
		return err
	}
	depth := 0
	switch evt.Kind {
	case EventBeginStruct, EventBeginSeq, EventBeginMap:
		depth = 1
	default:
		return nil
	}
	for depth > 0 {
		e, err := b.NextEvent()
		if err != nil {
			return err
		}
		switch e.Kind {
		case EventBeginStruct, EventBeginSeq, EventBeginMap:
			depth++
		case EventEndStruct, EventEndSeq, EventEndMap:
			depth--
		}
	}
	return nil
}

func (b *bufferParser) Hint(Hint) {}

func (b *bufferParser) Span() (Span, bool) { return Span{}, false }

func (b *bufferParser) FormatNamespace() (string, bool) { return "", false }
