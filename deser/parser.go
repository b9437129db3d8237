package deser

import "github.com/facet-rs/facet-sub005/ferrors"

// Span is a byte range in the source text a parser was reading, mirroring
// ferrors.Span so format errors carry the same kind of position
// information as everything else in the framework.
type Span = ferrors.Span

// Parser is the interface the event-stream format front-ends
// (formats/json, formats/yaml) implement; formats/postcard and
// formats/xdr decode without it. The engine drives it
// purely through these methods; no format-specific code exists in engine.go
// or dispatch.go (§6.1).
type Parser interface {
	// NextEvent consumes and returns the next event in the stream.
	NextEvent() (ParseEvent, error)

	// PeekEvent inspects the next event without consuming it.
	PeekEvent() (ParseEvent, bool, error)

	// SkipValue consumes and discards one complete value (scalar, or a
	// balanced struct/seq/map).
	SkipValue() error

	// Hint informs a non-self-describing parser what shape is expected
	// next; self-describing formats (JSON, YAML) may ignore it.
	Hint(h Hint)

	// Span returns the byte range most recently consumed, if the format
	// tracks spans.
	Span() (Span, bool)

	// FormatNamespace names the format for format-specific proxy lookup
	// (§6.2 "XML uses Some(\"xml\") to prefer an xml::proxy").
	FormatNamespace() (string, bool)
}
