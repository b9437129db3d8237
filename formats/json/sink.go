package json

import (
	"bytes"
	stdjson "encoding/json"
	"fmt"

	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

// Sink writes JSON text, implementing ser.Sink. Structural delimiters are
// tracked with a small stack so commas are placed correctly between
// siblings without the caller having to know about JSON punctuation.
type Sink struct {
	buf        bytes.Buffer
	needsComma []bool
	pendingKey bool
}

// NewSink returns an empty Sink ready to be driven by ser.Serialize.
func NewSink() *Sink { return &Sink{} }

// Bytes returns the JSON text written so far.
func (s *Sink) Bytes() []byte { return s.buf.Bytes() }

func (s *Sink) comma() {
	if len(s.needsComma) == 0 {
		return
	}
	top := len(s.needsComma) - 1
	if s.needsComma[top] {
		s.buf.WriteByte(',')
	}
	s.needsComma[top] = true
}

func (s *Sink) BeginStruct(sh *shape.Shape) error {
	s.comma()
	s.buf.WriteByte('{')
	s.needsComma = append(s.needsComma, false)
	return nil
}

func (s *Sink) FieldKey(name string) error {
	enc, err := stdjson.Marshal(name)
	if err != nil {
		return err
	}
	s.comma()
	s.buf.Write(enc)
	s.buf.WriteByte(':')
	s.needsComma[len(s.needsComma)-1] = false // the value that follows shouldn't get a comma before it
	return nil
}

func (s *Sink) EndStruct() error {
	s.buf.WriteByte('}')
	s.needsComma = s.needsComma[:len(s.needsComma)-1]
	return nil
}

func (s *Sink) BeginSeq(length int) error {
	s.comma()
	s.buf.WriteByte('[')
	s.needsComma = append(s.needsComma, false)
	return nil
}

func (s *Sink) EndSeq() error {
	s.buf.WriteByte(']')
	s.needsComma = s.needsComma[:len(s.needsComma)-1]
	return nil
}

func (s *Sink) BeginMap(length int) error {
	s.comma()
	s.buf.WriteByte('{')
	s.needsComma = append(s.needsComma, false)
	return nil
}

func (s *Sink) MapKey(p peek.Peek) error {
	return s.FieldKey(fmt.Sprintf("%v", p.Scalar()))
}

func (s *Sink) EndMap() error {
	s.buf.WriteByte('}')
	s.needsComma = s.needsComma[:len(s.needsComma)-1]
	return nil
}

func (s *Sink) VariantTag(name string) error {
	s.comma()
	enc, err := stdjson.Marshal(name)
	if err != nil {
		return err
	}
	s.buf.Write(enc)
	return nil
}

func (s *Sink) Scalar(p peek.Peek) error {
	s.comma()
	enc, err := stdjson.Marshal(p.Scalar())
	if err != nil {
		return err
	}
	s.buf.Write(enc)
	return nil
}

func (s *Sink) RawScalar(str string) error {
	s.comma()
	s.buf.WriteString(str)
	return nil
}
