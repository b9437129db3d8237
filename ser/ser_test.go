package ser

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

type recordingSink struct {
	ops []string
}

func (s *recordingSink) BeginStruct(sh *shape.Shape) error { s.ops = append(s.ops, "begin_struct"); return nil }
func (s *recordingSink) FieldKey(name string) error        { s.ops = append(s.ops, "key:"+name); return nil }
func (s *recordingSink) EndStruct() error                  { s.ops = append(s.ops, "end_struct"); return nil }
func (s *recordingSink) BeginSeq(n int) error               { s.ops = append(s.ops, fmt.Sprintf("begin_seq:%d", n)); return nil }
func (s *recordingSink) EndSeq() error                      { s.ops = append(s.ops, "end_seq"); return nil }
func (s *recordingSink) BeginMap(n int) error                { s.ops = append(s.ops, fmt.Sprintf("begin_map:%d", n)); return nil }
func (s *recordingSink) MapKey(p peek.Peek) error            { s.ops = append(s.ops, fmt.Sprintf("map_key:%v", p.Scalar())); return nil }
func (s *recordingSink) EndMap() error                       { s.ops = append(s.ops, "end_map"); return nil }
func (s *recordingSink) VariantTag(name string) error        { s.ops = append(s.ops, "variant:"+name); return nil }
func (s *recordingSink) Scalar(p peek.Peek) error             { s.ops = append(s.ops, fmt.Sprintf("scalar:%v", p.Scalar())); return nil }
func (s *recordingSink) RawScalar(str string) error           { s.ops = append(s.ops, "raw:"+str); return nil }

type tagsStruct struct {
	Name string
	Tags []string
}

func TestSerializeStructAndList(t *testing.T) {
	v := tagsStruct{Name: "svc", Tags: []string{"a", "b"}}
	s := shape.Of[tagsStruct]()
	sink := &recordingSink{}

	err := Serialize(peek.Of(s, reflect.ValueOf(v)), sink, nil)
	require.NoError(t, err)
	require.Equal(t, []string{
		"begin_struct",
		"key:Name", "scalar:svc",
		"key:Tags", "begin_seq:2", "scalar:a", "scalar:b", "end_seq",
		"end_struct",
	}, sink.ops)
}

func TestSerializeAbsentOption(t *testing.T) {
	s := shape.Of[shape.Option[int]]()
	sink := &recordingSink{}
	err := Serialize(peek.Of(s, reflect.ValueOf(shape.None[int]())), sink, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"scalar:{false 0}"}, sink.ops)
}
