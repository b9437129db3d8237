package ferrors

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := New(MissingField, "field %q", "name").
		WithPath("outer.inner").
		WithSpan(Span{Start: 10, End: 14})

	got := e.Error()
	for _, want := range []string{"missing field", `field "name"`, "at outer.inner", "at byte 10..14"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, want substring %q", got, want)
		}
	}
}

func TestPrependField(t *testing.T) {
	e := New(TypeMismatch, "boom").PrependField("inner").PrependField("outer")
	if e.Path != "outer.inner" {
		t.Errorf("Path = %q, want %q", e.Path, "outer.inner")
	}
}

func TestPrependIndex(t *testing.T) {
	e := New(TypeMismatch, "boom").PrependField("items").PrependIndex(2)
	if e.Path != "[2].items" {
		t.Errorf("Path = %q, want %q", e.Path, "[2].items")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	e := Wrap(IO, cause, "reading input")
	if !errors.Is(e, cause) {
		t.Errorf("errors.Is(e, cause) = false, want true")
	}
}

func TestIsByKind(t *testing.T) {
	a := New(MissingField, "a")
	b := New(MissingField, "b").WithPath("different")
	c := New(UnknownField, "c")

	if !errors.Is(a, b) {
		t.Errorf("errors with same Kind should satisfy errors.Is")
	}
	if errors.Is(a, c) {
		t.Errorf("errors with different Kind should not satisfy errors.Is")
	}
}
