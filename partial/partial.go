// Package partial implements the type-erased value constructor described
// in §4.2: a stateful cursor over a shape.Shape tree that writes a value
// one field/item/variant at a time while tracking exactly which leaves
// have been initialized, and that tears itself down cleanly (in reverse
// write order) if the build is abandoned.
//
// Every Partial method returns a *ferrors.Error on misuse instead of
// panicking, mirroring the teacher's pkg/errors chaining style: errors
// carry a dot-separated field path built up as frames are pushed and
// popped (§4.2 "reported with a path").
package partial

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/facet-rs/facet-sub005/ferrors"
	"github.com/facet-rs/facet-sub005/internal/arena"
	"github.com/facet-rs/facet-sub005/shape"
)

// frameKind distinguishes the shapes of cursor a frame can be positioned
// over.
type frameKind uint8

const (
	frameStruct frameKind = iota
	frameList
	frameMap
	frameEnum
	frameOption
	frameScalar
)

// frame is one entry in the Partial's stack (§4.2: "a stack of active
// frames").
type frame struct {
	shape *shape.Shape
	kind  frameKind
	value reflect.Value

	// pathSeg is how this frame's field/index is named in error paths,
	// relative to its parent.
	pathSeg string

	// struct/enum bookkeeping
	fieldIndex   int  // which declared field is currently active, -1 if none
	initMask     []bool
	selectedVar  int // index into shape.Variants, -1 if none selected yet

	// list/map bookkeeping
	elems []reflect.Value // staged items, appended to the backing slice/map on end()

	// map-entry sub-state
	pendingKey reflect.Value
	haveKey    bool

	// variantValue is the addressable concrete payload struct for the
	// selected variant of an interface-backed enum (RegisterEnum-style);
	// invalid/unused for flat-struct-backed enums like shape.Result, whose
	// variant fields live directly at f.value's own field offsets.
	variantValue reflect.Value

	drops []func()
}

// Partial is the builder cursor. The zero value is not usable; construct
// with New.
type Partial struct {
	root  *arena.Chunk
	shape *shape.Shape
	stack []*frame
}

// New starts building a fresh value of shape s.
func New(s *shape.Shape) *Partial {
	leafCount := countLeaves(s)
	root := arena.New(s.Type, leafCount)
	top := &frame{
		shape:      s,
		kind:       kindOf(s),
		value:      root.Value(),
		fieldIndex: -1,
		selectedVar: -1,
	}
	if top.kind == frameStruct {
		top.initMask = make([]bool, len(s.Fields))
	}
	return &Partial{root: root, shape: s, stack: []*frame{top}}
}

func kindOf(s *shape.Shape) frameKind {
	switch s.Def {
	case shape.DefStruct:
		return frameStruct
	case shape.DefList, shape.DefSlice, shape.DefArray, shape.DefSet:
		return frameList
	case shape.DefMap:
		return frameMap
	case shape.DefEnum, shape.DefResult:
		return frameEnum
	case shape.DefOption:
		return frameOption
	default:
		return frameScalar
	}
}

func countLeaves(s *shape.Shape) int {
	switch s.Def {
	case shape.DefStruct:
		return len(s.Fields)
	case shape.DefEnum, shape.DefResult:
		n := 0
		for _, v := range s.Variants {
			n += len(v.Fields)
		}
		return n
	default:
		return 1
	}
}

func (p *Partial) top() *frame { return p.stack[len(p.stack)-1] }

func (p *Partial) path() string {
	segs := make([]string, 0, len(p.stack))
	for _, f := range p.stack {
		if f.pathSeg != "" {
			segs = append(segs, f.pathSeg)
		}
	}
	return strings.Join(segs, ".")
}

func (p *Partial) errf(kind ferrors.Kind, format string, args ...any) *ferrors.Error {
	return ferrors.New(kind, fmt.Sprintf(format, args...)).WithPath(p.path())
}

// BeginField pushes a child frame for the named struct field, or the named
// field of the currently selected enum variant (§4.2 `begin_field`).
func (p *Partial) BeginField(name string) error {
	f := p.top()
	fields, _, err := p.fieldsAndBase(f)
	if err != nil {
		return err
	}
	for i, fld := range fields {
		if fld.Name == name || fld.Attrs.EffectiveName(fld.Name) == name {
			return p.beginNthField(i)
		}
	}
	return p.errf(ferrors.UnknownField, "no field %q on %s", name, f.shape.Name)
}

// BeginNthField pushes a child frame for the field at the given declared
// index, on a struct top frame or an enum top frame with a variant already
// selected (§4.2 `begin_nth_field`).
func (p *Partial) BeginNthField(idx int) error {
	f := p.top()
	if f.kind != frameStruct && f.kind != frameEnum {
		return p.errf(ferrors.TypeMismatch, "begin_nth_field(%d): top frame is not a struct", idx)
	}
	return p.beginNthField(idx)
}

// fieldsAndBase returns the field list and the addressable value to index
// into for the current top frame: a struct's own fields/value, or the
// selected variant's fields addressed against either the enum's dedicated
// variantValue (interface-backed enums) or the enum frame's own value
// directly (flat-struct-backed enums like shape.Result).
func (p *Partial) fieldsAndBase(f *frame) ([]shape.Field, reflect.Value, error) {
	switch f.kind {
	case frameStruct:
		return f.shape.Fields, f.value, nil
	case frameEnum:
		if f.selectedVar < 0 {
			return nil, reflect.Value{}, p.errf(ferrors.InvalidVariant, "no variant selected on %s", f.shape.Name)
		}
		variant := f.shape.Variants[f.selectedVar]
		if f.shape.Type.Kind() == reflect.Interface {
			return variant.Fields, f.variantValue, nil
		}
		return variant.Fields, f.value, nil
	default:
		return nil, reflect.Value{}, p.errf(ferrors.TypeMismatch, "top frame is not a struct or a variant-selected enum")
	}
}

func (p *Partial) beginNthField(idx int) error {
	f := p.top()
	fields, base, err := p.fieldsAndBase(f)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(fields) {
		return p.errf(ferrors.MissingField, "field index %d out of range on %s", idx, f.shape.Name)
	}
	fld := fields[idx]
	child := &frame{
		shape:       fld.Shape(),
		value:       base.FieldByIndex(fld.Index),
		pathSeg:     fld.Name,
		fieldIndex:  -1,
		selectedVar: -1,
	}
	child.kind = kindOf(child.shape)
	if child.kind == frameStruct {
		child.initMask = make([]bool, len(child.shape.Fields))
	}
	f.fieldIndex = idx
	p.stack = append(p.stack, child)
	return nil
}

// BeginListItem pushes a frame for a new element appended to the active
// list (§4.2 `begin_list_item`).
func (p *Partial) BeginListItem() error {
	f := p.top()
	if f.kind != frameList {
		return p.errf(ferrors.TypeMismatch, "begin_list_item: top frame is not a list")
	}
	elemShape := f.shape.Inner()
	child := &frame{
		shape:       elemShape,
		value:       reflect.New(elemShape.Type).Elem(),
		pathSeg:     fmt.Sprintf("[%d]", len(f.elems)),
		fieldIndex:  -1,
		selectedVar: -1,
	}
	child.kind = kindOf(elemShape)
	if child.kind == frameStruct {
		child.initMask = make([]bool, len(elemShape.Fields))
	}
	p.stack = append(p.stack, child)
	return nil
}

// BeginMapEntry pushes a key frame; Set/End the key, then call
// BeginMapValue for the value half of the same entry (§4.2
// `begin_key`/`begin_value`/`begin_object_entry`).
func (p *Partial) BeginMapEntry() error {
	f := p.top()
	if f.kind != frameMap {
		return p.errf(ferrors.TypeMismatch, "begin_map_entry: top frame is not a map")
	}
	keyShape := f.shape.Key()
	child := &frame{
		shape:       keyShape,
		value:       reflect.New(keyShape.Type).Elem(),
		pathSeg:     "<key>",
		fieldIndex:  -1,
		selectedVar: -1,
		kind:        kindOf(keyShape),
	}
	p.stack = append(p.stack, child)
	return nil
}

// BeginMapValue must follow a completed key frame (End having stored the
// key via f.pendingKey) and pushes the value frame.
func (p *Partial) BeginMapValue() error {
	f := p.top()
	if f.kind != frameMap {
		return p.errf(ferrors.TypeMismatch, "begin_map_value: top frame is not a map")
	}
	if !f.haveKey {
		return p.errf(ferrors.InvalidOperation, "begin_map_value: no key staged")
	}
	valShape := f.shape.Inner()
	child := &frame{
		shape:       valShape,
		value:       reflect.New(valShape.Type).Elem(),
		pathSeg:     "<value>",
		fieldIndex:  -1,
		selectedVar: -1,
		kind:        kindOf(valShape),
	}
	p.stack = append(p.stack, child)
	return nil
}

// SelectVariant sets the active enum variant by index, dropping any
// previously-initialized payload first (§4.2: "switching variants mid-build
// is legal").
func (p *Partial) SelectVariant(idx int) error {
	f := p.top()
	if f.kind != frameEnum {
		return p.errf(ferrors.TypeMismatch, "select_variant: top frame is not an enum")
	}
	if idx < 0 || idx >= len(f.shape.Variants) {
		return p.errf(ferrors.InvalidVariant, "variant index %d out of range on %s", idx, f.shape.Name)
	}
	if f.selectedVar == idx {
		// Re-selecting the already-active variant is a no-op: resetting
		// initMask here would forget fields already written by the caller.
		return nil
	}
	for i := len(f.drops) - 1; i >= 0; i-- {
		f.drops[i]()
	}
	f.drops = nil

	f.selectedVar = idx
	variant := f.shape.Variants[idx]
	f.initMask = make([]bool, len(variant.Fields))

	if f.shape.Type.Kind() == reflect.Interface {
		f.variantValue = newVariantPayload(variant)
		syncInterfaceEnumValue(f)
	} else if f.shape.Def == shape.DefResult {
		setResultDiscriminant(f, idx)
	}
	return nil
}

// newVariantPayload allocates a fresh, addressable zero value of variant's
// concrete payload type, for an interface-backed (RegisterEnum-style) enum.
func newVariantPayload(variant shape.Variant) reflect.Value {
	if variant.Type == nil {
		return reflect.Value{}
	}
	concrete := variant.Type
	if concrete.Kind() == reflect.Ptr {
		concrete = concrete.Elem()
	}
	return reflect.New(concrete).Elem()
}

// syncInterfaceEnumValue writes f's current variantValue into the
// interface-typed slot at f.value, re-wrapping behind a pointer if the
// variant's concrete type implements the enum interface via pointer
// receiver. Called every time a variant field finishes so the enum's
// interface value always reflects the build in progress (§4.2 "switching
// variants mid-build is legal").
func syncInterfaceEnumValue(f *frame) {
	if !f.variantValue.IsValid() {
		return
	}
	variant := f.shape.Variants[f.selectedVar]
	if variant.Type.Kind() == reflect.Ptr {
		ptr := reflect.New(variant.Type.Elem())
		ptr.Elem().Set(f.variantValue)
		f.value.Set(ptr)
	} else {
		f.value.Set(f.variantValue)
	}
}

// setResultDiscriminant flips the Ok bool on a flat-struct-backed
// shape.Result when a variant is selected directly (idx 0 = Ok, 1 = Err).
func setResultDiscriminant(f *frame, idx int) {
	okField := f.value.FieldByName("Ok")
	if okField.IsValid() {
		okField.SetBool(idx == 0)
	}
}

// SelectVariantNamed is SelectVariant by variant name.
func (p *Partial) SelectVariantNamed(name string) error {
	f := p.top()
	if f.kind != frameEnum {
		return p.errf(ferrors.TypeMismatch, "select_variant_named(%q): top frame is not an enum", name)
	}
	for i, v := range f.shape.Variants {
		if v.Name == name {
			return p.SelectVariant(i)
		}
	}
	return p.errf(ferrors.UnknownVariant, "no variant %q on %s", name, f.shape.Name)
}

// BeginSome pushes a frame for an Option's payload and marks the option
// present.
func (p *Partial) BeginSome() error {
	f := p.top()
	if f.kind != frameOption {
		return p.errf(ferrors.TypeMismatch, "begin_some: top frame is not an option")
	}
	f.value.FieldByName("Valid").SetBool(true)
	innerShape := f.shape.Inner()
	child := &frame{
		shape:       innerShape,
		value:       f.value.FieldByName("Value"),
		pathSeg:     "<some>",
		fieldIndex:  -1,
		selectedVar: -1,
		kind:        kindOf(innerShape),
	}
	p.stack = append(p.stack, child)
	return nil
}

// Set writes a scalar leaf value directly into the current frame
// (§4.2 `set`).
func (p *Partial) Set(v any) error {
	f := p.top()
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(f.value.Type()) {
		return p.errf(ferrors.TypeMismatch, "set: %T is not assignable to %s", v, f.shape.Name)
	}
	f.value.Set(rv)
	return p.markCurrentInit()
}

// SetDefault writes the shape's zero/default value into the current frame
// (§4.2 `set_default`).
func (p *Partial) SetDefault() error {
	f := p.top()
	if f.shape.VTable.Default == nil {
		return p.errf(ferrors.Unsupported, "set_default: %s has no default", f.shape.Name)
	}
	f.value.Set(f.shape.VTable.Default())
	return p.markCurrentInit()
}

func (p *Partial) markCurrentInit() error {
	if len(p.stack) < 2 {
		return nil
	}
	parent := p.stack[len(p.stack)-2]
	switch parent.kind {
	case frameStruct:
		if parent.fieldIndex >= 0 && parent.fieldIndex < len(parent.initMask) {
			parent.initMask[parent.fieldIndex] = true
		}
	case frameEnum:
		if parent.fieldIndex >= 0 && parent.fieldIndex < len(parent.initMask) {
			parent.initMask[parent.fieldIndex] = true
		}
		if parent.shape.Type.Kind() == reflect.Interface {
			syncInterfaceEnumValue(parent)
		}
	}
	return nil
}

// End pops the current frame, folding its finished value back into its
// parent (appending to a list, inserting into a map, marking a struct
// field initialized) (§4.2 `end`).
func (p *Partial) End() error {
	if len(p.stack) < 2 {
		return p.errf(ferrors.InvalidOperation, "end: already at root frame")
	}
	child := p.stack[len(p.stack)-1]
	parent := p.stack[len(p.stack)-2]
	p.stack = p.stack[:len(p.stack)-1]

	switch parent.kind {
	case frameStruct:
		if parent.fieldIndex >= 0 && parent.fieldIndex < len(parent.initMask) {
			parent.initMask[parent.fieldIndex] = true
		}
		return nil

	case frameList:
		parent.elems = append(parent.elems, child.value)
		appendToList(parent.value, child.value)
		return nil

	case frameMap:
		if child.pathSeg == "<key>" {
			parent.pendingKey = child.value
			parent.haveKey = true
			return nil
		}
		if parent.value.IsNil() {
			parent.value.Set(reflect.MakeMap(parent.value.Type()))
		}
		parent.value.SetMapIndex(parent.pendingKey, child.value)
		parent.haveKey = false
		return nil

	case frameOption:
		return nil

	case frameEnum:
		if parent.selectedVar < 0 {
			return p.errf(ferrors.InvalidVariant, "end: no variant selected on %s", parent.shape.Name)
		}
		if parent.fieldIndex >= 0 && parent.fieldIndex < len(parent.initMask) {
			parent.initMask[parent.fieldIndex] = true
		}
		if parent.shape.Type.Kind() == reflect.Interface {
			syncInterfaceEnumValue(parent)
		}
		return nil

	default:
		return p.errf(ferrors.InvalidOperation, "end: parent frame %s cannot accept a child", parent.shape.Name)
	}
}

func appendToList(list, elem reflect.Value) {
	switch list.Kind() {
	case reflect.Slice:
		list.Set(reflect.Append(list, elem))
	case reflect.Array:
		idx := 0
		for idx < list.Len() && !list.Index(idx).IsZero() {
			idx++
		}
		if idx < list.Len() {
			list.Index(idx).Set(elem)
		}
	}
}

// Build finalizes the root frame and returns the constructed value,
// failing if a field of the root struct, or of the root enum's selected
// variant, was never written (§4.2 `build`). Option fields and fields with
// a default are exempt, as are a struct's flatten fields; fields of nested
// structs are not checked.
func (p *Partial) Build() (reflect.Value, error) {
	if len(p.stack) != 1 {
		return reflect.Value{}, p.errf(ferrors.InvalidOperation, "build: %d frame(s) still open", len(p.stack)-1)
	}
	root := p.stack[0]
	if missing := p.firstMissingField(root); missing != "" {
		return reflect.Value{}, p.errf(ferrors.MissingField, "build: field %q never initialized", missing)
	}
	return root.value, nil
}

func (p *Partial) firstMissingField(f *frame) string {
	switch f.kind {
	case frameStruct:
		for i, fld := range f.shape.Fields {
			if fld.Attrs.HasDefault || fld.Attrs.Flatten || fld.Shape().Def == shape.DefOption {
				continue
			}
			if i >= len(f.initMask) || !f.initMask[i] {
				return fld.Name
			}
		}
	case frameEnum:
		if f.selectedVar < 0 {
			return "<no variant selected>"
		}
		variant := f.shape.Variants[f.selectedVar]
		for i, fld := range variant.Fields {
			if fld.Attrs.HasDefault || fld.Shape().Def == shape.DefOption {
				continue
			}
			if i >= len(f.initMask) || !f.initMask[i] {
				return fld.Name
			}
		}
	}
	return ""
}

// Abandon tears down every staged frame in reverse order, releasing
// anything that was partially constructed (§4.2 invariant: no leak, no
// double drop).
func (p *Partial) Abandon() {
	for i := len(p.stack) - 1; i >= 0; i-- {
		f := p.stack[i]
		for j := len(f.drops) - 1; j >= 0; j-- {
			f.drops[j]()
		}
	}
	p.root.Unwind()
	p.stack = nil
}

// StealNthField removes and returns the nth field's fully-built value from
// a struct frame without disturbing the rest of the build, so a caller can
// move it elsewhere without a copy (§9's deferred-assembly note).
func (p *Partial) StealNthField(idx int) (reflect.Value, error) {
	f := p.top()
	if f.kind != frameStruct {
		return reflect.Value{}, p.errf(ferrors.TypeMismatch, "steal_nth_field: top frame is not a struct")
	}
	if idx < 0 || idx >= len(f.shape.Fields) || idx >= len(f.initMask) || !f.initMask[idx] {
		return reflect.Value{}, p.errf(ferrors.MissingField, "steal_nth_field(%d): not initialized", idx)
	}
	fld := f.shape.Fields[idx]
	v := f.value.FieldByIndex(fld.Index)
	stolen := reflect.New(v.Type()).Elem()
	stolen.Set(v)
	v.SetZero()
	f.initMask[idx] = false
	return stolen, nil
}
