package deser

import (
	"log/slog"
	"reflect"

	"github.com/facet-rs/facet-sub005/fconfig"
	"github.com/facet-rs/facet-sub005/ferrors"
	"github.com/facet-rs/facet-sub005/internal/flog"
	"github.com/facet-rs/facet-sub005/partial"
	"github.com/facet-rs/facet-sub005/shape"
	"github.com/facet-rs/facet-sub005/solver"
)

// logger traces probe starts and variant resolutions at Debug
// level; silent by default until a caller points SetLogger at a
// configured handler (see fconfig.LogConfig).
var logger = flog.Discard

// SetLogger installs the *slog.Logger used to trace the coroutine
// deserializer, built via internal/flog from an fconfig.LogConfig.
func SetLogger(l *slog.Logger) { logger = l }

// Deserialize drives parser p through the full recursive descent for
// shape s and returns the built value (§4.6's top-level entry point).
func Deserialize(p Parser, s *shape.Shape, cfg *fconfig.DeserConfig) (reflect.Value, error) {
	co := Start(cfg, s, func(ctx *engineCtx) {
		v, err := dispatch(ctx, s)
		ctx.Finish(v, err)
	})
	if err := Run(co, p, cfg); err != nil {
		return reflect.Value{}, err
	}
	return co.Wait()
}

// Run is the driving loop: it answers every Request the engine goroutine
// issues until the goroutine finishes, translating requests into calls on
// the concrete Parser and, for ReqSolveVariant, the solver package. This
// function contains the only format-aware code in the whole package — it
// never inspects shape.Def itself, leaving all per-kind logic in dispatch.
func Run(co *Coroutine, p Parser, cfg *fconfig.DeserConfig) error {
	for {
		req, ok := co.Next()
		if !ok {
			return nil
		}

		switch req.Kind {
		case ReqExpectEvent:
			evt, err := p.NextEvent()
			req.Resume(Response{Event: evt, Err: err})

		case ReqPeekEventRaw:
			evt, has, err := p.PeekEvent()
			req.Resume(Response{Event: evt, MaybeOK: has, Err: err})

		case ReqSkipValue:
			err := p.SkipValue()
			req.Resume(Response{Err: err})

		case ReqGetSpan:
			sp, has := p.Span()
			req.Resume(Response{Span: sp, HasSpan: has})

		case ReqSolveVariant:
			logger.Debug("deser: probing variant", "enum", req.EnumShape.Name, "seenKeys", req.SeenKeys)
			sc, err := solver.BuildSchema(req.EnumShape)
			if err != nil {
				req.Resume(Response{Err: err})
				continue
			}
			results := sc.Solve(req.SeenKeys, nil)
			name, ok := uniqueResolvedVariant(results)
			logger.Debug("deser: variant resolved", "enum", req.EnumShape.Name, "variant", name, "resolved", ok)
			req.Resume(Response{VariantName: name, HasVariant: ok})

		case ReqDeserializeInto:
			nested := Start(cfg, req.Target, func(ctx *engineCtx) {
				v, err := dispatch(ctx, req.Target)
				ctx.Finish(v, err)
			})
			if err := Run(nested, p, cfg); err != nil {
				req.Resume(Response{Err: err})
				continue
			}
			v, err := nested.Wait()
			req.Resume(Response{Value: v, Err: err})

		default:
			req.Resume(Response{Err: ferrors.New(ferrors.Bug, "unhandled request kind")})
		}
	}
}

func uniqueResolvedVariant(results []solver.Result) (string, bool) {
	for _, r := range results {
		if r.Outcome == solver.OutcomeResolved && len(r.Resolution.Path) > 0 {
			for _, seg := range r.Resolution.Path {
				if seg.IsVariant {
					return seg.Name, true
				}
			}
		}
	}
	return "", false
}

// dispatch is the per-Def recursive descent body (§4.6's per-shape-kind
// dispatch table): scalar, option, list, map, struct (with and without
// flatten), and the three enum disciplines.
func dispatch(ctx *engineCtx, s *shape.Shape) (reflect.Value, error) {
	switch s.Def {
	case shape.DefScalar:
		return dispatchScalar(ctx, s)
	case shape.DefOption:
		return dispatchOption(ctx, s)
	case shape.DefList, shape.DefSlice, shape.DefArray, shape.DefSet:
		return dispatchList(ctx, s)
	case shape.DefMap:
		return dispatchMap(ctx, s)
	case shape.DefStruct:
		return dispatchStruct(ctx, s)
	case shape.DefEnum, shape.DefResult:
		return dispatchEnum(ctx, s)
	default:
		return reflect.Value{}, ferrors.New(ferrors.Unsupported, "cannot deserialize shape "+s.Name)
	}
}

func dispatchScalar(ctx *engineCtx, s *shape.Shape) (reflect.Value, error) {
	evt, err := ctx.ExpectEvent()
	if err != nil {
		return reflect.Value{}, err
	}
	if evt.Kind != EventScalar {
		return reflect.Value{}, ferrors.New(ferrors.TypeMismatch, "expected scalar for "+s.Name)
	}
	return scalarToValue(s, evt.Value)
}

// scalarToValue converts a parsed scalar to the target shape's Go type,
// applying the target's scalar-type hint for numeric tightening and range
// check (§4.6) so an oversized value is rejected here rather than
// silently truncated by reflect.Value.SetInt/SetUint.
func scalarToValue(s *shape.Shape, v ScalarValue) (reflect.Value, error) {
	out := reflect.New(s.Type).Elem()
	switch s.Type.Kind() {
	case reflect.String:
		out.SetString(v.Str)
	case reflect.Bool:
		out.SetBool(v.Bool)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := tightenSigned(v.I64, s.Type.Bits(), s.Name)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := tightenUnsigned(v.U64, s.Type.Bits(), s.Name)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(n)
	case reflect.Float32, reflect.Float64:
		out.SetFloat(v.F64)
	default:
		return reflect.Value{}, ferrors.New(ferrors.ShapeMismatch, "unsupported scalar kind for "+s.Name)
	}
	return out, nil
}

// tightenSigned rejects a signed value that does not fit bits, the
// reflect-driven analogue of facet-reflect's ScalarType integer-kind
// range check.
func tightenSigned(v int64, bits int, name string) (int64, error) {
	if bits >= 64 {
		return v, nil
	}
	limit := int64(1) << uint(bits-1)
	if v < -limit || v >= limit {
		return 0, ferrors.New(ferrors.NumberOutOfRange, "value %d out of range for %d-bit signed field %s", v, bits, name)
	}
	return v, nil
}

// tightenUnsigned rejects an unsigned value that does not fit bits.
func tightenUnsigned(v uint64, bits int, name string) (uint64, error) {
	if bits >= 64 {
		return v, nil
	}
	limit := uint64(1) << uint(bits)
	if v >= limit {
		return 0, ferrors.New(ferrors.NumberOutOfRange, "value %d out of range for %d-bit unsigned field %s", v, bits, name)
	}
	return v, nil
}

func dispatchOption(ctx *engineCtx, s *shape.Shape) (reflect.Value, error) {
	evt, hasNext, err := ctx.PeekEventRaw()
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(s.Type).Elem()
	if hasNext && evt.Kind == EventScalar && evt.Value.Kind == ScalarNull {
		ctx.ExpectEvent()
		return out, nil
	}
	inner, err := dispatch(ctx, s.Inner())
	if err != nil {
		return reflect.Value{}, err
	}
	out.FieldByName("Valid").SetBool(true)
	out.FieldByName("Value").Set(inner)
	return out, nil
}

func dispatchList(ctx *engineCtx, s *shape.Shape) (reflect.Value, error) {
	if _, err := ctx.ExpectEvent(); err != nil { // EventBeginSeq
		return reflect.Value{}, err
	}
	out := reflect.MakeSlice(sliceTypeFor(s), 0, 0)
	for {
		evt, has, err := ctx.PeekEventRaw()
		if err != nil {
			return reflect.Value{}, err
		}
		if has && evt.Kind == EventEndSeq {
			ctx.ExpectEvent()
			break
		}
		elem, err := dispatch(ctx, s.Inner())
		if err != nil {
			return reflect.Value{}, err
		}
		out = reflect.Append(out, elem)
	}
	return out, nil
}

func sliceTypeFor(s *shape.Shape) reflect.Type {
	if s.Type.Kind() == reflect.Slice {
		return s.Type
	}
	return reflect.SliceOf(s.Inner().Type)
}

func dispatchMap(ctx *engineCtx, s *shape.Shape) (reflect.Value, error) {
	if _, err := ctx.ExpectEvent(); err != nil { // EventBeginMap
		return reflect.Value{}, err
	}
	out := reflect.MakeMap(s.Type)
	for {
		evt, has, err := ctx.PeekEventRaw()
		if err != nil {
			return reflect.Value{}, err
		}
		if has && evt.Kind == EventEndMap {
			ctx.ExpectEvent()
			break
		}
		keyEvt, err := ctx.ExpectEvent() // EventFieldKey
		if err != nil {
			return reflect.Value{}, err
		}
		key := reflect.New(s.Key().Type).Elem()
		key.SetString(keyEvt.Value.Str)
		val, err := dispatch(ctx, s.Inner())
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetMapIndex(key, val)
	}
	return out, nil
}

// dispatchStruct builds a struct shape. Fields with the flatten attribute
// (struct-with-flatten, §4.6) have their keys interleaved with this
// struct's own keys at the same nesting level, so a key that doesn't match
// a direct field is captured (not skipped) and routed to whichever
// flatten field's schema claims it once the whole struct has been read
// (§4.4's schema-expansion/solve step, driven from here instead of from a
// second independent probe pass).
func dispatchStruct(ctx *engineCtx, s *shape.Shape) (reflect.Value, error) {
	if _, err := ctx.ExpectEvent(); err != nil { // EventBeginStruct
		return reflect.Value{}, err
	}

	pb := partial.New(s)
	hasFlatten := false
	for _, f := range s.Fields {
		if f.Attrs.Flatten {
			hasFlatten = true
			break
		}
	}

	matchedFields := make(map[string]bool, len(s.Fields))
	var captured []capturedField

	for {
		evt, has, err := ctx.PeekEventRaw()
		if err != nil {
			return reflect.Value{}, err
		}
		if has && evt.Kind == EventEndStruct {
			ctx.ExpectEvent()
			break
		}

		keyEvt, err := ctx.ExpectEvent() // EventFieldKey
		if err != nil {
			return reflect.Value{}, err
		}
		key := keyEvt.Value.Str

		matched := false
		for _, f := range s.Fields {
			if f.Attrs.Flatten {
				continue
			}
			if f.Attrs.EffectiveName(f.Name) == key {
				if err := pb.BeginField(f.Name); err != nil {
					return reflect.Value{}, err
				}
				v, err := dispatch(ctx, f.Shape())
				if err != nil {
					return reflect.Value{}, err
				}
				if err := pb.Set(v.Interface()); err != nil {
					return reflect.Value{}, err
				}
				if err := pb.End(); err != nil {
					return reflect.Value{}, err
				}
				matchedFields[f.Name] = true
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if !hasFlatten {
			if ctx.cfg.DenyUnknownFieldsDefault {
				return reflect.Value{}, ferrors.New(ferrors.UnknownField, "unknown field "+key+" on "+s.Name)
			}
			if err := ctx.SkipValue(); err != nil {
				return reflect.Value{}, err
			}
			continue
		}

		events, err := captureValue(ctx)
		if err != nil {
			return reflect.Value{}, err
		}
		captured = append(captured, capturedField{key: key, events: events})
	}

	if hasFlatten {
		if err := routeFlatten(ctx, s, pb, captured); err != nil {
			return reflect.Value{}, err
		}
	}

	// §4.6 "Struct without flatten": missing fields with `default` get
	// `set_default` at the close, not just a pass from Build's own
	// completeness check.
	for _, f := range s.Fields {
		if f.Attrs.Flatten || matchedFields[f.Name] || !f.Attrs.HasDefault {
			continue
		}
		if err := pb.BeginField(f.Name); err != nil {
			return reflect.Value{}, err
		}
		if err := pb.SetDefault(); err != nil {
			return reflect.Value{}, err
		}
		if err := pb.End(); err != nil {
			return reflect.Value{}, err
		}
	}

	return pb.Build()
}

// capturedField is one struct key whose value was consumed from the live
// parser but not yet routed anywhere, paired with the captured event slice
// needed to dispatch it a second time once routing is known.
type capturedField struct {
	key    string
	events []ParseEvent
}

// captureValue consumes exactly one complete value (a scalar, or a
// balanced struct/seq/map) from ctx and returns its raw events, so it can
// be inspected or replayed without a second read from the live parser —
// the engine only ever gets one event of lookahead, so any decision that
// needs to see past the current value has to buffer it first (§9
// "materializes events into a ring buffer").
func captureValue(ctx *engineCtx) ([]ParseEvent, error) {
	first, err := ctx.ExpectEvent()
	if err != nil {
		return nil, err
	}
	events := []ParseEvent{first}
	depth := 0
	switch first.Kind {
	case EventBeginStruct, EventBeginSeq, EventBeginMap:
		depth = 1
	default:
		return events, nil
	}
	for depth > 0 {
		evt, err := ctx.ExpectEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
		switch evt.Kind {
		case EventBeginStruct, EventBeginSeq, EventBeginMap:
			depth++
		case EventEndStruct, EventEndSeq, EventEndMap:
			depth--
		}
	}
	return events, nil
}

// keysFromCaptured lists the field keys immediately inside a captured
// struct value (depth 1), ignoring keys belonging to nested
// structs/seqs/maps.
func keysFromCaptured(events []ParseEvent) []string {
	var keys []string
	depth := 0
	for _, evt := range events {
		switch evt.Kind {
		case EventBeginStruct, EventBeginSeq, EventBeginMap:
			depth++
		case EventEndStruct, EventEndSeq, EventEndMap:
			depth--
		case EventFieldKey:
			if depth == 1 {
				keys = append(keys, evt.Value.Str)
			}
		}
	}
	return keys
}

// dispatchViaBuffer replays a captured event slice through a fresh
// coroutine so a value already consumed from the live parser can still be
// dispatched through the ordinary per-Def recursive descent.
func dispatchViaBuffer(ctx *engineCtx, target *shape.Shape, events []ParseEvent) (reflect.Value, error) {
	nested := Start(ctx.cfg, target, func(c *engineCtx) {
		v, err := dispatch(c, target)
		c.Finish(v, err)
	})
	if err := Run(nested, newBufferParser(events), ctx.cfg); err != nil {
		return reflect.Value{}, err
	}
	return nested.Wait()
}

// routeFlatten resolves every captured (unmatched) key against s's schema
// and, for each key that resolves onto a flatten field, builds that
// field's value incrementally via its own Partial before finally setting
// it on the outer struct's builder (§4.4, §4.6 struct-with-flatten).
func routeFlatten(ctx *engineCtx, s *shape.Shape, pb *partial.Partial, captured []capturedField) error {
	if len(captured) == 0 {
		return nil
	}
	sc, err := solver.BuildSchema(s)
	if err != nil {
		return err
	}
	keys := make([]string, len(captured))
	for i, c := range captured {
		keys[i] = c.key
	}
	results := sc.Solve(keys, nil)

	builders := map[int]*partial.Partial{}
	selectedVariant := map[int]bool{}
	var order []int

	for i, res := range results {
		if res.Outcome != solver.OutcomeResolved {
			// Unresolved/ambiguous/duplicate flatten keys are dropped,
			// same as an unknown key is when there's no flatten field at
			// all: best-effort routing, not a hard failure.
			continue
		}
		fieldIdx, variantIdx, subIdx, isVariant, subShape, ok := findFlattenTarget(s, res.Resolution.Path)
		if !ok {
			continue
		}

		flattenField := s.Fields[fieldIdx]
		fp, exists := builders[fieldIdx]
		if !exists {
			fp = partial.New(flattenField.Shape())
			builders[fieldIdx] = fp
			order = append(order, fieldIdx)
		}
		if isVariant && !selectedVariant[fieldIdx] {
			if err := fp.SelectVariant(variantIdx); err != nil {
				return err
			}
			selectedVariant[fieldIdx] = true
		}

		val, err := dispatchViaBuffer(ctx, subShape, captured[i].events)
		if err != nil {
			return err
		}
		if err := fp.BeginNthField(subIdx); err != nil {
			return err
		}
		if err := fp.Set(val.Interface()); err != nil {
			return err
		}
		if err := fp.End(); err != nil {
			return err
		}
	}

	for _, fieldIdx := range order {
		built, err := builders[fieldIdx].Build()
		if err != nil {
			return err
		}
		flattenField := s.Fields[fieldIdx]
		if err := pb.BeginField(flattenField.Name); err != nil {
			return err
		}
		if err := pb.Set(built.Interface()); err != nil {
			return err
		}
		if err := pb.End(); err != nil {
			return err
		}
	}
	return nil
}

// findFlattenTarget locates which flatten field (and, for a flattened
// enum, which variant and field within it) a solved key path reaches: a
// single plain segment names a field inside a flattened struct; a
// variant segment followed by a field segment names a field inside one
// arm of a flattened enum (mirroring solver.expand's own two shapes of
// path).
func findFlattenTarget(s *shape.Shape, path []solver.Segment) (fieldIdx, variantIdx, subIdx int, isVariant bool, subShape *shape.Shape, ok bool) {
	for i, f := range s.Fields {
		if !f.Attrs.Flatten {
			continue
		}
		child := f.Shape()
		switch {
		case len(path) == 1 && !path[0].IsVariant && child.Def == shape.DefStruct:
			for si, sf := range child.Fields {
				if sf.Attrs.EffectiveName(sf.Name) == path[0].Name {
					return i, -1, si, false, sf.Shape(), true
				}
			}
		case len(path) == 2 && path[0].IsVariant && (child.Def == shape.DefEnum || child.Def == shape.DefResult):
			for vi, v := range child.Variants {
				if v.Name != path[0].Name {
					continue
				}
				for si, vf := range v.Fields {
					if vf.Attrs.EffectiveName(vf.Name) == path[1].Name {
						return i, vi, si, true, vf.Shape(), true
					}
				}
			}
		}
	}
	return 0, 0, 0, false, nil, false
}

// dispatchEnum handles all three enum tagging disciplines the spec
// describes (§4.6). Self-describing formats emit a VariantTag event and
// the payload is read straight off the live parser; internally-tagged and
// untagged formats never emit that event, so the whole value is captured
// first and solved against, then replayed through the chosen variant
// (§9's "materializes events into a ring buffer").
func dispatchEnum(ctx *engineCtx, s *shape.Shape) (reflect.Value, error) {
	evt, has, err := ctx.PeekEventRaw()
	if err != nil {
		return reflect.Value{}, err
	}

	if has && evt.Kind == EventVariantTag && evt.HasVariantTag {
		ctx.ExpectEvent()
		return dispatchVariantByName(ctx, s, evt.VariantTagName)
	}

	logger.Debug("deser: probe start", "shape", s.Name)
	captured, err := captureValue(ctx)
	if err != nil {
		return reflect.Value{}, err
	}
	seen := keysFromCaptured(captured)
	name, ok, err := ctx.SolveVariant(s, seen)
	if err != nil {
		return reflect.Value{}, err
	}
	if !ok {
		return reflect.Value{}, ferrors.New(ferrors.NoMatchingVariant, "no variant of "+s.Name+" matches observed keys")
	}

	nested := Start(ctx.cfg, s, func(c *engineCtx) {
		v, err := dispatchVariantByName(c, s, name)
		c.Finish(v, err)
	})
	if err := Run(nested, newBufferParser(captured), ctx.cfg); err != nil {
		return reflect.Value{}, err
	}
	return nested.Wait()
}

func dispatchVariantByName(ctx *engineCtx, s *shape.Shape, name string) (reflect.Value, error) {
	for vi, v := range s.Variants {
		if v.Name == name || (v.IsOther && name == "") {
			return dispatchVariantPayload(ctx, s, vi)
		}
	}
	// Fall back to the catch-all variant, if one is declared.
	for vi, v := range s.Variants {
		if v.IsOther {
			return dispatchVariantPayload(ctx, s, vi)
		}
	}
	return reflect.Value{}, ferrors.New(ferrors.UnknownVariant, "unknown variant "+name+" of "+s.Name)
}

// dispatchVariantPayload builds the concrete payload for variant vi of
// enum s via partial, so the built value actually gets written into the
// enum's interface slot (or the Result struct's Val/Cause field) instead
// of being read and discarded. Struct-kind variants are read by matching
// field keys, the same as an ordinary struct; tuple-kind variants have no
// field names to key off of and are read positionally instead.
func dispatchVariantPayload(ctx *engineCtx, s *shape.Shape, vi int) (reflect.Value, error) {
	v := s.Variants[vi]
	if v.Kind == shape.StructKindUnit || len(v.Fields) == 0 {
		return reflect.New(s.Type).Elem(), nil
	}

	pb := partial.New(s)
	if err := pb.SelectVariant(vi); err != nil {
		return reflect.Value{}, err
	}

	if v.Kind == shape.StructKindStruct {
		if err := dispatchVariantStructFields(ctx, pb, v); err != nil {
			return reflect.Value{}, err
		}
		return pb.Build()
	}

	for i, fld := range v.Fields {
		if err := pb.BeginNthField(i); err != nil {
			return reflect.Value{}, err
		}
		val, err := dispatch(ctx, fld.Shape())
		if err != nil {
			return reflect.Value{}, err
		}
		if err := pb.Set(val.Interface()); err != nil {
			return reflect.Value{}, err
		}
		if err := pb.End(); err != nil {
			return reflect.Value{}, err
		}
	}
	return pb.Build()
}

// dispatchVariantStructFields reads a struct-kind variant's payload off
// ctx the same way dispatchStruct reads an ordinary struct: a
// BeginStruct/FieldKey/.../EndStruct sequence with keys matched against
// the variant's own field names. Unknown keys inside a variant payload
// are skipped rather than routed — variants don't flatten.
func dispatchVariantStructFields(ctx *engineCtx, pb *partial.Partial, v shape.Variant) error {
	if _, err := ctx.ExpectEvent(); err != nil { // EventBeginStruct
		return err
	}
	for {
		evt, has, err := ctx.PeekEventRaw()
		if err != nil {
			return err
		}
		if has && evt.Kind == EventEndStruct {
			ctx.ExpectEvent()
			break
		}

		keyEvt, err := ctx.ExpectEvent() // EventFieldKey
		if err != nil {
			return err
		}
		key := keyEvt.Value.Str

		matched := false
		for i, fld := range v.Fields {
			if fld.Attrs.EffectiveName(fld.Name) == key {
				if err := pb.BeginNthField(i); err != nil {
					return err
				}
				val, err := dispatch(ctx, fld.Shape())
				if err != nil {
					return err
				}
				if err := pb.Set(val.Interface()); err != nil {
					return err
				}
				if err := pb.End(); err != nil {
					return err
				}
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if err := ctx.SkipValue(); err != nil {
			return err
		}
	}
	return nil
}
