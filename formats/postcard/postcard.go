// Package postcard implements the postcard wire format: no delimiters, no
// field names, LEB128 varints for integers wider than a byte, zigzag
// encoding for signed integers, little-endian fixed-width floats, and a
// length-prefixed byte run for
// strings/bytes/variable-length sequences.
//
// The format's own upstream serializer bypasses the generic
// peek-walking Serializer trait entirely in favor of "custom traversal
// logic optimized for binary formats" (see
// _examples/original_source/facet-format-postcard/src/serialize.rs's own
// doc comment) — there is no struct delimiter or field name to hand to a
// generic Sink, so this package does the same: it walks peek.Peek and
// partial.Partial directly rather than implementing ser.Sink/deser.Parser.
package postcard

import (
	"math"
	"reflect"

	"github.com/facet-rs/facet-sub005/ferrors"
	"github.com/facet-rs/facet-sub005/partial"
	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

// Marshal encodes v (already read via peek.Of) to postcard bytes.
func Marshal(p peek.Peek) ([]byte, error) {
	var w []byte
	if err := serializeValue(p, &w); err != nil {
		return nil, err
	}
	return w, nil
}

func serializeValue(p peek.Peek, w *[]byte) error {
	switch p.Shape.Def {
	case shape.DefScalar:
		return serializeScalar(p, w)
	case shape.DefList, shape.DefSlice, shape.DefSet:
		if isByteSlice(p.Shape) {
			return serializeBytes(p.Value.Bytes(), w)
		}
		n := p.ListLen()
		writeVarint(uint64(n), w)
		for i := 0; i < n; i++ {
			if err := serializeValue(p.ListItem(i), w); err != nil {
				return err
			}
		}
		return nil
	case shape.DefArray:
		// Fixed-size arrays carry no length prefix; the type already fixes it.
		n := p.ListLen()
		for i := 0; i < n; i++ {
			if err := serializeValue(p.ListItem(i), w); err != nil {
				return err
			}
		}
		return nil
	case shape.DefMap:
		keys := p.MapKeys()
		writeVarint(uint64(len(keys)), w)
		for _, k := range keys {
			if err := serializeValue(k, w); err != nil {
				return err
			}
			if err := serializeValue(p.MapGet(k), w); err != nil {
				return err
			}
		}
		return nil
	case shape.DefOption:
		if !p.IsOptionPresent() {
			*w = append(*w, 0)
			return nil
		}
		*w = append(*w, 1)
		return serializeValue(p.OptionValue(), w)
	case shape.DefStruct:
		if p.Shape.StructKind == shape.StructKindUnit {
			return nil
		}
		for _, f := range p.FieldsForSerialize(nil) {
			if err := serializeValue(f.Peek, w); err != nil {
				return err
			}
		}
		return nil
	case shape.DefEnum, shape.DefResult:
		idx, _, payload, ok := p.ActiveVariant()
		if !ok {
			return ferrors.New(ferrors.Unsupported, "cannot determine active variant of "+p.Shape.Name)
		}
		writeVarint(uint64(idx), w)
		if payload.Shape == nil {
			return nil
		}
		return serializeValue(payload, w)
	default:
		return ferrors.New(ferrors.Unsupported, "postcard: unsupported shape "+p.Shape.Name)
	}
}

func isByteSlice(s *shape.Shape) bool {
	return (s.Def == shape.DefSlice || s.Def == shape.DefList) && s.Type.Kind() == reflect.Slice && s.Type.Elem().Kind() == reflect.Uint8
}

func serializeScalar(p peek.Peek, w *[]byte) error {
	v := p.Value
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			*w = append(*w, 1)
		} else {
			*w = append(*w, 0)
		}
	case reflect.String:
		return serializeBytes([]byte(v.String()), w)
	case reflect.Uint8:
		*w = append(*w, byte(v.Uint()))
	case reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint, reflect.Uintptr:
		writeVarint(v.Uint(), w)
	case reflect.Int8:
		*w = append(*w, byte(int8(v.Int())))
	case reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		writeVarintSigned(v.Int(), w)
	case reflect.Float32:
		bits := math.Float32bits(float32(v.Float()))
		*w = append(*w, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
	case reflect.Float64:
		bits := math.Float64bits(v.Float())
		for i := 0; i < 8; i++ {
			*w = append(*w, byte(bits>>(8*i)))
		}
	default:
		return ferrors.New(ferrors.Unsupported, "postcard: unsupported scalar kind "+v.Kind().String())
	}
	return nil
}

func serializeBytes(b []byte, w *[]byte) error {
	writeVarint(uint64(len(b)), w)
	*w = append(*w, b...)
	return nil
}

// writeVarint appends value as an unsigned LEB128-style varint: 7 bits of
// payload per byte, high bit set on every byte but the last.
func writeVarint(value uint64, w *[]byte) {
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		*w = append(*w, b)
		if value == 0 {
			return
		}
	}
}

// writeVarintSigned zigzag-encodes value so small negative numbers stay
// small, then writes it as an unsigned varint.
func writeVarintSigned(value int64, w *[]byte) {
	encoded := uint64((value << 1) ^ (value >> 63))
	writeVarint(encoded, w)
}

// Unmarshal decodes postcard bytes into a fresh value of shape s.
func Unmarshal(data []byte, s *shape.Shape) (reflect.Value, error) {
	d := &decoder{buf: data}
	v, err := d.value(s)
	if err != nil {
		return reflect.Value{}, err
	}
	return v, nil
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) readByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, ferrors.New(ferrors.UnexpectedEOF, "postcard: unexpected end of input")
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

func (d *decoder) readVarint() (uint64, error) {
	var out uint64
	var shift uint
	for {
		b, err := d.readByte()
		if err != nil {
			return 0, err
		}
		out |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return out, nil
		}
		shift += 7
	}
}

func (d *decoder) readVarintSigned() (int64, error) {
	u, err := d.readVarint()
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

func (d *decoder) readBytes(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, ferrors.New(ferrors.UnexpectedEOF, "postcard: unexpected end of input")
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// value decodes one value of shape s directly into a reflect.Value,
// using partial.Partial for struct and enum construction (lists, arrays,
// maps, options and scalars are built with reflect directly) the way the
// upstream deserializer drives facet_reflect::Partial — the
// difference is plain Go recursion stands in for the task stack the
// Rust version needs to satisfy its borrow checker across yield points.
func (d *decoder) value(s *shape.Shape) (reflect.Value, error) {
	switch s.Def {
	case shape.DefScalar:
		return d.scalar(s)
	case shape.DefList, shape.DefSlice, shape.DefSet:
		if isByteSlice(s) {
			n, err := d.readVarint()
			if err != nil {
				return reflect.Value{}, err
			}
			b, err := d.readBytes(int(n))
			if err != nil {
				return reflect.Value{}, err
			}
			out := reflect.MakeSlice(s.Type, len(b), len(b))
			reflect.Copy(out, reflect.ValueOf(b))
			return out, nil
		}
		n, err := d.readVarint()
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(s.Type, 0, int(n))
		for i := uint64(0); i < n; i++ {
			elem, err := d.value(s.Inner())
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, elem)
		}
		return out, nil
	case shape.DefArray:
		out := reflect.New(s.Type).Elem()
		for i := 0; i < out.Len(); i++ {
			elem, err := d.value(s.Inner())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case shape.DefMap:
		n, err := d.readVarint()
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeMap(s.Type)
		for i := uint64(0); i < n; i++ {
			key, err := d.value(s.Key())
			if err != nil {
				return reflect.Value{}, err
			}
			val, err := d.value(s.Inner())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(key, val)
		}
		return out, nil
	case shape.DefOption:
		tag, err := d.readByte()
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(s.Type).Elem()
		if tag == 0 {
			return out, nil
		}
		inner, err := d.value(s.Inner())
		if err != nil {
			return reflect.Value{}, err
		}
		out.FieldByName("Valid").SetBool(true)
		out.FieldByName("Value").Set(inner)
		return out, nil
	case shape.DefStruct:
		if s.StructKind == shape.StructKindUnit {
			return reflect.New(s.Type).Elem(), nil
		}
		pb := partial.New(s)
		for i, f := range s.Fields {
			if err := pb.BeginNthField(i); err != nil {
				return reflect.Value{}, err
			}
			v, err := d.value(f.Shape())
			if err != nil {
				return reflect.Value{}, err
			}
			if err := pb.Set(v.Interface()); err != nil {
				return reflect.Value{}, err
			}
			if err := pb.End(); err != nil {
				return reflect.Value{}, err
			}
		}
		return pb.Build()
	case shape.DefEnum, shape.DefResult:
		idx, err := d.readVarint()
		if err != nil {
			return reflect.Value{}, err
		}
		if int(idx) >= len(s.Variants) {
			return reflect.Value{}, ferrors.New(ferrors.InvalidVariant, "postcard: variant index out of range")
		}
		v := s.Variants[idx]
		if len(v.Fields) == 0 {
			return reflect.New(s.Type).Elem(), nil
		}
		pb := partial.New(s)
		if err := pb.SelectVariant(int(idx)); err != nil {
			return reflect.Value{}, err
		}
		for i, f := range v.Fields {
			if err := pb.BeginNthField(i); err != nil {
				return reflect.Value{}, err
			}
			fv, err := d.value(f.Shape())
			if err != nil {
				return reflect.Value{}, err
			}
			if err := pb.Set(fv.Interface()); err != nil {
				return reflect.Value{}, err
			}
			if err := pb.End(); err != nil {
				return reflect.Value{}, err
			}
		}
		return pb.Build()
	default:
		return reflect.Value{}, ferrors.New(ferrors.Unsupported, "postcard: unsupported shape "+s.Name)
	}
}

func (d *decoder) scalar(s *shape.Shape) (reflect.Value, error) {
	out := reflect.New(s.Type).Elem()
	switch s.Type.Kind() {
	case reflect.Bool:
		b, err := d.readByte()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b != 0)
	case reflect.String:
		n, err := d.readVarint()
		if err != nil {
			return reflect.Value{}, err
		}
		b, err := d.readBytes(int(n))
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(string(b))
	case reflect.Uint8:
		b, err := d.readByte()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(uint64(b))
	case reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint, reflect.Uintptr:
		v, err := d.readVarint()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(v)
	case reflect.Int8:
		b, err := d.readByte()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(int64(int8(b)))
	case reflect.Int16, reflect.Int32, reflect.Int64, reflect.Int:
		v, err := d.readVarintSigned()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(v)
	case reflect.Float32:
		b, err := d.readBytes(4)
		if err != nil {
			return reflect.Value{}, err
		}
		bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		out.SetFloat(float64(math.Float32frombits(bits)))
	case reflect.Float64:
		b, err := d.readBytes(8)
		if err != nil {
			return reflect.Value{}, err
		}
		var bits uint64
		for i := 0; i < 8; i++ {
			bits |= uint64(b[i]) << (8 * i)
		}
		out.SetFloat(math.Float64frombits(bits))
	default:
		return reflect.Value{}, ferrors.New(ferrors.Unsupported, "postcard: unsupported scalar kind "+s.Type.Kind().String())
	}
	return out, nil
}
