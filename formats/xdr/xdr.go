// Package xdr implements RFC 4506 External Data Representation: big-endian
// fixed-width scalars, 4-byte alignment padding after every variable-length
// byte run, and enum variants tagged by a 4-byte discriminant rather than a
// name.
//
// Like formats/postcard, this bypasses ser.Sink/deser.Parser and walks
// peek.Peek/partial.Partial directly, grounded on
// _examples/original_source/facet-xdr/src/lib.rs's own serialize_value/
// XdrDeserializerStack, which do the same for the same reason: XDR has no
// struct delimiter or field name to hand a generic Sink.
package xdr

import (
	"math"
	"reflect"

	"github.com/facet-rs/facet-sub005/ferrors"
	"github.com/facet-rs/facet-sub005/partial"
	"github.com/facet-rs/facet-sub005/peek"
	"github.com/facet-rs/facet-sub005/shape"
)

// Marshal encodes p to XDR bytes.
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
		writeU32(uint32(n), w)
		for i := 0; i < n; i++ {
			if err := serializeValue(p.ListItem(i), w); err != nil {
				return err
			}
		}
		return nil
	case shape.DefArray:
		if isByteSlice(p.Shape) {
			b := make([]byte, p.ListLen())
			for i := range b {
				b[i] = byte(p.ListItem(i).Value.Uint())
			}
			*w = append(*w, b...)
			pad(len(b), w)
			return nil
		}
		n := p.ListLen()
		for i := 0; i < n; i++ {
			if err := serializeValue(p.ListItem(i), w); err != nil {
				return err
			}
		}
		return nil
	case shape.DefMap:
		// XDR has no native map type; RFC 4506 leaves aggregate container
		// shapes other than fixed/variable arrays undefined, so maps are
		// encoded the same way the array case is: a length-prefixed run of
		// key/value pairs, consistent with how this package already treats
		// every other unspecified aggregate.
		keys := p.MapKeys()
		writeU32(uint32(len(keys)), w)
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
			writeU32(0, w)
			return nil
		}
		writeU32(1, w)
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
		discriminant := p.Shape.Variants[idx].Discriminant
		if p.Shape.Variants[idx].HasDiscrim {
			// keep the declared discriminant
		} else {
			discriminant = int64(idx)
		}
		if discriminant < 0 || discriminant > math.MaxUint32 {
			return ferrors.New(ferrors.TooManyVariants, "xdr: discriminant out of range for "+p.Shape.Name)
		}
		writeU32(uint32(discriminant), w)
		if payload.Shape == nil {
			return nil
		}
		return serializeValue(payload, w)
	default:
		return ferrors.New(ferrors.Unsupported, "xdr: unsupported shape "+p.Shape.Name)
	}
}

func isByteSlice(s *shape.Shape) bool {
	return s.Type.Kind() == reflect.Slice && s.Type.Elem().Kind() == reflect.Uint8 ||
		s.Type.Kind() == reflect.Array && s.Type.Elem().Kind() == reflect.Uint8
}

func serializeScalar(p peek.Peek, w *[]byte) error {
	v := p.Value
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			writeU32(1, w)
		} else {
			writeU32(0, w)
		}
	case reflect.String:
		return serializeBytes([]byte(v.String()), w)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		writeU32(uint32(v.Uint()), w)
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		writeU64(v.Uint(), w)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		writeU32(uint32(int32(v.Int())), w)
	case reflect.Int, reflect.Int64:
		writeU64(uint64(v.Int()), w)
	case reflect.Float32:
		writeU32(math.Float32bits(float32(v.Float())), w)
	case reflect.Float64:
		writeU64(math.Float64bits(v.Float()), w)
	default:
		return ferrors.New(ferrors.Unsupported, "xdr: unsupported scalar kind "+v.Kind().String())
	}
	return nil
}

func serializeBytes(b []byte, w *[]byte) error {
	if len(b) > math.MaxUint32 {
		return ferrors.New(ferrors.TooManyBytes, "xdr: byte run too long")
	}
	writeU32(uint32(len(b)), w)
	*w = append(*w, b...)
	pad(len(b), w)
	return nil
}

func writeU32(v uint32, w *[]byte) {
	*w = append(*w, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func writeU64(v uint64, w *[]byte) {
	*w = append(*w, byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func pad(n int, w *[]byte) {
	if r := n % 4; r != 0 {
		for i := 0; i < 4-r; i++ {
			*w = append(*w, 0)
		}
	}
}

// Unmarshal decodes XDR bytes into a fresh value of shape s.
func Unmarshal(data []byte, s *shape.Shape) (reflect.Value, error) {
	d := &decoder{buf: data}
	return d.value(s)
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) readU32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, ferrors.New(ferrors.UnexpectedEOF, "xdr: unexpected end of input")
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 | uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

func (d *decoder) readU64() (uint64, error) {
	hi, err := d.readU32()
	if err != nil {
		return 0, err
	}
	lo, err := d.readU32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

func (d *decoder) readData() ([]byte, error) {
	n, err := d.readU32()
	if err != nil {
		return nil, err
	}
	if d.pos+int(n) > len(d.buf) {
		return nil, ferrors.New(ferrors.UnexpectedEOF, "xdr: unexpected end of input")
	}
	out := d.buf[d.pos : d.pos+int(n)]
	d.pos += int(n)
	if r := int(n) % 4; r != 0 {
		d.pos += 4 - r
	}
	return out, nil
}

func (d *decoder) value(s *shape.Shape) (reflect.Value, error) {
	switch s.Def {
	case shape.DefScalar:
		return d.scalar(s)
	case shape.DefList, shape.DefSlice, shape.DefSet:
		if isByteSlice(s) {
			b, err := d.readData()
			if err != nil {
				return reflect.Value{}, err
			}
			out := reflect.MakeSlice(s.Type, len(b), len(b))
			reflect.Copy(out, reflect.ValueOf(b))
			return out, nil
		}
		n, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeSlice(s.Type, 0, int(n))
		for i := uint32(0); i < n; i++ {
			elem, err := d.value(s.Inner())
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, elem)
		}
		return out, nil
	case shape.DefArray:
		out := reflect.New(s.Type).Elem()
		if isByteSlice(s) {
			n := out.Len()
			if d.pos+n > len(d.buf) {
				return reflect.Value{}, ferrors.New(ferrors.UnexpectedEOF, "xdr: unexpected end of input")
			}
			reflect.Copy(out, reflect.ValueOf(d.buf[d.pos:d.pos+n]))
			d.pos += n
			if r := n % 4; r != 0 {
				d.pos += 4 - r
			}
			return out, nil
		}
		for i := 0; i < out.Len(); i++ {
			elem, err := d.value(s.Inner())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil
	case shape.DefMap:
		n, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.MakeMap(s.Type)
		for i := uint32(0); i < n; i++ {
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
		tag, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(s.Type).Elem()
		switch tag {
		case 0:
			return out, nil
		case 1:
			inner, err := d.value(s.Inner())
			if err != nil {
				return reflect.Value{}, err
			}
			out.FieldByName("Valid").SetBool(true)
			out.FieldByName("Value").Set(inner)
			return out, nil
		default:
			return reflect.Value{}, ferrors.New(ferrors.InvalidOperation, "xdr: invalid discriminant for optional")
		}
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
		discriminant, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		vi, v, ok := findVariant(s, discriminant)
		if !ok {
			return reflect.Value{}, ferrors.New(ferrors.InvalidVariant, "xdr: invalid enum discriminant")
		}
		if len(v.Fields) == 0 {
			return reflect.New(s.Type).Elem(), nil
		}
		pb := partial.New(s)
		if err := pb.SelectVariant(vi); err != nil {
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
		return reflect.Value{}, ferrors.New(ferrors.Unsupported, "xdr: unsupported shape "+s.Name)
	}
}

// findVariant prefers an explicit discriminant match before falling back
// to positional indexing, mirroring XdrDeserializerStack::next's
// `.find(...).or(variants.get(discriminant))`.
func findVariant(s *shape.Shape, discriminant uint32) (int, shape.Variant, bool) {
	for i, v := range s.Variants {
		if v.HasDiscrim && v.Discriminant == int64(discriminant) {
			return i, v, true
		}
	}
	if int(discriminant) < len(s.Variants) {
		return int(discriminant), s.Variants[discriminant], true
	}
	return 0, shape.Variant{}, false
}

func (d *decoder) scalar(s *shape.Shape) (reflect.Value, error) {
	out := reflect.New(s.Type).Elem()
	switch s.Type.Kind() {
	case reflect.Bool:
		v, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		if v != 0 && v != 1 {
			return reflect.Value{}, ferrors.New(ferrors.InvalidOperation, "xdr: invalid boolean")
		}
		out.SetBool(v == 1)
	case reflect.String:
		b, err := d.readData()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(string(b))
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		v, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(uint64(v))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		v, err := d.readU64()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetUint(v)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		v, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(int64(int32(v)))
	case reflect.Int, reflect.Int64:
		v, err := d.readU64()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetInt(int64(v))
	case reflect.Float32:
		v, err := d.readU32()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(float64(math.Float32frombits(v)))
	case reflect.Float64:
		v, err := d.readU64()
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(math.Float64frombits(v))
	default:
		return reflect.Value{}, ferrors.New(ferrors.Unsupported, "xdr: unsupported scalar kind "+s.Type.Kind().String())
	}
	return out, nil
}
