package codec

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/roach88/recall/internal/shape"
)

// Sentinel strings for non-finite floats. Numeric NaN/Infinity literals are
// not valid JSON, so they travel as strings and convert back on decode.
const (
	sentinelNaN    = "NaN"
	sentinelPosInf = "Infinity"
	sentinelNegInf = "-Infinity"
)

const (
	dateLayout = "2006-01-02"
)

// CachedError is the decoded form of a cached failure value. It carries the
// original error's type name and message as data; the codec never re-raises
// it.
type CachedError struct {
	Type    string
	Message string
}

// Error implements the error interface.
func (e *CachedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// CheckDateType verifies that a type registered as a date primitive is a
// struct with integer Year, Month and Day fields, which is the structural
// contract the codec reconstructs dates through.
func CheckDateType(t reflect.Type) error {
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("date type %s must be a struct", t)
	}
	for _, name := range []string{"Year", "Month", "Day"} {
		f, ok := t.FieldByName(name)
		if !ok {
			return fmt.Errorf("date type %s is missing field %s", t, name)
		}
		switch f.Type.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return fmt.Errorf("date type %s field %s must be an integer, got %s", t, name, f.Type)
		}
	}
	return nil
}

// Encode converts a runtime value into its neutral representation under the
// given shape. Returns *EncodeError when the value violates the shape.
func Encode(value any, n shape.Node) (Value, error) {
	t := n.GoType()
	rv := reflect.ValueOf(value)
	switch {
	case !rv.IsValid():
		rv = reflect.Zero(t)
	case rv.Type() != t && t.Kind() == reflect.Interface && rv.Type().Implements(t):
		// Passing through `any` strips the declared interface type; box the
		// dynamic value back so union and error nodes see an interface.
		boxed := reflect.New(t).Elem()
		boxed.Set(rv)
		rv = boxed
	}
	return encode(rv, n, t.String())
}

func encode(rv reflect.Value, n shape.Node, path string) (Value, error) {
	switch t := n.(type) {
	case shape.Primitive:
		return encodePrimitive(rv, t, path)

	case shape.Optional:
		if rv.Kind() != reflect.Pointer {
			return nil, encodeErrf(path, "expected pointer for optional, got %s", rv.Kind())
		}
		if rv.IsNil() {
			return Null{}, nil
		}
		return encode(rv.Elem(), t.Inner, path)

	case shape.Union:
		return encodeUnion(rv, t, path)

	case shape.Sequence:
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, encodeErrf(path, "expected slice or array, got %s", rv.Kind())
		}
		list := make(List, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := encode(rv.Index(i), t.Elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			list[i] = elem
		}
		return list, nil

	case shape.Record:
		if rv.Kind() != reflect.Struct {
			return nil, encodeErrf(path, "expected struct %s, got %s", t.Name, rv.Kind())
		}
		m := make(Map, len(t.Fields))
		for _, f := range t.Fields {
			fv := rv.FieldByName(f.Name)
			if !fv.IsValid() {
				return nil, encodeErrf(path, "value has no field %s", f.Name)
			}
			enc, err := encode(fv, f.Node, path+"."+f.Name)
			if err != nil {
				return nil, err
			}
			m[f.Name] = enc
		}
		return m, nil

	default:
		return nil, encodeErrf(path, "unknown node type %T", n)
	}
}

func encodePrimitive(rv reflect.Value, p shape.Primitive, path string) (Value, error) {
	switch p.Kind {
	case shape.KindString:
		if rv.Kind() != reflect.String {
			return nil, encodeErrf(path, "expected string, got %s", rv.Kind())
		}
		return String(rv.String()), nil

	case shape.KindInt:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return Int(rv.Int()), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			u := rv.Uint()
			if u > math.MaxInt64 {
				return nil, encodeErrf(path, "unsigned value %d overflows the integer encoding", u)
			}
			return Int(int64(u)), nil
		default:
			return nil, encodeErrf(path, "expected integer, got %s", rv.Kind())
		}

	case shape.KindFloat:
		if rv.Kind() != reflect.Float32 && rv.Kind() != reflect.Float64 {
			return nil, encodeErrf(path, "expected float, got %s", rv.Kind())
		}
		f := rv.Float()
		switch {
		case math.IsNaN(f):
			return String(sentinelNaN), nil
		case math.IsInf(f, 1):
			return String(sentinelPosInf), nil
		case math.IsInf(f, -1):
			return String(sentinelNegInf), nil
		}
		return Float(f), nil

	case shape.KindBool:
		if rv.Kind() != reflect.Bool {
			return nil, encodeErrf(path, "expected bool, got %s", rv.Kind())
		}
		return Bool(rv.Bool()), nil

	case shape.KindDatetime:
		t, ok := rv.Interface().(time.Time)
		if !ok {
			return nil, encodeErrf(path, "expected time.Time, got %s", rv.Type())
		}
		return String(t.Format(time.RFC3339Nano)), nil

	case shape.KindDate:
		y, m, d, err := dateFields(rv)
		if err != nil {
			return nil, encodeErrf(path, "%v", err)
		}
		return String(fmt.Sprintf("%04d-%02d-%02d", y, m, d)), nil

	case shape.KindError:
		if rv.Kind() != reflect.Interface {
			return nil, encodeErrf(path, "expected error value, got %s", rv.Type())
		}
		if rv.IsNil() {
			return nil, encodeErrf(path, "nil error under a non-optional node")
		}
		errVal, ok := rv.Interface().(error)
		if !ok {
			return nil, encodeErrf(path, "value does not implement error")
		}
		return Map{
			"errorType": String(reflect.TypeOf(errVal).String()),
			"message":   String(errVal.Error()),
		}, nil

	default:
		return nil, encodeErrf(path, "unknown primitive kind %q", p.Kind)
	}
}

func encodeUnion(rv reflect.Value, u shape.Union, path string) (Value, error) {
	if rv.Kind() != reflect.Interface {
		return nil, encodeErrf(path, "expected interface for union, got %s", rv.Kind())
	}
	if rv.IsNil() {
		return nil, encodeErrf(path, "nil value outside the union's variant set")
	}
	dyn := rv.Elem()
	for _, v := range u.Variants {
		if v.Node.GoType() == dyn.Type() {
			inner, err := encode(dyn, v.Node, path+"("+v.Tag+")")
			if err != nil {
				return nil, err
			}
			// The discriminant is mandatory: two variants may be
			// structurally indistinguishable without it.
			return List{String(v.Tag), inner}, nil
		}
	}
	return nil, encodeErrf(path, "dynamic type %s is not a declared variant", dyn.Type())
}

func dateFields(rv reflect.Value) (int64, int64, int64, error) {
	if rv.Kind() != reflect.Struct {
		return 0, 0, 0, fmt.Errorf("expected date struct, got %s", rv.Kind())
	}
	y := rv.FieldByName("Year")
	m := rv.FieldByName("Month")
	d := rv.FieldByName("Day")
	if !y.IsValid() || !m.IsValid() || !d.IsValid() {
		return 0, 0, 0, fmt.Errorf("date struct %s lacks Year/Month/Day fields", rv.Type())
	}
	return y.Int(), m.Int(), d.Int(), nil
}

// Decode reconstructs a runtime value from its neutral representation.
// Returns *DecodeError when the payload does not parse under the shape.
func Decode(v Value, n shape.Node) (any, error) {
	rv, err := decode(v, n, n.GoType().String())
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func decode(v Value, n shape.Node, path string) (reflect.Value, error) {
	switch t := n.(type) {
	case shape.Primitive:
		return decodePrimitive(v, t, path)

	case shape.Optional:
		if _, isNull := v.(Null); isNull {
			return reflect.Zero(t.GoType()), nil
		}
		inner, err := decode(v, t.Inner, path)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Inner.GoType())
		ptr.Elem().Set(inner)
		return ptr, nil

	case shape.Union:
		return decodeUnion(v, t, path)

	case shape.Sequence:
		list, ok := v.(List)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected list, got %T", v)
		}
		return decodeSequence(list, t, path)

	case shape.Record:
		m, ok := v.(Map)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected map for record %s, got %T", t.Name, v)
		}
		out := reflect.New(t.GoType()).Elem()
		for _, f := range t.Fields {
			fv, present := m[f.Name]
			if !present {
				// A missing entry for an optional field is lenient.
				if _, isOpt := f.Node.(shape.Optional); isOpt {
					continue
				}
				return reflect.Value{}, decodeErrf(path, "missing required field %s", f.Name)
			}
			dv, err := decode(fv, f.Node, path+"."+f.Name)
			if err != nil {
				return reflect.Value{}, err
			}
			out.FieldByName(f.Name).Set(dv)
		}
		return out, nil

	default:
		return reflect.Value{}, decodeErrf(path, "unknown node type %T", n)
	}
}

func decodeSequence(list List, s shape.Sequence, path string) (reflect.Value, error) {
	t := s.GoType()
	var out reflect.Value
	switch t.Kind() {
	case reflect.Slice:
		out = reflect.MakeSlice(t, len(list), len(list))
	case reflect.Array:
		if t.Len() != len(list) {
			return reflect.Value{}, decodeErrf(path, "array length mismatch: declared %d, stored %d", t.Len(), len(list))
		}
		out = reflect.New(t).Elem()
	default:
		return reflect.Value{}, decodeErrf(path, "sequence compiled from non-sequence type %s", t)
	}
	for i, elem := range list {
		dv, err := decode(elem, s.Elem, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return reflect.Value{}, err
		}
		out.Index(i).Set(dv)
	}
	return out, nil
}

func decodeUnion(v Value, u shape.Union, path string) (reflect.Value, error) {
	if list, ok := v.(List); ok && len(list) == 2 {
		if tag, ok := list[0].(String); ok {
			if variant, found := u.ByTag(string(tag)); found {
				inner, err := decode(list[1], variant.Node, path+"("+string(tag)+")")
				if err != nil {
					return reflect.Value{}, err
				}
				return asInterface(inner, u.GoType()), nil
			}
		}
	}

	// Legacy payloads carry no discriminant. The inherited tie-break is
	// first-declared-variant-that-parses; structurally identical variants
	// stay ambiguous on purpose.
	for _, variant := range u.Variants {
		inner, err := decode(v, variant.Node, path+"("+variant.Tag+")")
		if err == nil {
			return asInterface(inner, u.GoType()), nil
		}
	}
	return reflect.Value{}, decodeErrf(path, "value matches no union variant")
}

func asInterface(concrete reflect.Value, iface reflect.Type) reflect.Value {
	out := reflect.New(iface).Elem()
	out.Set(concrete)
	return out
}

func decodePrimitive(v Value, p shape.Primitive, path string) (reflect.Value, error) {
	t := p.GoType()
	switch p.Kind {
	case shape.KindString:
		s, ok := v.(String)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected string, got %T", v)
		}
		out := reflect.New(t).Elem()
		out.SetString(string(s))
		return out, nil

	case shape.KindInt:
		i, ok := v.(Int)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected integer, got %T", v)
		}
		out := reflect.New(t).Elem()
		switch t.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, decodeErrf(path, "stored value %d does not fit %s", int64(i), t)
			}
			out.SetUint(uint64(i))
		default:
			if out.OverflowInt(int64(i)) {
				return reflect.Value{}, decodeErrf(path, "stored value %d does not fit %s", int64(i), t)
			}
			out.SetInt(int64(i))
		}
		return out, nil

	case shape.KindFloat:
		f, err := floatFromValue(v, path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		out.SetFloat(f)
		return out, nil

	case shape.KindBool:
		b, ok := v.(Bool)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected bool, got %T", v)
		}
		out := reflect.New(t).Elem()
		out.SetBool(bool(b))
		return out, nil

	case shape.KindDatetime:
		s, ok := v.(String)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected datetime string, got %T", v)
		}
		parsed, err := time.Parse(time.RFC3339Nano, string(s))
		if err != nil {
			return reflect.Value{}, decodeErrf(path, "bad datetime %q: %v", string(s), err)
		}
		return reflect.ValueOf(parsed), nil

	case shape.KindDate:
		s, ok := v.(String)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected date string, got %T", v)
		}
		parsed, err := time.Parse(dateLayout, string(s))
		if err != nil {
			return reflect.Value{}, decodeErrf(path, "bad date %q: %v", string(s), err)
		}
		out := reflect.New(t).Elem()
		out.FieldByName("Year").SetInt(int64(parsed.Year()))
		out.FieldByName("Month").SetInt(int64(parsed.Month()))
		out.FieldByName("Day").SetInt(int64(parsed.Day()))
		return out, nil

	case shape.KindError:
		m, ok := v.(Map)
		if !ok {
			return reflect.Value{}, decodeErrf(path, "expected error record, got %T", v)
		}
		typ, okT := m["errorType"].(String)
		msg, okM := m["message"].(String)
		if !okT || !okM {
			return reflect.Value{}, decodeErrf(path, "error record missing errorType/message")
		}
		ce := &CachedError{Type: string(typ), Message: string(msg)}
		out := reflect.New(t).Elem()
		out.Set(reflect.ValueOf(ce))
		return out, nil

	default:
		return reflect.Value{}, decodeErrf(path, "unknown primitive kind %q", p.Kind)
	}
}

func floatFromValue(v Value, path string) (float64, error) {
	switch val := v.(type) {
	case Float:
		return float64(val), nil
	case Int:
		// Integral doubles serialize without a fraction and come back as Int.
		return float64(val), nil
	case String:
		switch string(val) {
		case sentinelNaN:
			return math.NaN(), nil
		case sentinelPosInf:
			return math.Inf(1), nil
		case sentinelNegInf:
			return math.Inf(-1), nil
		}
		return 0, decodeErrf(path, "unexpected string %q for float", string(val))
	default:
		return 0, decodeErrf(path, "expected float, got %T", v)
	}
}
