package shape

import (
	"fmt"
	"reflect"
	"time"
)

var (
	timeType  = reflect.TypeOf(time.Time{})
	errorType = reflect.TypeOf((*error)(nil)).Elem()
)

// Options configures compilation.
//
// Go has no native sum types, so union shapes follow an explicit registry
// pattern: an interface type compiles to a Union only if its ordered variant
// list has been registered here. Everything else about a shape is derived
// from the type's declared structure, never from runtime values.
type Options struct {
	// Unions maps an interface type to its ordered variant types.
	// Variant order is declaration order and feeds the fingerprint.
	Unions map[reflect.Type][]reflect.Type

	// Dates is the set of types compiled to the date primitive.
	Dates map[reflect.Type]bool
}

// Compile converts a Go type into its canonical schema tree.
// Deterministic for a given type and options.
//
// Mapping:
//   - string, integers, floats, bool -> primitives
//   - time.Time -> datetime; registered date types -> date
//   - the error interface -> the tagged error primitive
//   - pointers -> Optional of the element shape
//   - slices and arrays -> Sequence
//   - structs -> Record with exported fields in declaration order
//   - registered interfaces -> Union
//
// Returns *UnsupportedError for types with no schema mapping (maps,
// channels, funcs, unregistered interfaces) and *CycleError for
// self-referential types.
func Compile(t reflect.Type, opts Options) (Node, error) {
	c := &compiler{opts: opts, visiting: make(map[reflect.Type]bool)}
	return c.compile(t)
}

type compiler struct {
	opts     Options
	visiting map[reflect.Type]bool
}

func (c *compiler) compile(t reflect.Type) (Node, error) {
	if c.opts.Dates[t] {
		return Primitive{Kind: KindDate, Type: t}, nil
	}
	if t == timeType {
		return Primitive{Kind: KindDatetime, Type: t}, nil
	}
	if t == errorType {
		return Primitive{Kind: KindError, Type: t}, nil
	}

	switch t.Kind() {
	case reflect.String:
		return Primitive{Kind: KindString, Type: t}, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Primitive{Kind: KindInt, Type: t}, nil

	case reflect.Float32, reflect.Float64:
		return Primitive{Kind: KindFloat, Type: t}, nil

	case reflect.Bool:
		return Primitive{Kind: KindBool, Type: t}, nil

	case reflect.Pointer:
		inner, err := c.compile(t.Elem())
		if err != nil {
			return nil, err
		}
		return Optional{Inner: inner, Type: t}, nil

	case reflect.Slice, reflect.Array:
		elem, err := c.compile(t.Elem())
		if err != nil {
			return nil, err
		}
		return Sequence{Elem: elem, Type: t}, nil

	case reflect.Struct:
		return c.compileRecord(t)

	case reflect.Interface:
		return c.compileUnion(t)

	default:
		return nil, &UnsupportedError{
			Type:   t,
			Reason: fmt.Sprintf("%s types have no schema mapping", t.Kind()),
		}
	}
}

func (c *compiler) compileRecord(t reflect.Type) (Node, error) {
	if c.visiting[t] {
		return nil, &CycleError{Type: t}
	}
	c.visiting[t] = true
	defer delete(c.visiting, t)

	fields := make([]Field, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		node, err := c.compile(sf.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
		}
		fields = append(fields, Field{Name: sf.Name, Node: node})
	}
	if len(fields) == 0 {
		return nil, &UnsupportedError{Type: t, Reason: "struct has no exported fields"}
	}

	return Record{Name: t.Name(), Fields: fields, Type: t}, nil
}

func (c *compiler) compileUnion(t reflect.Type) (Node, error) {
	variantTypes, ok := c.opts.Unions[t]
	if !ok {
		return nil, &UnsupportedError{
			Type:   t,
			Reason: "interface with no registered variants (open-ended container)",
		}
	}
	if len(variantTypes) == 0 {
		return nil, &UnsupportedError{Type: t, Reason: "union registered with zero variants"}
	}
	if c.visiting[t] {
		return nil, &CycleError{Type: t}
	}
	c.visiting[t] = true
	defer delete(c.visiting, t)

	seen := make(map[string]bool, len(variantTypes))
	variants := make([]Variant, 0, len(variantTypes))
	for _, vt := range variantTypes {
		if !vt.Implements(t) {
			return nil, &UnsupportedError{
				Type:   t,
				Reason: fmt.Sprintf("registered variant %s does not implement %s", vt, t),
			}
		}
		node, err := c.compile(vt)
		if err != nil {
			return nil, fmt.Errorf("union %s variant %s: %w", t, vt, err)
		}
		tag := variantTag(vt)
		if seen[tag] {
			return nil, &UnsupportedError{
				Type:   t,
				Reason: fmt.Sprintf("duplicate variant tag %q", tag),
			}
		}
		seen[tag] = true
		variants = append(variants, Variant{Tag: tag, Node: node})
	}

	return Union{Variants: variants, Type: t}, nil
}

// variantTag derives the stable discriminant stored alongside every encoded
// union value. The type's declared name survives refactors that preserve it;
// renaming a variant intentionally changes the tag (and the fingerprint).
func variantTag(t reflect.Type) string {
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
