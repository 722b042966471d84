package shape

import "reflect"

// Kind identifies a primitive leaf type.
type Kind string

const (
	KindString   Kind = "string"
	KindInt      Kind = "int"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindDatetime Kind = "datetime"
	KindDate     Kind = "date"
	// KindError is a cached failure value: a tagged {errorType, message}
	// record. It is data, never re-raised on decode.
	KindError Kind = "error"
)

// Node is a sealed interface over the schema tree variants.
// Only Primitive, Optional, Union, Sequence and Record implement it.
//
// Every node remembers the Go type it was compiled from so the codec can
// reconstruct concrete values on decode.
type Node interface {
	node()

	// GoType returns the Go type this node was compiled from.
	GoType() reflect.Type
}

// Primitive is a leaf node.
type Primitive struct {
	Kind Kind
	Type reflect.Type
}

func (Primitive) node() {}

func (p Primitive) GoType() reflect.Type { return p.Type }

// Optional wraps a node whose value may be absent.
// Absence encodes to null; anything else encodes via Inner.
type Optional struct {
	Inner Node
	Type  reflect.Type
}

func (Optional) node() {}

func (o Optional) GoType() reflect.Type { return o.Type }

// Variant is one alternative of a Union, with a stable discriminant tag.
type Variant struct {
	Tag  string
	Node Node
}

// Union is an ordered set of variants. Order is load-bearing: it feeds the
// fingerprint and breaks ties when decoding legacy payloads that carry no
// discriminant (first-declared-variant-that-parses).
type Union struct {
	Variants []Variant
	Type     reflect.Type
}

func (Union) node() {}

func (u Union) GoType() reflect.Type { return u.Type }

// ByTag returns the variant with the given tag.
func (u Union) ByTag(tag string) (Variant, bool) {
	for _, v := range u.Variants {
		if v.Tag == tag {
			return v, true
		}
	}
	return Variant{}, false
}

// Sequence is an ordered homogeneous list.
type Sequence struct {
	Elem Node
	Type reflect.Type
}

func (Sequence) node() {}

func (s Sequence) GoType() reflect.Type { return s.Type }

// Field is one named slot of a Record.
type Field struct {
	Name string
	Node Node
}

// Record is a named product type with ordered fields. Field order is the
// declaration order of the source struct and is part of the fingerprint.
type Record struct {
	Name   string
	Fields []Field
	Type   reflect.Type
}

func (Record) node() {}

func (r Record) GoType() reflect.Type { return r.Type }

// FieldByName returns the field with the given name.
func (r Record) FieldByName(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
