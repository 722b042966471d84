package shape

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the canonical serialization of a schema tree.
// This is the ONLY serialization used for fingerprint computation.
//
// The encoding is compact JSON with keys emitted in a fixed order and all
// strings NFC-normalized at the boundary. Field and variant order is the
// declaration order already carried by the tree, so structurally identical
// shapes serialize byte-identically.
func MarshalCanonical(n Node) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, n Node) error {
	switch t := n.(type) {
	case Primitive:
		buf.WriteString(`{"primitive":`)
		if err := writeCanonicalString(buf, string(t.Kind)); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil

	case Optional:
		buf.WriteString(`{"optional":`)
		if err := writeCanonical(buf, t.Inner); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil

	case Sequence:
		buf.WriteString(`{"sequence":`)
		if err := writeCanonical(buf, t.Elem); err != nil {
			return err
		}
		buf.WriteByte('}')
		return nil

	case Union:
		buf.WriteString(`{"union":[`)
		for i, v := range t.Variants {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"tag":`)
			if err := writeCanonicalString(buf, v.Tag); err != nil {
				return err
			}
			buf.WriteString(`,"of":`)
			if err := writeCanonical(buf, v.Node); err != nil {
				return err
			}
			buf.WriteByte('}')
		}
		buf.WriteString(`]}`)
		return nil

	case Record:
		buf.WriteString(`{"record":`)
		if err := writeCanonicalString(buf, t.Name); err != nil {
			return err
		}
		buf.WriteString(`,"fields":[`)
		for i, f := range t.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(`{"name":`)
			if err := writeCanonicalString(buf, f.Name); err != nil {
				return err
			}
			buf.WriteString(`,"of":`)
			if err := writeCanonical(buf, f.Node); err != nil {
				return err
			}
			buf.WriteByte('}')
		}
		buf.WriteString(`]}`)
		return nil

	default:
		return fmt.Errorf("unknown node type: %T", n)
	}
}

// writeCanonicalString emits a JSON string with NFC normalization and HTML
// escaping disabled, so the canonical bytes do not depend on how the source
// happened to compose its Unicode.
func writeCanonicalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder adds a trailing newline, drop it.
	out := tmp.Bytes()
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	buf.Write(out)
	return nil
}
