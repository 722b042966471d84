package shape

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprint computation.
// Version suffix enables future algorithm migration.
const (
	DomainSchema = "recall/schema/v1"
	DomainDepKey = "recall/depkey/v1"
)

// Fingerprint is a hex-encoded digest over a canonical serialization.
type Fingerprint string

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) Fingerprint {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}

// FingerprintNode computes the schema fingerprint of a compiled shape.
// Structurally identical trees fingerprint identically; reordering fields
// or variants changes the fingerprint even when the data would round-trip.
func FingerprintNode(n Node) (Fingerprint, error) {
	canonical, err := MarshalCanonical(n)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// DependencyKey derives an opaque key from the logical inputs of a call.
// Each input is canonically formatted in order and length-prefixed, so no
// concatenation of inputs can collide with a different split of the same
// bytes. Deterministic across runs for identical logical inputs.
func DependencyKey(inputs ...any) Fingerprint {
	h := sha256.New()
	h.Write([]byte(DomainDepKey))
	h.Write([]byte{0x00})
	var lenbuf [8]byte
	for _, in := range inputs {
		s := fmt.Sprintf("%v", in)
		binary.BigEndian.PutUint64(lenbuf[:], uint64(len(s)))
		h.Write(lenbuf[:])
		h.Write([]byte(s))
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil)))
}
