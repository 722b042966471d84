package shape

import (
	"reflect"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshalCanonical_Golden pins the exact canonical bytes for a nested
// shape. Any change here changes every stored fingerprint, which silently
// invalidates existing caches - regenerate deliberately with -update.
func TestMarshalCanonical_Golden(t *testing.T) {
	node, err := Compile(reflect.TypeOf(person{}), Options{})
	require.NoError(t, err)

	canonical, err := MarshalCanonical(node)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "canonical_person", canonical)
}

func TestFingerprint_StableAcrossCompiles(t *testing.T) {
	a, err := Compile(reflect.TypeOf(person{}), Options{})
	require.NoError(t, err)
	b, err := Compile(reflect.TypeOf(person{}), Options{})
	require.NoError(t, err)

	fa, err := FingerprintNode(a)
	require.NoError(t, err)
	fb, err := FingerprintNode(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestFingerprint_FieldOrderSensitive(t *testing.T) {
	// Same fields, different declaration order. Data would round-trip
	// identically, but these are different schemas on purpose.
	type ab struct {
		A string
		B int
	}
	type ba struct {
		B int
		A string
	}

	na, err := Compile(reflect.TypeOf(ab{}), Options{})
	require.NoError(t, err)
	nb, err := Compile(reflect.TypeOf(ba{}), Options{})
	require.NoError(t, err)

	// Strip the record name difference: rebuild with equal names.
	ra := na.(Record)
	rb := nb.(Record)
	ra.Name = "same"
	rb.Name = "same"

	fa, err := FingerprintNode(ra)
	require.NoError(t, err)
	fb, err := FingerprintNode(rb)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}

func TestFingerprint_AddedFieldChangesIt(t *testing.T) {
	type v1 struct {
		XX int
		YY int
	}
	type v2 struct {
		XX int
		YY int
		ZZ float64
	}

	n1, err := Compile(reflect.TypeOf(v1{}), Options{})
	require.NoError(t, err)
	n2, err := Compile(reflect.TypeOf(v2{}), Options{})
	require.NoError(t, err)

	f1, err := FingerprintNode(n1)
	require.NoError(t, err)
	f2, err := FingerprintNode(n2)
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}

func TestFingerprint_VariantOrderSensitive(t *testing.T) {
	ifaceT := reflect.TypeOf((*vehicle)(nil)).Elem()
	carT := reflect.TypeOf(car{})
	bikeT := reflect.TypeOf(bike{})

	n1, err := Compile(ifaceT, Options{Unions: map[reflect.Type][]reflect.Type{ifaceT: {carT, bikeT}}})
	require.NoError(t, err)
	n2, err := Compile(ifaceT, Options{Unions: map[reflect.Type][]reflect.Type{ifaceT: {bikeT, carT}}})
	require.NoError(t, err)

	f1, err := FingerprintNode(n1)
	require.NoError(t, err)
	f2, err := FingerprintNode(n2)
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}
