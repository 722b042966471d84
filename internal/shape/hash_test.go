package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencyKey_Deterministic(t *testing.T) {
	a := DependencyKey("src", 42, true)
	b := DependencyKey("src", 42, true)
	assert.Equal(t, a, b)
}

func TestDependencyKey_OrderMatters(t *testing.T) {
	assert.NotEqual(t, DependencyKey("a", "b"), DependencyKey("b", "a"))
}

func TestDependencyKey_SeparatorUnambiguous(t *testing.T) {
	// Length prefixing keeps different splits of the same bytes apart.
	assert.NotEqual(t, DependencyKey("ab", "c"), DependencyKey("a", "bc"))
	assert.NotEqual(t, DependencyKey("ab"), DependencyKey("a", "b"))
}

func TestDependencyKey_EmptyInputs(t *testing.T) {
	assert.NotEqual(t, DependencyKey(), DependencyKey(""))
	assert.Equal(t, DependencyKey(), DependencyKey())
}

func TestHashWithDomain_DomainSeparation(t *testing.T) {
	data := []byte("payload")
	assert.NotEqual(t, hashWithDomain(DomainSchema, data), hashWithDomain(DomainDepKey, data))
}

func TestFingerprint_HexEncoded(t *testing.T) {
	fp := hashWithDomain(DomainSchema, []byte("x"))
	assert.Len(t, string(fp), 64)
}
