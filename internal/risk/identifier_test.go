package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIdentifier(t *testing.T) {
	id := ClassifyIdentifier("EQAvlWFDxGF2lXm67y4yzC17wY79bbsE4QafajVgoVogeE7s")
	assert.Equal(t, IdentifierOnChainAddress, id.Kind)
	assert.True(t, id.OnChain())

	id = ClassifyIdentifier("UQBAS_ceXFAQ3EW3UAjWCK12345sE4QafajVgoVogeE7s")
	assert.True(t, id.OnChain())

	id = ClassifyIdentifier("bitcoin")
	assert.Equal(t, IdentifierCatalogID, id.Kind)
	assert.False(t, id.OnChain())

	// prefix match is case sensitive
	assert.False(t, ClassifyIdentifier("eqlowercase").OnChain())
	assert.False(t, ClassifyIdentifier("").OnChain())
}
