package risk

import "strings"

// IdentifierKind distinguishes the two shapes a token_id can take
type IdentifierKind int

const (
	// IdentifierCatalogID is an opaque catalog identifier, e.g. "bitcoin"
	IdentifierCatalogID IdentifierKind = iota
	// IdentifierOnChainAddress is a TON-style contract address
	IdentifierOnChainAddress
)

// Identifier is a classified token_id. The on-chain holder probe is only
// dispatched for address-shaped identifiers; catalog identifiers fall back
// to the neutral contract-safety score.
type Identifier struct {
	Raw  string
	Kind IdentifierKind
}

// ClassifyIdentifier tags a raw token_id by shape. User-friendly TON
// addresses are base64url with an "EQ" (bounceable) or "UQ" (non-bounceable)
// flag prefix.
func ClassifyIdentifier(raw string) Identifier {
	if strings.HasPrefix(raw, "EQ") || strings.HasPrefix(raw, "UQ") {
		return Identifier{Raw: raw, Kind: IdentifierOnChainAddress}
	}
	return Identifier{Raw: raw, Kind: IdentifierCatalogID}
}

// OnChain reports whether the identifier is an on-chain contract address
func (id Identifier) OnChain() bool {
	return id.Kind == IdentifierOnChainAddress
}
