package relationship

import (
	apperrors "github.com/pmacom/fivethirtynews-relate/pkg/errors"
)

// keySeparator joins the two members of a canonical key. Content and tag IDs
// are opaque strings; the separator only needs to be stable, not reversible.
const keySeparator = "#"

// CanonicalPair is an unordered pair of IDs in canonical order: First is
// always <= Second under byte-wise comparison, so (A,B) and (B,A) map to the
// same pair and the same storage key.
type CanonicalPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

// Canonicalize sorts two IDs into a canonical pair. It is pure: same inputs,
// same output, regardless of argument order. Self-pairs are rejected because
// a self-loop would corrupt ranking.
func Canonicalize(a, b string) (CanonicalPair, error) {
	if a == "" || b == "" {
		return CanonicalPair{}, apperrors.NewInvalidArgumentError("both ids are required")
	}
	if a == b {
		return CanonicalPair{}, apperrors.NewInvalidArgumentError("ids must differ: self-referential pairs are not allowed")
	}
	if a > b {
		a, b = b, a
	}
	return CanonicalPair{First: a, Second: b}, nil
}

// Key returns the stable storage key for the pair.
func (p CanonicalPair) Key() string {
	return p.First + keySeparator + p.Second
}

// Contains reports whether id is one of the pair's members.
func (p CanonicalPair) Contains(id string) bool {
	return p.First == id || p.Second == id
}

// Other returns the member of the pair that is not id. Returns "" when id is
// not a member.
func (p CanonicalPair) Other(id string) string {
	switch id {
	case p.First:
		return p.Second
	case p.Second:
		return p.First
	default:
		return ""
	}
}
