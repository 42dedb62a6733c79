// Package validator implements the engine's pure validation
// predicates (SPEC_FULL.md §4.2), each failing with the typed error
// kind spec.md §4.2 names. Every predicate is a plain function over a
// CatalogView so it can be unit tested without a running engine.
package validator

import (
	"strings"

	"github.com/Podcopic-Labs/simbase/internal/catalog"
	"github.com/Podcopic-Labs/simbase/internal/simerrors"
)

// CatalogView is the read-only slice of *catalog.Catalog the validator
// needs. The dispatcher satisfies this with its real catalog; tests can
// satisfy it with a fake.
type CatalogView interface {
	Kind(key string) (catalog.Kind, bool)
	BasisOf(key string) (string, bool)
	Exists(key string) bool
}

func ValidKeyFormat(op, k string) *simerrors.Error {
	if strings.Contains(k, "_") {
		return simerrors.New(simerrors.InvalidKeyFormat, op, "key %q must not contain '_'", k)
	}
	return nil
}

func Exists(op string, v CatalogView, k string) *simerrors.Error {
	if !v.Exists(k) {
		return simerrors.New(simerrors.UnknownEntry, op, "key %q does not exist", k)
	}
	return nil
}

func NotExists(op string, v CatalogView, k string) *simerrors.Error {
	if v.Exists(k) {
		return simerrors.New(simerrors.DuplicateEntry, op, "key %q already exists", k)
	}
	return nil
}

func KindIs(op string, v CatalogView, k string, expected catalog.Kind) *simerrors.Error {
	kind, ok := v.Kind(k)
	if !ok {
		return simerrors.New(simerrors.UnknownEntry, op, "key %q does not exist", k)
	}
	if kind != expected {
		return simerrors.New(simerrors.KindMismatch, op, "key %q has kind %s, want %s", k, kind, expected)
	}
	return nil
}

func ValidID(op string, id int) *simerrors.Error {
	if id < 1 {
		return simerrors.New(simerrors.InvalidID, op, "id %d must be >= 1", id)
	}
	return nil
}

func ValidProbs(op string, xs []float64) *simerrors.Error {
	for _, x := range xs {
		if x < 0 || x > 1 {
			return simerrors.New(simerrors.InvalidProbability, op, "value %v outside [0,1]", x)
		}
	}
	return nil
}

// ValidSparsePairs checks an alternating (index, weight) list against
// a basis's coordinate count: even length, each index in
// [0, dim), each weight >= 0. dim is the basis's coordinate count, the
// same width pairsToDense and the dense store use — an index must
// actually be representable in the dense vector to be valid here.
func ValidSparsePairs(op string, dim int, pairs []int) *simerrors.Error {
	if len(pairs)%2 != 0 {
		return simerrors.New(simerrors.InvalidSparsePair, op, "pair list has odd length %d", len(pairs))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		idx, weight := pairs[i], pairs[i+1]
		if idx < 0 || idx >= dim {
			return simerrors.New(simerrors.InvalidSparsePair, op, "index %d outside [0,%d)", idx, dim)
		}
		if weight < 0 {
			return simerrors.New(simerrors.InvalidSparsePair, op, "weight %d must be >= 0", weight)
		}
	}
	return nil
}

func SameBasis(op string, v CatalogView, src, tgt string) *simerrors.Error {
	sb, ok := v.BasisOf(src)
	if !ok {
		return simerrors.New(simerrors.UnknownEntry, op, "key %q does not exist", src)
	}
	tb, ok := v.BasisOf(tgt)
	if !ok {
		return simerrors.New(simerrors.UnknownEntry, op, "key %q does not exist", tgt)
	}
	if sb != tb {
		return simerrors.New(simerrors.BasisMismatch, op, "%q is in basis %q, %q is in basis %q", src, sb, tgt, tb)
	}
	return nil
}

func ValidDumpPath(op string, exists bool, path string) *simerrors.Error {
	if !exists {
		return simerrors.New(simerrors.DumpMissing, op, "dump file %q does not exist", path)
	}
	return nil
}
