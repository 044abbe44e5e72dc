// Package contacts selects which native contacts of a molecule survive into
// the assembled model.
package contacts

import (
	"fmt"
	"strings"

	"github.com/san-kum/cgsim/internal/config"
	"github.com/san-kum/cgsim/internal/structure"
)

// Predicate decides whether the native pair (i, j), i < j, is kept.
type Predicate func(i, j int) bool

// ResidueRange keeps pairs whose beads both lie in [lo, hi).
func ResidueRange(lo, hi int) Predicate {
	return func(i, j int) bool {
		return i >= lo && i < hi && j >= lo && j < hi
	}
}

func All() Predicate {
	return func(int, int) bool { return true }
}

func None() Predicate {
	return func(int, int) bool { return false }
}

// Any keeps a pair when at least one predicate keeps it.
func Any(preds ...Predicate) Predicate {
	return func(i, j int) bool {
		for _, p := range preds {
			if p(i, j) {
				return true
			}
		}
		return false
	}
}

// Both keeps a pair only when every predicate keeps it.
func Both(preds ...Predicate) Predicate {
	return func(i, j int) bool {
		for _, p := range preds {
			if !p(i, j) {
				return false
			}
		}
		return true
	}
}

// Filter returns a copy of mol keeping the native pairs accepted by pred,
// with exclusions recomputed. Rows keep every column. A filter that keeps
// nothing yields an empty table with the same schema.
func Filter(mol *structure.Molecule, pred Predicate) *structure.Molecule {
	return mol.FilterNativePairs(func(p structure.NativePair) bool {
		c := p.Pair().Canonical()
		return pred(c[0], c[1])
	})
}

// FromSpec builds the predicate described by a configured native filter.
// With several ranges a pair is kept when both beads share one of them.
func FromSpec(spec config.NativeFilter) (Predicate, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(spec.Keep) {
	case "", config.KeepAll:
		return All(), nil
	case config.KeepNone:
		return None(), nil
	case config.KeepRanges:
		preds := make([]Predicate, len(spec.Ranges))
		for i, r := range spec.Ranges {
			preds[i] = ResidueRange(r.Lo, r.Hi)
		}
		return Any(preds...), nil
	}
	return nil, fmt.Errorf("native filter: unknown mode %q", spec.Keep)
}

// Describe renders spec for logs and listings.
func Describe(spec config.NativeFilter) string {
	switch strings.ToLower(spec.Keep) {
	case "", config.KeepAll:
		return "all"
	case config.KeepNone:
		return "none"
	}
	parts := make([]string, len(spec.Ranges))
	for i, r := range spec.Ranges {
		parts[i] = fmt.Sprintf("[%d,%d)", r.Lo, r.Hi)
	}
	return strings.Join(parts, " ")
}
