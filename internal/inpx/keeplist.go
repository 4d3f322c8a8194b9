package inpx

import (
	"fmt"
	"slices"

	"github.com/woozymasta/pathrules"
)

// KeepList is a compiled set of include globs. An entry survives pruning
// when its name matches at least one pattern; everything else is removed.
type KeepList struct {
	matcher  *pathrules.Matcher
	patterns []string
}

// NewKeepList compiles the given glob patterns into a keep list.
// Empty patterns are dropped; at least one non-empty pattern is required.
func NewKeepList(patterns ...string) (*KeepList, error) {
	rules := make([]pathrules.Rule, 0, len(patterns))
	kept := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}

		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: pattern,
		})
		kept = append(kept, pattern)
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no non-empty patterns", ErrInvalidKeepPattern)
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: compile: %w", ErrInvalidKeepPattern, err)
	}

	return &KeepList{matcher: matcher, patterns: kept}, nil
}

// Keep reports whether an entry with the given name survives pruning.
func (k *KeepList) Keep(name string) bool {
	if k == nil || k.matcher == nil {
		return false
	}

	return k.matcher.Included(name, false)
}

// Patterns returns the compiled patterns in input order.
func (k *KeepList) Patterns() []string {
	return slices.Clone(k.patterns)
}
