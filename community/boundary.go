package community

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/stoich"
)

// DefaultExclusionPatterns lists id/name substrings that disqualify a
// boundary reaction from being treated as an exchange: demand, sink and
// macromolecule pseudo-reactions cross the boundary without touching the
// environment.
var DefaultExclusionPatterns = []string{
	"demand", "DM_", "sink", "SK_", "SN_",
	"biosynthesis", "transcription", "replication", "biomass",
}

// externalPattern recognizes compartment names conventionally used for the
// extracellular space.
var externalPattern = regexp.MustCompile(`(?i)^(e|e0|extracellular(| space)|external|environment|medium|outside)$`)

// FindExternalCompartment detects the external compartment of a network.
//
// Steps:
//  1. Tally the compartments touched by boundary reactions.
//  2. If exactly one compartment holds the majority, return it.
//  3. Break ties with the conventional external naming pattern.
//  4. With no boundary reactions at all, fall back to the single
//     conventionally named compartment, if any.
//
// This is a heuristic; models with unusual compartment naming should be
// normalized upstream. Complexity: O(reactions + compartments).
func FindExternalCompartment(n *stoich.Network) (string, error) {
	counts := make(map[string]int)
	for _, r := range n.Reactions() {
		if !r.Boundary() {
			continue
		}
		for mid := range r.Stoichiometry {
			if m := n.Metabolite(mid); m != nil {
				counts[m.Compartment]++
			}
		}
	}
	if len(counts) == 0 {
		for _, c := range n.Compartments() {
			if externalPattern.MatchString(c) {
				return c, nil
			}
		}

		return "", fmt.Errorf("network %q has no boundary reactions: %w", n.ID, ErrNoExternalCompartment)
	}

	best, bestCount, tied := "", -1, false
	for _, c := range sortedKeys(counts) {
		switch {
		case counts[c] > bestCount:
			best, bestCount, tied = c, counts[c], false
		case counts[c] == bestCount:
			tied = true
		}
	}
	if tied {
		for _, c := range sortedKeys(counts) {
			if counts[c] == bestCount && externalPattern.MatchString(c) {
				return c, nil
			}
		}

		return "", fmt.Errorf("network %q: ambiguous external compartment: %w", n.ID, ErrNoExternalCompartment)
	}

	return best, nil
}

// IsExchange reports whether r is a true exchange reaction of n: a boundary
// reaction whose single metabolite sits in the external compartment and
// whose id/name matches none of the exclusion patterns. When an id looks
// like an exchange ("EX_" prefix) but fails classification a warning is
// logged, since that usually signals a mislabeled compartment.
func IsExchange(n *stoich.Network, r *stoich.Reaction, external string, exclude []string) bool {
	ok := classify(n, r, external, exclude)
	if !ok && (strings.HasPrefix(r.ID, "EX_") || strings.HasPrefix(r.GlobalID, "EX_")) {
		logging.L().Warn().
			Str("network", n.ID).
			Str("reaction", r.ID).
			Msg("reaction looks like an exchange but failed classification")
	}

	return ok
}

func classify(n *stoich.Network, r *stoich.Reaction, external string, exclude []string) bool {
	if !r.Boundary() {
		return false
	}
	for _, pat := range exclude {
		lp := strings.ToLower(pat)
		if strings.Contains(strings.ToLower(r.ID), lp) || strings.Contains(strings.ToLower(r.Name), lp) {
			return false
		}
	}
	for mid := range r.Stoichiometry {
		m := n.Metabolite(mid)
		if m == nil || m.Compartment != external {
			return false
		}
	}

	return true
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)

	return out
}
