package usecase

import (
	"sort"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

const defaultRRFK = 60

// fuseCandidatesRRF merges the raw candidate pool into one deduplicated,
// score-ordered list using Reciprocal Rank Fusion. Every candidate with the
// same passage id contributes 1/(k + sourceRank) to a single fused entry.
// No score normalization is attempted: dense and sparse scores live on
// different scales and only the ranks matter here.
func fuseCandidatesRRF(pool []domain.Candidate, rrfK int) []domain.FusedResult {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}
	if len(pool) == 0 {
		return nil
	}

	acc := make(map[string]*domain.FusedResult, len(pool))
	for _, c := range pool {
		fused, ok := acc[c.Passage.ID]
		if !ok {
			fused = &domain.FusedResult{Passage: c.Passage}
			acc[c.Passage.ID] = fused
		} else if fused.Passage.Text == "" && c.Passage.Text != "" {
			fused.Passage = c.Passage
		}

		fused.RRFScore += 1.0 / float64(rrfK+c.SourceRank)
		switch c.Source {
		case domain.SourceDense:
			fused.FromDense = true
		case domain.SourceSparse:
			fused.FromSparse = true
		}
	}

	out := make([]domain.FusedResult, 0, len(acc))
	for _, fused := range acc {
		out = append(out, *fused)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return fusedLess(out[i], out[j])
	})
	return out
}

// fusedLess orders by descending RRF score; exact ties prefer passages seen
// by both sources, then fall back to ascending passage id so identical
// inputs always produce identical output.
func fusedLess(a, b domain.FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	aBoth := a.FromDense && a.FromSparse
	bBoth := b.FromDense && b.FromSparse
	if aBoth != bBoth {
		return aBoth
	}
	return a.Passage.ID < b.Passage.ID
}
