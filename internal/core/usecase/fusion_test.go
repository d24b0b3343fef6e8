package usecase

import (
	"math"
	"testing"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

func candidate(id string, rank int, source domain.SourceKind) domain.Candidate {
	return domain.Candidate{
		Passage:    domain.Passage{ID: id, Text: "text " + id, Corpus: "a"},
		SourceRank: rank,
		Source:     source,
	}
}

func TestFuseCandidatesRRF_DeduplicatesByPassageID(t *testing.T) {
	pool := []domain.Candidate{
		candidate("p1", 3, domain.SourceDense),
		candidate("p1", 7, domain.SourceSparse),
	}

	fused := fuseCandidatesRRF(pool, 60)

	if len(fused) != 1 {
		t.Fatalf("expected 1 fused result, got %d", len(fused))
	}
	want := 1.0/63.0 + 1.0/67.0
	if math.Abs(fused[0].RRFScore-want) > 1e-12 {
		t.Fatalf("rrf score = %v, want %v", fused[0].RRFScore, want)
	}
	if !fused[0].FromDense || !fused[0].FromSparse {
		t.Fatalf("expected both source flags set, got dense=%v sparse=%v", fused[0].FromDense, fused[0].FromSparse)
	}
}

func TestFuseCandidatesRRF_OrdersByScoreDescending(t *testing.T) {
	pool := []domain.Candidate{
		candidate("low", 10, domain.SourceDense),
		candidate("high", 1, domain.SourceDense),
		candidate("mid", 4, domain.SourceSparse),
	}

	fused := fuseCandidatesRRF(pool, 60)

	gotOrder := []string{fused[0].Passage.ID, fused[1].Passage.ID, fused[2].Passage.ID}
	wantOrder := []string{"high", "mid", "low"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestFuseCandidatesRRF_TieBreakPrefersBothSources(t *testing.T) {
	// "zz" and "aa" tie on score, but "zz" was seen by both sources and
	// must win despite its larger id.
	pool := []domain.Candidate{
		candidate("aa", 2, domain.SourceDense),
		candidate("aa", 2, domain.SourceDense),
		candidate("zz", 2, domain.SourceDense),
		candidate("zz", 2, domain.SourceSparse),
	}

	fused := fuseCandidatesRRF(pool, 60)

	if len(fused) != 2 {
		t.Fatalf("expected 2 fused results, got %d", len(fused))
	}
	if fused[0].Passage.ID != "zz" {
		t.Fatalf("expected both-source passage first, got %q", fused[0].Passage.ID)
	}
}

func TestFuseCandidatesRRF_TieBreakFallsBackToPassageID(t *testing.T) {
	pool := []domain.Candidate{
		candidate("beta", 5, domain.SourceDense),
		candidate("alpha", 5, domain.SourceDense),
	}

	fused := fuseCandidatesRRF(pool, 60)

	if fused[0].Passage.ID != "alpha" || fused[1].Passage.ID != "beta" {
		t.Fatalf("expected id-ascending tie-break, got [%s %s]", fused[0].Passage.ID, fused[1].Passage.ID)
	}
}

func TestFuseCandidatesRRF_EmptyPool(t *testing.T) {
	if fused := fuseCandidatesRRF(nil, 60); len(fused) != 0 {
		t.Fatalf("expected empty result for empty pool, got %d", len(fused))
	}
}

func TestFuseCandidatesRRF_NonPositiveKUsesDefault(t *testing.T) {
	pool := []domain.Candidate{candidate("p1", 1, domain.SourceDense)}

	fused := fuseCandidatesRRF(pool, 0)

	want := 1.0 / float64(defaultRRFK+1)
	if math.Abs(fused[0].RRFScore-want) > 1e-12 {
		t.Fatalf("rrf score = %v, want default-k score %v", fused[0].RRFScore, want)
	}
}

func TestFuseCandidatesRRF_KeepsRicherPassageText(t *testing.T) {
	pool := []domain.Candidate{
		{Passage: domain.Passage{ID: "p1", Corpus: "a"}, SourceRank: 1, Source: domain.SourceDense},
		{Passage: domain.Passage{ID: "p1", Text: "full text", Corpus: "a"}, SourceRank: 2, Source: domain.SourceSparse},
	}

	fused := fuseCandidatesRRF(pool, 60)

	if fused[0].Passage.Text != "full text" {
		t.Fatalf("expected non-empty passage text to survive fusion, got %q", fused[0].Passage.Text)
	}
}
