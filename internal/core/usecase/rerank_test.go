package usecase

import (
	"math"
	"testing"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

func fusedResult(id, text string, rrf float64) domain.FusedResult {
	return domain.FusedResult{
		Passage:  domain.Passage{ID: id, Text: text, Corpus: "a"},
		RRFScore: rrf,
	}
}

func TestRerankLexical_ExactPhraseBonus(t *testing.T) {
	fused := []domain.FusedResult{
		fusedResult("miss", "nothing relevant here", 0.5),
		fusedResult("hit", "the coal miners strike lasted a month", 0.4),
	}

	ranked := rerankLexical("coal miners strike", fused, 10, nil, DefaultRerankWeights())

	if ranked[0].Passage.ID != "hit" {
		t.Fatalf("expected exact-phrase passage to rank first, got %q", ranked[0].Passage.ID)
	}
	if ranked[0].LexicalScore <= ranked[1].LexicalScore {
		t.Fatalf("expected lexical score gap, got %v vs %v", ranked[0].LexicalScore, ranked[1].LexicalScore)
	}
}

func TestRerankLexical_KeywordFrequencyIsDistinctTermFraction(t *testing.T) {
	w := RerankWeights{KeywordFrequency: 1.0} // isolate one component
	fused := []domain.FusedResult{
		fusedResult("p1", "wool exports exports exports", 0.1),
	}

	ranked := rerankLexical("wool tariff", fused, 10, nil, w)

	// one of two distinct query terms present, repetition does not inflate
	if math.Abs(ranked[0].LexicalScore-0.5) > 1e-12 {
		t.Fatalf("keyword frequency score = %v, want 0.5", ranked[0].LexicalScore)
	}
}

func TestRerankLexical_ProximityRewardsAdjacentTerms(t *testing.T) {
	w := RerankWeights{KeywordProximity: 1.0}
	fused := []domain.FusedResult{
		fusedResult("near", "the gold rush began", 0.1),
		fusedResult("far", "gold was found and then much later a rush followed", 0.1),
	}

	ranked := rerankLexical("gold rush", fused, 10, nil, w)

	var near, far float64
	for _, r := range ranked {
		switch r.Passage.ID {
		case "near":
			near = r.LexicalScore
		case "far":
			far = r.LexicalScore
		}
	}
	if near <= far {
		t.Fatalf("adjacent terms should score higher: near=%v far=%v", near, far)
	}
}

func TestRerankLexical_ProximityNeedsTwoDistinctTerms(t *testing.T) {
	w := RerankWeights{KeywordProximity: 1.0}
	fused := []domain.FusedResult{
		fusedResult("p1", "federation federation federation", 0.1),
	}

	ranked := rerankLexical("federation debate", fused, 10, nil, w)

	if ranked[0].LexicalScore != 0 {
		t.Fatalf("single matched term must not earn proximity, got %v", ranked[0].LexicalScore)
	}
}

func TestRerankLexical_MetadataBoostPerMatchedField(t *testing.T) {
	w := RerankWeights{MetadataBoost: 0.5}
	passage := domain.Passage{
		ID:     "p1",
		Text:   "unrelated body",
		Corpus: "a",
		Metadata: map[string]string{
			"speaker": "Alfred Deakin",
			"title":   "Deakin on defence",
			"year":    "1905",
		},
	}
	fused := []domain.FusedResult{{Passage: passage, RRFScore: 0.1}}

	ranked := rerankLexical("deakin", fused, 10, []string{"speaker", "title", "year"}, w)

	// speaker and title both contain the term, year does not
	if math.Abs(ranked[0].LexicalScore-1.0) > 1e-12 {
		t.Fatalf("metadata boost = %v, want 1.0", ranked[0].LexicalScore)
	}
}

func TestRerankLexical_MetadataBoostIgnoresUnlistedFields(t *testing.T) {
	w := RerankWeights{MetadataBoost: 0.5}
	passage := domain.Passage{
		ID:       "p1",
		Text:     "unrelated body",
		Corpus:   "a",
		Metadata: map[string]string{"speaker": "Alfred Deakin"},
	}
	fused := []domain.FusedResult{{Passage: passage, RRFScore: 0.1}}

	ranked := rerankLexical("deakin", fused, 10, nil, w)

	if ranked[0].LexicalScore != 0 {
		t.Fatalf("no boost fields requested, score = %v, want 0", ranked[0].LexicalScore)
	}
}

func TestRerankLexical_TruncatesToFinalK(t *testing.T) {
	fused := []domain.FusedResult{
		fusedResult("p1", "x", 0.3),
		fusedResult("p2", "x", 0.2),
		fusedResult("p3", "x", 0.1),
	}

	for _, tc := range []struct {
		finalK int
		want   int
	}{
		{finalK: 0, want: 0},
		{finalK: 2, want: 2},
		{finalK: 3, want: 3},
		{finalK: 10, want: 3},
	} {
		ranked := rerankLexical("query", fused, tc.finalK, nil, DefaultRerankWeights())
		if len(ranked) != tc.want {
			t.Fatalf("finalK=%d: got %d results, want %d", tc.finalK, len(ranked), tc.want)
		}
	}
}

func TestRerankLexical_EmptyInput(t *testing.T) {
	ranked := rerankLexical("query", nil, 5, nil, DefaultRerankWeights())
	if ranked == nil || len(ranked) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", ranked)
	}
}

func TestRerankLexical_SemanticAnchorPreservesFusedOrderWithoutLexicalSignal(t *testing.T) {
	fused := []domain.FusedResult{
		fusedResult("first", "zzz", 0.9),
		fusedResult("second", "zzz", 0.5),
		fusedResult("third", "zzz", 0.1),
	}

	ranked := rerankLexical("unmatched query terms", fused, 10, nil, DefaultRerankWeights())

	wantOrder := []string{"first", "second", "third"}
	for i, want := range wantOrder {
		if ranked[i].Passage.ID != want {
			t.Fatalf("position %d = %q, want %q", i, ranked[i].Passage.ID, want)
		}
	}
	if math.Abs(ranked[0].FinalScore-1.0) > 1e-12 {
		t.Fatalf("fused rank 1 final score = %v, want 1.0", ranked[0].FinalScore)
	}
}

func TestRerankLexical_LexicalSignalCanOvertakeFusedOrder(t *testing.T) {
	fused := []domain.FusedResult{
		fusedResult("semantic", "nothing in common", 0.9),
		fusedResult("lexical", "the exact phrase match lives here", 0.8),
	}

	ranked := rerankLexical("exact phrase match", fused, 10, nil, DefaultRerankWeights())

	if ranked[0].Passage.ID != "lexical" {
		t.Fatalf("expected strong lexical match to overtake, got %q first", ranked[0].Passage.ID)
	}
}
