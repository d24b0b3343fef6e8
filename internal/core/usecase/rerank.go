package usecase

import (
	"sort"
	"strings"
	"unicode"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

// RerankWeights are the lexical rerank knobs. All of them are configuration,
// not constants; DefaultRerankWeights documents the defaults.
type RerankWeights struct {
	ExactPhrase      float64
	KeywordFrequency float64
	KeywordProximity float64
	MetadataBoost    float64

	// SemanticAnchor scales the reciprocal of the fused rank before the
	// lexical score is added, so lexical signal perturbs the semantic
	// ordering without overriding it wholesale.
	SemanticAnchor float64
}

func DefaultRerankWeights() RerankWeights {
	return RerankWeights{
		ExactPhrase:      0.5,
		KeywordFrequency: 0.3,
		KeywordProximity: 0.2,
		MetadataBoost:    0.5,
		SemanticAnchor:   1.0,
	}
}

// rerankLexical recomputes a lexical score for every fused result, combines
// it with the fused rank into a final score, re-sorts with the fusion
// tie-break rule, and truncates to finalK. finalK < 0 is the caller's bug and
// is rejected upstream; finalK == 0 legitimately yields an empty list. Pure
// function, no I/O.
func rerankLexical(query string, fused []domain.FusedResult, finalK int, boostFields []string, w RerankWeights) []domain.RankedResult {
	if len(fused) == 0 || finalK == 0 {
		return []domain.RankedResult{}
	}

	queryTokens := tokenizeLower(query)
	queryPhrase := strings.ToLower(strings.TrimSpace(query))

	ranked := make([]domain.RankedResult, len(fused))
	for i, f := range fused {
		lexical := lexicalScore(queryPhrase, queryTokens, f.Passage, boostFields, w)
		ranked[i] = domain.RankedResult{
			Passage:      f.Passage,
			RRFScore:     f.RRFScore,
			LexicalScore: lexical,
			FinalScore:   w.SemanticAnchor*(1.0/float64(i+1)) + lexical,
			FromDense:    f.FromDense,
			FromSparse:   f.FromSparse,
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		iBoth := ranked[i].FromDense && ranked[i].FromSparse
		jBoth := ranked[j].FromDense && ranked[j].FromSparse
		if iBoth != jBoth {
			return iBoth
		}
		return ranked[i].Passage.ID < ranked[j].Passage.ID
	})

	if finalK > 0 && finalK < len(ranked) {
		ranked = ranked[:finalK]
	}
	return ranked
}

func lexicalScore(queryPhrase string, queryTokens []string, p domain.Passage, boostFields []string, w RerankWeights) float64 {
	textLower := strings.ToLower(p.Text)

	score := 0.0
	if queryPhrase != "" && strings.Contains(textLower, queryPhrase) {
		score += w.ExactPhrase
	}
	score += w.KeywordFrequency * keywordFrequency(queryTokens, textLower)
	score += w.KeywordProximity * keywordProximity(queryTokens, textLower)

	for _, field := range boostFields {
		if metadataFieldMatches(queryTokens, p.Metadata[field]) {
			score += w.MetadataBoost
		}
	}
	return score
}

// keywordFrequency is the fraction of distinct query terms present in the
// passage text.
func keywordFrequency(queryTokens []string, textLower string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	present := make(map[string]struct{}, len(queryTokens))
	passageTokens := tokenizeLower(textLower)
	passageSet := make(map[string]struct{}, len(passageTokens))
	for _, token := range passageTokens {
		passageSet[token] = struct{}{}
	}
	for _, token := range queryTokens {
		if _, ok := passageSet[token]; ok {
			present[token] = struct{}{}
		}
	}

	distinct := make(map[string]struct{}, len(queryTokens))
	for _, token := range queryTokens {
		distinct[token] = struct{}{}
	}
	return float64(len(present)) / float64(len(distinct))
}

// keywordProximity is the inverse of the average token distance between
// consecutive query-term occurrences in the passage. It is zero unless at
// least two distinct query terms appear.
func keywordProximity(queryTokens []string, textLower string) float64 {
	if len(queryTokens) < 2 {
		return 0
	}
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, token := range queryTokens {
		querySet[token] = struct{}{}
	}

	var positions []int
	matchedTerms := make(map[string]struct{})
	for pos, token := range tokenizeLower(textLower) {
		if _, ok := querySet[token]; ok {
			positions = append(positions, pos)
			matchedTerms[token] = struct{}{}
		}
	}
	if len(matchedTerms) < 2 || len(positions) < 2 {
		return 0
	}

	totalGap := 0
	for i := 1; i < len(positions); i++ {
		totalGap += positions[i] - positions[i-1]
	}
	avgGap := float64(totalGap) / float64(len(positions)-1)
	if avgGap < 1 {
		avgGap = 1
	}
	return 1.0 / avgGap
}

func metadataFieldMatches(queryTokens []string, value string) bool {
	if value == "" {
		return false
	}
	valueLower := strings.ToLower(value)
	for _, token := range queryTokens {
		if strings.Contains(valueLower, token) {
			return true
		}
	}
	return false
}

func tokenizeLower(s string) []string {
	if s == "" {
		return nil
	}
	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
