package domain

// SourceKind identifies which retrieval backend produced a candidate.
type SourceKind string

const (
	SourceDense  SourceKind = "dense"
	SourceSparse SourceKind = "sparse"
)

// CorpusAll selects every corpus known to the registry.
const CorpusAll = "all"

// CorpusInfo describes one registered corpus for API consumers.
type CorpusInfo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Passage is one retrievable chunk of archive text. Metadata carries
// open-ended fields (date, source URL, page, speaker) and travels through
// fusion and reranking untouched.
type Passage struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Corpus   string            `json:"corpus"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SourceHit is a single rank-ordered result from one retrieval backend.
// Rank is 1-based. Score stays on the backend's own scale and is never
// compared across backends.
type SourceHit struct {
	Passage Passage
	Rank    int
	Score   float64
}

// Candidate is a SourceHit tagged with the backend that produced it.
type Candidate struct {
	Passage     Passage
	SourceRank  int
	SourceScore float64
	Source      SourceKind
}

// FusedResult is one passage after reciprocal rank fusion of the candidate
// pool. RRFScore is the sum of 1/(k+rank) contributions across sources.
type FusedResult struct {
	Passage    Passage
	RRFScore   float64
	FromDense  bool
	FromSparse bool
}

// RankedResult is the final pipeline output: a fused passage plus the
// lexical rerank evidence. Scores order results only; they are not
// probabilities.
type RankedResult struct {
	Passage      Passage `json:"passage"`
	RRFScore     float64 `json:"rrf_score"`
	LexicalScore float64 `json:"lexical_score"`
	FinalScore   float64 `json:"final_score"`
	FromDense    bool    `json:"from_dense"`
	FromSparse   bool    `json:"from_sparse"`
}

// Answer is a synthesized response plus the passages it was grounded on.
type Answer struct {
	Text    string         `json:"text"`
	Sources []RankedResult `json:"sources"`
}
