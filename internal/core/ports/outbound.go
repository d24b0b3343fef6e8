package ports

import (
	"context"
	"io"
	"time"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

// DenseSearcher performs semantic vector search against the ANN index.
// Hits come back already rank-ordered by the backend; an error is
// distinguishable from zero hits.
type DenseSearcher interface {
	SearchDense(ctx context.Context, queryVector []float32, corpus string, limit int) ([]domain.SourceHit, error)
}

// LexicalSearcher performs term-frequency search against the lexical index,
// with the same rank-ordering contract as DenseSearcher.
type LexicalSearcher interface {
	SearchLexical(ctx context.Context, queryText string, corpus string, limit int) ([]domain.SourceHit, error)
}

// CorpusRegistry is the read-only set of corpora known to this deployment,
// loaded once at startup.
type CorpusRegistry interface {
	List() []string
	Contains(id string) bool
	Describe(id string) (domain.CorpusInfo, bool)
}

// RetrievalObserver receives retrieval pipeline telemetry. Implementations
// must be safe for concurrent use.
type RetrievalObserver interface {
	ObserveSourceCall(corpus string, source domain.SourceKind, err error, duration time.Duration)
	ObservePool(candidates, fused, returned int)
}

// PassageIndexer writes passages with their dense vectors (and whatever
// lexical representation the backend derives) into the search index.
type PassageIndexer interface {
	IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error
}

// Embedder builds vectors for passages and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits extracted text into passage-sized chunks.
type Chunker interface {
	Split(text string) []string
}

// AnswerGenerator creates the final user-facing answer from passages.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, passages []domain.RankedResult) (string, error)
}

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SetPassageCount(ctx context.Context, id string, passages int) error
}

// ObjectStorage stores the raw uploaded documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}
