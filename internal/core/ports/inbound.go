package ports

import (
	"context"
	"io"

	"github.com/atlashist/archive-assistant/internal/core/domain"
)

// PassageRetriever is the inbound contract of the hybrid retrieval engine:
// candidate fan-out, reciprocal rank fusion, and lexical reranking down to
// finalK results. boostFields names metadata fields the caller wants boosted
// when they match the query.
type PassageRetriever interface {
	Retrieve(ctx context.Context, queryText string, queryVector []float32, corpus string, finalK int, boostFields []string) ([]domain.RankedResult, error)
}

// QuestionService is the inbound contract for question answering and raw
// passage search over the archive.
type QuestionService interface {
	Answer(ctx context.Context, question, corpus string, limit int, boostFields []string) (*domain.Answer, error)
	Search(ctx context.Context, query, corpus string, limit int, boostFields []string) ([]domain.RankedResult, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, corpus string, metadata map[string]string, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}
