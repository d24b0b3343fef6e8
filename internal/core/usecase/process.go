package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/atlashist/archive-assistant/internal/core/domain"
	"github.com/atlashist/archive-assistant/internal/core/ports"
)

// ProcessDocumentUseCase turns an uploaded document into indexed passages:
// extract text, chunk, embed, and write both dense and sparse
// representations into the search index under the document's corpus.
type ProcessDocumentUseCase struct {
	repo      ports.DocumentRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	indexer   ports.PassageIndexer
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	indexer ports.PassageIndexer,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		indexer:   indexer,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	passageCount, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SetPassageCount(ctx, documentID, passageCount); err != nil {
		return fmt.Errorf("save passage count: %w", err)
	}
	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return 0, fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return 0, domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	vectors, err := uc.embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	passages := buildPassages(doc, chunks)
	if err := uc.indexer.IndexPassages(ctx, passages, vectors); err != nil {
		return 0, fmt.Errorf("index passages: %w", err)
	}
	return len(passages), nil
}

// buildPassages derives stable passage ids from the document id and chunk
// position, and stamps every passage with the document's corpus and
// archival metadata.
func buildPassages(doc *domain.Document, chunks []string) []domain.Passage {
	passages := make([]domain.Passage, 0, len(chunks))
	for i, chunk := range chunks {
		metadata := make(map[string]string, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		metadata["filename"] = doc.Filename
		metadata["chunk"] = fmt.Sprintf("%d", i)

		passages = append(passages, domain.Passage{
			ID:       fmt.Sprintf("%s:%04d", doc.ID, i),
			Text:     chunk,
			Corpus:   doc.Corpus,
			Metadata: metadata,
		})
	}
	return passages
}
