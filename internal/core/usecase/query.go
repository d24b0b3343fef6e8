package usecase

import (
	"context"
	"fmt"

	"github.com/atlashist/archive-assistant/internal/core/domain"
	"github.com/atlashist/archive-assistant/internal/core/ports"
)

// QueryUseCase answers questions over the archive: it embeds the question,
// runs hybrid retrieval, and hands the ranked passages to the generator.
type QueryUseCase struct {
	embedder     ports.Embedder
	retriever    ports.PassageRetriever
	generator    ports.AnswerGenerator
	defaultLimit int
}

// NewQueryUseCase builds the use case. defaultLimit is the result size used
// when the caller passes limit <= 0; non-positive values fall back to 8.
func NewQueryUseCase(
	embedder ports.Embedder,
	retriever ports.PassageRetriever,
	generator ports.AnswerGenerator,
	defaultLimit int,
) *QueryUseCase {
	if defaultLimit <= 0 {
		defaultLimit = 8
	}
	return &QueryUseCase{
		embedder:     embedder,
		retriever:    retriever,
		generator:    generator,
		defaultLimit: defaultLimit,
	}
}

func (uc *QueryUseCase) Answer(
	ctx context.Context,
	question, corpus string,
	limit int,
	boostFields []string,
) (*domain.Answer, error) {
	passages, err := uc.Search(ctx, question, corpus, limit, boostFields)
	if err != nil {
		return nil, err
	}

	answerText, err := uc.generator.GenerateAnswer(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	return &domain.Answer{
		Text:    answerText,
		Sources: passages,
	}, nil
}

// Search returns ranked passages without answer synthesis.
func (uc *QueryUseCase) Search(
	ctx context.Context,
	query, corpus string,
	limit int,
	boostFields []string,
) ([]domain.RankedResult, error) {
	if limit <= 0 {
		limit = uc.defaultLimit
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	passages, err := uc.retriever.Retrieve(ctx, query, queryVector, corpus, limit, boostFields)
	if err != nil {
		return nil, fmt.Errorf("retrieve passages: %w", err)
	}
	return passages, nil
}
