package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/atlashist/archive-assistant/internal/core/domain"
	"github.com/atlashist/archive-assistant/internal/core/ports"
)

// RetrievalConfig carries every knob of the hybrid retrieval pipeline.
// Zero values fall back to the documented defaults via normalize.
type RetrievalConfig struct {
	// RRFK is the reciprocal-rank-fusion smoothing constant. Default 60.
	RRFK int
	// PerCorpusK is how many candidates each source returns when the query
	// is scoped to a single corpus. Default 30.
	PerCorpusK int
	// AllCorpusK is how many candidates each source returns per corpus when
	// the query spans all corpora. Intentionally smaller than PerCorpusK
	// since results multiply by corpus count. Default 10.
	AllCorpusK int
	// MaxConcurrent bounds the number of in-flight source calls. Default 8.
	MaxConcurrent int
	// SourceTimeout is the per-(corpus, source) call timeout. Default 10s.
	SourceTimeout time.Duration
	// QueryDeadline caps the whole fan-out; results gathered before the
	// deadline are used as-is. Default 30s.
	QueryDeadline time.Duration

	Weights RerankWeights
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		RRFK:          defaultRRFK,
		PerCorpusK:    30,
		AllCorpusK:    10,
		MaxConcurrent: 8,
		SourceTimeout: 10 * time.Second,
		QueryDeadline: 30 * time.Second,
		Weights:       DefaultRerankWeights(),
	}
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	def := DefaultRetrievalConfig()
	out := c
	if out.RRFK <= 0 {
		out.RRFK = def.RRFK
	}
	if out.PerCorpusK <= 0 {
		out.PerCorpusK = def.PerCorpusK
	}
	if out.AllCorpusK <= 0 {
		out.AllCorpusK = def.AllCorpusK
	}
	if out.MaxConcurrent <= 0 {
		out.MaxConcurrent = def.MaxConcurrent
	}
	if out.SourceTimeout <= 0 {
		out.SourceTimeout = def.SourceTimeout
	}
	if out.QueryDeadline <= 0 {
		out.QueryDeadline = def.QueryDeadline
	}
	zero := RerankWeights{}
	if out.Weights == zero {
		out.Weights = def.Weights
	}
	return out
}

// RetrieveUseCase orchestrates hybrid retrieval: balanced candidate fan-out
// across (corpus, source) pairs, reciprocal rank fusion, and lexical
// reranking down to the caller's finalK.
type RetrieveUseCase struct {
	dense    ports.DenseSearcher
	lexical  ports.LexicalSearcher
	registry ports.CorpusRegistry
	observer ports.RetrievalObserver
	cfg      RetrievalConfig
	pool     *ants.Pool
}

func NewRetrieveUseCase(
	dense ports.DenseSearcher,
	lexical ports.LexicalSearcher,
	registry ports.CorpusRegistry,
	observer ports.RetrievalObserver,
	cfg RetrievalConfig,
) (*RetrieveUseCase, error) {
	cfg = cfg.normalize()
	pool, err := ants.NewPool(cfg.MaxConcurrent)
	if err != nil {
		return nil, fmt.Errorf("create retrieval worker pool: %w", err)
	}
	return &RetrieveUseCase{
		dense:    dense,
		lexical:  lexical,
		registry: registry,
		observer: observer,
		cfg:      cfg,
		pool:     pool,
	}, nil
}

// Release frees the fan-out worker pool. The use case must not be used after.
func (uc *RetrieveUseCase) Release() {
	uc.pool.Release()
}

// sourceTask is one (corpus, source-kind) unit of fan-out work.
type sourceTask struct {
	corpus string
	source domain.SourceKind
}

// Retrieve runs the full pipeline for one query. Partial source failures are
// absorbed: a pool built from the surviving pairs is preferable to aborting.
// Only total source failure surfaces, as ErrRetrievalUnavailable, so callers
// can tell "nothing relevant" from "backend down".
func (uc *RetrieveUseCase) Retrieve(
	ctx context.Context,
	queryText string,
	queryVector []float32,
	corpus string,
	finalK int,
	boostFields []string,
) ([]domain.RankedResult, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query text"))
	}
	if len(queryVector) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query vector"))
	}
	if finalK < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", fmt.Errorf("negative finalK: %d", finalK))
	}

	corpora, perSourceK, err := uc.resolveScope(corpus)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.QueryDeadline)
	defer cancel()

	pool, failures, attempted := uc.gatherCandidates(ctx, queryText, queryVector, corpora, perSourceK)
	if attempted > 0 && failures == attempted {
		return nil, domain.WrapError(domain.ErrRetrievalUnavailable, "retrieve", fmt.Errorf("all %d source calls failed", attempted))
	}

	fused := fuseCandidatesRRF(pool, uc.cfg.RRFK)
	ranked := rerankLexical(queryText, fused, finalK, boostFields, uc.cfg.Weights)

	if uc.observer != nil {
		uc.observer.ObservePool(len(pool), len(fused), len(ranked))
	}
	return ranked, nil
}

// resolveScope maps the corpus filter to the list of corpora to query and
// the per-source candidate count. The "all" scope queries every registered
// corpus with the same fixed k, so a corpus ten times the size of another
// cannot dominate the candidate pool.
func (uc *RetrieveUseCase) resolveScope(corpus string) ([]string, int, error) {
	if corpus == "" || corpus == domain.CorpusAll {
		return uc.registry.List(), uc.cfg.AllCorpusK, nil
	}
	if !uc.registry.Contains(corpus) {
		return nil, 0, domain.WrapError(domain.ErrInvalidCorpus, "retrieve", fmt.Errorf("corpus %q not registered", corpus))
	}
	return []string{corpus}, uc.cfg.PerCorpusK, nil
}

// gatherCandidates fans one task per (corpus, source) pair out onto the
// bounded worker pool and assembles the raw candidate multiset. Duplicate
// passage ids across pairs are expected and left for fusion to resolve.
func (uc *RetrieveUseCase) gatherCandidates(
	ctx context.Context,
	queryText string,
	queryVector []float32,
	corpora []string,
	perSourceK int,
) (candidates []domain.Candidate, failures, attempted int) {
	tasks := make([]sourceTask, 0, 2*len(corpora))
	for _, corpus := range corpora {
		tasks = append(tasks,
			sourceTask{corpus: corpus, source: domain.SourceDense},
			sourceTask{corpus: corpus, source: domain.SourceSparse},
		)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed int
	)
	collect := func(task sourceTask) {
		defer wg.Done()

		callCtx, cancel := context.WithTimeout(ctx, uc.cfg.SourceTimeout)
		defer cancel()

		start := time.Now()
		hits, err := uc.searchOne(callCtx, task, queryText, queryVector, perSourceK)
		if uc.observer != nil {
			uc.observer.ObserveSourceCall(task.corpus, task.source, err, time.Since(start))
		}
		if err != nil {
			slog.Warn("retrieval_source_failed",
				"corpus", task.corpus,
				"source", string(task.source),
				"error", err,
			)
			mu.Lock()
			failed++
			mu.Unlock()
			return
		}

		batch := make([]domain.Candidate, 0, len(hits))
		for _, hit := range hits {
			// The source-side filter is authoritative, but a misconfigured
			// collection must not leak foreign corpora into the pool.
			if hit.Passage.Corpus != task.corpus {
				continue
			}
			batch = append(batch, domain.Candidate{
				Passage:     hit.Passage,
				SourceRank:  hit.Rank,
				SourceScore: hit.Score,
				Source:      task.source,
			})
		}
		mu.Lock()
		candidates = append(candidates, batch...)
		mu.Unlock()
	}

	for _, task := range tasks {
		task := task
		wg.Add(1)
		if err := uc.pool.Submit(func() { collect(task) }); err != nil {
			wg.Done()
			slog.Warn("retrieval_task_rejected", "corpus", task.corpus, "source", string(task.source), "error", err)
			mu.Lock()
			failed++
			mu.Unlock()
		}
	}
	wg.Wait()

	return candidates, failed, len(tasks)
}

func (uc *RetrieveUseCase) searchOne(
	ctx context.Context,
	task sourceTask,
	queryText string,
	queryVector []float32,
	limit int,
) ([]domain.SourceHit, error) {
	switch task.source {
	case domain.SourceDense:
		return uc.dense.SearchDense(ctx, queryVector, task.corpus, limit)
	case domain.SourceSparse:
		return uc.lexical.SearchLexical(ctx, queryText, task.corpus, limit)
	default:
		return nil, fmt.Errorf("unknown source kind: %s", task.source)
	}
}
