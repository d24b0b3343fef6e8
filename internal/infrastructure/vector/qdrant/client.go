// Package qdrant adapts a Qdrant collection as both candidate sources of the
// retrieval engine: dense cosine search over embedding vectors and sparse
// BM25-style search over hashed term frequencies. Both live in one
// collection as named vectors so a passage is indexed exactly once.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlashist/archive-assistant/internal/core/domain"
	"github.com/atlashist/archive-assistant/internal/infrastructure/resilience"
)

const (
	denseVectorName  = "dense"
	sparseVectorName = "lexical"
)

type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

type Option func(*Client)

func WithResilienceExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(baseURL, collection string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IndexPassages upserts passages with their dense vector and a sparse
// lexical vector derived from the passage text.
func (c *Client) IndexPassages(ctx context.Context, passages []domain.Passage, vectors [][]float32) error {
	if len(passages) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(passages) != len(vectors) {
		return fmt.Errorf("passages/vectors mismatch: %d/%d", len(passages), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  map[string]any `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(passages))
	for i, p := range passages {
		points = append(points, point{
			ID: uuid.NewString(),
			Vector: map[string]any{
				denseVectorName:  vectors[i],
				sparseVectorName: encodeSparseDocument(p.Text),
			},
			Payload: map[string]any{
				"passage_id": p.ID,
				"corpus":     p.Corpus,
				"text":       p.Text,
				"metadata":   p.Metadata,
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	return c.do(ctx, "qdrant.upsert", http.MethodPut, path, map[string]any{"points": points}, nil)
}

// SearchDense returns rank-ordered semantic hits for the query vector,
// scoped to one corpus.
func (c *Client) SearchDense(ctx context.Context, queryVector []float32, corpus string, limit int) ([]domain.SourceHit, error) {
	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   denseVectorName,
			"vector": queryVector,
		},
		"limit":        limit,
		"with_payload": true,
	}
	if filter := corpusFilter(corpus); filter != nil {
		reqBody["filter"] = filter
	}
	return c.search(ctx, "qdrant.search_dense", reqBody)
}

// SearchLexical returns rank-ordered term-frequency hits for the query text,
// scoped to one corpus. Scores come from the sparse dot product and are not
// comparable to dense scores.
func (c *Client) SearchLexical(ctx context.Context, queryText string, corpus string, limit int) ([]domain.SourceHit, error) {
	sparse := encodeSparseQuery(queryText)
	if len(sparse.Indices) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"vector": map[string]any{
			"name":   sparseVectorName,
			"vector": sparse,
		},
		"limit":        limit,
		"with_payload": true,
	}
	if filter := corpusFilter(corpus); filter != nil {
		reqBody["filter"] = filter
	}
	return c.search(ctx, "qdrant.search_lexical", reqBody)
}

func (c *Client) search(ctx context.Context, operation string, reqBody map[string]any) ([]domain.SourceHit, error) {
	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	path := fmt.Sprintf("/collections/%s/points/search", c.collection)
	if err := c.do(ctx, operation, http.MethodPost, path, reqBody, &searchResp); err != nil {
		return nil, err
	}

	hits := make([]domain.SourceHit, 0, len(searchResp.Result))
	for i, r := range searchResp.Result {
		hits = append(hits, domain.SourceHit{
			Passage: passageFromPayload(r.Payload),
			Rank:    i + 1,
			Score:   r.Score,
		})
	}
	return hits, nil
}

func corpusFilter(corpus string) map[string]any {
	if corpus == "" {
		return nil
	}
	return map[string]any{
		"must": []map[string]any{
			{
				"key": "corpus",
				"match": map[string]any{
					"value": corpus,
				},
			},
		},
	}
}

func passageFromPayload(payload map[string]any) domain.Passage {
	p := domain.Passage{
		ID:     getStringPayload(payload, "passage_id"),
		Text:   getStringPayload(payload, "text"),
		Corpus: getStringPayload(payload, "corpus"),
	}
	if raw, ok := payload["metadata"].(map[string]any); ok {
		metadata := make(map[string]string, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok {
				metadata[k] = s
			} else {
				metadata[k] = fmt.Sprintf("%v", v)
			}
		}
		p.Metadata = metadata
	}
	return p
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			denseVectorName: map[string]any{
				"size":     vectorSize,
				"distance": "Cosine",
			},
		},
		"sparse_vectors": map[string]any{
			sparseVectorName: map[string]any{},
		},
	}

	path := fmt.Sprintf("/collections/%s", c.collection)
	err := c.do(ctx, "qdrant.ensure_collection", http.MethodPut, path, reqBody, nil)
	if err != nil {
		var statusErr *HTTPStatusError
		// 409 means the collection already exists.
		if asStatusError(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			c.markCollectionEnsured(vectorSize)
			return nil
		}
		return err
	}
	c.markCollectionEnsured(vectorSize)
	return nil
}

func (c *Client) markCollectionEnsured(vectorSize int) {
	c.ensureMu.Lock()
	defer c.ensureMu.Unlock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
}

// do issues one JSON request, optionally through the resilience executor.
func (c *Client) do(ctx context.Context, operation, method, path string, payload any, out any) error {
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, method, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyQdrantError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func (c *Client) postJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
