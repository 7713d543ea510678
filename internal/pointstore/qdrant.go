package pointstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// errStatusNotFound marks a 404 from the server.
var errStatusNotFound = errors.New("qdrant: not found")

// QdrantStore talks to a Qdrant server over its REST API. Collections use cosine distance.
type QdrantStore struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewQdrantStore returns a client for the server at baseURL.
func NewQdrantStore(baseURL, apiKey string, timeout time.Duration) *QdrantStore {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &QdrantStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (q *QdrantStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	_, err := q.do(ctx, http.MethodGet, collectionPath(name), nil)
	if errors.Is(err, errStatusNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (q *QdrantStore) CreateCollection(ctx context.Context, name string, dim int) error {
	req := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	_, err := q.do(ctx, http.MethodPut, collectionPath(name), req)
	return err
}

func (q *QdrantStore) Upsert(ctx context.Context, collection string, p *Point) error {
	if len(p.Vector) == 0 {
		return fmt.Errorf("%w: %s", ErrVectorRequired, p.ID)
	}
	req := map[string]any{
		"points": []map[string]any{{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}},
	}
	_, err := q.do(ctx, http.MethodPut, collectionPath(collection)+"/points?wait=true", req)
	return q.collectionErr(collection, err)
}

func (q *QdrantStore) Retrieve(ctx context.Context, collection, id string) (*Point, error) {
	data, err := q.do(ctx, http.MethodGet, collectionPath(collection)+"/points/"+url.PathEscape(id), nil)
	if errors.Is(err, errStatusNotFound) {
		// A missing collection and a missing point both answer 404.
		exists, existsErr := q.CollectionExists(ctx, collection)
		if existsErr != nil {
			return nil, existsErr
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Result *qdrantPoint `json:"result"`
	}
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode point: %w", err)
	}
	if parsed.Result == nil {
		return nil, nil
	}
	return parsed.Result.point(), nil
}

func (q *QdrantStore) SetPayloadOnly(ctx context.Context, collection, id string, payload Payload) error {
	req := map[string]any{
		"payload": payload,
		"points":  []string{id},
	}
	_, err := q.do(ctx, http.MethodPut, collectionPath(collection)+"/points/payload?wait=true", req)
	return q.collectionErr(collection, err)
}

func (q *QdrantStore) Search(ctx context.Context, collection string, query []float32, k int) ([]ScoredPoint, error) {
	if k <= 0 {
		return []ScoredPoint{}, nil
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
		"with_vector":  true,
	}
	data, err := q.do(ctx, http.MethodPost, collectionPath(collection)+"/points/search", req)
	if err != nil {
		return nil, q.collectionErr(collection, err)
	}
	var parsed struct {
		Result []struct {
			qdrantPoint
			Score float64 `json:"score"`
		} `json:"result"`
	}
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode search result: %w", err)
	}
	out := make([]ScoredPoint, 0, len(parsed.Result))
	for _, r := range parsed.Result {
		out = append(out, ScoredPoint{Point: *r.point(), Score: r.Score})
	}
	return out, nil
}

// Close releases idle connections.
func (q *QdrantStore) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

type qdrantPoint struct {
	ID      any       `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

func (p *qdrantPoint) point() *Point {
	return &Point{ID: fmt.Sprintf("%v", p.ID), Vector: p.Vector, Payload: p.Payload}
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func (q *QdrantStore) collectionErr(collection string, err error) error {
	if errors.Is(err, errStatusNotFound) {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	return err
}

func (q *QdrantStore) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var buf io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return nil, err
		}
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s %s", errStatusNotFound, method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
