package keyphrase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"
)

// Embedder turns texts into vectors for similarity scoring. Implementations
// must be safe for concurrent use; the extractor is shared across the enrich
// worker pool.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// embedBatchSize caps how many inputs go into one embeddings request.
const embedBatchSize = 64

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint. Construct it
// once per run; the vector model behind the endpoint is expensive to load and
// must be shared across all records.
type HTTPEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPEmbedder creates an embedder targeting an OpenAI-compatible API.
func NewHTTPEmbedder(baseURL, apiKey, model string, httpClient *http.Client) *HTTPEmbedder {
	return &HTTPEmbedder{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

// embeddingsRequest mirrors the OpenAI /embeddings request body.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingsResponse mirrors the relevant fields of the response.
type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed returns one vector per input text, batching large inputs into
// concurrent requests with bounded parallelism.
func (e *HTTPEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float64, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the endpoint.

	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		start := start
		chunk := texts[start:end]

		g.Go(func() error {
			vectors, err := e.embedChunk(gCtx, chunk)
			if err != nil {
				return err
			}
			copy(results[start:], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *HTTPEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embeddings response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings endpoint returned HTTP %d: %s", resp.StatusCode, string(respBytes))
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, fmt.Errorf("parse embeddings response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("embeddings error (%s): %s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d vectors for %d inputs", len(parsed.Data), len(texts))
	}

	vectors := make([][]float64, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embeddings response index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// hashDim is the vector size of the fallback embedder.
const hashDim = 256

// HashEmbedder is a deterministic in-process embedder: character-trigram
// counts hashed into a fixed-size vector. Texts sharing trigrams score
// similar. It is a stand-in for a real model when no embeddings endpoint is
// configured, and the fixture tests rank against.
type HashEmbedder struct{}

// NewHashEmbedder returns a HashEmbedder.
func NewHashEmbedder() *HashEmbedder {
	return &HashEmbedder{}
}

// Embed hashes character trigrams of each text into a fixed-size count vector.
func (HashEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, hashDim)
		runes := []rune(text)
		for j := 0; j+3 <= len(runes); j++ {
			h := fnv.New32a()
			h.Write([]byte(string(runes[j : j+3])))
			vec[h.Sum32()%hashDim]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}
