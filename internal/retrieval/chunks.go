package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Chunk is one scored passage returned by the similarity-search collaborator.
type Chunk struct {
	FileID   string  `json:"file_id"`
	FileName string  `json:"file_name"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// ChunkSearcher is the narrow interface to the external vector-similarity
// service. Implementations return (nil, err) when the service is unreachable
// and (empty, nil) when nothing matched; the orchestrator treats both as a
// signal to fall back to full extraction.
type ChunkSearcher interface {
	Search(ctx context.Context, query string, fileIDs []string, topK int) ([]Chunk, error)
}

// HTTPChunkSearcher talks to the similarity-search service over JSON.
type HTTPChunkSearcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPChunkSearcher(baseURL, apiKey string) *HTTPChunkSearcher {
	return &HTTPChunkSearcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (s *HTTPChunkSearcher) Search(ctx context.Context, query string, fileIDs []string, topK int) ([]Chunk, error) {
	payload, err := json.Marshal(map[string]any{
		"query":    query,
		"file_ids": fileIDs,
		"top_k":    topK,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/v1/chunks/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("chunk search: %s", resp.Status)
	}
	var raw struct {
		Chunks []Chunk `json:"chunks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw.Chunks, nil
}
