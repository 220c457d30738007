package magicapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Search endpoints, relative to the session base URL.
const (
	searchPath = "/search"
	todoPath   = "/todo"
)

// SearchHit is one script-search result.
type SearchHit struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Line int    `json:"line"`
}

// SearchClient searches endpoint scripts on the backend.
type SearchClient struct {
	session *Session
}

// NewSearchClient creates the search collaborator.
func NewSearchClient(session *Session) *SearchClient {
	return &SearchClient{session: session}
}

// Search finds keyword occurrences across all endpoint scripts. limit > 0
// caps the returned hits client-side, matching the backend's unbounded
// response.
func (c *SearchClient) Search(ctx context.Context, keyword string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("magicapi: search keyword must not be empty")
	}

	form := url.Values{}
	form.Set("keyword", keyword)

	data, err := c.session.Call(ctx, Request{Method: http.MethodPost, Path: searchPath, Form: form})
	if err != nil {
		return nil, err
	}

	return decodeSearchHits(data, limit)
}

// Todos lists TODO comments across all endpoint scripts.
func (c *SearchClient) Todos(ctx context.Context, limit int) ([]SearchHit, error) {
	data, err := c.session.Call(ctx, Request{Method: http.MethodGet, Path: todoPath})
	if err != nil {
		return nil, err
	}

	return decodeSearchHits(data, limit)
}

func decodeSearchHits(data json.RawMessage, limit int) ([]SearchHit, error) {
	var hits []SearchHit
	if err := json.Unmarshal(data, &hits); err != nil {
		return nil, fmt.Errorf("%w: decoding search results: %v", ErrMalformedResponse, err)
	}

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}
