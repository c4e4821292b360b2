// Package catalog looks up exercises in the remote exercise catalog.
// The sync core only consumes the Source interface; the HTTP client
// is the production implementation.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Item is one catalog entry.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ImageURL string   `json:"imageUrl"`
	Muscles  []string `json:"muscles"`
}

// Source answers exercise lookups.
type Source interface {
	Search(ctx context.Context, query string) ([]Item, error)
}

// HTTPSource queries the catalog service's REST API.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPSource satisfies Source.
var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a client for the catalog at baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Search returns catalog items matching the query.
func (s *HTTPSource) Search(ctx context.Context, query string) ([]Item, error) {
	u := s.baseURL + "/api/v1/exercises?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding catalog response: %w", err)
	}
	return items, nil
}

// StaticSource serves a fixed item list; used in tests and the
// simulator.
type StaticSource struct {
	Items []Item
}

// Search returns items whose name contains the query,
// case-insensitively. An empty query returns everything.
func (s *StaticSource) Search(_ context.Context, query string) ([]Item, error) {
	if query == "" {
		return s.Items, nil
	}
	q := strings.ToLower(query)
	var out []Item
	for _, it := range s.Items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out, nil
}
