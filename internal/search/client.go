package search

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// ErrIndexNotFound is returned by Search when no index matches the
// requested names. Callers treat it as "no data for this window", not
// as a failure.
var ErrIndexNotFound = errors.New("no matching alert index")

// Gateway is the slice of the search engine the reader depends on.
type Gateway interface {
	// Search executes a query body against the given indices.
	Search(ctx context.Context, indices []string, body map[string]any) (*Result, error)
	// IndexExists reports whether any index matches the pattern.
	IndexExists(ctx context.Context, pattern string) (bool, error)
}

// Result is a search response reduced to what AlertDesk consumes.
type Result struct {
	Total        int64
	Hits         []Hit
	Aggregations map[string]json.RawMessage
}

// Hit is one raw document from the index.
type Hit struct {
	ID     string
	Source map[string]any
}

// ClientConfig configures the OpenSearch connection.
type ClientConfig struct {
	Addresses          []string
	Username           string
	Password           string
	InsecureSkipVerify bool // accept self-signed indexer certificates
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("at least one opensearch address is required")
	}
	return nil
}

// Client is the OpenSearch-backed Gateway implementation. It is
// constructed once at startup and injected into its consumers; there is
// no package-level connection.
type Client struct {
	os *opensearch.Client
}

// NewClient creates a new OpenSearch client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid opensearch config: %w", err)
	}

	osCfg := opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureSkipVerify {
		osCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return &Client{os: client}, nil
}

// Search executes a query body against the given indices.
func (c *Client) Search(ctx context.Context, indices []string, body map[string]any) (*Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: indices,
		Body:  bytes.NewReader(payload),
	}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, ErrIndexNotFound
	}
	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	result := &Result{
		Total:        parsed.Hits.Total.Value,
		Aggregations: parsed.Aggregations,
	}
	for _, h := range parsed.Hits.Hits {
		result.Hits = append(result.Hits, Hit{ID: h.ID, Source: h.Source})
	}
	return result, nil
}

// IndexExists reports whether any index matches the pattern.
func (c *Client) IndexExists(ctx context.Context, pattern string) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{Index: []string{pattern}}
	res, err := req.Do(ctx, c.os)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", pattern, err)
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check index %s: %s", pattern, res.Status())
	}
}

// searchResponse mirrors the engine's response envelope.
type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}
