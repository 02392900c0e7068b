package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultSerperEndpoint = "https://google.serper.dev/search"

// SerperClient queries the Serper Google search API.
type SerperClient struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

func NewSerperClient(apiKey string) *SerperClient {
	return &SerperClient{
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: DefaultSerperEndpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// WithEndpoint points the client at another base URL (tests, proxies).
func (c *SerperClient) WithEndpoint(endpoint string) *SerperClient {
	c.endpoint = endpoint
	return c
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

func (c *SerperClient) Search(ctx context.Context, query string, max int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("serper: api key is empty")
	}
	max = clampMax(max)
	body, err := json.Marshal(serperRequest{Q: query, Num: max})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	var out serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("serper: decode: %w", err)
	}
	results := make([]Result, 0, len(out.Organic))
	for _, item := range out.Organic {
		results = append(results, Result{Title: item.Title, URL: item.Link, Snippet: item.Snippet})
		if len(results) == max {
			break
		}
	}
	return results, nil
}
