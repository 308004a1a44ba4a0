// Package catapi provides an HTTP client for the cat image provider.
package catapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/s0ngyang/catai/internal/domain"
)

// DefaultBaseURL is the public image provider endpoint.
const DefaultBaseURL = "https://api.thecatapi.com/v1"

// Client is an HTTP client for the image search API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new image provider client.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchImages calls GET /images/search with the requested limit and optional breed.
func (c *Client) FetchImages(ctx context.Context, count int, breed string) ([]domain.CatImage, error) {
	if count <= 0 {
		count = 1
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(count))
	if breed != "" {
		params.Set("breed_ids", breed)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/images/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cat images: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("image provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var images []domain.CatImage
	if err := json.NewDecoder(resp.Body).Decode(&images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	if len(images) > count {
		images = images[:count]
	}
	return images, nil
}
