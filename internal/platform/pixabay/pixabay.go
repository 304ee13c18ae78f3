// Package pixabay searches the Pixabay stock photo library.
package pixabay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/platform/logger"
	"github.com/miyog/miyog-engine/internal/redact"
)

// Search defaults.
const (
	DefaultBaseURL = "https://pixabay.com/api/"
	DefaultQuery   = "backgrounds"
	DefaultPerPage = 20
	minPerPage     = 3
	maxPerPage     = 200
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("pixabay api key is not configured")
	// ErrSearchFailed wraps failed searches.
	ErrSearchFailed = errors.New("pixabay search failed")
)

// Asset is one search hit in the shape the editor's asset browser expects.
type Asset struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Src   string `json:"src"`
	Thumb string `json:"thumb"`
}

type searchResponse struct {
	Total int `json:"total"`
	Hits  []struct {
		ID            int64  `json:"id"`
		PreviewURL    string `json:"previewURL"`
		WebformatURL  string `json:"webformatURL"`
		LargeImageURL string `json:"largeImageURL"`
	} `json:"hits"`
}

// Client queries the Pixabay API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	perPage    int
	logger     *slog.Logger
}

// NewClient creates a client from configuration. A missing key is allowed;
// searches then fail with ErrNotConfigured.
func NewClient(cfg config.PixabayConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	perPage := cfg.PerPage
	if perPage < minPerPage || perPage > maxPerPage {
		perPage = DefaultPerPage
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		apiKey:     cfg.APIKey,
		perPage:    perPage,
		logger:     logger.With(slog.String("component", "pixabay")),
	}
}

// Configured reports whether searches can be made.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Search returns horizontal photos for query. An empty query searches for
// backgrounds and pages start at 1.
func (c *Client) Search(ctx context.Context, query string, page int) ([]Asset, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", query)
	params.Set("image_type", "photo")
	params.Set("orientation", "horizontal")
	params.Set("per_page", strconv.Itoa(c.perPage))
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("pixabay request failed", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Warn("pixabay returned an error",
			slog.Int("status", resp.StatusCode),
			slog.String("query", query))
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearchFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrSearchFailed, err)
	}

	assets := make([]Asset, 0, len(out.Hits))
	for _, hit := range out.Hits {
		src := hit.LargeImageURL
		if src == "" {
			src = hit.WebformatURL
		}
		thumb := hit.WebformatURL
		if thumb == "" {
			thumb = hit.PreviewURL
		}
		assets = append(assets, Asset{
			ID:    strconv.FormatInt(hit.ID, 10),
			Type:  "image",
			Src:   src,
			Thumb: thumb,
		})
	}

	log.Debug("pixabay search complete", slog.String("query", query), slog.Int("hits", len(assets)))
	return assets, nil
}

// FirstImage returns the best match for query, or "" when nothing matched.
func (c *Client) FirstImage(ctx context.Context, query string) (string, error) {
	assets, err := c.Search(ctx, query, 1)
	if err != nil {
		return "", err
	}
	if len(assets) == 0 {
		return "", nil
	}
	return assets[0].Src, nil
}
