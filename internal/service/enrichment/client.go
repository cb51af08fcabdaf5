package enrichment

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"plantdoctor/internal/config"
	"plantdoctor/internal/logger"
	"plantdoctor/internal/model"
)

const (
	userAgent = "plantdoctor/1.0 (plant disease detection web app)"

	// DefaultResults is the number of search hits requested per query.
	DefaultResults = 3
	searchLimit    = 10
	maxBodyBytes   = 4 << 20
)

// Enricher is what the report builder needs from the outside world.
type Enricher interface {
	Describe(ctx context.Context, disease string) Result[string]
	Search(ctx context.Context, query string, maxResults int) Result[[]model.SearchResult]
}

// Client talks to the encyclopedia and the web search API.
type Client struct {
	http           *http.Client
	wikipediaURL   string
	searchURL      string
	apiKey         string
	searchEngineID string
	limiter        *rate.Limiter // nil means unlimited
	logger         *logger.Logger
}

// NewHTTPClient returns the outbound client shared by every external call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func New(cfg *config.Config, client *http.Client, logger *logger.Logger) *Client {
	if client == nil {
		client = NewHTTPClient(cfg.HTTPTimeout)
	}
	c := &Client{
		http:           client,
		wikipediaURL:   cfg.WikipediaURL,
		searchURL:      cfg.SearchAPIURL,
		apiKey:         cfg.GoogleAPIKey,
		searchEngineID: cfg.SearchEngineID,
		logger:         logger,
	}
	if cfg.SearchRate > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.SearchRate), 1)
	}
	return c
}

// get performs a GET and returns the status code and body.
func (c *Client) get(ctx context.Context, base string, params url.Values) (int, []byte, error) {
	u, err := url.Parse(base)
	if err != nil {
		return 0, nil, fmt.Errorf("parse url: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}
