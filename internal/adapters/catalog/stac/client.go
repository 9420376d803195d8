package stac

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/sentinel-tiles-cli/internal/domain"
	"github.com/bnema/sentinel-tiles-cli/internal/ports"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxPageBytes    = 32 << 20
	maxPages        = 1000
	defaultTimeout  = 60 * time.Second
	searchPath      = "/search"
	geoJSONMimeType = "application/geo+json"
)

type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Logger            *zap.Logger
}

// Client queries a STAC API item search endpoint and follows next links until
// the result set is exhausted.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	limiter        *rate.Limiter
	logger         *zap.Logger
}

var _ ports.CatalogSearcher = (*Client)(nil)

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("catalog base url is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:        baseURL,
		httpClient:     client,
		requestTimeout: timeout,
		limiter:        rate.NewLimiter(limit, 1),
		logger:         logger,
	}, nil
}

func (c *Client) Search(ctx context.Context, query ports.SearchQuery) ([]domain.CatalogItem, error) {
	body, err := json.Marshal(toSearchRequest(query))
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	method, endpoint := http.MethodPost, c.baseURL+searchPath
	var items []domain.CatalogItem
	for page := 1; ; page++ {
		if page > maxPages {
			return nil, fmt.Errorf("search exceeded %d pages", maxPages)
		}

		collection, err := c.fetchPage(ctx, method, endpoint, body)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", page, err)
		}
		for _, feature := range collection.Features {
			items = append(items, toDomainItem(feature))
		}
		c.logger.Debug("catalog page fetched",
			zap.String("range", query.Range.String()),
			zap.Int("page", page),
			zap.Int("features", len(collection.Features)),
		)

		next, ok := nextLink(collection.Links)
		if !ok || len(collection.Features) == 0 {
			return items, nil
		}
		method, endpoint, body, err = followLink(next, body)
		if err != nil {
			return nil, err
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, method, endpoint string, body []byte) (itemCollection, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return itemCollection{}, err
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if method == http.MethodPost {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(requestCtx, method, endpoint, reader)
	if err != nil {
		return itemCollection{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", geoJSONMimeType)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return itemCollection{}, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return itemCollection{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var collection itemCollection
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPageBytes)).Decode(&collection); err != nil {
		return itemCollection{}, fmt.Errorf("decode item collection: %w", err)
	}

	return collection, nil
}

func classifyTransportError(err error) error {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("%w: %w", domain.ErrCatalogUnreachable, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %w", domain.ErrCatalogUnreachable, err)
	}

	return fmt.Errorf("perform request: %w", err)
}

func nextLink(links []link) (link, bool) {
	for _, l := range links {
		if l.Rel == "next" && l.Href != "" {
			return l, true
		}
	}
	return link{}, false
}

func followLink(next link, previous []byte) (string, string, []byte, error) {
	method := strings.ToUpper(next.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodPost {
		return http.MethodGet, next.Href, nil, nil
	}

	if len(next.Body) == 0 {
		return http.MethodPost, next.Href, previous, nil
	}
	if !next.Merge {
		return http.MethodPost, next.Href, next.Body, nil
	}

	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(previous, &merged); err != nil {
		return "", "", nil, fmt.Errorf("decode previous search body: %w", err)
	}
	overrides := map[string]json.RawMessage{}
	if err := json.Unmarshal(next.Body, &overrides); err != nil {
		return "", "", nil, fmt.Errorf("decode next link body: %w", err)
	}
	for key, value := range overrides {
		merged[key] = value
	}
	body, err := json.Marshal(merged)
	if err != nil {
		return "", "", nil, fmt.Errorf("encode merged search body: %w", err)
	}

	return http.MethodPost, next.Href, body, nil
}

func toSearchRequest(query ports.SearchQuery) searchRequest {
	filters := make(map[string]map[string]string, len(query.Filters))
	for property, value := range query.Filters {
		filters[property] = map[string]string{"eq": value}
	}

	return searchRequest{
		Collections: []string{query.Collection},
		BBox:        query.BBox[:],
		Datetime:    formatInterval(query.Range),
		Query:       filters,
		Limit:       query.Limit,
	}
}

// formatInterval expands the inclusive date range to a closed RFC 3339 interval
// covering the whole last day.
func formatInterval(r domain.DateRange) string {
	end := r.End.Add(24*time.Hour - time.Second)
	return r.Start.Format(time.RFC3339) + "/" + end.Format(time.RFC3339)
}

func toDomainItem(feature item) domain.CatalogItem {
	assets := make(map[domain.Band]domain.Asset, len(feature.Assets))
	for key, a := range feature.Assets {
		assets[domain.Band(strings.ToLower(key))] = domain.Asset{Href: a.Href, MediaType: a.Type}
	}

	return domain.CatalogItem{
		ID:         feature.ID,
		Collection: feature.Collection,
		Datetime:   feature.Properties.Datetime,
		Assets:     assets,
		Footprint:  feature.Geometry,
	}
}
