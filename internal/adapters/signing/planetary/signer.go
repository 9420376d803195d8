package planetary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bnema/sentinel-tiles-cli/internal/ports"
)

const (
	maxTokenResponseBytes = 1 << 16
	tokenRefreshMargin    = 5 * time.Minute
	defaultRequestTimeout = 30 * time.Second
)

type tokenResponse struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"msft:expiry"`
}

type cachedToken struct {
	token  string
	expiry time.Time
}

// Signer appends Planetary Computer SAS tokens to asset hrefs. Tokens are
// requested once per collection and reused until close to expiry.
type Signer struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Now            func() time.Time

	mu     sync.Mutex
	tokens map[string]cachedToken
}

var _ ports.AssetSigner = (*Signer)(nil)

func NewSigner(baseURL string, client *http.Client) *Signer {
	return &Signer{BaseURL: baseURL, HTTPClient: client}
}

func (s *Signer) Sign(ctx context.Context, collection, href string) (string, error) {
	if strings.TrimSpace(href) == "" {
		return "", errors.New("asset href is empty")
	}
	if strings.TrimSpace(collection) == "" {
		return "", errors.New("collection is required to sign assets")
	}

	token, err := s.token(ctx, collection)
	if err != nil {
		return "", err
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse asset href: %w", err)
	}
	if parsed.RawQuery == "" {
		parsed.RawQuery = token
	} else {
		parsed.RawQuery += "&" + token
	}

	return parsed.String(), nil
}

func (s *Signer) token(ctx context.Context, collection string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if cached, ok := s.tokens[collection]; ok && now.Add(tokenRefreshMargin).Before(cached.expiry) {
		return cached.token, nil
	}

	fetched, err := s.fetchToken(ctx, collection)
	if err != nil {
		return "", err
	}

	if s.tokens == nil {
		s.tokens = map[string]cachedToken{}
	}
	s.tokens[collection] = cachedToken{token: fetched.Token, expiry: fetched.Expiry}

	return fetched.Token, nil
}

func (s *Signer) fetchToken(ctx context.Context, collection string) (tokenResponse, error) {
	timeout := s.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	requestCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(s.BaseURL, "/") + "/token/" + url.PathEscape(collection)
	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("create token request: %w", err)
	}

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("request sas token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("read sas token response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return tokenResponse{}, fmt.Errorf("request sas token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload tokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return tokenResponse{}, fmt.Errorf("decode sas token response: %w", err)
	}
	if payload.Token == "" {
		return tokenResponse{}, errors.New("sas token response missing token")
	}

	return payload, nil
}

func (s *Signer) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

func (s *Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
