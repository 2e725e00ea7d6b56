package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/credstore"
	"github.com/nkiryanov/novalite/internal/logger"
	"github.com/nkiryanov/novalite/internal/models"
)

// When to refresh the access token. One strategy is used for every call of a client
type Strategy string

const (
	// Send the request first; on 401 refresh and retry once
	StrategyReactive Strategy = "reactive"

	// Decode expiry before the request and refresh beforehand if it passed
	StrategyProactive Strategy = "proactive"
)

const (
	defaultStrategy = StrategyReactive

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"

	contentTypeJSON = "application/json"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyReactive:
		return StrategyReactive, nil
	case StrategyProactive:
		return StrategyProactive, nil
	default:
		return "", fmt.Errorf("unknown refresh strategy %q, expected %s or %s", s, StrategyReactive, StrategyProactive)
	}
}

// Issues and refreshes tokens. Implemented by tokenservice.Client
type TokenService interface {
	Obtain(ctx context.Context, username string, password string) (models.TokenPair, error)

	// Returned pair has empty Refresh if the service does not rotate refresh tokens
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)
}

// Client with sensible defaults
type Config struct {
	// API origin including path prefix, e.g. https://host/api
	// Required to be set
	BaseURL string

	// If not set than reactive strategy is used
	Strategy Strategy

	// Proactive strategy only: token is treated as expired this long before exp
	ExpiryLeeway time.Duration

	// If not set than new http.Client is used
	HTTPClient *http.Client

	// Called when the user has to log in again: no credentials stored,
	// refresh failed (credentials are already purged by then) or explicit logout (reason is nil)
	OnLoginRequired func(ctx context.Context, reason error)

	Logger logger.Logger

	// Clock, for tests
	Now func() time.Time
}

// Client sends requests to the API on behalf of the logged in user
type Client struct {
	baseURL         string
	strategy        Strategy
	leeway          time.Duration
	httpClient      *http.Client
	onLoginRequired func(ctx context.Context, reason error)
	logger          logger.Logger
	now             func() time.Time

	store  credstore.Store
	tokens TokenService

	// Concurrent callers share one in-flight refresh
	refreshGroup singleflight.Group
}

func NewClient(cfg Config, store credstore.Store, tokens TokenService) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if store == nil || tokens == nil {
		return nil, errors.New("credential store and token service must not be nil")
	}

	if cfg.Strategy == "" {
		cfg.Strategy = defaultStrategy
	}
	if _, err := ParseStrategy(string(cfg.Strategy)); err != nil {
		return nil, err
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.OnLoginRequired == nil {
		cfg.OnLoginRequired = func(context.Context, error) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		strategy:        cfg.Strategy,
		leeway:          cfg.ExpiryLeeway,
		httpClient:      cfg.HTTPClient,
		onLoginRequired: cfg.OnLoginRequired,
		logger:          cfg.Logger.With("component", "auth"),
		now:             cfg.Now,
		store:           store,
		tokens:          tokens,
	}, nil
}

// Options of one request
type Options struct {
	// If not set than GET
	Method string

	// nil: no body
	// io.Reader or []byte: sent as is (multipart forms, files); caller sets Content-Type
	// json.RawMessage or anything else: JSON encoded, Content-Type set to application/json
	// unless the caller set one
	Body any

	// Caller headers are kept; Authorization is always overwritten by the client
	Header http.Header
}

// Request sends authenticated request to path relative to the API origin
// and returns raw response. Only 401 is treated specially; interpreting other
// statuses is up to the caller, who also has to close the body
func (c *Client) Request(ctx context.Context, path string, opts Options) (*http.Response, error) {
	pair, err := c.store.Get(ctx)
	switch {
	case errors.Is(err, apperrors.ErrCredentialsNotFound):
		c.logger.Info("No credentials stored, login required", "path", path)
		c.onLoginRequired(ctx, apperrors.ErrAuthRequired)
		return nil, apperrors.ErrAuthRequired
	case err != nil:
		return nil, fmt.Errorf("can't read credentials. Err: %w", err)
	}

	body, contentType, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	access := pair.Access

	if access == "" {
		c.logger.Debug("No access token stored, refreshing before request", "path", path)
		access, err = c.refresh(ctx, "")
		if err != nil {
			return nil, err
		}
		return c.send(ctx, path, opts, body, contentType, access)
	}

	if c.strategy == StrategyProactive && c.expired(access) {
		c.logger.Debug("Access token expired, refreshing before request", "path", path)
		access, err = c.refresh(ctx, access)
		if err != nil {
			return nil, err
		}
		return c.send(ctx, path, opts, body, contentType, access)
	}

	resp, err := c.send(ctx, path, opts, body, contentType, access)
	if err != nil {
		return nil, err
	}

	if c.strategy == StrategyReactive && resp.StatusCode == http.StatusUnauthorized {
		discard(resp)
		c.logger.Debug("Access token rejected, refreshing and retrying", "path", path)

		access, err = c.refresh(ctx, access)
		if err != nil {
			return nil, err
		}
		return c.send(ctx, path, opts, body, contentType, access)
	}

	return resp, nil
}

func (c *Client) expired(access string) bool {
	identity, err := DecodeIdentity(access)
	if err != nil {
		// Unreadable token can't be valid; refresh replaces it or ends the session
		c.logger.Warn("Stored access token can't be decoded", "error", err)
		return true
	}
	return identity.Expired(c.now().Add(c.leeway))
}

func (c *Client) send(ctx context.Context, path string, opts Options, body []byte, contentType string, access string) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add canonicalizes keys, so a caller "authorization" is replaced below as well
	header := make(http.Header, len(opts.Header)+2)
	for k, vs := range opts.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	if contentType != "" && header.Get(headerContentType) == "" {
		header.Set(headerContentType, contentType)
	}
	if header.Get(headerRequestID) == "" {
		header.Set(headerRequestID, uuid.NewString())
	}
	header.Set(headerAuthorization, "Bearer "+access)
	req.Header = header

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Request failed", "method", method, "path", path, "request_id", header.Get(headerRequestID), "error", err)
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRequestFailed, err)
	}

	c.logger.Debug(
		"API request",
		"method", method,
		"path", path,
		"request_id", header.Get(headerRequestID),
		"status", resp.StatusCode,
		"duration", c.now().Sub(start),
	)
	return resp, nil
}

func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// Body is read once so it can be sent again after refresh
func encodeBody(v any) ([]byte, string, error) {
	switch v := v.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return v, contentTypeJSON, nil
	case []byte:
		return v, "", nil
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read request body: %w", err)
		}
		return b, "", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		return b, contentTypeJSON, nil
	}
}

// Drain so the connection can be reused
func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
