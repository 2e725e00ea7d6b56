package tokenservice

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

	"github.com/nkiryanov/novalite/internal/apierror"
	"github.com/nkiryanov/novalite/internal/apperrors"
	"github.com/nkiryanov/novalite/internal/logger"
	"github.com/nkiryanov/novalite/internal/models"
)

const (
	ObtainPath  = "token/"
	RefreshPath = "token/refresh/"

	defaultTimeout = 5 * time.Second

	// Error bodies are only used to build a message
	maxErrorBodySize = 64 << 10
)

var ErrMalformedResponse = errors.New("malformed token service response")

// Error is a non 2xx answer of the token service
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("token service responded with status %d: %s", e.Status, e.Message)
}

type Config struct {
	// API origin including path prefix, e.g. https://host/api
	// Required to be set
	BaseURL string

	// If not set than new http.Client is used
	HTTPClient *http.Client

	// Timeout for one call. If not set than default is used
	Timeout time.Duration

	Logger logger.Logger
}

// Client talks to the token issuance and refresh endpoints
type Client struct {
	baseURL string
	timeout time.Duration

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url must not be empty")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger.With("component", "tokenservice"),
	}, nil
}

// Obtain exchanges username and password for a new token pair
func (c *Client) Obtain(ctx context.Context, username string, password string) (models.TokenPair, error) {
	payload := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{Username: username, Password: password}

	var pair models.TokenPair
	if err := c.post(ctx, ObtainPath, payload, &pair); err != nil {
		return pair, err
	}

	if pair.Access == "" || pair.Refresh == "" {
		return models.TokenPair{}, fmt.Errorf("%w: access and refresh tokens expected", ErrMalformedResponse)
	}

	c.logger.Debug("Token pair obtained", "username", username, "access", logger.Redact(pair.Access))
	return pair, nil
}

// Refresh exchanges refresh token for a new access token
// Returned Refresh is empty unless the service rotated it
func (c *Client) Refresh(ctx context.Context, refresh string) (models.TokenPair, error) {
	payload := struct {
		Refresh string `json:"refresh"`
	}{Refresh: refresh}

	var pair models.TokenPair
	if err := c.post(ctx, RefreshPath, payload, &pair); err != nil {
		return pair, err
	}

	if pair.Access == "" {
		return models.TokenPair{}, fmt.Errorf("%w: access token expected", ErrMalformedResponse)
	}

	c.logger.Debug("Access token refreshed", "access", logger.Redact(pair.Access), "rotated", pair.Refresh != "")
	return pair, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("Token service unreachable", "path", path, "error", err)
		return fmt.Errorf("%w: %w", apperrors.ErrRequestFailed, err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		msg := apierror.Message(resp.StatusCode, b)
		c.logger.Warn("Token service rejected request", "path", path, "status_code", resp.StatusCode, "message", msg)
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Warn("Failed to decode token service response", "path", path, "error", err)
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}
