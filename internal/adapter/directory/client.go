package directory

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rl1809/stock-ledger/internal/port"
)

const (
	kindUser = "user"
	kindUnit = "unit"
)

// Client resolves user and unit identifiers against the HTTP directory
// service, optionally through a shared name cache.
type Client struct {
	httpClient *resty.Client
	cache      port.NameCache
	logger     *zap.Logger
}

var _ port.Directory = (*Client)(nil)

type entry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiError struct {
	Message string `json:"message"`
}

func NewClient(baseURL string, timeout time.Duration, cache port.NameCache, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	return &Client{httpClient: restyClient, cache: cache, logger: logger}
}

func (c *Client) UserName(ctx context.Context, id string) (string, error) {
	return c.lookup(ctx, kindUser, "/users/{id}", id)
}

func (c *Client) UnitName(ctx context.Context, id string) (string, error) {
	return c.lookup(ctx, kindUnit, "/units/{id}", id)
}

func (c *Client) lookup(ctx context.Context, kind, path, id string) (string, error) {
	if c.cache != nil {
		name, ok, err := c.cache.GetName(ctx, kind, id)
		if err != nil {
			c.logger.Debug("name cache read failed", zap.String("kind", kind), zap.Error(err))
		} else if ok {
			return name, nil
		}
	}

	result := new(entry)
	apiErr := new(apiError)
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(result).
		SetError(apiErr).
		Get(path)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", kind, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return "", fmt.Errorf("directory error: code=%d, message=%s", resp.StatusCode(), apiErr.Message)
	}
	if result.Name == "" {
		return "", fmt.Errorf("lookup %s: empty name", kind)
	}

	if c.cache != nil {
		if err := c.cache.SetName(ctx, kind, id, result.Name); err != nil {
			c.logger.Debug("name cache write failed", zap.String("kind", kind), zap.Error(err))
		}
	}
	return result.Name, nil
}
