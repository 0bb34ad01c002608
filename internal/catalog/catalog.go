// Package catalog reads the selectable-unit list from the external game-data
// service. The list changes on game patches, so it is cached for days.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const cacheKey = "selections"

type Selection struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Source validates selection ids for the draft service.
type Source interface {
	List(ctx context.Context) ([]Selection, error)
	Valid(ctx context.Context, id int) (bool, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *gocache.Cache
	log     *zap.Logger
}

func NewClient(baseURL string, ttl time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   gocache.New(ttl, ttl),
		log:     log,
	}
}

func (c *Client) List(ctx context.Context) ([]Selection, error) {
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]Selection), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/selections", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch selections: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch selections: unexpected status %d", resp.StatusCode)
	}

	var selections []Selection
	if err := json.NewDecoder(resp.Body).Decode(&selections); err != nil {
		return nil, fmt.Errorf("decode selections: %w", err)
	}
	c.cache.SetDefault(cacheKey, selections)
	c.log.Info("selection catalog refreshed", zap.Int("count", len(selections)))
	return selections, nil
}

func (c *Client) Valid(ctx context.Context, id int) (bool, error) {
	selections, err := c.List(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range selections {
		if s.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// Static is a fixed catalog for tests and local development.
type Static []Selection

func (s Static) List(context.Context) ([]Selection, error) { return s, nil }

func (s Static) Valid(_ context.Context, id int) (bool, error) {
	for _, sel := range s {
		if sel.ID == id {
			return true, nil
		}
	}
	return false, nil
}
