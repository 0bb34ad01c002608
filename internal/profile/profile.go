// Package profile reads display data and externally supplied rank tiers from
// the identity service. Authentication itself lives outside this system.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	RankTier    string `json:"rank_tier"`
}

// Source is what the services depend on; Client is the HTTP implementation.
type Source interface {
	Get(ctx context.Context, playerID string) (Profile, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   *gocache.Cache
	log     *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
		cache:   gocache.New(10*time.Minute, 30*time.Minute),
		log:     log,
	}
}

func (c *Client) Get(ctx context.Context, playerID string) (Profile, error) {
	if cached, ok := c.cache.Get(playerID); ok {
		return cached.(Profile), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/profiles/%s", c.baseURL, playerID), nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// Unknown to the identity service: fall back to a bare profile so a
		// first-time player can still queue.
		c.log.Debug("profile not found, using fallback", zap.String("player_id", playerID))
		return Profile{ID: playerID, DisplayName: playerID}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("fetch profile: unexpected status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	c.cache.SetDefault(playerID, p)
	return p, nil
}

// Static is a fixed-map Source for tests and local development.
type Static map[string]Profile

func (s Static) Get(_ context.Context, playerID string) (Profile, error) {
	if p, ok := s[playerID]; ok {
		return p, nil
	}
	return Profile{ID: playerID, DisplayName: playerID}, nil
}
