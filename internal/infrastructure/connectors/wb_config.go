package connectors

import (
	"errors"
	"time"
)

// WildberriesConfig holds credentials and fetch tuning for the WB
// statistics API.
type WildberriesConfig struct {
	// APIToken is the statistics API token, sent as Authorization.
	APIToken string
	BaseURL  string
	// MaxPages bounds the dateFrom-walking loop.
	MaxPages int
	Overlap  time.Duration
	Lookback time.Duration
	// RequestsPerSecond throttles API calls. The statistics API is
	// heavily rate limited (one request per minute per endpoint on the
	// free tier), so the default stays conservative.
	RequestsPerSecond float64
	TimeoutSeconds    int
}

// WildberriesProductionAPIURL is the production statistics endpoint.
const WildberriesProductionAPIURL = "https://statistics-api.wildberries.ru"

// ErrWildberriesConfigMissingToken is returned when no API token is set.
var ErrWildberriesConfigMissingToken = errors.New("wildberries: api token is required")

// Validate checks credentials and fills defaults.
func (c *WildberriesConfig) Validate() error {
	if c.APIToken == "" {
		return ErrWildberriesConfigMissingToken
	}
	if c.BaseURL == "" {
		c.BaseURL = WildberriesProductionAPIURL
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 50
	}
	if c.Overlap <= 0 {
		c.Overlap = 30 * time.Minute
	}
	if c.Lookback <= 0 {
		c.Lookback = 30 * 24 * time.Hour
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 0.5
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 60
	}
	return nil
}

func (c *WildberriesConfig) headers() map[string]string {
	return map[string]string{"Authorization": c.APIToken}
}
