package connectors

import (
	"errors"
	"time"
)

// OzonConfig holds credentials and fetch tuning for the Ozon Seller API.
type OzonConfig struct {
	// ClientID is the seller account id, sent as the Client-Id header.
	ClientID string
	// APIKey is the seller API key, sent as the Api-Key header.
	APIKey string
	// BaseURL is the Seller API endpoint.
	BaseURL string
	// PageSize is the posting list page size (the API caps it at 1000).
	PageSize int
	// MaxPages bounds one fetch so a runaway window cannot loop forever.
	MaxPages int
	// Overlap is re-requested before the checkpoint to pick up
	// late-visible postings.
	Overlap time.Duration
	// Lookback is the initial window for a never-synced connector.
	Lookback time.Duration
	// RequestsPerSecond throttles API calls.
	RequestsPerSecond float64
	TimeoutSeconds    int
}

// OzonProductionAPIURL is the production Seller API endpoint.
const OzonProductionAPIURL = "https://api-seller.ozon.ru"

var (
	ErrOzonConfigMissingClientID = errors.New("ozon: client id is required")
	ErrOzonConfigMissingAPIKey   = errors.New("ozon: api key is required")
)

// Validate checks credentials and fills defaults.
func (c *OzonConfig) Validate() error {
	if c.ClientID == "" {
		return ErrOzonConfigMissingClientID
	}
	if c.APIKey == "" {
		return ErrOzonConfigMissingAPIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = OzonProductionAPIURL
	}
	if c.PageSize <= 0 || c.PageSize > 1000 {
		c.PageSize = 100
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 100
	}
	if c.Overlap <= 0 {
		c.Overlap = 30 * time.Minute
	}
	if c.Lookback <= 0 {
		c.Lookback = 30 * 24 * time.Hour
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 2
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 30
	}
	return nil
}

func (c *OzonConfig) headers() map[string]string {
	return map[string]string{
		"Client-Id": c.ClientID,
		"Api-Key":   c.APIKey,
	}
}
