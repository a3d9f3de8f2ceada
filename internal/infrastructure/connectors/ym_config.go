package connectors

import (
	"errors"
	"time"
)

// YandexMarketConfig holds credentials and fetch tuning for the YM
// partner API.
type YandexMarketConfig struct {
	// CampaignID identifies the shop campaign whose orders are pulled.
	CampaignID string
	// APIKey is sent as the Api-Key header.
	APIKey   string
	BaseURL  string
	PageSize int
	MaxPages int
	Overlap  time.Duration
	Lookback time.Duration
	// RequestsPerSecond throttles API calls.
	RequestsPerSecond float64
	TimeoutSeconds    int
}

// YandexMarketProductionAPIURL is the production partner API endpoint.
const YandexMarketProductionAPIURL = "https://api.partner.market.yandex.ru"

var (
	ErrYandexMarketConfigMissingCampaign = errors.New("yandexmarket: campaign id is required")
	ErrYandexMarketConfigMissingAPIKey   = errors.New("yandexmarket: api key is required")
)

// Validate checks credentials and fills defaults.
func (c *YandexMarketConfig) Validate() error {
	if c.CampaignID == "" {
		return ErrYandexMarketConfigMissingCampaign
	}
	if c.APIKey == "" {
		return ErrYandexMarketConfigMissingAPIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = YandexMarketProductionAPIURL
	}
	if c.PageSize <= 0 || c.PageSize > 50 {
		c.PageSize = 50
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 200
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

func (c *YandexMarketConfig) headers() map[string]string {
	return map[string]string{"Api-Key": c.APIKey}
}
