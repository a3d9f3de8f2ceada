package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

func testOzonConfig(baseURL string) *OzonConfig {
	return &OzonConfig{
		ClientID:          "12345",
		APIKey:            "secret",
		BaseURL:           baseURL,
		PageSize:          2,
		RequestsPerSecond: 1000,
	}
}

func TestOzonConnectorPaginatesUntilLastPage(t *testing.T) {
	var requests []ozonListRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ozonFBSListPath, r.URL.Path)
		assert.Equal(t, "12345", r.Header.Get("Client-Id"))
		assert.Equal(t, "secret", r.Header.Get("Api-Key"))

		var req ozonListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		page := len(requests)
		postings := make([]map[string]any, 0, 2)
		for i := 1; i <= 2; i++ {
			postings = append(postings, map[string]any{
				"posting_number": fmt.Sprintf("P%d-%d", page, i),
				"status":         "delivered",
			})
		}
		resp := map[string]any{"result": map[string]any{
			"postings": postings,
			"has_next": page < 3,
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	connector, err := NewOzonConnector(ingest.SourceOzonFBS, testOzonConfig(server.URL))
	require.NoError(t, err)

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)

	// Three pages of two postings each, nothing dropped, nothing doubled.
	require.Len(t, result.Payloads, 6)
	seen := map[string]bool{}
	for _, p := range result.Payloads {
		assert.Equal(t, ingest.SourceOzonFBS, p.Source)
		assert.False(t, seen[p.BusinessKey], p.BusinessKey)
		seen[p.BusinessKey] = true
	}

	require.Len(t, requests, 3)
	assert.Equal(t, 0, requests[0].Offset)
	assert.Equal(t, 2, requests[1].Offset)
	assert.Equal(t, 4, requests[2].Offset)
	assert.False(t, result.Next.LastSyncedAt.IsZero())
}

func TestOzonConnectorWindowUsesCheckpointWithOverlap(t *testing.T) {
	var gotSince time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ozonListRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotSince = req.Filter.Since
		resp := map[string]any{"result": map[string]any{"postings": []any{}, "has_next": false}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	cfg := testOzonConfig(server.URL)
	cfg.Overlap = time.Hour
	connector, err := NewOzonConnector(ingest.SourceOzonFBS, cfg)
	require.NoError(t, err)

	lastSynced := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	_, err = connector.Fetch(context.Background(), ingest.Checkpoint{
		Connector:    ingest.SourceOzonFBS,
		LastSyncedAt: lastSynced,
	})
	require.NoError(t, err)
	assert.Equal(t, lastSynced.Add(-time.Hour), gotSince.UTC())
}

func TestOzonConnectorFBOStopsOnShortPage(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ozonFBOListPath, r.URL.Path)
		calls++
		var postings []map[string]any
		if calls == 1 {
			postings = []map[string]any{
				{"posting_number": "F1"},
				{"posting_number": "F2"},
			}
		} else {
			postings = []map[string]any{{"posting_number": "F3"}}
		}
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{"result": postings}))
	}))
	defer server.Close()

	connector, err := NewOzonConnector(ingest.SourceOzonFBO, testOzonConfig(server.URL))
	require.NoError(t, err)

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)
	assert.Len(t, result.Payloads, 3)
	assert.Equal(t, 2, calls)
}

func TestOzonConnectorSkipsPostingsWithoutNumber(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{"result": map[string]any{
			"postings": []map[string]any{
				{"posting_number": "P1", "status": "delivered"},
				{"status": "delivered"},
				{"posting_number": "P2", "status": "delivered"},
			},
			"has_next": false,
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	connector, err := NewOzonConnector(ingest.SourceOzonFBS, testOzonConfig(server.URL))
	require.NoError(t, err)

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)

	// The keyless posting is dropped, its siblings survive.
	require.Len(t, result.Payloads, 2)
	assert.Equal(t, "P1", result.Payloads[0].BusinessKey)
	assert.Equal(t, "P2", result.Payloads[1].BusinessKey)
	assert.Equal(t, 1, result.Skipped)
}

func TestOzonConnectorPageCapAdvancesToLastChangeTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{"result": map[string]any{
			"postings": []map[string]any{
				{"posting_number": "P1", "in_process_at": "2026-03-08T09:00:00Z"},
				{"posting_number": "P2", "in_process_at": "2026-03-08T10:00:00Z"},
			},
			"has_next": true,
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	cfg := testOzonConfig(server.URL)
	cfg.MaxPages = 1
	connector, err := NewOzonConnector(ingest.SourceOzonFBS, cfg)
	require.NoError(t, err)

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{
		Connector:    ingest.SourceOzonFBS,
		LastSyncedAt: time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// The window was truncated: the checkpoint may only move to the
	// highest change time fetched, not to now.
	require.Len(t, result.Payloads, 2)
	assert.Equal(t, time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC), result.Next.LastSyncedAt)
}

func TestOzonConnectorPageCapWithoutChangeTimesKeepsWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{"result": map[string]any{
			"postings": []map[string]any{{"posting_number": "P1"}},
			"has_next": true,
		}}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	cfg := testOzonConfig(server.URL)
	cfg.MaxPages = 1
	connector, err := NewOzonConnector(ingest.SourceOzonFBS, cfg)
	require.NoError(t, err)

	lastSynced := time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC)
	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{
		Connector:    ingest.SourceOzonFBS,
		LastSyncedAt: lastSynced,
	})
	require.NoError(t, err)
	assert.Equal(t, lastSynced, result.Next.LastSyncedAt)
}

func TestOzonConnectorServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	connector, err := NewOzonConnector(ingest.SourceOzonFBS, testOzonConfig(server.URL))
	require.NoError(t, err)

	_, err = connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.Error(t, err)
	assert.True(t, ingest.IsTransient(err))
}

func TestOzonConnectorAuthErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	connector, err := NewOzonConnector(ingest.SourceOzonFBS, testOzonConfig(server.URL))
	require.NoError(t, err)

	_, err = connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.Error(t, err)
	assert.False(t, ingest.IsTransient(err))
}

func TestOzonConfigValidation(t *testing.T) {
	err := (&OzonConfig{APIKey: "k"}).Validate()
	assert.ErrorIs(t, err, ErrOzonConfigMissingClientID)
	err = (&OzonConfig{ClientID: "c"}).Validate()
	assert.ErrorIs(t, err, ErrOzonConfigMissingAPIKey)

	cfg := &OzonConfig{ClientID: "c", APIKey: "k"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, OzonProductionAPIURL, cfg.BaseURL)
	assert.Equal(t, 100, cfg.PageSize)
}

func TestNewOzonConnectorRejectsForeignSource(t *testing.T) {
	_, err := NewOzonConnector(ingest.SourceWBSales, testOzonConfig("http://x"))
	require.ErrorIs(t, err, ingest.ErrUnknownSource)
}

func testWbConfig(baseURL string) *WildberriesConfig {
	return &WildberriesConfig{
		APIToken:          "wb-token",
		BaseURL:           baseURL,
		RequestsPerSecond: 1000,
	}
}

func TestWildberriesConnectorWalksLastChangeDate(t *testing.T) {
	var dateFroms []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wbSalesPath, r.URL.Path)
		assert.Equal(t, "wb-token", r.Header.Get("Authorization"))
		assert.Equal(t, "0", r.URL.Query().Get("flag"))
		dateFroms = append(dateFroms, r.URL.Query().Get("dateFrom"))

		var rows []map[string]any
		switch len(dateFroms) {
		case 1:
			rows = []map[string]any{
				{"srid": "WB1", "lastChangeDate": "2026-03-07T10:00:00", "date": "2026-03-07T09:00:00"},
				{"srid": "WB2", "lastChangeDate": "2026-03-07T11:00:00", "date": "2026-03-07T09:30:00"},
			}
		case 2:
			rows = []map[string]any{
				{"srid": "WB3", "lastChangeDate": "2026-03-07T12:00:00", "date": "2026-03-07T10:00:00"},
			}
		default:
			rows = []map[string]any{}
		}
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
	defer server.Close()

	connector, err := NewWildberriesConnector(testWbConfig(server.URL))
	require.NoError(t, err)
	connector.now = func() time.Time { return time.Date(2026, 3, 7, 13, 0, 0, 0, time.UTC) }

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)

	require.Len(t, result.Payloads, 3)
	assert.Equal(t, "WB1", result.Payloads[0].BusinessKey)
	assert.Equal(t, "WB3", result.Payloads[2].BusinessKey)

	// The second request resumes from the highest lastChangeDate of
	// the first page.
	require.Len(t, dateFroms, 3)
	assert.Equal(t, "2026-03-07T11:00:00Z", dateFroms[1])
	assert.Equal(t, "2026-03-07T12:00:00Z", dateFroms[2])
}

func TestWildberriesConnectorStopsWithoutProgress(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		rows := []map[string]any{
			{"srid": "WB1", "lastChangeDate": "2020-01-01T00:00:00"},
		}
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
	defer server.Close()

	connector, err := NewWildberriesConnector(testWbConfig(server.URL))
	require.NoError(t, err)

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Len(t, result.Payloads, 1)
}

func TestWildberriesConnectorSkipsRowsWithoutSRID(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		var rows []map[string]any
		if calls == 1 {
			rows = []map[string]any{
				{"srid": "WB1", "lastChangeDate": "2026-03-07T10:00:00"},
				{"lastChangeDate": "2026-03-07T10:30:00"},
				{"srid": "WB2", "lastChangeDate": "2026-03-07T11:00:00"},
			}
		}
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
	defer server.Close()

	connector, err := NewWildberriesConnector(testWbConfig(server.URL))
	require.NoError(t, err)
	connector.now = func() time.Time { return time.Date(2026, 3, 7, 13, 0, 0, 0, time.UTC) }

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)

	// The keyless row is dropped, its siblings survive.
	require.Len(t, result.Payloads, 2)
	assert.Equal(t, "WB1", result.Payloads[0].BusinessKey)
	assert.Equal(t, "WB2", result.Payloads[1].BusinessKey)
	assert.Equal(t, 1, result.Skipped)
}

func TestWildberriesConnectorPageCapResumesFromMaxChange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		rows := []map[string]any{
			{"srid": "WB1", "lastChangeDate": "2026-03-07T10:00:00"},
			{"srid": "WB2", "lastChangeDate": "2026-03-07T11:00:00"},
		}
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
	defer server.Close()

	cfg := testWbConfig(server.URL)
	cfg.MaxPages = 1
	connector, err := NewWildberriesConnector(cfg)
	require.NoError(t, err)
	connector.now = func() time.Time { return time.Date(2026, 3, 7, 13, 0, 0, 0, time.UTC) }

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)

	// The walk was truncated after one page; the checkpoint resumes
	// from the highest lastChangeDate fetched, not from now.
	require.Len(t, result.Payloads, 2)
	assert.Equal(t, time.Date(2026, 3, 7, 11, 0, 0, 0, time.UTC), result.Next.LastSyncedAt)
}

func TestWildberriesConfigValidation(t *testing.T) {
	assert.ErrorIs(t, (&WildberriesConfig{}).Validate(), ErrWildberriesConfigMissingToken)

	cfg := &WildberriesConfig{APIToken: "t"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, WildberriesProductionAPIURL, cfg.BaseURL)
}

func testYmConfig(baseURL string) *YandexMarketConfig {
	return &YandexMarketConfig{
		CampaignID:        "777",
		APIKey:            "ym-key",
		BaseURL:           baseURL,
		PageSize:          2,
		RequestsPerSecond: 1000,
	}
}

func TestYandexMarketConnectorFollowsPager(t *testing.T) {
	var pages []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/777/orders", r.URL.Path)
		assert.Equal(t, "ym-key", r.Header.Get("Api-Key"))
		assert.NotEmpty(t, r.URL.Query().Get("updatedAtFrom"))
		pages = append(pages, r.URL.Query().Get("page"))

		page := len(pages)
		orders := []map[string]any{
			{"id": page*10 + 1, "status": "DELIVERED"},
			{"id": page*10 + 2, "status": "PROCESSING"},
		}
		resp := map[string]any{
			"orders": orders,
			"pager":  map[string]any{"pagesCount": 3, "currentPage": page, "total": 6},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	connector, err := NewYandexMarketConnector(testYmConfig(server.URL))
	require.NoError(t, err)

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)

	require.Len(t, result.Payloads, 6)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
	assert.Equal(t, "11", result.Payloads[0].BusinessKey)
	assert.Equal(t, "32", result.Payloads[5].BusinessKey)
}

func TestYandexMarketConnectorSkipsOrdersWithoutID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"orders": []map[string]any{
				{"id": 11, "status": "DELIVERED"},
				{"status": "DELIVERED"},
				{"id": 12, "status": "PROCESSING"},
			},
			"pager": map[string]any{"pagesCount": 1, "currentPage": 1, "total": 3},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	connector, err := NewYandexMarketConnector(testYmConfig(server.URL))
	require.NoError(t, err)

	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.NoError(t, err)

	// The keyless order is dropped, its siblings survive.
	require.Len(t, result.Payloads, 2)
	assert.Equal(t, "11", result.Payloads[0].BusinessKey)
	assert.Equal(t, "12", result.Payloads[1].BusinessKey)
	assert.Equal(t, 1, result.Skipped)
}

func TestYandexMarketConnectorPageCapKeepsWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"orders": []map[string]any{{"id": 11}},
			"pager":  map[string]any{"pagesCount": 3, "currentPage": 1, "total": 3},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	cfg := testYmConfig(server.URL)
	cfg.MaxPages = 1
	connector, err := NewYandexMarketConnector(cfg)
	require.NoError(t, err)

	lastSynced := time.Date(2026, 3, 8, 8, 0, 0, 0, time.UTC)
	result, err := connector.Fetch(context.Background(), ingest.Checkpoint{
		Connector:    ingest.SourceYMOrders,
		LastSyncedAt: lastSynced,
	})
	require.NoError(t, err)

	// Orders carry no per-row change time; a truncated window stays
	// un-advanced so the next run re-requests it.
	require.Len(t, result.Payloads, 1)
	assert.Equal(t, lastSynced, result.Next.LastSyncedAt)
}

func TestYandexMarketConnectorRateLimitIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	connector, err := NewYandexMarketConnector(testYmConfig(server.URL))
	require.NoError(t, err)

	_, err = connector.Fetch(context.Background(), ingest.Checkpoint{})
	require.Error(t, err)
	assert.True(t, ingest.IsTransient(err))
}

func TestYandexMarketConfigValidation(t *testing.T) {
	assert.ErrorIs(t, (&YandexMarketConfig{APIKey: "k"}).Validate(), ErrYandexMarketConfigMissingCampaign)
	assert.ErrorIs(t, (&YandexMarketConfig{CampaignID: "1"}).Validate(), ErrYandexMarketConfigMissingAPIKey)
}
