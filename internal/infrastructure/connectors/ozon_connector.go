package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mpoffice/backend/internal/domain/ingest"
)

const (
	ozonFBSListPath = "/v3/posting/fbs/list"
	ozonFBOListPath = "/v2/posting/fbo/list"
)

// OzonConnector fetches postings from the Ozon Seller API. One
// instance serves one fulfillment scheme; FBS and FBO are separate
// connectors with separate checkpoints because the API paginates them
// independently.
type OzonConnector struct {
	source ingest.Source
	path   string
	config *OzonConfig
	client *apiClient
	now    func() time.Time
}

// NewOzonConnector creates a connector for the given scheme source
// (SourceOzonFBS or SourceOzonFBO).
func NewOzonConnector(source ingest.Source, config *OzonConfig) (*OzonConnector, error) {
	if source != ingest.SourceOzonFBS && source != ingest.SourceOzonFBO {
		return nil, fmt.Errorf("%w: %s", ingest.ErrUnknownSource, source)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	path := ozonFBSListPath
	if source == ingest.SourceOzonFBO {
		path = ozonFBOListPath
	}
	return &OzonConnector{
		source: source,
		path:   path,
		config: config,
		client: newAPIClient(source, config.BaseURL, time.Duration(config.TimeoutSeconds)*time.Second, config.RequestsPerSecond),
		now:    time.Now,
	}, nil
}

// Name returns the connector's source.
func (c *OzonConnector) Name() ingest.Source { return c.source }

// ozonListRequest is the posting list request body shared by the FBS
// and FBO endpoints.
type ozonListRequest struct {
	Dir    string         `json:"dir"`
	Filter ozonListFilter `json:"filter"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type ozonListFilter struct {
	Since time.Time `json:"since"`
	To    time.Time `json:"to"`
}

// ozonListResponse covers both list endpoints: FBS nests postings
// under result.postings with an explicit has_next, FBO returns the
// posting array directly under result.
type ozonListResponse struct {
	Result json.RawMessage `json:"result"`
}

type ozonFBSResult struct {
	Postings []json.RawMessage `json:"postings"`
	HasNext  bool              `json:"has_next"`
}

// postingNumberProbe extracts the business key and change time
// without touching the rest of the fragment.
type postingNumberProbe struct {
	PostingNumber string `json:"posting_number"`
	InProcessAt   string `json:"in_process_at"`
}

// Fetch pulls every posting updated in the window, one raw payload per
// posting. It paginates with limit/offset until the API reports no
// further page.
func (c *OzonConnector) Fetch(ctx context.Context, checkpoint ingest.Checkpoint) (ingest.FetchResult, error) {
	now := c.now().UTC()
	since := checkpoint.WindowFrom(c.config.Overlap, c.config.Lookback, now)

	var payloads []ingest.RawPayload
	var maxChange time.Time
	skipped := 0
	truncated := false
	offset := 0
	for page := 0; ; page++ {
		if page >= c.config.MaxPages {
			truncated = true
			break
		}

		body, err := json.Marshal(ozonListRequest{
			Dir:    "ASC",
			Filter: ozonListFilter{Since: since, To: now},
			Limit:  c.config.PageSize,
			Offset: offset,
		})
		if err != nil {
			return ingest.FetchResult{}, fmt.Errorf("ozon: failed to marshal request: %w", err)
		}

		respBody, err := c.client.postJSON(ctx, c.path, body, c.config.headers())
		if err != nil {
			return ingest.FetchResult{}, err
		}

		postings, hasNext, err := c.decodePage(respBody)
		if err != nil {
			return ingest.FetchResult{}, err
		}

		for _, fragment := range postings {
			var probe postingNumberProbe
			if err := json.Unmarshal(fragment, &probe); err != nil || probe.PostingNumber == "" {
				// A posting without posting_number cannot enter the
				// raw store; skip it, keep the rest of the page.
				skipped++
				continue
			}
			payloads = append(payloads, ingest.NewRawPayload(c.source, probe.PostingNumber, now, fragment))

			if changed := parseAPITime(probe.InProcessAt); changed != nil && changed.After(maxChange) {
				maxChange = *changed
			}
		}

		if !hasNext {
			break
		}
		offset += c.config.PageSize
	}

	next := ingest.Checkpoint{
		Connector:    c.source,
		LastSyncedAt: now,
	}
	if truncated {
		// The page cap stopped pagination with postings still pending.
		// Postings arrive in ascending in_process_at order, so the
		// highest change time fetched is a safe resume point; without
		// one the window stays where the checkpoint left it.
		next.LastSyncedAt = checkpoint.LastSyncedAt
		if !maxChange.IsZero() {
			next.LastSyncedAt = maxChange
		}
	}

	return ingest.FetchResult{
		Payloads: payloads,
		Skipped:  skipped,
		Next:     next,
	}, nil
}

func (c *OzonConnector) decodePage(respBody []byte) ([]json.RawMessage, bool, error) {
	var envelope ozonListResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, false, fmt.Errorf("ozon: failed to parse response: %w", err)
	}

	if c.source == ingest.SourceOzonFBS {
		var result ozonFBSResult
		if err := json.Unmarshal(envelope.Result, &result); err != nil {
			return nil, false, fmt.Errorf("ozon: failed to parse fbs result: %w", err)
		}
		return result.Postings, result.HasNext, nil
	}

	// FBO has no has_next; a full page means there may be more.
	var postings []json.RawMessage
	if err := json.Unmarshal(envelope.Result, &postings); err != nil {
		return nil, false, fmt.Errorf("ozon: failed to parse fbo result: %w", err)
	}
	return postings, len(postings) == c.config.PageSize, nil
}

var _ ingest.Connector = (*OzonConnector)(nil)
