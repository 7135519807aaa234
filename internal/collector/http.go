package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"freetier-alerts/internal/ledger"
)

const usagePath = "/usage"

// Options parameterise the HTTP usage collector.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// HTTPCollector pulls per-day, per-resource usage rows from the upstream
// billing export API.
type HTTPCollector struct {
	opts    Options
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTP constructs an HTTP usage collector.
func NewHTTP(opts Options, logger zerolog.Logger) *HTTPCollector {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPCollector{
		opts:    opts,
		logger:  logger.With().Str("component", "usage_collector").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchUsage retrieves usage records for [from, to). Records arrive in no
// guaranteed order and may repeat keys across calls; the ledger's upsert
// absorbs both.
func (c *HTTPCollector) FetchUsage(ctx context.Context, from, to time.Time) ([]ledger.Observation, error) {
	if c.baseURL == "" {
		return nil, errors.New("collector base URL required")
	}
	if !from.Before(to) {
		return nil, errors.New("from must be before to")
	}

	query := url.Values{}
	query.Set("start", from.UTC().Format("2006-01-02"))
	query.Set("end", to.UTC().Format("2006-01-02"))
	endpoint := c.baseURL + usagePath + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "tierwatch/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	var body usageResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode usage response: %w", err)
	}

	observations := make([]ledger.Observation, 0, len(body.Records))
	for _, rec := range body.Records {
		obs, err := rec.toObservation()
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}

	c.logger.Info().
		Int("records", len(observations)).
		Str("from", from.Format("2006-01-02")).
		Str("to", to.Format("2006-01-02")).
		Msg("usage records fetched")
	return observations, nil
}

type usageResponse struct {
	Records []usageRecord `json:"records"`
}

type usageRecord struct {
	Date      string  `json:"date"`
	Resource  string  `json:"resource"`
	SubMetric string  `json:"subMetric"`
	Amount    string  `json:"amount"`
	Unit      string  `json:"unit"`
	Cost      *string `json:"cost,omitempty"`
}

func (r usageRecord) toObservation() (ledger.Observation, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return ledger.Observation{}, fmt.Errorf("parse usage date %q: %w", r.Date, err)
	}

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return ledger.Observation{}, fmt.Errorf("parse usage amount %q: %w", r.Amount, err)
	}

	cost := decimal.Zero
	if r.Cost != nil {
		cost, err = decimal.NewFromString(*r.Cost)
		if err != nil {
			return ledger.Observation{}, fmt.Errorf("parse usage cost %q: %w", *r.Cost, err)
		}
	}

	return ledger.Observation{
		Date:      date,
		Resource:  r.Resource,
		SubMetric: r.SubMetric,
		Amount:    amount,
		Unit:      r.Unit,
		Cost:      cost,
	}, nil
}

type errorResponse struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Description != "" {
			return fmt.Errorf("usage api error (%d): %s", status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("usage api error (%d): %s", status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("usage api error (%d): %s", status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("usage api error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("usage api error (%d)", status)
}

var _ UsageFetcher = (*HTTPCollector)(nil)
