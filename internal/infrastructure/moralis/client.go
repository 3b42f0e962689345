package moralis

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

	"walletops/internal/application"
	"walletops/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL = "https://deep-index.moralis.io/api/v2.2"
	DefaultChain   = "arbitrum"
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

type Client struct {
	baseURL    string
	apiKey     string
	chain      string
	httpClient *http.Client
}

type Config struct {
	BaseURL string
	APIKey  string
	Chain   string
	Timeout time.Duration
	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, application.ErrProviderNotConfigured
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid moralis base url: %w", err)
	}
	chain := strings.TrimSpace(cfg.Chain)
	if chain == "" {
		chain = DefaultChain
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		chain:      chain,
		httpClient: httpClient,
	}, nil
}

func (c *Client) Chain() string {
	return c.chain
}

type historyResponse struct {
	Result       []domain.RawTransaction `json:"result"`
	Transactions []domain.RawTransaction `json:"transactions"`
	Cursor       *string                 `json:"cursor"`
	Total        *json.Number            `json:"total"`
}

// FetchHistory reads one page of the wallet history. Failures are returned
// as *application.UpstreamError.
func (c *Client) FetchHistory(ctx context.Context, address, cursor string) (domain.RawHistoryPage, error) {
	ctx, span := otel.Tracer("walletops/moralis").Start(ctx, "moralis.wallet_history", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("chain", c.chain),
		attribute.Bool("page.has_cursor", cursor != ""),
	)

	page, err := c.fetchHistory(ctx, address, cursor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RawHistoryPage{}, err
	}
	span.SetAttributes(attribute.Int("page.records", len(page.Transactions)))
	return page, nil
}

func (c *Client) fetchHistory(ctx context.Context, address, cursor string) (domain.RawHistoryPage, error) {
	query := url.Values{}
	query.Set("chain", c.chain)
	if cursor != "" {
		query.Set("cursor", cursor)
	}
	endpoint := c.baseURL + "/wallets/" + url.PathEscape(address) + "/history?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.RawHistoryPage{}, &application.UpstreamError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RawHistoryPage{}, &application.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.RawHistoryPage{}, &application.UpstreamError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("moralis status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	page, err := DecodeHistory(resp.Body)
	if err != nil {
		return domain.RawHistoryPage{}, &application.UpstreamError{Err: err}
	}
	return page, nil
}

// DecodeHistory parses a wallet-history response body. Numbers are kept as
// json.Number so amounts survive with their original digits.
func DecodeHistory(r io.Reader) (domain.RawHistoryPage, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var decoded historyResponse
	if err := decoder.Decode(&decoded); err != nil {
		return domain.RawHistoryPage{}, fmt.Errorf("decode moralis history: %w", err)
	}

	records := decoded.Result
	if records == nil {
		records = decoded.Transactions
	}
	if records == nil {
		records = []domain.RawTransaction{}
	}

	page := domain.RawHistoryPage{Cursor: decoded.Cursor, Transactions: records}
	if decoded.Total != nil {
		total, err := decoded.Total.Int64()
		if err != nil {
			return domain.RawHistoryPage{}, errors.New("decode moralis history: total is not an integer")
		}
		page.Total = &total
	}
	return page, nil
}
