package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// DefaultFMPBaseURL is the production quote endpoint base.
const DefaultFMPBaseURL = "https://financialmodelingprep.com"

// FMPConfig holds Financial Modeling Prep client configuration.
type FMPConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerMinute paces upstream calls; the free FMP tier rate
	// limits aggressively. Zero disables pacing.
	RequestsPerMinute int
}

// Validate validates the FMP configuration.
func (c *FMPConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	return nil
}

// FMPSource fetches quotes from the Financial Modeling Prep API using
// one batched request per call, the same shape the upstream quote
// endpoint expects: /api/v3/quote/SYM1,SYM2,...
type FMPSource struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewFMPSource creates a Financial Modeling Prep quote source.
func NewFMPSource(cfg FMPConfig) (*FMPSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid fmp config: %w", err)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultFMPBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &FMPSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: limiter,
	}, nil
}

// fmpQuote is one entry of the quote endpoint's JSON array response.
type fmpQuote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// Fetch fetches the latest quotes for all symbols in a single request.
// Transport and decode failures are reported per symbol so the caller
// can keep evaluating alerts on symbols from other sources; the returned
// error is non-nil only when the call could not be attempted at all.
func (s *FMPSource) Fetch(ctx context.Context, symbols []string) (map[string]Result, error) {
	if len(symbols) == 0 {
		return map[string]Result{}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := fmt.Sprintf("%s/api/v3/quote/%s?apikey=%s",
		s.baseURL,
		url.PathEscape(strings.Join(symbols, ",")),
		url.QueryEscape(s.apiKey),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errorResults(symbols, fmt.Sprintf("request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return errorResults(symbols, "upstream rate limit exceeded"), nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errorResults(symbols, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body))), nil
	}

	var quotes []fmpQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return errorResults(symbols, fmt.Sprintf("decode response: %v", err)), nil
	}

	bySymbol := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		bySymbol[strings.ToUpper(q.Symbol)] = q.Price
	}

	results := make(map[string]Result, len(symbols))
	for _, sym := range symbols {
		price, ok := bySymbol[strings.ToUpper(sym)]
		if !ok {
			results[sym] = Result{Err: &FetchError{Symbol: sym, Reason: "no quote in response"}}
			continue
		}
		if !price.IsPositive() {
			results[sym] = Result{Err: &FetchError{Symbol: sym, Reason: fmt.Sprintf("non-positive price %s", price)}}
			continue
		}
		results[sym] = Result{Price: price}
	}

	return results, nil
}
