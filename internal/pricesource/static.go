package pricesource

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// StaticSource serves fixed in-memory quotes. It backs the demo mode and
// the scheduler tests, where deterministic prices matter more than live
// data.
type StaticSource struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewStaticSource creates a static source with the given prices.
func NewStaticSource(prices map[string]decimal.Decimal) *StaticSource {
	copied := make(map[string]decimal.Decimal, len(prices))
	for sym, p := range prices {
		copied[sym] = p
	}
	return &StaticSource{prices: copied}
}

// SetPrice sets or replaces the quote for a symbol.
func (s *StaticSource) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Remove drops a symbol so subsequent fetches fail for it.
func (s *StaticSource) Remove(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, symbol)
}

// Fetch returns the stored quote for every requested symbol. Symbols
// without a stored price get a FetchError, mirroring how a live source
// reports per-symbol failures.
func (s *StaticSource) Fetch(ctx context.Context, symbols []string) (map[string]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]Result, len(symbols))
	for _, sym := range symbols {
		price, ok := s.prices[sym]
		if !ok {
			results[sym] = Result{Err: &FetchError{Symbol: sym, Reason: "no price configured"}}
			continue
		}
		results[sym] = Result{Price: price}
	}
	return results, nil
}
