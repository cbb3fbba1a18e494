// Package pricesource provides quote fetching for tracked symbols.
package pricesource

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Result is the fetch outcome for one symbol: a price or a typed error.
type Result struct {
	Price decimal.Decimal
	Err   error
}

// OK returns true if the symbol was fetched successfully.
func (r Result) OK() bool {
	return r.Err == nil
}

// FetchError describes a per-symbol fetch failure.
type FetchError struct {
	Symbol string
	Reason string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s", e.Symbol, e.Reason)
}

// Source fetches the latest price for a set of symbols.
//
// Implementations must return a Result for every requested symbol; a
// failure for one symbol never suppresses results for the others. The
// scheduler calls Fetch once per tick with the deduplicated symbol set,
// so implementations need no per-alert caching.
type Source interface {
	Fetch(ctx context.Context, symbols []string) (map[string]Result, error)
}

// errorResults maps every requested symbol to the same failure reason.
func errorResults(symbols []string, reason string) map[string]Result {
	results := make(map[string]Result, len(symbols))
	for _, s := range symbols {
		results[s] = Result{Err: &FetchError{Symbol: s, Reason: reason}}
	}
	return results
}
