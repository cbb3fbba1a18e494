// Package models defines domain models for stockwatcher.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Company is the immutable reference record for a tracked stock symbol.
// The symbol set is fixed at seed time; only the cached price moves.
type Company struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	Name           string          `json:"name,omitempty"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	PriceUpdatedAt *time.Time      `json:"price_updated_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// NewCompany creates a Company with a normalized upper-case symbol.
func NewCompany(symbol, name string) *Company {
	return &Company{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Name:      name,
		CreatedAt: time.Now(),
	}
}
