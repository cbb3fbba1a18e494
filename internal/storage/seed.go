package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/models"
)

// SeedStock describes one company in the default symbol universe.
// The price is a reference value used until the first real quote lands,
// and by the static price source in development.
type SeedStock struct {
	Symbol string
	Name   string
	Price  decimal.Decimal
}

func seedStock(symbol, name, price string) SeedStock {
	return SeedStock{
		Symbol: symbol,
		Name:   name,
		Price:  decimal.RequireFromString(price),
	}
}

// DefaultStocks is the default tracked symbol universe.
var DefaultStocks = []SeedStock{
	seedStock("AAPL", "Apple Inc.", "190.00"),
	seedStock("TSLA", "Tesla, Inc.", "250.00"),
	seedStock("AMZN", "Amazon.com, Inc.", "180.00"),
	seedStock("MSFT", "Microsoft Corporation", "420.00"),
	seedStock("NVDA", "NVIDIA Corporation", "120.00"),
	seedStock("GOOGL", "Alphabet Inc.", "165.00"),
	seedStock("META", "Meta Platforms, Inc.", "500.00"),
	seedStock("NFLX", "Netflix, Inc.", "650.00"),
	seedStock("JPM", "JPMorgan Chase & Co.", "200.00"),
	seedStock("V", "Visa Inc.", "270.00"),
	seedStock("BAC", "Bank of America Corporation", "40.00"),
	seedStock("AMD", "Advanced Micro Devices, Inc.", "160.00"),
	seedStock("PYPL", "PayPal Holdings, Inc.", "65.00"),
	seedStock("DIS", "The Walt Disney Company", "100.00"),
	seedStock("T", "AT&T Inc.", "19.00"),
	seedStock("PFE", "Pfizer Inc.", "28.00"),
	seedStock("COST", "Costco Wholesale Corporation", "850.00"),
	seedStock("INTC", "Intel Corporation", "30.00"),
	seedStock("KO", "The Coca-Cola Company", "62.00"),
	seedStock("TGT", "Target Corporation", "150.00"),
	seedStock("NKE", "NIKE, Inc.", "95.00"),
	seedStock("SPY", "SPDR S&P 500 ETF Trust", "540.00"),
	seedStock("BA", "The Boeing Company", "180.00"),
	seedStock("BABA", "Alibaba Group Holding Limited", "80.00"),
	seedStock("XOM", "Exxon Mobil Corporation", "115.00"),
	seedStock("WMT", "Walmart Inc.", "68.00"),
	seedStock("GE", "General Electric Company", "160.00"),
	seedStock("CSCO", "Cisco Systems, Inc.", "47.00"),
	seedStock("VZ", "Verizon Communications Inc.", "40.00"),
	seedStock("JNJ", "Johnson & Johnson", "150.00"),
	seedStock("CVX", "Chevron Corporation", "155.00"),
	seedStock("PLTR", "Palantir Technologies Inc.", "25.00"),
	seedStock("SHOP", "Shopify Inc.", "65.00"),
	seedStock("SBUX", "Starbucks Corporation", "78.00"),
	seedStock("SOFI", "SoFi Technologies, Inc.", "7.50"),
	seedStock("HOOD", "Robinhood Markets, Inc.", "20.00"),
	seedStock("RBLX", "Roblox Corporation", "38.00"),
	seedStock("SNAP", "Snap Inc.", "12.00"),
	seedStock("UBER", "Uber Technologies, Inc.", "70.00"),
	seedStock("FDX", "FedEx Corporation", "260.00"),
	seedStock("ABBV", "AbbVie Inc.", "170.00"),
	seedStock("MRNA", "Moderna, Inc.", "110.00"),
	seedStock("LMT", "Lockheed Martin Corporation", "460.00"),
	seedStock("GM", "General Motors Company", "45.00"),
	seedStock("F", "Ford Motor Company", "12.00"),
	seedStock("RIVN", "Rivian Automotive, Inc.", "12.00"),
	seedStock("LCID", "Lucid Group, Inc.", "3.00"),
	seedStock("TSM", "Taiwan Semiconductor Manufacturing Company", "170.00"),
	seedStock("SONY", "Sony Group Corporation", "85.00"),
	seedStock("COIN", "Coinbase Global, Inc.", "220.00"),
	seedStock("ROKU", "Roku, Inc.", "60.00"),
	seedStock("ZM", "Zoom Video Communications, Inc.", "60.00"),
	seedStock("PINS", "Pinterest, Inc.", "40.00"),
	seedStock("NIO", "NIO Inc.", "5.00"),
	seedStock("GS", "The Goldman Sachs Group, Inc.", "450.00"),
	seedStock("WFC", "Wells Fargo & Company", "58.00"),
	seedStock("ADBE", "Adobe Inc.", "550.00"),
	seedStock("PEP", "PepsiCo, Inc.", "170.00"),
	seedStock("UNH", "UnitedHealth Group Incorporated", "500.00"),
}

// SeedCompanies inserts any missing companies from the default symbol
// universe. Existing symbols keep their cached prices. Returns the
// number of companies created.
func SeedCompanies(ctx context.Context, store Storage) (int, error) {
	created := 0
	for _, stock := range DefaultStocks {
		existing, err := store.Companies().GetBySymbol(ctx, stock.Symbol)
		if err != nil {
			return created, fmt.Errorf("lookup %s: %w", stock.Symbol, err)
		}
		if existing != nil {
			continue
		}

		company := models.NewCompany(stock.Symbol, stock.Name)
		company.CurrentPrice = stock.Price
		if err := store.Companies().Create(ctx, company); err != nil {
			return created, fmt.Errorf("create %s: %w", stock.Symbol, err)
		}
		created++
	}
	return created, nil
}
