package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoethonDev/stockwatcher/internal/models"
)

// sqliteCompanyRepo implements CompanyRepository using SQLite.
type sqliteCompanyRepo struct {
	db *sql.DB
}

func (r *sqliteCompanyRepo) Create(ctx context.Context, company *models.Company) error {
	if company.ID == "" {
		company.ID = uuid.New().String()
	}

	query := `
		INSERT INTO companies (id, symbol, name, current_price, price_updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		company.ID, company.Symbol, company.Name, company.CurrentPrice.String(),
		nullTime(company.PriceUpdatedAt), company.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (r *sqliteCompanyRepo) GetByID(ctx context.Context, id string) (*models.Company, error) {
	return r.getBy(ctx, "id", id)
}

func (r *sqliteCompanyRepo) GetBySymbol(ctx context.Context, symbol string) (*models.Company, error) {
	return r.getBy(ctx, "symbol", strings.ToUpper(symbol))
}

func (r *sqliteCompanyRepo) getBy(ctx context.Context, column, value string) (*models.Company, error) {
	query := fmt.Sprintf(`
		SELECT id, symbol, name, current_price, price_updated_at, created_at
		FROM companies WHERE %s = ?
	`, column)

	company, err := scanCompany(r.db.QueryRowContext(ctx, query, value))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query company: %w", err)
	}
	return company, nil
}

func (r *sqliteCompanyRepo) List(ctx context.Context) ([]*models.Company, error) {
	query := `
		SELECT id, symbol, name, current_price, price_updated_at, created_at
		FROM companies ORDER BY symbol
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

func (r *sqliteCompanyRepo) UpdatePrices(ctx context.Context, prices map[string]decimal.Decimal, at time.Time) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin price update: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"UPDATE companies SET current_price = ?, price_updated_at = ? WHERE symbol = ?")
	if err != nil {
		return fmt.Errorf("prepare price update: %w", err)
	}
	defer stmt.Close()

	for symbol, price := range prices {
		if _, err := stmt.ExecContext(ctx, price.String(), at, strings.ToUpper(symbol)); err != nil {
			return fmt.Errorf("update price for %s: %w", symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price update: %w", err)
	}
	return nil
}

func (r *sqliteCompanyRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM companies").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return count, nil
}

func scanCompany(row scanner) (*models.Company, error) {
	company := &models.Company{}
	var name sql.NullString
	var priceStr string
	var priceUpdatedAt sql.NullTime

	err := row.Scan(
		&company.ID, &company.Symbol, &name, &priceStr, &priceUpdatedAt, &company.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	company.Name = name.String
	company.PriceUpdatedAt = timePtr(priceUpdatedAt)

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", priceStr, err)
	}
	company.CurrentPrice = price

	return company, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
