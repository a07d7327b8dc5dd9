package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BudgetCast/internal/domain/models"
	domrepo "BudgetCast/internal/domain/repository"
	"BudgetCast/internal/services/features"
	pkgch "BudgetCast/pkg/clickhouse"
	"BudgetCast/pkg/logger"

	"github.com/shopspring/decimal"
)

// ClickHouseSchema creates the replicated transactions table.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id            Int64,
		person_id     Int64,
		date          Date,
		amount        Decimal(18, 2),
		category      LowCardinality(String),
		category_type LowCardinality(String)
	) ENGINE = ReplacingMergeTree
	ORDER BY (person_id, date, id)`,
	`CREATE TABLE IF NOT EXISTS categories (
		name String,
		type LowCardinality(String)
	) ENGINE = ReplacingMergeTree
	ORDER BY name`,
}

// ClickHouseTransactionStore reads a denormalised transactions replica.
type ClickHouseTransactionStore struct {
	client *pkgch.Client
	db     *sql.DB
	l      *logger.Logger
}

var _ domrepo.TransactionStore = (*ClickHouseTransactionStore)(nil)

func NewClickHouseTransactionStore(ch *pkgch.Client, l *logger.Logger) *ClickHouseTransactionStore {
	if l == nil {
		l = logger.Nop()
	}
	return &ClickHouseTransactionStore{client: ch, db: ch.DB(), l: l}
}

// Init creates the tables when absent.
func (s *ClickHouseTransactionStore) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, ClickHouseSchema)
}

func (s *ClickHouseTransactionStore) ExpenseTransactions(ctx context.Context, personID int64) ([]models.Transaction, error) {
	start := time.Now()
	const q = `
		SELECT id, person_id, date, toString(amount), category, category_type
		FROM transactions FINAL
		WHERE person_id = ? AND category_type = 'expense'
		ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, q, personID)
	if err != nil {
		s.l.Error("ClickHouse transactions query failed", logger.PersonID(personID), logger.Error(err))
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0, 256)
	for rows.Next() {
		var (
			tx     models.Transaction
			amount string
			kind   string
		)
		if err := rows.Scan(&tx.ID, &tx.PersonID, &tx.Date, &amount, &tx.Category, &kind); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: transaction %d amount %q", features.ErrMalformedTransaction, tx.ID, amount)
		}
		tx.Kind = models.Kind(kind)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("ClickHouse expense transactions loaded",
		logger.PersonID(personID),
		logger.Int("rows", len(out)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *ClickHouseTransactionStore) ExpenseCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT name FROM categories FINAL WHERE type = 'expense' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *ClickHouseTransactionStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close releases the underlying client; the store owns it.
func (s *ClickHouseTransactionStore) Close() error {
	return s.client.Close()
}
