package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"BudgetCast/internal/domain/models"
	domrepo "BudgetCast/internal/domain/repository"
	"BudgetCast/internal/services/features"
	"BudgetCast/pkg/logger"
	"BudgetCast/pkg/util"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteTransactionStore reads the transaction service's SQLite database.
type SQLiteTransactionStore struct {
	db  *sql.DB
	log *logger.Logger
}

var _ domrepo.TransactionStore = (*SQLiteTransactionStore)(nil)

// NewSQLiteTransactionStore opens dbPath, optionally applying migrations first.
func NewSQLiteTransactionStore(ctx context.Context, dbPath string, runMigrations bool, l *logger.Logger) (*SQLiteTransactionStore, error) {
	if l == nil {
		l = logger.Nop()
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	if runMigrations {
		if err := RunMigrations(dbPath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &SQLiteTransactionStore{db: db, log: l}, nil
}

// RunMigrations applies the embedded schema migrations to dbPath.
func RunMigrations(dbPath string) error {
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := migratesqlite.WithInstance(migrateDB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const expenseTransactionsQuery = `
	SELECT t.id, t.person_id, CAST(t.date AS TEXT), CAST(t.amount AS TEXT), c.name, c.type
	FROM transactions t
	JOIN categories c ON t.category_id = c.id
	WHERE t.person_id = ? AND c.type = 'expense'
	ORDER BY t.date, t.id`

func (s *SQLiteTransactionStore) ExpenseTransactions(ctx context.Context, personID int64) ([]models.Transaction, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, expenseTransactionsQuery, personID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var (
			tx           models.Transaction
			date, amount string
			kind         string
		)
		if err := rows.Scan(&tx.ID, &tx.PersonID, &date, &amount, &tx.Category, &kind); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if tx.Date, err = util.ParseDate(date); err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %v", features.ErrMalformedTransaction, tx.ID, err)
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

	s.log.Debug("SQLite expense transactions loaded",
		logger.PersonID(personID),
		logger.Int("rows", len(out)),
		logger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *SQLiteTransactionStore) ExpenseCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM categories WHERE type = 'expense' ORDER BY name`)
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

// UpsertCategory inserts a category if missing and returns its id.
func (s *SQLiteTransactionStore) UpsertCategory(ctx context.Context, name string, kind models.Kind) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO categories(name, type) VALUES(?, ?) ON CONFLICT(name) DO NOTHING`, name, string(kind)); err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select category: %w", err)
	}
	return id, nil
}

// InsertTransaction books tx under its category, creating the category when needed.
func (s *SQLiteTransactionStore) InsertTransaction(ctx context.Context, tx models.Transaction, title string) (int64, error) {
	kind := tx.Kind
	if kind == "" {
		kind = models.KindExpense
	}
	catID, err := s.UpsertCategory(ctx, tx.Category, kind)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions(person_id, category_id, title, amount, date) VALUES(?, ?, ?, ?, ?)`,
		tx.PersonID, catID, title, tx.Amount.InexactFloat64(), tx.Date.Format(util.DateLayout))
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return res.LastInsertId()
}

func (s *SQLiteTransactionStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteTransactionStore) Close() error {
	return s.db.Close()
}
