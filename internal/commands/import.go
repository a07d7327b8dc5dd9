package commands

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/repository"
	"BudgetCast/pkg/util"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type importResult struct {
	PersonID int64 `json:"person_id"`
	Imported int   `json:"imported"`
}

func newImportCommand(opts *globalOptions) *cobra.Command {
	var (
		personID int64
		file     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load transactions from a CSV file into the SQLite store",
		Long: "The CSV needs a header row with date, category and amount columns; " +
			"title and kind (expense or income) are optional.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Store.Type != "sqlite" {
				return fmt.Errorf("import writes to the sqlite store, configured store is %q", cfg.Store.Type)
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			rows, err := readTransactions(f, personID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			store, err := repository.NewSQLiteTransactionStore(ctx, cfg.Store.SQLitePath, cfg.Store.Migrate, nil)
			if err != nil {
				return err
			}
			defer store.Close()

			for i, r := range rows {
				if _, err := store.InsertTransaction(ctx, r.tx, r.title); err != nil {
					return fmt.Errorf("row %d: %w", i+2, err)
				}
			}
			return printJSON(cmd.OutOrStdout(), importResult{PersonID: personID, Imported: len(rows)})
		},
	}
	cmd.Flags().Int64Var(&personID, "person", 0, "person id owning the transactions (required)")
	cmd.Flags().StringVar(&file, "file", "", "CSV file (required)")
	_ = cmd.MarkFlagRequired("person")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

type csvRow struct {
	tx    models.Transaction
	title string
}

// readTransactions parses every row up front so a bad file imports nothing.
func readTransactions(r io.Reader, personID int64) ([]csvRow, error) {
	if personID <= 0 {
		return nil, errors.New("person must be positive")
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date", "category", "amount"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("csv header is missing %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []csvRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := util.ParseDate(field(rec, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		amount, err := decimal.NewFromString(field(rec, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: amount: %w", line, err)
		}
		category := field(rec, "category")
		if category == "" {
			return nil, fmt.Errorf("line %d: empty category", line)
		}
		kind := models.Kind(strings.ToLower(field(rec, "kind")))
		switch kind {
		case "":
			kind = models.KindExpense
		case models.KindExpense, models.KindIncome:
		default:
			return nil, fmt.Errorf("line %d: unknown kind %q", line, kind)
		}

		out = append(out, csvRow{
			tx: models.Transaction{
				PersonID: personID,
				Date:     date,
				Amount:   amount,
				Category: category,
				Kind:     kind,
			},
			title: field(rec, "title"),
		})
	}
	return out, nil
}

func newMigrateCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the SQLite schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Store.Type != "sqlite" {
				return fmt.Errorf("migrations apply to the sqlite store, configured store is %q", cfg.Store.Type)
			}
			if err := repository.RunMigrations(cfg.Store.SQLitePath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s\n", cfg.Store.SQLitePath)
			return nil
		},
	}
}
