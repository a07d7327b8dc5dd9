package commands

import (
	"context"
	"fmt"
	"strings"

	"BudgetCast/internal/domain/models"
	xhttp "BudgetCast/pkg/http"

	"github.com/spf13/cobra"
)

// withCore opens the forecasting stack for the duration of run.
func withCore(cmd *cobra.Command, opts *globalOptions, run func(ctx context.Context, c *core) (interface{}, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	res, err := run(ctx, c)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func validate(req interface{}) error {
	verrs := xhttp.ValidateStruct(req)
	if len(verrs) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(verrs))
	for _, v := range verrs {
		msgs = append(msgs, v.Message)
	}
	return fmt.Errorf("invalid arguments: %s", strings.Join(msgs, "; "))
}

func newSummaryCommand(opts *globalOptions) *cobra.Command {
	var personID int64

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show spending statistics and model state for a person",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := models.PersonRequest{PersonID: personID}
			if err := validate(&req); err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, c *core) (interface{}, error) {
				return c.uc.Summary(ctx, req.PersonID)
			})
		},
	}
	cmd.Flags().Int64Var(&personID, "person", 0, "person id (required)")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func newForecastCommand(opts *globalOptions) *cobra.Command {
	var (
		personID int64
		category string
		months   int
		month    int
		year     int
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast every category for a month, or one category months ahead",
		Long: "Without --category the command prints the month overview for --month/--year " +
			"(default: the current month). With --category it walks --months months forward.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if category == "" {
				req := models.ForecastAllRequest{PersonID: personID, Month: month, Year: year}
				if err := validate(&req); err != nil {
					return err
				}
				return withCore(cmd, opts, func(ctx context.Context, c *core) (interface{}, error) {
					return c.uc.ForecastAll(ctx, req)
				})
			}

			req := models.ForecastRequest{PersonID: personID, Category: category, Months: months}
			if err := validate(&req); err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, c *core) (interface{}, error) {
				return c.uc.Forecast(ctx, req)
			})
		},
	}
	cmd.Flags().Int64Var(&personID, "person", 0, "person id (required)")
	cmd.Flags().StringVar(&category, "category", "", "forecast a single category")
	cmd.Flags().IntVar(&months, "months", 3, "months ahead for a single category")
	cmd.Flags().IntVar(&month, "month", 0, "target month (1-12) of the overview")
	cmd.Flags().IntVar(&year, "year", 0, "target year of the overview")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func newStatsCommand(opts *globalOptions) *cobra.Command {
	var (
		personID int64
		category string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics and trend of one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := models.CategoryStatsRequest{PersonID: personID, Category: category}
			if err := validate(&req); err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, c *core) (interface{}, error) {
				return c.uc.CategoryStats(ctx, req)
			})
		},
	}
	cmd.Flags().Int64Var(&personID, "person", 0, "person id (required)")
	cmd.Flags().StringVar(&category, "category", "", "category name (required)")
	_ = cmd.MarkFlagRequired("person")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newImportanceCommand(opts *globalOptions) *cobra.Command {
	var personID int64

	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Show feature importances of a person's model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := models.PersonRequest{PersonID: personID}
			if err := validate(&req); err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, c *core) (interface{}, error) {
				return c.uc.FeatureImportance(ctx, req.PersonID)
			})
		},
	}
	cmd.Flags().Int64Var(&personID, "person", 0, "person id (required)")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}

func newTrainCommand(opts *globalOptions) *cobra.Command {
	var personID int64

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a person's model and print its metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := models.PersonRequest{PersonID: personID}
			if err := validate(&req); err != nil {
				return err
			}
			return withCore(cmd, opts, func(ctx context.Context, c *core) (interface{}, error) {
				return c.uc.RetrainNow(ctx, req.PersonID)
			})
		},
	}
	cmd.Flags().Int64Var(&personID, "person", 0, "person id (required)")
	_ = cmd.MarkFlagRequired("person")
	return cmd
}
