package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/service"
)

// importSummary totals every window of one import.
type importSummary struct {
	Total        int                  `json:"total"`
	SuccessCount int                  `json:"successCount"`
	FailCount    int                  `json:"failCount"`
	Errors       []service.BatchError `json:"errors"`
}

func newImportCmd(c *cli) *cobra.Command {
	var (
		key       string
		batchSize int
		start     int
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Bulk import an exported feed (a JSON array of records)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				key = os.Getenv("BREWLOG_IMPORT_KEY")
			}
			records, err := readExport(args[0])
			if err != nil {
				return err
			}
			a, err := c.open(cmd)
			if err != nil {
				return err
			}

			sum := importSummary{Errors: []service.BatchError{}}
			next := start
			for {
				res, err := a.remote.BatchPublish(cmd.Context(), key, service.BatchInput{
					Records:    records,
					BatchSize:  batchSize,
					StartIndex: next,
				})
				if err != nil {
					return err
				}
				sum.Total = res.Total
				sum.SuccessCount += res.SuccessCount
				sum.FailCount += res.FailCount
				sum.Errors = append(sum.Errors, res.Errors...)
				a.logger.Info("import window done",
					slog.Int("processed", res.Processed),
					slog.Int("remaining", res.Remaining),
				)
				if !c.jsonOut {
					c.status.Info("imported %d/%d", res.Processed, res.Total)
				}
				if res.NextIndex == nil {
					break
				}
				next = *res.NextIndex
			}

			if c.jsonOut {
				return printJSON(c.out, sum)
			}
			if sum.FailCount == 0 {
				c.ui.Success("done: %d ok of %d", sum.SuccessCount, sum.Total)
				return nil
			}
			c.ui.Warning("done: %d ok, %d failed of %d", sum.SuccessCount, sum.FailCount, sum.Total)
			rows := make([][]string, len(sum.Errors))
			for i, e := range sum.Errors {
				rows[i] = []string{e.BeanID, e.BeanName, e.Error}
			}
			c.ui.Table([]string{"BEAN ID", "NAME", "ERROR"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "bulk import key (default $BREWLOG_IMPORT_KEY)")
	cmd.Flags().IntVar(&batchSize, "batch-size", service.DefaultBatchSize, "records per request")
	cmd.Flags().IntVar(&start, "start", 0, "index to resume from")
	return cmd
}

func readExport(path string) ([]model.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []model.Payload
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%s: expected a JSON array of records: %w", path, err)
	}
	return records, nil
}
