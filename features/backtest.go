package features

import (
	"context"
	"sort"
)

// Evaluate combines the model's predictions with the historical features
// into the backtest table, derives the evaluation metrics table from it,
// and logs the metrics.
func (c *Creator) Evaluate(ctx context.Context) error {
	global := c.config.Global

	err := c.createTable(ctx, tableStep{
		step:        StepBacktest,
		queryKey:    StepBacktest,
		table:       global.BacktestTable,
		partitioned: true,
	})
	if err != nil {
		return err
	}

	// The metrics table holds only aggregate rows and stays unpartitioned.
	err = c.createTable(ctx, tableStep{
		step:        StepBacktestMetrics,
		queryKey:    StepBacktestMetrics,
		table:       global.BacktestMetricsTable,
		partitioned: false,
	})
	if err != nil {
		return err
	}

	return c.reportMetrics(ctx)
}

// reportMetrics reads the freshly built metrics table back and logs each
// row, so a run's quality is visible without opening the warehouse.
func (c *Creator) reportMetrics(ctx context.Context) error {
	rows, err := c.wh.ReadTable(ctx, c.config.Global.ForecastingDataset,
		c.config.Global.BacktestMetricsTable, 100)
	if err != nil {
		return err
	}

	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		args := make([]any, 0, len(row)*2)
		for _, col := range cols {
			args = append(args, col, row[col])
		}
		c.logger.Info("backtest metric", args...)
	}

	return nil
}
