// Copyright 2025 Demandcast Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package features

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/demandcast/demandcast/config"
	"github.com/demandcast/demandcast/warehouse"
)

// Pipeline step names. Steps key both the query_files and query_params
// config sections; the two feature splits share the split query file.
const (
	StepWeeklySales                = "weekly_sales"
	StepForecastingFeatures        = "forecasting_features"
	StepForecastingFeaturesSplit   = "forecasting_features_split"
	StepForecastingFeaturesTrain   = "forecasting_features_train"
	StepForecastingFeaturesPredict = "forecasting_features_predict"
	StepBacktest                   = "backtest"
	StepBacktestMetrics            = "backtest_metrics"
)

// Creator builds the feature and evaluation tables from the configured SQL
// templates.
type Creator struct {
	config *config.Config
	wh     warehouse.Client
	logger *slog.Logger
}

// NewCreator creates a feature table creator.
func NewCreator(cfg *config.Config, wh warehouse.Client) (*Creator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if wh == nil {
		return nil, errors.New("warehouse client is required")
	}

	return &Creator{
		config: cfg,
		wh:     wh,
		logger: slog.Default().With("component", "features"),
	}, nil
}

// tableStep binds a parameter step to its query file and destination table.
type tableStep struct {
	step        string
	queryKey    string
	table       string
	partitioned bool
}

// CreateFeatures assembles weekly sales from the clean source data, derives
// the forecasting features, and writes the training and prediction splits.
func (c *Creator) CreateFeatures(ctx context.Context) error {
	global := c.config.Global

	if err := c.wh.CreateDataset(ctx, global.ForecastingDataset); err != nil {
		return err
	}

	steps := []tableStep{
		{step: StepWeeklySales, queryKey: StepWeeklySales, table: global.WeeklySalesTable, partitioned: true},
		{step: StepForecastingFeatures, queryKey: StepForecastingFeatures, table: global.ForecastingFeaturesTable, partitioned: true},
		{step: StepForecastingFeaturesTrain, queryKey: StepForecastingFeaturesSplit, table: global.ForecastingFeaturesTrainTable, partitioned: true},
		{step: StepForecastingFeaturesPredict, queryKey: StepForecastingFeaturesSplit, table: global.ForecastingFeaturesPredictTable, partitioned: true},
	}

	for _, s := range steps {
		if err := c.createTable(ctx, s); err != nil {
			return err
		}
	}

	return nil
}

// createTable renders one step's query template and replaces its
// destination table with the results.
func (c *Creator) createTable(ctx context.Context, s tableStep) error {
	params := c.config.Params(s.step)
	formatDepartments(params)

	queryPath, err := c.config.QueryPath(s.queryKey)
	if err != nil {
		return err
	}
	template, err := warehouse.LoadQuery(queryPath)
	if err != nil {
		return fmt.Errorf("step %s: %w", s.step, err)
	}
	query, err := warehouse.RenderTemplate(template, params)
	if err != nil {
		return fmt.Errorf("step %s: %w", s.step, err)
	}

	partitionField := ""
	if s.partitioned {
		field, _ := params["partition_field"].(string)
		if field == "" {
			return fmt.Errorf("step %s: partition_field parameter is required", s.step)
		}
		partitionField = field
	}

	c.logger.Info("building table", "step", s.step, "table", s.table)
	return c.wh.CreateTableFromQuery(ctx, warehouse.Job{
		Query:          query,
		Dataset:        c.config.Global.ForecastingDataset,
		Table:          s.table,
		PartitionField: partitionField,
	})
}

// formatDepartments renders a departments list parameter as a quoted SQL
// list, so ["210", "132"] reaches the template as '210', '132'.
func formatDepartments(params map[string]any) {
	raw, ok := params["departments"]
	if !ok {
		return
	}
	list, ok := raw.([]any)
	if !ok {
		return
	}

	values := make([]string, len(list))
	for i, v := range list {
		values[i] = fmt.Sprintf("%v", v)
	}
	params["departments"] = warehouse.FormatList(values)
}
