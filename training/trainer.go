package training

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/demandcast/demandcast/config"
)

// Trainer runs the full training flow against a Service: dataset creation,
// data import, column configuration, and model training. Both long-running
// steps are waited on, so Train blocks until the model exists or something
// fails.
type Trainer struct {
	config  *config.Config
	service Service
	logger  *slog.Logger
}

// NewTrainer creates a trainer over the given service.
func NewTrainer(cfg *config.Config, service Service) (*Trainer, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if service == nil {
		return nil, errors.New("training service is required")
	}

	return &Trainer{
		config:  cfg,
		service: service,
		logger:  slog.Default().With("component", "trainer"),
	}, nil
}

// Train creates the training dataset, imports the train-split feature
// table, applies the configured column specs and column roles, and trains
// the forecasting model.
func (t *Trainer) Train(ctx context.Context) error {
	if err := t.validate(); err != nil {
		return err
	}

	global := t.config.Global
	model := t.config.Model

	dataset, err := t.service.CreateDataset(ctx, global.DatasetDisplayName)
	if err != nil {
		return err
	}

	sourceURI := fmt.Sprintf("bq://%s.%s.%s",
		global.ProjectID, global.ForecastingDataset, global.ForecastingFeaturesTrainTable)
	t.logger.Info("importing training data", "source", sourceURI)

	op, err := t.service.ImportData(ctx, dataset.Name, sourceURI)
	if err != nil {
		return err
	}
	if err := t.service.WaitOperation(ctx, op.Name); err != nil {
		return fmt.Errorf("waiting for import: %w", err)
	}

	for _, column := range sortedColumns(model.Columns) {
		spec := model.Columns[column]
		err := t.service.UpdateColumnSpec(ctx, dataset.Name, column, ColumnSpec{
			TypeCode:        spec.TypeCode,
			Nullable:        spec.Nullable,
			ForecastingType: spec.ForecastingType,
		})
		if err != nil {
			return err
		}
	}

	if err := t.service.SetTimeColumn(ctx, dataset.Name, model.TimeColumn); err != nil {
		return err
	}
	if err := t.service.SetTargetColumn(ctx, dataset.Name, model.TargetColumn); err != nil {
		return err
	}
	if model.SplitColumn != "" {
		if err := t.service.SetSplitColumn(ctx, dataset.Name, model.SplitColumn); err != nil {
			return err
		}
	}
	if model.WeightColumn != "" {
		if err := t.service.SetWeightColumn(ctx, dataset.Name, model.WeightColumn); err != nil {
			return err
		}
	}

	// Budgets are configured in hours; the service bills in
	// milli-node-hours.
	op, err = t.service.CreateModel(ctx, dataset.Name, ModelSpec{
		DisplayName:               global.ModelDisplayName,
		GranularityUnit:           global.GranularityUnit,
		HorizonPeriods:            global.HorizonPeriods,
		TrainBudgetMilliNodeHours: int64(model.TrainBudgetHours * 1000),
		ExcludeColumns:            model.ExcludeColumns,
		OptimizationObjective:     model.OptimizationObjective,
	})
	if err != nil {
		return err
	}
	if err := t.service.WaitOperation(ctx, op.Name); err != nil {
		return fmt.Errorf("waiting for training: %w", err)
	}

	t.logger.Info("model training complete", "display_name", global.ModelDisplayName)
	return nil
}

func (t *Trainer) validate() error {
	global := t.config.Global
	model := t.config.Model

	switch {
	case global.DatasetDisplayName == "":
		return fmt.Errorf("%w: global.dataset_display_name is required", ErrInvalidModelConfig)
	case global.ModelDisplayName == "":
		return fmt.Errorf("%w: global.model_display_name is required", ErrInvalidModelConfig)
	case global.GranularityUnit == "":
		return fmt.Errorf("%w: global.granularity_unit is required", ErrInvalidModelConfig)
	case global.HorizonPeriods <= 0:
		return fmt.Errorf("%w: global.horizon_periods must be positive", ErrInvalidModelConfig)
	case model.TimeColumn == "":
		return fmt.Errorf("%w: model.time_column is required", ErrInvalidModelConfig)
	case model.TargetColumn == "":
		return fmt.Errorf("%w: model.target_column is required", ErrInvalidModelConfig)
	case model.TrainBudgetHours <= 0:
		return fmt.Errorf("%w: model.train_budget_hours must be positive", ErrInvalidModelConfig)
	}
	return nil
}

// sortedColumns returns the column names in deterministic order; YAML maps
// do not preserve one.
func sortedColumns(columns map[string]config.ColumnSpec) []string {
	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
