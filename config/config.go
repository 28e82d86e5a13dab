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


package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/demandcast/demandcast/core"
)

// Scheduling defaults for the annotation step.
const (
	DefaultBatchSize    = 2500
	DefaultWorkers      = 8
	DefaultIntervalSecs = 60
	DefaultMaxShardSize = 50000
)

// DefaultLanguageEndpoint is the production annotation API host.
const DefaultLanguageEndpoint = "https://language.googleapis.com"

// DefaultTrainingEndpoint is the production forecasting-training host.
const DefaultTrainingEndpoint = "https://automl.googleapis.com"

// Default source columns for the annotation step.
const (
	DefaultRecordIDColumn  = "complaint_id"
	DefaultNarrativeColumn = "consumer_complaint_narrative"
)

// Config is the parsed pipeline configuration.
type Config struct {
	Global      Global                    `yaml:"global"`
	FilePaths   FilePaths                 `yaml:"file_paths"`
	QueryFiles  map[string]string         `yaml:"query_files"`
	QueryParams map[string]map[string]any `yaml:"query_params"`
	Model       Model                     `yaml:"model"`

	raw          []byte
	globalParams map[string]any
}

// Global holds project-wide settings shared by every pipeline step.
type Global struct {
	ProjectID     string `yaml:"project_id"`
	ComputeRegion string `yaml:"automl_compute_region"`

	ForecastingDataset              string `yaml:"forecasting_dataset"`
	WeeklySalesTable                string `yaml:"weekly_sales_table"`
	ForecastingFeaturesTable        string `yaml:"forecasting_features_table"`
	ForecastingFeaturesTrainTable   string `yaml:"forecasting_features_train_table"`
	ForecastingFeaturesPredictTable string `yaml:"forecasting_features_predict_table"`
	SentimentFeaturesTable          string `yaml:"sentiment_features_table"`
	BacktestTable                   string `yaml:"backtest_table"`
	BacktestMetricsTable            string `yaml:"backtest_metrics_table"`

	DatasetDisplayName string `yaml:"dataset_display_name"`
	ModelDisplayName   string `yaml:"model_display_name"`
	GranularityUnit    string `yaml:"granularity_unit"`
	HorizonPeriods     int    `yaml:"horizon_periods"`

	// Annotation scheduling.
	AnnotationBatchSize    int `yaml:"annotation_batch_size"`
	AnnotationWorkers      int `yaml:"annotation_workers"`
	AnnotationIntervalSecs int `yaml:"annotation_interval_secs"`
	MaxShardSize           int `yaml:"max_shard_size"`

	// Source columns read by the annotation step.
	RecordIDColumn  string `yaml:"record_id_column"`
	NarrativeColumn string `yaml:"narrative_column"`

	LanguageBackend  string `yaml:"language_backend"`
	LanguageEndpoint string `yaml:"language_endpoint"`
	LanguageModel    string `yaml:"language_model"`

	TrainingEndpoint string `yaml:"automl_endpoint"`
}

// FilePaths holds every filesystem location the drivers touch.
type FilePaths struct {
	Queries                 string `yaml:"queries"`
	Checkpoints             string `yaml:"checkpoints"`
	WarehouseDB             string `yaml:"warehouse_db"`
	AutoMLServiceAccountKey string `yaml:"automl_service_account_key"`
}

// ColumnSpec describes one training column: its data type, nullability, and
// whether it varies with time.
type ColumnSpec struct {
	TypeCode        string `yaml:"type_code"`
	Nullable        bool   `yaml:"nullable"`
	ForecastingType string `yaml:"forecasting_type"`
}

// Model holds the training-service settings.
type Model struct {
	Columns               map[string]ColumnSpec `yaml:"columns"`
	TimeColumn            string                `yaml:"time_column"`
	TargetColumn          string                `yaml:"target_column"`
	SplitColumn           string                `yaml:"split_column"`
	WeightColumn          string                `yaml:"weight_column"`
	TrainBudgetHours      float64               `yaml:"train_budget_hours"`
	ExcludeColumns        []string              `yaml:"exclude_columns"`
	OptimizationObjective string                `yaml:"optimization_objective"`
}

// Load reads, parses, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{
		Global: Global{
			AnnotationBatchSize:    DefaultBatchSize,
			AnnotationWorkers:      DefaultWorkers,
			AnnotationIntervalSecs: DefaultIntervalSecs,
			MaxShardSize:           DefaultMaxShardSize,
			RecordIDColumn:         DefaultRecordIDColumn,
			NarrativeColumn:        DefaultNarrativeColumn,
			LanguageBackend:        "google",
			LanguageEndpoint:       DefaultLanguageEndpoint,
			TrainingEndpoint:       DefaultTrainingEndpoint,
		},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	// The global section is kept in raw form too: SQL templates take their
	// parameters from it, and a typed struct would drop unknown keys that
	// queries may still reference.
	var sections struct {
		Global map[string]any `yaml:"global"`
	}
	if err := yaml.Unmarshal(data, &sections); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg.globalParams = sections.Global
	cfg.raw = data

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields every driver depends on. Step-specific fields
// (query files, model columns) are validated by the step that uses them.
func (c *Config) Validate() error {
	if len(c.globalParams) == 0 {
		return fmt.Errorf("%w: missing global section", ErrInvalidConfig)
	}

	switch {
	case c.Global.ProjectID == "":
		return fmt.Errorf("%w: global.project_id is required", ErrInvalidConfig)
	case c.Global.ForecastingDataset == "":
		return fmt.Errorf("%w: global.forecasting_dataset is required", ErrInvalidConfig)
	case c.FilePaths.WarehouseDB == "":
		return fmt.Errorf("%w: file_paths.warehouse_db is required", ErrInvalidConfig)
	}

	if c.Global.AnnotationBatchSize <= 0 {
		return fmt.Errorf("%w: global.annotation_batch_size must be positive", ErrInvalidConfig)
	}
	if c.Global.AnnotationWorkers <= 0 {
		return fmt.Errorf("%w: global.annotation_workers must be positive", ErrInvalidConfig)
	}
	if c.Global.AnnotationIntervalSecs < 0 {
		return fmt.Errorf("%w: global.annotation_interval_secs cannot be negative", ErrInvalidConfig)
	}
	if c.Global.MaxShardSize <= 0 {
		return fmt.Errorf("%w: global.max_shard_size must be positive", ErrInvalidConfig)
	}

	switch c.Global.LanguageBackend {
	case "google", "openai":
	default:
		return fmt.Errorf("%w: unknown language_backend %q", ErrInvalidConfig, c.Global.LanguageBackend)
	}

	return nil
}

// Params returns the template parameters for a pipeline step: the raw global
// section merged with the step's query_params, step values winning. The
// returned map is a fresh copy on every call.
func (c *Config) Params(step string) map[string]any {
	merged := make(map[string]any, len(c.globalParams))
	for k, v := range c.globalParams {
		merged[k] = v
	}
	for k, v := range c.QueryParams[step] {
		merged[k] = v
	}
	return merged
}

// QueryPath resolves the SQL template file for a pipeline step.
func (c *Config) QueryPath(step string) (string, error) {
	name, ok := c.QueryFiles[step]
	if !ok {
		return "", fmt.Errorf("%w: no query file for %q", ErrUnknownStep, step)
	}
	return filepath.Join(c.FilePaths.Queries, name), nil
}

// Fingerprint identifies the exact configuration content that drove a run.
func (c *Config) Fingerprint() core.Fingerprint {
	return core.FingerprintFromContent(string(c.raw))
}
