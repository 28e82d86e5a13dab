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


// Package demandcast assembles the demand-forecasting pipeline: annotating
// complaint narratives with sentiment and entity features, building the
// forecasting feature tables, training the forecasting model, and
// evaluating it against a backtest.
package demandcast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/demandcast/demandcast/annotate"
	"github.com/demandcast/demandcast/checkpoint"
	"github.com/demandcast/demandcast/config"
	"github.com/demandcast/demandcast/core"
	"github.com/demandcast/demandcast/features"
	"github.com/demandcast/demandcast/language"
	"github.com/demandcast/demandcast/language/google"
	"github.com/demandcast/demandcast/language/openai"
	"github.com/demandcast/demandcast/training"
	"github.com/demandcast/demandcast/warehouse"
	"github.com/demandcast/demandcast/warehouse/sqlite"
)

// annotationStep names the query_files entry that selects the complaint
// records to annotate.
const annotationStep = "complaints"

// Checkpoint subdirectories for the two annotation passes.
const (
	sentimentCheckpointDir = "sentiment"
	entityCheckpointDir    = "entities"
)

// Pipeline owns the pipeline's shared resources and exposes one method per
// driver.
type Pipeline struct {
	config   *config.Config
	wh       warehouse.Client
	analyzer language.Analyzer
	service  training.Service
	progress io.Writer
	logger   *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	warehouse warehouse.Client
	analyzer  language.Analyzer
	service   training.Service
	progress  io.Writer
}

// WithWarehouse substitutes the warehouse client. Default is a SQLite
// client at file_paths.warehouse_db.
func WithWarehouse(client warehouse.Client) PipelineOption {
	return func(o *pipelineOptions) {
		o.warehouse = client
	}
}

// WithAnalyzer substitutes the annotation analyzer. Default is built from
// the configured language backend.
func WithAnalyzer(analyzer language.Analyzer) PipelineOption {
	return func(o *pipelineOptions) {
		o.analyzer = analyzer
	}
}

// WithTrainingService substitutes the forecasting-training service.
// Default is a REST client built lazily by Train, so pipelines that never
// train need no credential.
func WithTrainingService(service training.Service) PipelineOption {
	return func(o *pipelineOptions) {
		o.service = service
	}
}

// WithProgress sets the writer annotation progress is reported to.
// Default is os.Stderr.
func WithProgress(w io.Writer) PipelineOption {
	return func(o *pipelineOptions) {
		o.progress = w
	}
}

// Open loads the configuration at configPath and assembles a Pipeline
// around it.
func Open(configPath string, opts ...PipelineOption) (*Pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Apply options
	options := &pipelineOptions{progress: os.Stderr}
	for _, opt := range opts {
		opt(options)
	}

	// Open warehouse
	wh := options.warehouse
	if wh == nil {
		wh, err = sqlite.NewClient(cfg.FilePaths.WarehouseDB)
		if err != nil {
			return nil, err
		}
	}

	// Create analyzer for the configured language backend
	analyzer := options.analyzer
	if analyzer == nil {
		analyzer, err = newAnalyzer(cfg)
		if err != nil {
			wh.Close()
			return nil, err
		}
	}

	return &Pipeline{
		config:   cfg,
		wh:       wh,
		analyzer: analyzer,
		service:  options.service,
		progress: options.progress,
		logger:   slog.Default().With("component", "pipeline"),
	}, nil
}

func newAnalyzer(cfg *config.Config) (language.Analyzer, error) {
	opts := []language.ConfigOption{
		language.WithBackend(cfg.Global.LanguageBackend),
		language.WithEndpoint(cfg.Global.LanguageEndpoint),
	}
	if cfg.Global.LanguageModel != "" {
		opts = append(opts, language.WithModel(cfg.Global.LanguageModel))
	}
	langCfg := language.NewConfig(opts...)

	// config.Validate already rejected every other backend value.
	if cfg.Global.LanguageBackend == "openai" {
		return openai.NewAnalyzer(langCfg, language.APIKeyFromEnv())
	}
	return google.NewClient(langCfg, language.APIKeyFromEnv())
}

// Annotate runs the sentiment and entity annotation passes over the source
// records and writes the joined feature table to the warehouse.
func (p *Pipeline) Annotate(ctx context.Context) error {
	return p.withRun(ctx, "annotate", p.annotate)
}

// CreateFeatures builds the weekly sales, forecasting feature, and
// train/predict split tables.
func (p *Pipeline) CreateFeatures(ctx context.Context) error {
	return p.withRun(ctx, "create-features", func(ctx context.Context) error {
		creator, err := features.NewCreator(p.config, p.wh)
		if err != nil {
			return err
		}
		return creator.CreateFeatures(ctx)
	})
}

// Train creates the training dataset and trains the forecasting model.
func (p *Pipeline) Train(ctx context.Context) error {
	return p.withRun(ctx, "train", func(ctx context.Context) error {
		service := p.service
		if service == nil {
			token, err := training.LoadToken(p.config.FilePaths.AutoMLServiceAccountKey)
			if err != nil {
				return err
			}
			service, err = training.NewClient(
				p.config.Global.TrainingEndpoint,
				p.config.Global.ProjectID,
				p.config.Global.ComputeRegion,
				token,
			)
			if err != nil {
				return err
			}
		}

		trainer, err := training.NewTrainer(p.config, service)
		if err != nil {
			return err
		}
		return trainer.Train(ctx)
	})
}

// Evaluate builds the backtest and backtest-metrics tables and logs the
// metrics.
func (p *Pipeline) Evaluate(ctx context.Context) error {
	return p.withRun(ctx, "evaluate", func(ctx context.Context) error {
		creator, err := features.NewCreator(p.config, p.wh)
		if err != nil {
			return err
		}
		return creator.Evaluate(ctx)
	})
}

// Runs returns the most recent run-ledger entries, newest first. Reading
// the ledger does not itself record a run.
func (p *Pipeline) Runs(ctx context.Context, limit int) ([]*warehouse.Run, error) {
	return p.wh.ListRuns(ctx, limit)
}

// Config returns the loaded pipeline configuration.
func (p *Pipeline) Config() *config.Config {
	return p.config
}

// Close releases the pipeline's resources. The warehouse closes last so
// every earlier teardown can still record state.
func (p *Pipeline) Close() error {
	if err := p.wh.Close(); err != nil {
		p.logger.Error("error closing warehouse", "error", err)
		return err
	}
	return nil
}

// withRun brackets a driver in a run-ledger entry.
func (p *Pipeline) withRun(ctx context.Context, step string, fn func(context.Context) error) error {
	run := &warehouse.Run{
		Step:              step,
		ConfigFingerprint: p.config.Fingerprint().String(),
	}
	if err := p.wh.BeginRun(ctx, run); err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}
	p.logger.Info("run started", "step", step, "run", run.ID)

	if err := fn(ctx); err != nil {
		// The failure status still matters when the context is gone.
		finishCtx := ctx
		if ctx.Err() != nil {
			finishCtx = context.Background()
		}
		if ferr := p.wh.FinishRun(finishCtx, run.ID, warehouse.RunStatusFailed, err.Error()); ferr != nil {
			p.logger.Error("failed to record run failure", "run", run.ID, "error", ferr)
		}
		return err
	}

	p.logger.Info("run finished", "step", step, "run", run.ID)
	return p.wh.FinishRun(ctx, run.ID, warehouse.RunStatusSucceeded, "")
}

func (p *Pipeline) annotate(ctx context.Context) error {
	global := p.config.Global
	if global.SentimentFeaturesTable == "" {
		return fmt.Errorf("%w: global.sentiment_features_table is required", config.ErrInvalidConfig)
	}

	queryPath, err := p.config.QueryPath(annotationStep)
	if err != nil {
		return err
	}
	template, err := warehouse.LoadQuery(queryPath)
	if err != nil {
		return err
	}
	query, err := warehouse.RenderTemplate(template, p.config.Params(annotationStep))
	if err != nil {
		return err
	}

	records, err := p.wh.QueryRecords(ctx, query, global.RecordIDColumn, global.NarrativeColumn)
	if err != nil {
		return err
	}
	p.logger.Info("loaded source records", "count", len(records))

	annotateConfig := annotate.DefaultConfig()
	annotateConfig.BatchSize = global.AnnotationBatchSize
	annotateConfig.Workers = global.AnnotationWorkers
	annotateConfig.MinBatchInterval = time.Duration(global.AnnotationIntervalSecs) * time.Second

	sentimentShards, err := p.runPass(ctx, records, language.FeatureSentiment, sentimentCheckpointDir, annotateConfig)
	if err != nil {
		return err
	}
	entityShards, err := p.runPass(ctx, records, language.FeatureEntitySentiment, entityCheckpointDir, annotateConfig)
	if err != nil {
		return err
	}

	rows := annotate.Join(records, annotate.Flatten(sentimentShards), annotate.Flatten(entityShards))
	if err := p.wh.CreateDataset(ctx, global.ForecastingDataset); err != nil {
		return err
	}
	if err := p.wh.InsertFeatureRows(ctx, global.ForecastingDataset, global.SentimentFeaturesTable, rows); err != nil {
		return err
	}

	p.logger.Info("feature table written",
		"table", global.SentimentFeaturesTable,
		"rows", len(rows))
	return nil
}

// runPass runs one annotation feature over the records against its own
// checkpoint directory and returns the resulting shards.
func (p *Pipeline) runPass(ctx context.Context, records []core.Record, feature language.Feature, subdir string, cfg *annotate.Config) ([]checkpoint.Shard, error) {
	store, err := checkpoint.Open(
		filepath.Join(p.config.FilePaths.Checkpoints, subdir),
		checkpoint.WithMaxShardSize(p.config.Global.MaxShardSize),
	)
	if err != nil {
		return nil, err
	}

	annotator, err := annotate.NewAnnotator(store, p.analyzer, feature, cfg, p.progress)
	if err != nil {
		return nil, err
	}
	defer annotator.Release()

	stats, err := annotator.Run(ctx, records)
	if err != nil {
		return nil, err
	}

	p.logger.Info("annotation pass complete",
		"feature", string(feature),
		"annotated", stats.Annotated,
		"errored", stats.Errored,
		"skipped", stats.Skipped)
	return store.Shards(), nil
}
