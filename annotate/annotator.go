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


package annotate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/demandcast/demandcast/checkpoint"
	"github.com/demandcast/demandcast/core"
	"github.com/demandcast/demandcast/language"
)

// Config holds configuration for an annotation run.
type Config struct {
	// BatchSize is the number of records sent to the analyzer per batch
	BatchSize int

	// Workers is the worker pool size for concurrent analyzer calls
	Workers int

	// MinBatchInterval is the minimum time between batch starts
	MinBatchInterval time.Duration

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults. The batch size and
// interval keep a full batch inside the annotation API's per-minute quota.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:        2500,
		Workers:          8,
		MinBatchInterval: 60 * time.Second,
		ReportInterval:   500,
	}
}

// Stats summarizes a completed annotation run.
type Stats struct {
	// Scanned is the number of input records examined
	Scanned int

	// Skipped is the number of records already present in the checkpoint store
	Skipped int

	// Annotated is the number of records annotated successfully
	Annotated int

	// Errored is the number of records checkpointed with the error sentinel
	Errored int

	// Batches is the number of batches dispatched
	Batches int

	// Elapsed is the total run duration
	Elapsed time.Duration
}

// Annotator runs records through a language analyzer in paced batches and
// checkpoints every outcome.
type Annotator struct {
	store    *checkpoint.Store
	analyzer language.Analyzer
	feature  language.Feature
	config   *Config
	pool     *ants.Pool
	pacer    *pacer
	progress io.Writer
	logger   *slog.Logger
}

// NewAnnotator creates an annotator for one analysis feature.
// progress: where to write progress output (typically os.Stderr)
func NewAnnotator(store *checkpoint.Store, analyzer language.Analyzer, feature language.Feature, config *Config, progress io.Writer) (*Annotator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if analyzer == nil {
		return nil, ErrAnalyzerRequired
	}
	if feature != language.FeatureSentiment && feature != language.FeatureEntitySentiment {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFeature, feature)
	}

	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if config.Workers <= 0 {
		return nil, ErrInvalidWorkers
	}

	pool, err := ants.NewPool(config.Workers)
	if err != nil {
		return nil, err
	}

	return &Annotator{
		store:    store,
		analyzer: analyzer,
		feature:  feature,
		config:   config,
		pool:     pool,
		pacer:    newPacer(config.MinBatchInterval),
		progress: progress,
		logger:   slog.Default().With("component", "annotator", "feature", string(feature)),
	}, nil
}

// Run annotates every record not yet present in the checkpoint store.
// Records are scanned in input order; each full batch is dispatched to the
// worker pool, merged, and persisted before the next batch starts. The
// trailing partial batch honors the batch spacing like any other, but the
// run returns as soon as it lands instead of waiting out its interval.
// Running over an already-complete store is a no-op.
func (a *Annotator) Run(ctx context.Context, records []core.Record) (*Stats, error) {
	stats := &Stats{}

	tracker := NewProgressTracker(a.progress, len(records), a.config.ReportInterval)
	tracker.Start()

	seen := a.store.SeenIDs()
	a.logger.Info("starting annotation run",
		"records", len(records),
		"checkpointed", len(seen),
		"batchSize", a.config.BatchSize)

	pending := make([]core.Record, 0, a.config.BatchSize)

	for _, record := range records {
		stats.Scanned++

		if _, ok := seen[record.ID]; ok {
			stats.Skipped++
			continue
		}

		pending = append(pending, record)
		if len(pending) < a.config.BatchSize {
			continue
		}

		if err := a.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		if err := a.flush(ctx, pending, stats); err != nil {
			return nil, err
		}
		pending = pending[:0]
		tracker.Update(stats.Scanned, stats.Annotated+stats.Errored)
	}

	// Drain the partial batch. An empty drain never touches the pacer.
	if len(pending) > 0 {
		if err := a.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		if err := a.flush(ctx, pending, stats); err != nil {
			return nil, err
		}
	}

	tracker.Finish()
	stats.Elapsed = tracker.Elapsed()

	a.logger.Info("annotation run complete",
		"scanned", stats.Scanned,
		"skipped", stats.Skipped,
		"annotated", stats.Annotated,
		"errored", stats.Errored,
		"batches", stats.Batches,
		"elapsed", stats.Elapsed.Round(time.Second))

	return stats, nil
}

// flush annotates one batch and persists its outcomes. An empty batch does
// nothing: no analyzer calls, no shard writes.
func (a *Annotator) flush(ctx context.Context, batch []core.Record, stats *Stats) error {
	if len(batch) == 0 {
		return nil
	}

	outcomes, err := a.dispatch(ctx, batch)
	if err != nil {
		return err
	}

	if err := a.store.Append(outcomes); err != nil {
		return fmt.Errorf("persisting batch: %w", err)
	}

	stats.Batches++
	for _, outcome := range outcomes {
		if outcome.Failed() {
			stats.Errored++
		} else {
			stats.Annotated++
		}
	}

	return nil
}

// result carries one record's outcome from a worker back to the coordinator.
type result struct {
	id      string
	outcome core.Outcome
}

// dispatch fans a batch out over the worker pool and merges the per-record
// results. Workers never touch shared state; the merge happens here once
// every worker has reported.
func (a *Annotator) dispatch(ctx context.Context, batch []core.Record) (map[string]core.Outcome, error) {
	results := make(chan result, len(batch))
	var wg sync.WaitGroup

	for _, record := range batch {
		record := record
		wg.Add(1)
		err := a.pool.Submit(func() {
			defer wg.Done()
			results <- result{id: record.ID, outcome: a.annotate(ctx, record)}
		})
		if err != nil {
			wg.Done()
			a.logger.Error("failed to submit record to pool", "id", record.ID, "err", err)
			results <- result{id: record.ID, outcome: core.Failure()}
		}
	}

	wg.Wait()
	close(results)

	// A batch aborted by cancellation is not persisted; its failures say
	// nothing about the records themselves.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	merged := make(map[string]core.Outcome, len(batch))
	for r := range results {
		merged[r.id] = r.outcome
	}

	return merged, nil
}

// annotate analyzes a single record. Any analyzer error becomes the error
// sentinel so one bad narrative never stops a run.
func (a *Annotator) annotate(ctx context.Context, record core.Record) core.Outcome {
	annotation, err := language.Analyze(ctx, a.analyzer, a.feature, record.Narrative)
	if err != nil {
		a.logger.Warn("annotation failed", "id", record.ID, "err", err)
		return core.Failure()
	}

	return core.Success(annotation)
}

// Release releases the worker pool.
// The annotator should not be used after calling Release.
func (a *Annotator) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}
