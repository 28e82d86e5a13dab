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


package warehouse

import (
	"context"
	"time"

	"github.com/demandcast/demandcast/core"
)

// Job describes one create-table-as-select transformation.
type Job struct {
	// Query is the rendered SQL whose results become the table
	Query string

	// Dataset and Table name the destination
	Dataset string
	Table   string

	// PartitionField optionally names the column the table is organized by
	PartitionField string
}

// Run statuses recorded in the pipeline run ledger.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run is one recorded pipeline step execution.
type Run struct {
	ID                string
	Step              string
	ConfigFingerprint string
	StartedAt         time.Time
	FinishedAt        time.Time // zero while the run is still going
	Status            string
	Detail            string
}

// Client provides warehouse operations for the pipeline.
// Implementations must be thread-safe and support concurrent access.
type Client interface {
	// CreateDataset ensures the named dataset exists.
	// Creating an existing dataset is a no-op.
	CreateDataset(ctx context.Context, dataset string) error

	// CreateTableFromQuery replaces the job's destination table with the
	// results of its query. When PartitionField is set the table is
	// organized by that column.
	CreateTableFromQuery(ctx context.Context, job Job) error

	// QueryRecords runs a query and extracts annotation records from its
	// results. idColumn and narrativeColumn name the columns holding the
	// record ID and free text; rows where either is NULL or empty are
	// skipped. Returns ErrMissingColumn if the query lacks a column.
	QueryRecords(ctx context.Context, query, idColumn, narrativeColumn string) ([]core.Record, error)

	// QueryRows runs a query and returns every row as a column-keyed map.
	// Intended for small result sets like backtest metrics.
	QueryRows(ctx context.Context, query string) ([]map[string]any, error)

	// ReadTable returns up to limit rows of a dataset table as column-keyed
	// maps. A limit <= 0 reads the whole table.
	ReadTable(ctx context.Context, dataset, table string, limit int) ([]map[string]any, error)

	// InsertFeatureRows replaces the named table with the given sentiment
	// feature rows. Entity lists are stored JSON-encoded.
	InsertFeatureRows(ctx context.Context, dataset, table string, rows []core.FeatureRow) error

	// BeginRun records the start of a pipeline step in the run ledger.
	// A run with no ID gets a generated one; a zero StartedAt becomes the
	// current time. The run is populated in place.
	BeginRun(ctx context.Context, run *Run) error

	// FinishRun marks a run finished with the given status and detail.
	// Returns ErrRunNotFound if no run has that ID.
	FinishRun(ctx context.Context, id, status, detail string) error

	// ListRuns returns the most recently started runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// Close closes the warehouse and releases resources.
	Close() error
}
