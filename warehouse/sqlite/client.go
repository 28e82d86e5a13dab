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


// Package sqlite implements warehouse.Client on an embedded SQLite
// database. SQLite has no schema namespaces, so a dataset-qualified table
// "dataset.table" is stored under a quoted composite identifier, and table
// partitioning becomes an index on the partition field.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/demandcast/demandcast/core"
	"github.com/demandcast/demandcast/warehouse"
)

// identifierPattern restricts dataset, table, and column names to word
// characters. Names reach SQL as identifiers, so nothing else may pass.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Client implements warehouse.Client on a single SQLite database file.
type Client struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient opens the warehouse database at path, creating the file and its
// directory if needed.
// Returns warehouse.Client interface to enforce abstraction.
func NewClient(path string, opts ...Option) (warehouse.Client, error) {
	return newClient(path, opts...)
}

func newClient(path string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("warehouse db path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating warehouse directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening warehouse db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging warehouse db: %w", err)
	}

	c := &Client{
		db:     db,
		logger: slog.Default().With("component", "warehouse"),
	}

	for _, opt := range opts {
		if optErr := opt(c); optErr != nil {
			db.Close()
			return nil, optErr
		}
	}

	if err := c.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) ensureSchema() error {
	if _, err := c.db.Exec(createDatasetsTableSQL); err != nil {
		return fmt.Errorf("create datasets table: %w", err)
	}
	if _, err := c.db.Exec(createRunsTableSQL); err != nil {
		return fmt.Errorf("create pipeline_runs table: %w", err)
	}
	for _, stmt := range createRunsIndexesSQL {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("create pipeline_runs index: %w", err)
		}
	}
	return nil
}

// CreateDataset registers the dataset name. Registering an existing dataset
// is a no-op.
func (c *Client) CreateDataset(ctx context.Context, dataset string) error {
	if err := validIdentifier(dataset); err != nil {
		return err
	}

	_, err := c.db.ExecContext(ctx, insertDatasetSQL, dataset, utcNow())
	if err != nil {
		return fmt.Errorf("create dataset %s: %w", dataset, err)
	}

	c.logger.Debug("dataset ready", "dataset", dataset)
	return nil
}

// CreateTableFromQuery replaces the destination table with the query's
// results. A partition field becomes an index on the new table.
func (c *Client) CreateTableFromQuery(ctx context.Context, job warehouse.Job) error {
	qualified, err := qualifyTable(job.Dataset, job.Table)
	if err != nil {
		return err
	}
	if job.PartitionField != "" {
		if err := validIdentifier(job.PartitionField); err != nil {
			return err
		}
	}
	if strings.TrimSpace(job.Query) == "" {
		return fmt.Errorf("table %s.%s: query is required", job.Dataset, job.Table)
	}

	if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+qualified); err != nil {
		return fmt.Errorf("drop table %s.%s: %w", job.Dataset, job.Table, err)
	}
	if _, err := c.db.ExecContext(ctx, "CREATE TABLE "+qualified+" AS "+job.Query); err != nil {
		return fmt.Errorf("create table %s.%s: %w", job.Dataset, job.Table, err)
	}

	if job.PartitionField != "" {
		indexName := fmt.Sprintf("%q", "idx_"+job.Dataset+"."+job.Table+"."+job.PartitionField)
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%q)", indexName, qualified, job.PartitionField)
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("partition table %s.%s on %s: %w", job.Dataset, job.Table, job.PartitionField, err)
		}
	}

	c.logger.Info("table created",
		"dataset", job.Dataset,
		"table", job.Table,
		"partitionField", job.PartitionField)
	return nil
}

// QueryRecords runs a query and extracts (id, narrative) records from its
// result set. Rows with a NULL or empty ID or narrative are skipped.
func (c *Client) QueryRecords(ctx context.Context, query, idColumn, narrativeColumn string) ([]core.Record, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("running records query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading query columns: %w", err)
	}

	idIdx, narrativeIdx := -1, -1
	for i, col := range cols {
		switch col {
		case idColumn:
			idIdx = i
		case narrativeColumn:
			narrativeIdx = i
		}
	}
	if idIdx < 0 {
		return nil, fmt.Errorf("%w: %s", warehouse.ErrMissingColumn, idColumn)
	}
	if narrativeIdx < 0 {
		return nil, fmt.Errorf("%w: %s", warehouse.ErrMissingColumn, narrativeColumn)
	}

	var records []core.Record
	for rows.Next() {
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		var id, narrative sql.NullString
		dest[idIdx] = &id
		dest[narrativeIdx] = &narrative

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning record row: %w", err)
		}

		// Rows without an ID or narrative have nothing to annotate.
		if !id.Valid || id.String == "" || !narrative.Valid {
			continue
		}
		if strings.TrimSpace(narrative.String) == "" {
			continue
		}

		records = append(records, core.Record{ID: id.String, Narrative: narrative.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating record rows: %w", err)
	}

	return records, nil
}

// QueryRows runs a query and returns its rows as column-keyed maps.
func (c *Client) QueryRows(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("running query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading query columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		dest := make([]any, len(cols))
		for i := range dest {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			value := *(dest[i].(*any))
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[col] = value
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	return out, nil
}

// ReadTable returns up to limit rows of a dataset table.
func (c *Client) ReadTable(ctx context.Context, dataset, table string, limit int) ([]map[string]any, error) {
	qualified, err := qualifyTable(dataset, table)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + qualified
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	return c.QueryRows(ctx, query)
}

// InsertFeatureRows replaces the features table with the given rows inside
// one transaction.
func (c *Client) InsertFeatureRows(ctx context.Context, dataset, table string, featureRows []core.FeatureRow) error {
	qualified, err := qualifyTable(dataset, table)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin features load: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+qualified); err != nil {
		return fmt.Errorf("drop features table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "CREATE TABLE "+qualified+" "+featureColumnsDDL); err != nil {
		return fmt.Errorf("create features table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+qualified+" "+insertFeatureRowSQL)
	if err != nil {
		return fmt.Errorf("prepare features insert: %w", err)
	}
	defer stmt.Close()

	loadedAt := utcNow()
	for _, row := range featureRows {
		names, err := marshalList(row.EntityNames)
		if err != nil {
			return fmt.Errorf("encode entities for %s: %w", row.ID, err)
		}
		types, err := marshalList(row.EntityTypes)
		if err != nil {
			return fmt.Errorf("encode entity_types for %s: %w", row.ID, err)
		}
		scores, err := marshalList(row.EntityScores)
		if err != nil {
			return fmt.Errorf("encode entity_sentiment_scores for %s: %w", row.ID, err)
		}
		magnitudes, err := marshalList(row.EntityMagnitudes)
		if err != nil {
			return fmt.Errorf("encode entity_sentiment_magnitudes for %s: %w", row.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			row.ID, row.SentimentScore, row.SentimentMagnitude,
			names, types, scores, magnitudes, loadedAt)
		if err != nil {
			return fmt.Errorf("insert features row %s: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit features load: %w", err)
	}

	c.logger.Info("features loaded", "dataset", dataset, "table", table, "rows", len(featureRows))
	return nil
}

// BeginRun inserts a ledger row for a starting pipeline step, generating
// the run ID and start time if unset.
func (c *Client) BeginRun(ctx context.Context, run *warehouse.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = warehouse.RunStatusRunning
	}

	_, err := c.db.ExecContext(ctx, insertRunSQL,
		run.ID, run.Step, run.ConfigFingerprint,
		run.StartedAt.UTC().Format(time.RFC3339), "", run.Status, run.Detail)
	if err != nil {
		return fmt.Errorf("recording run start: %w", err)
	}

	return nil
}

// FinishRun stamps a ledger row with its final status.
func (c *Client) FinishRun(ctx context.Context, id, status, detail string) error {
	res, err := c.db.ExecContext(ctx, finishRunSQL, utcNow(), status, detail, id)
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording run finish: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", warehouse.ErrRunNotFound, id)
	}

	return nil
}

// ListRuns returns the most recently started runs, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*warehouse.Run, error) {
	rows, err := c.db.QueryContext(ctx, listRunsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*warehouse.Run
	for rows.Next() {
		var run warehouse.Run
		var startedAt, finishedAt string
		if err := rows.Scan(&run.ID, &run.Step, &run.ConfigFingerprint,
			&startedAt, &finishedAt, &run.Status, &run.Detail); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		if run.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parsing run start time: %w", err)
		}
		if finishedAt != "" {
			if run.FinishedAt, err = time.Parse(time.RFC3339, finishedAt); err != nil {
				return nil, fmt.Errorf("parsing run finish time: %w", err)
			}
		}

		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// Close closes the underlying database.
func (c *Client) Close() error {
	return c.db.Close()
}

// qualifyTable validates both names and renders the composite identifier
// used to store "dataset.table" in SQLite.
func qualifyTable(dataset, table string) (string, error) {
	if err := validIdentifier(dataset); err != nil {
		return "", err
	}
	if err := validIdentifier(table); err != nil {
		return "", err
	}
	return `"` + dataset + `.` + table + `"`, nil
}

func validIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %q", warehouse.ErrInvalidIdentifier, name)
	}
	return nil
}

// marshalList JSON-encodes an entity list column, mapping nil to [].
func marshalList(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	s := string(data)
	if s == "null" {
		s = "[]"
	}
	return s, nil
}

func utcNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
