package sqlite

const createDatasetsTableSQL = `
CREATE TABLE IF NOT EXISTS datasets (
	name TEXT PRIMARY KEY,
	created_at_utc TEXT NOT NULL
)`

const insertDatasetSQL = `
INSERT OR IGNORE INTO datasets (name, created_at_utc) VALUES (?, ?)`

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id TEXT PRIMARY KEY,
	step TEXT NOT NULL,
	config_fingerprint TEXT NOT NULL,
	started_at_utc TEXT NOT NULL,
	finished_at_utc TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
)`

var createRunsIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_pipeline_runs_step ON pipeline_runs(step)`,
}

const insertRunSQL = `
INSERT INTO pipeline_runs (
	run_id,
	step,
	config_fingerprint,
	started_at_utc,
	finished_at_utc,
	status,
	detail
) VALUES (?, ?, ?, ?, ?, ?, ?)`

const finishRunSQL = `
UPDATE pipeline_runs SET finished_at_utc = ?, status = ?, detail = ? WHERE run_id = ?`

// Runs started within the same second fall back to insertion order.
const listRunsSQL = `
SELECT run_id, step, config_fingerprint, started_at_utc, finished_at_utc, status, detail
FROM pipeline_runs
ORDER BY started_at_utc DESC, rowid DESC
LIMIT ?`

// featureColumnsDDL holds the flattened annotation output; entity lists are
// JSON-encoded text.
const featureColumnsDDL = `(
	id TEXT PRIMARY KEY,
	sentiment_score REAL NOT NULL,
	sentiment_magnitude REAL NOT NULL,
	entities TEXT NOT NULL,
	entity_types TEXT NOT NULL,
	entity_sentiment_scores TEXT NOT NULL,
	entity_sentiment_magnitudes TEXT NOT NULL,
	loaded_at_utc TEXT NOT NULL
)`

const insertFeatureRowSQL = `(
	id,
	sentiment_score,
	sentiment_magnitude,
	entities,
	entity_types,
	entity_sentiment_scores,
	entity_sentiment_magnitudes,
	loaded_at_utc
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
