package demandcast

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/config"
	"github.com/demandcast/demandcast/language/mock"
	"github.com/demandcast/demandcast/training"
	"github.com/demandcast/demandcast/warehouse"
	"github.com/demandcast/demandcast/warehouse/sqlite"
)

// The SQL templates are written in SQLite dialect because the tests run
// against the SQLite warehouse backend; created tables are addressed by
// their quoted composite names.
var testQueryFiles = map[string]string{
	"complaints.sql": `SELECT '1' AS complaint_id, 'late delivery of my order' AS consumer_complaint_narrative
UNION ALL SELECT '2', 'billing dispute with the bank'
UNION ALL SELECT '3', 'wrong item shipped twice'`,
	"weekly_sales.sql": `SELECT '210' AS dept, '2025-01-06' AS week_start, 1200.0 AS sales WHERE '210' IN ({departments})
UNION ALL SELECT '132', '2025-01-06', 800.0 WHERE '132' IN ({departments})`,
	"forecasting_features.sql":       `SELECT dept, week_start, sales, 'TRAIN' AS split FROM "forecasting.weekly_sales"`,
	"forecasting_features_split.sql": `SELECT * FROM "forecasting.forecasting_features" WHERE split = '{split}'`,
	"backtest.sql":                   `SELECT week_start, sales AS actual, sales * 0.9 AS predicted FROM "forecasting.forecasting_features"`,
	"backtest_metrics.sql":           `SELECT AVG(ABS(actual - predicted)) AS mae FROM "forecasting.backtest"`,
}

func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	queries := filepath.Join(dir, "queries")
	require.NoError(t, os.MkdirAll(queries, 0o755))
	for name, sql := range testQueryFiles {
		require.NoError(t, os.WriteFile(filepath.Join(queries, name), []byte(sql), 0o644))
	}

	yaml := fmt.Sprintf(`
global:
  project_id: demandcast_test
  automl_compute_region: us-central1
  forecasting_dataset: forecasting
  weekly_sales_table: weekly_sales
  forecasting_features_table: forecasting_features
  forecasting_features_train_table: forecasting_features_train
  forecasting_features_predict_table: forecasting_features_predict
  sentiment_features_table: sentiment_features
  backtest_table: backtest
  backtest_metrics_table: backtest_metrics
  dataset_display_name: demand_forecast_data
  model_display_name: demand_forecast_model
  granularity_unit: week
  horizon_periods: 8
  annotation_batch_size: 2
  annotation_workers: 2
  annotation_interval_secs: 0
file_paths:
  queries: %s
  checkpoints: %s
  warehouse_db: %s
query_files:
  complaints: complaints.sql
  weekly_sales: weekly_sales.sql
  forecasting_features: forecasting_features.sql
  forecasting_features_split: forecasting_features_split.sql
  backtest: backtest.sql
  backtest_metrics: backtest_metrics.sql
query_params:
  weekly_sales:
    departments: ["210", "132"]
    partition_field: week_start
  forecasting_features:
    partition_field: week_start
  forecasting_features_train:
    split: TRAIN
    partition_field: week_start
  forecasting_features_predict:
    split: PREDICT
    partition_field: week_start
  backtest:
    partition_field: week_start
model:
  columns:
    sales:
      type_code: FLOAT64
      nullable: false
      forecasting_type: TIME_VARIANT
  time_column: week_start
  target_column: sales
  split_column: split
  train_budget_hours: 1
  optimization_objective: MINIMIZE_RMSE
`, queries, filepath.Join(dir, "checkpoints"), filepath.Join(dir, "warehouse.db"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func newTestPipeline(t *testing.T, opts ...PipelineOption) (*Pipeline, *mock.MockAnalyzer) {
	t.Helper()

	analyzer := mock.NewMockAnalyzer()
	opts = append([]PipelineOption{WithAnalyzer(analyzer), WithProgress(io.Discard)}, opts...)

	p, err := Open(writeTestConfig(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, analyzer
}

// readBack opens a second warehouse client on the pipeline's database.
func readBack(t *testing.T, p *Pipeline) warehouse.Client {
	t.Helper()
	client, err := sqlite.NewClient(p.Config().FilePaths.WarehouseDB)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestOpen(t *testing.T) {
	t.Run("assembles pipeline", func(t *testing.T) {
		p, _ := newTestPipeline(t)

		require.NotNil(t, p.Config())
		assert.Equal(t, "demandcast_test", p.Config().Global.ProjectID)
		assert.NotNil(t, p.wh)
		assert.NotNil(t, p.analyzer)
	})

	t.Run("error on missing config", func(t *testing.T) {
		p, err := Open(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
		assert.Nil(t, p)
	})
}

func TestPipeline_Close(t *testing.T) {
	p, _ := newTestPipeline(t)
	assert.NoError(t, p.Close())
}

func TestPipeline_Annotate(t *testing.T) {
	p, analyzer := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.Annotate(ctx))

	// Both passes annotated every record once.
	assert.Equal(t, 3, analyzer.SentimentCalls())
	assert.Equal(t, 3, analyzer.EntityCalls())

	// Each pass checkpointed under its own directory.
	checkpoints := p.Config().FilePaths.Checkpoints
	assert.FileExists(t, filepath.Join(checkpoints, "sentiment", "00001.json"))
	assert.FileExists(t, filepath.Join(checkpoints, "entities", "00001.json"))

	// The joined feature table holds one row per record.
	rows, err := readBack(t, p).ReadTable(ctx, "forecasting", "sentiment_features", 0)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	ids := map[string]bool{}
	for _, row := range rows {
		ids[row["id"].(string)] = true
		assert.NotEmpty(t, row["entities"])
		assert.NotEmpty(t, row["loaded_at_utc"])
	}
	assert.Equal(t, map[string]bool{"1": true, "2": true, "3": true}, ids)

	runs, err := p.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "annotate", runs[0].Step)
	assert.Equal(t, warehouse.RunStatusSucceeded, runs[0].Status)
	assert.Len(t, runs[0].ConfigFingerprint, 16)
}

func TestPipeline_AnnotateResumes(t *testing.T) {
	p, analyzer := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.Annotate(ctx))
	require.NoError(t, p.Annotate(ctx))

	// The second run found every record checkpointed.
	assert.Equal(t, 3, analyzer.SentimentCalls())
	assert.Equal(t, 3, analyzer.EntityCalls())

	runs, err := p.Runs(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestPipeline_AnnotateMissingQueryFile(t *testing.T) {
	p, _ := newTestPipeline(t)
	delete(p.config.QueryFiles, annotationStep)

	err := p.Annotate(context.Background())
	require.ErrorIs(t, err, config.ErrUnknownStep)

	// The failure is on the ledger.
	runs, lerr := p.Runs(context.Background(), 10)
	require.NoError(t, lerr)
	require.Len(t, runs, 1)
	assert.Equal(t, warehouse.RunStatusFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Detail)
}

func TestPipeline_CreateFeatures(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.CreateFeatures(ctx))

	client := readBack(t, p)

	sales, err := client.ReadTable(ctx, "forecasting", "weekly_sales", 0)
	require.NoError(t, err)
	assert.Len(t, sales, 2)

	train, err := client.ReadTable(ctx, "forecasting", "forecasting_features_train", 0)
	require.NoError(t, err)
	assert.Len(t, train, 2)

	predict, err := client.ReadTable(ctx, "forecasting", "forecasting_features_predict", 0)
	require.NoError(t, err)
	assert.Empty(t, predict)

	runs, err := p.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "create-features", runs[0].Step)
	assert.Equal(t, warehouse.RunStatusSucceeded, runs[0].Status)
}

func TestPipeline_Evaluate(t *testing.T) {
	p, _ := newTestPipeline(t)
	ctx := context.Background()

	require.NoError(t, p.CreateFeatures(ctx))
	require.NoError(t, p.Evaluate(ctx))

	metrics, err := readBack(t, p).ReadTable(ctx, "forecasting", "backtest_metrics", 0)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.InDelta(t, 100.0, metrics[0]["mae"], 1e-9)

	runs, err := p.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "evaluate", runs[0].Step)
	assert.Equal(t, "create-features", runs[1].Step)
}

func TestPipeline_Train(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			w.Write([]byte(`{"name": "operations/op", "done": true}`))
		case strings.HasSuffix(r.URL.Path, "/datasets"):
			w.Write([]byte(`{"name": "datasets/ds1", "displayName": "demand_forecast_data"}`))
		default:
			w.Write([]byte(`{"name": "operations/op", "done": false}`))
		}
	}))
	defer server.Close()

	service, err := training.NewClient(server.URL, "demandcast_test", "us-central1", "tok",
		training.WithPollInterval(time.Millisecond))
	require.NoError(t, err)

	p, _ := newTestPipeline(t, WithTrainingService(service))
	ctx := context.Background()

	require.NoError(t, p.Train(ctx))

	runs, err := p.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "train", runs[0].Step)
	assert.Equal(t, warehouse.RunStatusSucceeded, runs[0].Status)
}

func TestPipeline_TrainMissingCredentials(t *testing.T) {
	t.Setenv(training.TokenEnv, "")

	p, _ := newTestPipeline(t)
	err := p.Train(context.Background())
	require.ErrorIs(t, err, training.ErrMissingToken)

	runs, lerr := p.Runs(context.Background(), 10)
	require.NoError(t, lerr)
	require.Len(t, runs, 1)
	assert.Equal(t, warehouse.RunStatusFailed, runs[0].Status)
}

func TestPipeline_RunsEmpty(t *testing.T) {
	p, _ := newTestPipeline(t)

	runs, err := p.Runs(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}
