package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/checkpoint"
	"github.com/demandcast/demandcast/core"
	"github.com/demandcast/demandcast/language"
	"github.com/demandcast/demandcast/language/mock"
)

func newTestStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	store, err := checkpoint.Open(filepath.Join(t.TempDir(), "checkpoints"))
	require.NoError(t, err)
	return store
}

func newTestAnnotator(t *testing.T, store *checkpoint.Store, analyzer language.Analyzer, config *Config) *Annotator {
	t.Helper()
	if config == nil {
		config = &Config{BatchSize: 2, Workers: 2, ReportInterval: 1000}
	}
	annotator, err := NewAnnotator(store, analyzer, language.FeatureSentiment, config, io.Discard)
	require.NoError(t, err)
	t.Cleanup(annotator.Release)
	return annotator
}

func testRecords(n int) []core.Record {
	records := make([]core.Record, n)
	for i := range records {
		records[i] = core.Record{
			ID:        strconv.Itoa(i + 1),
			Narrative: fmt.Sprintf("weekly narrative number %d", i+1),
		}
	}
	return records
}

func TestRunAnnotatesAllRecords(t *testing.T) {
	store := newTestStore(t)
	analyzer := mock.NewMockAnalyzer()
	annotator := newTestAnnotator(t, store, analyzer, nil)

	stats, err := annotator.Run(context.Background(), testRecords(5))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Scanned)
	assert.Equal(t, 0, stats.Skipped)
	assert.Equal(t, 5, stats.Annotated)
	assert.Equal(t, 0, stats.Errored)
	assert.Equal(t, 3, stats.Batches) // 2 + 2 + drain of 1
	assert.Equal(t, 5, analyzer.SentimentCalls())

	for i := 1; i <= 5; i++ {
		assert.True(t, store.Contains(strconv.Itoa(i)))
	}
}

func TestRunSkipsCheckpointedRecords(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Append(map[string]core.Outcome{
		"1": core.Failure(),
		"3": core.Success(&core.Annotation{DocumentSentiment: core.Sentiment{Score: 0.2}}),
	}))

	analyzer := mock.NewMockAnalyzer()
	annotator := newTestAnnotator(t, store, analyzer, nil)

	stats, err := annotator.Run(context.Background(), testRecords(5))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Scanned)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 3, stats.Annotated)
	assert.Equal(t, 3, analyzer.SentimentCalls())
	assert.Equal(t, 5, store.Len())
}

func TestRunCompleteStoreIsNoOp(t *testing.T) {
	store := newTestStore(t)
	outcomes := make(map[string]core.Outcome)
	for i := 1; i <= 5; i++ {
		outcomes[strconv.Itoa(i)] = core.Success(&core.Annotation{})
	}
	require.NoError(t, store.Append(outcomes))

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	filesBefore := len(entries)

	analyzer := mock.NewMockAnalyzer()
	annotator := newTestAnnotator(t, store, analyzer, nil)

	stats, err := annotator.Run(context.Background(), testRecords(5))
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Skipped)
	assert.Equal(t, 0, stats.Annotated)
	assert.Equal(t, 0, stats.Batches)
	assert.Equal(t, 0, analyzer.SentimentCalls())

	entries, err = os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Equal(t, filesBefore, len(entries), "a complete run must not write new shards")
}

func TestRunRecordsFailureSentinel(t *testing.T) {
	store := newTestStore(t)
	analyzer := mock.NewMockAnalyzer()
	analyzer.AnalyzeSentimentFunc = func(_ context.Context, text string) (*core.Annotation, error) {
		if strings.Contains(text, "number 2") {
			return nil, errors.New("deadline exceeded")
		}
		return &core.Annotation{DocumentSentiment: core.Sentiment{Score: 0.4, Magnitude: 0.4}}, nil
	}
	annotator := newTestAnnotator(t, store, analyzer, nil)

	stats, err := annotator.Run(context.Background(), testRecords(4))
	require.NoError(t, err, "a failing record must not abort the run")

	assert.Equal(t, 3, stats.Annotated)
	assert.Equal(t, 1, stats.Errored)

	var failed core.Outcome
	found := false
	for _, shard := range store.Shards() {
		if outcome, ok := shard["2"]; ok {
			failed = outcome
			found = true
		}
	}
	require.True(t, found, "failed record must still be checkpointed")
	assert.True(t, failed.Failed())
	assert.Equal(t, core.LanguageError, failed.Err)
}

func TestRunMergesBatchBeforeNextDispatch(t *testing.T) {
	store := newTestStore(t)

	// With batch size 2, records 3 and 4 form the second batch. Their
	// analyzer calls only happen after the first batch was checkpointed.
	var mu sync.Mutex
	firstBatchPersisted := true
	analyzer := mock.NewMockAnalyzer()
	analyzer.AnalyzeSentimentFunc = func(_ context.Context, text string) (*core.Annotation, error) {
		if strings.Contains(text, "number 3") || strings.Contains(text, "number 4") {
			mu.Lock()
			firstBatchPersisted = firstBatchPersisted && store.Contains("1") && store.Contains("2")
			mu.Unlock()
		}
		return &core.Annotation{DocumentSentiment: core.Sentiment{Score: 0.1, Magnitude: 0.1}}, nil
	}
	annotator := newTestAnnotator(t, store, analyzer, nil)

	_, err := annotator.Run(context.Background(), testRecords(4))
	require.NoError(t, err)
	assert.True(t, firstBatchPersisted, "second batch dispatched before the first was merged")
}

func TestRunEmptyInput(t *testing.T) {
	store := newTestStore(t)
	analyzer := mock.NewMockAnalyzer()
	annotator := newTestAnnotator(t, store, analyzer, nil)

	stats, err := annotator.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Scanned)
	assert.Equal(t, 0, stats.Batches)
	assert.Equal(t, 0, analyzer.SentimentCalls())

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "an empty run must not write shards")
}

func TestRunPacesBatchStarts(t *testing.T) {
	newPacedAnnotator := func(t *testing.T, sleeps *[]time.Duration) *Annotator {
		store := newTestStore(t)
		annotator := newTestAnnotator(t, store, mock.NewMockAnalyzer(), &Config{
			BatchSize:        2,
			Workers:          2,
			MinBatchInterval: 60 * time.Second,
			ReportInterval:   1000,
		})

		// Frozen clock: every dispatch after the first owes the full interval.
		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		annotator.pacer.now = func() time.Time { return now }
		annotator.pacer.sleep = func(_ context.Context, d time.Duration) error {
			*sleeps = append(*sleeps, d)
			return nil
		}
		return annotator
	}

	t.Run("partial drain is paced, nothing sleeps after it", func(t *testing.T) {
		var sleeps []time.Duration
		annotator := newPacedAnnotator(t, &sleeps)

		stats, err := annotator.Run(context.Background(), testRecords(5))
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Batches)

		// First batch starts immediately; the second batch and the drain of
		// the trailing record each wait out the interval. The run ends with
		// no trailing sleep.
		require.Len(t, sleeps, 2)
		assert.Equal(t, 60*time.Second, sleeps[0])
		assert.Equal(t, 60*time.Second, sleeps[1])
	})

	t.Run("empty drain never sleeps", func(t *testing.T) {
		var sleeps []time.Duration
		annotator := newPacedAnnotator(t, &sleeps)

		stats, err := annotator.Run(context.Background(), testRecords(4))
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Batches)

		require.Len(t, sleeps, 1)
		assert.Equal(t, 60*time.Second, sleeps[0])
	})
}

func TestRunEntityFeature(t *testing.T) {
	store := newTestStore(t)
	analyzer := mock.NewMockAnalyzer()

	annotator, err := NewAnnotator(store, analyzer, language.FeatureEntitySentiment,
		&Config{BatchSize: 10, Workers: 2, ReportInterval: 1000}, io.Discard)
	require.NoError(t, err)
	t.Cleanup(annotator.Release)

	stats, err := annotator.Run(context.Background(), testRecords(2))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Annotated)
	assert.Equal(t, 2, analyzer.EntityCalls())
	assert.Equal(t, 0, analyzer.SentimentCalls())

	for _, shard := range store.Shards() {
		for id, outcome := range shard {
			require.NotNil(t, outcome.Annotation, "record %s", id)
			assert.NotEmpty(t, outcome.Annotation.Entities, "record %s", id)
		}
	}
}

func TestRunResumesAcrossStores(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoints")
	records := testRecords(5)

	store, err := checkpoint.Open(dir)
	require.NoError(t, err)
	analyzer := mock.NewMockAnalyzer()
	annotator := newTestAnnotator(t, store, analyzer, nil)

	_, err = annotator.Run(context.Background(), records[:3])
	require.NoError(t, err)

	// Reopen as a fresh process would and run over the full input.
	resumed, err := checkpoint.Open(dir)
	require.NoError(t, err)
	analyzer = mock.NewMockAnalyzer()
	annotator = newTestAnnotator(t, resumed, analyzer, nil)

	stats, err := annotator.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Skipped)
	assert.Equal(t, 2, stats.Annotated)
	assert.Equal(t, 2, analyzer.SentimentCalls())
	assert.Equal(t, 5, resumed.Len())
}

func TestRunContextCanceled(t *testing.T) {
	store := newTestStore(t)
	analyzer := mock.NewMockAnalyzer()
	annotator := newTestAnnotator(t, store, analyzer, &Config{BatchSize: 10, Workers: 2, ReportInterval: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := annotator.Run(ctx, testRecords(3))
	require.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "a canceled batch must not be persisted")
}

func TestNewAnnotatorValidation(t *testing.T) {
	store := newTestStore(t)
	analyzer := mock.NewMockAnalyzer()

	tests := []struct {
		name     string
		store    *checkpoint.Store
		analyzer language.Analyzer
		feature  language.Feature
		config   *Config
		wantErr  error
	}{
		{
			name:     "nil store",
			analyzer: analyzer,
			feature:  language.FeatureSentiment,
			wantErr:  ErrStoreRequired,
		},
		{
			name:    "nil analyzer",
			store:   store,
			feature: language.FeatureSentiment,
			wantErr: ErrAnalyzerRequired,
		},
		{
			name:     "unknown feature",
			store:    store,
			analyzer: analyzer,
			feature:  language.Feature("syntax"),
			wantErr:  ErrInvalidFeature,
		},
		{
			name:     "zero batch size",
			store:    store,
			analyzer: analyzer,
			feature:  language.FeatureSentiment,
			config:   &Config{BatchSize: 0, Workers: 8},
			wantErr:  ErrInvalidBatchSize,
		},
		{
			name:     "zero workers",
			store:    store,
			analyzer: analyzer,
			feature:  language.FeatureSentiment,
			config:   &Config{BatchSize: 100, Workers: 0},
			wantErr:  ErrInvalidWorkers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnnotator(tt.store, tt.analyzer, tt.feature, tt.config, io.Discard)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 2500, config.BatchSize)
	assert.Equal(t, 8, config.Workers)
	assert.Equal(t, 60*time.Second, config.MinBatchInterval)
}
