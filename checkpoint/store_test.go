package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/demandcast/demandcast/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annotated(score, magnitude float64) core.Outcome {
	return core.Success(&core.Annotation{
		DocumentSentiment: core.Sentiment{Score: score, Magnitude: magnitude},
	})
}

func writeShardFile(t *testing.T, dir, name string, shard map[string]any) {
	t.Helper()
	data, err := json.Marshal(shard)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

func TestOpen_CreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "checkpoints", "sentiment")

	store, err := Open(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.Len(t, store.Shards(), 1)
	assert.Empty(t, store.Shards()[0])
	assert.Equal(t, 0, store.Len())
}

func TestOpen_EmptyDirectory(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)

	require.Len(t, store.Shards(), 1)
	assert.Empty(t, store.Shards()[0])
}

func TestOpen_LoadsShardsSortedByName(t *testing.T) {
	dir := t.TempDir()
	writeShardFile(t, dir, "00002.json", map[string]any{"b": "language error"})
	writeShardFile(t, dir, "00001.json", map[string]any{"a": "language error"})

	store, err := Open(dir)
	require.NoError(t, err)

	require.Len(t, store.Shards(), 2)
	assert.Contains(t, store.Shards()[0], "a")
	assert.Contains(t, store.Shards()[1], "b")
}

func TestOpen_MalformedShardFails(t *testing.T) {
	t.Run("invalid json", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "00001.json"), []byte("not json"), 0644))

		_, err := Open(dir)
		assert.ErrorIs(t, err, ErrMalformedShard)
		assert.Contains(t, err.Error(), "00001.json")
	})

	t.Run("unexpected value shape", func(t *testing.T) {
		dir := t.TempDir()
		writeShardFile(t, dir, "00001.json", map[string]any{"a": 42})

		_, err := Open(dir)
		assert.ErrorIs(t, err, ErrMalformedShard)
	})
}

func TestOpen_InvalidShardSize(t *testing.T) {
	_, err := Open(t.TempDir(), WithMaxShardSize(0))
	assert.ErrorIs(t, err, ErrInvalidShardSize)
}

func TestAppend_WritesNumberedShardFile(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append(map[string]core.Outcome{
		"1": annotated(0.5, 1.2),
		"2": core.Failure(),
	}))

	data, err := os.ReadFile(filepath.Join(dir, "00001.json"))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.JSONEq(t, `"language error"`, string(raw["2"]))
	assert.JSONEq(t, `{"documentSentiment":{"score":0.5,"magnitude":1.2}}`, string(raw["1"]))
}

func TestAppend_RollsOverPastMaxShardSize(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir, WithMaxShardSize(5))
	require.NoError(t, err)

	// Fill the last shard one short of the maximum.
	first := make(map[string]core.Outcome, 4)
	for i := 0; i < 4; i++ {
		first[fmt.Sprintf("a%d", i)] = annotated(0.1, 0.1)
	}
	require.NoError(t, store.Append(first))
	require.Len(t, store.Shards(), 1)

	// Two more entries would exceed the maximum, so the whole batch rolls
	// over into a fresh shard.
	second := map[string]core.Outcome{
		"b0": annotated(0.2, 0.2),
		"b1": core.Failure(),
	}
	require.NoError(t, store.Append(second))

	require.Len(t, store.Shards(), 2)
	assert.Len(t, store.Shards()[0], 4)
	assert.Len(t, store.Shards()[1], 2)
	assert.FileExists(t, filepath.Join(dir, "00001.json"))
	assert.FileExists(t, filepath.Join(dir, "00002.json"))
}

func TestAppend_ExactFitStaysInShard(t *testing.T) {
	store, err := Open(t.TempDir(), WithMaxShardSize(3))
	require.NoError(t, err)

	require.NoError(t, store.Append(map[string]core.Outcome{
		"a": annotated(0, 0),
		"b": annotated(0, 0),
	}))
	require.NoError(t, store.Append(map[string]core.Outcome{
		"c": annotated(0, 0),
	}))

	require.Len(t, store.Shards(), 1)
	assert.Len(t, store.Shards()[0], 3)
}

func TestAppend_EmptyBatchIsNoOp(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, store.Append(nil))
	require.NoError(t, store.Append(map[string]core.Outcome{}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, store.Len())
}

func TestReopen_ResumesFromDisk(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Append(map[string]core.Outcome{
		"1": annotated(0.5, 1.2),
		"2": core.Failure(),
	}))

	reopened, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, 2, reopened.Len())
	assert.True(t, reopened.Contains("1"))
	assert.True(t, reopened.Contains("2"))
	assert.True(t, reopened.Shards()[0]["2"].Failed())
	assert.InDelta(t, 0.5, reopened.Shards()[0]["1"].Annotation.DocumentSentiment.Score, 1e-9)
}

func TestSeenIDs_SpansAllShards(t *testing.T) {
	dir := t.TempDir()
	writeShardFile(t, dir, "00001.json", map[string]any{"a": "language error", "b": "language error"})
	writeShardFile(t, dir, "00002.json", map[string]any{"c": "language error"})

	store, err := Open(dir)
	require.NoError(t, err)

	seen := store.SeenIDs()
	assert.Len(t, seen, 3)
	for _, id := range []string{"a", "b", "c"} {
		_, ok := seen[id]
		assert.True(t, ok, "missing %s", id)
	}

	assert.False(t, store.Contains("d"))
}
