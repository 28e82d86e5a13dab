package warehouse

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	query, err := RenderTemplate(
		"SELECT * FROM `{project_id}.{dataset}.{table}` WHERE dept IN ({departments}) LIMIT {limit}",
		map[string]any{
			"project_id":  "demandcast-prod",
			"dataset":     "forecasting",
			"table":       "weekly_sales",
			"departments": FormatList([]string{"210", "132"}),
			"limit":       100,
		})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT * FROM `demandcast-prod.forecasting.weekly_sales` WHERE dept IN ('210', '132') LIMIT 100",
		query)
}

func TestRenderTemplateMissingParams(t *testing.T) {
	_, err := RenderTemplate("SELECT {a}, {b}, {a} FROM t", map[string]any{"a": 1})
	require.ErrorIs(t, err, ErrMissingParam)
	assert.Contains(t, err.Error(), "b")
	assert.NotContains(t, err.Error(), "a,", "provided placeholders are not missing")
}

func TestRenderTemplateIgnoresUnusedParams(t *testing.T) {
	query, err := RenderTemplate("SELECT 1", map[string]any{"unused": "x"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", query)
}

func TestRenderTemplateLeavesPlainSQLAlone(t *testing.T) {
	sql := "SELECT strftime('%Y', date) FROM sales"
	query, err := RenderTemplate(sql, nil)
	require.NoError(t, err)
	assert.Equal(t, sql, query)
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "'210', '132'", FormatList([]string{"210", "132"}))
	assert.Equal(t, "'solo'", FormatList([]string{"solo"}))
	assert.Equal(t, "", FormatList(nil))
	assert.Equal(t, "'it''s'", FormatList([]string{"it's"}))
}

func TestLoadQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly_sales.sql")
	require.NoError(t, os.WriteFile(path, []byte("SELECT * FROM {table}\n"), 0o644))

	query, err := LoadQuery(path)
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM {table}\n", query)

	_, err = LoadQuery(filepath.Join(t.TempDir(), "absent.sql"))
	require.Error(t, err)
}
