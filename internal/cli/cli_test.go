package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/api"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/internal/testutil"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

func writeReport(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func reportFiles(t *testing.T) (string, string) {
	t.Helper()
	baseline := writeReport(t, "baseline.json", testutil.ReportJSON("v1", map[string]float64{
		"responseTimeAvg": 200,
		"errorRate":       1,
		"throughput":      100,
	}))
	current := writeReport(t, "current.json", testutil.ReportJSON("v2", map[string]float64{
		"responseTimeAvg": 150,
		"errorRate":       3,
		"throughput":      101,
	}))
	return baseline, current
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCompare_Text(t *testing.T) {
	baseline, current := reportFiles(t)

	out, err := run(t, "", "compare", baseline, current)
	require.NoError(t, err)

	assert.Contains(t, out, "v1 → v2")
	assert.Contains(t, out, "METRIC")
	assert.Contains(t, out, "▲ improved")
	assert.Contains(t, out, "▼ worse")
	assert.Contains(t, out, "1 improved, 1 worse, 1 unchanged, 0 unknown")
	assert.Contains(t, out, "Performance score:")
	assert.Contains(t, out, "Suggestions:")
}

func TestCompare_JSON(t *testing.T) {
	baseline, current := reportFiles(t)

	out, err := run(t, "", "compare", baseline, current, "--format", "json", "--max", "2")
	require.NoError(t, err)

	var got comparison
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Diffs, 2)
	assert.Equal(t, 3, got.TotalDiffs)
	assert.True(t, got.Truncated)
	assert.Equal(t, insights.Summary{Improved: 1, Worse: 1, Same: 1}, got.Summary)
}

func TestCompare_CSV(t *testing.T) {
	baseline, current := reportFiles(t)

	out, err := run(t, "", "compare", baseline, current, "-f", "csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Metric,Baseline,Current,Change,Percentage Change,Trend", lines[0])
}

func TestCompare_Truncated(t *testing.T) {
	baseline, current := reportFiles(t)

	out, err := run(t, "", "compare", baseline, current, "--max", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(showing 1 of 3 metrics)")
}

func TestCompare_Stdin(t *testing.T) {
	baseline, _ := reportFiles(t)
	current := testutil.ReportJSON("piped", map[string]float64{"responseTimeAvg": 100})

	out, err := run(t, string(current), "compare", baseline, "-", "--current-name", "renamed")
	require.NoError(t, err)
	assert.Contains(t, out, "v1 → renamed")
}

func TestCompare_FailOnWorse(t *testing.T) {
	baseline, current := reportFiles(t)

	_, err := run(t, "", "compare", baseline, current, "--fail-on-worse")
	assert.True(t, errors.Is(err, ErrRegression), "got %v", err)

	_, err = run(t, "", "compare", baseline, baseline, "--fail-on-worse")
	assert.NoError(t, err)
}

func TestCompare_Errors(t *testing.T) {
	baseline, current := reportFiles(t)
	invalid := writeReport(t, "invalid.json", []byte(`[1,2,3]`))

	tests := []struct {
		name string
		args []string
	}{
		{"missing argument", []string{"compare", baseline}},
		{"missing file", []string{"compare", baseline, filepath.Join(t.TempDir(), "nope.json")}},
		{"bad format", []string{"compare", baseline, current, "--format", "xml"}},
		{"negative max", []string{"compare", baseline, current, "--max", "-1"}},
		{"save without server", []string{"compare", baseline, current, "--save"}},
		{"missing thresholds file", []string{"compare", baseline, current, "--thresholds", "/does/not/exist.yaml"}},
		{"invalid report", []string{"compare", invalid, current}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "", tt.args...)
			assert.Error(t, err)
		})
	}

	_, err := run(t, "", "compare", invalid, current)
	assert.ErrorIs(t, err, insights.ErrInvalidInput)
}

func TestNormalize(t *testing.T) {
	k6 := writeReport(t, "k6.json", testutil.K6Summary(120, 340, 0.02, 55))

	out, err := run(t, "", "normalize", k6, "--name", "load-test")
	require.NoError(t, err)
	assert.Contains(t, out, "load-test (")
	assert.Contains(t, out, "KEY")

	out, err = run(t, "", "normalize", k6, "--format", "json")
	require.NoError(t, err)
	var res insights.ValidationResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Valid)
	assert.Equal(t, "report", res.Report.Name)

	empty := writeReport(t, "empty.json", []byte(`{"name":"nothing"}`))
	out, err = run(t, "", "normalize", empty)
	assert.ErrorIs(t, err, insights.ErrInvalidInput)
	assert.Contains(t, out, "Invalid report:")
}

func TestHistory_RequiresServer(t *testing.T) {
	_, err := run(t, "", "history", "list")
	assert.Error(t, err)
}

func TestRemoteMode(t *testing.T) {
	history := testutil.TestHistoryStore(t)
	handler := api.NewRESTHandler(api.Options{
		Analyzer: analysis.New(analysis.Options{
			Config:  config.DefaultConfig().Analysis,
			History: history,
		}),
		Logger:  testutil.TestLogger(),
		Version: "test",
	})
	srv := httptest.NewServer(api.SetupRoutes(handler))
	defer srv.Close()

	baseline, current := reportFiles(t)

	out, err := run(t, "", "--server", srv.URL, "compare", baseline, current, "--save", "--format", "json")
	require.NoError(t, err)
	var saved comparison
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, "v1", saved.BaselineName)

	out, err = run(t, "", "--server", srv.URL, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, saved.ID)

	out, err = run(t, "", "--server", srv.URL, "history", "show", saved.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved as "+saved.ID)

	out, err = run(t, "", "--server", srv.URL, "normalize", baseline)
	require.NoError(t, err)
	assert.Contains(t, out, "v1 (3 metrics)")

	_, err = run(t, "", "--server", srv.URL, "history", "delete", saved.ID)
	require.NoError(t, err)

	_, err = run(t, "", "--server", srv.URL, "history", "show", saved.ID)
	assert.Error(t, err)

	out, err = run(t, "", "--server", srv.URL, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved comparisons")
}
