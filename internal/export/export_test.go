package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

func sampleDiffs() []insights.MetricDiff {
	result := insights.CompareReports(
		&insights.PerformanceReport{Name: "base", Metrics: map[string]float64{
			"latency.p95": 200,
			"rps":         1000,
			"errors":      0,
			"old.metric":  3,
		}},
		&insights.PerformanceReport{Name: "cur", Metrics: map[string]float64{
			"latency.p95": 150.5,
			"rps":         1100,
			"errors":      2,
		}},
	)
	return result.Diffs
}

func findRow(t *testing.T, records [][]string, metric string) []string {
	t.Helper()
	for _, r := range records {
		if r[0] == metric {
			return r
		}
	}
	t.Fatalf("row %q not found in %v", metric, records)
	return nil
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatCSV, false},
		{"csv", FormatCSV, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleDiffs()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, Header, records[0])

	latency := findRow(t, records, "Latency P95")
	assert.Equal(t, []string{"Latency P95", "200", "150.5", "-49.5", "-24.75%", "improved"}, latency)

	// Zero baseline has no percentage.
	errorsRow := findRow(t, records, "Errors")
	assert.Equal(t, "0", errorsRow[1])
	assert.Equal(t, "", errorsRow[4])
	assert.Equal(t, "worse", errorsRow[5])

	// Missing current side leaves empty cells.
	old := findRow(t, records, "Old Metric")
	assert.Equal(t, []string{"Old Metric", "3", "", "", "", "unknown"}, old)
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "Metric,Baseline,Current,Change,Percentage Change,Trend\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleDiffs()))

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 4)

	for _, row := range rows {
		for _, col := range Header {
			assert.Contains(t, row, col)
		}
	}

	var latency map[string]interface{}
	for _, row := range rows {
		if row["Metric"] == "Latency P95" {
			latency = row
		}
	}
	require.NotNil(t, latency)
	assert.Equal(t, 200.0, latency["Baseline"])
	assert.Equal(t, -24.75, latency["Percentage Change"])
	assert.Equal(t, "improved", latency["Trend"])
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, nil))
	assert.JSONEq(t, "[]", buf.String())
}

func TestWrite_Dispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleDiffs()))
	assert.True(t, json.Valid(buf.Bytes()))

	err := Write(&buf, Format("xml"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatMetadata(t *testing.T) {
	assert.Equal(t, "application/json", FormatJSON.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, ".csv", FormatCSV.Extension())
}
