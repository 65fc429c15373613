// Package export renders metric diffs as CSV or JSON tables.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Header is the column order shared by both formats.
var Header = []string{"Metric", "Baseline", "Current", "Change", "Percentage Change", "Trend"}

// ParseFormat accepts csv or json in any case. An empty string means csv.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

func (f Format) Extension() string {
	return "." + string(f)
}

// Row is one exported diff. Nil fields are exported as empty CSV cells or
// JSON null.
type Row struct {
	Metric           string   `json:"Metric"`
	Baseline         *float64 `json:"Baseline"`
	Current          *float64 `json:"Current"`
	Change           *float64 `json:"Change"`
	PercentageChange *float64 `json:"Percentage Change"`
	Trend            string   `json:"Trend"`
}

// Rows converts diffs in their given order. Percentages are rounded to two
// decimals.
func Rows(diffs []insights.MetricDiff) []Row {
	rows := make([]Row, 0, len(diffs))
	for _, d := range diffs {
		row := Row{
			Metric:   d.Label,
			Baseline: d.Baseline,
			Current:  d.Current,
			Change:   d.Change,
			Trend:    string(d.Trend),
		}
		if row.Metric == "" {
			row.Metric = insights.Label(d.Key)
		}
		if d.Pct != nil {
			pct := math.Round(*d.Pct*100) / 100
			row.PercentageChange = &pct
		}
		rows = append(rows, row)
	}
	return rows
}

// Write renders diffs in the given format.
func Write(w io.Writer, format Format, diffs []insights.MetricDiff) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, diffs)
	case FormatJSON:
		return WriteJSON(w, diffs)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func WriteCSV(w io.Writer, diffs []insights.MetricDiff) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, d := range diffs {
		record := []string{
			label(d),
			number(d.Baseline),
			number(d.Current),
			number(d.Change),
			percent(d.Pct),
			string(d.Trend),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %s: %w", d.Key, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteJSON(w io.Writer, diffs []insights.MetricDiff) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(Rows(diffs))
}

func label(d insights.MetricDiff) string {
	if d.Label != "" {
		return d.Label
	}
	return insights.Label(d.Key)
}

func number(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func percent(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + "%"
}
