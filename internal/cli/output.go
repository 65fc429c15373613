package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/dil-najha/Performance-Insights-sub001/pkg/client"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

var trendMarks = map[insights.Trend]string{
	insights.TrendImproved: "▲ improved",
	insights.TrendWorse:    "▼ worse",
	insights.TrendSame:     "= same",
	insights.TrendUnknown:  "? unknown",
}

func writeComparisonText(w io.Writer, c *comparison) error {
	fmt.Fprintf(w, "%s → %s\n", orDash(c.BaselineName), orDash(c.CurrentName))
	if c.ID != "" {
		fmt.Fprintf(w, "Saved as %s\n", c.ID)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tBASELINE\tCURRENT\tCHANGE\tPCT\tTREND")
	for _, d := range c.Diffs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Label, number(d.Baseline), number(d.Current), number(d.Change), percent(d.Pct), trendMarks[d.Trend])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if c.Truncated {
		fmt.Fprintf(w, "(showing %d of %d metrics)\n", len(c.Diffs), c.TotalDiffs)
	}

	s := c.Summary
	fmt.Fprintf(w, "\n%d improved, %d worse, %d unchanged, %d unknown\n", s.Improved, s.Worse, s.Same, s.Unknown)

	if imp := c.Impact; imp != nil {
		fmt.Fprintf(w, "Performance score: %.1f\n", imp.PerformanceScore)
		fmt.Fprintf(w, "Revenue risk: %s | User experience: %s | SEO: %s\n",
			imp.BusinessImpact.RevenueRisk, imp.BusinessImpact.UserExperience, imp.BusinessImpact.SEOImpact)
		if imp.LatencyImprovementMs != nil {
			fmt.Fprintf(w, "Latency (%s): %s ms", imp.LatencyMetric, number(imp.LatencyImprovementMs))
			if imp.LatencyImprovementPct != nil {
				fmt.Fprintf(w, " (%s)", percent(imp.LatencyImprovementPct))
			}
			fmt.Fprintln(w)
		}
		if imp.CoreWebVitals != nil {
			fmt.Fprintf(w, "Core Web Vitals: %s\n", imp.CoreWebVitals.Score)
		}
	}

	if len(c.Suggestions) > 0 {
		fmt.Fprintln(w, "\nSuggestions:")
		for _, s := range c.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	if len(c.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, s := range c.Warnings {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}

func writeValidationText(w io.Writer, res *insights.ValidationResult) error {
	if !res.Valid {
		fmt.Fprintln(w, "Invalid report:")
		for _, e := range res.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	} else {
		fmt.Fprintf(w, "%s (%d metrics)\n\n", res.Report.Name, len(res.Report.Metrics))

		keys := make([]string, 0, len(res.Report.Metrics))
		for k := range res.Report.Metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tLABEL\tVALUE")
		for _, k := range keys {
			v := res.Report.Metrics[k]
			fmt.Fprintf(tw, "%s\t%s\t%s\n", k, insights.Label(k), number(&v))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintln(w, "\nWarnings:")
		for _, s := range res.Warnings {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}

func writeHistoryText(w io.Writer, records []client.RecordSummary) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No saved comparisons")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tBASELINE\tCURRENT\tIMPROVED\tWORSE\tSCORE")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%.1f\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), orDash(r.BaselineName), orDash(r.CurrentName),
			r.Summary.Improved, r.Summary.Worse, r.PerformanceScore)
	}
	return tw.Flush()
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func percent(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%+.2f%%", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
