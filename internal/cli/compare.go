package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/export"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/client"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

// comparison is what every output format renders, whether the result was
// computed locally or by the service.
type comparison struct {
	ID           string                  `json:"id,omitempty"`
	BaselineName string                  `json:"baselineName"`
	CurrentName  string                  `json:"currentName"`
	Diffs        []insights.MetricDiff   `json:"diffs"`
	TotalDiffs   int                     `json:"totalDiffs"`
	Truncated    bool                    `json:"truncated"`
	Summary      insights.Summary        `json:"summary"`
	Impact       *insights.ImpactSummary `json:"impact"`
	Suggestions  []string                `json:"suggestions"`
	Warnings     []string                `json:"warnings"`
}

func fromResult(r *analysis.Result) *comparison {
	return &comparison{
		ID:           r.ID,
		BaselineName: r.Baseline.Name,
		CurrentName:  r.Current.Name,
		Diffs:        r.Diffs,
		TotalDiffs:   r.TotalDiffs,
		Truncated:    r.Truncated,
		Summary:      r.Summary,
		Impact:       r.Impact,
		Suggestions:  r.Suggestions,
		Warnings:     r.Warnings,
	}
}

func fromResponse(r *client.CompareResponse) *comparison {
	c := &comparison{
		ID:          r.ID,
		Diffs:       r.Diffs,
		TotalDiffs:  r.TotalDiffs,
		Truncated:   r.Truncated,
		Summary:     r.Summary,
		Impact:      r.Impact,
		Suggestions: r.Suggestions,
		Warnings:    r.Warnings,
	}
	if r.Baseline != nil {
		c.BaselineName = r.Baseline.Name
	}
	if r.Current != nil {
		c.CurrentName = r.Current.Name
	}
	return c
}

type compareFlags struct {
	maxMetrics   int
	format       string
	thresholds   string
	save         bool
	failOnWorse  bool
	baselineName string
	currentName  string
}

func newCompareCommand(opts *options) *cobra.Command {
	flags := &compareFlags{}

	cmd := &cobra.Command{
		Use:   "compare BASELINE CURRENT",
		Short: "Compare two performance reports",
		Example: `  # Compare two k6 summaries
  perfdiff compare before.json after.json

  # Show the 10 most significant changes as JSON
  perfdiff compare before.json after.json --max 10 --format json

  # Fail a CI job on any regression
  perfdiff compare baseline.json - --fail-on-worse < current.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, opts, flags, args[0], args[1])
		},
	}

	cmd.Flags().IntVar(&flags.maxMetrics, "max", 0, "show at most N diffs, most significant first (0 shows all)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "text", "output format: text, json or csv")
	cmd.Flags().StringVar(&flags.thresholds, "thresholds", "", "YAML file overriding the impact threshold table (local mode)")
	cmd.Flags().BoolVar(&flags.save, "save", false, "save the comparison to the service history (requires --server)")
	cmd.Flags().BoolVar(&flags.failOnWorse, "fail-on-worse", false, "exit non-zero when any metric got worse")
	cmd.Flags().StringVar(&flags.baselineName, "baseline-name", "", "override the baseline report name")
	cmd.Flags().StringVar(&flags.currentName, "current-name", "", "override the current report name")
	return cmd
}

func runCompare(cmd *cobra.Command, opts *options, flags *compareFlags, baselinePath, currentPath string) error {
	format := strings.ToLower(flags.format)
	if format != "text" && format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format %q", flags.format)
	}
	if flags.maxMetrics < 0 {
		return fmt.Errorf("--max cannot be negative")
	}
	if flags.save && opts.serverURL == "" {
		return fmt.Errorf("--save requires --server")
	}

	baseline, err := readInput(cmd, baselinePath)
	if err != nil {
		return err
	}
	current, err := readInput(cmd, currentPath)
	if err != nil {
		return err
	}

	ctx, cancel := opts.context(cmd)
	defer cancel()

	var result *comparison
	if opts.serverURL != "" {
		c, err := opts.client()
		if err != nil {
			return err
		}
		resp, err := c.Compare(ctx, client.CompareRequest{
			Baseline:     baseline,
			Current:      current,
			BaselineName: flags.baselineName,
			CurrentName:  flags.currentName,
			MaxMetrics:   flags.maxMetrics,
			Save:         flags.save,
		})
		if err != nil {
			return err
		}
		result = fromResponse(resp)
	} else {
		a, err := opts.analyzer(flags.thresholds)
		if err != nil {
			return err
		}
		res, err := a.Analyze(ctx, analysis.Request{
			Baseline:     baseline,
			Current:      current,
			BaselineName: flags.baselineName,
			CurrentName:  flags.currentName,
			MaxMetrics:   flags.maxMetrics,
		})
		if err != nil {
			return err
		}
		result = fromResult(res)
	}

	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(result)
	case "csv":
		err = export.WriteCSV(out, result.Diffs)
	default:
		err = writeComparisonText(out, result)
	}
	if err != nil {
		return err
	}

	if flags.failOnWorse && result.Summary.Worse > 0 {
		return fmt.Errorf("%w: %d metric(s) worse", ErrRegression, result.Summary.Worse)
	}
	return nil
}
