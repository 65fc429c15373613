// Package cli implements the perfdiff command line tool.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dil-najha/Performance-Insights-sub001/internal/analysis"
	"github.com/dil-najha/Performance-Insights-sub001/internal/config"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/client"
)

// ErrRegression is returned by compare --fail-on-worse when any metric got
// worse.
var ErrRegression = errors.New("performance regression detected")

type options struct {
	configFile string
	serverURL  string
	timeout    time.Duration
}

// NewRootCommand builds the perfdiff command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "perfdiff",
		Short: "Compare performance reports and score their impact",
		Long: `perfdiff compares two performance reports (k6 summaries, Lighthouse-style
web vitals, or any JSON object of numbers), classifies every metric change
and estimates the business impact.

Comparisons run locally unless --server points at a Performance Insights
service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "service config file whose analysis section is used locally")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", "", "Performance Insights service URL (e.g. http://localhost:8080)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")

	root.AddCommand(
		newCompareCommand(opts),
		newNormalizeCommand(opts),
		newHistoryCommand(opts),
	)
	return root
}

// Execute runs perfdiff with os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func (o *options) client() (*client.Client, error) {
	cfg := client.DefaultConfig()
	cfg.BaseURL = o.serverURL
	cfg.Timeout = o.timeout
	return client.New(cfg)
}

// analyzer builds a local analyzer without cache or history.
func (o *options) analyzer(thresholdsFile string) (*analysis.Analyzer, error) {
	cfg := config.DefaultConfig()
	if o.configFile != "" {
		loaded, err := config.Load(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if thresholdsFile != "" {
		t, err := config.LoadThresholds(thresholdsFile)
		if err != nil {
			return nil, err
		}
		cfg.Analysis.Thresholds = t
	}

	return analysis.New(analysis.Options{Config: cfg.Analysis}), nil
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
