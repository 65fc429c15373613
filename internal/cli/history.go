package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dil-najha/Performance-Insights-sub001/internal/export"
	"github.com/dil-najha/Performance-Insights-sub001/pkg/client"
)

func newHistoryCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse comparisons saved by the service (requires --server)",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.serverURL == "" {
				return fmt.Errorf("history requires --server")
			}
			return nil
		},
	}

	cmd.AddCommand(newHistoryListCommand(opts), newHistoryShowCommand(opts), newHistoryDeleteCommand(opts))
	return cmd
}

func newHistoryListCommand(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved comparisons, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			records, err := c.History(ctx, limit)
			if err != nil {
				return err
			}
			return writeHistoryText(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of records (0 uses the server default)")
	return cmd
}

func newHistoryShowCommand(opts *options) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one saved comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			record, err := c.Record(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			case "csv":
				return export.WriteCSV(out, record.Diffs)
			case "text":
				return writeComparisonText(out, fromRecord(record))
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text, json or csv")
	return cmd
}

func newHistoryDeleteCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one saved comparison",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := opts.context(cmd)
			defer cancel()

			if err := c.DeleteRecord(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func fromRecord(r *client.Record) *comparison {
	return &comparison{
		ID:           r.ID,
		BaselineName: r.BaselineName,
		CurrentName:  r.CurrentName,
		Diffs:        r.Diffs,
		TotalDiffs:   len(r.Diffs),
		Summary:      r.Summary,
		Impact:       r.Impact,
		Suggestions:  r.Suggestions,
	}
}
