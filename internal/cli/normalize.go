package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dil-najha/Performance-Insights-sub001/pkg/insights"
)

func newNormalizeCommand(opts *options) *cobra.Command {
	var (
		name   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "normalize FILE",
		Short: "Show how a report is flattened into metrics",
		Long: `normalize validates one report and prints the flat metric map the
comparison would use, with every dropped value listed as a warning.
Exits non-zero when the report is rejected.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			var res *insights.ValidationResult
			if opts.serverURL != "" {
				c, err := opts.client()
				if err != nil {
					return err
				}
				if res, err = c.Normalize(ctx, data, name); err != nil {
					return err
				}
			} else {
				a, err := opts.analyzer("")
				if err != nil {
					return err
				}
				local := a.Normalize(ctx, data, name)
				res = &local
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				err = enc.Encode(res)
			case "text":
				err = writeValidationText(out, res)
			default:
				return fmt.Errorf("unsupported format %q", format)
			}
			if err != nil {
				return err
			}
			return res.Err()
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "report name when the payload has none")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
