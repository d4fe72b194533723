// internal/app/report.go
package app

import (
	"os"

	"github.com/spf13/cobra"

	"chemsift/internal/audit"
)

// newReportCmd turns an audit log into the tabular per-chunk summary.
// With one argument the CSV goes to stdout.
func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <audit.jsonl> [summary.csv]",
		Short: "render an audit log as a per-chunk CSV summary",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return usagef("%v", err)
			}
			defer func() { _ = f.Close() }()
			entries, err := audit.ReadEntries(f)
			if err != nil {
				return runtimef("%v", err)
			}

			if len(args) == 1 {
				if err := audit.WriteSummaryCSV(cmd.OutOrStdout(), entries); err != nil {
					return runtimef("%v", err)
				}
				return nil
			}
			out, err := os.Create(args[1])
			if err != nil {
				return runtimef("%v", err)
			}
			if err := audit.WriteSummaryCSV(out, entries); err != nil {
				_ = out.Close()
				return runtimef("%v", err)
			}
			if err := out.Close(); err != nil {
				return runtimef("%v", err)
			}
			return nil
		},
	}
}
