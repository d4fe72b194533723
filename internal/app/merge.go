// internal/app/merge.go
package app

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"chemsift/internal/merge"
)

// newMergeCmd is the standalone assembler for runs staged with
// --no-merge (or rescued after a crash). Tier subdirectories merge into
// one output per tier.
func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <staging-dir> <output>",
		Short: "fold staged chunk artifacts into one selection file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			staging, out := args[0], args[1]

			tiers, err := merge.Tiers(staging)
			if err != nil {
				return runtimef("%v", err)
			}
			if len(tiers) == 0 {
				rows, err := merge.Merge(staging, out)
				if err != nil {
					return runtimef("%v", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", out, rows)
				return nil
			}
			for _, tier := range tiers {
				tierOut := tierOutputPath(out, tier)
				rows, err := merge.Merge(filepath.Join(staging, tier), tierOut)
				if err != nil {
					return runtimef("%v", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d rows\n", tierOut, rows)
			}
			return nil
		},
	}
}

// tierOutputPath inserts the tier name before the output's extensions:
// "sel.tsv.gz" + "Z1" -> "sel_Z1.tsv.gz".
func tierOutputPath(out, tier string) string {
	dir, base := filepath.Dir(out), filepath.Base(out)
	ext := ""
	for {
		e := filepath.Ext(base)
		if e == "" {
			break
		}
		ext = e + ext
		base = strings.TrimSuffix(base, e)
	}
	return filepath.Join(dir, base+"_"+tier+ext)
}
