package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"painelpib/internal/export"
	"painelpib/internal/present"
)

func newRankCmd(a *app) *cobra.Command {
	var (
		sel    selectionFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Print the top-N municipalities of one year",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.loadSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			variable, year, top := sel.resolve(snap, a.limits())
			v := snap.Ranking(variable, year, top)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(v)
			}
			fmt.Fprintf(out, "🏆 %s\n", present.RankingMeta(v.Variable, v.Series, v.Year, v.TopN, v.NoData))
			for _, r := range v.Rows {
				fmt.Fprintf(out, "%3d. %-32s %-9s %20s\n", r.Rank, r.Name, r.Code, export.FormatBRL(r.Value))
			}
			return nil
		},
	}
	sel.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the ranking view as JSON")
	return cmd
}
