package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"painelpib/internal/loader"
	"painelpib/internal/present"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Load both sources and summarize what was kept, dropped and derived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.loadSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🗺️  Municípios: %d (ignorados na geometria: %d)\n", snap.Index.Len(), snap.Geometry.Skipped)
			fmt.Fprintf(out, "📥 Linhas: %d | mantidas: %d | descartadas: %d\n",
				snap.Rows.Rows, snap.Rows.Kept, snap.Rows.DroppedTotal())
			reasons := make([]string, 0, len(snap.Rows.Dropped))
			for r := range snap.Rows.Dropped {
				reasons = append(reasons, string(r))
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				fmt.Fprintf(out, "   - %s: %d\n", r, snap.Rows.Dropped[loader.DropReason(r)])
			}
			fmt.Fprintf(out, "🧊 Série fixa: %s | sobrescritas: %d\n", snap.Series, snap.Cube.Overwrites())
			fmt.Fprintf(out, "📊 Variável padrão: %s\n", snap.DefaultVariable)
			for _, v := range snap.Variables {
				fmt.Fprintf(out, "   %s\n", present.PanoramaStatus(v, snap.Series, snap.Years(v)))
			}
			return nil
		},
	}
}
