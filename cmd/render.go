package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"painelpib/internal/export"
	"painelpib/internal/query"
)

// renderSeriesDefault is how many ranking leaders stand in for an empty --code selection.
const renderSeriesDefault = 5

func newRenderCmd(a *app) *cobra.Command {
	var (
		sel    selectionFlags
		codes  []string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the workbook, charts, Word tables and report of one selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				a.cfg.OutputDir = outDir
			}
			snap, err := a.loadSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			r := renderer{app: a, snap: snap, out: cmd.OutOrStdout()}
			variable, year, top := sel.resolve(snap, a.limits())
			return r.run(variable, year, top, codes)
		},
	}
	sel.register(cmd)
	cmd.Flags().StringSliceVar(&codes, "code", nil, "Municipality codes for the series (default: ranking leaders)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default from config)")
	return cmd
}

type renderer struct {
	app  *app
	snap *query.Snapshot
	out  io.Writer
}

func (r renderer) write(name string, fn func(io.Writer) error) error {
	path := filepath.Join(r.app.cfg.OutputDir, name)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "📈 %s\n", path)
	return nil
}

func (r renderer) run(variable string, year, top int, codes []string) error {
	region := r.app.cfg.Region
	ranking := r.snap.Ranking(variable, year, top)
	if len(codes) == 0 {
		for i, row := range ranking.Rows {
			if i == renderSeriesDefault {
				break
			}
			codes = append(codes, row.Code)
		}
	}
	series := r.snap.Timeline(variable, codes, true)
	rows := r.snap.SeriesRows(variable, codes)
	mapView := r.snap.Map(variable)
	totals := r.snap.Totals(variable)

	rankDoc := export.RankingDocument(ranking, region)
	if err := r.write(rankDoc.Filename(".doc"), func(w io.Writer) error { return export.WriteDoc(w, rankDoc) }); err != nil {
		return err
	}
	if p, err := export.RankingChart(ranking); err == nil {
		if err := r.write(rankDoc.Filename(".png"), func(w io.Writer) error {
			return export.WritePNG(w, p, export.RankingWidth, export.RankingHeight)
		}); err != nil {
			return err
		}
	} else if !errors.Is(err, export.ErrNoData) {
		return err
	}

	if seriesDoc, err := export.SeriesDocument(variable, r.snap.Series, region, series.Names(), rows); err == nil {
		if err := r.write(seriesDoc.Filename(".doc"), func(w io.Writer) error { return export.WriteDoc(w, seriesDoc) }); err != nil {
			return err
		}
		if p, err := export.SeriesChart(series); err == nil {
			if err := r.write(seriesDoc.Filename(".png"), func(w io.Writer) error {
				return export.WritePNG(w, p, export.SeriesWidth, export.SeriesHeight)
			}); err != nil {
				return err
			}
		} else if !errors.Is(err, export.ErrNoData) {
			return err
		}
	} else if !errors.Is(err, export.ErrNoSelection) {
		return err
	}

	if p, err := export.MapChart(mapView, year, r.snap.Geometry.Shapes, region); err == nil {
		name := export.SanitizeFilename(fmt.Sprintf("mapa_%s_%s_%s_%d", region, variable, r.snap.Series, year)) + ".png"
		if err := r.write(name, func(w io.Writer) error {
			return export.WritePNG(w, p, export.MapWidth, export.MapHeight)
		}); err != nil {
			return err
		}
	} else if !errors.Is(err, export.ErrNoData) {
		return err
	}

	base := export.SanitizeFilename(fmt.Sprintf("painel_%s_%s_%s_%d", region, variable, r.snap.Series, year))
	if err := r.write(base+".xlsx", func(w io.Writer) error {
		return export.WriteWorkbook(w, export.Workbook{Ranking: &ranking, Series: &series, Rows: rows, Map: &mapView, Totals: &totals})
	}); err != nil {
		return err
	}
	return r.write(base+".md", func(w io.Writer) error {
		return export.WriteReport(w, export.Report{
			Region:    region,
			Ranking:   ranking,
			Series:    series,
			Totals:    totals,
			Rows:      r.snap.Rows,
			Generated: time.Now(),
		})
	})
}
