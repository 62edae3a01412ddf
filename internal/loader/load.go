// Package loader turns the two raw data sources into the session's entity index and normalized records.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Fetcher retrieves the bytes of a source location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// Options locates and describes both sources.
type Options struct {
	GeometrySource string
	TableSource    string
	Geometry       GeometryOptions
	Records        RecordOptions
}

// Dataset is the outcome of one complete load.
type Dataset struct {
	Geometry *Geometry
	Records  []Record
	Stats    RowStats
	Elapsed  time.Duration
}

// Load fetches the geometry and then the table. Failing to fetch or parse either one is fatal;
// there is no partial dataset.
func Load(ctx context.Context, f Fetcher, opts Options, log zerolog.Logger) (*Dataset, error) {
	start := time.Now()

	geoData, err := f.Fetch(ctx, opts.GeometrySource)
	if err != nil {
		return nil, fmt.Errorf("fetch geometry: %w", err)
	}
	geo, err := LoadGeometry(geoData, opts.Geometry)
	if err != nil {
		return nil, fmt.Errorf("load geometry %s: %w", opts.GeometrySource, err)
	}
	log.Info().Int("entities", geo.Index.Len()).Int("skipped", geo.Skipped).
		Str("source", opts.GeometrySource).Msg("🗺️  geometry loaded")

	tableData, err := f.Fetch(ctx, opts.TableSource)
	if err != nil {
		return nil, fmt.Errorf("fetch table: %w", err)
	}
	recs, stats, err := LoadRecords(tableData, geo.Index, opts.Records)
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", opts.TableSource, err)
	}
	if dropped := stats.DroppedTotal(); dropped > 0 {
		ev := log.Debug()
		for reason, n := range stats.Dropped {
			ev = ev.Int(string(reason), n)
		}
		ev.Msg("rows dropped by reason")
	}
	log.Info().Int("rows", stats.Rows).Int("kept", stats.Kept).Int("dropped", stats.DroppedTotal()).
		Str("source", opts.TableSource).Msg("📥 records loaded")

	return &Dataset{
		Geometry: geo,
		Records:  recs,
		Stats:    stats,
		Elapsed:  time.Since(start),
	}, nil
}
