// Package cmd is the painelpib command line: the HTTP dashboard API and the offline renderers.
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"painelpib/internal/config"
	"painelpib/internal/loader"
	"painelpib/internal/logging"
	"painelpib/internal/query"
	"painelpib/internal/source"
)

// app is the state shared by every subcommand once the persistent flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "painelpib",
		Short:         "Municipal GDP dashboard: choropleth, bar race, ranking and series over one region",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(a),
		newRenderCmd(a),
		newRankCmd(a),
		newInspectCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg

	errOut := cmd.ErrOrStderr()
	pretty := false
	if f, ok := errOut.(*os.File); ok {
		pretty = isatty.IsTerminal(f.Fd())
	}
	a.log = logging.New(cfg.LogLevel, errOut, pretty)
	return nil
}

// fetcher routes locations by scheme; S3 is attached only when a source needs it.
func (a *app) fetcher(ctx context.Context) (*source.Router, error) {
	r := source.NewRouter(&http.Client{Timeout: a.cfg.FetchTimeout}, a.cfg.MaxSourceBytes)
	if isS3(a.cfg.GeometrySource) || isS3(a.cfg.TableSource) {
		s3f, err := source.NewS3Fetcher(ctx, source.S3Options{
			Region:    a.cfg.S3.Region,
			Endpoint:  a.cfg.S3.Endpoint,
			PathStyle: a.cfg.S3.PathStyle,
			MaxBytes:  a.cfg.MaxSourceBytes,
		})
		if err != nil {
			return nil, err
		}
		r.S3 = s3f
	}
	return r, nil
}

func isS3(location string) bool {
	return strings.HasPrefix(strings.ToLower(location), "s3://")
}

func (a *app) sessionOptions(obs query.Observer) query.Options {
	return query.Options{
		Load: loader.Options{
			GeometrySource: a.cfg.GeometrySource,
			TableSource:    a.cfg.TableSource,
			Geometry: loader.GeometryOptions{
				CodeProperty: a.cfg.CodeProperty,
				NameProperty: a.cfg.NameProperty,
			},
			Records: loader.RecordOptions{Delimiter: a.cfg.Delimiter()},
		},
		PreferredVariable: a.cfg.PreferredVariable,
		Timeout:           a.cfg.FetchTimeout,
		Observer:          obs,
	}
}

func (a *app) newSession(ctx context.Context, obs query.Observer) (*query.Session, error) {
	f, err := a.fetcher(ctx)
	if err != nil {
		return nil, err
	}
	return query.NewSession(f, a.sessionOptions(obs), a.log), nil
}

// loadSnapshot builds a session and loads it once, for the one-shot commands.
func (a *app) loadSnapshot(ctx context.Context) (*query.Snapshot, error) {
	sess, err := a.newSession(ctx, nil)
	if err != nil {
		return nil, err
	}
	if err := sess.Load(ctx); err != nil {
		return nil, err
	}
	return sess.Snapshot()
}

func (a *app) limits() query.Limits {
	return query.Limits{Min: a.cfg.TopNMin, Max: a.cfg.TopNMax, Default: a.cfg.TopN}
}

// featureIDKey is the Plotly path of the code property inside each feature.
func (a *app) featureIDKey() string {
	return "properties." + strings.TrimPrefix(a.cfg.CodeProperty, "properties.")
}

// selectionFlags are the view filters shared by rank and render.
type selectionFlags struct {
	variable string
	year     int
	top      int
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.variable, "variable", "", "Variable (default: preferred variable)")
	cmd.Flags().IntVar(&f.year, "year", 0, "Year (default: last year with data)")
	cmd.Flags().IntVar(&f.top, "top", 0, "Top-N size (default from config)")
}

// resolve fills the defaults from the loaded snapshot.
func (f selectionFlags) resolve(snap *query.Snapshot, l query.Limits) (variable string, year, top int) {
	variable = snap.Resolve(strings.TrimSpace(f.variable))
	year = f.year
	if year == 0 {
		year, _ = snap.LastYear(variable)
	}
	return variable, year, l.ClampTopN(f.top)
}
