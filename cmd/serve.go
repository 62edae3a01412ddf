package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"painelpib/internal/metrics"
	"painelpib/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard JSON API, exports and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			sess, err := a.newSession(ctx, m)
			if err != nil {
				return err
			}
			// a failed first load is reported in /api/status and can be retried with POST /api/reload
			if err := sess.Load(ctx); err != nil {
				a.log.Error().Err(err).Msg("initial load failed; serving without data")
			}

			srv := server.New(sess, server.Options{
				Region:       a.cfg.Region,
				FeatureIDKey: a.featureIDKey(),
				Limits:       a.limits(),
			}, a.log, m)
			return srv.Run(ctx, a.cfg.Listen)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from config)")
	return cmd
}
