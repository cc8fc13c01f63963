package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newWatchCommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session alive, refreshing it and printing notifications",
		Long: `watch keeps a session manager running until interrupted. The access token is
refreshed in the background and notifications such as an expired session are
printed as they happen. With --metrics-addr, Prometheus metrics are served on
/metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, figure.NewFigure(app.cfg.GetAppName(), "cybermedium", true).String())
			fmt.Fprintf(out, "Watching session (%s)\n", s.manager.State())

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return printEvents(ctx, out, s)
			})
			if addr := app.cfg.GetMetricsAddr(); addr != "" {
				mux := http.NewServeMux()
				mux.Handle("GET /metrics", s.metrics.Handler())
				srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

				g.Go(func() error {
					app.logger.Info().Str("addr", addr).Msg("Serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&app.flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides ESTATE_SESSION_METRICS_ADDR)")
	return cmd
}

func printEvents(ctx context.Context, out io.Writer, s *session) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-s.events.Events():
			line := fmt.Sprintf("%s  %s", e.At.Local().Format(time.Kitchen), e.Kind.Message())
			if e.Login != "" {
				line += " (" + e.Login + ")"
			}
			fmt.Fprintln(out, line)
		}
	}
}
