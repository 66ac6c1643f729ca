package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/sarchlab/vmsim/monitoring"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		port int
		open bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulator over HTTP.",
		Long: `Serve generates a page table and starts the monitor. The ` +
			`browser page and the /api routes drive the same session.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				opts.settings.Port = port
			}

			r, err := opts.startRun()
			if err != nil {
				return err
			}
			defer r.close()

			m := monitoring.NewMonitor(r.session).
				WithLogger(opts.logger).
				WithPortNumber(opts.settings.Port)

			url, err := m.StartServer()
			if err != nil {
				return err
			}

			if open {
				if err := browser.OpenURL(url); err != nil {
					opts.logger.Warn("cannot open browser", "url", url,
						"error", err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(
				context.Background(), 5*time.Second)
			defer cancel()

			return m.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0,
		"Port to listen on, 0 picks a free one")
	cmd.Flags().BoolVar(&open, "open", false, "Open the monitor in a browser")

	return cmd
}
