package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jaakkos/orchestrator/internal/dashboard"
)

func newServeCommand(env *cliEnv) *cobra.Command {
	var dashboardAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dispatcher, bridge heartbeat, and workflow loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := env.build()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- app.Dispatch.Run(ctx) }()
			go app.Bridge.RunPeriodicHeartbeat(ctx)
			go app.Workflow.Run(ctx)

			if dashboardAddr != "" {
				dashSrv := &http.Server{Addr: dashboardAddr, Handler: dashboard.NewRouter(app)}
				go func() {
					app.Logger.Infow("orchestrator: dashboard listening", "addr", dashboardAddr)
					if err := dashSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						app.Logger.Warnw("orchestrator: dashboard server stopped", "error", err)
					}
				}()
				go func() {
					<-ctx.Done()
					_ = dashSrv.Close()
				}()
			}

			app.Logger.Infow("orchestrator: serving", "mode", app.Config.Mode, "data_root", app.Config.DataRoot)
			<-ctx.Done()
			app.Logger.Infow("orchestrator: shutting down")
			if err := app.Dispatch.Shutdown(stop); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dashboardAddr, "dashboard-addr", "", "if set, serve the read-only dashboard API on this address (e.g. :8090)")
	return cmd
}
