package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petasbytes/theraia/internal/api"
	"github.com/petasbytes/theraia/internal/log"
	"github.com/petasbytes/theraia/internal/session"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := a.deps()
			if err != nil {
				return err
			}
			manager := session.NewManager(deps, a.cfg.SessionTTL)
			cleanup := session.NewCleanupService(manager, 0)
			cleanup.Start(cmd.Context())
			defer cleanup.Stop()

			srv := api.NewServer(a.cfg, manager)
			errc := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)

			select {
			case err := <-errc:
				return err
			case <-quit:
			}

			log.Info().Msg("shutdown signal received")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("server forced to shutdown")
				return err
			}
			log.Info().Msg("server exited")
			return nil
		},
	}
}
