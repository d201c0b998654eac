package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/meeting-rooms/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts config.LoadOptions

	root := &cobra.Command{
		Use:          "scheduler",
		Short:        "Lifecycle scheduler for virtual meeting rooms",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.File, "config", "", "YAML configuration file (defaults to $SCHEDULER_CONFIG)")
	root.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before the environment overlay")

	root.AddCommand(
		newServeCommand(&opts),
		newRunJobCommand(&opts),
		newJobsCommand(&opts),
		newMigrateCommand(&opts),
	)
	return root
}

func newServeCommand(opts *config.LoadOptions) *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the cron scheduler and the operational HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *opts, !skipMigrate)
			if err != nil {
				return err
			}
			return a.closeAfter(serve(cmd.Context(), a))
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply pending schema migrations on start")
	return cmd
}

func newRunJobCommand(opts *config.LoadOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run-job <name>",
		Short: "Run one lifecycle job now and print its report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *opts, true)
			if err != nil {
				return err
			}
			report, err := a.scheduler.RunNow(cmd.Context(), args[0])
			if err != nil {
				return a.closeAfter(err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return a.closeAfter(enc.Encode(report))
		},
	}
}

func newJobsCommand(opts *config.LoadOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List the enabled lifecycle jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *opts, false)
			if err != nil {
				return err
			}
			for _, name := range a.scheduler.Jobs() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return a.closeAfter(nil)
		},
	}
}

func newMigrateCommand(opts *config.LoadOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := bootstrap(cmd.Context(), *opts, false)
			if err != nil {
				return err
			}
			version, err := a.migrate()
			if err != nil {
				return a.closeAfter(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return a.closeAfter(nil)
		},
	}
}

// serve runs the cron scheduler and the HTTP server until ctx is cancelled or
// either of them fails.
func serve(ctx context.Context, a *app) error {
	server := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           a.router(),
		ReadHeaderTimeout: a.cfg.HTTP.ReadTimeout,
		ReadTimeout:       a.cfg.HTTP.ReadTimeout,
		WriteTimeout:      a.cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	a.scheduler.Start(gctx)

	g.Go(func() error {
		a.logger.InfoContext(gctx, "ops server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var result error
		if err := server.Shutdown(shutdownCtx); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown ops server: %w", err))
		}
		if err := a.scheduler.Stop(shutdownCtx); err != nil {
			result = multierror.Append(result, err)
		}
		return result
	})

	err := g.Wait()
	if err != nil {
		a.logger.ErrorContext(ctx, "scheduler stopped with error", "error", err)
		return err
	}
	a.logger.InfoContext(ctx, "scheduler shut down")
	return nil
}
