package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/example/hikelog/internal/config"
	"github.com/example/hikelog/internal/core/auth"
	"github.com/example/hikelog/internal/ctxutil"
	"github.com/example/hikelog/internal/logging"
	"github.com/example/hikelog/internal/version"
	"github.com/example/hikelog/internal/wire"
)

// RootCmd returns the hikelog command tree.
func RootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
		metricsOut string
	)

	cmd := &cobra.Command{
		Use:     "hikelog",
		Short:   "Log hikes and wildlife observations, as a guest or with an account",
		Version: version.String(),
		Long: `hikelog records hikes and the wildlife seen on them.

Start as a guest and everything stays on this device. Register later and
your guest data can be moved into the account.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logging.Init(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				Caller: cfg.Log.Caller,
			})

			if err := wire.Init(cfg); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}

			// Every command runs as whoever was signed in last time.
			status, err := wire.Get().Accounts.Restore(cmd.Context())
			if err != nil {
				return err
			}
			cmd.SetContext(ctxutil.WithActorID(cmd.Context(), auth.OwnerID(status.State)))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsOut != "" {
				if err := prometheus.WriteToTextfile(metricsOut, prometheus.DefaultGatherer); err != nil {
					logging.Warn().Err(err).Str("path", metricsOut).Msg("failed to write metrics")
				}
			}
			return wire.Shutdown()
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $HIKELOG_CONFIG, ./hikelog.yaml, ~/.hikelog/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&metricsOut, "metrics-out", "", "write Prometheus metrics to this file on exit")

	cmd.AddCommand(GuestCmd())
	cmd.AddCommand(AuthCmd())
	cmd.AddCommand(HikeCmd())
	cmd.AddCommand(ObservationCmd())
	cmd.AddCommand(MigrateCmd())
	cmd.AddCommand(ImagesCmd())
	cmd.AddCommand(ActivityCmd())

	return cmd
}
