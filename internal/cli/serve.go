package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sashabogi/agent-router/internal/api"
	"github.com/sashabogi/agent-router/internal/config"
	log "github.com/sashabogi/agent-router/internal/logging"
	"github.com/sashabogi/agent-router/internal/runtime/executor"
)

func newServeCmd() *cobra.Command {
	var (
		port     int
		noReload bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agent-router HTTP gateway",
		Long: `Start the gateway. It loads the configuration, builds one client per
provider and serves canonical completions and translation endpoints. The
config file is watched and providers are rebuilt when it changes.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			res, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := res.Config
			if c.Flags().Changed("port") {
				cfg.Port = port
			}

			if err := log.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
				return err
			}

			pool, err := executor.NewPool(cfg)
			if err != nil {
				return err
			}
			server := api.NewServer(cfg, pool)

			ctx, stop := signal.NotifyContext(c.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if !noReload {
				manager := config.NewManager(res.ConfigFilePath, cfg)
				go func() {
					if err := manager.Watch(ctx, server.UpdateConfig); err != nil {
						log.WithError(err).Warn("config hot reload disabled")
					}
				}()
			}

			return server.Run(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "server port")
	cmd.Flags().BoolVar(&noReload, "no-reload", false, "do not watch the config file")
	return cmd
}
