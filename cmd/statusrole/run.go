package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/harunnryd/statusrole/internal/config"
	"github.com/harunnryd/statusrole/internal/daemon"
	"github.com/harunnryd/statusrole/internal/daemon/components"
	"github.com/harunnryd/statusrole/internal/metrics"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and keep status roles in sync",
	Long:  `Starts the bot as a long-running service. It scans the guild on connect, follows presence and profile updates, and exposes /health and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("config not loaded")
		}
		workspaceID := resolveWorkspaceID(cmd)
		forceClean, _ := cmd.Flags().GetBool("force-clean-locks")

		d, err := buildDaemon(workspaceID, cfg)
		if err != nil {
			return err
		}
		d.SetForceCleanup(forceClean)

		slog.Info("statusrole starting up", "port", cfg.Server.Port, "workspace", workspaceID)
		if err := d.Start(context.Background()); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("statusrole stopped gracefully", "workspace", workspaceID)
				return nil
			}
			return fmt.Errorf("daemon failed: %w", err)
		}

		slog.Info("statusrole stopped gracefully", "workspace", workspaceID)
		return nil
	},
}

// buildDaemon registers components in start order. Init order follows Dependencies.
func buildDaemon(workspaceID string, cfg *config.Config) (*daemon.Daemon, error) {
	d, err := daemon.NewDaemon(workspaceID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create daemon manager: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	storeComp := components.NewStoreComponent(workspaceID, cfg.Daemon.WorkspacePath, &cfg.Store)
	ingressComp := components.NewIngressComponent(&cfg.Engine, m)
	gatewayComp := components.NewGatewayComponent(cfg, ingressComp)
	engineComp := components.NewEngineComponent(cfg, storeComp, gatewayComp, m)
	workersComp := components.NewWorkersComponent(&cfg.Worker, ingressComp, engineComp)
	schedulerComp := components.NewSchedulerComponent(&cfg.Scheduler, gatewayComp)
	httpComp := components.NewHTTPServerComponent(d, registry, &cfg.Server)

	d.AddComponent(storeComp)
	d.AddComponent(engineComp)
	d.AddComponent(ingressComp)
	d.AddComponent(workersComp)
	d.AddComponent(gatewayComp)
	d.AddComponent(schedulerComp)
	d.AddComponent(httpComp)
	return d, nil
}

func resolveWorkspaceID(cmd *cobra.Command) string {
	if workspaceID, _ := cmd.Flags().GetString("workspace"); workspaceID != "" {
		return workspaceID
	}
	return config.DefaultWorkspaceID
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("workspace", "w", "", "Target workspace ID")
	runCmd.Flags().Bool("force-clean-locks", false, "Force cleanup of stale lock files (default: warn-only)")
}
