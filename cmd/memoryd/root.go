package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yantra-mind/memoryd/core/config"
	"github.com/yantra-mind/memoryd/core/daemon"
	"github.com/yantra-mind/memoryd/core/engine"
	"github.com/yantra-mind/memoryd/core/logging"
	"github.com/yantra-mind/memoryd/core/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "memoryd",
		Short:         "Semantic memory daemon and client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("path", "", "store path (defaults to STORE_PATH)")
	root.PersistentFlags().String("socket", "", "daemon socket path override")
	root.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")
	root.PersistentFlags().String("log-format", "console", "log format: console|json")

	root.AddCommand(
		newDaemonCmd(),
		newShutdownCmd(),
		newStatsCmd(),
		newRecallCmd(),
		newObserveCmd(),
		newGrowCmd(),
		newConnectCmd(),
		newUpdateCmd(),
		newForgetCmd(),
		newTagCmd(),
		newLedgerCmd(),
		newFeedbackCmd(),
		newUpgradeCmd(),
	)
	return root
}

// loadConfig merges the environment-derived configuration with the
// persistent flags.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Load()
	if p, _ := cmd.Flags().GetString("path"); p != "" {
		cfg.StorePath = p
	}
	if s, _ := cmd.Flags().GetString("socket"); s != "" {
		cfg.DaemonSocket = s
	}
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	logging.Init(level, format)
	return cfg
}

// dialClient connects to the running daemon for client-mode commands.
func dialClient(cmd *cobra.Command) (*daemon.Client, config.Config, error) {
	cfg := loadConfig(cmd)
	c, err := daemon.Dial(cfg.StorePath, cfg.DaemonSocket, 5*time.Second)
	return c, cfg, err
}

func newDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the memory daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			if interval, _ := cmd.Flags().GetInt64("interval"); interval > 0 {
				cfg.DecayIntervalMS = interval
			}

			if pidFile, _ := cmd.Flags().GetString("pid-file"); pidFile != "" {
				if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
					return err
				}
				defer os.Remove(pidFile)
			}

			eng, err := engine.New(cfg, engine.Options{})
			if err != nil {
				return err
			}
			d := daemon.New(eng, daemon.Options{
				Socket:  cfg.DaemonSocket,
				MaxWait: time.Duration(cfg.MaxWaitSeconds) * time.Second,
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return d.Serve(ctx)
		},
	}
	cmd.Flags().Int64("interval", 0, "dynamics cycle interval in milliseconds")
	cmd.Flags().String("pid-file", "", "write the daemon pid to this file")
	return cmd
}

func newShutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask the running daemon to persist and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := dialClient(cmd)
			if err != nil {
				return err
			}
			defer c.Close()
			return c.Call("shutdown", nil, nil)
		},
	}
}

func newUpgradeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Migrate an older store layout to the current version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd)
			migrated, err := store.Upgrade(cfg.StorePath)
			if err != nil {
				return err
			}
			if migrated {
				fmt.Println("store migrated")
			} else {
				fmt.Println("store already current")
			}
			return nil
		},
	}
}
