// Command rustbeed is the BLE lighting daemon: it owns the local
// socket, the device registry, and the platform BLE adapter, and
// dispatches wire-protocol requests from rustbee clients.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustbee-go/rustbeed/internal/daemon"
	"github.com/rustbee-go/rustbeed/pkg/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rustbeed",
	Short: "BLE lighting control daemon",
	Long: `rustbeed listens on a local socket (or, on Windows, a named pipe)
for fixed-width command frames and applies them to Hue Play-class BLE
lights: pairing, connecting, power, brightness, and color.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file overriding defaults")
	rootCmd.PersistentFlags().String("socket", "", "override the daemon's socket/pipe path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rustbeed: %v\n", err)
		os.Exit(daemon.ExitListener)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := cfg.NewLogger()
	adapter := newPlatformAdapter(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	code := daemon.Run(ctx, cfg, logger, adapter)
	if code != daemon.ExitClean {
		os.Exit(code)
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg = config.DefaultConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if socket, _ := cmd.Flags().GetString("socket"); socket != "" {
		cfg.SocketPath = socket
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		parsed, err := parseLogLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.LogLevel = parsed
	}

	return cfg, nil
}
