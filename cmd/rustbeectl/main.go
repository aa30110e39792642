// Command rustbeectl is a thin demonstration client for rustbeed. It
// does no protocol work of its own: every subcommand calls straight
// into pkg/rustbee.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var socketPath string

var rootCmd = &cobra.Command{
	Use:   "rustbeectl",
	Short: "Talk to a running rustbeed instance",
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath, "rustbeed socket/pipe path")

	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(brightnessCmd)
	rootCmd.AddCommand(colorCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(nameCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rustbeectl: %v\n", err)
		os.Exit(1)
	}
}
