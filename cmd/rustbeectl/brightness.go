package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rustbee-go/rustbeed/internal/protocol"
	"github.com/rustbee-go/rustbeed/pkg/rustbee"
)

var brightnessCmd = &cobra.Command{
	Use:   "brightness <address> [0-100]",
	Short: "Get or set a light's brightness percentage",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runBrightness,
}

func runBrightness(cmd *cobra.Command, args []string) error {
	addr, err := parseAddressArg(args[0])
	if err != nil {
		return err
	}

	client := newClient()

	if len(args) == 1 {
		pct, err := client.GetBrightnessPercent(addr)
		if err != nil {
			return err
		}
		fmt.Println(pct)
		cacheBrightness(addr, rustbee.PercentToByte(pct))
		return nil
	}

	pct, err := strconv.Atoi(args[1])
	if err != nil || pct < 0 || pct > 100 {
		return fmt.Errorf("expected a brightness percentage in [0,100], got %q", args[1])
	}
	if err := client.SetBrightnessPercent(addr, pct); err != nil {
		return err
	}
	cacheBrightness(addr, rustbee.PercentToByte(pct))
	return nil
}

// cacheBrightness refreshes the client-side cache's brightness field
// for addr after a successful get or set, best-effort: a caching
// failure shouldn't fail a command that already succeeded against the
// daemon.
func cacheBrightness(addr protocol.Address, raw byte) {
	store := newStorage()
	dev, _ := store.Get(addr)
	dev.Brightness = raw
	store.Set(addr, dev)
	_ = store.Flush()
}
