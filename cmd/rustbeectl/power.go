package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var powerCmd = &cobra.Command{
	Use:   "power <address> [on|off]",
	Short: "Get or set a light's power state",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPower,
}

func runPower(cmd *cobra.Command, args []string) error {
	addr, err := parseAddressArg(args[0])
	if err != nil {
		return err
	}

	client := newClient()

	if len(args) == 1 {
		on, err := client.GetPower(addr)
		if err != nil {
			return err
		}
		fmt.Println(onOff(on))
		return nil
	}

	on, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	return client.SetPower(addr, on)
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected \"on\" or \"off\", got %q", s)
	}
}
