package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustbee-go/rustbeed/internal/colorspace"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

var colorCmd = &cobra.Command{
	Use:   "color <address> [value]",
	Short: "Get or set a light's color",
	Long: `With no value, prints the light's current color as an xy pair.
With a value, sets the color; --mode selects how the value is read:
"R,G,B" (rgb), "#RRGGBB" (hex), or "X,Y" (xy, the default).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runColor,
}

const defaultGetBrightness = 1.0

func init() {
	colorCmd.Flags().String("mode", "xy", "value encoding: rgb, hex, or xy")
}

func runColor(cmd *cobra.Command, args []string) error {
	addr, err := parseAddressArg(args[0])
	if err != nil {
		return err
	}

	client := newClient()

	if len(args) == 1 {
		xy, err := client.GetColorXY(addr)
		if err != nil {
			return err
		}
		fmt.Printf("xy %.4f,%.4f\n", xy.X, xy.Y)
		return nil
	}

	mode, _ := cmd.Flags().GetString("mode")
	switch strings.ToLower(mode) {
	case "rgb":
		rgb, err := parseRGB(args[1])
		if err != nil {
			return err
		}
		if err := client.SetColorRGB(addr, rgb); err != nil {
			return err
		}
		cacheColor(addr, rgb)
		return nil
	case "hex":
		rgb, err := parseHex(args[1])
		if err != nil {
			return err
		}
		if err := client.SetColorRGB(addr, rgb); err != nil {
			return err
		}
		cacheColor(addr, rgb)
		return nil
	case "xy":
		xy, err := parseXY(args[1])
		if err != nil {
			return err
		}
		if err := client.SetColorXY(addr, xy); err != nil {
			return err
		}
		cacheColor(addr, colorspace.XYToRGB(xy, defaultGetBrightness))
		return nil
	default:
		return fmt.Errorf("unknown color mode %q (want rgb, hex, or xy)", mode)
	}
}

// cacheColor refreshes the client-side cache's color field for addr
// after a successful set, best-effort.
func cacheColor(addr protocol.Address, rgb colorspace.RGB) {
	store := newStorage()
	dev, _ := store.Get(addr)
	dev.CurrentColor = [3]byte{rgb.R, rgb.G, rgb.B}
	store.Set(addr, dev)
	_ = store.Flush()
}

func parseRGB(s string) (colorspace.RGB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return colorspace.RGB{}, fmt.Errorf("expected R,G,B, got %q", s)
	}
	var vals [3]uint8
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return colorspace.RGB{}, fmt.Errorf("expected each channel in [0,255], got %q", p)
		}
		vals[i] = uint8(n)
	}
	return colorspace.RGB{R: vals[0], G: vals[1], B: vals[2]}, nil
}

func parseHex(s string) (colorspace.RGB, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return colorspace.RGB{}, fmt.Errorf("expected #RRGGBB, got %q", s)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return colorspace.RGB{}, fmt.Errorf("expected #RRGGBB, got %q", s)
	}
	return colorspace.RGB{
		R: uint8(n >> 16),
		G: uint8(n >> 8),
		B: uint8(n),
	}, nil
}

func parseXY(s string) (colorspace.XY, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return colorspace.XY{}, fmt.Errorf("expected X,Y, got %q", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil {
		return colorspace.XY{}, fmt.Errorf("expected X,Y floats, got %q", s)
	}
	return colorspace.XY{X: x, Y: y}, nil
}
