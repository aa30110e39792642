// Package rustbee is the client library for talking to rustbeed over
// its local socket. Client exposes the context-based async surface;
// sync.go layers a blocking façade over it for simple callers.
package rustbee

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"

	"github.com/rustbee-go/rustbeed/internal/colorspace"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

// ErrDeviceNotFound is returned when the daemon reports DeviceNotFound.
var ErrDeviceNotFound = errors.New("rustbee: device not found")

// ErrDaemon is returned when the daemon reports Failure for a request.
var ErrDaemon = errors.New("rustbee: daemon reported failure")

// ErrUnexpectedCode is returned when a response carries a code the
// caller's operation doesn't know how to interpret (e.g. a Streaming
// frame outside of SearchByName).
var ErrUnexpectedCode = errors.New("rustbee: unexpected response code")

// Dialer opens a connection to the daemon's local endpoint. The
// default, NewClient's zero value, dials a Unix domain socket at
// Config.SocketPath on every platform; it does not dial Windows named
// pipes. Tests substitute a Dialer backed by net.Pipe or an in-memory
// listener.
type Dialer func(ctx context.Context) (net.Conn, error)

// Config configures a Client.
type Config struct {
	// SocketPath is the daemon's local endpoint.
	SocketPath string
	// Dial overrides how connections are opened; nil uses SocketPath
	// with net's Unix-domain-socket dialer.
	Dial Dialer
}

// Client is a thin wrapper over the wire protocol: every operation
// dials a fresh connection, writes one request frame, and reads back
// one response (SearchByName is the exception — it keeps one
// connection open for the whole Streaming/StreamEOF sequence).
type Client struct {
	dial Dialer
}

// NewClient creates a Client for the daemon listening at cfg.SocketPath
// (or using cfg.Dial, if set).
func NewClient(cfg Config) *Client {
	dial := cfg.Dial
	if dial == nil {
		path := cfg.SocketPath
		dial = func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "unix", path)
		}
	}
	return &Client{dial: dial}
}

// FoundDevice is one hit from SearchByName.
type FoundDevice struct {
	Address protocol.Address
	Name    string
}

func (c *Client) roundTrip(ctx context.Context, addr protocol.Address, flags uint16, mode protocol.Mode, data [protocol.DataLen]byte) (protocol.Response, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("rustbee: dial: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := protocol.EncodeRequest(addr, flags, mode, data)
	if _, err := conn.Write(req[:]); err != nil {
		return protocol.Response{}, fmt.Errorf("rustbee: write request: %w", err)
	}

	buf := make([]byte, protocol.OutputLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return protocol.Response{}, fmt.Errorf("rustbee: read response: %w", err)
	}

	return protocol.DecodeResponse(buf)
}

// simpleCall performs one round trip and maps DeviceNotFound/Failure to
// the package's sentinel errors.
func (c *Client) simpleCall(ctx context.Context, addr protocol.Address, flags uint16, mode protocol.Mode, data [protocol.DataLen]byte) (protocol.Response, error) {
	resp, err := c.roundTrip(ctx, addr, flags, mode, data)
	if err != nil {
		return resp, err
	}
	switch resp.Code {
	case protocol.Success:
		return resp, nil
	case protocol.DeviceNotFound:
		return resp, ErrDeviceNotFound
	case protocol.Failure:
		return resp, ErrDaemon
	default:
		return resp, fmt.Errorf("%w: %v", ErrUnexpectedCode, resp.Code)
	}
}

// Connect asks the daemon to ensure addr is paired, connected, and has
// its service table populated, without applying any other command.
func (c *Client) Connect(ctx context.Context, addr protocol.Address) error {
	_, err := c.simpleCall(ctx, addr, protocol.FlagConnect, protocol.ModeSet, [protocol.DataLen]byte{})
	return err
}

// IsConnected reports whether addr currently has a live BLE connection,
// without forcing pair/connect/set_services (the CONNECT-only-GET
// short-circuit, spec §4.6).
func (c *Client) IsConnected(ctx context.Context, addr protocol.Address) (bool, error) {
	resp, err := c.simpleCall(ctx, addr, protocol.FlagConnect, protocol.ModeGet, [protocol.DataLen]byte{})
	if err != nil {
		return false, err
	}
	return resp.Payload[0] != 0, nil
}

// Pair ensures addr is paired (and, as a side effect, connected).
func (c *Client) Pair(ctx context.Context, addr protocol.Address) error {
	_, err := c.simpleCall(ctx, addr, protocol.FlagPair, protocol.ModeSet, [protocol.DataLen]byte{})
	return err
}

// Disconnect tears down the BLE connection to addr.
func (c *Client) Disconnect(ctx context.Context, addr protocol.Address) error {
	_, err := c.simpleCall(ctx, addr, protocol.FlagDisconnect, protocol.ModeSet, [protocol.DataLen]byte{})
	return err
}

// GetPower reports whether addr is currently powered on.
func (c *Client) GetPower(ctx context.Context, addr protocol.Address) (bool, error) {
	resp, err := c.simpleCall(ctx, addr, protocol.FlagPower, protocol.ModeGet, [protocol.DataLen]byte{})
	if err != nil {
		return false, err
	}
	return resp.Payload[0] != 0, nil
}

// SetPower turns addr on or off.
func (c *Client) SetPower(ctx context.Context, addr protocol.Address, on bool) error {
	var data [protocol.DataLen]byte
	if on {
		data[0] = 1
	}
	_, err := c.simpleCall(ctx, addr, protocol.FlagPower, protocol.ModeSet, data)
	return err
}

// GetBrightness reads addr's current brightness (0-255).
func (c *Client) GetBrightness(ctx context.Context, addr protocol.Address) (byte, error) {
	resp, err := c.simpleCall(ctx, addr, protocol.FlagBrightness, protocol.ModeGet, [protocol.DataLen]byte{})
	if err != nil {
		return 0, err
	}
	return resp.Payload[0], nil
}

// SetBrightness sets addr's brightness (0-255).
func (c *Client) SetBrightness(ctx context.Context, addr protocol.Address, level byte) error {
	var data [protocol.DataLen]byte
	data[0] = level
	_, err := c.simpleCall(ctx, addr, protocol.FlagBrightness, protocol.ModeSet, data)
	return err
}

// GetBrightnessPercent reads addr's brightness and scales it from the
// device's raw 0-255 byte to a 0-100 percentage (spec §4.4: the client
// library, not the daemon, owns this conversion).
func (c *Client) GetBrightnessPercent(ctx context.Context, addr protocol.Address) (int, error) {
	level, err := c.GetBrightness(ctx, addr)
	if err != nil {
		return 0, err
	}
	return ByteToPercent(level), nil
}

// SetBrightnessPercent scales pct (0-100) to the device's raw 0-255
// byte and sets it. Panics if pct is out of [0,100], matching spec §7's
// "client library may panic on malformed outgoing parameters."
func (c *Client) SetBrightnessPercent(ctx context.Context, addr protocol.Address, pct int) error {
	return c.SetBrightness(ctx, addr, PercentToByte(pct))
}

// PercentToByte scales a 0-100 brightness percentage to the device's
// 0-255 byte range, matching the original's truncating conversion
// (e.g. 50% -> 127, not 128).
func PercentToByte(pct int) byte {
	if pct < 0 || pct > 100 {
		panic(fmt.Sprintf("rustbee: brightness percent %d out of [0,100]", pct))
	}
	return byte(pct * 255 / 100)
}

// ByteToPercent scales a raw 0-255 byte back to a 0-100 percentage,
// truncating. It is not an exact inverse of PercentToByte: 50% -> 127
// -> 49%.
func ByteToPercent(level byte) int {
	return int(level) * 100 / 255
}

// GetColorXY reads addr's current color as a CIE 1931 xy point.
func (c *Client) GetColorXY(ctx context.Context, addr protocol.Address) (colorspace.XY, error) {
	resp, err := c.simpleCall(ctx, addr, protocol.FlagColorXY, protocol.ModeGet, [protocol.DataLen]byte{})
	if err != nil {
		return colorspace.XY{}, err
	}
	return decodeXYPayload(resp.Payload), nil
}

// SetColorXY sets addr's color directly in CIE 1931 xy space.
func (c *Client) SetColorXY(ctx context.Context, addr protocol.Address, xy colorspace.XY) error {
	_, err := c.simpleCall(ctx, addr, protocol.FlagColorXY, protocol.ModeSet, encodeXYPayload(xy))
	return err
}

// GetColorRGB reads addr's current color, converted from the device's
// xy representation back into 8-bit sRGB. brightness is the relative
// luminance (0-1) paired with the xy point; callers that also want the
// device's reported brightness level should call GetBrightness.
func (c *Client) GetColorRGB(ctx context.Context, addr protocol.Address, brightness float64) (colorspace.RGB, error) {
	xy, err := c.GetColorXY(ctx, addr)
	if err != nil {
		return colorspace.RGB{}, err
	}
	return colorspace.XYToRGB(xy, brightness), nil
}

// SetColorRGB converts an 8-bit sRGB color to the device's xy
// representation and sets it. The brightness this conversion derives
// is not sent here: call SetBrightness separately if it should change.
func (c *Client) SetColorRGB(ctx context.Context, addr protocol.Address, rgb colorspace.RGB) error {
	xy, _ := colorspace.RGBToXY(rgb)
	return c.SetColorXY(ctx, addr, xy)
}

// GetName reads addr's advertised device name.
func (c *Client) GetName(ctx context.Context, addr protocol.Address) (string, error) {
	resp, err := c.simpleCall(ctx, addr, protocol.FlagName, protocol.ModeGet, [protocol.DataLen]byte{})
	if err != nil {
		return "", err
	}
	return decodeNamePayload(resp.Payload), nil
}

// SearchByName streams every device the daemon's radio discovers whose
// advertised name contains query, over one held connection, as a pull
// iterator. In the style of the teacher's Scanner.Events channel, but
// pulled rather than pushed since the wire protocol is strictly
// request/response: the iterator reads one Streaming frame per
// iteration and stops at StreamEOF. A dial or decode failure simply
// ends the sequence early rather than surfacing from inside a range
// loop, matching the shape of Go's range-over-func iterators.
func (c *Client) SearchByName(ctx context.Context, query string) iter.Seq[FoundDevice] {
	return func(yield func(FoundDevice) bool) {
		_, _ = c.searchByName(ctx, query, yield)
	}
}

func (c *Client) searchByName(ctx context.Context, query string, yield func(FoundDevice) bool) (int, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return 0, fmt.Errorf("rustbee: dial: %w", err)
	}
	defer conn.Close()

	var data [protocol.DataLen]byte
	copy(data[:], query)

	req := protocol.EncodeRequest(protocol.Address{}, protocol.FlagSearchName, protocol.ModeGet, data)
	if _, err := conn.Write(req[:]); err != nil {
		return 0, fmt.Errorf("rustbee: write request: %w", err)
	}

	count := 0
	buf := make([]byte, protocol.OutputLen)
	for {
		if _, err := io.ReadFull(conn, buf); err != nil {
			return count, fmt.Errorf("rustbee: read response: %w", err)
		}
		resp, err := protocol.DecodeResponse(buf)
		if err != nil {
			return count, err
		}

		switch resp.Code {
		case protocol.StreamEOF:
			return count, nil
		case protocol.DeviceNotFound:
			return count, nil
		case protocol.Streaming:
			count++
			dev := decodeSearchHit(resp.Payload)
			if !yield(dev) {
				return count, nil
			}
		default:
			return count, fmt.Errorf("%w: %v", ErrUnexpectedCode, resp.Code)
		}
	}
}

func decodeSearchHit(payload [protocol.OutputLen - 1]byte) FoundDevice {
	var addr protocol.Address
	copy(addr[:], payload[:protocol.AddrLen])

	rest := payload[protocol.AddrLen:]
	n := 0
	for n < len(rest) && rest[n] != 0 {
		n++
	}
	return FoundDevice{Address: addr, Name: string(rest[:n])}
}

func decodeNamePayload(payload [protocol.OutputLen - 1]byte) string {
	n := 0
	for n < len(payload) && payload[n] != 0 {
		n++
	}
	return string(payload[:n])
}

func encodeXYPayload(xy colorspace.XY) [protocol.DataLen]byte {
	var data [protocol.DataLen]byte
	binary.LittleEndian.PutUint16(data[0:2], colorspace.ScaleComponent(xy.X))
	binary.LittleEndian.PutUint16(data[2:4], colorspace.ScaleComponent(xy.Y))
	return data
}

func decodeXYPayload(payload [protocol.OutputLen - 1]byte) colorspace.XY {
	x := binary.LittleEndian.Uint16(payload[0:2])
	y := binary.LittleEndian.Uint16(payload[2:4])
	return colorspace.XY{X: colorspace.UnscaleComponent(x), Y: colorspace.UnscaleComponent(y)}
}
