// Package ble defines the BLE session manager contract (C4): adapter
// discovery, the per-device connect/pair/service state machine, and
// the high-level characteristic operations built on top of raw GATT
// reads and writes. Concrete backends live in internal/ble/linux and
// internal/ble/windows.
package ble

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

// Attempts bounds the retry budget for connect, disconnect and pair.
const Attempts = 3

// SettleDelay is how long a session waits after a successful connect
// for the BLE stack to settle before further I/O.
const SettleDelay = 150 * time.Millisecond

// ServiceEnumerationPacing rate-limits service discovery to one
// service lookup per tick, matching the vendor guidance.
const ServiceEnumerationPacing = 150 * time.Millisecond

// Material GATT UUIDs. Only these five characteristics (plus the
// manufacturer/model pair used for identification) are ever touched.
var (
	LightServicesUUID = uuid.MustParse("932c32bd-0000-47a2-835a-a8d455b859dd")
	PowerUUID         = uuid.MustParse("932c32bd-0002-47a2-835a-a8d455b859dd")
	BrightnessUUID    = uuid.MustParse("932c32bd-0003-47a2-835a-a8d455b859dd")
	TemperatureUUID   = uuid.MustParse("932c32bd-0004-47a2-835a-a8d455b859dd")
	ColorUUID         = uuid.MustParse("932c32bd-0005-47a2-835a-a8d455b859dd")
)

// ErrUnsupported is returned by platform backends for operations a
// host's BLE stack does not expose (e.g. raw GATT access on a backend
// that only supports OS-owned connections).
var ErrUnsupported = errors.New("ble: operation unsupported on this backend")

// ErrNotFound reports that a cached GATT handle for svc/char does not
// exist, either because discovery hasn't run or the device does not
// expose it.
var ErrNotFound = errors.New("ble: characteristic not cached")

// ErrDeviceNotFound reports that a discovery call's timeout elapsed
// without seeing the target device advertise.
var ErrDeviceNotFound = errors.New("ble: device not found")

// ErrAdapterUnavailable reports that the host has no usable BLE radio.
var ErrAdapterUnavailable = errors.New("ble: adapter unavailable")

// State is a device session's position in the connect/pair/service
// state machine (spec §4.4).
type State int

const (
	StateUnknown State = iota
	StateKnown
	StatePaired
	StateConnected
	StateReady
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateKnown:
		return "known"
	case StatePaired:
		return "paired"
	case StateConnected:
		return "connected"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	default:
		return "invalid"
	}
}

// DiscoveredDevice is one hit from an adapter discovery scan.
type DiscoveredDevice struct {
	Address protocol.Address
	Name    string
}

// Adapter is a host's BLE radio. Implementations are platform-specific
// (internal/ble/linux, internal/ble/windows).
type Adapter interface {
	// DiscoverByAddress blocks until addr is advertised or timeout elapses.
	DiscoverByAddress(ctx context.Context, addr protocol.Address, timeout time.Duration) (DiscoveredDevice, error)

	// DiscoverByAddresses returns once every address in want has been
	// seen or the underlying event stream ends; partial results are
	// acceptable and returned without error.
	DiscoverByAddresses(ctx context.Context, want []protocol.Address, timeout time.Duration) (map[protocol.Address]DiscoveredDevice, error)

	// DiscoverByName yields a lazy, deduplicated sequence of devices
	// whose advertised name contains query (case-insensitive), until
	// timeout has elapsed since the call; the timer is not reset by
	// new hits.
	DiscoverByName(ctx context.Context, query string, timeout time.Duration) iter.Seq[DiscoveredDevice]

	// NewSession creates a session handle for addr. Sessions are not
	// connected until TryConnect succeeds.
	NewSession(addr protocol.Address) Session
}

// Session is a single device's connect/pair/GATT handle. Sessions are
// not safe for concurrent use; callers serialize access (the registry
// does this per entry).
type Session interface {
	State() State

	// TryConnect makes up to Attempts rounds; succeeds immediately if
	// already connected. Waits SettleDelay after a fresh connect.
	TryConnect(ctx context.Context) error

	// TryDisconnect mirrors TryConnect. On backends where the OS owns
	// the connection lifecycle this is a no-op success.
	TryDisconnect(ctx context.Context) error

	// TryPair moves the session to the paired state. A device that is
	// already connected counts as paired. Neither the linux nor the
	// windows backend issues a pair or trust request to the device or
	// retries; both report success.
	TryPair(ctx context.Context) error

	// SetServices enumerates services/characteristics once and caches
	// the UUID-to-handle map, rate-limited by ServiceEnumerationPacing.
	SetServices(ctx context.Context) error

	// ReadGATT returns the cached characteristic's current value.
	// Returns ErrNotFound if svc/char were never cached.
	ReadGATT(ctx context.Context, svc, char uuid.UUID) ([]byte, error)

	// WriteGATT writes data to the cached characteristic without
	// waiting for a response. Returns ErrNotFound if uncached.
	WriteGATT(ctx context.Context, svc, char uuid.UUID, data []byte) error

	// GetName reads the device's advertised local-name property. This
	// is not a GATT characteristic read: on Windows-class backends it
	// is also how connectedness is inferred (a non-empty name implies
	// a live connection).
	GetName(ctx context.Context) (string, error)
}

// EnsureReady drives a session through pair, connect and set_services,
// the sequence the dispatcher runs before executing any command list
// besides a CONNECT-only GET.
func EnsureReady(ctx context.Context, s Session) error {
	if err := s.TryPair(ctx); err != nil {
		return fmt.Errorf("pair: %w", err)
	}
	if err := s.TryConnect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if s.State() != StateReady {
		if err := s.SetServices(ctx); err != nil {
			return fmt.Errorf("set_services: %w", err)
		}
	}
	return nil
}

// GetPower reads the POWER characteristic as a boolean.
func GetPower(ctx context.Context, s Session) (bool, error) {
	data, err := s.ReadGATT(ctx, LightServicesUUID, PowerUUID)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, fmt.Errorf("ble: empty power payload")
	}
	return data[0] != 0, nil
}

// SetPower writes the POWER characteristic.
func SetPower(ctx context.Context, s Session, on bool) error {
	var b byte
	if on {
		b = 1
	}
	return s.WriteGATT(ctx, LightServicesUUID, PowerUUID, []byte{b})
}

// GetBrightness reads the BRIGHTNESS characteristic as a raw 0..255 byte.
func GetBrightness(ctx context.Context, s Session) (byte, error) {
	data, err := s.ReadGATT(ctx, LightServicesUUID, BrightnessUUID)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("ble: empty brightness payload")
	}
	return data[0], nil
}

// SetBrightness writes the BRIGHTNESS characteristic's raw 0..255 byte.
func SetBrightness(ctx context.Context, s Session, value byte) error {
	return s.WriteGATT(ctx, LightServicesUUID, BrightnessUUID, []byte{value})
}

// GetColor reads the COLOR characteristic as two little-endian u16
// components (x, y), each scaled by 0xFFFF.
func GetColor(ctx context.Context, s Session) (x, y uint16, err error) {
	data, err := s.ReadGATT(ctx, LightServicesUUID, ColorUUID)
	if err != nil {
		return 0, 0, err
	}
	if len(data) < 4 {
		return 0, 0, fmt.Errorf("ble: short color payload")
	}
	x = uint16(data[0]) | uint16(data[1])<<8
	y = uint16(data[2]) | uint16(data[3])<<8
	return x, y, nil
}

// SetColor writes the COLOR characteristic's two scaled u16 components.
func SetColor(ctx context.Context, s Session, x, y uint16) error {
	data := []byte{
		byte(x), byte(x >> 8),
		byte(y), byte(y >> 8),
	}
	return s.WriteGATT(ctx, LightServicesUUID, ColorUUID, data)
}

// TruncateName fits name into budget bytes, replacing the last three
// bytes with '.' repeated when truncation is necessary.
func TruncateName(name string, budget int) string {
	b := []byte(name)
	if len(b) <= budget {
		return name
	}
	b = b[:budget]
	for i := len(b) - 1; i >= 0 && i >= len(b)-3; i-- {
		b[i] = '.'
	}
	return string(b)
}
