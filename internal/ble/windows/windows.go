// Package windows implements the BLE session manager (internal/ble)
// for Windows-class hosts, where the OS owns the connection lifecycle:
// connect/disconnect/pair are no-ops and connectedness is inferred
// from whether reading the device's name returns a non-empty value
// (spec §4.4 platform variants table).
//
// No third-party Go library in the reference pack exposes Windows
// GATT access (WinRT's Bluetooth LE APIs have no ecosystem Go binding
// among the examples), so actual characteristic I/O is delegated to a
// pluggable GATTClient, mirroring the teacher's DeviceFactory
// indirection for testability. The default client reports
// ble.ErrUnsupported; a real deployment supplies one backed by the
// vendor SDK.
package windows

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

// GATTClient is the native binding a real Windows deployment supplies
// for raw characteristic access and name resolution. NewAdapter's
// default client always reports ble.ErrUnsupported.
type GATTClient interface {
	Read(ctx context.Context, addr protocol.Address, svc, char uuid.UUID) ([]byte, error)
	Write(ctx context.Context, addr protocol.Address, svc, char uuid.UUID, data []byte) error
	Name(ctx context.Context, addr protocol.Address) (string, error)
}

type unsupportedClient struct{}

func (unsupportedClient) Read(context.Context, protocol.Address, uuid.UUID, uuid.UUID) ([]byte, error) {
	return nil, ble.ErrUnsupported
}

func (unsupportedClient) Write(context.Context, protocol.Address, uuid.UUID, uuid.UUID, []byte) error {
	return ble.ErrUnsupported
}

func (unsupportedClient) Name(context.Context, protocol.Address) (string, error) {
	return "", ble.ErrUnsupported
}

// Adapter is the Windows BLE backend. There is no active-scan
// counterpart to BlueZ/go-ble's advertisement stream here: Windows-class
// deployments resolve devices through the OS's already-paired device
// list, so discovery is a presence probe (does the client resolve a
// name for this address?) rather than a radio scan.
type Adapter struct {
	logger *logrus.Logger
	client GATTClient
}

// NewAdapter creates a Windows adapter. client may be nil, in which
// case all GATT/name operations report ble.ErrUnsupported.
func NewAdapter(logger *logrus.Logger, client GATTClient) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	if client == nil {
		client = unsupportedClient{}
	}
	return &Adapter{logger: logger, client: client}
}

// DiscoverByAddress implements ble.Adapter as a presence probe: the
// device counts as found if the OS's paired-device list resolves a
// name for it.
func (a *Adapter) DiscoverByAddress(ctx context.Context, addr protocol.Address, timeout time.Duration) (ble.DiscoveredDevice, error) {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name, err := a.client.Name(probeCtx, addr)
	if err != nil {
		return ble.DiscoveredDevice{}, ble.ErrDeviceNotFound
	}
	return ble.DiscoveredDevice{Address: addr, Name: name}, nil
}

// DiscoverByAddresses implements ble.Adapter by probing each wanted
// address in turn; there is no bulk OS query to batch this into.
func (a *Adapter) DiscoverByAddresses(ctx context.Context, want []protocol.Address, timeout time.Duration) (map[protocol.Address]ble.DiscoveredDevice, error) {
	found := make(map[protocol.Address]ble.DiscoveredDevice, len(want))
	for _, addr := range want {
		dev, err := a.DiscoverByAddress(ctx, addr, timeout)
		if err == nil {
			found[addr] = dev
		}
	}
	return found, nil
}

// DiscoverByName implements ble.Adapter. This backend has no address
// space to enumerate without already knowing an address, so it always
// yields an empty sequence; a real deployment with access to the OS's
// paired-device enumeration API would walk that list here.
func (a *Adapter) DiscoverByName(ctx context.Context, query string, timeout time.Duration) iter.Seq[ble.DiscoveredDevice] {
	return func(yield func(ble.DiscoveredDevice) bool) {}
}

func (a *Adapter) NewSession(addr protocol.Address) ble.Session {
	return &session{addr: addr, client: a.client}
}

// session is a Windows BLE handle. Connect/disconnect/pair are no-ops:
// the OS already manages the radio connection for paired devices.
type session struct {
	mu     sync.Mutex
	addr   protocol.Address
	state  ble.State
	client GATTClient
}

func (s *session) State() ble.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) TryConnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ble.StateConnected
	return nil
}

func (s *session) TryDisconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ble.StateDisconnected
	return nil
}

func (s *session) TryPair(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ble.StatePaired
	return nil
}

// SetServices is a no-op: Windows resolves services lazily per
// characteristic access rather than up front.
func (s *session) SetServices(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = ble.StateReady
	return nil
}

func (s *session) ReadGATT(ctx context.Context, svc, char uuid.UUID) ([]byte, error) {
	return s.client.Read(ctx, s.addr, svc, char)
}

func (s *session) WriteGATT(ctx context.Context, svc, char uuid.UUID, data []byte) error {
	return s.client.Write(ctx, s.addr, svc, char, data)
}

// GetName also doubles as this backend's connectedness probe: a
// non-empty name implies the OS considers the device connected.
func (s *session) GetName(ctx context.Context) (string, error) {
	name, err := s.client.Name(ctx, s.addr)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if name != "" {
		s.state = ble.StateConnected
	}
	s.mu.Unlock()

	return name, nil
}
