package daemon

import (
	"context"
	"iter"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/protocol"
	"github.com/rustbee-go/rustbeed/internal/registry"
	"github.com/rustbee-go/rustbeed/pkg/config"
)

type fakeSession struct {
	state      ble.State
	gatt       map[uuid.UUID][]byte
	name       string
	pairErr    error
	connectErr error
}

func newFakeSession() *fakeSession {
	return &fakeSession{gatt: make(map[uuid.UUID][]byte)}
}

func (f *fakeSession) State() ble.State { return f.state }

func (f *fakeSession) TryConnect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.state = ble.StateConnected
	return nil
}

func (f *fakeSession) TryDisconnect(ctx context.Context) error {
	f.state = ble.StateDisconnected
	return nil
}

func (f *fakeSession) TryPair(ctx context.Context) error {
	if f.pairErr != nil {
		return f.pairErr
	}
	f.state = ble.StatePaired
	return nil
}

func (f *fakeSession) SetServices(ctx context.Context) error {
	f.state = ble.StateReady
	return nil
}

func (f *fakeSession) ReadGATT(ctx context.Context, svc, char uuid.UUID) ([]byte, error) {
	data, ok := f.gatt[char]
	if !ok {
		return nil, ble.ErrNotFound
	}
	return data, nil
}

func (f *fakeSession) WriteGATT(ctx context.Context, svc, char uuid.UUID, data []byte) error {
	f.gatt[char] = append([]byte(nil), data...)
	return nil
}

func (f *fakeSession) GetName(ctx context.Context) (string, error) {
	return f.name, nil
}

type fakeAdapter struct {
	sessions map[protocol.Address]*fakeSession
	found    map[protocol.Address]ble.DiscoveredDevice
	byName   []ble.DiscoveredDevice
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		sessions: make(map[protocol.Address]*fakeSession),
		found:    make(map[protocol.Address]ble.DiscoveredDevice),
	}
}

func (a *fakeAdapter) DiscoverByAddress(ctx context.Context, addr protocol.Address, timeout time.Duration) (ble.DiscoveredDevice, error) {
	d, ok := a.found[addr]
	if !ok {
		return ble.DiscoveredDevice{}, ble.ErrDeviceNotFound
	}
	return d, nil
}

func (a *fakeAdapter) DiscoverByAddresses(ctx context.Context, want []protocol.Address, timeout time.Duration) (map[protocol.Address]ble.DiscoveredDevice, error) {
	return nil, nil
}

func (a *fakeAdapter) DiscoverByName(ctx context.Context, query string, timeout time.Duration) iter.Seq[ble.DiscoveredDevice] {
	return func(yield func(ble.DiscoveredDevice) bool) {
		for _, d := range a.byName {
			if !yield(d) {
				return
			}
		}
	}
}

func (a *fakeAdapter) NewSession(addr protocol.Address) ble.Session {
	s := newFakeSession()
	a.sessions[addr] = s
	return s
}

func testDaemon(adapter *fakeAdapter) *Daemon {
	cfg := config.DefaultConfig()
	cfg.DiscoveryTimeout = 50 * time.Millisecond
	cfg.NameSearchTimeout = 50 * time.Millisecond
	cfg.CommandPacing = 0

	logger := cfg.NewLogger()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		adapter:  adapter,
		registry: registry.New(adapter, logger, cfg.DiscoveryTimeout),
	}
}

func roundTrip(t *testing.T, d *Daemon, req [protocol.BufferLen]byte) protocol.Response {
	t.Helper()
	client, server := net.Pipe()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		d.handleConnection(context.Background(), server)
		server.Close()
		close(done)
	}()

	_, err := client.Write(req[:])
	require.NoError(t, err)

	buf := make([]byte, protocol.OutputLen)
	n, err := readFull(client, buf)
	require.NoError(t, err)
	require.Equal(t, protocol.OutputLen, n)
	<-done

	resp, err := protocol.DecodeResponse(buf)
	require.NoError(t, err)
	return resp
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

var testAddr = protocol.Address{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}

func TestHandlePowerGetSet(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}
	d := testDaemon(adapter)

	var data [protocol.DataLen]byte
	data[0] = 1
	setReq := protocol.EncodeRequest(testAddr, protocol.FlagPower, protocol.ModeSet, data)
	resp := roundTrip(t, d, setReq)
	assert.Equal(t, protocol.Success, resp.Code)

	getReq := protocol.EncodeRequest(testAddr, protocol.FlagPower, protocol.ModeGet, [protocol.DataLen]byte{})
	resp = roundTrip(t, d, getReq)
	assert.Equal(t, protocol.Success, resp.Code)
	assert.Equal(t, byte(1), resp.Payload[0])
}

func TestHandleConnectOnlyGetShortCircuits(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}
	d := testDaemon(adapter)

	req := protocol.EncodeRequest(testAddr, protocol.FlagConnect, protocol.ModeGet, [protocol.DataLen]byte{})
	resp := roundTrip(t, d, req)
	assert.Equal(t, protocol.Success, resp.Code)
	assert.Equal(t, byte(0), resp.Payload[0], "not connected yet, short-circuit must not force a connect")
}

func TestHandleDeviceNotFound(t *testing.T) {
	adapter := newFakeAdapter()
	d := testDaemon(adapter)

	req := protocol.EncodeRequest(testAddr, protocol.FlagPower, protocol.ModeGet, [protocol.DataLen]byte{})
	resp := roundTrip(t, d, req)
	assert.Equal(t, protocol.DeviceNotFound, resp.Code)
}

func TestHandleCanonicalOrderWorstCodeWins(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}
	d := testDaemon(adapter)

	var setData [protocol.DataLen]byte
	setData[0] = 1
	setReq := protocol.EncodeRequest(testAddr, protocol.FlagPower, protocol.ModeSet, setData)
	resp := roundTrip(t, d, setReq)
	require.Equal(t, protocol.Success, resp.Code)

	// POWER now reads back fine; BRIGHTNESS GET fails because nothing
	// was ever written to that characteristic. The fold keeps the
	// numerically smaller code, so POWER's Success (0) wins over
	// BRIGHTNESS's Failure (1).
	getReq := protocol.EncodeRequest(testAddr, protocol.FlagPower|protocol.FlagBrightness, protocol.ModeGet, [protocol.DataLen]byte{})
	resp = roundTrip(t, d, getReq)
	assert.Equal(t, protocol.Success, resp.Code)
}

func TestHandleAllZeroFlagsIsNoOpSuccess(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}
	d := testDaemon(adapter)

	req := protocol.EncodeRequest(testAddr, 0, protocol.ModeGet, [protocol.DataLen]byte{})
	resp := roundTrip(t, d, req)
	assert.Equal(t, protocol.Success, resp.Code)
}

func TestHandleSearchNameStreamsHitsThenEOF(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.byName = []ble.DiscoveredDevice{
		{Address: protocol.Address{1, 2, 3, 4, 5, 6}, Name: "Hue Play A"},
		{Address: protocol.Address{7, 8, 9, 10, 11, 12}, Name: "Hue Play B"},
	}
	d := testDaemon(adapter)

	var data [protocol.DataLen]byte
	copy(data[:], "Hue")
	req := protocol.EncodeRequest(protocol.Address{}, protocol.FlagSearchName, protocol.ModeGet, data)

	client, server := net.Pipe()
	defer client.Close()
	done := make(chan struct{})
	go func() {
		d.handleConnection(context.Background(), server)
		server.Close()
		close(done)
	}()

	_, err := client.Write(req[:])
	require.NoError(t, err)

	var codes []protocol.OutputCode
	buf := make([]byte, protocol.OutputLen)
	for {
		n, err := readFull(client, buf)
		if err != nil || n == 0 {
			break
		}
		resp, derr := protocol.DecodeResponse(buf)
		require.NoError(t, derr)
		codes = append(codes, resp.Code)
		if resp.Code == protocol.StreamEOF {
			break
		}
	}
	<-done

	require.Len(t, codes, 3)
	assert.Equal(t, protocol.Streaming, codes[0])
	assert.Equal(t, protocol.Streaming, codes[1])
	assert.Equal(t, protocol.StreamEOF, codes[2])
}

func TestHandleSearchNameZeroHitsReportsDeviceNotFound(t *testing.T) {
	adapter := newFakeAdapter()
	d := testDaemon(adapter)

	req := protocol.EncodeRequest(protocol.Address{}, protocol.FlagSearchName, protocol.ModeGet, [protocol.DataLen]byte{})
	resp := roundTrip(t, d, req)
	assert.Equal(t, protocol.DeviceNotFound, resp.Code)
}
