package registry

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

type fakeAdapter struct {
	found map[protocol.Address]ble.DiscoveredDevice
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{found: make(map[protocol.Address]ble.DiscoveredDevice)}
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
	return func(yield func(ble.DiscoveredDevice) bool) {}
}

func (a *fakeAdapter) NewSession(addr protocol.Address) ble.Session {
	return &trackedSession{}
}

// trackedSession implements ble.Session fully for registry tests.
type trackedSession struct {
	disconnected bool
}

func (s *trackedSession) State() ble.State                 { return ble.StateReady }
func (s *trackedSession) TryConnect(context.Context) error  { return nil }
func (s *trackedSession) TryPair(context.Context) error     { return nil }
func (s *trackedSession) SetServices(context.Context) error { return nil }
func (s *trackedSession) TryDisconnect(context.Context) error {
	s.disconnected = true
	return nil
}
func (s *trackedSession) ReadGATT(ctx context.Context, svc, char uuid.UUID) ([]byte, error) {
	return nil, nil
}
func (s *trackedSession) WriteGATT(ctx context.Context, svc, char uuid.UUID, data []byte) error {
	return nil
}
func (s *trackedSession) GetName(ctx context.Context) (string, error) { return "", nil }

var testAddr = protocol.Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

func TestAcquireCacheMissInsertsOnDiscovery(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}

	reg := New(adapter, nil, time.Second)
	entry, err := reg.Acquire(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Equal(t, "Hue Play", entry.Name)
	assert.Equal(t, 1, reg.Len())
}

func TestAcquireCacheHitReturnsSameEntry(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}

	reg := New(adapter, nil, time.Second)
	first, err := reg.Acquire(context.Background(), testAddr)
	require.NoError(t, err)

	second, err := reg.Acquire(context.Background(), testAddr)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestAcquireMissingDeviceDoesNotInsert(t *testing.T) {
	adapter := newFakeAdapter()
	reg := New(adapter, nil, 10*time.Millisecond)

	_, err := reg.Acquire(context.Background(), testAddr)
	assert.ErrorIs(t, err, ble.ErrDeviceNotFound)
	assert.Equal(t, 0, reg.Len())
}

func TestEvictRemovesEntry(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}

	reg := New(adapter, nil, time.Second)
	_, err := reg.Acquire(context.Background(), testAddr)
	require.NoError(t, err)

	reg.Evict(testAddr)
	assert.Equal(t, 0, reg.Len())
}

func TestShutdownDisconnectsAllEntries(t *testing.T) {
	adapter := newFakeAdapter()
	adapter.found[testAddr] = ble.DiscoveredDevice{Address: testAddr, Name: "Hue Play"}

	reg := New(adapter, nil, time.Second)
	entry, err := reg.Acquire(context.Background(), testAddr)
	require.NoError(t, err)

	reg.Shutdown(context.Background())
	session := entry.Session.(*trackedSession)
	assert.True(t, session.disconnected)
}
