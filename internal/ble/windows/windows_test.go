package windows

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

type fakeClient struct {
	name string
	data map[uuid.UUID][]byte
}

func (f *fakeClient) Read(ctx context.Context, addr protocol.Address, svc, char uuid.UUID) ([]byte, error) {
	return f.data[char], nil
}

func (f *fakeClient) Write(ctx context.Context, addr protocol.Address, svc, char uuid.UUID, data []byte) error {
	f.data[char] = data
	return nil
}

func (f *fakeClient) Name(ctx context.Context, addr protocol.Address) (string, error) {
	return f.name, nil
}

func TestConnectDisconnectPairAreNoOps(t *testing.T) {
	a := NewAdapter(nil, nil)
	s := a.NewSession(protocol.Address{})

	require.NoError(t, s.TryConnect(context.Background()))
	assert.Equal(t, ble.StateConnected, s.State())

	require.NoError(t, s.TryPair(context.Background()))
	assert.Equal(t, ble.StatePaired, s.State())

	require.NoError(t, s.TryDisconnect(context.Background()))
	assert.Equal(t, ble.StateDisconnected, s.State())
}

func TestDefaultClientIsUnsupported(t *testing.T) {
	a := NewAdapter(nil, nil)
	s := a.NewSession(protocol.Address{})

	_, err := s.ReadGATT(context.Background(), ble.LightServicesUUID, ble.PowerUUID)
	assert.ErrorIs(t, err, ble.ErrUnsupported)
}

func TestGetNameInfersConnected(t *testing.T) {
	client := &fakeClient{name: "Hue Play", data: make(map[uuid.UUID][]byte)}
	a := NewAdapter(nil, client)
	s := a.NewSession(protocol.Address{})

	name, err := s.GetName(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Hue Play", name)
	assert.Equal(t, ble.StateConnected, s.State())
}

func TestReadWriteViaClient(t *testing.T) {
	client := &fakeClient{data: make(map[uuid.UUID][]byte)}
	a := NewAdapter(nil, client)
	s := a.NewSession(protocol.Address{})

	require.NoError(t, s.WriteGATT(context.Background(), ble.LightServicesUUID, ble.PowerUUID, []byte{1}))
	data, err := s.ReadGATT(context.Background(), ble.LightServicesUUID, ble.PowerUUID)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, data)
}

func TestDiscoverByAddressFoundWhenNameResolves(t *testing.T) {
	client := &fakeClient{name: "Hue Play", data: make(map[uuid.UUID][]byte)}
	a := NewAdapter(nil, client)

	dev, err := a.DiscoverByAddress(context.Background(), protocol.Address{1, 2, 3, 4, 5, 6}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Hue Play", dev.Name)
}

func TestDiscoverByAddressNotFoundWithUnsupportedClient(t *testing.T) {
	a := NewAdapter(nil, nil)

	_, err := a.DiscoverByAddress(context.Background(), protocol.Address{1, 2, 3, 4, 5, 6}, time.Second)
	assert.ErrorIs(t, err, ble.ErrDeviceNotFound)
}

func TestDiscoverByAddressesProbesEachWantedAddress(t *testing.T) {
	client := &fakeClient{name: "Hue Play", data: make(map[uuid.UUID][]byte)}
	a := NewAdapter(nil, client)

	want := []protocol.Address{{1, 2, 3, 4, 5, 6}, {7, 8, 9, 10, 11, 12}}
	found, err := a.DiscoverByAddresses(context.Background(), want, time.Second)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestDiscoverByNameYieldsNothing(t *testing.T) {
	a := NewAdapter(nil, nil)

	count := 0
	for range a.DiscoverByName(context.Background(), "anything", time.Second) {
		count++
	}
	assert.Zero(t, count)
}
