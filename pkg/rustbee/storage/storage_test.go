package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustbee-go/rustbeed/internal/protocol"
)

var testAddr = protocol.Address{0xe8, 0xd4, 0xea, 0xc4, 0x62, 0x00}

func TestGetMissingFileReturnsNotFound(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.json"))
	_, ok := s.Get(testAddr)
	assert.False(t, ok)
}

func TestSetFlushLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")

	s := New(path)
	s.Set(testAddr, SavedDevice{Name: "Hue Play", CurrentColor: [3]byte{255, 0, 0}, Brightness: 200})
	require.NoError(t, s.Flush())

	reloaded := New(path)
	dev, ok := reloaded.Get(testAddr)
	require.True(t, ok)
	assert.Equal(t, "Hue Play", dev.Name)
	assert.Equal(t, [3]byte{255, 0, 0}, dev.CurrentColor)
	assert.Equal(t, byte(200), dev.Brightness)
}

func TestAllReturnsEverySavedDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	s := New(path)

	other := protocol.Address{1, 2, 3, 4, 5, 6}
	s.Set(testAddr, SavedDevice{Name: "A"})
	s.Set(other, SavedDevice{Name: "B"})
	require.NoError(t, s.Flush())

	all, err := New(path).All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[testAddr].Name)
	assert.Equal(t, "B", all[other].Name)
}

func TestFlushIsJSONKeyedByColonHexAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.json")
	s := New(path)
	s.Set(testAddr, SavedDevice{Name: "Hue Play"})
	require.NoError(t, s.Flush())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"e8:d4:ea:c4:62:00"`)
}
