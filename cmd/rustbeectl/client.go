package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rustbee-go/rustbeed/internal/protocol"
	"github.com/rustbee-go/rustbeed/pkg/rustbee"
	"github.com/rustbee-go/rustbeed/pkg/rustbee/storage"
)

func newClient() *rustbee.SyncClient {
	client := rustbee.NewClient(rustbee.Config{SocketPath: socketPath})
	return rustbee.NewSyncClient(client, 0)
}

// newStorage opens rustbeectl's own cache of last-seen device state
// (spec §6): opaque to the daemon, used only so this demonstration
// client can show a device's last known name/color/brightness without
// a fresh round trip. Errors locating the home directory fall back to
// a relative path rather than failing the command outright.
func newStorage() *storage.Storage {
	home, err := os.UserHomeDir()
	if err != nil {
		return storage.New(defaultCacheFile)
	}
	return storage.New(filepath.Join(home, defaultCacheFile))
}

func parseAddressArg(s string) (protocol.Address, error) {
	addr, err := protocol.ParseAddress(s)
	if err != nil {
		return addr, fmt.Errorf("invalid device address %q: %w", s, err)
	}
	return addr, nil
}
