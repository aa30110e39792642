//go:build windows

package daemon

import (
	"net"

	winio "github.com/Microsoft/go-winio"
)

// newListener creates the daemon's named pipe. Windows pipes don't
// leave a filesystem artifact to collide with, so there is no
// socket-exists check to perform here; ListenPipe itself fails if the
// pipe name is already owned by another listener.
func newListener(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}

func removeSocket(path string) {
	// Named pipes are cleaned up by the OS when the listener closes.
}
