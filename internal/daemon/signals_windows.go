//go:build windows

package daemon

import "os"

// shutdownSignals returns the signals that trigger a graceful shutdown.
// syscall.SIGTERM has no Windows definition; os.Interrupt alone (mapped
// to Ctrl-Break by the Go runtime) covers the named-pipe deployment.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
