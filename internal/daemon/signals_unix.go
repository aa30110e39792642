//go:build !windows

package daemon

import (
	"os"
	"syscall"
)

// shutdownSignals returns the signals that trigger a graceful shutdown.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
