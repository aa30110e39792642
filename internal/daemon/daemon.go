// Package daemon implements the dispatcher (C6): bootstrap, the
// accept loop with idle-timeout shutdown, and per-connection request
// handling. Adapted from the teacher's cmd/blim entry point style
// (cobra-level logging/error conventions) generalized from a one-shot
// CLI command into a long-running listener loop.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/groutine"
	"github.com/rustbee-go/rustbeed/internal/registry"
	"github.com/rustbee-go/rustbeed/pkg/config"
)

// Exit codes, per spec §6.
const (
	ExitClean      = 0
	ExitListener   = 1
	ExitPermission = 2
)

// ErrSocketExists is returned by bootstrap when the configured socket
// path is already occupied; the daemon refuses to start rather than
// steal another instance's endpoint.
var ErrSocketExists = errors.New("daemon: socket path already exists")

// Daemon is the running dispatcher: one listener, one registry.
type Daemon struct {
	cfg      *config.Config
	logger   *logrus.Logger
	adapter  ble.Adapter
	registry *registry.Registry
	listener net.Listener
}

// Run bootstraps the listener and registry, then serves connections
// until an interrupt signal or the configured idle timeout, returning
// the process exit code to use.
func Run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, adapter ble.Adapter) int {
	if logger == nil {
		logger = logrus.New()
	}

	listener, err := newListener(cfg.SocketPath)
	if err != nil {
		if errors.Is(err, ErrSocketExists) || errors.Is(err, os.ErrPermission) {
			logger.WithError(err).Error("refusing to start")
			return ExitPermission
		}
		logger.WithError(err).Error("failed to create listener")
		return ExitListener
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		adapter:  adapter,
		registry: registry.New(adapter, logger, cfg.DiscoveryTimeout),
		listener: listener,
	}

	return d.serve(ctx)
}

func (d *Daemon) serve(ctx context.Context) int {
	defer removeSocket(d.cfg.SocketPath)
	defer d.listener.Close()

	sigCtx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	type acceptResult struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan acceptResult)

	groutine.Go(sigCtx, "daemon-accept", func(gctx context.Context) {
		for {
			conn, err := d.listener.Accept()
			select {
			case accepted <- acceptResult{conn, err}:
			case <-gctx.Done():
				if conn != nil {
					conn.Close()
				}
				return
			}
			if err != nil {
				return
			}
		}
	})

	idle := time.NewTimer(d.cfg.IdleTimeout)
	defer idle.Stop()

	var wg sync.WaitGroup
	connN := 0

	shutdown := func(reason string) int {
		d.logger.WithField("reason", reason).Info("shutting down")
		d.registry.Shutdown(context.Background())
		wg.Wait()
		return ExitClean
	}

	for {
		select {
		case <-sigCtx.Done():
			return shutdown("signal")

		case <-idle.C:
			return shutdown("idle timeout")

		case res := <-accepted:
			if res.err != nil {
				d.logger.WithError(res.err).Error("accept failed")
				wg.Wait()
				return ExitListener
			}

			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(d.cfg.IdleTimeout)

			connN++
			name := fmt.Sprintf("conn-%d", connN)
			wg.Add(1)
			groutine.Go(sigCtx, name, func(gctx context.Context) {
				defer wg.Done()
				defer res.conn.Close()
				d.handleConnection(gctx, res.conn)
			})
		}
	}
}
