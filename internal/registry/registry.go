// Package registry implements the process-wide device cache (C5): a
// lock-free map from device address to a session entry, each entry
// carrying its own mutex so one device's slow BLE I/O never blocks
// another's. Adapted from the teacher's scanner.Scanner, which used
// the same cornelk/hashmap map as a throwaway per-scan cache; here it
// is long-lived for the daemon's whole process lifetime.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/groutine"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

// Entry is one device's cached session. Callers must hold the entry's
// lock for the duration of any BLE operation against it; the registry
// itself never holds a lock across I/O.
type Entry struct {
	Address protocol.Address
	Name    string
	Session ble.Session

	mu sync.Mutex
}

// Lock serializes access to this entry's BLE session.
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock releases the entry's lock.
func (e *Entry) Unlock() { e.mu.Unlock() }

// Registry is the daemon's process-wide device cache.
type Registry struct {
	entries          *hashmap.Map[protocol.Address, *Entry]
	adapter          ble.Adapter
	logger           *logrus.Logger
	discoveryTimeout time.Duration
}

// New creates an empty registry bound to adapter.
func New(adapter ble.Adapter, logger *logrus.Logger, discoveryTimeout time.Duration) *Registry {
	if logger == nil {
		logger = logrus.New()
	}
	return &Registry{
		entries:          hashmap.New[protocol.Address, *Entry](),
		adapter:          adapter,
		logger:           logger,
		discoveryTimeout: discoveryTimeout,
	}
}

// Acquire returns the cached entry for addr, discovering and inserting
// one on a cache miss. A discovery timeout or adapter failure returns
// ble.ErrDeviceNotFound without inserting anything, per spec §4.5.
func (r *Registry) Acquire(ctx context.Context, addr protocol.Address) (*Entry, error) {
	if entry, ok := r.entries.Get(addr); ok {
		return entry, nil
	}

	discoverCtx, cancel := context.WithTimeout(ctx, r.discoveryTimeout)
	defer cancel()

	found, err := r.adapter.DiscoverByAddress(discoverCtx, addr, r.discoveryTimeout)
	if err != nil {
		r.logger.WithFields(logrus.Fields{"address": addr, "error": err}).Debug("device discovery missed")
		return nil, ble.ErrDeviceNotFound
	}

	entry := &Entry{
		Address: addr,
		Name:    found.Name,
		Session: r.adapter.NewSession(addr),
	}
	actual, _ := r.entries.GetOrInsert(addr, entry)
	return actual, nil
}

// Evict drops addr's entry, e.g. after a fatal pair/connect/services
// error. The caller is responsible for disconnecting first.
func (r *Registry) Evict(addr protocol.Address) {
	r.entries.Del(addr)
}

// Len reports the number of cached entries.
func (r *Registry) Len() int {
	return r.entries.Len()
}

// Shutdown best-effort disconnects every cached entry concurrently and
// waits for all of them to finish. ctx is passed to each TryDisconnect;
// the wait itself has no deadline.
func (r *Registry) Shutdown(ctx context.Context) {
	var wg sync.WaitGroup

	r.entries.Range(func(addr protocol.Address, entry *Entry) bool {
		name := fmt.Sprintf("registry-shutdown-%s", addr.String())
		groutine.GoWaitGroup(ctx, &wg, name, func(gctx context.Context) {
			entry.Lock()
			defer entry.Unlock()
			if err := entry.Session.TryDisconnect(gctx); err != nil {
				r.logger.WithFields(logrus.Fields{"address": addr, "error": err}).Warn("shutdown disconnect failed")
			}
		})
		return true
	})

	wg.Wait()
}
