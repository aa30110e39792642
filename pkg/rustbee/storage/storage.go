// Package storage is a small on-disk cache of previously-seen devices,
// keyed by colon-hex address. It is opaque to the daemon: nothing here
// talks BLE or the wire protocol, it only remembers what a client last
// saw for a device so a UI can render something before a fresh GET
// round-trip completes. Adapted from rustbee-common's Storage type.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rustbee-go/rustbeed/internal/protocol"
)

// SavedDevice is the cached state for one address.
type SavedDevice struct {
	Name         string  `json:"name"`
	CurrentColor [3]byte `json:"current_color"`
	Brightness   byte    `json:"brightness"`
}

// Storage is a JSON file keyed by colon-hex address string, matching
// spec §6's documented on-disk format exactly. The format is fixed by
// the protocol contract, so it stays encoding/json rather than
// following the daemon's own YAML config convention (see DESIGN.md).
type Storage struct {
	mu   sync.Mutex
	path string
	data map[string]SavedDevice
}

// New creates a Storage backed by path. The file is not read until the
// first Get/All/Set call, matching the lazy-load behavior of the original.
func New(path string) *Storage {
	return &Storage{path: path}
}

func (s *Storage) ensureLoaded() error {
	if s.data != nil {
		return nil
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = make(map[string]SavedDevice)
			return nil
		}
		return fmt.Errorf("storage: reading %q: %w", s.path, err)
	}

	var data map[string]SavedDevice
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("storage: parsing %q: %w", s.path, err)
	}
	s.data = data
	return nil
}

// Get returns the cached entry for addr, if any.
func (s *Storage) Get(addr protocol.Address) (SavedDevice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return SavedDevice{}, false
	}
	dev, ok := s.data[addr.String()]
	return dev, ok
}

// All returns a snapshot of every cached entry, keyed by address.
func (s *Storage) All() (map[protocol.Address]SavedDevice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	out := make(map[protocol.Address]SavedDevice, len(s.data))
	for key, dev := range s.data {
		addr, err := protocol.ParseAddress(key)
		if err != nil {
			continue
		}
		out[addr] = dev
	}
	return out, nil
}

// Set records dev for addr. It is not persisted until Flush is called.
func (s *Storage) Set(addr protocol.Address, dev SavedDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.ensureLoaded()
	s.data[addr.String()] = dev
}

// Flush writes the current in-memory state to disk as JSON.
func (s *Storage) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]SavedDevice)
	}

	raw, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("storage: marshaling: %w", err)
	}

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("storage: writing %q: %w", s.path, err)
	}
	return nil
}
