// Package linux implements the BLE session manager (internal/ble) on
// top of BlueZ via github.com/go-ble/ble's Linux device backend.
package linux

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"
	"time"

	gble "github.com/go-ble/ble"
	bledev "github.com/go-ble/ble/linux"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/gattdb"
	"github.com/rustbee-go/rustbeed/internal/groutine"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

// DeviceFactory creates the ble.Device bound to the host radio. It is
// a var so tests can substitute a fake adapter.
var DeviceFactory = func() (gble.Device, error) {
	return bledev.NewDevice()
}

// Adapter is the Linux BLE radio, backed by BlueZ.
type Adapter struct {
	logger *logrus.Logger
	once   sync.Once
	device gble.Device
}

// NewAdapter creates a Linux BLE adapter.
func NewAdapter(logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.New()
	}
	return &Adapter{logger: logger}
}

func (a *Adapter) ensureDevice() error {
	var err error
	a.once.Do(func() {
		a.device, err = DeviceFactory()
		if err == nil {
			gble.SetDefaultDevice(a.device)
		}
	})
	if a.device == nil && err == nil {
		err = ble.ErrAdapterUnavailable
	}
	return err
}

// DiscoverByAddress implements ble.Adapter.
func (a *Adapter) DiscoverByAddress(ctx context.Context, addr protocol.Address, timeout time.Duration) (ble.DiscoveredDevice, error) {
	if err := a.ensureDevice(); err != nil {
		return ble.DiscoveredDevice{}, fmt.Errorf("adapter: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := strings.ToLower(addr.String())
	hit := make(chan ble.DiscoveredDevice, 1)

	err := gble.Scan(scanCtx, true, func(adv gble.Advertisement) {
		if strings.ToLower(adv.Addr().String()) == target {
			select {
			case hit <- ble.DiscoveredDevice{Address: addr, Name: adv.LocalName()}:
			default:
			}
		}
	}, nil)

	select {
	case d := <-hit:
		return d, nil
	default:
	}

	if err != nil && err != context.DeadlineExceeded && err != context.Canceled {
		a.logger.WithError(err).Warn("ble scan ended with error")
	}
	return ble.DiscoveredDevice{}, ble.ErrDeviceNotFound
}

// DiscoverByAddresses implements ble.Adapter.
func (a *Adapter) DiscoverByAddresses(ctx context.Context, want []protocol.Address, timeout time.Duration) (map[protocol.Address]ble.DiscoveredDevice, error) {
	if err := a.ensureDevice(); err != nil {
		return nil, fmt.Errorf("adapter: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wanted := make(map[string]protocol.Address, len(want))
	for _, addr := range want {
		wanted[strings.ToLower(addr.String())] = addr
	}

	var mu sync.Mutex
	found := make(map[protocol.Address]ble.DiscoveredDevice, len(want))

	_ = gble.Scan(scanCtx, true, func(adv gble.Advertisement) {
		key := strings.ToLower(adv.Addr().String())
		addr, ok := wanted[key]
		if !ok {
			return
		}
		mu.Lock()
		if _, already := found[addr]; !already {
			found[addr] = ble.DiscoveredDevice{Address: addr, Name: adv.LocalName()}
		}
		done := len(found) == len(wanted)
		mu.Unlock()
		if done {
			cancel()
		}
	}, nil)

	mu.Lock()
	defer mu.Unlock()
	return found, nil
}

// DiscoverByName implements ble.Adapter as a pull iterator over a live
// scan: advertisements are pushed into a buffered channel by the scan
// callback and drained by the iterator, so the caller controls pacing
// without the scan ever blocking on a slow consumer.
func (a *Adapter) DiscoverByName(ctx context.Context, query string, timeout time.Duration) iter.Seq[ble.DiscoveredDevice] {
	return func(yield func(ble.DiscoveredDevice) bool) {
		if err := a.ensureDevice(); err != nil {
			return
		}

		scanCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		hits := make(chan ble.DiscoveredDevice, 32)
		seen := make(map[string]struct{})
		needle := strings.ToLower(query)

		groutine.Go(scanCtx, "ble-discover-by-name", func(gctx context.Context) {
			defer close(hits)
			_ = gble.Scan(scanCtx, true, func(adv gble.Advertisement) {
				name := adv.LocalName()
				if name == "" || !strings.Contains(strings.ToLower(name), needle) {
					return
				}
				addr := adv.Addr().String()
				if _, ok := seen[addr]; ok {
					return
				}
				seen[addr] = struct{}{}

				parsed, perr := protocol.ParseAddress(addr)
				if perr != nil {
					return
				}

				select {
				case hits <- ble.DiscoveredDevice{Address: parsed, Name: name}:
				case <-gctx.Done():
				}
			}, nil)
		})

		for {
			select {
			case d, ok := <-hits:
				if !ok {
					return
				}
				if !yield(d) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

// NewSession implements ble.Adapter.
func (a *Adapter) NewSession(addr protocol.Address) ble.Session {
	return &session{addr: addr, logger: a.logger}
}

type cachedChar struct {
	char *gble.Characteristic
}

// serviceChars is the ordered characteristic table for one service,
// ordered by discovery order rather than a map's arbitrary iteration
// order, so set_services enumeration is stable across calls.
type serviceChars = *orderedmap.OrderedMap[uuid.UUID, cachedChar]

// session is a per-device BLE connection managed through go-ble.
type session struct {
	mu       sync.Mutex
	addr     protocol.Address
	logger   *logrus.Logger
	client   gble.Client
	state    ble.State
	services *orderedmap.OrderedMap[uuid.UUID, serviceChars]
	name     string
}

// nameScanTimeout bounds the brief rescan GetName performs when the
// advertised name hasn't been observed yet.
const nameScanTimeout = 3 * time.Second

func (s *session) State() ble.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TryPair has no BlueZ-level counterpart in this library: go-ble does
// not expose the D-Bus Pair()/Trusted mechanism bluez uses. An already
// connected device counts as paired; otherwise pairing succeeds
// trivially and is finished for real as a side effect of Connect (most
// Hue Play-class peripherals don't require authenticated pairing for
// the characteristics this daemon touches).
func (s *session) TryPair(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= ble.StateConnected {
		return nil
	}
	s.state = ble.StatePaired
	return nil
}

func (s *session) TryConnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < ble.Attempts; attempt++ {
		client, err := gble.Dial(ctx, gble.NewAddr(s.addr.String()))
		if err == nil {
			s.client = client
			s.state = ble.StateConnected
			time.Sleep(ble.SettleDelay)
			return nil
		}
		lastErr = err
		s.logger.WithFields(logrus.Fields{"address": s.addr, "attempt": attempt + 1}).Warn("ble connect attempt failed")
	}
	return fmt.Errorf("connect: exhausted %d attempts: %w", ble.Attempts, lastErr)
}

func (s *session) TryDisconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		s.state = ble.StateDisconnected
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < ble.Attempts; attempt++ {
		if err := s.client.CancelConnection(); err != nil {
			lastErr = err
			continue
		}
		s.client = nil
		s.services = nil
		s.state = ble.StateDisconnected
		return nil
	}
	return fmt.Errorf("disconnect: exhausted %d attempts: %w", ble.Attempts, lastErr)
}

func (s *session) SetServices(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return fmt.Errorf("set_services: %w", ble.ErrNotFound)
	}

	profile, err := s.client.DiscoverProfile(true)
	if err != nil {
		return fmt.Errorf("discover profile: %w", err)
	}

	services := orderedmap.New[uuid.UUID, serviceChars]()
	for _, svc := range profile.Services {
		svcUUID, err := uuid.Parse(svc.UUID.String())
		if err != nil {
			continue
		}
		chars := orderedmap.New[uuid.UUID, cachedChar]()
		for _, c := range svc.Characteristics {
			charUUID, err := uuid.Parse(c.UUID.String())
			if err != nil {
				continue
			}
			chars.Set(charUUID, cachedChar{char: c})
			s.logger.WithFields(logrus.Fields{
				"address":        s.addr,
				"service":        gattdb.LookupOrHex(svcUUID),
				"characteristic": gattdb.LookupOrHex(charUUID),
			}).Debug("resolved characteristic")
		}
		services.Set(svcUUID, chars)
		time.Sleep(ble.ServiceEnumerationPacing)
	}

	s.services = services
	s.state = ble.StateReady
	return nil
}

func (s *session) lookup(svc, char uuid.UUID) (*gble.Characteristic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.services == nil {
		return nil, ble.ErrNotFound
	}
	chars, ok := s.services.Get(svc)
	if !ok {
		return nil, ble.ErrNotFound
	}
	c, ok := chars.Get(char)
	if !ok {
		return nil, ble.ErrNotFound
	}
	return c.char, nil
}

func (s *session) ReadGATT(ctx context.Context, svc, char uuid.UUID) ([]byte, error) {
	c, err := s.lookup(svc, char)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return nil, ble.ErrNotFound
	}

	return client.ReadCharacteristic(c)
}

func (s *session) WriteGATT(ctx context.Context, svc, char uuid.UUID, data []byte) error {
	c, err := s.lookup(svc, char)
	if err != nil {
		return err
	}

	s.mu.Lock()
	client := s.client
	s.mu.Unlock()
	if client == nil {
		return ble.ErrNotFound
	}

	return client.WriteCharacteristic(c, data, true)
}

// GetName returns the device's advertised local name. It is not a GATT
// read: the name lives in advertisement data, not a characteristic, so
// a cached value is reused if one was already observed, otherwise a
// brief rescan captures it.
func (s *session) GetName(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.name
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	scanCtx, cancel := context.WithTimeout(ctx, nameScanTimeout)
	defer cancel()

	target := strings.ToLower(s.addr.String())
	found := make(chan string, 1)
	_ = gble.Scan(scanCtx, true, func(adv gble.Advertisement) {
		if strings.ToLower(adv.Addr().String()) == target && adv.LocalName() != "" {
			select {
			case found <- adv.LocalName():
			default:
			}
		}
	}, nil)

	select {
	case name := <-found:
		s.mu.Lock()
		s.name = name
		s.mu.Unlock()
		return name, nil
	default:
		return "", nil
	}
}
