package rustbee

import (
	"context"
	"time"

	"github.com/rustbee-go/rustbeed/internal/colorspace"
	"github.com/rustbee-go/rustbeed/internal/protocol"
)

// SyncClient is a blocking façade over Client, for callers that don't
// want to thread a context.Context through every call site — embedding
// via cgo, or a short script. It exists for the same reason the
// original layers a synchronous API over its async core: most callers
// only ever want "do this and wait", with a single timeout knob.
type SyncClient struct {
	client  *Client
	timeout time.Duration
}

// DefaultTimeout bounds a SyncClient call when none is configured.
const DefaultTimeout = 10 * time.Second

// NewSyncClient wraps client with a fixed per-call timeout. A zero
// timeout uses DefaultTimeout.
func NewSyncClient(client *Client, timeout time.Duration) *SyncClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SyncClient{client: client, timeout: timeout}
}

func (s *SyncClient) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *SyncClient) Connect(addr protocol.Address) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Connect(ctx, addr)
}

func (s *SyncClient) IsConnected(addr protocol.Address) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.IsConnected(ctx, addr)
}

func (s *SyncClient) Pair(addr protocol.Address) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Pair(ctx, addr)
}

func (s *SyncClient) Disconnect(addr protocol.Address) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.Disconnect(ctx, addr)
}

func (s *SyncClient) GetPower(addr protocol.Address) (bool, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.GetPower(ctx, addr)
}

func (s *SyncClient) SetPower(addr protocol.Address, on bool) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.SetPower(ctx, addr, on)
}

func (s *SyncClient) GetBrightness(addr protocol.Address) (byte, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.GetBrightness(ctx, addr)
}

func (s *SyncClient) SetBrightness(addr protocol.Address, level byte) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.SetBrightness(ctx, addr, level)
}

func (s *SyncClient) GetBrightnessPercent(addr protocol.Address) (int, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.GetBrightnessPercent(ctx, addr)
}

func (s *SyncClient) SetBrightnessPercent(addr protocol.Address, pct int) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.SetBrightnessPercent(ctx, addr, pct)
}

func (s *SyncClient) GetColorXY(addr protocol.Address) (colorspace.XY, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.GetColorXY(ctx, addr)
}

func (s *SyncClient) SetColorXY(addr protocol.Address, xy colorspace.XY) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.SetColorXY(ctx, addr, xy)
}

func (s *SyncClient) GetColorRGB(addr protocol.Address, brightness float64) (colorspace.RGB, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.GetColorRGB(ctx, addr, brightness)
}

func (s *SyncClient) SetColorRGB(addr protocol.Address, rgb colorspace.RGB) error {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.SetColorRGB(ctx, addr, rgb)
}

func (s *SyncClient) GetName(addr protocol.Address) (string, error) {
	ctx, cancel := s.ctx()
	defer cancel()
	return s.client.GetName(ctx, addr)
}

// SearchByName blocks until the timeout elapses or the daemon reports
// StreamEOF, then returns every device found.
func (s *SyncClient) SearchByName(query string) []FoundDevice {
	ctx, cancel := s.ctx()
	defer cancel()

	var found []FoundDevice
	for dev := range s.client.SearchByName(ctx, query) {
		found = append(found, dev)
	}
	return found
}
