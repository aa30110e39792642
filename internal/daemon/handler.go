package daemon

import (
	"bytes"
	"context"
	"io"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustbee-go/rustbeed/internal/ble"
	"github.com/rustbee-go/rustbeed/internal/groutine"
	"github.com/rustbee-go/rustbeed/internal/protocol"
	"github.com/rustbee-go/rustbeed/internal/registry"
)

// handleConnection implements spec §4.6 steps 1-9 for one accepted
// connection: read exactly one request frame, dispatch it, write
// exactly one response (or, for SEARCH_NAME, a Streaming/StreamEOF
// sequence), then return so the caller can close the connection.
func (d *Daemon) handleConnection(ctx context.Context, conn net.Conn) {
	buf := make([]byte, protocol.BufferLen)
	if _, err := io.ReadFull(conn, buf); err != nil {
		d.logger.WithError(err).Warn("short read, dropping connection")
		return
	}

	req, err := protocol.DecodeRequest(buf)
	if err != nil {
		d.logger.WithError(err).Warn("failed to decode request frame")
		return
	}

	cmds := protocol.DecodeCommands(req.Flags)

	if len(cmds) == 1 && cmds[0] == protocol.CmdSearchName {
		d.handleSearchName(ctx, conn, req)
		return
	}

	d.handleCommands(ctx, conn, req, cmds)
}

func (d *Daemon) handleSearchName(ctx context.Context, conn net.Conn, req protocol.Request) {
	query := decodeSearchQuery(req.Data)

	searchCtx, cancel := context.WithTimeout(ctx, d.cfg.NameSearchTimeout)
	defer cancel()

	hits := 0
	for dev := range d.adapter.DiscoverByName(searchCtx, query, d.cfg.NameSearchTimeout) {
		hits++
		if !d.writeResponse(ctx, conn, protocol.Streaming, encodeSearchHit(dev)) {
			return
		}
	}

	if hits == 0 {
		d.writeResponse(ctx, conn, protocol.DeviceNotFound, zeroPayload())
		return
	}

	d.writeResponse(ctx, conn, protocol.StreamEOF, zeroPayload())
}

func (d *Daemon) handleCommands(ctx context.Context, conn net.Conn, req protocol.Request, cmds []protocol.Command) {
	entry, err := d.registry.Acquire(ctx, req.Address)
	if err != nil {
		d.writeResponse(ctx, conn, protocol.DeviceNotFound, zeroPayload())
		return
	}

	// Short-circuit: a lone CONNECT in GET mode reports live
	// connectedness without forcing pair/connect/set_services.
	if len(cmds) == 1 && cmds[0] == protocol.CmdConnect && !req.Mode.IsSet() {
		entry.Lock()
		state := entry.Session.State()
		entry.Unlock()

		var payload [protocol.OutputLen - 1]byte
		if state >= ble.StateConnected {
			payload[0] = 1
		}
		d.writeResponse(ctx, conn, protocol.Success, payload)
		return
	}

	entry.Lock()
	readyErr := ble.EnsureReady(ctx, entry.Session)
	if !d.cfg.SerializePerDevice {
		entry.Unlock()
	}

	if readyErr != nil {
		if d.cfg.SerializePerDevice {
			entry.Unlock()
		}
		d.logger.WithFields(logrus.Fields{"address": req.Address, "error": readyErr}).Warn("ensure ready failed, evicting device")
		d.registry.Evict(req.Address)
		d.writeResponse(ctx, conn, protocol.Failure, zeroPayload())
		return
	}
	if d.cfg.SerializePerDevice {
		defer entry.Unlock()
	}

	if len(cmds) == 0 {
		d.writeResponse(ctx, conn, protocol.Success, zeroPayload())
		return
	}

	worst := protocol.Streaming
	var payload [protocol.OutputLen - 1]byte

	for i, cmd := range cmds {
		code, out := d.execute(ctx, entry, cmd, req)
		worst = protocol.Worse(worst, code)
		if out != nil {
			copy(payload[:], out)
		}
		if i < len(cmds)-1 {
			time.Sleep(d.cfg.CommandPacing)
		}
	}

	d.writeResponse(ctx, conn, worst, payload)
}

// execute runs a single command against entry's session and returns
// the resulting code plus any read payload (nil if the command
// doesn't produce one).
func (d *Daemon) execute(ctx context.Context, entry *registry.Entry, cmd protocol.Command, req protocol.Request) (protocol.OutputCode, []byte) {
	session := entry.Session

	switch cmd {
	case protocol.CmdConnect:
		var out [1]byte
		if session.State() >= ble.StateConnected {
			out[0] = 1
		}
		return protocol.Success, out[:]

	case protocol.CmdPair:
		// Pairing is already ensured by EnsureReady before the command
		// list runs; this reports the outcome.
		return protocol.Success, nil

	case protocol.CmdPower:
		if req.Mode.IsSet() {
			if err := ble.SetPower(ctx, session, req.Data[0] != 0); err != nil {
				return protocol.Failure, nil
			}
			return protocol.Success, nil
		}
		on, err := ble.GetPower(ctx, session)
		if err != nil {
			return protocol.Failure, nil
		}
		if on {
			return protocol.Success, []byte{1}
		}
		return protocol.Success, []byte{0}

	case protocol.CmdColorRGB, protocol.CmdColorHex, protocol.CmdColorXY:
		if req.Mode.IsSet() {
			x := uint16(req.Data[0]) | uint16(req.Data[1])<<8
			y := uint16(req.Data[2]) | uint16(req.Data[3])<<8
			if err := ble.SetColor(ctx, session, x, y); err != nil {
				return protocol.Failure, nil
			}
			return protocol.Success, nil
		}
		x, y, err := ble.GetColor(ctx, session)
		if err != nil {
			return protocol.Failure, nil
		}
		return protocol.Success, []byte{byte(x), byte(x >> 8), byte(y), byte(y >> 8)}

	case protocol.CmdBrightness:
		if req.Mode.IsSet() {
			if err := ble.SetBrightness(ctx, session, req.Data[0]); err != nil {
				return protocol.Failure, nil
			}
			return protocol.Success, nil
		}
		v, err := ble.GetBrightness(ctx, session)
		if err != nil {
			return protocol.Failure, nil
		}
		return protocol.Success, []byte{v}

	case protocol.CmdDisconnect:
		if err := session.TryDisconnect(ctx); err != nil {
			return protocol.Failure, nil
		}
		return protocol.Success, nil

	case protocol.CmdName:
		name, err := session.GetName(ctx)
		if err != nil {
			return protocol.Failure, nil
		}
		return protocol.Success, []byte(ble.TruncateName(name, protocol.OutputLen-1))

	default:
		return protocol.Failure, nil
	}
}

// writeResponse encodes and writes one response frame, logging but not
// failing the connection handler on a broken pipe. It reports whether
// the write succeeded, so a streaming loop knows to stop.
func (d *Daemon) writeResponse(ctx context.Context, conn net.Conn, code protocol.OutputCode, payload [protocol.OutputLen - 1]byte) bool {
	frame := protocol.EncodeResponse(code, payload)
	if _, err := conn.Write(frame[:]); err != nil {
		d.logger.WithFields(logrus.Fields{"goroutine": groutine.GetName(ctx), "error": err}).Warn("broken pipe writing response")
		return false
	}
	return true
}

func zeroPayload() [protocol.OutputLen - 1]byte {
	return [protocol.OutputLen - 1]byte{}
}

func decodeSearchQuery(data [protocol.DataLen]byte) string {
	n := bytes.IndexByte(data[:], 0)
	if n < 0 {
		n = len(data)
	}
	return string(data[:n])
}

func encodeSearchHit(dev ble.DiscoveredDevice) [protocol.OutputLen - 1]byte {
	var payload [protocol.OutputLen - 1]byte
	copy(payload[:protocol.AddrLen], dev.Address[:])
	name := ble.TruncateName(dev.Name, len(payload)-protocol.AddrLen)
	copy(payload[protocol.AddrLen:], name)
	return payload
}
