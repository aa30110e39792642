// Package protocol implements the fixed-width wire frames exchanged
// between rustbee clients and the daemon, and the decoding of a
// request's command bitmask into an ordered operation list.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	// AddrLen is the size in bytes of a device address.
	AddrLen = 6
	// DataLen is the size in bytes of a request's command payload.
	DataLen = 10
	// BufferLen is the total size of a request frame: address + flags(2) + mode(1) + data.
	BufferLen = AddrLen + 2 + 1 + DataLen
	// OutputLen is the total size of a response frame: code(1) + payload.
	OutputLen = 1 + 19
)

// ErrShortFrame is returned when fewer than the expected number of bytes
// are available to decode a frame.
var ErrShortFrame = errors.New("protocol: short frame")

// Mode distinguishes a GET request from a SET request. Per spec, the
// mode field is a full byte but logically one bit: any non-zero value
// means SET.
type Mode byte

const (
	ModeGet Mode = 0
	ModeSet Mode = 1
)

// IsSet reports whether a raw mode byte should be treated as SET.
func (m Mode) IsSet() bool {
	return m != ModeGet
}

// Address is a 6-byte opaque BLE device identifier. Equality is byte-wise.
type Address [AddrLen]byte

// IsZero reports whether the address is the all-zero sentinel used for
// commands that don't need one (e.g. a name search).
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address in colon-hex form, e.g. "e8:d4:ea:c4:62:00".
func (a Address) String() string {
	parts := make([]string, AddrLen)
	for i, b := range a {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// ParseAddress parses a colon-hex address string, e.g. "e8:d4:ea:c4:62:00".
func ParseAddress(s string) (Address, error) {
	var addr Address
	parts := strings.Split(s, ":")
	if len(parts) != AddrLen {
		return addr, fmt.Errorf("protocol: invalid address %q", s)
	}
	for i, p := range parts {
		var b int
		if _, err := fmt.Sscanf(p, "%02x", &b); err != nil || b < 0 || b > 0xFF {
			return addr, fmt.Errorf("protocol: invalid address %q", s)
		}
		addr[i] = byte(b)
	}
	return addr, nil
}

// Request is the decoded form of a 19-byte request frame.
type Request struct {
	Address Address
	Flags   uint16
	Mode    Mode
	Data    [DataLen]byte
}

// EncodeRequest serializes a request into a BufferLen-byte frame. This
// never fails: every field is already bounded by its type.
func EncodeRequest(addr Address, flags uint16, mode Mode, data [DataLen]byte) [BufferLen]byte {
	var buf [BufferLen]byte
	copy(buf[0:AddrLen], addr[:])
	binary.LittleEndian.PutUint16(buf[AddrLen:AddrLen+2], flags)
	buf[AddrLen+2] = byte(mode)
	copy(buf[AddrLen+3:], data[:])
	return buf
}

// DecodeRequest parses a request frame. It returns ErrShortFrame if
// fewer than BufferLen bytes are supplied.
func DecodeRequest(raw []byte) (Request, error) {
	if len(raw) < BufferLen {
		return Request{}, ErrShortFrame
	}

	var req Request
	copy(req.Address[:], raw[0:AddrLen])
	req.Flags = binary.LittleEndian.Uint16(raw[AddrLen : AddrLen+2])
	req.Mode = Mode(raw[AddrLen+2])
	copy(req.Data[:], raw[AddrLen+3:BufferLen])
	return req, nil
}

// Response is the decoded form of a 20-byte response frame.
type Response struct {
	Code    OutputCode
	Payload [OutputLen - 1]byte
}

// EncodeResponse serializes a response into an OutputLen-byte frame.
func EncodeResponse(code OutputCode, payload [OutputLen - 1]byte) [OutputLen]byte {
	var buf [OutputLen]byte
	buf[0] = byte(code)
	copy(buf[1:], payload[:])
	return buf
}

// DecodeResponse parses a response frame. It returns ErrShortFrame if
// fewer than OutputLen bytes are supplied, and ErrUnknownOutputCode if
// the leading byte isn't one of the five known codes.
func DecodeResponse(raw []byte) (Response, error) {
	if len(raw) < OutputLen {
		return Response{}, ErrShortFrame
	}

	code, err := ParseOutputCode(raw[0])
	if err != nil {
		return Response{}, err
	}

	var resp Response
	resp.Code = code
	copy(resp.Payload[:], raw[1:OutputLen])
	return resp, nil
}
