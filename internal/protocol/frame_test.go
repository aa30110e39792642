package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	addr := Address{0xE8, 0xD4, 0xEA, 0xC4, 0x62, 0x00}
	var data [DataLen]byte
	data[0] = 0x7F

	buf := EncodeRequest(addr, FlagConnect|FlagPower, ModeSet, data)
	require.Len(t, buf, BufferLen)

	got, err := DecodeRequest(buf[:])
	require.NoError(t, err)
	assert.Equal(t, addr, got.Address)
	assert.Equal(t, FlagConnect|FlagPower, got.Flags)
	assert.Equal(t, ModeSet, got.Mode)
	assert.Equal(t, data, got.Data)
}

func TestDecodeRequestShortFrame(t *testing.T) {
	_, err := DecodeRequest(make([]byte, BufferLen-1))
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestModeIsSet(t *testing.T) {
	assert.False(t, ModeGet.IsSet())
	assert.True(t, ModeSet.IsSet())
	assert.True(t, Mode(2).IsSet(), "any non-zero mode byte means SET")
}

func TestAddressIsZero(t *testing.T) {
	assert.True(t, Address{}.IsZero())
	assert.False(t, Address{0x01}.IsZero())
}

func TestAddressStringRoundTrip(t *testing.T) {
	addr := Address{0xE8, 0xD4, 0xEA, 0xC4, 0x62, 0x00}
	assert.Equal(t, "e8:d4:ea:c4:62:00", addr.String())

	got, err := ParseAddress("e8:d4:ea:c4:62:00")
	require.NoError(t, err)
	assert.Equal(t, addr, got)
}

func TestParseAddressInvalid(t *testing.T) {
	_, err := ParseAddress("not-an-address")
	assert.Error(t, err)

	_, err = ParseAddress("e8:d4:ea:c4:62")
	assert.Error(t, err)
}

func TestResponseRoundTrip(t *testing.T) {
	var payload [OutputLen - 1]byte
	payload[0] = 0x01

	buf := EncodeResponse(Success, payload)
	require.Len(t, buf, OutputLen)

	got, err := DecodeResponse(buf[:])
	require.NoError(t, err)
	assert.Equal(t, Success, got.Code)
	assert.Equal(t, payload, got.Payload)
}

func TestDecodeResponseShortFrame(t *testing.T) {
	_, err := DecodeResponse(make([]byte, OutputLen-1))
	assert.ErrorIs(t, err, ErrShortFrame)
}

func TestDecodeResponseUnknownCode(t *testing.T) {
	buf := make([]byte, OutputLen)
	buf[0] = 0xFF

	_, err := DecodeResponse(buf)
	var unknown ErrUnknownOutputCode
	assert.ErrorAs(t, err, &unknown)
}
