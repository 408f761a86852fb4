// Package xbox360 provides the Xbox 360 controller input state and its wire encoding.
package xbox360

import (
	"encoding/binary"
	"io"
)

// AxisMax is the magnitude of the most negative int16 stick value. Projected
// stick coordinates are scaled by this and clamped into int16 range.
const AxisMax = 32768.0

// InputState represents the controller state streamed to the virtual bus.
// Values are more or less XInput's C API.
type InputState struct {
	// Button bitfield (lower 16 bits used typically), higher bits reserved
	Buttons uint32
	// Triggers: 0-255
	LT, RT uint8
	// Sticks: signed 16-bit little endian values
	LX, LY int16
	RX, RY int16
}

// wireSize is the on-wire encoding length in bytes.
const wireSize = 14

// MarshalBinary encodes InputState to 14 bytes:
// buttons u32, LT u8, RT u8, then LX/LY/RX/RY as little-endian int16.
func (x *InputState) MarshalBinary() ([]byte, error) {
	b := make([]byte, wireSize)
	binary.LittleEndian.PutUint32(b[0:4], x.Buttons)
	b[4] = x.LT
	b[5] = x.RT
	binary.LittleEndian.PutUint16(b[6:8], uint16(x.LX))
	binary.LittleEndian.PutUint16(b[8:10], uint16(x.LY))
	binary.LittleEndian.PutUint16(b[10:12], uint16(x.RX))
	binary.LittleEndian.PutUint16(b[12:14], uint16(x.RY))
	return b, nil
}

// UnmarshalBinary decodes 14 bytes into InputState.
func (x *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < wireSize {
		return io.ErrUnexpectedEOF
	}
	x.Buttons = binary.LittleEndian.Uint32(data[0:4])
	x.LT = data[4]
	x.RT = data[5]
	x.LX = int16(binary.LittleEndian.Uint16(data[6:8]))
	x.LY = int16(binary.LittleEndian.Uint16(data[8:10]))
	x.RX = int16(binary.LittleEndian.Uint16(data[10:12]))
	x.RY = int16(binary.LittleEndian.Uint16(data[12:14]))
	return nil
}

// ClampAxis converts a scaled float axis value to int16, saturating at the
// representable bounds instead of wrapping.
func ClampAxis(v float64) int16 {
	if v >= 32767 {
		return 32767
	}
	if v <= -32768 {
		return -32768
	}
	return int16(v)
}
