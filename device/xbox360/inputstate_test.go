package xbox360

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputStateWireLayout(t *testing.T) {
	s := InputState{
		Buttons: ButtonA | ButtonLShoulder,
		LT:      0x10,
		RT:      0xff,
		LX:      0x0102,
		LY:      -2,
		RX:      0x7fff,
		RY:      -0x8000,
	}

	b, err := s.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, 14)

	assert.Equal(t, []byte{0x00, 0x11, 0x00, 0x00}, b[0:4])
	assert.Equal(t, byte(0x10), b[4])
	assert.Equal(t, byte(0xff), b[5])
	assert.Equal(t, []byte{0x02, 0x01}, b[6:8])
	assert.Equal(t, []byte{0xfe, 0xff}, b[8:10])

	var back InputState
	require.NoError(t, back.UnmarshalBinary(b))
	assert.Equal(t, s, back)
}

func TestUnmarshalShortBuffer(t *testing.T) {
	var s InputState
	assert.ErrorIs(t, s.UnmarshalBinary(make([]byte, 13)), io.ErrUnexpectedEOF)
}

func TestClampAxis(t *testing.T) {
	tests := []struct {
		in   float64
		want int16
	}{
		{0, 0},
		{16384, 16384},
		{-16384, -16384},
		{32766.9, 32766},
		{32767, 32767},
		{32768, 32767},
		{1e9, 32767},
		{-32768, -32768},
		{-32769, -32768},
		{-1e9, -32768},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampAxis(tt.in), "ClampAxis(%v)", tt.in)
	}
}
