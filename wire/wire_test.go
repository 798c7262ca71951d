package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadCString(t *testing.T) {
	buf := []byte("hello\x00world\x00")

	value, offset := ReadCString(buf, 0)
	require.Equal(t, "hello", value)
	require.Equal(t, 6, offset)

	value, offset = ReadCString(buf, offset)
	require.Equal(t, "world", value)
	require.Equal(t, 12, offset)
}

func TestReadCStringNoTerminator(t *testing.T) {
	buf := []byte("dangling")

	value, offset := ReadCString(buf, 0)
	require.Equal(t, "dangling", value)
	require.Equal(t, len(buf), offset)
}

func TestReadCStringPastEnd(t *testing.T) {
	value, offset := ReadCString([]byte("x"), 5)
	require.Empty(t, value)
	require.Equal(t, 5, offset)
}

func TestConcat(t *testing.T) {
	out := Concat([]byte{0xFF, 0xFF, 0xFF, 0xFF}, []byte{0x54}, []byte("abc"))
	require.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0x54, 'a', 'b', 'c'}, out)
}

func TestLittleEndianRoundTrip(t *testing.T) {
	buf := PutInt32(-1)
	require.Equal(t, int32(-1), ReadInt32(buf, 0))

	buf = PutUint32(0xFFFFFFFE)
	require.Equal(t, uint32(0xFFFFFFFE), ReadUint32(buf, 0))
}

func TestHasBytes(t *testing.T) {
	buf := make([]byte, 10)
	require.True(t, HasBytes(buf, 0, 10))
	require.True(t, HasBytes(buf, 6, 4))
	require.False(t, HasBytes(buf, 6, 5))
	require.False(t, HasBytes(buf, -1, 1))
}
