package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkobari/skmeterd/internal/testutil"
)

func TestBufferFill(t *testing.T) {
	t.Parallel()

	t.Run("empty read", func(t *testing.T) {
		b := newBuffer(16)
		p := testutil.NewScriptPort([]byte(""))

		n, err := b.fill(p)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		assert.False(t, b.hasLeft())
	})

	t.Run("single chunk", func(t *testing.T) {
		b := newBuffer(8)
		p := testutil.NewScriptPort([]byte("abcd"), []byte("efgh"))

		n, err := b.fill(p)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		assert.True(t, b.hasLeft())
	})

	t.Run("fill with data left is an error", func(t *testing.T) {
		b := newBuffer(8)
		p := testutil.NewScriptPort([]byte("abcd"), []byte("efgh"))

		_, err := b.fill(p)
		require.NoError(t, err)

		_, err = b.fill(p)
		assert.ErrorIs(t, err, errDataLeft)
	})
}

func TestBufferReadToLF(t *testing.T) {
	t.Parallel()

	t.Run("nil when empty", func(t *testing.T) {
		b := newBuffer(8)
		assert.Nil(t, b.readToLF())
	})

	t.Run("nil without LF", func(t *testing.T) {
		b := newBuffer(8)
		p := testutil.NewScriptPort([]byte("abcdefgh"))
		_, err := b.fill(p)
		require.NoError(t, err)

		assert.Nil(t, b.readToLF())
	})

	t.Run("reads one line at a time", func(t *testing.T) {
		b := newBuffer(16)
		p := testutil.NewScriptPort([]byte("abc\r\ndefg\r\nijkl"))
		_, err := b.fill(p)
		require.NoError(t, err)

		assert.Equal(t, []byte("abc\r\n"), b.readToLF())
		assert.Equal(t, []byte("defg\r\n"), b.readToLF())
		assert.Nil(t, b.readToLF())
	})

	t.Run("consecutive CRLF yields empty line", func(t *testing.T) {
		b := newBuffer(16)
		p := testutil.NewScriptPort([]byte("abc\r\n\r\n"))
		_, err := b.fill(p)
		require.NoError(t, err)

		assert.Equal(t, []byte("abc\r\n"), b.readToLF())
		assert.Equal(t, []byte("\r\n"), b.readToLF())
		assert.Nil(t, b.readToLF())
	})

	t.Run("refill after draining", func(t *testing.T) {
		b := newBuffer(16)
		p := testutil.NewScriptPort([]byte("abc\r\ndef\r\n"), []byte("123\r\n"))
		_, err := b.fill(p)
		require.NoError(t, err)

		assert.Equal(t, []byte("abc\r\n"), b.readToLF())
		assert.Equal(t, []byte("def\r\n"), b.readToLF())
		assert.Nil(t, b.readToLF())

		_, err = b.fill(p)
		require.NoError(t, err)
		assert.Equal(t, []byte("123\r\n"), b.readToLF())
	})
}

func TestBufferRemain(t *testing.T) {
	t.Parallel()

	t.Run("nil when empty", func(t *testing.T) {
		b := newBuffer(8)
		assert.Nil(t, b.remain())
	})

	t.Run("drains everything left", func(t *testing.T) {
		b := newBuffer(16)
		p := testutil.NewScriptPort([]byte("abc\r\ndef"))
		_, err := b.fill(p)
		require.NoError(t, err)

		assert.Equal(t, []byte("abc\r\n"), b.readToLF())
		assert.Equal(t, []byte("def"), b.remain())
		assert.Nil(t, b.remain())
	})
}
