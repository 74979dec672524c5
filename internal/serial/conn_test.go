package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkobari/skmeterd/internal/testutil"
)

func newTestConn(chunks ...[]byte) (Conn, *testutil.ScriptPort) {
	p := testutil.NewScriptPort(chunks...)
	return NewConn(p, nil), p
}

func TestReadLine(t *testing.T) {
	t.Parallel()

	t.Run("single line", func(t *testing.T) {
		c, _ := newTestConn([]byte("123\r\n456\r\n789\r\n"))

		line, err := c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "123", line)
	})

	t.Run("multiple lines", func(t *testing.T) {
		c, _ := newTestConn([]byte("123\r\n456\r\n789\r\n"))

		for _, want := range []string{"123", "456", "789"} {
			line, err := c.ReadLine()
			require.NoError(t, err)
			assert.Equal(t, want, line)
		}
	})

	t.Run("skips zero-byte reads", func(t *testing.T) {
		// Empty chunks are what a port read timeout looks like.
		c, _ := newTestConn([]byte(""), []byte(""), []byte("123\r\n456\r\n"))

		line, err := c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "123", line)

		line, err = c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "456", line)
	})

	t.Run("line split across reads", func(t *testing.T) {
		c, _ := newTestConn([]byte("12"), []byte("3\r\n456\r\n"))

		line, err := c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "123", line)

		line, err = c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "456", line)
	})

	t.Run("byte at a time", func(t *testing.T) {
		c, _ := newTestConn([]byte("1"), []byte("2"), []byte("3\r\n456\r\n"))

		line, err := c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "123", line)
	})

	t.Run("CRLF split across reads", func(t *testing.T) {
		c, _ := newTestConn([]byte("12"), []byte("3\r"), []byte("\n456"), []byte("\r\n"))

		line, err := c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "123", line)

		line, err = c.ReadLine()
		require.NoError(t, err)
		assert.Equal(t, "456", line)
	})

	t.Run("propagates read errors", func(t *testing.T) {
		c, _ := newTestConn() // empty script: first read is io.EOF

		_, err := c.ReadLine()
		assert.Error(t, err)
	})
}

func TestWriteLine(t *testing.T) {
	t.Parallel()

	t.Run("appends CRLF", func(t *testing.T) {
		c, p := newTestConn()
		require.NoError(t, c.WriteLine("abc"))
		assert.Equal(t, []byte("abc\r\n"), p.Written())
	})

	t.Run("sequential writes", func(t *testing.T) {
		c, p := newTestConn()
		require.NoError(t, c.WriteLine("abc"))
		require.NoError(t, c.WriteLine("def"))
		require.NoError(t, c.WriteLine("ghi"))
		assert.Equal(t, []byte("abc\r\ndef\r\nghi\r\n"), p.Written())
	})
}

func TestWriteRaw(t *testing.T) {
	t.Parallel()

	c, p := newTestConn()
	require.NoError(t, c.Write([]byte{0x10, 0x81, 0x00, 0x01}))
	require.NoError(t, c.WriteLine(""))
	assert.Equal(t, []byte{0x10, 0x81, 0x00, 0x01, '\r', '\n'}, p.Written())
}

func TestTrimLineEnd(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"crlf only", "\r\n", ""},
		{"multiple crlf only", "\r\n\r\n", ""},
		{"ends with lf", "foobar\n", "foobar"},
		{"ends with crlf", "foobar\r\n", "foobar"},
		{"inner lf kept", "foo\nbar", "foo\nbar"},
		{"inner kept trailing trimmed", "foo\r\nbar\r\n", "foo\r\nbar"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, string(trimLineEnd([]byte(tc.in))))
		})
	}
}
