package output

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingWriter struct {
	buf      bytes.Buffer
	failAt   int
	calls    int
	shortOne bool
}

func (w *failingWriter) Write(b []byte) (int, error) {
	w.calls++
	if w.calls == w.failAt {
		if w.shortOne {
			return w.buf.Write(b[:len(b)-1])
		}

		return 0, errors.New("fake write error")
	}

	return w.buf.Write(b)
}

func TestWriterConsume(t *testing.T) {
	var buf bytes.Buffer
	testee := &Writer{Writer: &buf}

	for i, s := range []string{"first ", "second ", "third"} {
		err := testee.Consume(context.Background(), Fragment{Index: i, Audio: []byte(s)})
		require.NoError(t, err)
	}

	require.Equal(t, "first second third", buf.String())
	require.Equal(t, int64(18), testee.Written, "written bytes")
}

func TestWriterConsumeError(t *testing.T) {
	w := &failingWriter{failAt: 2}
	testee := &Writer{Writer: w}

	err := testee.Consume(context.Background(), Fragment{Index: 0, Audio: []byte("first")})
	require.NoError(t, err)

	err = testee.Consume(context.Background(), Fragment{Index: 1, Audio: []byte("second")})
	require.EqualError(t, err, "write audio of chunk 1: fake write error")
	require.Equal(t, "first", w.buf.String(), "written data")
}

func TestWriterConsumeShortWrite(t *testing.T) {
	w := &failingWriter{failAt: 1, shortOne: true}
	testee := &Writer{Writer: w}

	err := testee.Consume(context.Background(), Fragment{Index: 0, Audio: []byte("first")})

	require.True(t, errors.Is(err, io.ErrShortWrite), "should return short write error but was: %v", err)
}
