// Package output writes synthesized audio into a file.
package output

import (
	"context"
	"fmt"
	"io"

	"github.com/mgoltzsche/readaloud/internal/model"
)

type Fragment = model.Fragment

// Writer appends the audio of each consumed fragment to the underlying writer.
type Writer struct {
	Writer io.Writer
	// Written is the number of bytes written so far.
	Written int64
}

// Consume appends the fragment's audio.
// Any error is fatal since a partially written fragment corrupts the output.
func (w *Writer) Consume(_ context.Context, f Fragment) error {
	n, err := w.Writer.Write(f.Audio)
	w.Written += int64(n)
	if err != nil {
		return fmt.Errorf("write audio of chunk %d: %w", f.Index, err)
	}

	if n != len(f.Audio) {
		return fmt.Errorf("write audio of chunk %d: %w", f.Index, io.ErrShortWrite)
	}

	return nil
}
