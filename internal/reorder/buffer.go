// Package reorder restores the original order of fragments that arrive out of order.
package reorder

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/mgoltzsche/readaloud/internal/model"
)

type Fragment = model.Fragment

// Buffer holds fragments that arrived before their predecessors and releases them strictly in index order.
// A Buffer is not safe for concurrent use: it is owned by the goroutine that consumes the fragments.
type Buffer struct {
	pending map[int]Fragment
	next    int
}

func NewBuffer() *Buffer {
	return &Buffer{pending: map[int]Fragment{}}
}

// Push accepts an arriving fragment and returns the fragments that can be released now, in index order.
// The result is empty when the fragment arrived early and must wait for a predecessor.
// Fragments whose index has already been released or is already pending are dropped.
func (b *Buffer) Push(f Fragment) []Fragment {
	if f.Index < b.next {
		slog.Warn(fmt.Sprintf("dropping fragment %d since it has already been released", f.Index))
		return nil
	}

	if _, ok := b.pending[f.Index]; ok {
		slog.Warn(fmt.Sprintf("dropping duplicate fragment %d", f.Index))
		return nil
	}

	if f.Index != b.next {
		b.pending[f.Index] = f
		return nil
	}

	released := []Fragment{f}
	b.next++

	for {
		f, ok := b.pending[b.next]
		if !ok {
			break
		}

		delete(b.pending, b.next)
		released = append(released, f)
		b.next++
	}

	return released
}

// Next returns the index of the fragment that is released next.
func (b *Buffer) Next() int {
	return b.next
}

// Pending returns the sorted indices of the fragments waiting for a predecessor.
func (b *Buffer) Pending() []int {
	indices := make([]int, 0, len(b.pending))
	for i := range b.pending {
		indices = append(indices, i)
	}

	sort.Ints(indices)

	return indices
}
