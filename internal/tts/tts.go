package tts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/mgoltzsche/readaloud/internal/model"
)

type Chunk = model.Chunk
type Fragment = model.Fragment

// DefaultChannelCapacity is the number of synthesized fragments that may be buffered before the consumer picks them up.
const DefaultChannelCapacity = 32

type Service interface {
	Synthesize(ctx context.Context, text string, opts Options) ([]byte, error)
}

// FailureReporter is notified about chunks that could not be synthesized.
// It is called concurrently and must not block.
type FailureReporter interface {
	ReportFailure(chunk Chunk, err error)
}

// FailureReporterFunc adapts a function to the FailureReporter interface.
type FailureReporterFunc func(chunk Chunk, err error)

func (f FailureReporterFunc) ReportFailure(chunk Chunk, err error) {
	f(chunk, err)
}

// Dispatcher synthesizes chunks concurrently.
type Dispatcher struct {
	Service         Service
	Options         Options
	ChannelCapacity int
	// MaxConcurrency limits the number of concurrent requests. 0 means unlimited.
	MaxConcurrency int
	Failures       FailureReporter
}

// Dispatch starts one synthesis task per chunk and returns the channel the fragments are published to in completion order.
// A chunk that fails is reported and never published; there is no retry.
// The channel is closed once every task finished.
func (d *Dispatcher) Dispatch(ctx context.Context, chunks []Chunk) <-chan Fragment {
	capacity := d.ChannelCapacity
	if capacity < 1 {
		capacity = DefaultChannelCapacity
	}

	var sem *semaphore.Weighted
	if d.MaxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(d.MaxConcurrency))
	}

	ch := make(chan Fragment, capacity)
	wg := &sync.WaitGroup{}

	wg.Add(len(chunks))

	for _, chunk := range chunks {
		go func() {
			defer wg.Done()

			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					d.reportFailure(chunk, err)
					return
				}
				defer sem.Release(1)
			}

			slog.Debug(fmt.Sprintf("synthesizing chunk %d (%d bytes)", chunk.Index, len(chunk.Text)))

			b, err := d.Service.Synthesize(ctx, chunk.Text, d.Options)
			if err != nil {
				d.reportFailure(chunk, err)
				return
			}

			select {
			case ch <- Fragment{Index: chunk.Index, Audio: b}:
			case <-ctx.Done():
				d.reportFailure(chunk, ctx.Err())
			}
		}()
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	return ch
}

func (d *Dispatcher) reportFailure(chunk Chunk, err error) {
	if d.Failures == nil {
		slog.Error(fmt.Sprintf("synthesize chunk %d: %s", chunk.Index, err), "text", chunk.Text)
		return
	}

	d.Failures.ReportFailure(chunk, err)
}
