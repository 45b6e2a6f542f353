// Package pipeline synthesizes chunks concurrently and hands the audio to a sink in the original order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mgoltzsche/readaloud/internal/model"
	"github.com/mgoltzsche/readaloud/internal/reorder"
	"github.com/mgoltzsche/readaloud/internal/tts"
)

type Chunk = model.Chunk
type Fragment = model.Fragment

// Sink consumes the synthesized fragments in index order.
// An error wrapping model.ErrFragmentSkipped skips the fragment, any other error aborts the run.
type Sink interface {
	Consume(ctx context.Context, f Fragment) error
}

// Outcome summarizes a run.
type Outcome struct {
	RunID    string
	Total    int
	Released int
	// Failed lists the chunks that could not be synthesized.
	Failed []int
	// Skipped lists the released chunks the sink could not process.
	Skipped []int
	// Stranded lists the chunks that were synthesized but never released since a predecessor is missing.
	Stranded []int
}

// Complete returns true if every chunk has been consumed successfully.
func (o Outcome) Complete() bool {
	return o.Released == o.Total && len(o.Skipped) == 0
}

type Runner struct {
	Service         tts.Service
	Options         tts.Options
	ChannelCapacity int
	MaxConcurrency  int
}

// Run synthesizes the given chunks and passes the audio to the sink in strictly increasing index order.
// When a chunk cannot be synthesized, none of the subsequent chunks are passed to the sink.
// The returned error is non-nil when the sink failed fatally or the context got cancelled.
func (r *Runner) Run(ctx context.Context, chunks []Chunk, sink Sink) (Outcome, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := uuid.NewString()
	logger := slog.With("run", runID)
	failures := &failureLog{logger: logger}
	dispatcher := &tts.Dispatcher{
		Service:         r.Service,
		Options:         r.Options,
		ChannelCapacity: r.ChannelCapacity,
		MaxConcurrency:  r.MaxConcurrency,
		Failures:        failures,
	}
	outcome := Outcome{
		RunID: runID,
		Total: len(chunks),
	}

	logger.Info(fmt.Sprintf("synthesizing %d chunks", len(chunks)))

	fragments := dispatcher.Dispatch(ctx, chunks)
	buffer := reorder.NewBuffer()

	// abort stops the run. The unconsumed fragments have already been released by the buffer and are reported as stranded.
	abort := func(err error, unconsumed []Fragment) (Outcome, error) {
		cancel()
		go func() {
			for range fragments {
			}
		}()
		outcome.Failed = failures.Indices()
		outcome.Stranded = buffer.Pending()
		for _, f := range unconsumed {
			outcome.Stranded = append(outcome.Stranded, f.Index)
		}
		sort.Ints(outcome.Stranded)
		return outcome, err
	}

	for {
		select {
		case f, ok := <-fragments:
			if !ok {
				if err := ctx.Err(); err != nil {
					return abort(err, nil)
				}

				outcome.Failed = failures.Indices()
				outcome.Stranded = buffer.Pending()
				logOutcome(logger, outcome)

				return outcome, nil
			}

			logger.Debug(fmt.Sprintf("received chunk %d", f.Index))

			batch := buffer.Push(f)
			for i, released := range batch {
				outcome.Released++

				err := sink.Consume(ctx, released)
				if err != nil {
					if errors.Is(err, model.ErrFragmentSkipped) {
						logger.Warn(fmt.Sprintf("skipping chunk %d", released.Index), "err", err)
						outcome.Skipped = append(outcome.Skipped, released.Index)
						continue
					}

					logger.Error(fmt.Sprintf("aborting after chunk %d", released.Index), "err", err)

					return abort(err, batch[i+1:])
				}
			}
		case <-ctx.Done():
			return abort(ctx.Err(), nil)
		}
	}
}

func logOutcome(logger *slog.Logger, o Outcome) {
	if len(o.Failed) > 0 || len(o.Stranded) > 0 {
		logger.Warn(fmt.Sprintf("partial output: output ends after %d of %d chunks since chunk %d is missing", o.Released, o.Total, o.Released),
			"failed", o.Failed, "dropped", o.Stranded)

		return
	}

	if len(o.Skipped) > 0 {
		logger.Warn(fmt.Sprintf("partial output: skipped %d of %d chunks", len(o.Skipped), o.Total), "skipped", o.Skipped)
		return
	}

	logger.Info(fmt.Sprintf("processed %d chunks", o.Released))
}

// failureLog logs and records chunks that could not be synthesized.
type failureLog struct {
	logger  *slog.Logger
	mutex   sync.Mutex
	indices []int
}

func (l *failureLog) ReportFailure(chunk Chunk, err error) {
	l.mutex.Lock()
	l.indices = append(l.indices, chunk.Index)
	l.mutex.Unlock()

	if errors.Is(err, context.Canceled) {
		l.logger.Debug(fmt.Sprintf("chunk %d cancelled", chunk.Index))
		return
	}

	l.logger.Error(fmt.Sprintf("failed to synthesize chunk %d: %s", chunk.Index, err), "text", chunk.Text)
}

func (l *failureLog) Indices() []int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	indices := make([]int, len(l.indices))
	copy(indices, l.indices)
	sort.Ints(indices)

	return indices
}
