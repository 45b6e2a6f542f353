package model

import "errors"

// ErrFragmentSkipped marks a sink failure that only affects a single fragment.
// The pipeline records the fragment as skipped and continues with the next one.
var ErrFragmentSkipped = errors.New("fragment skipped")

// Chunk is a bounded slice of the input text.
// Its index is assigned when the text is split and identifies the chunk for the rest of the run.
type Chunk struct {
	Index int
	Text  string
}

// Fragment holds the synthesized audio of the chunk with the same index.
type Fragment struct {
	Index int
	Audio []byte
}

type SynthesisOptions struct {
	Model  string
	Voice  string
	Format string
	Speed  float64
}
