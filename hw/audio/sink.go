package audio

import (
	"unsafe"
)

// Sink consumes interleaved 16-bit stereo samples.
type Sink interface {
	Queue(samples []int16) error
	Close() error
}

// asBytes returns the little-endian byte view of the samples.
func asBytes(samples []int16) []byte {
	if len(samples) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*2)
}

// Discard is a Sink that drops all samples.
var Discard Sink = discard{}

type discard struct{}

func (discard) Queue([]int16) error { return nil }
func (discard) Close() error        { return nil }
