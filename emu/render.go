package emu

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash"
	"golang.org/x/sync/errgroup"

	"sidosc/emu/log"
	"sidosc/hw/audio"
	"sidosc/hw/hwdefs"
	"sidosc/hw/sid"
)

// A Renderer runs a set of chips in lockstep and mixes their audio output.
type Renderer struct {
	clock       uint32
	frameCycles uint32
	runners     []*chipRunner

	cycles atomic.Uint64
	digest hash.Hash64
	mix    []int16
	raw    []byte
}

type chipRunner struct {
	chip  *sid.Chip
	mixer *audio.Mixer
	batch int32 // 0 for single cycle clocking
	out   []int16

	tracer *sid.Tracer
	cycle  uint64
}

// NewRenderer creates the chips described in cfg and programs their voices.
func NewRenderer(cfg Config) (*Renderer, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	clock, _ := cfg.General.ClockRate()

	r := &Renderer{
		clock:       clock,
		frameCycles: min(clock/60, audio.CycleLength),
		digest:      xxhash.New(),
	}
	for _, cc := range cfg.Chips {
		cr := &chipRunner{
			chip:  sid.New(cc.Model),
			mixer: audio.NewMixer(clock, cfg.Audio.SampleRate),
		}
		if cfg.General.Clocking == ClockingBatch {
			cr.batch = cfg.General.BatchSize
		}
		cr.chip.SetGain(float32(cfg.Audio.Gain))
		cr.mixer.SetGain(cfg.Audio.Gain)
		if err := cr.program(cc, clock); err != nil {
			return nil, err
		}
		r.runners = append(r.runners, cr)
	}
	return r, nil
}

func (cr *chipRunner) program(cc ChipConfig, clock uint32) error {
	for i := range hwdefs.NumVoices {
		if i >= len(cc.Voices) {
			cr.mixer.SetVolume(i, 0)
			continue
		}
		v := cc.Voices[i]
		ctrl, err := v.Control()
		if err != nil {
			return fmt.Errorf("voice %d: %w", i, err)
		}
		cr.chip.WriteFrequency(i, sid.FrequencyFromHz(v.FreqHz, clock))
		cr.chip.WritePulseWidth(i, v.PulseWidth)
		cr.chip.WriteControl(i, ctrl)
		cr.mixer.SetVolume(i, v.VolumeOrDefault())
		cr.mixer.SetPanning(i, v.Pan)

		log.ModEmu.InfoZ("voice programmed").
			Stringer("model", cc.Model).
			Int("voice", i).
			Float("hz", v.FreqHz).
			Hex8("control", ctrl).
			End()
	}
	return nil
}

// runFrame clocks the chip for a frame of the given length and returns the
// resulting interleaved stereo samples.
func (cr *chipRunner) runFrame(cycles uint32) ([]int16, error) {
	if cr.batch == 0 {
		for t := range cycles {
			cr.chip.Clock()
			if err := cr.step(t, 1); err != nil {
				return nil, err
			}
		}
	} else {
		for t := uint32(0); t < cycles; t += uint32(cr.batch) {
			n := min(uint32(cr.batch), cycles-t)
			cr.chip.ClockCycles(int32(n))
			if err := cr.step(t, n); err != nil {
				return nil, err
			}
		}
	}
	cr.mixer.EndFrame(cycles)
	cr.out = append(cr.out[:0], cr.mixer.ReadSamples()...)
	return cr.out, nil
}

// step records the voice outputs after a step of n cycles starting at frame
// time t. Outputs are stamped on the last cycle of the step.
func (cr *chipRunner) step(t, n uint32) error {
	stamp := t + n - 1
	for i := range hwdefs.NumVoices {
		cr.mixer.SetOutput(i, stamp, int16(cr.chip.VoiceOutput(i)))
	}
	cr.cycle += uint64(n)
	if cr.tracer != nil {
		if err := cr.tracer.Trace(cr.cycle, cr.chip); err != nil {
			return fmt.Errorf("trace: %w", err)
		}
	}
	return nil
}

func (r *Renderer) ClockRate() uint32 { return r.clock }

// SetTracer sets the tracer receiving the state of the first chip after each
// clock step. A nil tracer disables tracing.
func (r *Renderer) SetTracer(t *sid.Tracer) { r.runners[0].tracer = t }

// Chip returns the i-th chip.
func (r *Renderer) Chip(i int) *sid.Chip { return r.runners[i].chip }

func (r *Renderer) NumChips() int { return len(r.runners) }

// Cycles returns the number of cycles run so far.
func (r *Renderer) Cycles() uint64 { return r.cycles.Load() }

// Digest returns the xxhash of all the samples rendered so far.
func (r *Renderer) Digest() uint64 { return r.digest.Sum64() }

func (r *Renderer) AddLogContext(z *log.EntryZ) {
	z.Uint64("cycle", r.cycles.Load())
}

// CyclesFor returns the number of cycles in d.
func (r *Renderer) CyclesFor(d time.Duration) uint64 {
	return uint64(d.Seconds() * float64(r.clock))
}

// Render runs all chips for the given duration and queues the mixed samples
// to sink. Chips run in parallel, one goroutine each per frame.
func (r *Renderer) Render(ctx context.Context, sink audio.Sink, d time.Duration) error {
	log.AddContext(r)
	defer log.RemoveContext(r)

	total := r.CyclesFor(d)
	log.ModEmu.InfoZ("render start").
		Int("chips", len(r.runners)).
		Uint64("cycles", total).
		End()

	for done := uint64(0); done < total; {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame := uint32(min(uint64(r.frameCycles), total-done))
		if err := r.RunFrame(ctx, sink, frame); err != nil {
			return err
		}
		done += uint64(frame)
	}

	log.ModEmu.InfoZ("render done").
		Hex32("digest", uint32(r.Digest())).
		End()
	return nil
}

// RunFrame runs all chips for the given number of cycles and queues the
// mixed samples to sink.
func (r *Renderer) RunFrame(ctx context.Context, sink audio.Sink, cycles uint32) error {
	g, _ := errgroup.WithContext(ctx)
	frames := make([][]int16, len(r.runners))
	for i, cr := range r.runners {
		g.Go(func() error {
			out, err := cr.runFrame(cycles)
			frames[i] = out
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.cycles.Add(uint64(cycles))

	r.mix = mixFrames(r.mix[:0], frames)
	r.raw = r.raw[:0]
	for _, s := range r.mix {
		r.raw = binary.LittleEndian.AppendUint16(r.raw, uint16(s))
	}
	r.digest.Write(r.raw)

	if err := sink.Queue(r.mix); err != nil {
		return fmt.Errorf("queue samples: %w", err)
	}
	return nil
}

// mixFrames sums the frames sample by sample, saturating at the 16-bit
// range. The result is as long as the shortest frame.
func mixFrames(dst []int16, frames [][]int16) []int16 {
	if len(frames) == 0 {
		return dst
	}
	n := len(frames[0])
	for _, f := range frames[1:] {
		n = min(n, len(f))
	}
	for i := range n {
		var sum int32
		for _, f := range frames {
			sum += int32(f[i])
		}
		dst = append(dst, int16(min(max(sum, -32768), 32767)))
	}
	return dst
}
