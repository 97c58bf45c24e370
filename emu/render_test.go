package emu

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sidosc/hw/audio"
	"sidosc/hw/sid"
)

// captureSink records all queued samples.
type captureSink struct {
	samples []int16
	closed  bool
}

func (s *captureSink) Queue(samples []int16) error {
	s.samples = append(s.samples, samples...)
	return nil
}

func (s *captureSink) Close() error {
	s.closed = true
	return nil
}

type failingSink struct{}

var errSinkFull = errors.New("sink full")

func (failingSink) Queue([]int16) error { return errSinkFull }
func (failingSink) Close() error        { return nil }

func render(t *testing.T, cfg Config, d time.Duration) (*Renderer, []int16) {
	t.Helper()

	r, err := NewRenderer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var sink captureSink
	if err := r.Render(context.Background(), &sink, d); err != nil {
		t.Fatal(err)
	}
	return r, sink.samples
}

func polyConfig() Config {
	cfg := DefaultConfig()
	cfg.Chips = []ChipConfig{
		{
			Model: sid.MOS6581,
			Voices: []VoiceConfig{
				{FreqHz: 440, Waveforms: []string{"sawtooth"}, Pan: -0.5},
				{FreqHz: 660, Waveforms: []string{"pulse"}, PulseWidth: 0x400},
				{FreqHz: 110, Waveforms: []string{"triangle"}, Ring: true},
			},
		},
		{
			Model: sid.MOS8580,
			Voices: []VoiceConfig{
				{FreqHz: 2000, Waveforms: []string{"noise"}},
				{FreqHz: 330, Waveforms: []string{"sawtooth", "triangle"}, Sync: true},
			},
		},
	}
	return cfg
}

func TestRenderDeterministic(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() Config
	}{
		{"default", DefaultConfig},
		{"polyphony", polyConfig},
		{"batch", func() Config {
			cfg := polyConfig()
			cfg.General.Clocking = ClockingBatch
			cfg.General.BatchSize = 16
			return cfg
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r1, s1 := render(t, tt.cfg(), 100*time.Millisecond)
			r2, s2 := render(t, tt.cfg(), 100*time.Millisecond)

			if r1.Digest() != r2.Digest() {
				t.Errorf("digests differ: %#x != %#x", r1.Digest(), r2.Digest())
			}
			if diff := cmp.Diff(s1, s2); diff != "" {
				t.Errorf("samples differ (-first +second):\n%s", diff)
			}
		})
	}
}

func TestRenderCycles(t *testing.T) {
	r, samples := render(t, DefaultConfig(), 250*time.Millisecond)

	if want := r.CyclesFor(250 * time.Millisecond); r.Cycles() != want {
		t.Errorf("Cycles() = %d, want %d", r.Cycles(), want)
	}

	// Stereo samples at 48kHz, give or take the resampler delay.
	const want = 48000 / 4 * audio.AudioChannels
	if len(samples) < want*9/10 || len(samples) > want+4 {
		t.Errorf("got %d samples, want about %d", len(samples), want)
	}
	if len(samples)%2 != 0 {
		t.Errorf("got odd sample count %d", len(samples))
	}
}

func TestRenderNotSilent(t *testing.T) {
	for _, clocking := range []string{ClockingCycle, ClockingBatch} {
		t.Run(clocking, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.General.Clocking = clocking
			_, samples := render(t, cfg, 100*time.Millisecond)

			lo, hi := int16(0), int16(0)
			for _, s := range samples {
				lo, hi = min(lo, s), max(hi, s)
			}
			if int(hi)-int(lo) < 1000 {
				t.Errorf("output range [%d, %d] too narrow, want an audible sawtooth", lo, hi)
			}
		})
	}
}

func TestRenderSilentVoices(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chips = []ChipConfig{{Model: sid.MOS8580}}
	_, samples := render(t, cfg, 50*time.Millisecond)

	for i, s := range samples {
		if s != 0 {
			t.Fatalf("sample %d = %d, want silence", i, s)
		}
	}
}

func TestRenderPolyphonyDiffers(t *testing.T) {
	single := polyConfig()
	single.Chips = single.Chips[:1]

	r1, _ := render(t, single, 50*time.Millisecond)
	r2, _ := render(t, polyConfig(), 50*time.Millisecond)
	if r1.Digest() == r2.Digest() {
		t.Errorf("1 chip and 2 chips rendered the same output")
	}
}

func TestRenderCanceled(t *testing.T) {
	r, err := NewRenderer(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Render(ctx, audio.Discard, time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want %v", err, context.Canceled)
	}
	if r.Cycles() != 0 {
		t.Errorf("Cycles() = %d, want 0", r.Cycles())
	}
}

func TestRenderSinkError(t *testing.T) {
	r, err := NewRenderer(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Render(context.Background(), failingSink{}, time.Second); !errors.Is(err, errSinkFull) {
		t.Errorf("Render() error = %v, want %v", err, errSinkFull)
	}
}

func TestNewRendererInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Chips[0].Voices[0].Waveforms = []string{"sine"}
	if _, err := NewRenderer(cfg); err == nil {
		t.Errorf("NewRenderer() succeeded with an invalid waveform")
	}
}

func TestRendererProgramsChips(t *testing.T) {
	r, err := NewRenderer(polyConfig())
	if err != nil {
		t.Fatal(err)
	}
	if r.NumChips() != 2 {
		t.Fatalf("NumChips() = %d, want 2", r.NumChips())
	}

	o := r.Chip(0).Voice(0)
	if want := sid.FrequencyFromHz(440, sid.ClockPAL); o.Frequency() != want {
		t.Errorf("chip 0 voice 0 frequency = %#x, want %#x", o.Frequency(), want)
	}
	if got := r.Chip(0).Voice(1).PulseWidth(); got != 0x400 {
		t.Errorf("chip 0 voice 1 pulse width = %#x, want 0x400", got)
	}
	if got := r.Chip(1).Model(); got != sid.MOS8580 {
		t.Errorf("chip 1 model = %v, want %v", got, sid.MOS8580)
	}
}

func TestMixFrames(t *testing.T) {
	tests := []struct {
		name   string
		frames [][]int16
		want   []int16
	}{
		{"none", nil, nil},
		{"single", [][]int16{{1, -2, 3}}, []int16{1, -2, 3}},
		{"sum", [][]int16{{1, 2, 3, 4}, {10, 20, 30, 40}}, []int16{11, 22, 33, 44}},
		{"saturate", [][]int16{{30000, -30000}, {30000, -30000}}, []int16{32767, -32768}},
		{"shortest", [][]int16{{1, 1, 1}, {1}}, []int16{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mixFrames(nil, tt.frames)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mixFrames mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPlotVoices(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotVoices(&buf, polyConfig(), 1, 2000); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")) {
		t.Errorf("PlotVoices did not write a PNG image")
	}

	if err := PlotVoices(&buf, polyConfig(), 2, 2000); err == nil {
		t.Errorf("PlotVoices succeeded with an invalid chip index")
	}
	if err := PlotVoices(&buf, polyConfig(), 0, 0); err == nil {
		t.Errorf("PlotVoices succeeded with no cycles")
	}
}

func TestTraceVoices(t *testing.T) {
	chip := sid.New(sid.MOS8580)
	chip.WriteFrequency(0, 0x1000)
	chip.WriteControl(0, 0x20)

	traces := TraceVoices(chip, 512)
	for i, tr := range traces {
		if len(tr) != 512 {
			t.Fatalf("voice %d: got %d points, want 512", i, len(tr))
		}
	}
	// The sawtooth ramps up over the whole period.
	if traces[0][511].Y <= traces[0][0].Y {
		t.Errorf("sawtooth output not rising: %v -> %v", traces[0][0].Y, traces[0][511].Y)
	}
	if traces[1][0].Y != traces[1][511].Y {
		t.Errorf("silent voice output changed: %v -> %v", traces[1][0].Y, traces[1][511].Y)
	}
}

func TestRenderTrace(t *testing.T) {
	tests := []struct {
		name      string
		clocking  string
		wantLines int
	}{
		{"cycle", ClockingCycle, 985},
		{"batch", ClockingBatch, 16}, // 985 cycles in steps of 64
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.General.Clocking = tt.clocking

			r, err := NewRenderer(cfg)
			if err != nil {
				t.Fatal(err)
			}
			var trace bytes.Buffer
			r.SetTracer(sid.NewTracer(&trace))
			if err := r.Render(context.Background(), audio.Discard, time.Millisecond); err != nil {
				t.Fatal(err)
			}

			lines := strings.Split(strings.TrimSuffix(trace.String(), "\n"), "\n")
			if len(lines) != tt.wantLines {
				t.Fatalf("got %d trace lines, want %d", len(lines), tt.wantLines)
			}
			if last := lines[len(lines)-1]; !strings.HasSuffix(last, "CYC:985") {
				t.Errorf("last trace line = %q, want cycle 985", last)
			}
		})
	}
}

// firstHigh returns the index of the first left sample above level.
func firstHigh(samples []int16, level int16) int {
	for i := 0; i < len(samples); i += 2 {
		if samples[i] > level {
			return i / 2
		}
	}
	return -1
}

func TestRenderBatchTiming(t *testing.T) {
	// The pulse goes high on the cycle the accumulator reaches 0x800000,
	// around cycle 2500. In batch mode, the output can't be heard before the
	// cycle that produced it, nor later than the end of its batch.
	const batch = 1000

	pulseEdge := func(clocking string) int {
		cfg := DefaultConfig()
		cfg.General.Clocking = clocking
		cfg.General.BatchSize = batch
		cfg.Chips[0].Voices[0] = VoiceConfig{Waveforms: []string{"pulse"}, PulseWidth: 0x800}

		r, err := NewRenderer(cfg)
		if err != nil {
			t.Fatal(err)
		}
		r.Chip(0).WriteFrequency(0, 3356)

		var sink captureSink
		if err := r.Render(context.Background(), &sink, 10*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		edge := firstHigh(sink.samples, 1500)
		if edge < 0 {
			t.Fatalf("%s: pulse never went high", clocking)
		}
		return edge
	}

	cycle := pulseEdge(ClockingCycle)
	batched := pulseEdge(ClockingBatch)

	batchSamples := batch * int(DefaultConfig().Audio.SampleRate) / sid.ClockPAL
	if batched < cycle || batched > cycle+batchSamples+2 {
		t.Errorf("batch mode pulse edge at sample %d, want within [%d, %d]",
			batched, cycle, cycle+batchSamples+2)
	}
}
