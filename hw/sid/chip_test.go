package sid

import (
	"testing"
)

func TestSyncSource(t *testing.T) {
	want := []int{2, 0, 1}
	for i, w := range want {
		if got := syncSource(i); got != w {
			t.Errorf("syncSource(%d) = %d, want %d", i, got, w)
		}
		if got := syncDest(w); got != i {
			t.Errorf("syncDest(%d) = %d, want %d", w, got, i)
		}
	}
}

func TestHardSync(t *testing.T) {
	tests := []struct {
		name  string
		sync0 bool // voice 0 synced by voice 2
		want1 uint32
	}{
		{name: "sync", sync0: false, want1: 0},
		{name: "cascade", sync0: true, want1: 0x123466},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(MOS6581)
			if tt.sync0 {
				c.WriteControl(0, 0x02)
			}
			c.WriteControl(1, 0x02)

			// Voices 0 and 2 MSB go high on next cycle.
			c.WriteFrequency(0, 1)
			c.WriteFrequency(1, 0x10)
			c.WriteFrequency(2, 1)
			c.voices[0].accumulator = 0x7fffff
			c.voices[1].accumulator = 0x123456
			c.voices[2].accumulator = 0x7fffff

			c.Clock()

			if !c.voices[0].MSBRising() || !c.voices[2].MSBRising() {
				t.Fatal("MSB didn't rise")
			}
			wantAcc(t, c.Voice(1), tt.want1)
			if tt.sync0 {
				wantAcc(t, c.Voice(0), 0)
			} else {
				wantAcc(t, c.Voice(0), 0x800000)
			}
			wantAcc(t, c.Voice(2), 0x800000)
		})
	}
}

func TestHardSyncPeriod(t *testing.T) {
	// Voice 1 runs slower than its source: it never reaches its own MSB.
	c := New(MOS8580)
	c.WriteFrequency(0, 0x4000)
	c.WriteFrequency(1, 0x1000)
	c.WriteControl(1, 0x22)

	for range 10000 {
		c.Clock()
		if c.Voice(0).MSBRising() {
			wantAcc(t, c.Voice(1), 0)
		}
		if acc := c.Voice(1).Accumulator(); acc >= 0x800000 {
			t.Fatalf("synced accumulator reached %06x", acc)
		}
	}
}

func TestClockCyclesSync(t *testing.T) {
	setup := func() *Chip {
		c := New(MOS6581)
		c.WriteFrequency(0, 0x1234)
		c.WriteFrequency(1, 0x2345)
		c.WriteFrequency(2, 0x0567)
		c.WriteControl(0, 0x10)
		c.WriteControl(1, 0x12)
		c.WriteControl(2, 0x12)
		return c
	}

	const n = 100000
	single := setup()
	batch := setup()
	steps := setup()

	for range n {
		single.Clock()
	}
	batch.ClockCycles(n)
	for range n / 40 {
		steps.ClockCycles(40)
	}

	for i := range 3 {
		want := single.Voice(i).Accumulator()
		if got := batch.Voice(i).Accumulator(); got != want {
			t.Errorf("voice %d: batch accumulator = %06x, want %06x", i, got, want)
		}
		if got := steps.Voice(i).Accumulator(); got != want {
			t.Errorf("voice %d: steps accumulator = %06x, want %06x", i, got, want)
		}
		if got := batch.Voice(i).Output(); got != single.Voice(i).Output() {
			t.Errorf("voice %d: batch output = %03x, want %03x", i, got, single.Voice(i).Output())
		}
	}
}

func TestClockCyclesZero(t *testing.T) {
	c := New(MOS6581)
	c.WriteFrequency(0, 0x1234)
	c.WriteControl(0, 0x20)
	before := c.State()
	c.ClockCycles(0)
	c.ClockCycles(-10)
	if *c.State() != *before {
		t.Error("state changed")
	}
}

func TestVoiceOutput(t *testing.T) {
	for _, model := range []ChipModel{MOS6581, MOS8580} {
		c := New(model)
		for i := range 3 {
			want := int(DACOutput(model, 0)) - params[model].waveZero
			if got := c.VoiceOutput(i); got != want {
				t.Errorf("%v voice %d: output = %d, want %d", model, i, got, want)
			}
		}
	}
}

func TestVoiceOutputModels(t *testing.T) {
	// The digital output doesn't depend on the model, the analog output
	// does.
	c6581 := New(MOS6581)
	c8580 := New(MOS8580)
	for _, c := range []*Chip{c6581, c8580} {
		c.WriteFrequency(0, 0x7ff000)
		c.WriteControl(0, 0x20)
		c.Clock()
	}

	d1, d2 := c6581.Voice(0).Output(), c8580.Voice(0).Output()
	if d1 != d2 || d1 != 0x7ff {
		t.Fatalf("digital outputs: %03x, %03x, want 7ff", d1, d2)
	}
	a1, a2 := c6581.VoiceOutput(0), c8580.VoiceOutput(0)
	if a1 == a2 {
		t.Errorf("analog outputs should differ, got %d", a1)
	}
	if want := int(DACOutput(MOS6581, 0x7ff)) - 0x380; a1 != want {
		t.Errorf("6581 output = %d, want %d", a1, want)
	}
	if want := int(DACOutput(MOS8580, 0x7ff)) - 0x800; a2 != want {
		t.Errorf("8580 output = %d, want %d", a2, want)
	}
}

func TestProduceSample(t *testing.T) {
	c := New(MOS8580)

	// No waveform: all voices at DAC zero.
	want := float32(3*(int(DACOutput(MOS8580, 0))-0x800)) / 3 / 32767
	if got := c.ProduceSample(); got != want {
		t.Errorf("silent sample = %v, want %v", got, want)
	}

	c.SetGain(0.5)
	c.WriteFrequency(0, 0x2000)
	c.WritePulseWidth(0, 0x800)
	c.WriteControl(0, 0x40)

	lo, hi := float32(1), float32(-1)
	for range 5000 {
		s := c.ProduceSample()
		lo = min(lo, s)
		hi = max(hi, s)
	}
	if hi-lo < 0.01 {
		t.Errorf("pulse wave amplitude too small: [%v, %v]", lo, hi)
	}
	if hi > 0.5 || lo < -0.5 {
		t.Errorf("samples out of gain range: [%v, %v]", lo, hi)
	}
}
