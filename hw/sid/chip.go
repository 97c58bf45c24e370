package sid

import (
	"fmt"

	"sidosc/emu/log"
	"sidosc/hw/hwdefs"
	"sidosc/hw/hwio"
)

// Chip is the oscillator section of a SID: three waveform generators,
// connected in a ring for hard sync and ring modulation, each driving a DAC.
//
// Voice i is synced/ring-modulated by voice (i+2)%3, that is 0 by 2, 1 by 0
// and 2 by 1.
type Chip struct {
	model  ChipModel
	voices [hwdefs.NumVoices]Oscillator

	dac      *dacTable
	waveZero int
	gain     float32

	// Register file, as seen from the CPU.
	Bus   *hwio.Table
	regs  [hwdefs.NumVoices]voiceRegs
	OSC3R hwio.Reg8 `hwio:"offset=0x1B,readonly,rcb=ReadOSC3,pcb=ReadOSC3"`
}

// New returns a chip of the given model, in reset state.
func New(model ChipModel) *Chip {
	if model >= numModels {
		panic(fmt.Sprintf("invalid chip model %d", model))
	}
	c := &Chip{
		model:    model,
		dac:      &dacTables()[model],
		waveZero: params[model].waveZero,
		gain:     1,
	}
	for i := range c.voices {
		c.voices[i].init(model)
	}
	c.initBus()

	log.ModEmu.InfoZ("new chip").Stringer("model", model).End()
	return c
}

func (c *Chip) Model() ChipModel { return c.model }

// Reset resets the 3 oscillators and the register file.
func (c *Chip) Reset() {
	for i := range c.voices {
		c.voices[i].Reset()
		c.regs[i].reset()
	}
	c.OSC3R.Value = 0
}

// SetGain sets the scale factor applied by ProduceSample.
func (c *Chip) SetGain(gain float32) { c.gain = gain }
func (c *Chip) Gain() float32        { return c.gain }

// Voice gives access to the oscillator of voice i.
func (c *Chip) Voice(i int) *Oscillator { return &c.voices[i] }

func syncSource(i int) int { return (i + 2) % hwdefs.NumVoices }
func syncDest(i int) int   { return (i + 1) % hwdefs.NumVoices }

func (c *Chip) WriteFrequency(voice int, freq uint32) {
	c.voices[voice].WriteFrequency(freq)
}

func (c *Chip) WritePulseWidth(voice int, pw uint16) {
	c.voices[voice].WritePulseWidth(pw)
}

func (c *Chip) WriteControl(voice int, control uint8) {
	c.voices[voice].WriteControl(control, c.voices[syncSource(voice)].accumulator)
}

func (c *Chip) ReadOSC(voice int) uint8 {
	return c.voices[voice].ReadOSC()
}

// Clock runs the chip for one cycle.
func (c *Chip) Clock() {
	for i := range c.voices {
		c.voices[i].Clock()
	}

	// All accumulators must be updated before any synchronization.
	c.synchronize()

	for i := range c.voices {
		c.voices[i].SetWaveformOutput(c.voices[syncSource(i)].accumulator)
	}
}

// ClockCycles runs the chip for n cycles, in as few steps as hard sync
// allows. Oscillators are clocked in batches that end on each MSB toggle of
// a sync source, so that synchronization happens at the right time.
func (c *Chip) ClockCycles(n int32) {
	if n <= 0 {
		return
	}

	for left := n; left > 0; {
		step := left
		for i := range c.voices {
			o := &c.voices[i]
			// Only sync sources with a running oscillator matter.
			if !c.voices[syncDest(i)].sync || o.freq == 0 {
				continue
			}

			// Clock on MSB off if MSB is on, clock on MSB on if MSB is off.
			var delta uint32
			if o.accumulator&accMSB != 0 {
				delta = 0x1000000 - o.accumulator
			} else {
				delta = accMSB - o.accumulator
			}
			dt := delta / o.freq
			if delta%o.freq != 0 {
				dt++
			}
			if int64(dt) < int64(step) {
				step = int32(dt)
			}
		}

		for i := range c.voices {
			c.voices[i].ClockCycles(step)
		}
		c.synchronize()
		left -= step
	}

	for i := range c.voices {
		c.voices[i].SetWaveformOutputCycles(c.voices[syncSource(i)].accumulator, n)
	}
}

// synchronize resets the accumulator of each syncing voice whose source MSB
// went high, unless the source itself is being synced on this cycle.
func (c *Chip) synchronize() {
	for i := range c.voices {
		o := &c.voices[i]
		src := &c.voices[syncSource(i)]
		if src.msbRising && o.sync && !(src.sync && c.voices[syncSource(syncSource(i))].msbRising) {
			o.accumulator = 0
		}
	}
}

// VoiceOutput returns the analog output of a voice, relative to the DAC
// level of a zero signal.
func (c *Chip) VoiceOutput(voice int) int {
	return int(c.dac[c.voices[voice].waveformOutput]) - c.waveZero
}

const outNorm = 32767

// ProduceSample clocks the chip once and returns the mix of the 3 voices,
// normalized and scaled by the chip gain.
func (c *Chip) ProduceSample() float32 {
	c.Clock()

	sum := 0
	for i := range c.voices {
		sum += c.VoiceOutput(i)
	}
	return float32(sum) / hwdefs.NumVoices / outNorm * c.gain
}
