package sid

import (
	"sidosc/emu/log"
	"sidosc/hw/hwdefs"
	"sidosc/hw/hwio"
)

const (
	accMask  = 0xFFFFFF
	accMSB   = 0x800000
	accBit19 = 0x080000

	shiftMask  = 0x7FFFFF
	shiftReset = 0x7FFFFF

	// Bit 19 goes high each time 2^20 is added to the accumulator.
	shiftPeriod = 0x100000
)

// Oscillator is a SID waveform generator.
//
// A 24 bit accumulator is the basis for waveform generation. FREQ is added
// to the accumulator each cycle. The accumulator is set to zero when TEST
// is set, and starts counting when TEST is cleared.
//
// The noise waveform is taken from intermediate bits of a 23 bit shift
// register. This register is clocked by bit 19 of the accumulator.
//
// Oscillators don't know about each other: the caller passes the
// accumulator of the sync source whenever ring modulation may need it, see
// Chip.
type Oscillator struct {
	model ChipModel
	wave  *waveTable

	accumulator uint32
	// Whether the accumulator MSB went high on this cycle. This is used for
	// synchronization.
	msbRising bool

	freq uint32 // 24 bits
	pw   uint32 // 12 bits

	shiftRegister uint32
	// Remaining cycles before the shift register is fully reset.
	shiftRegisterReset int32
	// Pipeline delay between bit 19 rising and the shift register clock.
	shiftPipeline int32

	// Helper masks for branch-free waveform table lookup.
	ringMSBMask          uint32
	noNoise              uint16
	noiseOutput          uint16
	noNoiseOrNoiseOutput uint16
	noPulse              uint16
	pulseOutput          uint16

	// Control register bits. waveform is the upper nibble.
	waveform uint8
	test     bool
	ringMod  bool
	sync     bool

	// 8580 tri/saw pipeline.
	triSawPipeline uint16
	osc3           uint16

	// DAC input.
	waveformOutput uint16
	// Fading time for floating DAC input (waveform 0).
	floatingOutputTTL int32
}

func NewOscillator(model ChipModel) *Oscillator {
	o := &Oscillator{}
	o.init(model)
	return o
}

func (o *Oscillator) init(model ChipModel) {
	o.model = model
	o.Reset()
}

func (o *Oscillator) Model() ChipModel { return o.model }

// Reset puts the oscillator in its power-on state: accumulator cleared,
// shift register filled with ones, no waveform selected and the pulse level
// held high.
func (o *Oscillator) Reset() {
	o.accumulator = 0
	o.msbRising = false
	o.freq = 0
	o.pw = 0

	o.waveform = 0
	o.test = false
	o.ringMod = false
	o.sync = false

	o.wave = &waveTables()[o.model][0]

	o.ringMSBMask = 0
	o.noNoise = 0xfff
	o.noPulse = 0xfff
	o.pulseOutput = 0xfff

	o.resetShiftRegister()
	o.shiftPipeline = 0

	o.triSawPipeline = 0
	o.waveformOutput = 0
	o.osc3 = 0
	o.floatingOutputTTL = 0
}

// Clock advances the oscillator by exactly one cycle.
func (o *Oscillator) Clock() {
	if o.test {
		// Count down time to fully reset shift register.
		if o.shiftRegisterReset != 0 {
			o.shiftRegisterReset--
			if o.shiftRegisterReset == 0 {
				o.resetShiftRegister()
				log.ModWave.DebugZ("shift register reset").End()
			}
		}

		// The test bit sets pulse high.
		o.pulseOutput = 0xfff
		o.msbRising = false
		return
	}

	next := (o.accumulator + o.freq) & accMask
	risen := ^o.accumulator & next
	o.accumulator = next

	o.msbRising = risen&accMSB != 0

	// Shift noise register once for each time accumulator bit 19 is set
	// high. The shift is delayed 2 cycles.
	if risen&accBit19 != 0 {
		// Pipeline: detect rising bit, shift phase 1, shift phase 2.
		o.shiftPipeline = 2
	} else if o.shiftPipeline != 0 {
		o.shiftPipeline--
		if o.shiftPipeline == 0 {
			o.clockShiftRegister()
		}
	}
}

// ClockCycles advances the oscillator by n cycles at once.
//
// This is an approximation of n calls to Clock: the shift register is
// clocked once for each time bit 19 goes high during the n cycles but
// without the two cycle pipeline delay, any shift still pending in that
// pipeline is dropped, and the pulse level is not delayed.
func (o *Oscillator) ClockCycles(n int32) {
	if n <= 0 {
		return
	}

	if o.test {
		if o.shiftRegisterReset != 0 {
			o.shiftRegisterReset -= n
			if o.shiftRegisterReset <= 0 {
				o.resetShiftRegister()
				log.ModWave.DebugZ("shift register reset").End()
			}
		}

		o.pulseOutput = 0xfff
		o.msbRising = false
		return
	}

	delta := uint64(n) * uint64(o.freq)
	next := (o.accumulator + uint32(delta&accMask)) & accMask
	risen := ^o.accumulator & next
	o.accumulator = next

	o.msbRising = risen&accMSB != 0

	o.shiftPipeline = 0

	period := uint64(shiftPeriod)
	for delta != 0 {
		if delta < period {
			period = delta
			// Determine whether bit 19 is set on the last period.
			low := (o.accumulator - uint32(period)) & accBit19
			if period <= 0x080000 {
				// Check for flip from 0 to 1.
				if low != 0 || o.accumulator&accBit19 == 0 {
					break
				}
			} else {
				// Check for flip from 0 (to 1 or via 1 to 0) or from 1 via 0
				// to 1.
				if low != 0 && o.accumulator&accBit19 == 0 {
					break
				}
			}
		}

		o.clockShiftRegister()
		delta -= period
	}

	o.pulseOutput = pulseLevel(o.accumulator, o.pw)
}

// pulseLevel is the output of the 12 bit pulse comparator.
func pulseLevel(acc, pw uint32) uint16 {
	if acc>>12 >= pw {
		return 0xfff
	}
	return 0x000
}

// Noise:
// The noise output is taken from intermediate bits of a 23-bit shift
// register which is clocked by bit 19 of the accumulator.
//
// Operation: calculate EOR result, shift register, set bit 0 = result.
//
//	               reset    -------------------------------------------
//	                 |     |                                           |
//	          test--OR-->EOR<--                                        |
//	                 |         |                                       |
//	                 2 2 2 1 1 1 1 1 1 1 1 1 1                         |
//	Register bits:   2 1 0 9 8 7 6 5 4 3 2 1 0 9 8 7 6 5 4 3 2 1 0 <---
//	                     |   |       |     |   |       |     |   |
//	Waveform bits:       1   1       9     8   7       6     5   4
//	                     1   0
//
// The low 4 waveform bits are zero (grounded).
func (o *Oscillator) clockShiftRegister() {
	bit0 := ((o.shiftRegister >> 22) ^ (o.shiftRegister >> 17)) & 0x1
	o.shiftRegister = ((o.shiftRegister << 1) | bit0) & shiftMask

	o.setNoiseOutput()
}

func (o *Oscillator) resetShiftRegister() {
	o.shiftRegister = shiftReset
	o.shiftRegisterReset = 0

	o.setNoiseOutput()
}

func (o *Oscillator) setNoiseOutput() {
	sr := o.shiftRegister
	o.noiseOutput = uint16(
		((sr & 0x100000) >> 9) |
			((sr & 0x040000) >> 8) |
			((sr & 0x004000) >> 5) |
			((sr & 0x000800) >> 3) |
			((sr & 0x000200) >> 2) |
			((sr & 0x000020) << 1) |
			((sr & 0x000004) << 3) |
			((sr & 0x000001) << 4))

	o.noNoiseOrNoiseOutput = o.noNoise | o.noiseOutput
}

// writeShiftRegister writes the changes to the shift register output
// caused by combined waveforms back into the shift register. A bit once set
// to zero cannot be changed, hence the AND.
func (o *Oscillator) writeShiftRegister() {
	out := uint32(o.waveformOutput)
	o.shiftRegister &=
		^uint32((1<<20)|(1<<18)|(1<<14)|(1<<11)|(1<<9)|(1<<5)|(1<<2)|(1<<0)) |
			((out & 0x800) << 9) | // bit 11 -> bit 20
			((out & 0x400) << 8) | // bit 10 -> bit 18
			((out & 0x200) << 5) | // bit  9 -> bit 14
			((out & 0x100) << 3) | // bit  8 -> bit 11
			((out & 0x080) << 2) | // bit  7 -> bit  9
			((out & 0x040) >> 1) | // bit  6 -> bit  5
			((out & 0x020) >> 3) | // bit  5 -> bit  2
			((out & 0x010) >> 4) //   bit  4 -> bit  0

	o.noiseOutput &= o.waveformOutput
	o.noNoiseOrNoiseOutput = o.noNoise | o.noiseOutput
}

// WriteFrequency sets the 24-bit frequency increment. Extra bits are
// ignored.
func (o *Oscillator) WriteFrequency(freq uint32) {
	o.freq = freq & accMask
}

func (o *Oscillator) writeFreqLo(val uint8) {
	o.freq = (o.freq &^ 0x0000FF) | uint32(val)
}

func (o *Oscillator) writeFreqHi(val uint8) {
	o.freq = (o.freq &^ 0x00FF00) | uint32(val)<<8
}

// WritePulseWidth sets the 12-bit pulse width. Extra bits are ignored.
func (o *Oscillator) WritePulseWidth(pw uint16) {
	o.pw = uint32(pw) & 0xFFF
}

func (o *Oscillator) writePWLo(val uint8) {
	o.pw = (o.pw &^ 0x0FF) | uint32(val)
}

func (o *Oscillator) writePWHi(val uint8) {
	o.pw = (o.pw &^ 0xF00) | uint32(val&0x0F)<<8
}

// WriteControl writes the control register: waveform selector in the upper
// nibble, then test, ring modulation and sync bits. Bit 0 (gate) belongs to
// the envelope generator and is ignored. srcAcc is the accumulator of the
// sync source, needed when the new waveform output is computed.
func (o *Oscillator) WriteControl(control uint8, srcAcc uint32) {
	prevWaveform := o.waveform
	prevTest := o.test

	o.waveform = (control >> 4) & 0x0F
	o.test = hwio.GetBit8(control, hwdefs.TestBit)
	o.ringMod = hwio.GetBit8(control, hwdefs.RingModBit)
	o.sync = hwio.GetBit8(control, hwdefs.SyncBit)

	o.wave = &waveTables()[o.model][o.waveform&0x7]

	// Substitution of accumulator MSB when sawtooth = 0, ring_mod = 1.
	o.ringMSBMask = uint32(hwio.GetBiti8(^control, hwdefs.SawtoothBit)&hwio.GetBiti8(control, hwdefs.RingModBit)) << 23

	// noNoise and noPulse are used in SetWaveformOutput as bitmasks to only
	// let the noise or pulse influence the output when the noise or pulse
	// waveforms are selected.
	o.noNoise = 0xfff
	if o.waveform&0x8 != 0 {
		o.noNoise = 0x000
	}
	o.noNoiseOrNoiseOutput = o.noNoise | o.noiseOutput
	o.noPulse = 0xfff
	if o.waveform&0x4 != 0 {
		o.noPulse = 0x000
	}

	switch {
	case !prevTest && o.test:
		// Test bit rising: the accumulator is cleared, while the shift
		// register is prepared for shifting by interconnecting the register
		// bits. The SRAM cells slowly rise up towards one.
		o.accumulator = 0
		o.shiftPipeline = 0
		o.shiftRegisterReset = params[o.model].shiftRegisterReset
		o.pulseOutput = 0xfff

	case prevTest && !o.test:
		// Test bit falling: the second phase of the shift is completed by
		// enabling SRAM write.
		// bit0 = (bit22 | test) ^ bit17 = 1 ^ bit17 = ~bit17
		bit0 := (^o.shiftRegister >> 17) & 0x1
		o.shiftRegister = ((o.shiftRegister << 1) | bit0) & shiftMask
		o.setNoiseOutput()
	}

	if o.waveform != 0 {
		o.SetWaveformOutput(srcAcc)
	} else if prevWaveform != 0 {
		// Change to floating DAC input.
		o.floatingOutputTTL = params[o.model].floatingOutputTTL
	}

	log.ModWave.InfoZ("write control").
		Hex8("val", control).
		Uint8("waveform", o.waveform).
		Bool("test", o.test).
		Bool("ring", o.ringMod).
		Bool("sync", o.sync).
		End()
}

// Control returns the value of the control register (without gate).
func (o *Oscillator) Control() uint8 {
	c := o.waveform << 4
	if o.test {
		hwio.SetBit8(&c, hwdefs.TestBit)
	}
	if o.ringMod {
		hwio.SetBit8(&c, hwdefs.RingModBit)
	}
	if o.sync {
		hwio.SetBit8(&c, hwdefs.SyncBit)
	}
	return c
}

// ReadOSC returns the upper 8 bits of the waveform output, as seen through
// the OSC3 register.
func (o *Oscillator) ReadOSC() uint8 {
	return uint8(o.osc3 >> 4)
}

// Output returns the 12-bit digital waveform output, that is the DAC input.
func (o *Oscillator) Output() uint16 { return o.waveformOutput }

func (o *Oscillator) Accumulator() uint32   { return o.accumulator }
func (o *Oscillator) MSBRising() bool       { return o.msbRising }
func (o *Oscillator) Frequency() uint32     { return o.freq }
func (o *Oscillator) PulseWidth() uint16    { return uint16(o.pw) }
func (o *Oscillator) ShiftRegister() uint32 { return o.shiftRegister }
func (o *Oscillator) NoiseOutput() uint16   { return o.noiseOutput }
func (o *Oscillator) PulseOutput() uint16   { return o.pulseOutput }
