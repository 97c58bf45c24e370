package sid

// SetWaveformOutput computes the 12-bit waveform output for the current
// cycle. srcAcc is the accumulator of the sync source, used for ring
// modulation.
//
// No waveform selected (waveform 0) keeps the last output on the floating
// DAC input until it fades out.
func (o *Oscillator) SetWaveformOutput(srcAcc uint32) {
	if o.waveform != 0 {
		// The bit masks noPulse and noNoise are used to achieve branch-free
		// calculation of the output value.
		ix := (o.accumulator ^ (^srcAcc & o.ringMSBMask)) >> 12

		o.waveformOutput = o.wave[ix] & (o.noPulse | o.pulseOutput) & o.noNoiseOrNoiseOutput

		// Pulse+noise pulls the noise output down.
		if o.waveform&0xc == 0xc {
			o.waveformOutput = noisePulse(o.model, o.waveformOutput)
		}

		// Triangle/sawtooth output is delayed half cycle on 8580. This will
		// appear as a one cycle delay on OSC3 as it is latched in the first
		// phase of the clock.
		if o.waveform&3 != 0 && o.model == MOS8580 {
			o.osc3 = o.triSawPipeline & (o.noPulse | o.pulseOutput) & o.noNoiseOrNoiseOutput
			o.triSawPipeline = o.wave[ix]
		} else {
			o.osc3 = o.waveformOutput
		}

		// In the 6581 the top bit of the accumulator may be driven low by
		// combined waveforms when the sawtooth is selected.
		if o.waveform&2 != 0 && o.waveform&0xd != 0 && o.model == MOS6581 {
			o.accumulator &= (uint32(o.waveformOutput) << 12) | 0x7fffff
		}

		// Combined waveforms write to the shift register. The write happens
		// in the second phase of the shift, so it's skipped when a shift is
		// about to complete.
		if o.waveform > 0x8 && !o.test && o.shiftPipeline != 1 {
			o.writeShiftRegister()
		}
	} else if o.floatingOutputTTL != 0 {
		// Age floating DAC input.
		o.floatingOutputTTL--
		if o.floatingOutputTTL == 0 {
			o.osc3 = 0
			o.waveformOutput = 0
		}
	}

	// The pulse level is defined as (accumulator >> 12) >= pw ? 0xfff : 0x000.
	// The expression is only evaluated here, giving the one cycle delay of
	// the comparator.
	o.pulseOutput = pulseLevel(o.accumulator, o.pw)
}

// SetWaveformOutputCycles is the batched counterpart of SetWaveformOutput,
// after n cycles were run with ClockCycles.
//
// The noise+pulse veto and the 8580 tri/saw pipeline are not modeled, and
// combined waveform writes to the shift register happening during the
// batch are missed: only the final output is written back.
func (o *Oscillator) SetWaveformOutputCycles(srcAcc uint32, n int32) {
	if o.waveform != 0 {
		ix := (o.accumulator ^ (^srcAcc & o.ringMSBMask)) >> 12

		o.waveformOutput = o.wave[ix] & (o.noPulse | o.pulseOutput) & o.noNoiseOrNoiseOutput
		o.osc3 = o.waveformOutput

		if o.waveform&2 != 0 && o.waveform&0xd != 0 && o.model == MOS6581 {
			o.accumulator &= (uint32(o.waveformOutput) << 12) | 0x7fffff
		}

		if o.waveform > 0x8 && !o.test {
			o.writeShiftRegister()
		}
	} else if o.floatingOutputTTL != 0 {
		o.floatingOutputTTL -= n
		if o.floatingOutputTTL <= 0 {
			o.floatingOutputTTL = 0
			o.osc3 = 0
			o.waveformOutput = 0
		}
	}
}

// noisePulse models the pulse pulling down the combined noise output.
func noisePulse(model ChipModel, n uint16) uint16 {
	var out uint16
	switch model {
	case MOS6581:
		// Only the top bits survive, and only if their neighbours are set.
		if n >= 0xf00 {
			out = n & (n << 1) & (n << 2)
		}
	case MOS8580:
		if n < 0xfc0 {
			out = n & (n << 1)
		} else {
			out = 0xfc0
		}
	}
	return out & 0xfff
}
