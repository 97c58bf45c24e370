package sid

import (
	"fmt"

	"sidosc/hw/snapshot"
)

func (c *Chip) State() *snapshot.SID {
	s := &snapshot.SID{
		Version: snapshot.Version,
		Model:   uint8(c.model),
		Gain:    c.gain,
	}
	for i := range c.voices {
		s.Voices[i] = c.voices[i].state()
	}
	return s
}

// SetState restores the chip from a snapshot. The snapshot must come from a
// chip of the same model.
func (c *Chip) SetState(s *snapshot.SID) error {
	if s.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	if ChipModel(s.Model) != c.model {
		return fmt.Errorf("snapshot model %v doesn't match chip model %v", ChipModel(s.Model), c.model)
	}
	for i := range c.voices {
		c.voices[i].setState(&s.Voices[i])
	}
	c.gain = s.Gain
	return nil
}

func (o *Oscillator) state() snapshot.Oscillator {
	return snapshot.Oscillator{
		Accumulator:          o.accumulator,
		MSBRising:            o.msbRising,
		Freq:                 o.freq,
		PW:                   o.pw,
		ShiftRegister:        o.shiftRegister,
		ShiftRegisterReset:   o.shiftRegisterReset,
		ShiftPipeline:        o.shiftPipeline,
		RingMSBMask:          o.ringMSBMask,
		NoNoise:              o.noNoise,
		NoiseOutput:          o.noiseOutput,
		NoNoiseOrNoiseOutput: o.noNoiseOrNoiseOutput,
		NoPulse:              o.noPulse,
		PulseOutput:          o.pulseOutput,
		Waveform:             o.waveform,
		Test:                 o.test,
		RingMod:              o.ringMod,
		Sync:                 o.sync,
		TriSawPipeline:       o.triSawPipeline,
		OSC3:                 o.osc3,
		WaveformOutput:       o.waveformOutput,
		FloatingOutputTTL:    o.floatingOutputTTL,
	}
}

func (o *Oscillator) setState(s *snapshot.Oscillator) {
	o.accumulator = s.Accumulator & accMask
	o.msbRising = s.MSBRising
	o.freq = s.Freq & accMask
	o.pw = s.PW & 0xfff
	o.shiftRegister = s.ShiftRegister & shiftMask
	o.shiftRegisterReset = s.ShiftRegisterReset
	o.shiftPipeline = s.ShiftPipeline
	o.ringMSBMask = s.RingMSBMask
	o.noNoise = s.NoNoise
	o.noiseOutput = s.NoiseOutput
	o.noNoiseOrNoiseOutput = s.NoNoiseOrNoiseOutput
	o.noPulse = s.NoPulse
	o.pulseOutput = s.PulseOutput
	o.waveform = s.Waveform & 0x0f
	o.test = s.Test
	o.ringMod = s.RingMod
	o.sync = s.Sync
	o.triSawPipeline = s.TriSawPipeline
	o.osc3 = s.OSC3
	o.waveformOutput = s.WaveformOutput & 0xfff
	o.floatingOutputTTL = s.FloatingOutputTTL

	o.wave = &waveTables()[o.model][o.waveform&0x7]
}
