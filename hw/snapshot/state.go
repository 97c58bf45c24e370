package snapshot

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Version of the snapshot format.
const Version = 1

type SID struct {
	Version int
	Model   uint8
	Gain    float32
	Voices  [3]Oscillator
}

type Oscillator struct {
	Accumulator uint32
	MSBRising   bool
	Freq        uint32
	PW          uint32

	ShiftRegister      uint32
	ShiftRegisterReset int32
	ShiftPipeline      int32

	RingMSBMask          uint32
	NoNoise              uint16
	NoiseOutput          uint16
	NoNoiseOrNoiseOutput uint16
	NoPulse              uint16
	PulseOutput          uint16

	Waveform uint8
	Test     bool
	RingMod  bool
	Sync     bool

	TriSawPipeline    uint16
	OSC3              uint16
	WaveformOutput    uint16
	FloatingOutputTTL int32
}

func (s *SID) Marshal() []byte {
	var e jx.Encoder
	e.SetIdent(2)
	s.Encode(&e)
	return e.Bytes()
}

func (s *SID) Unmarshal(buf []byte) error {
	return s.Decode(jx.DecodeBytes(buf))
}

func (s *SID) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.Int(s.Version) })
		e.Field("model", func(e *jx.Encoder) { e.UInt8(s.Model) })
		e.Field("gain", func(e *jx.Encoder) { e.Float32(s.Gain) })
		e.Field("voices", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range s.Voices {
					s.Voices[i].Encode(e)
				}
			})
		})
	})
}

func (s *SID) Decode(d *jx.Decoder) error {
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "version":
			s.Version, err = d.Int()
			if err == nil && s.Version != Version {
				err = errors.Errorf("unsupported version %d", s.Version)
			}
		case "model":
			var v uint32
			v, err = d.UInt32()
			if err == nil && v > 0xFF {
				err = errors.Errorf("value out of range: %d", v)
			}
			s.Model = uint8(v)
		case "gain":
			s.Gain, err = d.Float32()
		case "voices":
			i := 0
			err = d.Arr(func(d *jx.Decoder) error {
				if i >= len(s.Voices) {
					return errors.New("too many voices")
				}
				if err := s.Voices[i].Decode(d); err != nil {
					return errors.Wrapf(err, "voice %d", i)
				}
				i++
				return nil
			})
			if err == nil && i != len(s.Voices) {
				err = errors.Errorf("got %d voices, want %d", i, len(s.Voices))
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "decode sid snapshot")
	}
	return nil
}

func (o *Oscillator) Encode(e *jx.Encoder) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("acc", func(e *jx.Encoder) { e.UInt32(o.Accumulator) })
		e.Field("msb_rising", func(e *jx.Encoder) { e.Bool(o.MSBRising) })
		e.Field("freq", func(e *jx.Encoder) { e.UInt32(o.Freq) })
		e.Field("pw", func(e *jx.Encoder) { e.UInt32(o.PW) })
		e.Field("shift_register", func(e *jx.Encoder) { e.UInt32(o.ShiftRegister) })
		e.Field("shift_register_reset", func(e *jx.Encoder) { e.Int32(o.ShiftRegisterReset) })
		e.Field("shift_pipeline", func(e *jx.Encoder) { e.Int32(o.ShiftPipeline) })
		e.Field("ring_msb_mask", func(e *jx.Encoder) { e.UInt32(o.RingMSBMask) })
		e.Field("no_noise", func(e *jx.Encoder) { e.UInt16(o.NoNoise) })
		e.Field("noise_output", func(e *jx.Encoder) { e.UInt16(o.NoiseOutput) })
		e.Field("no_noise_or_noise_output", func(e *jx.Encoder) { e.UInt16(o.NoNoiseOrNoiseOutput) })
		e.Field("no_pulse", func(e *jx.Encoder) { e.UInt16(o.NoPulse) })
		e.Field("pulse_output", func(e *jx.Encoder) { e.UInt16(o.PulseOutput) })
		e.Field("waveform", func(e *jx.Encoder) { e.UInt8(o.Waveform) })
		e.Field("test", func(e *jx.Encoder) { e.Bool(o.Test) })
		e.Field("ring_mod", func(e *jx.Encoder) { e.Bool(o.RingMod) })
		e.Field("sync", func(e *jx.Encoder) { e.Bool(o.Sync) })
		e.Field("tri_saw_pipeline", func(e *jx.Encoder) { e.UInt16(o.TriSawPipeline) })
		e.Field("osc3", func(e *jx.Encoder) { e.UInt16(o.OSC3) })
		e.Field("waveform_output", func(e *jx.Encoder) { e.UInt16(o.WaveformOutput) })
		e.Field("floating_output_ttl", func(e *jx.Encoder) { e.Int32(o.FloatingOutputTTL) })
	})
}

func (o *Oscillator) Decode(d *jx.Decoder) error {
	u32 := func(dst *uint32) error {
		v, err := d.UInt32()
		*dst = v
		return err
	}
	u16 := func(dst *uint16) error {
		v, err := d.UInt32()
		if err == nil && v > 0xFFFF {
			return errors.Errorf("value out of range: %d", v)
		}
		*dst = uint16(v)
		return err
	}
	i32 := func(dst *int32) error {
		v, err := d.Int32()
		*dst = v
		return err
	}
	b := func(dst *bool) error {
		v, err := d.Bool()
		*dst = v
		return err
	}

	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "acc":
			err = u32(&o.Accumulator)
		case "msb_rising":
			err = b(&o.MSBRising)
		case "freq":
			err = u32(&o.Freq)
		case "pw":
			err = u32(&o.PW)
		case "shift_register":
			err = u32(&o.ShiftRegister)
		case "shift_register_reset":
			err = i32(&o.ShiftRegisterReset)
		case "shift_pipeline":
			err = i32(&o.ShiftPipeline)
		case "ring_msb_mask":
			err = u32(&o.RingMSBMask)
		case "no_noise":
			err = u16(&o.NoNoise)
		case "noise_output":
			err = u16(&o.NoiseOutput)
		case "no_noise_or_noise_output":
			err = u16(&o.NoNoiseOrNoiseOutput)
		case "no_pulse":
			err = u16(&o.NoPulse)
		case "pulse_output":
			err = u16(&o.PulseOutput)
		case "waveform":
			var v uint16
			err = u16(&v)
			if err == nil && v > 0xFF {
				err = errors.Errorf("value out of range: %d", v)
			}
			o.Waveform = uint8(v)
		case "test":
			err = b(&o.Test)
		case "ring_mod":
			err = b(&o.RingMod)
		case "sync":
			err = b(&o.Sync)
		case "tri_saw_pipeline":
			err = u16(&o.TriSawPipeline)
		case "osc3":
			err = u16(&o.OSC3)
		case "waveform_output":
			err = u16(&o.WaveformOutput)
		case "floating_output_ttl":
			err = i32(&o.FloatingOutputTTL)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
}
