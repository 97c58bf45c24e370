package sid

import (
	"fmt"
	"strings"
)

//go:generate go tool stringer -type=ChipModel -trimprefix=MOS

// ChipModel is the SID revision being emulated. It selects the waveform and
// DAC tables and a few behavioral differences (noise+pulse veto, sawtooth
// pull-down of the accumulator MSB, 8580 tri/saw output pipeline).
type ChipModel uint8

const (
	MOS6581 ChipModel = iota
	MOS8580
)

const numModels = 2

// Master clock frequencies of the C64.
const (
	ClockPAL  = 985248
	ClockNTSC = 1022727
)

func ParseChipModel(s string) (ChipModel, error) {
	switch strings.TrimPrefix(strings.ToUpper(s), "MOS") {
	case "6581":
		return MOS6581, nil
	case "8580":
		return MOS8580, nil
	}
	return 0, fmt.Errorf("unknown chip model %q", s)
}

func (m ChipModel) MarshalText() ([]byte, error) {
	if m >= numModels {
		return nil, fmt.Errorf("invalid chip model %d", m)
	}
	return []byte(m.String()), nil
}

func (m *ChipModel) UnmarshalText(text []byte) error {
	model, err := ParseChipModel(string(text))
	if err != nil {
		return err
	}
	*m = model
	return nil
}

type modelParams struct {
	// Cycles for the shift register to settle to all ones while test is set.
	shiftRegisterReset int32
	// Fading time of a floating DAC input (no waveform selected).
	floatingOutputTTL int32
	// DAC output level corresponding to a zero signal.
	waveZero int
}

var params = [numModels]modelParams{
	MOS6581: {shiftRegisterReset: 0x8000, floatingOutputTTL: 182000, waveZero: 0x380},
	MOS8580: {shiftRegisterReset: 0x950000, floatingOutputTTL: 4400000, waveZero: 0x800},
}

// FrequencyFromHz returns the 24-bit frequency increment producing an
// oscillator frequency of hz at the given master clock rate.
func FrequencyFromHz(hz float64, clock uint32) uint32 {
	if hz <= 0 || clock == 0 {
		return 0
	}
	f := hz * (1 << 24) / float64(clock)
	if f >= accMask {
		return accMask
	}
	return uint32(f)
}

// HzFromFrequency is the inverse of FrequencyFromHz.
func HzFromFrequency(freq uint32, clock uint32) float64 {
	return float64(freq&accMask) * float64(clock) / (1 << 24)
}
