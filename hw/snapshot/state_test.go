package snapshot

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSIDRoundTrip(t *testing.T) {
	want := &SID{
		Version: Version,
		Model:   1,
		Gain:    0.5,
	}
	for i := range want.Voices {
		want.Voices[i] = Oscillator{
			Accumulator:          0x123456 * uint32(i+1),
			MSBRising:            i == 1,
			Freq:                 0x1000,
			PW:                   0x800,
			ShiftRegister:        0x7ffff0,
			ShiftRegisterReset:   0x8000,
			ShiftPipeline:        2,
			RingMSBMask:          0x800000,
			NoNoise:              0xfff,
			NoiseOutput:          0xfe0,
			NoNoiseOrNoiseOutput: 0xfff,
			NoPulse:              0x000,
			PulseOutput:          0xfff,
			Waveform:             0x4,
			Test:                 true,
			RingMod:              i == 2,
			Sync:                 i == 0,
			TriSawPipeline:       0x123,
			OSC3:                 0x456,
			WaveformOutput:       0x789,
			FloatingOutputTTL:    -1,
		}
	}

	var got SID
	if err := got.Unmarshal(want.Marshal()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSIDEmptyRoundTrip(t *testing.T) {
	want := &SID{Version: Version}

	var got SID
	if err := got.Unmarshal(want.Marshal()); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if diff := cmp.Diff(want, &got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSIDDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"version", `{"version": 2}`, "unsupported version"},
		{"voices count", `{"version": 1, "voices": [{}, {}]}`, "got 2 voices"},
		{"too many voices", `{"version": 1, "voices": [{}, {}, {}, {}]}`, "too many voices"},
		{"field type", `{"version": 1, "voices": [{"acc": "x"}, {}, {}]}`, "acc"},
		{"range", `{"version": 1, "voices": [{"osc3": 70000}, {}, {}]}`, "out of range"},
		{"model range", `{"version": 1, "model": 256}`, "out of range"},
		{"waveform range", `{"version": 1, "voices": [{"waveform": 300}, {}, {}]}`, "out of range"},
		{"syntax", `{"version": `, "decode sid snapshot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s SID
			err := s.Unmarshal([]byte(tt.json))
			if err == nil {
				t.Fatal("want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q doesn't contain %q", err, tt.want)
			}
		})
	}
}

func TestSIDDecodeUnknownFields(t *testing.T) {
	var s SID
	err := s.Unmarshal([]byte(`{"version": 1, "extra": [1, 2], "voices": [{"foo": {}}, {}, {}]}`))
	if err != nil {
		t.Fatal(err)
	}
}
