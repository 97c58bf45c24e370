package emu

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sidosc/hw/hwdefs"
	"sidosc/hw/sid"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[general]
clock = "ntsc"
clocking = "batch"
batch_size = 32

[audio]
sample_rate = 44100
gain = 0.5
backend = "oto"

[[chip]]
model = "8580"

[[chip.voice]]
freq_hz = 220
pulse_width = 2048
waveforms = ["pulse", "saw"]
volume = 0.25
pan = -1

[[chip.voice]]
freq_hz = 110
waveforms = ["tri"]
ring = true
sync = true
`)

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	vol := 0.25
	want := Config{
		General: GeneralConfig{Clock: "ntsc", Clocking: ClockingBatch, BatchSize: 32},
		Audio:   AudioConfig{SampleRate: 44100, Gain: 0.5, Backend: BackendOto},
		Chips: []ChipConfig{{
			Model: sid.MOS8580,
			Voices: []VoiceConfig{
				{FreqHz: 220, PulseWidth: 2048, Waveforms: []string{"pulse", "saw"}, Volume: &vol, Pan: -1},
				{FreqHz: 110, Waveforms: []string{"tri"}, Ring: true, Sync: true},
			},
		}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}

	clock, err := got.General.ClockRate()
	if err != nil || clock != sid.ClockNTSC {
		t.Errorf("ClockRate() = %d, %v, want %d", clock, err, sid.ClockNTSC)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
[audio]
sample_rate = 22050
`)

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	want := DefaultConfig()
	want.Audio.SampleRate = 22050
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "syntax",
			content: "[general\n",
			wantErr: "load config",
		},
		{
			name:    "clocking",
			content: "[general]\nclocking = \"sometimes\"\n",
			wantErr: "invalid clocking mode",
		},
		{
			name:    "batch size",
			content: "[general]\nclocking = \"batch\"\nbatch_size = 0\n",
			wantErr: "invalid batch size",
		},
		{
			name:    "clock",
			content: "[general]\nclock = \"secam\"\n",
			wantErr: "invalid clock",
		},
		{
			name:    "sample rate",
			content: "[audio]\nsample_rate = 192000\n",
			wantErr: "invalid sample rate",
		},
		{
			name:    "backend",
			content: "[audio]\nbackend = \"alsa\"\n",
			wantErr: "invalid audio backend",
		},
		{
			name:    "model",
			content: "[[chip]]\nmodel = \"6582\"\n",
			wantErr: "unknown chip model",
		},
		{
			name:    "waveform",
			content: "[[chip]]\nmodel = \"6581\"\n[[chip.voice]]\nwaveforms = [\"square\"]\n",
			wantErr: "unknown waveform",
		},
		{
			name: "voices",
			content: "[[chip]]\nmodel = \"6581\"\n" +
				strings.Repeat("[[chip.voice]]\nfreq_hz = 100\n", hwdefs.NumVoices+1),
			wantErr: "too many voices",
		},
		{
			name:    "frequency",
			content: "[[chip]]\nmodel = \"6581\"\n[[chip.voice]]\nfreq_hz = -1\n",
			wantErr: "negative frequency",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("LoadConfig() succeeded, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.toml")
	if diff := cmp.Diff(DefaultConfig(), LoadConfigOrDefault(missing)); diff != "" {
		t.Errorf("LoadConfigOrDefault mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveConfig(t *testing.T) {
	vol := 0.5
	cfg := DefaultConfig()
	cfg.General.Clock = "1000000"
	cfg.Chips = append(cfg.Chips, ChipConfig{
		Model: sid.MOS8580,
		Voices: []VoiceConfig{
			{FreqHz: 1000, Waveforms: []string{"noise"}, Volume: &vol, Pan: 0.5},
			{FreqHz: 0.5, Waveforms: []string{"triangle", "pulse"}, PulseWidth: 0x800, Test: true},
		},
	})

	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("config round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestVoiceControl(t *testing.T) {
	tests := []struct {
		voice VoiceConfig
		want  uint8
	}{
		{VoiceConfig{}, 0},
		{VoiceConfig{Waveforms: []string{"triangle"}}, hwdefs.Triangle},
		{VoiceConfig{Waveforms: []string{"SAW", "Pulse"}}, hwdefs.Sawtooth | hwdefs.Pulse},
		{VoiceConfig{Waveforms: []string{"noise"}, Test: true}, hwdefs.Noise | hwdefs.Test},
		{VoiceConfig{Waveforms: []string{"tri"}, Ring: true, Sync: true}, hwdefs.Triangle | hwdefs.RingMod | hwdefs.Sync},
	}
	for _, tt := range tests {
		got, err := tt.voice.Control()
		if err != nil {
			t.Fatalf("%+v: %v", tt.voice, err)
		}
		if got != tt.want {
			t.Errorf("%+v: Control() = %#02x, want %#02x", tt.voice, got, tt.want)
		}
	}
}

func TestClockRate(t *testing.T) {
	tests := []struct {
		clock   string
		want    uint32
		wantErr bool
	}{
		{"", sid.ClockPAL, false},
		{"PAL", sid.ClockPAL, false},
		{"ntsc", sid.ClockNTSC, false},
		{"2000000", 2000000, false},
		{"10", 0, true},
		{"fast", 0, true},
	}
	for _, tt := range tests {
		got, err := GeneralConfig{Clock: tt.clock}.ClockRate()
		if (err != nil) != tt.wantErr {
			t.Errorf("ClockRate(%q) error = %v, wantErr %t", tt.clock, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ClockRate(%q) = %d, want %d", tt.clock, got, tt.want)
		}
	}
}
