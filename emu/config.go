package emu

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"sidosc/emu/log"
	"sidosc/hw/audio"
	"sidosc/hw/hwdefs"
	"sidosc/hw/sid"
)

type Config struct {
	General GeneralConfig `toml:"general"`
	Audio   AudioConfig   `toml:"audio"`
	Chips   []ChipConfig  `toml:"chip"`
}

type GeneralConfig struct {
	// Master clock: "pal", "ntsc" or a frequency in Hz.
	Clock string `toml:"clock"`
	// Clocking mode: "cycle" for single cycle clocking, "batch" to clock
	// BatchSize cycles at once.
	Clocking  string `toml:"clocking"`
	BatchSize int32  `toml:"batch_size"`
}

type AudioConfig struct {
	SampleRate uint32  `toml:"sample_rate"`
	Gain       float64 `toml:"gain"`
	// Playback backend: "sdl" or "oto".
	Backend string `toml:"backend"`
}

type ChipConfig struct {
	Model  sid.ChipModel `toml:"model"`
	Voices []VoiceConfig `toml:"voice"`
}

type VoiceConfig struct {
	FreqHz     float64  `toml:"freq_hz"`
	PulseWidth uint16   `toml:"pulse_width"`
	Waveforms  []string `toml:"waveforms"`
	Ring       bool     `toml:"ring"`
	Sync       bool     `toml:"sync"`
	Test       bool     `toml:"test"`
	Volume     *float64 `toml:"volume,omitempty"`
	Pan        float64  `toml:"pan"`
}

const (
	ClockingCycle = "cycle"
	ClockingBatch = "batch"

	BackendSDL = "sdl"
	BackendOto = "oto"
)

// DefaultConfig is a single 6581 playing a 440Hz sawtooth on voice 1.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Clock:     "pal",
			Clocking:  ClockingCycle,
			BatchSize: 64,
		},
		Audio: AudioConfig{
			SampleRate: 48000,
			Gain:       1,
			Backend:    BackendSDL,
		},
		Chips: []ChipConfig{
			{
				Model: sid.MOS6581,
				Voices: []VoiceConfig{
					{FreqHz: 440, Waveforms: []string{"sawtooth"}},
				},
			},
		},
	}
}

const cfgFilename = "config.toml"

// DefaultConfigPath returns the path of the configuration file in the user
// configuration directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sidosc", cfgFilename)
}

// LoadConfig loads and checks the configuration at path. Unset values take
// their default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Chips = nil

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		log.ModConfig.WarnZ("unknown config keys").
			String("path", path).
			String("keys", fmt.Sprint(undec)).
			End()
	}
	if len(cfg.Chips) == 0 {
		cfg.Chips = DefaultConfig().Chips
	}
	if err := cfg.Check(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigOrDefault loads the configuration at path, or provides the
// default one if it can't be loaded.
func LoadConfigOrDefault(path string) Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.ModConfig.Warnf("using default config: %v", err)
		}
		return DefaultConfig()
	}
	return cfg
}

// SaveConfig writes cfg at path, creating the directory if needed.
func SaveConfig(path string, cfg Config) error {
	buf, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

// Check validates the configuration.
func (cfg *Config) Check() error {
	if _, err := cfg.General.ClockRate(); err != nil {
		return err
	}
	switch cfg.General.Clocking {
	case ClockingCycle:
	case ClockingBatch:
		if cfg.General.BatchSize <= 0 || cfg.General.BatchSize > audio.CycleLength {
			return fmt.Errorf("invalid batch size %d", cfg.General.BatchSize)
		}
	default:
		return fmt.Errorf("invalid clocking mode %q", cfg.General.Clocking)
	}

	if cfg.Audio.SampleRate == 0 || cfg.Audio.SampleRate > audio.MaxSampleRate {
		return fmt.Errorf("invalid sample rate %d", cfg.Audio.SampleRate)
	}
	switch cfg.Audio.Backend {
	case BackendSDL, BackendOto:
	default:
		return fmt.Errorf("invalid audio backend %q", cfg.Audio.Backend)
	}

	if len(cfg.Chips) == 0 {
		return errors.New("no chip")
	}
	for i, chip := range cfg.Chips {
		if len(chip.Voices) > hwdefs.NumVoices {
			return fmt.Errorf("chip %d: too many voices (%d)", i, len(chip.Voices))
		}
		for j, v := range chip.Voices {
			if _, err := v.Control(); err != nil {
				return fmt.Errorf("chip %d voice %d: %w", i, j, err)
			}
			if v.FreqHz < 0 {
				return fmt.Errorf("chip %d voice %d: negative frequency", i, j)
			}
		}
	}
	return nil
}

// ClockRate returns the master clock frequency in Hz.
func (g GeneralConfig) ClockRate() (uint32, error) {
	switch strings.ToLower(g.Clock) {
	case "pal", "":
		return sid.ClockPAL, nil
	case "ntsc":
		return sid.ClockNTSC, nil
	}
	hz, err := strconv.ParseUint(g.Clock, 10, 32)
	if err != nil || hz < 60 {
		return 0, fmt.Errorf("invalid clock %q", g.Clock)
	}
	return uint32(hz), nil
}

var waveformBits = map[string]uint8{
	"triangle": hwdefs.Triangle,
	"tri":      hwdefs.Triangle,
	"sawtooth": hwdefs.Sawtooth,
	"saw":      hwdefs.Sawtooth,
	"pulse":    hwdefs.Pulse,
	"noise":    hwdefs.Noise,
}

// Control returns the control register value for the voice.
func (v VoiceConfig) Control() (uint8, error) {
	var ctrl uint8
	for _, name := range v.Waveforms {
		bit, ok := waveformBits[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown waveform %q", name)
		}
		ctrl |= bit
	}
	if v.Ring {
		ctrl |= hwdefs.RingMod
	}
	if v.Sync {
		ctrl |= hwdefs.Sync
	}
	if v.Test {
		ctrl |= hwdefs.Test
	}
	return ctrl, nil
}

// VolumeOrDefault returns the voice volume, full volume if unset.
func (v VoiceConfig) VolumeOrDefault() float64 {
	if v.Volume == nil {
		return 1
	}
	return *v.Volume
}
