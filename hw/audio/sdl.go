package audio

import (
	"fmt"

	"github.com/veandco/go-sdl2/sdl"

	"sidosc/emu/log"
)

const AudioFormat = sdl.AUDIO_S16LSB

// SDLSink plays samples on the default SDL audio device.
type SDLSink struct {
	dev       sdl.AudioDeviceID
	maxQueued uint32
}

func NewSDLSink(sampleRate int) (*SDLSink, error) {
	if err := sdl.InitSubSystem(sdl.INIT_AUDIO); err != nil {
		return nil, fmt.Errorf("sdl audio init: %w", err)
	}

	spec := &sdl.AudioSpec{
		Freq:     int32(sampleRate),
		Format:   AudioFormat,
		Channels: AudioChannels,
		Samples:  AudioBufferSize,
	}
	var obtained sdl.AudioSpec
	dev, err := sdl.OpenAudioDevice("", false, spec, &obtained, 0)
	if err != nil {
		sdl.QuitSubSystem(sdl.INIT_AUDIO)
		return nil, fmt.Errorf("sdl open audio device: %w", err)
	}

	log.ModSound.InfoZ("audio device opened").
		Int32("freq", obtained.Freq).
		Uint8("channels", obtained.Channels).
		Uint16("samples", obtained.Samples).
		End()

	sdl.PauseAudioDevice(dev, false)
	return &SDLSink{
		dev: dev,
		// Keep about 1/10th of a second queued.
		maxQueued: uint32(sampleRate/10) * AudioChannels * BitsPerSample / 8,
	}, nil
}

// Queue queues samples for playback. It blocks while the device queue is
// full, effectively pacing the caller to real time.
func (s *SDLSink) Queue(samples []int16) error {
	for sdl.GetQueuedAudioSize(s.dev) > s.maxQueued {
		sdl.Delay(1)
	}
	if err := sdl.QueueAudio(s.dev, asBytes(samples)); err != nil {
		log.ModSound.DebugZ("failed to queue audio buffer").Error("err", err).End()
		return fmt.Errorf("sdl queue audio: %w", err)
	}
	return nil
}

func (s *SDLSink) Close() error {
	// Let the queued samples play.
	for sdl.GetQueuedAudioSize(s.dev) > 0 {
		sdl.Delay(10)
	}
	sdl.CloseAudioDevice(s.dev)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
	return nil
}
