package audio

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"sidosc/emu/log"
)

const wavFormatPCM = 1

// WAVSink writes samples to a 16-bit stereo PCM WAV stream.
type WAVSink struct {
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	closer io.Closer
	frames int
}

func NewWAVSink(w io.WriteSeeker, sampleRate int) *WAVSink {
	return &WAVSink{
		enc: wav.NewEncoder(w, sampleRate, BitsPerSample, AudioChannels, wavFormatPCM),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: AudioChannels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: BitsPerSample,
		},
	}
}

// CreateWAVFile creates a WAV file at path. The file is closed with the sink.
func CreateWAVFile(path string, sampleRate int) (*WAVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("wav sink: %w", err)
	}
	s := NewWAVSink(f, sampleRate)
	s.closer = f
	return s, nil
}

func (s *WAVSink) Queue(samples []int16) error {
	s.buf.Data = s.buf.Data[:0]
	for _, v := range samples {
		s.buf.Data = append(s.buf.Data, int(v))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return fmt.Errorf("wav sink: %w", err)
	}
	s.frames += len(samples) / AudioChannels
	return nil
}

// Close writes the WAV header and closes the underlying file if any.
func (s *WAVSink) Close() error {
	err := s.enc.Close()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	log.ModSound.InfoZ("wav written").Int("frames", s.frames).End()
	if err != nil {
		return fmt.Errorf("wav sink: %w", err)
	}
	return nil
}
