package audio

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"

	"sidosc/emu/log"
)

// OtoSink plays samples with oto. Samples are streamed to the player through
// a pipe, so Queue blocks until the player consumed them.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player
	pw     *io.PipeWriter
}

func NewOtoSink(sampleRate int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: AudioChannels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("oto context: %w", err)
	}
	<-ready

	pr, pw := io.Pipe()
	player := ctx.NewPlayer(pr)
	player.Play()

	log.ModSound.InfoZ("oto player started").Int("rate", sampleRate).End()
	return &OtoSink{ctx: ctx, player: player, pw: pw}, nil
}

func (s *OtoSink) Queue(samples []int16) error {
	if _, err := s.pw.Write(asBytes(samples)); err != nil {
		return fmt.Errorf("oto queue: %w", err)
	}
	return nil
}

func (s *OtoSink) Close() error {
	for s.player.BufferedSize() > 0 {
		time.Sleep(10 * time.Millisecond)
	}
	s.player.Pause()
	err := s.pw.Close()
	if perr := s.player.Err(); perr != nil && err == nil {
		err = perr
	}
	return err
}
