package emu

import (
	"fmt"
	"image"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"sidosc/hw/hwdefs"
	"sidosc/hw/sid"
)

const (
	plotWidth  = 1280
	plotHeight = 480
)

// VoiceTrace holds the DAC output of a voice, one point per cycle.
type VoiceTrace plotter.XYs

// TraceVoices clocks chip one cycle at a time and records the output of
// each voice.
func TraceVoices(chip *sid.Chip, cycles int) [hwdefs.NumVoices]VoiceTrace {
	var traces [hwdefs.NumVoices]VoiceTrace
	for i := range traces {
		traces[i] = make(VoiceTrace, cycles)
	}
	for t := range cycles {
		chip.Clock()
		for i := range traces {
			traces[i][t].X = float64(t)
			traces[i][t].Y = float64(chip.VoiceOutput(i))
		}
	}
	return traces
}

// PlotVoices runs the chip of index chipIdx in cfg for the given number of
// cycles and writes a PNG plot of the programmed voice outputs to w.
func PlotVoices(w io.Writer, cfg Config, chipIdx, cycles int) error {
	r, err := NewRenderer(cfg)
	if err != nil {
		return err
	}
	if chipIdx < 0 || chipIdx >= r.NumChips() {
		return fmt.Errorf("no chip %d", chipIdx)
	}
	if cycles <= 0 {
		return fmt.Errorf("invalid cycle count %d", cycles)
	}

	chip := r.Chip(chipIdx)
	traces := TraceVoices(chip, cycles)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%v voice outputs", chip.Model())
	p.X.Label.Text = "cycle"
	p.Y.Label.Text = "DAC output"
	p.Add(plotter.NewGrid())

	nvoices := len(cfg.Chips[chipIdx].Voices)
	for i := range nvoices {
		line, err := plotter.NewLine(plotter.XYs(traces[i]))
		if err != nil {
			return fmt.Errorf("voice %d: %w", i, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("voice %d", i+1), line)
	}

	img := image.NewRGBA(image.Rect(0, 0, plotWidth, plotHeight))
	c := vgimg.NewWith(vgimg.UseImage(img))
	p.Draw(draw.New(c))

	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}
