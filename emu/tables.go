package emu

import (
	"io"

	"github.com/go-faster/jx"

	"sidosc/hw/sid"
)

// waveNames names the waveform selectors of the combination tables.
var waveNames = [8]string{
	"none", "triangle", "sawtooth", "sawtooth+triangle",
	"pulse", "pulse+triangle", "pulse+sawtooth", "pulse+sawtooth+triangle",
}

// WriteTables writes the DAC and waveform tables of a chip model as JSON.
func WriteTables(w io.Writer, model sid.ChipModel) error {
	var e jx.Encoder
	e.SetIdent(1)
	e.Obj(func(e *jx.Encoder) {
		e.Field("model", func(e *jx.Encoder) { e.Str(model.String()) })
		e.Field("dac", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for code := range uint16(1 << 12) {
					e.UInt16(sid.DACOutput(model, code))
				}
			})
		})
		e.Field("waves", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for sel, name := range waveNames {
					e.Field(name, func(e *jx.Encoder) {
						e.Arr(func(e *jx.Encoder) {
							for ix := range uint16(1 << 12) {
								e.UInt16(sid.WaveTable(model, uint8(sel), ix))
							}
						})
					})
				}
			})
		})
	})
	_, err := w.Write(e.Bytes())
	return err
}
