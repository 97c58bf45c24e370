package sid

import (
	"math/bits"
	"sync"

	"sidosc/emu/log"
)

// waveTable maps the 12 upper accumulator bits to the waveform output for a
// waveform selector value (noise bit excluded). Tables for selectors with
// pulse hold the output to be masked by the pulse level.
type waveTable [1 << 12]uint16

// waveTables returns the waveform tables of both chip models, indexed by
// model then by the lower 3 bits of the waveform selector.
var waveTables = sync.OnceValue(func() *[numModels][8]waveTable {
	var tables [numModels][8]waveTable
	for m := range ChipModel(numModels) {
		buildWaveTables(m, &tables[m])
	}
	log.ModWave.InfoZ("built waveform tables").End()
	return &tables
})

// WaveTable returns the output of the waveform combination table of the
// given model for a waveform selector (noise bit ignored) and a 12-bit
// accumulator index.
func WaveTable(model ChipModel, selector uint8, ix uint16) uint16 {
	return waveTables()[model][selector&7][ix&0xfff]
}

func buildWaveTables(model ChipModel, t *[8]waveTable) {
	for i := range uint16(1 << 12) {
		tri := triangle(i)
		saw := i

		t[0][i] = 0xfff
		t[1][i] = tri
		t[2][i] = saw
		t[3][i] = sawTriangle(model, i)
		t[4][i] = 0xfff
		t[5][i] = pulseCombined(model, tri)
		t[6][i] = pulseCombined(model, saw)
		t[7][i] = pulseSawTriangle(model, i)
	}
}

// triangle is the accumulator MSB EOR'ed into the next 11 bits, shifted up
// by one.
func triangle(ix uint16) uint16 {
	if ix&0x800 != 0 {
		ix = ^ix
	}
	return (ix << 1) & 0xffe
}

// pulseCombined approximates pulse+triangle and pulse+sawtooth. The pulse
// line pulls down the other waveform's bits, only long runs of ones starting
// at the top bit survive, shortened at their lower end. The 8580 pulls down
// less strongly than the 6581.
func pulseCombined(model ChipModel, w uint16) uint16 {
	minRun, drop := 8, 2
	if model == MOS8580 {
		minRun, drop = 6, 1
	}

	run := bits.LeadingZeros16(^(w << 4))
	if run < minRun {
		return 0
	}
	keep := run - drop
	top := uint16(0xfff<<(12-keep)) & 0xfff
	return w & top & 0xff0
}

// and12 returns 1 when all bits in mask are set in x.
func and12(x, mask uint16) uint16 {
	if x&mask == mask {
		return 1
	}
	return 0
}

// anyOf returns 1 when x matches any of the product terms.
func anyOf(x uint16, terms ...uint16) uint16 {
	for _, m := range terms {
		if x&m == m {
			return 1
		}
	}
	return 0
}

// sawTriangle returns sawtooth+triangle output as sums of products per
// output bit, minimized from OSC3 samples.
func sawTriangle(model ChipModel, x uint16) uint16 {
	if model == MOS6581 {
		return and12(x, 0x7fc)<<10 |
			anyOf(x, 0x7e0, 0x3fe)<<9 |
			anyOf(x, 0x7e0, 0x5ff, 0x3f0)<<8 |
			anyOf(x, 0x7e0, 0x1f8, 0x3f0)<<7 |
			anyOf(x, 0x0fc, 0x1f8, 0x3f0)<<6 |
			anyOf(x, 0x07e, 0x1f8, 0x0fc)<<5 |
			anyOf(x, 0x13f, 0x07e, 0x7fa, 0x0bf, 0x0fc)<<4
	}

	return anyOf(x, 0xe7e, 0xe80, 0xf00, 0xe7d)<<11 |
		anyOf(x, 0x7f8, 0xf00)<<10 |
		anyOf(x, 0x7e0, 0xf0f, 0xf1b, 0xbfe, 0xf1e, 0xf40, 0xf30, 0xf29, 0xf26, 0xf80)<<9 |
		anyOf(x, 0x7e0, 0x3f0, 0xdfe, 0x5ff, 0xf80)<<8 |
		anyOf(x, 0x7e0, 0x3f0, 0xfc0, 0x1f8, 0xeff)<<7 |
		anyOf(x, 0x0fc, 0x1f8, 0x3f0, 0xfe0)<<6 |
		anyOf(x, 0x07e, 0xff0, 0x7f7, 0x1f8, 0x0fc)<<5 |
		anyOf(x, 0xdbf, 0x0fc, 0x3fa, 0x7f8, 0x3bf, 0x07e)<<4
}

// pulseSawTriangle returns pulse+sawtooth+triangle output (before pulse
// masking), built the same way as sawTriangle.
func pulseSawTriangle(model ChipModel, x uint16) uint16 {
	if model == MOS6581 {
		return anyOf(x, 0x7fc, 0x7fb)<<10 |
			anyOf(x, 0x7ef, 0x7f7, 0x7fc, 0x7fb, 0x3ff)<<9 |
			anyOf(x, 0x7fc, 0x3ff, 0x7f7, 0x7fb)<<8 |
			anyOf(x, 0x7fc, 0x3ff, 0x7fb)<<7 |
			anyOf(x, 0x7fd, 0x3ff, 0x7fe)<<6 |
			anyOf(x, 0x7fd, 0x3ff, 0x7fe)<<5 |
			anyOf(x, 0x3ff, 0x7fe)<<4
	}

	return anyOf(x, 0xe89, 0xe3e, 0xec0, 0xe8a, 0xdf7, 0xdf8, 0xe85, 0xe6a, 0xe90, 0xe83, 0xe67, 0xea0, 0xf00, 0xe5e, 0xe70, 0xe6c)<<11 |
		anyOf(x, 0xeee, 0x7ef, 0x7f2, 0x7f4, 0xef0, 0x7f8, 0xf00, 0x7f1)<<10 |
		anyOf(x, 0xf78, 0x7f0, 0x7ee, 0xf74, 0xf6f, 0xf80, 0xbff)<<9 |
		anyOf(x, 0xdff, 0xbfe, 0x7ef, 0x7f2, 0x3ff, 0x7f4, 0xfc0, 0xfb8, 0x7f8, 0xfb6)<<8 |
		anyOf(x, 0xbfe, 0xfdc, 0xdfe, 0x7f7, 0xfda, 0xbfd, 0x7f8, 0x3ff, 0xfe0, 0xeff)<<7 |
		anyOf(x, 0xfeb, 0x7fa, 0xbfe, 0xdfe, 0xff0, 0x7fc, 0x3ff, 0xfec, 0xeff)<<6 |
		anyOf(x, 0xff6, 0xdff, 0xf7f, 0xbfe, 0x7fc, 0xff5, 0x3ff, 0xff8, 0xeff)<<5 |
		anyOf(x, 0xdff, 0xf7f, 0xffa, 0x7fe, 0xff9, 0xffc, 0x3ff, 0xeff)<<4
}
