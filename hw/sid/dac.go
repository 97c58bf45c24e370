package sid

import (
	"math"
	"sync"

	"sidosc/emu/log"
)

const dacBits = 12

type dacTable [1 << dacBits]uint16

// ladder describes the R-2R resistor ladder of a chip model DAC.
type ladder struct {
	ratio float64 // 2R/R
	term  bool    // whether the ladder has a termination resistor
}

// The 6581 ladder has no termination resistor and 2R/R is off by ~10%,
// which makes the DAC non-monotonic. The 8580 DAC is close to ideal.
var ladders = [numModels]ladder{
	MOS6581: {ratio: 2.20, term: false},
	MOS8580: {ratio: 2.00, term: true},
}

var dacTables = sync.OnceValue(func() *[numModels]dacTable {
	var tables [numModels]dacTable
	for m := range ChipModel(numModels) {
		buildDAC(&tables[m], ladders[m])
	}
	log.ModDAC.InfoZ("built dac tables").End()
	return &tables
})

// DACOutput returns the analog level, scaled to 0..4095, produced by the
// DAC of the given model for a 12-bit digital input.
func DACOutput(model ChipModel, code uint16) uint16 {
	return dacTables()[model][code&0xfff]
}

// buildDAC computes the output of the ladder for each input code. The
// voltage of each bit is found alone by repeated source transformation,
// then every code is the superposition of the voltages of its set bits.
func buildDAC(dac *dacTable, l ladder) {
	var vbit [dacBits]float64

	inf := math.Inf(1)
	for set := range dacBits {
		vn := 1.0
		r := 1.0
		r2 := l.ratio * r
		rn := inf
		if l.term {
			rn = r2
		}

		// Tail resistance, by repeated parallel substitution.
		bit := 0
		for ; bit < set; bit++ {
			if math.IsInf(rn, 1) {
				rn = r + r2
			} else {
				rn = r + r2*rn/(r2+rn)
			}
		}

		// Source transformation for the bit voltage.
		if math.IsInf(rn, 1) {
			rn = r2
		} else {
			rn = r2 * rn / (r2 + rn)
			vn = vn * rn / r2
		}

		// Output voltage, by repeated source transformation from the tail.
		for bit++; bit < dacBits; bit++ {
			rn += r
			i := vn / rn
			rn = r2 * rn / (r2 + rn)
			vn = rn * i
		}

		vbit[set] = vn
	}

	for i := range len(dac) {
		vo := 0.0
		for j := range dacBits {
			if i&(1<<j) != 0 {
				vo += vbit[j]
			}
		}
		v := float64(len(dac)-1)*vo + 0.5
		dac[i] = uint16(min(v, math.MaxUint16))
	}
}
