package sid

import "testing"

func TestDACOutput(t *testing.T) {
	tests := []struct {
		model ChipModel
		code  uint16
		want  uint16
	}{
		{MOS6581, 0x000, 0},
		{MOS6581, 0xfff, 4095},
		{MOS8580, 0x000, 0},
		{MOS8580, 0x001, 1},
		{MOS8580, 0x800, 2048},
		{MOS8580, 0xfff, 4094},
		{MOS8580, 0x1800, 2048}, // extra bits ignored
	}
	for _, tt := range tests {
		if got := DACOutput(tt.model, tt.code); got != tt.want {
			t.Errorf("%v DACOutput(%03x) = %d, want %d", tt.model, tt.code, got, tt.want)
		}
		if got := DACOutput(tt.model, tt.code); got != tt.want {
			t.Errorf("%v DACOutput(%03x) not stable: %d", tt.model, tt.code, got)
		}
	}
}

func TestDACMonotonic(t *testing.T) {
	// The 8580 ladder is terminated and has a proper 2R/R ratio.
	for i := range uint16(0xfff) {
		if DACOutput(MOS8580, i) > DACOutput(MOS8580, i+1) {
			t.Fatalf("8580 DAC not monotonic at %03x", i)
		}
	}

	// The 6581 one is not: the MSB alone weighs less than all other bits.
	if DACOutput(MOS6581, 0x7ff) <= DACOutput(MOS6581, 0x800) {
		t.Errorf("6581 DAC: %03x -> %d, %03x -> %d", 0x7ff, DACOutput(MOS6581, 0x7ff), 0x800, DACOutput(MOS6581, 0x800))
	}
}
