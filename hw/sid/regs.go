package sid

import (
	"sidosc/emu/log"
	"sidosc/hw/hwdefs"
	"sidosc/hw/hwio"
)

// voiceRegs holds the oscillator registers of one voice. Attack/decay and
// sustain/release (offsets 5 and 6) belong to the envelope generator and
// are left unmapped.
type voiceRegs struct {
	FREQLO  hwio.Reg8 `hwio:"offset=0x0,writeonly,wcb"`
	FREQHI  hwio.Reg8 `hwio:"offset=0x1,writeonly,wcb"`
	PWLO    hwio.Reg8 `hwio:"offset=0x2,writeonly,wcb"`
	PWHI    hwio.Reg8 `hwio:"offset=0x3,writeonly,wcb"`
	CONTROL hwio.Reg8 `hwio:"offset=0x4,writeonly,wcb"`

	chip  *Chip
	voice int
}

func (r *voiceRegs) reset() {
	r.FREQLO.Value = 0
	r.FREQHI.Value = 0
	r.PWLO.Value = 0
	r.PWHI.Value = 0
	r.CONTROL.Value = 0
}

func (r *voiceRegs) WriteFREQLO(_, val uint8) {
	r.chip.voices[r.voice].writeFreqLo(val)
}

func (r *voiceRegs) WriteFREQHI(_, val uint8) {
	r.chip.voices[r.voice].writeFreqHi(val)
}

func (r *voiceRegs) WritePWLO(_, val uint8) {
	r.chip.voices[r.voice].writePWLo(val)
}

func (r *voiceRegs) WritePWHI(_, val uint8) {
	r.chip.voices[r.voice].writePWHi(val)
}

func (r *voiceRegs) WriteCONTROL(old, val uint8) {
	log.ModHwIo.DebugZ("control").
		Int("voice", r.voice).
		Hex8("old", old).
		Hex8("val", val).
		End()
	// Gate drives the envelope generator, which isn't emulated.
	hwio.ClearBit8(&val, hwdefs.GateBit)
	r.chip.WriteControl(r.voice, val)
}

// ReadOSC3 returns the upper 8 bits of voice 3 waveform output.
func (c *Chip) ReadOSC3(_ uint8) uint8 {
	return c.voices[2].ReadOSC()
}

func (c *Chip) initBus() {
	c.Bus = hwio.NewTable("sid")
	for i := range c.regs {
		c.regs[i].chip = c
		c.regs[i].voice = i
		hwio.MustInitRegs(&c.regs[i])
		c.Bus.MapBank(uint16(i*hwdefs.VoiceRegsSize), &c.regs[i], 0)
	}
	hwio.MustInitRegs(c)
	c.Bus.MapBank(0, c, 0)
}

// Write8 writes a SID register, addr is the offset in the register file,
// which is mirrored every hwdefs.RegWindow bytes.
func (c *Chip) Write8(addr uint16, val uint8) {
	addr %= hwdefs.RegWindow
	if addr >= hwdefs.NumRegs {
		return
	}
	c.Bus.Write8(addr, val)
}

// Read8 reads a SID register, addr is the offset in the register file,
// which is mirrored every hwdefs.RegWindow bytes. Unused offsets read as 0.
func (c *Chip) Read8(addr uint16) uint8 {
	addr %= hwdefs.RegWindow
	if addr >= hwdefs.NumRegs {
		return 0
	}
	return c.Bus.Read8(addr, false)
}
