package hwdefs

// NumVoices is the number of oscillators in a SID chip.
const NumVoices = 3

// Register file layout. The register file is mirrored every RegWindow bytes;
// offsets NumRegs and above in a window aren't mapped.
const (
	RegWindow     = 0x20
	NumRegs       = 0x1D
	VoiceRegsSize = 7
	OSC3          = 0x1B
)

// Offsets of the oscillator registers within a voice register block.
const (
	FreqLo  = 0x0
	FreqHi  = 0x1
	PWLo    = 0x2
	PWHi    = 0x3
	Control = 0x4
)

// Control register bits.
const (
	Gate     = 0x01
	Sync     = 0x02
	RingMod  = 0x04
	Test     = 0x08
	Triangle = 0x10
	Sawtooth = 0x20
	Pulse    = 0x40
	Noise    = 0x80
)

// Bit numbers of the control register flags, for the hwio bit helpers.
const (
	GateBit     = 0
	SyncBit     = 1
	RingModBit  = 2
	TestBit     = 3
	SawtoothBit = 5
)
