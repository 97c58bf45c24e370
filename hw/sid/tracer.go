package sid

import (
	"fmt"
	"io"
)

// A Tracer writes the oscillator state of a chip, one line per call.
type Tracer struct {
	w   io.Writer
	buf []byte
}

func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w, buf: make([]byte, 0, traceLineLen+24)}
}

func hexEncode(dst []byte, v byte) {
	const hextable = "0123456789ABCDEF"
	dst[0] = hextable[v>>4]
	dst[1] = hextable[v&0x0f]
}

func appendHex24(buf []byte, v uint32) []byte {
	var tmp [6]byte
	hexEncode(tmp[0:], byte(v>>16))
	hexEncode(tmp[2:], byte(v>>8))
	hexEncode(tmp[4:], byte(v))
	return append(buf, tmp[:]...)
}

func appendHex12(buf []byte, v uint16) []byte {
	var tmp [4]byte
	hexEncode(tmp[0:], byte(v>>8))
	hexEncode(tmp[2:], byte(v))
	return append(buf, tmp[1:]...)
}

// Length of the voices part of a trace line.
const traceLineLen = 3 * 32

// Trace writes the state of the 3 voices of c, then the cycle number:
//
//	V1 A:0ABCDE S:7FFFFF O:ABC C:21  V2 ...  V3 ...  CYC:1234
//
// A is the accumulator, S the noise shift register, O the waveform output
// and C the control register (gate excluded).
func (t *Tracer) Trace(cycle uint64, c *Chip) error {
	buf := t.buf[:0]
	for i := range c.voices {
		o := &c.voices[i]
		buf = append(buf, 'V', byte('1'+i), ' ', 'A', ':')
		buf = appendHex24(buf, o.accumulator)
		buf = append(buf, " S:"...)
		buf = appendHex24(buf, o.shiftRegister)
		buf = append(buf, " O:"...)
		buf = appendHex12(buf, o.waveformOutput)
		buf = append(buf, " C:"...)
		var ctrl [2]byte
		hexEncode(ctrl[:], o.Control())
		buf = append(buf, ctrl[:]...)
		buf = append(buf, ' ', ' ')
	}
	buf = fmt.Appendf(buf, "CYC:%d\n", cycle)
	t.buf = buf

	_, err := t.w.Write(buf)
	return err
}
