package audio

import (
	"slices"

	"github.com/arl/blip"

	"sidosc/emu/log"
	"sidosc/hw/hwdefs"
)

const MaxSampleRate = 96000

// Frames are at most CycleLength cycles long, which is more than a 60Hz
// frame at any C64 clock rate.
const CycleLength = 20000

const maxSamplesPerFrame = MaxSampleRate / 50 * 2 // x2 for stereo

const (
	AudioChannels   = 2
	AudioBufferSize = 2048
	BitsPerSample   = 16
)

// Mixer converts the outputs of the 3 voices, which change at the chip clock
// rate, into 16-bit stereo samples at the output sample rate. Outputs are
// recorded as timestamped deltas during a frame, then band-limited
// synthesis resamples them at the end of the frame.
type Mixer struct {
	outbuf   [maxSamplesPerFrame]int16
	bufleft  *blip.Buffer
	bufright *blip.Buffer

	prevOutleft  int16
	prevOutright int16

	hasPanning bool
	gain       float64

	volumes [hwdefs.NumVoices]float64
	// 0 is full left, 1 is center and 2 is full right.
	panning [hwdefs.NumVoices]float64

	timestamps []uint32
	chanoutput [hwdefs.NumVoices][CycleLength]int16
	curOutput  [hwdefs.NumVoices]int16
	lastOutput [hwdefs.NumVoices]int16

	clockRate  uint32
	sampleRate uint32
}

func NewMixer(clockRate, sampleRate uint32) *Mixer {
	am := &Mixer{
		bufleft:    blip.NewBuffer(maxSamplesPerFrame),
		bufright:   blip.NewBuffer(maxSamplesPerFrame),
		clockRate:  clockRate,
		sampleRate: min(sampleRate, MaxSampleRate),
	}
	am.Reset()
	return am
}

func (am *Mixer) Reset() {
	am.prevOutleft = 0
	am.prevOutright = 0
	am.bufleft.Clear()
	am.bufright.Clear()
	am.timestamps = am.timestamps[:0]

	am.gain = 1
	for i := range hwdefs.NumVoices {
		am.volumes[i] = 1.0
		am.panning[i] = 1.0
	}
	am.hasPanning = false
	for i := range am.chanoutput {
		clear(am.chanoutput[i][:])
	}
	clear(am.curOutput[:])
	clear(am.lastOutput[:])

	am.updateRates()
}

func (am *Mixer) SampleRate() uint32 { return am.sampleRate }

func (am *Mixer) updateRates() {
	am.bufleft.SetRates(float64(am.clockRate), float64(am.sampleRate))
	am.bufright.SetRates(float64(am.clockRate), float64(am.sampleRate))
}

// SetGain sets the global output gain.
func (am *Mixer) SetGain(gain float64) { am.gain = gain }

// SetVolume sets the volume of a voice, in [0, 1].
func (am *Mixer) SetVolume(ch int, vol float64) {
	am.volumes[ch] = min(max(vol, 0), 1)
}

// SetPanning sets the stereo position of a voice, from -1 (left) to 1
// (right).
func (am *Mixer) SetPanning(ch int, pan float64) {
	am.panning[ch] = 1 + min(max(pan, -1), 1)

	hasPanning := false
	for i := range hwdefs.NumVoices {
		if am.panning[i] != 1.0 {
			hasPanning = true
		}
	}
	if hasPanning && !am.hasPanning {
		am.bufleft.Clear()
		am.bufright.Clear()
		am.prevOutleft = 0
		am.prevOutright = 0
	}
	am.hasPanning = hasPanning
}

// SetOutput records the output of a voice at the given cycle of the current
// frame.
func (am *Mixer) SetOutput(ch int, time uint32, out int16) {
	am.addDelta(ch, time, out-am.lastOutput[ch])
	am.lastOutput[ch] = out
}

func (am *Mixer) addDelta(ch int, time uint32, delta int16) {
	if delta == 0 {
		return
	}
	if time >= CycleLength {
		log.ModSound.WarnZ("delta after end of frame").
			Int("voice", ch).
			Uint32("time", time).
			End()
		time = CycleLength - 1
	}
	am.timestamps = append(am.timestamps, time)
	am.chanoutput[ch][time] += delta
}

func (am *Mixer) channelOutput(ch int, right bool) float64 {
	if right {
		return float64(am.curOutput[ch]) * am.volumes[ch] * am.panning[ch]
	}
	return float64(am.curOutput[ch]) * am.volumes[ch] * (2.0 - am.panning[ch])
}

// outputVolume is the mix of the 3 voices, scaled to use most of the 16-bit
// range when all voices are at full amplitude.
func (am *Mixer) outputVolume(isRight bool) int16 {
	var sum float64
	for ch := range hwdefs.NumVoices {
		sum += am.channelOutput(ch, isRight)
	}
	v := sum * 4 / hwdefs.NumVoices * am.gain
	return int16(min(max(v, -32768), 32767))
}

// EndFrame ends the current frame, time is its duration in cycles.
func (am *Mixer) EndFrame(time uint32) {
	// Remove duplicates.
	slices.Sort(am.timestamps)
	am.timestamps = slices.Compact(am.timestamps)

	for _, stamp := range am.timestamps {
		for j := range hwdefs.NumVoices {
			am.curOutput[j] += am.chanoutput[j][stamp]
		}

		currentOut := am.outputVolume(false)
		am.bufleft.AddDelta(uint64(stamp), int32(currentOut)-int32(am.prevOutleft))
		am.prevOutleft = currentOut

		if am.hasPanning {
			currentOut = am.outputVolume(true)
			am.bufright.AddDelta(uint64(stamp), int32(currentOut)-int32(am.prevOutright))
			am.prevOutright = currentOut
		}
	}

	am.bufleft.EndFrame(int(time))
	if am.hasPanning {
		am.bufright.EndFrame(int(time))
	}

	// Reset everything.
	for _, stamp := range am.timestamps {
		for j := range hwdefs.NumVoices {
			am.chanoutput[j][stamp] = 0
		}
	}
	am.timestamps = am.timestamps[:0]
}

// ReadSamples reads the samples of the last frame, as interleaved stereo.
// The returned slice is only valid until the next call.
func (am *Mixer) ReadSamples() []int16 {
	out := am.outbuf[:]
	n := am.bufleft.ReadSamples(out, maxSamplesPerFrame/2, blip.Stereo)

	if am.hasPanning {
		am.bufright.ReadSamples(out[1:], maxSamplesPerFrame/2, blip.Stereo)
	} else {
		// When no panning, just copy the left channel to the right one.
		for i := 0; i < n*2; i += 2 {
			out[i+1] = out[i]
		}
	}
	return out[:n*2]
}
