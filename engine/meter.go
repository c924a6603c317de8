package engine

import (
	"math"

	"github.com/viterin/vek/vek32"
)

type (
	Decibel float32

	PeakType int

	// PeakResult holds the true peaks of the left and right channel of the
	// output, in dBFS.
	PeakResult [NumPeakTypes][2]Decibel

	// peakMeter measures the true peak of the limited output. The output is
	// analyzed in blocks of 100 ms; the momentary peak is the maximum of the
	// last 4 blocks and the integrated peak the maximum since the engine was
	// created.
	peakMeter struct {
		states  [2]oversamplerState
		windows [2]ringBuffer[float32]
		maxPeak [2]float32
		pending [2][]float32
		block   int
		result  PeakResult
		tmp     []float32
		tmp2    []float32
	}

	oversamplerState struct {
		history   [11]float32
		tmp, tmp2 []float32
	}

	ringBuffer[T any] struct {
		Buffer []T
		Cursor int
	}
)

const (
	PeakMomentary PeakType = iota
	PeakIntegrated
	NumPeakTypes
)

// silence is what an all-zero block measures as.
const silence = Decibel(-math.MaxFloat32)

// minBlock is the shortest block the oversampler can convolve.
const minBlock = len(oversamplingCoeffs[0])

func newPeakMeter(sampleRate int) *peakMeter {
	m := &peakMeter{block: max(sampleRate/10, minBlock)}
	for c := range m.windows {
		m.windows[c] = ringBuffer[float32]{Buffer: make([]float32, 4)}
	}
	for i := range m.result {
		m.result[i] = [2]Decibel{silence, silence}
	}
	return m
}

// update buffers the block and analyzes every completed 100 ms chunk.
func (m *peakMeter) update(left, right []float32) {
	for len(left) > 0 {
		n := min(len(left), m.block-len(m.pending[0]))
		m.pending[0] = append(m.pending[0], left[:n]...)
		m.pending[1] = append(m.pending[1], right[:n]...)
		left, right = left[n:], right[n:]
		if len(m.pending[0]) == m.block {
			m.analyze(m.pending[0], m.pending[1])
			m.pending[0] = m.pending[0][:0]
			m.pending[1] = m.pending[1][:0]
		}
	}
}

func (m *peakMeter) analyze(left, right []float32) {
	setSliceLength(&m.tmp, len(left))
	setSliceLength(&m.tmp2, 4*len(left))
	for chn, x := range [2][]float32{left, right} {
		copy(m.tmp, x)
		// 4x oversample the signal to catch the inter-sample peaks
		o := m.states[chn].oversample(m.tmp, m.tmp2)
		vek32.Abs_Inplace(o)
		p := vek32.Max(o)
		m.windows[chn].writeWrapSingle(p)
		m.result[PeakMomentary][chn] = toDecibel(vek32.Max(m.windows[chn].Buffer))
		if m.maxPeak[chn] < p {
			m.maxPeak[chn] = p
		}
		m.result[PeakIntegrated][chn] = toDecibel(m.maxPeak[chn])
	}
}

func toDecibel(a float32) Decibel {
	if a <= 0 {
		return silence
	}
	return Decibel(20 * math.Log10(float64(a)))
}

// ref: https://www.itu.int/dms_pubrec/itu-r/rec/bs/R-REC-BS.1770-5-202311-I!!PDF-E.pdf
var oversamplingCoeffs = [4][12]float32{
	{0.0017089843750, 0.0109863281250, -0.0196533203125, 0.0332031250000, -0.0594482421875, 0.1373291015625, 0.9721679687500, -0.1022949218750, 0.0476074218750, -0.0266113281250, 0.0148925781250, -0.0083007812500},
	{-0.0291748046875, 0.0292968750000, -0.0517578125000, 0.0891113281250, -0.1665039062500, 0.4650878906250, 0.7797851562500, -0.2003173828125, 0.1015625000000, -0.0582275390625, 0.0330810546875, -0.0189208984375},
	{-0.0189208984375, 0.0330810546875, -0.058227539062, 0.1015625000000, -0.200317382812, 0.7797851562500, 0.4650878906250, -0.166503906250, 0.0891113281250, -0.051757812500, 0.0292968750000, -0.0291748046875},
	{-0.0083007812500, 0.0148925781250, -0.0266113281250, 0.0476074218750, -0.1022949218750, 0.9721679687500, 0.1373291015625, -0.0594482421875, 0.0332031250000, -0.0196533203125, 0.0109863281250, 0.0017089843750},
}

// oversample writes the 4x oversampled x into y, which has to be at least 4
// times as long as x. x has to have at least minBlock frames. Phase q of the
// output is the convolution of x with the q:th row of the polyphase
// coefficients.
func (s *oversamplerState) oversample(x []float32, y []float32) []float32 {
	setSliceLength(&s.tmp, len(x))
	setSliceLength(&s.tmp2, len(x))
	for q, coeffs := range oversamplingCoeffs {
		r := vek32.Zeros_Into(s.tmp2, len(x))
		for j, c := range coeffs {
			// the convolution pulls values before x[0] from the history
			vek32.MulNumber_Into(s.tmp[:j], s.history[11-j:11], c)
			vek32.MulNumber_Into(s.tmp[j:], x[:len(x)-j], c)
			vek32.Add_Inplace(r, s.tmp[:len(x)])
		}
		for p, v := range r {
			y[p*4+q] = v
		}
	}
	z := min(len(x), 11)
	copy(s.history[:11-z], s.history[z:11])
	copy(s.history[11-z:], x[len(x)-z:])
	return y[:len(x)*4]
}

func (r *ringBuffer[T]) writeWrapSingle(value T) {
	r.Cursor = (r.Cursor + 1) % len(r.Buffer)
	r.Buffer[r.Cursor] = value
}
