package engine

import (
	"math"

	"github.com/viterin/vek/vek32"
)

type (
	// LimiterParams configure the dynamics limiter on the master bus.
	// Threshold and Knee are in dB, Attack and Release in seconds.
	LimiterParams struct {
		Threshold float64
		Knee      float64
		Ratio     float64
		Attack    float64
		Release   float64
	}

	// Limiter is a feed-forward peak compressor with a hard or soft knee. The
	// detector follows the louder of the two channels, so the stereo image is
	// kept.
	Limiter struct {
		params       LimiterParams
		attackCoeff  float64
		releaseCoeff float64
		envelope     float64 // current gain reduction in dB, >= 0
		gain         []float32
	}
)

// DefaultLimiter is inaudible in normal play but clamps the summed output
// when many notes sound together.
var DefaultLimiter = LimiterParams{
	Threshold: -1,
	Knee:      0,
	Ratio:     20,
	Attack:    0,
	Release:   0.1,
}

func NewLimiter(params LimiterParams, sampleRate int) *Limiter {
	if params.Ratio < 1 {
		params.Ratio = 1
	}
	return &Limiter{
		params:       params,
		attackCoeff:  timeCoeff(params.Attack, sampleRate),
		releaseCoeff: timeCoeff(params.Release, sampleRate),
	}
}

func timeCoeff(seconds float64, sampleRate int) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * float64(sampleRate)))
}

func (l *Limiter) Params() LimiterParams { return l.params }

// Reduction returns the current gain reduction in dB.
func (l *Limiter) Reduction() float64 { return l.envelope }

// Process limits the planar stereo block in place. left and right must have
// the same length.
func (l *Limiter) Process(left, right []float32) {
	setSliceLength(&l.gain, len(left))
	for i := range left {
		peak := math.Max(math.Abs(float64(left[i])), math.Abs(float64(right[i])))
		target := l.reduction(amplitudeToDecibel(peak))
		coeff := l.releaseCoeff
		if target > l.envelope {
			coeff = l.attackCoeff
		}
		l.envelope = coeff*l.envelope + (1-coeff)*target
		l.gain[i] = float32(decibelToAmplitude(-l.envelope))
	}
	vek32.Mul_Inplace(left, l.gain[:len(left)])
	vek32.Mul_Inplace(right, l.gain[:len(right)])
}

// reduction is the static curve of the limiter: how many dB the level is
// reduced by.
func (l *Limiter) reduction(level float64) float64 {
	over := level - l.params.Threshold
	knee := l.params.Knee
	slope := 1 - 1/l.params.Ratio
	switch {
	case 2*over < -knee:
		return 0
	case knee > 0 && 2*math.Abs(over) <= knee:
		x := over + knee/2
		return slope * x * x / (2 * knee)
	default:
		return slope * over
	}
}

func amplitudeToDecibel(a float64) float64 {
	if a <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(a)
}

func decibelToAmplitude(db float64) float64 {
	return math.Pow(10, db/20)
}

func setSliceLength[T any](slice *[]T, length int) {
	if len(*slice) < length {
		*slice = append(*slice, make([]T, length-len(*slice))...)
	}
	*slice = (*slice)[:length]
}
