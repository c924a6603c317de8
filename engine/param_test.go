package engine_test

import (
	"math"
	"testing"

	"github.com/bellows-audio/bellows"
	"github.com/bellows-audio/bellows/engine"
)

func TestParamAutomation(t *testing.T) {
	p := engine.NewParam(0.5)
	if p.Touched() {
		t.Errorf("new param is touched")
	}
	p.SetValueAtTime(1, 1)
	p.ExponentialRampToValueAtTime(0.01, 2)
	p.SetValueAtTime(0.3, 3)
	for _, tc := range []struct {
		time float64
		want float64
	}{
		{0, 0.5},
		{0.99, 0.5},
		{1, 1},
		{1.5, 0.1},
		{2, 0.01},
		{2.5, 0.01},
		{3, 0.3},
		{10, 0.3},
	} {
		if got := p.ValueAt(tc.time); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ValueAt(%v) = %v, want %v", tc.time, got, tc.want)
		}
	}
	if !p.Touched() {
		t.Errorf("automated param is not touched")
	}
	if p.Value() != 0.5 {
		t.Errorf("Value() = %v, automation changed the intrinsic value", p.Value())
	}
}

func TestParamRampHoldsZeroAndSignChange(t *testing.T) {
	for _, tc := range []struct {
		name string
		from float64
		to   float64
		want float64
	}{
		{"from zero", 0, 1, 0},
		{"sign change", 1, -1, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			p := engine.NewParam(tc.from)
			p.SetValueAtTime(tc.from, 0)
			p.ExponentialRampToValueAtTime(tc.to, 1)
			if got := p.ValueAt(0.5); got != tc.want {
				t.Errorf("ValueAt(0.5) = %v, want %v", got, tc.want)
			}
			if got := p.ValueAt(1); got != tc.to {
				t.Errorf("ValueAt(1) = %v, want %v", got, tc.to)
			}
		})
	}
}

func TestParamEqualTimesKeepOrder(t *testing.T) {
	p := engine.NewParam(0)
	p.SetValueAtTime(1, 1)
	p.SetValueAtTime(2, 1)
	if got := p.ValueAt(1); got != 2 {
		t.Errorf("ValueAt(1) = %v, want the later event 2", got)
	}
}

func TestParamCancelScheduledValues(t *testing.T) {
	p := engine.NewParam(1)
	p.SetValueAtTime(0.5, 1)
	p.SetValueAtTime(0.25, 2)
	p.CancelScheduledValues(2)
	if got := p.ValueAt(3); got != 0.5 {
		t.Errorf("ValueAt(3) = %v, want 0.5", got)
	}
	p.CancelScheduledValues(0)
	if got := p.ValueAt(3); got != 1 {
		t.Errorf("ValueAt(3) = %v, want 1", got)
	}
}

func TestSemitoneRate(t *testing.T) {
	for _, tc := range []struct {
		semitones float64
		want      float64
	}{
		{0, 1},
		{12, 2},
		{-12, 0.5},
		{24, 4},
		{1, 1.0594630943592953},
	} {
		if got := engine.SemitoneRate(tc.semitones); math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("SemitoneRate(%v) = %v, want %v", tc.semitones, got, tc.want)
		}
	}
}

func TestDetectOnset(t *testing.T) {
	rate := float64(bellows.SampleRate)
	for _, tc := range []struct {
		name   string
		sample *bellows.Sample
		want   float64
	}{
		{"immediate", constant(0, 1000, 0.5), 0},
		{"within lead-in", constant(100, 1000, 0.5), 0},
		{"one second", constant(bellows.SampleRate, 1000, 0.5), 1 - engine.OnsetLeadIn},
		{"unaligned", constant(1000, 10, -0.2), 1000/rate - engine.OnsetLeadIn},
		{"silent", constant(0, 1000, 0), 0},
		{"below threshold", constant(0, 1000, 0.005), 0},
		{"empty", bellows.NewSample(bellows.SampleRate, 1, 0), 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := engine.DetectOnset(tc.sample); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("DetectOnset() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDetectOnsetUsesFirstChannel(t *testing.T) {
	s := bellows.NewSample(bellows.SampleRate, 2, 10000)
	for i := range s.Channels[1] {
		s.Channels[1][i] = 0.5
	}
	s.Channels[0][4410] = 0.5
	if got, want := engine.DetectOnset(s), 0.1-engine.OnsetLeadIn; math.Abs(got-want) > 1e-9 {
		t.Errorf("DetectOnset() = %v, want %v", got, want)
	}
}

func TestLimiterStaticCurve(t *testing.T) {
	for _, tc := range []struct {
		name  string
		input float32
		want  float32
	}{
		{"below threshold", 0.5, 0.5},
		{"silence", 0, 0},
		// 6 dB in is 7 dB over the threshold, reduced by 7*(1-1/20) dB
		{"above threshold", 1.9952623, float32(math.Pow(10, (-1+7.0/20)/20))},
	} {
		t.Run(tc.name, func(t *testing.T) {
			l := engine.NewLimiter(engine.DefaultLimiter, bellows.SampleRate)
			left := []float32{tc.input, tc.input}
			right := []float32{-tc.input, -tc.input}
			l.Process(left, right)
			for i := range left {
				if math.Abs(float64(left[i]-tc.want)) > 1e-4 || math.Abs(float64(right[i]+tc.want)) > 1e-4 {
					t.Errorf("frame %d = %v %v, want %v %v", i, left[i], right[i], tc.want, -tc.want)
				}
			}
		})
	}
}

func TestLimiterRelease(t *testing.T) {
	l := engine.NewLimiter(engine.DefaultLimiter, bellows.SampleRate)
	loud := []float32{4, 4}
	l.Process(loud, []float32{4, 4})
	if l.Reduction() < 10 {
		t.Fatalf("Reduction() = %v dB after a loud signal", l.Reduction())
	}
	quiet := make([]float32, bellows.SampleRate)
	l.Process(quiet, make([]float32, bellows.SampleRate))
	if l.Reduction() > 0.01 {
		t.Errorf("Reduction() = %v dB after one second of silence, want about 0", l.Reduction())
	}
}
