package engine

import (
	"github.com/bellows-audio/bellows"
	"github.com/viterin/vek/vek32"
)

const (
	// OnsetThreshold is the absolute amplitude, relative to full scale, that
	// a sample has to exceed to count as audible.
	OnsetThreshold = 0.01
	// OnsetLeadIn is how many seconds before the first audible sample
	// playback starts, so the attack transient is not clipped.
	OnsetLeadIn = 0.005

	onsetBlock = 256
)

// DetectOnset returns the time in seconds at which the audible content of
// the sample begins, minus OnsetLeadIn. Only the first channel is scanned.
// Compressed formats often start with encoder delay or silence; playback
// starts from the onset to skip it. A silent sample has onset 0.
func DetectOnset(s *bellows.Sample) float64 {
	if s.Len() == 0 || s.SampleRate <= 0 {
		return 0
	}
	ch := s.Channels[0]
	tmp := make([]float32, onsetBlock)
	for start := 0; start < len(ch); start += onsetBlock {
		block := ch[start:min(start+onsetBlock, len(ch))]
		abs := vek32.Abs_Into(tmp[:len(block)], block)
		if vek32.Max(abs) <= OnsetThreshold {
			continue
		}
		for i, v := range abs {
			if v > OnsetThreshold {
				t := float64(start+i)/float64(s.SampleRate) - OnsetLeadIn
				return max(t, 0)
			}
		}
	}
	return 0
}
