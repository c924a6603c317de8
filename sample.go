package bellows

// Sample is a decoded audio buffer. Channels holds planar float32 data, one
// slice per channel, all of the same length. A Sample is never modified after
// it has been loaded into a bank.
type Sample struct {
	SampleRate int
	Channels   [][]float32
}

// NewSample returns a sample with numChannels zeroed channels of length frames.
func NewSample(sampleRate, numChannels, frames int) *Sample {
	s := &Sample{SampleRate: sampleRate, Channels: make([][]float32, numChannels)}
	for i := range s.Channels {
		s.Channels[i] = make([]float32, frames)
	}
	return s
}

// Len returns the length of the sample in frames.
func (s *Sample) Len() int {
	if s == nil || len(s.Channels) == 0 {
		return 0
	}
	return len(s.Channels[0])
}

func (s *Sample) NumChannels() int {
	if s == nil {
		return 0
	}
	return len(s.Channels)
}

// Duration returns the length of the sample in seconds.
func (s *Sample) Duration() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(s.Len()) / float64(s.SampleRate)
}

// Frame returns the stereo frame at index i. Mono samples are copied to both
// channels.
func (s *Sample) Frame(i int) [2]float32 {
	l := s.Channels[0][i]
	if len(s.Channels) < 2 {
		return [2]float32{l, l}
	}
	return [2]float32{l, s.Channels[1][i]}
}
