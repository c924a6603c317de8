package engine

import (
	"math"

	"github.com/bellows-audio/bellows"
)

type (
	// VoiceID identifies a voice in the engine. IDs are never reused.
	VoiceID uint64

	// Voice is one triggered note: a source playing a sample, routed through
	// its own gain into the master bus. A voice is single-use; trigger a new
	// one to play the sample again. The caller owns the handle and should
	// stop or release it; the engine removes it from the active voices when
	// it stops or the sample runs out.
	Voice struct {
		ID     VoiceID
		Source *SourceNode
		Gain   *GainNode

		engine *Engine
		done   chan struct{}
		ended  bool // guarded by engine.mu
	}

	// SourceNode plays a sample from an offset at a playback rate.
	SourceNode struct {
		PlaybackRate *Param

		sample  *bellows.Sample
		loop    bool
		offset  float64 // seconds into the sample where playback started
		startAt float64 // engine time when playback started
		stopAt  float64 // engine time when playback stops, +Inf if not scheduled
		pos     float64 // current position in frames of the sample
	}

	GainNode struct {
		Gain *Param
	}
)

const (
	// FadeFloor is the gain a released voice ramps down to before it is
	// stopped. An exponential ramp cannot reach zero.
	FadeFloor = 0.001
)

// SemitoneRate returns the playback rate that shifts the pitch by the given
// number of equal-tempered semitones.
func SemitoneRate(semitones float64) float64 {
	return math.Pow(2, semitones/12)
}

func (s *SourceNode) Sample() *bellows.Sample { return s.sample }
func (s *SourceNode) Loop() bool              { return s.loop }

// Offset returns where in the sample playback started, in seconds.
func (s *SourceNode) Offset() float64 { return s.offset }

// StartTime returns the engine time at which playback started.
func (s *SourceNode) StartTime() float64 { return s.startAt }

// frameAt returns the linearly interpolated frame at position pos.
func (s *SourceNode) frameAt(pos float64) [2]float32 {
	length := s.sample.Len()
	idx := int(pos)
	a := s.sample.Frame(idx)
	next := idx + 1
	if next >= length {
		if !s.loop {
			return a
		}
		next = 0
	}
	b := s.sample.Frame(next)
	frac := float32(pos - float64(idx))
	return [2]float32{a[0] + (b[0]-a[0])*frac, a[1] + (b[1]-a[1])*frac}
}

// Done returns a channel that is closed when the voice has stopped.
func (v *Voice) Done() <-chan struct{} { return v.done }

// Ended reports if the voice has stopped.
func (v *Voice) Ended() bool {
	v.engine.mu.Lock()
	defer v.engine.mu.Unlock()
	return v.ended
}

// Stop stops the voice immediately. Stopping a voice that has already
// stopped does nothing.
func (v *Voice) Stop() {
	v.StopAt(v.engine.CurrentTime())
}

// StopAt schedules the voice to stop at engine time t. A time in the past
// stops the voice immediately. An earlier stop time always wins.
func (v *Voice) StopAt(t float64) {
	e := v.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	if v.ended {
		return
	}
	if t <= e.CurrentTime() {
		e.finish(v)
		return
	}
	v.Source.stopAt = min(v.Source.stopAt, t)
}

// Release fades the voice out exponentially over the fade time of the engine
// and then stops it, which avoids the click of a hard stop.
func (v *Voice) Release() {
	v.ReleaseOver(v.engine.fade)
}

// ReleaseOver is Release with an explicit fade time in seconds.
func (v *Voice) ReleaseOver(fade float64) {
	if v.Ended() {
		return
	}
	now := v.engine.CurrentTime()
	g := v.Gain.Gain.ValueAt(now)
	if fade <= 0 || g == 0 {
		v.Stop()
		return
	}
	floor := math.Copysign(FadeFloor, g)
	if math.Abs(g) <= FadeFloor {
		floor = g
	}
	v.Gain.Gain.CancelScheduledValues(now)
	v.Gain.Gain.SetValueAtTime(g, now)
	v.Gain.Gain.ExponentialRampToValueAtTime(floor, now+fade)
	v.StopAt(now + fade)
}

// Trigger starts playing a sample of a bank and returns the voice playing
// it. volume is a linear gain. semitoneShift changes the pitch by resampling,
// which also changes the duration. Playback starts at the onset offset of the
// sample, skipping the silence at its start.
//
// Trigger returns nil if the bank does not exist, the sample is not loaded in
// it or the engine is closed; in that case nothing is created.
func (e *Engine) Trigger(sampleID, bankID string, volume, semitoneShift float64, loop bool) *Voice {
	e.mu.Lock()
	b, ok := e.banks[bankID]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	sample, offset, ok := b.Sample(sampleID)
	if !ok {
		return nil
	}
	if !e.strictActivation {
		e.resumeIfSuspended()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	now := e.CurrentTime()
	e.lastID++
	v := &Voice{
		ID:     e.lastID,
		engine: e,
		done:   make(chan struct{}),
		Source: &SourceNode{
			PlaybackRate: NewParam(1),
			sample:       sample,
			loop:         loop,
			offset:       offset,
			startAt:      now,
			stopAt:       math.Inf(1),
			pos:          offset * float64(sample.SampleRate),
		},
		Gain: &GainNode{Gain: NewParam(1)},
	}
	if semitoneShift != 0 {
		v.Source.PlaybackRate.SetValue(SemitoneRate(semitoneShift))
	}
	v.Gain.Gain.SetValueAtTime(volume, now)
	e.voices[v.ID] = v
	return v
}

// ActiveVoices returns the number of voices that have not stopped.
func (e *Engine) ActiveVoices() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.voices)
}

// StopAll stops every active voice immediately.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, v := range e.voices {
		e.finish(v)
	}
}

// finish removes the voice from the active voices. e.mu must be held.
func (e *Engine) finish(v *Voice) {
	if v.ended {
		return
	}
	v.ended = true
	delete(e.voices, v.ID)
	close(v.done)
}
