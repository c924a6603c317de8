package bellows

import "io"

type (
	// AudioBuffer is a buffer of stereo audio samples of variable length
	AudioBuffer [][2]float32

	// AudioRenderer fills the whole buffer with the next block of audio. It is
	// called from the goroutine of the audio device, so it should never block
	// for long.
	AudioRenderer func(buf AudioBuffer) error

	// AudioContext is the audio output of the platform. The context starts
	// suspended: the hardware does not pull audio before Resume is called.
	// The platform may also suspend the context on its own, so callers should
	// check State before relying on it.
	AudioContext interface {
		Play(r AudioRenderer) CloserWaiter
		SampleRate() int
		State() RunState
		Suspend() error
		Resume() error
		Close() error
	}

	// CloserWaiter is a handle to a playing renderer. Close stops the renderer
	// and Wait blocks until the renderer has stopped.
	CloserWaiter interface {
		io.Closer
		Wait()
	}

	// RunState is the run state of an AudioContext.
	RunState int
)

const (
	Suspended RunState = iota
	Running
	Closed
)

// SampleRate is the rate the engine and its output context run at.
const SampleRate = 44100

func (s RunState) String() string {
	switch s {
	case Suspended:
		return "suspended"
	case Running:
		return "running"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Fill fills the AudioBuffer using a Renderer, in chunks of at most 4096
// frames. Useful for offline rendering.
func (buffer AudioBuffer) Fill(r AudioRenderer) error {
	for s := 0; s < len(buffer); s += 4096 {
		e := min(s+4096, len(buffer))
		if err := r(buffer[s:e]); err != nil {
			return err
		}
	}
	return nil
}
