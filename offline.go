package bellows

import (
	"errors"
	"sync"
)

type (
	// OfflineContext is an AudioContext without hardware. Audio is only
	// produced when Render is called, which makes it useful for rendering to
	// files and for tests.
	OfflineContext struct {
		mu       sync.Mutex
		rate     int
		state    RunState
		renderer AudioRenderer
	}

	offlinePlayback struct {
		ctx  *OfflineContext
		once sync.Once
	}
)

var ErrContextClosed = errors.New("audio context is closed")

// NewOfflineContext returns a suspended offline context running at the given
// sample rate.
func NewOfflineContext(sampleRate int) *OfflineContext {
	return &OfflineContext{rate: sampleRate, state: Suspended}
}

func (c *OfflineContext) Play(r AudioRenderer) CloserWaiter {
	c.mu.Lock()
	c.renderer = r
	c.mu.Unlock()
	return &offlinePlayback{ctx: c}
}

func (c *OfflineContext) SampleRate() int { return c.rate }

func (c *OfflineContext) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *OfflineContext) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return ErrContextClosed
	}
	c.state = Suspended
	return nil
}

func (c *OfflineContext) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Closed {
		return ErrContextClosed
	}
	c.state = Running
	return nil
}

func (c *OfflineContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Closed {
		c.state = Closed
		c.renderer = nil
	}
	return nil
}

// Render pulls frames of audio from the renderer. While the context is
// suspended, no audio is pulled and the returned buffer is silent, like a
// hardware device that has been paused.
func (c *OfflineContext) Render(frames int) (AudioBuffer, error) {
	buf := make(AudioBuffer, frames)
	c.mu.Lock()
	r, state := c.renderer, c.state
	c.mu.Unlock()
	if state != Running || r == nil {
		return buf, nil
	}
	if err := buf.Fill(r); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *offlinePlayback) Close() error {
	p.once.Do(func() {
		p.ctx.mu.Lock()
		p.ctx.renderer = nil
		p.ctx.mu.Unlock()
	})
	return nil
}

func (p *offlinePlayback) Wait() {}
