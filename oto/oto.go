// Package oto implements bellows.AudioContext on the audio device of the
// platform, using ebitengine/oto.
package oto

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bellows-audio/bellows"
	"github.com/ebitengine/oto/v3"
)

type (
	Context struct {
		ctx    *oto.Context
		format oto.Format

		mu    sync.Mutex
		state bellows.RunState
	}

	Options struct {
		// BufferSize is the latency of the device. Zero uses the default of
		// the platform.
		BufferSize time.Duration
		// Int16 outputs 16-bit integers instead of 32-bit floats, for devices
		// that do not support floats.
		Int16 bool
	}

	// playback pulls audio from a renderer when the device asks for it.
	playback struct {
		player   *oto.Player
		renderer bellows.AudioRenderer
		format   oto.Format
		buffer   bellows.AudioBuffer
		once     sync.Once
		done     chan struct{}
	}
)

// DefaultBufferSize keeps the latency low enough for playing live.
const DefaultBufferSize = 20 * time.Millisecond

var errContextExists = errors.New("an oto context can only be created once per process")

var (
	contextMu      sync.Mutex
	contextCreated bool
)

// NewContext opens the audio device at bellows.SampleRate, stereo. The context
// starts suspended; the device does not pull audio before Resume. Only one
// context can be created per process.
func NewContext(opts Options) (*Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()
	if contextCreated {
		return nil, errContextExists
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = DefaultBufferSize
	}
	format := oto.FormatFloat32LE
	if opts.Int16 {
		format = oto.FormatSignedInt16LE
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   bellows.SampleRate,
		ChannelCount: 2,
		Format:       format,
		BufferSize:   opts.BufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	contextCreated = true
	<-ready
	if err := ctx.Suspend(); err != nil {
		return nil, fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return &Context{ctx: ctx, format: format, state: bellows.Suspended}, nil
}

func (c *Context) SampleRate() int { return bellows.SampleRate }

// State returns the run state. A device that failed is reported closed.
func (c *Context) State() bellows.RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != bellows.Closed && c.ctx.Err() != nil {
		c.state = bellows.Closed
	}
	return c.state
}

func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == bellows.Closed {
		return bellows.ErrContextClosed
	}
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	c.state = bellows.Suspended
	return nil
}

func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == bellows.Closed {
		return bellows.ErrContextClosed
	}
	if err := c.ctx.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	c.state = bellows.Running
	return nil
}

// Close suspends the device for good. oto cannot release a context, so the
// device stays open until the process exits.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == bellows.Closed {
		return nil
	}
	c.state = bellows.Closed
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

// Play starts pulling audio from the renderer.
func (c *Context) Play(r bellows.AudioRenderer) bellows.CloserWaiter {
	p := &playback{renderer: r, format: c.format, done: make(chan struct{})}
	p.player = c.ctx.NewPlayer(p)
	p.player.SetBufferSize(bufferBytes(c.format))
	p.player.Play()
	return p
}

func bufferBytes(format oto.Format) int {
	frames := int(DefaultBufferSize.Seconds() * bellows.SampleRate)
	return frames * frameBytes(format)
}

func frameBytes(format oto.Format) int {
	if format == oto.FormatSignedInt16LE {
		return 4
	}
	return 8
}

// Read implements io.Reader for the oto player.
func (p *playback) Read(b []byte) (int, error) {
	select {
	case <-p.done:
		return 0, bellows.ErrContextClosed
	default:
	}
	frames := len(b) / frameBytes(p.format)
	if cap(p.buffer) < frames {
		p.buffer = make(bellows.AudioBuffer, frames)
	}
	p.buffer = p.buffer[:frames]
	if err := p.renderer(p.buffer); err != nil {
		return 0, fmt.Errorf("renderer failed: %w", err)
	}
	var out []byte
	if p.format == oto.FormatSignedInt16LE {
		out = FloatBufferTo16BitLE(p.buffer, b[:0])
	} else {
		out = FloatBufferToFloat32LE(p.buffer, b[:0])
	}
	return len(out), nil
}

func (p *playback) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		if cerr := p.player.Close(); cerr != nil {
			err = fmt.Errorf("cannot close oto player: %w", cerr)
		}
	})
	return err
}

func (p *playback) Wait() {
	<-p.done
}
