// Package engine is a low-latency sample player. It loads audio samples into
// named banks, trims the silence at their start, plays them as independent
// voices and sums the voices through a master gain and a safety limiter into
// an audio context.
package engine

import (
	"log"
	"math"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bellows-audio/bellows"
	"github.com/bellows-audio/bellows/decode"
	"github.com/bellows-audio/bellows/fetch"
	"github.com/viterin/vek/vek32"
	"golang.org/x/sync/singleflight"
)

type (
	// Engine owns the audio context, the sample banks and the active voices.
	// All methods are safe to call from multiple goroutines.
	Engine struct {
		ctx      bellows.AudioContext
		playback bellows.CloserWaiter

		sampleRate       int
		fetcher          fetch.Fetcher
		decoder          decode.Decoder
		logger           *log.Logger
		fade             float64
		strictActivation bool
		loadConcurrency  int

		frames   atomic.Int64
		inflight singleflight.Group

		mu         sync.Mutex
		banks      map[string]*Bank
		voices     map[VoiceID]*Voice
		lastID     VoiceID
		masterGain *Param
		limiter    *Limiter
		meter      *peakMeter
		closed     bool

		// scratch buffers of Render, guarded by mu
		mixL, mixR     []float32
		voiceL, voiceR []float32
		gainBuf        []float32
	}

	Options struct {
		// Fetcher fetches the bytes of a sample source. Defaults to the
		// current directory.
		Fetcher fetch.Fetcher
		// Decoder decodes fetched bytes. Defaults to decode.Beep.
		Decoder decode.Decoder
		// Logger receives load failures. Defaults to log.Default().
		Logger *log.Logger
		// Fade is the duration of the fade out of Voice.Release. Defaults to
		// 50 ms.
		Fade time.Duration
		// Limiter configures the limiter on the master bus. The zero value
		// means DefaultLimiter.
		Limiter LimiterParams
		// StrictActivation disables resuming a suspended context on Trigger;
		// only Activate resumes it.
		StrictActivation bool
		// LoadConcurrency limits the number of samples LoadBatch loads at
		// the same time. Defaults to 8.
		LoadConcurrency int
	}
)

const (
	DefaultFade            = 50 * time.Millisecond
	DefaultLoadConcurrency = 8
)

// New creates an engine playing into the audio context. The chain is: voices
// → master gain → limiter → context. The context is left in the state it is
// in; call Activate to start the audio, typically after the first user
// input.
func New(ctx bellows.AudioContext, opts Options) *Engine {
	if opts.Fetcher == nil {
		opts.Fetcher = &fetch.Dir{FS: os.DirFS(".")}
	}
	if opts.Decoder == nil {
		opts.Decoder = decode.Beep{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Fade <= 0 {
		opts.Fade = DefaultFade
	}
	if opts.Limiter == (LimiterParams{}) {
		opts.Limiter = DefaultLimiter
	}
	if opts.LoadConcurrency <= 0 {
		opts.LoadConcurrency = DefaultLoadConcurrency
	}
	rate := ctx.SampleRate()
	e := &Engine{
		ctx:              ctx,
		sampleRate:       rate,
		fetcher:          opts.Fetcher,
		decoder:          opts.Decoder,
		logger:           opts.Logger,
		fade:             opts.Fade.Seconds(),
		strictActivation: opts.StrictActivation,
		loadConcurrency:  opts.LoadConcurrency,
		banks:            map[string]*Bank{},
		voices:           map[VoiceID]*Voice{},
		masterGain:       NewParam(1),
		limiter:          NewLimiter(opts.Limiter, rate),
		meter:            newPeakMeter(rate),
	}
	e.playback = ctx.Play(e.Render)
	return e
}

// Activate resumes the audio context if it is suspended. Platforms may
// require this to be called from a user input event. Calling Activate on a
// running context does nothing.
func (e *Engine) Activate() error {
	switch e.ctx.State() {
	case bellows.Suspended:
		return e.ctx.Resume()
	case bellows.Closed:
		return bellows.ErrContextClosed
	}
	return nil
}

func (e *Engine) resumeIfSuspended() {
	if e.ctx.State() != bellows.Suspended {
		return
	}
	if err := e.ctx.Resume(); err != nil {
		e.logger.Printf("could not resume audio context: %v", err)
	}
}

// State returns the run state of the audio context.
func (e *Engine) State() bellows.RunState {
	return e.ctx.State()
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// MasterGain is the gain applied to the sum of all voices, before the limiter.
func (e *Engine) MasterGain() *Param { return e.masterGain }

// Bank returns the bank with the given id, creating an empty one if it does
// not exist. The name is only used when the bank is created; an empty name is
// derived from the id.
func (e *Engine) Bank(bankID, name string) *Bank {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.banks[bankID]; ok {
		return b
	}
	b := newBank(bankID, name)
	e.banks[bankID] = b
	return b
}

// Banks returns all registered banks, sorted by id.
func (e *Engine) Banks() []*Bank {
	e.mu.Lock()
	ret := make([]*Bank, 0, len(e.banks))
	for _, b := range e.banks {
		ret = append(ret, b)
	}
	e.mu.Unlock()
	slices.SortFunc(ret, func(a, b *Bank) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return ret
}

// ReleaseBank drops all samples of the bank so their memory can be
// reclaimed. The bank stays registered and can be loaded again. Voices already
// playing a sample of the bank keep playing. Loads in flight when the bank is
// released are discarded.
func (e *Engine) ReleaseBank(bankID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b, ok := e.banks[bankID]; ok {
		b.clear()
	}
}

// CurrentTime returns the audio clock in seconds: the number of frames
// rendered so far divided by the sample rate. The clock does not advance while
// the context is suspended.
func (e *Engine) CurrentTime() float64 {
	return float64(e.frames.Load()) / float64(e.sampleRate)
}

// Peaks returns the momentary and integrated true peaks of the output.
func (e *Engine) Peaks() PeakResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.meter.result
}

// Close stops all voices, stops the playback and closes the audio context.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	for _, v := range e.voices {
		e.finish(v)
	}
	e.mu.Unlock()
	if err := e.playback.Close(); err != nil {
		return err
	}
	e.playback.Wait()
	return e.ctx.Close()
}

// Render mixes the next len(buf) frames of all active voices into buf and
// advances the clock. It is called by the audio context.
func (e *Engine) Render(buf bellows.AudioBuffer) error {
	n := len(buf)
	start := e.frames.Load()
	defer e.frames.Add(int64(n))
	e.mu.Lock()
	defer e.mu.Unlock()
	setSliceLength(&e.mixL, n)
	setSliceLength(&e.mixR, n)
	vek32.Zeros_Into(e.mixL, n)
	vek32.Zeros_Into(e.mixR, n)
	for _, v := range e.voices {
		if !e.renderVoice(v, start, n) {
			e.finish(v)
		}
	}
	e.fillGain(e.masterGain.curve(), start, n)
	vek32.Mul_Inplace(e.mixL, e.gainBuf)
	vek32.Mul_Inplace(e.mixR, e.gainBuf)
	e.limiter.Process(e.mixL, e.mixR)
	e.meter.update(e.mixL, e.mixR)
	for i := range buf {
		buf[i] = [2]float32{e.mixL[i], e.mixR[i]}
	}
	return nil
}

// renderVoice adds n frames of the voice, starting at frame start of the
// clock, to the mix. It returns false if the voice has ended.
func (e *Engine) renderVoice(v *Voice, start int64, n int) bool {
	src := v.Source
	length := src.sample.Len()
	if length == 0 {
		return false
	}
	rate := float64(e.sampleRate)
	limit := n
	if !math.IsInf(src.stopAt, 1) {
		stop := int64(math.Ceil(src.stopAt*rate)) - start
		if stop <= 0 {
			return false
		}
		limit = int(min(stop, int64(n)))
	}
	setSliceLength(&e.voiceL, n)
	setSliceLength(&e.voiceR, n)
	rateCurve := src.PlaybackRate.curve()
	step := float64(src.sample.SampleRate) / rate
	constStep := step * rateCurve.value
	alive := true
	i := 0
	for ; i < limit; i++ {
		if !(src.pos >= 0 && src.pos < float64(length)) {
			// a negative rate runs a looping voice backwards from its end
			if src.loop {
				src.pos = wrap(src.pos, float64(length))
			}
			if math.IsNaN(src.pos) || src.pos < 0 || src.pos >= float64(length) {
				alive = false
				break
			}
		}
		f := src.frameAt(src.pos)
		e.voiceL[i], e.voiceR[i] = f[0], f[1]
		if rateCurve.constant() {
			src.pos += constStep
		} else {
			src.pos += step * rateCurve.valueAt(float64(start+int64(i))/rate)
		}
	}
	if i < n {
		vek32.Zeros_Into(e.voiceL[i:], n-i)
		vek32.Zeros_Into(e.voiceR[i:], n-i)
	}
	if limit < n {
		alive = false
	}
	e.fillGain(v.Gain.Gain.curve(), start, n)
	vek32.Mul_Inplace(e.voiceL, e.gainBuf)
	vek32.Mul_Inplace(e.voiceR, e.gainBuf)
	vek32.Add_Inplace(e.mixL, e.voiceL)
	vek32.Add_Inplace(e.mixR, e.voiceR)
	return alive
}

// wrap returns pos modulo length in [0, length).
func wrap(pos, length float64) float64 {
	pos = math.Mod(pos, length)
	if pos < 0 {
		pos += length
	}
	if pos >= length {
		return 0
	}
	return pos
}

// fillGain writes the value of the curve for each of the n frames starting at
// frame start into gainBuf.
func (e *Engine) fillGain(c paramCurve, start int64, n int) {
	setSliceLength(&e.gainBuf, n)
	rate := float64(e.sampleRate)
	if c.constant() || c.events[len(c.events)-1].time <= float64(start)/rate {
		g := float32(c.valueAt(float64(start) / rate))
		for i := range e.gainBuf {
			e.gainBuf[i] = g
		}
		return
	}
	for i := range e.gainBuf {
		e.gainBuf[i] = float32(c.valueAt(float64(start+int64(i)) / rate))
	}
}
