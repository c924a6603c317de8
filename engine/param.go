package engine

import (
	"math"
	"slices"
	"sync"
)

type (
	// Param is an automatable value of a node, e.g. the gain of a GainNode or
	// the playback rate of a SourceNode. Times are in seconds of the engine
	// clock.
	Param struct {
		mu      sync.Mutex
		value   float64
		events  []paramEvent
		touched bool
	}

	paramEvent struct {
		kind  paramEventKind
		value float64
		time  float64
	}

	paramEventKind int

	// paramCurve is an immutable copy of the automation of a Param, taken
	// once per rendered block.
	paramCurve struct {
		value  float64
		events []paramEvent
	}
)

const (
	setValueEvent paramEventKind = iota
	exponentialRampEvent
)

func NewParam(value float64) *Param {
	return &Param{value: value}
}

// Value returns the intrinsic value of the param, i.e. the value before any
// scheduled automation.
func (p *Param) Value() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// SetValue replaces the intrinsic value of the param.
func (p *Param) SetValue(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = v
	p.touched = true
}

// Touched reports if the param was ever set or automated after creation.
func (p *Param) Touched() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.touched
}

// SetValueAtTime schedules the param to jump to v at time t.
func (p *Param) SetValueAtTime(v, t float64) {
	p.insert(paramEvent{kind: setValueEvent, value: v, time: t})
}

// ExponentialRampToValueAtTime schedules an exponential ramp from the value
// of the previous event to v, reaching v at time t. The ramp holds the
// previous value if it is zero or has a different sign than v.
func (p *Param) ExponentialRampToValueAtTime(v, t float64) {
	p.insert(paramEvent{kind: exponentialRampEvent, value: v, time: t})
}

// CancelScheduledValues removes all events at or after time t.
func (p *Param) CancelScheduledValues(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = slices.DeleteFunc(p.events, func(e paramEvent) bool { return e.time >= t })
}

// ValueAt returns the value of the param at time t.
func (p *Param) ValueAt(t float64) float64 {
	return p.curve().valueAt(t)
}

func (p *Param) insert(e paramEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// events with equal times keep their insertion order
	i, _ := slices.BinarySearchFunc(p.events, e.time, func(a paramEvent, t float64) int {
		if a.time <= t {
			return -1
		}
		return 1
	})
	p.events = slices.Insert(p.events, i, e)
	p.touched = true
}

func (p *Param) curve() paramCurve {
	p.mu.Lock()
	defer p.mu.Unlock()
	return paramCurve{value: p.value, events: slices.Clone(p.events)}
}

func (c paramCurve) valueAt(t float64) float64 {
	v0, t0 := c.value, 0.0
	for _, e := range c.events {
		if e.time <= t {
			v0, t0 = e.value, e.time
			continue
		}
		if e.kind == exponentialRampEvent {
			return exponentialRamp(v0, t0, e.value, e.time, t)
		}
		break
	}
	return v0
}

// constant reports whether the curve has no events, so the value never
// changes.
func (c paramCurve) constant() bool { return len(c.events) == 0 }

func exponentialRamp(v0, t0, v1, t1, t float64) float64 {
	if v0 == 0 || v0*v1 < 0 || t1 <= t0 {
		return v0
	}
	return v0 * math.Pow(v1/v0, (t-t0)/(t1-t0))
}
