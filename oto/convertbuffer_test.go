package oto_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/bellows-audio/bellows"
	"github.com/bellows-audio/bellows/oto"
)

func TestFloatBufferToFloat32LE(t *testing.T) {
	buf := bellows.AudioBuffer{{0.25, -0.5}, {1, 0}}
	out := oto.FloatBufferToFloat32LE(buf, nil)
	if len(out) != 16 {
		t.Fatalf("got %d bytes, want 16", len(out))
	}
	want := []float32{0.25, -0.5, 1, 0}
	for i, w := range want {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(out[i*4:])); got != w {
			t.Errorf("value %d = %v, want %v", i, got, w)
		}
	}
}

func TestFloatBufferTo16BitLE(t *testing.T) {
	buf := bellows.AudioBuffer{{0, 1}, {-2, 2}, {0.5, -1}}
	out := oto.FloatBufferTo16BitLE(buf, make([]byte, 0, 12))
	want := []int16{0, math.MaxInt16, -math.MaxInt16, math.MaxInt16, 16383, -math.MaxInt16}
	if len(out) != 2*len(want) {
		t.Fatalf("got %d bytes, want %d", len(out), 2*len(want))
	}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(out[i*2:])); got != w {
			t.Errorf("value %d = %v, want %v", i, got, w)
		}
	}
}
