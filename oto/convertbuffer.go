package oto

import (
	"encoding/binary"
	"math"

	"github.com/bellows-audio/bellows"
)

// FloatBufferToFloat32LE appends the interleaved buffer to dst as 32-bit
// little-endian floats.
func FloatBufferToFloat32LE(buffer bellows.AudioBuffer, dst []byte) []byte {
	for _, frame := range buffer {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[1]))
	}
	return dst
}

// FloatBufferTo16BitLE appends the interleaved buffer to dst as 16-bit
// little-endian integers, clipping at full scale.
func FloatBufferTo16BitLE(buffer bellows.AudioBuffer, dst []byte) []byte {
	for _, frame := range buffer {
		for _, v := range frame {
			dst = binary.LittleEndian.AppendUint16(dst, uint16(toInt16(v)))
		}
	}
	return dst
}

func toInt16(v float32) int16 {
	switch {
	case v < -1:
		return -math.MaxInt16
	case v > 1:
		return math.MaxInt16
	}
	return int16(v * math.MaxInt16)
}
