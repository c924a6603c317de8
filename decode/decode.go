// Package decode turns the bytes of compressed or uncompressed audio files
// into bellows.Samples at the rate of the output context.
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bellows-audio/bellows"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

type (
	// Decoder decodes the bytes of an audio file into a Sample with the given
	// sample rate.
	Decoder interface {
		Decode(data []byte, sampleRate int) (*bellows.Sample, error)
	}

	// Beep decodes WAV, MP3, FLAC and Ogg Vorbis. The container is detected
	// from the content, not from the name of the file.
	Beep struct {
		// ResampleQuality is passed to beep.Resample when the file has a
		// different rate than requested. Zero means DefaultResampleQuality.
		ResampleQuality int
	}

	Format int
)

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
	FormatFLAC
	FormatVorbis
)

const DefaultResampleQuality = 4

const streamChunk = 1024

var (
	ErrUnknownFormat = errors.New("unknown audio format")
	ErrEmpty         = errors.New("audio file contains no samples")
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	case FormatFLAC:
		return "flac"
	case FormatVorbis:
		return "vorbis"
	}
	return "unknown"
}

// Detect sniffs the container format from the first bytes of data.
func Detect(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return FormatFLAC
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return FormatVorbis
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0: // MPEG frame sync
		return FormatMP3
	}
	return FormatUnknown
}

func (b Beep) Decode(data []byte, sampleRate int) (*bellows.Sample, error) {
	format := Detect(data)
	streamer, f, err := open(format, data)
	if err != nil {
		return nil, err
	}
	defer streamer.Close()
	var s beep.Streamer = streamer
	if int(f.SampleRate) != sampleRate {
		quality := b.ResampleQuality
		if quality == 0 {
			quality = DefaultResampleQuality
		}
		s = beep.Resample(quality, f.SampleRate, beep.SampleRate(sampleRate), s)
	}
	numChannels := min(max(f.NumChannels, 1), 2)
	ret := &bellows.Sample{SampleRate: sampleRate, Channels: make([][]float32, numChannels)}
	chunk := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(chunk)
		for _, frame := range chunk[:n] {
			for c := range ret.Channels {
				ret.Channels[c] = append(ret.Channels[c], float32(frame[c]))
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("decoding %v: %w", format, err)
	}
	if ret.Len() == 0 {
		return nil, ErrEmpty
	}
	return ret, nil
}

func open(format Format, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	rc := io.NopCloser(bytes.NewReader(data))
	var (
		s   beep.StreamSeekCloser
		f   beep.Format
		err error
	)
	switch format {
	case FormatWAV:
		s, f, err = wav.Decode(rc)
	case FormatMP3:
		s, f, err = mp3.Decode(rc)
	case FormatFLAC:
		s, f, err = flac.Decode(rc)
	case FormatVorbis:
		s, f, err = vorbis.Decode(rc)
	default:
		return nil, beep.Format{}, ErrUnknownFormat
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("opening %v: %w", format, err)
	}
	return s, f, nil
}
