package decode_test

import (
	"errors"
	"math"
	"testing"

	"github.com/bellows-audio/bellows"
	"github.com/bellows-audio/bellows/decode"
)

func sineWav(t *testing.T, sampleRate, frames int) []byte {
	t.Helper()
	buf := make(bellows.AudioBuffer, frames)
	for i := range buf {
		v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
		buf[i] = [2]float32{v, -v}
	}
	data, err := buf.Wav(sampleRate, true)
	if err != nil {
		t.Fatalf("could not encode wav: %v", err)
	}
	return data
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want decode.Format
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), decode.FormatWAV},
		{"flac", []byte("fLaC\x00\x00"), decode.FormatFLAC},
		{"ogg", []byte("OggS\x00\x02"), decode.FormatVorbis},
		{"id3", []byte("ID3\x04\x00"), decode.FormatMP3},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, decode.FormatMP3},
		{"text", []byte("hello world"), decode.FormatUnknown},
		{"empty", nil, decode.FormatUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decode.Detect(tt.data); got != tt.want {
				t.Errorf("Detect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeWav(t *testing.T) {
	const frames = 4410
	s, err := decode.Beep{}.Decode(sineWav(t, 44100, frames), 44100)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", s.SampleRate)
	}
	if s.NumChannels() != 2 {
		t.Fatalf("NumChannels = %d, want 2", s.NumChannels())
	}
	if s.Len() != frames {
		t.Fatalf("Len = %d, want %d", s.Len(), frames)
	}
	for i := 0; i < frames; i += 97 {
		want := 0.5 * math.Sin(2*math.Pi*440*float64(i)/44100)
		if d := math.Abs(float64(s.Channels[0][i]) - want); d > 1e-3 {
			t.Fatalf("left sample %d = %v, want %v", i, s.Channels[0][i], want)
		}
		if d := math.Abs(float64(s.Channels[1][i]) + want); d > 1e-3 {
			t.Fatalf("right sample %d = %v, want %v", i, s.Channels[1][i], -want)
		}
	}
}

func TestDecodeResamples(t *testing.T) {
	s, err := decode.Beep{}.Decode(sineWav(t, 22050, 2205), 44100)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if s.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", s.SampleRate)
	}
	if d := math.Abs(s.Duration() - 0.1); d > 0.005 {
		t.Errorf("Duration = %v, want about 0.1", s.Duration())
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := (decode.Beep{}).Decode([]byte("not audio at all"), 44100); !errors.Is(err, decode.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	truncated := sineWav(t, 44100, 100)[:20]
	if _, err := (decode.Beep{}).Decode(truncated, 44100); err == nil {
		t.Error("expected an error for a truncated wav")
	}
}
