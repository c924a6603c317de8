// Package cmd holds the parts of the command line tools that depend on the
// build configuration.
package cmd

import (
	"errors"

	"gitlab.com/gomidi/midi/v2"
)

type (
	// MIDIHandler receives the messages of a MIDI input.
	MIDIHandler func(msg midi.Message, timestampms int32)

	// MIDIInput is an open MIDI input port.
	MIDIInput interface {
		String() string
		Close() error
	}
)

// ErrNoMIDI is returned when the binary was built without MIDI support.
var ErrNoMIDI = errors.New("MIDI is not supported in this build; build with cgo enabled")
