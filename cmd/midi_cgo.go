//go:build cgo

package cmd

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

type rtmidiInput struct {
	driver *rtmididrv.Driver
	in     drivers.In
	stop   func()
}

// OpenMIDIInput opens the first MIDI input whose name starts with namePrefix
// and passes its messages to handler. An empty prefix takes the first input.
func OpenMIDIInput(namePrefix string, handler MIDIHandler) (MIDIInput, error) {
	driver, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("could not open the MIDI driver: %w", err)
	}
	ins, err := driver.Ins()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("could not list MIDI inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if strings.HasPrefix(in.String(), namePrefix) {
			found = in
			break
		}
	}
	if found == nil {
		driver.Close()
		return nil, fmt.Errorf("could not find a MIDI input starting with %q", namePrefix)
	}
	if err := found.Open(); err != nil {
		driver.Close()
		return nil, fmt.Errorf("opening MIDI input %v failed: %w", found, err)
	}
	stop, err := midi.ListenTo(found, handler)
	if err != nil {
		found.Close()
		driver.Close()
		return nil, fmt.Errorf("listening to MIDI input %v failed: %w", found, err)
	}
	return &rtmidiInput{driver: driver, in: found, stop: stop}, nil
}

func (r *rtmidiInput) String() string {
	return r.in.String()
}

func (r *rtmidiInput) Close() error {
	r.stop()
	err := r.in.Close()
	r.driver.Close()
	return err
}
