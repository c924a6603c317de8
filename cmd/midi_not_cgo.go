//go:build !cgo

package cmd

// OpenMIDIInput fails: without cgo, rtmidi is not available.
func OpenMIDIInput(namePrefix string, handler MIDIHandler) (MIDIInput, error) {
	return nil, ErrNoMIDI
}
