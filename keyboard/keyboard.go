// Package keyboard plays a bank from MIDI note messages.
package keyboard

import (
	"sync"

	"github.com/bellows-audio/bellows"
	"github.com/bellows-audio/bellows/engine"
	"gitlab.com/gomidi/midi/v2"
)

type (
	// Player triggers voices. *engine.Engine is a Player.
	Player interface {
		Trigger(sampleID, bankID string, volume, semitoneShift float64, loop bool) *engine.Voice
	}

	// Keyboard maps the keys of a bank to voices: note on triggers the sample
	// of the key, note off releases the voice. Keys without a mapping are
	// ignored.
	Keyboard struct {
		// Channel is the MIDI channel listened to, 0-15; -1 listens to all.
		Channel int

		player Player
		bank   bellows.BankSpec
		mu     sync.Mutex
		held   map[uint8]*engine.Voice
	}
)

func New(player Player, bank bellows.BankSpec) *Keyboard {
	return &Keyboard{Channel: -1, player: player, bank: bank, held: map[uint8]*engine.Voice{}}
}

// HandleMessage has the signature of a gomidi listener, so it can be passed to
// midi.ListenTo. Note on with velocity 0 is a note off.
func (k *Keyboard) HandleMessage(msg midi.Message, timestampms int32) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		if !k.listens(channel) {
			return
		}
		if velocity == 0 {
			k.NoteOff(key)
			return
		}
		k.NoteOn(key, velocity)
	case msg.GetNoteOff(&channel, &key, &velocity):
		if k.listens(channel) {
			k.NoteOff(key)
		}
	}
}

func (k *Keyboard) listens(channel uint8) bool {
	return k.Channel < 0 || int(channel) == k.Channel
}

// NoteOn triggers the sample mapped to the key, at a volume scaled by the
// velocity. A key that is still held is released first. It returns nil if the
// key is not mapped or its sample is not loaded.
func (k *Keyboard) NoteOn(key, velocity uint8) *engine.Voice {
	spec, ok := k.bank.Keys[key]
	if !ok {
		return nil
	}
	volume := spec.Volume
	if volume == 0 {
		volume = 1
	}
	volume *= float64(velocity) / 127
	v := k.player.Trigger(spec.Sample, k.bank.ID, volume, spec.Shift, spec.Loop)
	k.mu.Lock()
	old := k.held[key]
	if v != nil {
		k.held[key] = v
	} else {
		delete(k.held, key)
	}
	k.mu.Unlock()
	if old != nil {
		old.Release()
	}
	return v
}

// NoteOff releases the voice of the key, if any.
func (k *Keyboard) NoteOff(key uint8) {
	k.mu.Lock()
	v := k.held[key]
	delete(k.held, key)
	k.mu.Unlock()
	if v != nil {
		v.Release()
	}
}

// ReleaseAll releases every held key, e.g. when the MIDI device disconnects.
func (k *Keyboard) ReleaseAll() {
	k.mu.Lock()
	held := k.held
	k.held = map[uint8]*engine.Voice{}
	k.mu.Unlock()
	for _, v := range held {
		v.Release()
	}
}

// Held returns the number of keys currently held down.
func (k *Keyboard) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.held)
}
