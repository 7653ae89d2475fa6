//go:build !windows

package main

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"golang.org/x/term"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/midibridge"
)

var keyNotes = map[byte]uint8{
	'a': 57, 's': 59, 'd': 60, 'f': 62, 'g': 64, 'h': 65, 'j': 67, 'k': 69,
}

var keyDrums = map[byte]int{'z': polysynth.DrumKick, 'x': polysynth.DrumSnare, 'c': polysynth.DrumHat}

// playKeys reads raw stdin until ctx is done or q is pressed. Note keys play
// a short note through the bridge; z, x and c strike the drums.
func playKeys(ctx context.Context, e *polysynth.Engine, b *midibridge.Bridge) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("keys: stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, old)
	if err := syscall.SetNonblock(fd, true); err != nil {
		return err
	}
	defer syscall.SetNonblock(fd, false)

	buf := make([]byte, 1)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := syscall.Read(fd, buf)
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
			if err := sleep(ctx, 5*time.Millisecond); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
		switch k := buf[0]; {
		case k == 'q' || k == 0x03:
			return errQuit
		case keyNotes[k] != 0:
			note := keyNotes[k]
			b.Handle(midi.NoteOn(0, note, 100), 0)
			time.AfterFunc(250*time.Millisecond, func() { b.Handle(midi.NoteOff(0, note), 0) })
		default:
			if v, ok := keyDrums[k]; ok {
				e.TriggerDrum(v)
			}
		}
	}
}
