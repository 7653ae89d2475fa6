//go:build windows

package main

import (
	"context"
	"errors"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/midibridge"
)

func playKeys(context.Context, *polysynth.Engine, *midibridge.Bridge) error {
	return errors.New("keys: not supported on this platform")
}
