//go:build !linux

package capture

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Evdev is unavailable off Linux; Start fails with a descriptive error.
type Evdev struct {
	events chan Event
}

func NewEvdev(paths []string, grab bool, logger *slog.Logger) *Evdev {
	return &Evdev{events: make(chan Event)}
}

func (e *Evdev) Start() error {
	return fmt.Errorf("evdev input capture is not supported on %s", runtime.GOOS)
}

func (e *Evdev) Close() error { return nil }

func (e *Evdev) Events() <-chan Event { return e.events }

func (e *Evdev) Dropped() uint64 { return 0 }
