// Package alert delivers the oversteer alert signal. The engine calls
// SetActive once per tick; implementations must tolerate repeated calls with
// the same value.
package alert

import (
	"fmt"
	"io"
	"sync"
)

// Alerter receives the on/off oversteer signal.
type Alerter interface {
	SetActive(active bool)
}

// Noop discards the alert signal. Used when the alert is disabled in
// configuration.
type Noop struct{}

func (Noop) SetActive(bool) {}

// Bell writes the terminal bell character on each rising edge of the signal.
type Bell struct {
	w      io.Writer
	mu     sync.Mutex
	active bool
}

// NewBell creates a Bell writing to w (typically os.Stdout).
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

func (b *Bell) SetActive(active bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if active && !b.active {
		_, _ = fmt.Fprint(b.w, "\a")
	}
	b.active = active
}
