// Package capture provides input event capture from physical keyboard and
// mouse hardware, delivering discrete events into a channel consumed by the
// remapping engine.
package capture

// Kind discriminates the event union.
type Kind uint8

const (
	KindMouseMove Kind = iota + 1
	KindMouseButton
	KindKey
	KindReset
)

// Mouse button identifiers as used in bind configuration.
const (
	MouseLeft uint16 = iota + 1
	MouseRight
	MouseMiddle
	MouseSide
	MouseExtra
)

// Event is one discrete input event. Exactly the fields implied by Kind are
// meaningful: DX/DY for MouseMove, Button+Pressed for MouseButton,
// Code+Pressed for Key, none for Reset.
type Event struct {
	Kind    Kind
	DX, DY  int32
	Button  uint16
	Code    uint16
	Pressed bool
}

// Source produces a stream of input events. Start begins capture; events are
// delivered on Events until Close. The channel is never closed by the source
// while capture is running, and sends never block: events are dropped when the
// consumer falls behind.
type Source interface {
	Start() error
	Close() error
	Events() <-chan Event
}
