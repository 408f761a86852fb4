package remap

import (
	"fmt"
	"time"
)

// BindKind discriminates physical input sources.
type BindKind uint8

const (
	BindKeyboard BindKind = iota + 1
	BindMouse
)

// Bind identifies one physical input: a keyboard key (by scan code) or a
// mouse button. Binds are value-comparable and used as map keys.
type Bind struct {
	Kind BindKind
	Code uint16
}

// KeyBind returns the Bind for a keyboard scan code.
func KeyBind(code uint16) Bind { return Bind{Kind: BindKeyboard, Code: code} }

// MouseBind returns the Bind for a mouse button.
func MouseBind(button uint16) Bind { return Bind{Kind: BindMouse, Code: button} }

func (b Bind) String() string {
	switch b.Kind {
	case BindKeyboard:
		return fmt.Sprintf("key(0x%02x)", b.Code)
	case BindMouse:
		return fmt.Sprintf("mouse(%d)", b.Code)
	}
	return "unbound"
}

// ActionKind discriminates controller effects.
type ActionKind uint8

const (
	ActionButton ActionKind = iota + 1
	ActionLeftTrigger
	ActionRightTrigger
	ActionAnalog
)

// ControllerAction is the logical controller effect associated with a bind:
// a digital button bit, a trigger, or a forced analog vector.
type ControllerAction struct {
	Kind   ActionKind
	Button uint16  // bitmask for ActionButton
	X, Y   float64 // vector for ActionAnalog
}

// DodgeAction names the composite dodge gestures. Jump triggers resolution;
// the four directions contribute to the resolved vector.
type DodgeAction uint8

const (
	DodgeJump DodgeAction = iota + 1
	DodgeForward
	DodgeBackward
	DodgeLeft
	DodgeRight
)

// LimitAction names the soft-limit control actions.
type LimitAction uint8

const (
	LimitReset LimitAction = iota + 1
	LimitToggle
	LimitIncrement
	LimitDecrement
)

// ShapingMode selects the analog shaping policy.
type ShapingMode uint8

const (
	ShapeCircular ShapingMode = iota
	ShapeLinear
)

// Config holds the static mapping tables and tunables for the engine. It is
// built once at startup and never mutated afterwards.
type Config struct {
	Sensitivity       float64
	SampleWindow      time.Duration
	DodgeLockDuration time.Duration
	PollBudget        time.Duration

	Shaping      ShapingMode
	MaskX, MaskY bool

	AlertThreshold float64
	LimitStep      float64

	Binds      map[Bind]ControllerAction
	DodgeBinds map[DodgeAction]Bind
	LimitBinds map[Bind]LimitAction
}

// DefaultConfig returns the tunable defaults with empty mapping tables.
func DefaultConfig() Config {
	return Config{
		Sensitivity:       1.0,
		SampleWindow:      20 * time.Millisecond,
		DodgeLockDuration: 50 * time.Millisecond,
		PollBudget:        2 * time.Millisecond,
		AlertThreshold:    1.5,
		LimitStep:         0.1,
		Binds:             map[Bind]ControllerAction{},
		DodgeBinds:        map[DodgeAction]Bind{},
		LimitBinds:        map[Bind]LimitAction{},
	}
}
