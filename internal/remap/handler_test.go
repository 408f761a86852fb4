package remap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hyperxmason/rlm2cedit/device/xbox360"
	"github.com/hyperxmason/rlm2cedit/internal/capture"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type recordAlerter struct{ last bool }

func (r *recordAlerter) SetActive(active bool) { r.last = active }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(cfg Config) (*Handler, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	h := New(cfg, nil, nil, nil, nil, discardLogger())
	h.now = clock.now
	return h, clock
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Binds[KeyBind(17)] = ControllerAction{Kind: ActionButton, Button: xbox360.ButtonX}  // W
	cfg.Binds[KeyBind(31)] = ControllerAction{Kind: ActionButton, Button: xbox360.ButtonB}  // S
	cfg.Binds[KeyBind(30)] = ControllerAction{Kind: ActionLeftTrigger}                      // A
	cfg.Binds[KeyBind(32)] = ControllerAction{Kind: ActionButton, Button: xbox360.ButtonY}  // D
	cfg.Binds[KeyBind(36)] = ControllerAction{Kind: ActionButton, Button: xbox360.ButtonA}  // J
	cfg.Binds[KeyBind(42)] = ControllerAction{Kind: ActionAnalog, X: 0, Y: 1}               // LShift
	cfg.Binds[MouseBind(1)] = ControllerAction{Kind: ActionRightTrigger}
	cfg.DodgeBinds[DodgeJump] = KeyBind(36)
	cfg.DodgeBinds[DodgeForward] = KeyBind(17)
	cfg.DodgeBinds[DodgeBackward] = KeyBind(31)
	cfg.DodgeBinds[DodgeLeft] = KeyBind(30)
	cfg.DodgeBinds[DodgeRight] = KeyBind(32)
	cfg.LimitBinds[KeyBind(63)] = LimitToggle    // F5
	cfg.LimitBinds[KeyBind(64)] = LimitIncrement // F6
	cfg.LimitBinds[KeyBind(65)] = LimitDecrement // F7
	cfg.LimitBinds[KeyBind(66)] = LimitReset     // F8
	return cfg
}

func TestDigitalBindRoundTrip(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	h.handleBind(KeyBind(17), true)
	assert.Equal(t, uint32(xbox360.ButtonX), h.report.Buttons)

	// Double press without release must not change the state.
	h.handleBind(KeyBind(17), true)
	assert.Equal(t, uint32(xbox360.ButtonX), h.report.Buttons)

	h.handleBind(KeyBind(17), false)
	assert.Equal(t, uint32(0), h.report.Buttons)
}

func TestTriggerBind(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	h.handleBind(KeyBind(30), true)
	assert.Equal(t, uint8(255), h.report.LT)
	h.handleBind(MouseBind(1), true)
	assert.Equal(t, uint8(255), h.report.RT)

	h.handleBind(KeyBind(30), false)
	assert.Equal(t, uint8(0), h.report.LT)
	h.handleBind(MouseBind(1), false)
	assert.Equal(t, uint8(0), h.report.RT)
}

func TestUnrecognizedBindIgnored(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	h.handleBind(KeyBind(99), true)
	assert.Equal(t, xbox360.InputState{}, h.report)
	assert.Equal(t, lockNone, h.lock.kind)
}

func TestAnalogBindLocksUntilRelease(t *testing.T) {
	h, clock := newTestHandler(testConfig())

	h.handleBind(KeyBind(42), true)
	assert.Equal(t, lockHeld, h.lock.kind)
	assert.Equal(t, 0.0, h.lock.x)
	assert.Equal(t, 1.0, h.lock.y)

	// Live mouse motion is ignored while locked.
	h.samples = append(h.samples, mouseSample{dx: 500, dy: 0, t: clock.now()})
	h.updateAnalog()
	assert.InDelta(t, 0, float64(h.report.LX), 1)
	assert.InDelta(t, 32767, float64(h.report.LY), 1)

	// The held lock does not time out.
	clock.advance(time.Hour)
	h.updateAnalog()
	assert.Equal(t, lockHeld, h.lock.kind)

	h.handleBind(KeyBind(42), false)
	assert.Equal(t, lockNone, h.lock.kind)
}

func TestAnalogBindAutoRepeatDebounce(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	h.handleBind(KeyBind(42), true)
	lock := h.lock
	// Keyboard auto-repeat re-sends the press while held.
	h.handleBind(KeyBind(42), true)
	assert.Equal(t, lock, h.lock)

	h.handleBind(KeyBind(42), false)
	assert.Equal(t, lockNone, h.lock.kind)
}

func TestDodgeResolution(t *testing.T) {
	tests := []struct {
		name  string
		held  []Bind
		wantX float64
		wantY float64
	}{
		{name: "neutral jump", wantX: 0, wantY: 0},
		{name: "forward", held: []Bind{KeyBind(17)}, wantX: 0, wantY: 1},
		{name: "backward", held: []Bind{KeyBind(31)}, wantX: 0, wantY: -1},
		{name: "left trigger gesture", held: []Bind{KeyBind(30)}, wantX: -1, wantY: 0},
		{name: "forward left", held: []Bind{KeyBind(17), KeyBind(30)}, wantX: -1, wantY: 1},
		{name: "left forward reversed order", held: []Bind{KeyBind(30), KeyBind(17)}, wantX: -1, wantY: 1},
		{name: "forward backward cancel", held: []Bind{KeyBind(17), KeyBind(31)}, wantX: 0, wantY: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(testConfig())
			for _, b := range tt.held {
				h.handleBind(b, true)
			}
			h.handleBind(KeyBind(36), true) // jump

			assert.Equal(t, lockTimed, h.lock.kind)
			assert.Equal(t, tt.wantX, h.lock.x)
			assert.Equal(t, tt.wantY, h.lock.y)
		})
	}
}

func TestDodgeLockExpiry(t *testing.T) {
	cfg := testConfig()
	h, clock := newTestHandler(cfg)

	h.handleBind(KeyBind(17), true)
	h.handleBind(KeyBind(36), true)
	assert.Equal(t, lockTimed, h.lock.kind)

	// Still locked within the dodge duration.
	clock.advance(cfg.DodgeLockDuration / 2)
	h.updateAnalog()
	assert.Equal(t, lockTimed, h.lock.kind)
	assert.InDelta(t, 32767, float64(h.report.LY), 1)

	// Expired: falls back to live computation with no residual vector.
	clock.advance(cfg.DodgeLockDuration)
	h.updateAnalog()
	assert.Equal(t, lockNone, h.lock.kind)
	assert.Equal(t, int16(0), h.report.LX)
	assert.Equal(t, int16(0), h.report.LY)
}

func TestAnalogReleaseKeepsDodgeLock(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	h.handleBind(KeyBind(36), true) // jump, timed lock
	assert.Equal(t, lockTimed, h.lock.kind)

	// Releasing the analog bind does not own the dodge lock.
	h.handleBind(KeyBind(42), false)
	assert.Equal(t, lockTimed, h.lock.kind)
}

func TestOnlyPressTriggersDodge(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	h.handleBind(KeyBind(36), true)
	assert.Equal(t, lockTimed, h.lock.kind)
	h.lock = analogLock{}

	h.handleBind(KeyBind(36), false)
	assert.Equal(t, lockNone, h.lock.kind)
}

func TestLimitActions(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	assert.False(t, h.limited)
	h.handleBind(KeyBind(63), true) // toggle
	assert.True(t, h.limited)

	h.handleBind(KeyBind(65), true) // decrement
	assert.InDelta(t, 0.9, h.limit, 1e-9)

	// Increment saturates at 1.0.
	h.handleBind(KeyBind(64), true)
	h.handleBind(KeyBind(64), true)
	assert.Equal(t, 1.0, h.limit)

	// Decrement saturates at 0.0.
	for i := 0; i < 15; i++ {
		h.handleBind(KeyBind(65), true)
	}
	assert.Equal(t, 0.0, h.limit)

	h.handleBind(KeyBind(66), true) // reset
	assert.False(t, h.limited)
}

func TestResetClearsEverything(t *testing.T) {
	h, clock := newTestHandler(testConfig())

	h.handleBind(KeyBind(17), true)
	h.handleBind(KeyBind(30), true)
	h.handleBind(KeyBind(42), true)
	h.samples = append(h.samples, mouseSample{dx: 10, dy: 10, t: clock.now()})

	h.dispatch(capture.Event{Kind: capture.KindReset})

	assert.Equal(t, xbox360.InputState{}, h.report)
	assert.Equal(t, lockNone, h.lock.kind)
	assert.Empty(t, h.samples)
}

type countingSink struct {
	mu      sync.Mutex
	updates int
	last    xbox360.InputState
	done    func()
}

func (s *countingSink) Update(state *xbox360.InputState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.last = *state
	if s.updates == 5 {
		s.done()
	}
	return nil
}

func TestRunPushesEveryTick(t *testing.T) {
	events := make(chan capture.Event, 8)
	events <- capture.Event{Kind: capture.KindKey, Code: 17, Pressed: true}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &countingSink{done: cancel}
	h := New(testConfig(), events, sink, nil, nil, discardLogger())

	err := h.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.GreaterOrEqual(t, sink.updates, 5)
	assert.Equal(t, uint32(xbox360.ButtonX), sink.last.Buttons)
}

type failingSink struct{}

func (failingSink) Update(*xbox360.InputState) error { return errors.New("device gone") }

func TestRunSinkFailureIsFatal(t *testing.T) {
	h := New(testConfig(), nil, failingSink{}, nil, nil, discardLogger())

	err := h.Run(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "push report to controller sink")
	assert.Contains(t, err.Error(), "device gone")
}
