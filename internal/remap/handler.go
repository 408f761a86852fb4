// Package remap implements the event-to-report translation engine: the
// polling loop draining captured input events, bind resolution onto a virtual
// Xbox 360 report, dodge gesture locks, and the analog shaping math.
package remap

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/hyperxmason/rlm2cedit/device/xbox360"
	"github.com/hyperxmason/rlm2cedit/internal/alert"
	"github.com/hyperxmason/rlm2cedit/internal/capture"
	"github.com/hyperxmason/rlm2cedit/internal/log"
)

// Sink receives the assembled report once per tick. A failed update is fatal
// to the engine: there is nothing useful to do without an output device.
type Sink interface {
	Update(state *xbox360.InputState) error
}

// statsWindow is the sampling window for iteration-rate diagnostics.
const statsWindow = 2 * time.Second

// Handler owns the full remapping state: the report, the lock state, the
// mouse sample queue and all counters. It runs single-threaded; events arrive
// through a channel and are only ever read non-blockingly.
type Handler struct {
	cfg     Config
	events  <-chan capture.Event
	sink    Sink
	alerter alert.Alerter
	elog    log.EventLogger
	logger  *slog.Logger

	report  xbox360.InputState
	samples []mouseSample

	lock     analogLock
	heldBind Bind

	limited bool
	limit   float64

	now func() time.Time

	iterCount   int
	iterTotal   time.Duration
	windowStart time.Time
}

// New creates a Handler. alerter may be nil when the oversteer alert is
// disabled; elog may be nil when event tracing is off.
func New(cfg Config, events <-chan capture.Event, sink Sink, alerter alert.Alerter, elog log.EventLogger, logger *slog.Logger) *Handler {
	if alerter == nil {
		alerter = alert.Noop{}
	}
	if elog == nil {
		elog = log.NewEventLogger(nil)
	}
	return &Handler{
		cfg:     cfg,
		events:  events,
		sink:    sink,
		alerter: alerter,
		elog:    elog,
		logger:  logger,
		limit:   1.0,
		now:     time.Now,
	}
}

// Run executes the poll loop until the context is cancelled or the sink
// fails. Each iteration drains at most one event, recomputes the analog
// output and pushes the full report.
func (h *Handler) Run(ctx context.Context) error {
	h.windowStart = h.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		start := h.now()

		if ev, ok := h.poll(start); ok {
			h.dispatch(ev)
		}

		h.updateAnalog()
		if err := h.sink.Update(&h.report); err != nil {
			return fmt.Errorf("push report to controller sink: %w", err)
		}

		h.observeTick(start)
	}
}

// poll attempts a non-blocking dequeue, spinning with a scheduler yield until
// an event arrives or the poll budget elapses. The budget bounds both input
// latency and the report refresh interval.
func (h *Handler) poll(start time.Time) (capture.Event, bool) {
	for {
		select {
		case ev := <-h.events:
			return ev, true
		default:
		}
		if h.now().Sub(start) >= h.cfg.PollBudget {
			return capture.Event{}, false
		}
		runtime.Gosched()
	}
}

func (h *Handler) dispatch(ev capture.Event) {
	switch ev.Kind {
	case capture.KindMouseMove:
		h.elog.Event("motion", ev.DX, ev.DY, false)
		h.samples = append(h.samples, mouseSample{dx: ev.DX, dy: ev.DY, t: h.now()})
	case capture.KindMouseButton:
		h.elog.Event("mouse", int32(ev.Button), 0, ev.Pressed)
		h.handleBind(MouseBind(ev.Button), ev.Pressed)
	case capture.KindKey:
		h.elog.Event("key", int32(ev.Code), 0, ev.Pressed)
		h.handleBind(KeyBind(ev.Code), ev.Pressed)
	case capture.KindReset:
		h.elog.Event("reset", 0, 0, false)
		h.resetState()
	}
}

// resetState returns buttons, triggers, axes, the lock and pending mouse
// samples to their defaults.
func (h *Handler) resetState() {
	h.report = xbox360.InputState{}
	h.lock = analogLock{}
	h.heldBind = Bind{}
	h.samples = h.samples[:0]
	h.logger.Info("state reset")
}

// handleBind applies the configured effect of one press/release transition.
// Inputs with no configured effect are ignored.
func (h *Handler) handleBind(bind Bind, pressed bool) {
	if pressed {
		if action, ok := h.cfg.LimitBinds[bind]; ok {
			h.applyLimitAction(action)
		}
	}

	action, ok := h.cfg.Binds[bind]
	if !ok {
		return
	}

	switch action.Kind {
	case ActionAnalog:
		if !pressed {
			if h.lock.kind == lockHeld && h.heldBind == bind {
				h.lock = analogLock{}
				h.heldBind = Bind{}
			}
			return
		}
		// Key auto-repeat delivers extra presses while held; they must not
		// re-enter the lock.
		if h.lock.kind == lockHeld && h.heldBind == bind {
			return
		}
		h.lock = analogLock{kind: lockHeld, x: action.X, y: action.Y}
		h.heldBind = bind
		h.setAnalog(action.X, action.Y)
		return

	case ActionLeftTrigger:
		if pressed {
			h.report.LT = math.MaxUint8
		} else {
			h.report.LT = 0
		}

	case ActionRightTrigger:
		if pressed {
			h.report.RT = math.MaxUint8
		} else {
			h.report.RT = 0
		}

	case ActionButton:
		if pressed {
			h.report.Buttons |= uint32(action.Button)
		} else {
			h.report.Buttons &^= uint32(action.Button)
		}
	}

	if !pressed {
		return
	}

	if jumpBind, ok := h.cfg.DodgeBinds[DodgeJump]; ok && jumpBind == bind {
		h.handleJump()
	}
}

// handleJump resolves the dodge vector from the currently held directional
// gestures and locks it for the configured dodge duration. Opposing
// directions cancel.
func (h *Handler) handleJump() {
	var x, y float64

	directions := []struct {
		action DodgeAction
		axis   *float64
		diff   float64
	}{
		{DodgeForward, &y, 1.0},
		{DodgeBackward, &y, -1.0},
		{DodgeLeft, &x, -1.0},
		{DodgeRight, &x, 1.0},
	}

	for _, d := range directions {
		if h.dodgeActionPressed(d.action) {
			*d.axis += d.diff
		}
	}

	h.lock = analogLock{kind: lockTimed, until: h.now().Add(h.cfg.DodgeLockDuration), x: x, y: y}
	h.heldBind = Bind{}
	h.setAnalog(x, y)
}

// dodgeActionPressed resolves a gesture through its bound input back to the
// current digital state: trigger-mapped gestures are active at magnitude > 0,
// bitmask-mapped ones when the bit is set.
func (h *Handler) dodgeActionPressed(action DodgeAction) bool {
	bind, ok := h.cfg.DodgeBinds[action]
	if !ok {
		return false
	}
	controllerAction, ok := h.cfg.Binds[bind]
	if !ok {
		return false
	}
	switch controllerAction.Kind {
	case ActionLeftTrigger:
		return h.report.LT > 0
	case ActionRightTrigger:
		return h.report.RT > 0
	case ActionButton:
		return h.report.Buttons&uint32(controllerAction.Button) != 0
	}
	return false
}

func (h *Handler) applyLimitAction(action LimitAction) {
	switch action {
	case LimitReset:
		h.limited = false
		h.logger.Info("analog limit reset")
	case LimitToggle:
		h.limited = !h.limited
		if h.limited {
			h.logger.Info("analog limit on", "limit", h.limit)
		} else {
			h.logger.Info("analog limit off")
		}
	case LimitIncrement:
		h.limit = math.Min(h.limit+h.cfg.LimitStep, 1.0)
		h.logger.Info("analog limit adjusted", "limit", h.limit)
	case LimitDecrement:
		h.limit = math.Max(h.limit-h.cfg.LimitStep, 0.0)
		h.logger.Info("analog limit adjusted", "limit", h.limit)
	}
}

// observeTick accumulates iteration-rate statistics for diagnostic logging.
// No effect on control flow.
func (h *Handler) observeTick(start time.Time) {
	if !h.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	h.iterCount++
	h.iterTotal += h.now().Sub(start)

	if h.now().Sub(h.windowStart) > statsWindow {
		h.logger.Debug("poll loop statistics",
			"loops", h.iterCount,
			"per_sec", float64(h.iterCount)/statsWindow.Seconds(),
			"avg", h.iterTotal/time.Duration(h.iterCount))
		h.iterCount = 0
		h.iterTotal = 0
		h.windowStart = h.now()
	}
}
