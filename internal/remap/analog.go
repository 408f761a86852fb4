package remap

import (
	"math"
	"time"

	"github.com/hyperxmason/rlm2cedit/device/xbox360"
)

// velocityNorm is the fixed normalization constant in the mouse velocity
// multiplier sensitivity / (velocityNorm * sample_window_seconds).
const velocityNorm = 1e4

// mouseSample is one physical mouse-motion delta with its arrival time.
// Samples are kept in arrival order, so timestamps are non-decreasing.
type mouseSample struct {
	dx, dy int32
	t      time.Time
}

type lockKind uint8

const (
	lockNone  lockKind = iota
	lockTimed          // dodge gesture, expires after the dodge lock duration
	lockHeld           // held analog bind, cleared on release
)

// analogLock is the lock state: while active, the stored vector replaces the
// live mouse-derived vector.
type analogLock struct {
	kind  lockKind
	until time.Time
	x, y  float64
}

// evictSamples drops samples whose age strictly exceeds the sampling window.
// The queue is monotonic in time, so a single forward scan suffices.
func (h *Handler) evictSamples(now time.Time) {
	i := 0
	for i < len(h.samples) && now.Sub(h.samples[i].t) > h.cfg.SampleWindow {
		i++
	}
	if i > 0 {
		h.samples = append(h.samples[:0], h.samples[i:]...)
	}
}

// updateAnalog recomputes the left stick from either the live mouse velocity
// or the locked vector, then shapes it into the report.
func (h *Handler) updateAnalog() {
	now := h.now()
	h.evictSamples(now)

	if h.lock.kind == lockTimed && now.After(h.lock.until) {
		h.lock = analogLock{}
	}

	if h.lock.kind == lockNone {
		// Deliberately an unweighted sum over the window, not an average:
		// output scales with the motion event rate.
		var vx, vy float64
		for _, s := range h.samples {
			vx += float64(s.dx)
			vy += float64(s.dy)
		}

		multiplier := h.cfg.Sensitivity / (velocityNorm * h.cfg.SampleWindow.Seconds())

		// Screen-space down is stick up.
		h.setAnalog(vx*multiplier, -vy*multiplier)
	} else {
		h.setAnalog(h.lock.x, h.lock.y)
	}
}

// setAnalog shapes the raw vector and writes the left stick axes. It also
// forwards the oversteer signal each call.
func (h *Handler) setAnalog(x, y float64) {
	h.alerter.SetActive(math.Max(math.Abs(x), math.Abs(y)) >= h.cfg.AlertThreshold)

	if h.cfg.MaskX {
		x = 0
	}
	if h.cfg.MaskY {
		y = 0
	}

	var ox, oy float64
	switch h.cfg.Shaping {
	case ShapeLinear:
		if math.Abs(x) <= 1 && math.Abs(y) <= 1 {
			ox, oy = x, y
		} else {
			// Pull the vector back onto the unit square boundary without
			// changing its direction, instead of clipping axes independently.
			overshoot := math.Max(math.Abs(x), math.Abs(y))
			angle := math.Atan2(y, x)
			radius := math.Hypot(x, y) / overshoot
			ox = math.Cos(angle) * radius
			oy = math.Sin(angle) * radius
		}
	default: // ShapeCircular
		radiusLimit := 1.0
		if h.limited {
			radiusLimit = h.limit
		}
		angle := math.Atan2(y, x)
		radius := math.Min(math.Hypot(x, y), radiusLimit)
		ox = math.Cos(angle) * radius
		oy = math.Sin(angle) * radius
	}

	h.report.LX = xbox360.ClampAxis(ox * xbox360.AxisMax)
	h.report.LY = xbox360.ClampAxis(oy * xbox360.AxisMax)
}
