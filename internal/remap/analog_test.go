package remap

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSampleEviction(t *testing.T) {
	h, clock := newTestHandler(testConfig())
	start := clock.now()

	h.samples = []mouseSample{
		{dx: 1, dy: 0, t: start},
		{dx: 2, dy: 0, t: start.Add(10 * time.Millisecond)},
		{dx: 3, dy: 0, t: start.Add(15 * time.Millisecond)},
	}

	// At start+25ms the first sample is 25ms old (> 20ms window), the rest
	// form the maximal suffix within the window.
	clock.advance(25 * time.Millisecond)
	h.evictSamples(clock.now())

	assert.Len(t, h.samples, 2)
	assert.Equal(t, int32(2), h.samples[0].dx)
}

func TestSampleEvictionStrictInequality(t *testing.T) {
	h, clock := newTestHandler(testConfig())

	h.samples = []mouseSample{{dx: 1, dy: 0, t: clock.now()}}

	// Age exactly equal to the window is not evicted.
	clock.advance(h.cfg.SampleWindow)
	h.evictSamples(clock.now())
	assert.Len(t, h.samples, 1)

	clock.advance(time.Nanosecond)
	h.evictSamples(clock.now())
	assert.Empty(t, h.samples)
}

func TestVelocityIsUnweightedSum(t *testing.T) {
	h, clock := newTestHandler(testConfig())

	// Two samples sum, they are not averaged.
	h.samples = []mouseSample{
		{dx: 50, dy: 0, t: clock.now()},
		{dx: 50, dy: 0, t: clock.now()},
	}
	h.updateAnalog()
	two := h.report.LX

	h.samples = []mouseSample{{dx: 50, dy: 0, t: clock.now()}}
	h.updateAnalog()
	one := h.report.LX

	assert.InDelta(t, float64(two), 2*float64(one), 1)
}

func TestVelocityScenarioSingleSample(t *testing.T) {
	// sensitivity=1.0, window=20ms, one MouseMove(100, 0), circular shaping,
	// no lock: multiplier = 1/(1e4*0.02) = 1/200, x = 0.5 of full deflection.
	h, clock := newTestHandler(testConfig())

	h.samples = []mouseSample{{dx: 100, dy: 0, t: clock.now()}}
	h.updateAnalog()

	assert.InDelta(t, 16384, float64(h.report.LX), 1)
	assert.Equal(t, int16(0), h.report.LY)
}

func TestVelocityInvertsY(t *testing.T) {
	h, clock := newTestHandler(testConfig())

	// Screen-space downward motion tilts the stick up.
	h.samples = []mouseSample{{dx: 0, dy: 100, t: clock.now()}}
	h.updateAnalog()

	assert.Equal(t, int16(0), h.report.LX)
	assert.Less(t, h.report.LY, int16(0))
}

func TestEmptyQueueYieldsZero(t *testing.T) {
	h, _ := newTestHandler(testConfig())
	h.updateAnalog()
	assert.Equal(t, int16(0), h.report.LX)
	assert.Equal(t, int16(0), h.report.LY)
}

func TestCircularShapingCapsRadius(t *testing.T) {
	h, _ := newTestHandler(testConfig())

	// Magnitude beyond 1.0 is capped at the unit circle.
	h.setAnalog(3, 4)
	radius := math.Hypot(float64(h.report.LX), float64(h.report.LY)) / 32768
	assert.InDelta(t, 1.0, radius, 0.001)

	// Direction is preserved.
	assert.InDelta(t, math.Atan2(4, 3), math.Atan2(float64(h.report.LY), float64(h.report.LX)), 0.001)
}

func TestCircularShapingSoftLimit(t *testing.T) {
	h, _ := newTestHandler(testConfig())
	h.limited = true
	h.limit = 0.5

	h.setAnalog(1, 0)
	assert.InDelta(t, 16384, float64(h.report.LX), 1)

	// The limit does not affect vectors already inside it.
	h.setAnalog(0.25, 0)
	assert.InDelta(t, 8192, float64(h.report.LX), 1)
}

func TestLinearShapingDirectInsideUnitSquare(t *testing.T) {
	cfg := testConfig()
	cfg.Shaping = ShapeLinear
	h, _ := newTestHandler(cfg)

	h.setAnalog(0.5, -0.5)
	assert.InDelta(t, 16384, float64(h.report.LX), 1)
	assert.InDelta(t, -16384, float64(h.report.LY), 1)
}

func TestLinearShapingOvershootCorrection(t *testing.T) {
	cfg := testConfig()
	cfg.Shaping = ShapeLinear
	h, _ := newTestHandler(cfg)

	// (2,1) overshoots: pulled back to (1, 0.5) on the unit square boundary,
	// preserving the direction instead of clipping each axis on its own.
	h.setAnalog(2, 1)
	assert.InDelta(t, 32767, float64(h.report.LX), 2)
	assert.InDelta(t, 16384, float64(h.report.LY), 2)

	assert.InDelta(t, math.Atan2(1, 2), math.Atan2(float64(h.report.LY), float64(h.report.LX)), 0.001)
}

func TestAxisMask(t *testing.T) {
	cfg := testConfig()
	cfg.MaskX = true
	h, _ := newTestHandler(cfg)

	h.setAnalog(1, 0.5)
	assert.Equal(t, int16(0), h.report.LX)
	assert.Greater(t, h.report.LY, int16(0))
}

func TestOversteerAlertSignal(t *testing.T) {
	h, _ := newTestHandler(testConfig())
	rec := &recordAlerter{}
	h.alerter = rec

	h.setAnalog(1.0, 0)
	assert.False(t, rec.last)

	h.setAnalog(1.5, 0)
	assert.True(t, rec.last)

	h.setAnalog(0, -1.6)
	assert.True(t, rec.last)

	h.setAnalog(0.1, 0.1)
	assert.False(t, rec.last)
}
