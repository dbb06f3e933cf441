// Package mouse drives absolute cursor positioning over the relative-only
// HID mouse protocol. The device cannot report its cursor position, so
// every absolute move first re-centers by overshooting far past the
// device's range toward the top-left corner, then walks from the known
// origin to the target with deltas that sum exactly to it.
package mouse

import (
	"fmt"
	"math"
	"time"

	"github.com/veltalldev/hid-server/internal/hid"
)

// ReportSize is the length of a HID mouse report: [buttons, dx, dy, wheel].
const ReportSize = 4

// deltaMax is the largest magnitude a single relative report can carry.
const deltaMax = 127

// Reference tuning values.
const (
	DefaultOvershoot   = 3000
	DefaultMoveChunk   = 100
	DefaultResetGap    = time.Millisecond
	DefaultMoveGap     = 5 * time.Millisecond
	DefaultSettleDelay = 50 * time.Millisecond
	DefaultClickDelay  = 100 * time.Millisecond
	DefaultClickHold   = 50 * time.Millisecond
)

// Options configures a Controller. Zero tuning fields take the reference
// defaults; the four dimensions are required.
type Options struct {
	ScreenWidth  int
	ScreenHeight int
	DeviceMaxX   int
	DeviceMaxY   int

	Overshoot   int           // re-centering distance per axis
	MoveChunk   int           // per-report step for large moves
	ResetGap    time.Duration // gap between re-centering reports
	MoveGap     time.Duration // gap between movement chunks
	SettleDelay time.Duration // wait after re-centering
	ClickDelay  time.Duration // wait between arrival and button press
	ClickHold   time.Duration // wait between press and release
}

// OutOfBoundsError reports coordinates outside the screen resolution.
type OutOfBoundsError struct {
	X, Y       int
	MaxX, MaxY int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("coordinates (%d, %d) outside screen bounds %dx%d", e.X, e.Y, e.MaxX, e.MaxY)
}

// Controller synthesizes relative mouse reports for absolute positioning.
// It tracks the cursor position as a best-effort in-process estimate; the
// single owner (the engine) serializes all calls.
type Controller struct {
	sink hid.Sink
	opts Options

	posX, posY int
}

// New creates a controller writing reports to sink.
func New(sink hid.Sink, opts Options) *Controller {
	if opts.Overshoot == 0 {
		opts.Overshoot = DefaultOvershoot
	}
	if opts.MoveChunk == 0 {
		opts.MoveChunk = DefaultMoveChunk
	}
	if opts.ResetGap == 0 {
		opts.ResetGap = DefaultResetGap
	}
	if opts.MoveGap == 0 {
		opts.MoveGap = DefaultMoveGap
	}
	if opts.SettleDelay == 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.ClickDelay == 0 {
		opts.ClickDelay = DefaultClickDelay
	}
	if opts.ClickHold == 0 {
		opts.ClickHold = DefaultClickHold
	}
	return &Controller{sink: sink, opts: opts}
}

// ScreenToDevice converts screen pixels to device coordinates by linear
// scaling, rounded to the nearest unit per axis.
func (c *Controller) ScreenToDevice(x, y int) (int, int) {
	dx := int(math.Round(float64(x) * float64(c.opts.DeviceMaxX) / float64(c.opts.ScreenWidth)))
	dy := int(math.Round(float64(y) * float64(c.opts.DeviceMaxY) / float64(c.opts.ScreenHeight)))
	return dx, dy
}

// DeviceToScreen converts device coordinates back to screen pixels.
func (c *Controller) DeviceToScreen(x, y int) (int, int) {
	sx := int(math.Round(float64(x) * float64(c.opts.ScreenWidth) / float64(c.opts.DeviceMaxX)))
	sy := int(math.Round(float64(y) * float64(c.opts.ScreenHeight) / float64(c.opts.DeviceMaxY)))
	return sx, sy
}

// Position returns the estimated device-coordinate cursor position.
func (c *Controller) Position() (int, int) {
	return c.posX, c.posY
}

// MoveTo places the cursor at the given screen coordinates. It re-centers
// to the origin first, then emits deltas summing exactly to the target
// device coordinates.
func (c *Controller) MoveTo(screenX, screenY int) error {
	if screenX < 0 || screenY < 0 || screenX > c.opts.ScreenWidth || screenY > c.opts.ScreenHeight {
		return &OutOfBoundsError{X: screenX, Y: screenY, MaxX: c.opts.ScreenWidth, MaxY: c.opts.ScreenHeight}
	}

	targetX, targetY := c.ScreenToDevice(screenX, screenY)
	c.resetToOrigin()
	time.Sleep(c.opts.SettleDelay)

	relX, relY := targetX, targetY
	for abs(relX) > c.opts.MoveChunk || abs(relY) > c.opts.MoveChunk {
		chunkX := clamp(relX, c.opts.MoveChunk)
		chunkY := clamp(relY, c.opts.MoveChunk)
		c.move(chunkX, chunkY, "MOVE")
		relX -= chunkX
		relY -= chunkY
		time.Sleep(c.opts.MoveGap)
	}
	if relX != 0 || relY != 0 {
		c.move(relX, relY, "MOVE")
	}

	c.posX, c.posY = targetX, targetY
	return nil
}

// Click moves to the given screen coordinates and presses and releases the
// primary button. The button is always released by the end of the call.
func (c *Controller) Click(screenX, screenY int) error {
	if err := c.MoveTo(screenX, screenY); err != nil {
		return err
	}
	time.Sleep(c.opts.ClickDelay)
	c.emit(1, 0, 0, "BTN down")
	time.Sleep(c.opts.ClickHold)
	c.emit(0, 0, 0, "BTN up")
	return nil
}

// MoveBy nudges the cursor by a relative device-coordinate delta without
// re-centering, for interactive calibration. The position estimate is
// clamped to the device bounds.
func (c *Controller) MoveBy(dx, dy int) {
	c.posX = clampRange(c.posX+dx, 0, c.opts.DeviceMaxX)
	c.posY = clampRange(c.posY+dy, 0, c.opts.DeviceMaxY)

	for dx != 0 || dy != 0 {
		chunkX := clamp(dx, deltaMax)
		chunkY := clamp(dy, deltaMax)
		c.move(chunkX, chunkY, "NUDGE")
		dx -= chunkX
		dy -= chunkY
		if dx != 0 || dy != 0 {
			time.Sleep(c.opts.MoveGap)
		}
	}
}

// resetToOrigin drives the cursor far past the top-left corner so its true
// position is known to be (0,0) regardless of where it started.
func (c *Controller) resetToOrigin() {
	overshootX, overshootY := -c.opts.Overshoot, -c.opts.Overshoot
	for overshootX < 0 || overshootY < 0 {
		chunkX := maxInt(-deltaMax, overshootX)
		chunkY := maxInt(-deltaMax, overshootY)
		c.move(chunkX, chunkY, "RESET")
		overshootX -= chunkX
		overshootY -= chunkY
		time.Sleep(c.opts.ResetGap)
	}
	c.posX, c.posY = 0, 0
}

func (c *Controller) move(dx, dy int, kind string) {
	c.emit(0, dx, dy, fmt.Sprintf("%s dx=%d dy=%d", kind, dx, dy))
}

// emit writes one 4-byte report. Deltas are encoded two's complement.
func (c *Controller) emit(buttons byte, dx, dy int, label string) {
	report := []byte{buttons, byte(int8(dx)), byte(int8(dy)), 0}
	c.sink.Write(report, hid.Trace{Label: label})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// clamp limits v to [-limit, limit].
func clamp(v, limit int) int {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
