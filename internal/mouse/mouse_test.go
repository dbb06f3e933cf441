package mouse

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/veltalldev/hid-server/internal/hid"
)

// captureSink records mouse reports and their labels in order.
type captureSink struct {
	reports [][]byte
	labels  []string
}

func (c *captureSink) Write(report []byte, t hid.Trace) {
	cp := make([]byte, len(report))
	copy(cp, report)
	c.reports = append(c.reports, cp)
	c.labels = append(c.labels, t.Label)
}

// sum adds up the decoded deltas of reports whose label starts with prefix.
func (c *captureSink) sum(prefix string) (dx, dy int) {
	for i, r := range c.reports {
		if strings.HasPrefix(c.labels[i], prefix) {
			dx += int(int8(r[1]))
			dy += int(int8(r[2]))
		}
	}
	return dx, dy
}

func newTestController(sink hid.Sink) *Controller {
	return New(sink, Options{
		ScreenWidth:  2560,
		ScreenHeight: 1600,
		DeviceMaxX:   692,
		DeviceMaxY:   433,
		ResetGap:     time.Microsecond,
		MoveGap:      time.Microsecond,
		SettleDelay:  time.Microsecond,
		ClickDelay:   time.Microsecond,
		ClickHold:    time.Microsecond,
	})
}

// TestScaling tests the screen-to-device linear conversion
func TestScaling(t *testing.T) {
	c := newTestController(&captureSink{})

	cases := []struct {
		sx, sy int
		dx, dy int
	}{
		{0, 0, 0, 0},
		{2560, 1600, 692, 433},
		{1280, 800, 346, 217},
	}
	for _, tc := range cases {
		dx, dy := c.ScreenToDevice(tc.sx, tc.sy)
		if dx != tc.dx || dy != tc.dy {
			t.Errorf("Expected (%d, %d) -> (%d, %d), got (%d, %d)", tc.sx, tc.sy, tc.dx, tc.dy, dx, dy)
		}
	}
}

// TestScalingRoundTrip tests that device coordinates survive a round trip
// through screen space within one unit
func TestScalingRoundTrip(t *testing.T) {
	c := newTestController(&captureSink{})

	for _, p := range []struct{ x, y int }{
		{0, 0}, {1, 1}, {100, 50}, {345, 216}, {400, 400}, {691, 432}, {692, 433},
	} {
		sx, sy := c.DeviceToScreen(p.x, p.y)
		bx, by := c.ScreenToDevice(sx, sy)
		if abs(bx-p.x) > 1 || abs(by-p.y) > 1 {
			t.Errorf("Expected (%d, %d) to round-trip within 1 unit, got (%d, %d)", p.x, p.y, bx, by)
		}
	}
}

// TestMoveToOutOfBounds tests coordinate validation
func TestMoveToOutOfBounds(t *testing.T) {
	c := newTestController(&captureSink{})

	for _, p := range []struct{ x, y int }{
		{-1, 0}, {0, -1}, {2561, 0}, {0, 1601},
	} {
		err := c.MoveTo(p.x, p.y)
		if err == nil {
			t.Errorf("Expected out of bounds error for (%d, %d)", p.x, p.y)
			continue
		}
		var oob *OutOfBoundsError
		if !errors.As(err, &oob) {
			t.Errorf("Expected *OutOfBoundsError, got %T", err)
		}
	}

	if err := c.MoveTo(2560, 1600); err != nil {
		t.Errorf("Expected the far corner to be in bounds, got %v", err)
	}
}

// TestMoveToDeltaSums tests that re-centering and movement deltas each sum
// to their exact totals with every report clamped to the protocol range
func TestMoveToDeltaSums(t *testing.T) {
	sink := &captureSink{}
	c := newTestController(sink)

	if err := c.MoveTo(2560, 1600); err != nil {
		t.Fatalf("Expected move to succeed, got %v", err)
	}

	rx, ry := sink.sum("RESET")
	if rx != -3000 || ry != -3000 {
		t.Errorf("Expected re-centering sums (-3000, -3000), got (%d, %d)", rx, ry)
	}

	mx, my := sink.sum("MOVE")
	if mx != 692 || my != 433 {
		t.Errorf("Expected movement sums (692, 433), got (%d, %d)", mx, my)
	}

	for i, r := range sink.reports {
		dx, dy := int(int8(r[1])), int(int8(r[2]))
		if dx < -127 || dx > 127 || dy < -127 || dy > 127 {
			t.Errorf("Report %d delta (%d, %d) outside [-127, 127]", i, dx, dy)
		}
		if len(r) != ReportSize {
			t.Errorf("Report %d has %d bytes", i, len(r))
		}
		if r[3] != 0 {
			t.Errorf("Report %d has non-zero wheel byte", i)
		}
	}

	if x, y := c.Position(); x != 692 || y != 433 {
		t.Errorf("Expected position (692, 433), got (%d, %d)", x, y)
	}
}

// TestMoveToOrigin tests that moving to (0,0) emits no movement reports
// after re-centering
func TestMoveToOrigin(t *testing.T) {
	sink := &captureSink{}
	c := newTestController(sink)

	if err := c.MoveTo(0, 0); err != nil {
		t.Fatalf("Expected move to succeed, got %v", err)
	}

	if mx, my := sink.sum("MOVE"); mx != 0 || my != 0 {
		t.Errorf("Expected no movement deltas, got (%d, %d)", mx, my)
	}
	for _, l := range sink.labels {
		if strings.HasPrefix(l, "MOVE") {
			t.Errorf("Expected no MOVE report for the origin, got %q", l)
		}
	}
	if x, y := c.Position(); x != 0 || y != 0 {
		t.Errorf("Expected position (0, 0), got (%d, %d)", x, y)
	}
}

// TestClick tests the press/release pair at the end of a click
func TestClick(t *testing.T) {
	sink := &captureSink{}
	c := newTestController(sink)

	if err := c.Click(100, 100); err != nil {
		t.Fatalf("Expected click to succeed, got %v", err)
	}

	n := len(sink.reports)
	if n < 2 {
		t.Fatalf("Expected at least 2 reports, got %d", n)
	}
	down, up := sink.reports[n-2], sink.reports[n-1]
	if down[0] != 1 || down[1] != 0 || down[2] != 0 {
		t.Errorf("Expected button-down report [1 0 0 0], got %v", down)
	}
	if up[0] != 0 {
		t.Errorf("Expected button released at the end, got %v", up)
	}
	if sink.labels[n-2] != "BTN down" || sink.labels[n-1] != "BTN up" {
		t.Errorf("Expected BTN labels, got %q, %q", sink.labels[n-2], sink.labels[n-1])
	}
}

// TestClickOutOfBounds tests that a click outside bounds emits nothing
func TestClickOutOfBounds(t *testing.T) {
	sink := &captureSink{}
	c := newTestController(sink)

	if err := c.Click(9999, 0); err == nil {
		t.Fatal("Expected out of bounds error")
	}
	if len(sink.reports) != 0 {
		t.Errorf("Expected no reports for rejected click, got %d", len(sink.reports))
	}
}

// TestMoveBy tests relative nudges and the clamped position estimate
func TestMoveBy(t *testing.T) {
	sink := &captureSink{}
	c := newTestController(sink)

	c.MoveBy(300, -50)

	nx, ny := sink.sum("NUDGE")
	if nx != 300 || ny != -50 {
		t.Errorf("Expected nudge sums (300, -50), got (%d, %d)", nx, ny)
	}
	if x, y := c.Position(); x != 300 || y != 0 {
		t.Errorf("Expected position (300, 0) after clamping, got (%d, %d)", x, y)
	}
}
