package camera

import (
	"math"
	"testing"

	"github.com/pthm-cable/petri/world"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) <= 0.01
}

func TestNew(t *testing.T) {
	cam := New(1280, 720)

	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 720)
	cam.X, cam.Y = 500, 350

	// Camera center should map to screen center
	sx, sy := cam.WorldToScreen(500, 350)
	if !near(sx, 640) || !near(sy, 360) {
		t.Errorf("expected screen center (640, 360), got (%f, %f)", sx, sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 720)
	cam.X, cam.Y = 200, 100
	cam.SetZoom(2.5)

	testCases := []struct{ sx, sy float32 }{
		{640, 360},  // center
		{100, 100},  // top-left
		{1200, 600}, // near bottom-right
	}

	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestZoomClamped(t *testing.T) {
	cam := New(800, 600)

	cam.SetZoom(100)
	if cam.Zoom != MaxZoom {
		t.Errorf("got %f, want %f", cam.Zoom, MaxZoom)
	}
	cam.SetZoom(0)
	if cam.Zoom != MinZoom {
		t.Errorf("got %f, want %f", cam.Zoom, float32(MinZoom))
	}
}

func TestZoomAtKeepsFocalPoint(t *testing.T) {
	cam := New(800, 600)
	cam.X, cam.Y = 300, 200

	wx, wy := cam.ScreenToWorld(100, 500)
	cam.ZoomAt(100, 500, 3)
	ax, ay := cam.ScreenToWorld(100, 500)

	if !near(wx, ax) || !near(wy, ay) {
		t.Errorf("focal point moved: (%f,%f) -> (%f,%f)", wx, wy, ax, ay)
	}
	if !near(cam.Zoom, 3) {
		t.Errorf("zoom: got %f, want 3", cam.Zoom)
	}
}

func TestFitWorld(t *testing.T) {
	cam := New(800, 600)
	w := world.New(1000, 700, world.Rectangular, 400)

	cam.FitWorld(w, 0.1)

	if !near(cam.X, 500) || !near(cam.Y, 350) {
		t.Errorf("expected centre (500, 350), got (%f, %f)", cam.X, cam.Y)
	}
	minX, minY, maxX, maxY := cam.VisibleWorldBounds()
	if minX > 0 || minY > 0 || maxX < 1000 || maxY < 700 {
		t.Errorf("world not fully visible: (%f,%f)-(%f,%f)", minX, minY, maxX, maxY)
	}
}

func TestCopyIndependent(t *testing.T) {
	cam := New(800, 600)
	cp := cam.Copy()
	cp.Move(10, 10)
	if cam.X != 0 || cam.Y != 0 {
		t.Errorf("original moved to (%f, %f)", cam.X, cam.Y)
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(800, 600)
	cam.X, cam.Y = 400, 300

	if !cam.IsVisible(400, 300, 1) {
		t.Error("centre should be visible")
	}
	if cam.IsVisible(2000, 300, 10) {
		t.Error("far point should not be visible")
	}
}
