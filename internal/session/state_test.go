package session

import (
	"testing"
)

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind     EventKind
		expected string
	}{
		{KindClientConnected, "client_connected"},
		{KindClientDisconnected, "client_disconnected"},
		{KindFullStateSent, "full_state_sent"},
		{KindRectangleMoved, "rectangle_moved"},
		{KindRectangleCreated, "rectangle_created"},
		{EventKind(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("EventKind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}

func TestMoveByHasNoBounds(t *testing.T) {
	r := Rectangle{ID: "r", Left: 5, Top: 5}
	r.MoveBy(-1e6, 3e9)
	if r.Left != 5-1e6 || r.Top != 5+3e9 {
		t.Errorf("MoveBy = (%v, %v), want (%v, %v)", r.Left, r.Top, 5-1e6, 5+3e9)
	}
}

func TestMoveByIsAdditive(t *testing.T) {
	moves := [][2]float64{{10, -5}, {0.25, 0.5}, {-3, 7}, {1e3, -1e3}}

	stepwise := Rectangle{Left: 100, Top: 100}
	var sumX, sumY float64
	for _, m := range moves {
		stepwise.MoveBy(m[0], m[1])
		sumX += m[0]
		sumY += m[1]
	}

	combined := Rectangle{Left: 100, Top: 100}
	combined.MoveBy(sumX, sumY)

	if stepwise.Left != combined.Left || stepwise.Top != combined.Top {
		t.Errorf("stepwise (%v, %v) != combined (%v, %v)", stepwise.Left, stepwise.Top, combined.Left, combined.Top)
	}
}

func TestDefaultRectangle(t *testing.T) {
	a := DefaultRectangle()
	b := DefaultRectangle()
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("default rectangles need unique ids, got %q and %q", a.ID, b.ID)
	}
	if a.Width != 100 || a.Height != 100 || a.Left != 100 || a.Top != 100 {
		t.Errorf("DefaultRectangle() = %+v, want 100x100 at (100, 100)", a)
	}
}

func TestSeedRectangles(t *testing.T) {
	rects := SeedRectangles(5, 200)
	if len(rects) != 5 {
		t.Fatalf("got %d rectangles, want 5", len(rects))
	}
	if rects[0].Left != 100 || rects[0].Top != 100 {
		t.Errorf("first seed = %+v, want default position", rects[0])
	}
	seen := map[string]bool{}
	for _, r := range rects {
		if seen[r.ID] {
			t.Errorf("duplicate id %q", r.ID)
		}
		seen[r.ID] = true
	}
	for _, r := range rects[1:] {
		if r.Left < -100 || r.Left > 100 || r.Top < -100 || r.Top > 100 {
			t.Errorf("seed %+v outside spread", r)
		}
	}

	if got := SeedRectangles(0, 10); len(got) != 1 {
		t.Errorf("SeedRectangles(0) returned %d rectangles, want 1", len(got))
	}
}
