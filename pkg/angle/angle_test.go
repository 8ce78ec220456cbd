package angle

import (
	"math"
	"testing"
)

func TestFromFloat(t *testing.T) {
	expectWrapped(t, 0, 0)
	expectWrapped(t, 179, 179)
	expectWrapped(t, -179, -179)
	expectWrapped(t, 180, 180)
	expectWrapped(t, -180, 180)
	expectWrapped(t, 360, 0)
	expectWrapped(t, 361, 1)
	expectWrapped(t, 359, -1)
	expectWrapped(t, 720+180, 180)
	expectWrapped(t, -81-360, -81)
}

func TestError(t *testing.T) {
	// Shortest way round, clockwise positive.
	expectError(t, 309, 0, -51)
	expectError(t, 90, 309, 141)
	expectError(t, 10, 350, 20)
	expectError(t, 350, 10, -20)
	expectError(t, 0, 0, 0)
}

func TestWrap360(t *testing.T) {
	for _, tc := range []struct{ in, out float64 }{
		{0, 0}, {-1, 359}, {360, 0}, {400, 40}, {-370, 350},
	} {
		if got := Wrap360(tc.in); math.Abs(got-tc.out) > 1e-9 {
			t.Errorf("Wrap360(%v) = %v, expected %v", tc.in, got, tc.out)
		}
	}
}

func expectWrapped(t *testing.T, in, expected float64) {
	a := FromFloat(in).Float()
	if math.Abs(a-expected) > 1e-9 {
		t.Errorf("FromFloat(%f) = %f, expected %f", in, a, expected)
	}
}

func expectError(t *testing.T, target, current, expected float64) {
	e := Error(target, current)
	if math.Abs(e-expected) > 1e-9 {
		t.Errorf("Error(%f, %f) = %f, expected %f", target, current, e, expected)
	}
}
