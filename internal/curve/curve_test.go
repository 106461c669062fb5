package curve

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func sorted(points []Point) bool {
	for i := 1; i < len(points); i++ {
		if points[i-1].Position.X > points[i].Position.X {
			return false
		}
	}
	return true
}

func TestAddPointKeepsOrder(t *testing.T) {
	c := New()
	defer c.Close()

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		c.AddPoint(Vector2{rng.Float64(), rng.Float64()}, 0, 0, TangentFree, TangentFree)
		if !sorted(c.points) {
			t.Fatalf("points out of order after insert %d", i)
		}
	}
	if got := c.PointCount(); got != 200 {
		t.Fatalf("got %d points, want 200", got)
	}
}

func TestAddPointClampsX(t *testing.T) {
	c := New()
	defer c.Close()

	c.AddPoint(Vector2{-3, 0.5}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{42, 0.25}, 0, 0, TangentFree, TangentFree)

	if x := c.points[0].Position.X; x != MinX {
		t.Errorf("low x not clamped: got %v", x)
	}
	if x := c.points[1].Position.X; x != MaxX {
		t.Errorf("high x not clamped: got %v", x)
	}
}

func TestAddPointSmallCounts(t *testing.T) {
	c := New()
	defer c.Close()

	if i := c.AddPoint(Vector2{0.5, 1}, 0, 0, TangentFree, TangentFree); i != 0 {
		t.Fatalf("first insert at %d, want 0", i)
	}
	// Second point before the existing one.
	if i := c.AddPoint(Vector2{0.2, 2}, 0, 0, TangentFree, TangentFree); i != 0 {
		t.Fatalf("insert before single point at %d, want 0", i)
	}
	// Third point between the two.
	if i := c.AddPoint(Vector2{0.3, 3}, 0, 0, TangentFree, TangentFree); i != 1 {
		t.Fatalf("insert between at %d, want 1", i)
	}
	if i := c.AddPoint(Vector2{0.9, 4}, 0, 0, TangentFree, TangentFree); i != 3 {
		t.Fatalf("insert after at %d, want 3", i)
	}
	// Before everything with >=2 points exercises the head special case.
	if i := c.AddPoint(Vector2{0.1, 5}, 0, 0, TangentFree, TangentFree); i != 0 {
		t.Fatalf("insert at head at %d, want 0", i)
	}
}

func TestLocate(t *testing.T) {
	points := []Point{
		{Position: Vector2{0.0, 0}},
		{Position: Vector2{0.25, 0}},
		{Position: Vector2{0.5, 0}},
		{Position: Vector2{0.75, 0}},
		{Position: Vector2{1.0, 0}},
	}

	for i := 0; i <= 1000; i++ {
		x := float64(i) / 1000
		got := locate(points, x)
		if got < 0 || got >= len(points) {
			t.Fatalf("locate(%v) = %d out of range", x, got)
		}
		if points[got].Position.X > x && got != 0 {
			t.Fatalf("locate(%v) = %d: segment starts after x", x, got)
		}
		if got+1 < len(points) && points[got+1].Position.X < x {
			t.Fatalf("locate(%v) = %d: next point still before x", x, got)
		}
	}

	// Out-of-range offsets clamp to the boundary indices.
	if got := locate(points, -0.5); got != 0 {
		t.Errorf("locate(-0.5) = %d, want 0", got)
	}
	if got := locate(points, 1.5); got != len(points)-1 {
		t.Errorf("locate(1.5) = %d, want %d", got, len(points)-1)
	}
}

func TestRemovePoint(t *testing.T) {
	c := New()
	defer c.Close()

	c.AddPoint(Vector2{0, 0}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{1, 1}, 0, 0, TangentFree, TangentFree)

	if err := c.RemovePoint(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if err := c.RemovePoint(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
	if err := c.RemovePoint(0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := c.PointCount(); got != 1 {
		t.Fatalf("got %d points, want 1", got)
	}
}

func TestSetPointCount(t *testing.T) {
	c := New()
	defer c.Close()

	if err := c.SetPointCount(-1); !errors.Is(err, ErrNegativeCount) {
		t.Fatalf("got %v, want ErrNegativeCount", err)
	}

	if err := c.SetPointCount(4); err != nil {
		t.Fatalf("grow: %v", err)
	}
	if got := c.PointCount(); got != 4 {
		t.Fatalf("got %d points, want 4", got)
	}
	if !sorted(c.points) {
		t.Fatal("points out of order after grow")
	}

	if err := c.SetPointCount(1); err != nil {
		t.Fatalf("shrink: %v", err)
	}
	if got := c.PointCount(); got != 1 {
		t.Fatalf("got %d points, want 1", got)
	}
}

func TestSetPointOffsetReorders(t *testing.T) {
	c := New()
	defer c.Close()

	c.AddPoint(Vector2{0.1, 1}, 0.5, -0.5, TangentFree, TangentFree)
	c.AddPoint(Vector2{0.5, 2}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{0.9, 3}, 0, 0, TangentFree, TangentFree)

	// Move the first point past the others.
	newIndex, err := c.SetPointOffset(0, 0.95)
	if err != nil {
		t.Fatalf("set offset: %v", err)
	}
	if newIndex != 2 {
		t.Fatalf("new index %d, want 2", newIndex)
	}
	if !sorted(c.points) {
		t.Fatal("points out of order after move")
	}

	p, err := c.GetPoint(newIndex)
	if err != nil {
		t.Fatalf("get point: %v", err)
	}
	want := Point{
		Position:     Vector2{0.95, 1},
		LeftTangent:  0.5,
		RightTangent: -0.5,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("moved point mismatch (-want +got):\n%s", diff)
	}

	if _, err := c.SetPointOffset(7, 0.5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("got %v, want ErrIndexOutOfRange", err)
	}
}

func TestLinearTangentReciprocity(t *testing.T) {
	c := New()
	defer c.Close()

	a := c.AddPoint(Vector2{0, 0}, 0, 0, TangentFree, TangentFree)
	b := c.AddPoint(Vector2{0.5, 0.5}, 0, 0, TangentFree, TangentFree)

	if err := c.SetPointRightMode(a, TangentLinear); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	rt, _ := c.GetPointRightTangent(a)
	if math.Abs(rt-1.0) > 1e-9 {
		t.Fatalf("initial slope %v, want 1", rt)
	}

	// Moving B's value must drag A's linear right tangent along.
	if err := c.SetPointValue(b, 1.0); err != nil {
		t.Fatalf("set value: %v", err)
	}
	rt, _ = c.GetPointRightTangent(a)
	if math.Abs(rt-2.0) > 1e-9 {
		t.Fatalf("slope after neighbour move %v, want 2", rt)
	}

	// Moving B's offset as well.
	if _, err := c.SetPointOffset(b, 0.25); err != nil {
		t.Fatalf("set offset: %v", err)
	}
	rt, _ = c.GetPointRightTangent(a)
	if math.Abs(rt-4.0) > 1e-9 {
		t.Fatalf("slope after offset move %v, want 4", rt)
	}
}

func TestSetTangentResetsModeToFree(t *testing.T) {
	c := New()
	defer c.Close()

	c.AddPoint(Vector2{0, 0}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{1, 1}, 0, 0, TangentLinear, TangentLinear)

	if err := c.SetPointLeftTangent(1, 3.5); err != nil {
		t.Fatalf("set tangent: %v", err)
	}
	m, _ := c.GetPointLeftMode(1)
	if m != TangentFree {
		t.Errorf("mode %v, want free", m)
	}
	lt, _ := c.GetPointLeftTangent(1)
	if lt != 3.5 {
		t.Errorf("tangent %v, want 3.5", lt)
	}

	if err := c.SetPointLeftMode(1, tangentModeCount); !errors.Is(err, ErrInvalidTangentMode) {
		t.Errorf("got %v, want ErrInvalidTangentMode", err)
	}
}

func TestCleanDupes(t *testing.T) {
	c := New()
	defer c.Close()

	c.AddPoint(Vector2{0.0, 1}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{0.5, 2}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{0.5, 3}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{0.5 + 1e-9, 4}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{1.0, 5}, 0, 0, TangentFree, TangentFree)

	c.CleanDupes()

	if got := c.PointCount(); got != 3 {
		t.Fatalf("got %d points after dedupe, want 3", got)
	}
	// The earliest point of each duplicate run in sorted order survives.
	// An insert at an already-occupied x lands before the existing point,
	// so the run at 0.5 is ordered y=3, y=2, y=4 and y=3 is kept.
	p, _ := c.GetPoint(1)
	if p.Position.Y != 3 {
		t.Errorf("kept y=%v at index 1, want 3", p.Position.Y)
	}
	for i := 1; i < len(c.points); i++ {
		if c.points[i].Position.X-c.points[i-1].Position.X <= dupeEpsilon {
			t.Fatal("near-duplicates remain after CleanDupes")
		}
	}
}

func TestRangeFirstWritesUnconstrained(t *testing.T) {
	c := New()
	defer c.Close()

	// First writes are unconstrained, even inverted ones. The span clamp
	// only engages once both bounds have been explicitly set.
	c.SetMinValue(5)
	c.SetMaxValue(-5)
	if c.MinValue() != 5 || c.MaxValue() != -5 {
		t.Fatalf("first writes constrained: min=%v max=%v", c.MinValue(), c.MaxValue())
	}
}

func TestRangeClamp(t *testing.T) {
	c := New()
	defer c.Close()

	c.SetMinValue(0)
	c.SetMaxValue(1)

	c.SetMinValue(0.999)
	if got := c.MinValue(); math.Abs(got-0.99) > 1e-9 {
		t.Errorf("min clamped to %v, want 0.99", got)
	}

	c.SetMaxValue(0.992)
	if got := c.MaxValue(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("max clamped to %v, want 1.0", got)
	}
	if got := c.Range(); math.Abs(got-minYRange) > 1e-9 {
		t.Errorf("range %v, want %v", got, minYRange)
	}
}

func TestRangeChangedEvent(t *testing.T) {
	c := New()
	defer c.Close()

	var events []Vector2
	c.OnRangeChanged(func(min, max float64) {
		events = append(events, Vector2{min, max})
	})

	c.SetMinValue(-1)
	c.SetMaxValue(2)

	want := []Vector2{{-1, 1}, {-1, 2}}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("range events mismatch (-want +got):\n%s", diff)
	}
}

func TestDataRoundTrip(t *testing.T) {
	c := New()
	defer c.Close()

	c.AddPoint(Vector2{0, 0.25}, 0, 1.5, TangentFree, TangentLinear)
	c.AddPoint(Vector2{0.4, 0.9}, -0.5, 0, TangentLinear, TangentFree)
	c.AddPoint(Vector2{1, 0.1}, 2, 0, TangentFree, TangentFree)

	data := c.Data()

	c2 := New()
	defer c2.Close()
	if err := c2.SetData(data); err != nil {
		t.Fatalf("set data: %v", err)
	}

	if diff := cmp.Diff(data, c2.Data(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSetDataRejectsWholeImport(t *testing.T) {
	c := New()
	defer c.Close()
	c.AddPoint(Vector2{0.5, 0.5}, 0, 0, TangentFree, TangentFree)
	before := c.Data()

	bad := []PointData{
		{X: 0, Y: 0},
		{X: 0.5, Y: 1, LeftMode: TangentMode(7)},
	}
	if err := c.SetData(bad); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("got %v, want ErrInvalidData", err)
	}

	nan := []PointData{{X: math.NaN(), Y: 0}}
	if err := c.SetData(nan); !errors.Is(err, ErrInvalidData) {
		t.Fatalf("got %v, want ErrInvalidData", err)
	}

	// A failed import must leave the store untouched.
	if diff := cmp.Diff(before, c.Data()); diff != "" {
		t.Errorf("store mutated by rejected import (-want +got):\n%s", diff)
	}
}

func TestEnsureDefaultSetup(t *testing.T) {
	c := New()
	defer c.Close()

	c.EnsureDefaultSetup(-2, 3)
	if got := c.PointCount(); got != 2 {
		t.Fatalf("got %d points, want 2", got)
	}
	if c.MinValue() != -2 || c.MaxValue() != 3 {
		t.Errorf("range %v..%v, want -2..3", c.MinValue(), c.MaxValue())
	}

	// A second call on a non-pristine curve is a no-op.
	c.EnsureDefaultSetup(0, 1)
	if c.MinValue() != -2 || c.MaxValue() != 3 {
		t.Error("EnsureDefaultSetup overwrote an initialized curve")
	}
}

func TestGettersIndexErrors(t *testing.T) {
	c := New()
	defer c.Close()

	if _, err := c.GetPoint(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("GetPoint: got %v, want ErrIndexOutOfRange", err)
	}
	if _, err := c.GetPointPosition(-1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("GetPointPosition: got %v, want ErrIndexOutOfRange", err)
	}
	if err := c.SetPointValue(0, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetPointValue: got %v, want ErrIndexOutOfRange", err)
	}
}
