package curvedoc

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/curvelab/curvelab/backend-go/internal/curve"
)

func TestApplyExportRoundTrip(t *testing.T) {
	doc := &Document{
		ID:             "curve_test",
		Name:           "gain",
		MinValue:       -1,
		MaxValue:       2,
		BakeResolution: 256,
		Points: []curve.PointData{
			{X: 0, Y: 0.5, RightTangent: 1.5},
			{X: 0.6, Y: 1.2, LeftTangent: -0.25, LeftMode: curve.TangentLinear},
			{X: 1, Y: 0},
		},
		Version: 3,
	}

	c := curve.New()
	defer c.Close()
	if err := doc.Apply(c); err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := FromCurve("curve_test", "gain", c, 3)
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyRejectsBadDocument(t *testing.T) {
	c := curve.New()
	defer c.Close()

	bad := &Document{BakeResolution: 0, Points: PresetPoints(PresetConstant)}
	if err := bad.Apply(c); err == nil {
		t.Error("zero resolution accepted")
	}

	bad = &Document{
		BakeResolution: 100,
		Points:         []curve.PointData{{X: 0, Y: 0, LeftMode: curve.TangentMode(9)}},
	}
	if err := bad.Apply(c); err == nil {
		t.Error("bad tangent mode accepted")
	}
	if c.PointCount() != 0 {
		t.Error("rejected document mutated the curve")
	}
}

func TestPresetShapes(t *testing.T) {
	for _, name := range PresetNames() {
		points := PresetPoints(name)
		if len(points) < 2 {
			t.Errorf("preset %s has %d points", name, len(points))
		}
		if points[0].X != 0 || points[len(points)-1].X != 1 {
			t.Errorf("preset %s does not span the domain", name)
		}
	}

	// easeInOut is the smoothstep curve.
	c := curve.New()
	defer c.Close()
	doc := NewDefaultDocument("curve_x", "x")
	doc.Points = PresetPoints(PresetEaseInOut)
	if err := doc.Apply(c); err != nil {
		t.Fatalf("apply: %v", err)
	}
	for i := 0; i <= 10; i++ {
		x := float64(i) / 10
		want := 3*x*x - 2*x*x*x
		if got := c.Sample(x); math.Abs(got-want) > 1e-9 {
			t.Fatalf("easeInOut at %v = %v, want %v", x, got, want)
		}
	}
}

func TestPresetPointsReturnsCopy(t *testing.T) {
	a := PresetPoints(PresetLinear)
	a[0].Y = 99
	b := PresetPoints(PresetLinear)
	if b[0].Y == 99 {
		t.Error("PresetPoints aliases the shared preset table")
	}
}
