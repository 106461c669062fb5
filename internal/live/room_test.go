package live

import (
	"testing"
	"time"

	"github.com/curvelab/curvelab/backend-go/internal/curve"
	"github.com/curvelab/curvelab/backend-go/internal/curvedoc"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	doc := curvedoc.NewDefaultDocument("curve_test", "test")
	room, err := newRoom("curve_test", doc, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("newRoom: %v", err)
	}
	t.Cleanup(room.close)
	return room
}

func TestRoomApplyPointLifecycle(t *testing.T) {
	room := newTestRoom(t)

	idx, err := room.apply(&Operation{Kind: OpPointAdd, X: 0.5, Y: 0.25})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if idx != 1 {
		t.Fatalf("add index = %d, want 1", idx)
	}

	if _, err := room.apply(&Operation{Kind: OpPointValue, Index: idx, Value: 0.75}); err != nil {
		t.Fatalf("set value: %v", err)
	}
	p, err := room.curve.GetPoint(idx)
	if err != nil {
		t.Fatal(err)
	}
	if p.Position.Y != 0.75 {
		t.Errorf("point y = %v, want 0.75", p.Position.Y)
	}

	if _, err := room.apply(&Operation{Kind: OpPointAdd, X: 0.75, Y: 0.5}); err != nil {
		t.Fatal(err)
	}

	// Moving the x=0.5 point past x=0.75 reorders it.
	newIdx, err := room.apply(&Operation{Kind: OpPointOffset, Index: idx, Value: 0.9})
	if err != nil {
		t.Fatalf("set offset: %v", err)
	}
	if newIdx != 2 {
		t.Errorf("offset index = %d, want 2", newIdx)
	}

	if _, err := room.apply(&Operation{Kind: OpPointRemove, Index: newIdx}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := room.curve.PointCount(); got != 3 {
		t.Errorf("point count = %d, want 3", got)
	}
}

func TestRoomApplyRejectsBadOperations(t *testing.T) {
	room := newTestRoom(t)

	cases := []Operation{
		{Kind: OpPointRemove, Index: 99},
		{Kind: OpPointValue, Index: -1, Value: 0.5},
		{Kind: OpLeftMode, Index: 0, Mode: 42},
		{Kind: OpResolution, Resolution: 0},
		{Kind: "bogus.kind"},
	}
	for _, op := range cases {
		if _, err := room.apply(&op); err == nil {
			t.Errorf("apply(%s) succeeded, want error", op.Kind)
		}
	}
}

func TestRoomApplyRangeAndResolution(t *testing.T) {
	room := newTestRoom(t)

	if _, err := room.apply(&Operation{Kind: OpRangeMin, Value: -2}); err != nil {
		t.Fatal(err)
	}
	if _, err := room.apply(&Operation{Kind: OpRangeMax, Value: 3}); err != nil {
		t.Fatal(err)
	}
	if min, max := room.curve.MinValue(), room.curve.MaxValue(); min != -2 || max != 3 {
		t.Errorf("range = [%v, %v], want [-2, 3]", min, max)
	}

	if _, err := room.apply(&Operation{Kind: OpResolution, Resolution: 256}); err != nil {
		t.Fatal(err)
	}
	if got := room.curve.BakeResolution(); got != 256 {
		t.Errorf("resolution = %d, want 256", got)
	}
}

func TestRoomDocumentRoundTrip(t *testing.T) {
	room := newTestRoom(t)

	if _, err := room.apply(&Operation{Kind: OpPointAdd, X: 0.5, Y: 0.9}); err != nil {
		t.Fatal(err)
	}
	doc := room.document()
	if len(doc.Points) != 3 {
		t.Fatalf("document has %d points, want 3", len(doc.Points))
	}
	if doc.Points[1].X != 0.5 || doc.Points[1].Y != 0.9 {
		t.Errorf("middle point = (%v, %v), want (0.5, 0.9)", doc.Points[1].X, doc.Points[1].Y)
	}

	reloaded, err := newRoom("curve_test", doc, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer reloaded.close()
	if got := reloaded.curve.PointCount(); got != 3 {
		t.Errorf("reloaded point count = %d, want 3", got)
	}
}

func TestRoomReplaceDataSyncsEngine(t *testing.T) {
	room := newTestRoom(t)

	points := []curve.PointData{
		{X: 0, Y: 1},
		{X: 0.25, Y: 0.5},
		{X: 1, Y: 0},
	}
	if _, err := room.apply(&Operation{Kind: OpReplaceData, Points: points}); err != nil {
		t.Fatal(err)
	}
	if got := room.curve.PointCount(); got != 3 {
		t.Fatalf("point count = %d, want 3", got)
	}
	if y := room.curve.Sample(0); y != 1 {
		t.Errorf("Sample(0) = %v, want 1", y)
	}
}
