// Package curve implements a single-valued parametric curve over [0,1]:
// a sparse, ordered set of control points joined by cubic Bézier segments,
// plus a densely pre-sampled lookup table ("bake") that a background
// worker rebuilds after edits settle.
package curve

import (
	"fmt"
	"math"
	"slices"
	"sync"
	"time"
)

// DefaultQuiescence is how long the background baker waits after the last
// edit before rebuilding the baked table.
const DefaultQuiescence = 50 * time.Millisecond

// Curve owns the control point sequence, the advisory y range and the
// baked sample table.
//
// Three lock domains, never nested:
//   - mu guards the point store, range bounds and bake resolution. Held
//     only for short critical sections, never across a bake.
//   - ctrlMu guards the pending flag and the worker start/stop decision.
//   - cacheMu is taken read-side by SampleBaked and write-side only for
//     the brief publish of a finished table.
type Curve struct {
	mu             sync.Mutex
	points         []Point
	minValue       float64
	maxValue       float64
	minSet, maxSet bool
	bakeResolution int

	cacheMu sync.RWMutex
	baked   []float64

	ctrlMu  sync.Mutex
	pending bool
	running bool
	closed  bool
	wg      sync.WaitGroup

	quiescence time.Duration

	obsMu    sync.Mutex
	bakedFns []func()
	rangeFns []func(min, max float64)
}

// New creates an empty curve with the default 0..1 range and bake
// resolution 100.
func New() *Curve {
	return NewWithQuiescence(DefaultQuiescence)
}

// NewWithQuiescence creates a curve whose background baker waits the
// given settle window between the last edit and a rebuild.
func NewWithQuiescence(quiescence time.Duration) *Curve {
	return &Curve{
		minValue:       0,
		maxValue:       1,
		bakeResolution: defaultBakeResolution,
		quiescence:     quiescence,
	}
}

// Close waits for any in-flight bake worker to finish. No background work
// outlives the curve. Mutations after Close still apply but no longer
// trigger rebuilds.
func (c *Curve) Close() {
	c.ctrlMu.Lock()
	c.closed = true
	c.ctrlMu.Unlock()
	c.wg.Wait()
}

// --- Point store ---

func (c *Curve) PointCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.points)
}

// SetPointCount truncates the point list when shrinking and appends
// default points at the origin when growing.
func (c *Curve) SetPointCount(count int) error {
	if count < 0 {
		return ErrNegativeCount
	}
	c.mu.Lock()
	if len(c.points) == count {
		c.mu.Unlock()
		return nil
	}
	if count < len(c.points) {
		c.points = c.points[:count]
	} else {
		for len(c.points) < count {
			c.addLocked(Point{})
		}
	}
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

// AddPoint inserts a control point, keeping the list sorted by x, and
// returns the index it ended up at. The x position is clamped to [0,1].
func (c *Curve) AddPoint(position Vector2, leftTangent, rightTangent float64, leftMode, rightMode TangentMode) int {
	c.mu.Lock()
	index := c.addLocked(Point{
		Position:     position,
		LeftTangent:  leftTangent,
		RightTangent: rightTangent,
		LeftMode:     leftMode,
		RightMode:    rightMode,
	})
	c.mu.Unlock()
	c.queueUpdate()
	return index
}

func (c *Curve) addLocked(p Point) int {
	p.Position.X = clamp(p.Position.X, MinX, MaxX)

	var index int
	switch {
	case len(c.points) == 0:
		c.points = append(c.points, p)
		index = 0

	case len(c.points) == 1:
		if p.Position.X-c.points[0].Position.X > 0 {
			c.points = append(c.points, p)
			index = 1
		} else {
			c.points = slices.Insert(c.points, 0, p)
			index = 0
		}

	default:
		i := locate(c.points, p.Position.X)
		if i == 0 && p.Position.X < c.points[0].Position.X {
			// Insert before anything else.
			c.points = slices.Insert(c.points, 0, p)
			index = 0
		} else {
			// Insert between i and i+1.
			i++
			c.points = slices.Insert(c.points, i, p)
			index = i
		}
	}

	c.updateAutoTangents(index)
	return index
}

// locate is a lower-bound binary search over the point x positions:
// it returns i such that offset falls in [points[i].X, points[i+1].X),
// or the nearest boundary index when offset is outside the point range.
// Requires at least two points.
func locate(points []Point, offset float64) int {
	imin := 0
	imax := len(points) - 1

	for imax-imin > 1 {
		m := (imin + imax) / 2

		a := points[m].Position.X
		b := points[m+1].Position.X

		switch {
		case a < offset && b < offset:
			imin = m
		case a > offset:
			imax = m
		default:
			return m
		}
	}

	// Offset is out of bounds on one side or the other.
	if offset > points[imax].Position.X {
		return imax
	}
	return imin
}

func (c *Curve) RemovePoint(index int) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.points) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	c.points = slices.Delete(c.points, index, index+1)
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

func (c *Curve) ClearPoints() {
	c.mu.Lock()
	if len(c.points) == 0 {
		c.mu.Unlock()
		return
	}
	c.points = nil
	c.mu.Unlock()
	c.queueUpdate()
}

// SetPointValue sets the y value of the point at index and re-resolves
// the linear tangents around it.
func (c *Curve) SetPointValue(index int, y float64) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.points) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	c.points[index].Position.Y = y
	c.updateAutoTangents(index)
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

// SetPointOffset moves the point at index to a new x position. The point
// may end up at a different index; the new index is returned and callers
// must not assume it is unchanged. Tangent values and modes are
// preserved, and the linear tangents of both the old and the new
// neighbourhoods are re-resolved.
func (c *Curve) SetPointOffset(index int, offset float64) (int, error) {
	c.mu.Lock()
	if index < 0 || index >= len(c.points) {
		c.mu.Unlock()
		return -1, ErrIndexOutOfRange
	}

	p := c.points[index]
	c.points = slices.Delete(c.points, index, index+1)
	i := c.addLocked(Point{Position: Vector2{offset, p.Position.Y}})
	c.points[i].LeftTangent = p.LeftTangent
	c.points[i].RightTangent = p.RightTangent
	c.points[i].LeftMode = p.LeftMode
	c.points[i].RightMode = p.RightMode
	if index != i {
		c.updateAutoTangents(index)
	}
	c.updateAutoTangents(i)
	c.mu.Unlock()
	c.queueUpdate()
	return i, nil
}

// CleanDupes removes points whose x position is within dupeEpsilon of
// their predecessor, keeping the earlier point.
func (c *Curve) CleanDupes() {
	dirty := false
	c.mu.Lock()
	for i := 1; i < len(c.points); i++ {
		if c.points[i].Position.X-c.points[i-1].Position.X <= dupeEpsilon {
			c.points = slices.Delete(c.points, i, i+1)
			i--
			dirty = true
		}
	}
	c.mu.Unlock()

	if dirty {
		c.queueUpdate()
	}
}

func (c *Curve) GetPoint(index int) (Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.points) {
		return Point{}, ErrIndexOutOfRange
	}
	return c.points[index], nil
}

func (c *Curve) GetPointPosition(index int) (Vector2, error) {
	p, err := c.GetPoint(index)
	return p.Position, err
}

// --- Tangents ---

// SetPointLeftTangent sets a manual left tangent; the left mode switches
// to free.
func (c *Curve) SetPointLeftTangent(index int, tangent float64) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.points) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	c.points[index].LeftTangent = tangent
	c.points[index].LeftMode = TangentFree
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

// SetPointRightTangent sets a manual right tangent; the right mode
// switches to free.
func (c *Curve) SetPointRightTangent(index int, tangent float64) error {
	c.mu.Lock()
	if index < 0 || index >= len(c.points) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	c.points[index].RightTangent = tangent
	c.points[index].RightMode = TangentFree
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

func (c *Curve) SetPointLeftMode(index int, mode TangentMode) error {
	if !mode.valid() {
		return ErrInvalidTangentMode
	}
	c.mu.Lock()
	if index < 0 || index >= len(c.points) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	c.points[index].LeftMode = mode
	if index > 0 && mode == TangentLinear {
		v := c.points[index-1].Position.Sub(c.points[index].Position).Normalized()
		c.points[index].LeftTangent = v.Y / v.X
	}
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

func (c *Curve) SetPointRightMode(index int, mode TangentMode) error {
	if !mode.valid() {
		return ErrInvalidTangentMode
	}
	c.mu.Lock()
	if index < 0 || index >= len(c.points) {
		c.mu.Unlock()
		return ErrIndexOutOfRange
	}
	c.points[index].RightMode = mode
	if index+1 < len(c.points) && mode == TangentLinear {
		v := c.points[index+1].Position.Sub(c.points[index].Position).Normalized()
		c.points[index].RightTangent = v.Y / v.X
	}
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

func (c *Curve) GetPointLeftTangent(index int) (float64, error) {
	p, err := c.GetPoint(index)
	return p.LeftTangent, err
}

func (c *Curve) GetPointRightTangent(index int) (float64, error) {
	p, err := c.GetPoint(index)
	return p.RightTangent, err
}

func (c *Curve) GetPointLeftMode(index int) (TangentMode, error) {
	p, err := c.GetPoint(index)
	return p.LeftMode, err
}

func (c *Curve) GetPointRightMode(index int) (TangentMode, error) {
	p, err := c.GetPoint(index)
	return p.RightMode, err
}

// updateAutoTangents re-resolves every linear tangent slot that the point
// at index touches: its own two, and the facing slot of each neighbour.
// Moving one point therefore drags its neighbours' linear tangents along.
// Caller must hold mu.
func (c *Curve) updateAutoTangents(index int) {
	p := &c.points[index]

	if index > 0 {
		prev := &c.points[index-1]
		if p.LeftMode == TangentLinear {
			v := prev.Position.Sub(p.Position).Normalized()
			p.LeftTangent = v.Y / v.X
		}
		if prev.RightMode == TangentLinear {
			v := prev.Position.Sub(p.Position).Normalized()
			prev.RightTangent = v.Y / v.X
		}
	}

	if index+1 < len(c.points) {
		next := &c.points[index+1]
		if p.RightMode == TangentLinear {
			v := next.Position.Sub(p.Position).Normalized()
			p.RightTangent = v.Y / v.X
		}
		if next.LeftMode == TangentLinear {
			v := next.Position.Sub(p.Position).Normalized()
			next.LeftTangent = v.Y / v.X
		}
	}
}

// --- Range ---

// SetMinValue sets the advisory lower bound. Once both bounds have been
// explicitly set, a value that would squeeze the range under the minimum
// span is clamped to maxValue-minYRange instead. Bounds are indicative
// only; existing point values are never clamped to them.
func (c *Curve) SetMinValue(min float64) {
	c.mu.Lock()
	if c.minSet && c.maxSet && min > c.maxValue-minYRange {
		c.minValue = c.maxValue - minYRange
	} else {
		c.minSet = true
		c.minValue = min
	}
	lo, hi := c.minValue, c.maxValue
	c.mu.Unlock()
	c.notifyRangeChanged(lo, hi)
}

// SetMaxValue sets the advisory upper bound; see SetMinValue.
func (c *Curve) SetMaxValue(max float64) {
	c.mu.Lock()
	if c.minSet && c.maxSet && max < c.minValue+minYRange {
		c.maxValue = c.minValue + minYRange
	} else {
		c.maxSet = true
		c.maxValue = max
	}
	lo, hi := c.minValue, c.maxValue
	c.mu.Unlock()
	c.notifyRangeChanged(lo, hi)
}

func (c *Curve) MinValue() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minValue
}

func (c *Curve) MaxValue() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxValue
}

// Range returns maxValue - minValue.
func (c *Curve) Range() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxValue - c.minValue
}

// EnsureDefaultSetup seeds a pristine curve (no points, untouched 0..1
// range) with a constant y=1 curve and the given range.
func (c *Curve) EnsureDefaultSetup(min, max float64) {
	c.mu.Lock()
	pristine := len(c.points) == 0 && c.minValue == 0 && c.maxValue == 1
	c.mu.Unlock()
	if !pristine {
		return
	}
	c.AddPoint(Vector2{0, 1}, 0, 0, TangentFree, TangentFree)
	c.AddPoint(Vector2{1, 1}, 0, 0, TangentFree, TangentFree)
	c.SetMinValue(min)
	c.SetMaxValue(max)
}

// --- Bulk data ---

// Data exports the point list as an ordered sequence of tuples.
func (c *Curve) Data() []PointData {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PointData, len(c.points))
	for i, p := range c.points {
		out[i] = PointData{
			X:            p.Position.X,
			Y:            p.Position.Y,
			LeftTangent:  p.LeftTangent,
			RightTangent: p.RightTangent,
			LeftMode:     p.LeftMode,
			RightMode:    p.RightMode,
		}
	}
	return out
}

// SetData atomically replaces the whole point list. Every tuple is
// validated first; a single bad tuple rejects the import with no state
// change.
func (c *Curve) SetData(data []PointData) error {
	for i, d := range data {
		if math.IsNaN(d.X) || math.IsInf(d.X, 0) || math.IsNaN(d.Y) || math.IsInf(d.Y, 0) {
			return fmt.Errorf("%w: point %d has a non-finite position", ErrInvalidData, i)
		}
		if !d.LeftMode.valid() {
			return fmt.Errorf("%w: point %d left mode %d", ErrInvalidData, i, d.LeftMode)
		}
		if !d.RightMode.valid() {
			return fmt.Errorf("%w: point %d right mode %d", ErrInvalidData, i, d.RightMode)
		}
	}

	points := make([]Point, len(data))
	for i, d := range data {
		points[i] = Point{
			Position:     Vector2{d.X, d.Y},
			LeftTangent:  d.LeftTangent,
			RightTangent: d.RightTangent,
			LeftMode:     d.LeftMode,
			RightMode:    d.RightMode,
		}
	}

	c.mu.Lock()
	c.points = points
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

// --- Events ---

// OnBaked registers a callback fired after each publish of a new baked
// table. Callbacks run outside the curve's locks.
func (c *Curve) OnBaked(fn func()) {
	c.obsMu.Lock()
	c.bakedFns = append(c.bakedFns, fn)
	c.obsMu.Unlock()
}

// OnRangeChanged registers a callback fired whenever the min/max bounds
// are updated.
func (c *Curve) OnRangeChanged(fn func(min, max float64)) {
	c.obsMu.Lock()
	c.rangeFns = append(c.rangeFns, fn)
	c.obsMu.Unlock()
}

func (c *Curve) notifyBaked() {
	c.obsMu.Lock()
	fns := slices.Clone(c.bakedFns)
	c.obsMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Curve) notifyRangeChanged(min, max float64) {
	c.obsMu.Lock()
	fns := slices.Clone(c.rangeFns)
	c.obsMu.Unlock()
	for _, fn := range fns {
		fn(min, max)
	}
}
