package curve

import (
	"errors"
	"math"
)

// Domain of the curve. Point x positions are clamped into [MinX, MaxX].
const (
	MinX = 0.0
	MaxX = 1.0
)

const (
	// minYRange is the smallest span the advisory min/max bounds may be
	// squeezed to once both have been set.
	minYRange = 0.01

	// dupeEpsilon is the largest x gap between neighbours that CleanDupes
	// still treats as a duplicate.
	dupeEpsilon = 1e-6

	// cmpEpsilon is the zero-width threshold for degenerate segments.
	cmpEpsilon = 1e-5

	defaultBakeResolution = 100
	maxBakeResolution     = 1000
)

var (
	ErrIndexOutOfRange      = errors.New("curve: point index out of range")
	ErrNegativeCount        = errors.New("curve: point count cannot be negative")
	ErrResolutionOutOfRange = errors.New("curve: bake resolution must be in 1..1000")
	ErrInvalidTangentMode   = errors.New("curve: unknown tangent mode")
	ErrInvalidData          = errors.New("curve: invalid point data")
)

// TangentMode controls how a point's tangent on one side is maintained.
type TangentMode int

const (
	// TangentFree leaves the tangent value entirely to the caller.
	TangentFree TangentMode = iota
	// TangentLinear derives the tangent from the straight-line slope to
	// the adjacent point and keeps it updated as neighbours move.
	TangentLinear

	tangentModeCount
)

func (m TangentMode) valid() bool {
	return m >= TangentFree && m < tangentModeCount
}

func (m TangentMode) String() string {
	switch m {
	case TangentFree:
		return "free"
	case TangentLinear:
		return "linear"
	default:
		return "unknown"
	}
}

type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2{v.X - o.X, v.Y - o.Y}
}

func (v Vector2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

// Normalized returns the unit-length vector in the same direction, or the
// zero vector when v has no length.
func (v Vector2) Normalized() Vector2 {
	l := v.Length()
	if l == 0 {
		return Vector2{}
	}
	return Vector2{v.X / l, v.Y / l}
}

// Point is a single control point. Tangents are slopes (dy/dx) of the
// curve on each side of the point.
type Point struct {
	Position     Vector2
	LeftTangent  float64
	RightTangent float64
	LeftMode     TangentMode
	RightMode    TangentMode
}

// PointData is the bulk import/export form of a control point, used by
// the persistence layer and the wire protocol.
type PointData struct {
	X            float64     `json:"x"`
	Y            float64     `json:"y"`
	LeftTangent  float64     `json:"leftTangent"`
	RightTangent float64     `json:"rightTangent"`
	LeftMode     TangentMode `json:"leftMode"`
	RightMode    TangentMode `json:"rightMode"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func isZeroApprox(v float64) bool {
	return math.Abs(v) < cmpEpsilon
}
