package curvedoc

import "github.com/curvelab/curvelab/backend-go/internal/curve"

// Starter shapes offered by the editor when creating a curve. Each is a
// control-point set; the segment evaluator turns the endpoint tangents
// into the familiar easing shapes (zero tangents at both ends of a 0→1
// ramp give exactly smoothstep).
const (
	PresetConstant  = "constant"
	PresetLinear    = "linear"
	PresetEaseIn    = "easeIn"
	PresetEaseOut   = "easeOut"
	PresetEaseInOut = "easeInOut"
)

var presets = map[string][]curve.PointData{
	PresetConstant: {
		{X: 0, Y: 1},
		{X: 1, Y: 1},
	},
	PresetLinear: {
		{X: 0, Y: 0, RightTangent: 1, RightMode: curve.TangentLinear},
		{X: 1, Y: 1, LeftTangent: 1, LeftMode: curve.TangentLinear},
	},
	PresetEaseIn: {
		{X: 0, Y: 0, RightTangent: 0},
		{X: 1, Y: 1, LeftTangent: 2},
	},
	PresetEaseOut: {
		{X: 0, Y: 0, RightTangent: 2},
		{X: 1, Y: 1, LeftTangent: 0},
	},
	PresetEaseInOut: {
		{X: 0, Y: 0, RightTangent: 0},
		{X: 1, Y: 1, LeftTangent: 0},
	},
}

// PresetNames lists the available presets in a stable order.
func PresetNames() []string {
	return []string{PresetConstant, PresetLinear, PresetEaseIn, PresetEaseOut, PresetEaseInOut}
}

// PresetPoints returns a copy of the named preset's point data, falling
// back to the constant preset for unknown names.
func PresetPoints(name string) []curve.PointData {
	points, ok := presets[name]
	if !ok {
		points = presets[PresetConstant]
	}
	out := make([]curve.PointData, len(points))
	copy(out, points)
	return out
}
