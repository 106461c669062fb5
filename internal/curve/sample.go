package curve

// Sample evaluates the curve exactly at the given offset. With no points
// it returns 0, with one point that point's y. Offsets before the first
// point clamp to the first point's y, offsets at or past the last point
// to the last point's y.
func (c *Curve) Sample(offset float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.points) < 2 {
		return samplePoints(c.points, offset, 0)
	}
	return samplePoints(c.points, offset, locate(c.points, offset))
}

// SampleLocalNocheck evaluates the segment starting at index at a local
// offset from the segment start, skipping the segment search.
func (c *Curve) SampleLocalNocheck(index int, localOffset float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index+1 >= len(c.points) {
		return 0, ErrIndexOutOfRange
	}
	return sampleLocalNocheck(c.points, index, localOffset), nil
}

// samplePoints evaluates a point snapshot at offset, with idx already
// located to the enclosing segment.
func samplePoints(points []Point, offset float64, idx int) float64 {
	if len(points) == 0 {
		return 0
	}
	if len(points) == 1 {
		return points[0].Position.Y
	}

	if idx == len(points)-1 {
		return points[idx].Position.Y
	}

	local := offset - points[idx].Position.X

	if idx == 0 && local <= 0 {
		return points[0].Position.Y
	}

	return sampleLocalNocheck(points, idx, local)
}

// sampleLocalNocheck evaluates the cubic Bézier segment between
// points[idx] and points[idx+1].
//
//	       ac-----bc
//	      /         \
//	     /           \     Here with a.RightTangent > 0
//	    /             \    and b.LeftTangent < 0
//	   /               \
//	  a                 b
//
//	  |-d1--|-d2--|-d3--|
//
// The inner control points sit at equal thirds of the segment width, so
// d1 == d2 == d3 == d/3 and the tangent slopes translate directly into
// control point heights.
func sampleLocalNocheck(points []Point, idx int, localOffset float64) float64 {
	a := points[idx]
	b := points[idx+1]

	d := b.Position.X - a.Position.X
	if isZeroApprox(d) {
		// Zero-width segment, interpolation would blow up.
		return b.Position.Y
	}
	localOffset /= d
	d /= 3.0
	yac := a.Position.Y + d*a.RightTangent
	ybc := b.Position.Y - d*b.LeftTangent

	return bezierInterpolate(a.Position.Y, yac, ybc, b.Position.Y, localOffset)
}

// bezierInterpolate evaluates the standard cubic Bézier blend of four
// scalar control values at t.
func bezierInterpolate(start, control1, control2, end, t float64) float64 {
	omt := 1.0 - t
	omt2 := omt * omt
	omt3 := omt2 * omt
	t2 := t * t
	t3 := t2 * t

	return start*omt3 + control1*omt2*t*3.0 + control2*omt*t2*3.0 + end*t3
}
