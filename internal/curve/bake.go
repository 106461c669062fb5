package curve

import (
	"slices"
	"time"
)

// BakeResolution returns the length of the baked table.
func (c *Curve) BakeResolution() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bakeResolution
}

// SetBakeResolution changes the baked table length. The current table is
// left stale; the rebuild happens through the debounced pipeline, not
// here.
func (c *Curve) SetBakeResolution(resolution int) error {
	if resolution < 1 || resolution > maxBakeResolution {
		return ErrResolutionOutOfRange
	}
	c.mu.Lock()
	c.bakeResolution = resolution
	c.mu.Unlock()
	c.queueUpdate()
	return nil
}

// Bake rebuilds the baked table synchronously and publishes it. Most
// callers never need this; edits feed the background baker instead.
func (c *Curve) Bake() {
	c.mu.Lock()
	points := slices.Clone(c.points)
	resolution := c.bakeResolution
	c.mu.Unlock()

	table := bakeTable(points, resolution)

	c.cacheMu.Lock()
	c.baked = table
	c.cacheMu.Unlock()

	c.notifyBaked()
}

// bakeTable computes the dense sample table from a point snapshot. The
// segment cursor only ever moves forward: sample x values are strictly
// increasing, so each step resumes the search where the previous one
// left off instead of bisecting from scratch.
func bakeTable(points []Point, resolution int) []float64 {
	table := make([]float64, resolution)

	cursor := 0
	for i := 1; i < resolution-1; i++ {
		x := float64(i) / float64(resolution-1)
		for cursor < len(points) && points[cursor].Position.X < x {
			cursor++
		}
		if cursor > 0 {
			cursor--
		}
		table[i] = samplePoints(points, x, cursor)
	}

	// Force exact endpoint values; interpolating at the boundary causes
	// visible artifacts.
	if len(points) != 0 {
		table[0] = points[0].Position.Y
		table[resolution-1] = points[len(points)-1].Position.Y
	}

	return table
}

// SampleBaked looks the offset up in the baked table with linear
// interpolation between neighbouring entries. With no table yet it falls
// back to 0 (no points) or the first point's y; staleness is a precision
// trade-off, never an error.
func (c *Curve) SampleBaked(offset float64) float64 {
	c.cacheMu.RLock()

	if len(c.baked) == 0 {
		c.cacheMu.RUnlock()
		c.mu.Lock()
		defer c.mu.Unlock()
		if len(c.points) == 0 {
			return 0
		}
		return c.points[0].Position.Y
	}
	defer c.cacheMu.RUnlock()

	if len(c.baked) == 1 {
		return c.baked[0]
	}

	fi := offset * float64(len(c.baked)-1)
	i := int(fi)
	if fi < 0 {
		i = 0
		fi = 0
	} else if i >= len(c.baked) {
		i = len(c.baked) - 1
		fi = 0
	}

	if i+1 < len(c.baked) {
		t := fi - float64(i)
		return lerp(c.baked[i], c.baked[i+1], t)
	}
	return c.baked[len(c.baked)-1]
}

// queueUpdate is called after every mutation: it raises the pending flag
// and lazily starts the bake worker if none is running.
func (c *Curve) queueUpdate() {
	c.ctrlMu.Lock()
	c.pending = true
	if !c.running && !c.closed {
		c.running = true
		c.wg.Add(1)
		go c.bakeLoop()
	}
	c.ctrlMu.Unlock()
}

// bakeLoop is the single background bake worker. It coalesces bursts of
// edits into at most one rebuild per quiescence window, publishes the
// finished table under the cache lock, and exits once it is caught up.
func (c *Curve) bakeLoop() {
	defer c.wg.Done()

	for {
		// Debounce: keep clearing the flag and sleeping until a full
		// window passes with no new edit.
		for {
			c.ctrlMu.Lock()
			c.pending = false
			c.ctrlMu.Unlock()

			time.Sleep(c.quiescence)

			c.ctrlMu.Lock()
			again := c.pending
			c.ctrlMu.Unlock()
			if !again {
				break
			}
		}

		c.mu.Lock()
		points := slices.Clone(c.points)
		resolution := c.bakeResolution
		c.mu.Unlock()

		c.ctrlMu.Lock()
		raced := c.pending
		c.ctrlMu.Unlock()
		if raced {
			// An edit raced the snapshot; abandon this pass.
			continue
		}

		table := bakeTable(points, resolution)

		c.cacheMu.Lock()
		c.baked = table
		c.cacheMu.Unlock()

		c.notifyBaked()

		c.ctrlMu.Lock()
		if !c.pending {
			// Caught up.
			c.running = false
			c.ctrlMu.Unlock()
			return
		}
		c.ctrlMu.Unlock()
	}
}
