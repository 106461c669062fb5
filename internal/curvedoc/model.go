package curvedoc

import (
	"fmt"

	"github.com/curvelab/curvelab/backend-go/internal/curve"
)

// Document is the persisted form of a curve: bulk point data plus the
// advisory range and bake resolution. It is what the library stores in
// snapshots and what travels over the wire to editors.
type Document struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	MinValue       float64           `json:"minValue"`
	MaxValue       float64           `json:"maxValue"`
	BakeResolution int               `json:"bakeResolution"`
	Points         []curve.PointData `json:"points"`
	Version        int               `json:"version"`
}

// NewDefaultDocument is the seed for a freshly created curve: a constant
// y=1 curve over the default 0..1 range.
func NewDefaultDocument(curveID, name string) *Document {
	return &Document{
		ID:             curveID,
		Name:           name,
		MinValue:       0,
		MaxValue:       1,
		BakeResolution: 100,
		Points:         PresetPoints(PresetConstant),
		Version:        1,
	}
}

// FromCurve exports a live engine instance into document form.
func FromCurve(curveID, name string, c *curve.Curve, version int) *Document {
	return &Document{
		ID:             curveID,
		Name:           name,
		MinValue:       c.MinValue(),
		MaxValue:       c.MaxValue(),
		BakeResolution: c.BakeResolution(),
		Points:         c.Data(),
		Version:        version,
	}
}

// Apply loads the document into an engine instance: resolution first (it
// only validates), then the atomic bulk point import, then the range
// bounds.
func (d *Document) Apply(c *curve.Curve) error {
	if err := c.SetBakeResolution(d.BakeResolution); err != nil {
		return fmt.Errorf("apply resolution: %w", err)
	}
	if err := c.SetData(d.Points); err != nil {
		return fmt.Errorf("apply points: %w", err)
	}
	c.SetMinValue(d.MinValue)
	c.SetMaxValue(d.MaxValue)
	return nil
}
