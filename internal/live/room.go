package live

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/curvelab/curvelab/backend-go/internal/curve"
	"github.com/curvelab/curvelab/backend-go/internal/curvedoc"
)

// Room is a live editing session for one curve. It owns the
// authoritative engine instance; every connected client's edits are
// applied here, and engine events (bake completed, output range
// changed) are fanned out to all clients.
type Room struct {
	curveID string
	curve   *curve.Curve
	name    string
	version int
	clients map[string]*Client // clientID -> client
}

func newRoom(curveID string, doc *curvedoc.Document, quiescence time.Duration) (*Room, error) {
	c := curve.NewWithQuiescence(quiescence)
	if err := doc.Apply(c); err != nil {
		c.Close()
		return nil, fmt.Errorf("load document into engine: %w", err)
	}

	return &Room{
		curveID: curveID,
		curve:   c,
		name:    doc.Name,
		version: doc.Version,
		clients: make(map[string]*Client),
	}, nil
}

// document exports the room's current engine state for persistence or
// for syncing a newly joined client.
func (r *Room) document() *curvedoc.Document {
	return curvedoc.FromCurve(r.curveID, r.name, r.curve, r.version)
}

func (r *Room) close() {
	r.curve.Close()
}

// apply runs one operation against the engine. It returns the index
// the affected point ended up at (-1 when the operation does not
// place a point) or an error describing why the operation was
// rejected.
func (r *Room) apply(op *Operation) (int, error) {
	c := r.curve

	switch op.Kind {
	case OpPointAdd:
		idx := c.AddPoint(curve.Vector2{X: op.X, Y: op.Y}, 0, 0, curve.TangentFree, curve.TangentFree)
		return idx, nil

	case OpPointRemove:
		return -1, c.RemovePoint(op.Index)

	case OpPointValue:
		return -1, c.SetPointValue(op.Index, op.Value)

	case OpPointOffset:
		return c.SetPointOffset(op.Index, op.Value)

	case OpLeftTangent:
		return -1, c.SetPointLeftTangent(op.Index, op.Value)

	case OpRightTangent:
		return -1, c.SetPointRightTangent(op.Index, op.Value)

	case OpLeftMode:
		return -1, c.SetPointLeftMode(op.Index, curve.TangentMode(op.Mode))

	case OpRightMode:
		return -1, c.SetPointRightMode(op.Index, curve.TangentMode(op.Mode))

	case OpPointCount:
		return -1, c.SetPointCount(op.Count)

	case OpClearPoints:
		c.ClearPoints()
		return -1, nil

	case OpCleanDupes:
		c.CleanDupes()
		return -1, nil

	case OpRangeMin:
		c.SetMinValue(op.Value)
		return -1, nil

	case OpRangeMax:
		c.SetMaxValue(op.Value)
		return -1, nil

	case OpResolution:
		return -1, c.SetBakeResolution(op.Resolution)

	case OpReplaceData:
		return -1, c.SetData(op.Points)

	default:
		return -1, fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func (r *Room) stateMessage() *Message {
	payload, err := json.Marshal(r.document())
	if err != nil {
		return nil
	}
	return &Message{
		Type:    TypeCurveState,
		CurveID: r.curveID,
		Payload: payload,
	}
}
