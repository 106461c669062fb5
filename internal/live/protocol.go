package live

import (
	"encoding/json"

	"github.com/curvelab/curvelab/backend-go/internal/curve"
)

type Message struct {
	Type     string          `json:"type"`
	CurveID  string          `json:"curveId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	UserID   string          `json:"userId,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Full document sync, sent on join and after bulk replaces.
	TypeCurveState = "curve.state"

	// Edit operations
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"

	// Engine events pushed to subscribers.
	TypeEventBaked = "event.baked"
	TypeEventRange = "event.range"
)

// Operation kinds.
const (
	OpPointAdd     = "point.add"
	OpPointRemove  = "point.remove"
	OpPointValue   = "point.value"
	OpPointOffset  = "point.offset"
	OpLeftTangent  = "point.leftTangent"
	OpRightTangent = "point.rightTangent"
	OpLeftMode     = "point.leftMode"
	OpRightMode    = "point.rightMode"
	OpPointCount   = "point.count"
	OpClearPoints  = "points.clear"
	OpCleanDupes   = "points.cleanDupes"
	OpRangeMin     = "range.min"
	OpRangeMax     = "range.max"
	OpResolution   = "bake.resolution"
	OpReplaceData  = "data.replace"
)

// Operation is one edit against the room's curve. Which fields are
// meaningful depends on Kind; Value carries the y value, new offset,
// tangent or range bound.
type Operation struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`

	Index      int               `json:"index,omitempty"`
	X          float64           `json:"x,omitempty"`
	Y          float64           `json:"y,omitempty"`
	Value      float64           `json:"value,omitempty"`
	Mode       int               `json:"mode,omitempty"`
	Count      int               `json:"count,omitempty"`
	Resolution int               `json:"resolution,omitempty"`
	Points     []curve.PointData `json:"points,omitempty"`
}

type OpSubmitPayload struct {
	Operation Operation `json:"operation"`
}

type OpAckPayload struct {
	OperationID string `json:"operationId"`
	// Index the point ended up at, for point.add and point.offset;
	// -1 for operations that do not move points.
	NewIndex int `json:"newIndex"`
}

type OpNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

type OpBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
}

type EventRangePayload struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type EventBakedPayload struct {
	Resolution int `json:"resolution"`
}
