//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/curvelab/curvelab/backend-go/internal/curve"
	"github.com/curvelab/curvelab/backend-go/internal/curvedoc"
)

// The browser build hosts a single engine instance driven by the editor
// UI. Edits land synchronously; the baked table refreshes through the
// engine's debounced background worker and is surfaced to JS via the
// onBaked callback.
var c *curve.Curve

func main() {
	c = curve.New()

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("addPoint", js.FuncOf(addPoint))
	api.Set("removePoint", js.FuncOf(removePoint))
	api.Set("clearPoints", js.FuncOf(clearPoints))
	api.Set("setPointValue", js.FuncOf(setPointValue))
	api.Set("setPointOffset", js.FuncOf(setPointOffset))
	api.Set("setLeftTangent", js.FuncOf(setLeftTangent))
	api.Set("setRightTangent", js.FuncOf(setRightTangent))
	api.Set("setLeftMode", js.FuncOf(setLeftMode))
	api.Set("setRightMode", js.FuncOf(setRightMode))
	api.Set("setMinValue", js.FuncOf(setMinValue))
	api.Set("setMaxValue", js.FuncOf(setMaxValue))
	api.Set("setBakeResolution", js.FuncOf(setBakeResolution))
	api.Set("cleanDupes", js.FuncOf(cleanDupes))
	api.Set("bake", js.FuncOf(bake))
	api.Set("onBaked", js.FuncOf(onBaked))

	// --- Queries (frontend ← engine) ---
	api.Set("getDocument", js.FuncOf(getDocument))
	api.Set("pointCount", js.FuncOf(pointCount))
	api.Set("sample", js.FuncOf(sample))
	api.Set("sampleBaked", js.FuncOf(sampleBaked))
	api.Set("getBakedTable", js.FuncOf(getBakedTable))
	api.Set("getRange", js.FuncOf(getRange))

	js.Global().Set("curveEngine", api)
	js.Global().Set("curveWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing document JSON"})
	}

	var doc curvedoc.Document
	if err := json.Unmarshal([]byte(args[0].String()), &doc); err != nil {
		return errResult(err)
	}
	if err := doc.Apply(c); err != nil {
		return errResult(err)
	}
	return okResult()
}

func addPoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(-1)
	}
	pos := curve.Vector2{X: args[0].Float(), Y: args[1].Float()}
	idx := c.AddPoint(pos, 0, 0, curve.TangentFree, curve.TangentFree)
	return js.ValueOf(idx)
}

func removePoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return okResult()
	}
	if err := c.RemovePoint(args[0].Int()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func clearPoints(this js.Value, args []js.Value) interface{} {
	c.ClearPoints()
	return okResult()
}

func setPointValue(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return okResult()
	}
	if err := c.SetPointValue(args[0].Int(), args[1].Float()); err != nil {
		return errResult(err)
	}
	return okResult()
}

// setPointOffset returns the index the point lands at, which may differ
// from the input index when the move crosses neighbours.
func setPointOffset(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(-1)
	}
	idx, err := c.SetPointOffset(args[0].Int(), args[1].Float())
	if err != nil {
		return errResult(err)
	}
	return js.ValueOf(idx)
}

func setLeftTangent(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return okResult()
	}
	if err := c.SetPointLeftTangent(args[0].Int(), args[1].Float()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func setRightTangent(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return okResult()
	}
	if err := c.SetPointRightTangent(args[0].Int(), args[1].Float()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func setLeftMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return okResult()
	}
	if err := c.SetPointLeftMode(args[0].Int(), curve.TangentMode(args[1].Int())); err != nil {
		return errResult(err)
	}
	return okResult()
}

func setRightMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return okResult()
	}
	if err := c.SetPointRightMode(args[0].Int(), curve.TangentMode(args[1].Int())); err != nil {
		return errResult(err)
	}
	return okResult()
}

func setMinValue(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return okResult()
	}
	c.SetMinValue(args[0].Float())
	return okResult()
}

func setMaxValue(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return okResult()
	}
	c.SetMaxValue(args[0].Float())
	return okResult()
}

func setBakeResolution(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return okResult()
	}
	if err := c.SetBakeResolution(args[0].Int()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func cleanDupes(this js.Value, args []js.Value) interface{} {
	c.CleanDupes()
	return okResult()
}

// bake rebuilds the sample table in the foreground, for callers that
// need the table before the debounced worker would get to it.
func bake(this js.Value, args []js.Value) interface{} {
	c.Bake()
	return okResult()
}

// onBaked registers a JS callback invoked whenever a background bake
// publishes a fresh table.
func onBaked(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return okResult()
	}
	fn := args[0]
	c.OnBaked(func() {
		fn.Invoke()
	})
	return okResult()
}

// --- Query Handlers ---

func getDocument(this js.Value, args []js.Value) interface{} {
	doc := curvedoc.FromCurve("", "", c, 0)
	data, err := json.Marshal(doc)
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func pointCount(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(c.PointCount())
}

func sample(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	return js.ValueOf(c.Sample(args[0].Float()))
}

func sampleBaked(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	return js.ValueOf(c.SampleBaked(args[0].Float()))
}

// getBakedTable returns the full dense table as a JSON array, sweeping
// the baked lookup at its own resolution.
func getBakedTable(this js.Value, args []js.Value) interface{} {
	resolution := c.BakeResolution()
	table := make([]float64, resolution)
	if resolution == 1 {
		table[0] = c.SampleBaked(0)
	} else {
		for i := range table {
			table[i] = c.SampleBaked(float64(i) / float64(resolution-1))
		}
	}
	data, err := json.Marshal(table)
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func getRange(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(map[string]interface{}{"min": c.MinValue(), "max": c.MaxValue()})
}
