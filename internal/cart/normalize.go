package cart

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/atinyakov/packcart/internal/cartkey"
	"github.com/atinyakov/packcart/internal/models"
)

// State is the canonical cart: line key to line. Stored lines always have a
// positive quantity.
type State map[string]models.CartLine

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Marshal serializes the state into the persisted blob format.
func (s State) Marshal() []byte {
	if s == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(s)
	if err != nil {
		// map of plain structs; cannot fail
		return []byte("{}")
	}
	return b
}

// entryShape tags which historical encoding a persisted cart entry uses.
type entryShape int

const (
	shapeUnknown entryShape = iota
	// shapeLine is the current {quantity, color, type, code} object.
	shapeLine
	// shapeCount is a bare quantity.
	shapeCount
	// shapeSizeMap is the oldest {size: count} object.
	shapeSizeMap
)

// rawEntry is one persisted entry after classification. It is the only place
// the legacy shapes are inspected; everything downstream sees CartLine.
type rawEntry struct {
	shape    entryShape
	quantity float64
	color    string
	fabric   string
	code     string
}

// Normalize migrates a persisted or server-provided cart blob into the
// canonical State. Malformed input yields an empty state; it never fails.
func Normalize(raw []byte) State {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return State{}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return State{}
	}
	return NormalizeValue(v)
}

// NormalizeValue is Normalize for an already decoded JSON value.
func NormalizeValue(v any) State {
	out := State{}
	top, ok := v.(map[string]any)
	if !ok {
		return out
	}

	for rawKey, value := range top {
		e := classify(value)
		if e.shape == shapeUnknown {
			continue
		}

		var parts cartkey.Parts
		if cartkey.IsComposite(rawKey) {
			parts = cartkey.Decode(rawKey)
			if e.shape == shapeLine {
				parts.Color = firstNonEmpty(parts.Color, e.color)
				parts.Fabric = firstNonEmpty(parts.Fabric, e.fabric)
				parts.Code = firstNonEmpty(parts.Code, e.code)
			}
		} else {
			parts = cartkey.Parts{ProductID: rawKey}
			if e.shape == shapeLine {
				parts.Color, parts.Fabric, parts.Code = e.color, e.fabric, e.code
			}
		}
		if parts.ProductID == "" {
			continue
		}

		qty := toQuantity(e.quantity)
		if qty <= 0 {
			continue
		}

		key := parts.Key()
		line := out[key]
		line.Quantity += qty
		line.ProductID = parts.ProductID
		line.Color = parts.Color
		line.Fabric = parts.Fabric
		line.Code = parts.Code
		out[key] = line
	}
	return out
}

func classify(v any) rawEntry {
	switch val := v.(type) {
	case json.Number, float64:
		return rawEntry{shape: shapeCount, quantity: number(val)}
	case map[string]any:
		if q, ok := val["quantity"]; ok {
			return rawEntry{
				shape:    shapeLine,
				quantity: number(q),
				color:    str(val["color"]),
				fabric:   firstNonEmpty(str(val["type"]), str(val["fabric"])),
				code:     str(val["code"]),
			}
		}
		return rawEntry{shape: shapeSizeMap, quantity: sumLeaves(val)}
	default:
		return rawEntry{shape: shapeUnknown}
	}
}

// sumLeaves adds every numeric leaf of a size map, descending into nested objects.
func sumLeaves(m map[string]any) float64 {
	var total float64
	for _, v := range m {
		if nested, ok := v.(map[string]any); ok {
			total += sumLeaves(nested)
			continue
		}
		total += number(v)
	}
	return total
}

// number coerces a JSON value to a finite number; anything else counts as zero.
func number(v any) float64 {
	var f float64
	switch n := v.(type) {
	case json.Number:
		f, _ = n.Float64()
	case float64:
		f = n
	case string:
		f, _ = strconv.ParseFloat(strings.TrimSpace(n), 64)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func toQuantity(f float64) int {
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Trunc(f))
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
