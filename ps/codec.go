package ps

import (
	"encoding/json"
	"fmt"

	"github.com/nickyhof/RouteDB/core"
)

// cell keeps the Go kind of a value across a JSON round trip, which plain
// JSON numbers would lose.
type cell struct {
	Int    *int64   `json:"i,omitempty"`
	Float  *float64 `json:"f,omitempty"`
	String *string  `json:"s,omitempty"`
	Bool   *bool    `json:"b,omitempty"`
}

func toCell(value any) (cell, error) {
	switch v := core.Normalize(value).(type) {
	case nil:
		return cell{}, nil
	case int64:
		return cell{Int: &v}, nil
	case float64:
		return cell{Float: &v}, nil
	case string:
		return cell{String: &v}, nil
	case bool:
		return cell{Bool: &v}, nil
	default:
		return cell{}, fmt.Errorf("%w: cannot store %T", core.ErrTypeMismatch, v)
	}
}

func (c cell) value() any {
	switch {
	case c.Int != nil:
		return *c.Int
	case c.Float != nil:
		return *c.Float
	case c.String != nil:
		return *c.String
	case c.Bool != nil:
		return *c.Bool
	default:
		return nil
	}
}

func encodeValues(values map[string]any) ([]byte, error) {
	cells := make(map[string]cell, len(values))
	for name, value := range values {
		c, err := toCell(value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		cells[name] = c
	}
	return json.Marshal(cells)
}

func decodeValues(data []byte) (map[string]any, error) {
	var cells map[string]cell
	if err := json.Unmarshal(data, &cells); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	values := make(map[string]any, len(cells))
	for name, c := range cells {
		values[name] = c.value()
	}
	return values, nil
}
