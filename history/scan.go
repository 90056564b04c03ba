package history

// DuckDB returns LIST and STRUCT columns as []any and map[string]any; these
// helpers coerce them into the typed rows above.

func zipPoints(xs, ys []int32) []Point {
	n := min(len(xs), len(ys))
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Point{X: xs[i], Y: ys[i]})
	}
	return out
}

func asInt32Slice(v any) []int32 {
	switch vv := v.(type) {
	case []int32:
		return vv
	case []int64:
		out := make([]int32, 0, len(vv))
		for _, x := range vv {
			out = append(out, int32(x))
		}
		return out
	case []any:
		out := make([]int32, 0, len(vv))
		for _, x := range vv {
			out = append(out, int32(asInt64(x)))
		}
		return out
	default:
		return nil
	}
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case uint64:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat32(v any) float32 {
	switch t := v.(type) {
	case float32:
		return t
	case float64:
		return float32(t)
	case int64:
		return float32(t)
	case int32:
		return float32(t)
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case int32:
		return t != 0
	default:
		return false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}

func asSnakes(v any) []Snake {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	snakes := make([]Snake, 0, len(list))
	for _, it := range list {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		snakes = append(snakes, Snake{
			ID:     asString(m["id"]),
			Name:   asString(m["name"]),
			Alive:  asBool(m["alive"]),
			Health: int32(asInt64(m["health"])),
			Move:   int32(asInt64(m["move"])),
			Value:  asFloat32(m["value"]),
			Body:   zipPoints(asInt32Slice(m["body_x"]), asInt32Slice(m["body_y"])),
		})
	}
	return snakes
}
