package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Values arrive from YAML, TOML, JSON, CLI flags and typed callers, so each
// coercion accepts the spellings those sources produce.

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func toString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case fmt.Stringer:
		return x.String(), nil
	case CPSMode:
		return string(x), nil
	case MouseButton:
		return string(x), nil
	case TargetMode:
		return string(x), nil
	case HotkeyMode:
		return string(x), nil
	}
	return "", fmt.Errorf("want string, got %T", v)
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("want number, got %q", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("want number, got %T", v)
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		if x > math.MaxInt || x < math.MinInt {
			return 0, fmt.Errorf("%d is out of range", x)
		}
		return int(x), nil
	case uint:
		return uintToInt(uint64(x))
	case uint32:
		return uintToInt(uint64(x))
	case uint64:
		return uintToInt(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("want integer, got %q", x)
		}
		return n, nil
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, fmt.Errorf("want integer, got %T", v)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("want integer, got %v", f)
	}
	// -math.MinInt is the first float above the int range
	if f < math.MinInt || f >= -math.MinInt {
		return 0, fmt.Errorf("%v is out of range", f)
	}
	return int(f), nil
}

func uintToInt(u uint64) (int, error) {
	if u > math.MaxInt {
		return 0, fmt.Errorf("%d is out of range", u)
	}
	return int(u), nil
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			switch lower(x) {
			case "on", "yes", "y":
				return true, nil
			case "off", "no", "n":
				return false, nil
			}
			return false, fmt.Errorf("want boolean, got %q", x)
		}
		return b, nil
	case int, int64, float64:
		n, _ := toFloat(x)
		switch n {
		case 0:
			return false, nil
		case 1:
			return true, nil
		}
	}
	return false, fmt.Errorf("want boolean, got %v", v)
}

func toClickType(v any) (ClickType, error) {
	if s, ok := v.(string); ok {
		switch lower(s) {
		case "single", "1":
			return ClickSingle, nil
		case "double", "2":
			return ClickDouble, nil
		}
		return "", fmt.Errorf("want single or double, got %q", s)
	}
	if ct, ok := v.(ClickType); ok {
		return toClickType(string(ct))
	}
	n, err := toInt(v)
	if err != nil {
		return "", err
	}
	switch n {
	case 1:
		return ClickSingle, nil
	case 2:
		return ClickDouble, nil
	}
	return "", fmt.Errorf("want 1 or 2, got %d", n)
}

func toPoint(v any) (Point, error) {
	switch x := v.(type) {
	case Point:
		return x, nil
	case *Point:
		if x == nil {
			return Point{}, fmt.Errorf("nil point")
		}
		return *x, nil
	case [2]int:
		return Point{X: x[0], Y: x[1]}, nil
	case []int:
		if len(x) == 2 {
			return Point{X: x[0], Y: x[1]}, nil
		}
	case []any:
		if len(x) == 2 {
			px, errX := toInt(x[0])
			py, errY := toInt(x[1])
			if errX == nil && errY == nil {
				return Point{X: px, Y: py}, nil
			}
		}
	case map[string]any:
		px, errX := toInt(x["x"])
		py, errY := toInt(x["y"])
		if errX == nil && errY == nil {
			return Point{X: px, Y: py}, nil
		}
	case string:
		parts := strings.Split(strings.Trim(strings.TrimSpace(x), "()"), ",")
		if len(parts) == 2 {
			px, errX := toInt(parts[0])
			py, errY := toInt(parts[1])
			if errX == nil && errY == nil {
				return Point{X: px, Y: py}, nil
			}
		}
		return Point{}, fmt.Errorf("want \"x,y\", got %q", x)
	}
	return Point{}, fmt.Errorf("want point, got %v", v)
}
