// SPDX-License-Identifier: MIT

package translate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ManuGH/recipefeed/internal/model"
)

// Coerce converts v into the Go type expected by kind. Strings are parsed;
// values that already have a numeric or boolean type are converted directly.
func Coerce(kind model.Kind, v any) (any, error) {
	switch kind {
	case model.KindString:
		return asString(v)
	case model.KindInt:
		n, err := asInt(v, strconv.IntSize)
		return int(n), err
	case model.KindInt64:
		return asInt(v, 64)
	case model.KindInt16:
		n, err := asInt(v, 16)
		return int16(n), err
	case model.KindInt8:
		n, err := asInt(v, 8)
		return int8(n), err
	case model.KindFloat64:
		return asFloat(v, 64)
	case model.KindFloat32:
		f, err := asFloat(v, 32)
		return float32(f), err
	case model.KindBool:
		return asBool(v)
	case model.KindRune:
		s, err := asString(v)
		if err != nil {
			return rune(0), err
		}
		if s == "" {
			return rune(0), fmt.Errorf("empty value for rune field")
		}
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	case model.KindList:
		return model.ParseList(v)
	default:
		return nil, fmt.Errorf("unsupported field kind %s", kind)
	}
}

func asString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case map[string]any, []any:
		raw, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	default:
		return fmt.Sprint(t), nil
	}
}

func asInt(v any, bits int) (int64, error) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int64:
		n = t
	case uint64:
		if t > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", t)
		}
		n = int64(t)
	case float64:
		if t != math.Trunc(t) {
			return 0, fmt.Errorf("value %v is not an integer", t)
		}
		// 2^63 is exact as a float64; MaxInt64 is not.
		if t < math.MinInt64 || t >= -math.MinInt64 {
			return 0, fmt.Errorf("value %v overflows int64", t)
		}
		n = int64(t)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, bits)
		if err != nil {
			return 0, err
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("cannot use %T as integer", v)
	}
	if bits < 64 {
		lim := int64(1) << (bits - 1)
		if n < -lim || n >= lim {
			return 0, fmt.Errorf("value %d overflows int%d", n, bits)
		}
	}
	return n, nil
}

func asFloat(v any, bits int) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), bits)
	default:
		return 0, fmt.Errorf("cannot use %T as float", v)
	}
}

// asBool follows the lenient rule that only "true" (any case) is true.
func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		return strings.EqualFold(strings.TrimSpace(t), "true"), nil
	default:
		return false, fmt.Errorf("cannot use %T as bool", v)
	}
}
