// Package normalize turns the loosely shaped values found in listing payloads
// into canonical scalars. Upstream fields arrive as scalars, single-element
// lists, punctuated strings or not at all; every function here is total and
// degrades to an empty or zero value instead of failing.
package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`\d+`)

// punctuation stripped from both ends of string identifiers, e.g. ` ["8768710"] `.
const wrapChars = "[](){} \t\r\n\"'"

// shape is the decoded kind of an upstream value.
type shape int

const (
	shapeNull shape = iota
	shapeInt
	shapeFloat
	shapeString
	shapeList
	shapeOther
)

// decoded is a tagged union over the shapes encoding/json produces.
type decoded struct {
	kind shape
	i    int64
	f    float64
	s    string
	list []any
	raw  any
}

func decode(value any) decoded {
	switch v := value.(type) {
	case nil:
		return decoded{kind: shapeNull}
	case int:
		return decoded{kind: shapeInt, i: int64(v)}
	case int32:
		return decoded{kind: shapeInt, i: int64(v)}
	case int64:
		return decoded{kind: shapeInt, i: v}
	case float32:
		return decoded{kind: shapeFloat, f: float64(v)}
	case float64:
		return decoded{kind: shapeFloat, f: v}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return decoded{kind: shapeInt, i: i}
		}
		if f, err := v.Float64(); err == nil {
			return decoded{kind: shapeFloat, f: f}
		}
		return decoded{kind: shapeString, s: v.String()}
	case string:
		return decoded{kind: shapeString, s: v}
	case []any:
		return decoded{kind: shapeList, list: v}
	case []string:
		list := make([]any, len(v))
		for i := range v {
			list[i] = v[i]
		}
		return decoded{kind: shapeList, list: list}
	case []int64:
		list := make([]any, len(v))
		for i := range v {
			list[i] = v[i]
		}
		return decoded{kind: shapeList, list: list}
	default:
		return decoded{kind: shapeOther, raw: v}
	}
}

// truncate converts a float to int64, mapping NaN and out-of-range values to 0.
func truncate(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return int64(f)
}

// Identifier returns the bid identifier as a digit string, or "" when none can be found.
func Identifier(value any) string {
	d := decode(value)
	switch d.kind {
	case shapeInt:
		if d.i < 0 {
			return ""
		}
		return strconv.FormatInt(d.i, 10)
	case shapeFloat:
		if math.IsNaN(d.f) || d.f < 0 || d.f >= math.MaxInt64 {
			return ""
		}
		return strconv.FormatInt(int64(d.f), 10)
	case shapeList:
		if len(d.list) == 0 {
			return ""
		}
		return Identifier(d.list[0])
	case shapeString:
		s := strings.Trim(strings.TrimSpace(d.s), wrapChars)
		return digitRun.FindString(s)
	default:
		return ""
	}
}

// Millis returns a non-negative millisecond timestamp, or 0 when unknown.
func Millis(value any) int64 {
	n := Int(value)
	if n < 0 {
		return 0
	}
	return n
}

// Int returns an integer code (bid type, evaluation type), or 0 when unknown.
func Int(value any) int64 {
	d := decode(value)
	switch d.kind {
	case shapeInt:
		return d.i
	case shapeFloat:
		return truncate(d.f)
	case shapeList:
		if len(d.list) == 0 {
			return 0
		}
		return Int(d.list[0])
	case shapeString:
		n, err := strconv.ParseInt(strings.TrimSpace(d.s), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// BidNumber returns the human readable bid reference, trimmed.
func BidNumber(value any) string {
	d := decode(value)
	switch d.kind {
	case shapeNull:
		return ""
	case shapeString:
		return strings.TrimSpace(d.s)
	case shapeList:
		if len(d.list) == 0 {
			return ""
		}
		return BidNumber(d.list[0])
	case shapeInt:
		return strconv.FormatInt(d.i, 10)
	case shapeFloat:
		return strconv.FormatFloat(d.f, 'f', -1, 64)
	default:
		if b, ok := d.raw.(bool); ok {
			return strconv.FormatBool(b)
		}
		raw, err := json.Marshal(d.raw)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(raw))
	}
}

// Text normalizes free-text fields such as titles. It follows BidNumber's rules.
func Text(value any) string {
	return BidNumber(value)
}
