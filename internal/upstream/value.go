package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Ticket is one raw helpdesk record. The upstream schema is not contractually
// fixed, so values are kept loosely typed and unknown keys pass through.
type Ticket map[string]Value

type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
)

// Value is a small tagged union over the scalar shapes the ticket API emits.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
}

func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = Value{Kind: KindNull}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Value{Kind: KindString, Str: s}
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*v = Value{Kind: KindNumber, Num: n}
		return nil
	}
	// booleans, objects, arrays: keep the raw text so nothing is dropped
	*v = Value{Kind: KindString, Str: string(b)}
	return nil
}

// Render returns the cell text for tabular output. Missing values render
// as the empty string.
func (v Value) Render() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// Missing reports whether the value is null or one of the sentinel strings
// the upstream uses for "no data".
func (v Value) Missing() bool {
	if v.Kind == KindNull {
		return true
	}
	if v.Kind == KindString {
		switch strings.TrimSpace(v.Str) {
		case "", "null", "None", "NaN":
			return true
		}
	}
	return false
}

// Number coerces the value to a float64. String values are parsed; sentinel
// and unparsable values report false.
func (v Value) Number() (float64, bool) {
	if v.Missing() {
		return 0, false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
