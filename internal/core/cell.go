package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CellKind discriminates the variants of CellValue.
type CellKind uint8

const (
	KindNull CellKind = iota
	KindString
	KindNumber
	KindBool
)

func (k CellKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// CellValue is one of Null, String, Number or Bool. The zero value is Null.
//
// In JSON the variants are told apart by shape alone: null, "text", 1.5, true.
type CellValue struct {
	kind CellKind
	str  string
	num  float64
	b    bool
}

// Null returns the empty cell value.
func Null() CellValue { return CellValue{} }

// String returns a text cell value.
func String(s string) CellValue { return CellValue{kind: KindString, str: s} }

// Number returns a numeric cell value.
func Number(f float64) CellValue { return CellValue{kind: KindNumber, num: f} }

// Bool returns a boolean cell value.
func Bool(b bool) CellValue { return CellValue{kind: KindBool, b: b} }

func (v CellValue) Kind() CellKind { return v.kind }

func (v CellValue) IsNull() bool { return v.kind == KindNull }

// Text renders the value the way it is displayed and indexed. Numbers use the
// shortest decimal form without an exponent (1, 1.5, 100000000).
func (v CellValue) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Float returns the numeric payload and whether the value is a Number.
func (v CellValue) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// Equal reports structural equality: same variant, same payload.
func (v CellValue) Equal(o CellValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// GoString keeps %#v output and test diffs readable.
func (v CellValue) GoString() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("String(%q)", v.str)
	case KindNumber:
		return fmt.Sprintf("Number(%s)", v.Text())
	case KindBool:
		return fmt.Sprintf("Bool(%t)", v.b)
	default:
		return "Null()"
	}
}

// Any converts the value to its plain Go form: nil, string, float64 or bool.
func (v CellValue) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// FromAny converts a decoded JSON/YAML scalar into a CellValue. Integers are
// widened to float64; anything else is rendered as text.
func FromAny(x any) CellValue {
	switch t := x.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case uint64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	default:
		return String(fmt.Sprint(t))
	}
}

func (v CellValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

func (v *CellValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	switch x.(type) {
	case nil, string, bool, float64:
		*v = FromAny(x)
		return nil
	default:
		return fmt.Errorf("cell value must be null, string, number or bool, got %s", strings.TrimSpace(string(data)))
	}
}

// Normalize returns the index token for a value: its text, case-folded.
// Null and empty strings normalize to "" and are never indexed.
func Normalize(v CellValue) string {
	return strings.ToLower(v.Text())
}
