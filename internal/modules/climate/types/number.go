package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Number is a nullable numeric cell that remembers whether the store handed
// back an integer or a real. Integers encode as 66, reals always carry a
// fractional part (66.0), NULL encodes as null.
type Number struct {
	v     float64
	isInt bool
	valid bool
}

func Int(n int64) Number     { return Number{v: float64(n), isInt: true, valid: true} }
func Float(f float64) Number { return Number{v: f, valid: true} }
func Null() Number           { return Number{} }

func (n Number) Valid() bool     { return n.valid }
func (n Number) IsInteger() bool { return n.valid && n.isInt }

// Float64 returns the value and whether it is non-null.
func (n Number) Float64() (float64, bool) { return n.v, n.valid }

// Scan implements sql.Scanner.
func (n *Number) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = Null()
	case int64:
		*n = Int(v)
	case float64:
		*n = Float(v)
	case []byte:
		return n.scanText(string(v))
	case string:
		return n.scanText(v)
	default:
		return fmt.Errorf("types.Number: cannot scan %T", src)
	}
	return nil
}

func (n *Number) scanText(s string) error {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int(i)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("types.Number: cannot scan %q: %w", s, err)
	}
	*n = Float(f)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	if math.IsNaN(n.v) || math.IsInf(n.v, 0) {
		return nil, fmt.Errorf("types.Number: unsupported value %v", n.v)
	}
	if n.isInt {
		return strconv.AppendInt(nil, int64(n.v), 10), nil
	}
	b := strconv.AppendFloat(nil, n.v, 'f', -1, 64)
	if !bytes.ContainsAny(b, ".e") {
		b = append(b, '.', '0')
	}
	return b, nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*n = Null()
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("types.Number: %w", err)
	}
	return n.scanText(num.String())
}

func (n Number) String() string {
	b, err := n.MarshalJSON()
	if err != nil {
		return fmt.Sprint(n.v)
	}
	return string(b)
}
