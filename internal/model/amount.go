package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a monetary value. The backend sends decimals either as JSON
// numbers or as numeric strings ("12.50"); both decode to the same value.
// Anything unparseable decodes to 0 and never fails the surrounding
// document.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount(parseFloat(data))
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(sanitize(float64(a)))
}

func (a Amount) Float64() float64 { return sanitize(float64(a)) }

// String renders the amount with two decimals.
func (a Amount) String() string { return FormatAmount(float64(a)) }

// Count is an integral quantity (stock, order item quantity) with the
// same lenient decoding rules as Amount. Fractional values truncate.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	f := parseFloat(data)
	if f > math.MaxInt32 || f < math.MinInt32 {
		*c = 0
		return nil
	}
	*c = Count(int(f))
	return nil
}

func (c Count) Int() int { return int(c) }

// ParseAmount coerces an arbitrary value into a finite float64.
// Strings are parsed leniently; unsupported types, NaN and Inf give 0.
func ParseAmount(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case Amount:
		return sanitize(float64(x))
	case *Amount:
		if x == nil {
			return 0
		}
		return sanitize(float64(*x))
	case Count:
		return float64(x)
	case float64:
		return sanitize(x)
	case float32:
		return sanitize(float64(x))
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		return parseString(string(x))
	case string:
		return parseString(x)
	case []byte:
		return parseFloat(x)
	default:
		return 0
	}
}

// FormatAmount renders v with exactly two decimals. Non-numeric input
// renders as "0.00".
func FormatAmount(v any) string {
	return strconv.FormatFloat(ParseAmount(v), 'f', 2, 64)
}

// FormatMoney prefixes FormatAmount with a currency symbol.
func FormatMoney(symbol string, v any) string {
	return fmt.Sprintf("%s%s", symbol, FormatAmount(v))
}

func parseFloat(data []byte) float64 {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		return parseString(s)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0
	}
	return sanitize(f)
}

// parseString accepts the leading numeric prefix like the browser's
// parseFloat does, so "12.5abc" is 12.5 and "abc" is 0.
func parseString(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return sanitize(f)
	}
	end := 0
	seenDot, seenDigit := false, false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			end = i + 1
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
	}
	if !seenDigit {
		return 0
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return sanitize(f)
}

func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
