// Package decode normalizes provider rows that arrive either as keyed objects or positional arrays.
package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"candlefuse/internal/market"
)

// Row is one provider data element. Exactly one of the representations is set.
type Row struct {
	keyed      map[string]json.RawMessage
	positional []json.RawMessage
}

// ParseRow accepts a JSON object or array. Anything else is a schema fault.
func ParseRow(raw json.RawMessage) (Row, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Row{}, market.ErrSchema
	}
	var r Row
	switch trimmed[0] {
	case '{':
		if err := json.Unmarshal(trimmed, &r.keyed); err != nil {
			return Row{}, fmt.Errorf("%w: %v", market.ErrSchema, err)
		}
	case '[':
		if err := json.Unmarshal(trimmed, &r.positional); err != nil {
			return Row{}, fmt.Errorf("%w: %v", market.ErrSchema, err)
		}
	default:
		return Row{}, fmt.Errorf("%w: row is neither object nor array", market.ErrSchema)
	}
	return r, nil
}

// Keyed reports whether the row is an object.
func (r Row) Keyed() bool {
	return r.keyed != nil
}

// Value returns the field by key for objects and by index for arrays, as text.
func (r Row) Value(key string, index int) (string, error) {
	var raw json.RawMessage
	switch {
	case r.keyed != nil:
		v, ok := r.keyed[key]
		if !ok {
			return "", fmt.Errorf("%w: missing key %q", market.ErrSchema, key)
		}
		raw = v
	case index >= 0 && index < len(r.positional):
		raw = r.positional[index]
	default:
		return "", fmt.Errorf("%w: missing index %d", market.ErrSchema, index)
	}
	return Scalar(raw)
}

func (r Row) Float(key string, index int) (float64, error) {
	s, err := r.Value(key, index)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %v", market.ErrSchema, key, err)
	}
	return f, nil
}

func (r Row) Int(key string, index int) (int64, error) {
	s, err := r.Value(key, index)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: field %q: %v", market.ErrSchema, key, err)
	}
	return n, nil
}

// Millis reads a Unix-millisecond timestamp.
func (r Row) Millis(key string, index int) (time.Time, error) {
	ms, err := r.Int(key, index)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// Scalar accepts both "123.4" and 123.4.
func Scalar(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", market.ErrSchema, err)
		}
		return s, nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: empty value", market.ErrSchema)
	}
	return string(raw), nil
}

// RowTime extracts only the timestamp of a row. Cursors rely on it for rows that fail full decoding.
func RowTime(raw json.RawMessage, key string, index int) (time.Time, bool) {
	r, err := ParseRow(raw)
	if err != nil {
		return time.Time{}, false
	}
	ts, err := r.Millis(key, index)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
