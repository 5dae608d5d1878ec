package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToInt64 converts a scanned or decoded value to int64.
// Supports the integer kinds, float32/64, json.Number, []byte and numeric strings.
func ToInt64(v interface{}) (int64, error) {
	switch i := v.(type) {
	case int64:
		return i, nil
	case int:
		return int64(i), nil
	case int32:
		return int64(i), nil
	case int16:
		return int64(i), nil
	case int8:
		return int64(i), nil
	case uint:
		return int64(i), nil
	case uint64:
		return int64(i), nil
	case uint32:
		return int64(i), nil
	case uint16:
		return int64(i), nil
	case uint8:
		return int64(i), nil
	case float64:
		return int64(i), nil
	case float32:
		return int64(i), nil
	case json.Number:
		return i.Int64()
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(i)), 10, 64)
	case string:
		return strconv.ParseInt(strings.TrimSpace(i), 10, 64)
	case nil:
		return 0, fmt.Errorf("value is null")
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}

// ToString converts a scanned or decoded value to a string. NULL becomes "".
func ToString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// timestampLayouts are the text forms drivers use for DATETIME/TIMESTAMP columns.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02",
}

// ToTime converts a scanned or decoded value to a UTC timestamp. Values
// without zone information are read as UTC wall clock; zoned values are
// shifted to UTC. Integers and floats are epoch milliseconds, the ArcGIS
// date encoding. NULL yields nil.
func ToTime(v interface{}) (*time.Time, error) {
	var t time.Time

	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = x
	case []byte:
		return ToTime(string(x))
	case string:
		parsed, err := parseTimestamp(x)
		if err != nil {
			return nil, err
		}
		t = parsed
	case json.Number:
		ms, err := x.Int64()
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return nil, fmt.Errorf("invalid epoch milliseconds %q", x.String())
			}
			ms = int64(f)
		}
		t = time.UnixMilli(ms).UTC()
	default:
		ms, err := ToInt64(v)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %T to time: %w", v, err)
		}
		t = time.UnixMilli(ms).UTC()
	}

	utc := t.UTC()
	return &utc, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
