package value

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Of wraps a native Go value as a Value. *string, *int64 and *time.Time are
// treated as Optional: nil becomes an absent Optional, non-nil dereferences
// and wraps. Other pointer types are unsupported and return an error.
func Of(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case bool:
		return Bool(x), nil
	case time.Time:
		return Timestamp(x), nil
	case net.IP:
		return IP(x), nil
	case uuid.UUID:
		return UUID(x), nil
	case json.RawMessage:
		return JSON(x), nil
	case *string:
		if x == nil {
			return Optional(Value{}, false), nil
		}
		return Optional(String(*x), true), nil
	case *int64:
		if x == nil {
			return Optional(Value{}, false), nil
		}
		return Optional(Int(*x), true), nil
	case *time.Time:
		if x == nil {
			return Optional(Value{}, false), nil
		}
		return Optional(Timestamp(*x), true), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrNotBindable, v)
	}
}

// ToString converts v to a string, or returns an error naming the mismatch.
func ToString(v Value) (string, error) {
	v = v.unwrap()
	if v.kind != KindString {
		return "", fmt.Errorf("value is not a string (kind %d)", v.kind)
	}
	return v.str, nil
}

// ToInt64 converts v to an int64.
func ToInt64(v Value) (int64, error) {
	v = v.unwrap()
	if v.kind != KindInt {
		return 0, fmt.Errorf("value is not an int (kind %d)", v.kind)
	}
	return v.i64, nil
}

// ToTime converts v to a time.Time.
func ToTime(v Value) (time.Time, error) {
	v = v.unwrap()
	if v.kind != KindTimestamp && v.kind != KindTimestampNoZone {
		return time.Time{}, fmt.Errorf("value is not a timestamp (kind %d)", v.kind)
	}
	return v.t, nil
}
