package scope

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/syncmeta/internal/errs"
)

// Logical clock layout: YYYYMMDDHHMMSSfff as a decimal integer.
const (
	clockYear   = 1e13
	clockMonth  = 1e11
	clockDay    = 1e9
	clockHour   = 1e7
	clockMinute = 1e5
	clockSecond = 1e3
)

// maxExactFloat is the largest magnitude up to which float64 holds every
// integer.
const maxExactFloat = 1 << 53

// EncodeTimestamp formats t, in its own location, as a logical clock value.
// Backends produce the same encoding from their own clock in the session
// time zone.
func EncodeTimestamp(t time.Time) int64 {
	return int64(t.Year())*clockYear +
		int64(t.Month())*clockMonth +
		int64(t.Day())*clockDay +
		int64(t.Hour())*clockHour +
		int64(t.Minute())*clockMinute +
		int64(t.Second())*clockSecond +
		int64(t.Nanosecond()/int(time.Millisecond))
}

// ClockTime is the inverse of EncodeTimestamp. The result carries no zone
// information and is returned in UTC.
func ClockTime(ts int64) (time.Time, error) {
	if ts <= 0 {
		return time.Time{}, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("logical clock %d is not positive", ts))
	}
	t := time.Date(
		int(ts/clockYear),
		time.Month(ts/clockMonth%100),
		int(ts/clockDay%100),
		int(ts/clockHour%100),
		int(ts/clockMinute%100),
		int(ts/clockSecond%100),
		int(ts%1000)*int(time.Millisecond),
		time.UTC,
	)
	// time.Date normalizes out-of-range fields; a valid clock survives the
	// round trip unchanged.
	if EncodeTimestamp(t) != ts {
		return time.Time{}, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("logical clock %d is not a valid YYYYMMDDHHMMSSfff value", ts))
	}
	return t, nil
}

// DecodeTimestamp converts a scanned scope_timestamp value to int64. NULL
// decodes to zero. Drivers hand the column over as an integer, a float or
// decimal text depending on the backend. A float is accepted only when it
// holds an integer exactly; a 17-digit clock is beyond float64 precision.
func DecodeTimestamp(src any) (int64, error) {
	switch v := src.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("logical clock %d overflows int64", v))
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) || math.Abs(v) > maxExactFloat {
			return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("logical clock %v is not an exact integer", v))
		}
		return int64(v), nil
	case []byte:
		return parseClockText(string(v))
	case string:
		return parseClockText(v)
	default:
		return 0, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported logical clock type %T", src))
	}
}

func parseClockText(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	// NUMBER columns may come back as "20240131120000123.0".
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if strings.TrimRight(s[i+1:], "0") != "" {
			return 0, errs.New(errs.ErrKindInvalidInput, "logical clock is not an integer: "+s)
		}
		s = s[:i]
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errs.Wrap(errs.ErrKindInvalidInput, "logical clock is not an integer", err)
	}
	return n, nil
}

// clockValue scans a nullable scope_timestamp column.
type clockValue struct{ v int64 }

func (c *clockValue) Scan(src any) error {
	v, err := DecodeTimestamp(src)
	if err != nil {
		return err
	}
	c.v = v
	return nil
}

// timeLayouts are the textual forms a date/time column takes on drivers that
// do not return time.Time.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// timeValue scans a nullable scope_last_sync column. Values are stored as
// UTC wall-clock times, so the wall clock read back is reinterpreted as UTC
// whatever location the driver attached.
type timeValue struct{ t *time.Time }

func (tv *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		tv.t = nil
		return nil
	case time.Time:
		tv.t = utcWall(v)
		return nil
	case []byte:
		return tv.parse(string(v))
	case string:
		return tv.parse(v)
	default:
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported date/time type %T", src))
	}
}

func (tv *timeValue) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		tv.t = nil
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			tv.t = utcWall(t)
			return nil
		}
	}
	return errs.New(errs.ErrKindInvalidInput, "unrecognized date/time value: "+s)
}

func utcWall(t time.Time) *time.Time {
	u := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	return &u
}
