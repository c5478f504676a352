package schema

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a backend time value decoded leniently. It accepts RFC 3339,
// date-times without a zone (read as local time), epoch seconds or
// milliseconds as numbers or strings, and empty or null. Anything else
// decodes to the zero time so one odd value never fails a whole job list.
type Timestamp struct {
	time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
}

// Above this magnitude an epoch value is taken to be in milliseconds.
const epochMillisThreshold = 1e11

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '"' {
		if f, err := strconv.ParseFloat(string(data), 64); err == nil {
			t.Time = fromEpoch(f)
		}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	t.Time = parseTimestamp(strings.TrimSpace(s))
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.Time.MarshalJSON()
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if v, err := time.Parse(time.RFC3339, s); err == nil {
		return v
	}
	for _, layout := range zonelessLayouts {
		if v, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return v
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromEpoch(f)
	}
	return time.Time{}
}

func fromEpoch(f float64) time.Time {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}
	}
	if math.Abs(f) >= epochMillisThreshold {
		return time.UnixMilli(int64(f))
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}
