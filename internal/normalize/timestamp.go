package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Layouts tried in order for string timestamps. Zone-less layouts are read
// as UTC; fractional seconds are accepted after the seconds field.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"02/01/2006 15:04:05",
	"2006-01-02",
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
// 1e12 seconds is roughly year 33658; 1e12 ms is September 2001.
const epochMillisThreshold = 1e12

func parseTime(r gjson.Result) (time.Time, bool) {
	switch r.Type {
	case gjson.Number:
		return fromEpoch(r.Num), true
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return fromEpoch(f), true
		}
	}
	return time.Time{}, false
}

func fromEpoch(v float64) time.Time {
	if v > epochMillisThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// ISO formats t the way every canonical timestamp is stored.
func ISO(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
