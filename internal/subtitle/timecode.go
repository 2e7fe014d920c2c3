package subtitle

import (
	"fmt"
	"math"
	"strings"
)

// per-format timestamp notation
type timestampGrammar struct {
	fractionSep    byte
	fractionDigits int
	minHourDigits  int
	allowNoHours   bool
}

func grammarFor(kind Format) (timestampGrammar, error) {
	switch kind {
	case FormatSRT:
		// HH:MM:SS,mmm
		return timestampGrammar{',', 3, 2, false}, nil
	case FormatVTT:
		// HH:MM:SS.mmm, or MM:SS.mmm
		return timestampGrammar{'.', 3, 2, true}, nil
	case FormatASS:
		// H:MM:SS.cc
		return timestampGrammar{'.', 2, 1, false}, nil
	default:
		return timestampGrammar{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}
}

// ParseTimestamp converts a timestamp in the notation of kind into
// seconds. Sub-second precision is kept at whole milliseconds.
func ParseTimestamp(raw string, kind Format) (float64, error) {
	ms, err := parseMillis(raw, kind)
	if err != nil {
		return 0, err
	}
	return millisToSeconds(ms), nil
}

// FormatTimestamp renders seconds in the notation of kind. Fields are
// zero padded and the fraction is truncated to the format's digits.
// Negative and NaN inputs render as zero.
func FormatTimestamp(seconds float64, kind Format) string {
	ms := secondsToMillis(seconds)

	hours := ms / 3_600_000
	minutes := (ms / 60_000) % 60
	secs := (ms / 1000) % 60
	millis := ms % 1000

	switch kind {
	case FormatASS:
		return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, millis/10)
	case FormatVTT:
		return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
	default:
		return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
	}
}

func parseMillis(raw string, kind Format) (int64, error) {
	g, err := grammarFor(kind)
	if err != nil {
		return 0, err
	}

	malformed := func() error {
		return fmt.Errorf("%w: %q is not a valid %s timestamp", ErrMalformedTimestamp, raw, kind)
	}

	s := strings.TrimSpace(raw)
	sep := strings.LastIndexByte(s, g.fractionSep)
	if sep < 0 {
		return 0, malformed()
	}

	fraction, ok := parseDigits(s[sep+1:], g.fractionDigits, g.fractionDigits)
	if !ok {
		return 0, malformed()
	}
	// centiseconds
	for d := g.fractionDigits; d < 3; d++ {
		fraction *= 10
	}

	var hours, minutes, seconds int64
	clock := strings.Split(s[:sep], ":")
	switch {
	case len(clock) == 3:
		if hours, ok = parseDigits(clock[0], g.minHourDigits, 0); !ok {
			return 0, malformed()
		}
		clock = clock[1:]
	case len(clock) == 2 && g.allowNoHours:
	default:
		return 0, malformed()
	}

	if minutes, ok = parseDigits(clock[0], 2, 2); !ok || minutes > 59 {
		return 0, malformed()
	}
	if seconds, ok = parseDigits(clock[1], 2, 2); !ok || seconds > 59 {
		return 0, malformed()
	}

	return hours*3_600_000 + minutes*60_000 + seconds*1000 + fraction, nil
}

// decimal digits only, length within [lo, hi]; hi 0 means unbounded
func parseDigits(s string, lo, hi int) (int64, bool) {
	if len(s) < lo || (hi > 0 && len(s) > hi) || len(s) > 12 {
		return 0, false
	}
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}

func millisToSeconds(ms int64) float64 {
	return float64(ms) / 1000
}

// truncates toward zero; the epsilon absorbs binary representation error
// so 1.001 stays 1001ms
func secondsToMillis(seconds float64) int64 {
	if math.IsNaN(seconds) || seconds <= 0 {
		return 0
	}
	if seconds > math.MaxInt64/1000 {
		return math.MaxInt64
	}
	return int64(math.Floor(seconds*1000 + 1e-6))
}
