package scorm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	reTimespan12 = regexp.MustCompile(`^(\d{2,4}):([0-5]\d):([0-5]\d)(\.\d{1,2})?$`)
	reTime12     = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d:[0-5]\d(\.\d{1,2})?$`)
	reDecimal    = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
	reDuration   = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d{1,2})?)S)?)?$`)
	reTimestamp  = regexp.MustCompile(`^\d{4}(-(0[1-9]|1[0-2])(-(0[1-9]|[12]\d|3[01])(T([01]\d|2[0-3])(:[0-5]\d(:[0-5]\d(\.\d{1,2})?)?)?(Z|[+-]([01]\d|2[0-3])(:?[0-5]\d)?)?)?)?)?$`)
	reIdent12    = regexp.MustCompile(`^[^\s]+$`)
)

// ParseTimespan12 parses a SCORM 1.2 CMITimespan (HHHH:MM:SS.SS) into seconds.
func ParseTimespan12(v string) (float64, error) {
	m := reTimespan12.FindStringSubmatch(v)
	if m == nil {
		return 0, fmt.Errorf("invalid CMITimespan %q", v)
	}
	h, _ := strconv.Atoi(m[1])
	mi, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	out := float64(h*3600 + mi*60 + s)
	if m[4] != "" {
		frac, _ := strconv.ParseFloat("0"+m[4], 64)
		out += frac
	}
	return out, nil
}

// FormatTimespan12 renders seconds as HHHH:MM:SS.SS.
func FormatTimespan12(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	s := cs / 100
	cs -= s * 100
	if h > 9999 {
		h = 9999
	}
	return fmt.Sprintf("%04d:%02d:%02d.%02d", h, m, s, cs)
}

// ParseDuration parses an ISO-8601 duration as used by SCORM 2004 (timeinterval (second,10,2)).
// Years count as 365 days and months as 30 days.
func ParseDuration(v string) (float64, error) {
	m := reDuration.FindStringSubmatch(v)
	if m == nil || v == "P" || strings.HasSuffix(v, "T") {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	var total float64
	units := []float64{365 * 86400, 30 * 86400, 86400, 3600, 60}
	for i, mult := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		total += n * mult
	}
	if m[6] != "" {
		s, err := strconv.ParseFloat(m[6], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		total += s
	}
	return total, nil
}

// FormatDuration renders seconds as PT#H#M#S with at most two fractional digits.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	cs -= h * 360000
	m := cs / 6000
	cs -= m * 6000
	sec := strconv.FormatFloat(float64(cs)/100, 'f', -1, 64)
	return fmt.Sprintf("PT%dH%dM%sS", h, m, sec)
}

func parseDecimal(v string) (float64, bool) {
	if !reDecimal.MatchString(v) {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseInteger(v string) (int, bool) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func formatDecimal(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
