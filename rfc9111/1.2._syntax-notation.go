package rfc9111

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// §  1.2.2. Delta Seconds
// §
// §  The delta-seconds rule specifies a non-negative integer, representing time
// §  in seconds.
// §
// §    delta-seconds  = 1*DIGIT
// §
// §  A recipient parsing a delta-seconds value and converting it to binary form
// §  ought to use an arithmetic type of at least 31 bits of non-negative integer
// §  range. If a cache receives a delta-seconds value greater than the greatest
// §  integer it can represent, or if any of its subsequent calculations overflows,
// §  the cache MUST consider the value to be 2147483648 (2^31) or the greatest
// §  positive integer it can conveniently represent.
func deltaSeconds(secondsStr string) time.Duration {
	// parameters after the value are ignored, e.g. "7200;foo=bar"
	if i := strings.IndexAny(secondsStr, "; "); i != -1 {
		secondsStr = secondsStr[:i]
	}
	seconds, err := strconv.ParseUint(secondsStr, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return time.Second * (1 << 31)
		}
		return 0
	}
	if seconds > 1<<31 {
		seconds = 1 << 31
	}
	return time.Second * time.Duration(seconds)
}

func toDeltaSeconds(duration time.Duration) string {
	return fmt.Sprintf("%.f", duration.Seconds())
}

// This section is from the HTTP specification (RFC9110), not the cache specification
//
// §  5.6.7.  Date/Time Formats
// §
// §     A recipient that parses a timestamp value in an HTTP field MUST
// §     accept all three HTTP-date formats.

// HttpDate parses an HTTP-date in any of the three allowed formats.
func HttpDate(dateStr string) (time.Time, error) {
	date, err := imfDate(dateStr)
	if err == nil {
		return date, nil
	}
	// try to parse as obsolete date
	if date, obsErr := obsDate(dateStr); obsErr == nil {
		return date, nil
	}
	// return original error if unsuccessful
	return date, err
}

const imfDateLayout = "Mon, 02 Jan 2006 15:04:05 MST"

func imfDate(dateStr string) (time.Time, error) {
	date, err := time.Parse(imfDateLayout, normalizeDateStr(dateStr))
	if err != nil {
		return date, err
	}
	if date.Location().String() != "GMT" && date.Location() != time.UTC {
		return date, fmt.Errorf("Date %s is not in GMT time, but %s", date, date.Location())
	}
	return date, nil
}

func obsDate(dateStr string) (time.Time, error) {
	str := normalizeDateStr(dateStr)
	if date, err := time.Parse(time.RFC850, str); err == nil {
		return date, err
	}
	return time.Parse(time.ANSIC, str)
}

// normalizeDateStr upper-cases the zone so "gmt" and "GMT" parse alike.
func normalizeDateStr(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	if i := strings.LastIndex(dateStr, " "); i != -1 {
		return dateStr[:i+1] + strings.ToUpper(dateStr[i+1:])
	}
	return dateStr
}
