package rfc9111

import (
	"net/http"
	"time"
)

// §  4.2.3.  Calculating Age
// §
// §     The Age header field is used to convey an estimated age of the
// §     response message when obtained from a cache.  The Age field value is
// §     the cache's estimate of the number of seconds since the origin server
// §     generated or validated the response.
// §
// §     Age calculation uses the following data:
// §
// §     "age_value"
// §        The term "age_value" denotes the value of the Age header field
// §        (Section 5.1), in a form appropriate for arithmetic operation; or
// §        0, if not available.
// §
// §     "date_value"
// §        The term "date_value" denotes the value of the Date header field,
// §        in a form appropriate for arithmetic operations.
// §
// §     "request_time"
// §        The value of the clock at the time of the request that resulted in
// §        the stored response.
// §
// §     "response_time"
// §        The value of the clock at the time the response was received.

// InitialAge returns the corrected_initial_age of a response that was
// requested at requestTime and received at responseTime.
func InitialAge(header http.Header, requestTime, responseTime time.Time) time.Duration {
	ageValue, _ := Age(header)
	dateValue := responseTime
	if d, err := HttpDate(header.Get("Date")); err == nil {
		dateValue = d
	}
	// §       apparent_age = max(0, response_time - date_value);
	apparentAge := durationMax(0, responseTime.Sub(dateValue))
	// §       response_delay = response_time - request_time;
	responseDelay := durationMax(0, responseTime.Sub(requestTime))
	// §       corrected_age_value = age_value + response_delay;
	correctedAgeValue := ageValue + responseDelay
	// §       corrected_initial_age = max(apparent_age, corrected_age_value);
	return durationMax(apparentAge, correctedAgeValue)
}

// §     The current_age of a stored response can then be calculated by adding
// §     the time (in seconds) since the stored response was last validated by
// §     the origin server to the corrected_initial_age.
// §
// §       resident_time = now - response_time;
// §       current_age = corrected_initial_age + resident_time;

// CurrentAge is InitialAge plus the time passed since responseTime.
func CurrentAge(header http.Header, requestTime, responseTime, now time.Time) time.Duration {
	return InitialAge(header, requestTime, responseTime) + durationMax(0, now.Sub(responseTime))
}

func durationMax(d1, d2 time.Duration) time.Duration {
	if d1 > d2 {
		return d1
	}
	return d2
}
