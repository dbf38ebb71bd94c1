package retry

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// rateLimitMarkers identify throttling in provider error text. They are
// checked before quota markers because some providers mention quota in 429s.
var rateLimitMarkers = []string{
	"429",
	"resource_exhausted",
	"resource exhausted",
	"rate limit",
	"rate_limit",
	"ratelimit",
	"too many requests",
	"overloaded",
	"529",
}

var quotaMarkers = []string{
	"insufficient_quota",
	"quota",
	"billing",
	"credit balance",
}

// Classify maps a failed call's error text onto an ErrorKind.
// This is the only place provider error strings are inspected.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindTransient
	}
	lower := strings.ToLower(err.Error())

	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return KindRateLimited
		}
	}
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return KindQuotaExceeded
		}
	}
	return KindTransient
}

// retryDelayPattern matches a provider-suggested delay in seconds, e.g.
//
//	"retryDelay": "37s"
//	retry_delay { seconds: 37 }
//	retry-after: 37
var retryDelayPattern = regexp.MustCompile(`(?i)retry[_\-\s]?(?:delay|after)["'\s:=]*(?:\{\s*seconds["'\s:=]*)?(\d+(?:\.\d+)?)`)

// SuggestedDelay extracts a retry delay hinted at in the error text.
func SuggestedDelay(err error) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	m := retryDelayPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	secs, perr := strconv.ParseFloat(m[1], 64)
	if perr != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
