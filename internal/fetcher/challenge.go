package fetcher

import "bytes"

// challengeMarkers are literal phrases served on anti-automation
// challenge pages in place of the requested content.
var challengeMarkers = []string{
	"Robot Check",
	"Enter the characters you see below",
	"To discuss automated access to Amazon data",
	"api-services-support@amazon.com",
	"validateCaptcha",
}

// IsChallengePage reports whether a response body is an
// anti-automation challenge rather than the requested content.
func IsChallengePage(body []byte) bool {
	for _, marker := range challengeMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return true
		}
	}
	return false
}
