package fetcher

import (
	"net/http"
	"strings"
)

// interstitialMarkers only appear on the challenge page itself.
var interstitialMarkers = []string{
	"<title>just a moment...</title>",
	"cf_chl_opt",
	"challenge-error-text",
}

// blockMarkers also match the challenge scripts Cloudflare injects into
// ordinary pages, so they are only trusted on 403/503 answers.
var blockMarkers = append([]string{
	"/cdn-cgi/challenge-platform/",
	"cf-chl-",
}, interstitialMarkers...)

// IsChallengePage reports whether a successfully served body is a
// bot-detection interstitial rather than the requested page.
func IsChallengePage(body string) bool {
	return containsAny(body, interstitialMarkers)
}

// isBlockedPage reports whether an error body carries any challenge marker.
func isBlockedPage(body string) bool {
	return containsAny(body, blockMarkers)
}

func containsAny(body string, markers []string) bool {
	lower := strings.ToLower(body)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func isChallengeResponse(h http.Header) bool {
	return h.Get("Cf-Mitigated") == "challenge" ||
		strings.EqualFold(h.Get("Server"), "cloudflare")
}
