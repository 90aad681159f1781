package helpers

import "strings"

// markers seen on slider-captcha and "unusual traffic" interstitials that
// marketplaces serve with a 200 status
var blockMarkers = []string{
	"/_____tmd_____/punish",
	"nc_1_n1z",
	"slide to verify",
	"please slide to verify",
	"unusual traffic from your computer",
	"captcha-delivery.com",
	"sorry, we have detected unusual traffic",
	"access denied</title>",
}

// DetectBlock reports whether html looks like an anti-bot page rather than
// a product page. Pages carrying og:title are never treated as blocked.
func DetectBlock(html string) bool {
	if html == "" {
		return false
	}
	lower := strings.ToLower(html)
	if strings.Contains(lower, `property="og:title"`) {
		return false
	}
	for _, m := range blockMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
