package extract

import (
	"regexp"

	"archiver/internal/engine"
)

// tiktokIdentity is the generic engine extractor the TikTok dropin shadows.
const tiktokIdentity = "TikTok"

var tiktokPatterns = []*regexp.Regexp{
	// https://www.tiktok.com/@user/video/123 and /photo/123, optional query
	regexp.MustCompile(`^https?://(?:(?:www|m)\.)?tiktok\.com/@[\w.-]+/(?:video|photo)/\d+/?(?:[?#].*)?$`),
	// short links
	regexp.MustCompile(`^https?://(?:vt|vm)\.tiktok\.com/[\w-]+/?(?:[?#].*)?$`),
	// redirect collector
	regexp.MustCompile(`^https?://(?:www\.)?tiktok\.com/t/[\w-]+/?(?:[?#].*)?$`),
}

// Suitable reports whether this dropin should take url away from the engine
// extractor id. Both the identity and the URL shape must match.
func (t *TikTok) Suitable(url string, id engine.Identity) bool {
	if id.Name != tiktokIdentity {
		return false
	}
	if id.Suitable(url) {
		return true
	}
	for _, re := range tiktokPatterns {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}
