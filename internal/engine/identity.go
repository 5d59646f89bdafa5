// Package engine wraps the generic downloader (yt-dlp) that handles every URL
// no dropin claims, and exposes the ordered table of site extractor
// identities the dispatcher walks.
package engine

import "regexp"

// Identity names one site extractor of the generic engine together with the
// baseline pattern the engine itself uses to claim URLs.
type Identity struct {
	Name    string
	Pattern *regexp.Regexp
}

// Suitable reports whether the engine's own pattern accepts url.
func (id Identity) Suitable(url string) bool {
	return id.Pattern != nil && id.Pattern.MatchString(url)
}

var identities = []Identity{
	{
		Name:    "TikTok",
		Pattern: regexp.MustCompile(`^https?://www\.tiktok\.com/(?:embed|@[\w.-]+?/video)/\d+`),
	},
	{
		Name:    "YouTube",
		Pattern: regexp.MustCompile(`^https?://(?:(?:www|m)\.)?(?:youtube\.com/(?:watch\?v=|shorts/)|youtu\.be/)[\w-]{11}`),
	},
	{
		Name:    "Twitter",
		Pattern: regexp.MustCompile(`^https?://(?:(?:www|mobile)\.)?(?:twitter|x)\.com/\w+/status/\d+`),
	},
	{
		Name:    "Instagram",
		Pattern: regexp.MustCompile(`^https?://(?:www\.)?instagram\.com/(?:p|reel|tv)/[\w-]+`),
	},
	{
		Name:    "Generic",
		Pattern: regexp.MustCompile(`^https?://`),
	},
}

// Identities returns the engine's extractor identities in registration order.
func Identities() []Identity {
	out := make([]Identity, len(identities))
	copy(out, identities)
	return out
}
