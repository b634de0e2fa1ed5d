package models

// Platform identifiers for every network a pipeline can target.
const (
	PlatformFacebook  = "facebook"
	PlatformLinkedIn  = "linkedin"
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
)

// PlatformLimit holds per-platform content constraints used when prompting
// the AI provider.
type PlatformLimit struct {
	Text     int
	Hashtags int
}

// PlatformLimits are the published character/hashtag caps per platform.
var PlatformLimits = map[string]PlatformLimit{
	PlatformFacebook:  {Text: 63206, Hashtags: 30},
	PlatformLinkedIn:  {Text: 3000, Hashtags: 30},
	PlatformTwitter:   {Text: 280, Hashtags: 5},
	PlatformInstagram: {Text: 2200, Hashtags: 30},
}

// IsKnownPlatform reports whether p is one of the supported identifiers.
func IsKnownPlatform(p string) bool {
	_, ok := PlatformLimits[p]
	return ok
}
