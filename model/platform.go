package model

import (
	"net/url"
	"strings"
)

// Known source platforms. Every URL classifies into exactly one of these;
// unknown hosts fall into PlatformOther.
const (
	PlatformYouTube    = "youtube"
	PlatformVimeo      = "vimeo"
	PlatformFacebook   = "facebook"
	PlatformSoundCloud = "soundcloud"
	PlatformSpotify    = "spotify"
	PlatformTwitch     = "twitch"
	PlatformOther      = "other"
)

// DetectPlatform classifies a source URL by its host component.
func DetectPlatform(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return PlatformOther
	}
	host := strings.ToLower(u.Hostname())

	switch {
	case strings.Contains(host, "youtube.com") || strings.Contains(host, "youtu.be"):
		return PlatformYouTube
	case strings.Contains(host, "vimeo.com"):
		return PlatformVimeo
	case strings.Contains(host, "facebook.com") || strings.Contains(host, "fb.watch"):
		return PlatformFacebook
	case strings.Contains(host, "soundcloud.com"):
		return PlatformSoundCloud
	case strings.Contains(host, "spotify.com"):
		return PlatformSpotify
	case strings.Contains(host, "twitch.tv"):
		return PlatformTwitch
	default:
		return PlatformOther
	}
}
