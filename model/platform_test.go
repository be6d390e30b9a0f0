package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", PlatformYouTube},
		{"https://youtu.be/dQw4w9WgXcQ", PlatformYouTube},
		{"https://music.youtube.com/watch?v=abc", PlatformYouTube},
		{"https://vimeo.com/12345", PlatformVimeo},
		{"https://www.facebook.com/watch/?v=1", PlatformFacebook},
		{"https://fb.watch/abcdef/", PlatformFacebook},
		{"https://soundcloud.com/artist/track", PlatformSoundCloud},
		{"https://open.spotify.com/track/xyz", PlatformSpotify},
		{"https://www.twitch.tv/videos/999", PlatformTwitch},
		{"https://example.com/audio.mp3", PlatformOther},
		{"not a url", PlatformOther},
		{"", PlatformOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectPlatform(tt.url), "url %q", tt.url)
	}
}

func TestParsePlaybackMode(t *testing.T) {
	assert.Equal(t, PlaybackShuffle, ParsePlaybackMode("shuffle"))
	assert.Equal(t, PlaybackRepeatOne, ParsePlaybackMode("repeat_one"))
	assert.Equal(t, PlaybackRepeatAll, ParsePlaybackMode("repeat_all"))
	assert.Equal(t, PlaybackNormal, ParsePlaybackMode("normal"))
	assert.Equal(t, PlaybackNormal, ParsePlaybackMode("definitely-not-a-mode"))
	assert.Equal(t, PlaybackNormal, ParsePlaybackMode(""))
}
