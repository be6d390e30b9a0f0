package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echofm/model"
)

func TestMapInfoFiltersToAudioOnlyFormats(t *testing.T) {
	info := ytdlpInfo{
		ID:       "vid1",
		Title:    "Song",
		Uploader: "Channel",
		Duration: 245.7,
		Formats: []ytdlpFormat{
			{FormatID: "v1", Ext: "mp4", ACodec: "aac", VCodec: "avc1", ABR: 128},
			{FormatID: "a1", Ext: "m4a", ACodec: "aac", VCodec: "none", ABR: 128},
			{FormatID: "a2", Ext: "webm", ACodec: "opus", VCodec: "none", ABR: 160},
			{FormatID: "mute", Ext: "mp4", ACodec: "none", VCodec: "avc1"},
		},
	}

	track := mapInfo(info, "https://www.youtube.com/watch?v=vid1")

	require.Len(t, track.Formats, 2)
	// Audio-only formats, best bitrate first.
	assert.Equal(t, "a2", track.Formats[0].FormatID)
	assert.Equal(t, "a1", track.Formats[1].FormatID)
	assert.Equal(t, 160, track.Bitrate)
	assert.Equal(t, 245, track.Duration)
	assert.Equal(t, model.PlatformYouTube, track.Platform)
	assert.Equal(t, "available", track.Status)
}

func TestMapInfoArtistFallsBackToUploader(t *testing.T) {
	track := mapInfo(ytdlpInfo{Title: "Song", Uploader: "Channel"}, "u")
	assert.Equal(t, "Channel", track.Artist)

	track = mapInfo(ytdlpInfo{Title: "Song", Artist: "Band", Uploader: "Channel"}, "u")
	assert.Equal(t, "Band", track.Artist)
}

func TestMapInfoDefaults(t *testing.T) {
	track := mapInfo(ytdlpInfo{}, "https://example.com/x")

	assert.Equal(t, "Untitled", track.Title)
	assert.Equal(t, "Unknown Artist", track.Artist)
	assert.Equal(t, model.PlatformOther, track.Platform)
	// No format data at all still yields a plausible bitrate.
	assert.Equal(t, 192, track.Bitrate)
	assert.NotEmpty(t, track.ExtractedAt)
}
