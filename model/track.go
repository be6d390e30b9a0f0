package model

// PlaybackMode controls how the playlist cursor advances.
type PlaybackMode string

const (
	PlaybackNormal    PlaybackMode = "normal"
	PlaybackRepeatOne PlaybackMode = "repeat_one"
	PlaybackRepeatAll PlaybackMode = "repeat_all"
	PlaybackShuffle   PlaybackMode = "shuffle"
)

// ParsePlaybackMode maps a string to a PlaybackMode, defaulting to normal for
// anything unknown.
func ParsePlaybackMode(s string) PlaybackMode {
	switch PlaybackMode(s) {
	case PlaybackNormal, PlaybackRepeatOne, PlaybackRepeatAll, PlaybackShuffle:
		return PlaybackMode(s)
	default:
		return PlaybackNormal
	}
}

// Track represents one queued audio track. The JSON field names double as the
// persisted playlist document format, so they must stay stable.
type Track struct {
	ID        string                 `json:"id"`
	URL       string                 `json:"url"`
	Title     string                 `json:"title"`
	Artist    string                 `json:"artist"`
	Duration  int                    `json:"duration"` // seconds, 0 when unknown
	Platform  string                 `json:"platform"`
	Thumbnail string                 `json:"thumbnail,omitempty"`
	Filepath  string                 `json:"filepath,omitempty"` // local cache path, empty until first download
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	AddedAt   string                 `json:"added_at"`
	Order     int                    `json:"order"`
	Played    bool                   `json:"played"`
	PlayCount int                    `json:"play_count"`
}

// PlaylistStats aggregates playlist counters for the API.
type PlaylistStats struct {
	TotalTracks   int          `json:"total_tracks"`
	TotalDuration int          `json:"total_duration"`
	TotalPlays    int          `json:"total_plays"`
	CurrentIndex  int          `json:"current_index"`
	PlaybackMode  PlaybackMode `json:"playback_mode"`
	HasCurrent    bool         `json:"has_current"`
}
