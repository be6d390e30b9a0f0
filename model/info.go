package model

// AudioFormat describes one audio-only stream offered by a source.
type AudioFormat struct {
	FormatID   string  `json:"format_id"`
	Ext        string  `json:"ext"`
	ABR        float64 `json:"abr"` // audio bitrate, kbit/s
	ASR        int     `json:"asr"` // audio sample rate, Hz
	Filesize   int64   `json:"filesize,omitempty"`
	FormatNote string  `json:"format_note,omitempty"`
}

// TrackInfo is the metadata-only view of a single remote source, obtained
// without downloading any audio.
type TrackInfo struct {
	ID          string        `json:"id,omitempty"`
	URL         string        `json:"url"`
	Title       string        `json:"title"`
	Artist      string        `json:"artist"`
	Album       string        `json:"album,omitempty"`
	Duration    int           `json:"duration"`
	Thumbnail   string        `json:"thumbnail,omitempty"`
	Platform    string        `json:"platform"`
	WebpageURL  string        `json:"webpage_url,omitempty"`
	Formats     []AudioFormat `json:"formats,omitempty"`
	Status      string        `json:"status"`
	ExtractedAt string        `json:"extracted_at"`
	Bitrate     int           `json:"-"` // best available bitrate, for the cache sidecar
}

// SourceList is returned when a URL resolves to multiple items, e.g. a remote
// playlist or channel.
type SourceList struct {
	Title   string      `json:"title"`
	Entries []TrackInfo `json:"entries"`
	Count   int         `json:"count"`
}
