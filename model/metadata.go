package model

import "encoding/json"

// CacheMetadata is the sidecar document stored next to every cached audio
// file. It carries the descriptive fields that cannot be recovered from the
// audio bytes alone.
type CacheMetadata struct {
	ID           string `json:"id,omitempty"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Album        string `json:"album"`
	Duration     int    `json:"duration"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	Platform     string `json:"platform"`
	URL          string `json:"url"`
	WebpageURL   string `json:"webpage_url,omitempty"`
	Filepath     string `json:"filepath"`
	Filename     string `json:"filename"`
	Filesize     int64  `json:"filesize"`
	Bitrate      int    `json:"bitrate"`
	DownloadDate string `json:"download_date"`
	Status       string `json:"status"`
}

// AsMap converts the metadata into the free-form mapping carried on a Track.
func (m *CacheMetadata) AsMap() map[string]interface{} {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}
