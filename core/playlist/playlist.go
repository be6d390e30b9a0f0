// Package playlist owns the ordered track queue, its cursor and the playback
// mode state machine. The whole state is one shared mutable structure: every
// operation takes the engine lock, and every mutation persists the full state
// with an atomic write before returning.
package playlist

import (
	"bytes"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"echofm/logger"
	"echofm/model"
)

// TrackData carries the caller-supplied fields for a new track. Everything
// else (id, added_at, order, play counters) is assigned by the engine.
type TrackData struct {
	URL       string
	Title     string
	Artist    string
	Duration  int
	Platform  string
	Thumbnail string
	Filepath  string
	Metadata  map[string]interface{}
}

// persistedState is the on-disk playlist document.
type persistedState struct {
	Tracks       []*model.Track     `json:"tracks"`
	CurrentIndex int                `json:"current_index"`
	PlaybackMode model.PlaybackMode `json:"playback_mode"`
	ShuffleOrder []int              `json:"shuffle_order"`
	UpdatedAt    string             `json:"updated_at"`
}

// Playlist is the engine. Construct it with Load and share the one instance
// between request handlers; it is safe for concurrent use.
type Playlist struct {
	mu   sync.RWMutex
	path string

	tracks       []*model.Track
	currentIndex int
	mode         model.PlaybackMode
	shuffleOrder []int
	// Structural mutations leave shuffleOrder referencing old positions.
	// Instead of chasing every index shift we mark it stale and regenerate
	// on the next shuffle advance.
	shuffleStale bool
}

// Load reads the persisted playlist from path, or starts empty when no file
// exists. A file that fails to parse is quarantined with a timestamp suffix
// and the engine starts empty; startup never fails on playlist state.
func Load(path string) *Playlist {
	p := &Playlist{
		path:         path,
		currentIndex: -1,
		mode:         model.PlaybackNormal,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read playlist state", logger.ErrorField(err))
		}
		return p
	}

	var state persistedState
	if err := json.Unmarshal(raw, &state); err != nil {
		backup := fmt.Sprintf("%s.bak.%d", path, time.Now().Unix())
		if renameErr := os.Rename(path, backup); renameErr != nil {
			logger.Error("failed to quarantine corrupt playlist state",
				logger.ErrorField(renameErr))
		} else {
			logger.Warn("corrupt playlist state quarantined",
				logger.String("backup", backup),
				logger.ErrorField(err))
		}
		return p
	}

	p.tracks = state.Tracks
	p.currentIndex = state.CurrentIndex
	p.mode = model.ParsePlaybackMode(string(state.PlaybackMode))
	p.shuffleOrder = state.ShuffleOrder

	// Re-derive the order ranks; the index in the sequence is authoritative.
	for i, t := range p.tracks {
		t.Order = i
	}
	if p.currentIndex < -1 || p.currentIndex >= len(p.tracks) {
		p.currentIndex = -1
	}
	return p
}

// NewTrackID derives a track id from the source URL and the insertion time.
// Best-effort unique, not a security token.
func NewTrackID(url string, at time.Time) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s", url, at.Format(time.RFC3339Nano))))
	return fmt.Sprintf("%x", sum)[:12]
}

// AddTrack inserts a new track. position inserts at that index when it is
// within [0, len); any other value appends. The new track is returned.
func (p *Playlist) AddTrack(data TrackData, position int) *model.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	track := &model.Track{
		ID:        NewTrackID(data.URL, now),
		URL:       data.URL,
		Title:     orDefault(data.Title, "Untitled"),
		Artist:    orDefault(data.Artist, "Unknown Artist"),
		Duration:  data.Duration,
		Platform:  orDefault(data.Platform, model.PlatformOther),
		Thumbnail: data.Thumbnail,
		Filepath:  data.Filepath,
		Metadata:  data.Metadata,
		AddedAt:   now.Format(time.RFC3339),
	}

	if position >= 0 && position < len(p.tracks) {
		p.tracks = append(p.tracks, nil)
		copy(p.tracks[position+1:], p.tracks[position:])
		p.tracks[position] = track
		if p.currentIndex >= position {
			p.currentIndex++
		}
	} else {
		p.tracks = append(p.tracks, track)
	}

	p.renumberLocked()
	p.shuffleStale = true
	p.saveLocked()
	out := *track
	return &out
}

// AddMultiple appends several tracks in order, used for multi-entry sources.
func (p *Playlist) AddMultiple(items []TrackData, position int) []*model.Track {
	added := make([]*model.Track, 0, len(items))
	for _, item := range items {
		added = append(added, p.AddTrack(item, position))
		if position >= 0 {
			position++
		}
	}
	return added
}

// RemoveTrack deletes the track with the given id. Reports whether it was
// found.
func (p *Playlist) RemoveTrack(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOfLocked(id)
	if i < 0 {
		return false
	}

	p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)

	if len(p.tracks) == 0 {
		p.currentIndex = -1
	} else if p.currentIndex >= i {
		// Stay in the same neighborhood rather than tracking the exact
		// pointer; clamped so the cursor stays valid.
		p.currentIndex = max(0, p.currentIndex-1)
	}

	p.renumberLocked()
	p.shuffleStale = true
	p.saveLocked()
	return true
}

// MoveTrack moves the track with the given id to newPosition. Reports false
// when the id is unknown or the position is out of range.
func (p *Playlist) MoveTrack(id string, newPosition int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if newPosition < 0 || newPosition >= len(p.tracks) {
		return false
	}
	i := p.indexOfLocked(id)
	if i < 0 {
		return false
	}
	if i == newPosition {
		return true
	}

	track := p.tracks[i]
	p.tracks = append(p.tracks[:i], p.tracks[i+1:]...)
	p.tracks = append(p.tracks, nil)
	copy(p.tracks[newPosition+1:], p.tracks[newPosition:])
	p.tracks[newPosition] = track

	switch {
	case p.currentIndex == i:
		p.currentIndex = newPosition
	case i < p.currentIndex && p.currentIndex <= newPosition:
		p.currentIndex--
	case newPosition <= p.currentIndex && p.currentIndex < i:
		p.currentIndex++
	}

	p.renumberLocked()
	p.shuffleStale = true
	p.saveLocked()
	return true
}

// GetTrack returns a copy of the track with the given id, or nil.
func (p *Playlist) GetTrack(id string) *model.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if i := p.indexOfLocked(id); i >= 0 {
		out := *p.tracks[i]
		return &out
	}
	return nil
}

// GetCurrentTrack returns a copy of the current track, or nil when the cursor
// is unset.
func (p *Playlist) GetCurrentTrack() *model.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentTrackLocked()
}

func (p *Playlist) currentTrackLocked() *model.Track {
	if p.currentIndex >= 0 && p.currentIndex < len(p.tracks) {
		out := *p.tracks[p.currentIndex]
		return &out
	}
	return nil
}

// Tracks returns a copy of the track sequence.
func (p *Playlist) Tracks() []*model.Track {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]*model.Track, len(p.tracks))
	for i, t := range p.tracks {
		cp := *t
		out[i] = &cp
	}
	return out
}

// NextTrack advances the cursor according to the playback mode and returns
// the new current track. An unset cursor counts as "before the first track",
// so the first advance selects index 0. Returns nil at the end of the queue
// in normal mode.
func (p *Playlist) NextTrack() *model.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.tracks) == 0 {
		return nil
	}

	if p.mode == model.PlaybackShuffle {
		return p.advanceShuffleLocked(1)
	}

	if p.currentIndex < len(p.tracks)-1 {
		p.currentIndex++
	} else if p.mode == model.PlaybackRepeatAll {
		p.currentIndex = 0
	} else {
		return nil
	}

	return p.markPlayedAndSaveLocked()
}

// PreviousTrack retreats the cursor. In repeat-all mode it wraps from the
// first track to the last; with an unset cursor it declines.
func (p *Playlist) PreviousTrack() *model.Track {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.tracks) == 0 {
		return nil
	}

	if p.mode == model.PlaybackShuffle {
		return p.advanceShuffleLocked(-1)
	}

	if p.currentIndex > 0 {
		p.currentIndex--
	} else if p.currentIndex == 0 && p.mode == model.PlaybackRepeatAll {
		p.currentIndex = len(p.tracks) - 1
	} else {
		return nil
	}

	return p.markPlayedAndSaveLocked()
}

// SetCurrentTrack points the cursor at the track with the given id.
func (p *Playlist) SetCurrentTrack(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOfLocked(id)
	if i < 0 {
		return false
	}
	p.currentIndex = i
	p.markPlayedAndSaveLocked()
	return true
}

// SetMode switches the playback mode.
func (p *Playlist) SetMode(mode model.PlaybackMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	p.saveLocked()
}

// Mode returns the active playback mode.
func (p *Playlist) Mode() model.PlaybackMode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// Clear empties the playlist and resets the cursor.
func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracks = nil
	p.currentIndex = -1
	p.shuffleOrder = nil
	p.shuffleStale = false
	p.saveLocked()
}

// Shuffle generates a fresh random permutation of all track indices. The
// cursor does not move.
func (p *Playlist) Shuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regenerateShuffleLocked()
	p.saveLocked()
}

func (p *Playlist) regenerateShuffleLocked() {
	p.shuffleOrder = rand.Perm(len(p.tracks))
	p.shuffleStale = false
}

// advanceShuffleLocked moves the cursor through the shuffle permutation by
// step (+1 forward, -1 backward), wrapping at either end. A stale or missing
// permutation is regenerated first.
func (p *Playlist) advanceShuffleLocked(step int) *model.Track {
	if p.shuffleStale || len(p.shuffleOrder) != len(p.tracks) {
		p.regenerateShuffleLocked()
	}
	if len(p.shuffleOrder) == 0 {
		return nil
	}

	if p.currentIndex == -1 {
		if step < 0 {
			return nil
		}
		p.currentIndex = p.shuffleOrder[0]
		return p.markPlayedAndSaveLocked()
	}

	pos := -1
	for i, idx := range p.shuffleOrder {
		if idx == p.currentIndex {
			pos = i
			break
		}
	}
	if pos == -1 {
		p.currentIndex = p.shuffleOrder[0]
	} else {
		n := len(p.shuffleOrder)
		p.currentIndex = p.shuffleOrder[((pos+step)%n+n)%n]
	}
	return p.markPlayedAndSaveLocked()
}

// SetTrackMedia records the cached file location and sidecar metadata on a
// track after a successful resolution, then persists.
func (p *Playlist) SetTrackMedia(id, filepath string, metadata map[string]interface{}) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	i := p.indexOfLocked(id)
	if i < 0 {
		return false
	}
	p.tracks[i].Filepath = filepath
	if metadata != nil {
		p.tracks[i].Metadata = metadata
	}
	p.saveLocked()
	return true
}

// Stats aggregates playlist counters.
func (p *Playlist) Stats() model.PlaylistStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := model.PlaylistStats{
		TotalTracks:  len(p.tracks),
		CurrentIndex: p.currentIndex,
		PlaybackMode: p.mode,
		HasCurrent:   p.currentIndex >= 0 && p.currentIndex < len(p.tracks),
	}
	for _, t := range p.tracks {
		stats.TotalDuration += t.Duration
		stats.TotalPlays += t.PlayCount
	}
	return stats
}

// ExportM3U writes the queue as an extended M3U playlist of source URLs.
func (p *Playlist) ExportM3U(path string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var buf bytes.Buffer
	buf.WriteString("#EXTM3U\n")
	for _, t := range p.tracks {
		fmt.Fprintf(&buf, "#EXTINF:%d,%s - %s\n%s\n", t.Duration, t.Artist, t.Title, t.URL)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (p *Playlist) markPlayedAndSaveLocked() *model.Track {
	if p.currentIndex >= 0 && p.currentIndex < len(p.tracks) {
		t := p.tracks[p.currentIndex]
		t.Played = true
		t.PlayCount++
	}
	p.saveLocked()
	return p.currentTrackLocked()
}

func (p *Playlist) indexOfLocked(id string) int {
	for i, t := range p.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// renumberLocked restores the dense order invariant: tracks[i].Order == i.
func (p *Playlist) renumberLocked() {
	for i, t := range p.tracks {
		t.Order = i
	}
}

// saveLocked persists the full state with write-temp-then-rename semantics.
// Storage failures are logged; the in-memory state stays authoritative.
func (p *Playlist) saveLocked() {
	state := persistedState{
		Tracks:       p.tracks,
		CurrentIndex: p.currentIndex,
		PlaybackMode: p.mode,
		ShuffleOrder: p.shuffleOrder,
		UpdatedAt:    time.Now().Format(time.RFC3339),
	}
	if state.Tracks == nil {
		state.Tracks = []*model.Track{}
	}
	if state.ShuffleOrder == nil {
		state.ShuffleOrder = []int{}
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		logger.Error("failed to serialize playlist state", logger.ErrorField(err))
		return
	}

	tmp := p.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		logger.Error("failed to write playlist state", logger.ErrorField(err))
		os.Remove(tmp)
		return
	}
	if err := os.Rename(tmp, p.path); err != nil {
		logger.Error("failed to replace playlist state", logger.ErrorField(err))
		os.Remove(tmp)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
