package domain

import (
	"regexp"
	"time"
)

// EmptyID is the placeholder channel id used by yellow pages for
// informational rows that cannot be played.
const EmptyID = "00000000000000000000000000000000"

// Channel holds one index.txt record: the 19 wire fields plus the
// name and URL of the yellow page it was loaded from.
type Channel struct {
	Name         string // #0
	ID           string // 32-char channel id
	IP           string
	URL          string
	Genre        string
	Description  string // #5
	Listeners    int
	Relays       int
	Bitrate      int
	Type         string
	TrackArtist  string // #10
	TrackAlbum   string
	TrackTitle   string
	TrackContact string
	NameURL      string
	Age          string // #15
	Status       string
	Comment      string
	Direct       string
	// end of index.txt fields

	YpName string
	YpURL  string // #20
}

// IsEmptyID reports whether the channel carries the placeholder id.
func (c *Channel) IsEmptyID() bool {
	return c.ID == EmptyID
}

// IsPlayable reports whether the channel record can be handed to a player.
func (c *Channel) IsPlayable() bool {
	return !c.IsEmptyID()
}

// EqualsIDName reports whether both records share the (name, id) identity key.
func (c *Channel) EqualsIDName(o *Channel) bool {
	return c.Name == o.Name && c.ID == o.ID
}

// SearchText is the haystack used by the search-query filter.
func (c *Channel) SearchText() string {
	return c.Name + " " + c.Genre + " " + c.Description + " " + c.Comment
}

// LiveChannel is a channel row populated by the sync pipeline.
type LiveChannel struct {
	Channel

	// IsLatest is true for exactly the rows written by the most recent merge.
	IsLatest bool
	// LastLoadedAt is the time of the merge that last wrote this row.
	LastLoadedAt time.Time
	// NumLoaded counts consecutive merges in which this (name, id) appeared.
	NumLoaded int
}

// HistoryChannel is a channel row recorded when the user played it.
type HistoryChannel struct {
	Channel

	// LastPlayedAt is the time of the most recent playback.
	LastPlayedAt time.Time
	// Live is the currently broadcasting counterpart, if any. Derived at
	// query time, never persisted.
	Live *LiveChannel
}

// IsPlayable reports whether the historical channel is broadcasting right now.
func (h *HistoryChannel) IsPlayable() bool {
	return h.Live != nil && h.Channel.IsPlayable()
}

// YellowPage is a remote directory server publishing live channels.
type YellowPage struct {
	Name    string // identity key
	URL     string
	Enabled bool
}

var ypURLPattern = regexp.MustCompile(`^https?://\S+/$`)

// IsValidYellowPageURL reports whether u looks like a usable yellow page
// base URL (scheme, host, trailing slash).
func IsValidYellowPageURL(u string) bool {
	return ypURLPattern.MatchString(u)
}

// ChannelSource selects which collection a filtered view reads from.
type ChannelSource int

const (
	// SourceLive serves the channels of the most recent merge.
	SourceLive ChannelSource = iota
	// SourceHistory serves previously played channels.
	SourceHistory
)

// String returns the source name.
func (s ChannelSource) String() string {
	if s == SourceHistory {
		return "history"
	}
	return "live"
}

// ChannelKind tags a DirectoryEntry with its lifecycle.
type ChannelKind int

const (
	// KindLive marks an entry backed by a live row.
	KindLive ChannelKind = iota
	// KindHistory marks an entry backed by a history row.
	KindHistory
)

// DirectoryEntry is one element of a filtered view: a channel record
// tagged with its lifecycle and derived playability.
type DirectoryEntry struct {
	Channel

	Kind ChannelKind
	// NumLoaded is copied from the live row; zero for history-only entries.
	NumLoaded int
	// LastPlayedAt is set for history entries only.
	LastPlayedAt time.Time
	// Playable is derived: live entries with a real id, or history entries
	// whose channel is currently broadcasting.
	Playable bool
}

// Selector is a predicate over directory entries.
type Selector func(*DirectoryEntry) bool

// FilterParams is the value type driving a filtered view. A new instance
// replaces the prior one atomically.
type FilterParams struct {
	Source      ChannelSource
	Selector    Selector
	Order       DisplayOrder
	SearchQuery string
}

// FilteredList is an ordered snapshot of directory entries tagged with the
// parameters that produced it.
type FilteredList struct {
	Channels []DirectoryEntry
	Params   FilterParams
}

// StoreChange is published whenever the directory store is written.
type StoreChange struct{}

// NotificationSink receives one aggregated "new channels found" event.
// The core decides whether and with what content; rendering is up to the
// sink implementation.
type NotificationSink interface {
	NotifyNewChannels(channels []*LiveChannel) error
}
