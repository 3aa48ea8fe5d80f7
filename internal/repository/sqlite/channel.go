package sqlite

import (
	"pecadir/internal/domain"
)

// channelColumns lists the shared channel columns in the order used by
// every query that reads or writes a full channel record.
const channelColumns = "name, id, ip, url, genre, description, listeners, relays, bitrate, " +
	"type, track_artist, track_album, track_title, track_contact, name_url, age, status, " +
	"comment, direct, yp_name, yp_url"

const channelPlaceholders = "?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?"

// channelArgs flattens a channel into exec arguments matching channelColumns
func channelArgs(ch *domain.Channel) []any {
	return []any{
		ch.Name, ch.ID, ch.IP, ch.URL, ch.Genre, ch.Description,
		ch.Listeners, ch.Relays, ch.Bitrate, ch.Type,
		ch.TrackArtist, ch.TrackAlbum, ch.TrackTitle, ch.TrackContact,
		ch.NameURL, ch.Age, ch.Status, ch.Comment, ch.Direct,
		ch.YpName, ch.YpURL,
	}
}

// channelDest returns scan destinations matching channelColumns
func channelDest(ch *domain.Channel) []any {
	return []any{
		&ch.Name, &ch.ID, &ch.IP, &ch.URL, &ch.Genre, &ch.Description,
		&ch.Listeners, &ch.Relays, &ch.Bitrate, &ch.Type,
		&ch.TrackArtist, &ch.TrackAlbum, &ch.TrackTitle, &ch.TrackContact,
		&ch.NameURL, &ch.Age, &ch.Status, &ch.Comment, &ch.Direct,
		&ch.YpName, &ch.YpURL,
	}
}
