// Package yp4g implements the YP4G yellow page wire protocols: the
// index.txt channel listing, the yp4g.xml configuration document and the
// rate-limited upload body used for speed tests.
package yp4g

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"pecadir/internal/domain"
	"pecadir/internal/logger"
)

const (
	// IndexFieldCount is the fixed number of fields in one index.txt line.
	IndexFieldCount = 19

	// MaxIndexLines caps how many lines of one response are parsed.
	MaxIndexLines = 1024

	channelIDLength = 32
	fieldSeparator  = "<>"
)

// descriptionStatusPattern strips the trailing quality/status annotation a
// yellow page appends to the description field.
var descriptionStatusPattern = regexp.MustCompile(`( - )?<(\dM(bps)? )?(Over|Open|Free)>$`)

// ParseIndexLine decodes one index.txt record. The returned channel carries
// only the 19 wire fields; the caller tags it with the yellow page identity.
func ParseIndexLine(line string) (*domain.Channel, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != IndexFieldCount {
		return nil, fmt.Errorf("%w: field count %d != %d", domain.ErrParse, len(fields), IndexFieldCount)
	}

	if len(fields[1]) != channelIDLength {
		return nil, fmt.Errorf("%w: channel-id length %d != %d", domain.ErrParse, len(fields[1]), channelIDLength)
	}

	listeners, err := parseNumeric("listeners", fields[6])
	if err != nil {
		return nil, err
	}
	relays, err := parseNumeric("relays", fields[7])
	if err != nil {
		return nil, err
	}
	bitrate, err := parseNumeric("bitrate", fields[8])
	if err != nil {
		return nil, err
	}

	return &domain.Channel{
		Name:         unescape(fields[0]),
		ID:           fields[1],
		IP:           fields[2],
		URL:          fields[3],
		Genre:        unescape(fields[4]),
		Description:  stripDescriptionStatus(unescape(fields[5])),
		Listeners:    listeners,
		Relays:       relays,
		Bitrate:      bitrate,
		Type:         unescape(fields[9]),
		TrackArtist:  unescape(fields[10]),
		TrackAlbum:   unescape(fields[11]),
		TrackTitle:   unescape(fields[12]),
		TrackContact: unescape(fields[13]),
		NameURL:      fields[14],
		Age:          fields[15],
		Status:       unescape(fields[16]),
		Comment:      unescape(fields[17]),
		Direct:       fields[18],
	}, nil
}

// ParseIndex decodes an index.txt document, tagging every record with the
// yellow page's name and URL. Malformed lines are logged and skipped; the
// batch succeeds with the remaining valid records. At most MaxIndexLines
// lines are consumed.
func ParseIndex(r io.Reader, yp domain.YellowPage, log *logger.Logger) []domain.Channel {
	var channels []domain.Channel

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	for n := 0; n < MaxIndexLines && scanner.Scan(); n++ {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ch, err := ParseIndexLine(line)
		if err != nil {
			log.Warn("Skipping malformed index line", map[string]interface{}{
				"yellow_page": yp.Name,
				"line":        n,
				"error":       err.Error(),
			})
			continue
		}
		ch.YpName = yp.Name
		ch.YpURL = yp.URL
		channels = append(channels, *ch)
	}

	if err := scanner.Err(); err != nil {
		log.Warn("Index read stopped early", map[string]interface{}{
			"yellow_page": yp.Name,
			"error":       err.Error(),
		})
	}

	return channels
}

func parseNumeric(name, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", domain.ErrParse, name, s)
	}
	return n, nil
}

func unescape(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

func stripDescriptionStatus(s string) string {
	return descriptionStatusPattern.ReplaceAllString(s, "")
}
