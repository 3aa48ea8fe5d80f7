package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// FavoriteFlags selects which channel fields a favorite matches against
// and how the pattern is interpreted.
type FavoriteFlags struct {
	// Match targets. A disabled field contributes false to the OR.
	IsName        bool `json:"isName,omitempty"`
	IsDescription bool `json:"isDescription,omitempty"`
	IsComment     bool `json:"isComment,omitempty"`
	IsGenre       bool `json:"isGenre,omitempty"`

	// IsNG marks channels matched by this rule as blocked.
	IsNG bool `json:"isNG,omitempty"`
	// IsNotification marks channels matched by this rule for notification.
	IsNotification bool `json:"isNotification,omitempty"`

	// IsExactMatch requires the whole field to match, not a substring.
	IsExactMatch bool `json:"isExactMatch,omitempty"`
	// IsRegex interprets the pattern as a regular expression.
	IsRegex bool `json:"isRegex,omitempty"`
	// IsCaseSensitive disables case folding.
	IsCaseSensitive bool `json:"isCaseSensitive,omitempty"`
}

// Favorite is a user-defined watch/block rule over channel records.
type Favorite struct {
	Name    string // identity key
	Pattern string
	Flags   FavoriteFlags
	Enabled bool
}

// starPrefix marks favorites created by starring a single channel.
const starPrefix = "[star]"

// IsStar reports whether the favorite was created by starring a channel.
func (f *Favorite) IsStar() bool {
	return strings.HasPrefix(f.Name, starPrefix) && !f.Flags.IsNG
}

// StarFavorite builds the exact-name favorite for a starred channel.
func StarFavorite(ch *Channel) *Favorite {
	return &Favorite{
		Name:    starPrefix + ch.Name,
		Pattern: ch.Name,
		Flags:   FavoriteFlags{IsName: true, IsExactMatch: true},
		Enabled: true,
	}
}

// Matches evaluates the rule against one channel record. The rule matches
// iff any enabled field matches (logical OR). An invalid regex pattern
// returns an error; callers treat the rule as non-matching and log it.
func (f *Favorite) Matches(ch *Channel) (bool, error) {
	var fieldMatches func(string) bool

	if f.Flags.IsRegex {
		// Validate the user's pattern on its own so anchoring and flags
		// cannot mask a syntax error.
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return false, fmt.Errorf("favorite %q: invalid pattern: %w", f.Name, err)
		}
		pattern := f.Pattern
		if f.Flags.IsExactMatch {
			pattern = `\A(?:` + pattern + `)\z`
		}
		if !f.Flags.IsCaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("favorite %q: invalid pattern: %w", f.Name, err)
		}
		fieldMatches = re.MatchString
	} else {
		pattern := f.Pattern
		fold := !f.Flags.IsCaseSensitive
		if fold {
			pattern = strings.ToLower(pattern)
		}
		norm := func(s string) string {
			if fold {
				return strings.ToLower(s)
			}
			return s
		}
		if f.Flags.IsExactMatch {
			fieldMatches = func(s string) bool { return norm(s) == pattern }
		} else {
			fieldMatches = func(s string) bool { return strings.Contains(norm(s), pattern) }
		}
	}

	switch {
	case f.Flags.IsName && fieldMatches(ch.Name):
		return true, nil
	case f.Flags.IsDescription && fieldMatches(ch.Description):
		return true, nil
	case f.Flags.IsComment && fieldMatches(ch.Comment):
		return true, nil
	case f.Flags.IsGenre && fieldMatches(ch.Genre):
		return true, nil
	}
	return false, nil
}

// MarshalFlags encodes flags for storage.
func MarshalFlags(f FavoriteFlags) (string, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("failed to encode favorite flags: %w", err)
	}
	return string(b), nil
}

// UnmarshalFlags decodes stored flags. Unreadable values degrade to the
// zero flags rather than failing the row.
func UnmarshalFlags(s string) FavoriteFlags {
	var f FavoriteFlags
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return FavoriteFlags{}
	}
	return f
}
