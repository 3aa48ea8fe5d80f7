package domain

import (
	"testing"
)

func TestFavoriteMatches_PlainText(t *testing.T) {
	ch := &Channel{
		Name:        "Jazz Radio",
		Genre:       "smooth jazz",
		Description: "Late night session",
		Comment:     "no talk",
	}

	tests := []struct {
		name     string
		favorite Favorite
		want     bool
	}{
		{
			name: "substring match on genre",
			favorite: Favorite{
				Name:    "jazz",
				Pattern: "jazz",
				Flags:   FavoriteFlags{IsGenre: true},
			},
			want: true,
		},
		{
			name: "substring is case insensitive by default",
			favorite: Favorite{
				Name:    "jazz",
				Pattern: "JAZZ",
				Flags:   FavoriteFlags{IsGenre: true},
			},
			want: true,
		},
		{
			name: "case sensitive substring misses",
			favorite: Favorite{
				Name:    "jazz",
				Pattern: "JAZZ",
				Flags:   FavoriteFlags{IsGenre: true, IsCaseSensitive: true},
			},
			want: false,
		},
		{
			name: "exact match requires whole field",
			favorite: Favorite{
				Name:    "jazz",
				Pattern: "jazz",
				Flags:   FavoriteFlags{IsGenre: true, IsExactMatch: true},
			},
			want: false,
		},
		{
			name: "exact match on whole field",
			favorite: Favorite{
				Name:    "jazz",
				Pattern: "smooth jazz",
				Flags:   FavoriteFlags{IsGenre: true, IsExactMatch: true},
			},
			want: true,
		},
		{
			name: "disabled fields contribute false",
			favorite: Favorite{
				Name:    "jazz",
				Pattern: "jazz",
				Flags:   FavoriteFlags{IsComment: true},
			},
			want: false,
		},
		{
			name: "any enabled field suffices",
			favorite: Favorite{
				Name:    "jazz",
				Pattern: "jazz",
				Flags:   FavoriteFlags{IsComment: true, IsName: true},
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.favorite.Matches(ch)
			if err != nil {
				t.Fatalf("Matches returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFavoriteMatches_GenreScenario(t *testing.T) {
	rule := Favorite{
		Name:    "jazz watch",
		Pattern: "jazz",
		Flags:   FavoriteFlags{IsGenre: true},
		Enabled: true,
	}

	jazz := &Channel{Name: "A", Genre: "smooth jazz"}
	rock := &Channel{Name: "B", Genre: "rock"}

	if got, _ := rule.Matches(jazz); !got {
		t.Error("expected rule to match smooth jazz channel")
	}
	if got, _ := rule.Matches(rock); got {
		t.Error("expected rule not to match rock channel")
	}
}

func TestFavoriteMatches_Regex(t *testing.T) {
	ch := &Channel{Name: "Game Night #12", Description: "speedrun"}

	tests := []struct {
		name     string
		favorite Favorite
		want     bool
		wantErr  bool
	}{
		{
			name: "find semantics without exact match",
			favorite: Favorite{
				Name:    "r1",
				Pattern: `#\d+`,
				Flags:   FavoriteFlags{IsName: true, IsRegex: true},
			},
			want: true,
		},
		{
			name: "exact match anchors the pattern",
			favorite: Favorite{
				Name:    "r2",
				Pattern: `#\d+`,
				Flags:   FavoriteFlags{IsName: true, IsRegex: true, IsExactMatch: true},
			},
			want: false,
		},
		{
			name: "exact match over whole field",
			favorite: Favorite{
				Name:    "r3",
				Pattern: `Game Night #\d+`,
				Flags:   FavoriteFlags{IsName: true, IsRegex: true, IsExactMatch: true},
			},
			want: true,
		},
		{
			name: "case insensitive by default",
			favorite: Favorite{
				Name:    "r4",
				Pattern: `game`,
				Flags:   FavoriteFlags{IsName: true, IsRegex: true},
			},
			want: true,
		},
		{
			name: "invalid pattern returns error",
			favorite: Favorite{
				Name:    "r5",
				Pattern: `[broken`,
				Flags:   FavoriteFlags{IsName: true, IsRegex: true},
			},
			want:    false,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.favorite.Matches(ch)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Matches error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFavoriteFlags_RoundTrip(t *testing.T) {
	flags := FavoriteFlags{
		IsName:         true,
		IsGenre:        true,
		IsNotification: true,
		IsRegex:        true,
	}

	s, err := MarshalFlags(flags)
	if err != nil {
		t.Fatalf("MarshalFlags failed: %v", err)
	}

	if got := UnmarshalFlags(s); got != flags {
		t.Errorf("round trip = %+v, want %+v", got, flags)
	}
}

func TestUnmarshalFlags_Lenient(t *testing.T) {
	// Broken stored values degrade to zero flags instead of failing the row
	if got := UnmarshalFlags("{not json"); got != (FavoriteFlags{}) {
		t.Errorf("expected zero flags for broken input, got %+v", got)
	}
}

func TestFavoriteIsStar(t *testing.T) {
	ch := &Channel{Name: "My Channel", ID: "0123456789abcdef0123456789abcdef"}

	star := StarFavorite(ch)
	if !star.IsStar() {
		t.Error("StarFavorite should produce a star favorite")
	}
	if got, _ := star.Matches(ch); !got {
		t.Error("star favorite should match its own channel exactly")
	}
	if got, _ := star.Matches(&Channel{Name: "My Channel Extended"}); got {
		t.Error("star favorite must not match a longer name")
	}

	ng := &Favorite{Name: "[star]x", Flags: FavoriteFlags{IsNG: true}}
	if ng.IsStar() {
		t.Error("an NG rule is never a star")
	}
}
