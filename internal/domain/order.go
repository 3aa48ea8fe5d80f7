package domain

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// DisplayOrder selects the primary comparator of a filtered view.
type DisplayOrder int

const (
	// OrderListenersDesc sorts by listener count, most first. Default.
	OrderListenersDesc DisplayOrder = iota
	// OrderListenersAsc sorts by listener count, fewest first.
	OrderListenersAsc
	// OrderAgeDesc sorts by broadcast age, oldest first.
	OrderAgeDesc
	// OrderAgeAsc sorts by broadcast age, newest first.
	OrderAgeAsc
	// OrderNone keeps the upstream order (used by the history view).
	OrderNone
)

// OrderFromString resolves an order name, falling back to the default.
func OrderFromString(s string) DisplayOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "listeners_asc":
		return OrderListenersAsc
	case "age_desc":
		return OrderAgeDesc
	case "age_asc":
		return OrderAgeAsc
	case "none":
		return OrderNone
	default:
		return OrderListenersDesc
	}
}

// String returns the order name.
func (o DisplayOrder) String() string {
	switch o {
	case OrderListenersAsc:
		return "listeners_asc"
	case OrderAgeDesc:
		return "age_desc"
	case OrderAgeAsc:
		return "age_asc"
	case OrderNone:
		return "none"
	default:
		return "listeners_desc"
	}
}

var agePattern = regexp.MustCompile(`(\d+):(\d\d)\s*$`)

// ParseAgeMinutes converts a free-text age field ending in "H+:MM" to
// minutes. Unparseable ages yield 0 so they sort as brand-new.
func ParseAgeMinutes(age string) int {
	m := agePattern.FindStringSubmatch(age)
	if m == nil {
		return 0
	}
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm
}

// Sort orders entries in place using the composite comparator chain:
// notice rows last, then the selected primary order, then listeners
// descending, age descending and name ascending as tie breakers.
func (o DisplayOrder) Sort(entries []DirectoryEntry) {
	if o == OrderNone {
		return
	}

	// Age minutes are memoized per sort, keyed by record identity, so the
	// regexp runs once per channel instead of once per comparison.
	ages := make(map[string]int, len(entries))
	ageOf := func(e *DirectoryEntry) int {
		key := e.Name + "\x00" + e.ID
		if v, ok := ages[key]; ok {
			return v
		}
		v := ParseAgeMinutes(e.Age)
		ages[key] = v
		return v
	}

	cmps := []func(a, b *DirectoryEntry) int{
		compareNotice,
		o.primary(ageOf),
		func(a, b *DirectoryEntry) int { return b.Listeners - a.Listeners },
		func(a, b *DirectoryEntry) int { return ageOf(b) - ageOf(a) },
		func(a, b *DirectoryEntry) int { return strings.Compare(a.Name, b.Name) },
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := &entries[i], &entries[j]
		for _, cmp := range cmps {
			if c := cmp(a, b); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

// primary returns the caller-selected comparator.
func (o DisplayOrder) primary(ageOf func(*DirectoryEntry) int) func(a, b *DirectoryEntry) int {
	switch o {
	case OrderListenersAsc:
		return func(a, b *DirectoryEntry) int { return a.Listeners - b.Listeners }
	case OrderAgeDesc:
		return func(a, b *DirectoryEntry) int { return ageOf(b) - ageOf(a) }
	case OrderAgeAsc:
		return func(a, b *DirectoryEntry) int { return ageOf(a) - ageOf(b) }
	default:
		return func(a, b *DirectoryEntry) int { return b.Listeners - a.Listeners }
	}
}

// compareNotice pushes informational rows (sentinel listener count below -1)
// to the bottom of every view.
func compareNotice(a, b *DirectoryEntry) int {
	noticeA := a.Listeners < -1
	noticeB := b.Listeners < -1
	switch {
	case noticeA == noticeB:
		return 0
	case noticeA:
		return 1
	default:
		return -1
	}
}
