package service

import (
	"pecadir/internal/domain"
	"pecadir/internal/logger"
)

// SelectorFromFavorites builds a predicate that keeps entries matching
// at least one enabled favorite rule while dropping entries that match
// an enabled NG rule. A rule with a broken pattern is logged and
// counts as no match.
func SelectorFromFavorites(favorites []*domain.Favorite, log *logger.Logger) domain.Selector {
	var keep, ng []*domain.Favorite
	for _, fav := range favorites {
		if !fav.Enabled {
			continue
		}
		if fav.Flags.IsNG {
			ng = append(ng, fav)
		} else {
			keep = append(keep, fav)
		}
	}

	return func(entry *domain.DirectoryEntry) bool {
		if matchesAny(ng, &entry.Channel, log) {
			return false
		}
		return matchesAny(keep, &entry.Channel, log)
	}
}

// NGFilter builds a predicate that only drops entries matching an
// enabled NG rule, leaving everything else visible.
func NGFilter(favorites []*domain.Favorite, log *logger.Logger) domain.Selector {
	var ng []*domain.Favorite
	for _, fav := range favorites {
		if fav.Enabled && fav.Flags.IsNG {
			ng = append(ng, fav)
		}
	}

	return func(entry *domain.DirectoryEntry) bool {
		return !matchesAny(ng, &entry.Channel, log)
	}
}

func matchesAny(favorites []*domain.Favorite, ch *domain.Channel, log *logger.Logger) bool {
	for _, fav := range favorites {
		matched, err := fav.Matches(ch)
		if err != nil {
			log.Warn("favorite rule failed to evaluate", map[string]interface{}{
				"favorite": fav.Name,
				"error":    err.Error(),
			})
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
