// Package seed populates the yellow page table on first start, either
// from a YAML sources file or from a built-in default set.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"pecadir/internal/domain"
	"pecadir/internal/logger"
	"pecadir/internal/repository"
)

// DefaultYellowPages lists the directories used when no sources file
// is configured.
var DefaultYellowPages = []domain.YellowPage{
	{Name: "SP", URL: "http://bayonet.ddo.jp/sp/", Enabled: true},
	{Name: "TP", URL: "http://temp.orz.hm/yp/", Enabled: true},
}

// sourcesFile is the YAML shape of a sources file
type sourcesFile struct {
	YellowPages []sourceEntry `yaml:"yellow_pages"`
}

type sourceEntry struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Enabled *bool  `yaml:"enabled"`
}

// Seeder handles yellow page seeding
type Seeder struct {
	ypRepo repository.YellowPageRepository
	log    *logger.Logger
}

// NewSeeder creates a new Seeder instance
func NewSeeder(ypRepo repository.YellowPageRepository, log *logger.Logger) *Seeder {
	return &Seeder{ypRepo: ypRepo, log: log}
}

// SeedResult contains the results of a seeding operation
type SeedResult struct {
	Created []string // Names of newly created yellow pages
	Skipped []string // Names of existing yellow pages (left untouched)
	Failed  []string // Names that failed to seed
	Errors  []error  // Errors encountered during seeding
}

// Seed loads yellow pages from the sources file at path, or the
// built-in defaults when path is empty. The operation is idempotent:
// a yellow page that already exists keeps its stored settings, so
// user edits survive restarts.
func (s *Seeder) Seed(ctx context.Context, path string) (*SeedResult, error) {
	pages, err := s.loadSources(path)
	if err != nil {
		return nil, err
	}

	result := &SeedResult{}
	for _, yp := range pages {
		created, err := s.seedYellowPage(ctx, yp)
		if err != nil {
			result.Failed = append(result.Failed, yp.Name)
			result.Errors = append(result.Errors, fmt.Errorf("failed to seed %s: %w", yp.Name, err))
			s.log.Warn("failed to seed yellow page", map[string]interface{}{
				"name":  yp.Name,
				"error": err.Error(),
			})
			continue
		}

		if created {
			result.Created = append(result.Created, yp.Name)
		} else {
			result.Skipped = append(result.Skipped, yp.Name)
		}
	}

	return result, nil
}

// loadSources reads the sources file, falling back to defaults
func (s *Seeder) loadSources(path string) ([]domain.YellowPage, error) {
	if path == "" {
		return DefaultYellowPages, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	if len(file.YellowPages) == 0 {
		return nil, fmt.Errorf("sources file %s lists no yellow pages: %w", path, domain.ErrInvalidInput)
	}

	pages := make([]domain.YellowPage, 0, len(file.YellowPages))
	for _, entry := range file.YellowPages {
		enabled := true
		if entry.Enabled != nil {
			enabled = *entry.Enabled
		}
		pages = append(pages, domain.YellowPage{
			Name:    entry.Name,
			URL:     entry.URL,
			Enabled: enabled,
		})
	}
	return pages, nil
}

// seedYellowPage seeds a single yellow page.
// Returns true if it was created, false if it already existed.
func (s *Seeder) seedYellowPage(ctx context.Context, yp domain.YellowPage) (bool, error) {
	_, err := s.ypRepo.GetByName(ctx, yp.Name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("failed to check existing yellow page: %w", err)
	}

	if err := s.ypRepo.Upsert(ctx, &yp); err != nil {
		return false, err
	}

	s.log.Info("seeded yellow page", map[string]interface{}{
		"name": yp.Name,
		"url":  yp.URL,
	})
	return true, nil
}
