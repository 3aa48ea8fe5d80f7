package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pecadir/internal/cache"
	"pecadir/internal/domain"
	"pecadir/internal/logger"
	"pecadir/internal/repository"
	"pecadir/internal/yp4g"
)

// configCacheTTL bounds how long a fetched yp4g.xml is reused
const configCacheTTL = 5 * time.Minute

// ErrUptestUnavailable is returned when a yellow page does not offer a
// usable speed test right now.
var ErrUptestUnavailable = fmt.Errorf("speed test unavailable: %w", domain.ErrInvalidInput)

// SpeedTester runs YP4G bandwidth checks against yellow pages and
// caches their advertised configuration.
type SpeedTester struct {
	client  *yp4g.Client
	ypRepo  repository.YellowPageRepository
	configs *cache.Cache[*yp4g.Config]
	log     *logger.Logger

	// One upload at a time; concurrent tests would skew each other.
	mu sync.Mutex
}

// NewSpeedTester creates a new SpeedTester
func NewSpeedTester(client *yp4g.Client, ypRepo repository.YellowPageRepository, log *logger.Logger) *SpeedTester {
	return &SpeedTester{
		client:  client,
		ypRepo:  ypRepo,
		configs: cache.New[*yp4g.Config](configCacheTTL),
		log:     log,
	}
}

// SpeedTestResult is the outcome of one bandwidth check
type SpeedTestResult struct {
	YpName string
	Config *yp4g.Config
}

// Status renders the measured state the way yellow pages display it,
// e.g. "523kbps over (port closed)".
func (r *SpeedTestResult) Status() string {
	host := r.Config.Host
	status := fmt.Sprintf("%dkbps", host.SpeedKbps)
	if host.IsOver {
		status += " over"
	}
	if !host.IsPortOpen {
		status += " (port closed)"
	}
	return status
}

// GetConfig returns the yellow page's yp4g configuration, reusing a
// recent fetch when available.
func (s *SpeedTester) GetConfig(ctx context.Context, ypName string) (*yp4g.Config, error) {
	if cfg, ok := s.configs.Get(ypName); ok {
		return cfg, nil
	}

	cfg, err := s.fetchConfig(ctx, ypName)
	if err != nil {
		return nil, err
	}
	s.configs.Set(ypName, cfg)
	return cfg, nil
}

// Run performs a bandwidth check against the named yellow page and
// returns the configuration the server reports afterwards, which
// carries the measured speed.
func (s *SpeedTester) Run(ctx context.Context, ypName string, onProgress func(int)) (*SpeedTestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.fetchConfig(ctx, ypName)
	if err != nil {
		return nil, err
	}

	if !cfg.UpTest.IsCheckable || !cfg.Server.Enabled {
		return nil, fmt.Errorf("yellow page %s: %w", ypName, ErrUptestUnavailable)
	}

	s.log.Info("starting speed test", map[string]interface{}{
		"yp":           ypName,
		"post_size_kb": cfg.Server.PostSizeKB,
		"limit_kbps":   cfg.Server.LimitKbps,
	})

	if err := s.client.SpeedTest(ctx, cfg, onProgress); err != nil {
		return nil, fmt.Errorf("speed test against %s: %w", ypName, err)
	}

	// The server folds the measurement into its next yp4g.xml.
	after, err := s.fetchConfig(ctx, ypName)
	if err != nil {
		return nil, err
	}
	s.configs.Set(ypName, after)

	result := &SpeedTestResult{YpName: ypName, Config: after}
	s.log.Info("speed test finished", map[string]interface{}{
		"yp":     ypName,
		"status": result.Status(),
	})
	return result, nil
}

func (s *SpeedTester) fetchConfig(ctx context.Context, ypName string) (*yp4g.Config, error) {
	yp, err := s.ypRepo.GetByName(ctx, ypName)
	if err != nil {
		return nil, err
	}

	cfg, err := s.client.FetchConfig(ctx, *yp)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch yp4g config from %s: %w", ypName, err)
	}
	return cfg, nil
}
