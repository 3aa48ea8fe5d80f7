package task

import (
	"context"
	"sync"
	"time"

	"pecadir/internal/logger"
)

const (
	// runTimeout bounds a single pipeline run
	runTimeout = 5 * time.Minute

	// backoffStep is added to the wait after each consecutive failure
	backoffStep = 5 * time.Minute

	// backoffMax caps the failure backoff
	backoffMax = time.Hour
)

// Scheduler drives the pipeline on a fixed interval and accepts manual
// kicks. Consecutive failures stretch the interval linearly until a
// run succeeds again.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	log      *logger.Logger

	kick     chan bool
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler running the pipeline every interval
func NewScheduler(pipeline *Pipeline, interval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		pipeline: pipeline,
		interval: interval,
		log:      log,
		kick:     make(chan bool, 1),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the scheduling loop. The first run happens
// immediately.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop terminates the scheduling loop and waits for it to exit
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

// RunOnce requests an immediate run. Requests arriving while a kick is
// already pending coalesce into one.
func (s *Scheduler) RunOnce(force bool) {
	select {
	case s.kick <- force:
	default:
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	failures := 0
	run := func(force bool) {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		if _, err := s.pipeline.Run(ctx, force); err != nil {
			failures++
			s.log.Error("scheduled sync failed", map[string]interface{}{
				"failures": failures,
				"error":    err.Error(),
			})
			return
		}
		failures = 0
	}

	run(false)

	for {
		wait := s.interval + time.Duration(failures)*backoffStep
		if wait > backoffMax {
			wait = backoffMax
		}

		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case force := <-s.kick:
			timer.Stop()
			run(force)
		case <-timer.C:
			run(false)
		}
	}
}
