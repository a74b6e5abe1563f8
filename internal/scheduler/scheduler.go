package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultJobTimeout = time.Minute

// Job is a unit of background work.
type Job func(ctx context.Context) error

type entry struct {
	id      cron.EntryID
	job     Job
	running bool
}

// Scheduler runs named jobs on cron schedules. A job whose previous run
// is still going is skipped.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With("component", "scheduler"),
		timeout: defaultJobTimeout,
		entries: make(map[string]*entry),
		ctx:     context.Background(),
	}
}

// Add registers job under name. An empty schedule leaves the job
// disabled and is not an error.
func (s *Scheduler) Add(name, schedule string, job Job) error {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[name]; ok {
		s.cron.Remove(old.id)
		delete(s.entries, name)
	}

	e := &entry{job: job}
	id, err := s.cron.AddFunc(normalize(schedule), func() { s.run(name, e) })
	if err != nil {
		return fmt.Errorf("invalid cron expression '%s': %w", schedule, err)
	}
	e.id = id
	s.entries[name] = e
	return nil
}

func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[name]; ok {
		s.cron.Remove(e.id)
		delete(s.entries, name)
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.running = true
	s.logger.Info("scheduler started", "jobs", len(s.entries))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Trigger runs a job immediately on the caller's goroutine.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return e.job(ctx)
}

func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[name]; ok {
		next := s.cron.Entry(e.id).Next
		if !next.IsZero() {
			return &next
		}
	}
	return nil
}

func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) run(name string, e *entry) {
	s.mu.Lock()
	if e.running {
		s.mu.Unlock()
		s.logger.Info("job still running, skipping", "job", name)
		return
	}
	e.running = true
	parent := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		e.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	start := time.Now()
	if err := e.job(ctx); err != nil {
		s.logger.Warn("job failed", "job", name, "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("job finished", "job", name, "duration", time.Since(start))
}

// normalize turns descriptors and five-field expressions into the
// six-field form the seconds-aware parser expects.
func normalize(schedule string) string {
	switch schedule {
	case "@hourly":
		return "0 0 * * * *"
	case "@daily":
		return "0 0 0 * * *"
	case "@weekly":
		return "0 0 0 * * 0"
	case "@monthly":
		return "0 0 0 1 * *"
	}
	if strings.HasPrefix(schedule, "@") {
		return schedule
	}
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}
