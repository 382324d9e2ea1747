// Package scheduler re-runs analysis jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultTimeout bounds a single job run
const DefaultTimeout = 30 * time.Minute

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	jobs     map[string]cron.EntryID
	timezone *time.Location
	timeout  time.Duration
	log      logrus.FieldLogger
}

// New creates a new scheduler with the given timezone. An empty timezone
// means UTC.
func New(timezone string, log logrus.FieldLogger) (*Scheduler, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	// overlapping runs of a slow job are skipped, not queued
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &Scheduler{
		cron:     c,
		jobs:     make(map[string]cron.EntryID),
		timezone: loc,
		timeout:  DefaultTimeout,
		log:      log.WithField("component", "scheduler"),
	}, nil
}

// SetTimeout changes how long a single run may take
func (s *Scheduler) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

// AddJob adds a job with a cron schedule
// schedule format: "0 7 * * *" (at 7:00 AM daily), or descriptors like "@every 6h"
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		if err := s.run(name, job); err != nil {
			s.log.WithError(err).WithField("job", name).Error("Job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.WithFields(logrus.Fields{"job": name, "schedule": schedule}).Info("Added job")

	return nil
}

// AddDailyJob adds a job at a specific time of day
// timeStr format: "07:00" or "18:00"
func (s *Scheduler) AddDailyJob(name, timeStr string, job Job) error {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format %s: %w", timeStr, err)
	}

	schedule := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	return s.AddJob(name, schedule, job)
}

// AddIntervalJob adds a job that runs every interval
func (s *Scheduler) AddIntervalJob(name string, interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s for job %s", interval, name)
	}
	return s.AddJob(name, "@every "+interval.String(), job)
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.log.WithField("job", name).Info("Removed job")
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.log.Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	s.log.Info("Stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job
func (s *Scheduler) RunNow(name string, job Job) error {
	return s.run(name, job)
}

func (s *Scheduler) run(name string, job Job) error {
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	log := s.log.WithField("job", name)
	log.Info("Starting job")
	start := time.Now()

	if err := job(ctx); err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("Job completed")
	return nil
}

// ListJobs returns info about scheduled jobs, ordered by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(entries))

	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{
					Name:    name,
					NextRun: entry.Next,
					LastRun: entry.Prev,
				})
				break
			}
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	return infos
}

// Location returns the scheduler's timezone
func (s *Scheduler) Location() *time.Location {
	return s.timezone
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}
