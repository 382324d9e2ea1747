package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/logging"
	"github.com/ibeckermayer/narratives/internal/scheduler"
)

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New("UTC", logging.Discard())
	require.NoError(t, err)
	return s
}

func noopJob(context.Context) error { return nil }

func TestScheduleCmd_Flags(t *testing.T) {
	t.Parallel()

	cmd := newScheduleCmd(&rootOptions{})
	for _, name := range []string{"cron", "at", "every", "now"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	_, postsPath := setup(t)
	_, err := run(t, "schedule", postsPath, "--at", "07:00", "--every", "1h")
	require.Error(t, err)
}

func TestScheduleOptions_Add(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Schedule

	tests := []struct {
		name    string
		opts    scheduleOptions
		current string
		wantErr bool
	}{
		{"config cron", scheduleOptions{}, cfg.Cron, false},
		{"cron flag", scheduleOptions{cron: "*/5 * * * *"}, "", false},
		{"daily", scheduleOptions{at: "07:30"}, "", false},
		{"bad daily", scheduleOptions{at: "7pm"}, "", true},
		{"interval", scheduleOptions{every: 2 * time.Hour}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestScheduler(t)
			current, err := tt.opts.add(s, cfg, noopJob)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, s.ListJobs())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.current, current)
			jobs := s.ListJobs()
			require.Len(t, jobs, 1)
			assert.Equal(t, analyzeJob, jobs[0].Name)
		})
	}
}

func TestReschedule(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	require.NoError(t, s.AddJob(analyzeJob, "0 */6 * * *", noopJob))

	current, err := reschedule(s, "0 */6 * * *", config.ScheduleConfig{Cron: "0 7 * * *"}, noopJob)
	require.NoError(t, err)
	assert.Equal(t, "0 7 * * *", current)
	assert.Len(t, s.ListJobs(), 1)

	// A bad expression keeps the job on the old schedule.
	current, err = reschedule(s, current, config.ScheduleConfig{Cron: "whenever"}, noopJob)
	require.Error(t, err)
	assert.Equal(t, "0 7 * * *", current)
	assert.Len(t, s.ListJobs(), 1)
}

func TestScheduleOptions_ReloadKeepsPinnedSchedule(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	o := &scheduleOptions{every: time.Hour}
	_, err := o.add(s, config.Default().Schedule, noopJob)
	require.NoError(t, err)

	current := o.reload(s, "", config.ScheduleConfig{Cron: "0 7 * * *"}, noopJob, logging.Discard())
	assert.Empty(t, current)
	assert.Len(t, s.ListJobs(), 1)
}

func TestApplyTimeout(t *testing.T) {
	t.Parallel()

	s := newTestScheduler(t)
	require.NoError(t, applyTimeout(s, config.ScheduleConfig{Timeout: "10ms"}))

	err := s.RunNow(analyzeJob, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Error(t, applyTimeout(s, config.ScheduleConfig{Timeout: "later"}))
}
