package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibeckermayer/narratives/internal/app"
	"github.com/ibeckermayer/narratives/internal/config"
	"github.com/ibeckermayer/narratives/internal/scheduler"
)

const analyzeJob = "analyze"

type scheduleOptions struct {
	cron  string
	at    string
	every time.Duration
	now   bool
}

// pinned reports whether the schedule came from flags rather than the config
func (o *scheduleOptions) pinned() bool {
	return o.cron != "" || o.at != "" || o.every > 0
}

// add registers job on s. --at and --every win over cron expressions, and a
// --cron flag wins over schedule.cron. It returns the cron expression in use,
// or "" for a flag-pinned schedule.
func (o *scheduleOptions) add(s *scheduler.Scheduler, cfg config.ScheduleConfig, job scheduler.Job) (string, error) {
	switch {
	case o.at != "":
		return "", s.AddDailyJob(analyzeJob, o.at, job)
	case o.every > 0:
		return "", s.AddIntervalJob(analyzeJob, o.every, job)
	case o.cron != "":
		return "", s.AddJob(analyzeJob, o.cron, job)
	default:
		return cfg.Cron, s.AddJob(analyzeJob, cfg.Cron, job)
	}
}

// applyTimeout bounds each run by schedule.timeout when it is set
func applyTimeout(s *scheduler.Scheduler, cfg config.ScheduleConfig) error {
	d, err := cfg.JobTimeout()
	if err != nil {
		return err
	}
	if d > 0 {
		s.SetTimeout(d)
	}
	return nil
}

// reschedule swaps the job onto cfg.Cron when it differs from current. On a
// bad expression the job stays on current.
func reschedule(s *scheduler.Scheduler, current string, cfg config.ScheduleConfig, job scheduler.Job) (string, error) {
	if cfg.Cron == current {
		return current, nil
	}
	s.RemoveJob(analyzeJob)
	if err := s.AddJob(analyzeJob, cfg.Cron, job); err != nil {
		if rerr := s.AddJob(analyzeJob, current, job); rerr != nil {
			return "", rerr
		}
		return current, err
	}
	return cfg.Cron, nil
}

func newScheduleCmd(root *rootOptions) *cobra.Command {
	o := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule <posts.json>",
		Short: "Re-run the analysis on a schedule",
		Long: `Runs the full analysis on the posts file whenever the schedule fires,
until interrupted. The schedule is schedule.cron unless --cron, --at or --every
is given. SIGHUP reloads the config file and picks up a changed schedule.cron
and schedule.timeout; the timezone is fixed at startup.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			log := root.logger(cmd, cfg)

			a, err := app.New(cfg, app.Options{ConfigPath: root.configPath, Logger: log})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := scheduler.New(cfg.Schedule.Timezone, log)
			if err != nil {
				return err
			}
			if err := applyTimeout(s, cfg.Schedule); err != nil {
				return err
			}
			input := args[0]
			job := func(ctx context.Context) error {
				_, err := a.Analyze(ctx, input)
				return err
			}
			current, err := o.add(s, cfg.Schedule, job)
			if err != nil {
				return err
			}

			if o.now {
				if err := s.RunNow(analyzeJob, job); err != nil {
					log.WithError(err).Warn("Initial run failed")
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			s.Start()
			for {
				select {
				case <-ctx.Done():
					<-s.Stop().Done()
					return nil
				case <-hup:
					if err := a.ReloadConfig(); err != nil {
						log.WithError(err).Warn("Failed to reload config")
						continue
					}
					current = o.reload(s, current, a.Config().Schedule, job, log)
				}
			}
		},
	}

	cmd.Flags().StringVar(&o.cron, "cron", "", "cron expression (overrides schedule.cron)")
	cmd.Flags().StringVar(&o.at, "at", "", "run daily at this time, HH:MM")
	cmd.Flags().DurationVar(&o.every, "every", 0, "run at this interval, e.g. 2h")
	cmd.Flags().BoolVar(&o.now, "now", false, "run once immediately before waiting for the schedule")
	cmd.MarkFlagsMutuallyExclusive("cron", "at", "every")

	return cmd
}

// reload applies a reloaded schedule section and returns the cron expression
// now in use
func (o *scheduleOptions) reload(s *scheduler.Scheduler, current string, cfg config.ScheduleConfig, job scheduler.Job, log logrus.FieldLogger) string {
	if err := applyTimeout(s, cfg); err != nil {
		log.WithError(err).Warn("Keeping previous job timeout")
	}
	if o.pinned() {
		return current
	}
	next, err := reschedule(s, current, cfg, job)
	if err != nil {
		log.WithError(err).Warn("Keeping previous schedule")
	}
	return next
}
