package jobs

import (
	"context"
	"log/slog"
	"time"

	"hrleave/internal/domain/auth"
)

const JobBalanceReset = "balance_reset"

type BalanceResetter interface {
	ResetBalances(ctx context.Context) (int, error)
}

type Service struct {
	Employees    BalanceResetter
	Location     *time.Location
	ResetEnabled bool
	Now          func() time.Time
	queue        chan job
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

func New(employees BalanceResetter, loc *time.Location, resetEnabled bool) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		Employees:    employees,
		Location:     loc,
		ResetEnabled: resetEnabled,
		Now:          time.Now,
		queue:        make(chan job, 16),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.ResetEnabled {
		go s.scheduleYearly(ctx)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// ResetBalances runs the balance reset as the system caller.
func (s *Service) ResetBalances(ctx context.Context) (any, error) {
	updated, err := s.Employees.ResetBalances(auth.WithCaller(ctx, auth.SystemCaller))
	return map[string]any{"employeesUpdated": updated}, err
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	started := s.Now()
	details, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	slog.Info("job run finished",
		"jobType", j.Type,
		"status", status,
		"durationMs", s.Now().Sub(started).Milliseconds(),
		"details", details,
	)
	return details, err
}

func (s *Service) scheduleYearly(ctx context.Context) {
	for {
		wait := time.Until(NextYearStart(s.Now(), s.Location))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Enqueue(JobBalanceReset, s.ResetBalances)
		}
	}
}

// NextYearStart is midnight of the next January 1st in loc.
func NextYearStart(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year()+1, time.January, 1, 0, 0, 0, 0, loc)
}
