// Package heartbeat re-probes the relay's transports on a cron schedule so
// revoked tokens and outages show up in the logs and in transport_up before
// the next post fails.
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	robfigcron "github.com/robfig/cron/v3"
)

// ProbeFunc checks the transports. A non-nil error is logged, never fatal.
type ProbeFunc func(ctx context.Context) error

// Service runs a ProbeFunc on a schedule.
type Service struct {
	schedule robfigcron.Schedule
	spec     string
	probe    ProbeFunc
	timeout  time.Duration
	logger   *slog.Logger
}

// NewService parses spec (standard five-field cron or a descriptor such as
// "@every 30m"). An empty spec returns a nil Service.
func NewService(spec string, probe ProbeFunc, logger *slog.Logger) (*Service, error) {
	if spec == "" {
		return nil, nil
	}
	schedule, err := robfigcron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: parse schedule %q: %w", spec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		schedule: schedule,
		spec:     spec,
		probe:    probe,
		timeout:  30 * time.Second,
		logger:   logger,
	}, nil
}

// Start runs the probe loop until ctx is cancelled. A nil Service blocks
// until then without probing.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	c := robfigcron.New()
	c.Schedule(s.schedule, robfigcron.FuncJob(func() { s.check(ctx) }))
	c.Start()
	s.logger.Info("heartbeat: started", "schedule", s.spec)

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("heartbeat: stopped")
	return ctx.Err()
}

// Next reports when the probe fires after t.
func (s *Service) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

func (s *Service) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.probe(ctx); err != nil {
		s.logger.Error("heartbeat: probe failed", "err", err)
		return
	}
	s.logger.Debug("heartbeat: transports healthy")
}
