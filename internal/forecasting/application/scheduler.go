package application

import (
	"context"
	"log"
	"time"

	forecast "genfleet-cloud/internal/forecasting/domain"
)

// ResultPublisher receives each scheduled forecast result.
type ResultPublisher interface {
	Publish(ctx context.Context, res *forecast.Result) int
}

// Scheduler refreshes forecasts once a day.
type Scheduler struct {
	service    *Service
	dailyAt    string
	location   *time.Location
	logger     *log.Logger
	publishers []ResultPublisher
	onResult   func(asOf time.Time)
}

// NewScheduler constructs a Scheduler. dailyAt is HH:MM in location.
func NewScheduler(service *Service, dailyAt string, location *time.Location, logger *log.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		service:  service,
		dailyAt:  dailyAt,
		location: location,
		logger:   logger,
	}
}

// AddPublisher registers a receiver for scheduled results.
func (s *Scheduler) AddPublisher(p ResultPublisher) {
	if s == nil || p == nil {
		return
	}
	s.publishers = append(s.publishers, p)
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.service == nil {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			local := now.In(s.location)
			if !s.shouldRun(local) {
				continue
			}
			s.runOnce(ctx, local)
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	hour, minute, err := parseDailyAt(s.dailyAt)
	if err != nil {
		return false
	}
	return now.Hour() == hour && now.Minute() == minute
}

// runOnce forecasts as of the local calendar day of now.
func (s *Scheduler) runOnce(ctx context.Context, now time.Time) {
	asOf := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	result, err := s.service.Run(ctx, Request{AsOf: asOf, Trigger: "schedule"})
	if err != nil {
		s.logger.Printf("forecast schedule error: as_of=%s err=%v", asOf.Format("2006-01-02"), err)
		return
	}
	alerts := 0
	for _, p := range s.publishers {
		alerts += p.Publish(ctx, result)
	}
	s.logger.Printf("forecast schedule: as_of=%s records=%d warnings=%d alerts=%d", asOf.Format("2006-01-02"), len(result.Records()), len(result.Warnings), alerts)
	if s.onResult != nil {
		s.onResult(asOf)
	}
}

func parseDailyAt(value string) (int, int, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}
