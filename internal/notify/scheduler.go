package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ShiShiBits1/GrowthQuest/internal/store"
)

// AtRiskSource lists streaks last extended on a given day.
type AtRiskSource interface {
	ListLastCompletedOn(day time.Time) ([]store.AtRiskStreak, error)
}

// Scheduler sends one streak reminder per day, at the configured hour, to every
// child whose streak ends tonight.
type Scheduler struct {
	mu       sync.RWMutex
	notifier *Notifier
	streaks  AtRiskSource
	loc      *time.Location
	hour     int
	interval time.Duration
	now      func() time.Time
	lastRun  time.Time
	cancel   context.CancelFunc
	done     chan struct{}
	logger   *slog.Logger
}

func NewScheduler(n *Notifier, streaks AtRiskSource, loc *time.Location, hour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		notifier: n,
		streaks:  streaks,
		loc:      loc,
		hour:     hour,
		interval: time.Minute,
		now:      time.Now,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// tick reports how many reminders it sent.
func (s *Scheduler) tick() int {
	now := s.now().In(s.loc)
	if now.Hour() != s.hour {
		return 0
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if s.lastRun.Equal(today) {
		return 0
	}
	s.lastRun = today

	atRisk, err := s.streaks.ListLastCompletedOn(today.AddDate(0, 0, -1))
	if err != nil {
		s.logger.Error("list at-risk streaks", "error", err)
		return 0
	}
	for _, a := range atRisk {
		s.notifier.StreakReminder(a.ChildID, a.TaskName, a.CurrentStreak)
	}
	if len(atRisk) > 0 {
		s.logger.Info("streak reminders sent", "count", len(atRisk))
	}
	return len(atRisk)
}
