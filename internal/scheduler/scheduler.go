package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/vocabplan/internal/reviewclock"
	"github.com/example/vocabplan/pkg/models"
)

// Notifier delivers reminders to students
type Notifier interface {
	SendReminder(ctx context.Context, student models.Student, pending int) error
}

// StudentLister lists the students the jobs run for
type StudentLister interface {
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	ListActive(ctx context.Context) ([]models.Student, error)
}

// BatchBuilder builds or returns a student's batch for today
type BatchBuilder interface {
	BuildDailyBatch(ctx context.Context, studentID int64, limit int) (*models.DailyTaskBatch, error)
}

// RunResult summarises one pass over the students
type RunResult struct {
	Students int
	Batches  int // students with at least one task today
	Tasks    int
	Notified int
	Failed   int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	students  StudentLister
	batches   BatchBuilder
	notifier  Notifier
	clock     reviewclock.Clock
	dailyHour int
	logger    *zap.Logger

	mu sync.Mutex // one pass at a time
}

// New creates a new scheduler instance. Jobs run in the clock's timezone.
func New(students StudentLister, batches BatchBuilder, notifier Notifier, clock reviewclock.Clock, dailyHour int, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(clock.Location()),
		students:  students,
		batches:   batches,
		notifier:  notifier,
		clock:     clock,
		dailyHour: dailyHour,
		logger:    logger,
	}
}

// Start registers the jobs and runs them in the background until ctx ends
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.scheduler.Every(1).Day().At(fmt.Sprintf("%02d:00", s.dailyHour)).Do(func() {
		if _, err := s.RunDaily(ctx); err != nil {
			s.logger.Error("daily batch job failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule daily batch job: %w", err)
	}

	if _, err := s.scheduler.Every(1).Hour().StartAt(s.nextHour()).Do(func() {
		if _, err := s.RemindPending(ctx); err != nil {
			s.logger.Error("reminder job failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule reminder job: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("scheduler started", zap.Int("daily_hour", s.dailyHour), zap.String("timezone", s.clock.Location().String()))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunDaily builds today's batch for every active student and tells the
// linked ones that tasks are waiting. A failing student does not stop the run.
func (s *Scheduler) RunDaily(ctx context.Context) (*RunResult, error) {
	return s.run(ctx, "daily", func(models.Student) bool { return true })
}

// RemindPending reminds students whose notification hour is now and who
// still have unanswered tasks today.
func (s *Scheduler) RemindPending(ctx context.Context) (*RunResult, error) {
	hour := s.clock.Now().Hour()
	if hour == s.dailyHour {
		// the daily job already notified everyone this hour
		return &RunResult{}, nil
	}
	return s.run(ctx, "reminder", func(st models.Student) bool {
		return st.NotificationHour == hour
	})
}

// RunManualCheck builds and announces today's batch for one student
func (s *Scheduler) RunManualCheck(ctx context.Context, studentID int64) error {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return fmt.Errorf("load student %d: %w", studentID, err)
	}
	_, err = s.process(ctx, *student)
	return err
}

func (s *Scheduler) run(ctx context.Context, job string, include func(models.Student) bool) (*RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}

	result := &RunResult{}
	for _, st := range students {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !include(st) {
			continue
		}
		result.Students++

		pending, err := s.process(ctx, st)
		if err != nil {
			result.Failed++
			s.logger.Error("student job failed", zap.String("job", job), zap.Int64("student_id", st.ID), zap.Error(err))
			continue
		}
		if pending > 0 {
			result.Batches++
			result.Tasks += pending
			if st.TelegramChatID.Valid {
				result.Notified++
			}
		}
	}

	s.logger.Info("scheduler job finished",
		zap.String("job", job),
		zap.Int("students", result.Students),
		zap.Int("batches", result.Batches),
		zap.Int("tasks", result.Tasks),
		zap.Int("notified", result.Notified),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// process returns the number of pending tasks the student has today
func (s *Scheduler) process(ctx context.Context, st models.Student) (int, error) {
	batch, err := s.batches.BuildDailyBatch(ctx, st.ID, 0)
	if err != nil {
		return 0, fmt.Errorf("build daily batch: %w", err)
	}
	pending := len(batch.Pending())
	if pending == 0 || !st.TelegramChatID.Valid || s.notifier == nil {
		return pending, nil
	}
	if err := s.notifier.SendReminder(ctx, st, pending); err != nil {
		return 0, fmt.Errorf("send reminder: %w", err)
	}
	return pending, nil
}

func (s *Scheduler) nextHour() time.Time {
	now := s.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).Add(time.Hour)
}
