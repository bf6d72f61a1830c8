package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ============================================================
// Планировщик периодических задач
// ============================================================
//
// Каждая задача крутится в своей goroutine: первый запуск сразу,
// дальше по интервалу. Ошибка задачи логируется и не снимает её
// с расписания; паника тоже гасится на границе запуска.

// Task - периодическая задача
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Scheduler управляет набором периодических задач
type Scheduler struct {
	tasks  []Task
	logger *zap.Logger
	wg     sync.WaitGroup
}

// New создаёт планировщик
func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger.Named("scheduler")}
}

// Add регистрирует задачу; вызывать до Start
func (s *Scheduler) Add(task Task) {
	s.tasks = append(s.tasks, task)
}

// Start запускает все задачи
func (s *Scheduler) Start(ctx context.Context) {
	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
	s.logger.Info("scheduler started", zap.Int("tasks", len(s.tasks)))
}

// Wait блокируется до остановки всех задач
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	logger := s.logger.With(zap.String("task", task.Name))

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.run(ctx, task, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Debug("task stopped")
			return
		case <-ticker.C:
			s.run(ctx, task, logger)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, task Task, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("task panicked", zap.Any("panic", r))
		}
	}()

	started := time.Now()
	if err := task.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("task failed", zap.Error(err))
		return
	}

	logger.Debug("task completed", zap.Duration("took", time.Since(started)))
}
