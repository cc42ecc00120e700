package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/Rohit420bhainwal/book-my-event-api/models"
	"github.com/Rohit420bhainwal/book-my-event-api/services/payout"
	"github.com/Rohit420bhainwal/book-my-event-api/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sweeper runs the periodic booking sweeps.
type Sweeper interface {
	ReleaseSweep(ctx context.Context) (int64, error)
	OverdueSweep(ctx context.Context) (int64, error)
	AutoCancelSweep(ctx context.Context) (payout.SweepReport, error)
}

// AutoPayouter pays out every eligible booking in one pass.
type AutoPayouter interface {
	RunAutoPayout(ctx context.Context) ([]models.PayoutResult, error)
}

// Dispatcher delivers a booking event to its recipient.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.BookingEvent) error
}

// WorkerConfig wires the background worker.
type WorkerConfig struct {
	Redis             asynq.RedisClientOpt
	Concurrency       int
	SweepInterval     time.Duration
	AutoPayoutEnabled bool

	Sweeper    Sweeper
	Payouts    AutoPayouter
	Dispatcher Dispatcher
	Logger     *zap.Logger
}

// Worker owns the asynq server processing tasks and the scheduler enqueuing
// the periodic sweeps.
type Worker struct {
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

// NewServeMux routes every task type to its handler.
func NewServeMux(cfg WorkerConfig) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePayoutRelease, handleReleaseSweep(cfg.Sweeper, cfg.Logger))
	mux.HandleFunc(tasks.TypeMarkOverdue, handleOverdueSweep(cfg.Sweeper, cfg.Logger))
	mux.HandleFunc(tasks.TypeAutoCancel, handleAutoCancelSweep(cfg.Sweeper, cfg.Logger))
	mux.HandleFunc(tasks.TypeAutoPayout, handleAutoPayout(cfg.Payouts, cfg.Logger))
	mux.HandleFunc(tasks.TypeBookingEvent, handleBookingEvent(cfg.Dispatcher, cfg.Logger))
	return mux
}

// InitWorker builds the worker and registers the periodic sweeps.
func InitWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 10
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}

	srv := asynq.NewServer(
		cfg.Redis,
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				tasks.QueueDefault:       3,
				tasks.QueueNotifications: 1,
			},
			Logger:   cfg.Logger.Sugar(),
			LogLevel: asynq.WarnLevel,
		},
	)

	scheduler := asynq.NewScheduler(cfg.Redis, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   cfg.Logger.Sugar(),
		LogLevel: asynq.WarnLevel,
	})

	types := append([]string{}, tasks.SweepTypes...)
	if cfg.AutoPayoutEnabled {
		types = append(types, tasks.TypeAutoPayout)
	}
	spec := fmt.Sprintf("@every %s", cfg.SweepInterval)
	for _, t := range types {
		task, opts := tasks.NewSweepTask(t, cfg.SweepInterval)
		if _, err := scheduler.Register(spec, task, opts...); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", t, err)
		}
	}

	return &Worker{srv: srv, scheduler: scheduler, mux: NewServeMux(cfg), logger: cfg.Logger}, nil
}

// Start runs the server and scheduler in the background, retrying startup
// while Redis is unreachable.
func (w *Worker) Start() {
	go func() {
		w.logger.Info("starting background worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := w.srv.Start(w.mux); err != nil {
				w.logger.Warn("failed to start worker",
					zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
				if attempts == maxAttempts {
					w.logger.Fatal("max retry attempts reached starting worker")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
				continue
			}
			break
		}

		if err := w.scheduler.Start(); err != nil {
			w.logger.Error("failed to start sweep scheduler", zap.Error(err))
		}
	}()
}

// Shutdown stops the scheduler and drains in-flight tasks.
func (w *Worker) Shutdown() {
	w.scheduler.Shutdown()
	w.srv.Shutdown()
	w.logger.Info("background worker stopped")
}

func handleReleaseSweep(s Sweeper, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := s.ReleaseSweep(ctx)
		if err != nil {
			return err
		}
		logger.Debug("release sweep done", zap.Int64("released", n))
		return nil
	}
}

func handleOverdueSweep(s Sweeper, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := s.OverdueSweep(ctx)
		if err != nil {
			return err
		}
		logger.Debug("overdue sweep done", zap.Int64("overdue", n))
		return nil
	}
}

func handleAutoCancelSweep(s Sweeper, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		report, err := s.AutoCancelSweep(ctx)
		if err != nil {
			return err
		}
		logger.Debug("auto-cancel sweep done",
			zap.Int("cancelled", report.Cancelled), zap.Int("failed", report.Failed))
		return nil
	}
}

func handleAutoPayout(p AutoPayouter, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		if p == nil {
			return nil
		}
		results, err := p.RunAutoPayout(ctx)
		if err != nil {
			return err
		}
		failed := 0
		for _, r := range results {
			if !r.Success {
				failed++
			}
		}
		logger.Info("auto payout run finished", zap.Int("processed", len(results)), zap.Int("failed", failed))
		return nil
	}
}

func handleBookingEvent(d Dispatcher, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		ev, err := tasks.ParseBookingEvent(task)
		if err != nil {
			logger.Error("invalid booking event payload", zap.Error(err))
			return fmt.Errorf("decode booking event: %v: %w", err, asynq.SkipRetry)
		}
		if d == nil {
			logger.Debug("no dispatcher configured, dropping event", zap.String("type", string(ev.Type)))
			return nil
		}
		if err := d.Dispatch(ctx, ev); err != nil {
			logger.Warn("failed to deliver booking event",
				zap.String("eventId", ev.ID), zap.String("type", string(ev.Type)), zap.Error(err))
			return err
		}
		return nil
	}
}
