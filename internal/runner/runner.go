// Package runner drives the periodic work of the engine: dispatch ticks,
// escalation monitoring, wellness analysis, and the deferred task queue. Each
// cadence runs on a cron schedule; no state is shared between ticks except
// through the store.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manaaki-care/manaaki/internal/dispatch"
	"github.com/manaaki-care/manaaki/internal/escalation"
	"github.com/manaaki-care/manaaki/internal/models"
	"github.com/manaaki-care/manaaki/internal/schedule"
	"github.com/manaaki-care/manaaki/internal/store"
	"github.com/manaaki-care/manaaki/internal/wellness"
)

// Tick cadences. Each tick gets a context deadline matching its interval so
// a slow tick times out instead of piling up behind the next one.
const (
	dispatchSpec   = "*/15 * * * *"
	escalationSpec = "*/5 * * * *"
	wellnessSpec   = "0 * * * *"

	dispatchInterval   = 15 * time.Minute
	escalationInterval = 5 * time.Minute
	wellnessInterval   = time.Hour
)

// TaskHandler processes one deferred task payload.
type TaskHandler func(ctx context.Context, task models.DeferredTask) error

// Runner wires the dispatcher, escalation engine, and wellness analyzer onto
// cron cadences.
type Runner struct {
	store      store.Store
	dispatcher *dispatch.Dispatcher
	engine     *escalation.Engine
	analyzer   *wellness.Analyzer
	cron       *cron.Cron
	handlers   map[string]TaskHandler
	horizon    int
}

// NewRunner creates a Runner with an empty handler registry.
func NewRunner(st store.Store, d *dispatch.Dispatcher, e *escalation.Engine, a *wellness.Analyzer) *Runner {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Runner{
		store:      st,
		dispatcher: d,
		engine:     e,
		analyzer:   a,
		cron:       c,
		handlers:   make(map[string]TaskHandler),
		horizon:    schedule.DefaultHorizonDays,
	}
}

// RegisterTaskHandler binds a handler to a deferred task kind. Tasks with an
// unregistered kind are dropped with a log entry when drained.
func (r *Runner) RegisterTaskHandler(kind string, h TaskHandler) {
	r.handlers[kind] = h
}

// Start registers the cadences and starts the cron loop. The persisted
// deferred task queue is replayed once before the first tick.
func (r *Runner) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchInterval)
	r.drainDeferredTasks(ctx)
	cancel()

	if _, err := r.cron.AddFunc(dispatchSpec, r.dispatchTick); err != nil {
		return fmt.Errorf("failed to register dispatch cadence: %w", err)
	}
	if _, err := r.cron.AddFunc(escalationSpec, r.escalationTick); err != nil {
		return fmt.Errorf("failed to register escalation cadence: %w", err)
	}
	if _, err := r.cron.AddFunc(wellnessSpec, r.wellnessTick); err != nil {
		return fmt.Errorf("failed to register wellness cadence: %w", err)
	}
	r.cron.Start()
	slog.Info("Runner started", "dispatch", dispatchSpec, "escalation", escalationSpec, "wellness", wellnessSpec)
	return nil
}

// Stop stops the cron loop and waits for in-flight ticks to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	slog.Info("Runner stopped")
}

func (r *Runner) dispatchTick() {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchInterval)
	defer cancel()
	now := time.Now().UTC()

	if err := r.dispatcher.ProcessDue(ctx, now); err != nil {
		slog.Error("Runner.dispatchTick: dispatch failed", "error", err)
	}
	if err := r.dispatcher.ExtendHorizons(ctx, now, r.horizon); err != nil {
		slog.Error("Runner.dispatchTick: horizon extension failed", "error", err)
	}
	r.drainDeferredTasks(ctx)
	if err := ctx.Err(); err != nil {
		slog.Warn("Runner.dispatchTick: tick deadline exceeded", "error", err)
	}
}

func (r *Runner) escalationTick() {
	ctx, cancel := context.WithTimeout(context.Background(), escalationInterval)
	defer cancel()
	now := time.Now().UTC()

	if err := r.engine.MonitorCheckIns(ctx, now); err != nil {
		slog.Error("Runner.escalationTick: monitoring failed", "error", err)
	}
	if err := r.engine.ProcessEscalations(ctx, now); err != nil {
		slog.Error("Runner.escalationTick: escalation processing failed", "error", err)
	}
	if err := ctx.Err(); err != nil {
		slog.Warn("Runner.escalationTick: tick deadline exceeded", "error", err)
	}
}

func (r *Runner) wellnessTick() {
	ctx, cancel := context.WithTimeout(context.Background(), wellnessInterval)
	defer cancel()
	now := time.Now().UTC()

	users, err := r.store.ListUserProfiles()
	if err != nil {
		slog.Error("Runner.wellnessTick: failed to list users", "error", err)
		return
	}
	if err := r.analyzer.AnalyzeWindow(ctx, users, wellness.DefaultWindowDays, now); err != nil {
		slog.Error("Runner.wellnessTick: trend analysis failed", "error", err)
	}

	// Weekly reports cover the week that just ended. The store's uniqueness
	// on (user, week start) keeps repeated Monday ticks idempotent.
	if now.Weekday() == time.Monday {
		prevWeek := wellness.WeekStart(now).AddDate(0, 0, -7)
		for _, user := range users {
			if err := r.analyzer.GenerateWeeklyReport(ctx, user, prevWeek); err != nil {
				slog.Error("Runner.wellnessTick: weekly report failed", "error", err, "userID", user.ID)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		slog.Warn("Runner.wellnessTick: tick deadline exceeded", "error", err)
	}
}

// drainDeferredTasks runs every persisted deferred task through its handler.
// A task is deleted after its attempt regardless of outcome; failures are
// logged, never requeued.
func (r *Runner) drainDeferredTasks(ctx context.Context) {
	tasks, err := r.store.ListDeferredTasks()
	if err != nil {
		slog.Error("Runner.drainDeferredTasks: failed to list tasks", "error", err)
		return
	}
	for _, task := range tasks {
		handler, ok := r.handlers[task.Kind]
		if !ok {
			slog.Warn("Runner.drainDeferredTasks: no handler for task kind, dropping", "kind", task.Kind, "id", task.ID)
		} else if err := handler(ctx, task); err != nil {
			slog.Error("Runner.drainDeferredTasks: task failed, dropping", "error", err, "kind", task.Kind, "id", task.ID)
		}
		if err := r.store.DeleteDeferredTask(task.ID); err != nil {
			slog.Error("Runner.drainDeferredTasks: failed to delete task", "error", err, "id", task.ID)
		}
	}
}
