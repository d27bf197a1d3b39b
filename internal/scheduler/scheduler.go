package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"SignalSentinel/internal/advisor"
	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/evaluator"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
)

const pendingListLimit = 10

type Analyzer interface {
	Analyze(ctx context.Context, symbol, interval string) (*advisor.Result, error)
}

type Evaluator interface {
	EvaluateAllPending(ctx context.Context) (evaluator.Summary, error)
}

type StatsSource interface {
	GetStats(ctx context.Context) (model.EvaluationStats, error)
}

type QuoteSource interface {
	QuoteOrCached(ctx context.Context, symbol string) (model.Quote, bool)
}

type PendingLister interface {
	ListRecent(ctx context.Context, status model.Status, limit int) ([]model.Recommendation, error)
}

// Sender pushes messages to the configured chat.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries uint64) error
}

// Deps are the collaborators the scheduler drives. Notifier may be nil.
type Deps struct {
	Advisor         Analyzer
	Evaluator       Evaluator
	Stats           StatsSource
	Quotes          QuoteSource
	Store           PendingLister
	Notifier        Sender
	DefaultInterval string
}

// Scheduler manages cron tasks and answers chat commands.
type Scheduler struct {
	Cron *cron.Cron
	Deps
	Ctx context.Context
	now func() time.Time
	log zerolog.Logger
}

// NewScheduler creates a new Scheduler. Overlapping runs of a job are skipped.
func NewScheduler(ctx context.Context, d Deps) *Scheduler {
	cronLog := logger.Component("cron")
	if d.DefaultInterval == "" {
		d.DefaultInterval = "1h"
	}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&cronLog))),
		),
		Deps: d,
		Ctx:  ctx,
		now:  time.Now,
		log:  logger.Component("scheduler"),
	}
}

// RegisterAll registers the periodic evaluation pass.
func (s *Scheduler) RegisterAll(evaluateCron string) error {
	if _, err := s.Cron.AddFunc(evaluateCron, s.evaluationTask); err != nil {
		return fmt.Errorf("register evaluation task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// RunEvaluationNow runs one evaluation pass immediately.
func (s *Scheduler) RunEvaluationNow(ctx context.Context) (evaluator.Summary, error) {
	return s.Evaluator.EvaluateAllPending(ctx)
}

func (s *Scheduler) evaluationTask() {
	s.log.Info().Msg("running evaluation task")
	sum, err := s.RunEvaluationNow(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("evaluation pass failed")
		return
	}
	if sum.Transitioned() > 0 {
		s.trySend(notifier.FormatSummary(sum))
	}
}

// HandleCommand processes a chat command and returns an HTML reply.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	args := fields[1:]

	switch cmd {
	case "/analyze":
		if len(args) == 0 {
			return "Usage: /analyze SYMBOL [interval]"
		}
		interval := s.DefaultInterval
		if len(args) > 1 {
			interval = args[1]
		}
		return s.analyze(ctx, collector.NormalizeSymbol(args[0]), interval)
	case "/price":
		if len(args) == 0 {
			return "Usage: /price SYMBOL"
		}
		symbol := collector.NormalizeSymbol(args[0])
		q, ok := s.Quotes.QuoteOrCached(ctx, symbol)
		if !ok {
			return fmt.Sprintf("⚠️ Price for %s is temporarily unavailable.", symbol)
		}
		return notifier.FormatQuote(q)
	case "/evaluate":
		sum, err := s.RunEvaluationNow(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("manual evaluation failed")
			return "⚠️ Evaluation is temporarily unavailable."
		}
		return notifier.FormatSummary(sum)
	case "/stats":
		st, err := s.Stats.GetStats(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("stats failed")
			return "⚠️ Stats are temporarily unavailable."
		}
		return notifier.FormatStats(st)
	case "/pending":
		recs, err := s.Store.ListRecent(ctx, model.StatusPending, pendingListLimit)
		if err != nil {
			s.log.Error().Err(err).Msg("list pending failed")
			return "⚠️ Pending list is temporarily unavailable."
		}
		return notifier.FormatPending(recs, s.now())
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) analyze(ctx context.Context, symbol, interval string) string {
	res, err := s.Advisor.Analyze(ctx, symbol, interval)
	switch {
	case errors.Is(err, collector.ErrUnsupportedInterval):
		return fmt.Sprintf("Unsupported interval %q.", interval)
	case errors.Is(err, advisor.ErrInvalidCandidate):
		return fmt.Sprintf("⚠️ Could not produce a valid recommendation for %s, try again later.", symbol)
	case err != nil:
		return fmt.Sprintf("⚠️ Analysis for %s is temporarily unavailable.", symbol)
	}
	return notifier.FormatSnapshot(symbol, interval, res.Snapshot) + "\n" +
		notifier.FormatRecommendation(res.Recommendation, nil)
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
