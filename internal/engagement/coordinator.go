package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giftist/engage/internal/domain"
)

// CoordinatorConfig contains run tuning knobs.
type CoordinatorConfig struct {
	// StageTimeout bounds one stage end to end, evaluation plus dispatch.
	StageTimeout time.Duration `koanf:"stage_timeout"`

	// DispatchTimeout bounds a single outbound send.
	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`

	// PoolSize is the number of concurrent dispatch workers per stage.
	PoolSize int `koanf:"pool_size"`
}

// DefaultCoordinatorConfig returns default run tuning.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		StageTimeout:    2 * time.Minute,
		DispatchTimeout: 15 * time.Second,
		PoolSize:        8,
	}
}

// StageResult summarizes one stage of a run.
type StageResult struct {
	Kind      domain.NotificationKind `json:"kind"`
	Evaluated int                     `json:"evaluated"`
	Eligible  int                     `json:"eligible"`
	Deduped   int                     `json:"deduped"`
	Skipped   int                     `json:"skipped"`
	Sent      int                     `json:"sent"`
	Failed    int                     `json:"failed"`
	Err       string                  `json:"error,omitempty"`
}

// RunReport summarizes a full engine run.
type RunReport struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Stages      []StageResult `json:"stages"`
	TotalSent   int           `json:"total_sent"`
	TotalFailed int           `json:"total_failed"`
}

// Coordinator drives the stages in order, filters candidates through the
// ledger, dispatches survivors, and records successful sends. A stage failure
// never stops the run; the report carries it.
type Coordinator struct {
	stages     []StageEvaluator
	store      EligibilityStore
	ledger     Ledger
	dispatcher *Dispatcher
	filter     *DedupFilter
	config     CoordinatorConfig
	logger     *slog.Logger
}

// NewCoordinator creates a run coordinator.
func NewCoordinator(stages []StageEvaluator, store EligibilityStore, ledger Ledger, dispatcher *Dispatcher, filter *DedupFilter, config CoordinatorConfig, logger *slog.Logger) *Coordinator {
	if config.PoolSize <= 0 {
		config.PoolSize = DefaultCoordinatorConfig().PoolSize
	}
	return &Coordinator{
		stages:     stages,
		store:      store,
		ledger:     ledger,
		dispatcher: dispatcher,
		filter:     filter,
		config:     config,
		logger:     logger,
	}
}

// RunAll executes every stage in registration order at the given instant.
func (c *Coordinator) RunAll(ctx context.Context, now time.Time) *RunReport {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}
	start := time.Now()

	c.logger.InfoContext(ctx, "engagement run started",
		slog.String("run_id", report.RunID),
		slog.Int("stages", len(c.stages)))

	for _, stage := range c.stages {
		result := c.runStage(ctx, stage, now)
		report.Stages = append(report.Stages, result)
		report.TotalSent += result.Sent
		report.TotalFailed += result.Failed
	}

	report.Duration = time.Since(start)
	recordRun()

	c.logger.InfoContext(ctx, "engagement run finished",
		slog.String("run_id", report.RunID),
		slog.Int("sent", report.TotalSent),
		slog.Int("failed", report.TotalFailed),
		slog.Duration("duration", report.Duration))

	return report
}

// RunOne executes a single stage by kind.
func (c *Coordinator) RunOne(ctx context.Context, kind domain.NotificationKind, now time.Time) (*RunReport, error) {
	stage := c.stageFor(kind)
	if stage == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStage, kind)
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: now,
	}
	start := time.Now()

	result := c.runStage(ctx, stage, now)
	report.Stages = []StageResult{result}
	report.TotalSent = result.Sent
	report.TotalFailed = result.Failed
	report.Duration = time.Since(start)
	recordRun()

	return report, nil
}

// RunAdHoc processes one externally produced candidate outside any stage. It
// applies the same dedup, dispatch, and ledger path as a run.
func (c *Coordinator) RunAdHoc(ctx context.Context, candidate Candidate) error {
	result := &StageResult{Kind: candidate.Kind}
	var mu sync.Mutex
	c.processCandidate(ctx, candidate, result, &mu)

	if result.Failed > 0 {
		return fmt.Errorf("dispatch %s to %s failed", candidate.Kind, candidate.Recipient.ID)
	}
	return nil
}

func (c *Coordinator) stageFor(kind domain.NotificationKind) StageEvaluator {
	for _, stage := range c.stages {
		if stage.Kind() == kind {
			return stage
		}
	}
	return nil
}

func (c *Coordinator) runStage(ctx context.Context, stage StageEvaluator, now time.Time) (result StageResult) {
	result.Kind = stage.Kind()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Sprintf("panic: %v", r)
			c.logger.ErrorContext(ctx, "stage panicked",
				slog.String("kind", string(result.Kind)),
				slog.Any("panic", r))
		}
		recordStageDuration(string(result.Kind), time.Since(start))
		recordEvaluated(string(result.Kind), result.Evaluated)
	}()

	stageCtx := ctx
	if c.config.StageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, c.config.StageTimeout)
		defer cancel()
	}

	eval, err := stage.Evaluate(stageCtx, now, c.store)
	result.Evaluated = eval.Evaluated
	result.Failed = eval.Failed
	if err != nil {
		result.Err = err.Error()
		c.logger.ErrorContext(ctx, "stage evaluation failed",
			slog.String("kind", string(result.Kind)),
			slog.Any("error", err))
		return result
	}
	result.Eligible = len(eval.Candidates)

	c.dispatchAll(stageCtx, eval.Candidates, &result)

	c.logger.InfoContext(ctx, "stage finished",
		slog.String("kind", string(result.Kind)),
		slog.Int("evaluated", result.Evaluated),
		slog.Int("eligible", result.Eligible),
		slog.Int("deduped", result.Deduped),
		slog.Int("skipped", result.Skipped),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed))

	return result
}

// dispatchAll fans candidates out over a bounded worker pool. Counters are
// mutex-guarded; a candidate touches exactly one of deduped, skipped, sent,
// or failed.
func (c *Coordinator) dispatchAll(ctx context.Context, candidates []Candidate, result *StageResult) {
	if len(candidates) == 0 {
		return
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		sem = make(chan struct{}, c.config.PoolSize)
	)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			mu.Lock()
			result.Failed++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(cand Candidate) {
			defer wg.Done()
			defer func() { <-sem }()
			c.processCandidate(ctx, cand, result, &mu)
		}(candidate)
	}

	wg.Wait()
}

// processCandidate runs one candidate through dedup, dispatch, and the
// ledger. A ledger conflict on append means another run won the race; the
// recipient got the message, so it counts as deduped, not failed.
func (c *Coordinator) processCandidate(ctx context.Context, cand Candidate, result *StageResult, mu *sync.Mutex) {
	count := func(f func()) {
		mu.Lock()
		f()
		mu.Unlock()
	}

	seen, err := c.filter.AlreadySent(ctx, cand)
	if err != nil {
		c.logger.ErrorContext(ctx, "dedup check failed",
			slog.String("recipient_id", cand.Recipient.ID),
			slog.String("kind", string(cand.Kind)),
			slog.Any("error", err))
		recordNotification(string(cand.Kind), statusFailed)
		count(func() { result.Failed++ })
		return
	}
	if seen {
		recordNotification(string(cand.Kind), statusDeduped)
		count(func() { result.Deduped++ })
		return
	}

	dispatchCtx := ctx
	if c.config.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		dispatchCtx, cancel = context.WithTimeout(ctx, c.config.DispatchTimeout)
		defer cancel()
	}

	entry, err := c.dispatcher.Dispatch(dispatchCtx, cand)
	if err != nil {
		if errors.Is(err, ErrOutsideSendWindow) {
			recordNotification(string(cand.Kind), statusSkipped)
			count(func() { result.Skipped++ })
			return
		}
		c.logger.WarnContext(ctx, "dispatch failed",
			slog.String("recipient_id", cand.Recipient.ID),
			slog.String("kind", string(cand.Kind)),
			slog.Bool("retryable", isRetryable(err)),
			slog.Any("error", err))
		recordNotification(string(cand.Kind), statusFailed)
		count(func() { result.Failed++ })
		return
	}

	if err := c.ledger.Append(ctx, entry); err != nil {
		if errors.Is(err, ErrLedgerConflict) {
			// A concurrent run recorded the same notification first. The
			// recipient got the message either way, so count it as deduped.
			recordNotification(string(cand.Kind), statusDeduped)
			count(func() { result.Deduped++ })
			return
		}
		// The send succeeded; losing the ledger write must not flip the
		// outcome to failed or the next run would resend.
		c.logger.ErrorContext(ctx, "ledger append failed after send",
			slog.String("recipient_id", cand.Recipient.ID),
			slog.String("kind", string(cand.Kind)),
			slog.Any("error", err))
	}

	recordNotification(string(cand.Kind), statusSent)
	count(func() { result.Sent++ })
}
