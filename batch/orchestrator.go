package batch

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hairizuanbinnoorazman/ai-search-inspector/capture"
	"github.com/hairizuanbinnoorazman/ai-search-inspector/logger"
)

var (
	ErrBatchRunning = errors.New("a batch is already running")
	ErrNotRunning   = errors.New("no batch is running")
	ErrNoPrompts    = errors.New("batch requires at least one prompt")
)

// StateStore persists the run across page loads and restarts.
type StateStore interface {
	LoadBatch(ctx context.Context, dest interface{}) (bool, error)
	SaveBatch(ctx context.Context, run interface{}) error
	ClearBatch(ctx context.Context) error
}

// Status is a point-in-time copy of the orchestrator.
type Status struct {
	State State `json:"state"`
	Phase Phase `json:"phase,omitempty"`
	Run   *Run  `json:"run,omitempty"`
}

// Orchestrator owns the single batch run and drives it against a page.
type Orchestrator struct {
	cfg          Config
	page         Page
	store        StateStore
	logger       logger.Logger
	conversation *regexp.Regexp

	now   func() time.Time
	newID func() string

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	run     *Run
	phase   Phase
	driving bool
}

// NewOrchestrator creates an orchestrator. It fails when the conversation
// pattern does not compile.
func NewOrchestrator(cfg Config, page Page, store StateStore, log logger.Logger) (*Orchestrator, error) {
	pattern, err := regexp.Compile(cfg.ConversationPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation pattern: %w", err)
	}

	base, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		cfg:          cfg,
		page:         page,
		store:        store,
		logger:       logger.Component(log, "batch"),
		conversation: pattern,
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
		base:         base,
		cancel:       cancel,
	}, nil
}

// Start begins a new run with the given prompts. Blank lines are dropped.
func (o *Orchestrator) Start(ctx context.Context, prompts []string) (Status, error) {
	cleaned := make([]string, 0, len(prompts))
	for _, p := range prompts {
		if p = strings.TrimSpace(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return Status{}, ErrNoPrompts
	}

	o.mu.Lock()
	if o.run != nil && o.run.Running {
		o.mu.Unlock()
		return Status{}, ErrBatchRunning
	}
	o.run = newRun(o.newID(), cleaned, o.now().UTC())
	o.phase = PhaseAwaitingFreshPage
	o.persistLocked(ctx)
	status := o.statusLocked()
	o.mu.Unlock()

	o.logger.Info(ctx, "batch started", map[string]interface{}{
		"run_id":  status.Run.ID,
		"prompts": len(cleaned),
	})
	o.spawn()
	return status, nil
}

// Stop marks the run as stopped. Steps already underway finish, but no
// further prompt is submitted.
func (o *Orchestrator) Stop(ctx context.Context) (Status, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run == nil || !o.run.Running {
		return o.statusLocked(), ErrNotRunning
	}
	o.run.Running = false
	o.run.State = StateStopped
	o.persistLocked(ctx)

	o.logger.Info(ctx, "batch stopped", map[string]interface{}{
		"run_id": o.run.ID,
		"index":  o.run.Index,
	})
	return o.statusLocked(), nil
}

// Clear discards a finished run.
func (o *Orchestrator) Clear(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run != nil && o.run.Running {
		return ErrBatchRunning
	}
	o.run = nil
	o.phase = PhaseNone
	if err := o.store.ClearBatch(ctx); err != nil {
		return fmt.Errorf("failed to clear batch state: %w", err)
	}
	return nil
}

// Snapshot returns the current status.
func (o *Orchestrator) Snapshot() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.statusLocked()
}

// HandleEvent merges a captured event into the result of the most recently
// submitted prompt while its answer is outstanding. It reports whether the
// event was applied.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev *capture.Event) bool {
	if ev.Empty() {
		return false
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.run == nil || o.run.Index == 0 || !o.run.Outstanding {
		return false
	}
	slot := o.run.Index - 1
	if o.run.Results[slot] == nil {
		o.run.Results[slot] = newPromptResult(o.run.Prompts[slot], o.now().UTC())
	}
	o.run.Results[slot].Merge(ev)
	o.persistLocked(ctx)
	return true
}

// OnPageLoad is called whenever the host page finishes a main-frame load.
// The persisted run is the only signal used to decide whether to resume.
func (o *Orchestrator) OnPageLoad(ctx context.Context) Status {
	o.mu.Lock()
	if o.driving {
		status := o.statusLocked()
		o.mu.Unlock()
		return status
	}

	var run Run
	ok, err := o.store.LoadBatch(ctx, &run)
	if err != nil {
		o.logger.Error(ctx, "failed to load batch state", map[string]interface{}{
			"error": err.Error(),
		})
		status := o.statusLocked()
		o.mu.Unlock()
		return status
	}
	if !ok {
		o.run = nil
		o.phase = PhaseNone
		o.mu.Unlock()
		return Status{State: StateIdle}
	}

	run.normalize()
	o.run = &run
	resume := run.Running && run.Remaining()
	if resume {
		o.phase = PhaseAwaitingFreshPage
	} else if run.Running {
		// Every prompt was submitted before the reload; the last one is
		// treated as answered.
		o.run.Running = false
		o.run.State = StateCompleted
		o.run.Outstanding = false
		o.phase = PhaseNone
		o.persistLocked(ctx)
	}
	status := o.statusLocked()
	o.mu.Unlock()

	if resume {
		o.logger.Info(ctx, "resuming batch after page load", map[string]interface{}{
			"run_id": run.ID,
			"index":  run.Index,
		})
		o.spawn()
	}
	return status
}

// Wait blocks until the drive loop, if any, has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels any in-progress drive loop and waits for it.
func (o *Orchestrator) Close() {
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) spawn() {
	o.mu.Lock()
	if o.driving {
		o.mu.Unlock()
		return
	}
	o.driving = true
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			o.driving = false
			o.mu.Unlock()
		}()
		o.drive(o.base)
	}()
}

func (o *Orchestrator) statusLocked() Status {
	if o.run == nil {
		return Status{State: StateIdle}
	}
	return Status{State: o.run.State, Phase: o.phase, Run: o.run.clone()}
}

func (o *Orchestrator) persistLocked(ctx context.Context) {
	if o.run == nil {
		return
	}
	if err := o.store.SaveBatch(ctx, o.run); err != nil {
		o.logger.Error(ctx, "failed to persist batch state", map[string]interface{}{
			"run_id": o.run.ID,
			"error":  err.Error(),
		})
	}
}
