package batch

import (
	"context"
	"net/url"
	"time"
)

// drive runs phases until the batch finishes, stalls, or is stopped.
func (o *Orchestrator) drive(ctx context.Context) {
	next := PhaseAwaitingFreshPage
	freshAttempts := 0

	for next != PhaseNone {
		if ctx.Err() != nil {
			return
		}
		o.setPhase(next)

		switch next {
		case PhaseAwaitingFreshPage:
			next = o.awaitFreshPage(ctx, &freshAttempts)
		case PhaseSubmittingPrompt:
			freshAttempts = 0
			next = o.submitPrompt(ctx)
		case PhaseAwaitingResponse:
			next = o.awaitCompletion(ctx)
		case PhaseAdvancing:
			next = o.advance(ctx)
		default:
			next = PhaseNone
		}
	}

	o.mu.Lock()
	if o.phase != PhaseStalled {
		o.phase = PhaseNone
	}
	o.mu.Unlock()
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// active reports whether the run still wants prompts submitted.
func (o *Orchestrator) active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.run != nil && o.run.Running && o.run.Remaining()
}

// IsFresh reports whether rawURL is a new, not yet started conversation.
func (o *Orchestrator) IsFresh(rawURL string) bool {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	return !o.conversation.MatchString(path)
}

func (o *Orchestrator) awaitFreshPage(ctx context.Context, attempts *int) Phase {
	if !o.active() {
		return PhaseNone
	}

	current, err := o.page.URL(ctx)
	if err != nil {
		o.logger.Warn(ctx, "failed to read page URL", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err == nil && o.IsFresh(current) {
		o.mu.Lock()
		if o.run != nil && o.run.Results[o.run.Index] == nil {
			o.run.Results[o.run.Index] = newPromptResult(o.run.Prompts[o.run.Index], o.now().UTC())
			o.persistLocked(ctx)
		}
		o.mu.Unlock()
		return PhaseSubmittingPrompt
	}

	*attempts++
	if *attempts > o.cfg.FreshPageAttempts {
		o.logger.Warn(ctx, "page never reached a fresh conversation, batch stalled", map[string]interface{}{
			"url": current,
		})
		return PhaseStalled
	}

	o.logger.Debug(ctx, "navigating to fresh conversation", map[string]interface{}{
		"from": current,
		"to":   o.cfg.FreshURL,
	})
	if err := o.page.Navigate(ctx, o.cfg.FreshURL); err != nil {
		o.logger.Warn(ctx, "navigation failed", map[string]interface{}{
			"url":   o.cfg.FreshURL,
			"error": err.Error(),
		})
	}
	if sleep(ctx, o.cfg.NavigationDelay) != nil {
		return PhaseNone
	}
	return PhaseAwaitingFreshPage
}

func (o *Orchestrator) submitPrompt(ctx context.Context) Phase {
	o.mu.Lock()
	if o.run == nil || !o.run.Running || !o.run.Remaining() {
		o.mu.Unlock()
		return PhaseNone
	}
	index := o.run.Index
	prompt := o.run.Prompts[index]
	runID := o.run.ID
	o.mu.Unlock()

	fields := map[string]interface{}{"run_id": runID, "index": index}

	input := o.findInput(ctx)
	if input == nil {
		o.logger.Warn(ctx, "input control not found, batch stalled", fields)
		return PhaseStalled
	}

	if err := o.inject(ctx, input, prompt); err != nil {
		fields["error"] = err.Error()
		o.logger.Warn(ctx, "failed to enter prompt, batch stalled", fields)
		return PhaseStalled
	}

	o.submit(ctx)

	o.mu.Lock()
	if o.run != nil && o.run.ID == runID {
		o.run.Index = index + 1
		o.run.Outstanding = true
		o.persistLocked(ctx)
	}
	o.mu.Unlock()

	o.logger.Info(ctx, "prompt submitted", fields)
	return PhaseAwaitingResponse
}

func (o *Orchestrator) findInput(ctx context.Context) Element {
	attempts := o.cfg.InputAttempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		for _, sel := range o.cfg.InputSelectors {
			el, err := o.page.Query(ctx, sel)
			if err == nil && el != nil {
				return el
			}
		}
		if i < attempts-1 && sleep(ctx, o.cfg.InputDelay) != nil {
			return nil
		}
	}
	return nil
}

func (o *Orchestrator) inject(ctx context.Context, el Element, text string) error {
	editable, err := el.ContentEditable(ctx)
	if err != nil {
		return err
	}
	if editable {
		return el.InsertText(ctx, text)
	}
	return el.SetValue(ctx, text)
}

func (o *Orchestrator) submit(ctx context.Context) {
	for _, sel := range o.cfg.SubmitSelectors {
		if el, err := o.page.Query(ctx, sel); err == nil && el != nil {
			if err := el.Click(ctx); err == nil {
				return
			}
		}
	}
	for _, prefix := range o.cfg.SubmitSVGPaths {
		if el, err := o.page.QueryButtonWithPath(ctx, prefix); err == nil && el != nil {
			if err := el.Click(ctx); err == nil {
				return
			}
		}
	}

	o.logger.Debug(ctx, "no submit control found, pressing enter", nil)
	if err := o.page.PressEnter(ctx); err != nil {
		o.logger.Warn(ctx, "failed to press enter", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (o *Orchestrator) streaming(ctx context.Context) bool {
	for _, sel := range o.cfg.StreamingSelectors {
		if el, err := o.page.Query(ctx, sel); err == nil && el != nil {
			return true
		}
	}
	return false
}

func (o *Orchestrator) awaitCompletion(ctx context.Context) Phase {
	if sleep(ctx, o.cfg.ResponseStartDelay) != nil {
		return PhaseNone
	}

	polls := 1
	if o.cfg.CompletionPoll > 0 {
		polls = max(1, int(o.cfg.CompletionTimeout/o.cfg.CompletionPoll))
	}
	for i := 0; i < polls; i++ {
		if !o.streaming(ctx) {
			return PhaseAdvancing
		}
		if sleep(ctx, o.cfg.CompletionPoll) != nil {
			return PhaseNone
		}
	}

	o.logger.Warn(ctx, "response did not finish before timeout, continuing", map[string]interface{}{
		"timeout": o.cfg.CompletionTimeout.String(),
	})
	return PhaseAdvancing
}

func (o *Orchestrator) advance(ctx context.Context) Phase {
	if sleep(ctx, o.cfg.SettleDelay) != nil {
		return PhaseNone
	}

	o.mu.Lock()
	if o.run == nil || !o.run.Running {
		o.mu.Unlock()
		return PhaseNone
	}
	if !o.run.Remaining() {
		o.run.Running = false
		o.run.State = StateCompleted
		o.run.Outstanding = false
		o.persistLocked(ctx)
		runID := o.run.ID
		o.mu.Unlock()

		o.logger.Info(ctx, "batch completed", map[string]interface{}{"run_id": runID})
		return PhaseNone
	}
	o.persistLocked(ctx)
	o.mu.Unlock()

	if err := o.page.Navigate(ctx, o.cfg.FreshURL); err != nil {
		o.logger.Warn(ctx, "navigation failed", map[string]interface{}{
			"url":   o.cfg.FreshURL,
			"error": err.Error(),
		})
	}
	if sleep(ctx, o.cfg.NavigationDelay) != nil {
		return PhaseNone
	}
	return PhaseAwaitingFreshPage
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
