package services

import (
	"context"
	"sync"
	"time"

	"ragwizard/models"
	"ragwizard/utils"
)

// Polling defaults: every 5 seconds, at most 60 times (5 minutes)
const (
	DefaultPollInterval    = 5 * time.Second
	DefaultPollMaxAttempts = 60
)

// Messages surfaced for the terminal poll outcomes
const (
	ProcessingFailedMessage  = "Error processing documents. Please try again."
	StatusCheckFailedMessage = "Failed to check processing status"
	ProcessingTimeoutMessage = "Processing is taking longer than expected. Please check back later."
)

// PollOutcome is how a status poll ended
type PollOutcome int

const (
	PollReady     PollOutcome = iota // status became ready
	PollFailed                       // status became error
	PollAborted                      // the status call itself failed
	PollTimedOut                     // attempts exhausted
	PollCancelled                    // Cancel was called
)

func (o PollOutcome) String() string {
	switch o {
	case PollReady:
		return "ready"
	case PollFailed:
		return "failed"
	case PollAborted:
		return "aborted"
	case PollTimedOut:
		return "timed_out"
	case PollCancelled:
		return "cancelled"
	}
	return "unknown"
}

// PollResult describes a finished poll
type PollResult struct {
	Outcome  PollOutcome
	Attempts int
	Status   *models.StatusResponse
	Err      error
}

// StatusFetcher is the one backend call the poller needs
type StatusFetcher interface {
	GetStatus(ctx context.Context, chatbotID string) (*models.StatusResponse, error)
}

// PollHandlers receive poll progress. OnDone is called exactly once per Start.
type PollHandlers struct {
	OnTick func(attempt int, status *models.StatusResponse)
	OnDone func(result PollResult)
}

// StatusPoller checks chatbot processing status on a fixed interval.
// At most one poll task is alive per poller.
type StatusPoller struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxAttempts int
	logger      utils.Logger

	mu      sync.Mutex
	current *pollTask
	last    *pollTask // most recently started task, possibly cancelled but not yet exited
	wg      sync.WaitGroup
}

type pollTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStatusPoller creates a poller; zero values fall back to the defaults
func NewStatusPoller(fetcher StatusFetcher, interval time.Duration, maxAttempts int, logger utils.Logger) *StatusPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollMaxAttempts
	}
	return &StatusPoller{
		fetcher:     fetcher,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Start begins polling chatbotID. It fails with ErrPollInProgress if a task is
// already running. A cancelled task is waited for, OnDone included, before the
// new one starts, so Start must not be called from that task's handlers.
func (p *StatusPoller) Start(ctx context.Context, chatbotID string, handlers PollHandlers) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for p.last != nil {
		if p.current != nil {
			return ErrPollInProgress
		}
		prev := p.last
		p.mu.Unlock()
		<-prev.done
		p.mu.Lock()
		if p.last == prev {
			p.last = nil
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	task := &pollTask{cancel: cancel, done: make(chan struct{})}
	p.current = task
	p.last = task
	p.wg.Add(1)

	go p.run(ctx, task, chatbotID, handlers)
	return nil
}

// Cancel stops the running task, if any. It does not wait for it to exit;
// the next Start does.
func (p *StatusPoller) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		p.current.cancel()
		p.current = nil
	}
}

// Running reports whether a task is alive
func (p *StatusPoller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

// Wait blocks until every started task has delivered its OnDone
func (p *StatusPoller) Wait() {
	p.wg.Wait()
}

func (p *StatusPoller) run(ctx context.Context, task *pollTask, chatbotID string, handlers PollHandlers) {
	defer p.wg.Done()
	defer close(task.done)

	result := p.loop(ctx, chatbotID, handlers.OnTick)

	p.mu.Lock()
	if p.current == task {
		p.current = nil
	}
	p.mu.Unlock()
	task.cancel()

	p.logger.Info("Poller", "Status poll finished", map[string]interface{}{
		"chatbot_id": chatbotID,
		"outcome":    result.Outcome.String(),
		"attempts":   result.Attempts,
	})

	if handlers.OnDone != nil {
		handlers.OnDone(result)
	}
}

func (p *StatusPoller) loop(ctx context.Context, chatbotID string, onTick func(int, *models.StatusResponse)) PollResult {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			return PollResult{Outcome: PollCancelled, Attempts: attempts}
		case <-ticker.C:
		}

		attempts++
		status, err := p.fetcher.GetStatus(ctx, chatbotID)
		if err != nil {
			if ctx.Err() != nil {
				return PollResult{Outcome: PollCancelled, Attempts: attempts}
			}
			return PollResult{Outcome: PollAborted, Attempts: attempts, Err: err}
		}

		switch status.ChatbotStatus {
		case models.ChatbotReady:
			return PollResult{Outcome: PollReady, Attempts: attempts, Status: status}
		case models.ChatbotError:
			return PollResult{Outcome: PollFailed, Attempts: attempts, Status: status}
		}

		if attempts >= p.maxAttempts {
			return PollResult{Outcome: PollTimedOut, Attempts: attempts, Status: status,
				Err: &TimeoutError{Attempts: attempts}}
		}

		if onTick != nil {
			onTick(attempts, status)
		}
	}
}
