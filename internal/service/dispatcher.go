package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/bnema/docstruct/internal/backoff"
	"github.com/bnema/docstruct/internal/domain"
	"github.com/bnema/docstruct/internal/infrastructure/logger"
	"github.com/bnema/docstruct/internal/port"
)

const repostTimeout = 30 * time.Second

// Dispatcher is the worker loop: it takes one message at a time off the
// queue, routes it and reposts it with a bumped retry counter when handling
// fails for a reason that may go away.
type Dispatcher struct {
	queue      port.Queue
	registry   *Registry
	deps       *Deps
	log        port.Logger
	wait       time.Duration
	maxRetries int
	// pause follows both a repost and a failed receive.
	pause *backoff.Backoff
}

func NewDispatcher(queue port.Queue, registry *Registry, deps *Deps) *Dispatcher {
	cfg := deps.Config
	return &Dispatcher{
		queue:      queue,
		registry:   registry,
		deps:       deps,
		log:        deps.Logger,
		wait:       cfg.ReceiveWait,
		maxRetries: cfg.MaxRetries,
		pause:      backoff.Fixed(cfg.RetryBackoff),
	}
}

// withScratchDir returns a copy of d whose jobs stage their files in dir.
func (d *Dispatcher) withScratchDir(dir string) *Dispatcher {
	deps := *d.deps
	deps.ScratchDir = dir
	clone := *d
	clone.deps = &deps
	return &clone
}

// StepResult describes what one Step did.
type StepResult struct {
	Received bool
	Reposted bool
}

// Run processes messages until ctx is cancelled. A message being handled
// when ctx is cancelled is not drained.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.log.Infof("dispatcher started, handlers: %s", strings.Join(d.registry.Names(), ", "))

	failures := 0
	for {
		if ctx.Err() != nil {
			d.log.Infof("dispatcher shutting down")
			return nil
		}

		res, err := d.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			failures++
			d.log.Errorf("failed to receive message (%d in a row): %v", failures, err)
			_ = d.pause.Sleep(ctx)
			continue
		}
		failures = 0

		if res.Received && res.Reposted {
			_ = d.pause.Sleep(ctx)
		}
	}
}

// Step receives at most one message and handles it, reposting it when the
// failure is retryable. The error is only set when the queue itself failed.
func (d *Dispatcher) Step(ctx context.Context) (StepResult, error) {
	body, err := d.queue.Receive(ctx, d.wait)
	if err != nil {
		return StepResult{}, fmt.Errorf("receive: %w", err)
	}
	if body == nil {
		return StepResult{}, nil
	}

	res := StepResult{Received: true}
	if err := d.ProcessMessage(ctx, body); err != nil {
		d.log.Errorf("message failed, will retry: %v", err)
		d.repost(ctx, body)
		res.Reposted = true
	}
	return res, nil
}

// ProcessMessage handles one message body. It returns nil when the message
// is done with, whether it succeeded or was dropped as terminal, and an error
// when it should be retried.
func (d *Dispatcher) ProcessMessage(ctx context.Context, body []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("panic while processing message: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic while processing message: %v", r)
		}
	}()

	if domain.ClassifyMessage(body) == domain.MessageNotification {
		err = d.handleNotification(ctx, body)
	} else {
		err = d.handleJob(ctx, body)
	}

	if err == nil || !domain.IsTerminal(err) {
		return err
	}
	return nil
}

func (d *Dispatcher) handleJob(ctx context.Context, body []byte) error {
	job, err := domain.Decode(body, d.maxRetries)
	if err != nil {
		d.log.Warnf("dropping message %s: %v", logger.SanitizeBody(body), err)
		return err
	}

	name := job.Spec.JobName
	handler, ok := d.registry.Lookup(name)
	if !ok {
		d.log.Errorf("could not find a job handler for %s", logger.SanitizeForLog(name))
		return fmt.Errorf("%w: %s", domain.ErrUnknownJob, name)
	}

	d.log.Infof("running %s for %s (retries=%d)", name, logger.SanitizeForLog(job.Spec.InputKey), job.NumRetries)
	start := time.Now()
	if _, err := handler.Run(ctx, job.Params, d.deps); err != nil {
		if domain.IsTerminal(err) {
			d.log.Errorf("%s for %s failed: %v", name, logger.SanitizeForLog(job.Spec.InputKey), err)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	d.log.Infof("%s for %s completed in %s", name, logger.SanitizeForLog(job.Spec.InputKey), time.Since(start).Round(time.Millisecond))
	return nil
}

// handleNotification persists a transcoder completion payload as the job's
// result descriptor. Progress notifications are ignored.
func (d *Dispatcher) handleNotification(ctx context.Context, body []byte) error {
	n, err := domain.DecodeNotification(body, d.maxRetries)
	if err != nil {
		d.log.Warnf("dropping notification %s: %v", logger.SanitizeBody(body), err)
		return err
	}
	if n == nil {
		return nil
	}

	switch n.State {
	case domain.StateCompleted:
		d.log.Debugf("transcoder job %s has completed", logger.SanitizeForLog(n.JobID))
	case domain.StateError:
		d.log.Infof("transcoder job %s failed", logger.SanitizeForLog(n.JobID))
	default:
		return nil
	}

	if n.OutputKeyPrefix == "" {
		return fmt.Errorf("%w: %w", domain.ErrNoMoreRetries, domain.NewValidationError("outputKeyPrefix", "is required"))
	}

	key := domain.ResultKey(n.OutputKeyPrefix)
	if err := PutJSON(ctx, d.deps.Store, d.deps.Config.OutputBucket, key, n.Raw); err != nil {
		return err
	}
	publishState(d.deps.Events, n.OutputKeyPrefix, n.State, n.MessageDetails)
	return nil
}

// repost puts body back on the queue with NumRetries incremented. The
// original was removed on receive, so a failed repost loses the message; its
// body is logged so it can be replayed by hand.
func (d *Dispatcher) repost(ctx context.Context, body []byte) {
	next, err := domain.IncrementRetries(body)
	if err != nil {
		d.log.Errorf("cannot repost message %s: %v", logger.SanitizeBody(body), err)
		return
	}
	if n, err := domain.RetryCount(next); err == nil {
		d.log.Debugf("reposting message, retry %d of %d", n, d.maxRetries)
	}

	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), repostTimeout)
	defer cancel()
	if err := d.queue.Post(postCtx, next); err != nil {
		d.log.Errorf("failed to repost message, it is lost: %v: %s", err, logger.SanitizeForLog(string(body)))
	}
}
