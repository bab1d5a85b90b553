// Package sitesync drives repository sync followed by publish, one cycle at
// a time.
//
// Triggers that arrive while a cycle is running are acknowledged and
// collapsed into a single pending flag. When the running cycle ends with the
// flag set, exactly one follow-up cycle runs in the background, however many
// triggers were coalesced into it.
package sitesync

import (
	"context"
	"sync"
	"time"

	"github.com/teranos/redpen/errors"
	"github.com/teranos/redpen/logger"
	"github.com/teranos/redpen/publish"
	"go.uber.org/zap"
)

// DefaultCycleTimeout bounds a cycle when Config.Timeout is zero.
const DefaultCycleTimeout = 5 * time.Minute

// Syncer brings the working copy to a ref.
type Syncer interface {
	Sync(ctx context.Context, repoURL, ref string) (string, error)
	WorkDir() string
}

// Publisher makes a working copy live.
type Publisher interface {
	Publish(ctx context.Context, workingCopy, publicPath string, inj publish.Injections) error
}

// Config holds what a cycle needs beyond its collaborators.
type Config struct {
	RepoURL    string
	Ref        string
	PublicDir  string
	Injections publish.Injections
	// Timeout bounds one whole cycle
	Timeout time.Duration
}

// Orchestrator serializes sync+publish cycles. The zero value is not usable;
// construct with New.
type Orchestrator struct {
	cfg       Config
	syncer    Syncer
	publisher Publisher
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	status Status
	wg     sync.WaitGroup
}

// New creates an idle orchestrator.
func New(cfg Config, syncer Syncer, publisher Publisher, log *zap.SugaredLogger) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCycleTimeout
	}
	if log == nil {
		log = logger.ComponentLogger("sitesync")
	}
	return &Orchestrator{
		cfg:       cfg,
		syncer:    syncer,
		publisher: publisher,
		logger:    log,
		status:    Status{State: StateIdle, Ref: cfg.Ref},
	}
}

// Trigger requests a cycle. On an idle orchestrator the cycle runs on the
// caller's goroutine and its result is returned. Otherwise the request is
// coalesced and OutcomeQueued is returned immediately.
//
// The cycle is detached from ctx cancellation: a caller that goes away does
// not abort a publish. It is bounded by Config.Timeout instead.
func (o *Orchestrator) Trigger(ctx context.Context, reason string) (Result, error) {
	o.mu.Lock()
	if o.status.State != StateIdle {
		o.status.Pending = true
		state := o.status.State
		o.mu.Unlock()
		o.logger.Infow("Cycle in flight, trigger coalesced", "reason", reason, logger.FieldState, state)
		return Result{Outcome: OutcomeQueued}, nil
	}
	o.status.State = StateSyncing
	o.mu.Unlock()

	commit, err := o.runCycle(context.WithoutCancel(ctx), reason)
	o.finish()

	if err != nil {
		return Result{Outcome: OutcomeFailed}, err
	}
	return Result{Outcome: OutcomePublished, Commit: commit}, nil
}

// Status returns a snapshot of the current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Wait blocks until background follow-up cycles have finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// runCycle performs sync then publish. The caller has already moved the
// state to StateSyncing.
func (o *Orchestrator) runCycle(ctx context.Context, reason string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	start := time.Now()
	log := o.logger.With(logger.FieldRef, o.cfg.Ref, "reason", reason)
	log.Infow("Sync cycle started")

	commit, err := o.syncer.Sync(ctx, o.cfg.RepoURL, o.cfg.Ref)
	if err != nil {
		return "", o.fail(log, errors.WrapSync(err, "repository sync"))
	}

	o.setState(StatePublishing)
	if err := o.publisher.Publish(ctx, o.syncer.WorkDir(), o.cfg.PublicDir, o.cfg.Injections); err != nil {
		return "", o.fail(log, errors.WrapPublish(err, "publish"))
	}

	now := time.Now()
	o.mu.Lock()
	o.status.CurrentRef = o.cfg.Ref
	o.status.LastCommit = commit
	o.status.LastError = ""
	o.status.LastPublishedAt = &now
	o.status.Cycles++
	o.mu.Unlock()

	log.Infow("Sync cycle published",
		logger.FieldCommit, commit,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	return commit, nil
}

// fail records err and passes through StateFailed. The previously published
// site stays live.
func (o *Orchestrator) fail(log *zap.SugaredLogger, err error) error {
	now := time.Now()
	o.mu.Lock()
	o.status.State = StateFailed
	o.status.LastError = err.Error()
	o.status.LastFailedAt = &now
	o.status.Cycles++
	o.status.Failures++
	o.mu.Unlock()

	log.Errorw("Sync cycle failed, last good publish remains live", logger.FieldError, err)
	return err
}

// finish ends a cycle. With a pending trigger the state goes straight to
// StateSyncing for the follow-up, so no other trigger can start a
// concurrent cycle in between.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.status.Pending {
		o.status.State = StateIdle
		return
	}
	o.status.Pending = false
	o.status.State = StateSyncing
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if _, err := o.runCycle(context.Background(), "coalesced"); err != nil {
			o.logger.Debugw("Follow-up cycle failed", logger.FieldError, err)
		}
		o.finish()
	}()
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.status.State = s
	o.mu.Unlock()
}
