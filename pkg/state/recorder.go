package state

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/bft-labs/lifeline/pkg/lifecycle"
	"github.com/bft-labs/lifeline/pkg/log"
)

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithLogger sets the logger.
func WithLogger(l log.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = log.OrNoop(l)
	}
}

// WithChildPID supplies the hosted process id recorded on start.
func WithChildPID(fn func() int) RecorderOption {
	return func(r *Recorder) {
		r.childPID = fn
	}
}

// Recorder is a lifecycle observer that saves a Status on Started and Stopped.
type Recorder struct {
	repo     Repository
	logger   log.Logger
	childPID func() int

	mu     sync.Mutex
	status Status
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, opts ...RecorderOption) *Recorder {
	r := &Recorder{repo: repo, logger: log.NoopLogger{}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Started records the instance as running.
func (r *Recorder) Started(l *lifecycle.Lifecycle) error {
	child := 0
	if r.childPID != nil {
		child = r.childPID()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.InstanceID = l.ID()
	r.status.Name = l.Name()
	r.status.PID = os.Getpid()
	r.status.MarkStarted(lifecycle.StateRunning.String(), child)
	return r.save()
}

// Stopped records the instance as halted.
func (r *Recorder) Stopped(l *lifecycle.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.status.InstanceID = l.ID()
	r.status.Name = l.Name()
	r.status.PID = os.Getpid()
	r.status.MarkStopped(l.State().String())
	return r.save()
}

// Status returns the last recorded status.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Recorder) save() error {
	if err := r.repo.Save(context.Background(), r.status); err != nil {
		r.logger.Warn("failed to save status", log.Instance(r.status.InstanceID), log.Err(err))
		return fmt.Errorf("save status: %w", err)
	}
	r.logger.Debug("status saved",
		log.Instance(r.status.InstanceID),
		log.State(r.status.State),
	)
	return nil
}
