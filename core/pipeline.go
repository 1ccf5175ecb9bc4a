package core

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

// PipelineStatus is the driver's coarse lifecycle state, exposed to callers
// polling or awaiting progress.
type PipelineStatus uint8

const (
	StatusNotStarted PipelineStatus = iota
	StatusSyncing
	StatusStopped
	StatusFinished
)

func (s PipelineStatus) String() string {
	switch s {
	case StatusNotStarted:
		return "NotStarted"
	case StatusSyncing:
		return "Syncing"
	case StatusStopped:
		return "Stopped"
	case StatusFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// StageError wraps a stage's failure with the stage id that produced it, the
// shape the pipeline surfaces as a fatal StageExecution error (spec.md §7).
type StageError struct {
	StageID string
	Cause   error
}

func (e *StageError) Error() string { return e.StageID + ": " + e.Cause.Error() }
func (e *StageError) Unwrap() error { return e.Cause }

// StageInput is the contiguous block-number range a single Stage.Execute
// call processes.
type StageInput struct {
	From BlockNumber
	To   BlockNumber
}

// Stage is one step of the sync pipeline.
type Stage interface {
	ID() string
	Execute(ctx context.Context, input StageInput) error
}

// CheckpointStore persists each stage's last-processed block number so the
// pipeline can resume after a restart. Checkpoints only ever increase.
type CheckpointStore interface {
	Checkpoint(stageID string) (BlockNumber, error)
	SetCheckpoint(stageID string, tip BlockNumber) error
}

// tipWatch is the single piece of shared mutable coordination spec.md §9
// allows: a watched slot the pipeline waits on when idle and a producer
// advances via SetTip.
type tipWatch struct {
	mu     sync.Mutex
	cond   *sync.Cond
	tip    BlockNumber
	closed bool
}

func newTipWatch() *tipWatch {
	w := &tipWatch{}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func (w *tipWatch) setTip(tip BlockNumber) {
	w.mu.Lock()
	if tip > w.tip {
		w.tip = tip
	}
	w.mu.Unlock()
	w.cond.Broadcast()
}

func (w *tipWatch) close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	w.cond.Broadcast()
}

// waitAbove blocks until the watched tip exceeds current, or the watch is
// closed (returns ok=false).
func (w *tipWatch) waitAbove(current BlockNumber) (BlockNumber, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.tip <= current && !w.closed {
		w.cond.Wait()
	}
	if w.closed {
		return 0, false
	}
	return w.tip, true
}

func (w *tipWatch) get() BlockNumber {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tip
}

// Pipeline drives a fixed sequence of Stages over contiguous block-number
// ranges, chunked by chunkSize, with per-stage checkpointing and resume.
type Pipeline struct {
	mu sync.Mutex

	stages    []Stage
	store     CheckpointStore
	chunkSize BlockNumber
	logger    *log.Logger

	status        PipelineStatus
	currentTip    BlockNumber
	watch         *tipWatch
	stoppedSignal chan struct{}
}

// NewPipeline constructs a pipeline over stages with the given chunk size.
func NewPipeline(stages []Stage, store CheckpointStore, chunkSize BlockNumber, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if chunkSize == 0 {
		chunkSize = 1
	}
	return &Pipeline{
		stages:        stages,
		store:         store,
		chunkSize:     chunkSize,
		logger:        logger,
		status:        StatusNotStarted,
		watch:         newTipWatch(),
		stoppedSignal: make(chan struct{}, 1),
	}
}

// SetTip advances the watched tip; if the pipeline is idle it resumes.
func (p *Pipeline) SetTip(tip BlockNumber) {
	p.watch.setTip(tip)
}

// Status reports the current lifecycle state.
func (p *Pipeline) Status() PipelineStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Stopped blocks until the pipeline has reached Stopped at least once (or
// the context is canceled).
func (p *Pipeline) Stopped(ctx context.Context) error {
	select {
	case <-p.stoppedSignal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) setStatus(s PipelineStatus) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
	if s == StatusStopped {
		select {
		case p.stoppedSignal <- struct{}{}:
		default:
		}
	}
}

// Run loops: advance current_chunk_tip toward the watched tip in chunkSize
// steps, running every stage sequentially over each chunk, until the watch
// is closed (dropping the tip sender terminates the loop at the next idle
// point, per spec.md §4F).
func (p *Pipeline) Run(ctx context.Context) error {
	p.setStatus(StatusSyncing)
	for {
		tip := p.watch.get()
		if p.currentTip >= tip {
			p.setStatus(StatusStopped)
			newTip, ok := p.watch.waitAbove(p.currentTip)
			if !ok {
				p.setStatus(StatusFinished)
				return nil
			}
			tip = newTip
			p.setStatus(StatusSyncing)
		}

		chunkTip := p.currentTip + p.chunkSize
		if chunkTip > tip {
			chunkTip = tip
		}

		for _, stage := range p.stages {
			cp, err := p.store.Checkpoint(stage.ID())
			if err != nil {
				return &StageError{StageID: stage.ID(), Cause: err}
			}
			if cp >= chunkTip {
				continue
			}
			input := StageInput{From: cp + 1, To: chunkTip}
			if err := stage.Execute(ctx, input); err != nil {
				p.logger.WithFields(log.Fields{"stage": stage.ID(), "from": input.From, "to": input.To}).WithError(err).Error("stage execution failed")
				return &StageError{StageID: stage.ID(), Cause: err}
			}
			if err := p.store.SetCheckpoint(stage.ID(), chunkTip); err != nil {
				return &StageError{StageID: stage.ID(), Cause: err}
			}
		}

		p.currentTip = chunkTip
		p.logger.WithFields(log.Fields{"chunk_tip": chunkTip}).Debug("pipeline advanced")
	}
}

// Close terminates the watch, causing a blocked Run to exit at its next idle
// point.
func (p *Pipeline) Close() {
	p.watch.close()
}
