// Package pool drains the transfer queue with a fixed set of workers and
// applies the retry policy.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/curtbushko/drive-to-gong/internal/ledger"
	"github.com/curtbushko/drive-to-gong/internal/logging"
	"github.com/curtbushko/drive-to-gong/internal/manifest"
	"github.com/curtbushko/drive-to-gong/internal/queue"
	"github.com/curtbushko/drive-to-gong/internal/workflow"
)

// ItemProcessor runs the migration pipeline for one recording
type ItemProcessor interface {
	Run(ctx context.Context, item manifest.Item) workflow.Result
}

// Summary counts outcomes across a whole run
type Summary struct {
	Completed int
	Skipped   int
	Failed    int
	Requeued  int
}

// Options configures a Pool
type Options struct {
	Workers     int
	MaxAttempts int
}

// Pool coordinates the workers draining the transfer queue
type Pool struct {
	queue       *queue.TransferQueue
	processor   ItemProcessor
	errorLedger *ledger.ErrorLedger
	logger      logging.Logger
	opts        Options

	mutex   sync.Mutex
	summary Summary
}

// NewPool creates a new worker pool
func NewPool(q *queue.TransferQueue, processor ItemProcessor, errorLedger *ledger.ErrorLedger, logger logging.Logger, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &Pool{
		queue:       q,
		processor:   processor,
		errorLedger: errorLedger,
		logger:      logger,
		opts:        opts,
	}
}

// Run drains the queue and returns outcome counts. It returns when every
// item (including requeues) is finished, or earlier when the context is
// cancelled, in which case queued items are dropped and in-flight items
// finish first.
func (p *Pool) Run(ctx context.Context) (Summary, error) {
	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			p.work(ctx, worker)
		}(i)
	}

	drained := make(chan struct{})
	go func() {
		p.queue.Join()
		close(drained)
	}()

	var runErr error
	select {
	case <-drained:
	case <-ctx.Done():
		p.logger.Warn("interrupt received, stopping after in-flight items")
		runErr = ctx.Err()
	}

	p.queue.Close()
	wg.Wait()

	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.summary, runErr
}

func (p *Pool) work(ctx context.Context, worker int) {
	for {
		item, ok := p.queue.Dequeue()
		if !ok {
			return
		}
		p.process(ctx, worker, item)
	}
}

// process handles one dequeued item and always marks it done, even when the
// pipeline panics.
func (p *Pool) process(ctx context.Context, worker int, item manifest.Item) {
	defer p.queue.TaskDone()

	itemCtx := logging.WithRequestID(ctx, logging.GenerateRequestID())

	result := p.runSafely(itemCtx, item)
	switch result.Disposition {
	case workflow.Completed:
		p.count(func(s *Summary) { s.Completed++ })
	case workflow.Skipped:
		p.count(func(s *Summary) { s.Skipped++ })
	case workflow.Failed:
		p.count(func(s *Summary) { s.Failed++ })
	case workflow.Retry:
		p.retry(itemCtx, item, result.Err)
	}
}

// runSafely converts a panic in the pipeline into a retryable result so one
// bad recording cannot take a worker down.
func (p *Pool) runSafely(ctx context.Context, item manifest.Item) (result workflow.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorWithContext(ctx, "panic processing %s: %v", item.ID, r)
			result = workflow.Result{Disposition: workflow.Retry, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return p.processor.Run(ctx, item)
}

func (p *Pool) retry(ctx context.Context, item manifest.Item, cause error) {
	next := item
	next.Attempt++

	if next.Attempt < p.opts.MaxAttempts {
		p.logger.WarnWithContext(ctx, "requeueing %s (attempt %d of %d): %v",
			item.ID, next.Attempt+1, p.opts.MaxAttempts, cause)
		p.count(func(s *Summary) { s.Requeued++ })
		p.queue.Enqueue(next)
		return
	}

	p.logger.ErrorWithContext(ctx, "giving up on %s after %d attempts: %v", item.ID, next.Attempt, cause)
	record := ledger.FailedRecord{ID: item.ID, Title: item.Title, Reason: ledger.ReasonMaxAttempts}
	if err := p.errorLedger.Append(record); err != nil {
		p.logger.ErrorWithContext(ctx, "failed to record max-attempts failure for %s: %v", item.ID, err)
	}
	p.count(func(s *Summary) { s.Failed++ })
}

func (p *Pool) count(update func(*Summary)) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	update(&p.summary)
}
