package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/docstruct/internal/port"
)

// WorkerPool runs several dispatch loops against the same queue. Each loop
// still handles one message at a time.
type WorkerPool struct {
	dispatcher *Dispatcher
	workers    int
	log        port.Logger
	wg         sync.WaitGroup
}

func NewWorkerPool(dispatcher *Dispatcher, workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		dispatcher: dispatcher,
		workers:    workers,
		log:        dispatcher.log,
	}
}

// WorkerScratchDir is the scratch directory of loop id when more than one
// loop runs. Staged file names are derived from object keys, so two loops
// sharing a directory would delete each other's inputs.
func WorkerScratchDir(dataDir string, id int) string {
	return filepath.Join(dataDir, fmt.Sprintf("w%d", id))
}

// Start launches the loops and returns once they are running. They stop
// when ctx is cancelled; Wait blocks until they have.
func (wp *WorkerPool) Start(ctx context.Context) error {
	loops := []*Dispatcher{wp.dispatcher}
	if wp.workers > 1 {
		loops = loops[:0]
		base := wp.dispatcher.deps.scratchDir()
		for i := range wp.workers {
			dir := WorkerScratchDir(base, i)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create scratch directory for worker %d: %w", i, err)
			}
			loops = append(loops, wp.dispatcher.withScratchDir(dir))
		}
	}

	for i, d := range loops {
		wp.wg.Add(1)
		go func(id int, d *Dispatcher) {
			defer wp.wg.Done()
			_ = d.Run(ctx)
			wp.log.Infof("worker %d stopped", id)
		}(i, d)
	}
	wp.log.Infof("started %d workers", len(loops))
	return nil
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}
