package extractor

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/memloader/memloader/pkg/logger"
	"github.com/memloader/memloader/pkg/memory"
)

// Chunk is one unit of extraction work.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// Title is the source conversation title.
	Title string
}

// PoolResult summarizes a pool run.
type PoolResult struct {
	// Records are all extracted records, flattened in chunk order so a
	// rerun over the same export feeds the pipeline identically.
	Records []memory.Record

	// Processed is the number of chunks attempted.
	Processed int

	// Failed is the number of chunks whose extraction returned an error.
	// Failures are logged and skipped, never fatal to the run.
	Failed int
}

// Pool fans chunks out to a fixed number of extraction workers.
type Pool struct {
	extractor Extractor
	workers   int
	log       logger.Logger
}

// NewPool creates a Pool with the given number of workers.
func NewPool(extractor Extractor, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{
		extractor: extractor,
		workers:   workers,
		log:       logger.Global().With("component", "extractor-pool"),
	}
}

type poolJob struct {
	index int
	chunk Chunk
}

// ExtractAll runs extraction over all chunks. Workers run concurrently but
// results are flattened in chunk order. Cancelling the context stops
// dispatching new chunks; in-flight requests observe the same context.
func (p *Pool) ExtractAll(ctx context.Context, chunks []Chunk) PoolResult {
	jobs := make(chan poolJob)
	perChunk := make([][]memory.Record, len(chunks))

	var (
		wg        sync.WaitGroup
		processed atomic.Int64
		failed    atomic.Int64
	)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				records, err := p.extractor.Extract(ctx, job.chunk.Text, job.chunk.Title)
				processed.Add(1)
				if err != nil {
					failed.Add(1)
					p.log.Error("chunk extraction failed", "title", job.chunk.Title, "error", err)
					continue
				}
				perChunk[job.index] = records
			}
		}()
	}

dispatch:
	for i, chunk := range chunks {
		select {
		case jobs <- poolJob{index: i, chunk: chunk}:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	result := PoolResult{
		Processed: int(processed.Load()),
		Failed:    int(failed.Load()),
	}
	for _, records := range perChunk {
		result.Records = append(result.Records, records...)
	}

	p.log.Info("extraction complete",
		"chunks", result.Processed,
		"failed", result.Failed,
		"records", len(result.Records),
	)
	return result
}
