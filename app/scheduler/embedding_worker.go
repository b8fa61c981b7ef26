// Package scheduler
package scheduler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kavehjm/Simorgh/app/middleware"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
)

// EmbeddingWorker drains the enrichment queue in the background. Each tick it
// claims and processes jobs until the queue is empty, then sleeps until the
// next tick. Multiple workers may run against the same database; claim
// exclusivity is enforced by the queue itself.
type EmbeddingWorker struct {
	flow     businessflow.EnrichmentFlow
	workerID string
	interval time.Duration
	logger   *log.Logger

	logFile *os.File
}

func NewEmbeddingWorker(flow businessflow.EnrichmentFlow, interval time.Duration) *EmbeddingWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	w := &EmbeddingWorker{
		flow:     flow,
		workerID: generateWorkerID(),
		interval: interval,
	}

	// Initialize worker-specific logger (to stdout and persistent file)
	if err := w.initWorkerLogger(); err != nil {
		w.logger = log.Default()
		w.logger.Printf("embedding worker: failed to initialize file logger: %v", err)
	}

	return w
}

// initWorkerLogger configures a logger that writes to both stdout and a persistent file under data/ (or /data)
func (w *EmbeddingWorker) initWorkerLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "embedding_worker.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		w.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		w.logger = log.New(mw, "embedding-worker ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create embedding worker log file in any candidate directory")
}

// Start launches the worker loop in a background goroutine and returns a stop function
func (w *EmbeddingWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.logger.Printf("worker %s started, interval %s", w.workerID, w.interval)

		w.drain(ctx)

		for {
			select {
			case <-ctx.Done():
				w.logger.Printf("worker %s stopping", w.workerID)
				w.close()
				return
			case <-ticker.C:
				w.drain(ctx)
			}
		}
	}()

	return cancel
}

// drain processes jobs until the queue is empty or the context is cancelled
func (w *EmbeddingWorker) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		result, err := w.flow.ProcessNext(ctx, w.workerID)
		if err != nil {
			// Back off to the ticker instead of hammering a broken queue
			w.logger.Printf("worker %s: processing error: %v", w.workerID, err)
			if result != businessflow.EnrichmentIdle {
				middleware.ObserveEmbeddingJob("failed")
			}
			return
		}

		switch result {
		case businessflow.EnrichmentIdle:
			return
		case businessflow.EnrichmentCompleted:
			middleware.ObserveEmbeddingJob("completed")
		case businessflow.EnrichmentFailed:
			middleware.ObserveEmbeddingJob("failed")
		}
	}
}

func (w *EmbeddingWorker) close() {
	if w.logFile != nil {
		_ = w.logFile.Close()
	}
}

// generateWorkerID builds a unique lock owner identity from the hostname
func generateWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	suffix := make([]byte, 4)
	rand.Read(suffix)
	return fmt.Sprintf("%s-%d-%s", hostname, os.Getpid(), hex.EncodeToString(suffix))
}
