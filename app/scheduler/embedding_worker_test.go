package scheduler

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	businessflow "github.com/kavehjm/Simorgh/business_flow"
)

// stubEnrichmentFlow replays a scripted sequence of ProcessNext outcomes
type stubEnrichmentFlow struct {
	results []businessflow.EnrichmentResult
	errs    []error
	calls   int
}

func (s *stubEnrichmentFlow) ProcessNext(ctx context.Context, workerID string) (businessflow.EnrichmentResult, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		return businessflow.EnrichmentIdle, nil
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.results[i], err
}

func newTestWorker(flow businessflow.EnrichmentFlow) *EmbeddingWorker {
	return &EmbeddingWorker{
		flow:     flow,
		workerID: "test-worker",
		interval: time.Second,
		logger:   log.New(io.Discard, "", 0),
	}
}

func TestDrainStopsOnQueueError(t *testing.T) {
	// A claim failure hands control back to the ticker instead of retrying
	// in a tight loop
	stub := &stubEnrichmentFlow{
		results: []businessflow.EnrichmentResult{businessflow.EnrichmentIdle},
		errs:    []error{errors.New("connection refused")},
	}
	worker := newTestWorker(stub)

	worker.drain(context.Background())
	assert.Equal(t, 1, stub.calls)
}

func TestDrainProcessesUntilIdle(t *testing.T) {
	stub := &stubEnrichmentFlow{
		results: []businessflow.EnrichmentResult{
			businessflow.EnrichmentCompleted,
			businessflow.EnrichmentFailed,
			businessflow.EnrichmentIdle,
		},
	}
	worker := newTestWorker(stub)

	worker.drain(context.Background())
	assert.Equal(t, 3, stub.calls)
}

func TestDrainHonorsCancelledContext(t *testing.T) {
	stub := &stubEnrichmentFlow{}
	worker := newTestWorker(stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker.drain(ctx)
	assert.Zero(t, stub.calls)
}
