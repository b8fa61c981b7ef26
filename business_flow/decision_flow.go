package businessflow

import (
	"context"
	"errors"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	"github.com/kavehjm/Simorgh/utils"
)

// DecisionFlow stores agent decisions and drives their state machine. A
// decision starts pending, terminates exactly once in completed or failed,
// and a retryable failure may bounce back to pending while attempts remain
// under the ceiling. All transitions are row-locked per task, so concurrent
// completions of the same task serialize and the losers fail cleanly.
type DecisionFlow interface {
	RecordDecision(ctx context.Context, req *dto.RecordDecisionRequest, metadata *ClientMetadata) (*dto.DecisionDTO, error)
	CompleteDecision(ctx context.Context, taskID string, req *dto.CompleteDecisionRequest, metadata *ClientMetadata) (*dto.DecisionDTO, error)
	FailDecision(ctx context.Context, taskID string, req *dto.FailDecisionRequest, metadata *ClientMetadata) (*dto.DecisionDTO, error)
	GetDecision(ctx context.Context, taskID string) (*dto.DecisionDTO, error)
	TraceDecision(ctx context.Context, taskID string) (*dto.DecisionTraceDTO, error)
}

// DecisionFlowImpl implements the decision business flow
type DecisionFlowImpl struct {
	decisionRepo repository.DecisionRecordRepository
	snapshotRepo repository.SnapshotRepository
	eventRepo    repository.MarketingEventRepository
	deliveryRepo repository.DeliveryAttemptRepository
	outcomeRepo  repository.OutcomeRepository
}

// NewDecisionFlow creates a new decision flow instance
func NewDecisionFlow(
	decisionRepo repository.DecisionRecordRepository,
	snapshotRepo repository.SnapshotRepository,
	eventRepo repository.MarketingEventRepository,
	deliveryRepo repository.DeliveryAttemptRepository,
	outcomeRepo repository.OutcomeRepository,
) DecisionFlow {
	return &DecisionFlowImpl{
		decisionRepo: decisionRepo,
		snapshotRepo: snapshotRepo,
		eventRepo:    eventRepo,
		deliveryRepo: deliveryRepo,
		outcomeRepo:  outcomeRepo,
	}
}

// RecordDecision stores a new pending decision. The referenced snapshot and
// marketing event must already exist; a decision can never point at an
// audience or action the store cannot replay.
func (f *DecisionFlowImpl) RecordDecision(ctx context.Context, req *dto.RecordDecisionRequest, metadata *ClientMetadata) (*dto.DecisionDTO, error) {
	snapshot, err := f.snapshotRepo.ByID(ctx, req.SnapshotID)
	if err != nil {
		return nil, NewBusinessError("SNAPSHOT_LOOKUP_FAILED", "Failed to look up snapshot", err)
	}
	if snapshot == nil {
		return nil, NewBusinessError("SNAPSHOT_NOT_FOUND", "Snapshot not found", ErrSnapshotNotFound)
	}

	event, err := f.eventRepo.ByID(ctx, req.EventID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to look up marketing event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Marketing event not found", ErrMarketingEventNotFound)
	}

	record := &models.DecisionRecord{
		TaskID:     req.TaskID,
		SnapshotID: req.SnapshotID,
		EventID:    req.EventID,
		Status:     models.DecisionStatusPending,
		Reasoning: models.DecisionReasoning{
			Summary: req.ReasoningSummary,
			Trace:   req.ReasoningTrace,
		},
	}
	if err := f.decisionRepo.Save(ctx, record); err != nil {
		return nil, NewBusinessError("DECISION_CREATE_FAILED", "Failed to record decision", err)
	}

	d := ToDecisionDTO(*record)
	return &d, nil
}

// CompleteDecision moves a pending decision to completed. Completing a
// terminal decision is rejected; the first transition wins.
func (f *DecisionFlowImpl) CompleteDecision(ctx context.Context, taskID string, req *dto.CompleteDecisionRequest, metadata *ClientMetadata) (*dto.DecisionDTO, error) {
	record, err := f.decisionRepo.Transition(ctx, taskID, func(r *models.DecisionRecord) error {
		if !r.CanTransitionTo(models.DecisionStatusCompleted) {
			return ErrDecisionNotPending
		}
		r.Status = models.DecisionStatusCompleted
		r.Outcome = &req.Outcome
		r.CompletedAt = utils.UTCNowPtr()
		return nil
	})
	if err != nil {
		return nil, mapTransitionError(err, "DECISION_COMPLETE_FAILED", "Failed to complete decision")
	}

	d := ToDecisionDTO(*record)
	return &d, nil
}

// FailDecision handles both failure shapes. A terminal failure freezes the
// record; a retryable one increments the attempt counter and returns the
// record to pending until the ceiling, after which it fails terminally.
func (f *DecisionFlowImpl) FailDecision(ctx context.Context, taskID string, req *dto.FailDecisionRequest, metadata *ClientMetadata) (*dto.DecisionDTO, error) {
	record, err := f.decisionRepo.Transition(ctx, taskID, func(r *models.DecisionRecord) error {
		if !r.CanTransitionTo(models.DecisionStatusFailed) {
			return ErrDecisionNotPending
		}
		r.ErrorMessage = &req.ErrorMessage

		if req.Retryable {
			r.Attempts++
			if r.CanRetry() {
				r.Status = models.DecisionStatusPending
				return nil
			}
		}

		r.Status = models.DecisionStatusFailed
		r.FailedAt = utils.UTCNowPtr()
		return nil
	})
	if err != nil {
		return nil, mapTransitionError(err, "DECISION_FAIL_FAILED", "Failed to fail decision")
	}

	d := ToDecisionDTO(*record)
	return &d, nil
}

// GetDecision returns a decision record by its task identifier
func (f *DecisionFlowImpl) GetDecision(ctx context.Context, taskID string) (*dto.DecisionDTO, error) {
	record, err := f.decisionRepo.ByTaskID(ctx, taskID)
	if err != nil {
		return nil, NewBusinessError("DECISION_LOOKUP_FAILED", "Failed to look up decision", err)
	}
	if record == nil {
		return nil, NewBusinessError("DECISION_NOT_FOUND", "Decision record not found", ErrDecisionNotFound)
	}

	d := ToDecisionDTO(*record)
	return &d, nil
}

// TraceDecision replays a decision end to end from its task identifier: the
// frozen audience it targeted, the action it chose, every delivery of that
// action, and every outcome attributed to those deliveries.
func (f *DecisionFlowImpl) TraceDecision(ctx context.Context, taskID string) (*dto.DecisionTraceDTO, error) {
	record, err := f.decisionRepo.ByTaskID(ctx, taskID)
	if err != nil {
		return nil, NewBusinessError("DECISION_LOOKUP_FAILED", "Failed to look up decision", err)
	}
	if record == nil {
		return nil, NewBusinessError("DECISION_NOT_FOUND", "Decision record not found", ErrDecisionNotFound)
	}

	snapshot, err := f.snapshotRepo.ByID(ctx, record.SnapshotID)
	if err != nil || snapshot == nil {
		return nil, NewBusinessError("SNAPSHOT_LOOKUP_FAILED", "Failed to load decision snapshot", err)
	}

	event, err := f.eventRepo.ByID(ctx, record.EventID)
	if err != nil || event == nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to load decision event", err)
	}

	deliveries, err := f.deliveryRepo.ByFilter(ctx, models.DeliveryAttemptFilter{EventID: &record.EventID}, "", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LEDGER_READ_FAILED", "Failed to load decision deliveries", err)
	}

	trace := &dto.DecisionTraceDTO{
		Decision:   ToDecisionDTO(*record),
		Snapshot:   ToSnapshotDTO(*snapshot),
		Event:      ToMarketingEventDTO(*event),
		Deliveries: make([]dto.DeliveryAttemptDTO, 0, len(deliveries)),
		Outcomes:   []dto.OutcomeDTO{},
	}

	for _, attempt := range deliveries {
		trace.Deliveries = append(trace.Deliveries, ToDeliveryAttemptDTO(*attempt))

		outcomes, err := f.outcomeRepo.ByFilter(ctx, models.OutcomeFilter{DeliveryAttemptID: &attempt.ID}, "", 0, 0)
		if err != nil {
			return nil, NewBusinessError("LEDGER_READ_FAILED", "Failed to load decision outcomes", err)
		}
		for _, o := range outcomes {
			trace.Outcomes = append(trace.Outcomes, ToOutcomeDTO(*o))
		}
	}

	return trace, nil
}

func mapTransitionError(err error, code, message string) error {
	if errors.Is(err, repository.ErrDecisionNotFound) {
		return NewBusinessError("DECISION_NOT_FOUND", "Decision record not found", ErrDecisionNotFound)
	}
	if errors.Is(err, ErrDecisionNotPending) {
		return NewBusinessError("DECISION_NOT_PENDING", "Decision record is not pending", ErrDecisionNotPending)
	}
	return NewBusinessError(code, message, err)
}
