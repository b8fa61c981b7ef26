package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
)

// DecisionHandlerInterface defines the contract for decision handlers
type DecisionHandlerInterface interface {
	RecordDecision(c fiber.Ctx) error
	CompleteDecision(c fiber.Ctx) error
	FailDecision(c fiber.Ctx) error
	GetDecision(c fiber.Ctx) error
	TraceDecision(c fiber.Ctx) error
}

// DecisionHandler handles decision record HTTP requests
type DecisionHandler struct {
	base
	decisionFlow businessflow.DecisionFlow
}

// NewDecisionHandler creates a new decision handler
func NewDecisionHandler(tenantFlow businessflow.TenantFlow, decisionFlow businessflow.DecisionFlow) *DecisionHandler {
	return &DecisionHandler{
		base:         newBase(tenantFlow),
		decisionFlow: decisionFlow,
	}
}

// RecordDecision stores a new pending decision for an agent task
func (h *DecisionHandler) RecordDecision(c fiber.Ctx) error {
	var req dto.RecordDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/decisions")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.decisionFlow.RecordDecision(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsSnapshotNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Snapshot not found", "SNAPSHOT_NOT_FOUND", nil)
		}
		if businessflow.IsMarketingEventNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Marketing event not found", "EVENT_NOT_FOUND", nil)
		}

		log.Println("Decision record failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Decision record failed", "DECISION_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Decision recorded successfully", result)
}

// CompleteDecision moves a pending decision to completed
func (h *DecisionHandler) CompleteDecision(c fiber.Ctx) error {
	taskID := c.Params("task_id")
	if taskID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Task ID is required", "MISSING_TASK_ID", nil)
	}

	var req dto.CompleteDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/decisions/:task_id/complete")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.decisionFlow.CompleteDecision(ctx, taskID, &req, metadata)
	if err != nil {
		return h.transitionError(c, err, "Decision completion failed", "DECISION_COMPLETE_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Decision completed successfully", result)
}

// FailDecision moves a pending decision to failed, or back to pending when
// the failure is retryable and attempts remain
func (h *DecisionHandler) FailDecision(c fiber.Ctx) error {
	taskID := c.Params("task_id")
	if taskID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Task ID is required", "MISSING_TASK_ID", nil)
	}

	var req dto.FailDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/decisions/:task_id/fail")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.decisionFlow.FailDecision(ctx, taskID, &req, metadata)
	if err != nil {
		return h.transitionError(c, err, "Decision failure record failed", "DECISION_FAIL_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Decision failure recorded successfully", result)
}

// GetDecision returns a decision record by task identifier
func (h *DecisionHandler) GetDecision(c fiber.Ctx) error {
	taskID := c.Params("task_id")
	if taskID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Task ID is required", "MISSING_TASK_ID", nil)
	}

	ctx, err := h.boundContext(c, "/api/v1/decisions/:task_id")
	if err != nil {
		return err
	}

	result, err := h.decisionFlow.GetDecision(ctx, taskID)
	if err != nil {
		if businessflow.IsDecisionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Decision not found", "DECISION_NOT_FOUND", nil)
		}

		log.Println("Decision lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Decision lookup failed", "DECISION_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Decision retrieved successfully", result)
}

// TraceDecision replays a decision end to end from its task identifier
func (h *DecisionHandler) TraceDecision(c fiber.Ctx) error {
	taskID := c.Params("task_id")
	if taskID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Task ID is required", "MISSING_TASK_ID", nil)
	}

	ctx, err := h.boundContext(c, "/api/v1/decisions/:task_id/trace")
	if err != nil {
		return err
	}

	result, err := h.decisionFlow.TraceDecision(ctx, taskID)
	if err != nil {
		if businessflow.IsDecisionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Decision not found", "DECISION_NOT_FOUND", nil)
		}

		log.Println("Decision trace failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Decision trace failed", "DECISION_TRACE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Decision trace retrieved successfully", result)
}

func (h *DecisionHandler) transitionError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsDecisionNotFound(err) {
		return h.ErrorResponse(c, fiber.StatusNotFound, "Decision not found", "DECISION_NOT_FOUND", nil)
	}
	if businessflow.IsDecisionNotPending(err) {
		return h.ErrorResponse(c, fiber.StatusConflict, "Decision is not pending", "DECISION_NOT_PENDING", nil)
	}

	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
