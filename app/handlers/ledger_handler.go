package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
)

// LedgerHandlerInterface defines the contract for ledger handlers
type LedgerHandlerInterface interface {
	AppendBehavioralEvent(c fiber.Ctx) error
	AppendBehavioralEvents(c fiber.Ctx) error
	ListBehavioralEvents(c fiber.Ctx) error
	RecordDelivery(c fiber.Ctx) error
	RecordDeliveryResult(c fiber.Ctx) error
	ListDeliveries(c fiber.Ctx) error
	ExportDeliveries(c fiber.Ctx) error
	RecordOutcome(c fiber.Ctx) error
	ListOutcomes(c fiber.Ctx) error
}

// LedgerHandler handles truth-ledger HTTP requests
type LedgerHandler struct {
	base
	ledgerFlow businessflow.LedgerFlow
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(tenantFlow businessflow.TenantFlow, ledgerFlow businessflow.LedgerFlow) *LedgerHandler {
	return &LedgerHandler{
		base:       newBase(tenantFlow),
		ledgerFlow: ledgerFlow,
	}
}

// AppendBehavioralEvent records one behavioral fact
func (h *LedgerHandler) AppendBehavioralEvent(c fiber.Ctx) error {
	var req dto.AppendBehavioralEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/behavioral-events")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.ledgerFlow.AppendBehavioralEvent(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsProfileNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Profile not found", "PROFILE_NOT_FOUND", nil)
		}

		log.Println("Behavioral event append failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Behavioral event append failed", "LEDGER_APPEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Behavioral event appended successfully", result)
}

// AppendBehavioralEvents records a batch of behavioral facts atomically
func (h *LedgerHandler) AppendBehavioralEvents(c fiber.Ctx) error {
	var reqs []dto.AppendBehavioralEventRequest
	if err := c.Bind().JSON(&reqs); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	for i := range reqs {
		if err := h.validateStruct(c, &reqs[i]); err != nil {
			return err
		}
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/behavioral-events/batch")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	appended, err := h.ledgerFlow.AppendBehavioralEvents(ctx, reqs, metadata)
	if err != nil {
		log.Println("Behavioral event batch append failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Behavioral event batch append failed", "LEDGER_APPEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Behavioral events appended successfully", fiber.Map{
		"appended": appended,
	})
}

// ListBehavioralEvents reads a time window of the behavioral ledger
func (h *LedgerHandler) ListBehavioralEvents(c fiber.Ctx) error {
	req, err := h.windowRequest(c)
	if err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/behavioral-events")
	if err != nil {
		return err
	}

	result, err := h.ledgerFlow.ListBehavioralEvents(ctx, req)
	if err != nil {
		return h.windowError(c, err, "Behavioral event read failed", "LEDGER_READ_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Behavioral events retrieved successfully", result)
}

// RecordDelivery appends the pending delivery row before an external send
func (h *LedgerHandler) RecordDelivery(c fiber.Ctx) error {
	var req dto.RecordDeliveryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/deliveries")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.ledgerFlow.RecordDelivery(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsProfileNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Profile not found", "PROFILE_NOT_FOUND", nil)
		}
		if businessflow.IsMarketingEventNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Marketing event not found", "EVENT_NOT_FOUND", nil)
		}
		if businessflow.IsChannelNotConsented(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Profile has not consented to the channel", "CHANNEL_NOT_CONSENTED", nil)
		}
		if businessflow.IsNoContactPoint(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "Profile has no contact point for the channel", "NO_CONTACT_POINT", nil)
		}

		log.Println("Delivery record failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Delivery record failed", "LEDGER_APPEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Delivery recorded successfully", result)
}

// RecordDeliveryResult appends the provider-response row
func (h *LedgerHandler) RecordDeliveryResult(c fiber.Ctx) error {
	var req dto.RecordDeliveryResultRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/deliveries/result")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.ledgerFlow.RecordDeliveryResult(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsDeliveryAttemptNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Delivery attempt not found", "DELIVERY_NOT_FOUND", nil)
		}
		if businessflow.IsSupersededNotPending(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Superseded delivery attempt is not pending", "DELIVERY_NOT_PENDING", nil)
		}

		log.Println("Delivery result record failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Delivery result record failed", "LEDGER_APPEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Delivery result recorded successfully", result)
}

// ListDeliveries reads a time window of the delivery ledger
func (h *LedgerHandler) ListDeliveries(c fiber.Ctx) error {
	req, err := h.windowRequest(c)
	if err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/deliveries")
	if err != nil {
		return err
	}

	result, err := h.ledgerFlow.ListDeliveries(ctx, req)
	if err != nil {
		return h.windowError(c, err, "Delivery read failed", "LEDGER_READ_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deliveries retrieved successfully", result)
}

// ExportDeliveries streams a delivery window as an xlsx workbook
func (h *LedgerHandler) ExportDeliveries(c fiber.Ctx) error {
	req, err := h.windowRequest(c)
	if err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/deliveries/export")
	if err != nil {
		return err
	}

	workbook, err := h.ledgerFlow.ExportDeliveryReport(ctx, req)
	if err != nil {
		return h.windowError(c, err, "Delivery export failed", "EXPORT_FAILED")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="deliveries.xlsx"`)
	return c.Send(workbook)
}

// RecordOutcome attributes a result back to a delivery attempt
func (h *LedgerHandler) RecordOutcome(c fiber.Ctx) error {
	var req dto.RecordOutcomeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/outcomes")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.ledgerFlow.RecordOutcome(ctx, &req, metadata)
	if err != nil {
		if businessflow.IsDeliveryAttemptNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Delivery attempt not found", "DELIVERY_NOT_FOUND", nil)
		}

		log.Println("Outcome record failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Outcome record failed", "LEDGER_APPEND_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Outcome recorded successfully", result)
}

// ListOutcomes reads a time window of the outcome ledger
func (h *LedgerHandler) ListOutcomes(c fiber.Ctx) error {
	req, err := h.windowRequest(c)
	if err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/ledger/outcomes")
	if err != nil {
		return err
	}

	result, err := h.ledgerFlow.ListOutcomes(ctx, req)
	if err != nil {
		return h.windowError(c, err, "Outcome read failed", "LEDGER_READ_FAILED")
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Outcomes retrieved successfully", result)
}

func (h *LedgerHandler) windowRequest(c fiber.Ctx) (*dto.LedgerWindowRequest, error) {
	var req dto.LedgerWindowRequest
	if err := c.Bind().Query(&req); err != nil {
		return nil, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	return &req, nil
}

func (h *LedgerHandler) windowError(c fiber.Ctx, err error, message, code string) error {
	if businessflow.IsInvalidPage(err) || businessflow.IsInvalidPageSize(err) || businessflow.IsStartDateAfterEndDate(err) {
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_WINDOW", nil)
	}

	log.Println(message, err)
	return h.ErrorResponse(c, fiber.StatusInternalServerError, message, code, nil)
}
