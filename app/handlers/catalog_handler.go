package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/models"
)

// CatalogHandlerInterface defines the contract for catalog handlers
type CatalogHandlerInterface interface {
	UpsertProfile(c fiber.Ctx) error
	GetProfile(c fiber.Ctx) error
	GetSegmentContacts(c fiber.Ctx) error
	CreateMarketingEvent(c fiber.Ctx) error
	UpdateMarketingEventContent(c fiber.Ctx) error
	GetMarketingEvent(c fiber.Ctx) error
	ListEmbeddingJobs(c fiber.Ctx) error
}

// CatalogHandler handles identity catalog HTTP requests
type CatalogHandler struct {
	base
	catalogFlow businessflow.CatalogFlow
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(tenantFlow businessflow.TenantFlow, catalogFlow businessflow.CatalogFlow) *CatalogHandler {
	return &CatalogHandler{
		base:        newBase(tenantFlow),
		catalogFlow: catalogFlow,
	}
}

// UpsertProfile handles full-state profile replacement keyed by external key
func (h *CatalogHandler) UpsertProfile(c fiber.Ctx) error {
	var req dto.UpsertProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/profiles")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.catalogFlow.UpsertProfile(ctx, &req, metadata)
	if err != nil {
		log.Println("Profile upsert failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Profile upsert failed", "PROFILE_UPSERT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile upserted successfully", result)
}

// GetProfile returns a profile by its external key
func (h *CatalogHandler) GetProfile(c fiber.Ctx) error {
	externalKey := c.Params("key")
	if externalKey == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "External key is required", "MISSING_EXTERNAL_KEY", nil)
	}

	ctx, err := h.boundContext(c, "/api/v1/profiles/:key")
	if err != nil {
		return err
	}

	result, err := h.catalogFlow.GetProfile(ctx, externalKey)
	if err != nil {
		if businessflow.IsProfileNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Profile not found", "PROFILE_NOT_FOUND", nil)
		}

		log.Println("Profile lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Profile lookup failed", "PROFILE_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved successfully", result)
}

// GetSegmentContacts returns consent-cleared contact points for a segment
func (h *CatalogHandler) GetSegmentContacts(c fiber.Ctx) error {
	segment := c.Params("segment")
	if segment == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Segment is required", "MISSING_SEGMENT", nil)
	}

	channel := models.Channel(c.Query("channel"))
	if !channel.Valid() {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Channel must be one of: email, sms, push", "INVALID_CHANNEL", nil)
	}

	ctx, err := h.boundContext(c, "/api/v1/segments/:segment/contacts")
	if err != nil {
		return err
	}

	result, err := h.catalogFlow.SegmentContactPoints(ctx, segment, channel)
	if err != nil {
		log.Println("Segment contact extraction failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Segment contact extraction failed", "SEGMENT_CONTACTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Segment contacts retrieved successfully", fiber.Map{
		"segment":  segment,
		"channel":  string(channel),
		"contacts": result,
	})
}

// CreateMarketingEvent registers a definitional action in the catalog
func (h *CatalogHandler) CreateMarketingEvent(c fiber.Ctx) error {
	var req dto.CreateMarketingEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/marketing-events")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.catalogFlow.CreateMarketingEvent(ctx, &req, metadata)
	if err != nil {
		log.Println("Marketing event creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Marketing event creation failed", "EVENT_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Marketing event created successfully", result)
}

// UpdateMarketingEventContent edits embeddable content; identity never changes
func (h *CatalogHandler) UpdateMarketingEventContent(c fiber.Ctx) error {
	eventID := c.Params("id")
	if eventID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Event ID is required", "MISSING_EVENT_ID", nil)
	}

	var req dto.UpdateMarketingEventContentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/marketing-events/:id/content")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.catalogFlow.UpdateMarketingEventContent(ctx, eventID, &req, metadata)
	if err != nil {
		if businessflow.IsMarketingEventNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Marketing event not found", "EVENT_NOT_FOUND", nil)
		}
		if businessflow.IsContentUpdateEmpty(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one content field must be provided", "EVENT_UPDATE_EMPTY", nil)
		}

		log.Println("Marketing event content update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Marketing event content update failed", "EVENT_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Marketing event content updated successfully", result)
}

// ListEmbeddingJobs exposes the enrichment queue for operational inspection
func (h *CatalogHandler) ListEmbeddingJobs(c fiber.Ctx) error {
	var req dto.ListEmbeddingJobsRequest
	if err := c.Bind().Query(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/enrichment/jobs")
	if err != nil {
		return err
	}

	result, err := h.catalogFlow.ListEmbeddingJobs(ctx, &req)
	if err != nil {
		log.Println("Embedding job listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Embedding job listing failed", "JOB_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Embedding jobs retrieved successfully", result)
}

// GetMarketingEvent returns a marketing event by its content address
func (h *CatalogHandler) GetMarketingEvent(c fiber.Ctx) error {
	eventID := c.Params("id")
	if eventID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Event ID is required", "MISSING_EVENT_ID", nil)
	}

	ctx, err := h.boundContext(c, "/api/v1/marketing-events/:id")
	if err != nil {
		return err
	}

	result, err := h.catalogFlow.GetMarketingEvent(ctx, eventID)
	if err != nil {
		if businessflow.IsMarketingEventNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Marketing event not found", "EVENT_NOT_FOUND", nil)
		}

		log.Println("Marketing event lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Marketing event lookup failed", "EVENT_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Marketing event retrieved successfully", result)
}
