package handlers

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
)

// SnapshotHandlerInterface defines the contract for snapshot handlers
type SnapshotHandlerInterface interface {
	CreateSnapshot(c fiber.Ctx) error
	GetSnapshot(c fiber.Ctx) error
	GetMembers(c fiber.Ctx) error
	ListSnapshots(c fiber.Ctx) error
}

// SnapshotHandler handles segment snapshot HTTP requests
type SnapshotHandler struct {
	base
	snapshotFlow businessflow.SnapshotFlow
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(tenantFlow businessflow.TenantFlow, snapshotFlow businessflow.SnapshotFlow) *SnapshotHandler {
	return &SnapshotHandler{
		base:         newBase(tenantFlow),
		snapshotFlow: snapshotFlow,
	}
}

// CreateSnapshot freezes current segment membership under the caller's ID
func (h *SnapshotHandler) CreateSnapshot(c fiber.Ctx) error {
	var req dto.CreateSnapshotRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	ctx, err := h.boundContext(c, "/api/v1/snapshots")
	if err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.snapshotFlow.CreateSnapshot(ctx, &req, metadata)
	if err != nil {
		log.Println("Snapshot creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Snapshot creation failed", "SNAPSHOT_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Snapshot created successfully", result)
}

// GetSnapshot returns a frozen snapshot header
func (h *SnapshotHandler) GetSnapshot(c fiber.Ctx) error {
	snapshotID := c.Params("id")
	if snapshotID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Snapshot ID is required", "MISSING_SNAPSHOT_ID", nil)
	}

	ctx, err := h.boundContext(c, "/api/v1/snapshots/:id")
	if err != nil {
		return err
	}

	result, err := h.snapshotFlow.GetSnapshot(ctx, snapshotID)
	if err != nil {
		if businessflow.IsSnapshotNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Snapshot not found", "SNAPSHOT_NOT_FOUND", nil)
		}

		log.Println("Snapshot lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Snapshot lookup failed", "SNAPSHOT_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Snapshot retrieved successfully", result)
}

// GetMembers returns the frozen member set of a snapshot
func (h *SnapshotHandler) GetMembers(c fiber.Ctx) error {
	snapshotID := c.Params("id")
	if snapshotID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Snapshot ID is required", "MISSING_SNAPSHOT_ID", nil)
	}

	ctx, err := h.boundContext(c, "/api/v1/snapshots/:id/members")
	if err != nil {
		return err
	}

	result, err := h.snapshotFlow.GetMembers(ctx, snapshotID)
	if err != nil {
		if businessflow.IsSnapshotNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Snapshot not found", "SNAPSHOT_NOT_FOUND", nil)
		}

		log.Println("Snapshot member read failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Snapshot member read failed", "SNAPSHOT_MEMBERS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Snapshot members retrieved successfully", result)
}

// ListSnapshots returns snapshot headers, optionally filtered by segment
func (h *SnapshotHandler) ListSnapshots(c fiber.Ctx) error {
	ctx, err := h.boundContext(c, "/api/v1/snapshots")
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	result, err := h.snapshotFlow.ListSnapshots(ctx, c.Query("segment"), limit, offset)
	if err != nil {
		log.Println("Snapshot list failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Snapshot list failed", "SNAPSHOT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Snapshots retrieved successfully", result)
}
