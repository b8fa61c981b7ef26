package handlers

import (
	"log"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/kavehjm/Simorgh/app/dto"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/models"
)

// TenantHandlerInterface defines the contract for tenant handlers
type TenantHandlerInterface interface {
	CreateTenant(c fiber.Ctx) error
	IssueToken(c fiber.Ctx) error
	UpdateStatus(c fiber.Ctx) error
	GetTenant(c fiber.Ctx) error
}

// TenantHandler handles tenant registry HTTP requests (the control plane)
type TenantHandler struct {
	base
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantFlow businessflow.TenantFlow) *TenantHandler {
	return &TenantHandler{
		base: newBase(tenantFlow),
	}
}

// CreateTenant handles workspace registration
func (h *TenantHandler) CreateTenant(c fiber.Ctx) error {
	var req dto.CreateTenantRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.tenantFlow.CreateTenant(h.requestContext(c, "/api/v1/tenants"), &req, metadata)
	if err != nil {
		if businessflow.IsTenantNameTaken(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Tenant name already exists", "TENANT_NAME_TAKEN", nil)
		}

		log.Println("Tenant creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Tenant creation failed", "TENANT_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Tenant created successfully", result)
}

// IssueToken exchanges a tenant API secret for a bearer token
func (h *TenantHandler) IssueToken(c fiber.Ctx) error {
	var req dto.TenantTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.tenantFlow.IssueToken(h.requestContext(c, "/api/v1/tenants/token"), &req, metadata)
	if err != nil {
		if businessflow.IsTenantNotFound(err) || businessflow.IsIncorrectAPISecret(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid tenant credentials", "INVALID_CREDENTIALS", nil)
		}
		if businessflow.IsTenantInactive(err) {
			return h.ErrorResponse(c, fiber.StatusForbidden, "Tenant is not active", "TENANT_INACTIVE", nil)
		}

		log.Println("Token issuance failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Token issuance failed", "TOKEN_ISSUE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Token issued successfully", result)
}

// UpdateStatus moves a workspace through its lifecycle
func (h *TenantHandler) UpdateStatus(c fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant ID", "INVALID_TENANT_ID", nil)
	}

	var req dto.UpdateTenantStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validateStruct(c, &req); err != nil {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.tenantFlow.UpdateStatus(h.requestContext(c, "/api/v1/tenants/:id/status"), tenantID, models.TenantStatus(req.Status), metadata)
	if err != nil {
		if businessflow.IsTenantNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidTenantStatus(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Invalid status transition", "TENANT_STATUS_INVALID", nil)
		}

		log.Println("Tenant status update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Tenant status update failed", "TENANT_STATUS_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tenant status updated successfully", result)
}

// GetTenant returns a workspace record
func (h *TenantHandler) GetTenant(c fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid tenant ID", "INVALID_TENANT_ID", nil)
	}

	result, err := h.tenantFlow.GetTenant(h.requestContext(c, "/api/v1/tenants/:id"), tenantID)
	if err != nil {
		if businessflow.IsTenantNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}

		log.Println("Tenant lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Tenant lookup failed", "TENANT_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Tenant retrieved successfully", result)
}
