// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/app/middleware"
	businessflow "github.com/kavehjm/Simorgh/business_flow"
	"github.com/kavehjm/Simorgh/utils"
)

const defaultRequestTimeout = 30 * time.Second

// base carries the plumbing every handler needs: validation, the standard
// response envelope, and construction of the tenant-bound request context.
type base struct {
	tenantFlow businessflow.TenantFlow
	validator  *validator.Validate
}

func newBase(tenantFlow businessflow.TenantFlow) base {
	return base{
		tenantFlow: tenantFlow,
		validator:  validator.New(),
	}
}

func (b *base) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (b *base) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (b *base) validateStruct(c fiber.Ctx, req any) error {
	if err := b.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return b.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return nil
}

// requestContext creates a context with request-scoped values for observability and timeout
func (b *base) requestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), defaultRequestTimeout)

	ctx = context.WithValue(ctx, utils.RequestIDKey, c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.CancelFuncKey, cancel) // Stored for cleanup

	return ctx
}

// boundContext builds the request context and binds the authenticated tenant
// into it. Every data-plane handler goes through this gate; a request with no
// authenticated active tenant never obtains a scoped context.
func (b *base) boundContext(c fiber.Ctx, endpoint string) (context.Context, error) {
	tenantID, ok := middleware.GetTenantIDFromContext(c)
	if !ok {
		return nil, b.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found in context", "MISSING_TENANT_ID", nil)
	}

	ctx, err := b.tenantFlow.Bind(b.requestContext(c, endpoint), tenantID)
	if err != nil {
		if businessflow.IsTenantNotFound(err) {
			return nil, b.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}
		if businessflow.IsTenantInactive(err) {
			return nil, b.ErrorResponse(c, fiber.StatusForbidden, "Tenant is not active", "TENANT_INACTIVE", nil)
		}
		return nil, b.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to bind tenant", "TENANT_BIND_FAILED", nil)
	}

	return ctx, nil
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "e164":
		return "Phone number must be in E.164 format"
	case "uuid":
		return err.Field() + " must be a valid UUID"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
