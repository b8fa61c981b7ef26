package businessflow

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/app/services"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	"gorm.io/gorm"
)

const (
	tenantStatusCacheKeyPrefix = "tenant:status:"
	tenantStatusCacheTTL       = 5 * time.Minute
)

// TenantFlow handles workspace registration, lifecycle, and token issuance.
// Binding a tenant into a request context goes through here so that every
// data-plane operation downstream is scoped or fails closed.
type TenantFlow interface {
	CreateTenant(ctx context.Context, req *dto.CreateTenantRequest, metadata *ClientMetadata) (*dto.CreateTenantResponse, error)
	IssueToken(ctx context.Context, req *dto.TenantTokenRequest, metadata *ClientMetadata) (*dto.TenantTokenResponse, error)
	UpdateStatus(ctx context.Context, tenantID uuid.UUID, status models.TenantStatus, metadata *ClientMetadata) (*dto.TenantDTO, error)
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*dto.TenantDTO, error)
	Bind(ctx context.Context, tenantID uuid.UUID) (context.Context, error)
}

// TenantFlowImpl implements the tenant business flow
type TenantFlowImpl struct {
	tenantRepo   repository.TenantRepository
	tokenService services.TokenService
	redisClient  *redis.Client
	db           *gorm.DB
}

// NewTenantFlow creates a new tenant flow instance
func NewTenantFlow(
	tenantRepo repository.TenantRepository,
	tokenService services.TokenService,
	redisClient *redis.Client,
	db *gorm.DB,
) TenantFlow {
	return &TenantFlowImpl{
		tenantRepo:   tenantRepo,
		tokenService: tokenService,
		redisClient:  redisClient,
		db:           db,
	}
}

// CreateTenant registers a new workspace and returns its API secret exactly
// once. Only the bcrypt hash of the secret is stored.
func (f *TenantFlowImpl) CreateTenant(ctx context.Context, req *dto.CreateTenantRequest, metadata *ClientMetadata) (*dto.CreateTenantResponse, error) {
	existing, err := f.tenantRepo.ByName(ctx, req.Name)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to check tenant name", err)
	}
	if existing != nil {
		return nil, NewBusinessError("TENANT_NAME_TAKEN", "Tenant name already exists", ErrTenantNameTaken)
	}

	secret, err := generateAPISecret()
	if err != nil {
		return nil, NewBusinessError("SECRET_GENERATION_FAILED", "Failed to generate API secret", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("SECRET_HASH_FAILED", "Failed to hash API secret", err)
	}

	tenant := &models.Tenant{
		Name:          req.Name,
		Status:        models.TenantStatusActive,
		APISecretHash: string(hash),
	}
	if err := f.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, NewBusinessError("TENANT_CREATE_FAILED", "Failed to create tenant", err)
	}

	return &dto.CreateTenantResponse{
		Tenant:    ToTenantDTO(*tenant),
		APISecret: secret,
	}, nil
}

// IssueToken exchanges a tenant's API secret for a bearer token. Suspended
// and archived tenants cannot obtain tokens.
func (f *TenantFlowImpl) IssueToken(ctx context.Context, req *dto.TenantTokenRequest, metadata *ClientMetadata) (*dto.TenantTokenResponse, error) {
	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		return nil, NewBusinessError("TENANT_ID_INVALID", "Tenant ID is not a valid UUID", err)
	}

	tenant, err := f.tenantRepo.ByID(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
	}
	if !tenant.IsActive() {
		return nil, NewBusinessError("TENANT_INACTIVE", "Tenant is not active", ErrTenantInactive)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(tenant.APISecretHash), []byte(req.APISecret)); err != nil {
		return nil, NewBusinessError("INCORRECT_API_SECRET", "Incorrect API secret", ErrIncorrectAPISecret)
	}

	token, expiresIn, err := f.tokenService.GenerateTenantToken(tenant.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate token", err)
	}

	return &dto.TenantTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	}, nil
}

// UpdateStatus moves a workspace through its lifecycle. Archival is terminal;
// the cached status entry is dropped so the change takes effect immediately.
func (f *TenantFlowImpl) UpdateStatus(ctx context.Context, tenantID uuid.UUID, status models.TenantStatus, metadata *ClientMetadata) (*dto.TenantDTO, error) {
	tenant, err := f.tenantRepo.ByID(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
	}
	if !tenant.CanTransitionTo(status) {
		return nil, NewBusinessErrorf("TENANT_STATUS_INVALID", "Cannot transition tenant from %s to %s", ErrInvalidTenantStatus, tenant.Status, status)
	}

	if err := f.tenantRepo.UpdateStatus(ctx, tenantID, status); err != nil {
		return nil, NewBusinessError("TENANT_STATUS_UPDATE_FAILED", "Failed to update tenant status", err)
	}

	f.dropCachedStatus(ctx, tenantID)

	updated, err := f.tenantRepo.ByID(ctx, tenantID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to reload tenant", err)
	}

	d := ToTenantDTO(*updated)
	return &d, nil
}

// GetTenant returns the workspace record
func (f *TenantFlowImpl) GetTenant(ctx context.Context, tenantID uuid.UUID) (*dto.TenantDTO, error) {
	tenant, err := f.tenantRepo.ByID(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
	}

	d := ToTenantDTO(*tenant)
	return &d, nil
}

// Bind validates the tenant and returns a context carrying its identifier.
// Only active tenants may be bound; everything downstream trusts this gate.
func (f *TenantFlowImpl) Bind(ctx context.Context, tenantID uuid.UUID) (context.Context, error) {
	status, cached := f.cachedStatus(ctx, tenantID)
	if !cached {
		tenant, err := f.tenantRepo.ByID(ctx, tenantID)
		if err != nil {
			return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to look up tenant", err)
		}
		if tenant == nil {
			return nil, NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
		}
		status = tenant.Status
		f.cacheStatus(ctx, tenantID, status)
	}

	if status != models.TenantStatusActive {
		return nil, NewBusinessError("TENANT_INACTIVE", "Tenant is not active", ErrTenantInactive)
	}

	return repository.WithTenant(ctx, tenantID), nil
}

func (f *TenantFlowImpl) cachedStatus(ctx context.Context, tenantID uuid.UUID) (models.TenantStatus, bool) {
	if f.redisClient == nil {
		return "", false
	}
	val, err := f.redisClient.Get(ctx, tenantStatusCacheKeyPrefix+tenantID.String()).Result()
	if err != nil {
		return "", false
	}
	status := models.TenantStatus(val)
	if !status.Valid() {
		return "", false
	}
	return status, true
}

func (f *TenantFlowImpl) cacheStatus(ctx context.Context, tenantID uuid.UUID, status models.TenantStatus) {
	if f.redisClient == nil {
		return
	}
	_ = f.redisClient.Set(ctx, tenantStatusCacheKeyPrefix+tenantID.String(), status.String(), tenantStatusCacheTTL).Err()
}

func (f *TenantFlowImpl) dropCachedStatus(ctx context.Context, tenantID uuid.UUID) {
	if f.redisClient == nil {
		return
	}
	_ = f.redisClient.Del(ctx, tenantStatusCacheKeyPrefix+tenantID.String()).Err()
}

// generateAPISecret produces a 256-bit hex-encoded credential
func generateAPISecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
