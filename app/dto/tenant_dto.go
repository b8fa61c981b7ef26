package dto

// CreateTenantRequest carries the fields needed to register a workspace
type CreateTenantRequest struct {
	Name string `json:"name" validate:"required,min=3,max=255"`
}

// CreateTenantResponse returns the new workspace and its API secret. The
// secret is shown exactly once; only its hash is stored.
type CreateTenantResponse struct {
	Tenant    TenantDTO `json:"tenant"`
	APISecret string    `json:"api_secret"`
}

// TenantTokenRequest exchanges a tenant's API secret for a bearer token
type TenantTokenRequest struct {
	TenantID  string `json:"tenant_id" validate:"required,uuid"`
	APISecret string `json:"api_secret" validate:"required"`
}

// TenantTokenResponse carries the issued bearer token
type TenantTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// UpdateTenantStatusRequest moves a workspace through its lifecycle
type UpdateTenantStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active suspended archived"`
}

// TenantDTO is the external representation of a workspace
type TenantDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"created_at"`
	ArchivedAt *string `json:"archived_at,omitempty"`
}
