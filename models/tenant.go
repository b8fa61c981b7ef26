// Package models contains domain entities and business models for the activation core
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TenantStatus represents the lifecycle status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusArchived  TenantStatus = "archived"
)

// String returns the string representation of the status
func (s TenantStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantStatusActive, TenantStatusSuspended, TenantStatusArchived:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for TenantStatus
func (s *TenantStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = TenantStatus(v)
	case []byte:
		*s = TenantStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into TenantStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for TenantStatus
func (s TenantStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid TenantStatus: %s", s)
	}
	return string(s), nil
}

// Tenant is the root isolation domain. Every other entity carries a tenant
// identifier referencing a row in this table; the table itself is the single
// bootstrap exception to tenant-scoped filtering.
type Tenant struct {
	ID     uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string       `gorm:"size:120;not null;uniqueIndex:uk_tenants_name" json:"name"`
	Status TenantStatus `gorm:"type:tenant_status;not null;default:'active';index:idx_tenants_status" json:"status"`

	// API credential material for issuing tenant-bound tokens
	APISecretHash string `gorm:"size:255;not null" json:"-"` // Never serialize secret hash

	CreatedAt  time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_tenants_created_at" json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate is called before creating a new record
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TenantStatusActive
	}
	return nil
}

// IsActive reports whether the tenant may be bound into an isolation context
func (t *Tenant) IsActive() bool {
	return t.Status == TenantStatusActive
}

// IsVisible reports whether scoped operations may observe this tenant's data.
// Archived tenants become invisible without physical deletion.
func (t *Tenant) IsVisible() bool {
	return t.Status != TenantStatusArchived
}

// CanTransitionTo checks if the tenant can transition to the given status
func (t *Tenant) CanTransitionTo(newStatus TenantStatus) bool {
	switch t.Status {
	case TenantStatusActive:
		return newStatus == TenantStatusSuspended || newStatus == TenantStatusArchived
	case TenantStatusSuspended:
		return newStatus == TenantStatusActive || newStatus == TenantStatusArchived
	default:
		return false
	}
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID            *uuid.UUID
	Name          *string
	Status        *TenantStatus
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
