package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecisionRecordTransitions(t *testing.T) {
	t.Run("PendingMayTerminate", func(t *testing.T) {
		d := &DecisionRecord{Status: DecisionStatusPending}
		assert.True(t, d.CanTransitionTo(DecisionStatusCompleted))
		assert.True(t, d.CanTransitionTo(DecisionStatusFailed))
		assert.False(t, d.CanTransitionTo(DecisionStatusPending))
	})

	t.Run("TerminalStatesAreFinal", func(t *testing.T) {
		for _, status := range []DecisionStatus{DecisionStatusCompleted, DecisionStatusFailed} {
			d := &DecisionRecord{Status: status}
			assert.True(t, d.IsTerminal())
			assert.False(t, d.CanTransitionTo(DecisionStatusCompleted))
			assert.False(t, d.CanTransitionTo(DecisionStatusFailed))
			assert.False(t, d.CanTransitionTo(DecisionStatusPending))
		}
	})
}

func TestDecisionRecordRetryCeiling(t *testing.T) {
	d := &DecisionRecord{Status: DecisionStatusPending}

	for i := 0; i < DecisionAttemptCeiling; i++ {
		assert.True(t, d.CanRetry(), "attempt %d should be retryable", i)
		d.Attempts++
	}
	assert.False(t, d.CanRetry())
}

func TestTenantTransitions(t *testing.T) {
	t.Run("ActiveAndSuspendedFlipFreely", func(t *testing.T) {
		active := &Tenant{Status: TenantStatusActive}
		assert.True(t, active.CanTransitionTo(TenantStatusSuspended))
		assert.True(t, active.CanTransitionTo(TenantStatusArchived))

		suspended := &Tenant{Status: TenantStatusSuspended}
		assert.True(t, suspended.CanTransitionTo(TenantStatusActive))
		assert.True(t, suspended.CanTransitionTo(TenantStatusArchived))
	})

	t.Run("ArchivedIsTerminal", func(t *testing.T) {
		archived := &Tenant{Status: TenantStatusArchived}
		assert.False(t, archived.CanTransitionTo(TenantStatusActive))
		assert.False(t, archived.CanTransitionTo(TenantStatusSuspended))
		assert.False(t, archived.IsActive())
		assert.False(t, archived.IsVisible())
	})

	t.Run("OnlyActiveBinds", func(t *testing.T) {
		assert.True(t, (&Tenant{Status: TenantStatusActive}).IsActive())
		assert.False(t, (&Tenant{Status: TenantStatusSuspended}).IsActive())
		assert.True(t, (&Tenant{Status: TenantStatusSuspended}).IsVisible())
	})
}
