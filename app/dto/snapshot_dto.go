package dto

// CreateSnapshotRequest freezes a segment's membership under a caller-chosen
// snapshot ID. Re-submitting an existing ID is an idempotent no-op.
type CreateSnapshotRequest struct {
	SnapshotID  string   `json:"snapshot_id" validate:"required,max=120"`
	SegmentName string   `json:"segment_name" validate:"required,max=255"`
	Version     string   `json:"version,omitempty" validate:"omitempty,max=60"`
	Labels      []string `json:"labels,omitempty"`
	JourneyID   *string  `json:"journey_id,omitempty" validate:"omitempty,max=120"`
}

// SnapshotDTO is the external representation of a frozen snapshot header
type SnapshotDTO struct {
	SnapshotID  string   `json:"snapshot_id"`
	SegmentName string   `json:"segment_name"`
	Version     string   `json:"version,omitempty"`
	Labels      []string `json:"labels,omitempty"`
	JourneyID   *string  `json:"journey_id,omitempty"`
	MemberCount int64    `json:"member_count"`
	CreatedAt   string   `json:"created_at"`
}

// SnapshotMembersDTO carries the frozen member set of a snapshot
type SnapshotMembersDTO struct {
	SnapshotID string  `json:"snapshot_id"`
	ProfileIDs []int64 `json:"profile_ids"`
}
