package businessflow

import (
	"context"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
)

// SnapshotFlow freezes segment membership into immutable snapshots. A
// snapshot is the auditable answer to "who was in this segment when the
// decision was made"; once written it never changes.
type SnapshotFlow interface {
	CreateSnapshot(ctx context.Context, req *dto.CreateSnapshotRequest, metadata *ClientMetadata) (*dto.SnapshotDTO, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*dto.SnapshotDTO, error)
	GetMembers(ctx context.Context, snapshotID string) (*dto.SnapshotMembersDTO, error)
	ListSnapshots(ctx context.Context, segmentName string, limit, offset int) ([]dto.SnapshotDTO, error)
}

// SnapshotFlowImpl implements the snapshot business flow
type SnapshotFlowImpl struct {
	snapshotRepo repository.SnapshotRepository
	profileRepo  repository.ProfileRepository
}

// NewSnapshotFlow creates a new snapshot flow instance
func NewSnapshotFlow(
	snapshotRepo repository.SnapshotRepository,
	profileRepo repository.ProfileRepository,
) SnapshotFlow {
	return &SnapshotFlowImpl{
		snapshotRepo: snapshotRepo,
		profileRepo:  profileRepo,
	}
}

// CreateSnapshot evaluates the segment definition against current membership
// and freezes the result under the caller's snapshot ID. Submitting an ID
// that already exists returns the original frozen snapshot unchanged; the
// current membership is not re-evaluated.
func (f *SnapshotFlowImpl) CreateSnapshot(ctx context.Context, req *dto.CreateSnapshotRequest, metadata *ClientMetadata) (*dto.SnapshotDTO, error) {
	definition := models.SegmentDefinition{
		SegmentName: req.SegmentName,
		Version:     req.Version,
		Labels:      req.Labels,
		JourneyID:   req.JourneyID,
	}

	members, err := f.evaluate(ctx, definition)
	if err != nil {
		return nil, err
	}

	snapshot := &models.SegmentSnapshot{
		SnapshotID:  req.SnapshotID,
		SegmentName: req.SegmentName,
		Definition:  definition,
	}
	if err := f.snapshotRepo.CreateWithMembers(ctx, snapshot, members); err != nil {
		return nil, NewBusinessError("SNAPSHOT_CREATE_FAILED", "Failed to create snapshot", err)
	}

	d := ToSnapshotDTO(*snapshot)
	return &d, nil
}

// GetSnapshot returns a frozen snapshot header
func (f *SnapshotFlowImpl) GetSnapshot(ctx context.Context, snapshotID string) (*dto.SnapshotDTO, error) {
	snapshot, err := f.snapshotRepo.ByID(ctx, snapshotID)
	if err != nil {
		return nil, NewBusinessError("SNAPSHOT_LOOKUP_FAILED", "Failed to look up snapshot", err)
	}
	if snapshot == nil {
		return nil, NewBusinessError("SNAPSHOT_NOT_FOUND", "Snapshot not found", ErrSnapshotNotFound)
	}

	d := ToSnapshotDTO(*snapshot)
	return &d, nil
}

// GetMembers returns the frozen member set of a snapshot
func (f *SnapshotFlowImpl) GetMembers(ctx context.Context, snapshotID string) (*dto.SnapshotMembersDTO, error) {
	snapshot, err := f.snapshotRepo.ByID(ctx, snapshotID)
	if err != nil {
		return nil, NewBusinessError("SNAPSHOT_LOOKUP_FAILED", "Failed to look up snapshot", err)
	}
	if snapshot == nil {
		return nil, NewBusinessError("SNAPSHOT_NOT_FOUND", "Snapshot not found", ErrSnapshotNotFound)
	}

	profileIDs, err := f.snapshotRepo.Members(ctx, snapshotID)
	if err != nil {
		return nil, NewBusinessError("SNAPSHOT_MEMBERS_FAILED", "Failed to load snapshot members", err)
	}

	return &dto.SnapshotMembersDTO{
		SnapshotID: snapshotID,
		ProfileIDs: profileIDs,
	}, nil
}

// ListSnapshots returns snapshot headers, optionally filtered by segment
func (f *SnapshotFlowImpl) ListSnapshots(ctx context.Context, segmentName string, limit, offset int) ([]dto.SnapshotDTO, error) {
	filter := models.SegmentSnapshotFilter{}
	if segmentName != "" {
		filter.SegmentName = &segmentName
	}

	snapshots, err := f.snapshotRepo.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, NewBusinessError("SNAPSHOT_LIST_FAILED", "Failed to list snapshots", err)
	}

	out := make([]dto.SnapshotDTO, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, ToSnapshotDTO(*s))
	}
	return out, nil
}

// evaluate resolves the definition to the profile IDs currently matching it.
// Segment membership is the base set; labels and journey narrow it further.
func (f *SnapshotFlowImpl) evaluate(ctx context.Context, definition models.SegmentDefinition) ([]int64, error) {
	profiles, err := f.profileRepo.BySegment(ctx, definition.SegmentName)
	if err != nil {
		return nil, NewBusinessError("SEGMENT_READ_FAILED", "Failed to evaluate segment definition", err)
	}

	members := make([]int64, 0, len(profiles))
	for _, p := range profiles {
		if !matchesLabels(p, definition.Labels) {
			continue
		}
		if definition.JourneyID != nil && !inJourney(p, *definition.JourneyID) {
			continue
		}
		members = append(members, p.ID)
	}

	return members, nil
}

func matchesLabels(p *models.Profile, labels []string) bool {
	for _, want := range labels {
		found := false
		for _, have := range p.DataLabels {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func inJourney(p *models.Profile, journeyID string) bool {
	for _, j := range p.JourneyMaps {
		if j == journeyID {
			return true
		}
	}
	return false
}
