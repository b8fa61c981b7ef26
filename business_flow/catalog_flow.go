package businessflow

import (
	"context"
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
)

// CatalogFlow handles the identity catalog: canonical customer profiles and
// definitional marketing events. Writes that touch embeddable content enqueue
// an enrichment job in the same transaction, so a committed content change
// always has a queued job behind it.
type CatalogFlow interface {
	UpsertProfile(ctx context.Context, req *dto.UpsertProfileRequest, metadata *ClientMetadata) (*dto.ProfileDTO, error)
	GetProfile(ctx context.Context, externalKey string) (*dto.ProfileDTO, error)
	AllowedChannel(ctx context.Context, profileID int64, channel models.Channel) (bool, error)
	SegmentContactPoints(ctx context.Context, segment string, channel models.Channel) ([]dto.ContactPointDTO, error)
	CreateMarketingEvent(ctx context.Context, req *dto.CreateMarketingEventRequest, metadata *ClientMetadata) (*dto.MarketingEventDTO, error)
	UpdateMarketingEventContent(ctx context.Context, eventID string, req *dto.UpdateMarketingEventContentRequest, metadata *ClientMetadata) (*dto.MarketingEventDTO, error)
	GetMarketingEvent(ctx context.Context, eventID string) (*dto.MarketingEventDTO, error)
	ListEmbeddingJobs(ctx context.Context, req *dto.ListEmbeddingJobsRequest) ([]dto.EmbeddingJobDTO, error)
}

// CatalogFlowImpl implements the catalog business flow
type CatalogFlowImpl struct {
	profileRepo repository.ProfileRepository
	eventRepo   repository.MarketingEventRepository
	jobRepo     repository.EmbeddingJobRepository
	db          *gorm.DB
}

// NewCatalogFlow creates a new catalog flow instance
func NewCatalogFlow(
	profileRepo repository.ProfileRepository,
	eventRepo repository.MarketingEventRepository,
	jobRepo repository.EmbeddingJobRepository,
	db *gorm.DB,
) CatalogFlow {
	return &CatalogFlowImpl{
		profileRepo: profileRepo,
		eventRepo:   eventRepo,
		jobRepo:     jobRepo,
		db:          db,
	}
}

// UpsertProfile creates or fully replaces a profile keyed by its external
// key. The request is the whole desired state; concurrent upserts resolve
// last-writer-wins at the row level.
func (f *CatalogFlowImpl) UpsertProfile(ctx context.Context, req *dto.UpsertProfileRequest, metadata *ClientMetadata) (*dto.ProfileDTO, error) {
	tenantID, ok := repository.TenantFrom(ctx)
	if !ok {
		return nil, NewBusinessError("TENANT_CONTEXT_MISSING", "No tenant bound to context", ErrTenantContextMissing)
	}

	profile := profileFromUpsert(req)
	profile.TenantID = tenantID

	existing, err := f.profileRepo.ByExternalKey(ctx, req.ExternalKey)
	if err != nil {
		return nil, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to look up profile", err)
	}

	if existing == nil {
		if err := f.profileRepo.Save(ctx, profile); err != nil {
			return nil, NewBusinessError("PROFILE_CREATE_FAILED", "Failed to create profile", err)
		}
	} else {
		profile.ID = existing.ID
		profile.CreatedAt = existing.CreatedAt
		if err := f.profileRepo.Replace(ctx, profile); err != nil {
			return nil, NewBusinessError("PROFILE_REPLACE_FAILED", "Failed to replace profile", err)
		}
	}

	saved, err := f.profileRepo.ByExternalKey(ctx, req.ExternalKey)
	if err != nil || saved == nil {
		return nil, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to reload profile", err)
	}

	d := ToProfileDTO(*saved)
	return &d, nil
}

// GetProfile returns a profile by its external key
func (f *CatalogFlowImpl) GetProfile(ctx context.Context, externalKey string) (*dto.ProfileDTO, error) {
	profile, err := f.profileRepo.ByExternalKey(ctx, externalKey)
	if err != nil {
		return nil, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to look up profile", err)
	}
	if profile == nil {
		return nil, NewBusinessError("PROFILE_NOT_FOUND", "Profile not found", ErrProfileNotFound)
	}

	d := ToProfileDTO(*profile)
	return &d, nil
}

// AllowedChannel reports whether a profile has opted in to a channel.
// Absent consent state reads as denied.
func (f *CatalogFlowImpl) AllowedChannel(ctx context.Context, profileID int64, channel models.Channel) (bool, error) {
	profile, err := f.profileRepo.ByID(ctx, profileID)
	if err != nil {
		return false, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to look up profile", err)
	}
	if profile == nil {
		return false, NewBusinessError("PROFILE_NOT_FOUND", "Profile not found", ErrProfileNotFound)
	}

	return profile.AllowsChannel(channel), nil
}

// SegmentContactPoints returns one reachable address per consenting member of
// a segment. Profiles without consent, without an address on the channel, or
// with an address that fails the channel's format are silently skipped; the
// dispatcher records those as failed attempts only when it actually tried them.
func (f *CatalogFlowImpl) SegmentContactPoints(ctx context.Context, segment string, channel models.Channel) ([]dto.ContactPointDTO, error) {
	profiles, err := f.profileRepo.BySegment(ctx, segment)
	if err != nil {
		return nil, NewBusinessError("SEGMENT_READ_FAILED", "Failed to read segment members", err)
	}

	contacts := make([]dto.ContactPointDTO, 0, len(profiles))
	for _, p := range profiles {
		if !p.AllowsChannel(channel) {
			continue
		}
		address := contactAddress(p, channel)
		if address == "" || !validContactAddress(channel, address) {
			continue
		}
		contacts = append(contacts, dto.ContactPointDTO{
			ProfileID:   p.ID,
			ExternalKey: p.ExternalKey,
			Channel:     string(channel),
			Address:     address,
		})
	}

	return contacts, nil
}

// CreateMarketingEvent registers a definitional action. The content address
// is computed at creation and never changes afterward. When the event carries
// embeddable content, an enrichment job is enqueued in the same transaction.
func (f *CatalogFlowImpl) CreateMarketingEvent(ctx context.Context, req *dto.CreateMarketingEventRequest, metadata *ClientMetadata) (*dto.MarketingEventDTO, error) {
	tenantID, ok := repository.TenantFrom(ctx)
	if !ok {
		return nil, NewBusinessError("TENANT_CONTEXT_MISSING", "No tenant bound to context", ErrTenantContextMissing)
	}

	event := &models.MarketingEvent{
		TenantID:   tenantID,
		Name:       req.Name,
		EventType:  req.EventType,
		Channel:    models.Channel(req.Channel),
		CampaignID: req.CampaignID,
		Subject:    req.Subject,
		Body:       req.Body,
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.eventRepo.Save(txCtx, event); err != nil {
			return err
		}
		if event.EmbeddableText() != "" {
			if _, err := f.jobRepo.Enqueue(txCtx, tenantID, event.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("EVENT_CREATE_FAILED", "Failed to create marketing event", err)
	}

	d := ToMarketingEventDTO(*event)
	return &d, nil
}

// UpdateMarketingEventContent edits the embeddable fields of an event in
// place. Identity is untouched; the stale embedding is invalidated and a
// fresh enrichment job enqueued atomically with the content write.
func (f *CatalogFlowImpl) UpdateMarketingEventContent(ctx context.Context, eventID string, req *dto.UpdateMarketingEventContentRequest, metadata *ClientMetadata) (*dto.MarketingEventDTO, error) {
	tenantID, ok := repository.TenantFrom(ctx)
	if !ok {
		return nil, NewBusinessError("TENANT_CONTEXT_MISSING", "No tenant bound to context", ErrTenantContextMissing)
	}
	if req.Subject == nil && req.Body == nil {
		return nil, NewBusinessError("EVENT_UPDATE_EMPTY", "At least one content field must be provided", ErrContentUpdateEmpty)
	}

	event, err := f.eventRepo.ByID(ctx, eventID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to look up marketing event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Marketing event not found", ErrMarketingEventNotFound)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.eventRepo.UpdateContent(txCtx, eventID, req.Subject, req.Body); err != nil {
			return err
		}
		if _, err := f.jobRepo.Enqueue(txCtx, tenantID, eventID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("EVENT_UPDATE_FAILED", "Failed to update marketing event content", err)
	}

	updated, err := f.eventRepo.ByID(ctx, eventID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to reload marketing event", err)
	}

	d := ToMarketingEventDTO(*updated)
	return &d, nil
}

// GetMarketingEvent returns a marketing event by its content address
func (f *CatalogFlowImpl) GetMarketingEvent(ctx context.Context, eventID string) (*dto.MarketingEventDTO, error) {
	event, err := f.eventRepo.ByID(ctx, eventID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to look up marketing event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Marketing event not found", ErrMarketingEventNotFound)
	}

	d := ToMarketingEventDTO(*event)
	return &d, nil
}

// ListEmbeddingJobs exposes the enrichment queue for operational inspection
func (f *CatalogFlowImpl) ListEmbeddingJobs(ctx context.Context, req *dto.ListEmbeddingJobsRequest) ([]dto.EmbeddingJobDTO, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 100
	}

	filter := models.EmbeddingJobFilter{}
	if req.Status != "" {
		status := models.EmbeddingJobStatus(req.Status)
		filter.Status = &status
	}

	jobs, err := f.jobRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("JOB_LIST_FAILED", "Failed to list embedding jobs", err)
	}

	out := make([]dto.EmbeddingJobDTO, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ToEmbeddingJobDTO(*j))
	}
	return out, nil
}

func profileFromUpsert(req *dto.UpsertProfileRequest) *models.Profile {
	consents := models.ConsentMap{}
	for ch, allowed := range req.Consents {
		consents[models.Channel(ch)] = allowed
	}

	stats := req.EventStatistics
	if len(stats) == 0 {
		stats = json.RawMessage("{}")
	}

	return &models.Profile{
		ExternalKey:     req.ExternalKey,
		PrimaryEmail:    req.PrimaryEmail,
		PrimaryPhone:    req.PrimaryPhone,
		SecondaryEmails: pq.StringArray(req.SecondaryEmails),
		SecondaryPhones: pq.StringArray(req.SecondaryPhones),
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Segments:        pq.StringArray(req.Segments),
		JourneyMaps:     pq.StringArray(req.JourneyMaps),
		EventStatistics: stats,
		DataLabels:      pq.StringArray(req.DataLabels),
		Consents:        consents,
	}
}

func contactAddress(p *models.Profile, channel models.Channel) string {
	switch channel {
	case models.ChannelEmail:
		if p.PrimaryEmail != nil {
			return *p.PrimaryEmail
		}
	case models.ChannelSMS, models.ChannelPush:
		if p.PrimaryPhone != nil {
			return *p.PrimaryPhone
		}
	}
	return ""
}

var contactValidator = validator.New()

// validContactAddress checks an address against the channel's wire format:
// RFC 5322 for email, E.164 for sms and push
func validContactAddress(channel models.Channel, address string) bool {
	switch channel {
	case models.ChannelEmail:
		return contactValidator.Var(address, "email") == nil
	case models.ChannelSMS, models.ChannelPush:
		return contactValidator.Var(address, "e164") == nil
	default:
		return false
	}
}
