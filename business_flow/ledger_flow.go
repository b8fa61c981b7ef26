package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/kavehjm/Simorgh/app/dto"
	"github.com/kavehjm/Simorgh/models"
	"github.com/kavehjm/Simorgh/repository"
	"github.com/kavehjm/Simorgh/utils"
)

const defaultLedgerPageSize = 100

// LedgerFlow handles the append-only truth ledgers: behavioral events,
// delivery attempts, and attributed outcomes. Nothing here updates or
// deletes; corrections are new rows that supersede earlier ones.
type LedgerFlow interface {
	AppendBehavioralEvent(ctx context.Context, req *dto.AppendBehavioralEventRequest, metadata *ClientMetadata) (*dto.BehavioralEventDTO, error)
	AppendBehavioralEvents(ctx context.Context, reqs []dto.AppendBehavioralEventRequest, metadata *ClientMetadata) (int, error)
	ListBehavioralEvents(ctx context.Context, req *dto.LedgerWindowRequest) ([]dto.BehavioralEventDTO, error)
	RecordDelivery(ctx context.Context, req *dto.RecordDeliveryRequest, metadata *ClientMetadata) (*dto.DeliveryAttemptDTO, error)
	RecordDeliveryResult(ctx context.Context, req *dto.RecordDeliveryResultRequest, metadata *ClientMetadata) (*dto.DeliveryAttemptDTO, error)
	ListDeliveries(ctx context.Context, req *dto.LedgerWindowRequest) ([]dto.DeliveryAttemptDTO, error)
	RecordOutcome(ctx context.Context, req *dto.RecordOutcomeRequest, metadata *ClientMetadata) (*dto.OutcomeDTO, error)
	ListOutcomes(ctx context.Context, req *dto.LedgerWindowRequest) ([]dto.OutcomeDTO, error)
	ExportDeliveryReport(ctx context.Context, req *dto.LedgerWindowRequest) ([]byte, error)
}

// LedgerFlowImpl implements the ledger business flow
type LedgerFlowImpl struct {
	behavioralRepo repository.BehavioralEventRepository
	deliveryRepo   repository.DeliveryAttemptRepository
	outcomeRepo    repository.OutcomeRepository
	profileRepo    repository.ProfileRepository
	eventRepo      repository.MarketingEventRepository
}

// NewLedgerFlow creates a new ledger flow instance
func NewLedgerFlow(
	behavioralRepo repository.BehavioralEventRepository,
	deliveryRepo repository.DeliveryAttemptRepository,
	outcomeRepo repository.OutcomeRepository,
	profileRepo repository.ProfileRepository,
	eventRepo repository.MarketingEventRepository,
) LedgerFlow {
	return &LedgerFlowImpl{
		behavioralRepo: behavioralRepo,
		deliveryRepo:   deliveryRepo,
		outcomeRepo:    outcomeRepo,
		profileRepo:    profileRepo,
		eventRepo:      eventRepo,
	}
}

// AppendBehavioralEvent records one behavioral fact about a profile
func (f *LedgerFlowImpl) AppendBehavioralEvent(ctx context.Context, req *dto.AppendBehavioralEventRequest, metadata *ClientMetadata) (*dto.BehavioralEventDTO, error) {
	profile, err := f.profileRepo.ByID(ctx, req.ProfileID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to look up profile", err)
	}
	if profile == nil {
		return nil, NewBusinessError("PROFILE_NOT_FOUND", "Profile not found", ErrProfileNotFound)
	}

	event := behavioralEventFromRequest(req)
	if err := f.behavioralRepo.Append(ctx, event); err != nil {
		return nil, NewBusinessError("LEDGER_APPEND_FAILED", "Failed to append behavioral event", err)
	}

	d := ToBehavioralEventDTO(*event)
	return &d, nil
}

// AppendBehavioralEvents records a batch of behavioral facts in one
// transaction and returns the number appended
func (f *LedgerFlowImpl) AppendBehavioralEvents(ctx context.Context, reqs []dto.AppendBehavioralEventRequest, metadata *ClientMetadata) (int, error) {
	if len(reqs) == 0 {
		return 0, nil
	}

	events := make([]*models.BehavioralEvent, 0, len(reqs))
	for i := range reqs {
		events = append(events, behavioralEventFromRequest(&reqs[i]))
	}

	if err := f.behavioralRepo.AppendBatch(ctx, events); err != nil {
		return 0, NewBusinessError("LEDGER_APPEND_FAILED", "Failed to append behavioral events", err)
	}

	return len(events), nil
}

// ListBehavioralEvents reads a time window of the behavioral ledger in
// stable occurrence order
func (f *LedgerFlowImpl) ListBehavioralEvents(ctx context.Context, req *dto.LedgerWindowRequest) ([]dto.BehavioralEventDTO, error) {
	limit, offset, err := windowPagination(req)
	if err != nil {
		return nil, err
	}

	filter := models.BehavioralEventFilter{
		ProfileID:      req.ProfileID,
		OccurredAfter:  req.From,
		OccurredBefore: req.To,
	}
	events, err := f.behavioralRepo.ByFilter(ctx, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LEDGER_READ_FAILED", "Failed to read behavioral events", err)
	}

	out := make([]dto.BehavioralEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, ToBehavioralEventDTO(*e))
	}
	return out, nil
}

// RecordDelivery appends the pending row the dispatcher writes before its
// external call
func (f *LedgerFlowImpl) RecordDelivery(ctx context.Context, req *dto.RecordDeliveryRequest, metadata *ClientMetadata) (*dto.DeliveryAttemptDTO, error) {
	profile, err := f.profileRepo.ByID(ctx, req.ProfileID)
	if err != nil {
		return nil, NewBusinessError("PROFILE_LOOKUP_FAILED", "Failed to look up profile", err)
	}
	if profile == nil {
		return nil, NewBusinessError("PROFILE_NOT_FOUND", "Profile not found", ErrProfileNotFound)
	}

	event, err := f.eventRepo.ByID(ctx, req.EventID)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOOKUP_FAILED", "Failed to look up marketing event", err)
	}
	if event == nil {
		return nil, NewBusinessError("EVENT_NOT_FOUND", "Marketing event not found", ErrMarketingEventNotFound)
	}

	channel := models.Channel(req.Channel)
	if !profile.AllowsChannel(channel) {
		return nil, NewBusinessError("CHANNEL_NOT_CONSENTED", "Profile has not consented to the channel", ErrChannelNotConsented)
	}

	address := contactAddress(profile, channel)
	if address == "" {
		return nil, NewBusinessError("NO_CONTACT_POINT", "Profile has no contact point for the channel", ErrNoContactPoint)
	}

	attempt := &models.DeliveryAttempt{
		ProfileID: req.ProfileID,
		EventID:   req.EventID,
		Channel:   channel,
		Status:    models.DeliveryStatusPending,
	}
	if !validContactAddress(channel, address) {
		// A malformed address still produces a ledger row; the attempt is
		// recorded as failed rather than rejected
		attempt.Status = models.DeliveryStatusFailed
		attempt.FailureReason = utils.ToPtr(ErrMalformedContactPoint.Error())
	}
	if err := f.deliveryRepo.Append(ctx, attempt); err != nil {
		return nil, NewBusinessError("LEDGER_APPEND_FAILED", "Failed to append delivery attempt", err)
	}

	d := ToDeliveryAttemptDTO(*attempt)
	return &d, nil
}

// RecordDeliveryResult appends the provider-response row. The pending row it
// supersedes stays in the ledger untouched; the chain of rows is the history.
func (f *LedgerFlowImpl) RecordDeliveryResult(ctx context.Context, req *dto.RecordDeliveryResultRequest, metadata *ClientMetadata) (*dto.DeliveryAttemptDTO, error) {
	pending, err := f.deliveryRepo.ByID(ctx, req.Supersedes)
	if err != nil {
		return nil, NewBusinessError("DELIVERY_LOOKUP_FAILED", "Failed to look up delivery attempt", err)
	}
	if pending == nil {
		return nil, NewBusinessError("DELIVERY_NOT_FOUND", "Delivery attempt not found", ErrDeliveryAttemptNotFound)
	}
	if pending.Status != models.DeliveryStatusPending {
		return nil, NewBusinessError("DELIVERY_NOT_PENDING", "Superseded delivery attempt is not pending", ErrSupersededNotPending)
	}

	attempt := &models.DeliveryAttempt{
		ProfileID:        pending.ProfileID,
		EventID:          pending.EventID,
		Channel:          pending.Channel,
		Status:           models.DeliveryStatus(req.Status),
		Supersedes:       &pending.ID,
		ProviderResponse: req.ProviderResponse,
		FailureReason:    req.FailureReason,
	}
	if err := f.deliveryRepo.Append(ctx, attempt); err != nil {
		return nil, NewBusinessError("LEDGER_APPEND_FAILED", "Failed to append delivery result", err)
	}

	d := ToDeliveryAttemptDTO(*attempt)
	return &d, nil
}

// ListDeliveries reads a time window of the delivery ledger
func (f *LedgerFlowImpl) ListDeliveries(ctx context.Context, req *dto.LedgerWindowRequest) ([]dto.DeliveryAttemptDTO, error) {
	limit, offset, err := windowPagination(req)
	if err != nil {
		return nil, err
	}

	filter := models.DeliveryAttemptFilter{
		ProfileID:      req.ProfileID,
		OccurredAfter:  req.From,
		OccurredBefore: req.To,
	}
	attempts, err := f.deliveryRepo.ByFilter(ctx, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LEDGER_READ_FAILED", "Failed to read delivery attempts", err)
	}

	out := make([]dto.DeliveryAttemptDTO, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, ToDeliveryAttemptDTO(*a))
	}
	return out, nil
}

// RecordOutcome attributes a result back to an existing delivery attempt
func (f *LedgerFlowImpl) RecordOutcome(ctx context.Context, req *dto.RecordOutcomeRequest, metadata *ClientMetadata) (*dto.OutcomeDTO, error) {
	delivery, err := f.deliveryRepo.ByID(ctx, req.DeliveryAttemptID)
	if err != nil {
		return nil, NewBusinessError("DELIVERY_LOOKUP_FAILED", "Failed to look up delivery attempt", err)
	}
	if delivery == nil {
		return nil, NewBusinessError("DELIVERY_NOT_FOUND", "Delivery attempt not found", ErrDeliveryAttemptNotFound)
	}

	metadataJSON := req.Metadata
	if len(metadataJSON) == 0 {
		metadataJSON = json.RawMessage("{}")
	}

	outcome := &models.Outcome{
		DeliveryAttemptID: req.DeliveryAttemptID,
		ProfileID:         req.ProfileID,
		OutcomeType:       models.OutcomeType(req.OutcomeType),
		Metadata:          metadataJSON,
	}
	if req.OccurredAt != nil {
		outcome.OccurredAt = *req.OccurredAt
	}
	if err := f.outcomeRepo.Append(ctx, outcome); err != nil {
		return nil, NewBusinessError("LEDGER_APPEND_FAILED", "Failed to append outcome", err)
	}

	d := ToOutcomeDTO(*outcome)
	return &d, nil
}

// ListOutcomes reads a time window of the outcome ledger
func (f *LedgerFlowImpl) ListOutcomes(ctx context.Context, req *dto.LedgerWindowRequest) ([]dto.OutcomeDTO, error) {
	limit, offset, err := windowPagination(req)
	if err != nil {
		return nil, err
	}

	filter := models.OutcomeFilter{
		ProfileID:      req.ProfileID,
		OccurredAfter:  req.From,
		OccurredBefore: req.To,
	}
	outcomes, err := f.outcomeRepo.ByFilter(ctx, filter, "", limit, offset)
	if err != nil {
		return nil, NewBusinessError("LEDGER_READ_FAILED", "Failed to read outcomes", err)
	}

	out := make([]dto.OutcomeDTO, 0, len(outcomes))
	for _, o := range outcomes {
		out = append(out, ToOutcomeDTO(*o))
	}
	return out, nil
}

// ExportDeliveryReport renders a delivery window as an xlsx workbook
func (f *LedgerFlowImpl) ExportDeliveryReport(ctx context.Context, req *dto.LedgerWindowRequest) ([]byte, error) {
	attempts, err := f.ListDeliveries(ctx, req)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheet := "Deliveries"
	index, err := file.NewSheet(sheet)
	if err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to create export sheet", err)
	}
	file.SetActiveSheet(index)
	_ = file.DeleteSheet("Sheet1")

	headers := []string{"ID", "Profile ID", "Event ID", "Channel", "Status", "Supersedes", "Failure Reason", "Occurred At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = file.SetCellValue(sheet, cell, h)
	}

	for row, a := range attempts {
		supersedes := ""
		if a.Supersedes != nil {
			supersedes = fmt.Sprintf("%d", *a.Supersedes)
		}
		failure := ""
		if a.FailureReason != nil {
			failure = *a.FailureReason
		}
		values := []any{a.ID, a.ProfileID, a.EventID, a.Channel, a.Status, supersedes, failure, a.OccurredAt}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = file.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, NewBusinessError("EXPORT_FAILED", "Failed to write export workbook", err)
	}

	return buf.Bytes(), nil
}

func behavioralEventFromRequest(req *dto.AppendBehavioralEventRequest) *models.BehavioralEvent {
	properties := req.Properties
	if len(properties) == 0 {
		properties = json.RawMessage("{}")
	}

	event := &models.BehavioralEvent{
		ProfileID:  req.ProfileID,
		EventName:  req.EventName,
		Properties: properties,
	}
	if req.OccurredAt != nil {
		event.OccurredAt = *req.OccurredAt
	}
	return event
}

func windowPagination(req *dto.LedgerWindowRequest) (limit, offset int, err error) {
	page := req.Page
	if page == 0 {
		page = 1
	}
	if page < 1 {
		return 0, 0, NewBusinessError("INVALID_PAGE", "Page must be at least 1", ErrInvalidPage)
	}

	pageSize := req.PageSize
	if pageSize == 0 {
		pageSize = defaultLedgerPageSize
	}
	if pageSize < 1 || pageSize > 1000 {
		return 0, 0, NewBusinessError("INVALID_PAGE_SIZE", "Page size must be between 1 and 1000", ErrInvalidPageSize)
	}

	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return 0, 0, NewBusinessError("INVALID_WINDOW", "Start date cannot be after end date", ErrStartDateAfterEndDate)
	}

	return pageSize, (page - 1) * pageSize, nil
}
