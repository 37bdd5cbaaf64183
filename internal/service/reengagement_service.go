package service

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/model"
	"TradeTalent/internal/repository"
	"context"
	log "log/slog"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
)

const recordListLimit = 50

// ReEngagementService 召回相关记录的查询与已读
type ReEngagementService interface {
	GetFunnelRecords(ctx context.Context, userID uint64) ([]*dto.FunnelStageDTO, error)
	GetSuggestions(ctx context.Context, userID uint64) ([]*dto.MatchSuggestionDTO, error)
	GetDigests(ctx context.Context, userID uint64) ([]*dto.MissedOpportunitiesDTO, error)
	MarkSuggestionViewed(ctx context.Context, userID, id uint64) error
	MarkDigestViewed(ctx context.Context, userID, id uint64) error
}

type reEngagementServiceImpl struct {
	funnelRepo  repository.FunnelRepo
	suggestRepo repository.SuggestionRepo
	digestRepo  repository.DigestRepo
	listingRepo repository.ListingRepo
}

func NewReEngagementService(
	funnelRepo repository.FunnelRepo,
	suggestRepo repository.SuggestionRepo,
	digestRepo repository.DigestRepo,
	listingRepo repository.ListingRepo,
) ReEngagementService {
	return &reEngagementServiceImpl{
		funnelRepo:  funnelRepo,
		suggestRepo: suggestRepo,
		digestRepo:  digestRepo,
		listingRepo: listingRepo,
	}
}

func (s *reEngagementServiceImpl) GetFunnelRecords(ctx context.Context, userID uint64) ([]*dto.FunnelStageDTO, error) {
	list, err := s.funnelRepo.ListByUser(ctx, userID, recordListLimit)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.FunnelStageDTO, 0, len(list))
	for _, r := range list {
		d := &dto.FunnelStageDTO{}
		_ = copier.Copy(d, r)
		d.TriggeredAt = formatTime(&r.TriggeredAt)
		d.ActionTakenAt = formatTime(r.ActionTakenAt)
		if r.Stage == string(StageDeactivationWarning) && !r.ActionTaken && !r.Cleared {
			deadline := r.TriggeredAt.Add(GracePeriod)
			d.Deadline = formatTime(&deadline)
		}
		res = append(res, d)
	}
	return res, nil
}

// GetSuggestions 补全推荐服务的标题、类目与评分，已下架的服务保留空字段
func (s *reEngagementServiceImpl) GetSuggestions(ctx context.Context, userID uint64) ([]*dto.MatchSuggestionDTO, error) {
	list, err := s.suggestRepo.ListByUser(ctx, userID, recordListLimit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(list))
	for _, m := range list {
		ids = append(ids, m.SuggestedServiceID)
	}
	listings, err := s.listingRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.ServiceListing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	res := make([]*dto.MatchSuggestionDTO, 0, len(list))
	for _, m := range list {
		d := &dto.MatchSuggestionDTO{}
		_ = copier.Copy(d, m)
		d.CreatedAt = formatTime(&m.CreatedAt)
		if l, ok := byID[m.SuggestedServiceID]; ok {
			d.Title = l.Title
			d.Category = l.Category
			d.Rating = l.Rating
		}
		res = append(res, d)
	}
	return res, nil
}

func (s *reEngagementServiceImpl) GetDigests(ctx context.Context, userID uint64) ([]*dto.MissedOpportunitiesDTO, error) {
	list, err := s.digestRepo.ListByUser(ctx, userID, recordListLimit)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.MissedOpportunitiesDTO, 0, len(list))
	for _, m := range list {
		d := &dto.MissedOpportunitiesDTO{
			ID:         m.ID,
			IsViewed:   m.IsViewed,
			CreatedAt:  formatTime(&m.CreatedAt),
			ServiceIDs: make([]uint64, 0),
		}
		if err = json.Unmarshal(m.ServiceIDs, &d.ServiceIDs); err != nil {
			log.WarnContext(ctx, "bad digest service_ids", "digest_id", m.ID, "err", err)
		}
		res = append(res, d)
	}
	return res, nil
}

func (s *reEngagementServiceImpl) MarkSuggestionViewed(ctx context.Context, userID, id uint64) error {
	found, err := s.suggestRepo.MarkViewed(ctx, id, userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrSuggestionNotFound
	}
	return nil
}

func (s *reEngagementServiceImpl) MarkDigestViewed(ctx context.Context, userID, id uint64) error {
	found, err := s.digestRepo.MarkViewed(ctx, id, userID)
	if err != nil {
		return err
	}
	if !found {
		return ErrDigestNotFound
	}
	return nil
}
