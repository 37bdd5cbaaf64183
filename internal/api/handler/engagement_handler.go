package handler

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/pkg/consts"
	"TradeTalent/internal/pkg/response"
	"TradeTalent/internal/pkg/util"
	"TradeTalent/internal/service"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"
)

type EngagementHandler struct {
	engagementSvc service.EngagementService
	reEngageSvc   service.ReEngagementService
	funnelSvc     service.FunnelService
}

func NewEngagementHandler(
	engagementSvc service.EngagementService,
	reEngageSvc service.ReEngagementService,
	funnelSvc service.FunnelService,
) *EngagementHandler {
	return &EngagementHandler{
		engagementSvc: engagementSvc,
		reEngageSvc:   reEngageSvc,
		funnelSvc:     funnelSvc,
	}
}

// targetUser 解析路径中的 user_id，非管理员只能访问自己的数据
func targetUser(c *gin.Context) (uint64, error) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return 0, service.ErrParamInvalid
	}
	if userID != c.GetUint64("user_id") && !slices.Contains(c.GetStringSlice("roles"), consts.RoleAdmin) {
		return 0, service.UnauthorizedError
	}
	return userID, nil
}

func pathID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrParamInvalid
	}
	return id, nil
}

func (s *EngagementHandler) GetSnapshot(c *gin.Context) {
	userID, err := targetUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var query dto.PageQueryDTO
	if err = c.ShouldBindQuery(&query); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = util.ValidateDTO(&query); err != nil {
		response.Error(c, err)
		return
	}

	snapshot, err := s.engagementSvc.GetSnapshot(c.Request.Context(), userID, query.Page, query.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, snapshot)
}

func (s *EngagementHandler) GetSuggestions(c *gin.Context) {
	userID, err := targetUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := s.reEngageSvc.GetSuggestions(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *EngagementHandler) GetDigests(c *gin.Context) {
	userID, err := targetUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := s.reEngageSvc.GetDigests(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *EngagementHandler) GetFunnelRecords(c *gin.Context) {
	userID, err := targetUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	list, err := s.reEngageSvc.GetFunnelRecords(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *EngagementHandler) GetProfileCompletion(c *gin.Context) {
	userID, err := targetUser(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	res, err := s.engagementSvc.GetProfileCompletion(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *EngagementHandler) MarkSuggestionViewed(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = s.reEngageSvc.MarkSuggestionViewed(c.Request.Context(), c.GetUint64("user_id"), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *EngagementHandler) MarkDigestViewed(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = s.reEngageSvc.MarkDigestViewed(c.Request.Context(), c.GetUint64("user_id"), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// AcknowledgeFunnel 用户对召回记录采取了行动
func (s *EngagementHandler) AcknowledgeFunnel(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = s.funnelSvc.Acknowledge(c.Request.Context(), c.GetUint64("user_id"), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// RecordAction 供内部服务上报行为
func (s *EngagementHandler) RecordAction(c *gin.Context) {
	var req dto.RecordActionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	kind, err := service.ParseActionKind(req.Action)
	if err != nil {
		response.Error(c, err)
		return
	}

	score, err := s.engagementSvc.RecordAction(c.Request.Context(), req.UserID, kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.RecordActionResultDTO{
		UserID: req.UserID,
		Score:  score,
		Stage:  string(service.StageForScore(score)),
	})
}

func (s *EngagementHandler) Reactivate(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err = s.engagementSvc.Reactivate(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
