package handler

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/pkg/response"
	"TradeTalent/internal/pkg/util"
	"TradeTalent/internal/service"

	"github.com/gin-gonic/gin"
)

// SysBoxHandler 召回通知收件箱，只能操作自己的通知
type SysBoxHandler struct {
	sysBoxService service.SysBoxService
}

func NewSysBoxHandler(s service.SysBoxService) *SysBoxHandler {
	return &SysBoxHandler{
		sysBoxService: s,
	}
}

func (h *SysBoxHandler) GetNotificationList(c *gin.Context) {
	var query dto.PageQueryDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&query); err != nil {
		response.Error(c, err)
		return
	}

	list, err := h.sysBoxService.GetNotificationList(c.Request.Context(), c.GetUint64("user_id"), query.Page, query.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (h *SysBoxHandler) GetUnreadCount(c *gin.Context) {
	unread, err := h.sysBoxService.GetUnreadCount(c.Request.Context(), c.GetUint64("user_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, unread)
}

// MarkRead 标记单条已读，别人的通知返回 403
func (h *SysBoxHandler) MarkRead(c *gin.Context) {
	var req dto.MarkReadDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := h.sysBoxService.MarkRead(c.Request.Context(), c.GetUint64("user_id"), req.MsgID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *SysBoxHandler) MarkAllRead(c *gin.Context) {
	if err := h.sysBoxService.MarkAllRead(c.Request.Context(), c.GetUint64("user_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
