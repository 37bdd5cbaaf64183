package handler

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/service"
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type stubSysBox struct {
	service.SysBoxService
	read []string
}

func (s *stubSysBox) GetNotificationList(_ context.Context, userID uint64, page, pageSize int) ([]*dto.SysBoxDTO, error) {
	return []*dto.SysBoxDTO{{ID: "n1", TargetID: userID, Type: int8(page*10 + pageSize)}}, nil
}

func (s *stubSysBox) MarkRead(_ context.Context, _ uint64, msgID string) error {
	if msgID == "65f000000000000000000404" {
		return service.ErrSysBoxNotFound
	}
	s.read = append(s.read, msgID)
	return nil
}

func newSysBoxRouter(h *SysBoxHandler, userID uint64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	r.GET("/sysbox/list", h.GetNotificationList)
	r.POST("/sysbox/read", h.MarkRead)
	return r
}

func TestSysBoxHandler_List(t *testing.T) {
	r := newSysBoxRouter(NewSysBoxHandler(&stubSysBox{}), 7)

	code, resp := do(t, r, http.MethodGet, "/sysbox/list?page=1&page_size=5", "")
	assert.Equal(t, 200, code)
	first := resp.Data.([]any)[0].(map[string]any)
	assert.EqualValues(t, 7, first["target_id"])
	assert.EqualValues(t, 15, first["type"])

	code, _ = do(t, r, http.MethodGet, "/sysbox/list?page_size=1000", "")
	assert.Equal(t, service.BadRequest, code)
}

func TestSysBoxHandler_MarkRead(t *testing.T) {
	box := &stubSysBox{}
	r := newSysBoxRouter(NewSysBoxHandler(box), 7)

	code, _ := do(t, r, http.MethodPost, "/sysbox/read", `{"msg_id":"65f0a1b2c3d4e5f6a7b8c9d0"}`)
	assert.Equal(t, 200, code)
	assert.Equal(t, []string{"65f0a1b2c3d4e5f6a7b8c9d0"}, box.read)

	code, _ = do(t, r, http.MethodPost, "/sysbox/read", `{"msg_id":"nope"}`)
	assert.Equal(t, service.BadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/sysbox/read", `{"msg_id":"65f000000000000000000404"}`)
	assert.Equal(t, service.NotFound, code)
}
