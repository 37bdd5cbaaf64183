package response

import (
	"TradeTalent/internal/api/dto"
	"TradeTalent/internal/service"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = 200
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	ServiceUnavailable  = 503
)

// Success 成功返回封装
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装
func Fail(c *gin.Context, businessCode int, message string) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    businessCode,
		Message: message,
		Data:    nil,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msg := "参数错误"
		if len(ve) > 0 {
			msg = fmt.Sprintf("字段 [%s] 校验失败，规则 [%s]", ve[0].Field(), ve[0].Tag())
		}
		Fail(c, BadRequest, msg)
		return
	}

	var unmarshalTypeError *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeError) {
		Fail(c, BadRequest, "Json错误")
		return
	}

	target, code, ok := service.CodeOf(err)
	if !ok {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
		Fail(c, InternalServerError, service.UnExpectedError.Error())
		return
	}
	// 5xx 只返回哨兵文案，底层错误只进日志
	if code >= InternalServerError {
		log.ErrorContext(c.Request.Context(), "Error", "err", err)
		Fail(c, code, target.Error())
		return
	}
	Fail(c, code, err.Error())
}
