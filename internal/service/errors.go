package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
	ServiceUnavailable  = 503
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrUserNotFound         = errors.New("用户不存在")
	ErrUnknownAction        = errors.New("未知的行为类型")
	ErrActionNotAllowed     = errors.New("该行为只能由系统产生")
	ErrScoreOutOfRange      = errors.New("活跃度分数越界")
	ErrUserDeactivated      = errors.New("用户已停用")
	ErrScoreUpdateFailed    = errors.New("活跃度更新失败，请稍后重试")
	ErrFunnelRecordNotFound = errors.New("召回记录不存在")
	ErrSuggestionNotFound   = errors.New("推荐不存在")
	ErrDigestNotFound       = errors.New("错过机会摘要不存在")
	ErrSysBoxNotFound       = errors.New("系统通知不存在")
	UnauthorizedError       = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrUserNotFound:         NotFound,
	ErrUnknownAction:        BadRequest,
	ErrActionNotAllowed:     BadRequest,
	ErrScoreOutOfRange:      InternalServerError,
	ErrUserDeactivated:      Conflict,
	ErrScoreUpdateFailed:    ServiceUnavailable,
	ErrFunnelRecordNotFound: NotFound,
	ErrSuggestionNotFound:   NotFound,
	ErrDigestNotFound:       NotFound,
	ErrSysBoxNotFound:       NotFound,
	UnauthorizedError:       Forbidden,
	UnExpectedError:         InternalServerError,
}

// CodeOf 查找错误对应的哨兵错误与业务码，支持被包装的错误
func CodeOf(err error) (error, int, bool) {
	if code, ok := ErrorMap[err]; ok {
		return err, code, true
	}
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return target, code, true
		}
	}
	return nil, 0, false
}
