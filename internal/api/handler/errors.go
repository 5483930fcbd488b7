package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	pkgerrors "attendance-engine/backend/pkg/errors"
	"attendance-engine/backend/pkg/response"
)

// 各模块业务错误码基数；具体错误码 = 基数 + 分类偏移
const (
	codeSummary      = 21000
	codeIssue        = 22000
	codeSnapshot     = 23000
	codeUsage        = 24000
	codeAccessEvent  = 25000
	codePolicyConfig = 26000
	codeExport       = 27000
)

// 分类偏移
const (
	offsetNotFound            = 1
	offsetConflict            = 2
	offsetValidation          = 3
	offsetPolicyInconsistency = 4
	offsetOptimisticLock      = 5
)

// handleServiceError 按错误分类映射 HTTP 状态码并写入统一响应
//
//	NotFound → 404, Conflict/乐观锁 → 409, Validation → 400,
//	PolicyInconsistency → 422, 其他 → 500
func handleServiceError(c *gin.Context, base int, err error) {
	if errors.Is(err, pkgerrors.ErrOptimisticLock) {
		response.Conflict(c, base+offsetOptimisticLock, err.Error())
		return
	}

	msg := pkgerrors.MessageOf(err)
	switch pkgerrors.KindOf(err) {
	case pkgerrors.KindNotFound:
		response.NotFound(c, base+offsetNotFound, msg)
	case pkgerrors.KindConflict:
		response.Conflict(c, base+offsetConflict, msg)
	case pkgerrors.KindValidation:
		response.BadRequest(c, base+offsetValidation, msg)
	case pkgerrors.KindPolicyInconsistency:
		response.UnprocessableEntity(c, base+offsetPolicyInconsistency, msg)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
