package handler

import (
	"github.com/gin-gonic/gin"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/service"
	"attendance-engine/backend/pkg/response"
)

// SnapshotHandler 快照模块 HTTP 处理器
type SnapshotHandler struct {
	snapshotSvc service.SnapshotService
}

// NewSnapshotHandler 创建 SnapshotHandler
func NewSnapshotHandler(snapshotSvc service.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{snapshotSvc: snapshotSvc}
}

// SaveSnapshot 保存快照
// POST /api/v1/attendance/snapshots
// 范围内没有月度汇总时返回 204
func (h *SnapshotHandler) SaveSnapshot(c *gin.Context) {
	var req dto.SaveSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	saved, err := h.snapshotSvc.SaveSnapshot(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, codeSnapshot, err)
		return
	}
	if saved == nil {
		response.NoContent(c)
		return
	}

	response.Created(c, saved)
}

// SaveDepartmentSnapshots 逐部门保存快照
// POST /api/v1/attendance/snapshots/departments
func (h *SnapshotHandler) SaveDepartmentSnapshots(c *gin.Context) {
	var req dto.SaveDepartmentSnapshotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.snapshotSvc.SaveDepartmentSnapshots(c.Request.Context(), &req, actor)
	if err != nil {
		handleServiceError(c, codeSnapshot, err)
		return
	}

	response.OK(c, result)
}

// ListSnapshots 分页查询快照
// GET /api/v1/attendance/snapshots?year=2025&month=11
func (h *SnapshotHandler) ListSnapshots(c *gin.Context) {
	var q dto.SnapshotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	page, ok := bindPage(c)
	if !ok {
		return
	}

	list, err := h.snapshotSvc.ListSnapshots(c.Request.Context(), &q)
	if err != nil {
		handleServiceError(c, codeSnapshot, err)
		return
	}

	response.OKPage(c, pageOf(list, page), int64(len(list)), page.GetPage(), page.GetPageSize())
}

// GetSnapshot 快照详情（明细只返回摘要）
// GET /api/v1/attendance/snapshots/:id
func (h *SnapshotHandler) GetSnapshot(c *gin.Context) {
	detail, err := h.snapshotSvc.GetSnapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, codeSnapshot, err)
		return
	}

	response.OK(c, detail)
}

// RestoreSnapshot 以快照恢复该月在线数据
// POST /api/v1/attendance/snapshots/:id/restore
func (h *SnapshotHandler) RestoreSnapshot(c *gin.Context) {
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.snapshotSvc.RestoreFromSnapshot(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		handleServiceError(c, codeSnapshot, err)
		return
	}

	response.OK(c, result)
}

// DeleteSnapshot 软删除快照
// DELETE /api/v1/attendance/snapshots/:id
func (h *SnapshotHandler) DeleteSnapshot(c *gin.Context) {
	actor, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.snapshotSvc.DeleteSnapshot(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleServiceError(c, codeSnapshot, err)
		return
	}

	response.OK(c, nil)
}
