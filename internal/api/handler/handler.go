package handler

import "attendance-engine/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Summary      *SummaryHandler
	Issue        *IssueHandler
	Snapshot     *SnapshotHandler
	Usage        *UsageHandler
	AccessEvent  *AccessEventHandler
	PolicyConfig *PolicyConfigHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Summary:      NewSummaryHandler(svc.Daily, svc.Monthly, svc.PeriodJob),
		Issue:        NewIssueHandler(svc.Issue),
		Snapshot:     NewSnapshotHandler(svc.Snapshot),
		Usage:        NewUsageHandler(svc.Usage),
		AccessEvent:  NewAccessEventHandler(svc.AccessEvent),
		PolicyConfig: NewPolicyConfigHandler(svc.PolicyConfig),
		Export:       NewExportHandler(svc.Export),
	}
}
