package service

import (
	"time"

	"go.uber.org/zap"

	"attendance-engine/backend/config"
	"attendance-engine/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Daily        DailySummaryService
	Monthly      MonthlySummaryService
	Issue        IssueService
	Snapshot     SnapshotService
	Usage        UsageService
	AccessEvent  AccessEventService
	PolicyConfig PolicyConfigService
	PeriodJob    PeriodJobService
	Export       ExportService
}

// NewService 创建 Service 聚合
// locker 为 nil 时整月重算不加锁（Redis 不可用）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	locker PeriodLocker,
	logger *zap.Logger,
) *Service {
	att := cfg.Attendance
	batch := att.BatchSize
	if batch <= 0 {
		batch = repository.DefaultBatchSize
	}
	location, err := time.LoadLocation(att.Timezone)
	if err != nil {
		logger.Warn("时区无效，使用本地时区", zap.String("timezone", att.Timezone), zap.Error(err))
		location = time.Local
	}

	policy := NewPolicyProvider(att, logger)

	return &Service{
		Daily:        NewDailySummaryService(repo, policy, batch, logger),
		Monthly:      NewMonthlySummaryService(repo, policy, batch, logger),
		Issue:        NewIssueService(repo, policy, logger),
		Snapshot:     NewSnapshotService(repo, policy, batch, cfg.Feature.SnapshotRawInput, logger),
		Usage:        NewUsageService(repo, logger),
		AccessEvent:  NewAccessEventService(repo, location, batch, logger),
		PolicyConfig: NewPolicyConfigService(repo, policy, logger),
		PeriodJob:    NewPeriodJobService(repo, policy, locker, att.PeriodLockTTL, batch, logger),
		Export:       NewExportService(repo, logger),
	}
}
