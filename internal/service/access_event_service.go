package service

import (
	"context"
	"regexp"
	"time"

	"go.uber.org/zap"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

var (
	compactDatePattern = regexp.MustCompile(`^\d{8}$`)
	compactTimePattern = regexp.MustCompile(`^\d{6}$`)
)

// AccessEventService 门禁事件导入业务接口（只追加，重复事件忽略）
type AccessEventService interface {
	ImportAccessEvents(ctx context.Context, req *dto.ImportAccessEventsRequest) (*dto.ImportAccessEventsResponse, error)
}

type accessEventService struct {
	repo      *repository.Repository
	location  *time.Location
	batchSize int
	logger    *zap.Logger
}

// NewAccessEventService 创建 AccessEventService 实例
// location 用于由 source_timestamp 推导本地日期与时刻
func NewAccessEventService(repo *repository.Repository, location *time.Location, batchSize int, logger *zap.Logger) AccessEventService {
	if location == nil {
		location = time.Local
	}
	return &accessEventService{repo: repo, location: location, batchSize: batchSize, logger: logger}
}

func (s *accessEventService) ImportAccessEvents(ctx context.Context, req *dto.ImportAccessEventsRequest) (*dto.ImportAccessEventsResponse, error) {
	events := make([]model.AccessEvent, 0, len(req.Events))
	for i, in := range req.Events {
		e, err := s.toEvent(in)
		if err != nil {
			return nil, pkgerrors.Validation("第 %d 条门禁事件无效: %s", i+1, pkgerrors.MessageOf(err))
		}
		events = append(events, e)
	}

	var inserted int64
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := tx.AccessEvent.BulkInsert(ctx, events, s.batchSize)
		if err != nil {
			s.logger.Error("导入门禁事件失败", zap.Int("count", len(events)), zap.Error(err))
			return err
		}
		inserted = n
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("门禁事件导入完成", zap.Int("received", len(events)), zap.Int64("inserted", inserted))
	return &dto.ImportAccessEventsResponse{
		Received:   len(events),
		Inserted:   inserted,
		Duplicates: int64(len(events)) - inserted,
	}, nil
}

// toEvent 规范化单条事件：日期/时刻缺省时由 source_timestamp 推导，反之亦然
func (s *accessEventService) toEvent(in dto.AccessEventInput) (model.AccessEvent, error) {
	e := model.AccessEvent{EmployeeNumber: in.EmployeeNumber, EventDate: in.EventDate, EventTime: in.EventTime}
	if in.SourceTimestamp != nil {
		local := in.SourceTimestamp.In(s.location)
		if e.EventDate == "" {
			e.EventDate = local.Format("20060102")
		}
		if e.EventTime == "" {
			e.EventTime = local.Format("150405")
		}
		e.SourceTimestamp = *in.SourceTimestamp
	}
	if !compactDatePattern.MatchString(e.EventDate) {
		return e, pkgerrors.Validation("event_date 应为 yyyyMMdd: %q", e.EventDate)
	}
	if _, err := time.Parse("20060102", e.EventDate); err != nil {
		return e, pkgerrors.Validation("event_date 无效: %q", e.EventDate)
	}
	if !compactTimePattern.MatchString(e.EventTime) {
		return e, pkgerrors.Validation("event_time 应为 HHmmss: %q", e.EventTime)
	}
	if _, err := model.ParseClock(model.ExpandEventTime(e.EventTime)); err != nil {
		return e, pkgerrors.Validation("event_time 无效: %q", e.EventTime)
	}
	if in.SourceTimestamp == nil {
		ts, _ := time.ParseInLocation("20060102150405", e.EventDate+e.EventTime, s.location)
		e.SourceTimestamp = ts
	}
	return e, nil
}
