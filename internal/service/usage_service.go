package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 使用记录模块业务错误 ──

var (
	ErrUsageNotFound    = pkgerrors.NotFound("考勤类型使用记录不存在")
	ErrUsageDuplicate   = pkgerrors.Conflict("同一天已登记相同考勤类型")
	ErrEmployeeNotFound = pkgerrors.NotFound("员工不存在")
)

// UsageService 考勤类型使用记录业务接口
type UsageService interface {
	RecordUsage(ctx context.Context, req *dto.RecordUsageRequest, actor string) (*model.UsedAttendance, error)
	DeleteUsage(ctx context.Context, id, actor string) error
	ListUsage(ctx context.Context, query *dto.UsageQuery) ([]model.UsedAttendance, error)
}

type usageService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUsageService 创建 UsageService 实例
func NewUsageService(repo *repository.Repository, logger *zap.Logger) UsageService {
	return &usageService{repo: repo, logger: logger}
}

func (s *usageService) RecordUsage(ctx context.Context, req *dto.RecordUsageRequest, actor string) (*model.UsedAttendance, error) {
	if _, err := time.Parse(model.DateLayout, req.UsedDate); err != nil {
		return nil, pkgerrors.Validation("日期格式无效 %q（应为 yyyy-MM-dd）", req.UsedDate)
	}

	var created *model.UsedAttendance
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Employee.GetByID(ctx, req.EmployeeID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEmployeeNotFound
			}
			s.logger.Error("查询员工失败", zap.String("employee_id", req.EmployeeID), zap.Error(err))
			return err
		}
		t, err := tx.AttendanceType.GetByID(ctx, req.AttendanceTypeID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttendanceTypeNotFound
			}
			s.logger.Error("查询考勤类型失败", zap.String("attendance_type_id", req.AttendanceTypeID), zap.Error(err))
			return err
		}

		exists, err := tx.UsedAttendance.ExistsActive(ctx, req.EmployeeID, req.UsedDate, req.AttendanceTypeID)
		if err != nil {
			s.logger.Error("查询使用记录失败", zap.Error(err))
			return err
		}
		if exists {
			return ErrUsageDuplicate
		}

		u := &model.UsedAttendance{
			EmployeeID:       req.EmployeeID,
			UsedDate:         req.UsedDate,
			AttendanceTypeID: req.AttendanceTypeID,
		}
		u.CreatedBy = &actor
		u.UpdatedBy = &actor
		if err := tx.UsedAttendance.Create(ctx, u); err != nil {
			if !pkgerrors.IsKind(err, pkgerrors.KindConflict) {
				s.logger.Error("登记使用记录失败", zap.Error(err))
			}
			return err
		}
		u.AttendanceType = t
		created = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *usageService) DeleteUsage(ctx context.Context, id, actor string) error {
	if _, err := s.repo.UsedAttendance.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUsageNotFound
		}
		s.logger.Error("查询使用记录失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if err := s.repo.UsedAttendance.SoftDelete(ctx, id, actor); err != nil {
		s.logger.Error("删除使用记录失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

func (s *usageService) ListUsage(ctx context.Context, query *dto.UsageQuery) ([]model.UsedAttendance, error) {
	period, err := ParsePeriod(query.YearMonth)
	if err != nil {
		return nil, err
	}
	filter := repository.UsedAttendanceFilter{From: period.From(), To: period.To()}
	if query.EmployeeID != "" {
		filter.EmployeeIDs = []string{query.EmployeeID}
	}
	rows, err := s.repo.UsedAttendance.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询使用记录失败", zap.String("year_month", query.YearMonth), zap.Error(err))
		return nil, err
	}
	return rows, nil
}
