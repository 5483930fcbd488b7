package repository

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendance-engine/backend/internal/model"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// IssueFilter 考勤问题查询条件
type IssueFilter struct {
	From           string // yyyy-MM-dd
	To             string
	EmployeeID     string
	EmployeeIDs    []string // nil 表示不过滤
	Status         model.IssueStatus
	IncludeDeleted bool
}

// AttendanceIssueRepository 考勤问题数据访问接口
type AttendanceIssueRepository interface {
	GetByID(ctx context.Context, id string) (*model.AttendanceIssue, error)
	List(ctx context.Context, filter IssueFilter) ([]model.AttendanceIssue, error)
	// Update 乐观锁更新（version 不匹配返回 ErrOptimisticLock）
	Update(ctx context.Context, issue *model.AttendanceIssue) error
	// BatchUpsert 按主键分块写入：新建、复活或按原主键恢复
	BatchUpsert(ctx context.Context, issues []model.AttendanceIssue, batchSize int) error
	SoftDeleteByPeriod(ctx context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error)
}

type attendanceIssueRepo struct {
	db *gorm.DB
}

// NewAttendanceIssueRepo 创建 AttendanceIssueRepository 实例
func NewAttendanceIssueRepo(db *gorm.DB) AttendanceIssueRepository {
	return &attendanceIssueRepo{db: db}
}

func (r *attendanceIssueRepo) GetByID(ctx context.Context, id string) (*model.AttendanceIssue, error) {
	var issue model.AttendanceIssue
	err := r.db.WithContext(ctx).
		Where("attendance_issue_id = ?", id).
		First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *attendanceIssueRepo) List(ctx context.Context, filter IssueFilter) ([]model.AttendanceIssue, error) {
	query := r.db.WithContext(ctx).Model(&model.AttendanceIssue{})
	if filter.IncludeDeleted {
		query = query.Unscoped()
	}
	if filter.From != "" && filter.To != "" {
		query = query.Where("date BETWEEN ? AND ?", filter.From, filter.To)
	}
	if filter.EmployeeID != "" {
		query = query.Where("employee_id = ?", filter.EmployeeID)
	}
	if filter.EmployeeIDs != nil {
		if len(filter.EmployeeIDs) == 0 {
			return nil, nil
		}
		query = query.Where("employee_id IN ?", filter.EmployeeIDs)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var issues []model.AttendanceIssue
	err := query.Order("date ASC, employee_id ASC").Find(&issues).Error
	return issues, err
}

func (r *attendanceIssueRepo) Update(ctx context.Context, issue *model.AttendanceIssue) error {
	oldVersion := issue.Version
	result := r.db.WithContext(ctx).
		Model(issue).
		Where("attendance_issue_id = ? AND version = ?", issue.AttendanceIssueID, oldVersion).
		Updates(map[string]interface{}{
			"corrected_enter_time":          issue.CorrectedEnterTime,
			"corrected_leave_time":          issue.CorrectedLeaveTime,
			"corrected_attendance_type_ids": jsonText(issue.CorrectedAttendanceTypeIDs),
			"status":                        issue.Status,
			"confirmed_by":                  issue.ConfirmedBy,
			"confirmed_at":                  issue.ConfirmedAt,
			"resolved_at":                   issue.ResolvedAt,
			"rejection_reason":              issue.RejectionReason,
			"updated_by":                    issue.UpdatedBy,
			"version":                       oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	issue.Version = oldVersion + 1
	return nil
}

func (r *attendanceIssueRepo) BatchUpsert(ctx context.Context, issues []model.AttendanceIssue, batchSize int) error {
	for _, part := range chunk(issues, batchSize) {
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "attendance_issue_id"}},
				UpdateAll: true,
			}).
			Create(&part).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *attendanceIssueRepo) SoftDeleteByPeriod(ctx context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.AttendanceIssue{}).
		Where("date BETWEEN ? AND ?", from, to)
	if employeeIDs != nil {
		if len(employeeIDs) == 0 {
			return 0, nil
		}
		query = query.Where("employee_id IN ?", employeeIDs)
	}
	result := query.Updates(map[string]interface{}{
		"deleted_by": deletedBy,
		"deleted_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}

// jsonText 与 serializer:json 列保持同一编码（空值写 NULL），供 map 形式的 Updates 使用
func jsonText(v []string) interface{} {
	if len(v) == 0 {
		return nil
	}
	b, _ := json.Marshal(v)
	return string(b)
}
