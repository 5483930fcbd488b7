package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"attendance-engine/backend/internal/model"
)

// AttendanceTypeRepository 考勤类型数据访问接口
type AttendanceTypeRepository interface {
	Create(ctx context.Context, t *model.AttendanceType) error
	GetByID(ctx context.Context, id string) (*model.AttendanceType, error)
	// List 返回全部类型（含已软删除），历史使用记录可能引用已停用的类型
	List(ctx context.Context) ([]model.AttendanceType, error)
}

type attendanceTypeRepo struct {
	db *gorm.DB
}

// NewAttendanceTypeRepo 创建 AttendanceTypeRepository 实例
func NewAttendanceTypeRepo(db *gorm.DB) AttendanceTypeRepository {
	return &attendanceTypeRepo{db: db}
}

func (r *attendanceTypeRepo) Create(ctx context.Context, t *model.AttendanceType) error {
	return translateError(r.db.WithContext(ctx).Create(t).Error, "考勤类型已存在")
}

func (r *attendanceTypeRepo) GetByID(ctx context.Context, id string) (*model.AttendanceType, error) {
	var t model.AttendanceType
	err := r.db.WithContext(ctx).
		Where("attendance_type_id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *attendanceTypeRepo) List(ctx context.Context) ([]model.AttendanceType, error) {
	var types []model.AttendanceType
	err := r.db.WithContext(ctx).
		Unscoped().
		Order("title ASC").
		Find(&types).Error
	return types, err
}

// ── UsedAttendance ──

// UsedAttendanceFilter 考勤类型使用记录查询条件
// From/To 为 yyyy-MM-dd 闭区间，均为空表示不按日期过滤
type UsedAttendanceFilter struct {
	From        string
	To          string
	EmployeeIDs []string
}

// UsedAttendanceRepository 考勤类型使用记录数据访问接口
type UsedAttendanceRepository interface {
	Create(ctx context.Context, u *model.UsedAttendance) error
	GetByID(ctx context.Context, id string) (*model.UsedAttendance, error)
	List(ctx context.Context, filter UsedAttendanceFilter) ([]model.UsedAttendance, error)
	ExistsActive(ctx context.Context, employeeID, usedDate, attendanceTypeID string) (bool, error)
	SoftDelete(ctx context.Context, id, deletedBy string) error
	// SoftDeleteByEmployeeDate 软删除某员工某天的全部使用记录，返回影响行数
	SoftDeleteByEmployeeDate(ctx context.Context, employeeID, usedDate, deletedBy string) (int64, error)
}

type usedAttendanceRepo struct {
	db *gorm.DB
}

// NewUsedAttendanceRepo 创建 UsedAttendanceRepository 实例
func NewUsedAttendanceRepo(db *gorm.DB) UsedAttendanceRepository {
	return &usedAttendanceRepo{db: db}
}

func (r *usedAttendanceRepo) Create(ctx context.Context, u *model.UsedAttendance) error {
	return translateError(r.db.WithContext(ctx).Create(u).Error, "同一天已登记相同考勤类型")
}

func (r *usedAttendanceRepo) GetByID(ctx context.Context, id string) (*model.UsedAttendance, error) {
	var u model.UsedAttendance
	err := r.db.WithContext(ctx).
		Preload("AttendanceType", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("used_attendance_id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usedAttendanceRepo) List(ctx context.Context, filter UsedAttendanceFilter) ([]model.UsedAttendance, error) {
	query := r.db.WithContext(ctx).Model(&model.UsedAttendance{})
	if filter.From != "" && filter.To != "" {
		query = query.Where("used_date BETWEEN ? AND ?", filter.From, filter.To)
	}
	if filter.EmployeeIDs != nil {
		if len(filter.EmployeeIDs) == 0 {
			return nil, nil
		}
		query = query.Where("employee_id IN ?", filter.EmployeeIDs)
	}

	var records []model.UsedAttendance
	err := query.
		Order("employee_id ASC, used_date ASC, created_at ASC").
		Find(&records).Error
	return records, err
}

func (r *usedAttendanceRepo) ExistsActive(ctx context.Context, employeeID, usedDate, attendanceTypeID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.UsedAttendance{}).
		Where("employee_id = ? AND used_date = ? AND attendance_type_id = ?", employeeID, usedDate, attendanceTypeID).
		Count(&count).Error
	return count > 0, err
}

func (r *usedAttendanceRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.UsedAttendance{}).
		Where("used_attendance_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now(),
		}).Error
}

func (r *usedAttendanceRepo) SoftDeleteByEmployeeDate(ctx context.Context, employeeID, usedDate, deletedBy string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.UsedAttendance{}).
		Where("employee_id = ? AND used_date = ?", employeeID, usedDate).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}
