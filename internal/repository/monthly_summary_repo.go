package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendance-engine/backend/internal/model"
)

// MonthlySummaryFilter 月度汇总查询条件
type MonthlySummaryFilter struct {
	YearMonth      string
	EmployeeIDs    []string // nil 表示不过滤
	IncludeDeleted bool
}

// MonthlySummaryRepository 月度汇总数据访问接口
type MonthlySummaryRepository interface {
	GetByID(ctx context.Context, id string) (*model.MonthlyEventSummary, error)
	GetByEmployeeMonth(ctx context.Context, employeeID, yearMonth string) (*model.MonthlyEventSummary, error)
	List(ctx context.Context, filter MonthlySummaryFilter) ([]model.MonthlyEventSummary, error)
	// BatchUpsert 按主键分块写入：已存在（含软删除）的行被整体覆盖并复活
	BatchUpsert(ctx context.Context, rows []model.MonthlyEventSummary, batchSize int) error
	// SoftDeleteByPeriod 软删除某月的有效行，exceptEmployeeIDs 中的员工除外
	SoftDeleteByPeriod(ctx context.Context, yearMonth string, exceptEmployeeIDs []string, deletedBy string) (int64, error)
}

type monthlySummaryRepo struct {
	db *gorm.DB
}

// NewMonthlySummaryRepo 创建 MonthlySummaryRepository 实例
func NewMonthlySummaryRepo(db *gorm.DB) MonthlySummaryRepository {
	return &monthlySummaryRepo{db: db}
}

func (r *monthlySummaryRepo) GetByID(ctx context.Context, id string) (*model.MonthlyEventSummary, error) {
	var row model.MonthlyEventSummary
	err := r.db.WithContext(ctx).
		Where("monthly_event_summary_id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *monthlySummaryRepo) GetByEmployeeMonth(ctx context.Context, employeeID, yearMonth string) (*model.MonthlyEventSummary, error) {
	var row model.MonthlyEventSummary
	err := r.db.WithContext(ctx).
		Where("employee_id = ? AND year_month = ?", employeeID, yearMonth).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *monthlySummaryRepo) List(ctx context.Context, filter MonthlySummaryFilter) ([]model.MonthlyEventSummary, error) {
	query := r.db.WithContext(ctx).Model(&model.MonthlyEventSummary{})
	if filter.IncludeDeleted {
		query = query.Unscoped()
	}
	if filter.YearMonth != "" {
		query = query.Where("year_month = ?", filter.YearMonth)
	}
	if filter.EmployeeIDs != nil {
		if len(filter.EmployeeIDs) == 0 {
			return nil, nil
		}
		query = query.Where("employee_id IN ?", filter.EmployeeIDs)
	}

	var rows []model.MonthlyEventSummary
	err := query.Order("employee_number ASC, employee_id ASC").Find(&rows).Error
	return rows, err
}

func (r *monthlySummaryRepo) BatchUpsert(ctx context.Context, rows []model.MonthlyEventSummary, batchSize int) error {
	for _, part := range chunk(rows, batchSize) {
		err := r.db.WithContext(ctx).
			Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "monthly_event_summary_id"}},
				UpdateAll: true,
			}).
			Create(&part).Error
		if err != nil {
			return translateError(err, "月度汇总自然键冲突")
		}
	}
	return nil
}

func (r *monthlySummaryRepo) SoftDeleteByPeriod(ctx context.Context, yearMonth string, exceptEmployeeIDs []string, deletedBy string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.MonthlyEventSummary{}).
		Where("year_month = ?", yearMonth)
	if len(exceptEmployeeIDs) > 0 {
		query = query.Where("employee_id NOT IN ?", exceptEmployeeIDs)
	}
	result := query.Updates(map[string]interface{}{
		"deleted_by": deletedBy,
		"deleted_at": time.Now(),
	})
	return result.RowsAffected, result.Error
}
