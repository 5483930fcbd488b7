package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendance-engine/backend/internal/model"
)

// DailySummaryFilter 每日汇总查询条件
// From/To 为 yyyy-MM-dd 闭区间；EmployeeIDs 为 nil 表示不过滤，为空切片表示无结果
type DailySummaryFilter struct {
	From                  string
	To                    string
	EmployeeIDs           []string
	MonthlyEventSummaryID string
	IncludeDeleted        bool // 包含已软删除的行（用于按自然键复活）
}

// DailySummaryRepository 每日汇总数据访问接口
type DailySummaryRepository interface {
	GetByID(ctx context.Context, id string) (*model.DailyEventSummary, error)
	List(ctx context.Context, filter DailySummaryFilter) ([]model.DailyEventSummary, error)
	// SoftDeleteByPeriod 软删除期间内的有效行；employeeIDs 为 nil 表示全部员工
	SoftDeleteByPeriod(ctx context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error)
	// BatchUpsert 按主键分块写入：已存在（含软删除）的行被整体覆盖并复活
	BatchUpsert(ctx context.Context, rows []model.DailyEventSummary, batchSize int) error
	Update(ctx context.Context, row *model.DailyEventSummary) error
	LinkMonthly(ctx context.Context, ids []string, monthlyID string) error
}

type dailySummaryRepo struct {
	db *gorm.DB
}

// NewDailySummaryRepo 创建 DailySummaryRepository 实例
func NewDailySummaryRepo(db *gorm.DB) DailySummaryRepository {
	return &dailySummaryRepo{db: db}
}

func (r *dailySummaryRepo) GetByID(ctx context.Context, id string) (*model.DailyEventSummary, error) {
	var row model.DailyEventSummary
	err := r.db.WithContext(ctx).
		Where("daily_event_summary_id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *dailySummaryRepo) List(ctx context.Context, filter DailySummaryFilter) ([]model.DailyEventSummary, error) {
	query := r.db.WithContext(ctx).Model(&model.DailyEventSummary{})
	if filter.IncludeDeleted {
		query = query.Unscoped()
	}
	if filter.From != "" && filter.To != "" {
		query = query.Where("date BETWEEN ? AND ?", filter.From, filter.To)
	}
	if filter.EmployeeIDs != nil {
		if len(filter.EmployeeIDs) == 0 {
			return nil, nil
		}
		query = query.Where("employee_id IN ?", filter.EmployeeIDs)
	}
	if filter.MonthlyEventSummaryID != "" {
		query = query.Where("monthly_event_summary_id = ?", filter.MonthlyEventSummaryID)
	}

	var rows []model.DailyEventSummary
	err := query.Order("employee_id ASC, date ASC").Find(&rows).Error
	return rows, err
}

func (r *dailySummaryRepo) SoftDeleteByPeriod(ctx context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.DailyEventSummary{}).
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

func (r *dailySummaryRepo) BatchUpsert(ctx context.Context, rows []model.DailyEventSummary, batchSize int) error {
	for _, part := range chunk(rows, batchSize) {
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "daily_event_summary_id"}},
				UpdateAll: true,
			}).
			Create(&part).Error
		if err != nil {
			return translateError(err, "每日汇总自然键冲突")
		}
	}
	return nil
}

func (r *dailySummaryRepo) Update(ctx context.Context, row *model.DailyEventSummary) error {
	return r.db.WithContext(ctx).Save(row).Error
}

func (r *dailySummaryRepo) LinkMonthly(ctx context.Context, ids []string, monthlyID string) error {
	for _, part := range chunk(ids, DefaultBatchSize) {
		err := r.db.WithContext(ctx).
			Model(&model.DailyEventSummary{}).
			Where("daily_event_summary_id IN ?", part).
			Update("monthly_event_summary_id", monthlyID).Error
		if err != nil {
			return err
		}
	}
	return nil
}
