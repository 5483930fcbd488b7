package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendance-engine/backend/internal/model"
)

// ChangeHistoryFilter 修改记录查询条件
type ChangeHistoryFilter struct {
	From                string
	To                  string
	EmployeeIDs         []string // nil 表示不过滤
	DailyEventSummaryID string
	IncludeDeleted      bool
}

// ChangeHistoryRepository 修改记录数据访问接口（只追加）
type ChangeHistoryRepository interface {
	Create(ctx context.Context, h *model.ChangeHistory) error
	List(ctx context.Context, filter ChangeHistoryFilter) ([]model.ChangeHistory, error)
	BatchUpsert(ctx context.Context, rows []model.ChangeHistory, batchSize int) error
	SoftDeleteByPeriod(ctx context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error)
}

type changeHistoryRepo struct {
	db *gorm.DB
}

// NewChangeHistoryRepo 创建 ChangeHistoryRepository 实例
func NewChangeHistoryRepo(db *gorm.DB) ChangeHistoryRepository {
	return &changeHistoryRepo{db: db}
}

func (r *changeHistoryRepo) Create(ctx context.Context, h *model.ChangeHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *changeHistoryRepo) List(ctx context.Context, filter ChangeHistoryFilter) ([]model.ChangeHistory, error) {
	query := r.db.WithContext(ctx).Model(&model.ChangeHistory{})
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
	if filter.DailyEventSummaryID != "" {
		query = query.Where("daily_event_summary_id = ?", filter.DailyEventSummaryID)
	}

	var rows []model.ChangeHistory
	err := query.Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *changeHistoryRepo) BatchUpsert(ctx context.Context, rows []model.ChangeHistory, batchSize int) error {
	for _, part := range chunk(rows, batchSize) {
		err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "change_history_id"}},
				UpdateAll: true,
			}).
			Create(&part).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *changeHistoryRepo) SoftDeleteByPeriod(ctx context.Context, from, to string, employeeIDs []string, deletedBy string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.ChangeHistory{}).
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
