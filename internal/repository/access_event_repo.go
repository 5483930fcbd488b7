package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"attendance-engine/backend/internal/model"
)

// AccessEventFilter 门禁事件查询条件
// From/To 为 yyyyMMdd 闭区间
type AccessEventFilter struct {
	From            string
	To              string
	EmployeeNumbers []string
}

// AccessEventRepository 门禁事件数据访问接口（只追加）
type AccessEventRepository interface {
	List(ctx context.Context, filter AccessEventFilter) ([]model.AccessEvent, error)
	// BulkInsert 分块插入，(employee_number, event_date, event_time) 重复的事件被忽略
	BulkInsert(ctx context.Context, events []model.AccessEvent, batchSize int) (int64, error)
}

type accessEventRepo struct {
	db *gorm.DB
}

// NewAccessEventRepo 创建 AccessEventRepository 实例
func NewAccessEventRepo(db *gorm.DB) AccessEventRepository {
	return &accessEventRepo{db: db}
}

func (r *accessEventRepo) List(ctx context.Context, filter AccessEventFilter) ([]model.AccessEvent, error) {
	query := r.db.WithContext(ctx).
		Where("event_date BETWEEN ? AND ?", filter.From, filter.To)
	if filter.EmployeeNumbers != nil {
		if len(filter.EmployeeNumbers) == 0 {
			return nil, nil
		}
		query = query.Where("employee_number IN ?", filter.EmployeeNumbers)
	}

	var events []model.AccessEvent
	err := query.
		Order("employee_number ASC, event_date ASC, event_time ASC").
		Find(&events).Error
	return events, err
}

func (r *accessEventRepo) BulkInsert(ctx context.Context, events []model.AccessEvent, batchSize int) (int64, error) {
	var inserted int64
	for _, part := range chunk(events, batchSize) {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "employee_number"}, {Name: "event_date"}, {Name: "event_time"}},
				DoNothing: true,
			}).
			Create(&part)
		if result.Error != nil {
			return inserted, result.Error
		}
		inserted += result.RowsAffected
	}
	return inserted, nil
}
