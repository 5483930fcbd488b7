package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"

	"attendance-engine/backend/internal/model"
)

// SnapshotFilter 快照查询条件（零值表示不过滤）
type SnapshotFilter struct {
	Year         int
	Month        int
	Scope        model.SnapshotScope
	DepartmentID string
}

// SnapshotRepository 快照数据访问接口
type SnapshotRepository interface {
	// Create 写入快照头及全部明细
	Create(ctx context.Context, info *model.DataSnapshotInfo, batchSize int) error
	GetByID(ctx context.Context, id string, withChildren bool) (*model.DataSnapshotInfo, error)
	List(ctx context.Context, filter SnapshotFilter) ([]model.DataSnapshotInfo, error)
	// MaxVersion 返回同一 (year, month, scope, department) 下的最大版本号（含已软删除），无记录返回空串
	MaxVersion(ctx context.Context, year, month int, scope model.SnapshotScope, departmentID string) (string, error)
	SoftDelete(ctx context.Context, id, deletedBy string) error
}

type snapshotRepo struct {
	db *gorm.DB
}

// NewSnapshotRepo 创建 SnapshotRepository 实例
func NewSnapshotRepo(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{db: db}
}

func (r *snapshotRepo) Create(ctx context.Context, info *model.DataSnapshotInfo, batchSize int) error {
	children := info.Children
	if err := r.db.WithContext(ctx).Omit("Children").Create(info).Error; err != nil {
		return translateError(err, "快照版本号冲突")
	}
	for i := range children {
		children[i].DataSnapshotInfoID = info.DataSnapshotInfoID
	}
	for _, part := range chunk(children, batchSize) {
		if err := r.db.WithContext(ctx).Create(&part).Error; err != nil {
			return err
		}
	}
	info.Children = children
	return nil
}

func (r *snapshotRepo) GetByID(ctx context.Context, id string, withChildren bool) (*model.DataSnapshotInfo, error) {
	query := r.db.WithContext(ctx)
	if withChildren {
		query = query.Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Order("employee_id ASC")
		})
	}

	var info model.DataSnapshotInfo
	err := query.
		Where("data_snapshot_info_id = ?", id).
		First(&info).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *snapshotRepo) List(ctx context.Context, filter SnapshotFilter) ([]model.DataSnapshotInfo, error) {
	query := r.db.WithContext(ctx).Model(&model.DataSnapshotInfo{})
	if filter.Year != 0 {
		query = query.Where("year = ?", filter.Year)
	}
	if filter.Month != 0 {
		query = query.Where("month = ?", filter.Month)
	}
	if filter.Scope != "" {
		query = query.Where("scope = ?", filter.Scope)
	}
	if filter.DepartmentID != "" {
		query = query.Where("department_id = ?", filter.DepartmentID)
	}

	var infos []model.DataSnapshotInfo
	err := query.
		Order("year DESC, month DESC, scope ASC, department_id ASC, version DESC").
		Find(&infos).Error
	return infos, err
}

func (r *snapshotRepo) MaxVersion(ctx context.Context, year, month int, scope model.SnapshotScope, departmentID string) (string, error) {
	var max sql.NullString
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.DataSnapshotInfo{}).
		Where("year = ? AND month = ? AND scope = ? AND department_id = ?", year, month, scope, departmentID).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return "", err
	}
	return max.String, nil
}

func (r *snapshotRepo) SoftDelete(ctx context.Context, id, deletedBy string) error {
	now := time.Now()
	fields := map[string]interface{}{
		"deleted_by": deletedBy,
		"deleted_at": now,
	}
	if err := r.db.WithContext(ctx).
		Model(&model.DataSnapshotChild{}).
		Where("data_snapshot_info_id = ?", id).
		Updates(fields).Error; err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&model.DataSnapshotInfo{}).
		Where("data_snapshot_info_id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
