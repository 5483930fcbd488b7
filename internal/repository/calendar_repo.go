package repository

import (
	"context"

	"gorm.io/gorm"

	"attendance-engine/backend/internal/model"
)

// CalendarRepository 节假日与按日上下班时间覆盖（外部维护，按月批量读取）
type CalendarRepository interface {
	ListHolidays(ctx context.Context, from, to string) ([]model.HolidayInfo, error)
	ListOverrides(ctx context.Context, from, to string) ([]model.WorkTimeOverride, error)
}

type calendarRepo struct {
	db *gorm.DB
}

// NewCalendarRepo 创建 CalendarRepository 实例
func NewCalendarRepo(db *gorm.DB) CalendarRepository {
	return &calendarRepo{db: db}
}

func (r *calendarRepo) ListHolidays(ctx context.Context, from, to string) ([]model.HolidayInfo, error) {
	var holidays []model.HolidayInfo
	err := r.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC").
		Find(&holidays).Error
	return holidays, err
}

func (r *calendarRepo) ListOverrides(ctx context.Context, from, to string) ([]model.WorkTimeOverride, error) {
	var overrides []model.WorkTimeOverride
	err := r.db.WithContext(ctx).
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC").
		Find(&overrides).Error
	return overrides, err
}

// ── PolicyConfig ──

// PolicyConfigRepository 考勤策略配置数据访问接口（单行）
type PolicyConfigRepository interface {
	Get(ctx context.Context) (*model.AttendancePolicyConfig, error)
	Save(ctx context.Context, cfg *model.AttendancePolicyConfig) error
}

type policyConfigRepo struct {
	db *gorm.DB
}

// NewPolicyConfigRepo 创建 PolicyConfigRepository 实例
func NewPolicyConfigRepo(db *gorm.DB) PolicyConfigRepository {
	return &policyConfigRepo{db: db}
}

func (r *policyConfigRepo) Get(ctx context.Context) (*model.AttendancePolicyConfig, error) {
	var cfg model.AttendancePolicyConfig
	err := r.db.WithContext(ctx).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *policyConfigRepo) Save(ctx context.Context, cfg *model.AttendancePolicyConfig) error {
	cfg.Singleton = true
	return r.db.WithContext(ctx).Save(cfg).Error
}
