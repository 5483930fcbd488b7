package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/config"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// Period — 计算期间（自然月）
// ════════════════════════════════════════════════════════════

// Period 一个自然月
type Period struct {
	YearMonth string // yyyy-MM
	Year      int
	Month     time.Month
	First     time.Time
	Last      time.Time
}

// ParsePeriod 解析 yyyy-MM
func ParsePeriod(yearMonth string) (Period, error) {
	first, err := time.Parse(model.YearMonthLayout, yearMonth)
	if err != nil {
		return Period{}, pkgerrors.Validation("年月格式无效 %q（应为 yyyy-MM）", yearMonth)
	}
	return Period{
		YearMonth: yearMonth,
		Year:      first.Year(),
		Month:     first.Month(),
		First:     first,
		Last:      first.AddDate(0, 1, -1),
	}, nil
}

// PeriodOf 由年、月构造期间
func PeriodOf(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, pkgerrors.Validation("月份无效: %d", month)
	}
	return ParsePeriod(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format(model.YearMonthLayout))
}

// From 期间首日 yyyy-MM-dd
func (p Period) From() string { return p.First.Format(model.DateLayout) }

// To 期间末日 yyyy-MM-dd
func (p Period) To() string { return p.Last.Format(model.DateLayout) }

// Dates 期间内全部日期
func (p Period) Dates() []string {
	dates := make([]string, 0, p.Last.Day())
	for d := p.First; !d.After(p.Last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(model.DateLayout))
	}
	return dates
}

// Contains 日期是否属于该期间
func (p Period) Contains(date string) bool {
	return date >= p.From() && date <= p.To()
}

// ════════════════════════════════════════════════════════════
// MonthPolicy — 一个月内的考勤策略快照（只读）
// ════════════════════════════════════════════════════════════

// workWindow 上下班时间（当天秒数）
type workWindow struct {
	start int
	end   int
}

// Minutes 窗口分钟数
func (w workWindow) Minutes() int { return (w.end - w.start) / 60 }

// MonthPolicy 按月批量加载的策略数据，整个计算过程复用
type MonthPolicy struct {
	Period
	normal                workWindow
	lateGraceSeconds      int
	workableMinutesPerDay int
	holidays              map[string]string
	overrides             map[string]workWindow
	types                 map[string]*model.AttendanceType
}

// IsHoliday 周末或节假日
func (p *MonthPolicy) IsHoliday(date string) bool {
	if _, ok := p.holidays[date]; ok {
		return true
	}
	return isWeekend(date)
}

// HolidayName 节假日名称（周末返回空串）
func (p *MonthPolicy) HolidayName(date string) string { return p.holidays[date] }

// WindowFor 指定日期的上下班时间：有覆盖取覆盖，否则取常规时间
func (p *MonthPolicy) WindowFor(date string) workWindow {
	if w, ok := p.overrides[date]; ok {
		return w
	}
	return p.normal
}

// LateGraceSeconds 迟到宽限（秒）
func (p *MonthPolicy) LateGraceSeconds() int { return p.lateGraceSeconds }

// WorkableMinutesPerDay 每个工作日的可工作分钟
func (p *MonthPolicy) WorkableMinutesPerDay() int { return p.workableMinutesPerDay }

// Type 按 ID 查找考勤类型
func (p *MonthPolicy) Type(id string) (*model.AttendanceType, bool) {
	t, ok := p.types[id]
	return t, ok
}

// Types 全部考勤类型
func (p *MonthPolicy) Types() map[string]*model.AttendanceType { return p.types }

// isWeekend 周六/周日
func isWeekend(date string) bool {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return false
	}
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ════════════════════════════════════════════════════════════
// PolicyProvider — 加载 MonthPolicy
// ════════════════════════════════════════════════════════════

// PolicyProvider 策略提供者：每次计算按月一次性读取考勤类型、节假日、时间覆盖与策略配置
type PolicyProvider struct {
	defaults config.AttendanceConfig
	logger   *zap.Logger
}

// NewPolicyProvider 创建策略提供者；defaults 在数据库无策略配置行时使用
func NewPolicyProvider(defaults config.AttendanceConfig, logger *zap.Logger) *PolicyProvider {
	return &PolicyProvider{defaults: defaults, logger: logger}
}

// Load 加载指定期间的策略
func (pp *PolicyProvider) Load(ctx context.Context, repo *repository.Repository, period Period) (*MonthPolicy, error) {
	cfg, err := pp.effectiveConfig(ctx, repo)
	if err != nil {
		return nil, err
	}
	start, err := model.ParseClock(cfg.NormalStartTime)
	if err != nil {
		return nil, pkgerrors.Validation("上班时间%s", err.Error())
	}
	end, err := model.ParseClock(cfg.NormalEndTime)
	if err != nil {
		return nil, pkgerrors.Validation("下班时间%s", err.Error())
	}

	types, err := repo.AttendanceType.List(ctx)
	if err != nil {
		pp.logger.Error("查询考勤类型失败", zap.Error(err))
		return nil, err
	}
	holidays, err := repo.Calendar.ListHolidays(ctx, period.From(), period.To())
	if err != nil {
		pp.logger.Error("查询节假日失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return nil, err
	}
	overrides, err := repo.Calendar.ListOverrides(ctx, period.From(), period.To())
	if err != nil {
		pp.logger.Error("查询上下班时间覆盖失败", zap.String("year_month", period.YearMonth), zap.Error(err))
		return nil, err
	}

	policy := &MonthPolicy{
		Period:                period,
		normal:                workWindow{start: start, end: end},
		lateGraceSeconds:      cfg.LateGraceMinutes * 60,
		workableMinutesPerDay: cfg.WorkableMinutesPerDay,
		holidays:              make(map[string]string, len(holidays)),
		overrides:             make(map[string]workWindow, len(overrides)),
		types:                 make(map[string]*model.AttendanceType, len(types)),
	}
	for i := range types {
		policy.types[types[i].AttendanceTypeID] = &types[i]
	}
	for _, h := range holidays {
		policy.holidays[h.Date] = h.Name
	}
	for _, o := range overrides {
		s, err1 := model.ParseClock(o.StartTime)
		e, err2 := model.ParseClock(o.EndTime)
		if err1 != nil || err2 != nil || e <= s {
			pp.logger.Warn("忽略无效的上下班时间覆盖", zap.String("date", o.Date),
				zap.String("start", o.StartTime), zap.String("end", o.EndTime))
			continue
		}
		policy.overrides[o.Date] = workWindow{start: s, end: e}
	}
	return policy, nil
}

// effectiveConfig 数据库策略配置优先，缺失时回退到配置文件默认值
func (pp *PolicyProvider) effectiveConfig(ctx context.Context, repo *repository.Repository) (*model.AttendancePolicyConfig, error) {
	cfg, err := repo.PolicyConfig.Get(ctx)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		pp.logger.Error("查询考勤策略配置失败", zap.Error(err))
		return nil, err
	}
	return pp.Defaults(), nil
}

// Defaults 配置文件中的默认策略
func (pp *PolicyProvider) Defaults() *model.AttendancePolicyConfig {
	return &model.AttendancePolicyConfig{
		Singleton:             true,
		NormalStartTime:       pp.defaults.NormalStartTime,
		NormalEndTime:         pp.defaults.NormalEndTime,
		LateGraceMinutes:      pp.defaults.LateGraceMinutes,
		WorkableMinutesPerDay: pp.defaults.WorkableMinutesPerDay,
	}
}
