package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	pkgerrors "attendance-engine/backend/pkg/errors"
)

// DefaultBatchSize 批量写入的默认分块大小
const DefaultBatchSize = 1000

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Tx             Transactor
	Department     DepartmentRepository
	Employee       EmployeeRepository
	AccessEvent    AccessEventRepository
	AttendanceType AttendanceTypeRepository
	UsedAttendance UsedAttendanceRepository
	Calendar       CalendarRepository
	PolicyConfig   PolicyConfigRepository
	DailySummary   DailySummaryRepository
	MonthlySummary MonthlySummaryRepository
	Issue          AttendanceIssueRepository
	ChangeHistory  ChangeHistoryRepository
	Snapshot       SnapshotRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Tx:             &gormTransactor{db: db},
		Department:     NewDepartmentRepo(db),
		Employee:       NewEmployeeRepo(db),
		AccessEvent:    NewAccessEventRepo(db),
		AttendanceType: NewAttendanceTypeRepo(db),
		UsedAttendance: NewUsedAttendanceRepo(db),
		Calendar:       NewCalendarRepo(db),
		PolicyConfig:   NewPolicyConfigRepo(db),
		DailySummary:   NewDailySummaryRepo(db),
		MonthlySummary: NewMonthlySummaryRepo(db),
		Issue:          NewAttendanceIssueRepo(db),
		ChangeHistory:  NewChangeHistoryRepo(db),
		Snapshot:       NewSnapshotRepo(db),
	}
}

// ── 事务 ──

// Transactor 在单个事务内执行 fn，fn 收到绑定到该事务的 Repository
// fn 返回错误时整体回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(repo *Repository) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

func (t *gormTransactor) Transaction(ctx context.Context, fn func(repo *Repository) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// ── 错误转换 ──

// pgUniqueViolation PostgreSQL 唯一约束冲突 SQLSTATE
const pgUniqueViolation = "23505"

// translateError 将唯一约束冲突转换为 Conflict，其余原样返回
func translateError(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pkgerrors.Wrap(pkgerrors.KindConflict, conflictMsg, err)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return pkgerrors.Wrap(pkgerrors.KindConflict, conflictMsg, err)
	}
	return err
}

// chunk 按 size 切分
func chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
