package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
	"attendance-engine/backend/pkg/redis"
)

// ErrPeriodLocked 同一月份正在被其他任务重算
var ErrPeriodLocked = pkgerrors.Conflict("该月份正在计算中，请稍后重试")

const periodLockPrefix = "attendance:period:"

// PeriodLocker 按月份加锁，保证同一月份同时只有一个重算任务
type PeriodLocker interface {
	// Acquire 获取锁；已被占用返回 ErrPeriodLocked
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// redisPeriodLocker 基于 Redis SET NX 的实现
type redisPeriodLocker struct {
	client *redis.Client
}

// NewRedisPeriodLocker 创建 Redis 月份锁
func NewRedisPeriodLocker(client *redis.Client) PeriodLocker {
	return &redisPeriodLocker{client: client}
}

func (l *redisPeriodLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.AcquireLock(ctx, key, ttl)
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			return nil, ErrPeriodLocked
		}
		return nil, err
	}
	return lock.Release, nil
}

// PeriodJobService 整月重算任务
type PeriodJobService interface {
	// RunMonth 在月份锁保护下依次执行每日汇总（LIVE）与月度汇总，二者同一事务
	RunMonth(ctx context.Context, yearMonth, actor string) (*dto.RunMonthResponse, error)
}

type periodJobService struct {
	repo       *repository.Repository
	generator  *dailyGenerator
	aggregator *monthlyAggregator
	locker     PeriodLocker
	lockTTL    time.Duration
	logger     *zap.Logger
}

// NewPeriodJobService 创建 PeriodJobService 实例；locker 为 nil 时不加锁运行
func NewPeriodJobService(repo *repository.Repository, policy *PolicyProvider, locker PeriodLocker, lockTTL time.Duration, batchSize int, logger *zap.Logger) PeriodJobService {
	return &periodJobService{
		repo:       repo,
		generator:  newDailyGenerator(policy, batchSize, logger),
		aggregator: newMonthlyAggregator(policy, batchSize, logger),
		locker:     locker,
		lockTTL:    lockTTL,
		logger:     logger,
	}
}

func (s *periodJobService) RunMonth(ctx context.Context, yearMonth, actor string) (*dto.RunMonthResponse, error) {
	period, err := ParsePeriod(yearMonth)
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("year_month", period.YearMonth))

	if s.locker == nil {
		log.Warn("未配置月份锁，重算任务不加锁运行")
	} else {
		release, err := s.locker.Acquire(ctx, periodLockPrefix+period.YearMonth, s.lockTTL)
		switch {
		case errors.Is(err, ErrPeriodLocked):
			return nil, err
		case err != nil:
			log.Warn("获取月份锁失败，重算任务不加锁运行", zap.Error(err))
		default:
			defer func() {
				if err := release(context.Background()); err != nil {
					log.Warn("释放月份锁失败", zap.Error(err))
				}
			}()
		}
	}

	started := time.Now()
	resp := &dto.RunMonthResponse{YearMonth: period.YearMonth}
	err = s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		outcome, err := s.generator.generate(ctx, tx, period, GenerationModeLive, nil, actor)
		if err != nil {
			return err
		}
		resp.Daily = *toGenerationResponse(period, outcome)
		resp.Monthly = dto.MonthlyGenerationResponse{YearMonth: period.YearMonth}
		if len(outcome.Rows) == 0 {
			_, err := tx.MonthlySummary.SoftDeleteByPeriod(ctx, period.YearMonth, nil, actor)
			return err
		}
		monthlies, err := s.aggregator.aggregate(ctx, tx, period, nil, actor)
		if err != nil {
			return err
		}
		resp.Monthly.Count = len(monthlies)
		return nil
	})
	if err != nil {
		log.Error("整月重算失败", zap.Error(err))
		return nil, err
	}

	log.Info("整月重算完成",
		zap.Int("daily", resp.Daily.Count),
		zap.Int("monthly", resp.Monthly.Count),
		zap.Duration("elapsed", time.Since(started)))
	return resp, nil
}
