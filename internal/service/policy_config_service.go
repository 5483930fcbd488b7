package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/internal/dto"
	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
)

// PolicyConfigService 考勤策略配置业务接口
type PolicyConfigService interface {
	Get(ctx context.Context) (*dto.PolicyConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdatePolicyConfigRequest, callerID string) (*dto.PolicyConfigResponse, error)
}

type policyConfigService struct {
	repo   *repository.Repository
	policy *PolicyProvider
	logger *zap.Logger
}

// NewPolicyConfigService 创建 PolicyConfigService 实例
func NewPolicyConfigService(repo *repository.Repository, policy *PolicyProvider, logger *zap.Logger) PolicyConfigService {
	return &policyConfigService{repo: repo, policy: policy, logger: logger}
}

// current 数据库配置；不存在时返回配置文件默认值与 isDefault=true
func (s *policyConfigService) current(ctx context.Context, repo *repository.Repository) (*model.AttendancePolicyConfig, bool, error) {
	cfg, err := repo.PolicyConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.policy.Defaults(), true, nil
		}
		s.logger.Error("查询考勤策略配置失败", zap.Error(err))
		return nil, false, err
	}
	return cfg, false, nil
}

// ────────────────────── Get ──────────────────────

func (s *policyConfigService) Get(ctx context.Context) (*dto.PolicyConfigResponse, error) {
	cfg, isDefault, err := s.current(ctx, s.repo)
	if err != nil {
		return nil, err
	}
	return toPolicyConfigResponse(cfg, isDefault), nil
}

// ────────────────────── Update ──────────────────────

func (s *policyConfigService) Update(ctx context.Context, req *dto.UpdatePolicyConfigRequest, callerID string) (*dto.PolicyConfigResponse, error) {
	var saved *model.AttendancePolicyConfig
	err := s.repo.Tx.Transaction(ctx, func(tx *repository.Repository) error {
		cfg, isDefault, err := s.current(ctx, tx)
		if err != nil {
			return err
		}

		if req.NormalStartTime != nil {
			cfg.NormalStartTime = *req.NormalStartTime
		}
		if req.NormalEndTime != nil {
			cfg.NormalEndTime = *req.NormalEndTime
		}
		if req.LateGraceMinutes != nil {
			cfg.LateGraceMinutes = *req.LateGraceMinutes
		}
		if req.WorkableMinutesPerDay != nil {
			cfg.WorkableMinutesPerDay = *req.WorkableMinutesPerDay
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if isDefault {
			cfg.CreatedBy = &callerID
		}
		cfg.UpdatedBy = &callerID
		if err := tx.PolicyConfig.Save(ctx, cfg); err != nil {
			s.logger.Error("更新考勤策略配置失败", zap.Error(err))
			return err
		}
		saved = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("考勤策略配置已更新", zap.String("caller", callerID))
	return toPolicyConfigResponse(saved, false), nil
}

func toPolicyConfigResponse(cfg *model.AttendancePolicyConfig, isDefault bool) *dto.PolicyConfigResponse {
	resp := &dto.PolicyConfigResponse{
		NormalStartTime:       cfg.NormalStartTime,
		NormalEndTime:         cfg.NormalEndTime,
		LateGraceMinutes:      cfg.LateGraceMinutes,
		WorkableMinutesPerDay: cfg.WorkableMinutesPerDay,
		IsDefault:             isDefault,
	}
	if !cfg.UpdatedAt.IsZero() {
		resp.UpdatedAt = cfg.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}
