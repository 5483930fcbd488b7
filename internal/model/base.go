package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	CreatedBy *string   `gorm:"type:varchar(64)"        json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:varchar(64)"        json:"updated_by,omitempty"`
}

// SoftDeleteModel 支持软删除的审计字段
// 重新计算时按自然键复活已软删除的行（DeletedAt 置空），以保持主键与下游外键稳定
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index"            json:"deleted_at,omitempty"`
	DeletedBy *string        `gorm:"type:varchar(64)" json:"deleted_by,omitempty"`
}

// IsDeleted 是否处于软删除（墓碑）状态
func (m *SoftDeleteModel) IsDeleted() bool { return m.DeletedAt.Valid }

// Revive 清除墓碑标记
func (m *SoftDeleteModel) Revive() {
	m.DeletedAt = gorm.DeletedAt{}
	m.DeletedBy = nil
}

// VersionedModel 支持乐观锁的软删除模型
type VersionedModel struct {
	SoftDeleteModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// NewID 生成字符串主键
func NewID() string { return uuid.NewString() }

// ensureID 主键为空时补齐，供各模型 BeforeCreate 钩子使用
func ensureID(id *string) {
	if *id == "" {
		*id = NewID()
	}
}

// StrPtr 返回字符串指针
func StrPtr(s string) *string { return &s }

// StrValue 解引用字符串指针，nil 返回空串
func StrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
