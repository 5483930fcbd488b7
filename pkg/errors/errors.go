package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 错误分类，Handler 层据此映射 HTTP 状态码
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindConflict            Kind = "CONFLICT"
	KindValidation          Kind = "VALIDATION_ERROR"
	KindPolicyInconsistency Kind = "POLICY_INCONSISTENCY"
	KindInternal            Kind = "INTERNAL"
)

// AppError 带分类的结构化业务错误
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is 同一 Kind 且同一 Message 视为同一错误，便于 sentinel 比较
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// New 创建指定分类的错误
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap 以指定分类包装底层错误
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// NotFound 引用的实体不存在
func NotFound(format string, args ...interface{}) *AppError {
	return New(KindNotFound, fmt.Sprintf(format, args...))
}

// Conflict 唯一性冲突或版本空间耗尽
func Conflict(format string, args ...interface{}) *AppError {
	return New(KindConflict, fmt.Sprintf(format, args...))
}

// Validation 输入格式或实体不变量校验失败
func Validation(format string, args ...interface{}) *AppError {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

// PolicyInconsistency 互斥字段同时提交等策略性矛盾
func PolicyInconsistency(format string, args ...interface{}) *AppError {
	return New(KindPolicyInconsistency, fmt.Sprintf(format, args...))
}

// KindOf 提取错误分类；非 AppError 返回 KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf 返回面向调用方的错误信息
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "服务器内部错误"
}
