package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"not found", NotFound("员工 %s 不存在", "e-1"), KindNotFound},
		{"conflict wrapped", fmt.Errorf("保存失败: %w", Conflict("版本已用尽")), KindConflict},
		{"validation", Validation("日期格式无效"), KindValidation},
		{"policy", PolicyInconsistency("互斥字段"), KindPolicyInconsistency},
		{"plain", errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("期望 %q，实际 %q", tc.want, got)
			}
		})
	}
}

func TestAppError_IsSentinel(t *testing.T) {
	sentinel := NotFound("异常记录不存在")
	wrapped := fmt.Errorf("apply: %w", NotFound("异常记录不存在"))

	if !errors.Is(wrapped, sentinel) {
		t.Error("同 Kind 同 Message 应视为同一错误")
	}
	if errors.Is(wrapped, NotFound("其他")) {
		t.Error("不同 Message 不应匹配")
	}
}

func TestWrap_Unwrap(t *testing.T) {
	base := errors.New("duplicate key")
	err := Wrap(KindConflict, "重复记录", base)

	if !errors.Is(err, base) {
		t.Error("Wrap 后应能 Unwrap 到底层错误")
	}
	if MessageOf(err) != "重复记录" {
		t.Errorf("MessageOf 期望 重复记录，实际 %s", MessageOf(err))
	}
	if MessageOf(base) != "服务器内部错误" {
		t.Errorf("非 AppError 应返回通用信息")
	}
}
