package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"attendance-engine/backend/internal/model"
)

func clockSec(t *testing.T, s string) int {
	t.Helper()
	sec, err := model.ParseClock(s)
	if err != nil {
		t.Fatalf("解析时刻失败: %v", err)
	}
	return sec
}

func windowType(id string, category model.AttendanceTypeCategory, recognized bool, start, end string) *model.AttendanceType {
	return &model.AttendanceType{
		AttendanceTypeID:       id,
		Title:                  id,
		Category:               category,
		IsRecognizedAsWorkTime: recognized,
		WindowStart:            model.StrPtr(start),
		WindowEnd:              model.StrPtr(end),
	}
}

// ── 法定休息 ──

func TestLegalBreakMinutes_Boundaries(t *testing.T) {
	cases := []struct {
		elapsed int
		want    int
	}{
		{0, 0},
		{239, 0},
		{240, 30},
		{479, 30},
		{480, 60},
		{780, 60},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LegalBreakMinutes(tc.elapsed), "elapsed=%d", tc.elapsed)
	}
}

func TestWorkMinutes(t *testing.T) {
	assert.Equal(t, 495, WorkMinutes(clockSec(t, "09:05:00"), clockSec(t, "18:20:00")))
	assert.Equal(t, 480, WorkMinutes(clockSec(t, "09:00:00"), clockSec(t, "18:00:00")))
	assert.Equal(t, 239, WorkMinutes(clockSec(t, "09:00:00"), clockSec(t, "12:59:00")))
	assert.Equal(t, 210, WorkMinutes(clockSec(t, "09:00:00"), clockSec(t, "13:00:00")))
	assert.Equal(t, 0, WorkMinutes(clockSec(t, "18:00:00"), clockSec(t, "09:00:00")), "下班早于上班应为 0")
}

func TestWeeklyContribution(t *testing.T) {
	enter, leave := clockSec(t, "09:05:00"), clockSec(t, "18:20:00")
	assert.Equal(t, 495, WeeklyContribution(&enter, &leave, 0), "跨午休扣 60")

	assert.Equal(t, 540, WeeklyContribution(nil, nil, 540), "仅认定类型")

	early, late := clockSec(t, "08:00:00"), clockSec(t, "22:00:00")
	assert.Equal(t, 840-60-30, WeeklyContribution(&early, &late, 0), "满 13 小时额外扣 30")

	morningIn, morningOut := clockSec(t, "08:00:00"), clockSec(t, "11:00:00")
	assert.Equal(t, 180+240, WeeklyContribution(&morningIn, &morningOut, 240), "未跨午休不扣")
}

// ── 判定 ──

func normalWindow(t *testing.T) workWindow {
	return workWindow{start: clockSec(t, "09:00:00"), end: clockSec(t, "18:00:00")}
}

func TestJudge_LateAndEarlyLeave(t *testing.T) {
	base := JudgmentInput{Employed: true, Window: normalWindow(t), LateGraceSeconds: 600, HasEvents: true}

	cases := []struct {
		name       string
		enter      string
		leave      string
		late       bool
		earlyLeave bool
	}{
		{"正常", "09:00:00", "18:00:00", false, false},
		{"宽限内", "09:10:00", "18:00:00", false, false},
		{"超出宽限", "09:10:01", "18:00:00", true, false},
		{"早退", "09:00:00", "17:59:59", false, true},
		{"迟到且早退", "10:00:00", "17:00:00", true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			enter, leave := clockSec(t, tc.enter), clockSec(t, tc.leave)
			in.EnterSec, in.LeaveSec = &enter, &leave
			j := Judge(in)
			assert.Equal(t, tc.late, j.IsLate)
			assert.Equal(t, tc.earlyLeave, j.IsEarlyLeave)
			assert.False(t, j.IsAbsent)
		})
	}
}

func TestJudge_Absence(t *testing.T) {
	w := normalWindow(t)

	assert.True(t, Judge(JudgmentInput{Employed: true, Window: w}).IsAbsent, "工作日无刷卡无类型应缺勤")
	assert.False(t, Judge(JudgmentInput{Employed: true, IsHoliday: true, Window: w}).IsAbsent, "节假日不判缺勤")
	assert.False(t, Judge(JudgmentInput{Employed: false, Window: w}).IsAbsent, "在职区间外不判缺勤")

	outing := windowType("outing", model.CategoryOther, false, "14:00:00", "16:00:00")
	assert.True(t, Judge(JudgmentInput{Employed: true, Window: w, Types: []*model.AttendanceType{outing}}).IsAbsent,
		"不认定为工作时间的类型不能抵消缺勤")
}

func TestJudge_TypeConflictVersusOverlap(t *testing.T) {
	w := normalWindow(t)
	a := windowType("a", model.CategoryOther, true, "09:00:00", "13:00:00")
	same := windowType("b", model.CategoryOther, true, "09:00:00", "13:00:00")
	partial := windowType("c", model.CategoryOther, true, "11:00:00", "15:00:00")
	disjoint := windowType("d", model.CategoryOther, true, "14:00:00", "18:00:00")

	j := Judge(JudgmentInput{Employed: true, Window: w, Types: []*model.AttendanceType{a, same}})
	assert.True(t, j.HasTypeConflict)
	assert.False(t, j.HasTypeOverlap)

	j = Judge(JudgmentInput{Employed: true, Window: w, Types: []*model.AttendanceType{a, partial}})
	assert.False(t, j.HasTypeConflict)
	assert.True(t, j.HasTypeOverlap)

	j = Judge(JudgmentInput{Employed: true, Window: w, Types: []*model.AttendanceType{a, disjoint}})
	assert.False(t, j.HasTypeConflict)
	assert.False(t, j.HasTypeOverlap)
}

func TestIsFullDayRecognized(t *testing.T) {
	w := normalWindow(t)
	fullDay := windowType("full", model.CategoryFullDay, true, "09:00:00", "18:00:00")
	morning := windowType("am", model.CategoryMorningHalf, true, "09:00:00", "13:00:00")
	afternoon := windowType("pm", model.CategoryAfternoonHalf, true, "13:00:00", "18:00:00")
	notRecognized := windowType("x", model.CategoryFullDay, false, "09:00:00", "18:00:00")
	first := windowType("p1", model.CategoryOther, true, "08:30:00", "12:00:00")
	second := windowType("p2", model.CategoryOther, true, "12:00:00", "18:30:00")
	gap := windowType("p3", model.CategoryOther, true, "12:30:00", "18:30:00")

	assert.True(t, IsFullDayRecognized([]*model.AttendanceType{fullDay}, w))
	assert.True(t, IsFullDayRecognized([]*model.AttendanceType{morning, afternoon}, w))
	assert.False(t, IsFullDayRecognized([]*model.AttendanceType{morning}, w))
	assert.False(t, IsFullDayRecognized([]*model.AttendanceType{notRecognized}, w))
	assert.True(t, IsFullDayRecognized([]*model.AttendanceType{second, first}, w), "窗口并集覆盖整个上班时间")
	assert.False(t, IsFullDayRecognized([]*model.AttendanceType{first, gap}, w), "窗口之间有空档")
}

func TestJudge_FullDaySuppressesJudgment(t *testing.T) {
	w := normalWindow(t)
	morning := windowType("am", model.CategoryMorningHalf, true, "09:00:00", "13:00:00")
	afternoon := windowType("pm", model.CategoryAfternoonHalf, true, "13:00:00", "18:00:00")
	enter, leave := clockSec(t, "11:00:00"), clockSec(t, "15:00:00")

	j := Judge(JudgmentInput{
		Employed: true, Window: w, LateGraceSeconds: 600, HasEvents: true,
		EnterSec: &enter, LeaveSec: &leave,
		Types: []*model.AttendanceType{morning, afternoon},
	})
	assert.True(t, j.FullDayRecognized)
	assert.False(t, j.IsLate)
	assert.False(t, j.IsEarlyLeave)
	assert.False(t, j.IsAbsent)
}
