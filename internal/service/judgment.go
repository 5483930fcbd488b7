package service

import (
	"sort"

	"attendance-engine/backend/internal/model"
)

// ════════════════════════════════════════════════════════════
// 工作时长计算
// ════════════════════════════════════════════════════════════

// 法定休息时间阈值（分钟）
const (
	breakThresholdShort = 240 // 满 4 小时休息 30 分钟
	breakThresholdLong  = 480 // 满 8 小时休息 60 分钟
)

// 周统计扣减
const (
	lunchStart           = 12 * 3600
	lunchEnd             = 13 * 3600
	lunchDeduction       = 60
	longDayThreshold     = 780
	longDayExtraDeducted = 30
)

// LegalBreakMinutes 按在岗时长计算的法定休息分钟
func LegalBreakMinutes(elapsed int) int {
	switch {
	case elapsed < breakThresholdShort:
		return 0
	case elapsed < breakThresholdLong:
		return 30
	default:
		return 60
	}
}

// WorkMinutes 上下班时刻（秒）之间扣除法定休息后的工作分钟，不小于 0
func WorkMinutes(enterSec, leaveSec int) int {
	elapsed := (leaveSec - enterSec) / 60
	if elapsed <= 0 {
		return 0
	}
	work := elapsed - LegalBreakMinutes(elapsed)
	if work < 0 {
		return 0
	}
	return work
}

// WeeklyContribution 单日计入周统计的分钟数
// rawEnter/rawLeave 为门禁原始时刻（秒，可为 nil），usageMinutes 为当天认定考勤类型的分钟合计
func WeeklyContribution(rawEnter, rawLeave *int, usageMinutes int) int {
	rawElapsed := 0
	spansLunch := false
	if rawEnter != nil && rawLeave != nil && *rawLeave > *rawEnter {
		rawElapsed = (*rawLeave - *rawEnter) / 60
		spansLunch = *rawEnter <= lunchStart && *rawLeave >= lunchEnd
	}

	total := rawElapsed + usageMinutes
	if spansLunch {
		total -= lunchDeduction
	}
	if rawElapsed >= longDayThreshold {
		total -= longDayExtraDeducted
	}
	if total < 0 {
		return 0
	}
	return total
}

// ════════════════════════════════════════════════════════════
// Judgment — 单日缺勤/迟到/早退/类型冲突判定（纯逻辑）
// ════════════════════════════════════════════════════════════

// JudgmentInput 单日判定输入
type JudgmentInput struct {
	IsHoliday        bool
	Employed         bool
	Window           workWindow
	LateGraceSeconds int
	HasEvents        bool
	EnterSec         *int // 策略修正后的上班时刻
	LeaveSec         *int // 策略修正后的下班时刻
	Types            []*model.AttendanceType
}

// Judgment 单日判定结果
type Judgment struct {
	IsAbsent          bool
	IsLate            bool
	IsEarlyLeave      bool
	HasTypeConflict   bool
	HasTypeOverlap    bool
	FullDayRecognized bool
}

// Judge 判定单日考勤状态
//   - 周末/节假日、在职区间外：不判缺勤/迟到/早退
//   - 整天认定（整天类型、上午+下午半天、或认定窗口覆盖整个上班时间）：不判缺勤/迟到/早退
//   - 无刷卡且无认定类型：缺勤
//   - 上班时刻晚于 上班时间+宽限：迟到；下班时刻早于下班时间：早退
//   - 两条使用记录窗口完全相同为冲突，部分相交为重叠
func Judge(in JudgmentInput) Judgment {
	var j Judgment
	j.HasTypeConflict, j.HasTypeOverlap = typeWindowClashes(in.Types)
	j.FullDayRecognized = IsFullDayRecognized(in.Types, in.Window)

	if in.IsHoliday || !in.Employed || j.FullDayRecognized {
		return j
	}

	if !in.HasEvents && !hasRecognized(in.Types) {
		j.IsAbsent = true
		return j
	}
	if in.EnterSec != nil && *in.EnterSec > in.Window.start+in.LateGraceSeconds {
		j.IsLate = true
	}
	if in.LeaveSec != nil && *in.LeaveSec < in.Window.end {
		j.IsEarlyLeave = true
	}
	return j
}

// IsFullDayRecognized 当天认定类型的组合是否构成整天
func IsFullDayRecognized(types []*model.AttendanceType, window workWindow) bool {
	var morning, afternoon bool
	var spans [][2]int
	for _, t := range types {
		if t == nil || !t.IsRecognizedAsWorkTime {
			continue
		}
		switch t.Category {
		case model.CategoryFullDay:
			return true
		case model.CategoryMorningHalf:
			morning = true
		case model.CategoryAfternoonHalf:
			afternoon = true
		}
		if s, e, ok := t.Window(); ok {
			spans = append(spans, [2]int{s, e})
		}
	}
	if morning && afternoon {
		return true
	}
	return coversWindow(spans, window)
}

// coversWindow 区间并集是否覆盖整个上班时间
func coversWindow(spans [][2]int, window workWindow) bool {
	if len(spans) == 0 {
		return false
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })
	reach := window.start
	for _, sp := range spans {
		if sp[0] > reach {
			break
		}
		if sp[1] > reach {
			reach = sp[1]
		}
		if reach >= window.end {
			return true
		}
	}
	return reach >= window.end
}

// typeWindowClashes 两两比较使用记录的时间窗口
func typeWindowClashes(types []*model.AttendanceType) (conflict, overlap bool) {
	for i := 0; i < len(types); i++ {
		if types[i] == nil {
			continue
		}
		s1, e1, ok1 := types[i].Window()
		if !ok1 {
			continue
		}
		for k := i + 1; k < len(types); k++ {
			if types[k] == nil {
				continue
			}
			s2, e2, ok2 := types[k].Window()
			if !ok2 {
				continue
			}
			switch {
			case s1 == s2 && e1 == e2:
				conflict = true
			case s1 < e2 && s2 < e1:
				overlap = true
			}
		}
	}
	return conflict, overlap
}

func hasRecognized(types []*model.AttendanceType) bool {
	for _, t := range types {
		if t != nil && t.IsRecognizedAsWorkTime {
			return true
		}
	}
	return false
}
