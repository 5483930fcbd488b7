package model

// AllModels 返回需要建表的全部模型（SQLite AutoMigrate 与集成测试共用）
func AllModels() []interface{} {
	return []interface{}{
		&Department{},
		&Employee{},
		&AccessEvent{},
		&AttendanceType{},
		&UsedAttendance{},
		&HolidayInfo{},
		&WorkTimeOverride{},
		&AttendancePolicyConfig{},
		&MonthlyEventSummary{},
		&DailyEventSummary{},
		&AttendanceIssue{},
		&ChangeHistory{},
		&DataSnapshotInfo{},
		&DataSnapshotChild{},
	}
}
