package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"attendance-engine/backend/internal/model"
	"attendance-engine/backend/internal/repository"
	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoData       = pkgerrors.NotFound("该月暂无月度汇总")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Excel：Sheet "月度汇总" 每人一行，Sheet "每日明细" 每人每天一行
//   - PDF：单人月度考勤确认单（gofpdf 内置字体仅支持 Latin-1，标签使用英文）
type ExportService interface {
	ExportMonthlySummaries(ctx context.Context, yearMonth, departmentID string) (*bytes.Buffer, string, error)
	ExportEmployeeMonthlyPDF(ctx context.Context, employeeID, yearMonth string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportMonthlySummaries — 导出月度汇总为 Excel
// ═══════════════════════════════════════════════════════════

var monthlyHeaders = []string{
	"工号", "员工ID", "出勤天数", "可工作分钟", "工作分钟", "日均工作分钟",
	"迟到次数", "缺勤次数", "早退次数", "扣减假期单位",
}

var dailyHeaders = []string{
	"工号", "日期", "节假日", "上班", "下班", "刷卡上班", "刷卡下班",
	"工作分钟", "迟到", "缺勤", "早退", "类型冲突", "类型重叠", "考勤类型", "已审核", "备注",
}

func (s *exportService) ExportMonthlySummaries(ctx context.Context, yearMonth, departmentID string) (*bytes.Buffer, string, error) {
	period, err := ParsePeriod(yearMonth)
	if err != nil {
		return nil, "", err
	}

	// 1. 查询月度汇总
	filter := repository.MonthlySummaryFilter{YearMonth: yearMonth}
	if departmentID != "" {
		ids, err := departmentEmployeeIDs(ctx, s.repo, departmentID)
		if err != nil {
			s.logger.Error("查询部门员工失败", zap.String("department_id", departmentID), zap.Error(err))
			return nil, "", err
		}
		filter.EmployeeIDs = ids
	}
	monthlies, err := s.repo.MonthlySummary.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询月度汇总失败", zap.String("year_month", yearMonth), zap.Error(err))
		return nil, "", err
	}
	if len(monthlies) == 0 {
		return nil, "", ErrExportNoData
	}

	// 2. 查询每日明细
	ids := make([]string, 0, len(monthlies))
	for _, m := range monthlies {
		ids = append(ids, m.EmployeeID)
	}
	dailies, err := s.repo.DailySummary.List(ctx, repository.DailySummaryFilter{From: period.From(), To: period.To(), EmployeeIDs: ids})
	if err != nil {
		s.logger.Error("查询每日汇总失败", zap.String("year_month", yearMonth), zap.Error(err))
		return nil, "", err
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	const monthlySheet = "月度汇总"
	idx, _ := f.NewSheet(monthlySheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	writeHeader(f, monthlySheet, monthlyHeaders, headerStyle)
	f.SetColWidth(monthlySheet, "A", colName(len(monthlyHeaders)-1), 14)

	for i, m := range monthlies {
		row := i + 2
		values := []interface{}{
			m.EmployeeNumber, m.EmployeeID, m.WorkDaysCount, m.TotalWorkableMinutes, m.TotalWorkMinutes,
			m.AverageWorkMinutes.StringFixed(2), m.LateCount, m.AbsenceCount, m.EarlyLeaveCount,
			m.DeductedLeaveUnits.StringFixed(2),
		}
		for c, v := range values {
			f.SetCellValue(monthlySheet, cell(colName(c), row), v)
		}
	}

	const dailySheet = "每日明细"
	f.NewSheet(dailySheet)
	writeHeader(f, dailySheet, dailyHeaders, headerStyle)
	f.SetColWidth(dailySheet, "A", colName(len(dailyHeaders)-1), 12)

	for i, d := range dailies {
		row := i + 2
		values := []interface{}{
			d.EmployeeNumber, d.Date, yesNo(d.IsHoliday),
			displayClock(d.EnterTime), displayClock(d.LeaveTime),
			displayClock(d.RawEnterTime), displayClock(d.RawLeaveTime),
			displayMinutes(d.WorkTime),
			yesNo(d.IsLate), yesNo(d.IsAbsent), yesNo(d.IsEarlyLeave),
			yesNo(d.HasTypeConflict), yesNo(d.HasTypeOverlap),
			titles(d.AppliedAttendances), yesNo(d.IsChecked), d.Note,
		}
		for c, v := range values {
			f.SetCellValue(dailySheet, cell(colName(c), row), v)
		}
	}

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("考勤汇总_%s.xlsx", yearMonth)
	return buf, filename, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), style)
}

// ═══════════════════════════════════════════════════════════
// ExportEmployeeMonthlyPDF — 单人月度考勤确认单
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportEmployeeMonthlyPDF(ctx context.Context, employeeID, yearMonth string) (*bytes.Buffer, string, error) {
	period, err := ParsePeriod(yearMonth)
	if err != nil {
		return nil, "", err
	}

	monthly, err := s.repo.MonthlySummary.GetByEmployeeMonth(ctx, employeeID, yearMonth)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrMonthlySummaryNotFound
		}
		s.logger.Error("查询月度汇总失败", zap.String("employee_id", employeeID), zap.String("year_month", yearMonth), zap.Error(err))
		return nil, "", err
	}
	dailies, err := s.repo.DailySummary.List(ctx, repository.DailySummaryFilter{
		From: period.From(), To: period.To(), EmployeeIDs: []string{employeeID},
	})
	if err != nil {
		s.logger.Error("查询每日汇总失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Monthly Attendance Statement")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Employee: %s (%s)", monthly.EmployeeNumber, monthly.EmployeeID),
		fmt.Sprintf("Period: %s to %s", period.From(), period.To()),
		fmt.Sprintf("Work days: %d", monthly.WorkDaysCount),
		fmt.Sprintf("Work minutes: %d / %d workable", monthly.TotalWorkMinutes, monthly.TotalWorkableMinutes),
		fmt.Sprintf("Average minutes per work day: %s", monthly.AverageWorkMinutes.StringFixed(2)),
		fmt.Sprintf("Late: %d  Absent: %d  Early leave: %d", monthly.LateCount, monthly.AbsenceCount, monthly.EarlyLeaveCount),
		fmt.Sprintf("Deducted leave units: %s", monthly.DeductedLeaveUnits.StringFixed(2)),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	// 周统计
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Weekly work time")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, w := range monthly.WeeklyWorkTimes {
		pdf.Cell(0, 6, fmt.Sprintf("%d-W%02d  %s ~ %s  %d min", w.ISOYear, w.ISOWeek, w.StartDate, w.EndDate, w.WorkMinutes))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	// 每日明细表
	widths := []float64{26, 22, 22, 22, 22, 20, 56}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range []string{"Date", "Enter", "Leave", "Raw in", "Raw out", "Minutes", "Flags"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, d := range dailies {
		cells := []string{
			d.Date,
			displayClock(d.EnterTime), displayClock(d.LeaveTime),
			displayClock(d.RawEnterTime), displayClock(d.RawLeaveTime),
			pdfMinutes(d.WorkTime), pdfFlags(&d),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		s.logger.Error("生成 PDF 失败", zap.String("employee_id", employeeID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("attendance_%s_%s.pdf", monthly.EmployeeNumber, yearMonth)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return ""
}

func pdfMinutes(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func pdfFlags(d *model.DailyEventSummary) string {
	var flags []byte
	add := func(cond bool, s string) {
		if !cond {
			return
		}
		if len(flags) > 0 {
			flags = append(flags, ' ')
		}
		flags = append(flags, s...)
	}
	add(d.IsHoliday, "HOL")
	add(d.IsAbsent, "ABS")
	add(d.IsLate, "LATE")
	add(d.IsEarlyLeave, "EARLY")
	add(d.HasTypeConflict, "CONFLICT")
	add(d.HasTypeOverlap, "OVERLAP")
	add(len(d.AppliedAttendances) > 0, "LEAVE")
	return string(flags)
}
