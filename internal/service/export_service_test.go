package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	pkgerrors "attendance-engine/backend/pkg/errors"
)

// ── 测试辅助 ──

func setupTestExportService(t *testing.T) (*testEnv, ExportService) {
	t.Helper()
	env := newTestEnv()
	seedNovember(t, env)
	env.generateLive(t)
	_, err := env.monthlyService().GenerateMonthlySummaries(context.Background(), testYearMonth, testActor)
	require.NoError(t, err)
	return env, NewExportService(env.repo, env.logger)
}

// ── ExportMonthlySummaries 测试 ──

func TestExportService_ExportMonthlySummaries_Success(t *testing.T) {
	_, svc := setupTestExportService(t)

	buf, filename, err := svc.ExportMonthlySummaries(context.Background(), testYearMonth, "")
	require.NoError(t, err)
	assert.Equal(t, "考勤汇总_2025-11.xlsx", filename)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"月度汇总", "每日明细"}, f.GetSheetList())

	number, err := f.GetCellValue("月度汇总", "A2")
	require.NoError(t, err)
	assert.Equal(t, testEmpNumber, number)
	total, _ := f.GetCellValue("月度汇总", "E2")
	assert.Equal(t, "1035", total)
	average, _ := f.GetCellValue("月度汇总", "F2")
	assert.Equal(t, "517.50", average)

	rows, err := f.GetRows("每日明细")
	require.NoError(t, err)
	assert.Len(t, rows, 31, "表头 + 30 天")

	// 第 4 行为 11-03
	date, _ := f.GetCellValue("每日明细", "B4")
	assert.Equal(t, "2025-11-03", date)
	enter, _ := f.GetCellValue("每日明细", "D4")
	assert.Equal(t, "09:05:00", enter)
	minutes, _ := f.GetCellValue("每日明细", "H4")
	assert.Equal(t, "495分钟", minutes)
	leave, _ := f.GetCellValue("每日明细", "N5")
	assert.Equal(t, "年假", leave)
}

func TestExportService_ExportMonthlySummaries_DepartmentFilter(t *testing.T) {
	_, svc := setupTestExportService(t)

	_, _, err := svc.ExportMonthlySummaries(context.Background(), testYearMonth, "dept-none")
	assert.ErrorIs(t, err, ErrExportNoData)

	buf, _, err := svc.ExportMonthlySummaries(context.Background(), testYearMonth, testDeptID)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}

func TestExportService_ExportMonthlySummaries_NoData(t *testing.T) {
	env := newTestEnv()
	svc := NewExportService(env.repo, env.logger)

	_, _, err := svc.ExportMonthlySummaries(context.Background(), testYearMonth, "")
	assert.ErrorIs(t, err, ErrExportNoData)

	_, _, err = svc.ExportMonthlySummaries(context.Background(), "2025/11", "")
	assert.True(t, pkgerrors.IsKind(err, pkgerrors.KindValidation))
}

// ── ExportEmployeeMonthlyPDF 测试 ──

func TestExportService_ExportEmployeeMonthlyPDF_Success(t *testing.T) {
	_, svc := setupTestExportService(t)

	buf, filename, err := svc.ExportEmployeeMonthlyPDF(context.Background(), testEmpID, testYearMonth)
	require.NoError(t, err)
	assert.Equal(t, "attendance_E001_2025-11.pdf", filename)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "输出应为 PDF")
}

func TestExportService_ExportEmployeeMonthlyPDF_NotFound(t *testing.T) {
	_, svc := setupTestExportService(t)

	_, _, err := svc.ExportEmployeeMonthlyPDF(context.Background(), "emp-404", testYearMonth)
	assert.ErrorIs(t, err, ErrMonthlySummaryNotFound)
}
