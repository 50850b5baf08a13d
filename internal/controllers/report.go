package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"repair-system/internal/dto"
	"repair-system/internal/entities"
	"repair-system/internal/services"
	apperrors "repair-system/pkg/errors"
	"repair-system/pkg/utils"
)

type ReportController struct {
	financeService services.FinanceServiceInterface
	logger         *zap.Logger
}

func NewReportController(financeService services.FinanceServiceInterface, logger *zap.Logger) *ReportController {
	return &ReportController{financeService: financeService, logger: logger}
}

func (c *ReportController) GetFinancialReport(ctx echo.Context) error {
	filter, err := parseReportFilter(ctx.Request().URL.Query())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.financeService.GetFinancialReport(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("GetFinancialReport: ошибка сборки отчёта", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Финансовый отчёт получен", http.StatusOK)
}

func (c *ReportController) GetOperationalReport(ctx echo.Context) error {
	filter, err := parseReportFilter(ctx.Request().URL.Query())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	res, err := c.financeService.GetOperationalReport(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("GetOperationalReport: ошибка сборки отчёта", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return utils.SuccessResponse(ctx, res, "Операционный отчёт получен", http.StatusOK)
}

func (c *ReportController) ExportFinancialReport(ctx echo.Context) error {
	filter, err := parseReportFilter(ctx.Request().URL.Query())
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	report, err := c.financeService.GetFinancialReport(ctx.Request().Context(), filter)
	if err != nil {
		c.logger.Error("ExportFinancialReport: ошибка сборки отчёта", zap.Error(err))
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	return c.respondWithXLSX(ctx, report)
}

func parseReportFilter(q url.Values) (entities.ReportFilter, error) {
	var filter entities.ReportFilter

	dateRange, err := utils.ParseDateRangeFromQuery(q)
	if err != nil {
		return filter, err
	}
	filter.Range = dateRange
	filter.Type = q.Get("type")
	filter.Status = q.Get("status")

	if raw := q.Get("technician_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return filter, apperrors.NewValidationError("неверный формат technician_id")
		}
		filter.TechnicianID = id
	}
	return filter, nil
}

var dailyHeaders = []interface{}{"Дата", "Доход", "Расход"}
var performanceHeaders = []interface{}{"Мастер", "Принято", "Завершено", "Выручка", "Средний срок (дни)"}

func (c *ReportController) respondWithXLSX(ctx echo.Context, report *dto.FinancialReportDTO) error {
	f := excelize.NewFile()
	sheet := "Финансовый отчет"
	f.SetSheetName("Sheet1", sheet)

	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	kpiRows := [][]interface{}{
		{"Доход за сегодня", report.KPIs.TodayIncome},
		{"Расход за сегодня", report.KPIs.TodayExpenses},
		{"Баланс за сегодня", report.KPIs.TodayBalance},
		{"Доход за месяц", report.KPIs.MonthIncome},
		{"Расход за месяц", report.KPIs.MonthExpenses},
		{"Баланс за месяц", report.KPIs.MonthBalance},
		{"Ожидаемые платежи", report.KPIs.PendingPayments},
		{"Рентабельность, %", report.KPIs.ProfitMargin},
	}
	for i, row := range kpiRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		f.SetSheetRow(sheet, cell, &row)
	}
	f.SetCellStyle(sheet, "A1", "A8", style)
	f.SetColWidth(sheet, "A", "A", 25)

	dailySheet := "Выручка по дням"
	f.NewSheet(dailySheet)
	f.SetSheetRow(dailySheet, "A1", &dailyHeaders)
	f.SetCellStyle(dailySheet, "A1", "C1", style)
	for i, point := range report.DailyRevenue {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []interface{}{point.Date, point.Income, point.Expenses}
		f.SetSheetRow(dailySheet, cell, &row)
	}
	f.SetColWidth(dailySheet, "A", "A", 14)

	perfSheet := "Мастера"
	f.NewSheet(perfSheet)
	f.SetSheetRow(perfSheet, "A1", &performanceHeaders)
	f.SetCellStyle(perfSheet, "A1", "E1", style)
	for i, row := range report.TechnicianPerformance {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{row.Fio, row.AssignedCount, row.CompletedCount, row.Revenue, row.AverageDays}
		f.SetSheetRow(perfSheet, cell, &values)
	}
	f.SetColWidth(perfSheet, "A", "A", 30)

	fileName := fmt.Sprintf("financial_report_%s.xlsx", time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set(echo.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	ctx.Response().WriteHeader(http.StatusOK)
	return f.Write(ctx.Response().Writer)
}
