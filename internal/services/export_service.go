package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/xuri/excelize/v2"
)

var installmentStatusLabels = map[string]string{
	models.InstallmentStatusPending: "Pendiente",
	models.InstallmentStatusPartial: "Abonada",
	models.InstallmentStatusPaid:    "Pagada",
	models.InstallmentStatusOverdue: "Vencida",
}

type ExportService struct {
	sales *SaleService
	now   func() time.Time
}

func NewExportService(sales *SaleService) *ExportService {
	return &ExportService{sales: sales, now: time.Now}
}

// ExportInstallmentsXLSX writes the stored schedule of a sale as a workbook
// and returns its bytes with a suggested file name.
func (s *ExportService) ExportInstallmentsXLSX(ctx context.Context, saleID uint) ([]byte, string, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, "", err
	}
	installments, err := s.sales.Installments(ctx, saleID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Cuotas"
	_ = f.SetSheetName("Sheet1", sheet)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Plan de pagos - Venta %d", sale.ID))
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)
	_ = f.SetCellValue(sheet, "A2", "Capital financiado")
	_ = f.SetCellValue(sheet, "B2", sale.Principal())
	_ = f.SetCellValue(sheet, "C2", sale.Currency)
	_ = f.SetCellValue(sheet, "A3", "Modelo")
	_ = f.SetCellValue(sheet, "B3", sale.FinancingModel)
	_ = f.SetCellValue(sheet, "A4", "Estado")
	_ = f.SetCellValue(sheet, "B4", sale.Status)

	headers := []string{"Cuota", "Vencimiento", "Saldo inicial", "Capital", "Interés", "Monto", "Mora", "Pagado", "Pendiente", "Saldo final", "Estado"}
	const headerRow = 6
	for col, title := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, headerRow)
		_ = f.SetCellValue(sheet, cell, title)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
	_ = f.SetCellStyle(sheet, "A6", lastHeader, headerStyle)

	now := s.now()
	for i, inst := range installments {
		row := headerRow + 1 + i
		values := []any{
			inst.Number,
			inst.DueDate.Format("2006-01-02"),
			inst.PriorPrincipalBalance,
			inst.PrincipalComponent,
			inst.InterestComponent,
			inst.Amount,
			inst.MoratoryInterest,
			inst.AmountPaid,
			inst.Outstanding(),
			inst.PostPrincipalBalance,
			installmentStatusLabels[models.DeriveInstallmentStatus(inst.AmountPaid, inst.Cap(), inst.DueDate, now)],
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	if len(installments) > 0 {
		first, _ := excelize.CoordinatesToCellName(3, headerRow+1)
		last, _ := excelize.CoordinatesToCellName(10, headerRow+len(installments))
		_ = f.SetCellStyle(sheet, first, last, moneyStyle)
	}
	_ = f.SetColWidth(sheet, "B", "K", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("plan_de_pagos_venta_%d_%s.xlsx", sale.ID, now.Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
