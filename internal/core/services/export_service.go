package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"cardpool/internal/adapters/persistence/models"
	"cardpool/internal/adapters/persistence/repositories"

	"github.com/xuri/excelize/v2"
)

// utf8BOM makes Excel open the CSV as UTF-8 instead of the locale charset
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var exportHeader = []string{"ID", "Member", "Amount", "Used At", "Merchant", "Memo", "Recorded At"}

// ExportService renders the full expense ledger as CSV or XLSX
type ExportService struct {
	expenseRepo repositories.ExpenseRepository
}

// NewExportService creates a new export service
func NewExportService(expenseRepo repositories.ExpenseRepository) *ExportService {
	return &ExportService{
		expenseRepo: expenseRepo,
	}
}

// ExportCSV writes every expense, newest spend first, as a UTF-8 CSV with BOM
func (s *ExportService) ExportCSV(ctx context.Context) ([]byte, error) {
	expenses, err := s.expenseRepo.ListAllWithMember(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, e := range expenses {
		if err := w.Write(exportRow(e)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ExportXLSX writes the same ledger as a single-sheet workbook
func (s *ExportService) ExportXLSX(ctx context.Context) ([]byte, error) {
	expenses, err := s.expenseRepo.ListAllWithMember(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Expenses"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return nil, err
		}
	}

	for i, e := range expenses {
		for col, value := range exportRow(e) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportFilename builds a timestamped download name like expenses_20260115.csv
func ExportFilename(format string) string {
	return fmt.Sprintf("expenses_%s.%s", time.Now().Format("20060102"), format)
}

// exportRow flattens one expense into CSV/XLSX cells
func exportRow(e *models.Expense) []string {
	return []string{
		strconv.FormatUint(uint64(e.ID), 10),
		e.Member.Nickname,
		strconv.FormatInt(e.Amount, 10),
		e.UsedAt.Format("2006-01-02"),
		e.Merchant,
		e.Memo,
		e.CreatedAt.Format(time.RFC3339),
	}
}
