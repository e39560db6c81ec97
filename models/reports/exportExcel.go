package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/loans_backend/models"
	"github.com/xuri/excelize/v2"
)

var loanBookHeadings = []string{
	"LoanId", "FullName", "Email", "LoanType", "Status",
	"Principal", "Installment", "TotalPayable", "PaidAmount", "RemainingAmount",
	"PaymentStatus", "CreatedAt",
}

// WriteLoanBookExcel streams the loan book as an xlsx workbook. The HTTP
// layer owns content-type and disposition headers.
func WriteLoanBookExcel(ctx context.Context, w io.Writer) error {
	loans, err := models.ListLoans(ctx, models.LoanFilter{Limit: 10000})
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheetName := "LoanBook"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	col := 'A'
	for _, h := range loanBookHeadings {
		f.SetCellValue(sheetName, string(col)+"1", h)
		col++
	}

	for i, loan := range loans {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, loan.LoanId)
		f.SetCellValue(sheetName, "B"+row, loan.FullName)
		f.SetCellValue(sheetName, "C"+row, loan.Email)
		f.SetCellValue(sheetName, "D"+row, string(loan.LoanType))
		f.SetCellValue(sheetName, "E"+row, string(loan.Status))
		f.SetCellValue(sheetName, "F"+row, loan.Principal.InexactFloat64())
		f.SetCellValue(sheetName, "G"+row, loan.Installment.InexactFloat64())
		f.SetCellValue(sheetName, "H"+row, loan.TotalPayable.InexactFloat64())
		f.SetCellValue(sheetName, "I"+row, loan.PaidAmount.InexactFloat64())
		f.SetCellValue(sheetName, "J"+row, loan.RemainingAmount.InexactFloat64())
		f.SetCellValue(sheetName, "K"+row, string(loan.PaymentStatus))
		f.SetCellValue(sheetName, "L"+row, loan.CreatedAt.Format(time.RFC3339))
	}

	return f.Write(w)
}
