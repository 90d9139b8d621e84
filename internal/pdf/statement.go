// Package pdf renders a user's credit ledger as a downloadable
// statement.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/storyfairy/storyfairy-api/internal/models"
)

// RenderStatement produces a PDF listing the user's transactions
// (already ordered newest first) and their current balance.
func RenderStatement(userID string, balance int64, transactions []models.CreditTransaction) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 20, 20)
	pdf.Cell(0, 10, "StoryFairy Credit Statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "User: "+maskID(userID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Current balance: %d credits", balance))
	pdf.Ln(10)

	colW := []float64{28, 36, 84, 34}
	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetDrawColor(200, 200, 200)
		pdf.SetTextColor(20, 20, 20)
		pdf.CellFormat(colW[0], 8, "TYPE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[1], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[2], 8, "DESCRIPTION", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[3], 8, "CREDITS", "1", 1, "R", true, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(30, 30, 30)
	}
	header()

	for _, tx := range transactions {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}

		amount := fmt.Sprintf("%d", tx.Amount)
		if tx.Amount > 0 {
			amount = "+" + amount
		}

		pdf.CellFormat(colW[0], 8, tx.Type, "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, tx.CreatedAt.Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 8, trimTo(tx.Description, 60), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 8, amount, "1", 1, "R", false, 0, "")
	}

	if len(transactions) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No transactions yet", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render statement: %w", err)
	}
	return buf.Bytes(), nil
}

func maskID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:4] + "..." + id[len(id)-4:]
}

func trimTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-1]) + "..."
}
