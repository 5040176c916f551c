/*
Package export renders a fund's month-by-month ledger as a flat table.

ROW SET:
  One row per member per cycle, cycles ascending, members in fund order.
  Cycles without a stored record are synthesized exactly as the monthly view
  shows them (unpaid, escalated amounts).

COLUMNS:
  Month | Member Name | Mobile | Amount | Paid | Payment Method |
  Paid Date | Remarks | Chit Taken By | Chit Amount

WRITERS:
  - csv.go:    WriteCSV
  - xlsx.go:   WriteXLSX (excelize)
  - sheets.go: SheetsExporter (Google Sheets API)
*/
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/chitfund/chit"
)

// Header is the column order shared by every writer.
var Header = []string{
	"Month", "Member Name", "Mobile", "Amount", "Paid", "Payment Method",
	"Paid Date", "Remarks", "Chit Taken By", "Chit Amount",
}

// PaidDateLayout is dd/mm/yyyy.
const PaidDateLayout = "02/01/2006"

type Row struct {
	Cycle       int
	Month       string
	Member      string
	Mobile      string
	Amount      chit.Amount
	Paid        bool
	Method      chit.PaymentMethod
	PaidAt      *time.Time
	Remarks     string
	ChitTakenBy string
	ChitAmount  chit.Amount
}

// Rows builds the export table for f.
func Rows(f chit.Fund) ([]Row, error) {
	rows := make([]Row, 0, f.TotalMonths*len(f.Members))
	for cycle := 0; cycle < f.TotalMonths; cycle++ {
		rec, err := chit.BuildMonthlyLedger(f, cycle)
		if err != nil {
			return nil, fmt.Errorf("cycle %d: %w", cycle, err)
		}
		label, err := chit.MonthLabel(f, cycle)
		if err != nil {
			return nil, err
		}

		takenBy := ""
		if rec.Recipient != nil {
			takenBy = *rec.Recipient
		} else if p, ok := f.PayoutAt(cycle); ok {
			takenBy = p.Recipient
		}

		for _, p := range rec.Payments {
			m, _ := f.Member(p.Member)
			rows = append(rows, Row{
				Cycle:       cycle,
				Month:       label,
				Member:      p.Member,
				Mobile:      m.Contact,
				Amount:      p.Amount,
				Paid:        p.Paid,
				Method:      p.Method,
				PaidAt:      p.PaidAt,
				Remarks:     p.Remarks,
				ChitTakenBy: takenBy,
				ChitAmount:  rec.PayoutAmount,
			})
		}
	}
	return rows, nil
}

// Strings formats a row as text cells in Header order.
func (r Row) Strings() []string {
	return []string{
		r.Month,
		r.Member,
		r.Mobile,
		fmt.Sprint(r.Amount.Int64()),
		r.PaidLabel(),
		string(r.Method),
		r.PaidDate(),
		r.Remarks,
		r.ChitTakenBy,
		fmt.Sprint(r.ChitAmount.Int64()),
	}
}

// Cells is Strings with the two amount columns kept numeric.
func (r Row) Cells() []any {
	return []any{
		r.Month,
		r.Member,
		r.Mobile,
		r.Amount.Int64(),
		r.PaidLabel(),
		string(r.Method),
		r.PaidDate(),
		r.Remarks,
		r.ChitTakenBy,
		r.ChitAmount.Int64(),
	}
}

func (r Row) PaidLabel() string {
	if r.Paid {
		return "Yes"
	}
	return "No"
}

func (r Row) PaidDate() string {
	if r.PaidAt == nil {
		return ""
	}
	return r.PaidAt.Format(PaidDateLayout)
}

// ReportFilename is "<fund name>_ChitFund_Report.<ext>" with path separators
// and quotes removed from the name.
func ReportFilename(f chit.Fund, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '"', '\'', ':', '*', '?', '<', '>', '|':
			return -1
		}
		return r
	}, strings.TrimSpace(f.Name))
	if name == "" {
		name = "fund"
	}
	return name + "_ChitFund_Report." + ext
}
