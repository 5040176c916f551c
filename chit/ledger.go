/*
ledger.go - Per-cycle payment ledger

PURPOSE:
  A MonthlyRecord is the materialized view of one cycle: the payout amount,
  who took it, and one payment line per member. Records live in
  Fund.Ledger, keyed by cycle index, so there is at most one per cycle.

MATERIALIZATION:
  BuildMonthlyLedger returns the stored record when there is one and
  otherwise synthesizes a fresh one without storing it. Only
  UpdatePaymentEntry (and the caller persisting its result) puts a
  synthesized record into the ledger.

  RecordPayout keeps stored records in step with history: the payout
  cycle's record gets the recipient and amount, and in later stored records
  the recipient's unpaid line is re-priced. Paid lines are never re-priced.

PAID TIMESTAMP:
  PaidAt is set on the first unpaid -> paid transition and is never cleared.
  Unchecking "paid" keeps the date of the first payment for audit.
*/
package chit

import "time"

// BuildMonthlyLedger returns the stored record for cycle, or a synthesized
// unpaid one if the cycle has not been materialized yet.
func BuildMonthlyLedger(f Fund, cycle int) (MonthlyRecord, error) {
	if !f.inRange(cycle) {
		return MonthlyRecord{}, outOfRange(f, cycle)
	}
	if rec, ok := f.Ledger[cycle]; ok {
		return rec.clone(), nil
	}

	payout, err := DisbursalAmount(f, cycle)
	if err != nil {
		return MonthlyRecord{}, err
	}

	payments := make([]PaymentEntry, 0, len(f.Members))
	for _, m := range f.Members {
		owed, err := MemberContribution(f, m.Name, cycle)
		if err != nil {
			return MonthlyRecord{}, err
		}
		payments = append(payments, PaymentEntry{Member: m.Name, Amount: owed})
	}

	return MonthlyRecord{
		Cycle:        cycle,
		PayoutAmount: payout,
		Payments:     payments,
	}, nil
}

// UpdatePaymentEntry merges patch into member's payment line for cycle and
// returns a fund whose ledger holds the updated record.
func UpdatePaymentEntry(f Fund, cycle int, member string, patch PaymentPatch, at time.Time) (Fund, error) {
	rec, err := BuildMonthlyLedger(f, cycle)
	if err != nil {
		return Fund{}, err
	}

	entry, idx, ok := rec.Payment(member)
	if !ok {
		return Fund{}, &NotFoundError{Kind: "payment", Key: member}
	}

	if patch.Method != nil {
		if !patch.Method.Valid() {
			err := invalid(CodeInvalidPayment, "unknown payment method %q", *patch.Method)
			err.Member, err.Cycle = member, cycle
			return Fund{}, err
		}
		entry.Method = *patch.Method
	}
	if patch.Remarks != nil {
		entry.Remarks = *patch.Remarks
	}
	if patch.Paid != nil {
		if *patch.Paid && !entry.Paid && entry.PaidAt == nil {
			paidAt := at
			entry.PaidAt = &paidAt
		}
		entry.Paid = *patch.Paid
	}
	rec.Payments[idx] = entry

	if _, stored := f.Ledger[cycle]; !stored {
		rec.CreatedAt = at
		if payout, ok := f.PayoutAt(cycle); ok {
			name := payout.Recipient
			rec.Recipient = &name
		}
	}

	out := f.Clone()
	if out.Ledger == nil {
		out.Ledger = make(map[int]MonthlyRecord)
	}
	out.Ledger[cycle] = rec
	return out, nil
}
