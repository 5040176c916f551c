/*
Package chit provides the chit-cycle engine.

PURPOSE:
  A chit fund is a rotating-savings group. Every member pays a monthly
  contribution for a fixed number of cycles, and in each cycle exactly one
  member takes the pooled payout. This package holds the pure calculation
  core: month indexing, escalating contributions, payout amounts and the
  per-cycle payment ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Fund: The root aggregate (schedule, members, history, ledger)
  - Escalation: Tagged variant (flat increment OR interest on payout)
  - Disbursal: Tagged variant (linear increase OR explicit schedule)
  - PayoutRecord: One "chit taken" event
  - MonthlyRecord: Materialized per-cycle view of amounts owed and paid

DESIGN PRINCIPLES:
  1. Snapshots: Engine functions take a Fund value and never mutate it
  2. All-or-nothing: A failed operation returns the zero Fund and an error
  3. Keyed ledger: One MonthlyRecord per cycle, stored in a map
  4. Integer money: Amounts are whole currency units

USAGE:
  fund, err := chit.RecordPayout(fund, 0, "Asha", time.Now())
  amount, err := chit.MemberContribution(fund, "Asha", 1)

SEE ALSO:
  - engine.go: Month labels, available cycles, payout and contribution math
  - ledger.go: Monthly ledger synthesis and payment updates
  - errors.go: Error kinds
*/
package chit

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT
// =============================================================================

// Amount is a quantity of money in whole currency units.
type Amount int64

func (a Amount) Int64() int64             { return int64(a) }
func (a Amount) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(a)) }
func (a Amount) IsNegative() bool         { return a < 0 }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type FundID string

// =============================================================================
// MEMBERS
// =============================================================================

type Member struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// NameKey is the case-insensitive identity used for uniqueness checks.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// =============================================================================
// ESCALATION - Exactly one scheme per fund
// =============================================================================

type EscalationKind string

const (
	// EscalationFlat adds Increment to a member's contribution for every
	// cycle after the one in which they took the payout.
	EscalationFlat EscalationKind = "flat"

	// EscalationInterest raises the payout amount itself by RatePercent.
	// Contributions stay at the base amount.
	EscalationInterest EscalationKind = "interest"
)

type Escalation struct {
	Kind        EscalationKind  `json:"kind"`
	Increment   Amount          `json:"increment,omitempty"`
	RatePercent decimal.Decimal `json:"rate_percent"`
}

func FlatEscalation(increment Amount) Escalation {
	return Escalation{Kind: EscalationFlat, Increment: increment}
}

func InterestEscalation(ratePercent decimal.Decimal) Escalation {
	return Escalation{Kind: EscalationInterest, RatePercent: ratePercent}
}

// =============================================================================
// DISBURSAL - How the payout amount for a cycle is determined
// =============================================================================

type DisbursalMode string

const (
	DisbursalLinear   DisbursalMode = "linear"   // FirstAmount + Increase*cycle
	DisbursalExplicit DisbursalMode = "explicit" // Amounts[cycle]
)

type Disbursal struct {
	Mode        DisbursalMode `json:"mode"`
	FirstAmount Amount        `json:"first_amount,omitempty"`
	Increase    Amount        `json:"increase,omitempty"`
	Amounts     []Amount      `json:"amounts,omitempty"`
}

func LinearDisbursal(first, increase Amount) Disbursal {
	return Disbursal{Mode: DisbursalLinear, FirstAmount: first, Increase: increase}
}

func ExplicitDisbursal(amounts ...Amount) Disbursal {
	return Disbursal{Mode: DisbursalExplicit, Amounts: amounts}
}

// =============================================================================
// HISTORY AND LEDGER
// =============================================================================

// PayoutRecord records that Recipient took the pooled amount in Cycle.
type PayoutRecord struct {
	Cycle     int       `json:"cycle"`
	Recipient string    `json:"recipient"`
	Amount    Amount    `json:"amount"`
	At        time.Time `json:"at"`
}

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodUPI          PaymentMethod = "upi"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodCheque       PaymentMethod = "cheque"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case "", MethodCash, MethodUPI, MethodBankTransfer, MethodCheque:
		return true
	}
	return false
}

// PaymentEntry is one member's line in a monthly record.
type PaymentEntry struct {
	Member  string        `json:"member"`
	Amount  Amount        `json:"amount"`
	Paid    bool          `json:"paid"`
	Method  PaymentMethod `json:"method,omitempty"`
	Remarks string        `json:"remarks,omitempty"`
	PaidAt  *time.Time    `json:"paid_at,omitempty"`
}

// MonthlyRecord is the materialized ledger for one cycle.
type MonthlyRecord struct {
	Cycle        int            `json:"cycle"`
	PayoutAmount Amount         `json:"payout_amount"`
	Recipient    *string        `json:"recipient,omitempty"`
	Payments     []PaymentEntry `json:"payments"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Payment returns the entry for member, matched exactly.
func (r MonthlyRecord) Payment(member string) (PaymentEntry, int, bool) {
	for i, p := range r.Payments {
		if p.Member == member {
			return p, i, true
		}
	}
	return PaymentEntry{}, -1, false
}

func (r MonthlyRecord) clone() MonthlyRecord {
	out := r
	out.Payments = make([]PaymentEntry, len(r.Payments))
	copy(out.Payments, r.Payments)
	for i, p := range out.Payments {
		if p.PaidAt != nil {
			paidAt := *p.PaidAt
			out.Payments[i].PaidAt = &paidAt
		}
	}
	if r.Recipient != nil {
		name := *r.Recipient
		out.Recipient = &name
	}
	return out
}

// PaymentPatch is a partial update to a PaymentEntry. Nil fields are left alone.
type PaymentPatch struct {
	Paid    *bool
	Method  *PaymentMethod
	Remarks *string
}

// =============================================================================
// FUND - Root aggregate
// =============================================================================

type Fund struct {
	ID               FundID                `json:"id"`
	Name             string                `json:"name"`
	BaseContribution Amount                `json:"base_contribution"`
	TotalMonths      int                   `json:"total_months"`
	Start            YearMonth             `json:"start"`
	End              YearMonth             `json:"end"`
	Members          []Member              `json:"members"`
	Escalation       Escalation            `json:"escalation"`
	Disbursal        Disbursal             `json:"disbursal"`
	History          []PayoutRecord        `json:"history"`
	Ledger           map[int]MonthlyRecord `json:"ledger,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
}

// Member looks up a member by exact name.
func (f Fund) Member(name string) (Member, bool) {
	for _, m := range f.Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// PayoutFor returns the payout record of a member, if they have taken one.
func (f Fund) PayoutFor(member string) (PayoutRecord, bool) {
	for _, rec := range f.History {
		if rec.Recipient == member {
			return rec, true
		}
	}
	return PayoutRecord{}, false
}

// PayoutAt returns the payout recorded for a cycle, if any.
func (f Fund) PayoutAt(cycle int) (PayoutRecord, bool) {
	for _, rec := range f.History {
		if rec.Cycle == cycle {
			return rec, true
		}
	}
	return PayoutRecord{}, false
}

// Clone returns a deep copy so callers can derive a new snapshot safely.
func (f Fund) Clone() Fund {
	out := f
	out.Members = append([]Member(nil), f.Members...)
	out.History = append([]PayoutRecord(nil), f.History...)
	out.Disbursal.Amounts = append([]Amount(nil), f.Disbursal.Amounts...)
	if f.Ledger != nil {
		out.Ledger = make(map[int]MonthlyRecord, len(f.Ledger))
		for k, v := range f.Ledger {
			out.Ledger[k] = v.clone()
		}
	}
	return out
}

func (f Fund) inRange(cycle int) bool {
	return cycle >= 0 && cycle < f.TotalMonths
}
