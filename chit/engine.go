/*
engine.go - Cycle arithmetic, payout amounts and contributions

PURPOSE:
  Derives everything the presentation layer shows for a fund from its
  immutable snapshot: which calendar month a cycle is, which cycles are
  still open for a payout, how much the payout is worth, and how much each
  member owes.

ESCALATION:
  flat:     contribution(m, i) = base + increment  if m took the payout in
                                                   some cycle j < i
                               = base              otherwise
  interest: payout(i) = round_half_up(raw(i) * (1 + rate/100))

  The two schemes never apply together; Escalation.Kind selects one.

DISBURSAL:
  linear:   raw(i) = first + increase * i
  explicit: raw(i) = amounts[i]  (a missing entry is a ConfigError)

HISTORY ORDER:
  History is kept sorted by cycle. Append order carries no meaning.
*/
package chit

import (
	"iter"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MonthLabel returns the calendar month of a cycle, e.g. "March 2026".
// There is no upper bound; callers clamp to TotalMonths.
func MonthLabel(f Fund, cycle int) (string, error) {
	if cycle < 0 {
		return "", outOfRange(f, cycle)
	}
	return CycleMonth(f, cycle).String(), nil
}

// CycleMonth is the structured form of MonthLabel.
func CycleMonth(f Fund, cycle int) YearMonth {
	return f.Start.Advance(cycle)
}

// AvailableCycles yields, in ascending order, every cycle in [0, TotalMonths)
// with no recorded payout. Each iteration reads the fund's current history.
func AvailableCycles(f Fund) iter.Seq[int] {
	return func(yield func(int) bool) {
		taken := make(map[int]bool, len(f.History))
		for _, rec := range f.History {
			taken[rec.Cycle] = true
		}
		for i := 0; i < f.TotalMonths; i++ {
			if taken[i] {
				continue
			}
			if !yield(i) {
				return
			}
		}
	}
}

func AvailableCycleList(f Fund) []int {
	return slices.Collect(AvailableCycles(f))
}

// DisbursalAmount is the payout a recipient takes in the given cycle.
func DisbursalAmount(f Fund, cycle int) (Amount, error) {
	if !f.inRange(cycle) {
		return 0, outOfRange(f, cycle)
	}

	var raw Amount
	switch f.Disbursal.Mode {
	case DisbursalLinear:
		raw = f.Disbursal.FirstAmount + f.Disbursal.Increase*Amount(cycle)
	case DisbursalExplicit:
		if cycle >= len(f.Disbursal.Amounts) {
			return 0, &ConfigError{Cycle: cycle, Reason: "explicit schedule has no entry"}
		}
		raw = f.Disbursal.Amounts[cycle]
	default:
		return 0, &ConfigError{Cycle: cycle, Reason: "unknown disbursal mode " + string(f.Disbursal.Mode)}
	}

	if f.Escalation.Kind == EscalationInterest {
		factor := decimal.NewFromInt(1).Add(f.Escalation.RatePercent.Div(hundred))
		raw = Amount(raw.Decimal().Mul(factor).Round(0).IntPart())
	}

	if raw.IsNegative() {
		return 0, &ConfigError{Cycle: cycle, Reason: "computed amount is negative"}
	}
	return raw, nil
}

// MemberContribution is what member owes for the given cycle.
//
// Uniqueness of member names is a precondition (see Validate); with
// duplicates the lookup below is ambiguous.
func MemberContribution(f Fund, member string, cycle int) (Amount, error) {
	if cycle < 0 {
		return 0, outOfRange(f, cycle)
	}
	if _, ok := f.Member(member); !ok {
		return 0, &NotFoundError{Kind: "member", Key: member}
	}

	amount := f.BaseContribution
	if f.Escalation.Kind != EscalationFlat {
		return amount, nil
	}
	for _, rec := range f.History {
		if rec.Cycle < cycle && rec.Recipient == member {
			return amount + f.Escalation.Increment, nil
		}
	}
	return amount, nil
}

// RecordPayout marks member as taking the payout in cycle. The returned fund
// has history sorted by cycle; the input is untouched.
func RecordPayout(f Fund, cycle int, member string, at time.Time) (Fund, error) {
	if !f.inRange(cycle) {
		return Fund{}, outOfRange(f, cycle)
	}
	if _, ok := f.Member(member); !ok {
		err := invalid(CodeUnknownMember, "%q is not a member of %s", member, f.Name)
		err.Member, err.Cycle = member, cycle
		return Fund{}, err
	}
	if prev, ok := f.PayoutFor(member); ok {
		label, _ := MonthLabel(f, prev.Cycle)
		err := invalid(CodeDuplicateRecipient, "%s already took the payout in %s", member, label)
		err.Member, err.Cycle = member, cycle
		return Fund{}, err
	}
	if prev, ok := f.PayoutAt(cycle); ok {
		label, _ := MonthLabel(f, cycle)
		err := invalid(CodeCycleTaken, "payout for %s already taken by %s", label, prev.Recipient)
		err.Member, err.Cycle = member, cycle
		return Fund{}, err
	}

	amount, err := DisbursalAmount(f, cycle)
	if err != nil {
		return Fund{}, err
	}

	out := f.Clone()
	out.History = append(out.History, PayoutRecord{
		Cycle:     cycle,
		Recipient: member,
		Amount:    amount,
		At:        at,
	})
	slices.SortStableFunc(out.History, func(a, b PayoutRecord) int { return a.Cycle - b.Cycle })

	for c, rec := range out.Ledger {
		switch {
		case c == cycle:
			name := member
			rec.Recipient = &name
			rec.PayoutAmount = amount
			out.Ledger[c] = rec
		case c > cycle:
			// Later records stored before this payout still carry the
			// recipient's pre-payout amount; paid lines keep what was paid.
			p, idx, found := rec.Payment(member)
			if !found || p.Paid {
				continue
			}
			owed, err := MemberContribution(out, member, c)
			if err != nil {
				return Fund{}, err
			}
			rec.Payments[idx].Amount = owed
			out.Ledger[c] = rec
		}
	}
	return out, nil
}

func outOfRange(f Fund, cycle int) *ValidationError {
	err := invalid(CodeCycleOutOfRange, "cycle %d outside [0, %d)", cycle, f.TotalMonths)
	err.Cycle = cycle
	return err
}
