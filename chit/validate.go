package chit

import "strings"

// Validate checks the structural invariants engine operations assume:
// unique member names (case-insensitive), a consistent end month, a
// well-formed escalation and disbursal variant, and a history with at most
// one payout per cycle and per member.
func Validate(f Fund) error {
	if f.ID == "" {
		return invalid(CodeMissingField, "fund id is required")
	}
	if strings.TrimSpace(f.Name) == "" {
		return invalid(CodeMissingField, "fund name is required")
	}
	if f.TotalMonths <= 0 {
		return invalid(CodeMalformedSchedule, "total months must be positive, got %d", f.TotalMonths)
	}
	if f.BaseContribution <= 0 {
		return invalid(CodeMalformedSchedule, "base contribution must be positive, got %d", f.BaseContribution)
	}
	if !f.Start.Valid() {
		return invalid(CodeMalformedSchedule, "start month %d outside 1-12", f.Start.Month)
	}
	if want := EndMonth(f.Start, f.TotalMonths); !f.End.Equal(want) {
		return invalid(CodeMalformedSchedule, "end month %s does not match start + %d months (%s)", f.End, f.TotalMonths-1, want)
	}
	if len(f.Members) == 0 {
		return invalid(CodeMissingField, "at least one member is required")
	}

	seen := make(map[string]bool, len(f.Members))
	for _, m := range f.Members {
		key := NameKey(m.Name)
		if key == "" {
			return invalid(CodeMissingField, "member name is required")
		}
		if seen[key] {
			err := invalid(CodeDuplicateMember, "duplicate member name %q", m.Name)
			err.Member = m.Name
			return err
		}
		seen[key] = true
	}

	if err := validateEscalation(f.Escalation); err != nil {
		return err
	}
	if err := validateDisbursal(f); err != nil {
		return err
	}

	cycles := make(map[int]bool, len(f.History))
	recipients := make(map[string]bool, len(f.History))
	for _, rec := range f.History {
		if !f.inRange(rec.Cycle) {
			return outOfRange(f, rec.Cycle)
		}
		if cycles[rec.Cycle] {
			err := invalid(CodeCycleTaken, "cycle %d has more than one payout", rec.Cycle)
			err.Cycle = rec.Cycle
			return err
		}
		if recipients[rec.Recipient] {
			err := invalid(CodeDuplicateRecipient, "%s has more than one payout", rec.Recipient)
			err.Member = rec.Recipient
			return err
		}
		if _, ok := f.Member(rec.Recipient); !ok {
			err := invalid(CodeUnknownMember, "payout recipient %q is not a member", rec.Recipient)
			err.Member = rec.Recipient
			return err
		}
		cycles[rec.Cycle] = true
		recipients[rec.Recipient] = true
	}

	for cycle, rec := range f.Ledger {
		if !f.inRange(cycle) || rec.Cycle != cycle {
			return outOfRange(f, cycle)
		}
		if err := validateRecord(f, rec); err != nil {
			return err
		}
	}
	return nil
}

// validateRecord checks a stored record has exactly one line per member and
// a recipient that agrees with history.
func validateRecord(f Fund, rec MonthlyRecord) error {
	lines := make(map[string]bool, len(rec.Payments))
	for _, p := range rec.Payments {
		if _, ok := f.Member(p.Member); !ok {
			err := invalid(CodeUnknownMember, "ledger for cycle %d has a line for non-member %q", rec.Cycle, p.Member)
			err.Member, err.Cycle = p.Member, rec.Cycle
			return err
		}
		if lines[p.Member] {
			err := invalid(CodeInvalidPayment, "ledger for cycle %d has more than one line for %s", rec.Cycle, p.Member)
			err.Member, err.Cycle = p.Member, rec.Cycle
			return err
		}
		lines[p.Member] = true
	}
	if len(lines) != len(f.Members) {
		err := invalid(CodeInvalidPayment, "ledger for cycle %d has %d lines for %d members", rec.Cycle, len(lines), len(f.Members))
		err.Cycle = rec.Cycle
		return err
	}

	payout, paidOut := f.PayoutAt(rec.Cycle)
	switch {
	case paidOut && (rec.Recipient == nil || *rec.Recipient != payout.Recipient):
		err := invalid(CodeInvalidPayment, "ledger for cycle %d does not name payout recipient %s", rec.Cycle, payout.Recipient)
		err.Member, err.Cycle = payout.Recipient, rec.Cycle
		return err
	case !paidOut && rec.Recipient != nil:
		err := invalid(CodeInvalidPayment, "ledger for cycle %d names %s but no payout is recorded", rec.Cycle, *rec.Recipient)
		err.Member, err.Cycle = *rec.Recipient, rec.Cycle
		return err
	}
	return nil
}

func validateEscalation(e Escalation) error {
	switch e.Kind {
	case EscalationFlat:
		if !e.RatePercent.IsZero() {
			return invalid(CodeMalformedSchedule, "flat escalation cannot carry an interest rate")
		}
		if e.Increment < 0 {
			return invalid(CodeMalformedSchedule, "escalation increment cannot be negative")
		}
	case EscalationInterest:
		if e.Increment != 0 {
			return invalid(CodeMalformedSchedule, "interest escalation cannot carry a flat increment")
		}
		if e.RatePercent.IsNegative() {
			return invalid(CodeMalformedSchedule, "interest rate cannot be negative")
		}
	default:
		return invalid(CodeMalformedSchedule, "unknown escalation kind %q", e.Kind)
	}
	return nil
}

func validateDisbursal(f Fund) error {
	d := f.Disbursal
	switch d.Mode {
	case DisbursalLinear:
		if len(d.Amounts) > 0 {
			return invalid(CodeMalformedSchedule, "linear disbursal cannot carry explicit amounts")
		}
		if d.FirstAmount < 0 || d.Increase < 0 {
			return invalid(CodeMalformedSchedule, "linear disbursal amounts cannot be negative")
		}
	case DisbursalExplicit:
		if len(d.Amounts) != f.TotalMonths {
			return invalid(CodeMalformedSchedule, "explicit schedule has %d amounts for %d months", len(d.Amounts), f.TotalMonths)
		}
		for i, a := range d.Amounts {
			if a < 0 {
				err := invalid(CodeMalformedSchedule, "explicit amount for cycle %d is negative", i)
				err.Cycle = i
				return err
			}
		}
	default:
		return invalid(CodeMalformedSchedule, "unknown disbursal mode %q", d.Mode)
	}
	return nil
}
