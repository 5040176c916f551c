/*
statement.go - Member statements and fund summaries

PURPOSE:
  Reconciliation views built on the engine. A member's statement lists what
  they owe in every cycle plus the payout they take; the two together form
  the accounting identity used to check a fund:

    Net = Payout - sum(contribution(m, i) for i in [0, TotalMonths))

  Under flat escalation a member paying out in cycle p contributes
  base*TotalMonths + increment*(TotalMonths-1-p).

SEE ALSO:
  - engine.go: MemberContribution, DisbursalAmount
*/
package chit

// CycleContribution is one row of a member statement.
type CycleContribution struct {
	Cycle  int       `json:"cycle"`
	Month  YearMonth `json:"month"`
	Amount Amount    `json:"amount"`
	Paid   bool      `json:"paid"`
}

type MemberStatement struct {
	Member           string              `json:"member"`
	Contributions    []CycleContribution `json:"contributions"`
	TotalContributed Amount              `json:"total_contributed"`
	TotalPaid        Amount              `json:"total_paid"`
	Payout           *PayoutRecord       `json:"payout,omitempty"`
	Net              Amount              `json:"net"`
}

// Statement computes the scheduled contributions of member across the whole
// fund. Paid flags come from materialized ledger records only.
func Statement(f Fund, member string) (MemberStatement, error) {
	if _, ok := f.Member(member); !ok {
		return MemberStatement{}, &NotFoundError{Kind: "member", Key: member}
	}

	st := MemberStatement{Member: member}
	for i := 0; i < f.TotalMonths; i++ {
		owed, err := MemberContribution(f, member, i)
		if err != nil {
			return MemberStatement{}, err
		}
		row := CycleContribution{Cycle: i, Month: CycleMonth(f, i), Amount: owed}
		if rec, ok := f.Ledger[i]; ok {
			if p, _, found := rec.Payment(member); found {
				row.Amount = p.Amount
				row.Paid = p.Paid
			}
		}
		if row.Paid {
			st.TotalPaid += row.Amount
		}
		st.TotalContributed += row.Amount
		st.Contributions = append(st.Contributions, row)
	}

	if rec, ok := f.PayoutFor(member); ok {
		payout := rec
		st.Payout = &payout
		st.Net = rec.Amount - st.TotalContributed
	} else {
		st.Net = -st.TotalContributed
	}
	return st, nil
}

// CycleCollection is the collected vs outstanding split of a materialized cycle.
type CycleCollection struct {
	Cycle       int    `json:"cycle"`
	Expected    Amount `json:"expected"`
	Collected   Amount `json:"collected"`
	Outstanding Amount `json:"outstanding"`
}

type FundSummary struct {
	Members         int               `json:"members"`
	CyclesPaidOut   int               `json:"cycles_paid_out"`
	CyclesRemaining int               `json:"cycles_remaining"`
	TotalDisbursed  Amount            `json:"total_disbursed"`
	NextAvailable   *int              `json:"next_available,omitempty"`
	Collections     []CycleCollection `json:"collections"`
}

func Summary(f Fund) FundSummary {
	s := FundSummary{
		Members:       len(f.Members),
		CyclesPaidOut: len(f.History),
	}
	for _, rec := range f.History {
		s.TotalDisbursed += rec.Amount
	}
	for cycle := range AvailableCycles(f) {
		if s.NextAvailable == nil {
			next := cycle
			s.NextAvailable = &next
		}
		s.CyclesRemaining++
	}
	for i := 0; i < f.TotalMonths; i++ {
		rec, ok := f.Ledger[i]
		if !ok {
			continue
		}
		c := CycleCollection{Cycle: i}
		for _, p := range rec.Payments {
			c.Expected += p.Amount
			if p.Paid {
				c.Collected += p.Amount
			}
		}
		c.Outstanding = c.Expected - c.Collected
		s.Collections = append(s.Collections, c)
	}
	return s
}
