/*
Package factory converts fund creation input into chit.Fund snapshots.

PURPOSE:
  The engine assumes a well-formed fund (unique member names, a complete
  disbursal schedule, one escalation scheme). This package is the
  collaborator that enforces those preconditions on raw form input before
  any engine operation runs.

JSON SCHEMA:
  {
    "name": "Family Chit Fund",
    "monthly_amount": 20000,
    "total_months": 25,
    "start_month": 1,
    "start_year": 2025,
    "escalation": {"kind": "flat", "increment": 4000},
    "disbursal": {"mode": "linear", "first_amount": 485000, "increase": 4000},
    "members": [{"name": "Asha", "contact": "9876543210"}]
  }

  escalation.kind: "flat" (default) or "interest" with "rate_percent"
  disbursal.mode:  "linear" (default) or "explicit" with "amounts": [...]

AMOUNTS:
  Amounts are decoded as decimals so that "20000", 20000 and 20000.0 are all
  accepted. A fractional amount is rejected rather than rounded.

USAGE:
  f := factory.NewFundFactory()
  fund, err := f.ParseFund(body)

SEE ALSO:
  - chit/validate.go: Structural invariants checked after building
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/chitfund/chit"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

type FundJSON struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	MonthlyAmount decimal.Decimal `json:"monthly_amount"`
	TotalMonths   int             `json:"total_months"`
	StartMonth    int             `json:"start_month"`
	StartYear     int             `json:"start_year"`
	Escalation    EscalationJSON  `json:"escalation"`
	Disbursal     DisbursalJSON   `json:"disbursal"`
	Members       []MemberJSON    `json:"members"`
}

type EscalationJSON struct {
	Kind        string          `json:"kind,omitempty"`
	Increment   decimal.Decimal `json:"increment"`
	RatePercent decimal.Decimal `json:"rate_percent"`
}

type DisbursalJSON struct {
	Mode        string             `json:"mode,omitempty"`
	FirstAmount decimal.Decimal    `json:"first_amount"`
	Increase    decimal.Decimal    `json:"increase"`
	Amounts     []*decimal.Decimal `json:"amounts,omitempty"` // nil entries are blanks
}

type MemberJSON struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

// =============================================================================
// FUND FACTORY
// =============================================================================

type FundFactory struct {
	NewID func() string
	Now   func() time.Time
}

func NewFundFactory() *FundFactory {
	return &FundFactory{
		NewID: uuid.NewString,
		Now:   time.Now,
	}
}

// ParseFund decodes and builds a fund from a JSON document.
func (f *FundFactory) ParseFund(data []byte) (chit.Fund, error) {
	var fj FundJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return chit.Fund{}, &chit.ValidationError{Code: chit.CodeMalformedSchedule, Message: fmt.Sprintf("invalid fund JSON: %v", err), Cycle: -1}
	}
	return f.Build(fj)
}

// Build converts creation input into a validated fund with a fresh ID.
func (f *FundFactory) Build(fj FundJSON) (chit.Fund, error) {
	name := strings.TrimSpace(fj.Name)
	if name == "" {
		return chit.Fund{}, missing("name")
	}
	if fj.TotalMonths <= 0 {
		return chit.Fund{}, malformed("total_months must be positive")
	}
	if fj.StartMonth < 1 || fj.StartMonth > 12 {
		return chit.Fund{}, malformed("start_month must be between 1 and 12")
	}
	if fj.StartYear <= 0 {
		return chit.Fund{}, missing("start_year")
	}

	base, err := wholeAmount("monthly_amount", fj.MonthlyAmount)
	if err != nil {
		return chit.Fund{}, err
	}
	if base <= 0 {
		return chit.Fund{}, malformed("monthly_amount must be positive")
	}

	members, err := buildMembers(fj.Members)
	if err != nil {
		return chit.Fund{}, err
	}
	escalation, err := buildEscalation(fj.Escalation)
	if err != nil {
		return chit.Fund{}, err
	}
	disbursal, err := buildDisbursal(fj.Disbursal, fj.TotalMonths)
	if err != nil {
		return chit.Fund{}, err
	}

	id := fj.ID
	if id == "" {
		id = f.NewID()
	}
	start := chit.NewYearMonth(fj.StartYear, time.Month(fj.StartMonth))
	fund := chit.Fund{
		ID:               chit.FundID(id),
		Name:             name,
		BaseContribution: base,
		TotalMonths:      fj.TotalMonths,
		Start:            start,
		End:              chit.EndMonth(start, fj.TotalMonths),
		Members:          members,
		Escalation:       escalation,
		Disbursal:        disbursal,
		History:          []chit.PayoutRecord{},
		CreatedAt:        f.Now().UTC(),
	}

	if err := chit.Validate(fund); err != nil {
		return chit.Fund{}, err
	}
	return fund, nil
}

// ToJSON converts a fund back to its creation shape.
func (f *FundFactory) ToJSON(fund chit.Fund) FundJSON {
	fj := FundJSON{
		ID:            string(fund.ID),
		Name:          fund.Name,
		MonthlyAmount: fund.BaseContribution.Decimal(),
		TotalMonths:   fund.TotalMonths,
		StartMonth:    int(fund.Start.Month),
		StartYear:     fund.Start.Year,
		Escalation: EscalationJSON{
			Kind:        string(fund.Escalation.Kind),
			Increment:   fund.Escalation.Increment.Decimal(),
			RatePercent: fund.Escalation.RatePercent,
		},
		Disbursal: DisbursalJSON{
			Mode:        string(fund.Disbursal.Mode),
			FirstAmount: fund.Disbursal.FirstAmount.Decimal(),
			Increase:    fund.Disbursal.Increase.Decimal(),
		},
	}
	for _, a := range fund.Disbursal.Amounts {
		d := a.Decimal()
		fj.Disbursal.Amounts = append(fj.Disbursal.Amounts, &d)
	}
	for _, m := range fund.Members {
		fj.Members = append(fj.Members, MemberJSON{Name: m.Name, Contact: m.Contact})
	}
	return fj
}

// =============================================================================
// PARSERS
// =============================================================================

// buildMembers drops blank rows, trims names and rejects half-filled rows and
// case-insensitive duplicates.
func buildMembers(in []MemberJSON) ([]chit.Member, error) {
	var members []chit.Member
	seen := make(map[string]string)
	for i, m := range in {
		name := strings.TrimSpace(m.Name)
		contact := strings.TrimSpace(m.Contact)
		if name == "" && contact == "" {
			continue
		}
		if name == "" || contact == "" {
			return nil, missing(fmt.Sprintf("members[%d] needs both name and contact", i))
		}
		key := chit.NameKey(name)
		if prev, ok := seen[key]; ok {
			return nil, &chit.ValidationError{
				Code:    chit.CodeDuplicateMember,
				Message: fmt.Sprintf("duplicate member names are not allowed: %q and %q", prev, name),
				Member:  name,
				Cycle:   -1,
			}
		}
		seen[key] = name
		members = append(members, chit.Member{Name: name, Contact: contact})
	}
	if len(members) == 0 {
		return nil, missing("at least one member")
	}
	return members, nil
}

func buildEscalation(ej EscalationJSON) (chit.Escalation, error) {
	switch ej.Kind {
	case "", string(chit.EscalationFlat):
		if !ej.RatePercent.IsZero() {
			return chit.Escalation{}, malformed("flat escalation cannot also set rate_percent")
		}
		inc, err := wholeAmount("escalation.increment", ej.Increment)
		if err != nil {
			return chit.Escalation{}, err
		}
		return chit.FlatEscalation(inc), nil
	case string(chit.EscalationInterest):
		if !ej.Increment.IsZero() {
			return chit.Escalation{}, malformed("interest escalation cannot also set increment")
		}
		if ej.RatePercent.IsNegative() {
			return chit.Escalation{}, malformed("escalation.rate_percent cannot be negative")
		}
		return chit.InterestEscalation(ej.RatePercent), nil
	default:
		return chit.Escalation{}, malformed(fmt.Sprintf("unknown escalation kind %q", ej.Kind))
	}
}

func buildDisbursal(dj DisbursalJSON, totalMonths int) (chit.Disbursal, error) {
	switch dj.Mode {
	case "", string(chit.DisbursalLinear):
		first, err := wholeAmount("disbursal.first_amount", dj.FirstAmount)
		if err != nil {
			return chit.Disbursal{}, err
		}
		if first <= 0 {
			return chit.Disbursal{}, missing("disbursal.first_amount")
		}
		inc, err := wholeAmount("disbursal.increase", dj.Increase)
		if err != nil {
			return chit.Disbursal{}, err
		}
		return chit.LinearDisbursal(first, inc), nil
	case string(chit.DisbursalExplicit):
		if len(dj.Amounts) != totalMonths {
			return chit.Disbursal{}, malformed(fmt.Sprintf("disbursal amounts required for all %d months, got %d", totalMonths, len(dj.Amounts)))
		}
		amounts := make([]chit.Amount, totalMonths)
		for i, d := range dj.Amounts {
			if d == nil {
				return chit.Disbursal{}, malformed(fmt.Sprintf("disbursal amount for month %d is blank", i+1))
			}
			a, err := wholeAmount(fmt.Sprintf("disbursal.amounts[%d]", i), *d)
			if err != nil {
				return chit.Disbursal{}, err
			}
			amounts[i] = a
		}
		return chit.ExplicitDisbursal(amounts...), nil
	default:
		return chit.Disbursal{}, malformed(fmt.Sprintf("unknown disbursal mode %q", dj.Mode))
	}
}

// wholeAmount accepts non-negative integral decimals only.
func wholeAmount(field string, d decimal.Decimal) (chit.Amount, error) {
	if d.IsNegative() {
		return 0, malformed(field + " cannot be negative")
	}
	if !d.IsInteger() {
		return 0, malformed(fmt.Sprintf("%s must be a whole amount, got %s", field, d.String()))
	}
	return chit.Amount(d.IntPart()), nil
}

func missing(what string) *chit.ValidationError {
	return &chit.ValidationError{Code: chit.CodeMissingField, Message: "required: " + what, Cycle: -1}
}

func malformed(msg string) *chit.ValidationError {
	return &chit.ValidationError{Code: chit.CodeMalformedSchedule, Message: msg, Cycle: -1}
}
