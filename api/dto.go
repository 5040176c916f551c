/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Funds:      FundListItemDTO, FundDetailDTO (wraps factory.FundJSON)
  Cycles:     CycleDTO, MonthlyRecordDTO, PaymentDTO
  Mutations:  RecordPayoutRequest, UpdatePaymentRequest
  Reports:    StatementDTO, SummaryDTO
  Scenarios:  ScenarioDTO, LoadScenarioRequest

Dates are RFC 3339 strings; months are rendered as "January 2025".

SEE ALSO:
  - handlers.go: Uses these types
  - factory/fund.go: FundJSON type
*/
package api

import (
	"time"

	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/factory"
)

// =============================================================================
// FUNDS
// =============================================================================

type FundListItemDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MonthlyAmount int64  `json:"monthly_amount"`
	TotalMonths   int    `json:"total_months"`
	Members       int    `json:"members"`
	Period        string `json:"period"`
	Active        bool   `json:"active"`
	CyclesPaidOut int    `json:"cycles_paid_out"`
	CreatedAt     string `json:"created_at"`
}

type FundDetailDTO struct {
	Config       factory.FundJSON `json:"config"`
	StartMonth   string           `json:"start"`
	EndMonth     string           `json:"end"`
	Active       bool             `json:"active"`
	CurrentCycle *int             `json:"current_cycle,omitempty"`
	History      []PayoutDTO      `json:"history"`
	Summary      SummaryDTO       `json:"summary"`
	CreatedAt    string           `json:"created_at"`
}

type PayoutDTO struct {
	Cycle     int    `json:"cycle"`
	Month     string `json:"month"`
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	At        string `json:"at"`
}

type SummaryDTO struct {
	Members         int             `json:"members"`
	CyclesPaidOut   int             `json:"cycles_paid_out"`
	CyclesRemaining int             `json:"cycles_remaining"`
	TotalDisbursed  int64           `json:"total_disbursed"`
	NextAvailable   *int            `json:"next_available,omitempty"`
	Collections     []CollectionDTO `json:"collections"`
}

type CollectionDTO struct {
	Cycle       int    `json:"cycle"`
	Month       string `json:"month"`
	Expected    int64  `json:"expected"`
	Collected   int64  `json:"collected"`
	Outstanding int64  `json:"outstanding"`
}

// =============================================================================
// CYCLES AND LEDGER
// =============================================================================

type CycleDTO struct {
	Cycle        int     `json:"cycle"`
	Month        string  `json:"month"`
	Available    bool    `json:"available"`
	PayoutAmount *int64  `json:"payout_amount,omitempty"`
	PayoutError  string  `json:"payout_error,omitempty"`
	Recipient    *string `json:"recipient,omitempty"`
}

type MonthlyRecordDTO struct {
	Cycle        int          `json:"cycle"`
	Month        string       `json:"month"`
	PayoutAmount int64        `json:"payout_amount"`
	Recipient    *string      `json:"recipient,omitempty"`
	Stored       bool         `json:"stored"`
	Payments     []PaymentDTO `json:"payments"`
	CreatedAt    string       `json:"created_at,omitempty"`
}

type PaymentDTO struct {
	Member  string `json:"member"`
	Amount  int64  `json:"amount"`
	Paid    bool   `json:"paid"`
	Method  string `json:"method,omitempty"`
	Remarks string `json:"remarks,omitempty"`
	PaidAt  string `json:"paid_at,omitempty"`
}

// RecordPayoutRequest marks a cycle's pooled amount as taken by a member.
type RecordPayoutRequest struct {
	Cycle  *int   `json:"cycle"`
	Member string `json:"member"`
}

// UpdatePaymentRequest patches one payment line. Omitted fields are kept.
type UpdatePaymentRequest struct {
	Paid    *bool   `json:"paid,omitempty"`
	Method  *string `json:"method,omitempty"`
	Remarks *string `json:"remarks,omitempty"`
}

// =============================================================================
// STATEMENTS
// =============================================================================

type StatementDTO struct {
	Member           string            `json:"member"`
	Contributions    []ContributionDTO `json:"contributions"`
	TotalContributed int64             `json:"total_contributed"`
	TotalPaid        int64             `json:"total_paid"`
	Payout           *PayoutDTO        `json:"payout,omitempty"`
	Net              int64             `json:"net"`
}

type ContributionDTO struct {
	Cycle  int    `json:"cycle"`
	Month  string `json:"month"`
	Amount int64  `json:"amount"`
	Paid   bool   `json:"paid"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toListItemDTO(f chit.Fund, now time.Time) FundListItemDTO {
	return FundListItemDTO{
		ID:            string(f.ID),
		Name:          f.Name,
		MonthlyAmount: f.BaseContribution.Int64(),
		TotalMonths:   f.TotalMonths,
		Members:       len(f.Members),
		Period:        f.Period().String(),
		Active:        chit.IsActive(f, now),
		CyclesPaidOut: len(f.History),
		CreatedAt:     formatTime(f.CreatedAt),
	}
}

func toPayoutDTO(f chit.Fund, p chit.PayoutRecord) PayoutDTO {
	return PayoutDTO{
		Cycle:     p.Cycle,
		Month:     chit.CycleMonth(f, p.Cycle).String(),
		Recipient: p.Recipient,
		Amount:    p.Amount.Int64(),
		At:        formatTime(p.At),
	}
}

func toSummaryDTO(f chit.Fund) SummaryDTO {
	s := chit.Summary(f)
	dto := SummaryDTO{
		Members:         s.Members,
		CyclesPaidOut:   s.CyclesPaidOut,
		CyclesRemaining: s.CyclesRemaining,
		TotalDisbursed:  s.TotalDisbursed.Int64(),
		NextAvailable:   s.NextAvailable,
		Collections:     make([]CollectionDTO, 0, len(s.Collections)),
	}
	for _, c := range s.Collections {
		dto.Collections = append(dto.Collections, CollectionDTO{
			Cycle:       c.Cycle,
			Month:       chit.CycleMonth(f, c.Cycle).String(),
			Expected:    c.Expected.Int64(),
			Collected:   c.Collected.Int64(),
			Outstanding: c.Outstanding.Int64(),
		})
	}
	return dto
}

func toMonthlyRecordDTO(f chit.Fund, rec chit.MonthlyRecord) MonthlyRecordDTO {
	_, stored := f.Ledger[rec.Cycle]
	dto := MonthlyRecordDTO{
		Cycle:        rec.Cycle,
		Month:        chit.CycleMonth(f, rec.Cycle).String(),
		PayoutAmount: rec.PayoutAmount.Int64(),
		Recipient:    rec.Recipient,
		Stored:       stored,
		Payments:     make([]PaymentDTO, 0, len(rec.Payments)),
		CreatedAt:    formatTime(rec.CreatedAt),
	}
	for _, p := range rec.Payments {
		pd := PaymentDTO{
			Member:  p.Member,
			Amount:  p.Amount.Int64(),
			Paid:    p.Paid,
			Method:  string(p.Method),
			Remarks: p.Remarks,
		}
		if p.PaidAt != nil {
			pd.PaidAt = formatTime(*p.PaidAt)
		}
		dto.Payments = append(dto.Payments, pd)
	}
	return dto
}

func toStatementDTO(f chit.Fund, st chit.MemberStatement) StatementDTO {
	dto := StatementDTO{
		Member:           st.Member,
		Contributions:    make([]ContributionDTO, 0, len(st.Contributions)),
		TotalContributed: st.TotalContributed.Int64(),
		TotalPaid:        st.TotalPaid.Int64(),
		Net:              st.Net.Int64(),
	}
	for _, c := range st.Contributions {
		dto.Contributions = append(dto.Contributions, ContributionDTO{
			Cycle:  c.Cycle,
			Month:  c.Month.String(),
			Amount: c.Amount.Int64(),
			Paid:   c.Paid,
		})
	}
	if st.Payout != nil {
		p := toPayoutDTO(f, *st.Payout)
		dto.Payout = &p
	}
	return dto
}
