/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built funds that populate the book with realistic data for
	demos. Each scenario creates a fund through the factory, then records
	payouts and payments through the engine, exactly as the API would.

AVAILABLE SCENARIOS:

	family-linear:       20000 x 25 months, flat +4000 after payout, linear disbursal
	explicit-schedule:   Office circle with a hand-entered disbursal schedule
	interest-escalation: Payout grows by a percentage instead of contributions

HOW SCENARIOS WORK:
 1. Build funds via factory (fixed IDs and creation dates)
 2. Record payouts with RecordPayout
 3. Mark payments with UpdatePaymentEntry
 4. Replace the whole collection (Book.Restore, admin password required)

USAGE VIA API:

	POST /api/scenarios/load
	X-Admin-Password: ...
	{"scenario_id": "family-linear"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create builder function: buildXxx() ([]chit.Fund, error)
 3. Add case to scenarioFunds

NOTE:

	Loading a scenario replaces every fund in the book.

SEE ALSO:
  - handlers.go: Fund and cycle handlers
  - factory/fund.go: Fund JSON definitions
*/
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/factory"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "family-linear",
		Name:        "Family Chit",
		Description: "20000 x 25 months from January 2025, +4000 after taking the chit, payout 485000 rising 4000 a month",
	},
	{
		ID:          "explicit-schedule",
		Name:        "Office Circle",
		Description: "Six-month circle with a hand-entered payout for every month",
	},
	{
		ID:          "interest-escalation",
		Name:        "Neighbourhood Chit",
		Description: "Payout raised by 1.5% interest; contributions stay flat",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario replaces the book with a scenario's funds.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	funds, err := scenarioFunds(req.ScenarioID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := h.Book.Restore(r.Context(), funds, r.Header.Get(AdminPasswordHeader)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.setScenario(req.ScenarioID)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"scenario": req.ScenarioID,
		"funds":    len(funds),
	})
}

// ResetScenario empties the book.
func (h *Handler) ResetScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.Book.Restore(r.Context(), nil, r.Header.Get(AdminPasswordHeader)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.setScenario("")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) setScenario(id string) {
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func scenarioFunds(id string) ([]chit.Fund, error) {
	switch id {
	case "family-linear":
		return buildFamilyLinear()
	case "explicit-schedule":
		return buildExplicitSchedule()
	case "interest-escalation":
		return buildInterestEscalation()
	default:
		return nil, &chit.NotFoundError{Kind: "scenario", Key: id}
	}
}

func scenarioFactory(id string, created time.Time) *factory.FundFactory {
	f := factory.NewFundFactory()
	f.NewID = func() string { return "demo-" + id }
	f.Now = func() time.Time { return created }
	return f
}

func members(names ...string) []factory.MemberJSON {
	out := make([]factory.MemberJSON, len(names))
	for i, n := range names {
		out[i] = factory.MemberJSON{Name: n, Contact: fmt.Sprintf("98450%05d", i+1)}
	}
	return out
}

func whole(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// payoutPlan records payouts and marks every member paid for those cycles.
type payoutPlan struct {
	cycle  int
	member string
	method chit.PaymentMethod
}

func applyPlan(f chit.Fund, plan []payoutPlan) (chit.Fund, error) {
	paid := true
	for _, p := range plan {
		day := chit.CycleMonth(f, p.cycle).FirstDay().AddDate(0, 0, 9)
		var err error
		f, err = chit.RecordPayout(f, p.cycle, p.member, day)
		if err != nil {
			return chit.Fund{}, fmt.Errorf("payout %d: %w", p.cycle, err)
		}
		for _, m := range f.Members {
			method := p.method
			f, err = chit.UpdatePaymentEntry(f, p.cycle, m.Name, chit.PaymentPatch{Paid: &paid, Method: &method}, day.AddDate(0, 0, -4))
			if err != nil {
				return chit.Fund{}, fmt.Errorf("payment %d/%s: %w", p.cycle, m.Name, err)
			}
		}
	}
	return f, nil
}

func buildFamilyLinear() ([]chit.Fund, error) {
	fj := factory.FundJSON{
		Name:          "Family Chit Fund",
		MonthlyAmount: whole(20000),
		TotalMonths:   25,
		StartMonth:    1,
		StartYear:     2025,
		Escalation:    factory.EscalationJSON{Kind: "flat", Increment: whole(4000)},
		Disbursal:     factory.DisbursalJSON{Mode: "linear", FirstAmount: whole(485000), Increase: whole(4000)},
		Members:       members("Asha", "Ravi", "Meena", "Kiran", "Suresh"),
	}
	f, err := scenarioFactory("family-linear", time.Date(2024, 12, 20, 10, 0, 0, 0, time.UTC)).Build(fj)
	if err != nil {
		return nil, err
	}
	f, err = applyPlan(f, []payoutPlan{
		{cycle: 0, member: "Asha", method: chit.MethodBankTransfer},
		{cycle: 1, member: "Ravi", method: chit.MethodUPI},
	})
	if err != nil {
		return nil, err
	}

	// March is half collected.
	paid := true
	remarks := "paid at family dinner"
	for _, m := range []string{"Asha", "Meena"} {
		f, err = chit.UpdatePaymentEntry(f, 2, m, chit.PaymentPatch{Paid: &paid, Remarks: &remarks}, time.Date(2025, 3, 4, 19, 0, 0, 0, time.UTC))
		if err != nil {
			return nil, err
		}
	}
	return []chit.Fund{f}, nil
}

func buildExplicitSchedule() ([]chit.Fund, error) {
	amounts := []int64{28000, 28500, 29000, 29500, 30000, 30500}
	sched := make([]*decimal.Decimal, len(amounts))
	for i, a := range amounts {
		d := whole(a)
		sched[i] = &d
	}
	fj := factory.FundJSON{
		Name:          "Office Savings Circle",
		MonthlyAmount: whole(5000),
		TotalMonths:   6,
		StartMonth:    4,
		StartYear:     2025,
		Escalation:    factory.EscalationJSON{Kind: "flat", Increment: whole(500)},
		Disbursal:     factory.DisbursalJSON{Mode: "explicit", Amounts: sched},
		Members:       members("Anil", "Bhavna", "Chitra", "Deepak", "Farah", "Gopal"),
	}
	f, err := scenarioFactory("explicit-schedule", time.Date(2025, 3, 25, 9, 0, 0, 0, time.UTC)).Build(fj)
	if err != nil {
		return nil, err
	}
	f, err = applyPlan(f, []payoutPlan{{cycle: 0, member: "Chitra", method: chit.MethodCash}})
	if err != nil {
		return nil, err
	}
	return []chit.Fund{f}, nil
}

func buildInterestEscalation() ([]chit.Fund, error) {
	fj := factory.FundJSON{
		Name:          "Neighbourhood Chit",
		MonthlyAmount: whole(10000),
		TotalMonths:   10,
		StartMonth:    10,
		StartYear:     2024,
		Escalation:    factory.EscalationJSON{Kind: "interest", RatePercent: decimal.RequireFromString("1.5")},
		Disbursal:     factory.DisbursalJSON{Mode: "linear", FirstAmount: whole(95000), Increase: whole(1000)},
		Members:       members("Lakshmi", "Mohan", "Nisha", "Prakash"),
	}
	f, err := scenarioFactory("interest-escalation", time.Date(2024, 9, 28, 8, 0, 0, 0, time.UTC)).Build(fj)
	if err != nil {
		return nil, err
	}
	f, err = applyPlan(f, []payoutPlan{
		{cycle: 0, member: "Mohan", method: chit.MethodCheque},
		{cycle: 1, member: "Lakshmi", method: chit.MethodUPI},
		{cycle: 2, member: "Prakash", method: chit.MethodUPI},
	})
	if err != nil {
		return nil, err
	}
	return []chit.Fund{f}, nil
}
