package chit_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chitfund/chit"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var created = time.Date(2024, time.December, 20, 10, 0, 0, 0, time.UTC)

func familyFund() chit.Fund {
	start := chit.NewYearMonth(2025, time.January)
	return chit.Fund{
		ID:               "fund-family",
		Name:             "Family Chit",
		BaseContribution: 20000,
		TotalMonths:      25,
		Start:            start,
		End:              chit.EndMonth(start, 25),
		Members: []chit.Member{
			{Name: "A", Contact: "9000000001"},
			{Name: "B", Contact: "9000000002"},
			{Name: "C", Contact: "9000000003"},
		},
		Escalation: chit.FlatEscalation(4000),
		Disbursal:  chit.LinearDisbursal(485000, 4000),
		CreatedAt:  created,
	}
}

func explicitFund(amounts ...chit.Amount) chit.Fund {
	f := familyFund()
	f.TotalMonths = 3
	f.End = chit.EndMonth(f.Start, 3)
	f.Disbursal = chit.ExplicitDisbursal(amounts...)
	return f
}

func at(day int) time.Time {
	return time.Date(2025, time.February, day, 9, 30, 0, 0, time.UTC)
}

// =============================================================================
// MONTH LABELS
// =============================================================================

func TestMonthLabel_StartAndEnd(t *testing.T) {
	f := familyFund()

	first, err := chit.MonthLabel(f, 0)
	require.NoError(t, err)
	assert.Equal(t, "January 2025", first)

	last, err := chit.MonthLabel(f, 24)
	require.NoError(t, err)
	assert.Equal(t, "January 2027", last)
}

func TestMonthLabel_AdvancesOneMonthPerCycle(t *testing.T) {
	f := familyFund()
	f.Start = chit.NewYearMonth(2024, time.October)

	for i := 0; i < 40; i++ {
		cur := chit.CycleMonth(f, i)
		next := chit.CycleMonth(f, i+1)
		assert.Equal(t, 1, cur.MonthsUntil(next), "cycle %d", i)
		if cur.Month == time.December {
			assert.Equal(t, time.January, next.Month)
			assert.Equal(t, cur.Year+1, next.Year)
		} else {
			assert.Equal(t, cur.Month+1, next.Month)
			assert.Equal(t, cur.Year, next.Year)
		}
	}
}

func TestMonthLabel_NoUpperBound(t *testing.T) {
	label, err := chit.MonthLabel(familyFund(), 100)
	require.NoError(t, err)
	assert.Equal(t, "May 2033", label)
}

func TestMonthLabel_NegativeCycleRejected(t *testing.T) {
	_, err := chit.MonthLabel(familyFund(), -1)
	assert.ErrorIs(t, err, chit.ErrValidation)
}

// =============================================================================
// AVAILABLE CYCLES
// =============================================================================

func TestAvailableCycles_AllOpenOnNewFund(t *testing.T) {
	f := familyFund()
	cycles := chit.AvailableCycleList(f)
	require.Len(t, cycles, 25)
	assert.Equal(t, 0, cycles[0])
	assert.Equal(t, 24, cycles[24])
}

func TestAvailableCycles_ExcludesRecordedPayout(t *testing.T) {
	// GIVEN: A fund with B taking cycle 3
	// WHEN: Listing available cycles
	// THEN: 3 is missing and the rest stay ascending

	f, err := chit.RecordPayout(familyFund(), 3, "B", at(1))
	require.NoError(t, err)

	cycles := chit.AvailableCycleList(f)
	assert.Len(t, cycles, 24)
	assert.NotContains(t, cycles, 3)
	assert.IsIncreasing(t, cycles)
}

func TestAvailableCycles_Restartable(t *testing.T) {
	f := familyFund()
	seq := chit.AvailableCycles(f)

	var firstPass []int
	for c := range seq {
		firstPass = append(firstPass, c)
		if len(firstPass) == 2 {
			break
		}
	}
	var secondPass []int
	for c := range seq {
		secondPass = append(secondPass, c)
		if len(secondPass) == 2 {
			break
		}
	}
	assert.Equal(t, []int{0, 1}, firstPass)
	assert.Equal(t, firstPass, secondPass)
}

func TestAvailableCycles_EmptyWhenEveryCycleTaken(t *testing.T) {
	f := explicitFund(100, 200, 300)
	var err error
	for i, m := range []string{"A", "B", "C"} {
		f, err = chit.RecordPayout(f, i, m, at(i+1))
		require.NoError(t, err)
	}
	assert.Empty(t, chit.AvailableCycleList(f))
}

// =============================================================================
// DISBURSAL AMOUNT
// =============================================================================

func TestDisbursalAmount_Linear(t *testing.T) {
	f := familyFund()

	amount, err := chit.DisbursalAmount(f, 0)
	require.NoError(t, err)
	assert.Equal(t, chit.Amount(485000), amount)

	amount, err = chit.DisbursalAmount(f, 10)
	require.NoError(t, err)
	assert.Equal(t, chit.Amount(525000), amount)
}

func TestDisbursalAmount_LinearStrictlyIncreasing(t *testing.T) {
	f := familyFund()
	prev, err := chit.DisbursalAmount(f, 0)
	require.NoError(t, err)
	for i := 1; i < f.TotalMonths; i++ {
		cur, err := chit.DisbursalAmount(f, i)
		require.NoError(t, err)
		assert.Greater(t, cur, prev, "cycle %d", i)
		prev = cur
	}
}

func TestDisbursalAmount_LinearConstantWhenNoIncrease(t *testing.T) {
	f := familyFund()
	f.Disbursal = chit.LinearDisbursal(500000, 0)
	for i := 0; i < f.TotalMonths; i++ {
		amount, err := chit.DisbursalAmount(f, i)
		require.NoError(t, err)
		assert.Equal(t, chit.Amount(500000), amount)
	}
}

func TestDisbursalAmount_Explicit(t *testing.T) {
	f := explicitFund(450000, 470000, 500000)
	amount, err := chit.DisbursalAmount(f, 1)
	require.NoError(t, err)
	assert.Equal(t, chit.Amount(470000), amount)
}

func TestDisbursalAmount_ExplicitGapIsConfigError(t *testing.T) {
	// GIVEN: An explicit schedule missing its last entry
	f := explicitFund(450000, 470000)

	// WHEN: Asking for the missing cycle
	_, err := chit.DisbursalAmount(f, 2)

	// THEN: ConfigError
	var cfgErr *chit.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 2, cfgErr.Cycle)
	assert.ErrorIs(t, err, chit.ErrConfig)
}

func TestDisbursalAmount_OutOfRange(t *testing.T) {
	f := familyFund()
	_, err := chit.DisbursalAmount(f, 25)
	assert.ErrorIs(t, err, chit.ErrValidation)
	_, err = chit.DisbursalAmount(f, -1)
	assert.ErrorIs(t, err, chit.ErrValidation)
}

func TestDisbursalAmount_InterestRoundsHalfUp(t *testing.T) {
	// GIVEN: Interest escalation of 2.5% on an explicit schedule
	f := explicitFund(1000, 1010, 1030)
	f.Escalation = chit.InterestEscalation(decimal.RequireFromString("2.5"))

	// THEN: 1000 * 1.025 = 1025; 1010 * 1.025 = 1035.25 -> 1035; 1030 * 1.025 = 1055.75 -> 1056
	want := []chit.Amount{1025, 1035, 1056}
	for i, w := range want {
		got, err := chit.DisbursalAmount(f, i)
		require.NoError(t, err)
		assert.Equal(t, w, got, "cycle %d", i)
	}
}

// =============================================================================
// MEMBER CONTRIBUTION
// =============================================================================

func TestMemberContribution_EscalatesOnlyAfterPayoutCycle(t *testing.T) {
	// GIVEN: B takes the payout in cycle 5
	f, err := chit.RecordPayout(familyFund(), 5, "B", at(2))
	require.NoError(t, err)

	// THEN: Base up to and including cycle 5, base+increment afterwards
	for i := 0; i < f.TotalMonths; i++ {
		got, err := chit.MemberContribution(f, "B", i)
		require.NoError(t, err)
		if i <= 5 {
			assert.Equal(t, chit.Amount(20000), got, "cycle %d", i)
		} else {
			assert.Equal(t, chit.Amount(24000), got, "cycle %d", i)
		}
	}

	// AND: Members who have not taken the payout stay at base
	got, err := chit.MemberContribution(f, "C", 20)
	require.NoError(t, err)
	assert.Equal(t, chit.Amount(20000), got)
}

func TestMemberContribution_InterestSchemeNeverEscalates(t *testing.T) {
	f := explicitFund(100, 200, 300)
	f.Escalation = chit.InterestEscalation(decimal.NewFromInt(5))
	f, err := chit.RecordPayout(f, 0, "A", at(3))
	require.NoError(t, err)

	got, err := chit.MemberContribution(f, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, chit.Amount(20000), got)
}

func TestMemberContribution_UnknownMember(t *testing.T) {
	_, err := chit.MemberContribution(familyFund(), "Z", 0)
	assert.True(t, chit.IsNotFound(err))
}

// =============================================================================
// RECORD PAYOUT
// =============================================================================

func TestRecordPayout_AppendsAndSorts(t *testing.T) {
	f := familyFund()
	f, err := chit.RecordPayout(f, 7, "C", at(1))
	require.NoError(t, err)
	f, err = chit.RecordPayout(f, 2, "A", at(2))
	require.NoError(t, err)

	require.Len(t, f.History, 2)
	assert.Equal(t, 2, f.History[0].Cycle)
	assert.Equal(t, "A", f.History[0].Recipient)
	assert.Equal(t, chit.Amount(493000), f.History[0].Amount)
	assert.Equal(t, at(2), f.History[0].At)
	assert.Equal(t, 7, f.History[1].Cycle)
}

func TestRecordPayout_DoesNotMutateInput(t *testing.T) {
	original := familyFund()
	_, err := chit.RecordPayout(original, 0, "A", at(1))
	require.NoError(t, err)
	assert.Empty(t, original.History)
}

func TestRecordPayout_SameMemberTwiceRejected(t *testing.T) {
	// GIVEN: A took cycle 0
	f, err := chit.RecordPayout(familyFund(), 0, "A", at(1))
	require.NoError(t, err)

	// WHEN: A tries to take cycle 1
	next, err := chit.RecordPayout(f, 1, "A", at(2))

	// THEN: ValidationError, no partial fund
	var verr *chit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, chit.CodeDuplicateRecipient, verr.Code)
	assert.True(t, verr.IsConflict())
	assert.Empty(t, next.ID)
	assert.Len(t, f.History, 1)
}

func TestRecordPayout_CycleTakenRejected(t *testing.T) {
	f, err := chit.RecordPayout(familyFund(), 0, "A", at(1))
	require.NoError(t, err)

	_, err = chit.RecordPayout(f, 0, "B", at(2))
	var verr *chit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, chit.CodeCycleTaken, verr.Code)
}

func TestRecordPayout_UnknownMemberRejected(t *testing.T) {
	_, err := chit.RecordPayout(familyFund(), 0, "Zed", at(1))
	var verr *chit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, chit.CodeUnknownMember, verr.Code)
}

func TestRecordPayout_OutOfRangeRejected(t *testing.T) {
	_, err := chit.RecordPayout(familyFund(), 25, "A", at(1))
	assert.ErrorIs(t, err, chit.ErrValidation)
}

func TestRecordPayout_ExplicitGapFails(t *testing.T) {
	f := explicitFund(100, 200)
	_, err := chit.RecordPayout(f, 2, "A", at(1))
	assert.ErrorIs(t, err, chit.ErrConfig)
}

func TestRecordPayout_SetsRecipientOnMaterializedRecord(t *testing.T) {
	paid := true
	f, err := chit.UpdatePaymentEntry(familyFund(), 4, "A", chit.PaymentPatch{Paid: &paid}, at(1))
	require.NoError(t, err)

	f, err = chit.RecordPayout(f, 4, "C", at(2))
	require.NoError(t, err)

	rec := f.Ledger[4]
	require.NotNil(t, rec.Recipient)
	assert.Equal(t, "C", *rec.Recipient)
	assert.Equal(t, chit.Amount(501000), rec.PayoutAmount)
}

func TestRecordPayout_RepricesLaterStoredUnpaidLines(t *testing.T) {
	// GIVEN: Cycles 5 and 6 materialized before anyone took a payout,
	// with B already paid for cycle 6
	f, err := chit.UpdatePaymentEntry(familyFund(), 5, "A", chit.PaymentPatch{Paid: boolPtr(true)}, at(1))
	require.NoError(t, err)
	f, err = chit.UpdatePaymentEntry(f, 6, "B", chit.PaymentPatch{Paid: boolPtr(true)}, at(1))
	require.NoError(t, err)

	// WHEN: B takes the payout in cycle 2
	f, err = chit.RecordPayout(f, 2, "B", at(2))
	require.NoError(t, err)

	// THEN: B's unpaid cycle 5 line carries the escalated amount
	p, _, ok := f.Ledger[5].Payment("B")
	require.True(t, ok)
	assert.Equal(t, chit.Amount(24000), p.Amount)

	want, err := chit.MemberContribution(f, "B", 5)
	require.NoError(t, err)
	assert.Equal(t, want, p.Amount)

	// AND: the paid cycle 6 line keeps what was paid
	p, _, _ = f.Ledger[6].Payment("B")
	assert.Equal(t, chit.Amount(20000), p.Amount)

	// AND: other members are untouched
	p, _, _ = f.Ledger[5].Payment("A")
	assert.Equal(t, chit.Amount(20000), p.Amount)
	assert.NoError(t, chit.Validate(f))
}

func TestRecordPayout_DoesNotRepriceEarlierOrInterestRecords(t *testing.T) {
	f, err := chit.UpdatePaymentEntry(familyFund(), 1, "C", chit.PaymentPatch{Remarks: strPtr("x")}, at(1))
	require.NoError(t, err)

	f, err = chit.RecordPayout(f, 3, "C", at(2))
	require.NoError(t, err)
	p, _, _ := f.Ledger[1].Payment("C")
	assert.Equal(t, chit.Amount(20000), p.Amount)

	g := explicitFund(100, 200, 300)
	g.Escalation = chit.InterestEscalation(decimal.NewFromInt(5))
	g, err = chit.UpdatePaymentEntry(g, 2, "A", chit.PaymentPatch{Remarks: strPtr("x")}, at(1))
	require.NoError(t, err)
	g, err = chit.RecordPayout(g, 0, "A", at(2))
	require.NoError(t, err)
	p, _, _ = g.Ledger[2].Payment("A")
	assert.Equal(t, chit.Amount(20000), p.Amount)
}

func TestErrorHelpers(t *testing.T) {
	assert.True(t, chit.IsClientError(&chit.ValidationError{Code: chit.CodeCycleTaken}))
	assert.True(t, chit.IsClientError(&chit.ConfigError{}))
	assert.False(t, chit.IsClientError(errors.New("disk full")))
	assert.True(t, chit.IsNotFound(&chit.NotFoundError{Kind: "member", Key: "x"}))
}
