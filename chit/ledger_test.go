package chit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chitfund/chit"
)

func boolPtr(b bool) *bool                                { return &b }
func strPtr(s string) *string                             { return &s }
func methodPtr(m chit.PaymentMethod) *chit.PaymentMethod { return &m }

// =============================================================================
// BUILD MONTHLY LEDGER
// =============================================================================

func TestBuildMonthlyLedger_Synthesizes(t *testing.T) {
	// GIVEN: A took cycle 0
	f, err := chit.RecordPayout(familyFund(), 0, "A", at(1))
	require.NoError(t, err)

	// WHEN: Building cycle 1
	rec, err := chit.BuildMonthlyLedger(f, 1)
	require.NoError(t, err)

	// THEN: payout via disbursal, contributions per member, nothing paid
	assert.Equal(t, 1, rec.Cycle)
	assert.Equal(t, chit.Amount(489000), rec.PayoutAmount)
	assert.Nil(t, rec.Recipient)
	require.Len(t, rec.Payments, 3)
	assert.Equal(t, chit.PaymentEntry{Member: "A", Amount: 24000}, rec.Payments[0])
	assert.Equal(t, chit.PaymentEntry{Member: "B", Amount: 20000}, rec.Payments[1])
	for _, p := range rec.Payments {
		assert.False(t, p.Paid)
		assert.Nil(t, p.PaidAt)
	}

	// AND: nothing was stored
	assert.Empty(t, f.Ledger)
}

func TestBuildMonthlyLedger_ReturnsStoredRecordUnchanged(t *testing.T) {
	f, err := chit.UpdatePaymentEntry(familyFund(), 2, "B", chit.PaymentPatch{Remarks: strPtr("late")}, at(4))
	require.NoError(t, err)

	first, err := chit.BuildMonthlyLedger(f, 2)
	require.NoError(t, err)
	second, err := chit.BuildMonthlyLedger(f, 2)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, f.Ledger[2], first)
	assert.Equal(t, at(4), first.CreatedAt)
}

func TestBuildMonthlyLedger_ReturnedRecordIsACopy(t *testing.T) {
	f, err := chit.UpdatePaymentEntry(familyFund(), 0, "A", chit.PaymentPatch{Remarks: strPtr("x")}, at(1))
	require.NoError(t, err)

	rec, err := chit.BuildMonthlyLedger(f, 0)
	require.NoError(t, err)
	rec.Payments[0].Remarks = "changed"

	assert.Equal(t, "x", f.Ledger[0].Payments[0].Remarks)
}

func TestBuildMonthlyLedger_WorksWhenNoCyclesRemain(t *testing.T) {
	// GIVEN: Every cycle of a three-month fund paid out
	f := explicitFund(100, 200, 300)
	var err error
	for i, m := range []string{"C", "A", "B"} {
		f, err = chit.RecordPayout(f, i, m, at(i+1))
		require.NoError(t, err)
	}
	require.Empty(t, chit.AvailableCycleList(f))

	// WHEN/THEN: Ledger still builds and updates
	rec, err := chit.BuildMonthlyLedger(f, 2)
	require.NoError(t, err)
	assert.Equal(t, chit.Amount(300), rec.PayoutAmount)

	f, err = chit.UpdatePaymentEntry(f, 2, "C", chit.PaymentPatch{Paid: boolPtr(true)}, at(9))
	require.NoError(t, err)
	assert.True(t, f.Ledger[2].Payments[2].Paid)
	assert.Equal(t, chit.Amount(24000), f.Ledger[2].Payments[2].Amount)
	require.NotNil(t, f.Ledger[2].Recipient)
	assert.Equal(t, "B", *f.Ledger[2].Recipient)
}

func TestBuildMonthlyLedger_OutOfRange(t *testing.T) {
	_, err := chit.BuildMonthlyLedger(familyFund(), 30)
	assert.ErrorIs(t, err, chit.ErrValidation)
}

// =============================================================================
// UPDATE PAYMENT ENTRY
// =============================================================================

func TestUpdatePaymentEntry_FirstPaidSetsTimestamp(t *testing.T) {
	f, err := chit.UpdatePaymentEntry(familyFund(), 0, "A",
		chit.PaymentPatch{Paid: boolPtr(true), Method: methodPtr(chit.MethodUPI)}, at(5))
	require.NoError(t, err)

	entry, _, ok := f.Ledger[0].Payment("A")
	require.True(t, ok)
	assert.True(t, entry.Paid)
	assert.Equal(t, chit.MethodUPI, entry.Method)
	require.NotNil(t, entry.PaidAt)
	assert.Equal(t, at(5), *entry.PaidAt)
}

func TestUpdatePaymentEntry_UnpayKeepsTimestamp(t *testing.T) {
	// GIVEN: A paid on day 5
	f, err := chit.UpdatePaymentEntry(familyFund(), 0, "A", chit.PaymentPatch{Paid: boolPtr(true)}, at(5))
	require.NoError(t, err)

	// WHEN: Unchecked on day 6, checked again on day 7
	f, err = chit.UpdatePaymentEntry(f, 0, "A", chit.PaymentPatch{Paid: boolPtr(false)}, at(6))
	require.NoError(t, err)
	unpaid, _, _ := f.Ledger[0].Payment("A")

	f, err = chit.UpdatePaymentEntry(f, 0, "A", chit.PaymentPatch{Paid: boolPtr(true)}, at(7))
	require.NoError(t, err)
	repaid, _, _ := f.Ledger[0].Payment("A")

	// THEN: The first payment date survives both
	assert.False(t, unpaid.Paid)
	require.NotNil(t, unpaid.PaidAt)
	assert.Equal(t, at(5), *unpaid.PaidAt)
	assert.True(t, repaid.Paid)
	assert.Equal(t, at(5), *repaid.PaidAt)
}

func TestUpdatePaymentEntry_PartialPatchLeavesOtherFields(t *testing.T) {
	f, err := chit.UpdatePaymentEntry(familyFund(), 1, "B",
		chit.PaymentPatch{Method: methodPtr(chit.MethodCash), Remarks: strPtr("brother paid")}, at(1))
	require.NoError(t, err)

	f, err = chit.UpdatePaymentEntry(f, 1, "B", chit.PaymentPatch{Remarks: strPtr("")}, at(2))
	require.NoError(t, err)

	entry, _, _ := f.Ledger[1].Payment("B")
	assert.Equal(t, chit.MethodCash, entry.Method)
	assert.Empty(t, entry.Remarks)
	assert.False(t, entry.Paid)
	assert.Nil(t, entry.PaidAt)
}

func TestUpdatePaymentEntry_KeepsOneRecordPerCycle(t *testing.T) {
	f := familyFund()
	var err error
	for _, m := range []string{"A", "B", "C", "A"} {
		f, err = chit.UpdatePaymentEntry(f, 3, m, chit.PaymentPatch{Paid: boolPtr(true)}, at(1))
		require.NoError(t, err)
	}
	assert.Len(t, f.Ledger, 1)
	assert.Len(t, f.Ledger[3].Payments, 3)
}

func TestUpdatePaymentEntry_UnknownMember(t *testing.T) {
	_, err := chit.UpdatePaymentEntry(familyFund(), 0, "Zed", chit.PaymentPatch{Paid: boolPtr(true)}, at(1))

	var nf *chit.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "payment", nf.Kind)
}

func TestUpdatePaymentEntry_InvalidMethod(t *testing.T) {
	_, err := chit.UpdatePaymentEntry(familyFund(), 0, "A", chit.PaymentPatch{Method: methodPtr("barter")}, at(1))
	assert.ErrorIs(t, err, chit.ErrValidation)
}

func TestUpdatePaymentEntry_DoesNotMutateInput(t *testing.T) {
	base, err := chit.UpdatePaymentEntry(familyFund(), 0, "A", chit.PaymentPatch{Remarks: strPtr("one")}, at(1))
	require.NoError(t, err)

	_, err = chit.UpdatePaymentEntry(base, 0, "A", chit.PaymentPatch{Remarks: strPtr("two")}, at(2))
	require.NoError(t, err)

	entry, _, _ := base.Ledger[0].Payment("A")
	assert.Equal(t, "one", entry.Remarks)
}
