package book_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chitfund/auth"
	"github.com/warp/chitfund/book"
	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/chit/store"
)

func testFund(id string) chit.Fund {
	start := chit.NewYearMonth(2025, time.January)
	return chit.Fund{
		ID:               chit.FundID(id),
		Name:             "Fund " + id,
		BaseContribution: 20000,
		TotalMonths:      3,
		Start:            start,
		End:              chit.EndMonth(start, 3),
		Members:          []chit.Member{{Name: "A", Contact: "1"}, {Name: "B", Contact: "2"}, {Name: "C", Contact: "3"}},
		Escalation:       chit.FlatEscalation(4000),
		Disbursal:        chit.LinearDisbursal(60000, 4000),
	}
}

func openBook(t *testing.T, seed ...chit.Fund) (*book.Book, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(seed...)
	b, err := book.Open(context.Background(), mem, auth.NewPasswordGate("pw", nil), nil)
	require.NoError(t, err)
	return b, mem
}

func TestOpen_RejectsInvalidStoredFund(t *testing.T) {
	bad := testFund("x")
	bad.History = []chit.PayoutRecord{{Cycle: 0, Recipient: "A"}, {Cycle: 1, Recipient: "A"}}

	_, err := book.Open(context.Background(), store.NewMemory(bad), book.AllowAll{}, nil)
	assert.ErrorIs(t, err, chit.ErrValidation)
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	b, mem := openBook(t)

	_, err := b.Create(ctx, testFund("f1"))
	require.NoError(t, err)

	got, err := b.Get("f1")
	require.NoError(t, err)
	assert.Equal(t, "Fund f1", got.Name)
	assert.Equal(t, 1, mem.Saves())

	_, err = b.Create(ctx, testFund("f1"))
	assert.ErrorIs(t, err, chit.ErrFundExists)

	_, err = b.Get("nope")
	assert.ErrorIs(t, err, chit.ErrNotFound)
}

func TestUpdate_PersistsEngineMutation(t *testing.T) {
	// GIVEN: A stored fund
	ctx := context.Background()
	b, mem := openBook(t, testFund("f1"))
	at := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)

	// WHEN: A payout is recorded through the book
	_, err := b.Update(ctx, "f1", func(f chit.Fund) (chit.Fund, error) {
		return chit.RecordPayout(f, 0, "A", at)
	})
	require.NoError(t, err)

	// THEN: Storage holds the new history
	stored, err := mem.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, stored[0].History, 1)
	assert.Equal(t, "A", stored[0].History[0].Recipient)
}

func TestUpdate_EngineErrorLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	b, mem := openBook(t, testFund("f1"))

	_, err := b.Update(ctx, "f1", func(f chit.Fund) (chit.Fund, error) {
		return chit.RecordPayout(f, 9, "A", time.Now())
	})
	assert.ErrorIs(t, err, chit.ErrValidation)
	assert.Equal(t, 0, mem.Saves())
}

func TestUpdate_SaveFailureLeavesMemoryUnchanged(t *testing.T) {
	// GIVEN: Storage that fails the next save
	ctx := context.Background()
	b, mem := openBook(t, testFund("f1"))
	mem.FailSave = errors.New("disk full")

	// WHEN: A mutation is attempted
	_, err := b.Update(ctx, "f1", func(f chit.Fund) (chit.Fund, error) {
		return chit.RecordPayout(f, 0, "A", time.Now())
	})

	// THEN: The error surfaces and the book still shows no payout
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	got, err := b.Get("f1")
	require.NoError(t, err)
	assert.Empty(t, got.History)
}

func TestUpdate_RejectsIDChange(t *testing.T) {
	b, _ := openBook(t, testFund("f1"))
	_, err := b.Update(context.Background(), "f1", func(f chit.Fund) (chit.Fund, error) {
		f.ID = "other"
		return f, nil
	})
	assert.Error(t, err)
}

func TestDelete_RequiresPassword(t *testing.T) {
	ctx := context.Background()
	b, _ := openBook(t, testFund("f1"), testFund("f2"))

	err := b.Delete(ctx, "f1", "wrong")
	assert.ErrorIs(t, err, chit.ErrUnauthorized)
	assert.Len(t, b.List(), 2)

	require.NoError(t, b.Delete(ctx, "f1", "pw"))
	funds := b.List()
	require.Len(t, funds, 1)
	assert.Equal(t, chit.FundID("f2"), funds[0].ID)

	assert.ErrorIs(t, b.Delete(ctx, "f1", "pw"), chit.ErrNotFound)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	b, _ := openBook(t, testFund("f1"))

	err := b.Restore(ctx, []chit.Fund{testFund("r1"), testFund("r2")}, "wrong")
	assert.ErrorIs(t, err, chit.ErrUnauthorized)

	err = b.Restore(ctx, []chit.Fund{testFund("r1"), testFund("r1")}, "pw")
	assert.ErrorIs(t, err, chit.ErrFundExists)

	require.NoError(t, b.Restore(ctx, []chit.Fund{testFund("r1"), testFund("r2")}, "pw"))
	assert.Len(t, b.Snapshot(), 2)
	_, err = b.Get("f1")
	assert.ErrorIs(t, err, chit.ErrNotFound)
}

func TestList_ReturnsCopies(t *testing.T) {
	b, _ := openBook(t, testFund("f1"))
	funds := b.List()
	funds[0].Name = "mutated"

	got, err := b.Get("f1")
	require.NoError(t, err)
	assert.Equal(t, "Fund f1", got.Name)
}
