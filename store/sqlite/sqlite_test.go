package sqlite_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/chitfund/chit"
	"github.com/warp/chitfund/store/sqlite"
)

func newStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chitfund.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func fund(id string) chit.Fund {
	start := chit.NewYearMonth(2025, time.March)
	return chit.Fund{
		ID:               chit.FundID(id),
		Name:             "Fund " + id,
		BaseContribution: 5000,
		TotalMonths:      3,
		Start:            start,
		End:              chit.EndMonth(start, 3),
		Members:          []chit.Member{{Name: "A", Contact: "1"}, {Name: "B", Contact: "2"}},
		Escalation:       chit.InterestEscalation(decimal.RequireFromString("2.5")),
		Disbursal:        chit.ExplicitDisbursal(9000, 9500, 10000),
		CreatedAt:        time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func assertSameFunds(t *testing.T, want, got []chit.Fund) {
	t.Helper()
	w, err := json.Marshal(want)
	require.NoError(t, err)
	g, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(w), string(g))
}

func TestStore_EmptyLoad(t *testing.T) {
	s, _ := newStore(t)
	funds, err := s.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, funds)
}

func TestStore_SaveAndLoad(t *testing.T) {
	// GIVEN: A fund with history and a materialized ledger record
	ctx := context.Background()
	s, _ := newStore(t)
	at := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	f, err := chit.RecordPayout(fund("one"), 1, "B", at)
	require.NoError(t, err)
	paid := true
	f, err = chit.UpdatePaymentEntry(f, 1, "A", chit.PaymentPatch{Paid: &paid}, at)
	require.NoError(t, err)

	// WHEN: The collection is saved and loaded back
	want := []chit.Fund{f, fund("two")}
	require.NoError(t, s.SaveAll(ctx, want))
	got, err := s.LoadAll(ctx)
	require.NoError(t, err)

	// THEN: Order and contents survive
	require.Len(t, got, 2)
	assert.Equal(t, chit.FundID("one"), got[0].ID)
	assertSameFunds(t, want, got)
	assert.True(t, got[0].Ledger[1].Payments[0].Paid)
}

func TestStore_SaveAllReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	require.NoError(t, s.SaveAll(ctx, []chit.Fund{fund("one"), fund("two")}))
	require.NoError(t, s.SaveAll(ctx, []chit.Fund{fund("three")}))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, chit.FundID("three"), got[0].ID)
}

func TestStore_FailedSaveKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.SaveAll(ctx, []chit.Fund{fund("one")}))

	// Duplicate primary keys abort the transaction midway.
	err := s.SaveAll(ctx, []chit.Fund{fund("dup"), fund("dup")})
	require.Error(t, err)

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, chit.FundID("one"), got[0].ID)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)
	require.NoError(t, s.SaveAll(ctx, []chit.Fund{fund("one")}))
	require.NoError(t, s.Close())

	again, err := sqlite.New(path)
	require.NoError(t, err)
	defer again.Close()

	got, err := again.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
}
